package core

// Machine identifies one of the physical presses.
type Machine int

const MachineUnset Machine = 0

var validMachines = map[Machine]bool{
	6:  true,
	8:  true,
	10: true,
}

func (m Machine) Valid() bool {
	return validMachines[m]
}

// Thumbnail is a single rendered preview of an attachment.
type Thumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

type Thumbnails struct {
	Small *Thumbnail `json:"small,omitempty"`
	Large *Thumbnail `json:"large,omitempty"`
	Full  *Thumbnail `json:"full,omitempty"`
}

// Attachment is a file descriptor stored on a job record. The core never
// mutates attachments, they pass through to the caller as-is.
type Attachment struct {
	URL        string      `json:"url"`
	Filename   string      `json:"filename"`
	Type       string      `json:"type,omitempty"`
	Thumbnails *Thumbnails `json:"thumbnails,omitempty"`
}

// JobRecord is the canonical projection of one raw record from the store,
// scoped to a single region's status field.
type JobRecord struct {
	ID          string                 `json:"id"`
	JobID       string                 `json:"jobId"`
	ClientName  string                 `json:"clientNameText"`
	JobName     string                 `json:"jobName"`
	Status      string                 `json:"status"`
	StatusKey   string                 `json:"statusKey"`
	Mockup      []Attachment           `json:"mockup"`
	Method      string                 `json:"method"`
	CartonsIn   *int64                 `json:"cartonIn"`
	Impressions int64                  `json:"impressions"`
	ImprLeft    int64                  `json:"imprLeft"`
	Machine     string                 `json:"machine,omitempty"`
	ImprLog     string                 `json:"imprLog"`
	Order       map[string]interface{} `json:"order,omitempty"`

	// Norm caches the normalized status so list ordering does not
	// re-normalize on every comparison.
	Norm NormalizedStatus `json:"-"`
}

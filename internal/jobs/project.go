package jobs

import (
	"strconv"

	"presstrack/internal/core"
	"presstrack/internal/recordstore"
)

// Raw field names on the record store. The store owns the schema; these are
// the only names the service reads or writes.
const (
	fieldJobID       = "JOB ID"
	fieldClientName  = "Client name text"
	fieldJobName     = "Job Name"
	fieldMockup      = "Mock up"
	fieldMethod      = "Method"
	fieldCartonIn    = "Carton IN"
	fieldImpressions = "Impressions"
	fieldImprLeft    = "Impr_left"
	fieldImprLog     = "Impr_log"
	fieldMachine     = "Rikma Machine"
)

// orderFields are the upstream data-entry columns passed through untouched
// for the order detail view.
var orderFields = []string{
	fieldImpressions,
	fieldClientName,
	fieldJobName,
	fieldMethod,
	fieldMockup,
	"Deadline",
	"Sample",
	"Graphic 1", "Width 1 cm", "Number 1",
	"Graphic 2", "Width 2 cm", "Number 2",
	"Graphic 3", "Width 3", "Number 3",
	"Graphic 4", "Width 4 cm", "Number 4",
	"Manager Field",
	fieldCartonIn,
	"# of packages",
}

// Project maps one raw record into the canonical JobRecord for a region,
// normalizing the status and reconciling the remaining-quantity counter.
// A remaining value that fails numeric reconciliation fails the projection;
// it signals corrupted upstream data and must not be coerced away.
func Project(rec recordstore.RawRecord, region *core.Region) (core.JobRecord, error) {
	f := rec.Fields

	impressions, _ := core.ParseQuantity(f[fieldImpressions])
	left, err := core.ResolveRemaining(f[fieldImprLeft], impressions)
	if err != nil {
		return core.JobRecord{}, err
	}

	status := stringField(f, region.StatusField)
	job := core.JobRecord{
		ID:          rec.ID,
		JobID:       stringField(f, fieldJobID),
		ClientName:  stringField(f, fieldClientName),
		JobName:     stringField(f, fieldJobName),
		Status:      status,
		Mockup:      attachmentField(f, fieldMockup),
		Method:      stringField(f, fieldMethod),
		CartonsIn:   optionalIntField(f, fieldCartonIn),
		Impressions: impressions,
		ImprLeft:    left,
		Machine:     stringField(f, fieldMachine),
		ImprLog:     stringField(f, fieldImprLog),
		Norm:        region.Normalize(status),
	}
	job.StatusKey = job.Norm.Key

	order := make(map[string]interface{}, len(orderFields))
	for _, name := range orderFields {
		if v, ok := f[name]; ok {
			order[name] = v
		}
	}
	if len(order) > 0 {
		job.Order = order
	}

	return job, nil
}

func stringField(fields map[string]interface{}, name string) string {
	switch v := fields[name].(type) {
	case string:
		return v
	case float64:
		return trimFloat(v)
	case nil:
		return ""
	default:
		return ""
	}
}

func optionalIntField(fields map[string]interface{}, name string) *int64 {
	v, ok := fields[name]
	if !ok || v == nil {
		return nil
	}
	n, err := core.ParseQuantity(v)
	if err != nil {
		return nil
	}
	return &n
}

// attachmentField decodes the store's attachment array shape; anything that
// is not an attachment array defaults to an empty slice.
func attachmentField(fields map[string]interface{}, name string) []core.Attachment {
	items, ok := fields[name].([]interface{})
	if !ok {
		return []core.Attachment{}
	}

	out := make([]core.Attachment, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		a := core.Attachment{
			URL:      stringField(m, "url"),
			Filename: stringField(m, "filename"),
			Type:     stringField(m, "type"),
		}
		if a.URL == "" {
			continue
		}
		if thumbs, ok := m["thumbnails"].(map[string]interface{}); ok {
			a.Thumbnails = &core.Thumbnails{
				Small: thumbnail(thumbs, "small"),
				Large: thumbnail(thumbs, "large"),
				Full:  thumbnail(thumbs, "full"),
			}
		}
		out = append(out, a)
	}
	return out
}

func thumbnail(thumbs map[string]interface{}, size string) *core.Thumbnail {
	m, ok := thumbs[size].(map[string]interface{})
	if !ok {
		return nil
	}
	t := &core.Thumbnail{URL: stringField(m, "url")}
	if t.URL == "" {
		return nil
	}
	if w, ok := m["width"].(float64); ok {
		t.Width = int(w)
	}
	if h, ok := m["height"].(float64); ok {
		t.Height = int(h)
	}
	return t
}

func trimFloat(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

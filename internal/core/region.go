package core

import (
	"fmt"
	"strings"
)

// Stage is a job's canonical position within a region's six-stage sequence.
type Stage int

const (
	StageOutsourced Stage = iota
	StagePrepared
	StageDelivered
	StageInWork
	StageFinished
	StageArrived
	StageOther
)

// otherWeight sorts unrecognized statuses after every known stage.
const otherWeight = 999

// NormalizedStatus is the result of normalizing a raw free-text status.
type NormalizedStatus struct {
	// Key is the canonical vocabulary entry, or "other".
	Key string
	// Norm is the cleaned raw input (lower-cased, trimmed, whitespace
	// collapsed) before alias correction. List ordering breaks weight
	// ties on this value, not on Key.
	Norm string
	// Stage is the canonical stage, StageOther when unrecognized.
	Stage Stage
	// Weight is the stage's position in the vocabulary, otherWeight for
	// unrecognized input.
	Weight int
}

// Region describes one outsourcing pipeline: its status field on the record
// store, the labels written for each stage, and the alias corrections applied
// when reading historical values back.
type Region struct {
	Name        string
	StatusField string

	// suffix / foreignSuffix normalize retired cross-region labels: a
	// status suffixed with the other region's name is remapped into this
	// region's vocabulary before lookup.
	suffix        string
	foreignSuffix string

	labels  [6]string
	keys    [6]string
	weights map[string]int
	aliases map[string]string
}

func newRegion(name, foreign string) *Region {
	title := strings.ToUpper(name[:1]) + name[1:]

	r := &Region{
		Name:          name,
		StatusField:   "Outsource " + title,
		suffix:        " " + name,
		foreignSuffix: " " + foreign,
		labels: [6]string{
			StageOutsourced: "Outsource " + title,
			StagePrepared:   "Prepared to Send " + title,
			StageDelivered:  "Delivered to " + title,
			StageInWork:     "In work " + title,
			StageFinished:   "Finished " + title,
			StageArrived:    "Arrived to PM " + title,
		},
	}
	r.keys = [6]string{
		StageOutsourced: "outsource " + name,
		StagePrepared:   "prepared to send " + name,
		StageDelivered:  "delivered " + name,
		StageInWork:     "in work " + name,
		StageFinished:   "finished " + name,
		StageArrived:    "arrived to pm " + name,
	}
	r.weights = make(map[string]int, len(r.keys))
	for i, k := range r.keys {
		r.weights[k] = i
	}
	// Historical spellings observed on live records.
	r.aliases = map[string]string{
		"outsourse " + name:    r.keys[StageOutsourced],
		"delivered to " + name: r.keys[StageDelivered],
		"fininshed " + name:    r.keys[StageFinished],
	}
	return r
}

// North and South are structurally identical pipelines with differently
// suffixed vocabularies.
func North() *Region { return newRegion("north", "south") }
func South() *Region { return newRegion("south", "north") }

// Regions returns the pipelines keyed by name.
func Regions() map[string]*Region {
	return map[string]*Region{
		"north": North(),
		"south": South(),
	}
}

// cleanStatus lower-cases, trims, and collapses internal whitespace.
func cleanStatus(raw string) string {
	return strings.Join(strings.Fields(strings.ToLower(raw)), " ")
}

// Normalize maps a raw status string to its canonical vocabulary entry and
// sort weight. It is pure: same input, same result. Empty or unrecognized
// input maps to the sentinel "other", weighted after all known stages.
func (r *Region) Normalize(raw string) NormalizedStatus {
	norm := cleanStatus(raw)
	if norm == "" {
		return NormalizedStatus{Key: "other", Norm: norm, Stage: StageOther, Weight: otherWeight}
	}

	key := norm
	if strings.HasSuffix(key, r.foreignSuffix) {
		key = strings.TrimSuffix(key, r.foreignSuffix) + r.suffix
	}
	if corrected, ok := r.aliases[key]; ok {
		key = corrected
	}

	if w, ok := r.weights[key]; ok {
		return NormalizedStatus{Key: key, Norm: norm, Stage: Stage(w), Weight: w}
	}
	return NormalizedStatus{Key: "other", Norm: norm, Stage: StageOther, Weight: otherWeight}
}

// Label returns the status value written to the store for a stage.
func (r *Region) Label(s Stage) (string, error) {
	if s < StageOutsourced || s > StageArrived {
		return "", fmt.Errorf("region %s has no label for stage %d", r.Name, s)
	}
	return r.labels[s], nil
}

// MustLabel is Label for the fixed stages the service itself writes.
func (r *Region) MustLabel(s Stage) string {
	l, err := r.Label(s)
	if err != nil {
		panic(err)
	}
	return l
}

// CanTransition reports whether a status write is legal under strict
// workflow enforcement: both stages must be known and the move must be
// forward. An unrecognized current stage always allows the write, since
// there is nothing to compare against.
func (r *Region) CanTransition(from, to Stage) bool {
	if to == StageOther {
		return false
	}
	if from == StageOther {
		return true
	}
	return to > from
}

package core

import (
	"sort"
	"strconv"
)

// SortJobs orders a projected job list for display: canonical stage weight
// first, then the normalized (pre-alias) status string, then job id,
// numerically when both parse as numbers, lexicographically otherwise.
// The three-level tie-break keeps the ordering stable across refreshes even
// when records share a stage.
func SortJobs(jobs []JobRecord) {
	sort.SliceStable(jobs, func(i, j int) bool {
		a, b := jobs[i], jobs[j]
		if a.Norm.Weight != b.Norm.Weight {
			return a.Norm.Weight < b.Norm.Weight
		}
		if a.Norm.Norm != b.Norm.Norm {
			return a.Norm.Norm < b.Norm.Norm
		}
		na, errA := strconv.ParseFloat(a.JobID, 64)
		nb, errB := strconv.ParseFloat(b.JobID, 64)
		if errA == nil && errB == nil {
			return na < nb
		}
		return a.JobID < b.JobID
	})
}

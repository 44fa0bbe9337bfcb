package invoice

import "sort"

// SortNewestFirst orders records by CreatedAt, most recent first. Records
// with an unreadable timestamp keep their relative order at the end.
func SortNewestFirst(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		ti, okI := records[i].CreatedTime()
		tj, okJ := records[j].CreatedTime()
		switch {
		case okI && okJ:
			return ti.After(tj)
		case okI:
			return true
		default:
			return false
		}
	})
}

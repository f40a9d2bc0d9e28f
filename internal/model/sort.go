package model

import "strings"

type SortKey string

const (
	SortByName          SortKey = "name"
	SortByDate          SortKey = "date"
	SortBySize          SortKey = "size"
	SortByChildrenCount SortKey = "children_count"
)

type SortDirection string

const (
	Ascending  SortDirection = "asc"
	Descending SortDirection = "desc"
)

// ParseSortKey falls back to SortByName for empty or unknown values.
func ParseSortKey(raw string) SortKey {
	switch key := SortKey(strings.ToLower(strings.TrimSpace(raw))); key {
	case SortByName, SortByDate, SortBySize, SortByChildrenCount:
		return key
	default:
		return SortByName
	}
}

// ParseSortDirection falls back to Ascending for empty or unknown values.
func ParseSortDirection(raw string) SortDirection {
	if SortDirection(strings.ToLower(strings.TrimSpace(raw))) == Descending {
		return Descending
	}

	return Ascending
}

func (d SortDirection) Toggle() SortDirection {
	if d == Descending {
		return Ascending
	}

	return Descending
}

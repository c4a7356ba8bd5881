package ownerdetails

import "fmt"

// SortOrder is the order of visits selected by the sortOrder query parameter.
type SortOrder string

const (
	SortAscending  SortOrder = "asc"
	SortDescending SortOrder = "desc"
)

// ParseSortOrder parses "asc" or "desc".
func ParseSortOrder(s string) (SortOrder, error) {
	switch SortOrder(s) {
	case SortAscending, SortDescending:
		return SortOrder(s), nil
	}
	return "", fmt.Errorf("invalid sort order %q: must be asc or desc", s)
}

func (o SortOrder) String() string {
	return string(o)
}

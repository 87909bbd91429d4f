package shared

const (
	// DefaultPage is the first page of a listing.
	DefaultPage = 1
	// DefaultLimit bounds list sizes when the caller does not say.
	DefaultLimit = 10
)

// ListFilters represents standard list filters.
type ListFilters struct {
	Page   int
	Limit  int
	Search string
	Status string
}

// Normalize clamps pagination to sane defaults.
func (f ListFilters) Normalize() ListFilters {
	if f.Page < 1 {
		f.Page = DefaultPage
	}
	if f.Limit < 1 {
		f.Limit = DefaultLimit
	}
	return f
}

// Offset converts page/limit into a row offset.
func (f ListFilters) Offset() int {
	offset := (f.Page - 1) * f.Limit
	if offset < 0 {
		return 0
	}
	return offset
}

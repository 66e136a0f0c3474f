package pagination

const (
	// DefaultPageSize is the standard page size when one is not provided.
	DefaultPageSize = 24
	// MaxPageSize caps how many items any page can hold.
	MaxPageSize = 100
)

// Params holds page-number pagination inputs from controllers or services.
type Params struct {
	Page     int
	PageSize int
}

// Normalize enforces page >= 1 and the default and maximum page sizes.
func (p Params) Normalize() Params {
	if p.Page < 1 {
		p.Page = 1
	}
	p.PageSize = NormalizePageSize(p.PageSize)
	return p
}

// NormalizePageSize enforces the configured default and maximum page sizes.
func NormalizePageSize(size int) int {
	if size <= 0 {
		return DefaultPageSize
	}
	if size > MaxPageSize {
		return MaxPageSize
	}
	return size
}

// Bounds returns the half-open [start, end) slice window for total items.
func (p Params) Bounds(total int) (start, end int) {
	n := p.Normalize()
	start = (n.Page - 1) * n.PageSize
	if start > total {
		start = total
	}
	end = start + n.PageSize
	if end > total {
		end = total
	}
	return start, end
}

// TotalPages reports how many pages total items span.
func (p Params) TotalPages(total int) int {
	size := NormalizePageSize(p.PageSize)
	if total <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

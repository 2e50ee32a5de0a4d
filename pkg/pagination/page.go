package pagination

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PageRequest is a 1-based page number and a size clamped to [1, MaxPageSize].
type PageRequest struct {
	Number int
	Size   int
}

func NewPageRequest(number, size int) PageRequest {
	if number < 1 {
		number = 1
	}
	switch {
	case size < 1:
		size = DefaultPageSize
	case size > MaxPageSize:
		size = MaxPageSize
	}
	return PageRequest{Number: number, Size: size}
}

// Skip is the number of documents before the page.
func (r PageRequest) Skip() int64 {
	return int64(r.Number-1) * int64(r.Size)
}

func (r PageRequest) Limit() int64 {
	return int64(r.Size)
}

// Page is one page of an offset-paginated listing, as returned by the console.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalPages int64 `json:"totalPages"`
}

func NewPage[T any](items []T, total int64, req PageRequest) *Page[T] {
	if items == nil {
		items = []T{}
	}
	return &Page[T]{
		Items:      items,
		Total:      total,
		Page:       req.Number,
		PageSize:   req.Size,
		TotalPages: (total + int64(req.Size) - 1) / int64(req.Size),
	}
}

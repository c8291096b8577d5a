package domain

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// Page is a validated page request.
type Page struct {
	Page  int
	Limit int
}

// DefaultPage is the first page at the default size.
func DefaultPage() Page { return Page{Page: 1, Limit: DefaultPageLimit} }

func (p Page) Offset() int { return (p.Page - 1) * p.Limit }

// Pagination is the page metadata returned with every list.
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

func NewPagination(p Page, total int64) Pagination {
	pages := int64(0)
	if p.Limit > 0 {
		pages = (total + int64(p.Limit) - 1) / int64(p.Limit)
	}
	return Pagination{Page: p.Page, Limit: p.Limit, Total: total, Pages: pages}
}

// Stats is a set of grouped counts, e.g. Breakdown["estado"]["activo"].
type Stats struct {
	Total     int64                       `json:"total"`
	Breakdown map[string]map[string]int64 `json:"desglose"`
}

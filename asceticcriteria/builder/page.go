package builder

// DefaultPerPage is the page size used when Paginate is called with a
// non-positive one.
const DefaultPerPage = 15

// Page is one window of a paginated result set.
type Page struct {
	Items       []Row
	Total       int64
	CurrentPage int
	PerPage     int
	LastPage    int
}

func NewPage(items []Row, total int64, currentPage, perPage int) Page {
	lastPage := int((total + int64(perPage) - 1) / int64(perPage))
	if lastPage < 1 {
		lastPage = 1
	}
	return Page{
		Items:       items,
		Total:       total,
		CurrentPage: currentPage,
		PerPage:     perPage,
		LastPage:    lastPage,
	}
}

// HasMore reports whether pages beyond the current one exist.
func (p Page) HasMore() bool {
	return p.CurrentPage < p.LastPage
}

package viewstate

// Page is the window of rows selected by a state's pagination fields for a
// given row count.
type Page struct {
	Number     int  `json:"number"`
	Size       int  `json:"size"`
	Offset     int  `json:"offset"`
	Limit      int  `json:"limit"`
	TotalPages int  `json:"total_pages"`
	TotalItems int  `json:"total_items"`
	HasPrev    bool `json:"has_prev"`
	HasNext    bool `json:"has_next"`
}

// Paginate computes the page window for total rows. CurrentPage is clamped
// into [1, TotalPages] for the result only; the state itself is unchanged,
// so a table that shrinks and grows again returns to the saved page.
func (s TableViewState) Paginate(total int) Page {
	size := s.ItemsPerPage
	if size < 1 {
		size = DefaultItemsPerPage
	}
	if total < 0 {
		total = 0
	}

	pages := total / size
	if total%size != 0 {
		pages++
	}
	number := s.CurrentPage
	if number > pages {
		number = pages
	}
	if number < 1 {
		number = 1
	}

	offset := (number - 1) * size
	limit := size
	if rest := total - offset; rest < limit {
		limit = max(rest, 0)
	}

	return Page{
		Number:     number,
		Size:       size,
		Offset:     offset,
		Limit:      limit,
		TotalPages: pages,
		TotalItems: total,
		HasPrev:    number > 1,
		HasNext:    number < pages,
	}
}

// Paginate is TableViewState.Paginate on the handle's current state.
func (h *Handle) Paginate(total int) Page {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state.Paginate(total)
}

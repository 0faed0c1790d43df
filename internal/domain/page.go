package domain

import "fmt"

// NamespaceItems is the cache namespace for wardrobe item pages
const NamespaceItems = "items"

// PageKey identifies one cached page: (filters, page number, page size).
// Filter holds ItemFilter.Encode() so the key stays comparable.
type PageKey struct {
	Namespace string
	Filter    string
	Page      int
	PageSize  int
}

// NewPageKey builds the key for a page of items under filter
func NewPageKey(filter ItemFilter, page, pageSize int) PageKey {
	return PageKey{
		Namespace: NamespaceItems,
		Filter:    filter.Encode(),
		Page:      page,
		PageSize:  pageSize,
	}
}

// ItemFilter decodes the filter part of the key
func (k PageKey) ItemFilter() (ItemFilter, error) {
	return ParseFilter(k.Filter)
}

// Prefix returns the string every key sharing namespace and filter starts with
func (k PageKey) Prefix() string {
	return k.Namespace + ":" + k.Filter + ":"
}

// String renders the hierarchical key: {ns}:{filter}:p{page}:n{size}
func (k PageKey) String() string {
	return fmt.Sprintf("%sp%d:n%d", k.Prefix(), k.Page, k.PageSize)
}

// Page is a materialized slice of the filtered collection
type Page struct {
	Items    []Item `json:"items"`
	Total    int    `json:"total"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	HasMore  bool   `json:"has_more"`
}

// Clone returns a deep copy of the page
func (p Page) Clone() Page {
	dup := p
	if p.Items != nil {
		dup.Items = make([]Item, len(p.Items))
		for i, item := range p.Items {
			dup.Items[i] = item.Clone()
		}
	}
	return dup
}

// HasProcessing reports whether any item on the page is still processing
func (p Page) HasProcessing() bool {
	for _, item := range p.Items {
		if item.IsProcessing() {
			return true
		}
	}
	return false
}

// IDs returns the item IDs on the page in order
func (p Page) IDs() []string {
	ids := make([]string, len(p.Items))
	for i, item := range p.Items {
		ids[i] = item.ID
	}
	return ids
}

// Find returns the item with the given ID
func (p Page) Find(id string) (Item, bool) {
	for _, item := range p.Items {
		if item.ID == id {
			return item, true
		}
	}
	return Item{}, false
}

// RecomputeHasMore derives has_more from total the way the server does
func (p *Page) RecomputeHasMore() {
	if p.Page <= 0 || p.PageSize <= 0 {
		return
	}
	p.HasMore = p.Page*p.PageSize < p.Total
}

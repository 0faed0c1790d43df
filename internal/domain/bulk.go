package domain

// BulkFilters is the filter predicate frozen into a select-all request so
// that the server resolves the same set the user was looking at.
type BulkFilters struct {
	Type       *string `json:"type,omitempty"`
	Search     *string `json:"search,omitempty"`
	IsArchived *bool   `json:"is_archived,omitempty"`
}

// BulkRequest is the wire form of a selection for
// POST /items/bulk/delete and /items/bulk/analyze.
// Exactly one of ItemIDs or SelectAll is set.
type BulkRequest struct {
	ItemIDs     []string     `json:"item_ids,omitempty"`
	SelectAll   bool         `json:"select_all,omitempty"`
	ExcludedIDs []string     `json:"excluded_ids,omitempty"`
	Filters     *BulkFilters `json:"filters,omitempty"`
}

// BulkDeleteResult is the partial-failure tolerant bulk delete response
type BulkDeleteResult struct {
	Deleted int      `json:"deleted"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors"`
}

// Partial reports whether some targets survived server-side
func (r BulkDeleteResult) Partial() bool { return r.Failed > 0 }

// BulkAnalyzeResult is the partial-failure tolerant bulk re-analysis response
type BulkAnalyzeResult struct {
	Queued int      `json:"queued"`
	Failed int      `json:"failed"`
	Errors []string `json:"errors"`
}

// Partial reports whether some targets were not queued
func (r BulkAnalyzeResult) Partial() bool { return r.Failed > 0 }

// UploadResult is the per-file outcome of a bulk upload
type UploadResult struct {
	Filename string `json:"filename"`
	Success  bool   `json:"success"`
	Item     *Item  `json:"item,omitempty"`
	Error    string `json:"error,omitempty"`
}

// BulkUploadResult is the response of POST /items/bulk
type BulkUploadResult struct {
	Total      int            `json:"total"`
	Successful int            `json:"successful"`
	Failed     int            `json:"failed"`
	Results    []UploadResult `json:"results"`
}

// Partial reports whether some files were rejected
func (r BulkUploadResult) Partial() bool { return r.Failed > 0 }

package selection

import "github.com/mmcdole/wardrobe/internal/domain"

// View binds one Selection to the filter of one list view.
// It is the only place a Selection and a filter meet, so a selection
// can never outlive the collection it was made against.
type View struct {
	sel    Selection
	filter domain.ItemFilter
}

// NewView starts an empty selection under filter
func NewView(filter domain.ItemFilter) *View {
	return &View{filter: filter}
}

func (v *View) Selection() Selection      { return v.sel }
func (v *View) Filter() domain.ItemFilter { return v.filter }

// SetFilter switches the active filter. Any selection is discarded when the
// filter actually changes; stale IDs are dropped rather than pruned.
// Reports whether the selection was cleared.
func (v *View) SetFilter(f domain.ItemFilter) bool {
	if v.filter.Equal(f) {
		return false
	}
	v.filter = f
	if v.sel.IsEmpty() {
		return false
	}
	v.sel = None()
	return true
}

func (v *View) Toggle(id string, checked bool) { v.sel = v.sel.Toggle(id, checked) }
func (v *View) Flip(id string)                 { v.sel = v.sel.Flip(id) }
func (v *View) SelectAll()                     { v.sel = v.sel.SelectAll() }
func (v *View) IsSelected(id string) bool      { return v.sel.IsSelected(id) }

// Reset clears the selection when the view goes away
func (v *View) Reset() { v.sel = None() }

// Confirm freezes the selection into a bulk request under the active filter
func (v *View) Confirm() (domain.BulkRequest, error) {
	return v.sel.Descriptor(v.filter)
}

// Done clears the selection after a bulk action succeeded
func (v *View) Done() { v.sel = None() }

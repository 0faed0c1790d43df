// Package selection tracks which items of a paginated, filtered collection
// are chosen for a bulk action.
//
// A Selection is a value: every operation returns the next state and never
// performs I/O. It describes the logical server-side collection, not the
// page currently on screen, so "all" means every item under the active
// filter minus an explicit exclusion set.
package selection

import (
	"errors"
	"maps"
	"slices"

	"github.com/mmcdole/wardrobe/internal/domain"
)

var (
	// ErrEmptySelection is returned when a bulk action is confirmed with nothing selected
	ErrEmptySelection = errors.New("nothing selected")

	// ErrFilterNotBulkable is returned when a select-all action runs under a
	// filter the bulk endpoints cannot reproduce server-side
	ErrFilterNotBulkable = errors.New("select all is not supported with the current filter")
)

// Mode is the tag of the selection union
type Mode int

const (
	ModeNone Mode = iota
	ModeSome
	ModeAll
)

func (m Mode) String() string {
	switch m {
	case ModeSome:
		return "some"
	case ModeAll:
		return "all"
	default:
		return "none"
	}
}

// Selection is one of:
//   - none: nothing selected
//   - some: exactly the IDs in ids
//   - all:  every item in the filtered collection except the IDs in ids
//
// The single ID set is read as "selected" or "excluded" depending on mode,
// so the two can never both be meaningful.
type Selection struct {
	mode Mode
	ids  map[string]struct{}
}

// None returns the empty selection
func None() Selection { return Selection{} }

// Mode returns the current tag
func (s Selection) Mode() Mode { return s.mode }

// IsEmpty reports whether the selection is in none mode
func (s Selection) IsEmpty() bool { return s.mode == ModeNone }

// Toggle checks or unchecks one item.
// In none/some mode the ID is added to or removed from the selected set and
// an empty result collapses to none. In all mode the polarity is inverted:
// checking re-includes the ID by removing it from the excluded set, and the
// mode stays all even when no exclusions remain.
func (s Selection) Toggle(id string, checked bool) Selection {
	if id == "" {
		return s
	}

	next := Selection{mode: s.mode, ids: maps.Clone(s.ids)}
	if next.ids == nil {
		next.ids = make(map[string]struct{})
	}

	if s.mode == ModeAll {
		if checked {
			delete(next.ids, id)
		} else {
			next.ids[id] = struct{}{}
		}
		return next
	}

	if checked {
		next.ids[id] = struct{}{}
	} else {
		delete(next.ids, id)
	}
	if len(next.ids) == 0 {
		return None()
	}
	next.mode = ModeSome
	return next
}

// Flip toggles id against its current state
func (s Selection) Flip(id string) Selection {
	return s.Toggle(id, !s.IsSelected(id))
}

// SelectAll moves to "all with no exclusions". Pressed again on a full
// select-all it clears to none. On a partially excluded select-all it
// re-normalizes to the full set instead of clearing.
func (s Selection) SelectAll() Selection {
	if s.mode == ModeAll && len(s.ids) == 0 {
		return None()
	}
	return Selection{mode: ModeAll}
}

// Clear unconditionally returns to none
func (s Selection) Clear() Selection { return None() }

// IsSelected reports whether id is logically part of the selection
func (s Selection) IsSelected(id string) bool {
	_, listed := s.ids[id]
	switch s.mode {
	case ModeSome:
		return listed
	case ModeAll:
		return !listed
	default:
		return false
	}
}

// SelectedIDs returns the explicit selection in some mode, sorted
func (s Selection) SelectedIDs() []string {
	if s.mode != ModeSome {
		return nil
	}
	return sortedKeys(s.ids)
}

// ExcludedIDs returns the exclusion set in all mode, sorted
func (s Selection) ExcludedIDs() []string {
	if s.mode != ModeAll {
		return nil
	}
	return sortedKeys(s.ids)
}

// Count returns how many items the selection covers in a collection of total items
func (s Selection) Count(total int) int {
	switch s.mode {
	case ModeSome:
		return len(s.ids)
	case ModeAll:
		return max(total-len(s.ids), 0)
	default:
		return 0
	}
}

// Targets returns the materialized items the selection covers, in order
func (s Selection) Targets(items []domain.Item) []domain.Item {
	if s.mode == ModeNone {
		return nil
	}
	var out []domain.Item
	for _, item := range items {
		if s.IsSelected(item.ID) {
			out = append(out, item)
		}
	}
	return out
}

// Descriptor encodes the selection as a bulk request under filter.
// The filter is frozen into select-all requests so the server resolves
// membership against what the user saw.
func (s Selection) Descriptor(filter domain.ItemFilter) (domain.BulkRequest, error) {
	switch s.mode {
	case ModeSome:
		return domain.BulkRequest{ItemIDs: s.SelectedIDs()}, nil
	case ModeAll:
		bf, ok := filter.Bulk()
		if !ok {
			return domain.BulkRequest{}, ErrFilterNotBulkable
		}
		return domain.BulkRequest{
			SelectAll:   true,
			ExcludedIDs: s.ExcludedIDs(),
			Filters:     &bf,
		}, nil
	default:
		return domain.BulkRequest{}, ErrEmptySelection
	}
}

func sortedKeys(m map[string]struct{}) []string {
	if len(m) == 0 {
		return []string{}
	}
	return slices.Sorted(maps.Keys(m))
}

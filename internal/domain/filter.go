package domain

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// ItemFilter is the server-side predicate for GET /items.
// The zero value lists every non-archived item.
type ItemFilter struct {
	Type       string
	Subtype    string
	Colors     []string
	Status     ItemStatus
	Favorite   *bool
	NeedsWash  *bool
	IsArchived bool
	Search     string
	SortBy     string
	SortOrder  string
}

// IsEmpty returns true if no field narrows the collection
func (f ItemFilter) IsEmpty() bool {
	return f.Encode() == ""
}

// Query returns the filter as GET /items query parameters
func (f ItemFilter) Query() url.Values {
	q := url.Values{}
	if v := strings.TrimSpace(f.Type); v != "" {
		q.Set("type", v)
	}
	if v := strings.TrimSpace(f.Subtype); v != "" {
		q.Set("subtype", v)
	}
	if colors := normalizeColors(f.Colors); len(colors) > 0 {
		q.Set("colors", strings.Join(colors, ","))
	}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.Favorite != nil {
		q.Set("favorite", strconv.FormatBool(*f.Favorite))
	}
	if f.NeedsWash != nil {
		q.Set("needs_wash", strconv.FormatBool(*f.NeedsWash))
	}
	if f.IsArchived {
		q.Set("is_archived", "true")
	}
	if v := strings.TrimSpace(f.Search); v != "" {
		q.Set("search", v)
	}
	if v := strings.TrimSpace(f.SortBy); v != "" {
		q.Set("sort_by", v)
		if order := strings.ToLower(strings.TrimSpace(f.SortOrder)); order == "asc" {
			q.Set("sort_order", order)
		}
	}
	return q
}

// Encode returns the canonical string form of the filter.
// Two filters select the same collection iff their encodings are equal.
func (f ItemFilter) Encode() string {
	return f.Query().Encode()
}

// Equal compares filters by their canonical encoding
func (f ItemFilter) Equal(other ItemFilter) bool {
	return f.Encode() == other.Encode()
}

// ParseFilter is the inverse of Encode
func ParseFilter(encoded string) (ItemFilter, error) {
	q, err := url.ParseQuery(encoded)
	if err != nil {
		return ItemFilter{}, fmt.Errorf("parse filter %q: %w", encoded, err)
	}

	f := ItemFilter{
		Type:      q.Get("type"),
		Subtype:   q.Get("subtype"),
		Status:    ItemStatus(q.Get("status")),
		Search:    q.Get("search"),
		SortBy:    q.Get("sort_by"),
		SortOrder: q.Get("sort_order"),
	}
	if f.Status != "" && !f.Status.Valid() {
		return ItemFilter{}, fmt.Errorf("parse filter: unknown status %q", f.Status)
	}
	if v := q.Get("colors"); v != "" {
		f.Colors = strings.Split(v, ",")
	}
	if f.Favorite, err = parseOptionalBool(q, "favorite"); err != nil {
		return ItemFilter{}, err
	}
	if f.NeedsWash, err = parseOptionalBool(q, "needs_wash"); err != nil {
		return ItemFilter{}, err
	}
	if v := q.Get("is_archived"); v != "" {
		if f.IsArchived, err = strconv.ParseBool(v); err != nil {
			return ItemFilter{}, fmt.Errorf("parse filter: is_archived: %w", err)
		}
	}
	return f, nil
}

// Bulk converts the filter into the predicate frozen into a select-all
// bulk request. The bulk endpoints only understand type, search and
// is_archived; ok is false when the filter narrows on anything else,
// since the server would then act on a larger set than the user saw.
func (f ItemFilter) Bulk() (BulkFilters, bool) {
	if strings.TrimSpace(f.Subtype) != "" ||
		len(normalizeColors(f.Colors)) > 0 ||
		f.Status != "" ||
		f.Favorite != nil ||
		f.NeedsWash != nil {
		return BulkFilters{}, false
	}

	archived := f.IsArchived
	bf := BulkFilters{IsArchived: &archived}
	if v := strings.TrimSpace(f.Type); v != "" {
		bf.Type = &v
	}
	if v := strings.TrimSpace(f.Search); v != "" {
		bf.Search = &v
	}
	return bf, true
}

// Summary renders a short human description for status bars
func (f ItemFilter) Summary() string {
	var parts []string
	if f.Type != "" {
		parts = append(parts, "type:"+f.Type)
	}
	if f.Subtype != "" {
		parts = append(parts, "subtype:"+f.Subtype)
	}
	if colors := normalizeColors(f.Colors); len(colors) > 0 {
		parts = append(parts, "colors:"+strings.Join(colors, ","))
	}
	if f.Status != "" {
		parts = append(parts, "status:"+string(f.Status))
	}
	if f.Favorite != nil && *f.Favorite {
		parts = append(parts, "favorites")
	}
	if f.NeedsWash != nil && *f.NeedsWash {
		parts = append(parts, "needs wash")
	}
	if f.IsArchived {
		parts = append(parts, "archived")
	}
	if f.Search != "" {
		parts = append(parts, fmt.Sprintf("%q", f.Search))
	}
	if len(parts) == 0 {
		return "all items"
	}
	return strings.Join(parts, " ")
}

func normalizeColors(colors []string) []string {
	var out []string
	for _, c := range colors {
		c = strings.ToLower(strings.TrimSpace(c))
		if c != "" && !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	slices.Sort(out)
	return out
}

func parseOptionalBool(q url.Values, name string) (*bool, error) {
	v := q.Get(name)
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, fmt.Errorf("parse filter: %s: %w", name, err)
	}
	return &b, nil
}

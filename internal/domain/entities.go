package domain

import (
	"strings"
	"time"
)

// ItemStatus is the server-side processing state of an item
type ItemStatus string

const (
	StatusProcessing ItemStatus = "processing"
	StatusReady      ItemStatus = "ready"
	StatusError      ItemStatus = "error"
	StatusArchived   ItemStatus = "archived"
)

// Valid reports whether s is one of the known statuses
func (s ItemStatus) Valid() bool {
	switch s {
	case StatusProcessing, StatusReady, StatusError, StatusArchived:
		return true
	}
	return false
}

// Item is a single wardrobe entry owned by the server.
// The client never creates IDs; every Item arrives from a list response.
type Item struct {
	ID            string     `json:"id"`
	Type          string     `json:"type"`
	Subtype       string     `json:"subtype,omitempty"`
	Name          string     `json:"name,omitempty"`
	Brand         string     `json:"brand,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	Status        ItemStatus `json:"status"`
	Favorite      bool       `json:"favorite"`
	IsArchived    bool       `json:"is_archived"`
	ArchiveReason string     `json:"archive_reason,omitempty"`
	Colors        []string   `json:"colors,omitempty"`
	PrimaryColor  string     `json:"primary_color,omitempty"`
	AIProcessed   bool       `json:"ai_processed"`
	AIDescription string     `json:"ai_description,omitempty"`
	WearCount     int        `json:"wear_count"`
	ThumbnailPath string     `json:"thumbnail_path,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// DisplayName returns the best human label for the item
func (i Item) DisplayName() string {
	if name := strings.TrimSpace(i.Name); name != "" {
		return name
	}
	label := i.Type
	if i.Subtype != "" {
		label = i.Subtype + " " + label
	}
	if i.PrimaryColor != "" {
		label = i.PrimaryColor + " " + label
	}
	if strings.TrimSpace(label) == "" {
		return "untitled item"
	}
	return label
}

// IsProcessing reports whether the server is still working on the item
func (i Item) IsProcessing() bool {
	return i.Status == StatusProcessing
}

// Clone returns a deep copy of the item
func (i Item) Clone() Item {
	dup := i
	if i.Colors != nil {
		dup.Colors = append([]string(nil), i.Colors...)
	}
	return dup
}

// ItemType is one row of the per-type item count returned by GET /items/types
type ItemType struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

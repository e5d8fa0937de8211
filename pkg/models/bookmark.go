package models

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Bookmark represents a saved URL owned by exactly one user.
type Bookmark struct {
	ID          string    `json:"id" db:"id"`
	UserID      string    `json:"-" db:"user_id"`
	URL         string    `json:"url" db:"url"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description,omitempty" db:"description"`
	Notes       string    `json:"notes,omitempty" db:"notes"`
	FaviconURL  string    `json:"favicon_url,omitempty" db:"favicon_url"`
	IsFavorite  bool      `json:"is_favorite" db:"is_favorite"`
	IsPinned    bool      `json:"is_pinned" db:"is_pinned"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
	Tags        []Tag     `json:"tags"`
}

// ValidateURL checks that raw parses as an absolute http(s) URL with a host.
func ValidateURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid URL %q: must be an absolute http(s) URL", raw)
	}
	return nil
}

// Validate enforces the bookmark URL invariants. Called at write time by the
// store, not only at the API boundary.
func (b *Bookmark) Validate() error {
	if err := ValidateURL(b.URL); err != nil {
		return err
	}
	if b.FaviconURL != "" {
		if err := ValidateURL(b.FaviconURL); err != nil {
			return fmt.Errorf("favicon: %w", err)
		}
	}
	if strings.TrimSpace(b.Title) == "" {
		return fmt.Errorf("title is required")
	}
	return nil
}

// CreateBookmarkRequest is the payload for creating a bookmark.
type CreateBookmarkRequest struct {
	URL         string   `json:"url" validate:"required"`
	Title       string   `json:"title" validate:"required,max=255"`
	Description string   `json:"description,omitempty"`
	Notes       string   `json:"notes,omitempty"`
	FaviconURL  string   `json:"favicon_url,omitempty"`
	IsFavorite  bool     `json:"is_favorite"`
	IsPinned    bool     `json:"is_pinned"`
	TagIDs      []string `json:"tag_ids,omitempty"`
}

// UpdateBookmarkRequest is the payload for PUT/PATCH. Nil pointers mean
// "leave unchanged"; TagIDs non-nil replaces the whole tag set.
type UpdateBookmarkRequest struct {
	URL         *string  `json:"url,omitempty"`
	Title       *string  `json:"title,omitempty" validate:"omitempty,max=255"`
	Description *string  `json:"description,omitempty"`
	Notes       *string  `json:"notes,omitempty"`
	FaviconURL  *string  `json:"favicon_url,omitempty"`
	IsFavorite  *bool    `json:"is_favorite,omitempty"`
	IsPinned    *bool    `json:"is_pinned,omitempty"`
	TagIDs      []string `json:"tag_ids,omitempty"`
}

// TagRefRequest addresses a tag by id or by name. Exactly one must be set.
type TagRefRequest struct {
	TagID   string `json:"tag_id,omitempty"`
	TagName string `json:"tag_name,omitempty"`
}

// Stats is the aggregate view returned by GET /bookmarks/stats/.
type Stats struct {
	TotalBookmarks    int            `json:"total_bookmarks"`
	FavoriteBookmarks int            `json:"favorite_bookmarks"`
	PinnedBookmarks   int            `json:"pinned_bookmarks"`
	TotalTags         int            `json:"total_tags"`
	RecentTags        []TagWithCount `json:"recent_tags"`
}

// Metadata is the external metadata collaborator's result. Error is set on
// soft failure; the enclosing request still succeeds.
type Metadata struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Error       string `json:"error,omitempty"`
}

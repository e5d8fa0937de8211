package models

import (
	"fmt"
	"strings"
	"time"
)

// Tag is a user-scoped label. Names are stored lower-cased and trimmed;
// (user_id, name) is unique.
type Tag struct {
	ID            string    `json:"id" db:"id"`
	UserID        string    `json:"-" db:"user_id"`
	Name          string    `json:"name" db:"name"`
	IsAIGenerated bool      `json:"is_ai_generated" db:"is_ai_generated"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// NormalizeTagName lower-cases and trims a tag name. Returns an error when
// the result is empty. Idempotent: normalizing a normalized name is a no-op.
func NormalizeTagName(name string) (string, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return "", fmt.Errorf("tag name cannot be empty")
	}
	return n, nil
}

// TagWithCount pairs a tag with the number of bookmarks it is attached to.
type TagWithCount struct {
	Tag
	BookmarkCount int `json:"bookmark_count"`
}

// TagDetails is the nested view returned by GET /tags/{id}/details/.
type TagDetails struct {
	Tag
	TotalBookmarks  int        `json:"total_bookmarks"`
	RecentBookmarks []Bookmark `json:"recent_bookmarks"`
}

// CreateTagRequest is the payload for creating a tag.
type CreateTagRequest struct {
	Name          string `json:"name" validate:"required,max=50"`
	IsAIGenerated bool   `json:"is_ai_generated"`
}

// UpdateTagRequest renames a tag. The new name is re-normalized.
type UpdateTagRequest struct {
	Name string `json:"name" validate:"required,max=50"`
}

// BulkDeleteRequest lists the tags to delete atomically.
type BulkDeleteRequest struct {
	TagIDs []string `json:"tag_ids" validate:"required,min=1"`
}

// MergeRequest merges the source tags into the target tag.
type MergeRequest struct {
	SourceTagIDs []string `json:"source_tag_ids" validate:"required,min=1"`
	TargetTagID  string   `json:"target_tag_id" validate:"required"`
}

// DeleteReport is the result of a bulk delete.
type DeleteReport struct {
	TagsDeleted         int `json:"tags_deleted"`
	AssociationsRemoved int `json:"associations_removed"`
}

// MergeReport is the result of a merge. Associations that already existed on
// the target are skipped, not counted.
type MergeReport struct {
	TagsRemoved         int `json:"tags_removed"`
	AssociationsCreated int `json:"associations_created"`
}

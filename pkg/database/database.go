package database

import (
	"context"

	"bookmark-manager-backend/pkg/models"
)

// Store defines the persistence surface the handlers operate on. The only
// production implementation is PostgresStore; tests provide fakes.
type Store interface {
	// Users
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string) error

	// Bookmarks
	CreateBookmark(ctx context.Context, b *models.Bookmark, tagIDs []string) error
	GetBookmark(ctx context.Context, userID, id string) (*models.Bookmark, error)
	ListBookmarks(ctx context.Context, userID string, f BookmarkFilter, p Page) ([]models.Bookmark, int, error)
	UpdateBookmark(ctx context.Context, userID, id string, req models.UpdateBookmarkRequest) (*models.Bookmark, error)
	DeleteBookmark(ctx context.Context, userID, id string) error
	SearchSuggestions(ctx context.Context, userID, query string, limit int) ([]string, error)
	GetStats(ctx context.Context, userID string) (*models.Stats, error)

	// Tags
	CreateTag(ctx context.Context, tag *models.Tag) error
	GetTag(ctx context.Context, userID, id string) (*models.Tag, error)
	GetOrCreateTag(ctx context.Context, userID, name string, aiGenerated bool) (tag *models.Tag, created bool, err error)
	ListTags(ctx context.Context, userID string) ([]models.TagWithCount, error)
	UpdateTag(ctx context.Context, userID, id, name string) (*models.Tag, error)
	DeleteTag(ctx context.Context, userID, id string) (associationsRemoved int, err error)
	BulkDeleteTags(ctx context.Context, userID string, tagIDs []string) (*models.DeleteReport, error)
	MergeTags(ctx context.Context, userID string, sourceTagIDs []string, targetTagID string) (*models.MergeReport, error)
	PopularTags(ctx context.Context, userID string, limit int) ([]models.TagWithCount, error)
	UnusedTags(ctx context.Context, userID string) ([]models.Tag, error)
	TagDetails(ctx context.Context, userID, id string) (*models.TagDetails, error)
	ListBookmarksByTag(ctx context.Context, userID, tagID string, p Page) ([]models.Bookmark, int, error)

	// Associations
	AddBookmarkTag(ctx context.Context, bookmarkID, tagID string) error
	RemoveBookmarkTagByID(ctx context.Context, bookmarkID, tagID string) error
	RemoveBookmarkTagByName(ctx context.Context, userID, bookmarkID, name string) error

	HealthCheck(ctx context.Context) error
	Close() error
}

// Page describes offset pagination. Zero values fall back to the defaults.
type Page struct {
	Number int
	Size   int
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// LimitOffset returns the SQL limit/offset for the page, clamping size.
func (p Page) LimitOffset() (limit, offset int) {
	size := p.Size
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	number := p.Number
	if number <= 0 {
		number = 1
	}
	return size, (number - 1) * size
}

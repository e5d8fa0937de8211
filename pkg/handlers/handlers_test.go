package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	chiRoute "github.com/go-chi/chi/v5"

	"bookmark-manager-backend/pkg/database"
	"bookmark-manager-backend/pkg/middleware"
	"bookmark-manager-backend/pkg/models"
	"bookmark-manager-backend/pkg/utils"
)

// fakeStore implements database.Store with per-method hooks. Calling an
// endpoint whose hook is unset panics, which surfaces unexpected store
// access in tests.
type fakeStore struct {
	createUser     func(ctx context.Context, user *models.User) error
	getUserByEmail func(ctx context.Context, email string) (*models.User, error)
	getUserByID    func(ctx context.Context, id string) (*models.User, error)

	createBookmark func(ctx context.Context, b *models.Bookmark, tagIDs []string) error
	getBookmark    func(ctx context.Context, userID, id string) (*models.Bookmark, error)
	listBookmarks  func(ctx context.Context, userID string, f database.BookmarkFilter, p database.Page) ([]models.Bookmark, int, error)
	updateBookmark func(ctx context.Context, userID, id string, req models.UpdateBookmarkRequest) (*models.Bookmark, error)
	deleteBookmark func(ctx context.Context, userID, id string) error
	getStats       func(ctx context.Context, userID string) (*models.Stats, error)
	suggestions    func(ctx context.Context, userID, query string, limit int) ([]string, error)

	createTag      func(ctx context.Context, tag *models.Tag) error
	getTag         func(ctx context.Context, userID, id string) (*models.Tag, error)
	getOrCreateTag func(ctx context.Context, userID, name string, aiGenerated bool) (*models.Tag, bool, error)
	listTags       func(ctx context.Context, userID string) ([]models.TagWithCount, error)
	bulkDeleteTags func(ctx context.Context, userID string, tagIDs []string) (*models.DeleteReport, error)
	mergeTags      func(ctx context.Context, userID string, sourceTagIDs []string, targetTagID string) (*models.MergeReport, error)
	popularTags    func(ctx context.Context, userID string, limit int) ([]models.TagWithCount, error)
	unusedTags     func(ctx context.Context, userID string) ([]models.Tag, error)

	addBookmarkTag  func(ctx context.Context, bookmarkID, tagID string) error
	removeTagByID   func(ctx context.Context, bookmarkID, tagID string) error
	removeTagByName func(ctx context.Context, userID, bookmarkID, name string) error
}

func (f *fakeStore) CreateUser(ctx context.Context, user *models.User) error {
	return f.createUser(ctx, user)
}
func (f *fakeStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return f.getUserByEmail(ctx, email)
}
func (f *fakeStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return f.getUserByID(ctx, id)
}
func (f *fakeStore) UpdateLastLogin(ctx context.Context, id string) error { return nil }

func (f *fakeStore) CreateBookmark(ctx context.Context, b *models.Bookmark, tagIDs []string) error {
	return f.createBookmark(ctx, b, tagIDs)
}
func (f *fakeStore) GetBookmark(ctx context.Context, userID, id string) (*models.Bookmark, error) {
	return f.getBookmark(ctx, userID, id)
}
func (f *fakeStore) ListBookmarks(ctx context.Context, userID string, flt database.BookmarkFilter, p database.Page) ([]models.Bookmark, int, error) {
	return f.listBookmarks(ctx, userID, flt, p)
}
func (f *fakeStore) UpdateBookmark(ctx context.Context, userID, id string, req models.UpdateBookmarkRequest) (*models.Bookmark, error) {
	return f.updateBookmark(ctx, userID, id, req)
}
func (f *fakeStore) DeleteBookmark(ctx context.Context, userID, id string) error {
	return f.deleteBookmark(ctx, userID, id)
}
func (f *fakeStore) SearchSuggestions(ctx context.Context, userID, query string, limit int) ([]string, error) {
	return f.suggestions(ctx, userID, query, limit)
}
func (f *fakeStore) GetStats(ctx context.Context, userID string) (*models.Stats, error) {
	return f.getStats(ctx, userID)
}

func (f *fakeStore) CreateTag(ctx context.Context, tag *models.Tag) error {
	return f.createTag(ctx, tag)
}
func (f *fakeStore) GetTag(ctx context.Context, userID, id string) (*models.Tag, error) {
	return f.getTag(ctx, userID, id)
}
func (f *fakeStore) GetOrCreateTag(ctx context.Context, userID, name string, aiGenerated bool) (*models.Tag, bool, error) {
	return f.getOrCreateTag(ctx, userID, name, aiGenerated)
}
func (f *fakeStore) ListTags(ctx context.Context, userID string) ([]models.TagWithCount, error) {
	return f.listTags(ctx, userID)
}
func (f *fakeStore) UpdateTag(ctx context.Context, userID, id, name string) (*models.Tag, error) {
	panic("UpdateTag not stubbed")
}
func (f *fakeStore) DeleteTag(ctx context.Context, userID, id string) (int, error) {
	panic("DeleteTag not stubbed")
}
func (f *fakeStore) BulkDeleteTags(ctx context.Context, userID string, tagIDs []string) (*models.DeleteReport, error) {
	return f.bulkDeleteTags(ctx, userID, tagIDs)
}
func (f *fakeStore) MergeTags(ctx context.Context, userID string, sourceTagIDs []string, targetTagID string) (*models.MergeReport, error) {
	return f.mergeTags(ctx, userID, sourceTagIDs, targetTagID)
}
func (f *fakeStore) PopularTags(ctx context.Context, userID string, limit int) ([]models.TagWithCount, error) {
	return f.popularTags(ctx, userID, limit)
}
func (f *fakeStore) UnusedTags(ctx context.Context, userID string) ([]models.Tag, error) {
	return f.unusedTags(ctx, userID)
}
func (f *fakeStore) TagDetails(ctx context.Context, userID, id string) (*models.TagDetails, error) {
	panic("TagDetails not stubbed")
}
func (f *fakeStore) ListBookmarksByTag(ctx context.Context, userID, tagID string, p database.Page) ([]models.Bookmark, int, error) {
	panic("ListBookmarksByTag not stubbed")
}

func (f *fakeStore) AddBookmarkTag(ctx context.Context, bookmarkID, tagID string) error {
	return f.addBookmarkTag(ctx, bookmarkID, tagID)
}
func (f *fakeStore) RemoveBookmarkTagByID(ctx context.Context, bookmarkID, tagID string) error {
	return f.removeTagByID(ctx, bookmarkID, tagID)
}
func (f *fakeStore) RemoveBookmarkTagByName(ctx context.Context, userID, bookmarkID, name string) error {
	return f.removeTagByName(ctx, userID, bookmarkID, name)
}

func (f *fakeStore) HealthCheck(ctx context.Context) error { return nil }
func (f *fakeStore) Close() error                          { return nil }

var _ database.Store = (*fakeStore)(nil)

// withUser attaches an authenticated user the way the auth middleware does.
func withUser(r *http.Request, userID string) *http.Request {
	user := &models.User{ID: userID, Email: userID + "@example.com"}
	return r.WithContext(context.WithValue(r.Context(), middleware.UserContextKey, user))
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chiRoute.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chiRoute.RouteCtxKey, rctx))
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) utils.APIResponse {
	t.Helper()
	var envelope utils.APIResponse
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return envelope
}

func newTestJWT() *utils.JWTService {
	return utils.NewJWTService("test-secret", time.Hour, 7*24*time.Hour)
}

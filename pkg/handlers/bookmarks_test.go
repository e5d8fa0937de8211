package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"bookmark-manager-backend/pkg/database"
	"bookmark-manager-backend/pkg/logger"
	"bookmark-manager-backend/pkg/models"
	"bookmark-manager-backend/pkg/services"
)

func newBookmarksHandler(store *fakeStore) *BookmarksHandler {
	return NewBookmarksHandler(store,
		services.NewMetadataFetcher(time.Second, logger.NewNop()),
		services.NewTagSuggester(services.TagSuggesterConfig{}, logger.NewNop()),
		logger.NewNop())
}

func TestCreateBookmarkScopedToUser(t *testing.T) {
	var gotUserID string
	store := &fakeStore{
		createBookmark: func(ctx context.Context, b *models.Bookmark, tagIDs []string) error {
			gotUserID = b.UserID
			b.ID = "bm-1"
			return nil
		},
	}
	h := newBookmarksHandler(store)

	body := `{"url": "https://example.com", "title": "Example"}`
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/bookmarks/", strings.NewReader(body)), "user-1")
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if gotUserID != "user-1" {
		t.Errorf("bookmark created for %q, want user-1", gotUserID)
	}
}

func TestCreateBookmarkRejectsInvalidURL(t *testing.T) {
	store := &fakeStore{
		createBookmark: func(ctx context.Context, b *models.Bookmark, tagIDs []string) error {
			return database.ErrInvalid
		},
	}
	h := newBookmarksHandler(store)

	body := `{"url": "not-a-url", "title": "Example"}`
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/bookmarks/", strings.NewReader(body)), "user-1")
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGetBookmarkCrossUserIs404(t *testing.T) {
	store := &fakeStore{
		getBookmark: func(ctx context.Context, userID, id string) (*models.Bookmark, error) {
			return nil, database.ErrNotFound
		},
	}
	h := newBookmarksHandler(store)

	req := withUser(httptest.NewRequest(http.MethodGet, "/api/bookmarks/bm-1/", nil), "intruder")
	req = withURLParam(req, "id", "bm-1")
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	envelope := decodeEnvelope(t, rec)
	if envelope.Success || envelope.Error == nil || envelope.Error.Code != "NOT_FOUND" {
		t.Errorf("envelope = %+v", envelope)
	}
}

func TestListBookmarksPassesFilterAndPage(t *testing.T) {
	var gotFilter database.BookmarkFilter
	var gotPage database.Page
	store := &fakeStore{
		listBookmarks: func(ctx context.Context, userID string, f database.BookmarkFilter, p database.Page) ([]models.Bookmark, int, error) {
			gotFilter, gotPage = f, p
			return []models.Bookmark{}, 0, nil
		},
	}
	h := newBookmarksHandler(store)

	req := withUser(httptest.NewRequest(http.MethodGet,
		"/api/bookmarks/?search=golang+web&is_favorite=true&ordering=-title&page=2&page_size=5&tag_name=dev&title_contains=go", nil), "user-1")
	rec := httptest.NewRecorder()
	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if gotFilter.Search != "golang web" {
		t.Errorf("search = %q", gotFilter.Search)
	}
	if gotFilter.IsFavorite == nil || !*gotFilter.IsFavorite {
		t.Error("is_favorite not parsed")
	}
	if gotFilter.Ordering != "-title" || gotFilter.TagName != "dev" || gotFilter.TitleContains != "go" {
		t.Errorf("filter = %+v", gotFilter)
	}
	if gotPage.Number != 2 || gotPage.Size != 5 {
		t.Errorf("page = %+v", gotPage)
	}
}

func TestListBookmarksRejectsBadDate(t *testing.T) {
	h := newBookmarksHandler(&fakeStore{})
	req := withUser(httptest.NewRequest(http.MethodGet, "/api/bookmarks/?created_after=tomorrow", nil), "user-1")
	rec := httptest.NewRecorder()
	h.List(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestFavoritesForcesFilter(t *testing.T) {
	var gotFilter database.BookmarkFilter
	store := &fakeStore{
		listBookmarks: func(ctx context.Context, userID string, f database.BookmarkFilter, p database.Page) ([]models.Bookmark, int, error) {
			gotFilter = f
			return []models.Bookmark{}, 0, nil
		},
	}
	h := newBookmarksHandler(store)

	// A contradictory query parameter must not override the route.
	req := withUser(httptest.NewRequest(http.MethodGet, "/api/bookmarks/favorites?is_favorite=false", nil), "user-1")
	rec := httptest.NewRecorder()
	h.Favorites(rec, req)

	if gotFilter.IsFavorite == nil || !*gotFilter.IsFavorite {
		t.Error("favorites route must pin is_favorite=true")
	}
}

func TestAddTagByNameCreatesAndAttaches(t *testing.T) {
	bookmark := &models.Bookmark{ID: "bm-1", UserID: "user-1", URL: "https://x.test", Title: "x", Tags: []models.Tag{}}
	var attached string
	store := &fakeStore{
		getBookmark: func(ctx context.Context, userID, id string) (*models.Bookmark, error) {
			return bookmark, nil
		},
		getOrCreateTag: func(ctx context.Context, userID, name string, aiGenerated bool) (*models.Tag, bool, error) {
			if name != "Golang" {
				t.Errorf("name = %q", name)
			}
			return &models.Tag{ID: "tag-1", UserID: userID, Name: "golang"}, true, nil
		},
		addBookmarkTag: func(ctx context.Context, bookmarkID, tagID string) error {
			attached = tagID
			return nil
		},
	}
	h := newBookmarksHandler(store)

	body := `{"tag_name": "Golang"}`
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/bookmarks/bm-1/add_tag", strings.NewReader(body)), "user-1")
	req = withURLParam(req, "id", "bm-1")
	rec := httptest.NewRecorder()
	h.AddTag(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if attached != "tag-1" {
		t.Errorf("attached tag = %q", attached)
	}
}

func TestAddTagDuplicateIsConflict(t *testing.T) {
	store := &fakeStore{
		getBookmark: func(ctx context.Context, userID, id string) (*models.Bookmark, error) {
			return &models.Bookmark{ID: "bm-1", UserID: userID}, nil
		},
		getTag: func(ctx context.Context, userID, id string) (*models.Tag, error) {
			return &models.Tag{ID: id, UserID: userID, Name: "golang"}, nil
		},
		addBookmarkTag: func(ctx context.Context, bookmarkID, tagID string) error {
			return database.ErrDuplicate
		},
	}
	h := newBookmarksHandler(store)

	body := `{"tag_id": "tag-1"}`
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/bookmarks/bm-1/add_tag", strings.NewReader(body)), "user-1")
	req = withURLParam(req, "id", "bm-1")
	rec := httptest.NewRecorder()
	h.AddTag(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestAddTagRejectsBothSelectors(t *testing.T) {
	store := &fakeStore{
		getBookmark: func(ctx context.Context, userID, id string) (*models.Bookmark, error) {
			return &models.Bookmark{ID: "bm-1", UserID: userID}, nil
		},
	}
	h := newBookmarksHandler(store)

	body := `{"tag_id": "tag-1", "tag_name": "golang"}`
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/bookmarks/bm-1/add_tag", strings.NewReader(body)), "user-1")
	req = withURLParam(req, "id", "bm-1")
	rec := httptest.NewRecorder()
	h.AddTag(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSearchSuggestionsShortQuery(t *testing.T) {
	for _, q := range []string{"", "a", " a "} {
		storeCalled := false
		store := &fakeStore{
			suggestions: func(ctx context.Context, userID, query string, limit int) ([]string, error) {
				storeCalled = true
				return []string{"should not appear"}, nil
			},
		}
		h := newBookmarksHandler(store)
		req := withUser(httptest.NewRequest(http.MethodGet, "/api/bookmarks/search_suggestions?q="+url.QueryEscape(q), nil), "user-1")
		rec := httptest.NewRecorder()
		h.SearchSuggestions(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("q=%q: status = %d", q, rec.Code)
		}
		if storeCalled {
			t.Errorf("q=%q: store queried for short input", q)
		}
		envelope := decodeEnvelope(t, rec)
		if list, ok := envelope.Data.([]interface{}); !ok || len(list) != 0 {
			t.Errorf("q=%q: data = %v, want empty list", q, envelope.Data)
		}
	}
}

func TestSuggestTagsDegradesToEmptyWhenDisabled(t *testing.T) {
	store := &fakeStore{
		getBookmark: func(ctx context.Context, userID, id string) (*models.Bookmark, error) {
			return &models.Bookmark{ID: "bm-1", UserID: userID, URL: "https://x.test", Title: "x"}, nil
		},
		listTags: func(ctx context.Context, userID string) ([]models.TagWithCount, error) {
			return []models.TagWithCount{}, nil
		},
	}
	h := newBookmarksHandler(store)

	req := withUser(httptest.NewRequest(http.MethodPost, "/api/bookmarks/bm-1/suggest_tags", nil), "user-1")
	req = withURLParam(req, "id", "bm-1")
	rec := httptest.NewRecorder()
	h.SuggestTags(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"suggested_tags":[]`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

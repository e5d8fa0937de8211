package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"bookmark-manager-backend/pkg/database"
	"bookmark-manager-backend/pkg/logger"
	"bookmark-manager-backend/pkg/models"
)

func TestCreateTagDuplicateIsConflict(t *testing.T) {
	store := &fakeStore{
		createTag: func(ctx context.Context, tag *models.Tag) error {
			return database.ErrDuplicate
		},
	}
	h := NewTagsHandler(store, logger.NewNop())

	body := `{"name": "golang"}`
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/tags/", strings.NewReader(body)), "user-1")
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestCreateTagValidation(t *testing.T) {
	h := NewTagsHandler(&fakeStore{}, logger.NewNop())

	req := withUser(httptest.NewRequest(http.MethodPost, "/api/tags/", strings.NewReader(`{}`)), "user-1")
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestBulkDeleteAllOrNothing(t *testing.T) {
	store := &fakeStore{
		bulkDeleteTags: func(ctx context.Context, userID string, tagIDs []string) (*models.DeleteReport, error) {
			// One id owned by someone else fails the whole batch.
			return nil, database.ErrNotFound
		},
	}
	h := NewTagsHandler(store, logger.NewNop())

	body := `{"tag_ids": ["tag-1", "tag-of-other-user"]}`
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/tags/bulk_delete", strings.NewReader(body)), "user-1")
	rec := httptest.NewRecorder()
	h.BulkDelete(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestBulkDeleteReport(t *testing.T) {
	store := &fakeStore{
		bulkDeleteTags: func(ctx context.Context, userID string, tagIDs []string) (*models.DeleteReport, error) {
			return &models.DeleteReport{TagsDeleted: 2, AssociationsRemoved: 7}, nil
		},
	}
	h := NewTagsHandler(store, logger.NewNop())

	body := `{"tag_ids": ["tag-1", "tag-2"]}`
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/tags/bulk_delete", strings.NewReader(body)), "user-1")
	rec := httptest.NewRecorder()
	h.BulkDelete(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"tags_deleted":2`) ||
		!strings.Contains(rec.Body.String(), `"associations_removed":7`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestBulkDeleteRequiresIDs(t *testing.T) {
	h := NewTagsHandler(&fakeStore{}, logger.NewNop())
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/tags/bulk_delete", strings.NewReader(`{"tag_ids": []}`)), "user-1")
	rec := httptest.NewRecorder()
	h.BulkDelete(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestMergePassesThrough(t *testing.T) {
	var gotSources []string
	var gotTarget string
	store := &fakeStore{
		mergeTags: func(ctx context.Context, userID string, sourceTagIDs []string, targetTagID string) (*models.MergeReport, error) {
			gotSources, gotTarget = sourceTagIDs, targetTagID
			return &models.MergeReport{TagsRemoved: 2, AssociationsCreated: 3}, nil
		},
	}
	h := NewTagsHandler(store, logger.NewNop())

	body := `{"source_tag_ids": ["a", "b"], "target_tag_id": "c"}`
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/tags/merge", strings.NewReader(body)), "user-1")
	rec := httptest.NewRecorder()
	h.Merge(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !reflect.DeepEqual(gotSources, []string{"a", "b"}) || gotTarget != "c" {
		t.Errorf("merge called with %v -> %q", gotSources, gotTarget)
	}
}

func TestPopularClampsLimit(t *testing.T) {
	var gotLimit int
	store := &fakeStore{
		popularTags: func(ctx context.Context, userID string, limit int) ([]models.TagWithCount, error) {
			gotLimit = limit
			return []models.TagWithCount{}, nil
		},
	}
	h := NewTagsHandler(store, logger.NewNop())

	req := withUser(httptest.NewRequest(http.MethodGet, "/api/tags/popular?limit=10000", nil), "user-1")
	rec := httptest.NewRecorder()
	h.Popular(rec, req)

	if gotLimit != 10 {
		t.Errorf("limit = %d, want clamp to 10", gotLimit)
	}
}

func TestUnusedTags(t *testing.T) {
	store := &fakeStore{
		unusedTags: func(ctx context.Context, userID string) ([]models.Tag, error) {
			return []models.Tag{{ID: "tag-1", Name: "orphan"}}, nil
		},
	}
	h := NewTagsHandler(store, logger.NewNop())

	req := withUser(httptest.NewRequest(http.MethodGet, "/api/tags/unused", nil), "user-1")
	rec := httptest.NewRecorder()
	h.Unused(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"orphan"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestTagEndpointsRequireAuth(t *testing.T) {
	h := NewTagsHandler(&fakeStore{}, logger.NewNop())
	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/tags/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

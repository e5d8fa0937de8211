package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	chiRoute "github.com/go-chi/chi/v5"

	"bookmark-manager-backend/pkg/database"
	"bookmark-manager-backend/pkg/logger"
	"bookmark-manager-backend/pkg/middleware"
	"bookmark-manager-backend/pkg/models"
	"bookmark-manager-backend/pkg/services"
	"bookmark-manager-backend/pkg/utils"
)

type BookmarksHandler struct {
	db        database.Store
	metadata  *services.MetadataFetcher
	suggester *services.TagSuggester
	log       logger.Logger
}

func NewBookmarksHandler(db database.Store, metadata *services.MetadataFetcher, suggester *services.TagSuggester, log logger.Logger) *BookmarksHandler {
	return &BookmarksHandler{db: db, metadata: metadata, suggester: suggester, log: log}
}

// GET /api/bookmarks
func (h *BookmarksHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}

	filter, err := parseBookmarkFilter(r)
	if err != nil {
		utils.WriteBadRequestResponse(w, err.Error())
		return
	}
	page := parsePage(r)

	bookmarks, total, err := h.db.ListBookmarks(r.Context(), user.ID, filter, page)
	if err != nil {
		writeStoreError(w, err, "Bookmark not found")
		return
	}
	limit, _ := page.LimitOffset()
	utils.WritePaginatedResponse(w, bookmarks, page.Number, limit, total)
}

// POST /api/bookmarks
func (h *BookmarksHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}

	var req models.CreateBookmarkRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid JSON body")
		return
	}
	if !checkRequest(w, &req) {
		return
	}

	bookmark := &models.Bookmark{
		UserID:      user.ID,
		URL:         req.URL,
		Title:       req.Title,
		Description: req.Description,
		Notes:       req.Notes,
		FaviconURL:  req.FaviconURL,
		IsFavorite:  req.IsFavorite,
		IsPinned:    req.IsPinned,
	}
	if err := h.db.CreateBookmark(r.Context(), bookmark, req.TagIDs); err != nil {
		writeStoreError(w, err, "Tag not found")
		return
	}
	utils.WriteCreatedResponse(w, bookmark)
}

// GET /api/bookmarks/{id}
func (h *BookmarksHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	bookmark, err := h.db.GetBookmark(r.Context(), user.ID, chiRoute.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err, "Bookmark not found")
		return
	}
	utils.WriteSuccessResponse(w, bookmark)
}

// PUT/PATCH /api/bookmarks/{id}
func (h *BookmarksHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}

	var req models.UpdateBookmarkRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid JSON body")
		return
	}
	if !checkRequest(w, &req) {
		return
	}

	bookmark, err := h.db.UpdateBookmark(r.Context(), user.ID, chiRoute.URLParam(r, "id"), req)
	if err != nil {
		writeStoreError(w, err, "Bookmark not found")
		return
	}
	utils.WriteSuccessResponse(w, bookmark)
}

// DELETE /api/bookmarks/{id}
func (h *BookmarksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	if err := h.db.DeleteBookmark(r.Context(), user.ID, chiRoute.URLParam(r, "id")); err != nil {
		writeStoreError(w, err, "Bookmark not found")
		return
	}
	utils.WriteNoContentResponse(w)
}

// GET /api/bookmarks/favorites
func (h *BookmarksHandler) Favorites(w http.ResponseWriter, r *http.Request) {
	h.listFixed(w, r, func(f *database.BookmarkFilter) {
		yes := true
		f.IsFavorite = &yes
	})
}

// GET /api/bookmarks/pinned
func (h *BookmarksHandler) Pinned(w http.ResponseWriter, r *http.Request) {
	h.listFixed(w, r, func(f *database.BookmarkFilter) {
		yes := true
		f.IsPinned = &yes
	})
}

func (h *BookmarksHandler) listFixed(w http.ResponseWriter, r *http.Request, apply func(*database.BookmarkFilter)) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	filter, err := parseBookmarkFilter(r)
	if err != nil {
		utils.WriteBadRequestResponse(w, err.Error())
		return
	}
	apply(&filter)
	page := parsePage(r)

	bookmarks, total, err := h.db.ListBookmarks(r.Context(), user.ID, filter, page)
	if err != nil {
		writeStoreError(w, err, "Bookmark not found")
		return
	}
	limit, _ := page.LimitOffset()
	utils.WritePaginatedResponse(w, bookmarks, page.Number, limit, total)
}

// GET /api/bookmarks/search_suggestions?q=
func (h *BookmarksHandler) SearchSuggestions(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if len([]rune(query)) < 2 {
		utils.WriteSuccessResponse(w, []string{})
		return
	}
	titles, err := h.db.SearchSuggestions(r.Context(), user.ID, query, 10)
	if err != nil {
		writeStoreError(w, err, "Bookmark not found")
		return
	}
	utils.WriteSuccessResponse(w, titles)
}

// GET /api/bookmarks/stats
func (h *BookmarksHandler) Stats(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	stats, err := h.db.GetStats(r.Context(), user.ID)
	if err != nil {
		writeStoreError(w, err, "Stats unavailable")
		return
	}
	utils.WriteSuccessResponse(w, stats)
}

// POST /api/bookmarks/fetch_metadata
func (h *BookmarksHandler) FetchMetadata(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.RequireUser(w, r); !ok {
		return
	}
	var req struct {
		URL string `json:"url" validate:"required"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid JSON body")
		return
	}
	if !checkRequest(w, &req) {
		return
	}
	// The fetch itself fails soft; the endpoint always returns 200.
	utils.WriteSuccessResponse(w, h.metadata.Fetch(r.Context(), req.URL))
}

// POST /api/bookmarks/{id}/add_tag
func (h *BookmarksHandler) AddTag(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	bookmark, err := h.db.GetBookmark(r.Context(), user.ID, chiRoute.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err, "Bookmark not found")
		return
	}

	var req models.TagRefRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid JSON body")
		return
	}

	var tag *models.Tag
	switch {
	case req.TagID != "" && req.TagName != "":
		utils.WriteBadRequestResponse(w, "Provide tag_id or tag_name, not both")
		return
	case req.TagID != "":
		tag, err = h.db.GetTag(r.Context(), user.ID, req.TagID)
		if err != nil {
			writeStoreError(w, err, "Tag not found")
			return
		}
	case req.TagName != "":
		tag, _, err = h.db.GetOrCreateTag(r.Context(), user.ID, req.TagName, false)
		if err != nil {
			writeStoreError(w, err, "Tag not found")
			return
		}
	default:
		utils.WriteBadRequestResponse(w, "tag_id or tag_name is required")
		return
	}

	if err := h.db.AddBookmarkTag(r.Context(), bookmark.ID, tag.ID); err != nil {
		if database.IsDuplicate(err) {
			utils.WriteConflictResponse(w, "Bookmark already has this tag")
			return
		}
		writeStoreError(w, err, "Tag not found")
		return
	}

	updated, err := h.db.GetBookmark(r.Context(), user.ID, bookmark.ID)
	if err != nil {
		writeStoreError(w, err, "Bookmark not found")
		return
	}
	utils.WriteSuccessResponse(w, updated)
}

// POST /api/bookmarks/{id}/remove_tag
func (h *BookmarksHandler) RemoveTag(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	bookmark, err := h.db.GetBookmark(r.Context(), user.ID, chiRoute.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err, "Bookmark not found")
		return
	}

	var req models.TagRefRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid JSON body")
		return
	}

	switch {
	case req.TagID != "" && req.TagName != "":
		utils.WriteBadRequestResponse(w, "Provide tag_id or tag_name, not both")
		return
	case req.TagID != "":
		err = h.db.RemoveBookmarkTagByID(r.Context(), bookmark.ID, req.TagID)
	case req.TagName != "":
		err = h.db.RemoveBookmarkTagByName(r.Context(), user.ID, bookmark.ID, req.TagName)
	default:
		utils.WriteBadRequestResponse(w, "tag_id or tag_name is required")
		return
	}
	if err != nil {
		writeStoreError(w, err, "Bookmark does not have this tag")
		return
	}

	updated, err := h.db.GetBookmark(r.Context(), user.ID, bookmark.ID)
	if err != nil {
		writeStoreError(w, err, "Bookmark not found")
		return
	}
	utils.WriteSuccessResponse(w, updated)
}

// POST /api/bookmarks/{id}/suggest_tags
func (h *BookmarksHandler) SuggestTags(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	bookmark, err := h.db.GetBookmark(r.Context(), user.ID, chiRoute.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err, "Bookmark not found")
		return
	}

	existing, err := h.db.ListTags(r.Context(), user.ID)
	if err != nil {
		writeStoreError(w, err, "Tag not found")
		return
	}
	names := make([]string, 0, len(existing))
	for _, t := range existing {
		names = append(names, t.Name)
	}

	suggestions, err := h.suggester.Suggest(r.Context(), bookmark, names)
	if err != nil {
		if services.IsRateLimited(err) {
			utils.WriteErrorResponseWithCode(w, http.StatusTooManyRequests,
				"RATE_LIMITED", "Tag suggestion rate limit reached, try again later", "")
			return
		}
		// Suggestion failures degrade to an empty list.
		h.log.Warn("tag suggestion failed",
			logger.String("bookmark_id", bookmark.ID), logger.Error(err))
		suggestions = []string{}
	}
	utils.WriteSuccessResponse(w, map[string][]string{"suggested_tags": suggestions})
}

// parseBookmarkFilter reads the supported query parameters into a filter.
// Unknown parameters are ignored; malformed dates and booleans are errors.
func parseBookmarkFilter(r *http.Request) (database.BookmarkFilter, error) {
	var f database.BookmarkFilter
	q := r.URL.Query()

	for key, dst := range map[string]**time.Time{
		"created_after":  &f.CreatedAfter,
		"created_before": &f.CreatedBefore,
		"updated_after":  &f.UpdatedAfter,
		"updated_before": &f.UpdatedBefore,
	} {
		value := q.Get(key)
		if value == "" {
			continue
		}
		t, err := parseTimeParam(value)
		if err != nil {
			return f, err
		}
		*dst = &t
	}

	f.TitleContains = q.Get("title_contains")
	f.URLContains = q.Get("url_contains")
	f.DescriptionContains = q.Get("description_contains")
	f.NotesContains = q.Get("notes_contains")
	f.Search = q.Get("search")
	f.TagID = q.Get("tag_id")
	f.TagName = q.Get("tag_name")
	f.Ordering = q.Get("ordering")

	for key, dst := range map[string]**bool{
		"has_tags":    &f.HasTags,
		"is_favorite": &f.IsFavorite,
		"is_pinned":   &f.IsPinned,
	} {
		value := q.Get(key)
		if value == "" {
			continue
		}
		b, err := strconv.ParseBool(value)
		if err != nil {
			return f, fmt.Errorf("invalid boolean for %s: %q", key, value)
		}
		*dst = &b
	}
	return f, nil
}

func parseTimeParam(value string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q: use RFC3339 or YYYY-MM-DD", value)
}

func parsePage(r *http.Request) database.Page {
	return database.Page{
		Number: utils.GetQueryInt(r, "page", 1),
		Size:   utils.GetQueryInt(r, "page_size", 0),
	}
}

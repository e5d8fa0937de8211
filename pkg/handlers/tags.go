package handlers

import (
	"net/http"

	chiRoute "github.com/go-chi/chi/v5"

	"bookmark-manager-backend/pkg/database"
	"bookmark-manager-backend/pkg/logger"
	"bookmark-manager-backend/pkg/middleware"
	"bookmark-manager-backend/pkg/models"
	"bookmark-manager-backend/pkg/utils"
)

type TagsHandler struct {
	db  database.Store
	log logger.Logger
}

func NewTagsHandler(db database.Store, log logger.Logger) *TagsHandler {
	return &TagsHandler{db: db, log: log}
}

// GET /api/tags
func (h *TagsHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	tags, err := h.db.ListTags(r.Context(), user.ID)
	if err != nil {
		writeStoreError(w, err, "Tag not found")
		return
	}
	if utils.GetQueryParam(r, "include_count", "true") == "false" {
		plain := make([]models.Tag, 0, len(tags))
		for _, t := range tags {
			plain = append(plain, t.Tag)
		}
		utils.WriteSuccessResponse(w, plain)
		return
	}
	utils.WriteSuccessResponse(w, tags)
}

// POST /api/tags
func (h *TagsHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	var req models.CreateTagRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid JSON body")
		return
	}
	if !checkRequest(w, &req) {
		return
	}

	tag := &models.Tag{
		UserID:        user.ID,
		Name:          req.Name,
		IsAIGenerated: req.IsAIGenerated,
	}
	if err := h.db.CreateTag(r.Context(), tag); err != nil {
		if database.IsDuplicate(err) {
			utils.WriteConflictResponse(w, "A tag with this name already exists")
			return
		}
		writeStoreError(w, err, "Tag not found")
		return
	}
	utils.WriteCreatedResponse(w, tag)
}

// GET /api/tags/{id}
func (h *TagsHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	tag, err := h.db.GetTag(r.Context(), user.ID, chiRoute.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err, "Tag not found")
		return
	}
	utils.WriteSuccessResponse(w, tag)
}

// PUT/PATCH /api/tags/{id}
func (h *TagsHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	var req models.UpdateTagRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid JSON body")
		return
	}
	if !checkRequest(w, &req) {
		return
	}

	tag, err := h.db.UpdateTag(r.Context(), user.ID, chiRoute.URLParam(r, "id"), req.Name)
	if err != nil {
		if database.IsDuplicate(err) {
			utils.WriteConflictResponse(w, "A tag with this name already exists")
			return
		}
		writeStoreError(w, err, "Tag not found")
		return
	}
	utils.WriteSuccessResponse(w, tag)
}

// DELETE /api/tags/{id}
func (h *TagsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	removed, err := h.db.DeleteTag(r.Context(), user.ID, chiRoute.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err, "Tag not found")
		return
	}
	h.log.Info("tag deleted",
		logger.String("user_id", user.ID),
		logger.Int("associations_removed", removed))
	utils.WriteNoContentResponse(w)
}

// POST /api/tags/bulk_delete
func (h *TagsHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	var req models.BulkDeleteRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid JSON body")
		return
	}
	if !checkRequest(w, &req) {
		return
	}

	report, err := h.db.BulkDeleteTags(r.Context(), user.ID, req.TagIDs)
	if err != nil {
		writeStoreError(w, err, "One or more tags not found")
		return
	}
	utils.WriteSuccessResponse(w, report)
}

// POST /api/tags/merge
func (h *TagsHandler) Merge(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	var req models.MergeRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid JSON body")
		return
	}
	if !checkRequest(w, &req) {
		return
	}

	report, err := h.db.MergeTags(r.Context(), user.ID, req.SourceTagIDs, req.TargetTagID)
	if err != nil {
		writeStoreError(w, err, "One or more tags not found")
		return
	}
	utils.WriteSuccessResponse(w, report)
}

// GET /api/tags/popular?limit=
func (h *TagsHandler) Popular(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	limit := utils.GetQueryInt(r, "limit", 10)
	if limit < 1 || limit > 100 {
		limit = 10
	}
	tags, err := h.db.PopularTags(r.Context(), user.ID, limit)
	if err != nil {
		writeStoreError(w, err, "Tag not found")
		return
	}
	utils.WriteSuccessResponse(w, tags)
}

// GET /api/tags/unused
func (h *TagsHandler) Unused(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	tags, err := h.db.UnusedTags(r.Context(), user.ID)
	if err != nil {
		writeStoreError(w, err, "Tag not found")
		return
	}
	utils.WriteSuccessResponse(w, tags)
}

// GET /api/tags/{id}/details
func (h *TagsHandler) Details(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	details, err := h.db.TagDetails(r.Context(), user.ID, chiRoute.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err, "Tag not found")
		return
	}
	utils.WriteSuccessResponse(w, details)
}

// GET /api/tags/{id}/bookmarks
func (h *TagsHandler) Bookmarks(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.RequireUser(w, r)
	if !ok {
		return
	}
	page := parsePage(r)
	bookmarks, total, err := h.db.ListBookmarksByTag(r.Context(), user.ID, chiRoute.URLParam(r, "id"), page)
	if err != nil {
		writeStoreError(w, err, "Tag not found")
		return
	}
	limit, _ := page.LimitOffset()
	utils.WritePaginatedResponse(w, bookmarks, page.Number, limit, total)
}

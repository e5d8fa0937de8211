package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"bookmark-manager-backend/pkg/config"
	"bookmark-manager-backend/pkg/database"
	"bookmark-manager-backend/pkg/handlers"
	"bookmark-manager-backend/pkg/logger"
	customMiddleware "bookmark-manager-backend/pkg/middleware"
	"bookmark-manager-backend/pkg/utils"
)

// Deps carries the constructed handlers and shared infrastructure.
type Deps struct {
	Config    *config.Config
	Log       logger.Logger
	DB        database.Store
	Auth      *handlers.AuthHandler
	Bookmarks *handlers.BookmarksHandler
	Tags      *handlers.TagsHandler
	JWT       *utils.JWTService
}

// New builds the HTTP route table.
func New(d Deps) http.Handler {
	router := chi.NewRouter()

	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(customMiddleware.Logging(d.Log))
	router.Use(customMiddleware.Recovery(d.Config, d.Log))
	router.Use(customMiddleware.CORS(d.Config))
	router.Use(chimw.Timeout(60 * time.Second))
	router.Use(chimw.Compress(5))

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteNotFoundResponse(w, "Endpoint not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteErrorResponseWithCode(w, http.StatusMethodNotAllowed,
			"METHOD_NOT_ALLOWED", "Method not allowed", "")
	})

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := d.DB.HealthCheck(r.Context()); err != nil {
			utils.WriteErrorResponseWithCode(w, http.StatusServiceUnavailable,
				"UNHEALTHY", "Database unreachable", "")
			return
		}
		utils.WriteSuccessResponse(w, map[string]string{"status": "ok"})
	})

	router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", d.Auth.Register)
			r.Post("/login", d.Auth.Login)
			r.Post("/token/refresh", d.Auth.Refresh)
			r.Post("/logout", d.Auth.Logout)

			r.Group(func(r chi.Router) {
				r.Use(customMiddleware.AuthMiddleware(d.JWT))
				r.Get("/me", d.Auth.Me)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.AuthMiddleware(d.JWT))

			r.Route("/bookmarks", func(r chi.Router) {
				r.Get("/", d.Bookmarks.List)
				r.Post("/", d.Bookmarks.Create)
				r.Get("/favorites", d.Bookmarks.Favorites)
				r.Get("/pinned", d.Bookmarks.Pinned)
				r.Get("/search_suggestions", d.Bookmarks.SearchSuggestions)
				r.Get("/stats", d.Bookmarks.Stats)
				r.Post("/fetch_metadata", d.Bookmarks.FetchMetadata)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", d.Bookmarks.Get)
					r.Put("/", d.Bookmarks.Update)
					r.Patch("/", d.Bookmarks.Update)
					r.Delete("/", d.Bookmarks.Delete)
					r.Post("/add_tag", d.Bookmarks.AddTag)
					r.Post("/remove_tag", d.Bookmarks.RemoveTag)
					r.Post("/suggest_tags", d.Bookmarks.SuggestTags)
				})
			})

			r.Route("/tags", func(r chi.Router) {
				r.Get("/", d.Tags.List)
				r.Post("/", d.Tags.Create)
				r.Get("/popular", d.Tags.Popular)
				r.Get("/unused", d.Tags.Unused)
				r.Post("/bulk_delete", d.Tags.BulkDelete)
				r.Post("/merge", d.Tags.Merge)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", d.Tags.Get)
					r.Put("/", d.Tags.Update)
					r.Patch("/", d.Tags.Update)
					r.Delete("/", d.Tags.Delete)
					r.Get("/details", d.Tags.Details)
					r.Get("/bookmarks", d.Tags.Bookmarks)
				})
			})
		})
	})

	return router
}

package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"bookmark-manager-backend/pkg/config"
	"bookmark-manager-backend/pkg/logger"
	"bookmark-manager-backend/pkg/utils"
)

// Recovery converts panics into 500 responses. Stack traces are only
// echoed to the client in development.
func Recovery(cfg *config.Config, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					stack := debug.Stack()
					log.Error("panic recovered",
						logger.String("path", r.URL.Path),
						logger.String("panic", fmt.Sprint(err)))

					if cfg.IsDevelopment() {
						utils.WriteErrorResponseWithCode(w, http.StatusInternalServerError,
							"INTERNAL_SERVER_ERROR",
							fmt.Sprintf("Internal server error: %v", err),
							string(stack))
						return
					}
					utils.WriteInternalServerErrorResponse(w, "Internal server error occurred")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

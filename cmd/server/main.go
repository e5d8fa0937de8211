package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookmark-manager-backend/pkg/cache"
	"bookmark-manager-backend/pkg/config"
	"bookmark-manager-backend/pkg/database"
	"bookmark-manager-backend/pkg/handlers"
	"bookmark-manager-backend/pkg/logger"
	"bookmark-manager-backend/pkg/router"
	"bookmark-manager-backend/pkg/services"
	"bookmark-manager-backend/pkg/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(logLevel(cfg), cfg.IsDevelopment())
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", logger.Error(err))
	}

	db, err := database.NewPostgresStore(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("database connection failed", logger.Error(err))
	}
	defer db.Close()
	log.Info("connected to postgres")

	var denylist *cache.TokenDenylist
	if cfg.RedisURL != "" {
		denylist, err = cache.NewTokenDenylist(cfg.RedisURL, log)
		if err != nil {
			log.Fatal("redis connection failed", logger.Error(err))
		}
		defer denylist.Close()
	} else {
		log.Warn("REDIS_URL not set, refresh token revocation disabled")
	}

	jwtService := utils.NewJWTService(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	metadataFetcher := services.NewMetadataFetcher(cfg.MetadataTimeout, log)
	tagSuggester := services.NewTagSuggester(services.TagSuggesterConfig{
		APIURL:        cfg.TaggingAPIURL,
		APIKey:        cfg.TaggingAPIKey,
		Model:         cfg.TaggingModel,
		RatePerMinute: cfg.TaggingRatePerMinute,
	}, log)

	handler := router.New(router.Deps{
		Config:    cfg,
		Log:       log,
		DB:        db,
		Auth:      handlers.NewAuthHandler(db, jwtService, denylist, log),
		Bookmarks: handlers.NewBookmarksHandler(db, metadataFetcher, tagSuggester, log),
		Tags:      handlers.NewTagsHandler(db, log),
		JWT:       jwtService,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info("server listening", logger.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", logger.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", logger.Error(err))
	}
}

func logLevel(cfg *config.Config) string {
	if cfg.Debug {
		return "debug"
	}
	return "info"
}

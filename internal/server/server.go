package server

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/someoneonearthwholovestg/el-monitorro/internal/database"
	"github.com/someoneonearthwholovestg/el-monitorro/internal/server/api"
	"github.com/someoneonearthwholovestg/el-monitorro/internal/server/storage"
)

const shutdownTimeout = 30 * time.Second

// apiKeyMiddleware checks for the X-API-Key header and validates it against the provided key.
// If key is empty, it allows all requests.
func apiKeyMiddleware(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			reqAPIKey := r.Header.Get("X-API-Key")
			if reqAPIKey == "" {
				http.Error(w, "API key required", http.StatusUnauthorized)
				return
			}
			if reqAPIKey != apiKey {
				http.Error(w, "Invalid API key", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// NewHandler builds the API routes wrapped in request logging and, when
// apiKey is set, key authentication.
func NewHandler(db *database.DB, logger zerolog.Logger, apiKey string) http.Handler {
	feedItemsHandler := api.NewFeedItemsHandler(storage.NewRepository(db))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/feed-items", feedItemsHandler.GetFeedItems)
	mux.HandleFunc("GET /v1/feeds", exportFeedsHandler(db))
	mux.HandleFunc("GET /health", healthCheckHandler(db))

	h := hlog.NewHandler(logger)(mux)
	h = hlog.RemoteAddrHandler("remote_addr")(h)
	h = hlog.UserAgentHandler("user_agent")(h)
	h = hlog.RequestIDHandler("req_id", "Request-Id")(h)
	h = hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("HTTP Request")
	})(h)

	if apiKey != "" {
		h = apiKeyMiddleware(apiKey)(h)
		logger.Info().Msg("API key authentication enabled")
	} else {
		logger.Info().Msg("API key authentication disabled")
	}

	return h
}

// RunServer serves the API on listenAddr until ctx is done, then shuts down
// gracefully.
func RunServer(ctx context.Context, db *database.DB, listenAddr string, logger zerolog.Logger, apiKey string) error {
	logger = logger.With().Str("service", "feed-api-readonly").Logger()

	httpServer := &http.Server{
		Addr:              listenAddr,
		Handler:           NewHandler(db, logger, apiKey),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("address", listenAddr).Msg("API Server starting")
		err := httpServer.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err

	case <-ctx.Done():
		logger.Info().Msg("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("HTTP server shutdown error")
			if err := httpServer.Close(); err != nil {
				logger.Error().Err(err).Msg("HTTP server force close error")
			}
		} else {
			logger.Info().Msg("HTTP server shutdown complete")
		}
		if err := <-serverErr; err != nil {
			logger.Error().Err(err).Msg("ListenAndServe error during shutdown")
		}
	}

	return nil
}

// healthCheckHandler reports 200 when the database answers a ping and 503
// otherwise.
func healthCheckHandler(db *database.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := hlog.FromRequest(r)

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "text/plain")
		if err := db.PingContext(ctx); err != nil {
			log.Error().Err(err).Msg("Health check database ping failed")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("database unavailable"))
			return
		}

		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("Error writing health check response")
		}
	}
}

// exportFeedsHandler returns a handler function that exports all feeds as a CSV file
func exportFeedsHandler(db *database.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := hlog.FromRequest(r)

		rows, err := db.QueryContext(r.Context(), `
			SELECT id, url, title, comments, language, status, failures_count
			FROM feeds
			WHERE deleted_at IS NULL
			ORDER BY id ASC
		`)
		if err != nil {
			log.Error().Err(err).Msg("Failed to query feeds")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		defer rows.Close()

		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", "attachment; filename=feeds.csv")

		csvWriter := csv.NewWriter(w)
		if err := csvWriter.Write([]string{"id", "url", "title", "comments", "language", "status", "failures_count"}); err != nil {
			log.Error().Err(err).Msg("Failed to write CSV header")
			return
		}

		var count int
		for rows.Next() {
			var (
				id             int64
				url, title     string
				comments, lang sql.NullString
				status         string
				failuresCount  int
			)
			if err := rows.Scan(&id, &url, &title, &comments, &lang, &status, &failuresCount); err != nil {
				log.Error().Err(err).Msg("Failed to scan feed row")
				continue
			}

			record := []string{
				strconv.FormatInt(id, 10),
				url,
				title,
				comments.String,
				lang.String,
				status,
				strconv.Itoa(failuresCount),
			}
			if err := csvWriter.Write(record); err != nil {
				log.Error().Err(err).Msg("Failed to write CSV record")
				return
			}
			count++
		}

		if err := rows.Err(); err != nil {
			log.Error().Err(err).Msg("Error iterating feed rows")
			return
		}

		csvWriter.Flush()
		if err := csvWriter.Error(); err != nil {
			log.Error().Err(err).Msg("Error flushing CSV data")
			return
		}

		log.Info().Int("feed_count", count).Msg("Exported feeds as CSV")
	}
}

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tracksvc/config"
	"tracksvc/db"
	"tracksvc/logger"
	"tracksvc/repository"
	"tracksvc/seed"

	"github.com/gorilla/mux"
)

// NewRouter registers the track routes on a gorilla/mux router. Routes match
// the encoded path so an escaped slash stays inside its segment, e.g.
// /tracks/artist/AC%2FDC; handlers unescape the vars themselves.
func NewRouter(h *TrackHandler) *mux.Router {
	router := mux.NewRouter().UseEncodedPath()

	router.Handle("/seed_db", resultHandler(h.SeedDB)).Methods(http.MethodGet)
	router.Handle("/tracks", resultHandler(h.GetTracks)).Methods(http.MethodGet)
	router.Handle("/tracks/details/{id}", resultHandler(h.GetTrackByID)).Methods(http.MethodGet)
	router.Handle("/tracks/artist/{artist}", resultHandler(h.GetTracksByArtist)).Methods(http.MethodGet)
	router.Handle("/tracks/sort/release_year", resultHandler(h.SortByReleaseYear)).Methods(http.MethodGet)

	return router
}

// NewHandler wraps the router with the middleware chain. The chain sits
// outside the router so that unmatched requests and CORS preflights pass
// through it too.
func NewHandler(h *TrackHandler) http.Handler {
	return requestIDMiddleware(
		accessLogMiddleware(
			recoverMiddleware(
				corsMiddleware(NewRouter(h)))))
}

// Start wires the store, seed loader and routes from cfg and serves until
// SIGINT or SIGTERM.
func Start(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb, err := db.Connect(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(gdb); err != nil {
			logger.Warn("failed to close database", logger.ErrorField(err))
		}
	}()

	locker, closeLocker, err := seed.NewLocker(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeLocker()

	repo := repository.NewGormTrackRepository(gdb)
	loader := seed.NewLoader(repo, locker, seed.DatasetFor(cfg))

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      NewHandler(NewTrackHandler(repo, loader)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return Serve(ctx, srv)
}

// Serve runs srv until ctx is done, then shuts it down gracefully.
func Serve(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server is running", logger.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, failed := <-errCh:
		if failed {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}

package server

import (
	"context"
	"net/http"
	"net/url"

	"tracksvc/logger"
	"tracksvc/query"
	"tracksvc/repository"

	"github.com/gorilla/mux"
)

// Seeder resets the store to the seed dataset.
type Seeder interface {
	Seed(ctx context.Context) (int, error)
}

// TrackHandler serves the track routes.
type TrackHandler struct {
	repo   repository.TrackRepository
	seeder Seeder
}

// NewTrackHandler creates a TrackHandler.
func NewTrackHandler(repo repository.TrackRepository, seeder Seeder) *TrackHandler {
	return &TrackHandler{repo: repo, seeder: seeder}
}

// SeedDB handles GET /seed_db. It is destructive: all tracks are replaced.
func (h *TrackHandler) SeedDB(r *http.Request) Result {
	n, err := h.seeder.Seed(r.Context())
	if err != nil {
		logger.Error("Failed to seed database", logger.ErrorField(err))
		return failure("Error seeding the data", err)
	}
	logger.Info("Seeded database", logger.Int("count", n))
	return ok(messageBody{Message: "Database seeding successful."})
}

// GetTracks handles GET /tracks.
func (h *TrackHandler) GetTracks(r *http.Request) Result {
	tracks, err := h.repo.FindAll(r.Context(), query.Criteria{})
	if err != nil {
		logger.Error("Failed to fetch tracks", logger.ErrorField(err))
		return failure("Error fetching tracks", err)
	}
	if len(tracks) == 0 {
		return notFoundMessage("No tracks found.")
	}
	return ok(tracksBody{Tracks: tracks})
}

// GetTrackByID handles GET /tracks/details/{id}. An id that does not parse
// as an integer cannot match any track and is answered like a missing one.
func (h *TrackHandler) GetTrackByID(r *http.Request) Result {
	raw, err := pathVar(r, "id")
	if err != nil {
		logger.Debug("Malformed track id", logger.ErrorField(err))
		return notFoundError("Track not found.")
	}
	id, valid := query.ParseID(raw)
	if !valid {
		logger.Debug("Non-numeric track id", logger.String("id", raw))
		return notFoundError("Track not found.")
	}

	track, err := h.repo.FindOne(r.Context(), query.Eq(query.FieldID, id))
	if err != nil {
		logger.Error("Failed to fetch track",
			logger.Int64("trackId", id),
			logger.ErrorField(err),
		)
		return failure("Error fetching a track by Id", err)
	}
	if track == nil {
		return notFoundError("Track not found.")
	}
	return ok(trackBody{Track: track})
}

// GetTracksByArtist handles GET /tracks/artist/{artist}. Matching is exact.
func (h *TrackHandler) GetTracksByArtist(r *http.Request) Result {
	artist, err := pathVar(r, "artist")
	if err != nil {
		logger.Debug("Malformed artist", logger.ErrorField(err))
		return notFoundMessage("Track not found.")
	}

	tracks, err := h.repo.FindAll(r.Context(), query.Eq(query.FieldArtist, artist))
	if err != nil {
		logger.Error("Failed to fetch tracks by artist",
			logger.String("artist", artist),
			logger.ErrorField(err),
		)
		return failure("Error fetching track by an artist", err)
	}
	if len(tracks) == 0 {
		return notFoundMessage("Track not found.")
	}
	return ok(tracksBody{Tracks: tracks})
}

// pathVar returns the unescaped route variable name.
func pathVar(r *http.Request, name string) (string, error) {
	return url.PathUnescape(mux.Vars(r)[name])
}

// SortByReleaseYear handles GET /tracks/sort/release_year?order=ASC|DESC.
// order is handed to the store unchecked; the store rejects anything else.
func (h *TrackHandler) SortByReleaseYear(r *http.Request) Result {
	order := r.URL.Query().Get("order")

	tracks, err := h.repo.FindAll(r.Context(), query.Sort(query.FieldReleaseYear, order))
	if err != nil {
		logger.Error("Failed to sort tracks",
			logger.String("order", order),
			logger.ErrorField(err),
		)
		return failure("Error sorting the tracks", err)
	}
	if len(tracks) == 0 {
		return notFoundError("No tracks found")
	}
	return ok(tracksBody{Tracks: tracks})
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tracksvc/cache"
	"tracksvc/db"
	"tracksvc/model"
	"tracksvc/query"
	"tracksvc/repository"
	"tracksvc/seed"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testEnv struct {
	db      *gorm.DB
	repo    repository.TrackRepository
	handler http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gdb, err := db.NewMock(strings.ReplaceAll(t.Name(), "/", "_"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(gdb) })

	repo := repository.NewGormTrackRepository(gdb)
	require.NoError(t, repo.ResetSchema(context.Background()))
	loader := seed.NewLoader(repo, cache.NewLocalLocker(time.Second), seed.Default())

	return &testEnv{db: gdb, repo: repo, handler: NewHandler(NewTrackHandler(repo, loader))}
}

func (e *testEnv) get(t *testing.T, target string) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return rec, body
}

func (e *testEnv) seed(t *testing.T) {
	t.Helper()
	rec, _ := e.get(t, "/seed_db")
	require.Equal(t, http.StatusOK, rec.Code)
}

func decodeTracks(t *testing.T, raw json.RawMessage) []model.Track {
	t.Helper()
	var tracks []model.Track
	require.NoError(t, json.Unmarshal(raw, &tracks))
	return tracks
}

func decodeString(t *testing.T, raw json.RawMessage) string {
	t.Helper()
	var s string
	require.NoError(t, json.Unmarshal(raw, &s))
	return s
}

func TestSeedDB(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 2; i++ {
		rec, body := env.get(t, "/seed_db")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Database seeding successful.", decodeString(t, body["message"]))
		assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	}

	count, err := env.repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(10), count, "seeding twice must leave 10 tracks, not 20")
}

func TestGetTracks(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.get(t, "/tracks")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "No tracks found.", decodeString(t, body["message"]))

	env.seed(t)
	rec, body = env.get(t, "/tracks")
	require.Equal(t, http.StatusOK, rec.Code)
	tracks := decodeTracks(t, body["tracks"])
	require.Len(t, tracks, 10)
	assert.Equal(t, "Raabta", tracks[0].Name)
	assert.Equal(t, 2012, tracks[0].ReleaseYear)
}

func TestGetTracksJSONShape(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)

	_, body := env.get(t, "/tracks/details/1")
	var track map[string]interface{}
	require.NoError(t, json.Unmarshal(body["track"], &track))
	for _, key := range []string{"id", "name", "genre", "release_year", "artist", "album", "duration", "createdAt", "updatedAt"} {
		assert.Contains(t, track, key)
	}
}

func TestGetTrackByID(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)

	for id := 1; id <= 10; id++ {
		rec, body := env.get(t, "/tracks/details/"+jsonNumber(id))
		require.Equal(t, http.StatusOK, rec.Code)
		var track model.Track
		require.NoError(t, json.Unmarshal(body["track"], &track))
		assert.Equal(t, int64(id), track.ID)
	}

	rec, body := env.get(t, "/tracks/details/6")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(body["track"]), `"name":"Ghungroo"`)

	// leading digits are honoured the way loosely typed clients send ids
	rec, _ = env.get(t, "/tracks/details/2abc")
	assert.Equal(t, http.StatusOK, rec.Code)

	for _, id := range []string{"11", "0", "-1", "abc", "x1"} {
		rec, body := env.get(t, "/tracks/details/"+id)
		assert.Equal(t, http.StatusNotFound, rec.Code, "id %s", id)
		assert.Equal(t, "Track not found.", decodeString(t, body["error"]))
		assert.NotContains(t, body, "message")
	}
}

func TestGetTracksByArtist(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.get(t, "/tracks/artist/Arijit%20Singh")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Track not found.", decodeString(t, body["message"]))

	env.seed(t)
	rec, body = env.get(t, "/tracks/artist/Arijit%20Singh")
	require.Equal(t, http.StatusOK, rec.Code)

	var names []string
	for _, tr := range decodeTracks(t, body["tracks"]) {
		assert.Equal(t, "Arijit Singh", tr.Artist)
		names = append(names, tr.Name)
	}
	assert.ElementsMatch(t, []string{"Raabta", "Ghungroo", "First Class", "Kalank Title Track"}, names)

	rec, _ = env.get(t, "/tracks/artist/arijit%20singh")
	assert.Equal(t, http.StatusNotFound, rec.Code, "artist match is case-sensitive")
}

func TestGetTracksByArtistEscapedSlash(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)
	require.NoError(t, env.repo.BulkInsert(context.Background(), []*model.Track{
		{Name: "Thunderstruck", Artist: "AC/DC", Genre: "Rock", ReleaseYear: 1990},
	}))

	rec, body := env.get(t, "/tracks/artist/AC%2FDC")
	require.Equal(t, http.StatusOK, rec.Code)
	tracks := decodeTracks(t, body["tracks"])
	require.Len(t, tracks, 1)
	assert.Equal(t, "Thunderstruck", tracks[0].Name)

	rec, body = env.get(t, "/tracks/artist/AC%2FDCX")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Track not found.", decodeString(t, body["message"]))

	rec, _ = env.get(t, "/tracks/artist/Arijit%20Singh")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMalformedPathVars(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)
	h := NewTrackHandler(env.repo, stubSeeder{})

	req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"artist": "AC%zz"})
	res := h.GetTracksByArtist(req)
	assert.Equal(t, http.StatusNotFound, res.Status)
	assert.Equal(t, messageBody{Message: "Track not found."}, res.Body)

	req = mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"id": "1%zz"})
	res = h.GetTrackByID(req)
	assert.Equal(t, http.StatusNotFound, res.Status)
	assert.Equal(t, errorBody{Error: "Track not found."}, res.Body)
}

func TestSortByReleaseYear(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.get(t, "/tracks/sort/release_year?order=ASC")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "No tracks found", decodeString(t, body["error"]))

	env.seed(t)
	years := func(order string) []int {
		rec, body := env.get(t, "/tracks/sort/release_year?order="+order)
		require.Equal(t, http.StatusOK, rec.Code, order)
		var out []int
		for _, tr := range decodeTracks(t, body["tracks"]) {
			out = append(out, tr.ReleaseYear)
		}
		require.Len(t, out, 10)
		return out
	}

	assert.IsNonDecreasing(t, years("ASC"))
	assert.IsNonIncreasing(t, years("DESC"))
	assert.IsNonIncreasing(t, years("desc"))
	assert.Equal(t, 2012, years("DESC")[9])
}

func TestSortByReleaseYearBadOrder(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)

	rec, body := env.get(t, "/tracks/sort/release_year?order=sideways")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Error sorting the tracks", decodeString(t, body["message"]))
	assert.Contains(t, decodeString(t, body["error"]), "sideways")

	rec, _ = env.get(t, "/tracks/sort/release_year?order=ASC%3B%20DROP%20TABLE%20tracks")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	count, err := env.repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(10), count)

	// no order at all leaves ordering to the store
	rec, _ = env.get(t, "/tracks/sort/release_year")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStoreFailuresAre500(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)
	require.NoError(t, db.Close(env.db))

	tests := []struct {
		target  string
		message string
	}{
		{"/seed_db", "Error seeding the data"},
		{"/tracks", "Error fetching tracks"},
		{"/tracks/details/1", "Error fetching a track by Id"},
		{"/tracks/artist/Arijit%20Singh", "Error fetching track by an artist"},
		{"/tracks/sort/release_year?order=ASC", "Error sorting the tracks"},
	}
	for _, tt := range tests {
		rec, body := env.get(t, tt.target)
		assert.Equal(t, http.StatusInternalServerError, rec.Code, tt.target)
		assert.Equal(t, tt.message, decodeString(t, body["message"]), tt.target)
		assert.NotEmpty(t, decodeString(t, body["error"]), tt.target)
	}
}

type stubSeeder struct{ err error }

func (s stubSeeder) Seed(context.Context) (int, error) { return 0, s.err }

func TestSeedInProgressIs500(t *testing.T) {
	env := newTestEnv(t)
	h := NewHandler(NewTrackHandler(env.repo, stubSeeder{err: seed.ErrSeedInProgress}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/seed_db", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"message":"Error seeding the data","error":"another seed is in progress"}`, rec.Body.String())
}

type panickingRepo struct{ repository.TrackRepository }

func (panickingRepo) FindAll(context.Context, query.Criteria) ([]*model.Track, error) {
	panic("boom")
}

func TestPanicIsRecovered(t *testing.T) {
	h := NewHandler(NewTrackHandler(panickingRepo{}, stubSeeder{err: errors.New("unused")}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tracks", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "boom")
}

func TestMiddleware(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tracks", nil))
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	req := httptest.NewRequest(http.MethodGet, "/tracks", nil)
	req.Header.Set(requestIDHeader, "req-123")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get(requestIDHeader))

	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/tracks", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/seed_db", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func jsonNumber(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}

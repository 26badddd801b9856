// Package api exposes an editor session over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Faultbox/tileforge/internal/editor"
	"github.com/Faultbox/tileforge/internal/logger"
	"github.com/Faultbox/tileforge/internal/storage"
	"github.com/Faultbox/tileforge/pkg/tilemap"
)

// Handler serves one session. Requests are serialized with a mutex because
// the session is not safe for concurrent use.
type Handler struct {
	mu      sync.Mutex
	session *editor.Session
	log     *zap.Logger
}

// NewHandler creates a handler for session.
func NewHandler(session *editor.Session) *Handler {
	return &Handler{session: session, log: logger.Named("api")}
}

// SetupRoutes configures all routes and returns the router.
func SetupRoutes(session *editor.Session) http.Handler {
	h := NewHandler(session)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(Recovery(h.log))
	r.Use(Logger(h.log))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Route("/grid", func(r chi.Router) {
			r.Get("/", h.GetGrid)
			r.Get("/layers/{layer}/cells/{row}/{col}", h.GetCell)
			r.Put("/layers/{layer}/cells/{row}/{col}", h.SetCell)
			r.Post("/region", h.PaintRegion)
			r.Post("/fill", h.Fill)
			r.Post("/generate", h.Generate)
			r.Post("/overlay", h.StepOverlay)
			r.Post("/undo", h.Undo)
			r.Post("/scale", h.Scale)
		})

		r.Route("/camera", func(r chi.Router) {
			r.Get("/", h.GetCamera)
			r.Post("/move", h.Move)
			r.Post("/zoom", h.Zoom)
			r.Get("/rect", h.GetRect)
		})

		r.Get("/picker/{row}/{col}", h.PickerTile)

		r.Route("/saves", func(r chi.Router) {
			r.Get("/", h.ListSaves)
			r.Put("/{name}", h.Save)
			r.Post("/{name}/load", h.Load)
		})
	})

	return r
}

// respondJSON writes a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Warn("encoding JSON response", zap.Error(err))
	}
}

// respondError writes an error JSON response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondErr maps a domain error to its status code.
func respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tilemap.ErrOutOfRange),
		errors.Is(err, tilemap.ErrInvalidScale),
		errors.Is(err, tilemap.ErrInvalidSize),
		errors.Is(err, tilemap.ErrInvalidAtlas),
		errors.Is(err, tilemap.ErrLayerLimit),
		errors.Is(err, storage.ErrInvalidName):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, editor.ErrNoStore):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// decode reads a JSON body into v, rejecting unknown fields.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// intParams parses the named URL parameters as integers.
func intParams(r *http.Request, names ...string) ([]int, error) {
	out := make([]int, len(names))
	for i, name := range names {
		v, err := strconv.Atoi(chi.URLParam(r, name))
		if err != nil {
			return nil, errors.New("invalid " + name)
		}
		out[i] = v
	}
	return out, nil
}

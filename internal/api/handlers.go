package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Faultbox/tileforge/internal/camera"
	"github.com/Faultbox/tileforge/internal/storage"
	"github.com/Faultbox/tileforge/pkg/tilemap"
)

type gridResponse struct {
	storage.GridDocument
	History   int   `json:"history"`
	LastSeed  int64 `json:"last_seed"`
	GridLines bool  `json:"grid_lines"`
}

type cellResponse struct {
	Layer int `json:"layer"`
	Row   int `json:"row"`
	Col   int `json:"col"`
	Tile  int `json:"tile"`
}

type tileRequest struct {
	Tile int `json:"tile"`
}

type regionRequest struct {
	From  *tilemap.Cell  `json:"from,omitempty"`
	To    *tilemap.Cell  `json:"to,omitempty"`
	Cells []tilemap.Cell `json:"cells,omitempty"`
	Tile  int            `json:"tile"`
}

type fillRequest struct {
	Policy string `json:"policy"`
	Tile   int    `json:"tile"`
}

type generateRequest struct {
	Seed *int64 `json:"seed,omitempty"`
}

type generateResponse struct {
	Seed    int64       `json:"seed"`
	Trees   int         `json:"trees"`
	Flooded int         `json:"flooded"`
	Carved  int         `json:"carved"`
	Counts  map[int]int `json:"counts"`
}

type overlayRequest struct {
	Delta int `json:"delta"`
}

type scaleRequest struct {
	Factor float64 `json:"factor"`
}

type directionRequest struct {
	Direction string `json:"direction"`
}

// gridState builds the grid response; the caller holds the lock.
func (h *Handler) gridState() gridResponse {
	return gridResponse{
		GridDocument: storage.NewGridDocument(h.session.Grid()),
		History:      h.session.HistoryLen(),
		LastSeed:     h.session.LastSeed(),
		GridLines:    h.session.GridLines(),
	}
}

// GetGrid handles GET /api/grid.
func (h *Handler) GetGrid(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	respondJSON(w, http.StatusOK, h.gridState())
}

// GetCell handles GET /api/grid/layers/{layer}/cells/{row}/{col}.
func (h *Handler) GetCell(w http.ResponseWriter, r *http.Request) {
	p, err := intParams(r, "layer", "row", "col")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	tile, err := h.session.Get(p[0], p[1], p[2])
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cellResponse{Layer: p[0], Row: p[1], Col: p[2], Tile: tile})
}

// SetCell handles PUT /api/grid/layers/{layer}/cells/{row}/{col}.
func (h *Handler) SetCell(w http.ResponseWriter, r *http.Request) {
	p, err := intParams(r, "layer", "row", "col")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req tileRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.session.Set(p[0], p[1], p[2], req.Tile); err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cellResponse{Layer: p[0], Row: p[1], Col: p[2], Tile: req.Tile})
}

// PaintRegion handles POST /api/grid/region. The body names either a list
// of cells or the two corners of a rectangle.
func (h *Handler) PaintRegion(w http.ResponseWriter, r *http.Request) {
	var req regionRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	var err error
	switch {
	case len(req.Cells) > 0:
		err = h.session.Modify(req.Cells, req.Tile)
	case req.From != nil && req.To != nil:
		err = h.session.PaintRect(req.From.Row, req.From.Col, req.To.Row, req.To.Col, req.Tile)
	default:
		respondError(w, http.StatusBadRequest, "region needs cells or from/to corners")
		return
	}
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.gridState())
}

// Fill handles POST /api/grid/fill on the active layer.
func (h *Handler) Fill(w http.ResponseWriter, r *http.Request) {
	var req fillRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	kind, err := tilemap.ParseFillKind(req.Policy)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	fill := tilemap.FillPolicy{Kind: kind, Tile: req.Tile}
	if err := h.session.Fill(fill); err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.gridState())
}

// Generate handles POST /api/grid/generate. An empty body or a missing
// seed picks a fresh seed.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decode(r, &req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	stats, err := h.session.Generate(req.Seed)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, generateResponse{
		Seed:    stats.Seed,
		Trees:   stats.Trees,
		Flooded: stats.Flooded,
		Carved:  stats.Carved,
		Counts:  stats.Counts,
	})
}

// StepOverlay handles POST /api/grid/overlay.
func (h *Handler) StepOverlay(w http.ResponseWriter, r *http.Request) {
	var req overlayRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.session.StepOverlay(req.Delta); err != nil {
		respondErr(w, err)
		return
	}
	g := h.session.Grid()
	respondJSON(w, http.StatusOK, map[string]int{"active": g.Active(), "layers": g.LayerCount()})
}

// Undo handles POST /api/grid/undo.
func (h *Handler) Undo(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	undone := h.session.Undo()
	respondJSON(w, http.StatusOK, map[string]any{"undone": undone, "history": h.session.HistoryLen()})
}

// Scale handles POST /api/grid/scale.
func (h *Handler) Scale(w http.ResponseWriter, r *http.Request) {
	var req scaleRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.session.Scale(req.Factor); err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]float64{"scale": h.session.Grid().Scale()})
}

// GetCamera handles GET /api/camera.
func (h *Handler) GetCamera(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	respondJSON(w, http.StatusOK, h.session.Camera())
}

// Move handles POST /api/camera/move.
func (h *Handler) Move(w http.ResponseWriter, r *http.Request) {
	var req directionRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	dir, err := camera.ParseDirection(req.Direction)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.session.Move(dir)
	respondJSON(w, http.StatusOK, h.session.Camera())
}

// Zoom handles POST /api/camera/zoom with direction "in" or "out".
func (h *Handler) Zoom(w http.ResponseWriter, r *http.Request) {
	var req directionRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	var err error
	switch req.Direction {
	case "in":
		err = h.session.ZoomIn()
	case "out":
		err = h.session.ZoomOut()
	default:
		respondError(w, http.StatusBadRequest, "zoom direction must be in or out")
		return
	}
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.session.Camera())
}

// GetRect handles GET /api/camera/rect.
func (h *Handler) GetRect(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	respondJSON(w, http.StatusOK, h.session.VisibleRect())
}

// PickerTile handles GET /api/picker/{row}/{col}.
func (h *Handler) PickerTile(w http.ResponseWriter, r *http.Request) {
	p, err := intParams(r, "row", "col")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	tile, err := h.session.PickerTile(p[0], p[1])
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, tileRequest{Tile: tile})
}

// ListSaves handles GET /api/saves.
func (h *Handler) ListSaves(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	names, err := h.session.Saves(r.Context())
	if err != nil {
		respondErr(w, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	respondJSON(w, http.StatusOK, map[string][]string{"saves": names})
}

// Save handles PUT /api/saves/{name}.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.session.Save(r.Context(), name); err != nil {
		h.log.Warn("save failed", zap.String("name", name), zap.Error(err))
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"saved": name})
}

// Load handles POST /api/saves/{name}/load.
func (h *Handler) Load(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.session.Load(r.Context(), name); err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.gridState())
}

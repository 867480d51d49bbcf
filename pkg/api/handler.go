package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/bethyw/pkg/areas"
	"github.com/hazyhaar/bethyw/pkg/kit"
)

// NewRouter returns an http.Handler with all query API routes.
func NewRouter(svc *Service) http.Handler {
	h := &handler{endpoints: newEndpoints(svc), svc: svc}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors)

	r.Get("/v1/health", h.handleHealth)
	r.Get("/v1/datasets", h.handleListDatasets)
	r.Route("/v1/areas", func(r chi.Router) {
		r.Get("/", h.handleQueryAreas)
		r.Get("/{code}", h.handleGetArea)
		r.Get("/{code}/measures/{measure}", h.handleGetMeasure)
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}

type handler struct {
	*endpoints
	svc *Service
}

// --- query areas ---

func (h *handler) handleQueryAreas(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h.serve(w, r, h.queryAreas, &queryAreasReq{
		Areas:    splitList(q.Get("areas")),
		Measures: splitList(q.Get("measures")),
		Years:    q.Get("years"),
	})
}

// --- single area ---

func (h *handler) handleGetArea(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.getArea, &areaReq{Code: chi.URLParam(r, "code")})
}

// --- single measure ---

func (h *handler) handleGetMeasure(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.getMeasure, &measureReq{
		Area:    chi.URLParam(r, "code"),
		Measure: chi.URLParam(r, "measure"),
	})
}

// --- datasets ---

func (h *handler) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.listDatasets, nil)
}

// --- health ---

type healthResponse struct {
	Status   string   `json:"status"`
	Areas    int      `json:"areas"`
	Measures int      `json:"measures"`
	Datasets []string `json:"datasets"`
}

func (h *handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	loaded := h.svc.Loaded
	if loaded == nil {
		loaded = []string{}
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:   "ok",
		Areas:    h.svc.Areas.Size(),
		Measures: h.svc.Areas.MeasureCount(),
		Datasets: loaded,
	})
}

// --- helpers ---

func (h *handler) serve(w http.ResponseWriter, r *http.Request, ep kit.Endpoint, req any) {
	resp, err := ep(kit.WithTransport(r.Context(), kit.TransportHTTP), req)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, areas.ErrNotFound):
		return http.StatusNotFound
	case isClientError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// cors is a simple CORS middleware for browser-based clients.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

package http

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"codemaster/internal/app"
	"codemaster/internal/importer"
	"codemaster/internal/metrics"
)

// maxImportBytes bounds the size of an uploaded question pack.
const maxImportBytes = 4 << 20

type APIHandler struct {
	service *app.QuizService
	now     func() time.Time
}

func NewAPIHandler(service *app.QuizService) *APIHandler {
	return &APIHandler{service: service, now: time.Now}
}

// NewRouter mounts the websocket, the REST API, health and metrics endpoints.
func NewRouter(service *app.QuizService) http.Handler {
	api := NewAPIHandler(service)
	ws := NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("/ws", ws.ServeWS)
	mux.HandleFunc("GET /api/profile", api.Profile)
	mux.HandleFunc("GET /api/badges", api.Badges)
	mux.HandleFunc("POST /api/badges/reset", api.ResetBadges)
	mux.HandleFunc("GET /api/sessions", api.Sessions)
	mux.HandleFunc("GET /api/stats/daily", api.Daily)
	mux.HandleFunc("GET /api/categories", api.Categories)
	mux.HandleFunc("POST /api/questions/import", api.Import)
	return mux
}

func (h *APIHandler) Profile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.service.Profile(r.Context())
	respond(w, profile, err)
}

func (h *APIHandler) Badges(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.Badges(r.Context())
	respond(w, list, err)
}

func (h *APIHandler) ResetBadges(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ResetBadges(r.Context())
	respond(w, list, err)
}

func (h *APIHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	history, err := h.service.History(r.Context())
	respond(w, history, err)
}

func (h *APIHandler) Daily(w http.ResponseWriter, r *http.Request) {
	days := 7
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = n
	}
	averages, err := h.service.DailyAverages(r.Context(), days)
	respond(w, averages, err)
}

func (h *APIHandler) Categories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.service.Categories(r.Context())
	respond(w, cats, err)
}

func (h *APIHandler) Import(w http.ResponseWriter, r *http.Request) {
	qs, err := importer.Parse(http.MaxBytesReader(w, r.Body, maxImportBytes), h.now())
	if err != nil {
		respond(w, nil, err)
		return
	}
	if err := h.service.ImportQuestions(r.Context(), qs); err != nil {
		respond(w, nil, err)
		return
	}
	respond(w, map[string]int{"imported": len(qs)}, nil)
}

func respond(w http.ResponseWriter, body any, err error) {
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			log.Printf("api error: %v", err)
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorPayload{Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("encode response: %v", err)
	}
}

package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"mathquiz-service/internal/app"
	"mathquiz-service/internal/domain"
)

const defaultTop = 10

// APIHandler serves the read-only JSON endpoints.
type APIHandler struct {
	service *app.GameService
}

func NewAPIHandler(service *app.GameService) *APIHandler {
	return &APIHandler{service: service}
}

// Register mounts the endpoints on mux.
func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /leaderboard", h.GlobalLeaderboard)
	mux.HandleFunc("GET /leaderboard/{difficulty}", h.Leaderboard)
	mux.HandleFunc("GET /games/{id}", h.Game)
}

type liveGame struct {
	ID         string            `json:"id"`
	Difficulty domain.Difficulty `json:"difficulty"`
	Status     string            `json:"status"`
	Answered   int               `json:"answered"`
	Total      int               `json:"total"`
	TotalScore float64           `json:"totalScore"`
}

func (h *APIHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	d, err := domain.ParseDifficulty(r.PathValue("difficulty"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	top, err := topParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	entries, err := h.service.Leaderboard().GetLeaderboard(r.Context(), d, top)
	if err != nil {
		log.Printf("leaderboard %s: %v", d, err)
		writeError(w, http.StatusInternalServerError, errors.New("leaderboard unavailable"))
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *APIHandler) GlobalLeaderboard(w http.ResponseWriter, r *http.Request) {
	top, err := topParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	entries, err := h.service.Leaderboard().GetGlobalLeaderboard(r.Context(), top)
	if err != nil {
		log.Printf("global leaderboard: %v", err)
		writeError(w, http.StatusInternalServerError, errors.New("leaderboard unavailable"))
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// Game returns the archived record of a finished game, or a progress summary
// of a live one. Live questions are not exposed since they carry answers.
func (h *APIHandler) Game(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	record, err := h.service.ArchivedGame(r.Context(), id)
	if err != nil {
		log.Printf("archived game %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, errors.New("game archive unavailable"))
		return
	}
	if record != nil {
		writeJSON(w, http.StatusOK, record)
		return
	}

	session, err := h.service.Game(r.Context(), id)
	if errors.Is(err, domain.ErrGameNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		log.Printf("live game %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, errors.New("game store unavailable"))
		return
	}
	answered := 0
	for _, q := range session.Questions {
		if q.Answered {
			answered++
		}
	}
	writeJSON(w, http.StatusOK, liveGame{
		ID:         session.ID,
		Difficulty: session.Difficulty,
		Status:     "in_progress",
		Answered:   answered,
		Total:      len(session.Questions),
		TotalScore: session.TotalScore(),
	})
}

func topParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("top")
	if raw == "" {
		return defaultTop, nil
	}
	top, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("top must be an integer")
	}
	return top, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorPayload{Message: err.Error()})
}

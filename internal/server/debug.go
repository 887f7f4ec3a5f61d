package server

import (
	"net/http"

	"github.com/andresmonc/polyempire-sub000/internal/engine"
)

// DebugHandler предоставляет доступ к внутреннему состоянию движка
type DebugHandler struct {
	Service *engine.GameService
}

func NewDebugHandler(s *engine.GameService) *DebugHandler {
	return &DebugHandler{Service: s}
}

// RegisterRoutes регистрирует debug-эндпоинты
func (h *DebugHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /debug/sessions", h.handleListSessions)
	mux.HandleFunc("GET /debug/entities", h.handleDumpEntities)
	mux.HandleFunc("GET /debug/turn", h.handleTurn)
	mux.HandleFunc("GET /debug/watchers", h.handleWatchers)
}

// /debug/sessions - список живых сессий с их режимом и составом
func (h *DebugHandler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := h.Service.Sessions()
	if len(sessions) == 0 {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

// /debug/entities?session=<id> - дамп всех сущностей сессии, включая data-мешок
func (h *DebugHandler) handleDumpEntities(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if _, err := h.Service.GameInfo(sessionID); err != nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, h.Service.Store.Entities(sessionID))
}

// /debug/turn?session=<id> - срез машины ходов: режим, чей ход, кто закончил
func (h *DebugHandler) handleTurn(w http.ResponseWriter, r *http.Request) {
	info, err := h.Service.GameInfo(r.URL.Query().Get("session"))
	if err != nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	mode := "simultaneous"
	if info.IsSequentialMode {
		mode = "sequential"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"turn":             info.CurrentTurn,
		"mode":             mode,
		"currentPlayerId":  info.CurrentPlayerID,
		"playersEndedTurn": info.PlayersEndedTurn,
		"allPlayersEnded":  info.AllPlayersEnded,
	})
}

// /debug/watchers?session=<id> - сколько зрителей висит на фиде
func (h *DebugHandler) handleWatchers(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	writeJSON(w, http.StatusOK, map[string]int{
		"watchers": h.Service.Hub.WatcherCount(sessionID),
	})
}

package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/pprof" // Profiling

	"github.com/andresmonc/polyempire-sub000/internal/domain"
	"github.com/andresmonc/polyempire-sub000/internal/engine"
	"github.com/andresmonc/polyempire-sub000/internal/version"
	"github.com/andresmonc/polyempire-sub000/pkg/api"
	"github.com/andresmonc/polyempire-sub000/pkg/logger"
)

type Server struct {
	Engine *engine.GameService
	Port   string
}

func New(engine *engine.GameService, port string) *Server {
	return &Server{
		Engine: engine,
		Port:   port,
	}
}

// Handler собирает роутер. Вынесен отдельно от Run ради httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Регистрируем роуты
	mux.HandleFunc("POST /games", enableCORS(s.handleCreateGame))
	mux.HandleFunc("GET /games/{id}", enableCORS(s.handleGetGame))
	mux.HandleFunc("POST /games/{id}/join", enableCORS(s.handleJoinGame))
	mux.HandleFunc("POST /games/{id}/actions", enableCORS(s.handleSubmitAction))
	mux.HandleFunc("GET /games/{id}/state", enableCORS(s.handleGetState))
	mux.HandleFunc("POST /games/{id}/war", enableCORS(s.handleDeclareWar))
	mux.HandleFunc("DELETE /games/{id}/war", enableCORS(s.handleEndWar))
	mux.HandleFunc("GET /games/{id}/watch", s.handleWatch)

	// CORS preflight для игровых роутов
	preflight := enableCORS(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("OPTIONS /games", preflight)
	mux.HandleFunc("OPTIONS /games/", preflight)

	mux.HandleFunc("/health", enableCORS(s.handleHealth))
	mux.HandleFunc("/version", enableCORS(s.handleVersion))

	debugHandler := NewDebugHandler(s.Engine)
	debugHandler.RegisterRoutes(mux)

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	return mux
}

// Run запускает HTTP сервер
func (s *Server) Run() error {
	logger.Log.Infof("🏛️  PolyEmpire Server running on :%s", s.Port)
	return http.ListenAndServe(":"+s.Port, s.Handler())
}

func enableCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Разрешаем запросы с фронтенда
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		next(w, r)
	}
}

// decodeBody читает JSON тело запроса. Неразборчивое тело - ошибка валидации.
func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.Validationf("Invalid request body: %v", err)
	}
	return nil
}

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req api.CreateGameRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	resp, err := s.Engine.CreateGame(req.Name, req.PlayerName, req.CivID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	info, err := s.Engine.GameInfo(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleJoinGame(w http.ResponseWriter, r *http.Request) {
	var req api.JoinGameRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	resp, err := s.Engine.JoinGame(r.PathValue("id"), req.PlayerName, req.CivID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSubmitAction(w http.ResponseWriter, r *http.Request) {
	var req api.SubmitActionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	resp, err := s.Engine.SubmitAction(r.PathValue("id"), req.PlayerID, req.Intent)
	if err != nil {
		// Отказ по намерению идет в том же конверте, что и успех:
		// клиентская очередь различает их по полю success.
		status := domain.StatusOf(err)
		writeJSON(w, status, api.SubmitActionResponse{Success: false, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleGetState - сердце поллинга.
// ?since=<timestamp> отдает действия строго позже отметки,
// ?fullState=true дополнительно прикладывает полный снимок сущностей.
func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	since := r.URL.Query().Get("since")
	full := r.URL.Query().Get("fullState") == "true"

	resp, err := s.Engine.StateUpdates(r.PathValue("id"), since, full)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeclareWar(w http.ResponseWriter, r *http.Request) {
	var req api.WarRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	info, err := s.Engine.DeclareWar(r.PathValue("id"), req.Player1ID, req.Player2ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleEndWar(w http.ResponseWriter, r *http.Request) {
	var req api.WarRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	info, err := s.Engine.EndWar(r.PathValue("id"), req.Player1ID, req.Player2ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(version.Info())
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Log.WithError(err).Debug("write json response failed")
	}
}

// writeError переводит доменную ошибку в HTTP статус и JSON конверт.
func writeError(w http.ResponseWriter, err error) {
	var derr *domain.Error
	if !errors.As(err, &derr) {
		logger.Log.WithError(err).Error("Unhandled internal error")
	}
	writeJSON(w, domain.StatusOf(err), api.ErrorResponse{Error: err.Error()})
}

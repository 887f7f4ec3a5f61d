package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/andresmonc/polyempire-sub000/internal/domain"
	"github.com/andresmonc/polyempire-sub000/internal/infrastructure/storage"
	"github.com/andresmonc/polyempire-sub000/internal/network"
	"github.com/andresmonc/polyempire-sub000/pkg/api"
	"github.com/andresmonc/polyempire-sub000/pkg/logger"
)

// GameService оркестрирует жизненный цикл сессий:
// создание, подключение, прием намерений, поллинг и уборку.
type GameService struct {
	cfg Config

	mu       sync.RWMutex
	sessions map[string]*Session

	Store *EntityStore
	Hub   *network.Hub

	// Счетчик id игроков общий на процесс, не на сессию.
	// Сессии короткоживущие, переполнение нас не волнует.
	playerSeq atomic.Int64

	archive *storage.ArchiveService // nil = архивация выключена

	stopReaper chan struct{}
	reaperOnce sync.Once
}

func NewGameService(cfg Config, hub *network.Hub, archive *storage.ArchiveService) *GameService {
	return &GameService{
		cfg:        cfg,
		sessions:   make(map[string]*Session),
		Store:      NewEntityStore(),
		Hub:        hub,
		archive:    archive,
		stopReaper: make(chan struct{}),
	}
}

// session ищет сессию по id.
func (s *GameService) session(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, domain.NotFoundf("Game not found")
	}
	return sess, nil
}

// startingPosition раскладывает стартовые точки сеткой,
// чтобы поселенцы разных игроков не слипались.
func startingPosition(playerIndex int) api.TilePos {
	return api.TilePos{
		TX: 4 + 8*(playerIndex%4),
		TY: 4 + 8*(playerIndex/4),
	}
}

// CreateGame создает сессию и сразу добавляет в неё создателя.
// Статус остается waiting, пока не подключится второй игрок.
func (s *GameService) CreateGame(name, playerName, civID string) (*api.CreateGameResponse, error) {
	if playerName == "" {
		return nil, domain.Validationf("playerName is required")
	}
	if civID == "" {
		return nil, domain.Validationf("civId is required")
	}

	sessionID := uuid.NewString()
	sess := NewSession(sessionID, name)

	playerID := s.playerSeq.Add(1)
	if err := sess.AddPlayer(domain.PlayerInfo{
		ID:        playerID,
		Name:      playerName,
		CivID:     civID,
		Connected: true,
		IsHuman:   true,
	}); err != nil {
		return nil, err
	}

	s.Store.Initialize(sessionID, []domain.StartingPosition{{
		PlayerID: playerID,
		CivID:    civID,
		Pos:      startingPosition(0),
	}})

	s.mu.Lock()
	s.sessions[sessionID] = sess
	s.mu.Unlock()

	logger.Log.WithFields(logrus.Fields{
		"session": sessionID,
		"player":  playerID,
	}).Info("Game created")

	return &api.CreateGameResponse{
		SessionID: sessionID,
		PlayerID:  playerID,
		Game:      sess.Info(),
	}, nil
}

// JoinGame подключает нового игрока к существующей сессии.
func (s *GameService) JoinGame(sessionID, playerName, civID string) (*api.JoinGameResponse, error) {
	if playerName == "" {
		return nil, domain.Validationf("playerName is required")
	}
	if civID == "" {
		return nil, domain.Validationf("civId is required")
	}

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	if sess.Status == domain.StatusFinished {
		sess.mu.Unlock()
		return nil, domain.Conflictf("Game has finished")
	}

	playerID := s.playerSeq.Add(1)
	if err := sess.addPlayer(domain.PlayerInfo{
		ID:        playerID,
		Name:      playerName,
		CivID:     civID,
		Connected: true,
		IsHuman:   true,
	}); err != nil {
		sess.mu.Unlock()
		return nil, err
	}
	playerIndex := len(sess.Players) - 1
	info := sess.info()
	sess.mu.Unlock()

	s.Store.Initialize(sessionID, []domain.StartingPosition{{
		PlayerID: playerID,
		CivID:    civID,
		Pos:      startingPosition(playerIndex),
	}})

	logger.Log.WithFields(logrus.Fields{
		"session": sessionID,
		"player":  playerID,
		"status":  info.Status,
	}).Info("Player joined")

	return &api.JoinGameResponse{PlayerID: playerID, Game: info}, nil
}

// SubmitAction принимает намерение игрока.
// Порядок строгий: валидация формы -> гейт на текущего игрока ->
// мутация хранилища -> запись в лог -> END_TURN бухгалтерия.
// Отвергнутые намерения в лог не попадают.
func (s *GameService) SubmitAction(sessionID string, playerID int64, intent api.Intent) (*api.SubmitActionResponse, error) {
	if err := domain.ValidateIntent(intent); err != nil {
		return nil, err
	}

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.player(playerID) == nil {
		return nil, domain.NotFoundf("Player not in game")
	}

	// Гейт жестче, чем различие режимов внутри машины состояний:
	// принимаем только от текущего игрока. Одновременный режим все равно
	// виден клиентам через isSequentialMode/playersEndedTurn.
	if playerID != sess.CurrentPlayerID {
		return nil, domain.Unauthorizedf("Not your turn")
	}

	if err := s.Store.ApplyIntent(sessionID, playerID, intent); err != nil {
		return nil, err
	}

	rec := sess.recordAction(playerID, intent)

	if domain.ParseIntent(intent.Type) == domain.IntentEndTurn {
		advanced, err := sess.playerEndTurn(playerID)
		if err != nil {
			return nil, err
		}
		if advanced {
			logger.Log.WithFields(logrus.Fields{
				"session": sessionID,
				"turn":    sess.CurrentTurn,
			}).Info("Round advanced")
		}
	}

	s.Hub.Publish(sessionID, api.ActionEvent{
		SessionID: sessionID,
		Turn:      sess.CurrentTurn,
		Action:    rec.View(),
	})

	return &api.SubmitActionResponse{Success: true, Turn: sess.CurrentTurn}, nil
}

// GameInfo возвращает расширенный снимок сессии.
func (s *GameService) GameInfo(sessionID string) (*api.GameInfo, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	info := sess.Info()
	return &info, nil
}

// StateUpdates собирает ответ на поллинг.
// Пустой since (или fullState=true) добавляет полный снимок сущностей;
// иначе возвращаются только действия строго позже отметки.
func (s *GameService) StateUpdates(sessionID, since string, fullState bool) (*api.StateResponse, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	actions, err := sess.actionsSince(since)
	if err != nil {
		sess.mu.Unlock()
		return nil, err
	}
	resp := &api.StateResponse{
		SessionID:       sessionID,
		Turn:            sess.CurrentTurn,
		CurrentPlayerID: sess.CurrentPlayerID,
		Actions:         actions,
		Timestamp:       time.Now().UTC().Format(time.RFC3339Nano),
	}
	sess.mu.Unlock()

	if since == "" || fullState {
		resp.FullState = s.Store.Snapshot(sessionID)
	}

	return resp, nil
}

// DeclareWar объявляет войну между парой игроков сессии.
func (s *GameService) DeclareWar(sessionID string, p1, p2 int64) (*api.GameInfo, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.DeclareWar(p1, p2); err != nil {
		return nil, err
	}
	info := sess.Info()
	logger.Log.WithFields(logrus.Fields{
		"session": sessionID,
		"p1":      p1,
		"p2":      p2,
	}).Info("War declared")
	return &info, nil
}

// EndWar завершает войну между парой игроков сессии.
func (s *GameService) EndWar(sessionID string, p1, p2 int64) (*api.GameInfo, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	sess.EndWar(p1, p2)
	info := sess.Info()
	return &info, nil
}

// FinishGame переводит партию в finished (дальше её подберет жнец).
func (s *GameService) FinishGame(sessionID string) error {
	sess, err := s.session(sessionID)
	if err != nil {
		return err
	}
	sess.Finish()
	return nil
}

// Sessions возвращает снимки всех живых сессий (для debug-эндпоинтов).
func (s *GameService) Sessions() []api.GameInfo {
	s.mu.RLock()
	list := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		list = append(list, sess)
	}
	s.mu.RUnlock()

	infos := make([]api.GameInfo, 0, len(list))
	for _, sess := range list {
		infos = append(infos, sess.Info())
	}
	return infos
}

// --- Жнец ---

// Cleanup убирает завершенные сессии старше ReapAge.
// Перед удалением лог действий уезжает в архив. Возвращает число убранных.
func (s *GameService) Cleanup() int {
	cutoff := time.Now().UTC().Add(-s.cfg.ReapAge)

	s.mu.Lock()
	var stale []*Session
	for _, sess := range s.sessions {
		sess.mu.Lock()
		if sess.Status == domain.StatusFinished && sess.UpdatedAt.Before(cutoff) {
			stale = append(stale, sess)
		}
		sess.mu.Unlock()
	}
	for _, sess := range stale {
		delete(s.sessions, sess.ID)
	}
	s.mu.Unlock()

	for _, sess := range stale {
		if s.archive != nil {
			if _, err := s.archive.Save(s.buildArchive(sess)); err != nil {
				logger.Log.WithError(err).WithField("session", sess.ID).Warn("Failed to archive session")
			}
		}
		s.Store.Cleanup(sess.ID)
		s.Hub.DropSession(sess.ID)
		logger.Log.WithField("session", sess.ID).Info("Session reaped")
	}

	return len(stale)
}

func (s *GameService) buildArchive(sess *Session) *domain.SessionArchive {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	actions := make([]domain.ActionRecord, len(sess.Actions))
	copy(actions, sess.Actions)

	return &domain.SessionArchive{
		SessionID:   sess.ID,
		Name:        sess.Name,
		CreatedAt:   sess.CreatedAt.Unix(),
		ArchivedAt:  time.Now().UTC().Unix(),
		Turns:       sess.CurrentTurn,
		PlayerCount: len(sess.Players),
		Actions:     actions,
	}
}

// StartReaper запускает фоновую уборку. Должен быть вызван один раз.
func (s *GameService) StartReaper() {
	go func() {
		ticker := time.NewTicker(s.cfg.ReapInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if n := s.Cleanup(); n > 0 {
					logger.Log.WithField("count", n).Info("Reaper pass complete")
				}
			case <-s.stopReaper:
				return
			}
		}
	}()
}

// Stop останавливает фоновые задачи сервиса.
func (s *GameService) Stop() {
	s.reaperOnce.Do(func() { close(s.stopReaper) })
}

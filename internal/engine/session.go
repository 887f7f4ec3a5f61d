package engine

import (
	"sort"
	"sync"
	"time"

	"github.com/andresmonc/polyempire-sub000/internal/domain"
	"github.com/andresmonc/polyempire-sub000/pkg/api"
)

// Session представляет собой одну изолированную партию:
// счетчик хода, состав игроков, список войн и append-only лог действий.
//
// Все мутации одной сессии сериализуются через mu. На каждую сессию ровно
// один замок: два конкурирующих END_TURN не могут прочитать один и тот же
// счетчик хода.
type Session struct {
	mu sync.Mutex

	ID   string
	Name string

	Players         []domain.PlayerInfo
	CurrentTurn     int
	CurrentPlayerID int64
	Status          string

	Wars []domain.War

	// PlayersEndedTurn имеет смысл только в одновременном режиме.
	// Очищается ровно в момент продвижения раунда.
	PlayersEndedTurn map[int64]bool

	Actions []domain.ActionRecord

	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewSession(id, name string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:               id,
		Name:             name,
		CurrentTurn:      1,
		Status:           domain.StatusWaiting,
		PlayersEndedTurn: make(map[int64]bool),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func (s *Session) touch() {
	s.UpdatedAt = time.Now().UTC()
}

// --- Режим хода ---

// mode вычисляет дисциплину хода из списка войн. Ничего не хранится:
// Sequential тогда и только тогда, когда хотя бы два живых (человек,
// подключен) игрока находятся в активной войне друг с другом.
func (s *Session) mode() domain.TurnMode {
	for i := range s.Wars {
		w := &s.Wars[i]
		if !w.IsActive {
			continue
		}
		if s.isLivePlayer(w.Player1ID) && s.isLivePlayer(w.Player2ID) {
			return domain.Sequential
		}
	}
	return domain.Simultaneous
}

func (s *Session) isLivePlayer(id int64) bool {
	p := s.player(id)
	return p != nil && p.IsHuman && p.Connected
}

func (s *Session) player(id int64) *domain.PlayerInfo {
	for i := range s.Players {
		if s.Players[i].ID == id {
			return &s.Players[i]
		}
	}
	return nil
}

// connectedIDs возвращает id подключенных игроков по возрастанию.
// Это и есть циклический порядок хода в последовательном режиме.
func (s *Session) connectedIDs() []int64 {
	ids := make([]int64, 0, len(s.Players))
	for i := range s.Players {
		if s.Players[i].Connected {
			ids = append(ids, s.Players[i].ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Mode - публичная (блокирующая) версия mode.
func (s *Session) Mode() domain.TurnMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode()
}

// --- Состав ---

// AddPlayer добавляет игрока. Ошибка при повторном id или занятой цивилизации.
// Когда в сессии набирается второй игрок, партия переходит из waiting в active.
func (s *Session) AddPlayer(p domain.PlayerInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addPlayer(p)
}

func (s *Session) addPlayer(p domain.PlayerInfo) error {
	for i := range s.Players {
		if s.Players[i].ID == p.ID {
			return domain.Conflictf("Player already in game")
		}
		if s.Players[i].CivID == p.CivID {
			return domain.Conflictf("Civilization already taken")
		}
	}

	s.Players = append(s.Players, p)

	// Первый игрок сразу становится текущим
	if len(s.Players) == 1 {
		s.CurrentPlayerID = p.ID
	}

	if len(s.Players) >= 2 && s.Status == domain.StatusWaiting {
		s.Status = domain.StatusActive
	}

	s.touch()
	return nil
}

// SetConnected помечает игрока (от)подключенным. Если в последовательном
// режиме отваливается текущий игрок, ход немедленно передается дальше,
// чтобы текущим всегда оставался подключенный.
func (s *Session) SetConnected(playerID int64, connected bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.player(playerID)
	if p == nil {
		return domain.NotFoundf("Player not in game")
	}
	p.Connected = connected

	if !connected && s.CurrentPlayerID == playerID && s.mode() == domain.Sequential {
		if ids := s.connectedIDs(); len(ids) > 0 {
			s.CurrentPlayerID = s.nextAfter(playerID, ids)
		}
	}

	s.touch()
	return nil
}

// Finish переводит партию в терминальный статус. Дальше её подберет жнец.
func (s *Session) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = domain.StatusFinished
	s.touch()
}

// --- Войны ---

// DeclareWar идемпотентно объявляет войну неупорядоченной паре.
// Повторное объявление при уже активной войне — no-op.
func (s *Session) DeclareWar(p1, p2 int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.declareWar(p1, p2)
}

func (s *Session) declareWar(p1, p2 int64) error {
	if p1 == p2 {
		return domain.Validationf("A player cannot declare war on themselves")
	}
	if s.player(p1) == nil || s.player(p2) == nil {
		return domain.NotFoundf("Player not in game")
	}

	for i := range s.Wars {
		if s.Wars[i].IsActive && s.Wars[i].Matches(p1, p2) {
			return nil // уже воюют
		}
	}

	// Записи не переиспользуются: каждая война — новая строка истории
	s.Wars = append(s.Wars, domain.War{
		Player1ID:  p1,
		Player2ID:  p2,
		DeclaredAt: time.Now().UTC(),
		IsActive:   true,
	})
	s.touch()
	return nil
}

// EndWar деактивирует войну пары. Если активной войны нет — no-op.
// Сама запись никогда не удаляется, история сохраняется.
func (s *Session) EndWar(p1, p2 int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endWar(p1, p2)
}

func (s *Session) endWar(p1, p2 int64) {
	changed := false
	for i := range s.Wars {
		if s.Wars[i].IsActive && s.Wars[i].Matches(p1, p2) {
			s.Wars[i].IsActive = false
			changed = true
		}
	}
	if changed {
		s.touch()
	}
}

// ArePlayersAtWar проверяет наличие активной войны между парой (в обе стороны).
func (s *Session) ArePlayersAtWar(p1, p2 int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Wars {
		if s.Wars[i].IsActive && s.Wars[i].Matches(p1, p2) {
			return true
		}
	}
	return false
}

// --- Конец хода ---

// PlayerEndTurn обрабатывает сигнал "я закончил".
// Возвращает true, если раунд продвинулся (CurrentTurn увеличился).
func (s *Session) PlayerEndTurn(playerID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playerEndTurn(playerID)
}

func (s *Session) playerEndTurn(playerID int64) (bool, error) {
	if s.player(playerID) == nil {
		return false, domain.NotFoundf("Player not in game")
	}

	// Раунд, начатый как одновременный, завершается одновременно:
	// война, объявленная посреди раунда, меняет дисциплину только
	// со следующего раунда.
	if s.mode() == domain.Sequential && len(s.PlayersEndedTurn) == 0 {
		// Последовательный режим: ходит ровно один
		if playerID != s.CurrentPlayerID {
			return false, domain.Unauthorizedf("Not your turn")
		}

		ids := s.connectedIDs()
		if len(ids) == 0 {
			return false, domain.Conflictf("No connected players")
		}

		next := s.nextAfter(playerID, ids)
		s.CurrentPlayerID = next
		s.touch()

		// Цикл замкнулся на наименьшем id — раунд окончен
		if next == ids[0] {
			s.CurrentTurn++
			return true, nil
		}
		return false, nil
	}

	// Одновременный режим: собираем сигналы от всех подключенных.
	// Повторный сигнал того же игрока в том же раунде ничего не меняет.
	s.PlayersEndedTurn[playerID] = true
	s.touch()

	ids := s.connectedIDs()
	for _, id := range ids {
		if !s.PlayersEndedTurn[id] {
			return false, nil
		}
	}

	// Все закончили: продвигаем раунд и очищаем набор (ровно здесь)
	s.CurrentTurn++
	s.PlayersEndedTurn = make(map[int64]bool)

	// Если война только что объявлена и следующий раунд последовательный,
	// отдаем ход наименьшему подключенному id
	if s.mode() == domain.Sequential && len(ids) > 0 {
		s.CurrentPlayerID = ids[0]
	}
	return true, nil
}

// nextAfter ищет следующий id в циклическом порядке по возрастанию.
func (s *Session) nextAfter(playerID int64, ids []int64) int64 {
	for _, id := range ids {
		if id > playerID {
			return id
		}
	}
	return ids[0]
}

// --- Лог действий ---

// RecordAction добавляет запись в append-only лог.
func (s *Session) RecordAction(playerID int64, intent api.Intent) domain.ActionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recordAction(playerID, intent)
}

func (s *Session) recordAction(playerID int64, intent api.Intent) domain.ActionRecord {
	rec := domain.ActionRecord{
		PlayerID:  playerID,
		Intent:    intent,
		Timestamp: time.Now().UTC(),
	}
	s.Actions = append(s.Actions, rec)
	s.touch()
	return rec
}

// ActionsSince возвращает записи строго ПОЗЖЕ отметки since (RFC3339Nano).
// Пустая отметка возвращает весь лог.
func (s *Session) ActionsSince(since string) ([]api.ActionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.actionsSince(since)
}

func (s *Session) actionsSince(since string) ([]api.ActionView, error) {
	views := make([]api.ActionView, 0, len(s.Actions))

	if since == "" {
		for _, rec := range s.Actions {
			views = append(views, rec.View())
		}
		return views, nil
	}

	mark, err := time.Parse(time.RFC3339Nano, since)
	if err != nil {
		return nil, domain.Validationf("invalid since timestamp: %q", since)
	}

	for _, rec := range s.Actions {
		if rec.Timestamp.After(mark) {
			views = append(views, rec.View())
		}
	}
	return views, nil
}

// --- Снимки ---

// Info собирает расширенный снимок сессии для клиента,
// включая вычисленный режим хода и набор закончивших игроков.
func (s *Session) Info() api.GameInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info()
}

func (s *Session) info() api.GameInfo {
	players := make([]api.PlayerView, 0, len(s.Players))
	for _, p := range s.Players {
		players = append(players, api.PlayerView{
			ID:        p.ID,
			Name:      p.Name,
			CivID:     p.CivID,
			Connected: p.Connected,
			IsHuman:   p.IsHuman,
		})
	}

	ended := make([]int64, 0, len(s.PlayersEndedTurn))
	for id := range s.PlayersEndedTurn {
		ended = append(ended, id)
	}
	sort.Slice(ended, func(i, j int) bool { return ended[i] < ended[j] })

	wars := make([]api.WarView, 0, len(s.Wars))
	for _, w := range s.Wars {
		if !w.IsActive {
			continue
		}
		wars = append(wars, api.WarView{
			Player1ID:  w.Player1ID,
			Player2ID:  w.Player2ID,
			DeclaredAt: w.DeclaredAt,
			IsActive:   w.IsActive,
		})
	}

	allEnded := len(s.Players) > 0
	for _, id := range s.connectedIDs() {
		if !s.PlayersEndedTurn[id] {
			allEnded = false
			break
		}
	}

	return api.GameInfo{
		ID:               s.ID,
		Name:             s.Name,
		Players:          players,
		CurrentTurn:      s.CurrentTurn,
		CurrentPlayerID:  s.CurrentPlayerID,
		Status:           s.Status,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
		IsSequentialMode: s.mode() == domain.Sequential,
		PlayersEndedTurn: ended,
		AllPlayersEnded:  allEnded,
		Wars:             wars,
	}
}

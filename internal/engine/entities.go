package engine

import (
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/andresmonc/polyempire-sub000/internal/domain"
	"github.com/andresmonc/polyempire-sub000/internal/engine/handlers"
	"github.com/andresmonc/polyempire-sub000/internal/engine/handlers/actions"
	"github.com/andresmonc/polyempire-sub000/pkg/api"
	"github.com/andresmonc/polyempire-sub000/pkg/logger"
)

// entityTable - таблица сущностей одной сессии.
// Счетчик id монотонный от 1, идентификаторы никогда не переиспользуются.
type entityTable struct {
	entities map[int64]*domain.ServerEntity
	nextID   int64
}

func newEntityTable() *entityTable {
	return &entityTable{entities: make(map[int64]*domain.ServerEntity)}
}

func (t *entityTable) Get(id int64) *domain.ServerEntity {
	return t.entities[id]
}

func (t *entityTable) Remove(id int64) {
	delete(t.entities, id)
}

func (t *entityTable) spawn(e *domain.ServerEntity) *domain.ServerEntity {
	t.nextID++
	e.ID = t.nextID
	t.entities[e.ID] = e
	return e
}

// EntityStore - авторитетное хранилище сущностей, по таблице на сессию.
// Мутации проходят только через провалидированные намерения: хендлеры
// зарегистрированы по типу, все прочие намерения на этом уровне no-op.
type EntityStore struct {
	mu       sync.Mutex
	tables   map[string]*entityTable
	handlers map[domain.IntentType]handlers.HandlerFunc
}

func NewEntityStore() *EntityStore {
	s := &EntityStore{
		tables:   make(map[string]*entityTable),
		handlers: make(map[domain.IntentType]handlers.HandlerFunc),
	}
	s.registerHandlers()
	return s
}

func (s *EntityStore) registerHandlers() {
	s.handlers[domain.IntentMoveTo] = handlers.WithPayload(actions.HandleMoveTo)
	s.handlers[domain.IntentFoundCity] = handlers.WithPayload(actions.HandleFoundCity)
	s.handlers[domain.IntentAttack] = handlers.WithPayload(actions.HandleAttack)

	// Экономика (BUILD, SET_PRODUCTION) не отражается в авторитетном
	// хранилище: клиенты проигрывают её локально из лога действий.
	s.handlers[domain.IntentBuild] = handlers.NoOp
	s.handlers[domain.IntentSetProduction] = handlers.NoOp
	s.handlers[domain.IntentEndTurn] = handlers.NoOp
}

// Initialize создает по одному поселенцу на каждую стартовую позицию.
// Повторные вызовы для той же сессии дозаселяют существующую таблицу
// (так подключаются новые игроки).
func (s *EntityStore) Initialize(sessionID string, positions []domain.StartingPosition) {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, ok := s.tables[sessionID]
	if !ok {
		table = newEntityTable()
		s.tables[sessionID] = table
	}

	for _, sp := range positions {
		ent := table.spawn(&domain.ServerEntity{
			OwnerID:  sp.PlayerID,
			CivID:    sp.CivID,
			Type:     domain.EntityTypeUnit,
			Position: sp.Pos,
			Data:     domain.SettlerTemplate(),
		})
		logger.Log.WithFields(logrus.Fields{
			"session": sessionID,
			"entity":  ent.ID,
			"owner":   sp.PlayerID,
		}).Debug("Settler spawned")
	}
}

// ApplyIntent применяет намерение к таблице сессии.
// Только MOVE_TO / FOUND_CITY / ATTACK мутируют состояние.
func (s *EntityStore) ApplyIntent(sessionID string, playerID int64, intent api.Intent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, ok := s.tables[sessionID]
	if !ok {
		return domain.NotFoundf("Game not found")
	}

	handler, ok := s.handlers[domain.ParseIntent(intent.Type)]
	if !ok {
		return nil // неизвестное здесь = no-op, отфильтровано валидатором выше
	}

	res, err := handler(handlers.Context{Table: table, PlayerID: playerID}, intent.Payload)
	if err != nil {
		return err
	}
	if res.Mutated {
		logger.Log.WithFields(logrus.Fields{
			"session": sessionID,
			"player":  playerID,
			"intent":  intent.Type,
		}).Debug("Entity store mutated")
	}
	return nil
}

// Snapshot собирает полный снимок сущностей сессии (отсортирован по id).
func (s *EntityStore) Snapshot(sessionID string) *api.FullState {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, ok := s.tables[sessionID]
	if !ok {
		return &api.FullState{Entities: []api.EntityState{}}
	}

	views := make([]api.EntityState, 0, len(table.entities))
	for _, e := range table.entities {
		views = append(views, e.View())
	}
	sort.Slice(views, func(i, j int) bool { return views[i].ID < views[j].ID })
	return &api.FullState{Entities: views}
}

// Entities возвращает проекцию всех сущностей сессии.
func (s *EntityStore) Entities(sessionID string) []api.EntityState {
	return s.Snapshot(sessionID).Entities
}

// PlayerEntities возвращает проекцию сущностей одного владельца.
func (s *EntityStore) PlayerEntities(sessionID string, playerID int64) []api.EntityState {
	all := s.Snapshot(sessionID).Entities
	own := make([]api.EntityState, 0, len(all))
	for _, e := range all {
		if e.OwnerID == playerID {
			own = append(own, e)
		}
	}
	return own
}

// Cleanup выбрасывает таблицу сессии вместе со счетчиком id.
func (s *EntityStore) Cleanup(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tables, sessionID)
}

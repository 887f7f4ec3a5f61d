package client

import (
	"encoding/json"
	"sort"

	"github.com/andresmonc/polyempire-sub000/internal/domain"
	"github.com/andresmonc/polyempire-sub000/pkg/api"
)

// LocalEntity - сущность в клиентской симуляции.
// Форма намеренно совпадает с серверной проекцией: так согласователю
// не нужны переводчики полей, только переводчик id.
type LocalEntity struct {
	ID       int64
	OwnerID  int64
	CivID    string
	Type     string
	Position api.TilePos
	Data     map[string]any
}

func (e *LocalEntity) Number(key string) float64 {
	if v, ok := e.Data[key].(float64); ok {
		return v
	}
	return 0
}

func (e *LocalEntity) Str(key string) string {
	if v, ok := e.Data[key].(string); ok {
		return v
	}
	return ""
}

// Clone делает глубокую копию (data-мешок копируется).
func (e *LocalEntity) Clone() *LocalEntity {
	cp := *e
	cp.Data = make(map[string]any, len(e.Data))
	for k, v := range e.Data {
		cp.Data[k] = v
	}
	return &cp
}

// LocalSim - то, что очередь и согласователь требуют от симуляции клиента.
// Головной клиент держит свое состояние здесь, бот - минимальный MemorySim.
type LocalSim interface {
	Entities() []*LocalEntity
	Get(id int64) *LocalEntity
	Spawn(e *LocalEntity) *LocalEntity
	Destroy(id int64)
	Restore(e *LocalEntity)
	Apply(playerID int64, intent api.Intent) error
}

// MemorySim - симуляция в памяти со своим счетчиком локальных id.
// Счетчик независим от серверного: совпадение id двух сторон - совпадение,
// а не гарантия. Для перевода есть IDMap.
type MemorySim struct {
	entities map[int64]*LocalEntity
	nextID   int64
}

func NewMemorySim() *MemorySim {
	return &MemorySim{
		entities: make(map[int64]*LocalEntity),
		nextID:   1,
	}
}

func (s *MemorySim) Entities() []*LocalEntity {
	out := make([]*LocalEntity, 0, len(s.entities))
	for _, e := range s.entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *MemorySim) Get(id int64) *LocalEntity {
	return s.entities[id]
}

// Spawn присваивает локальный id и регистрирует сущность.
func (s *MemorySim) Spawn(e *LocalEntity) *LocalEntity {
	e.ID = s.nextID
	s.nextID++
	if e.Data == nil {
		e.Data = make(map[string]any)
	}
	s.entities[e.ID] = e
	return e
}

func (s *MemorySim) Destroy(id int64) {
	delete(s.entities, id)
}

// Restore возвращает сущность на место с её же id (откат оптимизма).
func (s *MemorySim) Restore(e *LocalEntity) {
	s.entities[e.ID] = e
	if e.ID >= s.nextID {
		s.nextID = e.ID + 1
	}
}

// Apply оптимистично применяет намерение к локальному состоянию.
// Семантика зеркалит серверную: та же стоимость хода, тот же шаблон города,
// тот же расчет урона. Расхождения чинит согласователь.
func (s *MemorySim) Apply(playerID int64, intent api.Intent) error {
	switch domain.ParseIntent(intent.Type) {
	case domain.IntentMoveTo:
		var p api.MoveToPayload
		if err := json.Unmarshal(intent.Payload, &p); err != nil {
			return domain.Validationf("Invalid payload: %v", err)
		}
		ent := s.entities[p.EntityID]
		if ent == nil {
			return domain.NotFoundf("Entity not found: %d", p.EntityID)
		}
		if ent.OwnerID != playerID {
			return domain.Unauthorizedf("Entity %d is not owned by player %d", p.EntityID, playerID)
		}
		if ent.Number("mp") <= 0 {
			return domain.Conflictf("Entity %d has no movement points", p.EntityID)
		}
		ent.Position = p.Target
		ent.Data["mp"] = ent.Number("mp") - 1
		return nil

	case domain.IntentFoundCity:
		var p api.FoundCityPayload
		if err := json.Unmarshal(intent.Payload, &p); err != nil {
			return domain.Validationf("Invalid payload: %v", err)
		}
		ent := s.entities[p.EntityID]
		if ent == nil {
			return domain.NotFoundf("Entity not found: %d", p.EntityID)
		}
		if ent.OwnerID != playerID {
			return domain.Unauthorizedf("Entity %d is not owned by player %d", p.EntityID, playerID)
		}
		if ent.Type != domain.EntityTypeUnit || ent.Str("unitType") != "settler" {
			return domain.Conflictf("Entity %d cannot found a city", p.EntityID)
		}
		ent.Type = domain.EntityTypeCity
		ent.Data = domain.CityTemplate()
		if p.Name != "" {
			ent.Data["name"] = p.Name
		}
		return nil

	case domain.IntentAttack:
		var p api.AttackPayload
		if err := json.Unmarshal(intent.Payload, &p); err != nil {
			return domain.Validationf("Invalid payload: %v", err)
		}
		attacker := s.entities[p.AttackerID]
		if attacker == nil {
			return domain.NotFoundf("Entity not found: %d", p.AttackerID)
		}
		if attacker.OwnerID != playerID {
			return domain.Unauthorizedf("Entity %d is not owned by player %d", p.AttackerID, playerID)
		}
		target := s.entities[p.TargetID]
		if target == nil {
			return domain.NotFoundf("Entity not found: %d", p.TargetID)
		}
		health := target.Number("health") - attacker.Number("attack")
		if health <= 0 {
			target.Data["health"] = float64(0)
			s.Destroy(target.ID)
		} else {
			target.Data["health"] = health
		}
		return nil
	}

	// END_TURN и локальные намерения состояние сущностей не трогают
	return nil
}

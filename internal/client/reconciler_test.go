package client

import (
	"sync"
	"testing"

	"github.com/andresmonc/polyempire-sub000/pkg/api"
)

const localPlayer = int64(1)

func serverEntity(id, owner int64, typ string, tx, ty int) api.EntityState {
	return api.EntityState{
		ID:       id,
		OwnerID:  owner,
		CivID:    "rome",
		Type:     typ,
		Position: api.TilePos{TX: tx, TY: ty},
		Data:     map[string]any{"mp": float64(2)},
	}
}

func newTestReconciler() (*MemorySim, *IDMap, *Reconciler) {
	sim := NewMemorySim()
	ids := NewIDMap()
	return sim, ids, NewReconciler(sim, ids, &sync.Mutex{}, localPlayer)
}

func TestSyncMaterializesUnknownEntities(t *testing.T) {
	sim, ids, rec := newTestReconciler()

	rec.Sync(&api.FullState{Entities: []api.EntityState{
		serverEntity(10, 2, "unit", 4, 4),
		serverEntity(11, 2, "city", 8, 8),
	}})

	if len(sim.Entities()) != 2 {
		t.Fatalf("entities = %d, want 2", len(sim.Entities()))
	}
	if ids.Len() != 2 {
		t.Fatalf("bindings = %d, want 2", ids.Len())
	}

	localID, ok := ids.Local(10)
	if !ok {
		t.Fatal("server 10 must be bound")
	}
	ent := sim.Get(localID)
	if ent.Position.TX != 4 || ent.Type != "unit" {
		t.Errorf("materialized entity = %+v", ent)
	}
}

func TestSyncIsIdempotent(t *testing.T) {
	sim, ids, rec := newTestReconciler()

	state := &api.FullState{Entities: []api.EntityState{
		serverEntity(10, 2, "unit", 4, 4),
		serverEntity(11, localPlayer, "unit", 6, 6),
	}}

	rec.Sync(state)
	countAfterFirst := len(sim.Entities())
	bindingsAfterFirst := ids.Len()

	// Повторное применение того же снимка не создает ни сущностей, ни связей
	rec.Sync(state)
	if len(sim.Entities()) != countAfterFirst {
		t.Errorf("entities after resync = %d, want %d", len(sim.Entities()), countAfterFirst)
	}
	if ids.Len() != bindingsAfterFirst {
		t.Errorf("bindings after resync = %d, want %d", ids.Len(), bindingsAfterFirst)
	}
}

func TestSyncBindsByProximity(t *testing.T) {
	sim, ids, rec := newTestReconciler()

	// Оптимистично созданный юнит в клетке от серверной позиции
	local := sim.Spawn(&LocalEntity{
		OwnerID:  2,
		CivID:    "rome",
		Type:     "unit",
		Position: api.TilePos{TX: 5, TY: 5},
		Data:     map[string]any{},
	})

	rec.Sync(&api.FullState{Entities: []api.EntityState{
		serverEntity(10, 2, "unit", 4, 4), // Чебышев 1 от (5,5)
	}})

	if len(sim.Entities()) != 1 {
		t.Fatalf("entities = %d, want 1 (bound, not duplicated)", len(sim.Entities()))
	}
	if lid, ok := ids.Local(10); !ok || lid != local.ID {
		t.Errorf("server 10 bound to %d (ok=%v), want %d", lid, ok, local.ID)
	}
}

func TestSyncProximityTieBreak(t *testing.T) {
	sim, ids, rec := newTestReconciler()

	// Два кандидата: один вплотную, один по диагонали
	near := sim.Spawn(&LocalEntity{OwnerID: 2, Type: "unit", Position: api.TilePos{TX: 4, TY: 4}, Data: map[string]any{}})
	sim.Spawn(&LocalEntity{OwnerID: 2, Type: "unit", Position: api.TilePos{TX: 5, TY: 5}, Data: map[string]any{}})

	rec.Sync(&api.FullState{Entities: []api.EntityState{
		serverEntity(10, 2, "unit", 4, 4),
	}})

	if lid, _ := ids.Local(10); lid != near.ID {
		t.Errorf("bound local = %d, want nearest %d", lid, near.ID)
	}
}

func TestSyncTieBreakPrefersLowestLocalID(t *testing.T) {
	sim, ids, rec := newTestReconciler()

	// Оба кандидата на одинаковой дистанции - берется меньший локальный id
	first := sim.Spawn(&LocalEntity{OwnerID: 2, Type: "unit", Position: api.TilePos{TX: 3, TY: 4}, Data: map[string]any{}})
	sim.Spawn(&LocalEntity{OwnerID: 2, Type: "unit", Position: api.TilePos{TX: 5, TY: 4}, Data: map[string]any{}})

	rec.Sync(&api.FullState{Entities: []api.EntityState{
		serverEntity(10, 2, "unit", 4, 4),
	}})

	if lid, _ := ids.Local(10); lid != first.ID {
		t.Errorf("bound local = %d, want lowest id %d", lid, first.ID)
	}
}

func TestSyncBindsAcrossTypeChange(t *testing.T) {
	sim, ids, rec := newTestReconciler()

	// Локально город уже основан, сервер еще числит сущность юнитом.
	// Потерянная связь не должна плодить дубликат: владелец и клетка решают.
	local := sim.Spawn(&LocalEntity{
		OwnerID:  2,
		Type:     "city",
		Position: api.TilePos{TX: 4, TY: 4},
		Data:     map[string]any{},
	})

	rec.Sync(&api.FullState{Entities: []api.EntityState{
		serverEntity(10, 2, "unit", 4, 4),
	}})

	if len(sim.Entities()) != 1 {
		t.Fatalf("entities = %d, want 1 (bound, not duplicated)", len(sim.Entities()))
	}
	if lid, _ := ids.Local(10); lid != local.ID {
		t.Errorf("server 10 bound to %d, want %d", lid, local.ID)
	}
	// Чужая сущность: тип приходит с сервера
	if got := sim.Get(local.ID).Type; got != "unit" {
		t.Errorf("type after sync = %q, want server's %q", got, "unit")
	}
}

func TestSyncOwnerMismatchFailsClosed(t *testing.T) {
	sim, ids, rec := newTestReconciler()

	// Рядом стоит чужая по владельцу сущность: связывать нельзя
	stranger := sim.Spawn(&LocalEntity{OwnerID: localPlayer, Type: "unit", Position: api.TilePos{TX: 4, TY: 4}, Data: map[string]any{}})

	rec.Sync(&api.FullState{Entities: []api.EntityState{
		serverEntity(10, 2, "unit", 4, 4),
	}})

	if _, ok := ids.Server(stranger.ID); ok {
		t.Fatal("entity with mismatched owner must not be bound")
	}
	// Серверная сущность материализована отдельно
	if len(sim.Entities()) != 2 {
		t.Errorf("entities = %d, want 2 (duplicate over misbinding)", len(sim.Entities()))
	}
}

func TestSyncDoesNotOverwriteOwnEntities(t *testing.T) {
	sim, ids, rec := newTestReconciler()

	local := sim.Spawn(&LocalEntity{
		OwnerID:  localPlayer,
		Type:     "unit",
		Position: api.TilePos{TX: 9, TY: 9},
		Data:     map[string]any{"mp": float64(1)},
	})
	ids.Bind(local.ID, 10)

	// Сервер еще не видел оптимистичного перемещения
	rec.Sync(&api.FullState{Entities: []api.EntityState{
		serverEntity(10, localPlayer, "unit", 4, 4),
	}})

	if local.Position.TX != 9 {
		t.Errorf("own entity position overwritten: %+v", local.Position)
	}
	if local.Number("mp") != 1 {
		t.Errorf("own entity data overwritten: mp = %v", local.Number("mp"))
	}
}

func TestSyncUpdatesForeignEntities(t *testing.T) {
	sim, ids, rec := newTestReconciler()

	local := sim.Spawn(&LocalEntity{
		OwnerID:  2,
		Type:     "unit",
		Position: api.TilePos{TX: 4, TY: 4},
		Data:     map[string]any{"health": float64(100)},
	})
	ids.Bind(local.ID, 10)

	srv := serverEntity(10, 2, "unit", 7, 7)
	srv.Data = map[string]any{"health": float64(42)}
	rec.Sync(&api.FullState{Entities: []api.EntityState{srv}})

	if local.Position.TX != 7 {
		t.Errorf("foreign entity position = %+v, want server's", local.Position)
	}
	if local.Number("health") != 42 {
		t.Errorf("foreign entity health = %v, want 42", local.Number("health"))
	}
}

func TestSweepDestroysVanishedEntities(t *testing.T) {
	sim, ids, rec := newTestReconciler()

	rec.Sync(&api.FullState{Entities: []api.EntityState{
		serverEntity(10, 2, "unit", 4, 4),
		serverEntity(11, 2, "unit", 8, 8),
	}})
	if len(sim.Entities()) != 2 {
		t.Fatalf("setup entities = %d, want 2", len(sim.Entities()))
	}

	// Сущность 11 убита на сервере и пропала из снимка
	rec.Sync(&api.FullState{Entities: []api.EntityState{
		serverEntity(10, 2, "unit", 4, 4),
	}})

	if len(sim.Entities()) != 1 {
		t.Fatalf("entities after sweep = %d, want 1", len(sim.Entities()))
	}
	if _, ok := ids.Local(11); ok {
		t.Error("binding for vanished entity must be dropped")
	}
}

func TestSweepKeepsOwnPendingEntities(t *testing.T) {
	sim, _, rec := newTestReconciler()

	// Свой, еще не подтвержденный сервером юнит
	pending := sim.Spawn(&LocalEntity{OwnerID: localPlayer, Type: "unit", Position: api.TilePos{TX: 1, TY: 1}, Data: map[string]any{}})
	// Чужой фантом без связи
	phantom := sim.Spawn(&LocalEntity{OwnerID: 5, Type: "unit", Position: api.TilePos{TX: 20, TY: 20}, Data: map[string]any{}})

	rec.Sync(&api.FullState{Entities: []api.EntityState{}})

	if sim.Get(pending.ID) == nil {
		t.Error("own pending entity must survive the sweep")
	}
	if sim.Get(phantom.ID) != nil {
		t.Error("foreign unbound phantom must be destroyed")
	}
}

func TestIDMapBijection(t *testing.T) {
	m := NewIDMap()

	m.Bind(1, 100)
	m.Bind(2, 200)

	// Перепривязка рвет обе старые связи
	m.Bind(1, 200)

	if _, ok := m.Local(100); ok {
		t.Error("server 100 must be unbound")
	}
	if _, ok := m.Server(2); ok {
		t.Error("local 2 must be unbound")
	}
	if sid, _ := m.Server(1); sid != 200 {
		t.Errorf("local 1 -> %d, want 200", sid)
	}
	if m.Len() != 1 {
		t.Errorf("len = %d, want 1", m.Len())
	}

	m.UnbindServer(200)
	if m.Len() != 0 {
		t.Errorf("len after unbind = %d, want 0", m.Len())
	}
}

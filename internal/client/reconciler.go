package client

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/andresmonc/polyempire-sub000/pkg/api"
	"github.com/andresmonc/polyempire-sub000/pkg/logger"
)

// Reconciler сводит авторитетный серверный снимок с локальной симуляцией.
// Сервер прав во всем, кроме сущностей самого игрока: их состояние
// защищено от перезаписи, чтобы не затирать еще не подтвержденный оптимизм.
//
// guard - общий замок с очередью намерений: симуляцию и карту id трогают
// и горутина поллера (Sync), и горутины отправки (откат).
type Reconciler struct {
	sim      LocalSim
	ids      *IDMap
	guard    *sync.Mutex
	playerID int64
}

func NewReconciler(sim LocalSim, ids *IDMap, guard *sync.Mutex, playerID int64) *Reconciler {
	return &Reconciler{sim: sim, ids: ids, guard: guard, playerID: playerID}
}

// chebyshev - дистанция короля: максимум модулей разниц координат.
func chebyshev(a, b api.TilePos) int {
	dx := a.TX - b.TX
	if dx < 0 {
		dx = -dx
	}
	dy := a.TY - b.TY
	if dy < 0 {
		dy = -dy
	}
	if dx > dy {
		return dx
	}
	return dy
}

// Sync применяет полный серверный снимок.
// Три фазы: обновление по известным связям, поиск соответствий для
// несвязанных, уборка локальных сущностей, пропавших на сервере.
func (r *Reconciler) Sync(state *api.FullState) {
	if state == nil {
		return
	}

	r.guard.Lock()
	defer r.guard.Unlock()

	seen := make(map[int64]bool, len(state.Entities))

	var unmatched []api.EntityState
	for _, srv := range state.Entities {
		seen[srv.ID] = true
		if localID, ok := r.ids.Local(srv.ID); ok {
			r.update(localID, srv)
		} else {
			unmatched = append(unmatched, srv)
		}
	}

	for _, srv := range unmatched {
		r.adopt(srv)
	}

	r.sweep(seen)
}

// update переносит серверное состояние в связанную локальную сущность.
// Своих не трогаем: оптимистичные изменения игрока авторитетнее
// снимка, который мог быть сделан до их подтверждения.
func (r *Reconciler) update(localID int64, srv api.EntityState) {
	ent := r.sim.Get(localID)
	if ent == nil {
		// Связь протухла: локальную сторону уже уничтожили
		r.ids.UnbindServer(srv.ID)
		r.adopt(srv)
		return
	}
	if srv.OwnerID == r.playerID {
		return
	}

	ent.OwnerID = srv.OwnerID
	ent.CivID = srv.CivID
	ent.Type = srv.Type
	ent.Position = srv.Position
	ent.Data = make(map[string]any, len(srv.Data))
	for k, v := range srv.Data {
		ent.Data[k] = v
	}
}

// adopt ищет локального двойника для несвязанной серверной сущности.
// Кандидат: несвязанная локальная сущность того же владельца в пределах
// одной клетки (по Чебышеву). Тип не сравниваем: локально предсказанное
// основание города не должно задваивать поселенца, чей серверный двойник
// еще числится юнитом. При нескольких кандидатах берется ближайший,
// при равной дистанции - с меньшим локальным id.
// Владелец не совпал - кандидата нет вовсе: лучше задвоить сущность,
// чем отдать чужую армию под чужой id.
func (r *Reconciler) adopt(srv api.EntityState) {
	var best *LocalEntity
	bestDist := 0

	for _, ent := range r.sim.Entities() {
		if _, bound := r.ids.Server(ent.ID); bound {
			continue
		}
		if ent.OwnerID != srv.OwnerID {
			continue
		}
		d := chebyshev(ent.Position, srv.Position)
		if d > 1 {
			continue
		}
		if best == nil || d < bestDist || (d == bestDist && ent.ID < best.ID) {
			best = ent
			bestDist = d
		}
	}

	if best != nil {
		r.ids.Bind(best.ID, srv.ID)
		r.update(best.ID, srv)
		return
	}

	// Двойника нет - материализуем серверную сущность с нуля
	data := make(map[string]any, len(srv.Data))
	for k, v := range srv.Data {
		data[k] = v
	}
	spawned := r.sim.Spawn(&LocalEntity{
		OwnerID:  srv.OwnerID,
		CivID:    srv.CivID,
		Type:     srv.Type,
		Position: srv.Position,
		Data:     data,
	})

	// Симуляция могла переназначить владельца при спауне.
	// Тогда связь не записываем: пусть лучше сущность задвоится на
	// следующем снимке, чем чужой id привяжется к нашей.
	if spawned.OwnerID != srv.OwnerID {
		logger.Log.WithFields(logrus.Fields{
			"server_id":    srv.ID,
			"server_owner": srv.OwnerID,
			"local_owner":  spawned.OwnerID,
		}).Warn("Owner mismatch after materialization, mapping withheld")
		return
	}
	r.ids.Bind(spawned.ID, srv.ID)

	logger.Log.WithFields(logrus.Fields{
		"server_id": srv.ID,
		"local_id":  spawned.ID,
		"owner":     srv.OwnerID,
	}).Debug("Materialized server entity")
}

// sweep уничтожает локальные сущности, чьи серверные двойники пропали
// из снимка. Несвязанные сущности самого игрока живут дальше:
// сервер их еще не подтвердил.
func (r *Reconciler) sweep(seen map[int64]bool) {
	for _, ent := range r.sim.Entities() {
		serverID, bound := r.ids.Server(ent.ID)
		if bound {
			if !seen[serverID] {
				r.ids.UnbindLocal(ent.ID)
				r.sim.Destroy(ent.ID)
			}
			continue
		}
		if ent.OwnerID != r.playerID {
			// Чужая несвязанная сущность - осиротевший фантом
			r.sim.Destroy(ent.ID)
		}
	}
}

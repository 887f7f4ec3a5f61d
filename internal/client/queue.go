package client

import (
	"context"
	"encoding/json"
	"reflect"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/andresmonc/polyempire-sub000/internal/domain"
	"github.com/andresmonc/polyempire-sub000/pkg/api"
	"github.com/andresmonc/polyempire-sub000/pkg/logger"
)

// entitySnapshot хранит состояние сущности до и после оптимистичного
// применения. nil в after означает, что сущность была уничтожена.
type entitySnapshot struct {
	before *LocalEntity
	after  *LocalEntity
}

// Queue - очередь намерений клиента.
// Локальные намерения (выбор, режим) дальше клиента не уходят.
// Серверные применяются оптимистично к симуляции и отправляются асинхронно;
// отказ сервера откатывает локальный эффект.
type Queue struct {
	// mu - общий замок с согласователем: оба мутируют одну симуляцию
	// и одну карту id из разных горутин.
	mu *sync.Mutex

	sim       LocalSim
	ids       *IDMap
	transport *Transport

	sessionID string
	playerID  int64

	// Бухгалтерия одновременного режима: END_TURN шлем один раз за ход.
	sequential  bool
	endTurnSent bool
	turn        int

	// Чей сейчас ход по последнему известному снимку состояния.
	currentPlayerID int64
}

func NewQueue(sim LocalSim, ids *IDMap, guard *sync.Mutex, transport *Transport, sessionID string, playerID int64) *Queue {
	return &Queue{
		mu:        guard,
		sim:       sim,
		ids:       ids,
		transport: transport,
		sessionID: sessionID,
		playerID:  playerID,
		// До первого опроса считаем, что ход наш: иначе очередь глохнет
		currentPlayerID: playerID,
	}
}

// Observe скармливает очереди очередной ответ поллинга.
// Смена хода снимает подавление END_TURN.
func (q *Queue) Observe(turn int, sequential bool, currentPlayerID int64) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.sequential = sequential
	q.currentPlayerID = currentPlayerID
	if turn > q.turn {
		q.turn = turn
		q.endTurnSent = false
	}
}

// Enqueue принимает намерение от игровой логики клиента.
// Возвращает ошибку только при локальном отказе; серверный отказ
// приходит позже и выражается откатом.
func (q *Queue) Enqueue(ctx context.Context, intent api.Intent) error {
	t := domain.ParseIntent(intent.Type)
	if t == domain.IntentUnknown {
		return domain.Validationf("Unknown intent type: %s", intent.Type)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	// Локальные намерения обслуживаются на месте и на сервер не уходят
	if t.IsLocal() {
		return q.sim.Apply(q.playerID, intent)
	}

	if t == domain.IntentEndTurn && !q.sequential && q.endTurnSent {
		// Повторный END_TURN в одновременном режиме - тишина, не ошибка
		return nil
	}

	snapshots := q.snapshotTargets(t, intent.Payload)

	if err := q.sim.Apply(q.playerID, intent); err != nil {
		return err
	}
	for _, snap := range snapshots {
		if cur := q.sim.Get(snap.before.ID); cur != nil {
			snap.after = cur.Clone()
		}
	}

	// Чужой ход по последнему снимку - наружу не шлем. Оптимизм остается
	// до ближайшей синхронизации, сервер такую заявку все равно отвергнет.
	if q.currentPlayerID != q.playerID {
		logger.Log.WithField("intent", intent.Type).Debug("Not our turn, intent kept local")
		return nil
	}

	wire, err := q.translate(t, intent)
	if err != nil {
		q.rollback(snapshots)
		return err
	}

	if t == domain.IntentEndTurn && !q.sequential {
		q.endTurnSent = true
	}

	go q.submit(ctx, wire, snapshots)
	return nil
}

// snapshotTargets клонирует сущности, которые намерение может изменить.
func (q *Queue) snapshotTargets(t domain.IntentType, payload json.RawMessage) []*entitySnapshot {
	var ids []int64
	switch t {
	case domain.IntentMoveTo:
		var p api.MoveToPayload
		if json.Unmarshal(payload, &p) == nil {
			ids = append(ids, p.EntityID)
		}
	case domain.IntentFoundCity:
		var p api.FoundCityPayload
		if json.Unmarshal(payload, &p) == nil {
			ids = append(ids, p.EntityID)
		}
	case domain.IntentAttack:
		var p api.AttackPayload
		if json.Unmarshal(payload, &p) == nil {
			ids = append(ids, p.AttackerID, p.TargetID)
		}
	}

	snaps := make([]*entitySnapshot, 0, len(ids))
	for _, id := range ids {
		if ent := q.sim.Get(id); ent != nil {
			snaps = append(snaps, &entitySnapshot{before: ent.Clone()})
		}
	}
	return snaps
}

// translate переписывает локальные id сущностей в серверные.
// Несвязанная сущность - ошибка: сервер о ней еще не знает.
func (q *Queue) translate(t domain.IntentType, intent api.Intent) (api.Intent, error) {
	switch t {
	case domain.IntentMoveTo:
		var p api.MoveToPayload
		if err := json.Unmarshal(intent.Payload, &p); err != nil {
			return intent, domain.Validationf("Invalid payload: %v", err)
		}
		sid, ok := q.ids.Server(p.EntityID)
		if !ok {
			return intent, domain.Conflictf("Entity %d is not yet acknowledged by server", p.EntityID)
		}
		p.EntityID = sid
		return repack(intent, p)

	case domain.IntentFoundCity:
		var p api.FoundCityPayload
		if err := json.Unmarshal(intent.Payload, &p); err != nil {
			return intent, domain.Validationf("Invalid payload: %v", err)
		}
		sid, ok := q.ids.Server(p.EntityID)
		if !ok {
			return intent, domain.Conflictf("Entity %d is not yet acknowledged by server", p.EntityID)
		}
		p.EntityID = sid
		return repack(intent, p)

	case domain.IntentAttack:
		var p api.AttackPayload
		if err := json.Unmarshal(intent.Payload, &p); err != nil {
			return intent, domain.Validationf("Invalid payload: %v", err)
		}
		aid, ok := q.ids.Server(p.AttackerID)
		if !ok {
			return intent, domain.Conflictf("Entity %d is not yet acknowledged by server", p.AttackerID)
		}
		tid, ok := q.ids.Server(p.TargetID)
		if !ok {
			return intent, domain.Conflictf("Entity %d is not yet acknowledged by server", p.TargetID)
		}
		p.AttackerID, p.TargetID = aid, tid
		return repack(intent, p)
	}

	// END_TURN и прочие уходят как есть
	return intent, nil
}

func repack(intent api.Intent, payload any) (api.Intent, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return intent, domain.Validationf("Invalid payload: %v", err)
	}
	intent.Payload = buf
	return intent, nil
}

// submit отправляет намерение и откатывает оптимизм при отказе.
func (q *Queue) submit(ctx context.Context, intent api.Intent, snapshots []*entitySnapshot) {
	resp, err := q.transport.SubmitAction(ctx, q.sessionID, api.SubmitActionRequest{
		PlayerID: q.playerID,
		Intent:   intent,
	})

	if err == nil && resp.Success {
		return
	}

	reason := "rejected"
	if err != nil {
		reason = err.Error()
	} else if resp.Error != "" {
		reason = resp.Error
	}
	logger.Log.WithFields(logrus.Fields{
		"intent": intent.Type,
		"reason": reason,
	}).Warn("Server rejected intent, rolling back")

	q.mu.Lock()
	q.rollback(snapshots)
	q.mu.Unlock()
}

// rollback восстанавливает сущности из снимков.
// Снимок применяется только если текущее состояние все еще совпадает
// с оптимистичным результатом: пришедшее с сервера свежее состояние
// откат не трогает.
func (q *Queue) rollback(snapshots []*entitySnapshot) {
	for _, snap := range snapshots {
		cur := q.sim.Get(snap.before.ID)
		if snap.after == nil {
			// Оптимизм уничтожил сущность: вернем, если её так и нет
			if cur == nil {
				q.sim.Restore(snap.before.Clone())
			}
			continue
		}
		if cur != nil && !reflect.DeepEqual(cur, snap.after) {
			// Состояние уже перезаписано согласователем
			continue
		}
		q.sim.Restore(snap.before.Clone())
	}
}

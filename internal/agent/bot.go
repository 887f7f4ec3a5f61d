package agent

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/andresmonc/polyempire-sub000/internal/client"
	"github.com/andresmonc/polyempire-sub000/pkg/api"
	"github.com/andresmonc/polyempire-sub000/pkg/logger"
)

// Bot представляет собой "Игрока-компьютера" (Headless Agent).
// Это пример ВНЕШНЕГО клиента: бот общается с сервером тем же REST
// протоколом, что и обычный клиент, со своей симуляцией, картой id и
// согласователем. Внутрь движка он не заглядывает.
//
// Жизненный цикл:
//  1. Join -> подключение к партии, получение playerId.
//  2. Run -> цикл поллинга; каждый ответ прогоняется через согласователь.
//  3. Когда наступает ход бота, он двигает первого юнита с очками хода
//     и завершает ход.
type Bot struct {
	Name  string
	CivID string

	transport *client.Transport
	sim       *client.MemorySim
	ids       *client.IDMap
	guard     sync.Mutex // общий замок очереди и согласователя

	sessionID string
	playerID  int64

	queue      *client.Queue
	reconciler *client.Reconciler

	sequential    bool
	lastActedTurn int
}

func NewBot(baseURL, name, civID string) *Bot {
	return &Bot{
		Name:      name,
		CivID:     civID,
		transport: client.NewTransport(baseURL),
		sim:       client.NewMemorySim(),
		ids:       client.NewIDMap(),
	}
}

// Join подключает бота к существующей партии.
func (b *Bot) Join(ctx context.Context, sessionID string) error {
	resp, err := b.transport.JoinGame(ctx, sessionID, api.JoinGameRequest{
		PlayerName: b.Name,
		CivID:      b.CivID,
	})
	if err != nil {
		return err
	}

	b.sessionID = sessionID
	b.playerID = resp.PlayerID
	b.queue = client.NewQueue(b.sim, b.ids, &b.guard, b.transport, sessionID, b.playerID)
	b.reconciler = client.NewReconciler(b.sim, b.ids, &b.guard, b.playerID)

	logger.Log.WithFields(logrus.Fields{
		"session": sessionID,
		"player":  b.playerID,
		"name":    b.Name,
	}).Info("Bot joined game")
	return nil
}

// Run крутит поллинг до отмены контекста. Запускать в горутине.
func (b *Bot) Run(ctx context.Context) {
	poller := client.NewPoller(b.transport, b.sessionID)

	// Оба колбэка зовутся из одной горутины поллера, гонки по полям нет
	poller.OnState = func(resp *api.StateResponse) {
		if resp.FullState != nil {
			b.reconciler.Sync(resp.FullState)
		}
		b.queue.Observe(resp.Turn, b.sequential, resp.CurrentPlayerID)
		if resp.CurrentPlayerID == b.playerID {
			b.takeTurn(ctx, resp.Turn)
		}
	}
	poller.OnInfo = func(info *api.GameInfo) {
		b.sequential = info.IsSequentialMode
		b.queue.Observe(info.CurrentTurn, info.IsSequentialMode, info.CurrentPlayerID)
	}

	poller.Run(ctx)
	logger.Log.WithField("player", b.playerID).Info("Bot shut down")
}

// takeTurn — мозг бота. Стратегия нарочно примитивная:
// подвинуть первого своего юнита с очками хода на клетку восточнее
// и завершить ход. Один заход за игровой ход.
func (b *Bot) takeTurn(ctx context.Context, turn int) {
	if turn <= b.lastActedTurn {
		return
	}
	b.lastActedTurn = turn

	for _, ent := range b.sim.Entities() {
		if ent.OwnerID != b.playerID || ent.Type != "unit" {
			continue
		}
		if ent.Number("mp") <= 0 {
			continue
		}

		payload, err := json.Marshal(api.MoveToPayload{
			EntityID: ent.ID,
			Target:   api.TilePos{TX: ent.Position.TX + 1, TY: ent.Position.TY},
		})
		if err != nil {
			continue
		}
		if err := b.queue.Enqueue(ctx, api.Intent{Type: api.IntentMoveTo, Payload: payload}); err != nil {
			logger.Log.WithError(err).Debug("Bot move rejected locally")
		}
		break
	}

	if err := b.queue.Enqueue(ctx, api.Intent{Type: api.IntentEndTurn}); err != nil {
		logger.Log.WithError(err).Debug("Bot end turn rejected locally")
	}
}

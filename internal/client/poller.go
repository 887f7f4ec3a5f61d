package client

import (
	"context"
	"time"

	"github.com/andresmonc/polyempire-sub000/pkg/api"
	"github.com/andresmonc/polyempire-sub000/pkg/logger"
)

const (
	statePollInterval = 1500 * time.Millisecond
	infoPollInterval  = 1500 * time.Millisecond
)

// Poller опрашивает сервер двумя тикерами в одной горутине:
// состояние (действия + снимок) и метаданные партии (режим, войны, ход).
// Оба результата уходят в колбэки; обработка идет в горутине поллера,
// так что колбэки должны быть быстрыми.
type Poller struct {
	transport *Transport
	sessionID string

	// since - серверная отметка последнего ответа;
	// действия приходят строго позже нее.
	since string

	OnState func(*api.StateResponse)
	OnInfo  func(*api.GameInfo)
}

func NewPoller(transport *Transport, sessionID string) *Poller {
	return &Poller{
		transport: transport,
		sessionID: sessionID,
	}
}

// Run крутит цикл опроса до отмены контекста.
func (p *Poller) Run(ctx context.Context) {
	stateTicker := time.NewTicker(statePollInterval)
	infoTicker := time.NewTicker(infoPollInterval)
	defer stateTicker.Stop()
	defer infoTicker.Stop()

	// Первый опрос сразу, не дожидаясь тика
	p.pollState(ctx)
	p.pollInfo(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-stateTicker.C:
			p.pollState(ctx)
		case <-infoTicker.C:
			p.pollInfo(ctx)
		}
	}
}

func (p *Poller) pollState(ctx context.Context) {
	// Снимок запрашиваем каждый раз: без него согласователь никогда не
	// увидит серверные перемены после первого ответа (чужие ходы, гибель
	// в бою, поселенца нового игрока). Слияние идемпотентно, поэтому
	// даже запоздавший снимок безопасен.
	resp, err := p.transport.GetState(ctx, p.sessionID, p.since, true)
	if err != nil {
		if ctx.Err() == nil {
			logger.Log.WithError(err).Warn("State poll failed")
		}
		return
	}

	// Отметку двигаем только после успешного ответа:
	// потерянный ответ означает повторный запрос с той же отметки
	p.since = resp.Timestamp

	if p.OnState != nil {
		p.OnState(resp)
	}
}

func (p *Poller) pollInfo(ctx context.Context) {
	info, err := p.transport.GetGame(ctx, p.sessionID)
	if err != nil {
		if ctx.Err() == nil {
			logger.Log.WithError(err).Warn("Info poll failed")
		}
		return
	}

	if p.OnInfo != nil {
		p.OnInfo(info)
	}
}

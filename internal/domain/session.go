package domain

import (
	"time"

	"github.com/andresmonc/polyempire-sub000/pkg/api"
)

// Статусы сессии
const (
	StatusWaiting  = "waiting"
	StatusActive   = "active"
	StatusFinished = "finished"
)

// TurnMode - дисциплина хода. Вычисляется из списка войн, не хранится.
type TurnMode uint8

const (
	// Simultaneous: все подключенные игроки ходят в рамках одного хода.
	Simultaneous TurnMode = iota
	// Sequential: ровно один активный игрок, цикл по возрастанию id.
	Sequential
)

func (m TurnMode) String() string {
	if m == Sequential {
		return "sequential"
	}
	return "simultaneous"
}

// PlayerInfo - участник сессии. CivID уникален в рамках сессии.
type PlayerInfo struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CivID     string `json:"civId"`
	Connected bool   `json:"connected"`
	IsHuman   bool   `json:"isHuman"`
}

// War - запись о войне. Хранится направленно, запрашивается в обе стороны.
// Запись никогда не удаляется: история сохраняется, меняется только IsActive.
type War struct {
	Player1ID  int64     `json:"player1Id"`
	Player2ID  int64     `json:"player2Id"`
	DeclaredAt time.Time `json:"declaredAt"`
	IsActive   bool      `json:"isActive"`
}

// Matches сообщает, покрывает ли запись данную неупорядоченную пару.
func (w *War) Matches(p1, p2 int64) bool {
	return (w.Player1ID == p1 && w.Player2ID == p2) ||
		(w.Player1ID == p2 && w.Player2ID == p1)
}

// ActionRecord - одна запись append-only лога действий.
type ActionRecord struct {
	PlayerID  int64      `json:"playerId"`
	Intent    api.Intent `json:"intent"`
	Timestamp time.Time  `json:"timestamp"`
}

// View конвертирует запись в DTO (timestamp в RFC3339Nano).
func (r ActionRecord) View() api.ActionView {
	return api.ActionView{
		PlayerID:  r.PlayerID,
		Intent:    r.Intent,
		Timestamp: r.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}

// StartingPosition - стартовая точка игрока. На каждой создается поселенец.
type StartingPosition struct {
	PlayerID int64
	CivID    string
	Pos      api.TilePos
}

package api

import (
	"encoding/json"
	"time"
)

// --- КЛИЕНТ -> СЕРВЕР ---

// Intent это корневой объект команды от клиента.
// Закрытое размеченное объединение: Type определяет структуру Payload,
// неизвестные теги отклоняются валидатором до какой-либо мутации.
type Intent struct {
	// Type название намерения (MOVE_TO, FOUND_CITY, ATTACK, END_TURN...).
	Type string `json:"type"`

	// Payload JSON-объект с данными. Его структура зависит от Type.
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Теги намерений, известные серверу.
const (
	IntentMoveTo        = "MOVE_TO"
	IntentFoundCity     = "FOUND_CITY"
	IntentAttack        = "ATTACK"
	IntentEndTurn       = "END_TURN"
	IntentBuild         = "BUILD"
	IntentSetProduction = "SET_PRODUCTION"
)

// Теги, существующие только на клиенте. Никогда не уходят в сеть.
const (
	IntentSelect      = "SELECT"
	IntentSetMoveMode = "SET_MOVE_MODE"
	IntentTurnBegan   = "TURN_BEGAN"
)

// TilePos — позиция на тайловой сетке.
type TilePos struct {
	TX int `json:"tx"`
	TY int `json:"ty"`
}

// --- Payloads ---

// MoveToPayload используется для MOVE_TO.
type MoveToPayload struct {
	EntityID int64   `json:"entityId"`
	Target   TilePos `json:"target"`
}

// FoundCityPayload используется для FOUND_CITY. Юнит должен быть поселенцем.
type FoundCityPayload struct {
	EntityID int64  `json:"entityId"`
	Name     string `json:"name,omitempty"`
}

// AttackPayload используется для ATTACK.
type AttackPayload struct {
	AttackerID int64 `json:"attackerId"`
	TargetID   int64 `json:"targetId"`
}

// BuildPayload используется для BUILD.
// Экономика остается авторитетной на клиенте: сервер пишет намерение в лог,
// но свое хранилище не трогает.
type BuildPayload struct {
	CityID     int64  `json:"cityId"`
	BuildingID string `json:"buildingId"`
}

// SetProductionPayload используется для SET_PRODUCTION.
type SetProductionPayload struct {
	CityID int64  `json:"cityId"`
	Item   string `json:"item"`
}

// SelectPayload — локальное выделение сущности (не сетевое).
type SelectPayload struct {
	EntityID int64 `json:"entityId"`
}

// MoveModePayload — переключение режима перемещения (не сетевое).
type MoveModePayload struct {
	Enabled bool `json:"enabled"`
}

// --- СЕРВЕР -> КЛИЕНТ ---

// PlayerView это DTO участника сессии.
type PlayerView struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CivID     string `json:"civId"`
	Connected bool   `json:"connected"`
	IsHuman   bool   `json:"isHuman"`
}

// WarView это DTO записи о войне. Записи не удаляются, только деактивируются.
type WarView struct {
	Player1ID  int64     `json:"player1Id"`
	Player2ID  int64     `json:"player2Id"`
	DeclaredAt time.Time `json:"declaredAt"`
	IsActive   bool      `json:"isActive"`
}

// GameInfo это расширенный снимок сессии.
// IsSequentialMode/PlayersEndedTurn вычисляются на лету, они не хранятся.
type GameInfo struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	Players          []PlayerView `json:"players"`
	CurrentTurn      int          `json:"currentTurn"`
	CurrentPlayerID  int64        `json:"currentPlayerId"`
	Status           string       `json:"status"`
	CreatedAt        time.Time    `json:"createdAt"`
	UpdatedAt        time.Time    `json:"updatedAt"`
	IsSequentialMode bool         `json:"isSequentialMode"`
	PlayersEndedTurn []int64      `json:"playersEndedTurn"`
	AllPlayersEnded  bool         `json:"allPlayersEnded"`
	Wars             []WarView    `json:"wars"`
}

// EntityState это DTO авторитетной сущности.
// Data — открытый мешок атрибутов (mp, health, population...).
type EntityState struct {
	ID       int64          `json:"id"`
	OwnerID  int64          `json:"ownerId"`
	CivID    string         `json:"civId"`
	Type     string         `json:"type"` // unit, city, building
	Position TilePos        `json:"position"`
	Data     map[string]any `json:"data"`
}

// FullState — полный снимок сущностей сессии.
type FullState struct {
	Entities []EntityState `json:"entities"`
}

// ActionView — одна запись из лога действий.
// Timestamp в RFC3339Nano; фильтрация строго "timestamp > since".
type ActionView struct {
	PlayerID  int64  `json:"playerId"`
	Intent    Intent `json:"intent"`
	Timestamp string `json:"timestamp"`
}

// StateResponse это ответ на поллинг состояния.
// Пустой Actions без FullState означает "ничего не изменилось".
type StateResponse struct {
	SessionID       string       `json:"sessionId"`
	Turn            int          `json:"turn"`
	CurrentPlayerID int64        `json:"currentPlayerId"`
	Actions         []ActionView `json:"actions"`
	FullState       *FullState   `json:"fullState,omitempty"`
	Timestamp       string       `json:"timestamp"`
}

// ActionEvent — сообщение фида наблюдателей (/games/{id}/watch).
type ActionEvent struct {
	SessionID string     `json:"sessionId"`
	Turn      int        `json:"turn"`
	Action    ActionView `json:"action"`
}

// --- REST запросы/ответы ---

type CreateGameRequest struct {
	Name       string `json:"name"`
	PlayerName string `json:"playerName"`
	CivID      string `json:"civId"`
}

type CreateGameResponse struct {
	SessionID string   `json:"sessionId"`
	PlayerID  int64    `json:"playerId"`
	Game      GameInfo `json:"game"`
}

type JoinGameRequest struct {
	PlayerName string `json:"playerName"`
	CivID      string `json:"civId"`
}

type JoinGameResponse struct {
	PlayerID int64    `json:"playerId"`
	Game     GameInfo `json:"game"`
}

type SubmitActionRequest struct {
	PlayerID int64  `json:"playerId"`
	Intent   Intent `json:"intent"`
}

type SubmitActionResponse struct {
	Success bool   `json:"success"`
	Turn    int    `json:"turn,omitempty"`
	Error   string `json:"error,omitempty"`
}

type WarRequest struct {
	Player1ID int64 `json:"player1Id"`
	Player2ID int64 `json:"player2Id"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

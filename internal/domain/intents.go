package domain

import (
	"encoding/json"
	"strings"

	"github.com/andresmonc/polyempire-sub000/pkg/api"
)

// IntentType - Внутренний числовой идентификатор намерения
type IntentType uint8

const (
	IntentUnknown IntentType = iota
	IntentMoveTo
	IntentFoundCity
	IntentAttack
	IntentEndTurn
	IntentBuild
	IntentSetProduction
	// Клиентские (локальные) теги. Сервер их не принимает.
	IntentSelect
	IntentSetMoveMode
	IntentTurnBegan
)

// Маппинг для конвертации JSON -> Domain
var intentStringToType = map[string]IntentType{
	api.IntentMoveTo:        IntentMoveTo,
	api.IntentFoundCity:     IntentFoundCity,
	api.IntentAttack:        IntentAttack,
	api.IntentEndTurn:       IntentEndTurn,
	api.IntentBuild:         IntentBuild,
	api.IntentSetProduction: IntentSetProduction,
	api.IntentSelect:        IntentSelect,
	api.IntentSetMoveMode:   IntentSetMoveMode,
	api.IntentTurnBegan:     IntentTurnBegan,
}

// Маппинг для логов Domain -> String
var intentTypeToString = map[IntentType]string{
	IntentMoveTo:        api.IntentMoveTo,
	IntentFoundCity:     api.IntentFoundCity,
	IntentAttack:        api.IntentAttack,
	IntentEndTurn:       api.IntentEndTurn,
	IntentBuild:         api.IntentBuild,
	IntentSetProduction: api.IntentSetProduction,
	IntentSelect:        api.IntentSelect,
	IntentSetMoveMode:   api.IntentSetMoveMode,
	IntentTurnBegan:     api.IntentTurnBegan,
}

// ParseIntent конвертирует строку из JSON в IntentType
func ParseIntent(s string) IntentType {
	// Делаем нечувствительным к регистру для надежности
	upper := strings.ToUpper(s)
	if val, ok := intentStringToType[upper]; ok {
		return val
	}
	return IntentUnknown
}

// String реализует интерфейс Stringer (для fmt.Printf)
func (t IntentType) String() string {
	if val, ok := intentTypeToString[t]; ok {
		return val
	}
	return "UNKNOWN"
}

// IsLocal сообщает, что намерение никогда не должно уходить в сеть.
func (t IntentType) IsLocal() bool {
	return t == IntentSelect || t == IntentSetMoveMode || t == IntentTurnBegan
}

// ValidateIntent проверяет форму намерения до какой-либо мутации состояния.
// Неизвестный тег или кривой payload дают типизированную ошибку Validation,
// и дальше намерение не идет.
func ValidateIntent(intent api.Intent) error {
	t := ParseIntent(intent.Type)
	if t == IntentUnknown || t.IsLocal() {
		return Validationf("Unknown intent type: %s", intent.Type)
	}

	var v api.Validator
	switch t {
	case IntentMoveTo:
		v = &api.MoveToPayload{}
	case IntentFoundCity:
		v = &api.FoundCityPayload{}
	case IntentAttack:
		v = &api.AttackPayload{}
	case IntentBuild:
		v = &api.BuildPayload{}
	case IntentSetProduction:
		v = &api.SetProductionPayload{}
	case IntentEndTurn:
		// END_TURN не несет данных
		return nil
	}

	if len(intent.Payload) == 0 {
		return Validationf("%s requires a payload", intent.Type)
	}
	if err := json.Unmarshal(intent.Payload, v); err != nil {
		return Validationf("invalid payload for %s: %v", intent.Type, err)
	}
	if err := v.Validate(); err != nil {
		return Validationf("validation failed for %s: %v", intent.Type, err)
	}
	return nil
}

package domain

import "github.com/andresmonc/polyempire-sub000/pkg/api"

// Типы сущностей
const (
	EntityTypeUnit     = "unit"
	EntityTypeCity     = "city"
	EntityTypeBuilding = "building"
)

// ServerEntity - авторитетная сущность симуляции.
// ID уникален в рамках сессии, счетчик монотонный от 1, id не переиспользуются.
type ServerEntity struct {
	ID       int64          `json:"id"`
	OwnerID  int64          `json:"ownerId"`
	CivID    string         `json:"civId"`
	Type     string         `json:"type"`
	Position api.TilePos    `json:"position"`
	Data     map[string]any `json:"data"`
}

// Number достает числовой атрибут из мешка данных.
// JSON дает float64, но после мутаций в мешке могут лежать и int.
func (e *ServerEntity) Number(key string) (float64, bool) {
	switch v := e.Data[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// Str достает строковый атрибут.
func (e *ServerEntity) Str(key string) (string, bool) {
	v, ok := e.Data[key].(string)
	return v, ok
}

// View конвертирует сущность в DTO полного снимка.
// Мешок данных копируется: снимок не должен делить память с хранилищем.
func (e *ServerEntity) View() api.EntityState {
	data := make(map[string]any, len(e.Data))
	for k, v := range e.Data {
		data[k] = v
	}
	return api.EntityState{
		ID:       e.ID,
		OwnerID:  e.OwnerID,
		CivID:    e.CivID,
		Type:     e.Type,
		Position: e.Position,
		Data:     data,
	}
}

// SettlerTemplate - фиксированный шаблон поселенца для стартовых юнитов.
func SettlerTemplate() map[string]any {
	return map[string]any{
		"unitType":  "settler",
		"mp":        float64(2),
		"maxMp":     float64(2),
		"health":    float64(100),
		"maxHealth": float64(100),
		"attack":    float64(8),
	}
}

// CityTemplate - мешок данных нового города (FOUND_CITY заменяет данные юнита).
func CityTemplate() map[string]any {
	return map[string]any{
		"population": float64(1),
		"food":       float64(0),
		"production": float64(0),
		"gold":       float64(0),
	}
}

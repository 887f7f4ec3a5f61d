package handlers

import (
	"encoding/json"

	"github.com/andresmonc/polyempire-sub000/internal/domain"
)

// EntityTable описывает таблицу сущностей одной сессии.
// Хранилище неявно реализует этот интерфейс.
type EntityTable interface {
	Get(id int64) *domain.ServerEntity
	Remove(id int64)
}

// Context передает хендлеру состояние сессии.
// Мы передаем ссылки, чтобы хендлер мог менять состояние (мутировать данные).
type Context struct {
	Table    EntityTable
	PlayerID int64 // Тот, кто выполняет намерение
}

// Result - результат выполнения намерения.
type Result struct {
	// Mutated true, если хранилище было изменено.
	Mutated bool
}

// HandlerFunc - это контракт для любого намерения (MOVE_TO, ATTACK, etc).
type HandlerFunc func(ctx Context, payload json.RawMessage) (Result, error)

// NoOp - хендлер для намерений, которые не трогают авторитетное хранилище
// (экономика остается на клиенте). Запись в лог делается выше.
func NoOp(Context, json.RawMessage) (Result, error) {
	return Result{}, nil
}

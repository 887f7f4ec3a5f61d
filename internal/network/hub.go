package network

import (
	"sync"

	"github.com/andresmonc/polyempire-sub000/pkg/api"
)

// Hub занимается только рассылкой записей лога действий наблюдателям.
// Игровой протокол остается поллингом: фид — дополнительный read-only канал.
type Hub struct {
	mu sync.RWMutex
	// sessionID -> watcherID -> личный канал
	watchers map[string]map[string]chan api.ActionEvent
}

func NewHub() *Hub {
	return &Hub{
		watchers: make(map[string]map[string]chan api.ActionEvent),
	}
}

// Subscribe создает личный канал наблюдателя за сессией.
func (h *Hub) Subscribe(sessionID, watcherID string) chan api.ActionEvent {
	h.mu.Lock()
	defer h.mu.Unlock()

	session, ok := h.watchers[sessionID]
	if !ok {
		session = make(map[string]chan api.ActionEvent)
		h.watchers[sessionID] = session
	}

	// Если канал был, закрываем
	if old, ok := session[watcherID]; ok {
		close(old)
	}

	ch := make(chan api.ActionEvent, 64)
	session[watcherID] = ch
	return ch
}

// Unsubscribe удаляет наблюдателя.
func (h *Hub) Unsubscribe(sessionID, watcherID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	session, ok := h.watchers[sessionID]
	if !ok {
		return
	}
	if ch, ok := session[watcherID]; ok {
		close(ch)
		delete(session, watcherID)
	}
	if len(session) == 0 {
		delete(h.watchers, sessionID)
	}
}

// Publish рассылает событие всем наблюдателям сессии.
// Никогда не блокирует: медленный наблюдатель теряет события.
func (h *Hub) Publish(sessionID string, ev api.ActionEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.watchers[sessionID] {
		select {
		case ch <- ev:
		default:
		}
	}
}

// DropSession закрывает все каналы сессии (вызывается жнецом).
func (h *Hub) DropSession(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.watchers[sessionID] {
		close(ch)
	}
	delete(h.watchers, sessionID)
}

// WatcherCount возвращает количество наблюдателей сессии.
func (h *Hub) WatcherCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.watchers[sessionID])
}

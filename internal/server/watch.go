package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/andresmonc/polyempire-sub000/pkg/api"
	"github.com/andresmonc/polyempire-sub000/pkg/logger"
	"github.com/andresmonc/polyempire-sub000/pkg/utils"
)

// Настройки WebSocket
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Watcher - зрительское подключение к фиду действий сессии.
// Фид строго read-only: намерения по нему не принимаются,
// игровой протокол остается на поллинге.
type Watcher struct {
	Conn      *websocket.Conn
	Send      <-chan api.ActionEvent
	SessionID string
	ID        string
}

// handleWatch поднимает WebSocket и подписывает зрителя на события сессии
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if _, err := s.Engine.GameInfo(sessionID); err != nil {
		writeError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Error("Upgrade error:", err)
		return
	}

	watcher := &Watcher{
		Conn:      conn,
		SessionID: sessionID,
		ID:        utils.GenerateID(),
	}
	watcher.Send = s.Engine.Hub.Subscribe(sessionID, watcher.ID)

	logger.Log.WithFields(logrus.Fields{
		"session": sessionID,
		"watcher": watcher.ID,
	}).Info("Watcher connected")

	// Запускаем пампы
	go watcher.writePump()
	go watcher.readPump(s)
}

// readPump только следит за pong и закрытием: входящие сообщения игнорируются
func (c *Watcher) readPump(s *Server) {
	defer func() {
		s.Engine.Hub.Unsubscribe(c.SessionID, c.ID)
		if err := c.Conn.Close(); err != nil {
			logger.Log.WithError(err).Debug("failed to close watcher connection")
		}
		logger.Log.WithField("watcher", c.ID).Info("Watcher disconnected")
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logger.Log.WithError(err).Warn("failed to set read deadline")
	}
	c.Conn.SetPongHandler(func(string) error {
		if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			logger.Log.WithError(err).Warn("failed to set pong read deadline")
		}
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Errorf("Watch WS Error: %v", err)
			}
			return
		}
	}
}

// writePump отправляет события зрителю + Ping
func (c *Watcher) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if err := c.Conn.Close(); err != nil {
			logger.Log.WithError(err).Debug("failed to close watcher connection in writePump")
		}
	}()

	for {
		select {
		case event, ok := <-c.Send:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logger.Log.WithError(err).Warn("failed to set write deadline")
			}
			if !ok {
				if err := c.Conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					logger.Log.WithError(err).Debug("write close message failed")
				}
				return
			}
			if err := c.Conn.WriteJSON(event); err != nil {
				logger.Log.WithError(err).Debug("write json message failed")
				return
			}

		case <-ticker.C:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logger.Log.WithError(err).Warn("failed to set ping write deadline")
			}
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.Log.WithError(err).Debug("ping failed")
				return
			}
		}
	}
}

package transport

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/anime-shed/webcritic-go/internal/logger"
	"github.com/anime-shed/webcritic-go/internal/observer"
	"github.com/anime-shed/webcritic-go/internal/repository"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	sendBuffer     = 32
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// eventStream forwards a session's events to one websocket client.
// It is an observer, so OnEvent must never block the publisher.
type eventStream struct {
	name      string
	sessionID string
	ws        *websocket.Conn
	send      chan observer.Event

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

func newEventStream(ws *websocket.Conn, sessionID string) *eventStream {
	return &eventStream{
		name:      "ws-" + uuid.NewString(),
		sessionID: sessionID,
		ws:        ws,
		send:      make(chan observer.Event, sendBuffer),
		done:      make(chan struct{}),
	}
}

func (s *eventStream) GetObserverName() string { return s.name }

func (s *eventStream) OnEvent(_ context.Context, event observer.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	select {
	case s.send <- event:
	default:
		logger.WithFields(logrus.Fields{
			"session_id": s.sessionID,
			"event_type": event.EventType,
		}).Warn("Event stream buffer full, dropping event")
	}
}

func (s *eventStream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	close(s.send)
	s.mu.Unlock()

	return s.ws.Close()
}

// readPump discards client messages and notices when the client goes away
func (s *eventStream) readPump() {
	defer s.Close()

	s.ws.SetReadLimit(maxMessageSize)
	_ = s.ws.SetReadDeadline(time.Now().Add(pongWait))
	s.ws.SetPongHandler(func(string) error {
		return s.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := s.ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.WithError(err).WithField("session_id", s.sessionID).Warn("Event stream read error")
			}
			return
		}
	}
}

func (s *eventStream) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.Close()
	}()

	for {
		select {
		case event, ok := <-s.send:
			_ = s.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.ws.WriteJSON(event); err != nil {
				logger.WithError(err).WithField("session_id", s.sessionID).Debug("Event stream write failed")
				return
			}

		case <-ticker.C:
			_ = s.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-s.done:
			return
		}
	}
}

// streamEvents upgrades to a websocket that receives the current snapshot
// and then every event of the session until either side hangs up.
func streamEvents(sessions repository.SessionRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := sessions.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, determineStatusCode(err), "session lookup failed", err)
			return
		}

		ws, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.WithError(err).WithField("session_id", sess.ID).Warn("Websocket upgrade failed")
			return
		}

		stream := newEventStream(ws, sess.ID)
		snap := sess.State.Snapshot()
		stream.OnEvent(c.Request.Context(), observer.Event{
			EventType: observer.StateChanged,
			Timestamp: snap.UpdatedAt,
			SessionID: sess.ID,
			Snapshot:  &snap,
		})

		events := sess.State.Events()
		events.Subscribe(stream)
		defer events.Unsubscribe(stream)

		logger.WithFields(logrus.Fields{
			"session_id": sess.ID,
			"ip":         c.ClientIP(),
		}).Info("Event stream opened")

		go stream.writePump()
		stream.readPump()

		logger.WithField("session_id", sess.ID).Info("Event stream closed")
	}
}

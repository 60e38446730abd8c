package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ZWieseDev/TaskSenseiOverview/internal/logger"
)

const (
	writeWait    = 10 * time.Second
	maxFrameSize = 128 << 10
)

var ErrConnectionGone = errors.New("connection gone")

type liveConn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
}

func (c *liveConn) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// Registry tracks live websocket connections by id.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*liveConn
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*liveConn)}
}

func (r *Registry) add(id string, c *liveConn) {
	r.mu.Lock()
	r.conns[id] = c
	r.mu.Unlock()
}

func (r *Registry) remove(id string) {
	r.mu.Lock()
	delete(r.conns, id)
	r.mu.Unlock()
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

func (r *Registry) Push(_ context.Context, connectionID string, data []byte) error {
	r.mu.RLock()
	c, ok := r.conns[connectionID]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrConnectionGone, connectionID)
	}
	return c.write(data)
}

// TokenValidator checks the access token presented on upgrade.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (string, error)
}

// Server is the websocket transport in front of a Gateway. Each text frame
// is a JSON object routed by its "action" field.
type Server struct {
	gw        *Gateway
	registry  *Registry
	validator TokenValidator
	upgrader  websocket.Upgrader
	log       logger.Interface
}

// NewServer builds the transport. A nil validator accepts anonymous upgrades.
func NewServer(gw *Gateway, registry *Registry, validator TokenValidator, log logger.Interface) *Server {
	return &Server{
		gw:        gw,
		registry:  registry,
		validator: validator,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log: log.Named("ws"),
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.validator != nil {
		if _, err := s.validator.Validate(r.Context(), r.URL.Query().Get("token")); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Unauthorized"}`))
			return
		}
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnw("websocket upgrade failed", "error", err)
		return
	}

	id := uuid.NewString()
	c := &liveConn{ws: ws}
	ws.SetReadLimit(maxFrameSize)

	ctx := r.Context()
	s.registry.add(id, c)
	s.gw.Handle(ctx, Event{RouteKey: RouteConnect, ConnectionID: id})
	s.log.Debugw("connection opened", "connection_id", id)

	defer func() {
		s.registry.remove(id)
		s.gw.Handle(ctx, Event{RouteKey: RouteDisconnect, ConnectionID: id})
		_ = ws.Close()
		s.log.Debugw("connection closed", "connection_id", id)
	}()

	for {
		kind, frame, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Warnw("websocket read failed", "connection_id", id, "error", err)
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}

		resp := s.gw.Handle(ctx, Event{
			RouteKey:     routeKey(frame),
			ConnectionID: id,
			Body:         frame,
		})

		out, err := json.Marshal(resp)
		if err != nil {
			s.log.Errorw("encode frame response", "error", err)
			continue
		}
		if err := c.write(out); err != nil {
			s.log.Warnw("write frame response failed", "connection_id", id, "error", err)
			return
		}
	}
}

func routeKey(frame []byte) string {
	var env struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal(frame, &env); err != nil {
		return ""
	}
	return env.Action
}

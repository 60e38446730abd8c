// Package gateway routes realtime connection and message events.
package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ZWieseDev/TaskSenseiOverview/internal/chat"
	"github.com/ZWieseDev/TaskSenseiOverview/internal/logger"
)

const (
	RouteConnect    = "$connect"
	RouteDisconnect = "$disconnect"
	RouteMessage    = "sendMessage"
)

// Event is one inbound transport event.
type Event struct {
	RouteKey     string
	ConnectionID string
	Body         []byte
}

// Response is the synchronous answer to an event.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

type Sessions interface {
	GetOrCreate(ctx context.Context, userID, connectionID string) (*chat.Session, error)
	AppendHistory(ctx context.Context, userID, msg string) (bool, error)
}

type Relay interface {
	Forward(ctx context.Context, payload []byte) string
}

// Pusher delivers out-of-band data to a live connection.
type Pusher interface {
	Push(ctx context.Context, connectionID string, data []byte) error
}

type Gateway struct {
	sessions Sessions
	relay    Relay
	pusher   Pusher
	log      logger.Interface
}

func New(sessions Sessions, relay Relay, pusher Pusher, log logger.Interface) *Gateway {
	return &Gateway{
		sessions: sessions,
		relay:    relay,
		pusher:   pusher,
		log:      log.Named("gateway"),
	}
}

func (g *Gateway) Handle(ctx context.Context, ev Event) Response {
	switch ev.RouteKey {
	case RouteConnect:
		return Response{StatusCode: http.StatusOK, Body: "Connected"}
	case RouteDisconnect:
		return Response{StatusCode: http.StatusOK, Body: "Disconnected"}
	case RouteMessage:
		return g.handleMessage(ctx, ev)
	default:
		return Response{StatusCode: http.StatusBadRequest, Body: "Invalid action"}
	}
}

type messageBody struct {
	UserID  any `json:"user_id"`
	Message any `json:"message"`
}

func (g *Gateway) handleMessage(ctx context.Context, ev Event) Response {
	body := ev.Body
	if len(body) == 0 {
		body = []byte("{}")
	}

	var in messageBody
	if err := json.Unmarshal(body, &in); err != nil {
		return Response{StatusCode: http.StatusBadRequest, Body: "Missing user_id or message"}
	}
	userID, _ := in.UserID.(string)
	message, _ := in.Message.(string)
	if userID == "" || message == "" {
		return Response{StatusCode: http.StatusBadRequest, Body: "Missing user_id or message"}
	}

	log := g.log.With("user_id", userID, "connection_id", ev.ConnectionID)

	if _, err := g.sessions.GetOrCreate(ctx, userID, ev.ConnectionID); err != nil {
		log.Errorw("session lookup failed", "error", err)
		return Response{StatusCode: http.StatusInternalServerError, Body: "Internal Server Error"}
	}

	if ok, err := g.sessions.AppendHistory(ctx, userID, message); err != nil {
		log.Warnw("append history failed", "error", err)
	} else if !ok {
		log.Warnw("append history skipped, no record")
	}

	reply := g.relay.Forward(ctx, body)

	push, err := json.Marshal(map[string]string{"response": reply})
	if err != nil {
		log.Errorw("encode push", "error", err)
		return Response{StatusCode: http.StatusInternalServerError, Body: "Internal Server Error"}
	}
	if err := g.pusher.Push(ctx, ev.ConnectionID, push); err != nil {
		log.Warnw("push to connection failed", "error", err)
	}

	return Response{StatusCode: http.StatusOK, Body: "Message processed successfully"}
}

package gateway

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZWieseDev/TaskSenseiOverview/internal/chat"
	"github.com/ZWieseDev/TaskSenseiOverview/internal/logger"
)

type fakeSessions struct {
	mu        sync.Mutex
	getErr    error
	appendErr error
	created   []string
	history   map[string][]string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{history: map[string][]string{}}
}

func (f *fakeSessions) GetOrCreate(_ context.Context, userID, connectionID string) (*chat.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	if _, ok := f.history[userID]; !ok {
		f.history[userID] = []string{}
		f.created = append(f.created, userID)
	}
	return &chat.Session{UserID: userID, ConnectionID: connectionID}, nil
}

func (f *fakeSessions) AppendHistory(_ context.Context, userID, msg string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return false, f.appendErr
	}
	f.history[userID] = append(f.history[userID], msg)
	return true, nil
}

type fakeRelay struct {
	mu    sync.Mutex
	reply string
	calls [][]byte
}

func (f *fakeRelay) Forward(_ context.Context, payload []byte) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]byte(nil), payload...))
	return f.reply
}

type fakePusher struct {
	mu     sync.Mutex
	err    error
	pushed map[string][]string
}

func (f *fakePusher) Push(_ context.Context, connectionID string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pushed == nil {
		f.pushed = map[string][]string{}
	}
	f.pushed[connectionID] = append(f.pushed[connectionID], string(data))
	return f.err
}

func newTestGateway() (*Gateway, *fakeSessions, *fakeRelay, *fakePusher) {
	s := newFakeSessions()
	r := &fakeRelay{reply: "relay says hi"}
	p := &fakePusher{}
	return New(s, r, p, logger.Discard()), s, r, p
}

func TestHandle_LifecycleEvents(t *testing.T) {
	gw, s, r, _ := newTestGateway()
	ctx := context.Background()

	assert.Equal(t, Response{StatusCode: http.StatusOK, Body: "Connected"}, gw.Handle(ctx, Event{RouteKey: RouteConnect, ConnectionID: "c1"}))
	assert.Equal(t, Response{StatusCode: http.StatusOK, Body: "Disconnected"}, gw.Handle(ctx, Event{RouteKey: RouteDisconnect, ConnectionID: "c1"}))
	assert.Equal(t, Response{StatusCode: http.StatusBadRequest, Body: "Invalid action"}, gw.Handle(ctx, Event{RouteKey: "deleteEverything"}))

	assert.Empty(t, s.created)
	assert.Empty(t, r.calls)
}

func TestHandle_MessageCreatesSessionRelaysAndPushes(t *testing.T) {
	gw, s, r, p := newTestGateway()
	body := []byte(`{"action":"sendMessage","user_id":"u1","message":"hi","meta":{"k":1}}`)

	resp := gw.Handle(context.Background(), Event{RouteKey: RouteMessage, ConnectionID: "c1", Body: body})

	assert.Equal(t, Response{StatusCode: http.StatusOK, Body: "Message processed successfully"}, resp)
	assert.Equal(t, []string{"u1"}, s.created)
	assert.Equal(t, []string{"hi"}, s.history["u1"])
	require.Len(t, r.calls, 1)
	assert.JSONEq(t, string(body), string(r.calls[0]))
	require.Len(t, p.pushed["c1"], 1)
	assert.JSONEq(t, `{"response":"relay says hi"}`, p.pushed["c1"][0])
}

func TestHandle_MessageValidation(t *testing.T) {
	bodies := map[string]string{
		"missing message": `{"user_id":"u1"}`,
		"empty user":      `{"user_id":"","message":"hi"}`,
		"numeric user":    `{"user_id":7,"message":"hi"}`,
		"malformed":       `{"user_id":`,
		"empty body":      ``,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			gw, s, r, p := newTestGateway()
			resp := gw.Handle(context.Background(), Event{RouteKey: RouteMessage, ConnectionID: "c1", Body: []byte(body)})

			assert.Equal(t, Response{StatusCode: http.StatusBadRequest, Body: "Missing user_id or message"}, resp)
			assert.Empty(t, s.created)
			assert.Empty(t, r.calls)
			assert.Empty(t, p.pushed)
		})
	}
}

func TestHandle_SessionFailureIs500(t *testing.T) {
	gw, s, r, _ := newTestGateway()
	s.getErr = errors.New("db down")

	resp := gw.Handle(context.Background(), Event{RouteKey: RouteMessage, ConnectionID: "c1", Body: []byte(`{"user_id":"u1","message":"hi"}`)})

	assert.Equal(t, Response{StatusCode: http.StatusInternalServerError, Body: "Internal Server Error"}, resp)
	assert.Empty(t, r.calls)
}

func TestHandle_SideEffectFailuresAreSwallowed(t *testing.T) {
	gw, s, r, p := newTestGateway()
	s.appendErr = errors.New("append failed")
	p.err = ErrConnectionGone

	resp := gw.Handle(context.Background(), Event{RouteKey: RouteMessage, ConnectionID: "c1", Body: []byte(`{"user_id":"u1","message":"hi"}`)})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, r.calls, 1)
}

package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whatsrelay/pkg/whatsapp/types"
)

// fakeBridge answers every request with the frame built by respond
type fakeBridge struct {
	server  *httptest.Server
	respond func(frame) frame

	mu       sync.Mutex
	conn     *websocket.Conn
	requests []frame
	headers  http.Header
}

func newFakeBridge(t *testing.T, respond func(frame) frame) *fakeBridge {
	b := &fakeBridge{respond: respond}
	b.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		b.mu.Lock()
		b.conn = ws
		b.headers = r.Header.Clone()
		b.mu.Unlock()

		for {
			var f frame
			if err := wsjson.Read(context.Background(), ws, &f); err != nil {
				return
			}
			b.mu.Lock()
			b.requests = append(b.requests, f)
			b.mu.Unlock()

			resp := b.respond(f)
			resp.Type = types.FrameResponse
			resp.ID = f.ID
			if err := wsjson.Write(context.Background(), ws, resp); err != nil {
				return
			}
		}
	}))
	t.Cleanup(b.server.Close)
	return b
}

func (b *fakeBridge) url() string {
	return "ws" + strings.TrimPrefix(b.server.URL, "http")
}

func (b *fakeBridge) push(t *testing.T, event string, data interface{}) {
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	b.mu.Lock()
	ws := b.conn
	b.mu.Unlock()
	require.NotNil(t, ws)
	require.NoError(t, wsjson.Write(context.Background(), ws, frame{Type: types.FrameEvent, Event: event, Data: raw}))
}

func (b *fakeBridge) lastRequest(action string) (frame, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.requests) - 1; i >= 0; i-- {
		if b.requests[i].Action == action {
			return b.requests[i], true
		}
	}
	return frame{}, false
}

func okResponse(data interface{}) frame {
	raw, _ := json.Marshal(data)
	return frame{OK: true, Data: raw}
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

type eventRecorder struct {
	events chan types.Event
}

func newEventRecorder() *eventRecorder {
	return &eventRecorder{events: make(chan types.Event, 16)}
}

func (r *eventRecorder) handle(e types.Event) {
	r.events <- e
}

func (r *eventRecorder) next(t *testing.T) types.Event {
	select {
	case e := <-r.events:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return types.Event{}
	}
}

func newTestClient(b *fakeBridge, rec *eventRecorder) *BridgeClient {
	return NewBridgeClient(types.ClientConfig{
		AccountID:      "acc1",
		SessionName:    "session-acc1",
		BridgeURL:      b.url(),
		APIKey:         "bridge-secret",
		RequestTimeout: 2 * time.Second,
	}, rec.handle, quietLogger())
}

func TestBridgeClient_InitializeAndSend(t *testing.T) {
	bridge := newFakeBridge(t, func(f frame) frame {
		if f.Action == types.ActionSend {
			return okResponse(types.SentMessage{ID: "fwd-1", Timestamp: 1700000000})
		}
		return okResponse(nil)
	})
	client := newTestClient(bridge, newEventRecorder())
	ctx := context.Background()

	require.NoError(t, client.Initialize(ctx))
	defer client.Destroy(ctx)

	initReq, ok := bridge.lastRequest(types.ActionInit)
	require.True(t, ok)
	assert.JSONEq(t, `{"accountId":"acc1","session":"session-acc1"}`, string(initReq.Data))
	assert.Equal(t, "bridge-secret", bridge.headers.Get(types.HeaderBridgeAPIKey))
	assert.Equal(t, "acc1", bridge.headers.Get(types.HeaderBridgeAccount))

	sent, err := client.SendMessage(ctx, "dest@g.us", types.OutgoingContent{Text: "hello"}, types.SendOptions{QuotedMessageID: "orig-1"})
	require.NoError(t, err)
	assert.Equal(t, "fwd-1", sent.ID)

	sendReq, ok := bridge.lastRequest(types.ActionSend)
	require.True(t, ok)
	var payload sendPayload
	require.NoError(t, json.Unmarshal(sendReq.Data, &payload))
	assert.Equal(t, "dest@g.us", payload.ChatID)
	assert.Equal(t, "hello", payload.Content.Text)
	assert.Equal(t, "orig-1", payload.Options.QuotedMessageID)
}

func TestBridgeClient_RejectedRequest(t *testing.T) {
	bridge := newFakeBridge(t, func(f frame) frame {
		if f.Action == types.ActionGetChat {
			return frame{OK: false, Error: "chat not found"}
		}
		return okResponse(nil)
	})
	client := newTestClient(bridge, newEventRecorder())
	ctx := context.Background()
	require.NoError(t, client.Initialize(ctx))
	defer client.Destroy(ctx)

	chat, err := client.GetChatByID(ctx, "missing@c.us")
	assert.Nil(t, chat)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestBridgeClient_InitializeRejected(t *testing.T) {
	bridge := newFakeBridge(t, func(f frame) frame {
		return frame{OK: false, Error: "session locked"}
	})
	client := newTestClient(bridge, newEventRecorder())

	err := client.Initialize(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session locked")

	_, err = client.SendMessage(context.Background(), "x@c.us", types.OutgoingContent{Text: "hi"}, types.SendOptions{})
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestBridgeClient_DownloadMediaEmpty(t *testing.T) {
	bridge := newFakeBridge(t, func(f frame) frame {
		if f.Action == types.ActionDownloadMedia {
			return okResponse(map[string]string{})
		}
		return okResponse(nil)
	})
	client := newTestClient(bridge, newEventRecorder())
	ctx := context.Background()
	require.NoError(t, client.Initialize(ctx))
	defer client.Destroy(ctx)

	media, err := client.DownloadMedia(ctx, &types.Message{ID: "m1", From: "a@c.us"})
	assert.NoError(t, err)
	assert.Nil(t, media)
}

func TestBridgeClient_Events(t *testing.T) {
	bridge := newFakeBridge(t, func(f frame) frame { return okResponse(nil) })
	rec := newEventRecorder()
	client := newTestClient(bridge, rec)
	ctx := context.Background()
	require.NoError(t, client.Initialize(ctx))
	defer client.Destroy(ctx)

	bridge.push(t, string(types.EventQR), map[string]string{"qr": "2@abc"})
	event := rec.next(t)
	assert.Equal(t, types.EventQR, event.Type)
	assert.Equal(t, "2@abc", event.QRCode)

	bridge.push(t, string(types.EventMessage), map[string]interface{}{
		"message": types.Message{ID: "m1", From: "a@c.us", Body: "hi", Type: types.MessageTypeChat},
	})
	event = rec.next(t)
	assert.Equal(t, types.EventMessage, event.Type)
	require.NotNil(t, event.Message)
	assert.Equal(t, "m1", event.Message.ID)

	bridge.push(t, string(types.EventDisconnected), map[string]string{"reason": types.DisconnectReasonLogout})
	event = rec.next(t)
	assert.Equal(t, types.EventDisconnected, event.Type)
	assert.Equal(t, types.DisconnectReasonLogout, event.Reason)
}

func TestBridgeClient_ConnectionLost(t *testing.T) {
	bridge := newFakeBridge(t, func(f frame) frame { return okResponse(nil) })
	rec := newEventRecorder()
	client := newTestClient(bridge, rec)
	require.NoError(t, client.Initialize(context.Background()))

	bridge.mu.Lock()
	ws := bridge.conn
	bridge.mu.Unlock()
	ws.Close(websocket.StatusGoingAway, "bridge restart")

	event := rec.next(t)
	assert.Equal(t, types.EventDisconnected, event.Type)
	assert.Equal(t, types.DisconnectReasonConnectionLost, event.Reason)
}

func TestBridgeClient_DestroyIsSilent(t *testing.T) {
	bridge := newFakeBridge(t, func(f frame) frame { return okResponse(nil) })
	rec := newEventRecorder()
	client := newTestClient(bridge, rec)
	ctx := context.Background()
	require.NoError(t, client.Initialize(ctx))

	require.NoError(t, client.Destroy(ctx))
	_, ok := bridge.lastRequest(types.ActionDestroy)
	assert.True(t, ok)

	select {
	case e := <-rec.events:
		t.Fatalf("unexpected event after destroy: %+v", e)
	case <-time.After(200 * time.Millisecond):
	}

	assert.NoError(t, client.Destroy(ctx))
}

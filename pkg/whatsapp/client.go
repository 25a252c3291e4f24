package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"whatsrelay/pkg/whatsapp/types"
)

const (
	defaultRequestTimeout = 60 * time.Second
	defaultReadLimit      = 64 << 20
)

var (
	ErrNotConnected = errors.New("bridge client is not connected")
	ErrClosed       = errors.New("bridge connection closed")
)

// frame is the envelope exchanged with the bridge over the socket
type frame struct {
	Type   string          `json:"type"`
	ID     string          `json:"id,omitempty"`
	Action string          `json:"action,omitempty"`
	Event  string          `json:"event,omitempty"`
	OK     bool            `json:"ok,omitempty"`
	Error  string          `json:"error,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

type sendPayload struct {
	ChatID  string                `json:"chatId"`
	Content types.OutgoingContent `json:"content"`
	Options types.SendOptions     `json:"options"`
}

type messageRef struct {
	ChatID    string `json:"chatId,omitempty"`
	MessageID string `json:"messageId,omitempty"`
}

// connection is one dialed socket with its own pending request table
type connection struct {
	ws      *websocket.Conn
	cancel  context.CancelFunc
	mu      sync.Mutex
	pending map[string]chan frame
	closing bool
	done    chan struct{}
}

// BridgeClient talks to a whatsapp-web.js bridge process over a WebSocket.
// Requests are correlated to responses by id; every other frame is an event.
type BridgeClient struct {
	cfg     types.ClientConfig
	handler types.EventHandler
	logger  *logrus.Logger

	mu   sync.Mutex
	conn *connection
}

// NewBridgeClient creates a client for one account session
func NewBridgeClient(cfg types.ClientConfig, handler types.EventHandler, logger *logrus.Logger) *BridgeClient {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.ReadLimitBytes <= 0 {
		cfg.ReadLimitBytes = defaultReadLimit
	}
	if handler == nil {
		handler = func(types.Event) {}
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &BridgeClient{
		cfg:     cfg,
		handler: handler,
		logger:  logger,
	}
}

// NewFactory returns a ClientFactory producing bridge clients
func NewFactory(logger *logrus.Logger) types.ClientFactory {
	return func(cfg types.ClientConfig, handler types.EventHandler) types.Client {
		return NewBridgeClient(cfg, handler, logger)
	}
}

// Initialize dials the bridge and asks it to start the session. Any previous
// connection is closed first without emitting a disconnect event.
func (c *BridgeClient) Initialize(ctx context.Context) error {
	c.closeCurrent()

	header := http.Header{}
	if c.cfg.APIKey != "" {
		header.Set(types.HeaderBridgeAPIKey, c.cfg.APIKey)
	}
	header.Set(types.HeaderBridgeAccount, c.cfg.AccountID)

	ws, _, err := websocket.Dial(ctx, c.cfg.BridgeURL, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		return fmt.Errorf("failed to dial bridge: %w", err)
	}
	ws.SetReadLimit(c.cfg.ReadLimitBytes)

	loopCtx, cancel := context.WithCancel(context.Background())
	conn := &connection{
		ws:      ws,
		cancel:  cancel,
		pending: make(map[string]chan frame),
		done:    make(chan struct{}),
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	go c.readLoop(loopCtx, conn)

	payload := map[string]string{
		"accountId": c.cfg.AccountID,
		"session":   c.cfg.SessionName,
	}
	if err := c.request(ctx, conn, types.ActionInit, payload, nil); err != nil {
		c.shutdown(conn)
		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.mu.Unlock()
		return fmt.Errorf("failed to initialize session %s: %w", c.cfg.SessionName, err)
	}
	return nil
}

// Destroy stops the remote session and closes the socket
func (c *BridgeClient) Destroy(ctx context.Context) error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}

	conn.mu.Lock()
	conn.closing = true
	conn.mu.Unlock()

	// the bridge may drop the socket right after acknowledging
	err := c.request(ctx, conn, types.ActionDestroy, map[string]string{"session": c.cfg.SessionName}, nil)
	c.shutdown(conn)
	if err != nil && !errors.Is(err, ErrClosed) {
		return fmt.Errorf("failed to destroy session %s: %w", c.cfg.SessionName, err)
	}
	return nil
}

func (c *BridgeClient) SendMessage(ctx context.Context, chatID string, content types.OutgoingContent, opts types.SendOptions) (*types.SentMessage, error) {
	conn, err := c.current()
	if err != nil {
		return nil, err
	}
	var sent types.SentMessage
	payload := sendPayload{ChatID: chatID, Content: content, Options: opts}
	if err := c.request(ctx, conn, types.ActionSend, payload, &sent); err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}
	if sent.ID == "" {
		return nil, fmt.Errorf("failed to send message: bridge returned no message id")
	}
	return &sent, nil
}

func (c *BridgeClient) GetChatByID(ctx context.Context, chatID string) (*types.Chat, error) {
	conn, err := c.current()
	if err != nil {
		return nil, err
	}
	var chat types.Chat
	if err := c.request(ctx, conn, types.ActionGetChat, messageRef{ChatID: chatID}, &chat); err != nil {
		return nil, fmt.Errorf("failed to get chat: %w", err)
	}
	return &chat, nil
}

func (c *BridgeClient) GetContact(ctx context.Context, msg *types.Message) (*types.Contact, error) {
	conn, err := c.current()
	if err != nil {
		return nil, err
	}
	var contact types.Contact
	if err := c.request(ctx, conn, types.ActionGetContact, messageRef{ChatID: msg.From, MessageID: msg.ID}, &contact); err != nil {
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}
	return &contact, nil
}

func (c *BridgeClient) GetQuotedMessage(ctx context.Context, msg *types.Message) (*types.Message, error) {
	conn, err := c.current()
	if err != nil {
		return nil, err
	}
	var quoted types.Message
	if err := c.request(ctx, conn, types.ActionGetQuoted, messageRef{ChatID: msg.From, MessageID: msg.ID}, &quoted); err != nil {
		return nil, fmt.Errorf("failed to get quoted message: %w", err)
	}
	if quoted.ID == "" {
		return nil, nil
	}
	return &quoted, nil
}

func (c *BridgeClient) DownloadMedia(ctx context.Context, msg *types.Message) (*types.Media, error) {
	conn, err := c.current()
	if err != nil {
		return nil, err
	}
	var media types.Media
	if err := c.request(ctx, conn, types.ActionDownloadMedia, messageRef{ChatID: msg.From, MessageID: msg.ID}, &media); err != nil {
		return nil, fmt.Errorf("failed to download media: %w", err)
	}
	if media.Data == "" {
		return nil, nil
	}
	return &media, nil
}

func (c *BridgeClient) current() (*connection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil, ErrNotConnected
	}
	return c.conn, nil
}

func (c *BridgeClient) closeCurrent() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn != nil {
		c.shutdown(conn)
	}
}

func (c *BridgeClient) shutdown(conn *connection) {
	conn.mu.Lock()
	conn.closing = true
	conn.mu.Unlock()
	_ = conn.ws.Close(websocket.StatusNormalClosure, "")
	conn.cancel()
	<-conn.done
}

func (c *BridgeClient) request(ctx context.Context, conn *connection, action string, payload interface{}, out interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", action, err)
	}

	id := uuid.NewString()
	respCh := make(chan frame, 1)

	conn.mu.Lock()
	if conn.pending == nil {
		conn.mu.Unlock()
		return ErrClosed
	}
	conn.pending[id] = respCh
	conn.mu.Unlock()

	defer func() {
		conn.mu.Lock()
		if conn.pending != nil {
			delete(conn.pending, id)
		}
		conn.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	req := frame{Type: types.FrameRequest, ID: id, Action: action, Data: data}
	if err := wsjson.Write(ctx, conn.ws, req); err != nil {
		return fmt.Errorf("failed to write %s request: %w", action, err)
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("%s request timed out: %w", action, ctx.Err())
	case resp, ok := <-respCh:
		if !ok {
			return ErrClosed
		}
		if !resp.OK {
			return fmt.Errorf("bridge rejected %s: %s", action, resp.Error)
		}
		if out != nil && len(resp.Data) > 0 {
			if err := json.Unmarshal(resp.Data, out); err != nil {
				return fmt.Errorf("failed to decode %s response: %w", action, err)
			}
		}
		return nil
	}
}

func (c *BridgeClient) readLoop(ctx context.Context, conn *connection) {
	defer close(conn.done)

	for {
		var f frame
		if err := wsjson.Read(ctx, conn.ws, &f); err != nil {
			conn.mu.Lock()
			closing := conn.closing
			for id, ch := range conn.pending {
				close(ch)
				delete(conn.pending, id)
			}
			conn.pending = nil
			conn.mu.Unlock()

			if !closing {
				c.logger.WithFields(logrus.Fields{
					"account_id": c.cfg.AccountID,
					"error":      err.Error(),
				}).Warn("Bridge connection lost")
				c.handler(types.Event{Type: types.EventDisconnected, Reason: types.DisconnectReasonConnectionLost})
			}
			return
		}

		switch f.Type {
		case types.FrameResponse:
			conn.mu.Lock()
			ch, ok := conn.pending[f.ID]
			if ok {
				delete(conn.pending, f.ID)
			}
			conn.mu.Unlock()
			if ok {
				ch <- f
			}
		case types.FrameEvent:
			c.dispatch(conn, f)
		default:
			c.logger.WithFields(logrus.Fields{
				"account_id": c.cfg.AccountID,
				"frame_type": f.Type,
			}).Debug("Ignoring unknown bridge frame")
		}
	}
}

func (c *BridgeClient) dispatch(conn *connection, f frame) {
	event := types.Event{Type: types.EventType(f.Event)}
	if len(f.Data) > 0 {
		if err := json.Unmarshal(f.Data, &event); err != nil {
			c.logger.WithFields(logrus.Fields{
				"account_id": c.cfg.AccountID,
				"event":      f.Event,
				"error":      err.Error(),
			}).Error("Failed to decode bridge event")
			return
		}
		event.Type = types.EventType(f.Event)
	}

	switch event.Type {
	case types.EventDisconnected, types.EventAuthFailure:
		// the socket drop that follows must not be reported twice
		conn.mu.Lock()
		conn.closing = true
		conn.mu.Unlock()
		c.handler(event)
	case types.EventQR, types.EventReady:
		c.handler(event)
	case types.EventMessage:
		if event.Message == nil {
			return
		}
		c.handler(event)
	default:
		c.logger.WithFields(logrus.Fields{
			"account_id": c.cfg.AccountID,
			"event":      f.Event,
		}).Debug("Ignoring unknown bridge event")
	}
}

package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"whatsrelay/internal/database"
	"whatsrelay/internal/metrics"
	"whatsrelay/internal/models"
	"whatsrelay/pkg/whatsapp/types"
)

type sendCall struct {
	ChatID  string
	Content types.OutgoingContent
	Opts    types.SendOptions
}

// fakeClient is a scriptable protocol client. Events are pushed with emit.
type fakeClient struct {
	mu      sync.Mutex
	cfg     types.ClientConfig
	handler types.EventHandler

	initErr      error
	initCalls    int
	destroyCalls int
	onInit       func(c *fakeClient)

	sent    []sendCall
	sendErr error
	sendID  string

	chats    map[string]*types.Chat
	chatErr  error
	contacts map[string]*types.Contact
	quoted   *types.Message
	media    *types.Media
	mediaErr error
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		sendID:   "fwd-1",
		chats:    make(map[string]*types.Chat),
		contacts: make(map[string]*types.Contact),
	}
}

func (c *fakeClient) emit(ev types.Event) {
	c.mu.Lock()
	handler := c.handler
	c.mu.Unlock()
	handler(ev)
}

func (c *fakeClient) Initialize(ctx context.Context) error {
	c.mu.Lock()
	c.initCalls++
	err := c.initErr
	onInit := c.onInit
	c.mu.Unlock()
	if onInit != nil && err == nil {
		onInit(c)
	}
	return err
}

func (c *fakeClient) Destroy(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.destroyCalls++
	return nil
}

func (c *fakeClient) SendMessage(ctx context.Context, chatID string, content types.OutgoingContent, opts types.SendOptions) (*types.SentMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return nil, c.sendErr
	}
	c.sent = append(c.sent, sendCall{ChatID: chatID, Content: content, Opts: opts})
	return &types.SentMessage{ID: c.sendID}, nil
}

func (c *fakeClient) GetChatByID(ctx context.Context, chatID string) (*types.Chat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.chatErr != nil {
		return nil, c.chatErr
	}
	return c.chats[chatID], nil
}

func (c *fakeClient) GetContact(ctx context.Context, msg *types.Message) (*types.Contact, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := msg.From
	if msg.Author != "" {
		id = msg.Author
	}
	return c.contacts[id], nil
}

func (c *fakeClient) GetQuotedMessage(ctx context.Context, msg *types.Message) (*types.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quoted, nil
}

func (c *fakeClient) DownloadMedia(ctx context.Context, msg *types.Message) (*types.Media, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.media, c.mediaErr
}

func (c *fakeClient) setInitErr(err error) {
	c.mu.Lock()
	c.initErr = err
	c.mu.Unlock()
}

func (c *fakeClient) inits() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initCalls
}

func (c *fakeClient) destroys() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.destroyCalls
}

func (c *fakeClient) sends() []sendCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sendCall(nil), c.sent...)
}

// fakeFactory records every client the supervisor builds
type fakeFactory struct {
	mu      sync.Mutex
	clients []*fakeClient
	setup   func(c *fakeClient)
}

func (f *fakeFactory) build(cfg types.ClientConfig, handler types.EventHandler) types.Client {
	c := newFakeClient()
	c.cfg = cfg
	c.handler = handler
	if f.setup != nil {
		f.setup(c)
	}

	f.mu.Lock()
	f.clients = append(f.clients, c)
	f.mu.Unlock()
	return c
}

func (f *fakeFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}

func (f *fakeFactory) client(i int) *fakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i >= len(f.clients) {
		return nil
	}
	return f.clients[i]
}

// mockNotifier records operator alerts
type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, text string) error {
	args := m.Called(ctx, text)
	return args.Error(0)
}

func (m *mockNotifier) NotifyPairing(ctx context.Context, accountID string, png []byte) error {
	args := m.Called(ctx, accountID, png)
	return args.Error(0)
}

// recordingHandler collects the messages handed to it
type recordingHandler struct {
	mu       sync.Mutex
	messages []*types.Message
}

func (h *recordingHandler) HandleMessage(ctx context.Context, accountID string, client types.Client, msg *types.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, msg)
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.messages)
}

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

func newTestStore(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func createTestAccount(t *testing.T, store *database.Database, id string) {
	t.Helper()
	err := store.SaveOrUpdateAccount(context.Background(), &models.Account{
		ID:          id,
		SessionPath: id + "-session",
		Status:      models.AccountStatusDisconnected,
	})
	require.NoError(t, err)
}

func newTestMetrics() *metrics.Metrics {
	return metrics.New()
}

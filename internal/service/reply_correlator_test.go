package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whatsrelay/internal/database"
	"whatsrelay/internal/models"
	"whatsrelay/internal/routing"
	"whatsrelay/pkg/whatsapp/types"
)

func newTestCorrelator(t *testing.T) (*ReplyCorrelator, *database.Database) {
	t.Helper()
	store := newTestStore(t)
	createTestAccount(t, store, testAccount)

	err := store.SaveMapping(context.Background(), &models.MessageMapping{
		OriginalMsgID:     "orig-1",
		ForwardedMsgID:    "fwd-1",
		SourceChatID:      sourceChat,
		DestinationChatID: destChat,
		AccountID:         testAccount,
		Timestamp:         time.Now(),
	})
	require.NoError(t, err)

	c := NewReplyCorrelator(store, routing.NewMessageFormatter(time.UTC), newTestMetrics(), newTestLogger())
	return c, store
}

func quotedReply(body, quotedID string) *types.Message {
	return &types.Message{
		ID:           "reply-1",
		From:         destChat,
		Body:         body,
		Type:         types.MessageTypeChat,
		HasQuotedMsg: true,
		QuotedMsgID:  quotedID,
	}
}

func TestReplyCorrelator_RoutesTextReply(t *testing.T) {
	c, _ := newTestCorrelator(t)
	client := newFakeClient()

	ok := c.Correlate(context.Background(), testAccount, client, quotedReply("thanks", "fwd-1_987654@lid"))
	require.True(t, ok)

	sent := client.sends()
	require.Len(t, sent, 1)
	assert.Equal(t, sourceChat, sent[0].ChatID)
	assert.Equal(t, "thanks", sent[0].Content.Text)
	assert.Equal(t, "orig-1", sent[0].Opts.QuotedMessageID)
}

func TestReplyCorrelator_FetchesQuotedMessage(t *testing.T) {
	c, _ := newTestCorrelator(t)
	client := newFakeClient()
	client.quoted = &types.Message{ID: "fwd-1"}

	ok := c.Correlate(context.Background(), testAccount, client, quotedReply("thanks", ""))
	assert.True(t, ok)
	assert.Len(t, client.sends(), 1)
}

func TestReplyCorrelator_Unmatched(t *testing.T) {
	tests := []struct {
		name    string
		account string
		msg     *types.Message
	}{
		{name: "unknown forwarded id", account: testAccount, msg: quotedReply("hi", "other-id")},
		{name: "wrong chat", account: testAccount, msg: &types.Message{ID: "r", From: "999@g.us", Body: "hi", HasQuotedMsg: true, QuotedMsgID: "fwd-1"}},
		{name: "other account", account: "acc2", msg: quotedReply("hi", "fwd-1")},
		{name: "quoted id unavailable", account: testAccount, msg: quotedReply("hi", "")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestCorrelator(t)
			client := newFakeClient()

			assert.False(t, c.Correlate(context.Background(), tt.account, client, tt.msg))
			assert.Empty(t, client.sends())
		})
	}
}

func TestReplyCorrelator_MediaReply(t *testing.T) {
	c, _ := newTestCorrelator(t)
	client := newFakeClient()
	client.media = &types.Media{MimeType: "image/png", Data: "iVBORw0K"}

	msg := quotedReply("see attached", "fwd-1")
	msg.Type = types.MessageTypeImage
	msg.HasMedia = true
	require.True(t, c.Correlate(context.Background(), testAccount, client, msg))

	sent := client.sends()
	require.Len(t, sent, 1)
	require.NotNil(t, sent[0].Content.Media)
	assert.Equal(t, "see attached", sent[0].Opts.Caption)
	assert.Equal(t, "orig-1", sent[0].Opts.QuotedMessageID)
}

func TestReplyCorrelator_MediaReplyWithoutBody(t *testing.T) {
	c, _ := newTestCorrelator(t)
	client := newFakeClient()
	client.media = &types.Media{MimeType: "image/png", Data: "iVBORw0K"}

	msg := quotedReply("   ", "fwd-1")
	msg.Type = types.MessageTypeImage
	msg.HasMedia = true
	require.True(t, c.Correlate(context.Background(), testAccount, client, msg))

	sent := client.sends()
	require.Len(t, sent, 1)
	assert.Empty(t, sent[0].Opts.Caption)
}

func TestReplyCorrelator_EmptyReplyIsDropped(t *testing.T) {
	c, _ := newTestCorrelator(t)
	client := newFakeClient()

	msg := quotedReply("", "fwd-1")
	msg.Type = types.MessageTypeImage
	msg.HasMedia = true
	assert.False(t, c.Correlate(context.Background(), testAccount, client, msg))
	assert.Empty(t, client.sends())
}

func TestReplyCorrelator_MissingMediaSendsNothing(t *testing.T) {
	tests := []struct {
		name     string
		mediaErr error
	}{
		{name: "nothing downloaded"},
		{name: "download failed", mediaErr: errors.New("bridge timeout")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestCorrelator(t)
			client := newFakeClient()
			client.mediaErr = tt.mediaErr

			msg := quotedReply("see attached", "fwd-1")
			msg.Type = types.MessageTypeImage
			msg.HasMedia = true
			assert.False(t, c.Correlate(context.Background(), testAccount, client, msg))
			assert.Empty(t, client.sends())
		})
	}
}

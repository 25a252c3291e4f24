package types

// MessageType mirrors the message type strings reported by the bridge
type MessageType string

const (
	MessageTypeChat     MessageType = "chat"
	MessageTypeImage    MessageType = "image"
	MessageTypeVideo    MessageType = "video"
	MessageTypeAudio    MessageType = "audio"
	MessageTypeVoice    MessageType = "ptt"
	MessageTypeDocument MessageType = "document"
	MessageTypeSticker  MessageType = "sticker"
	MessageTypeLocation MessageType = "location"
	MessageTypeRevoked  MessageType = "revoked"
)

// EventType identifies a lifecycle event emitted by a protocol client
type EventType string

const (
	EventQR           EventType = "qr"
	EventReady        EventType = "ready"
	EventMessage      EventType = "message"
	EventDisconnected EventType = "disconnected"
	EventAuthFailure  EventType = "auth_failure"
)

const (
	// DisconnectReasonLogout is reported when the phone unlinks the session.
	DisconnectReasonLogout = "LOGOUT"
	// DisconnectReasonConnectionLost is reported when the bridge socket drops.
	DisconnectReasonConnectionLost = "CONNECTION_LOST"
	// DisconnectReasonInitFailed is used when a reconnect attempt could not initialize.
	DisconnectReasonInitFailed = "INIT_FAILED"
)

// Bridge frame types and actions
const (
	FrameRequest  = "request"
	FrameResponse = "response"
	FrameEvent    = "event"

	ActionInit          = "init"
	ActionDestroy       = "destroy"
	ActionSend          = "send"
	ActionGetChat       = "get_chat"
	ActionGetContact    = "get_contact"
	ActionGetQuoted     = "get_quoted"
	ActionDownloadMedia = "download_media"
	HeaderBridgeAPIKey  = "X-Api-Key"
	HeaderBridgeAccount = "X-Account-Id"
)

// IsTextBearing reports whether filters that inspect text apply to this type
func (t MessageType) IsTextBearing() bool {
	switch t {
	case MessageTypeChat, MessageTypeImage, MessageTypeDocument:
		return true
	}
	return false
}

// AcceptsCaption reports whether forwarded media of this type carries a caption
func (t MessageType) AcceptsCaption() bool {
	switch t {
	case MessageTypeImage, MessageTypeVideo, MessageTypeDocument, MessageTypeAudio:
		return true
	}
	return false
}

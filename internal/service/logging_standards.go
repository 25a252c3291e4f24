package service

// Logging standards for whatsrelay
//
// Standard field names used across the supervisor, the routing engine and
// the admin API. Fields holding chat or message ids are masked by the
// privacy hook unless the service runs verbose, so stick to these names.
const (
	// Core identifiers
	LogFieldAccountID     = "account_id"
	LogFieldMessageID     = "message_id"
	LogFieldChatID        = "chat_id"
	LogFieldSourceID      = "source_id"
	LogFieldDestinationID = "destination_id"
	LogFieldQuotedMsgID   = "quoted_msg_id"
	LogFieldOriginalMsgID = "original_msg_id"
	LogFieldRuleID        = "rule_id"

	// Service and operation fields
	LogFieldService   = "service"
	LogFieldOperation = "operation"
	LogFieldComponent = "component"
	LogFieldMethod    = "method"

	// Connection lifecycle
	LogFieldStatus     = "status"
	LogFieldPrevStatus = "previous_status"
	LogFieldReason     = "reason"
	LogFieldAttempt    = "attempt"
	LogFieldMaxAttempt = "max_attempts"
	LogFieldGeneration = "generation"

	// Message and event fields
	LogFieldEvent       = "event"
	LogFieldMessageType = "message_type"
	LogFieldFilterType  = "filter_type"

	// Performance and metrics
	LogFieldDuration = "duration_ms"
	LogFieldCount    = "count"
	LogFieldSize     = "size_bytes"

	// HTTP
	LogFieldRequestID  = "request_id"
	LogFieldTraceID    = "trace_id"
	LogFieldURL        = "url"
	LogFieldRoute      = "route"
	LogFieldStatusCode = "status_code"
	LogFieldRemoteIP   = "remote_ip"
	LogFieldUserAgent  = "user_agent"
)

// Log Level Usage Guidelines
//
// DEBUG: message-level flow (filtered, no rule matched, reply lookups).
// INFO: account status changes, forwards, startup and shutdown.
// WARN: recoverable problems such as a failed chat name lookup or a stop
//   request for an unknown account.
// ERROR: failed sends, failed persistence writes, terminal account states.
//
// Message patterns: "Starting [operation]", "Failed to [operation]",
// "[Operation] completed".

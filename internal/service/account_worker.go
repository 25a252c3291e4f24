package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"whatsrelay/internal/constants"
	"whatsrelay/internal/models"
	"whatsrelay/internal/tracing"
	"whatsrelay/pkg/whatsapp/types"
)

type itemKind int

const (
	itemInit itemKind = iota
	itemReconnect
	itemEvent
)

type workItem struct {
	kind   itemKind
	event  types.Event
	seq    uint64
	result chan error
}

// accountHandle is the live side of one account: its client, its mailbox
// and its position in the connection state machine. Items are processed one
// at a time by run, in arrival order.
type accountHandle struct {
	sup     *Supervisor
	account models.Account
	gen     uint64
	client  types.Client
	logger  *logrus.Entry

	ctx    context.Context
	cancel context.CancelFunc
	wake   chan struct{}
	done   chan struct{}

	mu           sync.Mutex
	queue        []workItem
	stopped      bool
	status       models.AccountStatus
	attempts     int
	lastActivity *time.Time
	timer        *time.Timer
	timerSeq     uint64
}

func newAccountHandle(s *Supervisor, account *models.Account, gen uint64) *accountHandle {
	ctx, cancel := context.WithCancel(context.Background())
	h := &accountHandle{
		sup:          s,
		account:      *account,
		gen:          gen,
		ctx:          ctx,
		cancel:       cancel,
		wake:         make(chan struct{}, 1),
		done:         make(chan struct{}),
		status:       models.AccountStatusDisconnected,
		lastActivity: account.LastActivity,
		logger: s.logger.WithFields(logrus.Fields{
			LogFieldAccountID:  account.ID,
			LogFieldGeneration: gen,
		}),
	}
	h.client = s.factory(s.clientConfig(account.ID), h.onEvent)
	return h
}

// onEvent is the client's event handler. It only queues.
func (h *accountHandle) onEvent(ev types.Event) {
	h.enqueue(workItem{kind: itemEvent, event: ev})
}

func (h *accountHandle) enqueueInit() <-chan error {
	result := make(chan error, 1)
	if !h.enqueue(workItem{kind: itemInit, result: result}) {
		result <- ErrAccountStopped
	}
	return result
}

func (h *accountHandle) enqueue(item workItem) bool {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return false
	}
	h.queue = append(h.queue, item)
	h.mu.Unlock()

	select {
	case h.wake <- struct{}{}:
	default:
	}
	return true
}

func (h *accountHandle) next() (workItem, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped || len(h.queue) == 0 {
		return workItem{}, false
	}
	item := h.queue[0]
	h.queue[0] = workItem{}
	h.queue = h.queue[1:]
	return item, true
}

func (h *accountHandle) run() {
	defer close(h.done)
	for {
		select {
		case <-h.ctx.Done():
			return
		case <-h.wake:
		}
		for {
			item, ok := h.next()
			if !ok {
				break
			}
			h.process(item)
		}
	}
}

func (h *accountHandle) process(item workItem) {
	// a replaced handle must never touch the account again
	if !h.sup.isCurrent(h) {
		if item.result != nil {
			item.result <- ErrAccountStopped
		}
		return
	}

	switch item.kind {
	case itemInit:
		item.result <- h.initialize(true)
	case itemReconnect:
		h.mu.Lock()
		// a cancelled or superseded timer may still have queued its item
		if h.timer == nil || item.seq != h.timerSeq {
			h.mu.Unlock()
			return
		}
		h.timer = nil
		status := h.status
		h.mu.Unlock()
		if status.RequiresOperator() || status == models.AccountStatusConnected {
			h.logger.WithField(LogFieldStatus, string(status)).Debug("Dropping stale reconnect")
			return
		}
		_ = h.initialize(false)
	case itemEvent:
		h.handleEvent(item.event)
	}
}

// initialize starts the client session. A failure is persisted as
// reconnect_failed and fed back into the reconnect path, so the number of
// attempts stays bounded.
func (h *accountHandle) initialize(first bool) error {
	if first {
		h.transition(models.AccountStatusConnecting, nil)
	}

	ctx, cancel := context.WithTimeout(h.ctx, h.sup.cfg.RequestTimeout)
	defer cancel()
	ctx, span := tracing.StartSpan(ctx, "initialize_client", tracing.AttrAccountID.String(h.account.ID))
	defer span.End()

	err := h.client.Initialize(ctx)
	if err == nil {
		h.logger.Info("Client initialized")
		return nil
	}
	tracing.RecordError(ctx, err)
	if h.ctx.Err() != nil {
		return err
	}

	h.logger.WithError(err).Error("Failed to initialize client")
	h.transition(models.AccountStatusReconnectFailed, nil)
	h.onDisconnected(types.DisconnectReasonInitFailed)
	return err
}

func (h *accountHandle) handleEvent(ev types.Event) {
	// only an explicit start revives a terminal account
	if ev.Type != types.EventMessage {
		if status := h.currentStatus(); status.RequiresOperator() {
			h.logger.WithFields(logrus.Fields{
				LogFieldEvent:  string(ev.Type),
				LogFieldStatus: string(status),
			}).Debug("Ignoring event for terminal account")
			return
		}
	}

	switch ev.Type {
	case types.EventQR:
		h.onQR(ev.QRCode)
	case types.EventReady:
		h.onReady()
	case types.EventMessage:
		h.onMessage(ev.Message)
	case types.EventDisconnected:
		h.onDisconnected(ev.Reason)
	case types.EventAuthFailure:
		h.onAuthFailure(ev.Error)
	default:
		h.logger.WithField(LogFieldEvent, string(ev.Type)).Debug("Ignoring unknown client event")
	}
}

func (h *accountHandle) onQR(code string) {
	h.transition(models.AccountStatusQRRequired, nil)

	pairing := PairingCode{AccountID: h.account.ID, Code: code, IssuedAt: h.sup.now()}
	h.sup.setPairing(pairing)

	if terminal, err := pairing.Terminal(); err == nil {
		h.logger.Info("Scan the QR code to pair the account\n" + terminal)
	} else {
		h.logger.WithError(err).Warn("Failed to render QR code")
	}

	png, err := pairing.PNG(constants.DefaultQRCodeSizePx)
	if err != nil {
		h.logger.WithError(err).Warn("Failed to render QR code image")
		return
	}
	if err := h.sup.notifier.NotifyPairing(h.ctx, h.account.ID, png); err != nil {
		h.logger.WithError(err).Warn("Failed to send pairing notification")
	}
}

func (h *accountHandle) onReady() {
	now := h.sup.now()

	h.mu.Lock()
	h.stopTimerLocked()
	h.attempts = 0
	h.lastActivity = &now
	h.mu.Unlock()

	h.sup.clearPairing(h.account.ID)
	h.transition(models.AccountStatusConnected, &now)
}

func (h *accountHandle) onMessage(msg *types.Message) {
	if msg == nil {
		return
	}

	now := h.sup.now()
	h.mu.Lock()
	h.lastActivity = &now
	h.mu.Unlock()

	ctx, cancel := context.WithTimeout(h.ctx, h.sup.cfg.MessageTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			h.logger.WithFields(messageFields(h.account.ID, msg)).
				WithField("panic", fmt.Sprint(r)).Error("Message handler panicked")
		}
	}()
	h.sup.handler.HandleMessage(ctx, h.account.ID, h.client, msg)
}

// onDisconnected schedules a delayed Initialize unless the session was
// logged out or the attempts are exhausted
func (h *accountHandle) onDisconnected(reason string) {
	logger := h.logger.WithField(LogFieldReason, reason)

	if reason == types.DisconnectReasonLogout {
		logger.Warn("Account logged out")
		h.cancelTimer()
		h.sup.clearPairing(h.account.ID)
		h.transition(models.AccountStatusLoggedOut, nil)
		h.destroyClient()
		return
	}

	h.mu.Lock()
	pending := h.timer != nil
	h.mu.Unlock()
	if pending {
		logger.Debug("Reconnect already scheduled")
		return
	}

	h.transition(models.AccountStatusReconnecting, nil)

	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	if h.attempts >= h.sup.cfg.MaxAttempts {
		attempts := h.attempts
		h.mu.Unlock()
		logger.WithField(LogFieldAttempt, attempts).Error("Reconnect attempts exhausted")
		h.transition(models.AccountStatusFailedToConnect, nil)
		h.destroyClient()
		return
	}
	h.attempts++
	attempt := h.attempts
	h.timerSeq++
	seq := h.timerSeq
	h.timer = time.AfterFunc(h.sup.cfg.ReconnectDelay, func() {
		h.enqueue(workItem{kind: itemReconnect, seq: seq})
	})
	h.mu.Unlock()

	h.sup.metrics.ReconnectScheduled(h.account.ID)
	logger.WithFields(logrus.Fields{
		LogFieldAttempt:    attempt,
		LogFieldMaxAttempt: h.sup.cfg.MaxAttempts,
		LogFieldDuration:   h.sup.cfg.ReconnectDelay.Milliseconds(),
	}).Info("Reconnect scheduled")
}

func (h *accountHandle) onAuthFailure(message string) {
	h.logger.WithField(LogFieldReason, message).Error("Authentication failed")
	h.cancelTimer()
	h.transition(models.AccountStatusAuthFailed, nil)
	h.destroyClient()
}

// transition records the new status in memory and in the store. Store
// failures are logged; the in-memory state moves regardless.
func (h *accountHandle) transition(status models.AccountStatus, activity *time.Time) {
	h.mu.Lock()
	previous := h.status
	h.status = status
	h.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), h.sup.cfg.RequestTimeout)
	defer cancel()

	var err error
	if activity != nil {
		account := h.account
		account.Status = status
		account.LastActivity = activity
		err = h.sup.store.SaveOrUpdateAccount(ctx, &account)
	} else {
		err = h.sup.store.UpdateAccountStatus(ctx, h.account.ID, status)
	}

	logger := h.logger.WithFields(logrus.Fields{
		LogFieldStatus:     string(status),
		LogFieldPrevStatus: string(previous),
	})
	if err != nil {
		logger.WithError(err).Error("Failed to persist account status")
	}
	h.sup.metrics.StatusChanged(string(status))
	logger.Info("Account status changed")

	if status.RequiresOperator() && status != models.AccountStatusStopped {
		text := fmt.Sprintf("WhatsApp account %s is %s and needs attention", h.account.ID, status)
		if err := h.sup.notifier.Notify(ctx, text); err != nil {
			h.logger.WithError(err).Warn("Failed to send operator notification")
		}
	}
}

func (h *accountHandle) cancelTimer() {
	h.mu.Lock()
	h.stopTimerLocked()
	h.mu.Unlock()
}

func (h *accountHandle) stopTimerLocked() {
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
}

func (h *accountHandle) currentStatus() models.AccountStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

func (h *accountHandle) destroyClient() {
	ctx, cancel := context.WithTimeout(context.Background(), h.sup.cfg.RequestTimeout)
	defer cancel()
	if err := h.client.Destroy(ctx); err != nil {
		h.logger.WithError(err).Warn("Failed to destroy client")
	}
}

// stop fences the handle, waits for the worker to finish its current item
// and destroys the client. A non-empty final status is persisted last.
func (h *accountHandle) stop(ctx context.Context, final models.AccountStatus) {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	h.stopTimerLocked()
	pending := h.queue
	h.queue = nil
	h.mu.Unlock()

	for _, item := range pending {
		if item.result != nil {
			item.result <- ErrAccountStopped
		}
	}

	h.cancel()
	select {
	case <-h.done:
	case <-ctx.Done():
		h.logger.Warn("Timed out waiting for account worker to stop")
	}

	if err := h.client.Destroy(ctx); err != nil {
		h.logger.WithError(err).Warn("Failed to destroy client")
	}

	if final != "" {
		h.transition(final, nil)
	}
}

func (h *accountHandle) state() models.AccountState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return models.AccountState{
		ID:                h.account.ID,
		Status:            h.status,
		LastActivity:      h.lastActivity,
		ReconnectAttempts: h.attempts,
	}
}

package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"whatsrelay/internal/constants"
	apperrors "whatsrelay/internal/errors"
	"whatsrelay/internal/metrics"
	"whatsrelay/internal/models"
	"whatsrelay/pkg/whatsapp/types"
)

var (
	ErrSupervisorClosed = stderrors.New("supervisor is shut down")
	ErrAccountStopped   = stderrors.New("account stopped before initialization")
)

// SupervisorConfig holds the connection settings shared by all accounts
type SupervisorConfig struct {
	BridgeURL            string
	BridgeAPIKey         string
	RequestTimeout       time.Duration
	ReadLimitBytes       int64
	SessionPrefix        string
	DefaultAccountID     string
	CreateDefaultAccount bool
	StartupConcurrency   int
	MaxAttempts          int
	ReconnectDelay       time.Duration
	MessageTimeout       time.Duration
}

// NewSupervisorConfig derives the supervisor settings from the whatsapp config block
func NewSupervisorConfig(cfg models.WhatsAppConfig) SupervisorConfig {
	return SupervisorConfig{
		BridgeURL:            cfg.BridgeURL,
		BridgeAPIKey:         cfg.BridgeAPIKey,
		RequestTimeout:       time.Duration(cfg.RequestTimeoutSec) * time.Second,
		ReadLimitBytes:       constants.DefaultBridgeReadLimitBytes,
		SessionPrefix:        cfg.SessionPrefix,
		DefaultAccountID:     cfg.DefaultAccountID,
		CreateDefaultAccount: cfg.CreateDefaultAccount,
		StartupConcurrency:   cfg.StartupConcurrency,
		MaxAttempts:          cfg.Reconnect.MaxAttempts,
		ReconnectDelay:       time.Duration(cfg.Reconnect.DelayMs) * time.Millisecond,
		MessageTimeout:       time.Duration(cfg.MessageTimeoutSec) * time.Second,
	}
}

// Supervisor owns one protocol client per running account and drives each
// through its connection state machine
type Supervisor struct {
	cfg      SupervisorConfig
	store    AccountStore
	factory  types.ClientFactory
	handler  MessageHandler
	notifier Notifier
	metrics  *metrics.Metrics
	logger   *logrus.Logger
	now      func() time.Time

	mu         sync.Mutex
	live       map[string]*accountHandle
	pairing    map[string]PairingCode
	generation uint64
	closed     bool
}

func NewSupervisor(
	cfg SupervisorConfig,
	store AccountStore,
	factory types.ClientFactory,
	handler MessageHandler,
	notifier Notifier,
	m *metrics.Metrics,
	logger *logrus.Logger,
) *Supervisor {
	if cfg.StartupConcurrency < 1 {
		cfg.StartupConcurrency = 1
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = time.Duration(constants.DefaultBridgeRequestTimeoutSec) * time.Second
	}
	if cfg.MessageTimeout <= 0 {
		cfg.MessageTimeout = time.Duration(constants.DefaultMessageTimeoutSec) * time.Second
	}
	if notifier == nil {
		notifier = NoopNotifier{}
	}

	return &Supervisor{
		cfg:      cfg,
		store:    store,
		factory:  factory,
		handler:  handler,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
		live:     make(map[string]*accountHandle),
		pairing:  make(map[string]PairingCode),
	}
}

func (s *Supervisor) newAccount(id string) *models.Account {
	return &models.Account{
		ID:          id,
		SessionPath: id + constants.DefaultSessionPathSuffix,
		Status:      models.AccountStatusDisconnected,
	}
}

func (s *Supervisor) clientConfig(accountID string) types.ClientConfig {
	return types.ClientConfig{
		AccountID:      accountID,
		SessionName:    s.cfg.SessionPrefix + accountID,
		BridgeURL:      s.cfg.BridgeURL,
		APIKey:         s.cfg.BridgeAPIKey,
		RequestTimeout: s.cfg.RequestTimeout,
		ReadLimitBytes: s.cfg.ReadLimitBytes,
	}
}

// LoadAccounts returns every persisted account. When none exist and the
// default account is enabled, it is created first.
func (s *Supervisor) LoadAccounts(ctx context.Context) ([]*models.Account, error) {
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}

	if len(accounts) == 0 && s.cfg.CreateDefaultAccount && s.cfg.DefaultAccountID != "" {
		account := s.newAccount(s.cfg.DefaultAccountID)
		if err := s.store.SaveOrUpdateAccount(ctx, account); err != nil {
			return nil, fmt.Errorf("failed to create default account: %w", err)
		}
		s.logger.WithField(LogFieldAccountID, account.ID).Info("Created default account")
		accounts = append(accounts, account)
	}

	s.logger.WithField(LogFieldCount, len(accounts)).Info("Loaded accounts")
	return accounts, nil
}

// StartAll starts every persisted account, initializing at most
// StartupConcurrency clients at a time. Individual failures are handled by
// each account's reconnect path and do not fail the call.
func (s *Supervisor) StartAll(ctx context.Context) error {
	accounts, err := s.LoadAccounts(ctx)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.StartupConcurrency)

	for _, account := range accounts {
		g.Go(func() error {
			initDone, err := s.start(account)
			if err != nil {
				return err
			}
			select {
			case err := <-initDone:
				if err != nil {
					accountEntry(s.logger, account.ID).WithError(err).Warn("Initial connection failed")
				}
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}

	return g.Wait()
}

// start replaces any live client of the account with a fresh one and queues
// its initialization. The returned channel yields the Initialize result.
func (s *Supervisor) start(account *models.Account) (<-chan error, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSupervisorClosed
	}
	previous := s.live[account.ID]
	s.generation++
	h := newAccountHandle(s, account, s.generation)
	s.live[account.ID] = h
	s.metrics.SetLiveAccounts(len(s.live))
	s.mu.Unlock()

	if previous != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RequestTimeout)
		previous.stop(ctx, "")
		cancel()
	}

	initDone := h.enqueueInit()
	go h.run()
	return initDone, nil
}

// AddAccount registers a new account and starts it
func (s *Supervisor) AddAccount(ctx context.Context, accountID string) (*models.Account, error) {
	if s.isLive(accountID) {
		return nil, apperrors.NewConflictError("account", accountID)
	}

	existing, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("get account", err)
	}
	if existing != nil {
		return nil, apperrors.NewConflictError("account", accountID)
	}

	account := s.newAccount(accountID)
	if err := s.store.SaveOrUpdateAccount(ctx, account); err != nil {
		return nil, apperrors.NewDatabaseError("save account", err)
	}

	if _, err := s.start(account); err != nil {
		return nil, err
	}
	accountEntry(s.logger, accountID).Info("Account registered")
	return account, nil
}

// StartAccount starts a persisted account, restarting it when already live
func (s *Supervisor) StartAccount(ctx context.Context, accountID string) error {
	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return apperrors.NewDatabaseError("get account", err)
	}
	if account == nil {
		return apperrors.NewNotFoundError("account", accountID)
	}

	if _, err := s.start(account); err != nil {
		return err
	}
	accountEntry(s.logger, accountID).Info("Account start requested")
	return nil
}

// StopAccount cancels pending reconnects, destroys the client and persists
// the stopped status. Unknown accounts are only logged.
func (s *Supervisor) StopAccount(ctx context.Context, accountID string) error {
	h := s.detach(accountID)
	if h == nil {
		accountEntry(s.logger, accountID).Warn("Stop requested for account that is not running")
		return nil
	}

	h.stop(ctx, models.AccountStatusStopped)
	s.clearPairing(accountID)
	accountEntry(s.logger, accountID).Info("Account stopped")
	return nil
}

// DeleteAccount removes the account with its rules and mappings, then stops
// its client. It reports whether anything was removed.
func (s *Supervisor) DeleteAccount(ctx context.Context, accountID string) (bool, error) {
	deleted, err := s.store.DeleteAccount(ctx, accountID)
	if err != nil {
		return false, apperrors.NewDatabaseError("delete account", err)
	}

	h := s.detach(accountID)
	if h != nil {
		h.stop(ctx, "")
	}
	s.clearPairing(accountID)

	if deleted || h != nil {
		accountEntry(s.logger, accountID).Info("Account deleted")
	}
	return deleted || h != nil, nil
}

// Shutdown stops every live account and refuses further starts
func (s *Supervisor) Shutdown(ctx context.Context) {
	s.mu.Lock()
	s.closed = true
	handles := make([]*accountHandle, 0, len(s.live))
	for id, h := range s.live {
		handles = append(handles, h)
		delete(s.live, id)
	}
	s.metrics.SetLiveAccounts(0)
	s.mu.Unlock()

	var g errgroup.Group
	for _, h := range handles {
		g.Go(func() error {
			h.stop(ctx, models.AccountStatusDisconnected)
			return nil
		})
	}
	_ = g.Wait()

	s.logger.WithField(LogFieldCount, len(handles)).Info("Supervisor shut down")
}

// AccountsStatus lists every persisted account with its live state
func (s *Supervisor) AccountsStatus(ctx context.Context) ([]models.AccountState, error) {
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list accounts", err)
	}

	states := make([]models.AccountState, 0, len(accounts))
	for _, account := range accounts {
		states = append(states, s.stateOf(account))
	}
	sort.Slice(states, func(i, j int) bool { return states[i].ID < states[j].ID })
	return states, nil
}

// AccountStatus returns the state of one account, or nil when unknown
func (s *Supervisor) AccountStatus(ctx context.Context, accountID string) (*models.AccountState, error) {
	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("get account", err)
	}
	if account == nil {
		return nil, nil
	}
	state := s.stateOf(account)
	return &state, nil
}

func (s *Supervisor) stateOf(account *models.Account) models.AccountState {
	s.mu.Lock()
	h := s.live[account.ID]
	s.mu.Unlock()

	if h != nil {
		return h.state()
	}
	return models.AccountState{
		ID:           account.ID,
		Status:       account.Status,
		LastActivity: account.LastActivity,
	}
}

// PairingCode returns the latest QR code issued for the account
func (s *Supervisor) PairingCode(accountID string) (PairingCode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pairing[accountID]
	return p, ok
}

func (s *Supervisor) setPairing(p PairingCode) {
	s.mu.Lock()
	s.pairing[p.AccountID] = p
	s.mu.Unlock()
}

func (s *Supervisor) clearPairing(accountID string) {
	s.mu.Lock()
	delete(s.pairing, accountID)
	s.mu.Unlock()
}

// LiveCount returns the number of accounts with a running client
func (s *Supervisor) LiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

func (s *Supervisor) isLive(accountID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.live[accountID]
	return ok
}

// isCurrent reports whether h is still the live handle of its account
func (s *Supervisor) isCurrent(h *accountHandle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live[h.account.ID] == h
}

func (s *Supervisor) detach(accountID string) *accountHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.live[accountID]
	if h != nil {
		delete(s.live, accountID)
		s.metrics.SetLiveAccounts(len(s.live))
	}
	return h
}

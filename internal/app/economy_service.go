package app

import (
	"context"
	"fmt"
	"sync"

	"trivia-duel/internal/domain"
	"trivia-duel/internal/metrics"

	"github.com/sirupsen/logrus"
)

// EconomyService owns the token balance and the display preference.
type EconomyService struct {
	store   StateStore
	log     logrus.FieldLogger
	metrics *metrics.Metrics

	mu          sync.Mutex
	state       domain.EconomyState
	initialized bool
	hub         *hub[domain.EconomyState]
}

func NewEconomyService(store StateStore, log logrus.FieldLogger, m *metrics.Metrics) *EconomyService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &EconomyService{
		store:   store,
		log:     log.WithField("component", "economy"),
		metrics: m,
		state:   domain.NewEconomyState(),
		hub:     newHub[domain.EconomyState](),
	}
}

// Init loads the settings document; a missing document grants the
// starting balance. Later calls are no-ops.
func (s *EconomyService) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return nil
	}

	state := domain.NewEconomyState()
	found, err := s.store.Load(ctx, SettingsDocumentKey, &state)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	s.state = state
	s.initialized = true
	s.log.WithFields(logrus.Fields{"restored": found, "tokens": state.Tokens}).Info("settings initialized")
	return nil
}

// State returns the current settings.
func (s *EconomyService) State() domain.EconomyState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe streams settings snapshots, starting with the current one.
func (s *EconomyService) Subscribe(_ context.Context) (<-chan domain.EconomyState, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hub.subscribe(s.state)
}

// Packages lists the store offering.
func (s *EconomyService) Packages() []domain.TokenPackage {
	return append([]domain.TokenPackage(nil), domain.TokenPackages...)
}

func (s *EconomyService) commitLocked(ctx context.Context) (domain.EconomyState, error) {
	snap := s.state
	var err error
	if saveErr := s.store.Save(ctx, SettingsDocumentKey, snap); saveErr != nil {
		s.metrics.PersistFailed(SettingsDocumentKey)
		s.log.WithError(saveErr).Error("persist settings failed")
		err = fmt.Errorf("persist settings: %w: %w", domain.ErrPersistence, saveErr)
	}
	s.hub.publish(snap)
	return snap, err
}

// AddTokens adds n to the balance. n is not checked: negative amounts
// reduce the balance, and only UseToken refuses to go below zero.
func (s *EconomyService) AddTokens(ctx context.Context, n int) (domain.EconomyState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Tokens += n
	s.metrics.TokensGranted(n)
	return s.commitLocked(ctx)
}

// UseToken spends one token. It reports false, without touching the balance,
// when none are left.
func (s *EconomyService) UseToken(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Tokens <= 0 {
		return false, nil
	}
	s.state.Tokens--
	s.metrics.TokenSpent()
	_, err := s.commitLocked(ctx)
	return true, err
}

// ToggleDarkMode flips the display preference.
func (s *EconomyService) ToggleDarkMode(ctx context.Context) (domain.EconomyState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.DarkMode = !s.state.DarkMode
	return s.commitLocked(ctx)
}

// Purchase credits the tokens of a store package. Payment is out of scope:
// the grant is applied as soon as the package is known.
func (s *EconomyService) Purchase(ctx context.Context, packageID string) (domain.EconomyState, error) {
	pkg, ok := domain.FindTokenPackage(packageID)
	if !ok {
		return s.State(), domain.ErrUnknownPackage
	}
	s.log.WithFields(logrus.Fields{"package": pkg.ID, "tokens": pkg.Tokens}).Info("token package purchased")
	return s.AddTokens(ctx, pkg.Tokens)
}

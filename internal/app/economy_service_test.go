package app_test

import (
	"context"
	"errors"
	"testing"

	"trivia-duel/internal/app"
	"trivia-duel/internal/domain"
	"trivia-duel/internal/infra/memory"
	"trivia-duel/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestEconomyStartingBalance(t *testing.T) {
	ctx := context.Background()
	economy := app.NewEconomyService(memory.NewStateStore(), nil, nil)
	if err := economy.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	if got := economy.State(); got.Tokens != 5 || got.DarkMode {
		t.Fatalf("unexpected first-run state %+v", got)
	}
}

func TestEconomyInitKeepsStoredBalance(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStateStore()
	if err := store.Save(ctx, app.SettingsDocumentKey, domain.EconomyState{Tokens: -2}); err != nil {
		t.Fatalf("save: %v", err)
	}

	economy := app.NewEconomyService(store, nil, nil)
	if err := economy.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	if got := economy.State().Tokens; got != -2 {
		t.Fatalf("expected stored balance -2, got %d", got)
	}
	if ok, err := economy.UseToken(ctx); err != nil || ok {
		t.Fatalf("expected spend refused on negative balance, ok=%v err=%v", ok, err)
	}
	if got := economy.State().Tokens; got != -2 {
		t.Fatalf("refused spend must not touch the balance, got %d", got)
	}
}

func TestEconomyGrantMetricsCountPositiveAmounts(t *testing.T) {
	ctx := context.Background()
	m := metrics.New(prometheus.NewRegistry())
	economy := app.NewEconomyService(memory.NewStateStore(), nil, m)
	_ = economy.Init(ctx)

	_, _ = economy.AddTokens(ctx, 10)
	_, _ = economy.AddTokens(ctx, -4)
	if got := economy.State().Tokens; got != 11 {
		t.Fatalf("expected 11 tokens, got %d", got)
	}
	if got := testutil.ToFloat64(m.Tokens.WithLabelValues("granted")); got != 10 {
		t.Fatalf("expected 10 granted tokens recorded, got %v", got)
	}
}

func TestEconomyUseTokenNeverGoesNegative(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	economy := app.NewEconomyService(memory.NewStateStore(), nil, m)
	_ = economy.Init(ctx)

	for i := 0; i < domain.DefaultStartingTokens; i++ {
		ok, err := economy.UseToken(ctx)
		if err != nil || !ok {
			t.Fatalf("use token %d: ok=%v err=%v", i, ok, err)
		}
	}
	ok, err := economy.UseToken(ctx)
	if err != nil || ok {
		t.Fatalf("expected refusal on empty balance, ok=%v err=%v", ok, err)
	}
	if economy.State().Tokens != 0 {
		t.Fatalf("expected zero balance, got %d", economy.State().Tokens)
	}
	if got := testutil.ToFloat64(m.Tokens.WithLabelValues("spent")); got != 5 {
		t.Fatalf("expected 5 spent tokens recorded, got %v", got)
	}
}

func TestEconomyPurchaseAndPersistence(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStateStore()
	economy := app.NewEconomyService(store, nil, nil)
	_ = economy.Init(ctx)

	state, err := economy.Purchase(ctx, "standard")
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if state.Tokens != 20 {
		t.Fatalf("expected 20 tokens, got %d", state.Tokens)
	}
	if _, err := economy.Purchase(ctx, "gold"); !errors.Is(err, domain.ErrUnknownPackage) {
		t.Fatalf("expected unknown package, got %v", err)
	}
	if state, _ := economy.AddTokens(ctx, -3); state.Tokens != 17 {
		t.Fatalf("expected negative amount applied as is, got %d", state.Tokens)
	}
	if state, _ := economy.AddTokens(ctx, 0); state.Tokens != 17 {
		t.Fatalf("expected zero amount to keep 17, got %d", state.Tokens)
	}
	if state, _ := economy.ToggleDarkMode(ctx); !state.DarkMode {
		t.Fatalf("expected dark mode on")
	}

	restored := app.NewEconomyService(store, nil, nil)
	if err := restored.Init(ctx); err != nil {
		t.Fatalf("init restored: %v", err)
	}
	if got := restored.State(); got.Tokens != 17 || !got.DarkMode {
		t.Fatalf("expected persisted settings, got %+v", got)
	}
}

func TestEconomyPackages(t *testing.T) {
	economy := app.NewEconomyService(memory.NewStateStore(), nil, nil)
	packages := economy.Packages()
	if len(packages) != 4 {
		t.Fatalf("expected 4 packages, got %d", len(packages))
	}
	popular := 0
	for _, p := range packages {
		if p.Popular {
			popular++
			if p.ID != "standard" {
				t.Fatalf("unexpected popular package %s", p.ID)
			}
		}
	}
	if popular != 1 {
		t.Fatalf("expected exactly one popular package")
	}
}

package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"trivia-duel/internal/catalog"
	"trivia-duel/internal/domain"
)

func TestCatalogRepositoryCaches(t *testing.T) {
	loader := newCountingLoader(t)
	repo := NewCatalogRepository(loader, time.Minute)

	for i := 0; i < 3; i++ {
		qs, err := repo.QuestionsForCategory(context.Background(), "cat1")
		if err != nil {
			t.Fatalf("questions: %v", err)
		}
		if len(qs) != 6 {
			t.Fatalf("expected 6 questions, got %d", len(qs))
		}
	}
	if loader.questionCalls != 1 {
		t.Fatalf("expected loader once, got %d", loader.questionCalls)
	}

	if _, err := repo.Categories(context.Background()); err != nil {
		t.Fatalf("categories: %v", err)
	}
	if _, err := repo.Categories(context.Background()); err != nil {
		t.Fatalf("categories 2: %v", err)
	}
	if loader.categoryCalls != 1 {
		t.Fatalf("expected categories cached, loader calls %d", loader.categoryCalls)
	}
}

func TestCatalogRepositoryExpires(t *testing.T) {
	loader := newCountingLoader(t)
	repo := NewCatalogRepository(loader, time.Minute)
	now := time.Now()
	repo.clock = func() time.Time { return now }

	if _, err := repo.QuestionsForCategory(context.Background(), "cat2"); err != nil {
		t.Fatalf("questions: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := repo.QuestionsForCategory(context.Background(), "cat2"); err != nil {
		t.Fatalf("questions after expiry: %v", err)
	}
	if loader.questionCalls != 2 {
		t.Fatalf("expected reload after ttl, got %d calls", loader.questionCalls)
	}
}

func TestCatalogRepositoryDoesNotCacheErrors(t *testing.T) {
	loader := newCountingLoader(t)
	repo := NewCatalogRepository(loader, time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := repo.QuestionsForCategory(context.Background(), "missing"); !errors.Is(err, domain.ErrCategoryNotFound) {
			t.Fatalf("expected category not found, got %v", err)
		}
	}
	if loader.questionCalls != 2 {
		t.Fatalf("expected failures to reach the loader, got %d calls", loader.questionCalls)
	}
}

func TestCatalogRepositoryReturnsCopies(t *testing.T) {
	repo := NewCatalogRepository(newCountingLoader(t), time.Minute)
	qs, _ := repo.QuestionsForCategory(context.Background(), "cat1")
	qs[0].Text = "changed"
	again, _ := repo.QuestionsForCategory(context.Background(), "cat1")
	if again[0].Text == "changed" {
		t.Fatalf("cache handed out shared slice")
	}
}

type countingLoader struct {
	CatalogLoader
	mu            sync.Mutex
	categoryCalls int
	questionCalls int
}

func newCountingLoader(t *testing.T) *countingLoader {
	t.Helper()
	static, err := catalog.Default()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	return &countingLoader{CatalogLoader: static}
}

func (l *countingLoader) LoadCategories(ctx context.Context) ([]domain.Category, error) {
	l.mu.Lock()
	l.categoryCalls++
	l.mu.Unlock()
	return l.CatalogLoader.LoadCategories(ctx)
}

func (l *countingLoader) LoadQuestions(ctx context.Context, categoryID string) ([]domain.Question, error) {
	l.mu.Lock()
	l.questionCalls++
	l.mu.Unlock()
	return l.CatalogLoader.LoadQuestions(ctx, categoryID)
}

package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"trivia-duel/internal/domain"

	"golang.org/x/sync/singleflight"
)

// CatalogLoader fetches catalog content from a backing store (embedded YAML, SQL).
type CatalogLoader interface {
	LoadCategories(ctx context.Context) ([]domain.Category, error)
	LoadQuestions(ctx context.Context, categoryID string) ([]domain.Question, error)
}

const categoriesKey = "\x00categories"

// CatalogRepository caches catalog reads with a TTL so the board does not hit
// the loader on every draw.
type CatalogRepository struct {
	loader CatalogLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu         sync.RWMutex
	categories cachedEntry[[]domain.Category]
	questions  map[string]cachedEntry[[]domain.Question]
}

type cachedEntry[T any] struct {
	value     T
	expiresAt time.Time
}

func (e cachedEntry[T]) fresh(now time.Time) bool {
	return e.expiresAt.After(now)
}

func NewCatalogRepository(loader CatalogLoader, ttl time.Duration) *CatalogRepository {
	return &CatalogRepository{
		loader:    loader,
		ttl:       ttl,
		clock:     time.Now,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
		questions: make(map[string]cachedEntry[[]domain.Question]),
	}
}

func (r *CatalogRepository) Categories(ctx context.Context) ([]domain.Category, error) {
	now := r.clock()
	r.mu.RLock()
	if r.categories.fresh(now) {
		out := r.categories.value
		r.mu.RUnlock()
		return append([]domain.Category(nil), out...), nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(categoriesKey, func() (interface{}, error) {
		categories, err := r.loader.LoadCategories(ctx)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.categories = cachedEntry[[]domain.Category]{value: categories, expiresAt: r.clock().Add(r.ttlWithJitter())}
		r.mu.Unlock()
		return categories, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]domain.Category(nil), result.([]domain.Category)...), nil
}

func (r *CatalogRepository) QuestionsForCategory(ctx context.Context, categoryID string) ([]domain.Question, error) {
	now := r.clock()
	r.mu.RLock()
	if entry, ok := r.questions[categoryID]; ok && entry.fresh(now) {
		r.mu.RUnlock()
		return append([]domain.Question(nil), entry.value...), nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(categoryID, func() (interface{}, error) {
		questions, err := r.loader.LoadQuestions(ctx, categoryID)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.questions[categoryID] = cachedEntry[[]domain.Question]{value: questions, expiresAt: r.clock().Add(r.ttlWithJitter())}
		r.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]domain.Question(nil), result.([]domain.Question)...), nil
}

func (r *CatalogRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// up to 10% jitter spreads expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

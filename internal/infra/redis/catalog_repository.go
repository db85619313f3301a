package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sort"
	"sync"
	"time"

	"trivia-duel/internal/domain"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// CatalogLoader fetches catalog content from the source of truth.
type CatalogLoader interface {
	LoadCategories(ctx context.Context) ([]domain.Category, error)
	LoadQuestions(ctx context.Context, categoryID string) ([]domain.Question, error)
}

// CatalogRepository caches the catalog in Redis and falls back to a loader
// on a miss. Questions are stored as JSON in a hash per category:
//
//	HSET trivia:category:{categoryID}:questions {questionID} {json}
//
// and categories as HSET trivia:categories {categoryID} {json}.
type CatalogRepository struct {
	client *redis.Client
	loader CatalogLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewCatalogRepository(client *redis.Client, loader CatalogLoader, ttl time.Duration) *CatalogRepository {
	return &CatalogRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *CatalogRepository) Categories(ctx context.Context) ([]domain.Category, error) {
	if cached, ok := r.cachedCategories(ctx); ok {
		return cached, nil
	}

	result, err, _ := r.sf.Do(categoriesKey, func() (interface{}, error) {
		// another caller may have filled the cache
		if cached, ok := r.cachedCategories(ctx); ok {
			return cached, nil
		}
		categories, err := r.loader.LoadCategories(ctx)
		if err != nil {
			return nil, err
		}
		pipe := r.client.Pipeline()
		for i, c := range categories {
			data, _ := json.Marshal(cachedCategory{Category: c, Position: i})
			pipe.HSet(ctx, categoriesKey, c.ID, data)
		}
		if ttl := r.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, categoriesKey, ttl)
		}
		_, _ = pipe.Exec(ctx)
		return categories, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Category), nil
}

func (r *CatalogRepository) QuestionsForCategory(ctx context.Context, categoryID string) ([]domain.Question, error) {
	key := questionsKey(categoryID)
	if cached, ok := r.cachedQuestions(ctx, key); ok {
		return cached, nil
	}

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		if cached, ok := r.cachedQuestions(ctx, key); ok {
			return cached, nil
		}
		questions, err := r.loader.LoadQuestions(ctx, categoryID)
		if err != nil {
			return nil, err
		}
		pipe := r.client.Pipeline()
		for _, q := range questions {
			data, _ := json.Marshal(q)
			pipe.HSet(ctx, key, q.ID, data)
		}
		if ttl := r.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		_, _ = pipe.Exec(ctx)
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

const categoriesKey = "trivia:categories"

func questionsKey(categoryID string) string {
	return "trivia:category:" + categoryID + ":questions"
}

type cachedCategory struct {
	domain.Category
	Position int `json:"position"`
}

func (r *CatalogRepository) cachedCategories(ctx context.Context) ([]domain.Category, bool) {
	fields, err := r.client.HGetAll(ctx, categoriesKey).Result()
	if err != nil || len(fields) == 0 {
		return nil, false
	}
	entries := make([]cachedCategory, 0, len(fields))
	for _, raw := range fields {
		var c cachedCategory
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			return nil, false
		}
		entries = append(entries, c)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Position < entries[j].Position })
	out := make([]domain.Category, len(entries))
	for i, e := range entries {
		out[i] = e.Category
	}
	return out, true
}

// cachedQuestions rebuilds a category from its hash, ordered by points then id.
func (r *CatalogRepository) cachedQuestions(ctx context.Context, key string) ([]domain.Question, bool) {
	fields, err := r.client.HGetAll(ctx, key).Result()
	if err != nil || len(fields) == 0 {
		return nil, false
	}
	out := make([]domain.Question, 0, len(fields))
	for _, raw := range fields {
		var q domain.Question
		if err := json.Unmarshal([]byte(raw), &q); err != nil {
			return nil, false
		}
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points < out[j].Points
		}
		return out[i].ID < out[j].ID
	})
	return out, true
}

func (r *CatalogRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

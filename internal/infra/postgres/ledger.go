// Package postgres serves the coupon ledger, the question catalog and the
// game documents from Postgres through pgxpool.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"trivia-duel/internal/domain"
	"trivia-duel/internal/infra/postgres/migrations"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// Ledger reads and writes the catalog and coupon tables.
type Ledger struct {
	pool *pgxpool.Pool
}

func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

// EnsureSchema applies the migration statements directly. They are
// idempotent, so this is safe next to the bun migrator.
func (l *Ledger) EnsureSchema(ctx context.Context) error {
	stmts, err := migrations.Schema()
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if _, err := l.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (l *Ledger) Lookup(ctx context.Context, code string) (int, error) {
	var value int
	err := l.pool.QueryRow(ctx, `SELECT value FROM coupons WHERE code=$1`, code).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrCouponNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("load coupon: %w", err)
	}
	return value, nil
}

// SeedIfEmpty inserts coupons only when the table has no rows.
func (l *Ledger) SeedIfEmpty(ctx context.Context, coupons []domain.Coupon) (bool, error) {
	var count int
	if err := l.pool.QueryRow(ctx, `SELECT COUNT(*) FROM coupons`).Scan(&count); err != nil {
		return false, fmt.Errorf("count coupons: %w", err)
	}
	if count > 0 || len(coupons) == 0 {
		return false, nil
	}
	err := l.inTx(ctx, func(tx pgx.Tx) error {
		for _, c := range coupons {
			if _, err := tx.Exec(ctx, `INSERT INTO coupons (code, value) VALUES ($1, $2) ON CONFLICT (code) DO NOTHING`, c.Code, c.Value); err != nil {
				return fmt.Errorf("insert coupon %s: %w", c.Code, err)
			}
		}
		return nil
	})
	return err == nil, err
}

// AddQuestions upserts categories and questions in one transaction.
func (l *Ledger) AddQuestions(ctx context.Context, categories []domain.Category, questions []domain.Question) error {
	return l.inTx(ctx, func(tx pgx.Tx) error {
		for i, c := range categories {
			if _, err := tx.Exec(ctx,
				`INSERT INTO categories (id, name, image, position) VALUES ($1, $2, $3, $4)
				 ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, image=EXCLUDED.image, position=EXCLUDED.position`,
				c.ID, c.Name, c.Image, i,
			); err != nil {
				return fmt.Errorf("upsert category %s: %w", c.ID, err)
			}
		}
		for _, q := range questions {
			if _, err := tx.Exec(ctx,
				`INSERT INTO questions (id, category_id, text, answer, difficulty, points, image) VALUES ($1, $2, $3, $4, $5, $6, $7)
				 ON CONFLICT (id) DO UPDATE SET category_id=EXCLUDED.category_id, text=EXCLUDED.text, answer=EXCLUDED.answer,
				 difficulty=EXCLUDED.difficulty, points=EXCLUDED.points, image=EXCLUDED.image`,
				q.ID, q.CategoryID, q.Text, q.Answer, string(q.Difficulty), q.Points, q.Image,
			); err != nil {
				return fmt.Errorf("upsert question %s: %w", q.ID, err)
			}
		}
		return nil
	})
}

func (l *Ledger) CountQuestions(ctx context.Context) (int, error) {
	var count int
	if err := l.pool.QueryRow(ctx, `SELECT COUNT(*) FROM questions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count questions: %w", err)
	}
	return count, nil
}

func (l *Ledger) LoadCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := l.pool.Query(ctx, `SELECT id, name, image FROM categories ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	defer rows.Close()

	var out []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Image); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (l *Ledger) LoadQuestions(ctx context.Context, categoryID string) ([]domain.Question, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT id, category_id, text, answer, difficulty, points, image FROM questions WHERE category_id=$1 ORDER BY points, id`,
		categoryID,
	)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var out []domain.Question
	for rows.Next() {
		var q domain.Question
		var difficulty string
		if err := rows.Scan(&q.ID, &q.CategoryID, &q.Text, &q.Answer, &difficulty, &q.Points, &q.Image); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		q.Difficulty = domain.Difficulty(difficulty)
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, domain.ErrCategoryNotFound
	}
	return out, nil
}

func (l *Ledger) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

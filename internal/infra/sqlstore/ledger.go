package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"trivia-duel/internal/domain"
)

// Ledger serves coupons and the question catalog from SQL tables.
type Ledger struct {
	db *sql.DB
}

func NewLedger(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// EnsureSchema creates the ledger tables when missing.
func (l *Ledger) EnsureSchema(ctx context.Context) error {
	return EnsureSchema(ctx, l.db)
}

func (l *Ledger) Lookup(ctx context.Context, code string) (int, error) {
	var value int
	err := l.db.QueryRowContext(ctx, `SELECT value FROM coupons WHERE code = ?`, code).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrCouponNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("select coupon: %w", err)
	}
	return value, nil
}

// SeedIfEmpty inserts coupons only when the table has no rows.
func (l *Ledger) SeedIfEmpty(ctx context.Context, coupons []domain.Coupon) (bool, error) {
	var count int
	if err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM coupons`).Scan(&count); err != nil {
		return false, fmt.Errorf("count coupons: %w", err)
	}
	if count > 0 || len(coupons) == 0 {
		return false, nil
	}
	err := withTx(ctx, l.db, func(tx *sql.Tx) error {
		for _, c := range coupons {
			if _, err := tx.ExecContext(ctx, `INSERT INTO coupons (code, value) VALUES (?, ?)`, c.Code, c.Value); err != nil {
				return fmt.Errorf("insert coupon %s: %w", c.Code, err)
			}
		}
		return nil
	})
	return err == nil, err
}

// AddQuestions upserts the categories and their questions in one transaction.
func (l *Ledger) AddQuestions(ctx context.Context, categories []domain.Category, questions []domain.Question) error {
	return withTx(ctx, l.db, func(tx *sql.Tx) error {
		for i, c := range categories {
			if _, err := tx.ExecContext(ctx,
				`REPLACE INTO categories (id, name, image, position) VALUES (?, ?, ?, ?)`,
				c.ID, c.Name, c.Image, i,
			); err != nil {
				return fmt.Errorf("replace category %s: %w", c.ID, err)
			}
		}
		for _, q := range questions {
			if _, err := tx.ExecContext(ctx,
				`REPLACE INTO questions (id, category_id, text, answer, difficulty, points, image) VALUES (?, ?, ?, ?, ?, ?, ?)`,
				q.ID, q.CategoryID, q.Text, q.Answer, string(q.Difficulty), q.Points, q.Image,
			); err != nil {
				return fmt.Errorf("replace question %s: %w", q.ID, err)
			}
		}
		return nil
	})
}

// CountQuestions reports how many questions are stored.
func (l *Ledger) CountQuestions(ctx context.Context) (int, error) {
	var count int
	if err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count questions: %w", err)
	}
	return count, nil
}

func (l *Ledger) LoadCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT id, name, image FROM categories ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("select categories: %w", err)
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

// LoadQuestions returns domain.ErrCategoryNotFound when the category has no questions.
func (l *Ledger) LoadQuestions(ctx context.Context, categoryID string) ([]domain.Question, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, category_id, text, answer, difficulty, points, image FROM questions WHERE category_id = ? ORDER BY points, id`,
		categoryID,
	)
	if err != nil {
		return nil, fmt.Errorf("select questions: %w", err)
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

func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

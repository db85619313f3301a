package app

import (
	"context"
	"fmt"

	"trivia-duel/internal/domain"

	"github.com/sirupsen/logrus"
)

// LedgerSetup prepares a relational ledger for first use.
type LedgerSetup interface {
	EnsureSchema(ctx context.Context) error
	SeedIfEmpty(ctx context.Context, coupons []domain.Coupon) (bool, error)
	AddQuestions(ctx context.Context, categories []domain.Category, questions []domain.Question) error
}

// CatalogSource is the full catalog used to fill a ledger.
type CatalogSource interface {
	LoadCategories(ctx context.Context) ([]domain.Category, error)
	AllQuestions() []domain.Question
}

// SeedLedger creates the tables, installs the default coupons on an empty
// ledger and upserts the catalog. Running it again changes nothing.
func SeedLedger(ctx context.Context, setup LedgerSetup, source CatalogSource, log logrus.FieldLogger) error {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if err := setup.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	seeded, err := setup.SeedIfEmpty(ctx, domain.DefaultCoupons)
	if err != nil {
		return fmt.Errorf("seed coupons: %w", err)
	}

	if source != nil {
		categories, err := source.LoadCategories(ctx)
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
		questions := source.AllQuestions()
		if err := setup.AddQuestions(ctx, categories, questions); err != nil {
			return fmt.Errorf("add questions: %w", err)
		}
		log.WithFields(logrus.Fields{"categories": len(categories), "questions": len(questions)}).Info("catalog stored")
	}
	log.WithField("coupons_seeded", seeded).Info("ledger ready")
	return nil
}

package domain

import "errors"

var (
	// ErrPersistence marks a durable write that failed after the in-memory
	// mutation was applied.
	ErrPersistence = errors.New("state not persisted")
	// ErrCouponNotFound is returned by ledgers when a coupon code is unknown.
	ErrCouponNotFound = errors.New("coupon not found")
	// ErrCategoryNotFound indicates the catalog has no such category.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrUnknownTeam is returned when a team id is not part of the current roster.
	ErrUnknownTeam = errors.New("team not found")
	// ErrSameTeam is returned when a team tries to wager on itself.
	ErrSameTeam = errors.New("wager target must be another team")
	// ErrWagerUnavailable is returned when a team has already used its wager this game.
	ErrWagerUnavailable = errors.New("wager already used")
	// ErrWagerActive is returned when a wager is placed while another one is pending.
	ErrWagerActive = errors.New("a wager is already active")
	// ErrInvalidMultiplier is returned for multipliers outside 0.5, 1.5 and 2.
	ErrInvalidMultiplier = errors.New("invalid wager multiplier")
	// ErrNotWagerTarget is returned when points go to a team other than the wager target.
	ErrNotWagerTarget = errors.New("only the wager target can answer this question")
	// ErrNoCurrentQuestion is returned when resolving without an active question.
	ErrNoCurrentQuestion = errors.New("no current question")
	// ErrQuestionNotFound is returned when a question is not on the current board.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrQuestionAnswered is returned when selecting a question that was already resolved.
	ErrQuestionAnswered = errors.New("question already answered")
	// ErrCategoriesIncomplete is returned when a game starts without the full category set.
	ErrCategoriesIncomplete = errors.New("exactly 6 categories must be selected")
	// ErrSelectionLocked is returned when categories change after the game started.
	ErrSelectionLocked = errors.New("category selection is locked while a game is running")
	// ErrInsufficientTokens is returned when starting a game with an empty token balance.
	ErrInsufficientTokens = errors.New("not enough tokens")
	// ErrUnknownPackage is returned for store purchases of an unknown package.
	ErrUnknownPackage = errors.New("token package not found")
)

package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"trivia-duel/internal/domain"
	"trivia-duel/internal/metrics"

	"github.com/sirupsen/logrus"
)

// Document keys of the two persisted aggregates.
const (
	GameDocumentKey     = "trivia-game"
	SettingsDocumentKey = "trivia-settings"
)

// StateStore abstracts where aggregates are kept (in-memory, Redis, SQL).
type StateStore interface {
	// Load decodes the document at key into dst and reports whether it existed.
	Load(ctx context.Context, key string, dst any) (bool, error)
	Save(ctx context.Context, key string, v any) error
}

// QuestionCatalog serves the read-only categories and questions.
type QuestionCatalog interface {
	Categories(ctx context.Context) ([]domain.Category, error)
	QuestionsForCategory(ctx context.Context, categoryID string) ([]domain.Question, error)
}

// CouponLedger resolves coupon codes to point values.
type CouponLedger interface {
	// Lookup returns domain.ErrCouponNotFound for unknown codes.
	Lookup(ctx context.Context, code string) (int, error)
}

// TokenSpender charges the price of a game.
type TokenSpender interface {
	UseToken(ctx context.Context) (bool, error)
}

// ScoreUpdate is one entry of a batch score change.
type ScoreUpdate struct {
	TeamID string `json:"teamId"`
	Points int    `json:"points"`
}

// Resolution reports how the current question was settled.
type Resolution struct {
	QuestionID string             `json:"questionId"`
	TeamID     string             `json:"teamId,omitempty"`
	Points     int                `json:"points"`
	Wagered    bool               `json:"wagered"`
	Session    domain.GameSession `json:"session"`
}

// WagerDraw is the outcome of placing a wager with a random multiplier.
type WagerDraw struct {
	Multiplier domain.Multiplier  `json:"multiplier"`
	Question   *domain.Question   `json:"question"`
	Session    domain.GameSession `json:"session"`
}

// GameService owns the game session and every rule that mutates it.
// Mutations are serialized: each one is applied, persisted and broadcast
// before the next starts.
type GameService struct {
	store   StateStore
	catalog QuestionCatalog
	coupons CouponLedger
	tokens  TokenSpender
	log     logrus.FieldLogger
	metrics *metrics.Metrics

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu          sync.Mutex
	state       domain.GameSession
	initialized bool
	hub         *hub[domain.GameSession]
}

func NewGameService(store StateStore, catalog QuestionCatalog, coupons CouponLedger, tokens TokenSpender, log logrus.FieldLogger, m *metrics.Metrics) *GameService {
	return NewGameServiceWithRand(store, catalog, coupons, tokens, log, m, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewGameServiceWithRand is used by tests for deterministic draws.
func NewGameServiceWithRand(store StateStore, catalog QuestionCatalog, coupons CouponLedger, tokens TokenSpender, log logrus.FieldLogger, m *metrics.Metrics, rnd *rand.Rand) *GameService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &GameService{
		store:   store,
		catalog: catalog,
		coupons: coupons,
		tokens:  tokens,
		log:     log.WithField("component", "game"),
		metrics: m,
		rnd:     rnd,
		state:   domain.NewGameSession(),
		hub:     newHub[domain.GameSession](),
	}
}

// Init loads the persisted session. It must run once before any other
// operation; later calls are no-ops.
func (s *GameService) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return nil
	}

	state := domain.NewGameSession()
	found, err := s.store.Load(ctx, GameDocumentKey, &state)
	if err != nil {
		return fmt.Errorf("load game session: %w", err)
	}
	s.state = state.Clone()
	s.initialized = true
	s.log.WithFields(logrus.Fields{"restored": found, "teams": len(state.Teams)}).Info("game session initialized")
	return nil
}

// Snapshot returns a copy of the current session.
func (s *GameService) Snapshot() domain.GameSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Subscribe streams session snapshots, starting with the current one.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *GameService) Subscribe(_ context.Context) (<-chan domain.GameSession, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hub.subscribe(s.state.Clone())
}

// mutate applies fn under the writer lock. fn reports whether it changed
// anything; unchanged sessions are not persisted. Errors from fn abort
// before persistence.
func (s *GameService) mutate(ctx context.Context, fn func(g *domain.GameSession) (bool, error)) (domain.GameSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutateLocked(ctx, fn)
}

func (s *GameService) mutateLocked(ctx context.Context, fn func(g *domain.GameSession) (bool, error)) (domain.GameSession, error) {
	changed, err := fn(&s.state)
	if err != nil {
		return s.state.Clone(), err
	}
	if !changed {
		return s.state.Clone(), nil
	}
	return s.commitLocked(ctx)
}

// commitLocked persists and broadcasts the session. A failed write keeps the
// in-memory state; the caller gets the snapshot together with the error.
func (s *GameService) commitLocked(ctx context.Context) (domain.GameSession, error) {
	snap := s.state.Clone()
	var err error
	if saveErr := s.store.Save(ctx, GameDocumentKey, snap); saveErr != nil {
		s.metrics.PersistFailed(GameDocumentKey)
		s.log.WithError(saveErr).Error("persist game session failed")
		err = fmt.Errorf("persist game session: %w: %w", domain.ErrPersistence, saveErr)
	}
	s.hub.publish(snap)
	return snap, err
}

// SetTeams replaces the roster unconditionally.
func (s *GameService) SetTeams(ctx context.Context, teams []domain.Team) (domain.GameSession, error) {
	return s.mutate(ctx, func(g *domain.GameSession) (bool, error) {
		roster := domain.GameSession{Teams: teams}.Clone()
		g.Teams = roster.Teams
		return true, nil
	})
}

// UpdateTeamScore adds a signed delta to a team's score. Unknown teams are ignored.
func (s *GameService) UpdateTeamScore(ctx context.Context, teamID string, delta int) (domain.GameSession, error) {
	return s.mutate(ctx, func(g *domain.GameSession) (bool, error) {
		i := g.TeamIndex(teamID)
		if i < 0 {
			return false, nil
		}
		g.Teams[i].Score += delta
		return true, nil
	})
}

// AdjustTeamScore is UpdateTeamScore under the name used for manual corrections.
func (s *GameService) AdjustTeamScore(ctx context.Context, teamID string, adjustment int) (domain.GameSession, error) {
	return s.UpdateTeamScore(ctx, teamID, adjustment)
}

// UpdateTeams applies several score changes as one mutation.
func (s *GameService) UpdateTeams(ctx context.Context, updates []ScoreUpdate) (domain.GameSession, error) {
	return s.mutate(ctx, func(g *domain.GameSession) (bool, error) {
		changed := false
		for _, u := range updates {
			if i := g.TeamIndex(u.TeamID); i >= 0 {
				g.Teams[i].Score += u.Points
				changed = true
			}
		}
		return changed, nil
	})
}

// ToggleCategory deselects a selected category or selects a new one while
// fewer than six are chosen. It reports false when the toggle was refused.
func (s *GameService) ToggleCategory(ctx context.Context, categoryID string) (bool, error) {
	accepted := false
	_, err := s.mutate(ctx, func(g *domain.GameSession) (bool, error) {
		if g.Started {
			return false, nil
		}
		if i := slices.Index(g.SelectedCategories, categoryID); i >= 0 {
			g.SelectedCategories = slices.Delete(g.SelectedCategories, i, i+1)
			accepted = true
			return true, nil
		}
		if len(g.SelectedCategories) >= domain.MaxCategories {
			return false, nil
		}
		g.SelectedCategories = append(g.SelectedCategories, categoryID)
		accepted = true
		return true, nil
	})
	return accepted, err
}

// SetSelectedCategories replaces the selection. Duplicates are dropped.
func (s *GameService) SetSelectedCategories(ctx context.Context, categoryIDs []string) (domain.GameSession, error) {
	return s.mutate(ctx, func(g *domain.GameSession) (bool, error) {
		if g.Started {
			return false, domain.ErrSelectionLocked
		}
		selected := make([]string, 0, len(categoryIDs))
		for _, id := range categoryIDs {
			if !slices.Contains(selected, id) {
				selected = append(selected, id)
			}
		}
		g.SelectedCategories = selected
		return true, nil
	})
}

// SetCurrentQuestion replaces the active question; nil clears it.
func (s *GameService) SetCurrentQuestion(ctx context.Context, q *domain.Question) (domain.GameSession, error) {
	return s.mutate(ctx, func(g *domain.GameSession) (bool, error) {
		if q == nil {
			g.CurrentQuestion = nil
			return true, nil
		}
		cp := *q
		g.CurrentQuestion = &cp
		return true, nil
	})
}

// SelectQuestion makes a question from the selected categories current.
func (s *GameService) SelectQuestion(ctx context.Context, questionID string) (domain.GameSession, error) {
	snap := s.Snapshot()
	if snap.IsAnswered(questionID) {
		return snap, domain.ErrQuestionAnswered
	}
	for _, categoryID := range snap.SelectedCategories {
		questions, err := s.catalog.QuestionsForCategory(ctx, categoryID)
		if errors.Is(err, domain.ErrCategoryNotFound) {
			continue
		}
		if err != nil {
			return snap, fmt.Errorf("questions for %s: %w", categoryID, err)
		}
		for _, q := range questions {
			if q.ID == questionID {
				return s.SetCurrentQuestion(ctx, &q)
			}
		}
	}
	return snap, domain.ErrQuestionNotFound
}

// MarkQuestionAnswered records questionID as resolved and clears the
// current question. Repeated calls leave a single entry.
func (s *GameService) MarkQuestionAnswered(ctx context.Context, questionID string) (domain.GameSession, error) {
	return s.mutate(ctx, func(g *domain.GameSession) (bool, error) {
		markAnswered(g, questionID)
		return true, nil
	})
}

func markAnswered(g *domain.GameSession, questionID string) {
	if !g.IsAnswered(questionID) {
		g.AnsweredQuestions = append(g.AnsweredQuestions, questionID)
	}
	g.CurrentQuestion = nil
}

// RandomUnansweredQuestion picks uniformly among the unanswered questions of
// the selected categories. ok is false when none remain. It never mutates.
func (s *GameService) RandomUnansweredQuestion(ctx context.Context) (domain.Question, bool, error) {
	snap := s.Snapshot()
	eligible, err := s.unanswered(ctx, snap)
	if err != nil {
		return domain.Question{}, false, err
	}
	if len(eligible) == 0 {
		return domain.Question{}, false, nil
	}
	return eligible[s.intn(len(eligible))], true, nil
}

func (s *GameService) unanswered(ctx context.Context, snap domain.GameSession) ([]domain.Question, error) {
	var eligible []domain.Question
	for _, categoryID := range snap.SelectedCategories {
		questions, err := s.catalog.QuestionsForCategory(ctx, categoryID)
		if errors.Is(err, domain.ErrCategoryNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("questions for %s: %w", categoryID, err)
		}
		for _, q := range questions {
			if !snap.IsAnswered(q.ID) {
				eligible = append(eligible, q)
			}
		}
	}
	return eligible, nil
}

func (s *GameService) intn(n int) int {
	s.rndMu.Lock()
	defer s.rndMu.Unlock()
	return s.rnd.Intn(n)
}

// WagerAvailableFor reports whether teamID still holds its wager.
func (s *GameService) WagerAvailableFor(teamID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.WagerAvailableFor(teamID)
}

// UseWager consumes the wager of teamID and marks a wager as active for it.
// Callers check WagerAvailableFor first; unknown teams leave the session unchanged.
func (s *GameService) UseWager(ctx context.Context, teamID string) (domain.GameSession, error) {
	return s.mutate(ctx, func(g *domain.GameSession) (bool, error) {
		i := g.TeamIndex(teamID)
		if i < 0 {
			return false, nil
		}
		g.ConsumeWager(i)
		id := teamID
		g.WagerTeam = &id
		g.WagerActive = true
		return true, nil
	})
}

// SetWagerTeam sets the wagering team without further checks.
func (s *GameService) SetWagerTeam(ctx context.Context, teamID *string) (domain.GameSession, error) {
	return s.mutate(ctx, func(g *domain.GameSession) (bool, error) {
		g.WagerTeam = copyString(teamID)
		return true, nil
	})
}

// SetWagerTargetTeam sets the team that must answer the wagered question.
func (s *GameService) SetWagerTargetTeam(ctx context.Context, teamID *string) (domain.GameSession, error) {
	return s.mutate(ctx, func(g *domain.GameSession) (bool, error) {
		g.WagerTargetTeam = copyString(teamID)
		return true, nil
	})
}

// SetWagerMultiplier sets the multiplier without validating it.
func (s *GameService) SetWagerMultiplier(ctx context.Context, m *domain.Multiplier) (domain.GameSession, error) {
	return s.mutate(ctx, func(g *domain.GameSession) (bool, error) {
		if m == nil {
			g.WagerMultiplier = nil
			return true, nil
		}
		v := *m
		g.WagerMultiplier = &v
		return true, nil
	})
}

// SetWagerActive toggles the pending-wager flag.
func (s *GameService) SetWagerActive(ctx context.Context, active bool) (domain.GameSession, error) {
	return s.mutate(ctx, func(g *domain.GameSession) (bool, error) {
		g.WagerActive = active
		return true, nil
	})
}

// PlaceWager places a complete wager in one validated step.
func (s *GameService) PlaceWager(ctx context.Context, teamID, targetTeamID string, m domain.Multiplier) (domain.GameSession, error) {
	snap, err := s.mutate(ctx, func(g *domain.GameSession) (bool, error) {
		i := g.TeamIndex(teamID)
		if i < 0 || g.TeamIndex(targetTeamID) < 0 {
			return false, domain.ErrUnknownTeam
		}
		if teamID == targetTeamID {
			return false, domain.ErrSameTeam
		}
		if !m.Valid() {
			return false, domain.ErrInvalidMultiplier
		}
		if g.WagerActive {
			return false, domain.ErrWagerActive
		}
		if !g.WagerAvailableFor(teamID) {
			return false, domain.ErrWagerUnavailable
		}

		g.ConsumeWager(i)
		team, target, mult := teamID, targetTeamID, m
		g.WagerTeam = &team
		g.WagerTargetTeam = &target
		g.WagerMultiplier = &mult
		g.WagerActive = true
		return true, nil
	})
	if err == nil || errors.Is(err, domain.ErrPersistence) {
		s.metrics.WagerPlaced(float64(m))
		s.log.WithFields(logrus.Fields{"team": teamID, "target": targetTeamID, "multiplier": float64(m)}).Info("wager placed")
	}
	return snap, err
}

// DrawWager places a wager with a random multiplier and draws the question
// the target team must answer. Question is nil when the board is exhausted.
func (s *GameService) DrawWager(ctx context.Context, teamID, targetTeamID string) (WagerDraw, error) {
	m := domain.Multipliers[s.intn(len(domain.Multipliers))]
	snap, err := s.PlaceWager(ctx, teamID, targetTeamID, m)
	if err != nil && !errors.Is(err, domain.ErrPersistence) {
		return WagerDraw{}, err
	}
	draw := WagerDraw{Multiplier: m, Session: snap}

	q, ok, qErr := s.RandomUnansweredQuestion(ctx)
	if qErr != nil {
		return draw, errors.Join(err, qErr)
	}
	if ok {
		snap, setErr := s.SetCurrentQuestion(ctx, &q)
		draw.Question = &q
		draw.Session = snap
		err = errors.Join(err, setErr)
	}
	return draw, err
}

// AwardPoints gives the current question's points to teamID. With an active
// wager only the target team can be awarded, and the points are multiplied.
func (s *GameService) AwardPoints(ctx context.Context, teamID string) (Resolution, error) {
	var res Resolution
	snap, err := s.mutate(ctx, func(g *domain.GameSession) (bool, error) {
		if g.CurrentQuestion == nil {
			return false, domain.ErrNoCurrentQuestion
		}
		i := g.TeamIndex(teamID)
		if i < 0 {
			return false, domain.ErrUnknownTeam
		}
		if g.WagerActive && g.WagerTargetTeam != nil && *g.WagerTargetTeam != teamID {
			return false, domain.ErrNotWagerTarget
		}

		points := g.CurrentQuestion.Points
		wagered := g.WagerActive && g.WagerMultiplier != nil
		if wagered {
			points = domain.AwardedPoints(points, *g.WagerMultiplier)
		}
		g.Teams[i].Score += points
		res = Resolution{QuestionID: g.CurrentQuestion.ID, TeamID: teamID, Points: points, Wagered: wagered}
		markAnswered(g, g.CurrentQuestion.ID)
		g.ClearWager()
		return true, nil
	})
	if err != nil && !errors.Is(err, domain.ErrPersistence) {
		return Resolution{}, err
	}
	res.Session = snap
	s.metrics.QuestionResolved("awarded")
	return res, err
}

// DenyPoints closes the current question without a winner. An active wager
// costs the target team its penalty.
func (s *GameService) DenyPoints(ctx context.Context) (Resolution, error) {
	var res Resolution
	snap, err := s.mutate(ctx, func(g *domain.GameSession) (bool, error) {
		if g.CurrentQuestion == nil {
			return false, domain.ErrNoCurrentQuestion
		}
		res = Resolution{QuestionID: g.CurrentQuestion.ID}
		if g.WagerActive && g.WagerTargetTeam != nil && g.WagerMultiplier != nil {
			if penalty, ok := domain.PenaltyPoints(g.CurrentQuestion.Points, *g.WagerMultiplier); ok {
				if i := g.TeamIndex(*g.WagerTargetTeam); i >= 0 {
					g.Teams[i].Score -= penalty
					res.TeamID = g.Teams[i].ID
					res.Points = -penalty
					res.Wagered = true
				}
			}
		}
		markAnswered(g, g.CurrentQuestion.ID)
		g.ClearWager()
		return true, nil
	})
	if err != nil && !errors.Is(err, domain.ErrPersistence) {
		return Resolution{}, err
	}
	res.Session = snap
	s.metrics.QuestionResolved("denied")
	return res, err
}

// ResetGame returns the session to its initial empty state.
func (s *GameService) ResetGame(ctx context.Context) (domain.GameSession, error) {
	return s.mutate(ctx, func(g *domain.GameSession) (bool, error) {
		*g = domain.NewGameSession()
		return true, nil
	})
}

// StartNewGame keeps the roster with zeroed scores and clears everything else.
func (s *GameService) StartNewGame(ctx context.Context) (domain.GameSession, error) {
	return s.mutate(ctx, func(g *domain.GameSession) (bool, error) {
		*g = freshGame(g.Teams, nil)
		return true, nil
	})
}

func freshGame(teams []domain.Team, categories []string) domain.GameSession {
	next := domain.NewGameSession()
	for _, t := range teams {
		t.Score = 0
		next.Teams = append(next.Teams, t)
	}
	next.SelectedCategories = append(next.SelectedCategories, categories...)
	return next.Clone()
}

// StartGame begins play on the current selection: it needs exactly six
// categories and one token, then resets scores, answers and wagers while
// keeping the categories locked in.
func (s *GameService) StartGame(ctx context.Context) (domain.GameSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.state.SelectedCategories) != domain.MaxCategories {
		return s.state.Clone(), domain.ErrCategoriesIncomplete
	}
	if s.tokens != nil {
		ok, err := s.tokens.UseToken(ctx)
		if !ok {
			if err != nil {
				return s.state.Clone(), fmt.Errorf("spend token: %w", err)
			}
			return s.state.Clone(), domain.ErrInsufficientTokens
		}
		if err != nil {
			s.log.WithError(err).Warn("token spent but settings not persisted")
		}
	}

	snap, err := s.mutateLocked(ctx, func(g *domain.GameSession) (bool, error) {
		*g = freshGame(g.Teams, g.SelectedCategories)
		g.Started = true
		return true, nil
	})
	s.metrics.GameStarted()
	s.log.WithField("categories", strings.Join(snap.SelectedCategories, ",")).Info("game started")
	return snap, err
}

// CompleteGame flags the game as finished.
func (s *GameService) CompleteGame(ctx context.Context) (domain.GameSession, error) {
	return s.mutate(ctx, func(g *domain.GameSession) (bool, error) {
		g.GameCompleted = true
		return true, nil
	})
}

// ApplyCoupon redeems code for the first team. The code is looked up as
// given. It reports false for unknown codes and when no team exists.
// Codes are never consumed.
func (s *GameService) ApplyCoupon(ctx context.Context, code string) (bool, error) {
	value, err := s.coupons.Lookup(ctx, code)
	if errors.Is(err, domain.ErrCouponNotFound) {
		s.metrics.CouponAttempt(false)
		return false, nil
	}
	if err != nil {
		s.metrics.CouponAttempt(false)
		s.log.WithError(err).Error("coupon lookup failed")
		return false, fmt.Errorf("lookup coupon: %w", err)
	}

	snap := s.Snapshot()
	if len(snap.Teams) == 0 {
		s.metrics.CouponAttempt(false)
		return false, nil
	}
	_, err = s.UpdateTeamScore(ctx, snap.Teams[0].ID, value)
	s.metrics.CouponAttempt(true)
	s.log.WithFields(logrus.Fields{"team": snap.Teams[0].ID, "value": value}).Info("coupon redeemed")
	return true, err
}

// Board lays out the selected categories with their questions by tier.
func (s *GameService) Board(ctx context.Context) (domain.Board, error) {
	snap := s.Snapshot()
	categories, err := s.catalog.Categories(ctx)
	if err != nil {
		return domain.Board{}, fmt.Errorf("load categories: %w", err)
	}
	byID := make(map[string]domain.Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}

	board := domain.Board{Columns: make([]domain.BoardColumn, 0, len(snap.SelectedCategories))}
	for _, categoryID := range snap.SelectedCategories {
		category, ok := byID[categoryID]
		if !ok {
			category = domain.Category{ID: categoryID}
		}
		questions, err := s.catalog.QuestionsForCategory(ctx, categoryID)
		if err != nil && !errors.Is(err, domain.ErrCategoryNotFound) {
			return domain.Board{}, fmt.Errorf("questions for %s: %w", categoryID, err)
		}
		column := domain.BoardColumn{Category: category, Questions: make(map[domain.Difficulty][]domain.BoardQuestion)}
		for _, q := range questions {
			answered := snap.IsAnswered(q.ID)
			column.Questions[q.Difficulty] = append(column.Questions[q.Difficulty], domain.BoardQuestion{Question: q, Answered: answered})
			board.Total++
			if answered {
				board.Answered++
			}
		}
		board.Columns = append(board.Columns, column)
	}
	board.Remaining = board.Total - board.Answered
	return board, nil
}

// Standings orders teams by score. Every team on the top score is a winner.
func (s *GameService) Standings() domain.Standings {
	snap := s.Snapshot()
	entries := make([]domain.StandingsEntry, 0, len(snap.Teams))
	for _, t := range snap.Teams {
		entries = append(entries, domain.StandingsEntry{TeamID: t.ID, Name: t.Name, Icon: t.Icon, Score: t.Score})
	}
	// Equal scores keep roster order.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})

	out := domain.Standings{Entries: entries, Winners: []domain.StandingsEntry{}, Completed: snap.GameCompleted}
	for _, e := range entries {
		if e.Score != entries[0].Score {
			break
		}
		out.Winners = append(out.Winners, e)
	}
	out.Tie = len(out.Winners) > 1
	return out
}

func copyString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

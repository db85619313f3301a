package domain

import "slices"

// MaxCategories is the size of a full category selection.
const MaxCategories = 6

// Difficulty is the tier of a question on the board.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Difficulties lists the tiers in board order.
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

// Points returns the fixed point value of the tier, or 0 for an unknown tier.
func (d Difficulty) Points() int {
	switch d {
	case DifficultyEasy:
		return 200
	case DifficultyMedium:
		return 400
	case DifficultyHard:
		return 600
	}
	return 0
}

// Team is one side of the duel.
type Team struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Members []string `json:"members"`
	Icon    string   `json:"icon"`
	Score   int      `json:"score"` // may go negative
}

// Category groups questions on the board.
type Category struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Image string `json:"image" yaml:"image"`
}

// Question is an immutable catalog entry.
type Question struct {
	ID         string     `json:"id" yaml:"id"`
	CategoryID string     `json:"categoryId" yaml:"categoryId"`
	Text       string     `json:"text" yaml:"text"`
	Answer     string     `json:"answer" yaml:"answer"`
	Difficulty Difficulty `json:"difficulty" yaml:"difficulty"`
	Points     int        `json:"points" yaml:"points"`
	Image      string     `json:"image,omitempty" yaml:"image,omitempty"`
}

// WagerAvailability tracks the one wager each team may place per game,
// keyed by roster position.
type WagerAvailability struct {
	Team1 bool `json:"team1"`
	Team2 bool `json:"team2"`
}

// GameSession is the persisted aggregate driven by the game engine.
type GameSession struct {
	Teams              []Team            `json:"teams"`
	SelectedCategories []string          `json:"selectedCategories"`
	AnsweredQuestions  []string          `json:"answeredQuestions"`
	CurrentQuestion    *Question         `json:"currentQuestion"`
	WagerAvailable     WagerAvailability `json:"wagerAvailable"`
	WagerActive        bool              `json:"wagerActive"`
	WagerTeam          *string           `json:"wagerTeam"`
	WagerTargetTeam    *string           `json:"wagerTargetTeam"`
	WagerMultiplier    *Multiplier       `json:"wagerMultiplier"`
	GameCompleted      bool              `json:"gameCompleted"`
	Started            bool              `json:"started"`
}

// NewGameSession returns the initial empty session.
func NewGameSession() GameSession {
	return GameSession{
		Teams:              []Team{},
		SelectedCategories: []string{},
		AnsweredQuestions:  []string{},
		WagerAvailable:     WagerAvailability{Team1: true, Team2: true},
	}
}

// TeamIndex returns the roster position of teamID or -1.
func (g *GameSession) TeamIndex(teamID string) int {
	for i := range g.Teams {
		if g.Teams[i].ID == teamID {
			return i
		}
	}
	return -1
}

// WagerAvailableFor reports whether the team at teamID may still wager.
// The first team owns Team1; every later roster position shares Team2.
func (g *GameSession) WagerAvailableFor(teamID string) bool {
	switch i := g.TeamIndex(teamID); {
	case i == 0:
		return g.WagerAvailable.Team1
	case i > 0:
		return g.WagerAvailable.Team2
	}
	return false
}

// ConsumeWager marks the wager of the team at index i as used.
func (g *GameSession) ConsumeWager(i int) {
	if i == 0 {
		g.WagerAvailable.Team1 = false
		return
	}
	g.WagerAvailable.Team2 = false
}

// IsAnswered reports whether questionID was already resolved.
func (g *GameSession) IsAnswered(questionID string) bool {
	return slices.Contains(g.AnsweredQuestions, questionID)
}

// ClearWager drops any pending wager but keeps the availability flags.
func (g *GameSession) ClearWager() {
	g.WagerActive = false
	g.WagerTeam = nil
	g.WagerTargetTeam = nil
	g.WagerMultiplier = nil
}

// Clone returns a deep copy safe to hand out to callers.
func (g GameSession) Clone() GameSession {
	out := g
	out.Teams = make([]Team, len(g.Teams))
	for i, t := range g.Teams {
		t.Members = slices.Clone(t.Members)
		if t.Members == nil {
			t.Members = []string{}
		}
		out.Teams[i] = t
	}
	out.SelectedCategories = append([]string{}, g.SelectedCategories...)
	out.AnsweredQuestions = append([]string{}, g.AnsweredQuestions...)
	if g.CurrentQuestion != nil {
		q := *g.CurrentQuestion
		out.CurrentQuestion = &q
	}
	out.WagerTeam = clonePtr(g.WagerTeam)
	out.WagerTargetTeam = clonePtr(g.WagerTargetTeam)
	out.WagerMultiplier = clonePtr(g.WagerMultiplier)
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// EconomyState is the persisted settings document.
type EconomyState struct {
	Tokens   int  `json:"tokens"`
	DarkMode bool `json:"darkMode"`
}

// DefaultStartingTokens is the balance granted on first launch.
const DefaultStartingTokens = 5

// NewEconomyState returns the first-run settings.
func NewEconomyState() EconomyState {
	return EconomyState{Tokens: DefaultStartingTokens}
}

// Coupon maps a redeemable code to a point bonus.
type Coupon struct {
	Code  string `json:"code"`
	Value int    `json:"value"`
}

// DefaultCoupons is the ledger seed applied on first run.
var DefaultCoupons = []Coupon{{Code: "TEST1234", Value: 100}}

// TokenPackage is an entry of the in-app store.
type TokenPackage struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Tokens  int    `json:"tokens"`
	Price   string `json:"price"`
	Popular bool   `json:"popular,omitempty"`
}

// TokenPackages is the fixed store offering.
var TokenPackages = []TokenPackage{
	{ID: "basic", Name: "Basic Pack", Tokens: 5, Price: "$0.99"},
	{ID: "standard", Name: "Standard Pack", Tokens: 15, Price: "$2.49", Popular: true},
	{ID: "premium", Name: "Premium Pack", Tokens: 30, Price: "$4.99"},
	{ID: "ultimate", Name: "Ultimate Pack", Tokens: 100, Price: "$9.99"},
}

// FindTokenPackage looks a store package up by id.
func FindTokenPackage(id string) (TokenPackage, bool) {
	for _, p := range TokenPackages {
		if p.ID == id {
			return p, true
		}
	}
	return TokenPackage{}, false
}

// StandingsEntry is a results-screen view of a team.
type StandingsEntry struct {
	TeamID string `json:"teamId"`
	Name   string `json:"name"`
	Icon   string `json:"icon"`
	Score  int    `json:"score"`
}

// Standings captures the ordered final scoreboard.
type Standings struct {
	Entries   []StandingsEntry `json:"entries"`
	Winners   []StandingsEntry `json:"winners"`
	Tie       bool             `json:"tie"`
	Completed bool             `json:"completed"`
}

// BoardQuestion is a question slot on the category board.
type BoardQuestion struct {
	Question Question `json:"question"`
	Answered bool     `json:"answered"`
}

// BoardColumn holds one selected category and its questions by tier.
type BoardColumn struct {
	Category  Category                       `json:"category"`
	Questions map[Difficulty][]BoardQuestion `json:"questions"`
}

// Board is the category board for the selected categories.
type Board struct {
	Columns   []BoardColumn `json:"columns"`
	Total     int           `json:"total"`
	Answered  int           `json:"answered"`
	Remaining int           `json:"remaining"`
}

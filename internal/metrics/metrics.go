package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "trivia_duel"

// Metrics holds the game counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	GamesStarted      prometheus.Counter
	QuestionsResolved *prometheus.CounterVec
	WagersPlaced      *prometheus.CounterVec
	Coupons           *prometheus.CounterVec
	Tokens            *prometheus.CounterVec
	PersistFailures   *prometheus.CounterVec
}

// New registers the counters on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		GamesStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_started_total",
			Help:      "Games started after spending a token",
		}),
		QuestionsResolved: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "questions_resolved_total",
			Help:      "Questions resolved by outcome",
		}, []string{"outcome"}),
		WagersPlaced: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wagers_placed_total",
			Help:      "Wagers placed by multiplier",
		}, []string{"multiplier"}),
		Coupons: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coupon_redemptions_total",
			Help:      "Coupon redemption attempts by result",
		}, []string{"result"}),
		Tokens: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_total",
			Help:      "Tokens granted or spent",
		}, []string{"direction"}),
		PersistFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_failures_total",
			Help:      "Failed durable writes by document",
		}, []string{"document"}),
	}
}

func (m *Metrics) GameStarted() {
	if m == nil {
		return
	}
	m.GamesStarted.Inc()
}

func (m *Metrics) QuestionResolved(outcome string) {
	if m == nil {
		return
	}
	m.QuestionsResolved.WithLabelValues(outcome).Inc()
}

func (m *Metrics) WagerPlaced(multiplier float64) {
	if m == nil {
		return
	}
	m.WagersPlaced.WithLabelValues(strconv.FormatFloat(multiplier, 'f', -1, 64)).Inc()
}

func (m *Metrics) CouponAttempt(redeemed bool) {
	if m == nil {
		return
	}
	result := "rejected"
	if redeemed {
		result = "redeemed"
	}
	m.Coupons.WithLabelValues(result).Inc()
}

func (m *Metrics) TokensGranted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Tokens.WithLabelValues("granted").Add(float64(n))
}

func (m *Metrics) TokenSpent() {
	if m == nil {
		return
	}
	m.Tokens.WithLabelValues("spent").Inc()
}

func (m *Metrics) PersistFailed(document string) {
	if m == nil {
		return
	}
	m.PersistFailures.WithLabelValues(document).Inc()
}

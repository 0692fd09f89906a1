package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Decision outcomes for the decisions metric.
const (
	outcomeBypass   = "bypass"
	outcomeBlock    = "block"
	outcomeQueue    = "queue"
	outcomeContinue = "continue"
)

var (
	mDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zantgate_decisions_total",
		Help: "Admission decisions by outcome",
	}, []string{"outcome"})

	mBans = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zantgate_bans_total",
		Help: "Bans registered by reason",
	}, []string{"reason"})

	mTokensIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zantgate_tokens_issued_total",
		Help: "Fresh queue tokens issued",
	})

	mSuspicionFlags = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zantgate_suspicion_flags_total",
		Help: "Requests flagged by suspicion tag",
	}, []string{"tag"})
)

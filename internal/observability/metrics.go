package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketvault_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "code", "method"},
	)

	TicketsSoldTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketvault_tickets_sold_total",
			Help: "Total tickets sold",
		},
		[]string{"payment"},
	)

	PurchasesRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketvault_purchases_rejected_total",
			Help: "Total rejected purchase attempts",
		},
		[]string{"reason"},
	)

	FundsWithdrawnTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ticketvault_funds_withdrawn_total",
			Help: "Total event fund withdrawals",
		},
	)

	AdminFeeWithdrawnTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ticketvault_admin_fee_withdrawn_total",
			Help: "Total admin fee withdrawals",
		},
	)

	OutboxLag = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ticketvault_outbox_lag_seconds",
			Help: "Age of the oldest unpublished notification",
		},
	)

	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ticketvault_rate_limit_exceeded_total",
			Help: "Total rate limit exceeded",
		},
	)
)

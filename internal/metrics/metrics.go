package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counters for the stamp engine. Registered on the default registry and
// served by Handler.
var (
	SignupsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stampcard_signups_total",
		Help: "Number of signup requests that resolved a customer.",
	})

	StampsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stampcard_stamps_total",
		Help: "Number of accepted stamp accruals.",
	})

	RedemptionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stampcard_redemptions_total",
		Help: "Number of wallet redemptions.",
	})

	CooldownRejectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stampcard_cooldown_rejections_total",
		Help: "Number of stamp requests rejected by the cooldown guard.",
	})

	UnauthorizedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stampcard_unauthorized_total",
		Help: "Number of stamp requests with an invalid token.",
	})
)

// Handler returns the HTTP handler serving the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

package obs

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	LoginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Login attempts by outcome.",
		},
		[]string{"outcome"},
	)

	RotationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_refresh_rotations_total",
			Help: "Refresh-token rotations by outcome.",
		},
		[]string{"outcome"},
	)

	ReuseAlertsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_refresh_reuse_alerts_total",
		Help: "Detected replays of a revoked refresh token.",
	})

	CSRFRejectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "csrf_rejections_total",
		Help: "Mutating requests rejected by the CSRF guard.",
	})
)

// Init registers the collectors in the default registry. Call once at boot.
func Init() {
	prometheus.MustRegister(LoginsTotal, RotationsTotal, ReuseAlertsTotal, CSRFRejectionsTotal)
}

func Handler() http.Handler {
	return promhttp.Handler()
}

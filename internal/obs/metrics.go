// Package obs registers prometheus metrics for the authorisation engine.
package obs

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/adorsys/xs2a-consent-engine/internal/model"
)

var (
	scaTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sca_transitions_total",
			Help: "SCA status transitions applied by the engine.",
		},
		[]string{"type", "from", "to"},
	)

	cryptoOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crypto_operations_total",
			Help: "Encrypt/decrypt operations by provider and outcome.",
		},
		[]string{"provider", "op", "outcome"},
	)

	stopListDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tpp_stoplist_decisions_total",
			Help: "Stop-list gate admission decisions.",
		},
		[]string{"decision"},
	)
)

var registerOnce sync.Once

// Init registers the engine metrics with the default registry.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(scaTransitionsTotal, cryptoOpsTotal, stopListDecisionsTotal)
	})
}

// Handler exposes the prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveTransition counts one applied SCA transition.
func ObserveTransition(t model.AuthorisationType, from, to model.ScaStatus) {
	scaTransitionsTotal.WithLabelValues(string(t), string(from), string(to)).Inc()
}

// ObserveCryptoOp counts one provider operation.
func ObserveCryptoOp(providerID, op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	cryptoOpsTotal.WithLabelValues(providerID, op, outcome).Inc()
}

// ObserveStopListDecision counts one gate decision.
func ObserveStopListDecision(blocked bool) {
	decision := "admitted"
	if blocked {
		decision = "blocked"
	}
	stopListDecisionsTotal.WithLabelValues(decision).Inc()
}

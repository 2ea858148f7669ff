package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "courrier"

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	CourriersCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "courriers_created_total", Help: "Number of courriers registered, by type."},
		[]string{"type"},
	)
	ValidationRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "validation_rejected_total", Help: "Number of courrier field problems that blocked a save, by field."},
		[]string{"field"},
	)
	UsersCreated = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Name: "users_created_total", Help: "Number of users provisioned."},
	)
	Logins = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "logins_total", Help: "Login attempts by outcome."},
		[]string{"outcome"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(CourriersCreated)
	reg.MustRegister(ValidationRejected)
	reg.MustRegister(UsersCreated)
	reg.MustRegister(Logins)
}

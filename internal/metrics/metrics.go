// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	logins               *prometheus.CounterVec
	refreshes            *prometheus.CounterVec
	enrollments          *prometheus.CounterVec
	grades               prometheus.Counter
	notificationFailures prometheus.Counter
}

// NewCollector registers the application's metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coursemgmt_logins_total",
			Help: "Login attempts by outcome.",
		}, []string{"outcome"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coursemgmt_token_refreshes_total",
			Help: "Refresh token exchanges by outcome.",
		}, []string{"outcome"}),
		enrollments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coursemgmt_enrollment_events_total",
			Help: "Enrollment state changes by event.",
		}, []string{"event"}),
		grades: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coursemgmt_grades_recorded_total",
			Help: "Grades recorded.",
		}),
		notificationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coursemgmt_notification_failures_total",
			Help: "Grade notification deliveries that failed.",
		}),
	}

	reg.MustRegister(
		c.logins,
		c.refreshes,
		c.enrollments,
		c.grades,
		c.notificationFailures,
	)

	return c
}

func (c *Collector) RecordLogin(success bool) {
	c.logins.WithLabelValues(outcome(success)).Inc()
}

func (c *Collector) RecordRefresh(success bool) {
	c.refreshes.WithLabelValues(outcome(success)).Inc()
}

func (c *Collector) RecordEnrollment(event string) {
	c.enrollments.WithLabelValues(event).Inc()
}

func (c *Collector) RecordGrade() {
	c.grades.Inc()
}

func (c *Collector) RecordNotificationFailure() {
	c.notificationFailures.Inc()
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// Handler returns the Prometheus scrape handler for the registry.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Package metrics exposes HydroMate counters and histograms to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hydromate/hydromate-bot/internal/domain/shared"
)

// Metrics holds every collector of the bot.
type Metrics struct {
	waterLoggedMl        *prometheus.CounterVec
	waterEntries         *prometheus.CounterVec
	achievementsUnlocked *prometheus.CounterVec
	commandFailures      *prometheus.CounterVec
	remindersSent        *prometheus.CounterVec
	jobRuns              *prometheus.CounterVec
	jobDuration          *prometheus.HistogramVec
	telegramUpdates      *prometheus.CounterVec
	usersTracked         prometheus.Gauge
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
}

// New creates the collectors. Call MustRegister before use.
func New() *Metrics {
	return &Metrics{
		waterLoggedMl: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hydromate_water_logged_ml_total",
				Help: "Total amount of water logged, in ml",
			},
			[]string{"source"},
		),
		waterEntries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hydromate_water_entries_total",
				Help: "Total number of water log entries",
			},
			[]string{"source"},
		),
		achievementsUnlocked: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hydromate_achievements_unlocked_total",
				Help: "Total number of unlocked achievements",
			},
			[]string{"achievement"},
		),
		commandFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hydromate_command_failures_total",
				Help: "Total number of failed commands",
			},
			[]string{"command", "kind"},
		),
		remindersSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hydromate_reminders_total",
				Help: "Reminder decisions by outcome",
			},
			[]string{"outcome"},
		),
		jobRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hydromate_job_runs_total",
				Help: "Scheduled job runs",
			},
			[]string{"job", "status"},
		),
		jobDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hydromate_job_duration_seconds",
				Help:    "Duration of scheduled job runs",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"job"},
		),
		telegramUpdates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hydromate_telegram_updates_total",
				Help: "Telegram updates by kind and outcome",
			},
			[]string{"kind", "status"},
		),
		usersTracked: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "hydromate_users_tracked",
				Help: "Number of users in the roster",
			},
		),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"path", "method", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path", "method"},
		),
	}
}

// MustRegister registers every collector with reg.
func (m *Metrics) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		m.waterLoggedMl,
		m.waterEntries,
		m.achievementsUnlocked,
		m.commandFailures,
		m.remindersSent,
		m.jobRuns,
		m.jobDuration,
		m.telegramUpdates,
		m.usersTracked,
		m.httpRequestsTotal,
		m.httpRequestDuration,
	)
}

// WaterLogged counts one entry of amountMl.
func (m *Metrics) WaterLogged(source string, amountMl int) {
	m.waterLoggedMl.WithLabelValues(source).Add(float64(amountMl))
	m.waterEntries.WithLabelValues(source).Inc()
}

// AchievementUnlocked counts one unlock.
func (m *Metrics) AchievementUnlocked(id string) {
	m.achievementsUnlocked.WithLabelValues(id).Inc()
}

// CommandFailed counts a failed command by error kind.
func (m *Metrics) CommandFailed(command string, err error) {
	m.commandFailures.WithLabelValues(command, ErrorKind(err)).Inc()
}

// ReminderOutcome counts a reminder decision (sent, skipped, failed).
func (m *Metrics) ReminderOutcome(outcome string) {
	m.remindersSent.WithLabelValues(outcome).Inc()
}

// JobFinished records a scheduled job run.
func (m *Metrics) JobFinished(job string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.jobRuns.WithLabelValues(job, status).Inc()
	m.jobDuration.WithLabelValues(job).Observe(duration.Seconds())
}

// UpdateHandled counts a processed Telegram update.
func (m *Metrics) UpdateHandled(kind string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.telegramUpdates.WithLabelValues(kind, status).Inc()
}

// SetUsersTracked sets the roster size.
func (m *Metrics) SetUsersTracked(n int) {
	m.usersTracked.Set(float64(n))
}

// ErrorKind maps an error to a low-cardinality label.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "none"
	case shared.IsValidation(err):
		return "validation"
	case shared.IsNotFound(err):
		return "not_found"
	case shared.IsPersistence(err):
		return "persistence"
	default:
		return "internal"
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// HTTP MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// MonitorMiddleware tracks request counts and durations.
// Paths are labelled with the mux route template to keep cardinality low.
func (m *Metrics) MonitorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				path = tpl
			}
		}

		m.httpRequestsTotal.WithLabelValues(path, r.Method, strconv.Itoa(ww.statusCode)).Inc()
		m.httpRequestDuration.WithLabelValues(path, r.Method).Observe(time.Since(start).Seconds())
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CommandsTotal tracks finished commands by action and outcome
	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "armctl_commands_total",
			Help: "Total number of commands sent to the arm controller",
		},
		[]string{"action", "outcome"},
	)

	// RejectedTotal tracks commands refused locally before any request
	RejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "armctl_rejected_total",
			Help: "Total number of commands rejected by envelope validation",
		},
		[]string{"field", "bound"},
	)

	// AttemptsTotal tracks individual HTTP attempts
	AttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "armctl_attempts_total",
			Help: "Total number of HTTP attempts, including retries",
		},
		[]string{"operation", "result"},
	)

	// RetriesTotal tracks backoff waits by transient reason
	RetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "armctl_retries_total",
			Help: "Total number of retries after transient failures",
		},
		[]string{"operation", "reason"},
	)

	// CommandLatency tracks end-to-end command latency including backoff
	CommandLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "armctl_command_latency_seconds",
			Help:    "Command latency in seconds, retries included",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// JournalErrorsTotal tracks failed journal writes
	JournalErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "armctl_journal_errors_total",
			Help: "Total number of command journal write failures",
		},
		[]string{"driver"},
	)

	// LastCommandTimestamp tracks when each action last succeeded
	LastCommandTimestamp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "armctl_last_success_timestamp_seconds",
			Help: "Unix time of the last successful command",
		},
		[]string{"action"},
	)
)

// WriteTextfile dumps every registered metric to path in the text exposition
// format, for the node exporter textfile collector. armctl is short lived, so
// there is no scrape endpoint.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}

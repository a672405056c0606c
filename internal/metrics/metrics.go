// Package metrics объявляет счётчики Prometheus для прохода рассылки напоминаний.
// Счётчики регистрируются в глобальном реестре и отдаются через /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RemindersSent количество успешно отправленных напоминаний.
	RemindersSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "subtracker_reminders_sent_total",
		Help: "Total number of renewal reminders delivered.",
	})

	// Rollovers количество сдвигов даты списания на следующий цикл.
	Rollovers = promauto.NewCounter(prometheus.CounterOpts{
		Name: "subtracker_rollovers_total",
		Help: "Total number of renewal date rollovers.",
	})

	// SweepErrors количество ошибок на отдельных записях во время прохода.
	SweepErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "subtracker_sweep_errors_total",
		Help: "Total number of per-record errors during the notification sweep.",
	})
)

// Package metrics exposes MindMate's Prometheus counters over HTTP.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const Namespace = "mindmate"

// Collector holds every metric on its own registry, so several collectors can
// coexist in one process (tests, multiple front-ends).
type Collector struct {
	registry *prometheus.Registry

	Messages       *prometheus.CounterVec
	Replies        *prometheus.CounterVec
	ReplyDuration  prometheus.Histogram
	Transcriptions *prometheus.CounterVec
	JournalSaves   prometheus.Counter
}

func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	messages := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "User messages sent to the conversation, by input source",
		},
		[]string{"source"},
	)
	replies := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replies_total",
			Help:      "Model round trips, by outcome",
		},
		[]string{"outcome"},
	)
	replyDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reply_duration_seconds",
			Help:      "Model round trip duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
		},
	)
	transcriptions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcriptions_total",
			Help:      "Voice captures, by outcome",
		},
		[]string{"outcome"},
	)
	journalSaves := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "journal_saves_total",
			Help:      "Journal entries saved",
		},
	)

	registry.MustRegister(
		messages,
		replies,
		replyDuration,
		transcriptions,
		journalSaves,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Collector{
		registry:       registry,
		Messages:       messages,
		Replies:        replies,
		ReplyDuration:  replyDuration,
		Transcriptions: transcriptions,
		JournalSaves:   journalSaves,
	}
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// ObserveReply records one model round trip.
func (c *Collector) ObserveReply(d time.Duration, fallback bool) {
	outcome := "ok"
	if fallback {
		outcome = "fallback"
	}
	c.Replies.WithLabelValues(outcome).Inc()
	c.ReplyDuration.Observe(d.Seconds())
}

func (c *Collector) RecordMessage(voice bool) {
	source := "text"
	if voice {
		source = "voice"
	}
	c.Messages.WithLabelValues(source).Inc()
}

// RecordTranscription counts a finished capture; empty is a capture that
// produced no text (error, silence or stop).
func (c *Collector) RecordTranscription(empty bool) {
	outcome := "ok"
	if empty {
		outcome = "empty"
	}
	c.Transcriptions.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordJournalSave() { c.JournalSaves.Inc() }

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "newsbrief"

// Metrics holds the pipeline counters. A nil *Metrics is valid and records
// nothing, so components can take it as an optional collaborator.
type Metrics struct {
	summaries    *prometheus.CounterVec
	translations *prometheus.CounterVec
	retries      prometheus.Counter
	duration     *prometheus.HistogramVec
	cache        *prometheus.CounterVec
	duplicates   prometheus.Counter
	processed    prometheus.Counter
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		summaries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summaries_total",
			Help:      "Summaries produced, by language and outcome.",
		}, []string{"lang", "outcome"}),
		translations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translations_total",
			Help:      "Plain translations, by outcome.",
		}, []string{"outcome"}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completion_retries_total",
			Help:      "Completion attempts that failed and were retried.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "summary_duration_seconds",
			Help:      "Time spent producing one summary.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"lang"}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Summary cache lookups, by result.",
		}, []string{"result"}),
		duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_filtered_total",
			Help:      "Feed items dropped as duplicates.",
		}),
		processed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "news_processed_total",
			Help:      "Feed items seen by the pipeline.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.summaries, m.translations, m.retries, m.duration, m.cache, m.duplicates, m.processed)
	}
	return m
}

func (m *Metrics) ObserveSummary(lang, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.summaries.WithLabelValues(lang, outcome).Inc()
	m.duration.WithLabelValues(lang).Observe(d.Seconds())
}

func (m *Metrics) ObserveTranslation(outcome string) {
	if m == nil {
		return
	}
	m.translations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementRetries() {
	if m == nil {
		return
	}
	m.retries.Inc()
}

func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cache.WithLabelValues(result).Inc()
}

func (m *Metrics) IncrementDuplicatesFiltered() {
	if m == nil {
		return
	}
	m.duplicates.Inc()
}

func (m *Metrics) IncrementNewsProcessed() {
	if m == nil {
		return
	}
	m.processed.Inc()
}

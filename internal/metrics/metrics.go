package metrics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"querydesk/internal/models"
)

// Routing and learning outcomes.
const (
	OutcomeAssigned  = "assigned"
	OutcomeNoSubject = "no_subject"
	OutcomeNoStaff   = "no_staff"

	LearnOK          = "ok"
	LearnUnsupported = "unsupported"
	LearnFailed      = "failed"
)

var queryStatusDesc = prometheus.NewDesc(
	"querydesk_queries",
	"Current number of queries by category and status",
	[]string{"category", "status"},
	nil,
)

// StatusCounter reads per-status query counts.
type StatusCounter interface {
	CountQueriesByStatus(ctx context.Context) ([]models.QueryStatusCount, error)
}

// QueryStatusCollector is a custom Prometheus collector that reads query counts
// from the database on each scrape.
type QueryStatusCollector struct {
	counter StatusCounter
	timeout time.Duration
}

// Describe sends the metric descriptor to the channel.
func (c *QueryStatusCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- queryStatusDesc
}

// Collect queries the database and emits one gauge per category and status.
func (c *QueryStatusCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	counts, err := c.counter.CountQueriesByStatus(ctx)
	if err != nil {
		slog.Error("failed to collect query status metrics", "error", err)
		return
	}
	for _, qc := range counts {
		ch <- prometheus.MustNewConstMetric(
			queryStatusDesc,
			prometheus.GaugeValue,
			float64(qc.Count),
			qc.Category,
			string(qc.Status),
		)
	}
}

// Metrics holds the application's instruments.
type Metrics struct {
	registry        *prometheus.Registry
	routingOutcomes *prometheus.CounterVec
	keywordLearning *prometheus.CounterVec
	keywordsLearned prometheus.Counter
	corpusSubjects  prometheus.Gauge
}

// New creates the instruments on a fresh registry. counter may be nil, in which
// case query status gauges are not exported.
func New(counter StatusCounter) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		routingOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "querydesk_routing_outcomes_total",
			Help: "Query routing decisions by category and outcome",
		}, []string{"category", "outcome"}),
		keywordLearning: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "querydesk_keyword_learning_total",
			Help: "Document keyword learning attempts by outcome",
		}, []string{"outcome"}),
		keywordsLearned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "querydesk_keywords_learned_total",
			Help: "Keywords newly added to subjects from uploaded documents",
		}),
		corpusSubjects: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "querydesk_corpus_subjects",
			Help: "Subjects in the in-memory routing corpus",
		}),
	}

	m.registry.MustRegister(
		m.routingOutcomes,
		m.keywordLearning,
		m.keywordsLearned,
		m.corpusSubjects,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if counter != nil {
		m.registry.MustRegister(&QueryStatusCollector{counter: counter, timeout: 5 * time.Second})
	}
	return m
}

var (
	std     *Metrics
	stdOnce sync.Once
)

// Init creates the process-wide instruments. Must be called once at startup;
// the package-level recorders are no-ops until then.
func Init(counter StatusCounter) *Metrics {
	stdOnce.Do(func() {
		std = New(counter)
	})
	return std
}

// RoutingOutcome records how a new query was routed.
func (m *Metrics) RoutingOutcome(category string, subjectFound, assigned bool) {
	outcome := OutcomeAssigned
	switch {
	case assigned:
	case category == models.CategoryAcademics && !subjectFound:
		outcome = OutcomeNoSubject
	default:
		outcome = OutcomeNoStaff
	}
	m.routingOutcomes.WithLabelValues(category, outcome).Inc()
}

// KeywordLearning records the outcome of learning from one document.
func (m *Metrics) KeywordLearning(outcome string, added int) {
	m.keywordLearning.WithLabelValues(outcome).Inc()
	if added > 0 {
		m.keywordsLearned.Add(float64(added))
	}
}

// CorpusSize sets the number of subjects in the routing corpus.
func (m *Metrics) CorpusSize(n int) {
	m.corpusSubjects.Set(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

// RecordRouting records a routing outcome on the process-wide instruments.
func RecordRouting(category string, subjectFound, assigned bool) {
	if std != nil {
		std.RoutingOutcome(category, subjectFound, assigned)
	}
}

// RecordKeywordLearning records a learning outcome on the process-wide instruments.
func RecordKeywordLearning(outcome string, added int) {
	if std != nil {
		std.KeywordLearning(outcome, added)
	}
}

// RecordCorpusSize sets the corpus gauge on the process-wide instruments.
func RecordCorpusSize(n int) {
	if std != nil {
		std.CorpusSize(n)
	}
}

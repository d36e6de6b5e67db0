package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Recorder interface {
	ObserveFetch(err error)
	SetPlayersOnline(n int)
	IncQuorumBroadcast()
	SetQuorumSubscribers(n int)
	IncAlertNotification(ok bool)
	SetAlertSubscriptions(n int)
	ObserveFlush(document string, d time.Duration, err error)
	Handler() http.Handler
}

type Provider struct {
	reg *prometheus.Registry

	fetchesTotal       *prometheus.CounterVec
	playersOnline      prometheus.Gauge
	quorumBroadcasts   prometheus.Counter
	quorumSubscribers  prometheus.Gauge
	alertNotifications *prometheus.CounterVec
	alertSubscriptions prometheus.Gauge
	flushesTotal       *prometheus.CounterVec
	flushDuration      *prometheus.HistogramVec
}

// New devuelve el provider de prometheus, o un noop si está deshabilitado.
func New(enabled bool) Recorder {
	if !enabled {
		return Noop()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Provider{
		reg: reg,
		fetchesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "psbot_stats_fetches_total",
			Help: "Stats feed fetches by result",
		}, []string{"result"}),
		playersOnline: f.NewGauge(prometheus.GaugeOpts{
			Name: "psbot_players_online",
			Help: "Players online in the last good snapshot",
		}),
		quorumBroadcasts: f.NewCounter(prometheus.CounterOpts{
			Name: "psbot_quorum_broadcasts_total",
			Help: "Quorum broadcasts sent",
		}),
		quorumSubscribers: f.NewGauge(prometheus.GaugeOpts{
			Name: "psbot_quorum_subscribers",
			Help: "Current quorum subscribers",
		}),
		alertNotifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "psbot_alert_notifications_total",
			Help: "Alert direct messages by result",
		}, []string{"result"}),
		alertSubscriptions: f.NewGauge(prometheus.GaugeOpts{
			Name: "psbot_alert_subscriptions",
			Help: "Stored alert subscriptions",
		}),
		flushesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "psbot_document_flushes_total",
			Help: "Document writes to the blob store by result",
		}, []string{"document", "result"}),
		flushDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "psbot_document_flush_duration_seconds",
			Help:    "Duration of document writes in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"document"}),
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (p *Provider) ObserveFetch(err error)     { p.fetchesTotal.WithLabelValues(result(err)).Inc() }
func (p *Provider) SetPlayersOnline(n int)     { p.playersOnline.Set(float64(n)) }
func (p *Provider) IncQuorumBroadcast()        { p.quorumBroadcasts.Inc() }
func (p *Provider) SetQuorumSubscribers(n int) { p.quorumSubscribers.Set(float64(n)) }
func (p *Provider) SetAlertSubscriptions(n int) {
	p.alertSubscriptions.Set(float64(n))
}

func (p *Provider) IncAlertNotification(ok bool) {
	r := "sent"
	if !ok {
		r = "failed"
	}
	p.alertNotifications.WithLabelValues(r).Inc()
}

func (p *Provider) ObserveFlush(document string, d time.Duration, err error) {
	p.flushesTotal.WithLabelValues(document, result(err)).Inc()
	p.flushDuration.WithLabelValues(document).Observe(d.Seconds())
}

func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{Registry: p.reg})
}

// noopMetrics cuando METRICS_ENABLED=false.
type noopMetrics struct{}

func Noop() Recorder { return noopMetrics{} }

func (noopMetrics) ObserveFetch(error)                         {}
func (noopMetrics) SetPlayersOnline(int)                       {}
func (noopMetrics) IncQuorumBroadcast()                        {}
func (noopMetrics) SetQuorumSubscribers(int)                   {}
func (noopMetrics) IncAlertNotification(bool)                  {}
func (noopMetrics) SetAlertSubscriptions(int)                  {}
func (noopMetrics) ObserveFlush(string, time.Duration, error) {}
func (noopMetrics) Handler() http.Handler                      { return http.NotFoundHandler() }

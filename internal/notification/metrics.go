package notification

import (
	"github.com/nao1215/creatorhub/pkg/feed"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics はフィードの変更から集計するPrometheusメトリクス。
type Metrics struct {
	inserted *prometheus.CounterVec
	read     prometheus.Counter
	unread   prometheus.Gauge
}

// NewMetrics はメトリクスを生成してregに登録する。
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		inserted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "creatorhub_notifications_inserted_total",
				Help: "Total number of notifications inserted into feeds",
			},
			[]string{"category"},
		),
		read: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "creatorhub_notifications_read_total",
			Help: "Total number of notifications marked as read",
		}),
		unread: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "creatorhub_notifications_unread",
			Help: "Current number of unread notifications across all feeds",
		}),
	}
	reg.MustRegister(m.inserted, m.read, m.unread)
	return m
}

// Observe はHubのリスナーとしてフィードの変更を集計する。
func (m *Metrics) Observe(_ string, c feed.Change) {
	switch c.Kind {
	case feed.ChangeInserted:
		m.inserted.WithLabelValues(string(c.Notification.Category)).Inc()
		if !c.Notification.IsRead {
			m.unread.Inc()
		}
	case feed.ChangeRead:
		m.read.Inc()
		m.unread.Dec()
	}
}

// Sync は未読件数のゲージをHub全体の現在値に合わせる。
// ジャーナル再生はリスナーを経由しないため、再生後に呼び出す。
func (m *Metrics) Sync(hub *feed.Hub) {
	total := 0
	for _, owner := range hub.Owners() {
		total += hub.Store(owner).UnreadCount()
	}
	m.unread.Set(float64(total))
}

package notification

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/nao1215/creatorhub/pkg/feed"
)

// TestMetrics はフィードの変更からの集計を検証する。
func TestMetrics(t *testing.T) {
	t.Parallel()

	t.Run("挿入と既読が集計されること", func(t *testing.T) {
		t.Parallel()

		m := NewMetrics(prometheus.NewRegistry())
		hub := feed.NewHub()
		hub.Subscribe(m.Observe)

		s := hub.Store("brand-1")
		a := s.Insert(feed.Draft{Category: feed.CategoryMessage, Title: "A"})
		s.Insert(feed.Draft{Category: feed.CategoryMessage, Title: "B"})
		hub.Store("creator-1").Insert(feed.Draft{Category: feed.CategoryPayment, Title: "C"})
		s.MarkAsRead(a.ID)
		s.MarkAsRead(a.ID)

		if got := testutil.ToFloat64(m.inserted.WithLabelValues("message")); got != 2 {
			t.Errorf("inserted{message} = %v, want 2", got)
		}
		if got := testutil.ToFloat64(m.inserted.WithLabelValues("payment")); got != 1 {
			t.Errorf("inserted{payment} = %v, want 1", got)
		}
		if got := testutil.ToFloat64(m.read); got != 1 {
			t.Errorf("read = %v, want 1", got)
		}
		if got := testutil.ToFloat64(m.unread); got != 2 {
			t.Errorf("unread = %v, want 2", got)
		}

		hub.Store("creator-1").MarkAllAsRead()
		s.MarkAllAsRead()
		if got := testutil.ToFloat64(m.unread); got != 0 {
			t.Errorf("unread = %v, want 0", got)
		}
	})

	t.Run("Syncで未読件数がHubの値に合うこと", func(t *testing.T) {
		t.Parallel()

		m := NewMetrics(prometheus.NewRegistry())
		hub := feed.NewHub()
		hub.Restore("brand-1", feed.Notification{ID: 1, Category: feed.CategorySystem, Title: "A"})
		hub.Restore("brand-1", feed.Notification{ID: 2, Category: feed.CategorySystem, Title: "B", IsRead: true})
		hub.Restore("creator-1", feed.Notification{ID: 1, Category: feed.CategorySystem, Title: "C"})

		m.Sync(hub)
		if got := testutil.ToFloat64(m.unread); got != 2 {
			t.Errorf("unread = %v, want 2", got)
		}
	})

	t.Run("同じレジストリに二重登録するとパニックすること", func(t *testing.T) {
		t.Parallel()

		reg := prometheus.NewRegistry()
		NewMetrics(reg)
		defer func() {
			if recover() == nil {
				t.Error("パニックが発生しませんでした")
			}
		}()
		NewMetrics(reg)
	})
}

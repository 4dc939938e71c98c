package notification

import (
	"net/http"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/nao1215/creatorhub/pkg/feed"
)

// TestServiceRestart は再起動後にジャーナルからフィードが復元されることを検証する。
func TestServiceRestart(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Port:        "0",
		DBPath:      filepath.Join(t.TempDir(), "notification.db"),
		JWTSecret:   "service-test-secret",
		SeedSamples: true,
	}

	svc, err := NewService(t.Context(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("NewService()でエラーが発生: %v", err)
	}
	store := svc.Hub().Store("brand-1")
	store.MarkAsRead(2)
	if store.UnreadCount() != 1 {
		t.Fatalf("未読件数 = %d, want 1", store.UnreadCount())
	}
	w := doRequest(svc.server.Handler(), http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("メトリクスのステータスコード = %d", w.Code)
	}
	if err := svc.Close(); err != nil {
		t.Fatalf("Close()でエラーが発生: %v", err)
	}

	restarted, err := NewService(t.Context(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("再起動に失敗: %v", err)
	}
	t.Cleanup(func() { restarted.Close() })

	got := restarted.Hub().Store("brand-1")
	if got.Len() != 3 {
		t.Errorf("件数 = %d, want 3", got.Len())
	}
	if got.UnreadCount() != 1 {
		t.Errorf("未読件数 = %d, want 1", got.UnreadCount())
	}
	if n, ok := got.Get(2); !ok || !n.IsRead || n.ReadAt == nil {
		t.Errorf("ID 2 = %+v, ok = %v", n, ok)
	}
	if n := got.Insert(feed.Draft{Category: feed.CategorySystem, Title: "Video call started"}); n.ID != 4 {
		t.Errorf("次のID = %d, want 4", n.ID)
	}
}

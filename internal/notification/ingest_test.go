package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/nao1215/creatorhub/pkg/feed"
	"github.com/nao1215/creatorhub/pkg/producer"
)

// fakeReader はメモリ上のメッセージを順に返すMessageReader。
// メッセージを返し切るとctxがキャンセルされるまでブロックする。
type fakeReader struct {
	mu        sync.Mutex
	messages  []kafka.Message
	failures  int
	committed []int64
	closed    bool
	done      chan struct{}
}

func newFakeReader(msgs ...kafka.Message) *fakeReader {
	for i := range msgs {
		msgs[i].Offset = int64(i)
		msgs[i].Topic = "notification-requests"
	}
	return &fakeReader{messages: msgs, done: make(chan struct{})}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if r.failures > 0 {
		r.failures--
		r.mu.Unlock()
		return kafka.Message{}, errors.New("broker unavailable")
	}
	if len(r.messages) > 0 {
		m := r.messages[0]
		r.messages = r.messages[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	if len(r.messages) == 0 {
		select {
		case <-r.done:
		default:
			close(r.done)
		}
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// runIngest はすべてのメッセージがコミットされるまでIngestを実行するヘルパー関数。
func runIngest(t *testing.T, r *fakeReader, hub *feed.Hub) {
	t.Helper()

	ingest := NewIngest(r, producer.NewLocalPublisher(hub), zap.NewNop())
	ingest.backoff = time.Millisecond

	ctx, cancel := context.WithCancel(t.Context())
	errCh := make(chan error, 1)
	go func() { errCh <- ingest.Run(ctx) }()

	select {
	case <-r.done:
	case <-time.After(5 * time.Second):
		t.Fatal("メッセージの処理がタイムアウトしました")
	}
	cancel()

	if err := <-errCh; err != nil {
		t.Errorf("Run()でエラーが発生: %v", err)
	}
}

// TestIngest はKafkaからの通知依頼の受信を検証する。
func TestIngest(t *testing.T) {
	t.Parallel()

	t.Run("通知依頼が指定アカウントのフィードに挿入されること", func(t *testing.T) {
		t.Parallel()

		r := newFakeReader(
			kafka.Message{Value: []byte(`{"user_id":"creator-1","category":"campaign","title":"New campaign application","body":"Sarah applied"}`)},
			kafka.Message{Key: []byte("brand-1"), Value: []byte(`{"category":"payment","title":"Payment received","priority":"high"}`)},
		)
		hub := feed.NewHub()
		runIngest(t, r, hub)

		if got := hub.Store("creator-1").All(); len(got) != 1 || got[0].Title != "New campaign application" {
			t.Errorf("creator-1 = %+v", got)
		}
		// user_idが無い場合はメッセージキーが通知先になる
		got := hub.Store("brand-1").All()
		if len(got) != 1 || !got[0].Important() {
			t.Errorf("brand-1 = %+v", got)
		}
		if len(r.committed) != 2 || !r.closed {
			t.Errorf("committed = %v, closed = %v", r.committed, r.closed)
		}
	})

	t.Run("不正なメッセージは読み飛ばしてコミットされること", func(t *testing.T) {
		t.Parallel()

		r := newFakeReader(
			kafka.Message{Value: []byte(`not json`)},
			kafka.Message{Value: []byte(`{"user_id":"u","category":"spam","title":"t"}`)},
			kafka.Message{Value: []byte(`{"category":"system","title":"t"}`)},
			kafka.Message{Value: []byte(`{"user_id":"u","category":"system","title":"ok"}`)},
		)
		hub := feed.NewHub()
		runIngest(t, r, hub)

		if len(r.committed) != 4 {
			t.Errorf("committed = %v, want 4件", r.committed)
		}
		if owners := hub.Owners(); len(owners) != 1 || owners[0] != "u" {
			t.Errorf("Owners() = %v, want [u]", owners)
		}
		if hub.Store("u").Len() != 1 {
			t.Errorf("件数 = %d, want 1", hub.Store("u").Len())
		}
	})

	t.Run("受信エラー後も再試行して処理を続けること", func(t *testing.T) {
		t.Parallel()

		r := newFakeReader(kafka.Message{Value: []byte(`{"user_id":"u","category":"review","title":"New review"}`)})
		r.failures = 2
		hub := feed.NewHub()
		runIngest(t, r, hub)

		if hub.Store("u").Len() != 1 {
			t.Errorf("件数 = %d, want 1", hub.Store("u").Len())
		}
	})
}

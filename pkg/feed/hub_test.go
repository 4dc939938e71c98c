package feed

import (
	"sync"
	"testing"
	"time"
)

// TestHubStore はアカウントごとのストア管理を検証する。
func TestHubStore(t *testing.T) {
	t.Parallel()

	t.Run("同じアカウントには同じストアを返す", func(t *testing.T) {
		t.Parallel()
		h := NewHub()

		a := h.Store("brand-1")
		if h.Store("brand-1") != a {
			t.Error("同じアカウントで別のストアが返った")
		}
		if h.Store("creator-1") == a {
			t.Error("別のアカウントで同じストアが返った")
		}

		owners := h.Owners()
		if len(owners) != 2 || owners[0] != "brand-1" || owners[1] != "creator-1" {
			t.Errorf("Owners: got %v", owners)
		}
	})

	t.Run("アカウント間で通知は混ざらない", func(t *testing.T) {
		t.Parallel()
		h := NewHub()

		h.Store("brand-1").Insert(draft("ブランド宛"))
		h.Store("creator-1").Insert(draft("クリエイター宛"))
		h.Store("creator-1").Insert(draft("クリエイター宛2"))

		if got := h.Store("brand-1").Len(); got != 1 {
			t.Errorf("brand-1の件数: got %d, want 1", got)
		}
		if got := h.Store("creator-1").UnreadCount(); got != 2 {
			t.Errorf("creator-1の未読件数: got %d, want 2", got)
		}
	})
}

// TestHubSubscribe はHub全体の変更購読を検証する。
func TestHubSubscribe(t *testing.T) {
	t.Parallel()

	h := NewHub()
	type received struct {
		owner string
		kind  ChangeKind
	}
	var mu sync.Mutex
	var got []received
	h.Subscribe(func(owner string, c Change) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, received{owner: owner, kind: c.Kind})
	})

	n := h.Store("brand-1").Insert(draft("A"))
	h.Store("brand-1").MarkAsRead(n.ID)
	// 購読後に生成されたストアの変更も届く
	h.Store("creator-1").Insert(draft("B"))

	want := []received{
		{owner: "brand-1", kind: ChangeInserted},
		{owner: "brand-1", kind: ChangeRead},
		{owner: "creator-1", kind: ChangeInserted},
	}
	if len(got) != len(want) {
		t.Fatalf("変更件数: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d]: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

// TestHubSeeder は新規アカウントの初期通知を検証する。
func TestHubSeeder(t *testing.T) {
	t.Parallel()

	seed := func() []Notification {
		return []Notification{
			{ID: 1, Category: CategoryCampaign, Title: "応募"},
			{ID: 2, Category: CategoryMessage, Title: "メッセージ"},
			{ID: 3, Category: CategoryPayment, Title: "入金", IsRead: true},
		}
	}

	t.Run("初回アクセス時に初期通知が入り挿入として配信される", func(t *testing.T) {
		t.Parallel()
		h := NewHub(WithSeeder(seed))
		var inserted int
		h.Subscribe(func(_ string, c Change) {
			if c.Kind == ChangeInserted {
				inserted++
			}
		})

		s := h.Store("brand-1")
		if got := titles(s.All()); !equalStrings(got, []string{"入金", "メッセージ", "応募"}) {
			t.Errorf("順序: got %v", got)
		}
		if s.UnreadCount() != 2 {
			t.Errorf("未読件数: got %d, want 2", s.UnreadCount())
		}
		if inserted != 3 {
			t.Errorf("挿入の配信件数: got %d, want 3", inserted)
		}

		if n := s.Insert(draft("新着")); n.ID != 4 {
			t.Errorf("次のID: got %d, want 4", n.ID)
		}

		// 2回目のアクセスでは再投入しない
		if h.Store("brand-1").Len() != 4 {
			t.Errorf("件数: got %d, want 4", h.Store("brand-1").Len())
		}
	})

	t.Run("初期通知の配信中にリスナーからHubを参照できる", func(t *testing.T) {
		t.Parallel()
		h := NewHub(WithSeeder(seed))
		var mu sync.Mutex
		var owners [][]string
		var lens []int
		h.Subscribe(func(owner string, _ Change) {
			o := h.Owners()
			l := h.Store(owner).Len()
			mu.Lock()
			owners = append(owners, o)
			lens = append(lens, l)
			mu.Unlock()
		})

		done := make(chan struct{})
		go func() {
			defer close(done)
			var wg sync.WaitGroup
			for _, owner := range []string{"brand-1", "brand-2"} {
				wg.Add(1)
				go func() {
					defer wg.Done()
					h.Store(owner).Insert(draft("新着"))
				}()
			}
			wg.Wait()
		}()

		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("リスナーからのHub参照で処理が完了しない")
		}

		mu.Lock()
		defer mu.Unlock()
		if len(owners) != 8 {
			t.Fatalf("配信件数: got %d, want 8", len(owners))
		}
		for i, o := range owners {
			if len(o) == 0 {
				t.Errorf("owners[%d]: 空", i)
			}
		}
		for i, l := range lens {
			if l < 3 {
				t.Errorf("lens[%d]: got %d, want >= 3", i, l)
			}
		}
	})

	t.Run("初期通知は後続の挿入より先に配信される", func(t *testing.T) {
		t.Parallel()
		h := NewHub(WithSeeder(seed))
		var mu sync.Mutex
		var ids []ID
		h.Subscribe(func(_ string, c Change) {
			mu.Lock()
			ids = append(ids, c.Notification.ID)
			mu.Unlock()
		})

		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				h.Store("brand-1").Insert(draft("並行"))
			}()
		}
		wg.Wait()

		mu.Lock()
		defer mu.Unlock()
		if len(ids) != 7 {
			t.Fatalf("配信件数: got %d, want 7", len(ids))
		}
		for i, id := range ids {
			if id != ID(i+1) {
				t.Errorf("ids[%d]: got %d, want %d", i, id, i+1)
			}
		}
	})

	t.Run("Restoreで生成したストアには初期通知を入れない", func(t *testing.T) {
		t.Parallel()
		h := NewHub(WithSeeder(seed))

		h.Restore("brand-1", Notification{ID: 10, Category: CategorySystem, Title: "復元"})

		s := h.Store("brand-1")
		if s.Len() != 1 {
			t.Errorf("件数: got %d, want 1", s.Len())
		}
	})
}

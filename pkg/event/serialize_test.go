package event

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/nao1215/creatorhub/pkg/feed"
)

// TestNew はNew関数でイベントが正しく生成されることを検証する。
func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("NotificationReadDataでイベントを正常に生成できること", func(t *testing.T) {
		t.Parallel()

		readAt := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
		data := NotificationReadData{NotificationID: 3, ReadAt: readAt}

		before := time.Now().UTC()
		ev, err := New("brand-1", AggregateTypeFeed, TypeNotificationRead, data)
		after := time.Now().UTC()

		if err != nil {
			t.Fatalf("New()でエラーが発生: %v", err)
		}
		if ev.ID == "" {
			t.Error("IDが空文字列")
		}
		if ev.AggregateID != "brand-1" {
			t.Errorf("AggregateID = %q, want %q", ev.AggregateID, "brand-1")
		}
		if ev.AggregateType != AggregateTypeFeed {
			t.Errorf("AggregateType = %q, want %q", ev.AggregateType, AggregateTypeFeed)
		}
		if ev.EventType != TypeNotificationRead {
			t.Errorf("EventType = %q, want %q", ev.EventType, TypeNotificationRead)
		}
		if ev.Sequence != 0 {
			t.Errorf("Sequence = %d, want 0", ev.Sequence)
		}
		if ev.CreatedAt.Before(before) || ev.CreatedAt.After(after) {
			t.Errorf("CreatedAt = %v, 期待する範囲: [%v, %v]", ev.CreatedAt, before, after)
		}

		decoded, err := DecodeData[NotificationReadData](ev)
		if err != nil {
			t.Fatalf("DecodeData()でエラーが発生: %v", err)
		}
		if decoded.NotificationID != 3 || !decoded.ReadAt.Equal(readAt) {
			t.Errorf("Data = %+v", decoded)
		}
	})

	t.Run("連続して生成したイベントのIDが異なること", func(t *testing.T) {
		t.Parallel()

		seen := make(map[string]bool)
		for i := 0; i < 100; i++ {
			ev, err := New("brand-1", AggregateTypeFeed, TypeNotificationRead, NotificationReadData{})
			if err != nil {
				t.Fatalf("New()でエラーが発生: %v", err)
			}
			if seen[ev.ID] {
				t.Fatalf("IDが重複: %s", ev.ID)
			}
			seen[ev.ID] = true
		}
	})

	t.Run("シリアライズ不可能なデータでエラーが返ること", func(t *testing.T) {
		t.Parallel()

		_, err := New("brand-1", AggregateTypeFeed, TypeNotificationRead, make(chan int))
		if err == nil {
			t.Fatal("New()がエラーを返すべきだが、nilが返った")
		}
	})
}

// TestFromChange はフィードの変更からイベントへの変換を検証する。
func TestFromChange(t *testing.T) {
	t.Parallel()

	created := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("挿入はNotificationInsertedになること", func(t *testing.T) {
		t.Parallel()

		n := feed.Notification{
			ID:        5,
			Category:  feed.CategoryMessage,
			Title:     "New message from TechStyle",
			Body:      "We'd love to discuss partnership opportunities",
			CreatedAt: created,
			Avatar:    "https://example.com/techstyle.png",
		}
		ev, err := FromChange("brand-1", feed.Change{Kind: feed.ChangeInserted, Notification: n})
		if err != nil {
			t.Fatalf("FromChange()でエラーが発生: %v", err)
		}
		if ev.EventType != TypeNotificationInserted {
			t.Errorf("EventType = %q, want %q", ev.EventType, TypeNotificationInserted)
		}

		data, err := DecodeData[NotificationInsertedData](ev)
		if err != nil {
			t.Fatalf("DecodeData()でエラーが発生: %v", err)
		}
		got := data.Notification
		if got.ID != n.ID || got.Title != n.Title || got.Avatar != n.Avatar || !got.CreatedAt.Equal(created) {
			t.Errorf("Notification = %+v, want %+v", got, n)
		}
	})

	t.Run("既読はNotificationReadになり既読日時を引き継ぐこと", func(t *testing.T) {
		t.Parallel()

		readAt := created.Add(time.Hour)
		n := feed.Notification{ID: 2, IsRead: true, ReadAt: &readAt}
		ev, err := FromChange("creator-1", feed.Change{Kind: feed.ChangeRead, Notification: n})
		if err != nil {
			t.Fatalf("FromChange()でエラーが発生: %v", err)
		}
		if ev.AggregateID != "creator-1" {
			t.Errorf("AggregateID = %q, want creator-1", ev.AggregateID)
		}

		data, err := DecodeData[NotificationReadData](ev)
		if err != nil {
			t.Fatalf("DecodeData()でエラーが発生: %v", err)
		}
		if data.NotificationID != 2 || !data.ReadAt.Equal(readAt) {
			t.Errorf("Data = %+v", data)
		}
	})

	t.Run("未知の変更種別はエラーになること", func(t *testing.T) {
		t.Parallel()

		if _, err := FromChange("brand-1", feed.Change{}); err == nil {
			t.Fatal("FromChange()がエラーを返すべきだが、nilが返った")
		}
	})
}

// TestDecodeData はDecodeData関数を検証する。
func TestDecodeData(t *testing.T) {
	t.Parallel()

	t.Run("不正なJSONデータでエラーが返ること", func(t *testing.T) {
		t.Parallel()

		ev := &Event{Data: json.RawMessage(`{invalid}`)}
		if _, err := DecodeData[NotificationReadData](ev); err == nil {
			t.Fatal("DecodeData()がエラーを返すべきだが、nilが返った")
		}
	})

	t.Run("空のJSONオブジェクトからデコードできること", func(t *testing.T) {
		t.Parallel()

		ev := &Event{Data: json.RawMessage(`{}`)}
		data, err := DecodeData[NotificationInsertedData](ev)
		if err != nil {
			t.Fatalf("DecodeData()でエラーが発生: %v", err)
		}
		if data.Notification.ID != 0 {
			t.Errorf("Notification.ID = %d, want 0", data.Notification.ID)
		}
	})
}

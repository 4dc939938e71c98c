package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nao1215/creatorhub/pkg/feed"
)

// New は新しいイベントを生成する。
// dataにはイベント固有のデータ構造体を渡す。JSON形式にシリアライズされる。
func New(aggregateID string, aggregateType AggregateType, eventType Type, data any) (*Event, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("イベントデータのシリアライズに失敗: %w", err)
	}

	return &Event{
		ID:            uuid.New().String(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Data:          jsonData,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// FromChange はフィードの変更をジャーナル用のイベントに変換する。
func FromChange(owner string, c feed.Change) (*Event, error) {
	switch c.Kind {
	case feed.ChangeInserted:
		return New(owner, AggregateTypeFeed, TypeNotificationInserted, NotificationInsertedData{
			Notification: c.Notification,
		})
	case feed.ChangeRead:
		readAt := time.Now().UTC()
		if c.Notification.ReadAt != nil {
			readAt = c.Notification.ReadAt.UTC()
		}
		return New(owner, AggregateTypeFeed, TypeNotificationRead, NotificationReadData{
			NotificationID: c.Notification.ID,
			ReadAt:         readAt,
		})
	default:
		return nil, fmt.Errorf("未知の変更種別: %s", c.Kind)
	}
}

// DecodeData はイベントのDataフィールドを指定された型にデシリアライズする。
func DecodeData[T any](e *Event) (*T, error) {
	var data T
	if err := json.Unmarshal(e.Data, &data); err != nil {
		return nil, fmt.Errorf("イベントデータのデシリアライズに失敗: %w", err)
	}
	return &data, nil
}

package event

import (
	"encoding/json"
	"time"

	"github.com/nao1215/creatorhub/pkg/feed"
)

// AggregateType はイベントの対象となるエンティティの種類を表す。
type AggregateType string

const (
	// AggregateTypeFeed はアカウントごとの通知フィードを表す。
	AggregateTypeFeed AggregateType = "Feed"
)

// Type はイベントの種類を表す。
type Type string

const (
	// TypeNotificationRequested はProducerが通知の作成を要求したことを表す。
	// Kafka経由で他サービスから届くメッセージの形式。
	TypeNotificationRequested Type = "NotificationRequested"
	// TypeNotificationInserted は通知がフィードに挿入されたことを表す。
	TypeNotificationInserted Type = "NotificationInserted"
	// TypeNotificationRead は通知が既読になったことを表す。
	TypeNotificationRead Type = "NotificationRead"
)

// Event はジャーナルに追記される不変のイベントレコードを表す。
// フィードの状態変更はすべてこの構造体として永続化され、起動時に再生される。
type Event struct {
	// ID はイベントの一意識別子（UUID）。
	ID string `json:"id"`
	// AggregateID は対象フィードの所有者（アカウントID）。
	AggregateID string `json:"aggregate_id"`
	// AggregateType は対象エンティティの種類。
	AggregateType AggregateType `json:"aggregate_type"`
	// EventType はイベントの種類。
	EventType Type `json:"event_type"`
	// Data はイベント固有のデータ（JSON形式）。
	Data json.RawMessage `json:"data"`
	// Sequence はジャーナル全体での追記順序。ジャーナルに書き込まれるまでは0。
	Sequence int64 `json:"sequence,omitempty"`
	// CreatedAt はイベントが作成された日時。
	CreatedAt time.Time `json:"created_at"`
}

// NotificationRequestedData はNotificationRequestedイベントのデータ。
type NotificationRequestedData struct {
	// UserID は通知先のアカウントID。
	UserID string `json:"user_id"`
	// Category は通知の種類。
	Category string `json:"category"`
	// Title は通知のタイトル。
	Title string `json:"title"`
	// Body は通知の本文。
	Body string `json:"body"`
	// Avatar は表示する画像のURL。
	Avatar string `json:"avatar,omitempty"`
	// Priority は通知の重要度。
	Priority string `json:"priority,omitempty"`
	// ActionURL は通知をクリックした際の遷移先。
	ActionURL string `json:"action_url,omitempty"`
}

// Draft は要求内容を検証済みの下書きに変換する。
func (d NotificationRequestedData) Draft() (feed.Draft, error) {
	category, err := feed.ParseCategory(d.Category)
	if err != nil {
		return feed.Draft{}, err
	}
	priority, err := feed.ParsePriority(d.Priority)
	if err != nil {
		return feed.Draft{}, err
	}
	draft := feed.Draft{
		Category:  category,
		Title:     d.Title,
		Body:      d.Body,
		Avatar:    d.Avatar,
		Priority:  priority,
		ActionURL: d.ActionURL,
	}
	if err := draft.Validate(); err != nil {
		return feed.Draft{}, err
	}
	return draft, nil
}

// NotificationInsertedData はNotificationInsertedイベントのデータ。
type NotificationInsertedData struct {
	// Notification は挿入された通知。IDと作成日時を含む。
	Notification feed.Notification `json:"notification"`
}

// NotificationReadData はNotificationReadイベントのデータ。
type NotificationReadData struct {
	// NotificationID は既読になった通知のID。
	NotificationID feed.ID `json:"notification_id"`
	// ReadAt は既読になった日時。
	ReadAt time.Time `json:"read_at"`
}

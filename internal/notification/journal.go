package notification

import (
	"context"
	"embed"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/nao1215/creatorhub/pkg/event"
	"github.com/nao1215/creatorhub/pkg/feed"
	"github.com/nao1215/creatorhub/pkg/migration"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Journal はフィードの変更を追記するSQLiteのイベントジャーナル。
// 追記専用で、更新や削除は行わない。
type Journal struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// journalRow はfeed_eventsテーブルの1行。
type journalRow struct {
	Sequence      int64  `db:"sequence"`
	ID            string `db:"id"`
	AggregateID   string `db:"aggregate_id"`
	AggregateType string `db:"aggregate_type"`
	EventType     string `db:"event_type"`
	Data          string `db:"data"`
	CreatedAt     string `db:"created_at"`
}

func (r journalRow) toEvent() (event.Event, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, r.CreatedAt)
	if err != nil {
		return event.Event{}, fmt.Errorf("作成日時のパースに失敗: sequence=%d: %w", r.Sequence, err)
	}
	return event.Event{
		ID:            r.ID,
		AggregateID:   r.AggregateID,
		AggregateType: event.AggregateType(r.AggregateType),
		EventType:     event.Type(r.EventType),
		Data:          []byte(r.Data),
		Sequence:      r.Sequence,
		CreatedAt:     createdAt,
	}, nil
}

// DSN はファイルパスからWALモードとビジータイムアウトを指定したSQLiteのDSNを組み立てる。
// ":memory:" はそのまま返す。
func DSN(path string) string {
	if path == ":memory:" || strings.HasPrefix(path, "file:") {
		return path
	}
	return "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}

// OpenJournal はdsnのSQLiteデータベースを開き、マイグレーションを適用する。
func OpenJournal(ctx context.Context, dsn string, logger *zap.Logger) (*Journal, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}
	// SQLiteの書き込みは直列化されるため接続は1本に絞る
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("データベースへの疎通確認に失敗: %w", err)
	}
	if _, err := migration.Run(ctx, db, migrationsFS, "migrations", logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("マイグレーションに失敗: %w", err)
	}

	return &Journal{db: db, logger: logger}, nil
}

// Close はデータベース接続を閉じる。
func (j *Journal) Close() error {
	return j.db.Close()
}

// Ping はデータベースへの疎通を確認する。
func (j *Journal) Ping(ctx context.Context) error {
	return j.db.PingContext(ctx)
}

// Append はイベントを追記し、割り当てられたSequenceをeに設定する。
func (j *Journal) Append(ctx context.Context, e *event.Event) error {
	res, err := j.db.ExecContext(ctx,
		`INSERT INTO feed_events (id, aggregate_id, aggregate_type, event_type, data, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.AggregateID, string(e.AggregateType), string(e.EventType),
		string(e.Data), e.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("イベントの追記に失敗: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("シーケンスの取得に失敗: %w", err)
	}
	e.Sequence = seq
	return nil
}

// Events は追記順にすべてのイベントを返す。
func (j *Journal) Events(ctx context.Context) ([]event.Event, error) {
	return j.query(ctx,
		`SELECT sequence, id, aggregate_id, aggregate_type, event_type, data, created_at
		 FROM feed_events ORDER BY sequence`)
}

// EventsFor は指定アカウントのイベントを追記順に返す。
func (j *Journal) EventsFor(ctx context.Context, owner string) ([]event.Event, error) {
	return j.query(ctx,
		`SELECT sequence, id, aggregate_id, aggregate_type, event_type, data, created_at
		 FROM feed_events WHERE aggregate_id = ? ORDER BY sequence`, owner)
}

func (j *Journal) query(ctx context.Context, q string, args ...any) ([]event.Event, error) {
	var rows []journalRow
	if err := j.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("イベントの取得に失敗: %w", err)
	}
	events := make([]event.Event, 0, len(rows))
	for _, r := range rows {
		e, err := r.toEvent()
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}

// Record はHubのリスナーとしてフィードの変更をジャーナルに追記する。
// 書き込みに失敗しても変更自体は取り消さず、ログに記録する。
func (j *Journal) Record(owner string, c feed.Change) {
	e, err := event.FromChange(owner, c)
	if err != nil {
		j.logger.Error("イベントの生成に失敗", zap.String("owner", owner), zap.Error(err))
		return
	}
	if err := j.Append(context.Background(), e); err != nil {
		j.logger.Error("ジャーナルへの追記に失敗",
			zap.String("owner", owner),
			zap.String("event_type", string(e.EventType)),
			zap.Int64("notification_id", int64(c.Notification.ID)),
			zap.Error(err),
		)
	}
}

// Replay はジャーナルを再生してhubの各フィードを復元し、適用したイベント数を返す。
// 通知のID、既読状態、並び順は記録時のまま復元される。
// リスナーを登録する前に呼び出すこと。
func (j *Journal) Replay(ctx context.Context, hub *feed.Hub) (int, error) {
	events, err := j.Events(ctx)
	if err != nil {
		return 0, err
	}

	feeds := make(map[string]map[feed.ID]feed.Notification)
	applied := 0
	for i := range events {
		e := &events[i]
		switch e.EventType {
		case event.TypeNotificationInserted:
			data, err := event.DecodeData[event.NotificationInsertedData](e)
			if err != nil {
				return applied, fmt.Errorf("sequence=%d: %w", e.Sequence, err)
			}
			if feeds[e.AggregateID] == nil {
				feeds[e.AggregateID] = make(map[feed.ID]feed.Notification)
			}
			feeds[e.AggregateID][data.Notification.ID] = data.Notification
		case event.TypeNotificationRead:
			data, err := event.DecodeData[event.NotificationReadData](e)
			if err != nil {
				return applied, fmt.Errorf("sequence=%d: %w", e.Sequence, err)
			}
			n, ok := feeds[e.AggregateID][data.NotificationID]
			if !ok || n.IsRead {
				j.logger.Warn("既読対象の通知がありません",
					zap.String("owner", e.AggregateID),
					zap.Int64("notification_id", int64(data.NotificationID)),
				)
				continue
			}
			readAt := data.ReadAt
			n.IsRead = true
			n.ReadAt = &readAt
			feeds[e.AggregateID][data.NotificationID] = n
		default:
			j.logger.Warn("未知のイベント種別をスキップ",
				zap.String("event_type", string(e.EventType)),
				zap.Int64("sequence", e.Sequence),
			)
			continue
		}
		applied++
	}

	for owner, byID := range feeds {
		ids := make([]feed.ID, 0, len(byID))
		for id := range byID {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
		for _, id := range ids {
			hub.Restore(owner, byID[id])
		}
	}
	return applied, nil
}

package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/nao1215/creatorhub/pkg/event"
	"github.com/nao1215/creatorhub/pkg/producer"
)

// maxBackoff は受信エラー時の待機時間の上限。
const maxBackoff = 30 * time.Second

// MessageReader はKafkaからメッセージを取得してコミットする。*kafka.Reader が満たす。
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaReader は設定からコンシューマーグループのReaderを生成する。
func NewKafkaReader(cfg KafkaConfig) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
}

// Ingest はKafkaトピックの通知依頼を受信してフィードに届ける。
// 1メッセージは event.NotificationRequestedData のJSON。
type Ingest struct {
	reader    MessageReader
	publisher producer.Publisher
	logger    *zap.Logger
	// backoff は受信エラー時の最初の待機時間。
	backoff time.Duration
}

// NewIngest は新しいIngestを生成する。
func NewIngest(reader MessageReader, publisher producer.Publisher, logger *zap.Logger) *Ingest {
	return &Ingest{
		reader:    reader,
		publisher: publisher,
		logger:    logger,
		backoff:   time.Second,
	}
}

// Run はctxがキャンセルされるまでメッセージを受信し続ける。
// 変換や検証に失敗したメッセージはログに記録してコミットし、読み飛ばす。
func (i *Ingest) Run(ctx context.Context) error {
	defer func() {
		if err := i.reader.Close(); err != nil {
			i.logger.Warn("Kafka readerのクローズに失敗", zap.Error(err))
		}
	}()

	backoff := i.backoff
	for {
		m, err := i.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			i.logger.Error("Kafkaメッセージの受信に失敗", zap.Error(err), zap.Duration("backoff", backoff))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			if backoff < maxBackoff {
				backoff *= 2
			}
			continue
		}
		backoff = i.backoff

		if err := i.handle(ctx, m); err != nil {
			i.logger.Warn("通知依頼をスキップ",
				zap.String("topic", m.Topic),
				zap.Int("partition", m.Partition),
				zap.Int64("offset", m.Offset),
				zap.Error(err),
			)
		}

		if err := i.reader.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			i.logger.Error("オフセットのコミットに失敗", zap.Int64("offset", m.Offset), zap.Error(err))
		}
	}
}

// handle は1件のメッセージを通知に変換して発行する。
// user_idが空の場合はメッセージキーを通知先として使う。
func (i *Ingest) handle(ctx context.Context, m kafka.Message) error {
	var req event.NotificationRequestedData
	if err := json.Unmarshal(m.Value, &req); err != nil {
		return fmt.Errorf("メッセージのデシリアライズに失敗: %w", err)
	}
	if req.UserID == "" {
		req.UserID = string(m.Key)
	}
	d, err := req.Draft()
	if err != nil {
		return err
	}
	id, err := i.publisher.Publish(ctx, req.UserID, d)
	if err != nil {
		return err
	}
	i.logger.Debug("通知を受信",
		zap.String("owner", req.UserID),
		zap.Int64("notification_id", int64(id)),
		zap.String("category", string(d.Category)),
	)
	return nil
}

package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/creatorhub/pkg/feed"
	"github.com/nao1215/creatorhub/pkg/producer"
)

// Service は通知サービスを構成する部品をまとめたもの。
type Service struct {
	cfg      *Config
	logger   *zap.Logger
	hub      *feed.Hub
	journal  *Journal
	metrics  *Metrics
	registry *prometheus.Registry
	server   *Server
}

// NewService はジャーナルを開いてフィードを復元し、HTTPサーバーを組み立てる。
// 復元が終わってからジャーナルとメトリクスのリスナーを登録するため、
// 再生した変更が二重に記録されることはない。
func NewService(ctx context.Context, cfg *Config, logger *zap.Logger) (*Service, error) {
	journal, err := OpenJournal(ctx, DSN(cfg.DBPath), logger)
	if err != nil {
		return nil, err
	}

	var hubOpts []feed.HubOption
	if cfg.SeedSamples {
		hubOpts = append(hubOpts, feed.WithSeeder(sampleSeeder(time.Now)))
	}
	hub := feed.NewHub(hubOpts...)

	applied, err := journal.Replay(ctx, hub)
	if err != nil {
		journal.Close()
		return nil, fmt.Errorf("ジャーナルの再生に失敗: %w", err)
	}
	logger.Info("ジャーナルを再生",
		zap.Int("events", applied),
		zap.Int("accounts", len(hub.Owners())),
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := NewMetrics(registry)
	metrics.Sync(hub)

	hub.Subscribe(journal.Record)
	hub.Subscribe(metrics.Observe)

	return &Service{
		cfg:      cfg,
		logger:   logger,
		hub:      hub,
		journal:  journal,
		metrics:  metrics,
		registry: registry,
		server:   NewServer(cfg, hub, registry, logger, WithHealthCheck(journal)),
	}, nil
}

// Hub はサービスが管理する通知フィードを返す。
func (s *Service) Hub() *feed.Hub {
	return s.hub
}

// Run はHTTPサーバーと、Kafkaが設定されていれば通知依頼の受信を並行して実行する。
// どちらかが失敗するか、ctxがキャンセルされると両方を停止する。
func (s *Service) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.server.Run(ctx)
	})

	if s.cfg.Kafka.Enabled() {
		ingest := NewIngest(NewKafkaReader(s.cfg.Kafka), producer.NewLocalPublisher(s.hub), s.logger)
		g.Go(func() error {
			s.logger.Info("Kafkaからの通知依頼の受信を開始",
				zap.Strings("brokers", s.cfg.Kafka.Brokers),
				zap.String("topic", s.cfg.Kafka.Topic),
			)
			return ingest.Run(ctx)
		})
	}

	return g.Wait()
}

// Close はジャーナルを閉じる。
func (s *Service) Close() error {
	return s.journal.Close()
}

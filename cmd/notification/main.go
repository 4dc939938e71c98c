// 通知サービスのエントリポイント。
// アカウントごとの通知フィードをHTTP APIで提供し、
// Kafkaが設定されていれば他サービスからの通知依頼も受信する。
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/nao1215/creatorhub/internal/notification"
	"github.com/nao1215/creatorhub/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "通知サービスの起動に失敗: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := pflag.StringP("config", "c", os.Getenv("NOTIFICATION_CONFIG"), "設定ファイル（YAML）のパス")
	pflag.Parse()

	cfg, err := notification.LoadConfig(*configPath)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Log.Development)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := notification.NewService(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer svc.Close()

	log.Info("通知サービスを起動します",
		zap.String("port", cfg.Port),
		zap.String("db_path", cfg.DBPath),
		zap.Bool("seed_samples", cfg.SeedSamples),
		zap.Bool("kafka", cfg.Kafka.Enabled()),
	)
	if err := svc.Run(ctx); err != nil {
		return err
	}
	log.Info("通知サービスを停止しました")
	return nil
}

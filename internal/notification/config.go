package notification

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"
)

// envPrefix は設定を上書きする環境変数の接頭辞。
const envPrefix = "NOTIFICATION"

// KafkaConfig は通知依頼を受け取るKafkaの接続設定。
type KafkaConfig struct {
	// Brokers はブローカーのアドレス。空の場合はKafkaからの受信を行わない。
	Brokers []string `mapstructure:"brokers"`
	// Topic は購読するトピック。
	Topic string `mapstructure:"topic"`
	// GroupID はコンシューマーグループID。
	GroupID string `mapstructure:"group_id"`
}

// Enabled はKafkaからの受信が有効かどうかを返す。
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// LogConfig はロガーの設定。
type LogConfig struct {
	// Development がtrueの場合はコンソール形式で出力する。
	Development bool `mapstructure:"development"`
}

// Config は通知サービスの設定。
type Config struct {
	// Port はHTTPサーバーのリッスンポート。
	Port string `mapstructure:"port"`
	// DBPath はジャーナルを保存するSQLiteファイルのパス。
	DBPath string `mapstructure:"db_path"`
	// JWTSecret はJWTの署名検証に使うシークレット。
	JWTSecret string `mapstructure:"jwt_secret"`
	// AllowedOrigins はCORSで許可するオリジン。
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// SeedSamples がtrueの場合、新規アカウントのフィードにサンプル通知を入れる。
	SeedSamples bool `mapstructure:"seed_samples"`
	// Log はロガーの設定。
	Log LogConfig `mapstructure:"log"`
	// Kafka はKafkaの接続設定。
	Kafka KafkaConfig `mapstructure:"kafka"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8086")
	v.SetDefault("db_path", "/data/notification.db")
	v.SetDefault("jwt_secret", "dev-secret-key")
	v.SetDefault("allowed_origins", []string{"http://localhost:3000", "http://localhost:5173"})
	v.SetDefault("seed_samples", false)
	v.SetDefault("log.development", false)
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "notification-requests")
	v.SetDefault("kafka.group_id", "notification-service")
}

// LoadConfig は設定を読み込む。
// pathが空、またはファイルが存在しない場合はデフォルト値を使う。
// NOTIFICATION_PORT や NOTIFICATION_KAFKA_BROKERS などの環境変数はファイルより優先される。
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var pathErr *fs.PathError
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
				return nil, fmt.Errorf("設定ファイルの読み込みに失敗: %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("設定の変換に失敗: %w", err)
	}
	return &cfg, nil
}

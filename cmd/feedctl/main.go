// feedctl は通知サービスを操作するコマンドラインツール。
//
//	feedctl send --user creator-1 --category payment --title "Payment received" --body "$750 payment"
//	feedctl list --user creator-1 --view unread
//	feedctl read --user creator-1 --all
//	feedctl history --db notification.db --user creator-1
//
// フラグは FEEDCTL_ 接頭辞の環境変数でも指定できる（例: FEEDCTL_URL, FEEDCTL_SECRET）。
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/nao1215/creatorhub/internal/notification"
	"github.com/nao1215/creatorhub/pkg/event"
	"github.com/nao1215/creatorhub/pkg/feed"
	"github.com/nao1215/creatorhub/pkg/httpclient"
	"github.com/nao1215/creatorhub/pkg/middleware"
	"github.com/nao1215/creatorhub/pkg/producer"
)

const usage = `使い方: feedctl <send|list|read|history> [flags]

  send     指定アカウントに通知を送信する
  list     アカウントの通知一覧を表示する
  read     通知を既読にする
  history  ジャーナルに記録されたアカウントのイベントを表示する
`

// command はサブコマンドの定義。
type command struct {
	// flags はサブコマンド固有のフラグを定義する。
	flags func(fs *pflag.FlagSet)
	// run はフラグを読み込んだviperを受け取って処理を行う。
	run func(v *viper.Viper, stdout io.Writer) error
}

var commands = map[string]command{
	"send":    {flags: sendFlags, run: runSend},
	"list":    {flags: listFlags, run: runList},
	"read":    {flags: readFlags, run: runRead},
	"history": {flags: historyFlags, run: runHistory},
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "feedctl: %v\n", err)
		os.Exit(1)
	}
}

// newFlagSet はサブコマンドのフラグを定義し、viperに結び付ける。
func newFlagSet(name string, cmd command, v *viper.Viper, stderr io.Writer) (*pflag.FlagSet, error) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringP("user", "u", "", "対象のアカウントID（必須）")
	fs.Duration("timeout", 10*time.Second, "処理のタイムアウト")
	cmd.flags(fs)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fmt.Fprintf(stderr, "\n%s のフラグ:\n", name)
		fs.PrintDefaults()
	}

	v.SetEnvPrefix("FEEDCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("フラグの設定に失敗: %w", err)
	}
	return fs, nil
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return errors.New("サブコマンドを指定してください")
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("未知のサブコマンドです: %s", args[0])
	}

	v := viper.New()
	fs, err := newFlagSet(args[0], cmd, v, stderr)
	if err != nil {
		return err
	}
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	if v.GetString("user") == "" {
		return errors.New("--user は必須です")
	}
	return cmd.run(v, stdout)
}

// serviceFlags は通知サービスへ接続するサブコマンドに共通のフラグ。
func serviceFlags(fs *pflag.FlagSet) {
	fs.String("url", "http://localhost:8086", "通知サービスのベースURL")
	fs.String("secret", "dev-secret-key", "JWTの署名シークレット")
}

func sendFlags(fs *pflag.FlagSet) {
	serviceFlags(fs)
	fs.String("producer", "feedctl", "トークンに設定するProducerのID")
	fs.StringP("category", "k", "system", "通知カテゴリ（campaign, message, payment, system, milestone, review）")
	fs.StringP("title", "t", "", "通知のタイトル（必須）")
	fs.StringP("body", "b", "", "通知の本文")
	fs.String("avatar", "", "表示する画像のURL")
	fs.String("priority", "", "重要度（high, medium, low）")
	fs.String("action-url", "", "クリック時の遷移先")
}

func runSend(v *viper.Viper, stdout io.Writer) error {
	req := event.NotificationRequestedData{
		UserID:    v.GetString("user"),
		Category:  v.GetString("category"),
		Title:     v.GetString("title"),
		Body:      v.GetString("body"),
		Avatar:    v.GetString("avatar"),
		Priority:  v.GetString("priority"),
		ActionURL: v.GetString("action-url"),
	}
	d, err := req.Draft()
	if err != nil {
		return err
	}

	pub, err := producer.NewHTTPPublisher(v.GetString("url"), v.GetString("secret"), v.GetString("producer"))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), v.GetDuration("timeout"))
	defer cancel()
	id, err := pub.Publish(ctx, req.UserID, d)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "通知を送信しました: user=%s id=%d\n", req.UserID, id)
	return nil
}

// userClient は--userのアカウントとして通知サービスにアクセスするクライアントを生成する。
func userClient(v *viper.Viper) (*httpclient.Client, error) {
	role := middleware.Role(v.GetString("role"))
	token, err := middleware.GenerateJWT(v.GetString("secret"), v.GetString("user"), "", role)
	if err != nil {
		return nil, fmt.Errorf("トークンの生成に失敗: %w", err)
	}
	return httpclient.New(v.GetString("url"),
		httpclient.WithBearerToken(token),
		httpclient.WithTimeout(v.GetDuration("timeout")),
	), nil
}

func listFlags(fs *pflag.FlagSet) {
	serviceFlags(fs)
	fs.String("role", string(middleware.RoleInfluencer), "トークンに設定するロール（brand, influencer）")
	fs.String("view", "all", "表示するタブ（all, unread, important）")
	fs.StringP("category", "k", "", "絞り込むカテゴリ")
}

// listItem は一覧APIのレスポンスのうちfeedctlが表示する項目。
type listItem struct {
	feed.Notification
	RelativeTime string `json:"relative_time"`
}

func runList(v *viper.Viper, stdout io.Writer) error {
	client, err := userClient(v)
	if err != nil {
		return err
	}

	q := url.Values{}
	q.Set("view", v.GetString("view"))
	if category := v.GetString("category"); category != "" {
		q.Set("category", category)
	}

	var resp struct {
		Notifications []listItem `json:"notifications"`
		UnreadCount   int        `json:"unread_count"`
		Total         int        `json:"total"`
	}
	if err := client.GetJSON(context.Background(), "/api/v1/notifications?"+q.Encode(), &resp); err != nil {
		return fmt.Errorf("通知一覧の取得に失敗: %w", err)
	}

	fmt.Fprintf(stdout, "未読 %d件 / 全 %d件\n", resp.UnreadCount, resp.Total)
	for _, n := range resp.Notifications {
		mark := " "
		if !n.IsRead {
			mark = "*"
		}
		fmt.Fprintf(stdout, "%s %4d  %-9s  %s  (%s)\n", mark, n.ID, n.Category, n.Title, n.RelativeTime)
	}
	return nil
}

func readFlags(fs *pflag.FlagSet) {
	serviceFlags(fs)
	fs.String("role", string(middleware.RoleInfluencer), "トークンに設定するロール（brand, influencer）")
	fs.Int64("id", 0, "既読にする通知のID")
	fs.Bool("all", false, "すべての通知を既読にする")
}

func runRead(v *viper.Viper, stdout io.Writer) error {
	id, all := v.GetInt64("id"), v.GetBool("all")
	if (id == 0) == !all {
		return errors.New("--id と --all のどちらか一方を指定してください")
	}

	client, err := userClient(v)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if all {
		var resp struct {
			Updated int `json:"updated"`
		}
		if err := client.PutJSON(ctx, "/api/v1/notifications/read-all", nil, &resp); err != nil {
			return fmt.Errorf("既読化に失敗: %w", err)
		}
		fmt.Fprintf(stdout, "%d件を既読にしました\n", resp.Updated)
		return nil
	}

	var resp struct {
		Updated bool `json:"updated"`
	}
	if err := client.PutJSON(ctx, fmt.Sprintf("/api/v1/notifications/%d/read", id), nil, &resp); err != nil {
		return fmt.Errorf("既読化に失敗: %w", err)
	}
	if !resp.Updated {
		fmt.Fprintf(stdout, "id=%d は未読の通知ではありません\n", id)
		return nil
	}
	fmt.Fprintf(stdout, "id=%d を既読にしました\n", id)
	return nil
}

func historyFlags(fs *pflag.FlagSet) {
	fs.String("db", "notification.db", "通知サービスのSQLiteデータベースのパス")
}

func runHistory(v *viper.Viper, stdout io.Writer) error {
	ctx, cancel := context.WithTimeout(context.Background(), v.GetDuration("timeout"))
	defer cancel()

	j, err := notification.OpenJournal(ctx, notification.DSN(v.GetString("db")), zap.NewNop())
	if err != nil {
		return err
	}
	defer j.Close()

	events, err := j.EventsFor(ctx, v.GetString("user"))
	if err != nil {
		return err
	}
	for _, e := range events {
		fmt.Fprintf(stdout, "%6d  %s  %-22s  %s\n",
			e.Sequence, e.CreatedAt.Format(time.RFC3339), e.EventType, e.Data)
	}
	fmt.Fprintf(stdout, "%d件のイベント\n", len(events))
	return nil
}

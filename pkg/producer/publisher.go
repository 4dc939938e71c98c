package producer

import (
	"context"
	"errors"
	"fmt"

	"github.com/nao1215/creatorhub/pkg/event"
	"github.com/nao1215/creatorhub/pkg/feed"
	"github.com/nao1215/creatorhub/pkg/httpclient"
	"github.com/nao1215/creatorhub/pkg/middleware"
)

// SendPath は通知サービスの通知作成APIのパス。
const SendPath = "/api/v1/internal/send"

// ErrNoOwner は通知先のアカウントIDが指定されていないことを表す。
var ErrNoOwner = errors.New("通知先のアカウントIDが空です")

// Publisher は通知の下書きを指定アカウントのフィードに届ける。
type Publisher interface {
	Publish(ctx context.Context, owner string, d feed.Draft) (feed.ID, error)
}

// LocalPublisher は同一プロセスのHubに通知を挿入するPublisher。
type LocalPublisher struct {
	hub *feed.Hub
}

// NewLocalPublisher はhubに挿入するLocalPublisherを生成する。
func NewLocalPublisher(hub *feed.Hub) *LocalPublisher {
	return &LocalPublisher{hub: hub}
}

// Publish は下書きを検証してownerのフィードに挿入する。
func (p *LocalPublisher) Publish(ctx context.Context, owner string, d feed.Draft) (feed.ID, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if owner == "" {
		return 0, ErrNoOwner
	}
	if err := d.Validate(); err != nil {
		return 0, err
	}
	n := p.hub.Store(owner).Insert(d)
	return n.ID, nil
}

// HTTPPublisher は通知サービスのAPIへ通知の作成を依頼するPublisher。
type HTTPPublisher struct {
	client *httpclient.Client
}

// NewHTTPPublisher はbaseURLの通知サービスへ送るHTTPPublisherを生成する。
// 認証にはsecretで署名したsystemロールのトークンを使う。
func NewHTTPPublisher(baseURL, secret, producerID string) (*HTTPPublisher, error) {
	token, err := middleware.GenerateJWT(secret, producerID, "", middleware.RoleSystem)
	if err != nil {
		return nil, fmt.Errorf("トークンの生成に失敗: %w", err)
	}
	return &HTTPPublisher{
		client: httpclient.New(baseURL, httpclient.WithBearerToken(token)),
	}, nil
}

// Publish は下書きを通知サービスへ送信し、割り当てられたIDを返す。
func (p *HTTPPublisher) Publish(ctx context.Context, owner string, d feed.Draft) (feed.ID, error) {
	req := event.NotificationRequestedData{
		UserID:    owner,
		Category:  string(d.Category),
		Title:     d.Title,
		Body:      d.Body,
		Avatar:    d.Avatar,
		Priority:  string(d.Priority),
		ActionURL: d.ActionURL,
	}
	var resp struct {
		ID feed.ID `json:"id"`
	}
	if err := p.client.PostJSON(ctx, SendPath, req, &resp); err != nil {
		return 0, fmt.Errorf("通知の送信に失敗: %w", err)
	}
	return resp.ID, nil
}

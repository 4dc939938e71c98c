package notification

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nao1215/creatorhub/pkg/event"
	"github.com/nao1215/creatorhub/pkg/feed"
	"github.com/nao1215/creatorhub/pkg/middleware"
	"github.com/nao1215/creatorhub/pkg/producer"
)

// shutdownTimeout はグレースフルシャットダウンの待機時間。
const shutdownTimeout = 10 * time.Second

// Server は通知サービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// hub はアカウントごとの通知フィード。
	hub *feed.Hub
	// publisher はactivityとinternal/sendで通知を発行する。
	publisher producer.Publisher
	// logger はサーバーのロガー。
	logger *zap.Logger
	// now は相対時刻の基準となる現在時刻を返す。
	now func() time.Time
	// pinger は /health で疎通を確認する依存先。nilの場合は確認しない。
	pinger Pinger
}

// Pinger は疎通確認ができる依存先。
type Pinger interface {
	Ping(ctx context.Context) error
}

// ServerOption はServerの生成オプション。
type ServerOption func(*Server)

// WithHealthCheck は /health で疎通を確認する依存先を指定する。
func WithHealthCheck(p Pinger) ServerOption {
	return func(s *Server) {
		s.pinger = p
	}
}

// healthTimeout は /health の疎通確認のタイムアウト。
const healthTimeout = 2 * time.Second

// NewServer は新しい通知サーバーを生成する。
// gathererは /metrics で公開するメトリクスの取得元。
func NewServer(cfg *Config, hub *feed.Hub, gatherer prometheus.Gatherer, logger *zap.Logger, opts ...ServerOption) *Server {
	router := gin.New()
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORS(cfg.AllowedOrigins))

	s := &Server{
		router:    router,
		port:      cfg.Port,
		hub:       hub,
		publisher: producer.NewLocalPublisher(hub),
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	api := router.Group("/api/v1")
	api.Use(middleware.JWTAuth(cfg.JWTSecret))
	s.registerAPI(api)

	router.GET("/health", s.handleHealth())
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	return s
}

// Handler はサーバーのHTTPハンドラーを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run はHTTPサーバーを起動し、ctxがキャンセルされるとグレースフルに停止する。
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTPサーバーを起動", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTPサーバーの起動に失敗: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTPサーバーの停止に失敗: %w", err)
		}
		s.logger.Info("HTTPサーバーを停止")
		return nil
	}
}

// registerAPI は認証済みのAPIルーティングを設定する。
func (s *Server) registerAPI(api *gin.RouterGroup) {
	notifications := api.Group("/notifications")
	{
		// 通知一覧取得（タブとカテゴリで絞り込み）
		notifications.GET("", s.handleList())
		// 未読通知一覧取得
		notifications.GET("/unread", s.handleListUnread())
		// 未読件数取得（ダッシュボードのバッジ用）
		notifications.GET("/unread-count", s.handleUnreadCount())
		// 全通知を既読にする
		notifications.PUT("/read-all", s.handleMarkAllAsRead())
		// 通知を既読にする
		notifications.PUT("/:id/read", s.handleMarkAsRead())
	}

	// 画面操作に伴う通知の発行
	api.POST("/activity/:action", s.handleActivity())

	// 通知送信（内部API - 他サービスやfeedctlから呼び出される）
	internal := api.Group("/internal")
	internal.Use(requireRole(middleware.RoleSystem))
	{
		internal.POST("/send", s.handleSend())
	}
}

// requireRole は指定ロール以外のトークンを403で拒否するミドルウェアを返す。
func requireRole(role middleware.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if middleware.GetRole(c) != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": fmt.Sprintf("%sロールのトークンが必要です", role),
			})
			return
		}
		c.Next()
	}
}

func (s *Server) handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.pinger != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
			defer cancel()
			if err := s.pinger.Ping(ctx); err != nil {
				s.logger.Warn("ヘルスチェックに失敗", zap.Error(err))
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "service": "notification"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "notification"})
	}
}

// notificationResponse は通知のJSONレスポンス構造。
// 表示用の相対時刻、アイコン、色トークンを含む。
type notificationResponse struct {
	feed.Notification
	// RelativeTime は "2 minutes ago" 形式の経過時間。
	RelativeTime string `json:"relative_time"`
	// Icon はアバターがない場合に表示するアイコン名。
	Icon string `json:"icon"`
	// Accent は左ボーダーの色トークン。
	Accent string `json:"accent"`
}

// toNotificationResponses は通知のスライスをJSONレスポンスのスライスに変換する。
func (s *Server) toNotificationResponses(ns []feed.Notification) []notificationResponse {
	now := s.now()
	responses := make([]notificationResponse, 0, len(ns))
	for _, n := range ns {
		responses = append(responses, notificationResponse{
			Notification: n,
			RelativeTime: feed.RelativeTime(now, n.CreatedAt),
			Icon:         n.Category.Icon(),
			Accent:       n.Accent(),
		})
	}
	return responses
}

// listResponse は通知一覧のJSONレスポンス構造。
type listResponse struct {
	// Notifications は新しい順の通知。
	Notifications []notificationResponse `json:"notifications"`
	// UnreadCount は絞り込みに関係なくフィード全体の未読件数。
	UnreadCount int `json:"unread_count"`
	// Total は絞り込みに関係なくフィード全体の件数。
	Total int `json:"total"`
}

// ownerStore は認証済みユーザーのフィードを返す。取得できない場合は401を返してfalseを返す。
func (s *Server) ownerStore(c *gin.Context) (string, *feed.Store, bool) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
		return "", nil, false
	}
	return userID, s.hub.Store(userID), true
}

// handleList は認証済みユーザーの通知一覧を返すハンドラ。
// viewでall/unread/importantのタブを、categoryでカテゴリを絞り込む。
func (s *Server) handleList() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, store, ok := s.ownerStore(c)
		if !ok {
			return
		}

		view, err := feed.ParseView(c.Query("view"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "不正なビューです"})
			return
		}
		match := view.Predicate()
		if raw := c.Query("category"); raw != "" {
			category, err := feed.ParseCategory(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "不正なカテゴリです"})
				return
			}
			match = feed.And(match, feed.InCategory(category))
		}

		c.JSON(http.StatusOK, listResponse{
			Notifications: s.toNotificationResponses(store.Filter(match)),
			UnreadCount:   store.UnreadCount(),
			Total:         store.Len(),
		})
	}
}

// handleListUnread は認証済みユーザーの未読通知一覧を返すハンドラ。
func (s *Server) handleListUnread() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, store, ok := s.ownerStore(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, s.toNotificationResponses(store.Filter(feed.Unread)))
	}
}

// handleUnreadCount は認証済みユーザーの未読件数を返すハンドラ。
func (s *Server) handleUnreadCount() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, store, ok := s.ownerStore(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"unread_count": store.UnreadCount()})
	}
}

// handleMarkAsRead は指定された通知を既読にするハンドラ。
// 存在しない通知や既読の通知は何もせず、updated=falseを返す。
func (s *Server) handleMarkAsRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, store, ok := s.ownerStore(c)
		if !ok {
			return
		}

		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "不正な通知IDです"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"updated": store.MarkAsRead(feed.ID(id))})
	}
}

// handleMarkAllAsRead は認証済みユーザーの全通知を既読にするハンドラ。
func (s *Server) handleMarkAllAsRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, store, ok := s.ownerStore(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"updated": store.MarkAllAsRead()})
	}
}

// activityRequest は画面操作に伴う通知発行リクエストのJSON構造。
type activityRequest struct {
	producer.Peer
	// Text は送信したメッセージ本文。messageアクションでのみ使用する。
	Text string `json:"text"`
}

// handleActivity はメッセージ送信やビデオ通話開始などの操作に対応する通知を
// 操作したユーザー自身のフィードに発行するハンドラ。
func (s *Server) handleActivity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		var req activityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}
		if req.Name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "peer_nameが必要です"})
			return
		}

		var d feed.Draft
		switch c.Param("action") {
		case "message":
			draft, ok := producer.MessageSent(req.Peer, req.Text)
			if !ok {
				// 空白のみのメッセージは送信されないため通知も作らない
				c.Status(http.StatusNoContent)
				return
			}
			d = draft
		case "video-call":
			d = producer.VideoCallStarted(req.Peer)
		case "meeting":
			d = producer.MeetingScheduled(req.Peer)
		case "campaign-complete":
			if req.Campaign == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "campaignが必要です"})
				return
			}
			d = producer.CampaignCompleted(req.Peer)
		default:
			c.JSON(http.StatusNotFound, gin.H{"error": "未知のアクションです"})
			return
		}

		s.publish(c, userID, d)
	}
}

// handleSend は通知依頼を受け取り、指定アカウントのフィードに挿入するハンドラ。
func (s *Server) handleSend() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req event.NotificationRequestedData
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}
		if req.UserID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_idが必要です"})
			return
		}

		d, err := req.Draft()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		s.publish(c, req.UserID, d)
	}
}

// publish は下書きをownerのフィードに発行し、201で採番されたIDを返す。
func (s *Server) publish(c *gin.Context, owner string, d feed.Draft) {
	id, err := s.publisher.Publish(c.Request.Context(), owner, d)
	if err != nil {
		if errors.Is(err, feed.ErrInvalidCategory) || errors.Is(err, feed.ErrInvalidPriority) ||
			errors.Is(err, feed.ErrEmptyTitle) || errors.Is(err, producer.ErrNoOwner) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "通知の作成に失敗しました"})
		s.logger.Error("通知作成エラー", zap.String("owner", owner), zap.Error(err))
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": id})
}

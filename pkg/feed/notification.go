package feed

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ID は通知の識別子。ストアごとに1から単調増加で採番される。
type ID int64

// Category は通知の種類を表す。アイコンや色の選択、絞り込みに使用する。
type Category string

const (
	// CategoryCampaign はキャンペーン応募などキャンペーン関連の通知。
	CategoryCampaign Category = "campaign"
	// CategoryMessage はメッセージ受信の通知。
	CategoryMessage Category = "message"
	// CategoryPayment は支払い関連の通知。
	CategoryPayment Category = "payment"
	// CategorySystem はビデオ通話開始などシステムからの通知。
	CategorySystem Category = "system"
	// CategoryMilestone はキャンペーン完了などの節目の通知。
	CategoryMilestone Category = "milestone"
	// CategoryReview はレビュー関連の通知。
	CategoryReview Category = "review"
)

// Categories は定義済みのすべてのカテゴリを返す。
func Categories() []Category {
	return []Category{
		CategoryCampaign,
		CategoryMessage,
		CategoryPayment,
		CategorySystem,
		CategoryMilestone,
		CategoryReview,
	}
}

// Valid はカテゴリが定義済みの値かどうかを返す。
func (c Category) Valid() bool {
	switch c {
	case CategoryCampaign, CategoryMessage, CategoryPayment,
		CategorySystem, CategoryMilestone, CategoryReview:
		return true
	}
	return false
}

// Icon はアバターがない場合に表示するアイコン名を返す。
func (c Category) Icon() string {
	switch c {
	case CategoryCampaign:
		return "trending-up"
	case CategoryMessage:
		return "message-circle"
	case CategoryPayment:
		return "dollar-sign"
	case CategoryMilestone:
		return "check-circle"
	case CategoryReview:
		return "star"
	default:
		return "bell"
	}
}

// ParseCategory は文字列をCategoryに変換する。大文字小文字と前後の空白は無視する。
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
	return c, nil
}

// Priority は通知の重要度を表す。空文字列は通常の重要度として扱う。
type Priority string

const (
	// PriorityNormal は重要度の指定がないことを表す。
	PriorityNormal Priority = ""
	// PriorityHigh は重要な通知。通知センターの「Important」タブに表示される。
	PriorityHigh Priority = "high"
	// PriorityMedium は中程度の重要度。
	PriorityMedium Priority = "medium"
	// PriorityLow は低い重要度。
	PriorityLow Priority = "low"
)

// Valid は重要度が定義済みの値かどうかを返す。
func (p Priority) Valid() bool {
	switch p {
	case PriorityNormal, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// ParsePriority は文字列をPriorityに変換する。空文字列はPriorityNormalになる。
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPriority, s)
	}
	return p, nil
}

var (
	// ErrInvalidCategory は未定義のカテゴリが指定されたことを表す。
	ErrInvalidCategory = errors.New("不正な通知カテゴリ")
	// ErrInvalidPriority は未定義の重要度が指定されたことを表す。
	ErrInvalidPriority = errors.New("不正な通知の重要度")
	// ErrEmptyTitle はタイトルが空であることを表す。
	ErrEmptyTitle = errors.New("通知のタイトルが空")
)

// Notification はフィードに格納される通知レコード。
type Notification struct {
	// ID はストア内で一意な識別子。
	ID ID `json:"id"`
	// Category は通知の種類。
	Category Category `json:"category"`
	// Title は通知のタイトル。
	Title string `json:"title"`
	// Body は通知の本文。
	Body string `json:"body"`
	// CreatedAt は通知がストアに挿入された日時。
	CreatedAt time.Time `json:"created_at"`
	// IsRead は既読状態。falseからtrueへの遷移のみ起こる。
	IsRead bool `json:"is_read"`
	// ReadAt は既読になった日時。未読の間はnil。
	ReadAt *time.Time `json:"read_at,omitempty"`
	// Avatar は表示する画像のURL。空の場合はカテゴリアイコンを表示する。
	Avatar string `json:"avatar,omitempty"`
	// Priority は通知の重要度。
	Priority Priority `json:"priority,omitempty"`
	// ActionURL は通知をクリックした際の遷移先。
	ActionURL string `json:"action_url,omitempty"`
}

// Important は重要度がhighかどうかを返す。
func (n Notification) Important() bool {
	return n.Priority == PriorityHigh
}

// Accent は通知の左ボーダーに使う色トークンを返す。
// 重要度highはカテゴリより優先される。
func (n Notification) Accent() string {
	if n.Important() {
		return "destructive"
	}
	switch n.Category {
	case CategoryCampaign:
		return "primary"
	case CategoryMessage:
		return "blue"
	case CategoryPayment:
		return "green"
	case CategoryMilestone:
		return "success"
	case CategoryReview:
		return "warning"
	default:
		return "gray"
	}
}

// Draft はIDと作成日時が割り当てられる前の通知。Producerが生成しストアに渡す。
type Draft struct {
	// Category は通知の種類。
	Category Category `json:"category"`
	// Title は通知のタイトル。
	Title string `json:"title"`
	// Body は通知の本文。
	Body string `json:"body"`
	// Avatar は表示する画像のURL。
	Avatar string `json:"avatar,omitempty"`
	// Priority は通知の重要度。
	Priority Priority `json:"priority,omitempty"`
	// ActionURL は通知をクリックした際の遷移先。
	ActionURL string `json:"action_url,omitempty"`
}

// Validate は外部から受け取った下書きを検証する。
// Store.Insert自体は検証を行わないため、HTTPやKafkaの入口で呼び出す。
func (d Draft) Validate() error {
	if !d.Category.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, d.Category)
	}
	if !d.Priority.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, d.Priority)
	}
	if strings.TrimSpace(d.Title) == "" {
		return ErrEmptyTitle
	}
	return nil
}

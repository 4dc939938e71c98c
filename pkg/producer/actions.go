package producer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/nao1215/creatorhub/pkg/feed"
)

// previewLength はメッセージ通知の本文に含める最大文字数。
const previewLength = 50

// Peer はメッセージ画面で選択中の会話相手。
type Peer struct {
	// Name は相手の表示名（ブランド名またはクリエイター名）。
	Name string `json:"peer_name"`
	// Avatar は相手のアバター画像のURL。
	Avatar string `json:"peer_avatar,omitempty"`
	// Campaign は会話の対象キャンペーン名。
	Campaign string `json:"campaign,omitempty"`
}

// MessageSent はメッセージ送信時の通知を組み立てる。
// 本文は先頭50文字に切り詰め、切り詰めた場合は "..." を付ける。
// 空白のみのメッセージは送信されないため、okはfalseになる。
func MessageSent(p Peer, text string) (d feed.Draft, ok bool) {
	if strings.TrimSpace(text) == "" {
		return feed.Draft{}, false
	}
	return feed.Draft{
		Category: feed.CategoryMessage,
		Title:    "New message from " + p.Name,
		Body:     Preview(text),
		Avatar:   p.Avatar,
	}, true
}

// VideoCallStarted はビデオ通話開始時の通知を組み立てる。
func VideoCallStarted(p Peer) feed.Draft {
	return feed.Draft{
		Category: feed.CategorySystem,
		Title:    "Video call started",
		Body:     fmt.Sprintf("Started video call with %s", p.Name),
		Avatar:   p.Avatar,
	}
}

// MeetingScheduled はミーティング予約時の通知を組み立てる。
func MeetingScheduled(p Peer) feed.Draft {
	return feed.Draft{
		Category: feed.CategorySystem,
		Title:    "Meeting scheduled",
		Body:     fmt.Sprintf("Scheduled meeting with %s", p.Name),
		Avatar:   p.Avatar,
	}
}

// CampaignCompleted はキャンペーン完了時の通知を組み立てる。
func CampaignCompleted(p Peer) feed.Draft {
	return feed.Draft{
		Category: feed.CategoryMilestone,
		Title:    "Campaign completed",
		Body:     fmt.Sprintf("%s has been marked as complete", p.Campaign),
		Avatar:   p.Avatar,
	}
}

// Preview はtextを先頭50文字（ルーン単位）に切り詰める。
func Preview(text string) string {
	if utf8.RuneCountInString(text) <= previewLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:previewLength]) + "..."
}

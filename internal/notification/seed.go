package notification

import (
	"time"

	"github.com/nao1215/creatorhub/pkg/feed"
)

// SampleNotifications は新規アカウントのフィードに入れるサンプル通知を古い順に返す。
// 作成日時はnowからの相対時刻で決まる。
func SampleNotifications(now time.Time) []feed.Notification {
	paidAt := now.Add(-3 * time.Hour)
	return []feed.Notification{
		{
			ID:        1,
			Category:  feed.CategoryPayment,
			Title:     "Payment received",
			Body:      "$750 payment for Winter Collection campaign",
			CreatedAt: paidAt,
			IsRead:    true,
			ReadAt:    &paidAt,
		},
		{
			ID:        2,
			Category:  feed.CategoryMessage,
			Title:     "New message from TechStyle",
			Body:      "We'd love to discuss partnership opportunities",
			CreatedAt: now.Add(-time.Hour),
			Avatar:    "https://images.unsplash.com/photo-1441986300917-64674bd600d8?w=50&h=50&fit=crop",
		},
		{
			ID:        3,
			Category:  feed.CategoryCampaign,
			Title:     "New campaign application",
			Body:      "Sarah Johnson applied to your Summer Collection campaign",
			CreatedAt: now.Add(-2 * time.Minute),
			Avatar:    "https://images.unsplash.com/photo-1494790108755-2616b612b5c1?w=50&h=50&fit=crop&crop=face",
		},
	}
}

// sampleSeeder は呼び出し時点の時刻でサンプル通知を生成するSeederを返す。
func sampleSeeder(now func() time.Time) feed.Seeder {
	return func() []feed.Notification {
		return SampleNotifications(now().UTC())
	}
}

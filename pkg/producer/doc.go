// Package producer は通知を生成する側の処理を提供する。
//
// メッセージ送信やビデオ通話開始などのユーザー操作から通知の下書きを組み立て、
// Publisherを通してフィードに届ける。同一プロセス内のHubへ直接届けるLocalPublisherと、
// 通知サービスのAPIへ送るHTTPPublisherがある。
package producer

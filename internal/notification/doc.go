// Package notification は通知サービスの内部実装を提供する。
//
// アカウントごとの通知フィード（feed.Hub）をHTTP APIとして公開する。
// フィードの変更はSQLiteのジャーナルに追記され、起動時に再生して復元する。
// 他サービスからの通知依頼はHTTPの内部APIまたはKafkaトピック経由で受け付ける。
package notification

// Package feed は通知フィードの中核となるインメモリストアを提供する。
//
// 通知は挿入順に新しいものが先頭に並び、状態変更は既読化のみである。
// ビュー（未読バッジ、通知センター）はFilterやUnreadCountで派生した
// 読み取り専用の射影を得る。ストアの変更はSubscribeで登録したリスナーに
// 同期的に通知される。
package feed

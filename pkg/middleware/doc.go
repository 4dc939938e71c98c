// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// JWT認証トークンの検証、zapによるリクエストログ、パニックリカバリ、
// フロントエンド向けのCORS設定を含む。
package middleware

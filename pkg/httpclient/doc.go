// Package httpclient は通知サービスのAPIを呼び出すJSONクライアントを提供する。
//
// feedctlや他サービスが通知を依頼する際に使用する。
// 認証にはBearerトークンを付与し、2xx以外の応答は *StatusError として返す。
package httpclient

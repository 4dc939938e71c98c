// Package logger はサービス共通の構造化ロガーを生成する。
package logger

import (
	"fmt"

	"go.uber.org/zap"
)

// New はzapロガーを生成する。
// developmentがtrueの場合はコンソール形式、falseの場合はJSON形式で出力する。
func New(development bool) (*zap.Logger, error) {
	var (
		l   *zap.Logger
		err error
	)
	if development {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("ロガーの初期化に失敗: %w", err)
	}
	return l, nil
}

package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

// TestNew はロガーの生成を検証する。
func TestNew(t *testing.T) {
	t.Parallel()

	for _, development := range []bool{true, false} {
		l, err := New(development)
		if err != nil {
			t.Fatalf("New(%v)でエラーが発生: %v", development, err)
		}
		if l == nil {
			t.Fatalf("New(%v)がnilを返した", development)
		}
		if got := l.Core().Enabled(zapcore.DebugLevel); got != development {
			t.Errorf("New(%v): Debugレベルの有効状態 = %v", development, got)
		}
	}
}

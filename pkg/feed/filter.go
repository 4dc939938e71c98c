package feed

import (
	"fmt"
	"strings"
)

// Predicate は通知の絞り込み条件。
type Predicate func(Notification) bool

// All はすべての通知にマッチする。
func All(Notification) bool { return true }

// Unread は未読の通知にマッチする。
func Unread(n Notification) bool { return !n.IsRead }

// Read は既読の通知にマッチする。
func Read(n Notification) bool { return n.IsRead }

// Important は重要度highの通知にマッチする。
func Important(n Notification) bool { return n.Important() }

// InCategory は指定カテゴリの通知にマッチする条件を返す。
func InCategory(c Category) Predicate {
	return func(n Notification) bool {
		return n.Category == c
	}
}

// And はすべての条件を満たす通知にマッチする条件を返す。条件がなければすべてにマッチする。
func And(preds ...Predicate) Predicate {
	return func(n Notification) bool {
		for _, p := range preds {
			if !p(n) {
				return false
			}
		}
		return true
	}
}

// View は通知センターのタブ。
type View string

const (
	// ViewAll はすべての通知。
	ViewAll View = "all"
	// ViewUnread は未読の通知。
	ViewUnread View = "unread"
	// ViewImportant は重要度highの通知。
	ViewImportant View = "important"
)

// ParseView は文字列をViewに変換する。空文字列はViewAllになる。
func ParseView(s string) (View, error) {
	switch v := View(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return ViewAll, nil
	case ViewAll, ViewUnread, ViewImportant:
		return v, nil
	default:
		return "", fmt.Errorf("不正なビュー: %q", s)
	}
}

// Predicate はビューに対応する絞り込み条件を返す。
func (v View) Predicate() Predicate {
	switch v {
	case ViewUnread:
		return Unread
	case ViewImportant:
		return Important
	default:
		return All
	}
}

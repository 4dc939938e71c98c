package feed

import (
	"sync"
	"time"
)

// ChangeKind はストアに起きた変更の種類を表す。
type ChangeKind int

const (
	// ChangeInserted は通知が挿入されたことを表す。
	ChangeInserted ChangeKind = iota + 1
	// ChangeRead は通知が既読になったことを表す。
	ChangeRead
)

// String はChangeKindの文字列表現を返す。
func (k ChangeKind) String() string {
	switch k {
	case ChangeInserted:
		return "inserted"
	case ChangeRead:
		return "read"
	default:
		return "unknown"
	}
}

// Change はリスナーに渡される変更内容。Notificationは変更後の状態のコピー。
type Change struct {
	// Kind は変更の種類。
	Kind ChangeKind
	// Notification は変更後の通知。
	Notification Notification
}

// Listener はストアの変更を受け取るコールバック。
// 変更は同一ストア内で発生順に同期的に届く。リスナー内からストアを変更してはならない。
type Listener func(Change)

// Option はStoreの生成オプション。
type Option func(*Store)

// WithClock は作成日時・既読日時の取得に使う時計を差し替える。
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Store は1アカウント分の通知を保持するストア。
// 変更操作はInsert・MarkAsRead・MarkAllAsRead・Restoreのみで、削除は存在しない。
type Store struct {
	// mu はentries・index・nextIDを保護する。
	mu sync.RWMutex
	// notifyMu は変更操作とリスナー呼び出しを直列化し、変更順を保証する。
	// 取得順は常にnotifyMu→mu。リスナー呼び出し中はmuを保持しない。
	notifyMu sync.Mutex
	// entries は挿入順（古い順）の通知。読み出し時に逆順にする。
	entries []Notification
	// index はIDからentriesの位置への対応。
	index map[ID]int
	// nextID は次に割り当てるID。
	nextID ID
	// unread は未読件数。
	unread int
	// now は現在時刻を返す関数。
	now func() time.Time
	// listeners は購読中のリスナー。
	listeners map[int]Listener
	// listenerSeq はリスナー登録の連番。
	listenerSeq int
}

// NewStore は空のストアを生成する。
func NewStore(opts ...Option) *Store {
	s := &Store{
		index:     make(map[ID]int),
		nextID:    1,
		now:       time.Now,
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Insert は下書きにIDと作成日時を割り当て、未読としてフィードの先頭に追加する。
func (s *Store) Insert(d Draft) Notification {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	n := Notification{
		ID:        s.nextID,
		Category:  d.Category,
		Title:     d.Title,
		Body:      d.Body,
		CreatedAt: s.now(),
		Avatar:    d.Avatar,
		Priority:  d.Priority,
		ActionURL: d.ActionURL,
	}
	s.nextID++
	s.append(n)
	s.notify(Change{Kind: ChangeInserted, Notification: n})
	return n
}

// Restore は永続化済みの通知をIDと既読状態を保ったまま先頭に追加する。
// ジャーナルからの再構築用で、リスナーには通知しない。
// 既に存在するIDは無視し、falseを返す。
func (s *Store) Restore(n Notification) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[n.ID]; ok {
		return false
	}
	if n.ReadAt != nil {
		readAt := *n.ReadAt
		n.ReadAt = &readAt
	}
	s.append(n)
	if n.ID >= s.nextID {
		s.nextID = n.ID + 1
	}
	return true
}

// append は通知を末尾（最新）に追加する。呼び出し側でロックを保持すること。
func (s *Store) append(n Notification) {
	s.index[n.ID] = len(s.entries)
	s.entries = append(s.entries, n)
	if !n.IsRead {
		s.unread++
	}
}

// MarkAsRead は指定IDの通知を既読にする。
// 存在しないIDや既読の通知に対しては何もせず、falseを返す。
func (s *Store) MarkAsRead(id ID) bool {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	n, ok := s.markRead(id, s.now())
	if !ok {
		s.mu.Unlock()
		return false
	}
	s.notify(Change{Kind: ChangeRead, Notification: n})
	return true
}

// MarkAllAsRead は未読の通知をすべて既読にし、既読にした件数を返す。
// リスナーには1件ごとに変更が届く。
func (s *Store) MarkAllAsRead() int {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	now := s.now()
	var changes []Change
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].IsRead {
			continue
		}
		n, _ := s.markRead(s.entries[i].ID, now)
		changes = append(changes, Change{Kind: ChangeRead, Notification: n})
	}
	if len(changes) == 0 {
		s.mu.Unlock()
		return 0
	}
	s.notify(changes...)
	return len(changes)
}

// markRead は既読化の本体。呼び出し側でロックを保持すること。
func (s *Store) markRead(id ID, at time.Time) (Notification, bool) {
	pos, ok := s.index[id]
	if !ok || s.entries[pos].IsRead {
		return Notification{}, false
	}
	s.entries[pos].IsRead = true
	s.entries[pos].ReadAt = &at
	s.unread--
	return copyNotification(s.entries[pos]), true
}

// notify はmuを解放し、登録済みリスナーに変更を配信する。
// 呼び出し時点でnotifyMuとmuの書き込みロックを保持している必要がある。
func (s *Store) notify(changes ...Change) {
	listeners := make([]Listener, 0, len(s.listeners))
	for i := 0; i < s.listenerSeq; i++ {
		if l, ok := s.listeners[i]; ok {
			listeners = append(listeners, l)
		}
	}
	s.mu.Unlock()

	for _, c := range changes {
		for _, l := range listeners {
			l(c)
		}
	}
}

// Subscribe はリスナーを登録し、登録解除用の関数を返す。
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := s.listenerSeq
	s.listenerSeq++
	s.listeners[key] = l

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, key)
	}
}

// UnreadCount は未読の通知件数を返す。
func (s *Store) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unread
}

// Len は通知の総件数を返す。
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Get は指定IDの通知のコピーを返す。
func (s *Store) Get(id ID) (Notification, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pos, ok := s.index[id]
	if !ok {
		return Notification{}, false
	}
	return copyNotification(s.entries[pos]), true
}

// All はすべての通知を新しい順に返す。
func (s *Store) All() []Notification {
	return s.Filter(All)
}

// Filter は条件を満たす通知を新しい順に返す。返り値はコピーでありストアは変更されない。
func (s *Store) Filter(match Predicate) []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Notification, 0, len(s.entries))
	for i := len(s.entries) - 1; i >= 0; i-- {
		if match(s.entries[i]) {
			result = append(result, copyNotification(s.entries[i]))
		}
	}
	return result
}

// copyNotification はReadAtのポインタを共有しないコピーを作る。
func copyNotification(n Notification) Notification {
	if n.ReadAt != nil {
		readAt := *n.ReadAt
		n.ReadAt = &readAt
	}
	return n
}

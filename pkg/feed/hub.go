package feed

import (
	"sort"
	"sync"
)

// HubListener はHub配下のすべてのストアの変更を受け取るコールバック。
// ownerは変更が起きたストアの所有者（アカウントID）。
type HubListener func(owner string, c Change)

// Seeder は新規アカウントのフィードに最初から入れておく通知を返す。
type Seeder func() []Notification

// HubOption はHubの生成オプション。
type HubOption func(*Hub)

// WithStoreOptions はHubが生成する各ストアに渡すオプションを指定する。
func WithStoreOptions(opts ...Option) HubOption {
	return func(h *Hub) {
		h.storeOpts = append(h.storeOpts, opts...)
	}
}

// WithSeeder は新規アカウントのフィードを初期化するSeederを指定する。
func WithSeeder(seed Seeder) HubOption {
	return func(h *Hub) {
		h.seed = seed
	}
}

// Hub はアカウントごとの通知ストアを保持するアプリケーションルート。
// ストアは最初にアクセスされたときに生成される。
type Hub struct {
	// mu はstoresとlistenersを保護する。
	mu sync.RWMutex
	// stores はアカウントIDごとのストア。
	stores map[string]*Store
	// listeners は全ストアの変更を購読するリスナー。
	listeners []HubListener
	// storeOpts はストア生成時に渡すオプション。
	storeOpts []Option
	// seed は新規アカウント用のSeeder。nilの場合は空のフィードで始まる。
	seed Seeder
}

// NewHub は新しいHubを生成する。
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		stores: make(map[string]*Store),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Store は指定アカウントのストアを返す。存在しなければ生成し、Seederで初期化する。
// Seederが入れた通知は挿入としてHubのリスナーに届く。
func (h *Hub) Store(owner string) *Store {
	if s, ok := h.lookup(owner); ok {
		return s
	}

	h.mu.Lock()
	if s, ok := h.stores[owner]; ok {
		h.mu.Unlock()
		return s
	}

	s := h.newStoreLocked(owner)
	if h.seed == nil {
		h.mu.Unlock()
		return s
	}
	var seeded []Change
	for _, n := range h.seed() {
		if !s.Restore(n) {
			continue
		}
		stored, _ := s.Get(n.ID)
		seeded = append(seeded, Change{Kind: ChangeInserted, Notification: stored})
	}
	// 配信が終わるまで他の変更操作を待たせ、初期通知を先に届ける
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	h.mu.Unlock()

	for _, c := range seeded {
		h.dispatch(owner, c)
	}
	return s
}

// Restore は永続化済みの通知を指定アカウントのストアに復元する。
// Seederは実行せず、リスナーにも通知しない。
func (h *Hub) Restore(owner string, n Notification) bool {
	s, ok := h.lookup(owner)
	if !ok {
		h.mu.Lock()
		if s, ok = h.stores[owner]; !ok {
			s = h.newStoreLocked(owner)
		}
		h.mu.Unlock()
	}
	return s.Restore(n)
}

// Subscribe は全ストアの変更を受け取るリスナーを登録する。
// 登録後に生成されたストアの変更も届く。
func (h *Hub) Subscribe(l HubListener) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, l)
}

// Owners はストアが存在するアカウントIDを昇順で返す。
func (h *Hub) Owners() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	owners := make([]string, 0, len(h.stores))
	for owner := range h.stores {
		owners = append(owners, owner)
	}
	sort.Strings(owners)
	return owners
}

func (h *Hub) lookup(owner string) (*Store, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.stores[owner]
	return s, ok
}

// newStoreLocked はストアを生成して登録する。呼び出し側で書き込みロックを保持すること。
func (h *Hub) newStoreLocked(owner string) *Store {
	s := NewStore(h.storeOpts...)
	s.Subscribe(func(c Change) {
		h.dispatch(owner, c)
	})
	h.stores[owner] = s
	return s
}

func (h *Hub) dispatch(owner string, c Change) {
	h.mu.RLock()
	listeners := make([]HubListener, len(h.listeners))
	copy(listeners, h.listeners)
	h.mu.RUnlock()

	for _, l := range listeners {
		l(owner, c)
	}
}

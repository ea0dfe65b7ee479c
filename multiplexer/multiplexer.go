// Package multiplexer implements a persistent, session-based
// work-distribution queue: a fixed item set is persisted once, then
// handed out to any number of cooperating workers, each item delivered
// to exactly one worker across the lifetime of a read session, via a
// lock-guarded counter.
package multiplexer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/viant/biglist/serializer"
	"github.com/viant/biglist/upath"
)

const defaultItemFormat = "pickle-zstd"

type rootInfo struct {
	Total int `json:"total"`
}

type sessionState struct {
	Total int `json:"total"`
	Next  int `json:"next"`
}

// Multiplexer holds a persisted, immutable item set under path and can
// spawn any number of independent read sessions over it.
type Multiplexer[T any] struct {
	path upath.Path
	ser  serializer.Serializer
	opts *muConfig
}

// Option configures a Multiplexer.
type Option func(*muConfig)

type muConfig struct {
	itemFormat string
}

// WithItemSerializer selects the named serializer (see package
// serializer) used to persist the item set. Defaults to "pickle-zstd",
// generalizing the original's hardwired pickle persistence into the same
// named registry biglist uses.
func WithItemSerializer(name string) Option {
	return func(c *muConfig) { c.itemFormat = name }
}

func defaultMuConfig() *muConfig { return &muConfig{itemFormat: defaultItemFormat} }

const dataFileName = "data"
const rootInfoFileName = "info.json"
const sessionsDirName = "sessions"

// New persists items under path and returns a Multiplexer over them.
// path must not already hold a data file.
func New[T any](ctx context.Context, items []T, path upath.Path, opts ...Option) (*Multiplexer[T], error) {
	cfg := defaultMuConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	ser, ok := serializer.ByName(cfg.itemFormat)
	if !ok {
		return nil, fmt.Errorf("multiplexer: unknown item serializer %q", cfg.itemFormat)
	}
	data, err := ser.Serialize(items)
	if err != nil {
		return nil, fmt.Errorf("multiplexer: serialize items: %w", err)
	}
	ext := "dat"
	if err := path.Join(dataFileName + "." + ext).WriteBytes(ctx, data, false); err != nil {
		return nil, fmt.Errorf("multiplexer: write data: %w", err)
	}
	info := rootInfo{Total: len(items)}
	raw, _ := json.Marshal(info)
	if err := path.Join(rootInfoFileName).WriteBytes(ctx, raw, false); err != nil {
		return nil, fmt.Errorf("multiplexer: write info: %w", err)
	}
	return &Multiplexer[T]{path: path, ser: ser, opts: cfg}, nil
}

// Open attaches to an existing Multiplexer at path. It reads nothing
// itself; OpenSession loads the persisted item set.
func Open[T any](ctx context.Context, path upath.Path, opts ...Option) (*Multiplexer[T], error) {
	cfg := defaultMuConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	ser, ok := serializer.ByName(cfg.itemFormat)
	if !ok {
		return nil, fmt.Errorf("multiplexer: unknown item serializer %q", cfg.itemFormat)
	}
	return &Multiplexer[T]{path: path, ser: ser, opts: cfg}, nil
}

func (m *Multiplexer[T]) loadItems(ctx context.Context) ([]T, error) {
	data, err := m.path.Join(dataFileName + ".dat").ReadBytes(ctx)
	if err != nil {
		return nil, fmt.Errorf("multiplexer: read data: %w", err)
	}
	var items []T
	if err := m.ser.Deserialize(data, &items); err != nil {
		return nil, fmt.Errorf("multiplexer: deserialize data: %w", err)
	}
	return items, nil
}

// Len returns the total item count.
func (m *Multiplexer[T]) Len(ctx context.Context) (int, error) {
	data, err := m.path.Join(rootInfoFileName).ReadBytes(ctx)
	if err != nil {
		return 0, err
	}
	var info rootInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return 0, err
	}
	return info.Total, nil
}

func (m *Multiplexer[T]) sessionDir(id string) upath.Path {
	return m.path.Join(sessionsDirName, id)
}

// CreateReadSession starts a new distribution round: every worker that
// Opens this same session id will receive each item exactly once across
// the group, in original item order, until the set is exhausted.
func (m *Multiplexer[T]) CreateReadSession(ctx context.Context) (string, error) {
	total, err := m.Len(ctx)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	state := sessionState{Total: total, Next: 0}
	raw, err := json.Marshal(state)
	if err != nil {
		return "", err
	}
	if err := m.sessionDir(id).Join(rootInfoFileName).WriteBytes(ctx, raw, false); err != nil {
		return "", fmt.Errorf("multiplexer: create session: %w", err)
	}
	return id, nil
}

// Session is one worker's view onto a read session: an iterator that
// claims the next unclaimed item under the session's lock, exactly once
// across every Session sharing the same session id.
type Session[T any] struct {
	mux       *Multiplexer[T]
	sessionID string
	workerID  string

	mu    sync.Mutex
	items []T
}

// WorkerID uniquely identifies this Session among others sharing a
// session id; defaults to a random uuid when not set via OpenSession.
func (s *Session[T]) WorkerID() string { return s.workerID }

// OpenSession attaches to an existing read session created by
// CreateReadSession, optionally with a caller-chosen worker id (useful
// for log correlation); a random one is generated if workerID is "".
func (m *Multiplexer[T]) OpenSession(ctx context.Context, sessionID, workerID string) (*Session[T], error) {
	if workerID == "" {
		workerID = uuid.NewString()
	}
	items, err := m.loadItems(ctx)
	if err != nil {
		return nil, err
	}
	return &Session[T]{mux: m, sessionID: sessionID, workerID: workerID, items: items}, nil
}

func (m *Multiplexer[T]) sessionInfoPath(sessionID string) upath.Path {
	return m.sessionDir(sessionID).Join(rootInfoFileName)
}

// claimNext locks the session's counter file, checks whether any item
// remains, and if so atomically increments and returns its index. At-
// most-once delivery follows directly from the lock: only one caller can
// hold it at a time, so only one caller can observe and consume any
// given index.
func (s *Session[T]) claimNext(ctx context.Context) (idx int, done bool, err error) {
	infoPath := s.mux.sessionInfoPath(s.sessionID)
	guard, err := infoPath.Lock(ctx, -1)
	if err != nil {
		return 0, false, fmt.Errorf("multiplexer: claim: %w", err)
	}
	defer guard.Unlock()

	data, err := infoPath.ReadBytes(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("multiplexer: claim: %w", err)
	}
	var state sessionState
	if err := json.Unmarshal(data, &state); err != nil {
		return 0, false, fmt.Errorf("multiplexer: claim: %w", err)
	}
	if state.Next >= state.Total {
		return 0, true, nil
	}
	claimed := state.Next
	state.Next++
	raw, err := json.Marshal(state)
	if err != nil {
		return 0, false, err
	}
	if err := infoPath.WriteBytes(ctx, raw, true); err != nil {
		return 0, false, fmt.Errorf("multiplexer: claim: %w", err)
	}
	return claimed, false, nil
}

// Iter yields items claimed by this Session, one at a time, until the
// session is exhausted (by this Session or any sibling sharing the same
// session id).
func (s *Session[T]) Iter(ctx context.Context) func(yield func(T, error) bool) {
	return func(yield func(T, error) bool) {
		var zero T
		for {
			idx, done, err := s.claimNext(ctx)
			if err != nil {
				yield(zero, err)
				return
			}
			if done {
				return
			}
			if idx < 0 || idx >= len(s.items) {
				yield(zero, fmt.Errorf("multiplexer: claimed index %d out of range", idx))
				return
			}
			if !yield(s.items[idx], nil) {
				return
			}
		}
	}
}

// Done reports whether the session has handed out every item.
func (s *Session[T]) Done(ctx context.Context) (bool, error) {
	data, err := s.mux.sessionInfoPath(s.sessionID).ReadBytes(ctx)
	if err != nil {
		return false, err
	}
	var state sessionState
	if err := json.Unmarshal(data, &state); err != nil {
		return false, err
	}
	return state.Next >= state.Total, nil
}

// Destroy removes the entire multiplexer, including every session.
func (m *Multiplexer[T]) Destroy(ctx context.Context) error {
	return m.path.RemoveDirRecursive(ctx)
}

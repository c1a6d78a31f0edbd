// Package session holds per-conversation state for the lifetime of the
// process. The store is the only owner of session data; callers get
// copies and mutate through the store's methods.
package session

import (
	"sync"
	"time"

	"github.com/karanvs/scambait/internal/domain"
)

// Session is the state tracked for one conversation. Values returned by
// the store are snapshots; mutating them does not touch stored state.
type Session struct {
	ID           string
	History      []domain.Message
	TurnCount    int // scammer-sent messages only
	Verdict      domain.Verdict
	Intel        domain.IntelligenceBundle
	CallbackSent bool
	Notes        []string
	CreatedAt    time.Time
	LastActiveAt time.Time
}

// entry pairs a session with its own mutex so mutations to one session
// serialize without blocking unrelated sessions.
type entry struct {
	mu sync.Mutex
	s  Session
}

// Store is a concurrency-safe in-memory session store.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
	clock   func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		entries: make(map[string]*entry),
		clock:   time.Now,
	}
}

// getOrCreateEntry returns the entry for id, creating it on first use.
func (st *Store) getOrCreateEntry(id string) *entry {
	st.mu.RLock()
	e, ok := st.entries[id]
	st.mu.RUnlock()
	if ok {
		return e
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if e, ok = st.entries[id]; ok {
		return e
	}
	now := st.clock()
	e = &entry{s: Session{
		ID:           id,
		Intel:        domain.NewIntelligenceBundle(),
		Verdict:      domain.Verdict{Type: domain.ScamTypeUnknown},
		CreatedAt:    now,
		LastActiveAt: now,
	}}
	st.entries[id] = e
	return e
}

func (e *entry) snapshot() Session {
	out := e.s
	out.History = append([]domain.Message{}, e.s.History...)
	out.Notes = append([]string{}, e.s.Notes...)
	out.Intel = e.s.Intel.Clone()
	return out
}

// GetOrCreate returns a snapshot of the session, creating it if needed.
func (st *Store) GetOrCreate(id string) Session {
	e := st.getOrCreateEntry(id)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot()
}

// Get returns a snapshot of an existing session, or ErrSessionNotFound.
func (st *Store) Get(id string) (Session, error) {
	st.mu.RLock()
	e, ok := st.entries[id]
	st.mu.RUnlock()
	if !ok {
		return Session{}, domain.ErrSessionNotFound(id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot(), nil
}

// Append records a message and returns the updated snapshot. Scammer
// messages advance the turn count; agent messages do not.
func (st *Store) Append(id string, msg domain.Message) Session {
	e := st.getOrCreateEntry(id)
	e.mu.Lock()
	defer e.mu.Unlock()

	e.s.History = append(e.s.History, msg)
	if msg.Sender == domain.SenderScammer {
		e.s.TurnCount++
	}
	e.s.LastActiveAt = st.clock()
	return e.snapshot()
}

// UpdateVerdict merges a fresh classification into the session verdict
// under the documented rules (sticky detection, max confidence,
// higher-confidence type wins) and returns the merged verdict.
func (st *Store) UpdateVerdict(id string, res domain.ClassificationResult) domain.Verdict {
	e := st.getOrCreateEntry(id)
	e.mu.Lock()
	defer e.mu.Unlock()

	e.s.Verdict.Merge(res)
	return e.s.Verdict
}

// MergeIntelligence folds newly extracted artifacts into the session's
// bundle and reports whether anything new was added.
func (st *Store) MergeIntelligence(id string, bundle domain.IntelligenceBundle) bool {
	e := st.getOrCreateEntry(id)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.s.Intel.Merge(bundle)
}

// MarkCallbackSent flips the callback flag. Returns true only for the
// caller that performs the false-to-true transition, making the
// escalation at-most-once even under concurrent turns.
func (st *Store) MarkCallbackSent(id string) bool {
	e := st.getOrCreateEntry(id)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.s.CallbackSent {
		return false
	}
	e.s.CallbackSent = true
	return true
}

// AddNote records an operator-facing observation on the session.
func (st *Store) AddNote(id, note string) {
	if note == "" {
		return
	}
	e := st.getOrCreateEntry(id)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.s.Notes = append(e.s.Notes, note)
}

// Len reports how many sessions are currently held.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.entries)
}

package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Archiver persists a session snapshot before it is evicted.
type Archiver interface {
	Archive(ctx context.Context, s Session) error
}

// SweeperConfig controls idle-session eviction. Eviction is optional:
// a zero TTL disables it entirely and sessions live for the life of the
// process.
type SweeperConfig struct {
	// TTL is how long a session may stay idle before eviction.
	TTL time.Duration

	// Schedule is a cron spec for the sweep, e.g. "@every 5m".
	Schedule string

	// Archiver, when set, receives each evicted session first. Archive
	// failure skips the eviction so no data is silently lost.
	Archiver Archiver
}

// Sweeper periodically evicts idle sessions. A session whose callback
// has not been sent is only evicted once it has been idle past the TTL,
// i.e. its conversation window has lapsed; active unescalated sessions
// are never dropped.
type Sweeper struct {
	store  *Store
	cfg    SweeperConfig
	logger *slog.Logger
	cron   *cron.Cron
}

// NewSweeper creates a sweeper for the store. Returns nil when the
// config disables eviction.
func NewSweeper(store *Store, cfg SweeperConfig, logger *slog.Logger) *Sweeper {
	if cfg.TTL <= 0 {
		return nil
	}
	if cfg.Schedule == "" {
		cfg.Schedule = "@every 5m"
	}
	return &Sweeper{store: store, cfg: cfg, logger: logger}
}

// Start schedules the sweep. The returned stop function halts it.
func (sw *Sweeper) Start() (func(), error) {
	sw.cron = cron.New()
	if _, err := sw.cron.AddFunc(sw.cfg.Schedule, sw.sweep); err != nil {
		return nil, err
	}
	sw.cron.Start()
	sw.logger.Info("session sweeper started",
		slog.Duration("ttl", sw.cfg.TTL),
		slog.String("schedule", sw.cfg.Schedule))
	return func() { sw.cron.Stop() }, nil
}

// sweep evicts every session idle past the TTL. Runs on the cron
// schedule; also callable directly in tests.
func (sw *Sweeper) sweep() {
	now := sw.store.clock()
	expired := sw.expiredIDs(now)

	for _, id := range expired {
		snap, err := sw.store.Get(id)
		if err != nil {
			continue
		}
		if sw.cfg.Archiver != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := sw.cfg.Archiver.Archive(ctx, snap)
			cancel()
			if err != nil {
				sw.logger.Warn("session archive failed, keeping session",
					slog.String("session_id", id),
					slog.String("error", err.Error()))
				continue
			}
		}
		sw.store.remove(id, now)
		sw.logger.Info("session evicted",
			slog.String("session_id", id),
			slog.Bool("callback_sent", snap.CallbackSent))
	}
}

func (sw *Sweeper) expiredIDs(now time.Time) []string {
	sw.store.mu.RLock()
	defer sw.store.mu.RUnlock()

	var out []string
	for id, e := range sw.store.entries {
		e.mu.Lock()
		idle := now.Sub(e.s.LastActiveAt)
		e.mu.Unlock()
		if idle > sw.cfg.TTL {
			out = append(out, id)
		}
	}
	return out
}

// remove drops a session unless it became active again since the expiry
// check.
func (st *Store) remove(id string, checkedAt time.Time) {
	st.mu.Lock()
	defer st.mu.Unlock()

	e, ok := st.entries[id]
	if !ok {
		return
	}
	e.mu.Lock()
	active := e.s.LastActiveAt.After(checkedAt)
	e.mu.Unlock()
	if active {
		return
	}
	delete(st.entries, id)
}

// Package reconcile keeps the local history cache in step with the remote scan history.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/agroscan/agroscan/pkg/stats"
	"github.com/agroscan/agroscan/pkg/storage"
)

var (
	// ErrNoHistory means the remote fetch failed and there was nothing cached to fall back on.
	ErrNoHistory = errors.New("could not load scan history")
	// ErrRemoteDelete means the server refused or never saw a delete. The local copy is gone anyway.
	ErrRemoteDelete = errors.New("remote delete failed")
)

// Logger abstracts logging so callers can use logrus, stdlib log, or any
// other logger that satisfies this interface.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Debugf(string, ...interface{}) {}

// Source is the remote side of the history.
type Source interface {
	FetchHistory(ctx context.Context) ([]storage.ScanRecord, error)
	DeleteScan(ctx context.Context, id string) error
}

// Store is the local side of the history.
type Store interface {
	Load(ctx context.Context, key string) ([]storage.ScanRecord, error)
	ReplaceAll(ctx context.Context, key string, records []storage.ScanRecord) error
	Remove(ctx context.Context, key, id string) (bool, error)
}

// Config holds everything a Reconciler needs.
type Config struct {
	Source Source
	Store  Store
	Key    string // defaults to storage.ResultsKey
	Log    Logger // optional; nil = no logging

	// OnStats is called with freshly computed stats after every refresh or delete.
	OnStats func(stats.AggregateStats)
}

// Result is what the caller should display after a refresh or delete.
type Result struct {
	Records   []storage.ScanRecord
	Stats     stats.AggregateStats
	FromCache bool
	// RemoteErr is the fetch error that caused a cache fallback.
	RemoteErr error
	// Removed reports whether a delete found the record locally.
	Removed bool
}

type Reconciler struct {
	cfg Config
	log Logger
	// one refresh or delete at a time per reconciler
	mu sync.Mutex
}

func New(cfg Config) *Reconciler {
	if cfg.Key == "" {
		cfg.Key = storage.ResultsKey
	}
	log := cfg.Log
	if log == nil {
		log = nopLogger{}
	}
	return &Reconciler{cfg: cfg, log: log}
}

// Refresh fetches the remote history and makes it the local truth. If the remote is
// unreachable the cached collection is returned instead, marked FromCache.
func (r *Reconciler) Refresh(ctx context.Context) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	remote, err := r.cfg.Source.FetchHistory(ctx)
	if err == nil {
		records := storage.Dedupe(NewestFirst(remote))
		if serr := r.cfg.Store.ReplaceAll(ctx, r.cfg.Key, records); serr != nil {
			r.log.Warnf("Could not cache %d history records: %v", len(records), serr)
		}
		r.log.Debugf("Fetched %d history records", len(records))
		return r.finish(&Result{Records: records}), nil
	}

	r.log.Warnf("Could not fetch scan history, falling back to local cache: %v", err)
	cached, lerr := r.cfg.Store.Load(ctx, r.cfg.Key)
	if lerr != nil {
		r.log.Errorf("Local history unavailable: %v", lerr)
	}
	if lerr != nil || len(cached) == 0 {
		r.finish(&Result{Records: []storage.ScanRecord{}})
		return nil, fmt.Errorf("%w: %w", ErrNoHistory, err)
	}
	return r.finish(&Result{Records: cached, FromCache: true, RemoteErr: err}), nil
}

// Delete removes a scan remotely first and then locally. The local removal happens even if
// the remote call fails and is not rolled back; the error is still returned so the caller
// can tell the user.
func (r *Reconciler) Delete(ctx context.Context, id string) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rerr := r.cfg.Source.DeleteScan(ctx, id)
	if rerr != nil {
		r.log.Warnf("Remote delete of %s failed: %v", id, rerr)
	}

	removed, serr := r.cfg.Store.Remove(ctx, r.cfg.Key, id)
	records, lerr := r.cfg.Store.Load(ctx, r.cfg.Key)
	if lerr != nil {
		r.log.Warnf("Could not reload history after delete: %v", lerr)
		records = []storage.ScanRecord{}
	}
	res := r.finish(&Result{Records: records, Removed: removed})

	switch {
	case rerr != nil:
		return res, fmt.Errorf("%w: %w", ErrRemoteDelete, rerr)
	case serr != nil:
		return res, serr
	}
	return res, nil
}

// Stats reads the local cache and aggregates it. Storage failures count as no data.
func (r *Reconciler) Stats(ctx context.Context) (stats.AggregateStats, []storage.ScanRecord) {
	records, err := r.cfg.Store.Load(ctx, r.cfg.Key)
	if err != nil {
		r.log.Warnf("Local history unavailable: %v", err)
		records = []storage.ScanRecord{}
	}
	return stats.Aggregate(records), records
}

func (r *Reconciler) finish(res *Result) *Result {
	res.Stats = stats.Aggregate(res.Records)
	if r.cfg.OnStats != nil {
		r.cfg.OnStats(res.Stats)
	}
	return res
}

// NewestFirst returns records ordered newest first. The service sends oldest first, so a
// list whose timestamps cannot decide is reversed. A list in no particular order is sorted.
func NewestFirst(records []storage.ScanRecord) []storage.ScanRecord {
	out := append([]storage.ScanRecord(nil), records...)
	if len(out) < 2 {
		return out
	}

	asc, desc := true, true
	for i := 1; i < len(out); i++ {
		a, b := out[i-1].Timestamp, out[i].Timestamp
		if a.IsZero() || b.IsZero() {
			asc, desc = true, false
			break
		}
		if b.Before(a) {
			asc = false
		}
		if b.After(a) {
			desc = false
		}
	}

	switch {
	case desc && !asc:
		return out
	case asc:
		// also covers all-equal and unknown timestamps
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
		return out
	default:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
		return out
	}
}

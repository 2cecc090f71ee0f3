package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"github.com/jonathan/career-agent/internal/metrics"
	"github.com/jonathan/career-agent/internal/types"
)

// fileVersion is written into the cache file header.
const fileVersion = 1

// DefaultPath is where the cache file lives when no path is configured.
const DefaultPath = "jd_cache.json"

// FreshnessFunc decides whether an entry may be served without a new lookup.
type FreshnessFunc func(entry types.CacheEntry, now time.Time) bool

// AlwaysFresh never considers an entry stale. The cache does not expire entries on its own.
func AlwaysFresh(types.CacheEntry, time.Time) bool { return true }

// StaleAfter returns a freshness hook that treats entries older than maxAge as stale.
// A zero maxAge yields AlwaysFresh.
func StaleAfter(maxAge time.Duration) FreshnessFunc {
	if maxAge <= 0 {
		return AlwaysFresh
	}
	return func(entry types.CacheEntry, now time.Time) bool {
		return now.Sub(entry.UpdatedAt) <= maxAge
	}
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for load and flush diagnostics.
func WithLogger(log *zap.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// WithFreshness sets the freshness hook consulted by IsFresh.
func WithFreshness(fn FreshnessFunc) Option {
	return func(s *Store) {
		if fn != nil {
			s.fresh = fn
		}
	}
}

// WithClock overrides the time source. Useful for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// lockTimeout bounds how long a write waits for another process holding the file.
const lockTimeout = 10 * time.Second

// Store is a keyed store of resolved listings, persisted to one JSON file.
// Reads are served from memory and may run concurrently. Writes are serialized,
// within the process by writeMu and across processes by an advisory lock on a
// sibling ".lock" file; each write merges what other handles flushed first.
type Store struct {
	path  string
	log   *zap.Logger
	fresh FreshnessFunc
	now   func() time.Time

	mu      sync.RWMutex // guards entries
	entries map[Key]types.CacheEntry

	writeMu  sync.Mutex
	fileLock *flock.Flock
}

// fileFormat is the on-disk layout. Entries are kept raw so that one bad entry
// can be discarded without losing the rest.
type fileFormat struct {
	Version int                        `json:"version"`
	Entries map[string]json.RawMessage `json:"entries"`
}

// Open loads the cache at path. A missing or unreadable file yields an empty cache;
// individually corrupt entries are dropped and the rest are kept.
func Open(path string, opts ...Option) *Store {
	if path == "" {
		path = DefaultPath
	}
	s := &Store{
		path:     path,
		log:      zap.NewNop(),
		fresh:    AlwaysFresh,
		now:      time.Now,
		entries:  make(map[Key]types.CacheEntry),
		fileLock: flock.New(path + ".lock"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.load()
	return s
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) load() {
	entries, err := s.readFile()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.Warn("cache file unreadable, starting empty", zap.String("path", s.path), zap.Error(err))
		}
		return
	}
	s.entries = entries
	s.log.Debug("cache loaded", zap.String("path", s.path), zap.Int("entries", len(s.entries)))
}

// readFile decodes the cache file, dropping corrupt entries.
func (s *Store) readFile() (map[Key]types.CacheEntry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}

	var file fileFormat
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("cache file corrupt: %w", err)
	}

	entries := make(map[Key]types.CacheEntry, len(file.Entries))
	for rawKey, raw := range file.Entries {
		entry, err := decodeEntry(rawKey, raw)
		if err != nil {
			metrics.CacheCorruptEntries.Inc()
			s.log.Warn("dropping corrupt cache entry", zap.String("key", rawKey), zap.Error(err))
			continue
		}
		entries[Key(rawKey)] = entry
	}
	return entries, nil
}

func decodeEntry(rawKey string, raw json.RawMessage) (types.CacheEntry, error) {
	var entry types.CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return entry, &CorruptEntryError{Key: rawKey, Cause: err}
	}
	key := Key(rawKey)
	if !key.Valid() {
		return entry, &CorruptEntryError{Key: rawKey, Cause: ErrInvalidKey}
	}
	if Normalize(entry.Company, entry.Role) != key {
		return entry, &CorruptEntryError{Key: rawKey, Cause: fmt.Errorf("key does not match company %q role %q", entry.Company, entry.Role)}
	}
	if len(entry.Listings) == 0 {
		return entry, &CorruptEntryError{Key: rawKey, Cause: fmt.Errorf("entry has no listings")}
	}
	entry.Key = rawKey
	return entry, nil
}

// Get returns the entry for key, if present.
func (s *Store) Get(key Key) (types.CacheEntry, bool) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return types.CacheEntry{}, false
	}
	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return entry.Clone(), true
}

// IsFresh applies the configured freshness hook to entry.
func (s *Store) IsFresh(entry types.CacheEntry) bool {
	return s.fresh(entry, s.now())
}

// FindByCompany returns every entry whose company matches, regardless of role.
func (s *Store) FindByCompany(company string) []types.CacheEntry {
	want := NormalizeCompany(company)
	if want == "" {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []types.CacheEntry
	for key, entry := range s.entries {
		if key.Company() == want {
			out = append(out, entry.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Entries returns a snapshot of all entries sorted by key.
func (s *Store) Entries() []types.CacheEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.CacheEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		out = append(out, entry.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Put upserts entry under key with last-write-wins semantics and flushes the file.
// An existing entry keeps its original CreatedAt. The in-memory update survives a
// failed flush; the returned error then wraps ErrCacheUnwritable.
func (s *Store) Put(key Key, entry types.CacheEntry) error {
	if !key.Valid() {
		return ErrInvalidKey
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	lockErr := s.lockFile()
	if lockErr == nil {
		defer func() { _ = s.fileLock.Unlock() }()
		s.merge()
	}

	now := s.now().UTC()
	entry = entry.Clone()
	entry.Key = string(key)
	entry.UpdatedAt = now

	s.mu.Lock()
	if existing, ok := s.entries[key]; ok && !existing.CreatedAt.IsZero() {
		entry.CreatedAt = existing.CreatedAt
	} else if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	s.entries[key] = entry
	s.mu.Unlock()

	metrics.CacheWrites.Inc()
	if lockErr != nil {
		return &WriteError{Path: s.path, Cause: lockErr}
	}
	return s.flush()
}

// lockFile takes the advisory lock shared by every handle on the cache file.
func (s *Store) lockFile() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()
	locked, err := s.fileLock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return err
	}
	if !locked {
		return fmt.Errorf("timed out waiting for %s", s.fileLock.Path())
	}
	return nil
}

// merge folds in entries other handles flushed since this one last read the file.
// The newer UpdatedAt wins. Caller holds the file lock.
func (s *Store) merge() {
	disk, err := s.readFile()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.Debug("cache file not merged", zap.String("path", s.path), zap.Error(err))
		}
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, theirs := range disk {
		if ours, ok := s.entries[key]; !ok || theirs.UpdatedAt.After(ours.UpdatedAt) {
			s.entries[key] = theirs
		}
	}
}

// flush writes a snapshot of the cache to a temp file and renames it into place.
// Caller holds writeMu.
func (s *Store) flush() error {
	s.mu.RLock()
	file := fileFormat{Version: fileVersion, Entries: make(map[string]json.RawMessage, len(s.entries))}
	for key, entry := range s.entries {
		raw, err := json.Marshal(entry)
		if err != nil {
			s.mu.RUnlock()
			return fmt.Errorf("failed to marshal cache entry %s: %w", key, err)
		}
		file.Entries[string(key)] = raw
	}
	s.mu.RUnlock()

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache file: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".jd-cache-*.json")
	if err != nil {
		return &WriteError{Path: s.path, Cause: err}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return &WriteError{Path: s.path, Cause: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return &WriteError{Path: s.path, Cause: err}
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return &WriteError{Path: s.path, Cause: err}
	}
	return nil
}

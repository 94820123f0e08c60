// Package cache keeps recent live cost snapshots on disk so repeated
// commands do not re-query the throttled Cost Management API.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"azcost/internal/costs"
	"azcost/internal/logging"
)

// DefaultFile is the cache location below the azcost config directory
const DefaultFile = "cache/snapshots.json"

type entry struct {
	StoredAt time.Time       `json:"stored_at"`
	Snapshot *costs.Snapshot `json:"snapshot"`
}

// SnapshotCache handles caching of live cost snapshots
type SnapshotCache struct {
	cacheFile string
	entries   map[string]entry
	cacheLock sync.RWMutex
	saveLock  sync.Mutex
}

// Key identifies the snapshot of a subscription over a resolved range
func Key(subscription string, tr costs.TimeRange) string {
	if subscription == "" {
		subscription = "default"
	}
	return subscription + "|" + tr.String()
}

// New creates a cache backed by cacheFile. An unreadable file is logged and
// treated as empty.
func New(cacheFile string) (*SnapshotCache, error) {
	if cacheFile == "" {
		return nil, fmt.Errorf("cache file path is required")
	}

	if err := os.MkdirAll(filepath.Dir(cacheFile), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	sc := &SnapshotCache{
		cacheFile: cacheFile,
		entries:   make(map[string]entry),
	}

	if err := sc.Load(); err != nil {
		logging.Error("Failed to load snapshot cache", err, nil)
	}

	return sc, nil
}

// Get returns the snapshot stored under key if it is younger than ttl
func (sc *SnapshotCache) Get(key string, now time.Time, ttl time.Duration) (*costs.Snapshot, bool) {
	sc.cacheLock.RLock()
	defer sc.cacheLock.RUnlock()

	e, ok := sc.entries[key]
	if !ok || e.Snapshot == nil || now.Sub(e.StoredAt) >= ttl {
		return nil, false
	}
	return e.Snapshot, true
}

// Set stores a live snapshot; demo snapshots are ignored
func (sc *SnapshotCache) Set(key string, snapshot *costs.Snapshot, now time.Time) {
	if snapshot == nil || snapshot.IsDemo() {
		return
	}
	sc.cacheLock.Lock()
	sc.entries[key] = entry{StoredAt: now, Snapshot: snapshot}
	sc.cacheLock.Unlock()
}

// Prune drops entries older than ttl
func (sc *SnapshotCache) Prune(now time.Time, ttl time.Duration) int {
	sc.cacheLock.Lock()
	defer sc.cacheLock.Unlock()

	removed := 0
	for k, e := range sc.entries {
		if now.Sub(e.StoredAt) >= ttl {
			delete(sc.entries, k)
			removed++
		}
	}
	return removed
}

// Load reads the cache from disk
func (sc *SnapshotCache) Load() error {
	data, err := os.ReadFile(sc.cacheFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read cache file: %w", err)
	}

	var entries map[string]entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("failed to parse cache data: %w", err)
	}

	sc.cacheLock.Lock()
	sc.entries = entries
	if sc.entries == nil {
		sc.entries = make(map[string]entry)
	}
	sc.cacheLock.Unlock()

	return nil
}

// Save writes the cache to disk through a temp file
func (sc *SnapshotCache) Save() error {
	sc.saveLock.Lock()
	defer sc.saveLock.Unlock()

	sc.cacheLock.RLock()
	data, err := json.Marshal(sc.entries)
	count := len(sc.entries)
	sc.cacheLock.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(sc.cacheFile), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tempFile := sc.cacheFile + ".tmp"
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp cache file: %w", err)
	}

	if err := os.Rename(tempFile, sc.cacheFile); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temp cache file: %w", err)
	}

	logging.Debug("Snapshot cache saved", map[string]interface{}{
		"cache_file": sc.cacheFile,
		"entries":    count,
	})

	return nil
}

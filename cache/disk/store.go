// Package disk provides a size-bounded, file-backed cache.Store.
//
// Each entry lives in its own file named by the SHA-256 of its key. A
// least-recently-used index is kept in memory and rebuilt from file
// modification times when the store is opened, so the cache survives restarts.
package disk

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/talkwire/talkhttp/cache"
	"github.com/talkwire/talkhttp/logger"
)

const (
	dirPerm  = 0o700
	filePerm = 0o600
)

// entry tracks one cached file.
type entry struct {
	name    string // hashed file name
	size    int64
	element *list.Element // Position in LRU list
}

// Store is a disk-backed cache.Store bounded by total bytes.
type Store struct {
	dir      string
	maxBytes int64
	log      logger.Logger

	mu      sync.Mutex
	entries map[string]*entry
	lru     *list.List // front = most recently used
	size    int64

	hits      int64
	misses    int64
	evictions int64
}

var (
	_ cache.Store         = (*Store)(nil)
	_ cache.StatsProvider = (*Store)(nil)
	_ cache.Purger        = (*Store)(nil)
)

// New opens (or creates) a store rooted at dir holding at most maxBytes.
// Existing entries are indexed, and the oldest are evicted if they exceed maxBytes.
func New(dir string, maxBytes int64, log logger.Logger) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, cache.NewConfigError("dir", "must not be empty", cache.ErrInvalidDir)
	}
	if maxBytes <= 0 {
		return nil, cache.NewConfigError("maxBytes", "must be greater than zero", cache.ErrInvalidCapacity)
	}
	if log == nil {
		log = logger.Nop()
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, cache.NewConfigError("dir", "cannot create cache directory", err)
	}

	s := &Store{
		dir:      dir,
		maxBytes: maxBytes,
		log:      log,
		entries:  make(map[string]*entry),
		lru:      list.New(),
	}
	if err := s.load(); err != nil {
		return nil, cache.NewConfigError("dir", "cannot index cache directory", err)
	}

	s.mu.Lock()
	s.evictLocked()
	s.mu.Unlock()

	s.log.Debug().
		Str("dir", dir).
		Int64("max_bytes", maxBytes).
		Int("entries", len(s.entries)).
		Int64("bytes", s.size).
		Msg("Opened disk cache")

	return s, nil
}

type diskFile struct {
	name    string
	size    int64
	modTime time.Time
}

// load indexes existing entry files, oldest first, and removes abandoned temp files.
func (s *Store) load() error {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return err
	}

	files := make([]diskFile, 0, len(dirEntries))
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		name := de.Name()
		if matched, _ := filepath.Match(cache.TempFilePattern, name); matched {
			_ = os.Remove(filepath.Join(s.dir, name))
			continue
		}
		if !isEntryName(name) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		files = append(files, diskFile{name: name, size: info.Size(), modTime: info.ModTime()})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].modTime.Before(files[j].modTime)
	})

	for _, f := range files {
		e := &entry{name: f.name, size: f.size}
		e.element = s.lru.PushFront(e)
		s.entries[f.name] = e
		s.size += f.size
	}
	return nil
}

// Get returns the bytes stored under key.
func (s *Store) Get(key string) ([]byte, bool) {
	name := fileName(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[name]
	if !ok {
		s.misses++
		return nil, false
	}

	data, err := os.ReadFile(s.path(name))
	if err != nil {
		s.log.Warn().Err(cache.NewOperationError("get", key, err)).Msg("Dropping unreadable cache entry")
		s.removeLocked(e)
		s.misses++
		return nil, false
	}

	s.lru.MoveToFront(e.element)
	s.hits++
	now := time.Now()
	_ = os.Chtimes(s.path(name), now, now)
	return data, true
}

// Set stores value under key. Values larger than the store capacity are dropped.
func (s *Store) Set(key string, value []byte) {
	size := int64(len(value))
	if size > s.maxBytes {
		s.log.Debug().Str("key", key).Int64("bytes", size).Msg("Skipping cache entry larger than capacity")
		s.Delete(key)
		return
	}

	name := fileName(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeFile(name, value); err != nil {
		s.log.Warn().Err(cache.NewOperationError("set", key, err)).Msg("Failed to write cache entry")
		if e, ok := s.entries[name]; ok {
			s.removeLocked(e)
		}
		return
	}

	if e, ok := s.entries[name]; ok {
		s.size += size - e.size
		e.size = size
		s.lru.MoveToFront(e.element)
	} else {
		e = &entry{name: name, size: size}
		e.element = s.lru.PushFront(e)
		s.entries[name] = e
		s.size += size
	}

	s.evictLocked()
}

// Delete removes key.
func (s *Store) Delete(key string) {
	name := fileName(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[name]; ok {
		s.removeLocked(e)
	}
}

// Purge removes every entry from the store.
func (s *Store) Purge() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, e := range s.entries {
		if err := os.Remove(s.path(e.name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	s.entries = make(map[string]*entry)
	s.lru.Init()
	s.size = 0

	return errors.Join(errs...)
}

// Stats returns cache statistics for observability.
func (s *Store) Stats() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	return map[string]any{
		"dir":       s.dir,
		"entries":   len(s.entries),
		"bytes":     s.size,
		"max_bytes": s.maxBytes,
		"hits":      s.hits,
		"misses":    s.misses,
		"evictions": s.evictions,
	}
}

// Dir returns the directory backing the store.
func (s *Store) Dir() string {
	return s.dir
}

// Len returns the number of indexed entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Size returns the total bytes currently stored.
func (s *Store) Size() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// writeFile writes atomically through a temp file in the same directory.
func (s *Store) writeFile(name string, value []byte) error {
	tmp, err := os.CreateTemp(s.dir, cache.TempFilePattern)
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, filePerm); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.path(name)); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

// evictLocked removes least recently used entries until the store fits its capacity.
// Caller must hold s.mu.
func (s *Store) evictLocked() {
	for s.size > s.maxBytes {
		oldest := s.lru.Back()
		if oldest == nil {
			return
		}
		e := oldest.Value.(*entry)
		s.removeLocked(e)
		s.evictions++
		s.log.Debug().Str("file", e.name).Int64("bytes", e.size).Msg("Evicted cache entry")
	}
}

// removeLocked drops e from the index and disk. Caller must hold s.mu.
func (s *Store) removeLocked(e *entry) {
	s.lru.Remove(e.element)
	delete(s.entries, e.name)
	s.size -= e.size

	if err := os.Remove(s.path(e.name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.log.Warn().Err(err).Str("file", e.name).Msg("Failed to remove cache file")
	}
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

func fileName(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

func isEntryName(name string) bool {
	if len(name) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(name)
	return err == nil
}

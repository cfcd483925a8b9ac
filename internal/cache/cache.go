package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"fortio.org/safecast"
	"github.com/vmihailenco/msgpack/v5"
)

// Current schema version - increment when Payload format changes
const schemaVersion uint16 = 1

// Entry is the cached part-of scan of one file, valid while size and
// modification time are unchanged.
type Entry struct {
	Size    uint64 `msgpack:"size"`
	ModTime int64  `msgpack:"mtime"`
	SubPart bool   `msgpack:"sub_part"`
}

// Payload is the on-disk form of one tree's classification index.
type Payload struct {
	Schema  uint16           `msgpack:"schema"`
	Root    string           `msgpack:"root"`
	Entries map[string]Entry `msgpack:"entries"`
}

// DiskCache keeps part-of scan results for one traversal root.
// Thread-safe for concurrent access.
type DiskCache struct {
	mu      sync.RWMutex
	dir     string
	root    string
	entries map[string]Entry
	seen    map[string]struct{}
	hits    int
	misses  int
}

// Open loads the cache for root from the standard cache location.
func Open(app, root string) (*DiskCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return OpenDir(filepath.Join(base, app), root)
}

// OpenDir loads the cache for root stored under dir. A missing, unreadable
// or outdated cache file yields an empty cache.
func OpenDir(dir, root string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	c := &DiskCache{
		dir:     dir,
		root:    root,
		entries: make(map[string]Entry),
		seen:    make(map[string]struct{}),
	}
	f, err := os.Open(c.path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c, nil
		}
		return nil, err
	}
	defer f.Close()
	var payload Payload
	if err := msgpack.NewDecoder(f).Decode(&payload); err != nil {
		return c, nil
	}
	if payload.Schema == schemaVersion && payload.Root == root && payload.Entries != nil {
		c.entries = payload.Entries
	}
	return c, nil
}

func (c *DiskCache) path() string {
	sum := sha256.Sum256([]byte(c.root))
	return filepath.Join(c.dir, "trees", hex.EncodeToString(sum[:])+".mp")
}

// Lookup returns the cached scan for path when info still matches.
func (c *DiskCache) Lookup(path string, info fs.FileInfo) (subPart, ok bool) {
	if c == nil {
		return false, false
	}
	key, valid := entryKey(info)
	c.mu.Lock()
	defer c.mu.Unlock()
	e, found := c.entries[path]
	if !valid || !found || e.Size != key.Size || e.ModTime != key.ModTime {
		c.misses++
		return false, false
	}
	c.seen[path] = struct{}{}
	c.hits++
	return e.SubPart, true
}

// Store records a fresh scan result.
func (c *DiskCache) Store(path string, info fs.FileInfo, subPart bool) {
	if c == nil {
		return
	}
	key, valid := entryKey(info)
	if !valid {
		return
	}
	key.SubPart = subPart
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[path] = key
	c.seen[path] = struct{}{}
}

// Stats returns hit and miss counts since Open.
func (c *DiskCache) Stats() (hits, misses int) {
	if c == nil {
		return 0, 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

// Save writes the entries looked up or stored during this run; entries of
// files that were not visited are dropped.
func (c *DiskCache) Save() (err error) {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	payload := Payload{Schema: schemaVersion, Root: c.root, Entries: make(map[string]Entry, len(c.seen))}
	for path := range c.seen {
		payload.Entries[path] = c.entries[path]
	}
	c.mu.RUnlock()

	p := c.path()
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if rmErr := os.Remove(f.Name()); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) && err == nil {
			err = fmt.Errorf("failed to remove temp file: %w", rmErr)
		}
	}()
	if err := msgpack.NewEncoder(f).Encode(&payload); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}

// DropAll removes every cached tree.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		return err
	}
	c.entries = make(map[string]Entry)
	c.seen = make(map[string]struct{})
	return os.RemoveAll(old)
}

func entryKey(info fs.FileInfo) (Entry, bool) {
	if info == nil {
		return Entry{}, false
	}
	size, err := safecast.Conv[uint64](info.Size())
	if err != nil {
		return Entry{}, false
	}
	return Entry{Size: size, ModTime: info.ModTime().UnixNano()}, true
}

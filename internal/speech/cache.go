package speech

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/hammamikhairi/distype/internal/logger"
)

const cacheExt = ".audio"

// CacheOption configures an AudioCache.
type CacheOption func(*AudioCache)

// WithCacheDir sets the on-disk cache directory. Empty disables the disk
// layer.
func WithCacheDir(dir string) CacheOption {
	return func(c *AudioCache) { c.cacheDir = dir }
}

// WithCacheLimitMB caps the disk layer. Oldest files are evicted first
// once the total exceeds the limit. Zero means unlimited.
func WithCacheLimitMB(mb int) CacheOption {
	return func(c *AudioCache) { c.limitBytes = int64(mb) << 20 }
}

// WithCacheEnabled turns the cache on or off. A disabled cache never
// stores and always misses.
func WithCacheEnabled(enabled bool) CacheOption {
	return func(c *AudioCache) { c.enabled = enabled }
}

// AudioCache is a thread-safe two-tier cache (in-memory + filesystem) for
// synthesized audio. The key is sha256(voice + ":" + text), so switching
// voices misses until the voice is switched back.
type AudioCache struct {
	mu         sync.RWMutex
	entries    map[string][]byte // hash -> encoded audio
	log        *logger.Logger
	cacheDir   string
	limitBytes int64
	enabled    bool
	hits       int64
	misses     int64
}

// CacheInfo summarizes cache usage.
type CacheInfo struct {
	Enabled     bool
	MemEntries  int
	DiskEntries int
	DiskBytes   int64
	LimitBytes  int64
	Hits        int64
	Misses      int64
}

// NewAudioCache creates an audio cache, enabled by default.
func NewAudioCache(log *logger.Logger, opts ...CacheOption) *AudioCache {
	c := &AudioCache{
		entries: make(map[string][]byte),
		log:     log,
		enabled: true,
	}
	for _, o := range opts {
		o(c)
	}

	if c.cacheDir != "" && c.enabled {
		if err := os.MkdirAll(c.cacheDir, 0o755); err != nil {
			log.Error("cache: failed to create cache dir %s: %v", c.cacheDir, err)
		}
	}
	return c
}

// Get returns cached audio for voice and text, checking memory then disk.
func (c *AudioCache) Get(voice, text string) ([]byte, bool) {
	if !c.enabled {
		return nil, false
	}
	key := hashKey(voice, text)

	c.mu.RLock()
	data, ok := c.entries[key]
	c.mu.RUnlock()

	if ok {
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
		c.log.Debug("cache hit (mem): %s (%d bytes)", truncate(text, 40), len(data))
		return data, true
	}

	if c.cacheDir != "" {
		if diskData, err := os.ReadFile(c.diskPath(key)); err == nil {
			c.mu.Lock()
			c.entries[key] = diskData
			c.hits++
			c.mu.Unlock()
			c.log.Debug("cache hit (disk): %s (%d bytes)", truncate(text, 40), len(diskData))
			return diskData, true
		}
	}

	c.mu.Lock()
	c.misses++
	c.mu.Unlock()
	return nil, false
}

// Put stores audio for voice and text in memory and, when configured,
// on disk, then enforces the disk limit.
func (c *AudioCache) Put(voice, text string, audio []byte) {
	if !c.enabled {
		return
	}
	key := hashKey(voice, text)

	c.mu.Lock()
	c.entries[key] = audio
	size := len(c.entries)
	c.mu.Unlock()

	c.log.Debug("cache store (mem): %s (%d bytes, %d entries)", truncate(text, 40), len(audio), size)

	if c.cacheDir == "" {
		return
	}
	path := c.diskPath(key)
	if err := writeFileAtomic(path, audio); err != nil {
		c.log.Error("cache: disk write failed for %s: %v", path, err)
		return
	}
	c.evict()
}

// Delete drops the entry for voice and text from memory and disk.
func (c *AudioCache) Delete(voice, text string) {
	key := hashKey(voice, text)

	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()

	if c.cacheDir == "" {
		return
	}
	if err := os.Remove(c.diskPath(key)); err != nil && !os.IsNotExist(err) {
		c.log.Warn("cache: delete %s: %v", c.diskPath(key), err)
	}
}

// writeFileAtomic writes through a temp file in the same directory so a
// reader never sees a partial entry.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".entry-*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

type diskEntry struct {
	path string
	size int64
	mod  int64
}

func (c *AudioCache) diskEntries() ([]diskEntry, int64) {
	if c.cacheDir == "" {
		return nil, 0
	}
	files, err := os.ReadDir(c.cacheDir)
	if err != nil {
		return nil, 0
	}
	var (
		out   []diskEntry
		total int64
	)
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), cacheExt) {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		out = append(out, diskEntry{
			path: filepath.Join(c.cacheDir, f.Name()),
			size: info.Size(),
			mod:  info.ModTime().UnixNano(),
		})
		total += info.Size()
	}
	return out, total
}

// evict removes the oldest disk files until the total fits the limit.
func (c *AudioCache) evict() {
	if c.limitBytes <= 0 {
		return
	}
	files, total := c.diskEntries()
	if total <= c.limitBytes {
		return
	}
	sort.Slice(files, func(i, j int) bool { return files[i].mod < files[j].mod })

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range files {
		if total <= c.limitBytes {
			break
		}
		if err := os.Remove(f.path); err != nil {
			c.log.Warn("cache: evict %s: %v", f.path, err)
			continue
		}
		total -= f.size
		delete(c.entries, strings.TrimSuffix(filepath.Base(f.path), cacheExt))
		c.log.Debug("cache evict (disk): %s (%d bytes)", filepath.Base(f.path), f.size)
	}
}

// Info reports entry counts, disk usage and hit/miss stats.
func (c *AudioCache) Info() CacheInfo {
	files, total := c.diskEntries()

	c.mu.RLock()
	defer c.mu.RUnlock()
	return CacheInfo{
		Enabled:     c.enabled,
		MemEntries:  len(c.entries),
		DiskEntries: len(files),
		DiskBytes:   total,
		LimitBytes:  c.limitBytes,
		Hits:        c.hits,
		Misses:      c.misses,
	}
}

// Clear empties memory and removes every cached file from disk.
func (c *AudioCache) Clear() error {
	files, _ := c.diskEntries()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string][]byte)
	c.hits = 0
	c.misses = 0
	for _, f := range files {
		if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	c.log.Debug("cache cleared (%d files)", len(files))
	return nil
}

func hashKey(voice, text string) string {
	h := sha256.Sum256([]byte(voice + ":" + text))
	return hex.EncodeToString(h[:])
}

func (c *AudioCache) diskPath(key string) string {
	return filepath.Join(c.cacheDir, key+cacheExt)
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

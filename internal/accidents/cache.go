package accidents

import (
	"fmt"
	"sync"
	"time"

	"github.com/banshee-data/accident.report/internal/fsutil"
	"github.com/banshee-data/accident.report/internal/monitoring"
)

// Loader reads datasets through a read-through cache keyed by path,
// modification time and size. A changed file is reloaded on the next call.
type Loader struct {
	fs      fsutil.FileSystem
	enabled bool

	// OnLoad, when set, is called after every fresh (uncached) load.
	OnLoad func(ds *Dataset, modTime time.Time)

	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	modTime time.Time
	size    int64
	ds      *Dataset
}

// NewLoader creates a loader over fsys. With cache disabled every call
// reads the source again.
func NewLoader(fsys fsutil.FileSystem, cache bool) *Loader {
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	return &Loader{fs: fsys, enabled: cache, entries: make(map[string]cacheEntry)}
}

// Load returns the dataset at path, reusing the cached copy when the file is
// unchanged. The returned dataset must not be modified.
func (l *Loader) Load(path string) (*Dataset, error) {
	info, err := l.fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %v", ErrDataUnavailable, path, err)
	}

	if l.enabled {
		l.mu.Lock()
		e, ok := l.entries[path]
		l.mu.Unlock()
		if ok && e.modTime.Equal(info.ModTime()) && e.size == info.Size() {
			monitoring.DatasetCache.WithLabelValues("hit").Inc()
			monitoring.Debugf("dataset cache hit for %s", path)
			return e.ds, nil
		}
		monitoring.DatasetCache.WithLabelValues("miss").Inc()
	}

	ds, err := LoadFS(l.fs, path)
	if err != nil {
		return nil, err
	}
	monitoring.Logf("loaded %d records from %s", ds.Len(), path)

	if l.enabled {
		l.mu.Lock()
		l.entries[path] = cacheEntry{modTime: info.ModTime(), size: info.Size(), ds: ds}
		l.mu.Unlock()
	}
	if l.OnLoad != nil {
		l.OnLoad(ds, info.ModTime())
	}
	return ds, nil
}

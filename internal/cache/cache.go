package cache

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// DiskCache keeps release catalog responses on disk, one file per key.
// Entries older than ttl are treated as missing.
type DiskCache struct {
	sync.RWMutex
	dir string
	ttl time.Duration
	now func() time.Time
}

func New(dir string, ttl time.Duration) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	return &DiskCache{dir: dir, ttl: ttl, now: time.Now}, nil
}

func (c *DiskCache) path(key string) string {
	name := strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(key)
	return filepath.Join(c.dir, name+".json")
}

func (c *DiskCache) Get(key string) ([]byte, bool) {
	c.RLock()
	defer c.RUnlock()

	p := c.path(key)
	info, err := os.Stat(p)
	if err != nil {
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(info.ModTime()) > c.ttl {
		return nil, false
	}

	data, err := os.ReadFile(p)
	if err != nil {
		return nil, false
	}
	return data, true
}

func (c *DiskCache) Put(key string, data []byte) error {
	c.Lock()
	defer c.Unlock()

	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(c.dir, ".entry-*")
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

	return os.Rename(tmp.Name(), c.path(key))
}

func (c *DiskCache) Size() (int64, error) {
	c.RLock()
	defer c.RUnlock()

	var size int64

	err := filepath.Walk(c.dir, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})

	return size, err
}

func (c *DiskCache) Clear() error {
	c.Lock()
	defer c.Unlock()

	return os.RemoveAll(c.dir)
}

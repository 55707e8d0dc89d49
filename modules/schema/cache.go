package schema

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/ipfs/go-datastore"
	flatfs "github.com/ipfs/go-ds-flatfs"
)

// Cache keeps raw runtime metadata on disk, keyed by genesis hash and
// spec version, so restarts against the same runtime skip the download.
type Cache struct {
	db  *flatfs.Datastore
	mtx *sync.Mutex
}

func OpenCache(path string) (*Cache, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, err
	}

	fs, err := flatfs.CreateOrOpen(path, flatfs.NextToLast(2), false)
	if err != nil {
		return nil, err
	}

	return &Cache{db: fs, mtx: &sync.Mutex{}}, nil
}

// flatfs only accepts [0-9A-Z+-_=] in keys
func cacheKey(genesis [32]byte, specVersion uint32) datastore.Key {
	return datastore.NewKey(fmt.Sprintf("%s_%d", strings.ToUpper(hex.EncodeToString(genesis[:])), specVersion))
}

// Get returns the cached metadata, ok is false when nothing is stored.
func (c *Cache) Get(ctx context.Context, genesis [32]byte, specVersion uint32) ([]byte, bool, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	b, err := c.db.Get(ctx, cacheKey(genesis, specVersion))
	if errors.Is(err, datastore.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read metadata [spec:%d]: %w", specVersion, err)
	}
	return b, true, nil
}

func (c *Cache) Put(ctx context.Context, genesis [32]byte, specVersion uint32, raw []byte) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if err := c.db.Put(ctx, cacheKey(genesis, specVersion), raw); err != nil {
		return fmt.Errorf("failed to write metadata [spec:%d]: %w", specVersion, err)
	}
	return nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

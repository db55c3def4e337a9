package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fjod/storefront/internal/kvstore"
)

// flakyStore wraps a MemoryStore and fails the next N Set/Get calls.
type flakyStore struct {
	m         sync.Mutex
	inner     *kvstore.MemoryStore
	setFails  int
	getFails  int
	setCalls  int
	delay     time.Duration
	removeErr error
}

var errDisk = errors.New("disk full")

func newFlakyStore() *flakyStore {
	return &flakyStore{inner: kvstore.NewMemoryStore()}
}

func (f *flakyStore) Get(ctx context.Context, key string) (string, error) {
	f.m.Lock()
	fail := f.getFails > 0
	if fail {
		f.getFails--
	}
	delay := f.delay
	f.m.Unlock()

	if fail {
		return "", errDisk
	}
	if delay > 0 {
		time.Sleep(delay)
	}
	return f.inner.Get(ctx, key)
}

func (f *flakyStore) Set(ctx context.Context, key, value string) error {
	f.m.Lock()
	f.setCalls++
	fail := f.setFails > 0
	if fail {
		f.setFails--
	}
	f.m.Unlock()

	if fail {
		return errDisk
	}
	return f.inner.Set(ctx, key, value)
}

func (f *flakyStore) Remove(ctx context.Context, key string) error {
	f.m.Lock()
	err := f.removeErr
	f.m.Unlock()
	if err != nil {
		return err
	}
	return f.inner.Remove(ctx, key)
}

func (f *flakyStore) Close() error { return nil }

func (f *flakyStore) failSets(n int) {
	f.m.Lock()
	defer f.m.Unlock()
	f.setFails = n
}

func (f *flakyStore) failGets(n int) {
	f.m.Lock()
	defer f.m.Unlock()
	f.getFails = n
}

func (f *flakyStore) sets() int {
	f.m.Lock()
	defer f.m.Unlock()
	return f.setCalls
}

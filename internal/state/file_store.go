package state

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
	"golang.org/x/sync/semaphore"
)

const slotExt = ".json"

// FileStore keeps one JSON document per slot inside a directory. Every
// operation on a slot runs under that slot's lock, and the number of
// goroutines touching the disk at once is bounded by the worker count.
type FileStore struct {
	dir   string
	locks *KeyedMutex
	sem   *semaphore.Weighted
}

func NewFileStore(dir string, workers int) (*FileStore, error) {
	if workers < 1 {
		workers = 1
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("unable to create %s: %w", dir, err)
	}
	return &FileStore{
		dir:   dir,
		locks: NewKeyedMutex(),
		sem:   semaphore.NewWeighted(int64(workers)),
	}, nil
}

func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) Path(name string) string {
	return filepath.Join(s.dir, name+slotExt)
}

// acquire takes the slot lock first and the disk slot second, so a goroutine
// holding a disk slot never waits on a slot lock.
func (s *FileStore) acquire(ctx context.Context, path string) (func(), error) {
	unlock := s.locks.Lock(path)
	if err := s.sem.Acquire(ctx, 1); err != nil {
		unlock()
		return nil, err
	}
	return func() {
		s.sem.Release(1)
		unlock()
	}, nil
}

func (s *FileStore) Read(ctx context.Context, name string, v any) error {
	path := s.Path(name)
	release, err := s.acquire(ctx, path)
	if err != nil {
		return err
	}
	defer release()

	return readSlot(path, v)
}

// ReadRaw returns the undecoded slot content.
func (s *FileStore) ReadRaw(ctx context.Context, name string) ([]byte, error) {
	path := s.Path(name)
	release, err := s.acquire(ctx, path)
	if err != nil {
		return nil, err
	}
	defer release()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return nil, err
	}
	return data, nil
}

func (s *FileStore) Write(ctx context.Context, name string, v any) error {
	path := s.Path(name)
	release, err := s.acquire(ctx, path)
	if err != nil {
		return err
	}
	defer release()

	return writeSlot(path, v)
}

// Create writes a new slot and fails with ErrExists when one is present.
func (s *FileStore) Create(ctx context.Context, name string, v any) error {
	path := s.Path(name)
	release, err := s.acquire(ctx, path)
	if err != nil {
		return err
	}
	defer release()

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s: %w", name, ErrExists)
	} else if !os.IsNotExist(err) {
		return err
	}
	return writeSlot(path, v)
}

// Update reads the slot into v, calls mutate and writes v back, all under one
// lock acquisition. Nothing is written when mutate fails.
func (s *FileStore) Update(ctx context.Context, name string, v any, mutate func() error) error {
	path := s.Path(name)
	release, err := s.acquire(ctx, path)
	if err != nil {
		return err
	}
	defer release()

	if err := readSlot(path, v); err != nil {
		return err
	}
	if err := mutate(); err != nil {
		return err
	}
	return writeSlot(path, v)
}

// Upsert is Update that starts from init when the slot is missing or corrupt.
func (s *FileStore) Upsert(ctx context.Context, name string, v any, init func(), mutate func() error) error {
	path := s.Path(name)
	release, err := s.acquire(ctx, path)
	if err != nil {
		return err
	}
	defer release()

	if err := readSlot(path, v); err != nil {
		if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrCorruptState) {
			return err
		}
		init()
	}
	if err := mutate(); err != nil {
		return err
	}
	return writeSlot(path, v)
}

func (s *FileStore) Delete(ctx context.Context, name string) error {
	path := s.Path(name)
	release, err := s.acquire(ctx, path)
	if err != nil {
		return err
	}
	defer release()

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return err
	}
	return nil
}

func (s *FileStore) Exists(name string) bool {
	_, err := os.Stat(s.Path(name))
	return err == nil
}

// List returns the sorted slot names starting with prefix.
func (s *FileStore) List(prefix string) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		n := e.Name()
		if e.IsDir() || !strings.HasSuffix(n, slotExt) || !strings.HasPrefix(n, prefix) {
			continue
		}
		names = append(names, strings.TrimSuffix(n, slotExt))
	}
	sort.Strings(names)
	return names, nil
}

func readSlot(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w", filepath.Base(path), ErrNotFound)
		}
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s: %w: %v", filepath.Base(path), ErrCorruptState, err)
	}
	return nil
}

func writeSlot(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tmpFile := path + ".tmp"
	file, err := os.Create(tmpFile)
	if err != nil {
		return err
	}

	_, err = file.Write(data)
	if err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Close(); err != nil {
		os.Remove(tmpFile)
		return err
	}

	return os.Rename(tmpFile, path)
}

package state

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/lyw1217/flight-price-checker/internal/models"
	"github.com/lyw1217/flight-price-checker/internal/providers"
	"github.com/lyw1217/flight-price-checker/internal/structures"
)

const archiveExt = ".archive.zst"

// ArchivedMonitor is what remains of a monitor removed by the retention sweep.
type ArchivedMonitor struct {
	Name       string               `json:"name"`
	State      *models.MonitorState `json:"state,omitempty"`
	Raw        []byte               `json:"raw,omitempty"`
	ArchivedAt time.Time            `json:"archived_at"`
}

type ArchiveInterface interface {
	Put(entry *ArchivedMonitor) error
	Load(name string) (*ArchivedMonitor, error)
	List() ([]string, error)
	Close()
}

// Archive keeps zstd-compressed copies of swept monitors, one file each.
// With an empty directory every call is a no-op.
type Archive struct {
	mu         sync.Mutex
	dir        string
	compressor CompressorInterface
	logger     providers.Logger
}

func (a *Archive) Put(entry *ArchivedMonitor) error {
	if a.dir == "" {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	jsonData, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	compressed, err := a.compressor.Compress(jsonData)
	if err != nil {
		return err
	}

	path := a.path(entry.Name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	tmpFile := path + ".tmp"
	if err := os.WriteFile(tmpFile, compressed, 0644); err != nil {
		return err
	}
	return os.Rename(tmpFile, path)
}

func (a *Archive) Load(name string) (*ArchivedMonitor, error) {
	if a.dir == "" {
		return nil, ErrNotFound
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	data, err := os.ReadFile(a.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	decompressed, err := a.compressor.Decompress(data)
	if err != nil {
		a.logger.Errorf(providers.TypeStore, "Failed to decompress archive %s: %s", name, err)
		return nil, ErrCorruptState
	}
	var entry ArchivedMonitor
	if err := json.Unmarshal(decompressed, &entry); err != nil {
		return nil, ErrCorruptState
	}
	return &entry, nil
}

func (a *Archive) List() ([]string, error) {
	if a.dir == "" {
		return nil, nil
	}
	files, err := filepath.Glob(filepath.Join(a.dir, "*"+archiveExt))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, strings.TrimSuffix(filepath.Base(f), archiveExt))
	}
	return names, nil
}

func (a *Archive) Close() {
	a.compressor.Close()
}

func (a *Archive) path(name string) string {
	return filepath.Join(a.dir, name+archiveExt)
}

func NewArchive(conf *structures.Config, compressor CompressorInterface, logger providers.Logger) ArchiveInterface {
	return &Archive{
		dir:        conf.Storage.ArchiveDir,
		compressor: compressor,
		logger:     logger,
	}
}

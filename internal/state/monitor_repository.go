package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/lyw1217/flight-price-checker/internal/models"
	"github.com/lyw1217/flight-price-checker/internal/providers"
	"github.com/lyw1217/flight-price-checker/internal/structures"
	"github.com/samber/lo"
)

const monitorPrefix = "price_"

type MonitorRepositoryInterface interface {
	Get(ctx context.Context, key models.MonitorKey) (*models.MonitorState, error)
	Create(ctx context.Context, key models.MonitorKey, st *models.MonitorState) error
	Save(ctx context.Context, key models.MonitorKey, st *models.MonitorState) error
	Update(ctx context.Context, key models.MonitorKey, fn func(st *models.MonitorState) error) error
	Delete(ctx context.Context, key models.MonitorKey) error
	DeleteSlot(ctx context.Context, name string) error
	ReadSlot(ctx context.Context, name string) (*models.MonitorState, error)
	ReadRaw(ctx context.Context, name string) ([]byte, error)
	List() ([]models.MonitorKey, error)
	ListNames() ([]string, error)
	ListByUser(userID int64) ([]models.MonitorKey, error)
}

type MonitorRepository struct {
	store  *FileStore
	logger providers.Logger
}

func (r *MonitorRepository) Get(ctx context.Context, key models.MonitorKey) (*models.MonitorState, error) {
	return r.ReadSlot(ctx, key.Name())
}

func (r *MonitorRepository) ReadSlot(ctx context.Context, name string) (*models.MonitorState, error) {
	var st models.MonitorState
	if err := r.store.Read(ctx, name, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (r *MonitorRepository) ReadRaw(ctx context.Context, name string) ([]byte, error) {
	return r.store.ReadRaw(ctx, name)
}

func (r *MonitorRepository) Create(ctx context.Context, key models.MonitorKey, st *models.MonitorState) error {
	return r.store.Create(ctx, key.Name(), st)
}

func (r *MonitorRepository) Save(ctx context.Context, key models.MonitorKey, st *models.MonitorState) error {
	return r.store.Write(ctx, key.Name(), st)
}

// Update applies fn to the current state under the slot lock. A missing slot
// yields ErrNotFound and fn is not called.
func (r *MonitorRepository) Update(ctx context.Context, key models.MonitorKey, fn func(st *models.MonitorState) error) error {
	var st models.MonitorState
	return r.store.Update(ctx, key.Name(), &st, func() error {
		return fn(&st)
	})
}

func (r *MonitorRepository) Delete(ctx context.Context, key models.MonitorKey) error {
	return r.DeleteSlot(ctx, key.Name())
}

func (r *MonitorRepository) DeleteSlot(ctx context.Context, name string) error {
	err := r.store.Delete(ctx, name)
	if err != nil && !errors.Is(err, ErrNotFound) {
		r.logger.Errorf(providers.TypeStore, "Unable to delete slot %s: %s", name, err)
	}
	return err
}

// ListNames returns every monitor slot name, including ones whose name does
// not parse into a key.
func (r *MonitorRepository) ListNames() ([]string, error) {
	return r.store.List(monitorPrefix)
}

func (r *MonitorRepository) List() ([]models.MonitorKey, error) {
	names, err := r.ListNames()
	if err != nil {
		return nil, fmt.Errorf("unable to list monitors: %w", err)
	}
	keys := make([]models.MonitorKey, 0, len(names))
	for _, name := range names {
		key, err := models.ParseMonitorName(name)
		if err != nil {
			r.logger.Warnf(providers.TypeStore, "Skipping slot with unexpected name %s", name)
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (r *MonitorRepository) ListByUser(userID int64) ([]models.MonitorKey, error) {
	keys, err := r.List()
	if err != nil {
		return nil, err
	}
	return lo.Filter(keys, func(k models.MonitorKey, _ int) bool {
		return k.UserID == userID
	}), nil
}

func NewMonitorRepository(conf *structures.Config, logger providers.Logger) (MonitorRepositoryInterface, error) {
	store, err := NewFileStore(conf.Storage.DataDir, conf.Storage.FileWorkers)
	if err != nil {
		return nil, err
	}
	return &MonitorRepository{store: store, logger: logger}, nil
}

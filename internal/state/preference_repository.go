package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lyw1217/flight-price-checker/internal/models"
	"github.com/lyw1217/flight-price-checker/internal/providers"
	"github.com/lyw1217/flight-price-checker/internal/structures"
	"github.com/spf13/cast"
)

const preferencePrefix = "config_"

type PreferenceRepositoryInterface interface {
	Get(ctx context.Context, userID int64) (*models.UserPreference, error)
	Peek(ctx context.Context, userID int64) (*models.UserPreference, error)
	Update(ctx context.Context, userID int64, fn func(p *models.UserPreference) error) (*models.UserPreference, error)
	Delete(ctx context.Context, userID int64) error
	ListUsers() ([]int64, error)
}

type PreferenceRepository struct {
	store  *FileStore
	loc    *time.Location
	now    func() time.Time
	logger providers.Logger
}

func preferenceName(userID int64) string {
	return fmt.Sprintf("%s%d", preferencePrefix, userID)
}

// Get returns the user's preference, creating it with defaults on first
// access, and refreshes last_activity. A corrupt record is reset to defaults.
func (r *PreferenceRepository) Get(ctx context.Context, userID int64) (*models.UserPreference, error) {
	return r.Update(ctx, userID, func(*models.UserPreference) error { return nil })
}

// Peek reads the stored preference without creating or touching it.
func (r *PreferenceRepository) Peek(ctx context.Context, userID int64) (*models.UserPreference, error) {
	var p models.UserPreference
	if err := r.store.Read(ctx, preferenceName(userID), &p); err != nil {
		return nil, err
	}
	p.Normalize()
	return &p, nil
}

// Update applies fn and persists the result only when it validates, so an
// unknown notification mode never reaches the disk.
func (r *PreferenceRepository) Update(ctx context.Context, userID int64, fn func(p *models.UserPreference) error) (*models.UserPreference, error) {
	var p models.UserPreference
	now := r.now()
	err := r.store.Upsert(ctx, preferenceName(userID), &p,
		func() {
			r.logger.Infof(providers.TypeStore, "Creating default preference for user %d", userID)
			p = *models.DefaultPreference(now, r.loc)
		},
		func() error {
			p.Normalize()
			if err := p.Validate(); err != nil {
				r.logger.Warnf(providers.TypeStore, "Resetting invalid preference of user %d: %s", userID, err)
				p = *models.DefaultPreference(now, r.loc)
			}
			if p.CreatedAt == "" {
				p.CreatedAt = models.FormatTimestamp(now, r.loc)
			}
			if err := fn(&p); err != nil {
				return err
			}
			if err := p.Validate(); err != nil {
				return err
			}
			p.LastActivity = models.FormatTimestamp(now, r.loc)
			return nil
		},
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PreferenceRepository) Delete(ctx context.Context, userID int64) error {
	return r.store.Delete(ctx, preferenceName(userID))
}

func (r *PreferenceRepository) ListUsers() ([]int64, error) {
	names, err := r.store.List(preferencePrefix)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(names))
	for _, name := range names {
		id, err := cast.ToInt64E(strings.TrimPrefix(name, preferencePrefix))
		if err != nil {
			r.logger.Warnf(providers.TypeStore, "Skipping preference slot with unexpected name %s", name)
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func IsMissing(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrCorruptState)
}

func NewPreferenceRepository(conf *structures.Config, logger providers.Logger) (PreferenceRepositoryInterface, error) {
	store, err := NewFileStore(conf.Storage.UserConfigDir, conf.Storage.FileWorkers)
	if err != nil {
		return nil, err
	}
	return &PreferenceRepository{
		store:  store,
		loc:    conf.Location(),
		now:    time.Now,
		logger: logger,
	}, nil
}

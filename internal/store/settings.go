package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/WaelFa/SpeedyPaws/internal/domain"
	apperrors "github.com/WaelFa/SpeedyPaws/internal/errors"
)

// settingsKey is the key of the single settings record. All tabs and the
// popup read and write the same record.
const settingsKey = "settings:global"

// ErrSettingsNotFound is returned when no settings record exists yet.
var ErrSettingsNotFound = apperrors.NotFound("settings not found")

// SettingsChangedEvent is emitted after every successful settings write.
type SettingsChangedEvent struct {
	Settings *domain.Settings `json:"settings"`
}

// GetSettings retrieves the settings record.
func (s *Store) GetSettings(ctx context.Context) (*domain.Settings, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var settings domain.Settings
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(settingsKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrSettingsNotFound
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &settings)
		})
	})

	if err != nil {
		return nil, err
	}
	return &settings, nil
}

// SaveSettings overwrites the settings record.
func (s *Store) SaveSettings(ctx context.Context, settings *domain.Settings) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	settings.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(settingsKey), data)
	})
	if err != nil {
		return err
	}

	if s.eventEmitter != nil {
		s.eventEmitter.Emit(SettingsChangedEvent{Settings: settings.Clone()})
	}
	return nil
}

// EnsureSettings retrieves the settings record, creating defaults only if
// no record exists. Existing fields are never overwritten.
func (s *Store) EnsureSettings(ctx context.Context) (*domain.Settings, error) {
	settings, err := s.GetSettings(ctx)
	if err == nil {
		return settings, nil
	}

	if !errors.Is(err, ErrSettingsNotFound) {
		return nil, err
	}

	settings = domain.NewSettings()
	if err := s.SaveSettings(ctx, settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// UpdateSettings applies mutate to the current settings inside a single
// transaction. Concurrent writers from different tabs serialize here, so a
// partial update never clobbers fields it did not touch.
func (s *Store) UpdateSettings(ctx context.Context, mutate func(*domain.Settings) error) (*domain.Settings, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var updated *domain.Settings
	err := s.db.Update(func(txn *badger.Txn) error {
		settings := domain.NewSettings()

		item, err := txn.Get([]byte(settingsKey))
		if err == nil {
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, settings)
			}); err != nil {
				return err
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if err := mutate(settings); err != nil {
			return err
		}

		settings.UpdatedAt = time.Now().UTC()
		data, err := json.Marshal(settings)
		if err != nil {
			return fmt.Errorf("marshal settings: %w", err)
		}

		if err := txn.Set([]byte(settingsKey), data); err != nil {
			return err
		}
		updated = settings
		return nil
	})

	if err != nil {
		return nil, err
	}

	if s.eventEmitter != nil {
		s.eventEmitter.Emit(SettingsChangedEvent{Settings: updated.Clone()})
	}
	return updated, nil
}

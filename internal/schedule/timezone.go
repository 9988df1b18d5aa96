package schedule

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Directory maps stores to their time zones, falling back to a default zone
// when a store has no entry or its zone name cannot be loaded.
type Directory struct {
	zones    map[string]string
	fallback *time.Location
	logger   *zap.Logger

	mu     sync.RWMutex
	loaded map[string]*time.Location
}

// NewDirectory creates a directory over the store->zone name mapping.
func NewDirectory(zones map[string]string, fallback string, logger *zap.Logger) (*Directory, error) {
	loc, err := time.LoadLocation(fallback)
	if err != nil {
		return nil, err
	}
	if zones == nil {
		zones = make(map[string]string)
	}
	return &Directory{
		zones:    zones,
		fallback: loc,
		logger:   logger,
		loaded:   make(map[string]*time.Location),
	}, nil
}

// Location returns the zone of a store.
func (d *Directory) Location(storeID string) *time.Location {
	name, ok := d.zones[storeID]
	if !ok || name == "" {
		return d.fallback
	}

	d.mu.RLock()
	loc, ok := d.loaded[name]
	d.mu.RUnlock()
	if ok {
		return loc
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		d.logger.Warn("unknown timezone, using fallback",
			zap.String("store_id", storeID),
			zap.String("timezone", name),
			zap.String("fallback", d.fallback.String()),
			zap.Error(err))
		loc = d.fallback
	}

	d.mu.Lock()
	d.loaded[name] = loc
	d.mu.Unlock()
	return loc
}

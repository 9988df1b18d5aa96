// Package ingest loads the reference CSV exports into the store.
package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"storepulse/internal/model"
	"storepulse/internal/parse"
)

// File names looked up by LoadDir.
const (
	HoursFile     = "menu_hours.csv"
	StatusFile    = "store_status.csv"
	TimezonesFile = "timezones.csv"
)

const flushEvery = 5000

// Sink receives parsed rows.
type Sink interface {
	InsertBusinessHours(ctx context.Context, rows []model.BusinessHour) error
	InsertObservations(ctx context.Context, rows []model.StatusObservation) error
	UpsertTimezones(ctx context.Context, rows []model.StoreTimezone) error
}

// Summary counts what a load did.
type Summary struct {
	BusinessHours int
	Observations  int
	Timezones     int
	Skipped       int
}

// Loader reads CSV files into a Sink. Malformed rows are logged and skipped.
type Loader struct {
	sink   Sink
	logger *zap.Logger
}

// NewLoader creates a loader writing to sink.
func NewLoader(sink Sink, logger *zap.Logger) *Loader {
	return &Loader{sink: sink, logger: logger}
}

// LoadDir loads every known file present in dir. Missing files are skipped.
func (l *Loader) LoadDir(ctx context.Context, dir string) (Summary, error) {
	var sum Summary
	steps := []struct {
		name string
		load func(context.Context, io.Reader, *Summary) error
	}{
		{TimezonesFile, l.LoadTimezones},
		{HoursFile, l.LoadBusinessHours},
		{StatusFile, l.LoadObservations},
	}

	for _, step := range steps {
		path := filepath.Join(dir, step.name)
		f, err := os.Open(path)
		if errors.Is(err, os.ErrNotExist) {
			l.logger.Warn("seed file missing, skipping", zap.String("path", path))
			continue
		}
		if err != nil {
			return sum, err
		}
		err = step.load(ctx, f, &sum)
		f.Close()
		if err != nil {
			return sum, fmt.Errorf("%s: %w", step.name, err)
		}
		l.logger.Info("seed file loaded", zap.String("path", path))
	}
	return sum, nil
}

// LoadTimezones reads store_id,timezone_str rows.
func (l *Loader) LoadTimezones(ctx context.Context, r io.Reader, sum *Summary) error {
	var batch []model.StoreTimezone
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := l.sink.UpsertTimezones(ctx, batch); err != nil {
			return err
		}
		sum.Timezones += len(batch)
		batch = batch[:0]
		return nil
	}

	err := eachRow(r, []string{"store_id", "timezone_str"}, func(line int, get func(string) string) error {
		storeID, zone := get("store_id"), get("timezone_str")
		if storeID == "" || zone == "" {
			l.skip(sum, line, errors.New("empty store_id or timezone_str"))
			return nil
		}
		batch = append(batch, model.StoreTimezone{StoreID: storeID, TimezoneName: zone})
		if len(batch) >= flushEvery {
			return flush()
		}
		return nil
	})
	if err != nil {
		return err
	}
	return flush()
}

// LoadBusinessHours reads store_id,day,start_time_local,end_time_local rows.
func (l *Loader) LoadBusinessHours(ctx context.Context, r io.Reader, sum *Summary) error {
	var batch []model.BusinessHour
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := l.sink.InsertBusinessHours(ctx, batch); err != nil {
			return err
		}
		sum.BusinessHours += len(batch)
		batch = batch[:0]
		return nil
	}

	err := eachRow(r, []string{"store_id", "day", "start_time_local", "end_time_local"}, func(line int, get func(string) string) error {
		day, err := parse.ParseWeekday(get("day"))
		if err != nil {
			l.skip(sum, line, err)
			return nil
		}
		start, err := parse.ParseClock(get("start_time_local"))
		if err != nil {
			l.skip(sum, line, err)
			return nil
		}
		end, err := parse.ParseClock(get("end_time_local"))
		if err != nil {
			l.skip(sum, line, err)
			return nil
		}
		batch = append(batch, model.BusinessHour{
			StoreID:        get("store_id"),
			DayOfWeek:      day,
			StartTimeLocal: start.String(),
			EndTimeLocal:   end.String(),
		})
		if len(batch) >= flushEvery {
			return flush()
		}
		return nil
	})
	if err != nil {
		return err
	}
	return flush()
}

// LoadObservations reads store_id,status,timestamp_utc rows.
func (l *Loader) LoadObservations(ctx context.Context, r io.Reader, sum *Summary) error {
	var batch []model.StatusObservation
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := l.sink.InsertObservations(ctx, batch); err != nil {
			return err
		}
		sum.Observations += len(batch)
		batch = batch[:0]
		return nil
	}

	err := eachRow(r, []string{"store_id", "status", "timestamp_utc"}, func(line int, get func(string) string) error {
		status, err := parse.ParseStatus(get("status"))
		if err != nil {
			l.skip(sum, line, err)
			return nil
		}
		at, err := parse.ParseTimestamp(get("timestamp_utc"))
		if err != nil {
			l.skip(sum, line, err)
			return nil
		}
		batch = append(batch, model.StatusObservation{StoreID: get("store_id"), ObservedAt: at, Status: status})
		if len(batch) >= flushEvery {
			return flush()
		}
		return nil
	})
	if err != nil {
		return err
	}
	return flush()
}

func (l *Loader) skip(sum *Summary, line int, err error) {
	sum.Skipped++
	l.logger.Warn("skipping malformed row", zap.Int("line", line), zap.Error(err))
}

// eachRow calls fn for every data row, giving access to columns by header name.
func eachRow(r io.Reader, required []string, fn func(line int, get func(string) string) error) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, col := range required {
		if _, ok := index[col]; !ok {
			return fmt.Errorf("missing column %q", col)
		}
	}

	line := 1
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		line++
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		get := func(col string) string {
			i := index[col]
			if i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}
		if err := fn(line, get); err != nil {
			return err
		}
	}
}

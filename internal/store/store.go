// Package store keeps committed schedules in a SQL database through GORM.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/TudorHulban/taskpacker"
	"github.com/TudorHulban/taskpacker/internal/loader"
	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	KindSolve  = "solve"
	KindSeries = "series"
)

var ErrNotFound = errors.New("run not found")

type Store struct {
	db *gorm.DB
}

// Open connects with driver "sqlite" (DSN is a file path) or "mysql"
// and migrates the schema.
func Open(driver, dsn string) (*Store, error) {
	var dialector gorm.Dialector

	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)

	case "mysql":
		dialector = mysql.Open(dsn)

	default:
		return nil, fmt.Errorf("store: unsupported driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("store: connect %s: %w", driver, err)
	}

	return New(db)
}

// New wraps an open connection and migrates the schema.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return nil, fmt.Errorf("store: auto-migrate: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("store: close: %w", err)
	}

	return sqlDB.Close()
}

type ParamsSaveRun struct {
	Name   string
	Kind   string
	Status string

	Tasks    []*taskpacker.Task
	Failures []*taskpacker.SchedulingFailure

	Objective  int64
	LowerBound int64
	UpperBound int64
}

func (param *ParamsSaveRun) IsValid() error {
	if param.Kind != KindSolve && param.Kind != KindSeries {
		return fmt.Errorf("store: unknown run kind %q", param.Kind)
	}

	return nil
}

// SaveRun stores the scheduled tasks of a run together with its summary.
func (s *Store) SaveRun(ctx context.Context, params *ParamsSaveRun) (*Run, error) {
	if errValidation := params.IsValid(); errValidation != nil {
		return nil, errValidation
	}

	run := Run{
		ID:         uuid.New().String(),
		Name:       params.Name,
		Kind:       params.Kind,
		Status:     params.Status,
		Objective:  params.Objective,
		LowerBound: params.LowerBound,
		UpperBound: params.UpperBound,
		Failures:   len(params.Failures),
	}

	if len(params.Failures) > 0 {
		errs := make([]error, len(params.Failures))
		for ix, failure := range params.Failures {
			errs[ix] = failure
		}

		run.Errors = errors.Join(errs...).Error()
	}

	for ix, row := range loader.ScheduledTasks(params.Tasks) {
		slots, err := json.Marshal(row.Resources)
		if err != nil {
			return nil, fmt.Errorf("store: marshal slots of %q: %w", row.Name, err)
		}

		run.Entries = append(
			run.Entries,
			RunEntry{
				Position:  ix,
				Task:      row.Name,
				StartTime: row.Start,
				EndTime:   row.End,
				Duration:  row.Duration,
				Lateness:  row.Lateness,
				Slots:     string(slots),
				Color:     row.Color,
			},
		)

		run.Makespan = max(run.Makespan, row.End)
	}

	if err := s.db.WithContext(ctx).Create(&run).Error; err != nil {
		return nil, fmt.Errorf("store: save run: %w", err)
	}

	return &run, nil
}

// GetRun loads a run with its entries in schedule order.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	var run Run

	err := s.db.WithContext(ctx).
		Preload("Entries", func(db *gorm.DB) *gorm.DB {
			return db.Order("position")
		}).
		Where("id = ?", id).
		First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("store: run %s: %w", id, ErrNotFound)
		}

		return nil, fmt.Errorf("store: get run %s: %w", id, err)
	}

	return &run, nil
}

// ListRuns returns the latest runs first, without entries.
// A limit of zero or less returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := s.db.WithContext(ctx).Order("created_at desc")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var runs []Run

	if err := query.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("store: list runs: %w", err)
	}

	return runs, nil
}

// ScheduledTasks decodes the entries back into schedule rows.
func (r *Run) ScheduledTasks() ([]loader.ScheduledTask, error) {
	result := make([]loader.ScheduledTask, len(r.Entries))

	for ix, entry := range r.Entries {
		var slots map[string]int

		if err := json.Unmarshal([]byte(entry.Slots), &slots); err != nil {
			return nil, fmt.Errorf("store: decode slots of %q: %w", entry.Task, err)
		}

		result[ix] = loader.ScheduledTask{
			Name:      entry.Task,
			Resources: slots,
			Color:     entry.Color,

			Start:    entry.StartTime,
			End:      entry.EndTime,
			Duration: entry.Duration,
			Lateness: entry.Lateness,
		}
	}

	return result, nil
}

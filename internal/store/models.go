package store

import "time"

// Run is one committed solve or series result.
type Run struct {
	ID         string `gorm:"primaryKey;size:36"`
	Name       string `gorm:"size:128"`
	Kind       string `gorm:"size:16;index"`
	Status     string `gorm:"size:16"`
	Objective  int64
	Makespan   int64
	LowerBound int64
	UpperBound int64
	Failures   int
	Errors     string `gorm:"type:text"`
	CreatedAt  time.Time

	Entries []RunEntry `gorm:"foreignKey:RunID"`
}

// RunEntry is one scheduled task of a run.
type RunEntry struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	RunID     string `gorm:"size:36;index"`
	Position  int
	Task      string `gorm:"size:128"`
	StartTime int64
	EndTime   int64
	Duration  int64
	Lateness  int64
	Slots     string `gorm:"type:text"` // JSON resource name to slot
	Color     string `gorm:"size:32"`
}

// AllModels returns the models handled by AutoMigrate.
func AllModels() []any {
	return []any{
		&Run{},
		&RunEntry{},
	}
}

package scheduler

import "time"

// Config controls scheduler intervals and batch sizes.
type Config struct {
	RunInterval       time.Duration
	ReminderBatchSize int
	JobTimeout        time.Duration
	// GenerateDay is the day of month on which the monthly invoice run
	// fires. DueDays is added to that day to set the invoices' due date.
	GenerateDay int
	DueDays     int
	// Notify forwards freshly generated invoices to the dispatcher.
	Notify bool
}

func DefaultConfig() Config {
	return Config{
		RunInterval:       time.Hour,
		ReminderBatchSize: 50,
		JobTimeout:        5 * time.Minute,
		GenerateDay:       1,
		DueDays:           10,
		Notify:            true,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.ReminderBatchSize <= 0 {
		c.ReminderBatchSize = defaults.ReminderBatchSize
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.GenerateDay <= 0 || c.GenerateDay > 28 {
		c.GenerateDay = defaults.GenerateDay
	}
	if c.DueDays <= 0 {
		c.DueDays = defaults.DueDays
	}
	return c
}

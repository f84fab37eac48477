package handler

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
)

// HealthHandler handles health check endpoints.
type HealthHandler interface {
	CheckHealth(ctx context.Context) error
	CheckDependencies(ctx context.Context) error
	HandleHealth(c echo.Context) error
}

// JobScheduler handles periodic background jobs.
type JobScheduler interface {
	Schedule(ctx context.Context, jobName string, interval time.Duration, jobFunc func() error) error
	Stop(jobName string) error
	StopAll() error
	GetJobStatus(jobName string) (JobStatus, error)
}

// JobStatus represents the status of a scheduled job.
type JobStatus struct {
	LastError  error
	LastRun    *time.Time
	NextRun    *time.Time
	Name       string
	ErrorCount int
	IsRunning  bool
}

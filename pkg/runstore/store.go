// Package runstore persists dataset evaluation runs so detection-rate
// regressions are visible across deployments, not just within one CI job.
package runstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/vigilguard/verifier/pkg/config"
	"github.com/vigilguard/verifier/pkg/harness"
)

// EvaluationRun is one persisted dataset pass.
type EvaluationRun struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	Dataset       string    `gorm:"index"`
	Total         int
	Positives     int
	Negatives     int
	Errored       int
	Skipped       int
	DetectionRate float64
	Threshold     float64
	Passed        bool
	ElapsedMs     int64
	CreatedAt     time.Time
}

// Store wraps the Postgres connection holding run history.
type Store struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewStore(cfg config.DatabaseConfig, logger *logrus.Logger) (*Store, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	gormDB, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to run store: %w", err)
	}
	if err := gormDB.AutoMigrate(&EvaluationRun{}); err != nil {
		return nil, fmt.Errorf("failed to migrate run store: %w", err)
	}

	return &Store{db: gormDB, logger: logger}, nil
}

// SaveReport folds a report into a run row.
func (s *Store) SaveReport(ctx context.Context, datasetName string, report *harness.Report, threshold float64) (*EvaluationRun, error) {
	run := &EvaluationRun{
		ID:            uuid.New(),
		Dataset:       datasetName,
		Total:         report.Total,
		Positives:     report.Positives,
		Negatives:     report.Negatives,
		Errored:       report.Errored,
		Skipped:       report.Skipped,
		DetectionRate: report.DetectionRate(),
		Threshold:     threshold,
		Passed:        report.MeetsThreshold(threshold),
		ElapsedMs:     report.Elapsed.Milliseconds(),
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return nil, fmt.Errorf("failed to persist evaluation run: %w", err)
	}
	s.logger.WithFields(logrus.Fields{
		"run_id":         run.ID,
		"dataset":        datasetName,
		"detection_rate": run.DetectionRate,
	}).Info("evaluation run persisted")
	return run, nil
}

// RecentRuns returns the latest runs for a dataset, newest first.
func (s *Store) RecentRuns(ctx context.Context, datasetName string, limit int) ([]EvaluationRun, error) {
	var runs []EvaluationRun
	err := s.db.WithContext(ctx).
		Where("dataset = ?", datasetName).
		Order("created_at DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load evaluation runs: %w", err)
	}
	return runs, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

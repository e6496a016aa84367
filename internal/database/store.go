package database

import (
	"context"
	"fmt"
	"time"

	"propvalue/server/internal/models"
)

// PropertyStore is the durable collection of property records.
//
// Lookups of unknown ids return models.ErrNotFound, invalid input returns a
// *models.ValidationError and failures of the underlying engine are wrapped
// in a *StorageError.
type PropertyStore interface {
	Create(ctx context.Context, in models.PropertyInput) (*models.Property, error)
	Get(ctx context.Context, id string) (*models.Property, error)
	// List returns every property, newest first.
	List(ctx context.Context) ([]models.Property, error)
	// ListAnalyzed returns the properties carrying an analysis, newest first.
	ListAnalyzed(ctx context.Context) ([]models.Property, error)
	Update(ctx context.Context, id string, patch models.PropertyPatch) (*models.Property, error)
	// SaveAnalysis replaces the analysis of a property.
	SaveAnalysis(ctx context.Context, id string, analysis models.Analysis) (*models.Property, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// StorageError wraps a failure of the persistence engine.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// defaultClock stamps records in UTC with millisecond precision, which both
// MongoDB and SQLite round-trip exactly.
func defaultClock() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

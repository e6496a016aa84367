package database

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"propvalue/server/internal/models"
)

// Database is the SQLite-backed PropertyStore.
type Database struct {
	db     *gorm.DB
	logger *logrus.Logger
	now    func() time.Time
}

var _ PropertyStore = (*Database)(nil)

type propertyRow struct {
	ID           string `gorm:"primaryKey;size:36"`
	Location     string `gorm:"not null"`
	Size         float64
	Price        float64
	PropertyType string `gorm:"size:100"`
	Bedrooms     float64
	Bathrooms    float64
	YearBuilt    *int
	Analysis     *analysisColumn `gorm:"type:text"`
	CreatedAt    time.Time       `gorm:"autoCreateTime:false;index"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime:false"`
}

func (propertyRow) TableName() string {
	return "properties"
}

// analysisColumn stores the embedded analysis as a JSON text column.
type analysisColumn models.Analysis

func (a analysisColumn) Value() (driver.Value, error) {
	data, err := json.Marshal(models.Analysis(a))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (a *analysisColumn) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("unsupported analysis column type %T", value)
	}
	var analysis models.Analysis
	if err := json.Unmarshal(data, &analysis); err != nil {
		return fmt.Errorf("failed to decode analysis column: %w", err)
	}
	*a = analysisColumn(analysis)
	return nil
}

func rowFromProperty(p *models.Property) propertyRow {
	row := propertyRow{
		ID:           p.ID,
		Location:     p.Location,
		Size:         p.Size,
		Price:        p.Price,
		PropertyType: p.PropertyType,
		Bedrooms:     p.Bedrooms,
		Bathrooms:    p.Bathrooms,
		YearBuilt:    p.YearBuilt,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
	if p.Analysis != nil {
		a := analysisColumn(*p.Analysis)
		row.Analysis = &a
	}
	return row
}

func (r propertyRow) toProperty() models.Property {
	p := models.Property{
		ID:           r.ID,
		Location:     r.Location,
		Size:         r.Size,
		Price:        r.Price,
		PropertyType: r.PropertyType,
		Bedrooms:     r.Bedrooms,
		Bathrooms:    r.Bathrooms,
		YearBuilt:    r.YearBuilt,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
	if r.Analysis != nil {
		a := models.Analysis(*r.Analysis)
		a.AnalyzedAt = a.AnalyzedAt.UTC()
		p.Analysis = &a
	}
	return p
}

// NewDatabase opens (creating if needed) the SQLite file at dbPath.
func NewDatabase(dbPath string, logger *logrus.Logger) (*Database, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// SQLite serializes writers; a single connection avoids SQLITE_BUSY.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	return &Database{db: db, logger: logger, now: defaultClock}, nil
}

// SetClock replaces the time source used for createdAt/updatedAt.
func (d *Database) SetClock(now func() time.Time) {
	d.now = now
}

func (d *Database) Create(ctx context.Context, in models.PropertyInput) (*models.Property, error) {
	p, err := models.NewProperty(uuid.NewString(), in, d.now())
	if err != nil {
		return nil, err
	}

	row := rowFromProperty(p)
	if err := d.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, storageErr("create", err)
	}

	d.logger.WithField("property_id", p.ID).Debug("Created property")
	return p, nil
}

func (d *Database) Get(ctx context.Context, id string) (*models.Property, error) {
	var row propertyRow
	err := d.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, storageErr("get", err)
	}

	p := row.toProperty()
	return &p, nil
}

func (d *Database) List(ctx context.Context) ([]models.Property, error) {
	return d.find(ctx, "list", d.db.WithContext(ctx))
}

func (d *Database) ListAnalyzed(ctx context.Context) ([]models.Property, error) {
	return d.find(ctx, "list analyzed", d.db.WithContext(ctx).Where("analysis IS NOT NULL"))
}

func (d *Database) find(ctx context.Context, op string, query *gorm.DB) ([]models.Property, error) {
	var rows []propertyRow
	if err := query.Order("created_at DESC, rowid DESC").Find(&rows).Error; err != nil {
		return nil, storageErr(op, err)
	}

	properties := make([]models.Property, 0, len(rows))
	for _, row := range rows {
		properties = append(properties, row.toProperty())
	}
	return properties, nil
}

func (d *Database) Update(ctx context.Context, id string, patch models.PropertyPatch) (*models.Property, error) {
	var updated *models.Property

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row propertyRow
		if err := tx.First(&row, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.ErrNotFound
			}
			return storageErr("update", err)
		}

		p, err := row.toProperty().Apply(patch, d.now())
		if err != nil {
			return err
		}

		res := tx.Model(&propertyRow{}).Where("id = ?", id).Updates(map[string]interface{}{
			"location":      p.Location,
			"size":          p.Size,
			"price":         p.Price,
			"property_type": p.PropertyType,
			"bedrooms":      p.Bedrooms,
			"bathrooms":     p.Bathrooms,
			"year_built":    p.YearBuilt,
			"updated_at":    p.UpdatedAt,
		})
		if res.Error != nil {
			return storageErr("update", res.Error)
		}
		if res.RowsAffected == 0 {
			return models.ErrNotFound
		}

		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	d.logger.WithField("property_id", id).Debug("Updated property")
	return updated, nil
}

func (d *Database) SaveAnalysis(ctx context.Context, id string, analysis models.Analysis) (*models.Property, error) {
	var updated *models.Property

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row propertyRow
		if err := tx.First(&row, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.ErrNotFound
			}
			return storageErr("save analysis", err)
		}

		p := row.toProperty()
		p.Analysis = &analysis
		p.UpdatedAt = models.Touch(p.UpdatedAt, d.now())

		res := tx.Model(&propertyRow{}).Where("id = ?", id).Updates(map[string]interface{}{
			"analysis":   analysisColumn(analysis),
			"updated_at": p.UpdatedAt,
		})
		if res.Error != nil {
			return storageErr("save analysis", res.Error)
		}
		if res.RowsAffected == 0 {
			return models.ErrNotFound
		}

		updated = &p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (d *Database) Delete(ctx context.Context, id string) error {
	res := d.db.WithContext(ctx).Delete(&propertyRow{}, "id = ?", id)
	if res.Error != nil {
		return storageErr("delete", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.ErrNotFound
	}

	d.logger.WithField("property_id", id).Debug("Deleted property")
	return nil
}

func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return storageErr("ping", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return storageErr("ping", err)
	}
	return nil
}

func (d *Database) Close(_ context.Context) error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

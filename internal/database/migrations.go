package database

import "fmt"

// RunMigrations creates the properties table and its indexes if missing.
func (d *Database) RunMigrations() error {
	if err := d.db.AutoMigrate(&propertyRow{}); err != nil {
		return fmt.Errorf("failed to migrate properties table: %w", err)
	}
	return nil
}

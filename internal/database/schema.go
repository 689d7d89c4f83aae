package database

import (
	"context"
	"fmt"

	"nutriscan/internal/middleware"
	"nutriscan/internal/models"

	"gorm.io/gorm"
)

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Post{},
		&models.PostLike{},
		&models.PostFavorite{},
		&models.ViewRecord{},
		&models.Comment{},
		&models.CommentLike{},
	}
}

// ApplySchema runs GORM AutoMigrate over every persistent model.
func ApplySchema(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	middleware.Logger.InfoContext(ctx, "Database migration completed")
	return nil
}

// TableStatus reports whether a model's table exists.
type TableStatus struct {
	Table  string
	Exists bool
}

// SchemaStatus lists every persistent table and whether it is present.
type SchemaStatus struct {
	Tables  []TableStatus
	Missing int
}

// GetSchemaStatus inspects the live schema without changing it.
func GetSchemaStatus(ctx context.Context, db *gorm.DB) (*SchemaStatus, error) {
	status := &SchemaStatus{}
	migrator := db.WithContext(ctx).Migrator()
	for _, model := range PersistentModels() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(model); err != nil {
			return nil, fmt.Errorf("failed to parse model %T: %w", model, err)
		}
		exists := migrator.HasTable(model)
		if !exists {
			status.Missing++
		}
		status.Tables = append(status.Tables, TableStatus{Table: stmt.Schema.Table, Exists: exists})
	}
	return status, nil
}

package database

import "conduit/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models,
// parents before children.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Follow{},
		&models.Article{},
		&models.Favorite{},
		&models.Comment{},
	}
}

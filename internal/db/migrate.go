package db

import (
	"fmt"

	"github.com/creatist/postfeed/internal/models"
)

// schema lists every table the service reads or writes. users, followers,
// genres and genre_assignments are owned upstream and only created here for
// local setups.
var schema = []interface{}{
	&models.User{},
	&models.Follow{},
	&models.Genre{},
	&models.GenreAssignment{},
	&models.Post{},
	&models.PostMedia{},
	&models.PostTag{},
	&models.PostCollaborator{},
	&models.PostComment{},
	&models.PostLike{},
	&models.PostView{},
}

// Migrate creates or updates the tables and indexes in schema
func (d *DB) Migrate() error {
	for _, model := range schema {
		if err := d.DB.AutoMigrate(model); err != nil {
			return fmt.Errorf("migrate %T: %w", model, err)
		}
	}
	return nil
}

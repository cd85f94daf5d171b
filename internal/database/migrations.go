package database

import (
	"fmt"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// Models lists every table the store owns, parents first.
func Models() []any {
	return []any{&File{}, &FileContent{}}
}

// Migrations returns the schema history in the order it must be applied.
func Migrations() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		{
			ID: "20240310_create_file_tables",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(Models()...)
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&FileContent{}, &File{})
			},
		},
	}
}

// Migrate applies every pending migration to db.
func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, Migrations())
	if err := m.Migrate(); err != nil {
		return fmt.Errorf("can't migrate schema: %w", err)
	}
	return nil
}

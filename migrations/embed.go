// Package migrations embeds the device schema into the binary.
package migrations

import (
	"embed"

	"github.com/nerrad567/gray-logic-device/internal/infrastructure/database"
)

//go:embed *.sql
var files embed.FS

// Source returns the embedded migration set for database.DB.Migrate.
func Source() database.Source {
	return database.Source{FS: files, Dir: "."}
}

// Package migrations embeds SQL migration files into the binary so that
// rfcoord can initialise its schema without SQL files on the filesystem.
package migrations

import (
	"embed"

	"github.com/quietmesh/rfcoord/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "." // Files are at root of embedded FS
}

package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
)

// The quiz library keeps each definition as exchange JSON next to its title.
//
//go:embed 0001_create_quizzes.sql
var quizLibrarySQL string

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, quizLibrarySQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.NewDropTable().Table("quizzes").IfExists().Exec(ctx)
			return err
		},
	)
}

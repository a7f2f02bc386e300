// Package cli implements the trackerctl operator commands.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"example.com/habittracker/internal/auth"
	"example.com/habittracker/internal/domain"
)

// App holds the dependencies the commands run against.
type App struct {
	Activities domain.ActivityRepository
	Tokens     *auth.Issuer
	// Migrate applies pending schema migrations and returns their names.
	Migrate func(ctx context.Context) ([]string, error)
}

// NewRootCmd creates the top-level "trackerctl" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "trackerctl",
		Short:         "Operate the habit tracker store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newMigrateCmd(app),
		newWeeklyCmd(app),
		newTokenCmd(app),
	)

	return root
}

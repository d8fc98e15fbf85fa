package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadsnap/internal/migrate"
	"github.com/sells-group/leadsnap/internal/queue"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply schema migrations and provision queues",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("migrate"); err != nil {
			return err
		}

		pool, err := dbPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := migrate.Migrate(ctx, pool); err != nil {
			return err
		}

		q := queue.New(pool)
		for _, name := range queueNames() {
			if err := q.Create(ctx, name); err != nil {
				return eris.Wrapf(err, "provision queue %s", name)
			}
		}

		zap.L().Info("migrations applied", zap.Strings("queues", queueNames()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

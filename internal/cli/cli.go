package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/Additional-Code/restaurant/internal/app"
	"github.com/Additional-Code/restaurant/internal/migration"
	"github.com/Additional-Code/restaurant/internal/seeder"
)

const stopTimeout = 10 * time.Second

// NewRootCommand builds the restaurant command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "restaurant",
		Short:         "Restaurant order service toolkit",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newServeCmd("start", "Run the HTTP and gRPC services", app.Module, "run"),
		newMigrateCmd(),
		newSeedCmd(),
		newWorkerCmd(),
		newOrdersCmd(),
	)
	return root
}

// Execute runs the command line until it finishes or the process receives
// SIGINT or SIGTERM, and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// newServeCmd runs a long-lived application until the command context ends.
func newServeCmd(use, short string, opts fx.Option, aliases ...string) *cobra.Command {
	return &cobra.Command{
		Use:     use,
		Short:   short,
		Aliases: aliases,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			application := fx.New(opts)
			if err := application.Start(cmd.Context()); err != nil {
				return err
			}
			<-cmd.Context().Done()

			ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
			defer cancel()
			return application.Stop(ctx)
		},
	}
}

func newWorkerCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "worker", Short: "Manage background workers"}
	cmd.AddCommand(newServeCmd("run", "Run the kitchen worker engine", fx.Options(app.Worker, app.EventLogger)))
	return cmd
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "migrate", Short: "Run database migrations"}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: withMigrator(func(ctx context.Context, w io.Writer, mig *migration.Migrator, _ *cobra.Command) error {
			if err := mig.Up(ctx); err != nil {
				return err
			}
			_, err := fmt.Fprintln(w, "migrations applied")
			return err
		}),
	}

	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: withMigrator(func(ctx context.Context, w io.Writer, mig *migration.Migrator, cmd *cobra.Command) error {
			steps, _ := cmd.Flags().GetInt("steps")
			all, _ := cmd.Flags().GetBool("all")
			if err := mig.Down(ctx, steps, all); err != nil {
				return err
			}
			_, err := fmt.Fprintln(w, "migrations rolled back")
			return err
		}),
	}
	down.Flags().Int("steps", 1, "Number of migrations to roll back")
	down.Flags().Bool("all", false, "Roll back every applied migration")

	status := &cobra.Command{
		Use:   "status",
		Short: "Print the schema version and every migration's state",
		RunE: withMigrator(func(ctx context.Context, w io.Writer, mig *migration.Migrator, _ *cobra.Command) error {
			return printStatus(ctx, w, mig)
		}),
	}

	cmd.AddCommand(up, down, status)
	return cmd
}

func withMigrator(fn func(context.Context, io.Writer, *migration.Migrator, *cobra.Command) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		var mig *migration.Migrator
		return runWithApp(cmd.Context(), fx.Options(app.Core, migration.Module, fx.Populate(&mig)), func(ctx context.Context) error {
			return fn(ctx, cmd.OutOrStdout(), mig, cmd)
		})
	}
}

func printStatus(ctx context.Context, w io.Writer, mig *migration.Migrator) error {
	version, err := mig.Version(ctx)
	if err != nil {
		return err
	}
	statuses, err := mig.Status(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "schema version %d\n", version)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tSTATE\tAPPLIED AT\tFILE")
	for _, st := range statuses {
		applied := "-"
		if !st.AppliedAt.IsZero() {
			applied = st.AppliedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", st.Source.Version, st.State, applied, st.Source.Path)
	}
	return tw.Flush()
}

func newSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Place one sample order per menu item",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tableNo, _ := cmd.Flags().GetInt32("table")
			var seed *seeder.Seeder
			return runWithApp(cmd.Context(), fx.Options(app.Core, seeder.Module, fx.Populate(&seed)), func(ctx context.Context) error {
				ids, err := seed.Orders(ctx, tableNo)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "seeded %d orders at table %d\n", len(ids), tableNo)
				return err
			})
		},
	}
	cmd.Flags().Int32("table", 1, "Table number the sample orders are placed at")
	return cmd
}

// runWithApp starts a quiet application for a one-shot command and always
// stops it, which flushes queued order events.
func runWithApp(ctx context.Context, opts fx.Option, fn func(context.Context) error) (err error) {
	application := fx.New(opts, fx.NopLogger)
	if err := application.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		if stopErr := application.Stop(stopCtx); err == nil {
			err = stopErr
		}
	}()
	return fn(ctx)
}

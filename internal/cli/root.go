// Package cli implements toolhubctl, the maintenance commands that run
// outside the HTTP server: resetting the schema and populating the catalog.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sakif/toolhub/internal/catalog"
	"github.com/sakif/toolhub/internal/config"
	"github.com/sakif/toolhub/internal/describe"
	"github.com/sakif/toolhub/internal/logger"
	"github.com/sakif/toolhub/internal/model"
	"github.com/sakif/toolhub/internal/repository"
	"github.com/sakif/toolhub/internal/repository/store"
)

// tableNames are the tables Store.Reset drops and recreates.
var tableNames = []string{"tools", "users"}

// app carries what every subcommand needs. It is filled in by the root
// command's PersistentPreRunE, after cobra has picked the subcommand.
type app struct {
	cfg    config.Config
	logger *zap.Logger
	store  repository.Store
}

// NewRootCommand builds the command tree. Output goes to cmd.OutOrStdout,
// so tests can capture it with SetOut.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&app{})
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "toolhubctl",
		Short:         "Maintenance commands for the tool hub catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context())
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}

	root.AddCommand(
		a.resetDBCommand(),
		a.fetchCommand(),
		a.scrapeCommand(),
		a.describeCommand(),
	)
	return root
}

// Execute runs the command tree. The store is closed even when a
// subcommand fails, since cobra skips PersistentPostRunE on error.
func Execute(ctx context.Context) error {
	a := &app{}
	defer a.close() //nolint:errcheck
	return newRootCommand(a).ExecuteContext(ctx)
}

func (a *app) setup(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	s, err := store.Open(ctx, cfg.DB)
	if err != nil {
		log.Error("cannot open database", zap.String("driver", cfg.DB.Driver), zap.Error(err))
		return err
	}

	a.cfg, a.logger, a.store = cfg, log, s
	return nil
}

func (a *app) close() error {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

func (a *app) jobs(ctx context.Context) (*catalog.Jobs, error) {
	m, err := describe.NewOpenAIModel(ctx, a.cfg.LLM)
	if err != nil {
		return nil, err
	}
	if m == nil {
		a.logger.Warn("OPENAI_API_KEY is not set; generated descriptions fall back to a placeholder")
	}

	return catalog.NewJobs(a.store, describe.NewGenerator(m, a.logger), catalog.Sources{
		DirectoryURL: a.cfg.Sources.PublicAPIsURL,
		ReadmeURL:    a.cfg.Sources.ReadmeURL,
	}, a.logger), nil
}

func (a *app) resetDBCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset-db",
		Short: "Drop and recreate the tools and users tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			tables := strings.Join(tableNames, ", ")
			fmt.Fprintln(out, "Existing tables before dropping:", tables)
			fmt.Fprintln(out, "Dropping existing tables...")
			fmt.Fprintln(out, "Creating new tables...")
			if err := a.store.Reset(cmd.Context()); err != nil {
				return fmt.Errorf("resetting database: %w", err)
			}
			fmt.Fprintln(out, "Existing tables after creation:", tables)
			fmt.Fprintln(out, "Database initialized ;)")
			return nil
		},
	}
}

func (a *app) fetchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Import the first entries of the public API directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			jobs, err := a.jobs(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if _, err := jobs.Fetch(cmd.Context()); err != nil {
				reportSourceError(out, a.logger, err)
				return nil
			}
			fmt.Fprintln(out, "Tools added successfully!")
			return nil
		},
	}
}

func (a *app) scrapeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "scrape",
		Short: "Import every API listed in the public-apis README",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			jobs, err := a.jobs(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			res, err := jobs.Scrape(cmd.Context())
			if err != nil {
				reportSourceError(out, a.logger, err)
				return nil
			}
			fmt.Fprintf(out, "Scraped and stored %d tools (links) from the Public APIs repo\n", res.Inserted)
			return nil
		},
	}
}

func (a *app) describeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "describe",
		Short: "Generate descriptions for scraped tools that still lack one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			jobs, err := a.jobs(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, err = jobs.Backfill(cmd.Context(), func(t model.Tool) {
				fmt.Fprintf(out, "Updating: %s\n", t.Name)
			})
			if err != nil {
				a.logger.Error("description backfill stopped", zap.Error(err))
				fmt.Fprintf(out, "Backfill stopped: %v\n", err)
				return nil
			}
			fmt.Fprintln(out, "Descriptions updated successfully!")
			return nil
		},
	}
}

// reportSourceError prints a failed source fetch. The job still exits 0:
// an unreachable upstream is an expected outcome, not a setup failure.
func reportSourceError(out io.Writer, log *zap.Logger, err error) {
	var statusErr *catalog.StatusError
	if errors.As(err, &statusErr) {
		fmt.Fprintln(out, "Failed to fetch tools", statusErr.StatusCode)
		return
	}
	log.Error("catalog job failed", zap.Error(err))
	fmt.Fprintf(out, "Failed to fetch tools: %v\n", err)
}

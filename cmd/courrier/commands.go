package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/courrier-mf/courrier/internal/config"
	"github.com/courrier-mf/courrier/internal/courrier"
	"github.com/courrier-mf/courrier/internal/server"
	"github.com/courrier-mf/courrier/internal/users"
	"github.com/courrier-mf/courrier/pkg/logger"
	"github.com/spf13/cobra"
)

// newRootCmd builds the courrier command tree.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "courrier",
		Short:         "Register and track incoming and outgoing correspondence",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("log-level", os.Getenv("LOG_LEVEL"), "debug|info|warn|error")
	root.PersistentPreRun = func(cmd *cobra.Command, _ []string) {
		lvl, _ := cmd.Flags().GetString("log-level")
		logger.Init(lvl)
	}

	root.AddCommand(newServeCmd(), newCheckCmd(), newGenUserCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if port != "" {
				cfg.Server.Port = port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			deps, closeDeps := server.Connect(ctx, cfg)
			defer closeDeps(context.Background())
			srv, err := server.New(ctx, cfg, deps)
			if err != nil {
				return err
			}
			return srv.ListenAndServe(ctx)
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port (overrides SERVER_PORT)")
	return cmd
}

func newCheckCmd() *cobra.Command {
	var (
		catalogFile string
		today       string
		timezone    string
	)
	cmd := &cobra.Command{
		Use:   "check <courrier.json>",
		Short: "Validate a courrier file without saving it",
		Long: `Applies the same defaults and rules as a save and prints every field that
would be rejected. The exit status is non-zero when the courrier is invalid.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat := courrier.DefaultCatalog()
			if catalogFile != "" {
				var err error
				if cat, err = courrier.LoadCatalog(catalogFile); err != nil {
					return err
				}
			}
			if today == "" {
				loc := config.CourrierConfig{Timezone: timezone}.Location()
				today = courrier.Today(time.Now(), loc)
			}

			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var d courrier.Document
			if err := json.Unmarshal(raw, &d); err != nil {
				return fmt.Errorf("decode %s: %w", args[0], err)
			}
			courrier.Prepare(&d)

			out := cmd.OutOrStdout()
			err = courrier.Validate(&d, cat, today)
			var ve *courrier.ValidationError
			if errors.As(err, &ve) {
				for _, p := range ve.Problems {
					fmt.Fprintf(out, "%s: %s\n", p.Field, p.Message)
				}
				return fmt.Errorf("%d problem(s) in %s", len(ve.Problems), args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "ok: %s %q status=%s priority=%s\n", d.Type, d.Subject, d.Status, d.Priority)
			return nil
		},
	}
	cmd.Flags().StringVar(&catalogFile, "catalog", os.Getenv("COURRIER_CATALOG_FILE"), "YAML catalog of entities and hierarchy")
	cmd.Flags().StringVar(&today, "today", "", "reference day in YYYY-MM-DD form (defaults to the current date in --timezone)")
	cmd.Flags().StringVar(&timezone, "timezone", os.Getenv("COURRIER_TIMEZONE"), "IANA zone deciding the current date (UTC when empty)")
	return cmd
}

func newGenUserCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gen-user <first-name> <last-name>",
		Short: "Print the username and a fresh password for a new account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := users.GeneratePassword()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "username: %s\npassword: %s\n", users.GenerateUsername(args[0], args[1]), password)
			return nil
		},
	}
}

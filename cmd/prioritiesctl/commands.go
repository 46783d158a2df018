package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/convenios/prioridades/internal/app"
	"github.com/convenios/prioridades/internal/authz"
	"github.com/convenios/prioridades/internal/config"
	"github.com/convenios/prioridades/internal/priority"
	"github.com/convenios/prioridades/internal/priority/service"
	"github.com/convenios/prioridades/internal/report"
	"github.com/convenios/prioridades/internal/tokens"
	"github.com/convenios/prioridades/pkg/logger"
)

// env carries the dependencies of every command so tests can swap the
// backend and the clock.
type env struct {
	loadConfig func() (*config.Config, error)
	// openService returns a service over the configured store and a close
	// function.
	openService func(ctx context.Context, cfg *config.Config) (*service.Service, func(), error)
	now         func() time.Time
}

func defaultEnv() *env {
	return &env{
		loadConfig:  config.LoadConfig,
		openService: openService,
		now:         time.Now,
	}
}

func openService(ctx context.Context, cfg *config.Config) (*service.Service, func(), error) {
	repo, backend, closeFn, err := app.OpenRepository(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	az, err := authz.NewAuthorizer()
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	logger.Debugf("using %s backend", backend)
	return service.New(repo, az), closeFn, nil
}

func newRootCmd(e *env) *cobra.Command {
	var logLevel string
	cmd := &cobra.Command{
		Use:           "prioritiesctl",
		Short:         "Admin tool for the priorities service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if logLevel != "" {
				logger.Init(logLevel)
			}
		},
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		newUrgencyCmd(e),
		newImportCmd(e),
		newReportCmd(e),
		newTokenCmd(e),
	)
	return cmd
}

func newUrgencyCmd(e *env) *cobra.Command {
	var deadline, today string
	cmd := &cobra.Command{
		Use:   "urgency",
		Short: "Classify a deadline against today",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := priority.ParseDate(deadline)
			if err != nil {
				return err
			}
			ref := e.now()
			if today != "" {
				t, err := priority.ParseDate(today)
				if err != nil {
					return fmt.Errorf("--today: %w", err)
				}
				ref = t.Time()
			}
			u := priority.DeadlineUrgency(d, ref)
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%d\n", u.Situation(), u.Label, u.Severity, u.DaysRemaining)
			return nil
		},
	}
	cmd.Flags().StringVar(&deadline, "deadline", "", "Deadline (YYYY-MM-DD)")
	cmd.Flags().StringVar(&today, "today", "", "Reference date (YYYY-MM-DD), defaults to the current date")
	_ = cmd.MarkFlagRequired("deadline")
	return cmd
}

// importFile is the YAML layout accepted by the import command.
type importFile struct {
	Priorities []priority.RegisterInput `yaml:"prioridades"`
}

func newImportCmd(e *env) *cobra.Command {
	var owner string
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "import FILE.yaml",
		Short: "Register priorities listed in a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var f importFile
			if err := yaml.Unmarshal(raw, &f); err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}
			if len(f.Priorities) == 0 {
				return errors.New("no priorities found under \"prioridades\"")
			}
			for i, in := range f.Priorities {
				if err := in.Validate(); err != nil {
					return fmt.Errorf("entry %d: %w", i+1, err)
				}
			}
			out := cmd.OutOrStdout()
			if dryRun {
				fmt.Fprintf(out, "%d priorities are valid\n", len(f.Priorities))
				return nil
			}

			svc, closeFn, err := e.open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()
			for _, in := range f.Priorities {
				v, err := svc.Register(cmd.Context(), owner, in)
				if err != nil {
					return fmt.Errorf("register %s: %w", in.Number, err)
				}
				fmt.Fprintf(out, "%s\t%s\t%d documents\n", v.ID, v.Number, len(v.Documents))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "Subject that will own the imported priorities")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate the file without writing")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func newReportCmd(e *env) *cobra.Command {
	var owner, format, out string
	cmd := &cobra.Command{
		Use:   "report ID",
		Short: "Render the follow-up report of a priority",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}
			cfg, err := e.loadConfig()
			if err != nil {
				return err
			}
			svc, closeFn, err := e.openService(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			v, err := svc.GetForReport(cmd.Context(), owner, args[0])
			if err != nil {
				return err
			}
			rep := report.Build(v, cfg.Report.Header, e.now().In(cfg.Report.Location()))

			var w io.Writer = cmd.OutOrStdout()
			if out != "" {
				file, err := os.Create(out)
				if err != nil {
					return err
				}
				defer file.Close()
				w = file
			}
			if err := report.Render(w, rep, f); err != nil {
				return err
			}
			if out != "" {
				logger.Infof("report written to %s", out)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "Subject owning the priority")
	cmd.Flags().StringVar(&format, "format", "text", "Output format (text or pdf)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file, defaults to stdout")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func newTokenCmd(e *env) *cobra.Command {
	var id tokens.Identity
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development access token signed with JWT_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := e.loadConfig()
			if err != nil {
				return err
			}
			if cfg.JWT.Secret == "" {
				return errors.New("JWT_SECRET is not set")
			}
			if ttl <= 0 {
				ttl = cfg.JWT.AccessTokenTTL
			}
			tok, err := tokens.GenerateAccessToken(cfg.JWT.Secret, id, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&id.Sub, "sub", "", "Token subject")
	cmd.Flags().StringVar(&id.Name, "name", "", "Display name claim")
	cmd.Flags().StringVar(&id.Email, "email", "", "Email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime, defaults to JWT_ACCESS_TTL")
	_ = cmd.MarkFlagRequired("sub")
	return cmd
}

func (e *env) open(ctx context.Context) (*service.Service, func(), error) {
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	return e.openService(ctx, cfg)
}

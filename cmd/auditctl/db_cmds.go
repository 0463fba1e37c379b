package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Spok95/compliance-audits/internal/audits"
	"github.com/Spok95/compliance-audits/internal/backupclient"
	"github.com/Spok95/compliance-audits/internal/config"
	"github.com/Spok95/compliance-audits/internal/ctxutil"
	"github.com/Spok95/compliance-audits/internal/db"
	"github.com/Spok95/compliance-audits/internal/export"
	"github.com/Spok95/compliance-audits/internal/logging"
	"github.com/Spok95/compliance-audits/internal/models"
	"github.com/Spok95/compliance-audits/internal/seed"
)

// env общее окружение команд, которым нужна БД.
type env struct {
	cfg *config.Config
	log *zap.Logger
	db  *sql.DB
}

func openEnv(ctx context.Context) (*env, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	lg, err := logging.Init(cfg.LogLevel, cfg.Env)
	if err != nil {
		return nil, nil, err
	}
	ctxutil.DefaultDBTimeout = cfg.DBTimeout
	export.Location = cfg.Location

	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		lg.Closer()
		return nil, nil, err
	}
	closeFn := func() {
		_ = database.Close()
		lg.Closer()
	}
	return &env{cfg: cfg, log: lg.Base, db: database}, closeFn, nil
}

func (e *env) service() *audits.Service {
	return audits.New(audits.NewSQLStore(e.db), e.log, audits.WithPolicy(e.cfg.Scoring))
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			e, closeFn, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			if err := db.Migrate(ctx, e.db); err != nil {
				return err
			}
			v, err := db.MigrationVersion(ctx, e.db)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", v)
			return nil
		},
	}
}

func newSeedCmd() *cobra.Command {
	var orgID string
	cmd := &cobra.Command{
		Use:   "seed [templates.yaml]",
		Short: "Create audit templates for an organization (built-in library by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				drafts []models.TemplateDraft
				err    error
			)
			if len(args) == 1 {
				drafts, err = seed.LoadTemplateFile(args[0])
			} else {
				drafts, err = seed.Library()
			}
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			e, closeFn, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			n, err := seed.SeedTemplates(ctx, e.service(), e.log, orgID, drafts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %d of %d templates\n", n, len(drafts))
			return nil
		},
	}
	cmd.Flags().StringVar(&orgID, "org", "", "Organization ID (required)")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}

func newExportCmd() *cobra.Command {
	var orgID, out string
	cmd := &cobra.Command{
		Use:   "export <audit-id>",
		Short: "Write the audit report as an Excel workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, closeFn, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			rep, err := e.service().Report(ctx, orgID, args[0])
			if err != nil {
				return fmt.Errorf("load audit %s: %w", args[0], err)
			}
			buf, err := export.AuditReportExcel(rep)
			if err != nil {
				return err
			}
			if out == "" {
				out = export.AuditReportFilename(rep)
			}
			if dir := filepath.Dir(out); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return err
				}
			}
			if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&orgID, "org", "", "Organization ID (required)")
	cmd.Flags().StringVarP(&out, "output", "o", "", "Output file (default: generated name)")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}

func newBackupCmd() *cobra.Command {
	var url string
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Trigger a database dump through the backup sidecar",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := backupclient.New(url).TriggerBackup(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", os.Getenv("BACKUPCTL_URL"), "Backup sidecar URL")
	return cmd
}

func newRestoreCmd() *cobra.Command {
	var url string
	cmd := &cobra.Command{
		Use:   "restore-latest",
		Short: "Restore the latest dump through the backup sidecar",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := backupclient.New(url).RestoreLatest(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", os.Getenv("BACKUPCTL_URL"), "Backup sidecar URL")
	return cmd
}

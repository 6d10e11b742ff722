package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var ErrIntegrity = errors.New("integrity check failed")

func (a *App) auditCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the most recent audit events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, comp, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer comp.Close()

			events, err := comp.Storage.FetchAuditLogs(cmd.Context(), limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTIME\tOPERATION\tSTATUS\tSEVERITY\tDETAILS")
			for _, e := range events {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
					e.ID, e.Timestamp.UTC().Format(time.RFC3339), e.Operation, e.Status, e.Severity, e.Details)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of events to show")
	return cmd
}

func (a *App) archiveCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Delete metadata older than the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, comp, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer comp.Close()

			if !cmd.Flags().Changed("days") {
				days = c.MetadataRetentionDays
			}

			n, err := comp.Storage.ArchiveOldMetadata(cmd.Context(), days)
			if err != nil {
				return err
			}
			a.printf("archived %d metadata rows older than %d days\n", n, days)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "retention in days (default from config)")
	return cmd
}

func (a *App) integrityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "integrity",
		Short: "Check the metadata store for corruption",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, comp, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer comp.Close()

			ok, err := comp.Storage.CheckIntegrity(cmd.Context())
			if err != nil {
				return err
			}
			if !ok {
				a.printf("FAILED\n")
				return ErrIntegrity
			}
			a.printf("OK\n")
			return nil
		},
	}
}

func (a *App) reconcileCmd() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Mark stale pending rows orphaned and report blobs without metadata",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, comp, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer comp.Close()

			if olderThan <= 0 {
				olderThan = c.PendingTimeout
			}

			report, err := comp.Storage.Reconcile(cmd.Context(), olderThan)
			if err != nil {
				return err
			}
			for _, id := range report.Orphaned {
				a.printf("orphaned\t%s\n", id)
			}
			for _, id := range report.DanglingBlobs {
				a.printf("dangling\t%s\n", id)
			}
			a.printf("%d orphaned, %d dangling\n", len(report.Orphaned), len(report.DanglingBlobs))
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "pending age to treat as orphaned (default from config)")
	return cmd
}

func (a *App) keysCmd() *cobra.Command {
	var validity time.Duration

	cmd := &cobra.Command{
		Use:   "keys",
		Short: "List files whose encryption key is past its validity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, comp, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer comp.Close()

			if validity <= 0 {
				validity = c.KeyValidity
			}

			files, err := comp.Storage.ExpiredKeys(cmd.Context(), validity)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tFILENAME\tUPLOADED\tKDF")
			for _, f := range files {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", f.ID, f.OriginalFilename, f.UploadTime.UTC().Format(time.RFC3339), f.KDF)
			}
			return w.Flush()
		},
	}
	cmd.Flags().DurationVar(&validity, "validity", 0, "key validity (default from config)")
	return cmd
}

func (a *App) quarantineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quarantine",
		Short: "List quarantined files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, comp, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer comp.Close()

			records, err := comp.Quarantine.List()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTIME\tTHREAT\tORIGINAL\tPATH")
			for _, r := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					r.ID, r.QuarantinedAt.UTC().Format(time.RFC3339), r.Threat, r.OriginalPath, r.QuarantinePath)
			}
			return w.Flush()
		},
	}
}

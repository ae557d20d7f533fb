package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/entrhq/editionfetch/pkg/report"
	"github.com/entrhq/editionfetch/pkg/upload"
)

func (a *app) fetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download the current edition and upload it (default)",
		Args:  cobra.NoArgs,
		RunE:  a.runFetch,
	}
	addRetryFlags(cmd, &a.opts)
	return cmd
}

func (a *app) downloadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download the current edition and print the file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.execute(cmd.Context(), "download", func(ctx context.Context, summary *report.Summary) error {
				res, err := a.fetchEdition(ctx, summary)
				if err != nil {
					return err
				}
				fmt.Fprintln(a.stdout, res.Artifact.Path)
				return nil
			})
		},
	}
	addRetryFlags(cmd, &a.opts)
	return cmd
}

func (a *app) uploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a previously downloaded file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.execute(cmd.Context(), "upload", func(ctx context.Context, summary *report.Summary) error {
				url, err := a.cfg.UploadURL()
				if err != nil {
					return err
				}
				return a.upload(ctx, url, args[0], summary)
			})
		},
	}
}

func (a *app) runFetch(cmd *cobra.Command, _ []string) error {
	return a.execute(cmd.Context(), "fetch", func(ctx context.Context, summary *report.Summary) error {
		// resolved first so a missing receiver fails before the browser starts
		url, err := a.cfg.UploadURL()
		if err != nil {
			return err
		}
		res, err := a.fetchEdition(ctx, summary)
		if err != nil {
			return err
		}
		return a.upload(ctx, url, res.Artifact.Path, summary)
	})
}

func (a *app) upload(ctx context.Context, url, path string, summary *report.Summary) error {
	client := upload.New(url,
		upload.WithTimeout(a.cfg.Upload.Timeout),
		upload.WithLogger(a.log.Named("upload")),
	)
	res, err := client.Upload(ctx, path)
	if err != nil {
		return err
	}
	summary.Upload = &report.UploadInfo{Filename: res.Filename}
	fmt.Fprintln(a.stdout, res.Filename)
	return nil
}

// execute runs fn, then finishes and writes the run report.
func (a *app) execute(ctx context.Context, command string, fn func(ctx context.Context, summary *report.Summary) error) error {
	defer a.log.Close()

	summary := report.New(a.runID, command)
	err := fn(ctx, summary)
	summary.Finish(err)

	if a.opts.reportDir != "" {
		if writeErr := report.NewWriter(a.opts.reportDir).WriteAll(summary); writeErr != nil {
			a.log.Warnf("failed to write report: %v", writeErr)
		}
	}

	switch summary.Status {
	case report.StatusSuccess:
		a.log.Infof("%s finished in %s", command, summary.Duration.Round(time.Millisecond))
	case report.StatusNotReady:
		a.log.Warnf("%s stopped: %v", command, err)
	default:
		a.log.Errorf("%s failed (%s): %v", command, summary.ErrorKind, err)
	}
	if path := a.log.LogPath(); path != "" {
		a.log.Infof("log written to %s", path)
	}
	return err
}

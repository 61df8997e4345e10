package main

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marmos91/deskfs/internal/logger"
	"github.com/marmos91/deskfs/pkg/config"
	"github.com/marmos91/deskfs/pkg/snapshot"
	"github.com/marmos91/deskfs/pkg/transfer"
)

var pasteCmd = &cobra.Command{
	Use:   "paste <src>... <dest-folder>",
	Short: "Copy or cut entries into a folder, renaming on collisions",
	Long: `Captures the sources on a clipboard and pastes them into the destination
folder. Name collisions get a " (n)" suffix. With --cut the sources are
moved instead of copied.`,
	Args: cobra.MinimumNArgs(2),
	RunE: withRuntime(func(ctx context.Context, cmd *cobra.Command, rt *config.Runtime, args []string) error {
		action := transfer.ActionCopy
		if cut, _ := cmd.Flags().GetBool("cut"); cut {
			action = transfer.ActionCut
		}

		srcs, dest := args[:len(args)-1], args[len(args)-1]
		engine := transfer.NewEngine(rt.FS, nil)
		if err := engine.CopyToClipboard(ctx, srcs, action); err != nil {
			return err
		}

		pasted, err := engine.Paste(ctx, dest)
		for _, e := range pasted {
			fmt.Println(e.Path)
		}
		return err
	}),
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Export or import the whole store",
}

var snapshotExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a compressed snapshot to --file or --s3",
	Args:  cobra.NoArgs,
	RunE: withRuntime(func(ctx context.Context, cmd *cobra.Command, rt *config.Runtime, args []string) error {
		target, err := snapshotTarget(ctx, cmd, rt)
		if err != nil {
			return err
		}

		res, err := newSnapshotter(cmd, rt).Export(ctx, target)
		if err != nil {
			return err
		}
		fmt.Printf("Exported %d rows from %d tables to %s in %s\n", res.Rows, res.Tables, target, res.Duration)
		return nil
	}),
}

var snapshotImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Load a snapshot from --file or --s3 into an empty store",
	Args:  cobra.NoArgs,
	RunE: withRuntime(func(ctx context.Context, cmd *cobra.Command, rt *config.Runtime, args []string) error {
		target, err := snapshotTarget(ctx, cmd, rt)
		if err != nil {
			return err
		}

		res, err := newSnapshotter(cmd, rt).Import(ctx, target)
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d rows into %d tables from %s (taken %s)\n",
			res.Rows, res.Tables, target, res.CreatedAt.Format("2006-01-02 15:04:05"))
		if rt.Config.Store.Type == "memory" {
			logger.Warn("The memory store does not outlive this command; use badger or sqlite to keep imported data")
		}
		return nil
	}),
}

// newSnapshotter applies --rate-limit over the configured snapshot.rate_limit.
func newSnapshotter(cmd *cobra.Command, rt *config.Runtime) *snapshot.Snapshotter {
	limit := rt.Config.Snapshot.RateLimit
	if cmd.Flags().Changed("rate-limit") {
		limit, _ = cmd.Flags().GetInt("rate-limit")
	}
	return snapshot.New(rt.Store, rt.Metrics.Snapshot).WithRateLimit(limit)
}

// snapshotTarget resolves --file or --s3 into a snapshot target.
func snapshotTarget(ctx context.Context, cmd *cobra.Command, rt *config.Runtime) (snapshot.Target, error) {
	file, _ := cmd.Flags().GetString("file")
	key, _ := cmd.Flags().GetString("s3")

	switch {
	case file != "" && key != "":
		return nil, fmt.Errorf("--file and --s3 are mutually exclusive")
	case file != "":
		return snapshot.FileTarget{Path: file}, nil
	case key != "":
		s3cfg := &rt.Config.Snapshot.S3
		client, err := config.CreateS3Client(ctx, s3cfg)
		if err != nil {
			return nil, err
		}
		if s3cfg.KeyPrefix != "" {
			key = path.Join(strings.TrimSuffix(s3cfg.KeyPrefix, "/"), key)
		}
		return snapshot.S3Target{Client: client, Bucket: s3cfg.Bucket, Key: key}, nil
	}
	return nil, fmt.Errorf("one of --file or --s3 is required")
}

func registerClipboardCommands() {
	pasteCmd.Flags().Bool("cut", false, "Move the sources instead of copying them")
	rootCmd.AddCommand(pasteCmd)
}

func registerSnapshotCommands() {
	for _, c := range []*cobra.Command{snapshotExportCmd, snapshotImportCmd} {
		c.Flags().StringP("file", "f", "", "Local snapshot file")
		c.Flags().String("s3", "", "Object key in the configured snapshot bucket")
		c.Flags().Int("rate-limit", 0, "Throughput cap in bytes per second (0 = unlimited)")
	}
	snapshotCmd.AddCommand(snapshotExportCmd, snapshotImportCmd)
	rootCmd.AddCommand(snapshotCmd)
}

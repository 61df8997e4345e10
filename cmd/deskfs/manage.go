package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/marmos91/deskfs/pkg/config"
	"github.com/marmos91/deskfs/pkg/vfs"
)

// trash

var trashCmd = &cobra.Command{
	Use:   "trash",
	Short: "Inspect and manage the trash",
}

var trashListCmd = &cobra.Command{
	Use:   "list",
	Short: "List trashed entries",
	Args:  cobra.NoArgs,
	RunE: withRuntime(func(ctx context.Context, cmd *cobra.Command, rt *config.Runtime, args []string) error {
		items, err := rt.FS.GetTrash(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, it := range items {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				it.OriginalPath, it.Entry.Kind, it.DeletedBy, humanize.Time(it.DeletedAt))
		}
		return w.Flush()
	}),
}

var trashRestoreCmd = &cobra.Command{
	Use:   "restore <original-path>",
	Short: "Restore a trashed entry to its original path",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(ctx context.Context, cmd *cobra.Command, rt *config.Runtime, args []string) error {
		e, err := rt.FS.RestoreFromTrash(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Println(e.Path)
		return nil
	}),
}

var trashEmptyCmd = &cobra.Command{
	Use:   "empty",
	Short: "Delete everything in the trash",
	Args:  cobra.NoArgs,
	RunE: withRuntime(func(ctx context.Context, cmd *cobra.Command, rt *config.Runtime, args []string) error {
		n, err := rt.FS.EmptyTrash(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d item(s)\n", n)
		return nil
	}),
}

var trashPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete trashed entries older than --older-than",
	Args:  cobra.NoArgs,
	RunE: withRuntime(func(ctx context.Context, cmd *cobra.Command, rt *config.Runtime, args []string) error {
		olderThan, _ := cmd.Flags().GetDuration("older-than")
		n, err := rt.FS.PurgeTrash(ctx, olderThan)
		if err != nil {
			return err
		}
		fmt.Printf("Purged %d item(s)\n", n)
		return nil
	}),
}

// versions

var versionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "Inspect and restore file versions",
}

var versionsListCmd = &cobra.Command{
	Use:   "list <path>",
	Short: "List saved versions of a file, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(ctx context.Context, cmd *cobra.Command, rt *config.Runtime, args []string) error {
		versions, err := rt.FS.GetVersions(ctx, args[0])
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, v := range versions {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				v.ID, v.Author, humanize.Bytes(uint64(len(v.Payload))), v.Timestamp.Format(time.RFC3339))
		}
		return w.Flush()
	}),
}

var versionsRestoreCmd = &cobra.Command{
	Use:   "restore <path> <version-id>",
	Short: "Restore a file to a saved version",
	Args:  cobra.ExactArgs(2),
	RunE: withRuntime(func(ctx context.Context, cmd *cobra.Command, rt *config.Runtime, args []string) error {
		e, err := rt.FS.RestoreVersion(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("%s v%d\n", e.Path, e.Version)
		return nil
	}),
}

// locks

var lockCmd = &cobra.Command{
	Use:   "lock <path>",
	Short: "Lock a file for the configured TTL",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(ctx context.Context, cmd *cobra.Command, rt *config.Runtime, args []string) error {
		l, err := rt.FS.LockFile(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s locked by %s until %s\n", l.Path, l.Owner, l.Expires.Format(time.RFC3339))
		return nil
	}),
}

var unlockCmd = &cobra.Command{
	Use:   "unlock <path>",
	Short: "Release a file lock",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(ctx context.Context, cmd *cobra.Command, rt *config.Runtime, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		return rt.FS.UnlockFile(ctx, args[0], force)
	}),
}

// shares

var shareCmd = &cobra.Command{
	Use:   "share <path> <recipient>",
	Short: "Share an entry with another user",
	Args:  cobra.ExactArgs(2),
	RunE: withRuntime(func(ctx context.Context, cmd *cobra.Command, rt *config.Runtime, args []string) error {
		level, _ := cmd.Flags().GetString("level")
		opts := vfs.ShareOptions{Level: vfs.ShareLevel(level)}
		if ttl, _ := cmd.Flags().GetDuration("expires"); ttl > 0 {
			at := time.Now().Add(ttl)
			opts.ExpiresAt = &at
		}

		s, err := rt.FS.ShareFile(ctx, args[0], args[1], opts)
		if err != nil {
			return err
		}
		fmt.Printf("%s shared with %s (%s) id=%s\n", s.Path, s.Recipient, s.Level, s.ID)
		return nil
	}),
}

var sharedCmd = &cobra.Command{
	Use:   "shared [recipient]",
	Short: "List entries shared with a user (default: the current identity)",
	Args:  cobra.MaximumNArgs(1),
	RunE: withRuntime(func(ctx context.Context, cmd *cobra.Command, rt *config.Runtime, args []string) error {
		recipient := rt.Config.Identity.Username
		if len(args) == 1 {
			recipient = args[0]
		}

		files, err := rt.FS.GetSharedWithUser(ctx, recipient)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, f := range files {
			expires := "never"
			if f.Share.Expires != nil {
				expires = humanize.Time(*f.Share.Expires)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\texpires %s\n",
				f.Share.ID, f.Path, f.Share.Owner, f.Share.Level, expires)
		}
		return w.Flush()
	}),
}

var unshareCmd = &cobra.Command{
	Use:   "unshare <share-id>",
	Short: "Revoke a share",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(ctx context.Context, cmd *cobra.Command, rt *config.Runtime, args []string) error {
		return rt.FS.Unshare(ctx, args[0])
	}),
}

func registerTrashCommands() {
	trashPurgeCmd.Flags().Duration("older-than", 30*24*time.Hour, "Minimum age of purged items")
	trashCmd.AddCommand(trashListCmd, trashRestoreCmd, trashEmptyCmd, trashPurgeCmd)
	rootCmd.AddCommand(trashCmd)
}

func registerVersionCommands() {
	versionsCmd.AddCommand(versionsListCmd, versionsRestoreCmd)
	rootCmd.AddCommand(versionsCmd)
}

func registerLockCommands() {
	unlockCmd.Flags().Bool("force", false, "Release a lock held by another user (admin only)")
	rootCmd.AddCommand(lockCmd, unlockCmd)
}

func registerShareCommands() {
	shareCmd.Flags().String("level", string(vfs.ShareRead), "Access level: read or write")
	shareCmd.Flags().Duration("expires", 0, "Expire the share after this duration")
	rootCmd.AddCommand(shareCmd, sharedCmd, unshareCmd)
}

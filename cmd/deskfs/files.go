package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/marmos91/deskfs/pkg/config"
	"github.com/marmos91/deskfs/pkg/vfs"
)

var lsCmd = &cobra.Command{
	Use:   "ls [path]",
	Short: "List a folder",
	Args:  cobra.MaximumNArgs(1),
	RunE: withRuntime(func(ctx context.Context, cmd *cobra.Command, rt *config.Runtime, args []string) error {
		p := vfs.RootPath
		if len(args) == 1 {
			p = args[0]
		}

		sortBy, _ := cmd.Flags().GetString("sort")
		desc, _ := cmd.Flags().GetBool("reverse")
		all, _ := cmd.Flags().GetBool("all")
		pattern, _ := cmd.Flags().GetString("pattern")

		entries, err := rt.FS.ListDirectory(ctx, p, vfs.ListOptions{
			SortBy:        vfs.SortKey(sortBy),
			Descending:    desc,
			IncludeHidden: all,
			Pattern:       pattern,
		})
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, e := range entries {
			size := "-"
			name := e.Name
			if e.IsFile() {
				size = humanize.Bytes(uint64(e.Size))
			} else {
				name += "/"
			}
			fmt.Fprintf(w, "%s %s\t%s\t%s\t%s\t%s\n",
				kindFlag(e), e.Permissions, e.Owner, size, humanize.Time(e.Modified), name)
		}
		return w.Flush()
	}),
}

func kindFlag(e *vfs.Entry) string {
	if e.IsFolder() {
		return "d"
	}
	return "-"
}

var mkdirCmd = &cobra.Command{
	Use:   "mkdir <parent> <name>",
	Short: "Create a folder",
	Args:  cobra.ExactArgs(2),
	RunE: withRuntime(func(ctx context.Context, cmd *cobra.Command, rt *config.Runtime, args []string) error {
		opts := vfs.FolderOptions{}
		if mode, _ := cmd.Flags().GetString("mode"); mode != "" {
			m, err := vfs.ParseMode(mode)
			if err != nil {
				return err
			}
			opts.Permissions = &m
		}
		opts.Hidden, _ = cmd.Flags().GetBool("hidden")
		opts.Tags, _ = cmd.Flags().GetStringSlice("tag")

		e, err := rt.FS.CreateFolder(ctx, args[0], args[1], opts)
		if err != nil {
			return err
		}
		fmt.Println(e.Path)
		return nil
	}),
}

var writeCmd = &cobra.Command{
	Use:   "write <path>",
	Short: "Write a file from --from or stdin",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(ctx context.Context, cmd *cobra.Command, rt *config.Runtime, args []string) error {
		var payload []byte
		var err error
		if from, _ := cmd.Flags().GetString("from"); from != "" {
			payload, err = os.ReadFile(from)
		} else {
			payload, err = io.ReadAll(os.Stdin)
		}
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		opts := vfs.WriteOptions{}
		if mode, _ := cmd.Flags().GetString("mode"); mode != "" {
			m, err := vfs.ParseMode(mode)
			if err != nil {
				return err
			}
			opts.Permissions = &m
		}
		opts.Tags, _ = cmd.Flags().GetStringSlice("tag")

		e, err := rt.FS.WriteFile(ctx, args[0], payload, opts)
		if err != nil {
			return err
		}
		fmt.Printf("%s %s v%d\n", e.Path, humanize.Bytes(uint64(e.Size)), e.Version)
		return nil
	}),
}

var catCmd = &cobra.Command{
	Use:   "cat <path>",
	Short: "Print a file",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(ctx context.Context, cmd *cobra.Command, rt *config.Runtime, args []string) error {
		if parsed, _ := cmd.Flags().GetBool("parsed"); parsed {
			v, err := rt.FS.ReadParsed(ctx, args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(v)
		}

		data, err := rt.FS.ReadFile(ctx, args[0])
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	}),
}

var statCmd = &cobra.Command{
	Use:   "stat <path>",
	Short: "Show entry details",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(ctx context.Context, cmd *cobra.Command, rt *config.Runtime, args []string) error {
		e, err := rt.FS.Get(ctx, args[0])
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "Path:\t%s\n", e.Path)
		fmt.Fprintf(w, "Kind:\t%s\n", e.Kind)
		fmt.Fprintf(w, "Size:\t%s\n", humanize.Bytes(uint64(e.Size)))
		fmt.Fprintf(w, "Owner:\t%s:%s\n", e.Owner, e.Group)
		fmt.Fprintf(w, "Mode:\t%s\n", e.Permissions)
		fmt.Fprintf(w, "Created:\t%s\n", e.Created.Format(time.RFC3339))
		fmt.Fprintf(w, "Modified:\t%s\n", e.Modified.Format(time.RFC3339))
		if e.IsFile() {
			fmt.Fprintf(w, "Type:\t%s\n", e.MimeType)
			fmt.Fprintf(w, "Version:\t%d\n", e.Version)
			fmt.Fprintf(w, "Hash:\t%s\n", e.ContentHash)
		}
		if len(e.Tags) > 0 {
			fmt.Fprintf(w, "Tags:\t%s\n", strings.Join(e.Tags, ", "))
		}
		for k, v := range e.Metadata {
			fmt.Fprintf(w, "Meta %s:\t%s\n", k, v)
		}
		if e.Locked {
			fmt.Fprintf(w, "Locked:\tby %s until %s\n", e.LockOwner, e.LockExpiry.Format(time.RFC3339))
		}
		if e.Shared {
			fmt.Fprintf(w, "Shared:\t%s\n", strings.Join(e.SharedWith, ", "))
		}
		return w.Flush()
	}),
}

var rmCmd = &cobra.Command{
	Use:   "rm <path>",
	Short: "Move an entry to the trash, or delete it with --permanent",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(ctx context.Context, cmd *cobra.Command, rt *config.Runtime, args []string) error {
		permanent, _ := cmd.Flags().GetBool("permanent")
		return rt.FS.Delete(ctx, args[0], permanent)
	}),
}

var mvCmd = &cobra.Command{
	Use:   "mv <src> <dst>",
	Short: "Move or rename an entry",
	Args:  cobra.ExactArgs(2),
	RunE: withRuntime(func(ctx context.Context, cmd *cobra.Command, rt *config.Runtime, args []string) error {
		e, err := rt.FS.Move(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Println(e.Path)
		return nil
	}),
}

var cpCmd = &cobra.Command{
	Use:   "cp <src> <dst>",
	Short: "Copy an entry",
	Args:  cobra.ExactArgs(2),
	RunE: withRuntime(func(ctx context.Context, cmd *cobra.Command, rt *config.Runtime, args []string) error {
		e, err := rt.FS.Copy(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Println(e.Path)
		return nil
	}),
}

var attrCmd = &cobra.Command{
	Use:   "attr <path>",
	Short: "Change tags, metadata, visibility, group or mode",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(ctx context.Context, cmd *cobra.Command, rt *config.Runtime, args []string) error {
		flags := cmd.Flags()
		attrs := vfs.Attributes{}

		if flags.Changed("hidden") {
			hidden, _ := flags.GetBool("hidden")
			attrs.Hidden = &hidden
		}
		if flags.Changed("group") {
			group, _ := flags.GetString("group")
			attrs.Group = &group
		}
		if mode, _ := flags.GetString("mode"); mode != "" {
			m, err := vfs.ParseMode(mode)
			if err != nil {
				return err
			}
			attrs.Permissions = &m
		}
		attrs.Tags, _ = flags.GetStringSlice("tag")
		attrs.ReplaceTags, _ = flags.GetBool("replace-tags")
		if meta, _ := flags.GetStringToString("meta"); len(meta) > 0 {
			attrs.Metadata = meta
		}

		e, err := rt.FS.SetAttributes(ctx, args[0], attrs)
		if err != nil {
			return err
		}
		fmt.Printf("%s %s tags=%v\n", e.Path, e.Permissions, e.Tags)
		return nil
	}),
}

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List recently accessed files",
	Args:  cobra.NoArgs,
	RunE: withRuntime(func(ctx context.Context, cmd *cobra.Command, rt *config.Runtime, args []string) error {
		files, err := rt.FS.GetRecentFiles(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, f := range files {
			fmt.Fprintf(w, "%s\t%s\n", humanize.Time(f.Accessed), f.Path)
		}
		return w.Flush()
	}),
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show file system statistics",
	Args:  cobra.NoArgs,
	RunE: withRuntime(func(ctx context.Context, cmd *cobra.Command, rt *config.Runtime, args []string) error {
		s, err := rt.FS.GetStats(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "Files:\t%s\n", humanize.Comma(s.Files))
		fmt.Fprintf(w, "Folders:\t%s\n", humanize.Comma(s.Folders))
		fmt.Fprintf(w, "Total size:\t%s\n", humanize.Bytes(uint64(s.TotalSize)))
		fmt.Fprintf(w, "Trash items:\t%s\n", humanize.Comma(s.TrashItems))
		fmt.Fprintf(w, "Versions:\t%s\n", humanize.Comma(s.Versions))
		fmt.Fprintf(w, "Active locks:\t%s\n", humanize.Comma(s.ActiveLocks))
		fmt.Fprintf(w, "Shares:\t%s\n", humanize.Comma(s.Shares))
		return w.Flush()
	}),
}

func registerFileCommands() {
	lsCmd.Flags().StringP("sort", "s", string(vfs.SortByName), "Sort by name, size, modified, created, kind or extension")
	lsCmd.Flags().BoolP("reverse", "r", false, "Reverse the sort order")
	lsCmd.Flags().BoolP("all", "a", false, "Include hidden entries")
	lsCmd.Flags().StringP("pattern", "p", "", "Only names matching this glob")

	mkdirCmd.Flags().String("mode", "", "Permissions (rwxr-xr-x or 755)")
	mkdirCmd.Flags().Bool("hidden", false, "Mark the folder hidden")
	mkdirCmd.Flags().StringSlice("tag", nil, "Tags to attach")

	writeCmd.Flags().StringP("from", "f", "", "Read content from this local file")
	writeCmd.Flags().String("mode", "", "Permissions (rw-r--r-- or 644)")
	writeCmd.Flags().StringSlice("tag", nil, "Tags to attach")

	catCmd.Flags().Bool("parsed", false, "Decode JSON or YAML content and print it as JSON")

	rmCmd.Flags().Bool("permanent", false, "Skip the trash")

	attrCmd.Flags().Bool("hidden", false, "Hide or show the entry")
	attrCmd.Flags().String("group", "", "Set the group")
	attrCmd.Flags().String("mode", "", "Set permissions")
	attrCmd.Flags().StringSlice("tag", nil, "Tags to add")
	attrCmd.Flags().Bool("replace-tags", false, "Replace the tag set instead of adding")
	attrCmd.Flags().StringToString("meta", nil, "Metadata key=value pairs; an empty value removes the key")

	rootCmd.AddCommand(lsCmd, mkdirCmd, writeCmd, catCmd, statCmd, rmCmd, mvCmd, cpCmd, attrCmd, recentCmd, statsCmd)
}

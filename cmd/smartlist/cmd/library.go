package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/solatis/smartlist/internal/library"
	"github.com/solatis/smartlist/internal/types"
)

var scanCmd = &cobra.Command{
	Use:   "scan <dir>",
	Short: "Register a folder as a source and index its files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(nil)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		quiet, _ := cmd.Flags().GetBool("quiet")
		out := cmd.ErrOrStderr()
		n, err := s.index.Scan(ctx, args[0], func(path string, processed, total int) {
			if !quiet && (processed%100 == 0 || processed == total) {
				fmt.Fprintf(out, "\rindexed %d/%d", processed, total)
			}
		})
		if !quiet && n > 0 {
			fmt.Fprintln(out)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d files indexed\n", n)
		return nil
	},
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Manage library sources",
}

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered sources",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(nil)
		if err != nil {
			return err
		}
		defer s.Close()

		sources, err := s.index.ListSources()
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tPATH")
		for _, src := range sources {
			fmt.Fprintf(w, "%d\t%s\n", src.ID, src.Path)
		}
		return w.Flush()
	},
}

var sourcesRemoveCmd = &cobra.Command{
	Use:   "remove <dir>",
	Short: "Unregister a source and drop its files from the index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(nil)
		if err != nil {
			return err
		}
		defer s.Close()
		return s.index.RemoveSource(args[0])
	},
}

// parseRating accepts 0..5 or "none".
func parseRating(arg string) (*int, error) {
	if strings.EqualFold(arg, "none") {
		return nil, nil
	}
	n, err := cast.ToIntE(arg)
	if err != nil || n < 0 || n > 5 {
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidRating, arg)
	}
	return &n, nil
}

var rateCmd = &cobra.Command{
	Use:   "rate <file> <0-5|none>",
	Short: "Set or clear a file's rating",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rating, err := parseRating(args[1])
		if err != nil {
			return err
		}
		s, err := openSession(nil)
		if err != nil {
			return err
		}
		defer s.Close()
		return s.index.SetRating(args[0], rating)
	},
}

var tagCmd = &cobra.Command{
	Use:   "tag <file> [tags...]",
	Short: "Replace a file's tags; no tags clears them",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(nil)
		if err != nil {
			return err
		}
		defer s.Close()

		var tags []string
		for _, arg := range args[1:] {
			// Accept both "a b" and "a,b"
			tags = append(tags, strings.Split(arg, ",")...)
		}
		return s.index.SetTags(args[0], tags)
	},
}

var metaCmd = &cobra.Command{
	Use:   "meta <file>",
	Short: "Show or update a file's extended metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(nil)
		if err != nil {
			return err
		}
		defer s.Close()

		update, err := metadataFromFlags(cmd)
		if err != nil {
			return err
		}
		current := s.index.Metadata(args[0])
		if !update.IsZero() {
			current = current.Merge(update)
			if err := s.index.SetMetadata(args[0], current); err != nil {
				return err
			}
		}

		rating, tags, err := s.index.Attributes(args[0])
		if err != nil {
			return err
		}
		return printMetadata(cmd, current, rating, tags)
	},
}

func metadataFromFlags(cmd *cobra.Command) (library.Metadata, error) {
	f := cmd.Flags()
	var m library.Metadata
	m.Title, _ = f.GetString("title")
	m.Album, _ = f.GetString("album")
	m.Artist, _ = f.GetString("artist")
	m.Genre, _ = f.GetString("genre")
	m.Resolution, _ = f.GetString("resolution")
	if f.Changed("year") {
		v, _ := f.GetInt("year")
		m.Year = &v
	}
	if f.Changed("bitrate") {
		v, _ := f.GetInt("bitrate")
		m.Bitrate = &v
	}
	if f.Changed("duration") {
		v, _ := f.GetFloat64("duration")
		if v < 0 {
			return m, fmt.Errorf("duration must not be negative")
		}
		m.Duration = &v
	}
	return m, nil
}

func printMetadata(cmd *cobra.Command, m library.Metadata, rating *int, tags []string) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	row := func(k string, v any, ok bool) {
		if ok {
			fmt.Fprintf(w, "%s\t%v\n", k, v)
		}
	}
	row("title", m.Title, m.Title != "")
	row("album", m.Album, m.Album != "")
	row("artist", m.Artist, m.Artist != "")
	row("genre", m.Genre, m.Genre != "")
	if m.Year != nil {
		row("year", *m.Year, true)
	}
	if m.Duration != nil {
		row("duration", *m.Duration, true)
	}
	row("resolution", m.Resolution, m.Resolution != "")
	if m.Bitrate != nil {
		row("bitrate", *m.Bitrate, true)
	}
	if rating != nil {
		row("rating", *rating, true)
	}
	row("tags", strings.Join(tags, ", "), len(tags) > 0)
	return w.Flush()
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the index current while files change",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(nil)
		if err != nil {
			return err
		}
		defer s.Close()

		w, err := library.NewWatcher(s.index, cfg.Watch.Debounce, logger)
		if err != nil {
			return err
		}
		defer w.Close()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return w.Run(ctx)
	},
}

func init() {
	scanCmd.Flags().BoolP("quiet", "q", false, "suppress progress output")

	metaCmd.Flags().String("title", "", "title")
	metaCmd.Flags().String("album", "", "album")
	metaCmd.Flags().String("artist", "", "artist")
	metaCmd.Flags().String("genre", "", "genre")
	metaCmd.Flags().String("resolution", "", "video resolution, e.g. 1920x1080")
	metaCmd.Flags().Int("year", 0, "release year")
	metaCmd.Flags().Int("bitrate", 0, "bitrate in kbps")
	metaCmd.Flags().Float64("duration", 0, "duration in seconds")

	sourcesCmd.AddCommand(sourcesListCmd, sourcesRemoveCmd)
	rootCmd.AddCommand(scanCmd, sourcesCmd, rateCmd, tagCmd, metaCmd, watchCmd)
}

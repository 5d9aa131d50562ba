package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/solatis/smartlist/internal/library"
	"github.com/solatis/smartlist/internal/playlist"
	"github.com/solatis/smartlist/internal/rules"
	"github.com/solatis/smartlist/internal/types"
)

var playlistsCmd = &cobra.Command{
	Use:     "playlists",
	Aliases: []string{"pl"},
	Short:   "Inspect and evaluate smart playlists",
}

var playlistsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List smart playlists",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pls := playlist.Load(cfg.Library.PlaylistsPath)
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tLIMIT\tSORT\tSIGNATURE\tDESCRIPTION")
		for _, pl := range pls {
			limit := "-"
			if pl.Limit != nil {
				limit = fmt.Sprint(*pl.Limit)
			}
			sortKey := pl.Sort
			if sortKey == "" {
				sortKey = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", pl.Name, limit, sortKey, playlist.Signature(pl), pl.Description)
		}
		return w.Flush()
	},
}

func findPlaylist(name string) (playlist.SmartPlaylist, error) {
	pl, ok := playlist.Find(playlist.Load(cfg.Library.PlaylistsPath), name)
	if !ok {
		return pl, fmt.Errorf("%w: %s", types.ErrPlaylistNotFound, name)
	}
	return pl, nil
}

var playlistsEvalCmd = &cobra.Command{
	Use:   "eval <name>",
	Short: "Evaluate a playlist against the library",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pl, err := findPlaylist(args[0])
		if err != nil {
			return err
		}
		sortKey, _ := cmd.Flags().GetString("sort")
		if sortKey == "" {
			sortKey = pl.Sort
		} else if !slices.Contains(playlist.SortKeys(), sortKey) {
			return fmt.Errorf("unknown sort %q (want one of %v)", sortKey, playlist.SortKeys())
		}
		asJSON, _ := cmd.Flags().GetBool("json")

		s, err := openSession(nil)
		if err != nil {
			return err
		}
		defer s.Close()

		entries, err := s.index.ListEntries(0)
		if err != nil {
			return err
		}
		meta, err := s.index.MetadataSnapshot()
		if err != nil {
			return err
		}

		matched := playlist.SortEntries(playlist.Evaluate(pl, entries, meta), sortKey, meta)
		logger.Debug().Str("playlist", pl.Name).Int("catalog", len(entries)).Int("matched", len(matched)).Msg("playlist evaluated")

		if asJSON {
			return writeEntriesJSON(cmd.OutOrStdout(), matched)
		}
		for _, e := range matched {
			fmt.Fprintln(cmd.OutOrStdout(), e.AbsPath())
		}
		return nil
	},
}

func writeEntriesJSON(w io.Writer, entries []playlist.Entry) error {
	type row struct {
		Path   string   `json:"path"`
		Source string   `json:"source"`
		Kind   string   `json:"kind,omitempty"`
		Rating *int     `json:"rating,omitempty"`
		Tags   []string `json:"tags,omitempty"`
	}
	rows := make([]row, 0, len(entries))
	for _, e := range entries {
		r := row{Path: e.AbsPath(), Source: e.Source}
		if f, ok := e.Media.(library.MediaFile); ok {
			r.Kind, r.Rating, r.Tags = f.Kind, f.Rating, f.Tags
		} else if v, ok := e.Media.Resolve(rules.FieldKind); ok {
			r.Kind = fmt.Sprint(v)
		}
		rows = append(rows, r)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

var playlistsValidateCmd = &cobra.Command{
	Use:   "validate [name]",
	Short: "Report rule problems in one or all playlists",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pls := playlist.Load(cfg.Library.PlaylistsPath)
		if len(args) == 1 {
			pl, err := findPlaylist(args[0])
			if err != nil {
				return err
			}
			pls = []playlist.SmartPlaylist{pl}
		}

		bad := 0
		out := cmd.OutOrStdout()
		for _, pl := range pls {
			problems := playlist.Problems(pl)
			if len(problems) == 0 {
				fmt.Fprintf(out, "%s: ok\n", pl.Name)
				continue
			}
			bad++
			fmt.Fprintf(out, "%s: %d problem(s)\n", pl.Name, len(problems))
			for _, p := range problems {
				fmt.Fprintf(out, "  - %s\n", p)
			}
		}
		if bad > 0 {
			return fmt.Errorf("%d of %d playlists have problems", bad, len(pls))
		}
		return nil
	},
}

var playlistsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print all playlists as JSON or YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		return exportPlaylists(cmd.OutOrStdout(), playlist.Load(cfg.Library.PlaylistsPath), format)
	},
}

func exportPlaylists(w io.Writer, pls []playlist.SmartPlaylist, format string) error {
	docs := make([]any, 0, len(pls))
	for i := range pls {
		docs = append(docs, pls[i].ToMap())
	}
	doc := map[string]any{"playlists": docs}

	switch format {
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(doc)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q (want json or yaml)", format)
	}
}

func init() {
	playlistsEvalCmd.Flags().String("sort", "", fmt.Sprintf("sort key, overrides the playlist's own (%v)", playlist.SortKeys()))
	playlistsEvalCmd.Flags().Bool("json", false, "print entries as JSON")
	playlistsExportCmd.Flags().String("format", "json", "output format (json, yaml)")

	playlistsCmd.AddCommand(playlistsListCmd, playlistsEvalCmd, playlistsValidateCmd, playlistsExportCmd)
	rootCmd.AddCommand(playlistsCmd)
}

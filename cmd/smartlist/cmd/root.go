package cmd

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/solatis/smartlist/internal/core/config"
	"github.com/solatis/smartlist/internal/core/db"
	"github.com/solatis/smartlist/internal/library"
	"github.com/solatis/smartlist/internal/logging"
	"github.com/solatis/smartlist/internal/metrics"
)

// Version is the smartlist release.
const Version = "0.1.0"

var (
	configFile    string
	envFile       string
	dbURL         string
	playlistsPath string
	logLevel      string
	logFormat     string

	cfg    *config.Config
	logger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "smartlist",
	Short:         "Rule-based smart playlists over a local media library",
	Long:          `smartlist indexes media folders and evaluates smart playlists (nested AND/OR/NOT rule trees) against them.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(envFile); err != nil {
			return err
		}
		l, err := logging.Setup(logLevel, logFormat)
		if err != nil {
			return err
		}
		logger = l

		c, err := config.LoadConfig(configFile, cmd.Flags())
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = c
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db-url", "", "database connection URL (sqlite://path or postgres://...)")
	rootCmd.PersistentFlags().StringVar(&playlistsPath, "playlists", "", "smart playlists JSON file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "log format (json, text)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// session is an open, migrated library database.
type session struct {
	conn    *sqlx.DB
	queries *db.Queries
	index   *library.Index
}

// openSession opens the configured database and refuses to work on an
// unmigrated schema. m may be nil.
func openSession(m *metrics.Metrics) (*session, error) {
	conn, err := db.Open(cfg.Library.DBURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	statuses, err := db.MigrateStatus(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to check migrations: %w", err)
	}
	for _, s := range statuses {
		if !s.Applied {
			conn.Close()
			return nil, fmt.Errorf("migration %s not applied - run 'smartlist migrate up' first", s.ID)
		}
	}

	queries, err := db.LoadQueries(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to load queries: %w", err)
	}

	reader := library.NewFileMetadataReader(cfg.Library.FFprobePath)
	if !reader.Probing() && cfg.Library.FFprobePath != "" {
		logger.Debug().Str("ffprobe", cfg.Library.FFprobePath).Msg("ffprobe not found, reading embedded tags only")
	}
	opts := []library.Option{library.WithMetadataReader(reader)}
	if m != nil {
		opts = append(opts, library.WithScanCounter(m.ScannedFiles))
	}
	return &session{
		conn:    conn,
		queries: queries,
		index:   library.NewIndex(queries, logger, opts...),
	}, nil
}

func (s *session) Close() error {
	return s.conn.Close()
}

package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/solatis/smartlist/internal/core/auth"
	"github.com/solatis/smartlist/internal/core/config"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage API keys for the gRPC service",
}

func openAuthenticator() (*auth.Authenticator, *session, error) {
	secrets, err := config.HMACSecrets()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load HMAC secrets: %w", err)
	}
	if len(secrets) == 0 {
		return nil, nil, fmt.Errorf("no HMAC secrets configured (set %s_HMAC_SECRET environment variable)", config.EnvPrefix)
	}
	signing, err := config.SigningSecretID()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load HMAC secrets: %w", err)
	}
	s, err := openSession(nil)
	if err != nil {
		return nil, nil, err
	}
	return auth.NewAuthenticator(secrets, s.queries, auth.WithSigningSecret(signing)), s, nil
}

var keysCreateCmd = &cobra.Command{
	Use:   "create <label>",
	Short: "Issue a new API key; the key is printed once",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, s, err := openAuthenticator()
		if err != nil {
			return err
		}
		defer s.Close()

		id, key, err := a.CreateKey(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "id:  %s\nkey: %s\n", id, key)
		return nil
	},
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List API keys",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, s, err := openAuthenticator()
		if err != nil {
			return err
		}
		defer s.Close()

		keys, err := a.ListKeys()
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tLABEL\tCREATED\tLAST USED\tREVOKED")
		for _, k := range keys {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", k.ID, k.Label,
				k.CreatedAt.Format(time.RFC3339), formatNullTime(k.LastUsedAt.Time, k.LastUsedAt.Valid),
				formatNullTime(k.RevokedAt.Time, k.RevokedAt.Valid))
		}
		return w.Flush()
	},
}

func formatNullTime(t time.Time, valid bool) string {
	if !valid {
		return "-"
	}
	return t.Format(time.RFC3339)
}

var keysRevokeCmd = &cobra.Command{
	Use:   "revoke <id>",
	Short: "Revoke an API key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, s, err := openAuthenticator()
		if err != nil {
			return err
		}
		defer s.Close()
		return a.RevokeKey(args[0])
	},
}

func init() {
	keysCmd.AddCommand(keysCreateCmd, keysListCmd, keysRevokeCmd)
	rootCmd.AddCommand(keysCmd)
}

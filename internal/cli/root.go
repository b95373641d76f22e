package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewRootCmd builds the studio command tree. Every command shares one viper
// instance so flags, .env and the environment resolve the same way as in the
// server.
func NewRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:           "studio",
		Short:         "Photo Studio CLI",
		Long:          "Runs AI image generations from the command line against the same storage and job proxy as the API server.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pflags := cmd.PersistentFlags()
	pflags.Int("poll-attempts", 0, "Maximum status checks (default from POLL_MAX_ATTEMPTS)")
	pflags.Duration("poll-interval", 0, "Delay between status checks (default from POLL_INTERVAL)")
	pflags.String("storage-backend", "", "supabase or s3 (default from STORAGE_BACKEND)")
	pflags.String("log-level", "", "Log level (default from LOG_LEVEL)")

	_ = v.BindPFlag("POLL_MAX_ATTEMPTS", pflags.Lookup("poll-attempts"))
	_ = v.BindPFlag("POLL_INTERVAL", pflags.Lookup("poll-interval"))
	_ = v.BindPFlag("STORAGE_BACKEND", pflags.Lookup("storage-backend"))
	_ = v.BindPFlag("LOG_LEVEL", pflags.Lookup("log-level"))

	cmd.AddCommand(newGenerateCmd(v))
	cmd.CompletionOptions.HiddenDefaultCmd = true
	return cmd
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

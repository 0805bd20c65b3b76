package main

import (
	"github.com/spf13/cobra"
)

// rootOptions holds the flags shared by every command
type rootOptions struct {
	configPath string
	sessionID  string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "linkscout",
		Short: "Detect file-hoster and magnet links in web pages",
		Long: `linkscout scans documents for links to supported file hosters and magnet URIs,
reports them, and optionally exchanges hoster links for direct downloads.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "",
		"path to the YAML/JSON configuration file (default: $LINKSCOUT_CONFIG_PATH, ./config.yaml or ./config.json)")
	cmd.PersistentFlags().StringVar(&opts.sessionID, "session", "",
		"session id used in logs and reports (default: random UUID)")

	cmd.AddCommand(newScanCommand(opts))
	cmd.AddCommand(newWatchCommand(opts))
	cmd.AddCommand(newPatternsCommand(opts))

	return cmd
}

package main

import (
	"fmt"
	"io"
	"time"

	"github.com/aleister1102/linkscout/internal/dom"
	"github.com/aleister1102/linkscout/internal/models"
	"github.com/aleister1102/linkscout/internal/preferences"
	"github.com/spf13/cobra"
)

func newPatternsCommand(root *rootOptions) *cobra.Command {
	var refresh time.Duration

	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "Print the current hoster pattern set",
		Long: `patterns fetches the hoster patterns from the background service and prints the
ones that compiled. With --refresh the cache is dropped and the set printed again
on every interval until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			a, err := newApp(root)
			if err != nil {
				return err
			}
			defer a.close()
			a.serveMetrics()

			bg, err := a.newBackground()
			if err != nil {
				return err
			}

			empty := dom.NewStatic(nil, nil)
			e := a.newEngine(ctx, empty, bg, preferences.NewMemory(models.DefaultPreferences()))

			out := cmd.OutOrStdout()
			printPatterns(out, e.Patterns(ctx).Sources())
			if refresh <= 0 {
				return nil
			}

			ticker := time.NewTicker(refresh)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					printPatterns(out, e.RefreshPatterns(ctx).Sources())
				}
			}
		},
	}

	cmd.Flags().DurationVar(&refresh, "refresh", 0, "refetch and print the pattern set on this interval")
	return cmd
}

func printPatterns(w io.Writer, sources []string) {
	for _, src := range sources {
		fmt.Fprintln(w, src)
	}
	fmt.Fprintf(w, "# %d patterns\n", len(sources))
}

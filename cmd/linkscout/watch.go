package main

import (
	"fmt"

	"github.com/aleister1102/linkscout/internal/preferences"
	"github.com/spf13/cobra"
)

func newWatchCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <url>",
		Short: "Render a page and keep its detected links current until interrupted",
		Long: `watch renders the page in headless Chrome, scans it, and rescans shortly after
new content is inserted. Auto-scan and auto-unrestrict follow the preference file,
which is reloaded when it changes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isRemote(args[0]) {
				return fmt.Errorf("watch needs an http(s) URL, got %q", args[0])
			}

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

			prefs, err := preferences.NewFile(a.cfg.PreferencesConfig, a.metrics, a.logger)
			if err != nil {
				return err
			}
			if err := prefs.Start(ctx); err != nil {
				return err
			}
			a.closers = append(a.closers, prefs.Close)

			page, closePage, err := openRenderedPage(ctx, a, args[0])
			if err != nil {
				return err
			}
			a.closers = append(a.closers, func() error {
				closePage()
				return nil
			})

			e := a.newEngine(ctx, page, bg, prefs)
			e.Start()

			a.logger.Info().Str("url", args[0]).Str("preferences", prefs.Path()).Msg("Watching page, press Ctrl+C to stop")
			<-ctx.Done()
			a.logger.Info().Msg("Shutting down")
			return nil
		},
	}
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"

	"github.com/aleister1102/linkscout/internal/crawler"
	"github.com/aleister1102/linkscout/internal/dom"
	"github.com/aleister1102/linkscout/internal/models"
	"github.com/aleister1102/linkscout/internal/preferences"
	"github.com/spf13/cobra"
)

func newScanCommand(root *rootOptions) *cobra.Command {
	var render bool

	cmd := &cobra.Command{
		Use:   "scan <url|file>",
		Short: "Scan one document and print the detected links as JSON",
		Args:  cobra.ExactArgs(1),
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

			doc, closeDoc, err := openDocument(ctx, a, args[0], render)
			if err != nil {
				return err
			}
			defer closeDoc()

			e := a.newEngine(ctx, doc, bg, preferences.NewMemory(models.DefaultPreferences()))
			resp := e.ScanPageLinks(ctx)
			if err := writeJSON(cmd.OutOrStdout(), resp); err != nil {
				return err
			}
			if !resp.Success {
				return fmt.Errorf("scan failed: %s", resp.Error)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&render, "render", false, "render the page in headless Chrome before scanning")
	return cmd
}

// openDocument resolves target to a document: http(s) URLs are fetched (or
// rendered), anything else is read as a local HTML file
func openDocument(ctx context.Context, a *app, target string, render bool) (dom.Document, func(), error) {
	noop := func() {}

	if !isRemote(target) {
		doc, err := readFileDocument(target)
		return doc, noop, err
	}

	if !render {
		doc, err := crawler.Fetch(ctx, target, crawler.FetchOptions{
			UserAgent: a.cfg.BrowserConfig.UserAgent,
			Timeout:   a.cfg.BrowserConfig.PageLoadTimeout(),
		}, a.logger)
		return doc, noop, err
	}

	page, closePage, err := openRenderedPage(ctx, a, target)
	if err != nil {
		return nil, noop, err
	}
	return page, closePage, nil
}

// openRenderedPage starts a browser and loads target in it
func openRenderedPage(ctx context.Context, a *app, target string) (*crawler.Page, func(), error) {
	browser := crawler.NewBrowser(a.cfg.BrowserConfig, a.logger)
	if err := browser.Start(); err != nil {
		return nil, nil, err
	}

	page, err := browser.Open(ctx, target)
	if err != nil {
		browser.Stop()
		return nil, nil, err
	}

	return page, func() {
		if err := page.Close(); err != nil {
			a.logger.Debug().Err(err).Msg("Failed to close page")
		}
		browser.Stop()
	}, nil
}

func isRemote(target string) bool {
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// readFileDocument loads a local HTML file based at its file:// URL
func readFileDocument(path string) (*dom.Static, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	f, err := os.Open(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	base := &url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return dom.NewStaticFromReader(f, base)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}


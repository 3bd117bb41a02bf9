package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"webrecon/internal/app"
	"webrecon/internal/config"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "webrecon",
	Short: "Web reconnaissance toolkit: crawl, probe, and fuse target intelligence",
	Long: `webrecon crawls targets with swappable engines (static HTML, headless
browser, depth-limited site walk), probes their network posture with
ping/dig/traceroute/nmap, and fuses both into enriched records shaped
for downstream vulnerability scanners.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "configs/config.yaml", "path to service configuration")
	rootCmd.AddCommand(crawlCmd, scanCmd, serveCmd)
}

// loadApp builds the pipeline from the configured settings. A missing config
// file falls back to defaults so the CLI works out of the box.
func loadApp() (*app.App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		def := config.Default()
		cfg = &def
	}
	logger, err := app.BuildLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}
	return app.New(cfg, logger)
}

// printJSON renders a payload for terminal consumption.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

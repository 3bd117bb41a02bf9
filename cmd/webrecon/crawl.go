package main

import (
	"context"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"webrecon/internal/engine"
	"webrecon/pkg/types"
)

var (
	crawlEngine      string
	crawlDepth       int
	crawlWithNetwork bool
)

var crawlCmd = &cobra.Command{
	Use:   "crawl <url>",
	Short: "Crawl a target and print the enriched record",
	Args:  cobra.ExactArgs(1),
	Example: `  webrecon crawl https://example.com
  webrecon crawl https://example.com --engine static
  webrecon crawl https://example.com --engine deep --depth 2
  webrecon crawl https://example.com --with-network`,
	RunE: func(cmd *cobra.Command, args []string) error {
		target := args[0]

		recon, err := loadApp()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		var (
			wg      sync.WaitGroup
			summary *types.NetworkSummary
		)
		if crawlWithNetwork {
			wg.Add(1)
			go func() {
				defer wg.Done()
				summary = recon.Scanner.Scan(ctx, target)
			}()
		}

		eng, fail := recon.Selector.Select(crawlEngine)
		if fail != nil {
			wg.Wait()
			return fail
		}
		result, crawlErr := eng.Crawl(ctx, engine.Request{URL: target, MaxDepth: crawlDepth})
		wg.Wait()
		if crawlErr != nil {
			return crawlErr
		}

		record, err := recon.Enricher.Enrich(result, summary)
		if err != nil {
			return err
		}

		out := map[string]any{
			"engine":         result.Engine,
			"raw_data":       result,
			"processed_data": record,
		}
		if summary != nil {
			out["network_scan"] = summary
		}
		return printJSON(out)
	},
}

func init() {
	crawlCmd.Flags().StringVarP(&crawlEngine, "engine", "e", types.EngineAuto, "crawl engine (auto, static, browser, deep)")
	crawlCmd.Flags().IntVarP(&crawlDepth, "depth", "d", 0, "crawl depth for the deep engine")
	crawlCmd.Flags().BoolVar(&crawlWithNetwork, "with-network", false, "run network probes alongside the crawl")
}

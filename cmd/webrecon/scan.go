package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"webrecon/internal/netscan"
	"webrecon/pkg/types"
)

var scanProbe string

var scanCmd = &cobra.Command{
	Use:   "scan <url-or-hostname>",
	Short: "Probe a target's network posture",
	Args:  cobra.ExactArgs(1),
	Example: `  webrecon scan example.com
  webrecon scan https://example.com --probe ping
  webrecon scan example.com --probe ports`,
	RunE: func(cmd *cobra.Command, args []string) error {
		target := args[0]

		recon, err := loadApp()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if scanProbe == "all" {
			return printJSON(recon.Scanner.Scan(ctx, target))
		}

		kind, err := probeKind(scanProbe)
		if err != nil {
			return err
		}
		hostname := netscan.ExtractHostname(target)
		if hostname == "" {
			return fmt.Errorf("no hostname in %q", target)
		}
		return printJSON(recon.Prober.Run(ctx, kind, hostname))
	},
}

func probeKind(name string) (types.ProbeKind, error) {
	switch name {
	case "ping":
		return types.ProbeReachability, nil
	case "dns":
		return types.ProbeResolve, nil
	case "traceroute":
		return types.ProbeTrace, nil
	case "ports":
		return types.ProbePortScan, nil
	default:
		return "", fmt.Errorf("unknown probe %q (want all, ping, dns, traceroute, or ports)", name)
	}
}

func init() {
	scanCmd.Flags().StringVarP(&scanProbe, "probe", "p", "all", "probe to run (all, ping, dns, traceroute, ports)")
}

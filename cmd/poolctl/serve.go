package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuemby/poolfs/pkg/log"
	"github.com/cuemby/poolfs/pkg/metrics"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Detect pools and expose their metrics until interrupted",
	Long: `serve detects every configured pool, starts one Collector per
pool on a polling ticker, and serves /metrics and /health over HTTP
until SIGINT/SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = cfg.MetricsAddr
		}
		if addr == "" {
			addr = ":9090"
		}

		pools, err := detectAll("serve")
		if err != nil {
			return fmt.Errorf("detect failed: %w", err)
		}

		collectors := make([]*metrics.Collector, 0, len(pools))
		for _, p := range pools {
			label := p.Pool.ID.String()
			if len(p.Pool.Volumes) > 0 {
				label = p.Pool.Volumes[0].Label
			}
			c := metrics.NewCollector(p, label)
			c.Start()
			collectors = append(collectors, c)
			metrics.UpdateComponent(label, true, "detected")
		}
		defer func() {
			for _, c := range collectors {
				c.Stop()
			}
		}()

		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		mux.Handle("/health", metrics.HealthHandler())
		mux.Handle("/ready", metrics.ReadyHandler())
		mux.Handle("/live", metrics.LivenessHandler())

		srv := &http.Server{Addr: addr, Handler: mux}
		go func() {
			log.Info(fmt.Sprintf("serving metrics on %s", addr))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Errorf("metrics server failed", err)
			}
		}()

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address for the metrics server (overrides config)")
}

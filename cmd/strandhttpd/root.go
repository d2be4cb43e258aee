package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/yhgu2000/strandhttp/executor"
	"github.com/yhgu2000/strandhttp/internal/obslog"
	"github.com/yhgu2000/strandhttp/internal/obsmetrics"
	"github.com/yhgu2000/strandhttp/internal/obsmetrics/promadapter"
	"github.com/yhgu2000/strandhttp/manifest"
	"github.com/yhgu2000/strandhttp/server"
)

// version is overridden at build time via -ldflags "-X main.version=...".
var version = "dev"

func newRootCommand() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:           "strandhttpd [manifest]",
		Short:         "Run HTTP servers described by a manifest file",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoot(cmd, args, v)
		},
	}

	flags := cmd.Flags()
	flags.BoolP("version", "v", false, "print version and exit")
	flags.StringP("log", "l", "info", "severity threshold (verb|info|noti|warn|crit|fatal|debug)")
	flags.IntP("threads", "t", 4, "worker thread count")
	flags.Bool("manifest-example", false, "print a sample manifest and exit")
	flags.String("manifest", "", "path to the manifest file to load (may also be given positionally)")
	flags.String("metrics-addr", "", "if set, serve Prometheus metrics on this address")

	bind := func(key string, flag string, env string) {
		_ = v.BindPFlag(key, flags.Lookup(flag))
		_ = v.BindEnv(key, env)
	}
	bind("log", "log", "STRANDHTTPD_LOG")
	bind("threads", "threads", "STRANDHTTPD_THREADS")
	bind("manifest", "manifest", "STRANDHTTPD_MANIFEST")
	bind("metrics-addr", "metrics-addr", "STRANDHTTPD_METRICS_ADDR")

	return cmd
}

func runRoot(cmd *cobra.Command, args []string, v *viper.Viper) error {
	if ok, _ := cmd.Flags().GetBool("version"); ok {
		fmt.Fprintf(cmd.OutOrStdout(), "strandhttpd %s\n", version)
		return nil
	}

	if ok, _ := cmd.Flags().GetBool("manifest-example"); ok {
		return printManifestExample(cmd)
	}

	path := v.GetString("manifest")
	if path == "" && len(args) == 1 {
		path = args[0]
	}
	if path == "" {
		return cmd.Help()
	}

	threshold, err := obslog.ParseThreshold(v.GetString("log"))
	if err != nil {
		return fmt.Errorf("invalid argument %q for \"-l, --log\" flag: %w", v.GetString("log"), err)
	}
	base := obslog.New(obslog.NewBase(threshold), "strandhttpd")

	data, err := os.ReadFile(path)
	if err != nil {
		return newDomainError(fmt.Errorf("reading manifest: %w", err))
	}
	m, err := manifest.Load(data)
	if err != nil {
		return newDomainError(err)
	}

	threads := v.GetInt("threads")
	if threads < 1 {
		threads = 1
	}
	exec := executor.New(threads, threads*4, zap.NewNop())
	exec.Start(threads)
	defer exec.Stop()

	var metrics obsmetrics.Metrics = obsmetrics.NopMetrics{}
	if addr := v.GetString("metrics-addr"); addr != "" {
		reg := prometheus.NewRegistry()
		metrics = promadapter.New(reg, "strandhttpd", "")
		go serveMetrics(addr, reg, base)
	}

	servers, err := m.Build(exec, base, metrics)
	if err != nil {
		return newDomainError(err)
	}

	started := make(map[string]bool, len(servers))
	for name, s := range servers {
		cfg := m[name]
		if err := s.Start(cfg.Endpoint()); err != nil {
			stopStarted(servers, started)
			return newDomainError(fmt.Errorf("starting server %q: %w", name, err))
		}
		started[name] = true
		base.Noti("server started", zap.String("name", name), zap.String("addr", cfg.Endpoint()))
	}

	waitForSignal(cmd.Context())
	stopStarted(servers, started)
	return nil
}

func stopStarted(servers map[string]*server.Server, started map[string]bool) {
	for name, ok := range started {
		if !ok {
			continue
		}
		_ = servers[name].Stop()
	}
}

func serveMetrics(addr string, reg *prometheus.Registry, log *obslog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Warn("metrics server stopped", zap.Error(err))
	}
}

func waitForSignal(ctx context.Context) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(ch)
	select {
	case <-ch:
	case <-ctx.Done():
	}
}

func printManifestExample(cmd *cobra.Command) error {
	data, err := json.MarshalIndent(manifest.Example(), "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

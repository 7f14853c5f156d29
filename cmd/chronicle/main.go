package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/tbrennan/chronicle/pkg/collector"
	"github.com/tbrennan/chronicle/pkg/config"
	"github.com/tbrennan/chronicle/pkg/daemonctl"
	"github.com/tbrennan/chronicle/pkg/events"
	"github.com/tbrennan/chronicle/pkg/graph"
	"github.com/tbrennan/chronicle/pkg/log"
	"github.com/tbrennan/chronicle/pkg/metrics"
	"github.com/tbrennan/chronicle/pkg/reporting"
	"github.com/tbrennan/chronicle/pkg/store"
	"github.com/tbrennan/chronicle/pkg/supervisor"
	"github.com/tbrennan/chronicle/pkg/types"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "chronicle",
	Short: "Chronicle - a private, local activity journal",
	Long: `Chronicle watches your own filesystem, git repositories, shell
history, running processes, and browser history, and turns that stream
into a local activity graph you can query. Everything stays on disk in
your data directory; nothing is ever sent over the network.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"chronicle version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error); overrides config")
	rootCmd.PersistentFlags().Bool("log-json", false, "Force JSON log output")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(explainCmd)
	rootCmd.AddCommand(traceCmd)
	rootCmd.AddCommand(switchesCmd)
	rootCmd.AddCommand(stallsCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(graphStatsCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("chronicle version %s\nCommit: %s\nBuilt: %s\n", Version, Commit, BuildTime)
		return nil
	},
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	cfg, err := config.Load()
	level := log.InfoLevel
	jsonOut := true
	if err == nil {
		level = log.Level(cfg.LogLevel)
		jsonOut = cfg.LogJSON
	}
	if logLevel != "" {
		level = log.Level(logLevel)
	}
	if logJSON {
		jsonOut = true
	}

	log.Init(log.Config{Level: level, JSONOutput: jsonOut})
}

// openComponents loads the store and graph a read-only command needs.
// Callers are responsible for closing the store.
func openComponents(cfg *config.Config) (store.Interface, *graph.Graph, error) {
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, nil, fmt.Errorf("create data directory: %w", err)
	}

	s, err := store.Open(cfg.DatabasePath())
	if err != nil {
		return nil, nil, fmt.Errorf("open event store: %w", err)
	}

	g := graph.New()
	if err := g.Load(cfg.GraphPath()); err != nil {
		log.Logger.Warn().Err(err).Msg("failed to load activity graph, starting empty")
	}

	return s, g, nil
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the chronicle daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		foreground, _ := cmd.Flags().GetBool("foreground")
		verbose, _ := cmd.Flags().GetBool("verbose")
		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if verbose {
			cfg.LogLevel = "debug"
		}
		log.Init(log.Config{Level: log.Level(cfg.LogLevel), JSONOutput: cfg.LogJSON})

		if err := cfg.EnsureDataDir(); err != nil {
			return fmt.Errorf("create data directory: %w", err)
		}

		if pid, alive := daemonctl.Running(cfg.PIDFilePath()); alive {
			return fmt.Errorf("chronicle is already running (pid %d)", pid)
		}

		if !foreground {
			fmt.Println("Chronicle only runs in the foreground in this build; use --foreground or run it under your own supervisor (systemd, launchd).")
		}

		s, err := store.Open(cfg.DatabasePath())
		if err != nil {
			return fmt.Errorf("open event store: %w", err)
		}
		defer s.Close()

		g := graph.New()
		if err := g.Load(cfg.GraphPath()); err != nil {
			log.Logger.Warn().Err(err).Msg("failed to load activity graph, starting empty")
		}

		broker := events.NewBroker()
		broker.Start()
		defer broker.Stop()

		sup := supervisor.New(s, g, broker, cfg.GraphPath(), log.Logger)
		registerCollectors(sup, cfg)

		if err := daemonctl.Write(cfg.PIDFilePath()); err != nil {
			return fmt.Errorf("write pid file: %w", err)
		}
		defer daemonctl.Remove(cfg.PIDFilePath())

		if metricsAddr != "" {
			go serveMetrics(metricsAddr)
		}

		ctx, cancel := context.WithCancel(context.Background())
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sigCh
			log.Logger.Info().Msg("received shutdown signal")
			cancel()
		}()

		log.Logger.Info().Str("data_dir", cfg.DataDir).Msg("chronicle daemon starting")
		err = sup.Run(ctx)
		log.Logger.Info().Msg("chronicle daemon stopped")
		return err
	},
}

// serveMetrics exposes the private Prometheus registry over HTTP, opt-in
// only: Chronicle defaults to no network surface at all.
func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	log.Logger.Info().Str("addr", addr).Msg("metrics endpoint listening (opt-in)")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Logger.Error().Err(err).Msg("metrics server stopped")
	}
}

func registerCollectors(sup *supervisor.Supervisor, cfg *config.Config) {
	sup.Register(collector.NewFilesystem(cfg.WatchPaths, log.WithCollector("filesystem")))
	sup.Register(collector.NewGit(cfg.WatchPaths, cfg.ProcessPollInterval, log.WithCollector("git")))
	sup.Register(collector.NewProcess(cfg.ProcessPollInterval, log.WithCollector("process")))
	sup.Register(collector.NewTerminal(cfg.ShellHistoryPaths(), cfg.ShellHistoryPollInterval, log.WithCollector("terminal")))
	sup.Register(collector.NewBrowser(cfg.ChromeHistoryPath, cfg.FirefoxHistoryPath, cfg.BrowserPollInterval, log.WithCollector("browser")))
}

func init() {
	startCmd.Flags().Bool("foreground", false, "Run attached to this terminal (currently the only supported mode)")
	startCmd.Flags().Bool("verbose", false, "Force debug-level logging")
	startCmd.Flags().String("metrics-addr", "", "Optional host:port to expose Prometheus metrics on (default: disabled)")
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running chronicle daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		pid, alive := daemonctl.Running(cfg.PIDFilePath())
		if !alive {
			return fmt.Errorf("chronicle is not running")
		}

		if err := daemonctl.Terminate(pid); err != nil {
			return fmt.Errorf("stop daemon (pid %d): %w", pid, err)
		}
		fmt.Printf("Sent stop signal to chronicle (pid %d)\n", pid)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether chronicle is running and summarize recent activity",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		if pid, alive := daemonctl.Running(cfg.PIDFilePath()); alive {
			fmt.Printf("chronicle is running (pid %d)\n", pid)
		} else {
			fmt.Println("chronicle is not running")
		}

		s, g, err := openComponents(cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		stats := g.Stats()
		count, err := s.Count(time.Time{}, time.Now())
		if err != nil {
			return fmt.Errorf("count events: %w", err)
		}

		fmt.Printf("events stored: %d\n", count)
		fmt.Printf("graph nodes: %d, edges: %d\n", stats.Nodes, stats.Edges)
		return nil
	},
}

var explainCmd = &cobra.Command{
	Use:   "explain",
	Short: "Explain recent activity as a Markdown narrative",
	RunE: func(cmd *cobra.Command, args []string) error {
		last, _ := cmd.Flags().GetString("last")
		d, err := parseDuration(last)
		if err != nil {
			return err
		}

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		s, g, err := openComponents(cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		narrative, err := reporting.New(s, g).ExplainLast(d)
		if err != nil {
			return err
		}
		fmt.Print(narrative)
		return nil
	},
}

func init() {
	explainCmd.Flags().String("last", "1h", "Lookback duration: <n>, <n>m, <n>h, or <n>d")
}

var traceCmd = &cobra.Command{
	Use:   "trace <subject>",
	Short: "Trace a subject's (file, URL, repository) activity history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		s, g, err := openComponents(cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		narrative, err := reporting.New(s, g).TraceSubject(args[0])
		if err != nil {
			return err
		}
		fmt.Print(narrative)
		return nil
	},
}

var switchesCmd = &cobra.Command{
	Use:   "switches",
	Short: "Report context switches detected in the last 8 hours",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		s, g, err := openComponents(cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		narrative, err := reporting.New(s, g).ExplainContextSwitches()
		if err != nil {
			return err
		}
		fmt.Print(narrative)
		return nil
	},
}

var stallsCmd = &cobra.Command{
	Use:   "stalls",
	Short: "Report stalled work detected in the last 24 hours",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		s, g, err := openComponents(cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		narrative, err := reporting.New(s, g).ExplainStalls()
		if err != nil {
			return err
		}
		fmt.Print(narrative)
		return nil
	},
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List recent events",
	RunE: func(cmd *cobra.Command, args []string) error {
		last, _ := cmd.Flags().GetString("last")
		limit, _ := cmd.Flags().GetInt("limit")
		eventType, _ := cmd.Flags().GetString("type")

		d, err := parseDuration(last)
		if err != nil {
			return err
		}

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		s, _, err := openComponents(cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		var eventTypes []types.EventType
		if eventType != "" {
			eventTypes = []types.EventType{types.EventType(eventType)}
		}

		results, err := s.Range(time.Now().Add(-d), time.Now(), eventTypes, nil, limit)
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}

		for _, e := range results {
			fmt.Printf("%s  %-20s  %s\n", e.Timestamp.Format("2006-01-02 15:04:05"), e.EventType, e.Subject)
		}
		return nil
	},
}

func init() {
	eventsCmd.Flags().String("last", "24h", "Lookback duration: <n>, <n>m, <n>h, or <n>d")
	eventsCmd.Flags().Int("limit", 100, "Maximum number of events to show")
	eventsCmd.Flags().String("type", "", "Filter to a single event type, e.g. file.modify")
}

var graphStatsCmd = &cobra.Command{
	Use:   "graph-stats",
	Short: "Show activity graph statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		s, g, err := openComponents(cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		stats := g.Stats()
		fmt.Printf("nodes: %d\n", stats.Nodes)
		fmt.Printf("edges: %d\n", stats.Edges)

		top := g.MostConnected(10)
		if len(top) > 0 {
			fmt.Println("\nmost connected:")
			for _, nw := range top {
				fmt.Printf("  %s (degree %d)\n", nw.NodeID, nw.Weight)
			}
		}
		return nil
	},
}

// parseDuration accepts the spec's duration grammar: a bare integer
// means seconds, otherwise a trailing m/h/d unit.
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}

	unit := s[len(s)-1]
	switch unit {
	case 'm', 'h', 'd':
		n, err := strconv.Atoi(s[:len(s)-1])
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", s, err)
		}
		switch unit {
		case 'm':
			return time.Duration(n) * time.Minute, nil
		case 'h':
			return time.Duration(n) * time.Hour, nil
		case 'd':
			return time.Duration(n) * 24 * time.Hour, nil
		}
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return time.Duration(n) * time.Second, nil
}

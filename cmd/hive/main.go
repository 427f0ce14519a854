package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaveen-balasooriya/hive/internal/collector"
	"github.com/shaveen-balasooriya/hive/internal/honeypot"
	"github.com/shaveen-balasooriya/hive/internal/httpapi"
	"github.com/shaveen-balasooriya/hive/internal/log"
	"github.com/shaveen-balasooriya/hive/internal/loginfra"
	"github.com/shaveen-balasooriya/hive/internal/runtime"
	"github.com/shaveen-balasooriya/hive/internal/worker"
)

var (
	// Version information (set via ldflags during build)
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "hive",
	Short: "H.I.V.E - Honeypot Infrastructure & Vulnerability Emulation control plane",
	Long: `H.I.V.E operates a fleet of containerized honeypots and the log
pipeline that ingests, enriches, and indexes the traffic they attract,
delivered as three run modes of a single binary.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("hive version %s\nCommit: %s\n", Version, Commit))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().String("podman-binary", runtime.DefaultBinary, "Path or name of the rootless container runtime binary")
	rootCmd.PersistentFlags().Duration("podman-timeout", runtime.DefaultTimeout, "Default timeout for a single runtime invocation")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(honeypotAPICmd)
	rootCmd.AddCommand(loginfraAPICmd)
	rootCmd.AddCommand(logCollectorCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

func newDriver(cmd *cobra.Command) (*runtime.Driver, error) {
	binary, _ := cmd.Flags().GetString("podman-binary")
	timeout, _ := cmd.Flags().GetDuration("podman-timeout")
	return runtime.New(binary, timeout)
}

// waitForShutdown blocks until SIGINT/SIGTERM or srv reports an error,
// then gracefully shuts srv down.
func waitForShutdown(srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		fmt.Println("\nShutting down...")
	case err := <-errCh:
		fmt.Fprintf(os.Stderr, "\n%v\n", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown: %w", err)
	}
	fmt.Println("✓ Shutdown complete")
	return nil
}

var honeypotAPICmd = &cobra.Command{
	Use:   "honeypot-api",
	Short: "Run the Honeypot API (spec.md §6.1)",
	RunE: func(cmd *cobra.Command, args []string) error {
		listenAddr, _ := cmd.Flags().GetString("listen")
		catalogPath, _ := cmd.Flags().GetString("catalog")
		poolSize, _ := cmd.Flags().GetInt("worker-pool-size")
		pollInterval, _ := cmd.Flags().GetDuration("catalog-poll-interval")

		driver, err := newDriver(cmd)
		if err != nil {
			return err
		}

		catalogLoader := honeypot.NewCatalogLoader(catalogPath)
		stop := make(chan struct{})
		go catalogLoader.PollLoop(pollInterval, stop)
		defer close(stop)

		manager := honeypot.New(driver, catalogLoader)
		pool := worker.New(poolSize)

		handler := httpapi.WithObservability(httpapi.NewHoneypotAPI(manager, pool))
		srv := &http.Server{Addr: listenAddr, Handler: handler}

		fmt.Printf("Honeypot API listening on %s\n", listenAddr)
		return waitForShutdown(srv)
	},
}

func init() {
	honeypotAPICmd.Flags().String("listen", "0.0.0.0:8080", "HTTP listen address")
	honeypotAPICmd.Flags().String("catalog", "", "Path to the honeypot type catalog document (YAML)")
	honeypotAPICmd.Flags().Int("worker-pool-size", 0, "Worker pool size (0 = GOMAXPROCS)")
	honeypotAPICmd.Flags().Duration("catalog-poll-interval", 10*time.Second, "Interval between catalog document reload checks")
}

var loginfraAPICmd = &cobra.Command{
	Use:   "loginfra-api",
	Short: "Run the Log-Infra API (spec.md §6.2)",
	RunE: func(cmd *cobra.Command, args []string) error {
		listenAddr, _ := cmd.Flags().GetString("listen")
		poolSize, _ := cmd.Flags().GetInt("worker-pool-size")

		searchImage, _ := cmd.Flags().GetString("search-image")
		dashboardImage, _ := cmd.Flags().GetString("dashboard-image")
		busImage, _ := cmd.Flags().GetString("bus-image")
		collectorContext, _ := cmd.Flags().GetString("collector-build-context")
		searchUser, _ := cmd.Flags().GetString("search-user")

		searchHost, _ := cmd.Flags().GetString("search-host")
		searchPassword, _ := cmd.Flags().GetString("search-password")
		busURL, _ := cmd.Flags().GetString("bus-url")

		driver, err := newDriver(cmd)
		if err != nil {
			return err
		}

		orch := loginfra.New(driver, loginfra.Config{
			SearchImage:      searchImage,
			DashboardImage:   dashboardImage,
			MessageBusImage:  busImage,
			CollectorContext: collectorContext,
			SearchUser:       searchUser,
		})
		pool := worker.New(poolSize)

		collectorEnv := loginfra.LogCollectorEnv{
			SearchHost:     searchHost,
			SearchUser:     searchUser,
			SearchPassword: searchPassword,
			BusURL:         busURL,
		}

		handler := httpapi.WithObservability(httpapi.NewLogInfraAPI(orch, collectorEnv, pool))
		srv := &http.Server{Addr: listenAddr, Handler: handler}

		fmt.Printf("Log-Infra API listening on %s\n", listenAddr)
		return waitForShutdown(srv)
	},
}

func init() {
	loginfraAPICmd.Flags().String("listen", "0.0.0.0:8081", "HTTP listen address")
	loginfraAPICmd.Flags().Int("worker-pool-size", 0, "Worker pool size (0 = GOMAXPROCS)")
	loginfraAPICmd.Flags().String("search-image", "opensearchproject/opensearch:2", "OpenSearch node image")
	loginfraAPICmd.Flags().String("dashboard-image", "opensearchproject/opensearch-dashboards:2", "OpenSearch Dashboards image")
	loginfraAPICmd.Flags().String("bus-image", "nats:2-alpine", "NATS JetStream image")
	loginfraAPICmd.Flags().String("collector-build-context", "log-collector", "Build context directory for the log-collector image")
	loginfraAPICmd.Flags().String("search-user", "admin", "OpenSearch admin username")
	loginfraAPICmd.Flags().String("search-password", "", "OpenSearch admin password passed through to the log collector's environment")
	loginfraAPICmd.Flags().String("search-host", "https://hive-search-node:9200", "OpenSearch host the collector connects to, from inside hive-net")
	loginfraAPICmd.Flags().String("bus-url", "nats://hive-bus:4222", "NATS URL the collector connects to, from inside hive-net")
}

var logCollectorCmd = &cobra.Command{
	Use:   "log-collector",
	Short: "Run the Log Collector daemon (spec.md §4.6)",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Environment variables fill in any connection flag not given
		// on the command line.
		for flag, env := range map[string]string{
			"search-host":     "OPENSEARCH_HOST",
			"search-user":     "OPENSEARCH_USER",
			"search-password": "OPENSEARCH_PASSWORD",
			"bus-url":         "NATS_URL",
		} {
			if v := os.Getenv(env); v != "" && !cmd.Flags().Changed(flag) {
				_ = cmd.Flags().Set(flag, v)
			}
		}

		geoPath, _ := cmd.Flags().GetString("geo-database")
		searchHost, _ := cmd.Flags().GetString("search-host")
		searchUser, _ := cmd.Flags().GetString("search-user")
		searchPassword, _ := cmd.Flags().GetString("search-password")
		busURL, _ := cmd.Flags().GetString("bus-url")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		daemon, err := collector.Boot(ctx, collector.Config{
			GeoDatabasePath: geoPath,
			Search: collector.IndexConfig{
				Host:     searchHost,
				Username: searchUser,
				Password: searchPassword,
			},
			BusURL: busURL,
		})
		if err != nil {
			return fmt.Errorf("failed to boot log collector: %w", err)
		}
		defer daemon.Close()

		errCh := make(chan error, 1)
		go func() {
			errCh <- daemon.Run(ctx)
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		fmt.Println("Log collector running. Press Ctrl+C to stop.")
		select {
		case <-sigCh:
			fmt.Println("\nShutting down...")
			cancel()
			<-errCh
		case err := <-errCh:
			if err != nil {
				fmt.Fprintf(os.Stderr, "\ncollector error: %v\n", err)
			}
		}
		fmt.Println("✓ Shutdown complete")
		return nil
	},
}

func init() {
	logCollectorCmd.Flags().String("geo-database", "/etc/hive/GeoLite2-City.mmdb", "Path to the MaxMind GeoIP2 City database")
	logCollectorCmd.Flags().String("search-host", "https://hive-search-node:9200", "OpenSearch host")
	logCollectorCmd.Flags().String("search-user", "admin", "OpenSearch username")
	logCollectorCmd.Flags().String("search-password", "", "OpenSearch password")
	logCollectorCmd.Flags().String("bus-url", "nats://hive-bus:4222", "NATS URL")
}

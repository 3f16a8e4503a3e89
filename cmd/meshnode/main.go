// Command meshnode runs a single LoRa mesh repeater node: it loads
// its configuration and identity, wires the mesh stack together, and
// drives Mesh.Loop until interrupted.
package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/NyanHelsing/MeshCore/board"
	"github.com/NyanHelsing/MeshCore/config"
	"github.com/NyanHelsing/MeshCore/core/clock"
	applog "github.com/NyanHelsing/MeshCore/core/log"
	"github.com/NyanHelsing/MeshCore/identitystore"
	"github.com/NyanHelsing/MeshCore/internal/instrument"
	"github.com/NyanHelsing/MeshCore/mesh"
	"github.com/NyanHelsing/MeshCore/mesh/repeater"
)

var configPath string
var metricsAddr string

func main() {
	root := &cobra.Command{
		Use:   "meshnode",
		Short: "Run a LoRa mesh repeater node",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "meshnode.toml", "path to node configuration")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Start the node and drive its cooperative loop",
		RunE:  runNode,
	}
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "if set, serve Prometheus metrics on this address")
	root.AddCommand(runCmd)

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the firmware version string",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(repeater.FirmwareVerText)
			return nil
		},
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runNode(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	backend, err := applog.New(cfg.LogFile, cfg.LogLevel, false)
	if err != nil {
		return err
	}
	log := backend.GetLogger("meshnode")

	identity, err := identitystore.Load(cfg.IdentityPath)
	if err != nil {
		return err
	}
	defer identity.Reset()

	brd := board.NewGeneric(cfg.Name, os.Exit)
	millis := clock.NewSystemMillis()
	rtc := clock.NewSystemRTC(1715770351) // matches ESP32RTCClock's cold-boot seed

	medium := mesh.NewMemoryMedium()
	radio := medium.NewRadio(cfg.Name, 5470) // SF10/BW250 LoRa throughput approximation

	app, err := repeater.New(identity, cfg, brd, millis, rtc, log)
	if err != nil {
		return err
	}

	metrics := instrument.New()
	m := mesh.New(radio, identity, app, millis, cfg.PoolCapacity, cfg.DedupCapacity, metrics)
	app.Attach(m)
	if err := m.Begin(); err != nil {
		return fmt.Errorf("mesh: begin: %w", err)
	}

	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: metricsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Errorf("metrics server: %v", err)
			}
		}()
		defer srv.Close()
	}

	log.Noticef("node %q up, hash_id %02x", cfg.Name, identity.HashID())

	consoleLines := make(chan string)
	go func() {
		if err := repeater.ReadLocalCommandLines(os.Stdin, consoleLines); err != nil {
			log.Errorf("local console: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Notice("shutting down")
			return nil
		case line, ok := <-consoleLines:
			if !ok {
				consoleLines = nil
				continue
			}
			fmt.Println(app.HandleLocalCommand(line))
		case <-ticker.C:
			m.Loop()
			metrics.Sample(m.Router.TotalAirTimeMillis(), millis.Millis(), m.Router.QueueLen())
		}
	}
}

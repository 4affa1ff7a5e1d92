// Command rangescan reads a spinning-mirror LiDAR over a serial port,
// decodes its packets into revolutions and publishes the filtered scan.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"tailscale.com/tsweb"

	"github.com/banshee-data/rangescan/internal/config"
	"github.com/banshee-data/rangescan/internal/lidar/pipeline"
	"github.com/banshee-data/rangescan/internal/lidar/visualiser"
	"github.com/banshee-data/rangescan/internal/serialmux"
	"github.com/banshee-data/rangescan/internal/version"
)

var (
	portPath    = flag.String("port", "/dev/ttyUSB0", "Serial port the sensor is attached to (ignored with -replay)")
	configPath  = flag.String("config", "", "Path to scan configuration JSON (built-in defaults when empty)")
	replayPath  = flag.String("replay", "", "Replay a captured byte stream instead of opening the serial port")
	listen      = flag.String("listen", ":8081", "Admin/debug HTTP listen address (empty disables)")
	plotDir     = flag.String("plot-dir", "", "Write one PNG per revolution into this directory (empty disables)")
	logReadings = flag.Bool("log-readings", false, "Log every accepted reading")
	listPorts   = flag.Bool("list-ports", false, "List available serial ports and exit")
	showVersion = flag.Bool("version", false, "Print version information and exit")
)

// loadConfig returns the built-in defaults when path is empty.
func loadConfig(path string) (*config.ScanConfig, error) {
	if path == "" {
		return config.DefaultScanConfig(), nil
	}
	return config.LoadScanConfig(path)
}

// openSource opens the replay file when one is given, otherwise the serial
// port through factory.
func openSource(factory serialmux.SerialPortFactory, cfg *config.ScanConfig, port, replay string) (serialmux.SerialPorter, error) {
	opts, err := cfg.PortOptions().Normalise()
	if err != nil {
		return nil, err
	}
	if replay != "" {
		return serialmux.OpenReplayFile(replay, opts.BaudRate)
	}
	if port == "" {
		return nil, errors.New("serial port is required")
	}
	return factory.Open(port, opts)
}

func pipelineOptions(cfg *config.ScanConfig) pipeline.Options {
	return pipeline.Options{
		SensorID:       cfg.GetSensorID(),
		StrictChecksum: cfg.GetStrictChecksum(),
		MinDistanceMM:  uint16(cfg.GetMinDistanceMM()),
		MaxDistanceMM:  uint16(cfg.GetMaxDistanceMM()),
		RevolutionSize: cfg.GetRevolutionSize(),
	}
}

// runPipeline drives p from src until ctx ends or the source closes. A
// cancelled context is a clean exit.
func runPipeline(ctx context.Context, p *pipeline.Pipeline, src io.Reader) error {
	err := p.Run(ctx, src)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}
	if *listPorts {
		ports, err := serialmux.ListPorts()
		if err != nil {
			log.Fatalf("failed to list serial ports: %v", err)
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	src, err := openSource(serialmux.NewRealSerialPortFactory(), cfg, *portPath, *replayPath)
	if err != nil {
		log.Fatalf("failed to open lidar source: %v", err)
	}
	defer src.Close()
	if *replayPath != "" {
		log.Printf("replaying %s", *replayPath)
	} else {
		log.Printf("opened %s (%s)", *portPath, cfg.PortOptions())
	}

	chart := visualiser.NewChartSink(float64(cfg.GetMaxDistanceMM()))
	tail := pipeline.NewBroadcaster()
	sinks := pipeline.MultiSink{pipeline.LogSink{Readings: *logReadings}, chart, tail}
	if *plotDir != "" {
		ps, err := visualiser.NewPlotSink(*plotDir, float64(cfg.GetMaxDistanceMM()))
		if err != nil {
			log.Fatalf("failed to create plot sink: %v", err)
		}
		sinks = append(sinks, ps)
	}
	p := pipeline.New(pipelineOptions(cfg), sinks)

	var wg sync.WaitGroup
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	// pipeline routine; the stream ending shuts everything else down
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		if err := runPipeline(ctx, p, src); err != nil {
			log.Printf("pipeline stopped: %v", err)
		}
		log.Print("pipeline routine terminated")
	}()

	if *listen != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()

			mux := http.NewServeMux()
			debug := tsweb.Debugger(mux)
			debug.KV("version", version.String())
			p.AttachAdminRoutes(debug)
			chart.AttachAdminRoutes(debug)
			tail.AttachAdminRoutes(debug)

			server := &http.Server{
				Addr:    *listen,
				Handler: mux,
			}

			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Printf("failed to start server: %v", err)
					cancel()
				}
			}()

			<-ctx.Done()
			log.Println("shutting down HTTP server...")
			// end open event streams so Shutdown does not wait on them
			tail.Close()

			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 1*time.Second)
			defer cancelShutdown()

			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Printf("HTTP server shutdown error: %v", err)
				if err := server.Close(); err != nil {
					log.Printf("HTTP server force close error: %v", err)
				}
			}

			log.Printf("HTTP server routine stopped")
		}()
	}

	wg.Wait()

	st := p.Stats()
	log.Printf("stats: bytes=%d discarded=%d packets=%d angle_rejected=%d checksum_failures=%d strict_drops=%d out_of_band=%d revolutions=%d filtered_points=%d",
		st.BytesRead, st.BytesDiscarded, st.Packets, st.AngleRejected, st.ChecksumFailures,
		st.StrictDrops, st.ReadingsOutOfBand, st.Revolutions, st.FilteredPoints)
	log.Printf("Graceful shutdown complete")
}

package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/banshee-data/rangescan/internal/config"
	"github.com/banshee-data/rangescan/internal/lidar/l1packets"
	"github.com/banshee-data/rangescan/internal/lidar/l2frames"
	"github.com/banshee-data/rangescan/internal/lidar/l3filter"
	"github.com/banshee-data/rangescan/internal/lidar/pipeline"
	"github.com/banshee-data/rangescan/internal/serialmux"
)

func TestFlagDefaults(t *testing.T) {
	if *portPath != "/dev/ttyUSB0" {
		t.Errorf("expected port default /dev/ttyUSB0, got %q", *portPath)
	}
	if *listen != ":8081" {
		t.Errorf("expected listen default :8081, got %q", *listen)
	}
	if *replayPath != "" || *plotDir != "" || *configPath != "" {
		t.Errorf("expected replay, plot-dir and config to default empty")
	}
	if *logReadings {
		t.Errorf("expected log-readings default false")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	opts := pipelineOptions(cfg)
	if opts.MinDistanceMM != 100 || opts.MaxDistanceMM != 3000 || opts.RevolutionSize != 360 {
		t.Errorf("unexpected pipeline options %+v", opts)
	}
	if opts.StrictChecksum {
		t.Errorf("strict checksum should default off")
	}
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.json")
	if err := os.WriteFile(path, []byte(`{"strict_checksum": true, "revolution_size": 90}`), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	opts := pipelineOptions(cfg)
	if !opts.StrictChecksum || opts.RevolutionSize != 90 {
		t.Errorf("unexpected pipeline options %+v", opts)
	}
}

func TestOpenSource_SerialPort(t *testing.T) {
	port := serialmux.NewTestableSerialPort()
	factory := serialmux.NewMockSerialPortFactory(port)

	src, err := openSource(factory, config.DefaultScanConfig(), "/dev/ttyUSB3", "")
	if err != nil {
		t.Fatalf("openSource: %v", err)
	}
	if src != port {
		t.Errorf("expected the factory's port to be returned")
	}
	call := factory.LastCall()
	if call == nil {
		t.Fatal("factory was not called")
	}
	if call.Path != "/dev/ttyUSB3" {
		t.Errorf("opened %q, want /dev/ttyUSB3", call.Path)
	}
	if call.Options.BaudRate != 115200 || call.Options.ReadTimeout != 10*time.Millisecond {
		t.Errorf("unexpected options %+v", call.Options)
	}
}

func TestOpenSource_Errors(t *testing.T) {
	factory := serialmux.NewMockSerialPortFactory(nil)
	if _, err := openSource(factory, config.DefaultScanConfig(), "", ""); err == nil {
		t.Error("expected error for empty port")
	}

	factory.Error = errors.New("permission denied")
	if _, err := openSource(factory, config.DefaultScanConfig(), "/dev/ttyUSB0", ""); err == nil {
		t.Error("expected factory error to propagate")
	}

	if _, err := openSource(factory, config.DefaultScanConfig(), "", filepath.Join(t.TempDir(), "missing.bin")); err == nil {
		t.Error("expected error for missing replay file")
	}
}

func TestReplayEndToEnd(t *testing.T) {
	var capture bytes.Buffer
	for i := 0; i < 90; i++ {
		p := l1packets.EncodePacket(byte(l1packets.AngleBaseOffset+i), 300*64, [4]uint16{800, 800, 800, 800})
		capture.Write(p[:])
	}
	path := filepath.Join(t.TempDir(), "capture.bin")
	if err := os.WriteFile(path, capture.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultScanConfig()
	src, err := openSource(nil, cfg, "", path)
	if err != nil {
		t.Fatalf("openSource: %v", err)
	}
	defer src.Close()

	// Pacing at 115200 baud takes roughly 0.2s for this capture.
	var revs int
	p := pipeline.New(pipelineOptions(cfg), pipeline.SinkFuncs{
		Revolution: func(rev l2frames.Revolution, _ []l3filter.FilteredPoint) {
			revs++
			if len(rev.Readings) != 360 {
				t.Errorf("revolution has %d readings, want 360", len(rev.Readings))
			}
		},
	})

	err = runPipeline(context.Background(), p, src)
	if !errors.Is(err, io.EOF) {
		t.Errorf("expected end of capture, got %v", err)
	}
	if revs != 1 {
		t.Errorf("got %d revolutions, want 1", revs)
	}
}

func TestRunPipeline_CancelIsClean(t *testing.T) {
	port := serialmux.NewTestableSerialPort()
	port.IdleWhenEmpty = true

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	// A deadline is not a clean shutdown; only explicit cancellation is.
	err := runPipeline(ctx, pipeline.New(pipeline.Options{}, nil), port)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}

	ctx2, cancel2 := context.WithCancel(context.Background())
	cancel2()
	if err := runPipeline(ctx2, pipeline.New(pipeline.Options{}, nil), port); err != nil {
		t.Errorf("expected nil on cancel, got %v", err)
	}
}

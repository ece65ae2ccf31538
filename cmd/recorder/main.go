package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/Honorable-Knights-of-the-Roundtable/wavrecorder/cmd/config"
	"github.com/Honorable-Knights-of-the-Roundtable/wavrecorder/internal/metrics"
	"github.com/Honorable-Knights-of-the-Roundtable/wavrecorder/internal/recorder"
	"github.com/Honorable-Knights-of-the-Roundtable/wavrecorder/internal/utils"
	"github.com/Honorable-Knights-of-the-Roundtable/wavrecorder/pkg/audiodevice/device"
	"github.com/Honorable-Knights-of-the-Roundtable/wavrecorder/pkg/encoderdecoder"
)

const metricsShutdownTimeout = 5 * time.Second

func initializeRecorder(cfg config.Config, source *device.AudioAugmentationDevice, m *metrics.Metrics) *recorder.Recorder {
	encdec, err := encoderdecoder.NewEncoderDecoder(
		encoderdecoder.EncoderDecoderTypeWAV,
		encoderdecoder.WithOverflowPolicy(cfg.OverflowPolicy),
	)
	if err != nil {
		slog.Error("error while creating encoder", "err", err)
		panic(err)
	}

	rec, err := recorder.NewRecorder(
		source,
		recorder.WithEncoderDecoder(encdec),
		recorder.WithMetrics(m),
	)
	if err != nil {
		slog.Error("error while creating recorder", "err", err)
		panic(err)
	}
	return rec
}

// Serve /metrics until ctx ends.
func serveMetrics(ctx context.Context, address string, reg *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	server := &http.Server{
		Addr:              address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	slog.Info("serving metrics", "address", address)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Record from the source until the duration elapses, the file ends, or ctx ends,
// then write the container to cfg.Output.
func record(ctx context.Context, cfg config.Config, rec *recorder.Recorder, fileSource *device.FileAudioSourceDevice) error {
	done, err := rec.Start(ctx, cfg.Capture)
	if err != nil {
		return err
	}
	if err := <-done; err != nil {
		if ctx.Err() != nil {
			slog.Info("interrupted before capture started")
			return nil
		}
		slog.Error("could not start capture", "err", err)
		return err
	}

	var durationElapsed <-chan time.Time
	if cfg.Duration > 0 {
		timer := time.NewTimer(cfg.Duration)
		defer timer.Stop()
		durationElapsed = timer.C
	}

	select {
	case <-durationElapsed:
		slog.Info("duration elapsed", "duration", cfg.Duration)
	case <-fileSource.Done():
		slog.Info("source file finished")
	case <-ctx.Done():
		slog.Info("interrupted")
	}

	container, err := rec.Stop()
	if err != nil {
		slog.Error("could not stop recording", "err", err)
		return err
	}
	if err := os.WriteFile(cfg.Output, container, 0644); err != nil {
		slog.Error("could not write recording", "output", cfg.Output, "err", err)
		return err
	}

	info, err := encoderdecoder.ReadContainerInfo(container)
	if err != nil {
		return err
	}
	slog.Info(
		"recording written",
		"output", cfg.Output,
		"frames", info.Frames,
		"duration", info.Duration,
		"bytes", len(container),
	)
	return nil
}

func main() {
	configFilePath := flag.String("configFilePath", "config.yaml", "Set the file path to the config file.")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFilePath)
	if err != nil {
		slog.Error("error while loading config", "err", err)
		panic(err)
	}
	logFileCloser, err := utils.ConfigureDefaultLogger(
		cfg.LogLevel,
		cfg.LogFile,
		slog.HandlerOptions{},
	)
	if err != nil {
		slog.Error("error while configuring default logger", "err", err)
		panic(err)
	}
	if logFileCloser != nil {
		defer logFileCloser.Close()
	}

	// --------------------------------------------------------------------------------

	fileSource, err := device.NewFileAudioSourceDevice(cfg.SourceFile, cfg.SourceBlockSize, 0)
	if err != nil {
		slog.Error("error while opening source file", "err", err)
		panic(err)
	}
	source := device.NewAudioAugmentationDevice(fileSource)

	var m *metrics.Metrics
	reg := prometheus.NewRegistry()
	if cfg.MetricsAddress != "" {
		m = metrics.NewMetrics(reg)
	}
	rec := initializeRecorder(cfg, source, m)

	// --------------------------------------------------------------------------------

	signalCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(signalCtx)
	recordCtx, recordingFinished := context.WithCancel(ctx)
	if cfg.MetricsAddress != "" {
		group.Go(func() error {
			return serveMetrics(recordCtx, cfg.MetricsAddress, reg)
		})
	}
	group.Go(func() error {
		defer recordingFinished()
		return record(recordCtx, cfg, rec, fileSource)
	})

	if err := group.Wait(); err != nil {
		slog.Error("recorder exited with error", "err", err)
		if logFileCloser != nil {
			logFileCloser.Close()
		}
		os.Exit(1)
	}
}

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roman-kulish/radio-spectrum/internal/pipeline"
	"github.com/roman-kulish/radio-spectrum/internal/sdr"
	"github.com/roman-kulish/radio-spectrum/internal/sdr/hackrf"
	"github.com/roman-kulish/radio-spectrum/internal/sdr/rtl"
	"github.com/roman-kulish/radio-spectrum/internal/spectrum"
	"github.com/roman-kulish/radio-spectrum/internal/storage"
	"github.com/roman-kulish/radio-spectrum/internal/stream"
)

const shutdownTimeout = 5 * time.Second

// source is the configured acquisition source together with its lifecycle
type source struct {
	pipeline.Source

	sourceType string
	sourceID   string
	config     any
	start      float64
	stop       float64

	sweep  *sdr.SweepSource
	closer io.Closer
}

// Run builds the pipeline described by config and runs it until ctx is
// cancelled, the sweep tool dies or a block source ends
func Run(ctx context.Context, config *Config, logger *slog.Logger) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	src, err := createSource(config, logger)
	if err != nil {
		return fmt.Errorf("creating source: %w", err)
	}
	if src.closer != nil {
		defer func() {
			err = errors.Join(err, src.closer.Close())
		}()
	}

	frequency, err := spectrum.NewFrequencyRange(src.start, src.stop, spectrum.WithSpanMode(config.Frequency.SpanMode))
	if err != nil {
		return fmt.Errorf("creating frequency range: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	presenters := pipeline.Presenters{
		&logPresenter{
			logger:      logger,
			endOfStream: func() { cancel(nil) },
		},
	}

	var hub *stream.Hub
	if config.Server.Listen != "" {
		hub = stream.NewHub(stream.WithLogger(logger), stream.WithMetrics(reg))
		presenters = append(presenters, hub)
	}

	if config.Storage.Enabled {
		recorder, store, recErr := createRecorder(ctx, config, src, logger)
		if recErr != nil {
			return recErr
		}
		defer func() {
			err = errors.Join(err, store.Close())
		}()
		presenters = append(presenters, recorder)
	}

	orchestrator, err := pipeline.NewOrchestrator(src.Source, frequency, presenters, config.PipelineSettings(),
		pipeline.WithLogger(logger),
		pipeline.WithMetrics(pipeline.NewMetrics(reg)))
	if err != nil {
		return fmt.Errorf("creating orchestrator: %w", err)
	}

	if hub != nil {
		hub.SetSubmitter(orchestrator)

		shutdown, serveErr := serve(ctx, config.Server.Listen, reg, hub, logger)
		if serveErr != nil {
			return fmt.Errorf("starting server: %w", serveErr)
		}
		defer func() {
			_ = hub.Close()
			err = errors.Join(err, shutdown())
		}()
	}

	if src.sweep != nil {
		stopped, startErr := src.sweep.Start(ctx)
		if startErr != nil {
			return fmt.Errorf("starting sweep: %w", startErr)
		}
		defer src.sweep.Stop()

		go func() {
			if err, ok := <-stopped; ok && err != nil {
				cancel(fmt.Errorf("%s stopped: %w", src.sourceType, err))
			}
		}()
	}

	logger.Info("starting pipeline",
		slog.String("source", src.sourceType),
		slog.String("range", frequency.String()),
		slog.Duration("interval", time.Duration(config.Settings.TickInterval)))

	if err = orchestrator.Run(ctx, time.Duration(config.Settings.TickInterval)); err != nil {
		return fmt.Errorf("running pipeline: %w", err)
	}

	// Only causes set here are failures, the caller ending ctx is a clean stop
	cause := context.Cause(ctx)
	if cause == nil || errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		return nil
	}
	return cause
}

func createSource(config *Config, logger *slog.Logger) (*source, error) {
	start, stop := float64(config.Frequency.Start), float64(config.Frequency.Stop)

	var (
		handler sdr.Handler
		err     error
	)
	src := source{sourceType: string(config.Source.Type), start: start, stop: stop}

	switch config.Source.Type {
	case SourceHackRF:
		if handler, err = hackrf.New(config.Source.HackRF, start, stop); err != nil {
			return nil, fmt.Errorf("creating HackRF device: %w", err)
		}
		src.start, src.stop = hackrf.SweepRange(start, stop)
		src.sourceID = config.Source.HackRF.SerialNumber
		src.config = config.Source.HackRF

	case SourceRTL:
		if handler, err = rtl.New(config.Source.RTL, start, stop); err != nil {
			return nil, fmt.Errorf("creating RTL-SDR device: %w", err)
		}
		src.sourceID = rtl.DeviceID(config.Source.RTL)
		src.config = config.Source.RTL.CommandLine(start, stop)

	case SourceIQ:
		c := config.Source.IQ

		var r io.Reader = os.Stdin
		if c.Path != "" && c.Path != "-" {
			f, err := os.Open(c.Path)
			if err != nil {
				return nil, fmt.Errorf("opening IQ stream: %w", err)
			}
			r, src.closer = f, f
		}

		reader, err := sdr.NewIQReader(r, c.Format, float64(c.SampleRate), float64(c.CentreFrequency))
		if err != nil {
			if src.closer != nil {
				_ = src.closer.Close()
			}
			return nil, fmt.Errorf("creating IQ reader: %w", err)
		}

		src.Source = pipeline.FromBlockSource(reader)
		src.sourceID = c.Path
		src.config = c
		src.setBlockRange(float64(c.CentreFrequency)-float64(c.SampleRate)/2, float64(c.CentreFrequency)+float64(c.SampleRate)/2)
		return &src, nil

	case SourceTone:
		c := config.Source.Tone

		options := []func(*sdr.Tone){sdr.WithToneNoise(c.Noise), sdr.WithToneSeed(c.Seed)}
		if c.Real {
			options = append(options, sdr.WithRealSamples())
		}

		tone, err := sdr.NewTone(float64(c.SampleRate), float64(c.CentreFrequency), float64(c.Offset), c.Amplitude, options...)
		if err != nil {
			return nil, fmt.Errorf("creating tone: %w", err)
		}

		src.Source = pipeline.FromBlockSource(tone)
		src.sourceID = "synthetic"
		src.config = c
		if c.Real {
			src.setBlockRange(0, float64(c.SampleRate)/2)
		} else {
			src.setBlockRange(float64(c.CentreFrequency)-float64(c.SampleRate)/2, float64(c.CentreFrequency)+float64(c.SampleRate)/2)
		}
		return &src, nil

	default:
		return nil, fmt.Errorf("unknown source type '%s'", config.Source.Type)
	}

	if src.sourceID == "" {
		src.sourceID = src.sourceType
	}

	device := sdr.NewDevice(src.sourceID, handler, sdr.WithLogger(logger))
	src.sweep = sdr.NewSweepSource(device, sdr.WithSweepLogger(logger))
	src.Source = pipeline.FromSweepSource(src.sweep)

	return &src, nil
}

// setBlockRange seeds the range of a block source when none is configured,
// the first frame replaces it with the observed one anyway
func (s *source) setBlockRange(start, stop float64) {
	if s.stop > s.start {
		return
	}
	s.start, s.stop = max(start, 0), stop
}

func createRecorder(ctx context.Context, config *Config, src *source, logger *slog.Logger) (*storage.Recorder, *storage.SqliteStore, error) {
	store, err := createStorage(&config.Storage)
	if err != nil {
		return nil, nil, fmt.Errorf("creating storage: %w", err)
	}

	sessionID, err := store.CreateSession(ctx, src.sourceType, src.sourceID, src.config)
	if err != nil {
		return nil, nil, errors.Join(fmt.Errorf("creating session: %w", err), store.Close())
	}

	logger.Info("recording session", slog.Int64("sessionID", sessionID))

	options := []func(*storage.Recorder){storage.WithRecorderLogger(logger)}
	if config.Storage.AllFrames {
		options = append(options, storage.WithAllFrames())
	}
	return storage.NewRecorder(store, sessionID, options...), store, nil
}

func createStorage(config *StorageConfig) (*storage.SqliteStore, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current working directory: %w", err)
	}

	dbPath := filepath.Join(wd, config.DataDirectory)
	if filepath.IsAbs(config.DataDirectory) {
		dbPath = config.DataDirectory
	}

	stat, err := os.Stat(dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("storage directory '%s' does not exist: %w", dbPath, err)
		}
		return nil, fmt.Errorf("checking storage directory '%s': %w", dbPath, err)
	}
	if !stat.IsDir() {
		return nil, fmt.Errorf("invalid storage directory '%s'", dbPath)
	}

	dbPath = filepath.Join(dbPath, fmt.Sprintf("spectrum_%s.sqlite", time.Now().UTC().Format("20060102_150405")))
	return storage.NewSqliteStore(dbPath), nil
}

// serve starts the /metrics and /ws listener and returns its shutdown function
func serve(ctx context.Context, addr string, reg *prometheus.Registry, hub *stream.Hub, logger *slog.Logger) (func() error, error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.Handle("/ws", hub)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		logger.Info("serving metrics and stream", slog.String("address", listener.Addr().String()))
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(fmt.Sprintf("server stopped: %s", err.Error()))
		}
	}()

	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
		return nil
	}, nil
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"imagestream/internal/database"
	"imagestream/internal/decoder"
	"imagestream/internal/filesystem"
	"imagestream/internal/handlers"
	"imagestream/internal/logging"
	"imagestream/internal/memory"
	"imagestream/internal/metrics"
	"imagestream/internal/middleware"
	"imagestream/internal/pipeline"
	"imagestream/internal/session"
	"imagestream/internal/source"
	"imagestream/internal/startup"
	"imagestream/internal/transcoder"
	"imagestream/internal/workers"

	"github.com/gorilla/mux"
)

const (
	metricsInterval      = time.Minute
	pruneInterval        = time.Hour
	recordTimeout        = 5 * time.Second
	shutdownTimeout      = 30 * time.Second
	serverReadTimeout    = 15 * time.Second
	serverIdleTimeout    = 60 * time.Second
	metricsServerTimeout = 10 * time.Second
)

func main() {
	startTime := time.Now()

	// Set GOMEMLIMIT before anything sizeable is allocated
	memResult := memory.ConfigureFromEnv()

	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	dbStart := time.Now()
	db, err := database.New(context.Background(), config.DatabasePath)
	if err != nil {
		startup.LogFatal("Failed to initialize database: %v", err)
	}
	startup.LogDatabaseInit(time.Since(dbStart))

	metrics.InitializeMetrics()
	filesystem.SetObserver(metrics.NewFilesystemObserver())
	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(map[string]string{
		"media": config.MediaDir,
	}))

	memMonitor := memory.NewMonitor(memory.DefaultConfig())
	memMonitor.Start()

	decodeWorkers := workers.Resolve(config.StreamWorkers,
		memory.DecodeSlots(memMonitor.Limit(), workers.ForMixed(0)))
	startup.LogMemoryConfig(memResult, decodeWorkers)
	pool := workers.NewPool(decodeWorkers, memMonitor)

	var vipsErr error
	if config.VipsEnabled {
		vipsErr = decoder.InitVips()
	} else {
		vipsErr = errors.New("disabled by VIPS_ENABLED")
	}
	startup.LogDecoderInit(config.FFmpegPath, vipsErr, pool.Size())

	trans := transcoder.New(config.FFmpegPath)
	engine := decoder.NewEngine(decoder.Config{Pool: pool})

	files := source.NewFileOpener(config.MediaDir)
	sources, gcs := setupSources(config, files)
	startup.LogSourcesInit(sources.Schemes())

	controller := session.NewController(session.Config{
		Raw:    &pipeline.RawStreamer{Opener: sources},
		Images: &pipeline.ImageTranscoder{Engine: engine, Opener: sources, FFmpeg: trans},
		Videos: &pipeline.VideoThumbnailer{Engine: engine, Opener: sources, Files: files, FFmpeg: trans},
		Recorder: session.RecorderFunc(func(o session.Outcome) {
			ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
			defer cancel()
			if err := db.RecordSession(ctx, sessionRecord(o)); err != nil {
				logging.Warn("Failed to record session %s: %v", o.SessionID, err)
			}
		}),
	})

	collector := metrics.NewCollector(db, metricsInterval)
	collector.Start()

	bgCtx, stopBackground := context.WithCancel(context.Background())
	go db.RunPruner(bgCtx, config.HistoryRetention, pruneInterval)
	go func() {
		ticker := time.NewTicker(metricsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				db.UpdateDBMetrics()
			case <-bgCtx.Done():
				return
			}
		}
	}()

	h := handlers.New(controller, db, trans, config)
	router := setupRouter(h, db)
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	handler := middleware.Compression(middleware.DefaultCompressionConfig())(
		middleware.Logger(loggingConfig)(router),
	)

	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: 0, // streams enforce their own write and idle timeouts
		IdleTimeout:  serverIdleTimeout,
	}

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsSrv = startMetricsServer(config.MetricsPort, h)
	}

	shutdownDone := make(chan struct{})
	go func() {
		handleShutdown(srv, metricsSrv, controller, collector, memMonitor, stopBackground, trans, gcs, db)
		close(shutdownDone)
	}()

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		AuthEnabled:     db.HasAPIKey(context.Background()),
		StartupDuration: time.Since(startTime),
	})

	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		startup.LogFatal("Server error: %v", err)
	}
	<-shutdownDone
}

// setupSources registers an opener per supported locator scheme. The GCS
// opener is returned so that its client can be closed on shutdown.
func setupSources(config *startup.Config, files *source.FileOpener) (*source.Router, *source.GCSOpener) {
	sources := source.NewRouter()
	sources.Register("file", files)

	if config.S3Enabled {
		sources.Register("s3", source.NewS3Opener(source.S3Config{
			Region:    config.S3Region,
			AccessKey: config.S3AccessKey,
			SecretKey: config.S3SecretKey,
			Endpoint:  config.S3Endpoint,
		}))
	}

	var gcs *source.GCSOpener
	if config.GCSEnabled {
		var err error
		gcs, err = source.NewGCSOpener(context.Background(), config.GCSCredentialsFile)
		if err != nil {
			logging.Warn("GCS source disabled: %v", err)
		} else {
			sources.Register("gs", gcs)
		}
	}

	return sources, gcs
}

func setupRouter(h *handlers.Handlers, keys middleware.KeyStore) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))
	r.Use(middleware.RequireAPIKey(keys, middleware.DefaultAuthConfig()))

	// Probes and version (no API key required)
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/stream", h.StreamImage).Methods("GET")
	api.HandleFunc("/ws", h.StreamWebSocket).Methods("GET")
	api.HandleFunc("/sessions", h.ListSessions).Methods("GET")
	api.HandleFunc("/stats", h.GetStats).Methods("GET")

	return r
}

func startMetricsServer(port string, h *handlers.Handlers) *http.Server {
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", h.MetricsHandler())
	metricsMux.HandleFunc("/health", h.LivenessCheck)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      metricsMux,
		ReadTimeout:  metricsServerTimeout,
		WriteTimeout: metricsServerTimeout,
	}
	go func() {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Metrics server error: %v", err)
		}
	}()
	return srv
}

// sessionRecord converts a session outcome into its history row.
func sessionRecord(o session.Outcome) database.SessionRecord {
	return database.SessionRecord{
		ID:          o.SessionID,
		URI:         o.URI,
		MimeType:    o.MimeType,
		Route:       o.RouteLabel(),
		Outcome:     o.OutcomeLabel(),
		ErrorCode:   o.ErrorCode,
		ErrorDetail: o.Detail,
		Chunks:      o.Chunks,
		Bytes:       o.Bytes,
		StartedAt:   o.StartedAt,
		Duration:    o.Duration,
	}
}

func handleShutdown(
	srv, metricsSrv *http.Server,
	controller *session.Controller,
	collector *metrics.Collector,
	memMonitor *memory.Monitor,
	stopBackground context.CancelFunc,
	trans *transcoder.Transcoder,
	gcs *source.GCSOpener,
	db *database.Database,
) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownStep("Waiting for stream sessions")
	sessionsDone := make(chan struct{})
	go func() {
		controller.Wait()
		close(sessionsDone)
	}()
	select {
	case <-sessionsDone:
		startup.LogShutdownStepComplete("Stream sessions finished")
	case <-ctx.Done():
		logging.Warn("Stream sessions still running at shutdown deadline")
	}

	startup.LogShutdownStep("Stopping background workers")
	stopBackground()
	collector.Stop()
	memMonitor.Stop()
	startup.LogShutdownStepComplete("Background workers stopped")

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownStep("Cleaning up decoders")
	trans.Cleanup()
	decoder.ShutdownVips()
	startup.LogShutdownStepComplete("Decoders stopped")

	if gcs != nil {
		if err := gcs.Close(); err != nil {
			logging.Warn("GCS client close error: %v", err)
		}
	}

	startup.LogShutdownStep("Closing database")
	if err := db.Close(); err != nil {
		logging.Warn("Database close error: %v", err)
	} else {
		startup.LogShutdownStepComplete("Database closed")
	}

	startup.LogShutdownComplete()
}

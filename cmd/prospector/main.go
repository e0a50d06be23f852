package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/growthloop/prospector-go/internal/prospectorconfig"
	"github.com/growthloop/prospector-go/pkg/logging"
	"github.com/growthloop/prospector-go/pkg/scheduler"
)

func main() {
	// .env is optional; a missing file only warrants a warning
	if err := godotenv.Load(); err != nil {
		logrus.WithError(err).Warn("Error loading .env file")
	}

	log := newLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	settings, err := prospectorconfig.Load(log)
	if err != nil {
		log.WithError(err).Fatal("Failed to load settings")
	}

	metrics := prometheus.NewRegistry()
	app, err := prospectorconfig.Build(settings, log, metrics)
	if err != nil {
		log.WithError(err).Fatal("Failed to build application")
	}

	// Serve prometheus metrics when an address is configured
	if settings.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(metrics, promhttp.HandlerOpts{}))
			log.WithField("addr", settings.MetricsAddr).Info("Serving metrics")
			if err := http.ListenAndServe(settings.MetricsAddr, mux); err != nil {
				log.WithError(err).Error("Metrics server stopped")
			}
		}()
	}

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Info("Received shutdown signal")
		cancel()
	}()

	app.Scheduler.Start(ctx)

	// Register a recurring discovery scrape per enabled platform
	for _, p := range settings.Platforms {
		if _, err := app.Recurring.AddSchedule(settings.DiscoverySpec, p, settings.Criteria, scheduler.PriorityMedium); err != nil {
			log.WithError(err).WithField("platform", p).Fatal("Failed to add recurring schedule")
		}
	}
	app.Recurring.Start()

	log.Info("Starting prospect discovery")

	if settings.RunOnStart {
		report, err := app.Orchestrator.StartDiscovery(ctx, settings.SearchCriteria())
		if err != nil && err != context.Canceled {
			log.WithError(err).Error("Initial discovery session failed")
		} else if report != nil {
			log.WithFields(logrus.Fields{
				"session_id": report.SessionID,
				"discovered": report.TotalDiscovered,
				"qualified":  report.TotalQualified,
			}).Info("Initial discovery session complete")
		}
	}

	<-ctx.Done()

	app.Recurring.Stop()
	app.Scheduler.Stop()

	log.Info("Prospector shutdown complete")
}

// newLogger builds the root logger: JSON output by default, the colored
// development formatter behind LOG_FORMAT=colored, level from LOG_LEVEL.
func newLogger() *logrus.Logger {
	log := logrus.New()
	if os.Getenv("LOG_FORMAT") == "colored" {
		log.SetFormatter(logging.NewColoredJSONFormatter())
	} else {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if level, err := logrus.ParseLevel(logLevel); err == nil {
		log.SetLevel(level)
	} else {
		log.SetLevel(logrus.InfoLevel)
		log.WithFields(logrus.Fields{
			"attempted_level": logLevel,
			"default_level":   "INFO",
		}).Warn("Invalid log level specified, defaulting to INFO")
	}
	return log
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"postcardgo/pkg/assembly"
	"postcardgo/pkg/config"
	"postcardgo/pkg/core"
	"postcardgo/pkg/db"
	"postcardgo/pkg/encoder"
	"postcardgo/pkg/imagegen"
	"postcardgo/pkg/imagegen/gemini"
	imgpolly "postcardgo/pkg/imagegen/pollinations"
	"postcardgo/pkg/imagegen/stock"
	"postcardgo/pkg/logging"
	"postcardgo/pkg/probe"
	"postcardgo/pkg/request"
	"postcardgo/pkg/store"
	"postcardgo/pkg/tour"
	"postcardgo/pkg/tracker"
	"postcardgo/pkg/tts"
	"postcardgo/pkg/tts/elevenlabs"
	ttspolly "postcardgo/pkg/tts/pollinations"
	"postcardgo/pkg/version"
)

var (
	initConfig = flag.Bool("init-config", false, "Generate default config file and exit")
	tourID     = flag.String("tour", "", "Enqueue a tour ID for assembly on startup")
	tourDest   = flag.String("destination", "", "Destination name for the enqueued tour")
	tourStops  = flag.Int("stops", 0, "Expected stop count for the enqueued tour (0 = unknown)")
)

const configPath = "configs/postcard.yaml"

func main() {
	flag.Parse()

	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	if *initConfig {
		if err := config.GenerateDefault(configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Config file generated: " + configPath)
		return
	}

	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	tts.SetLogPath("logs/tts.log")

	slog.Info("PostcardGo Started", "version", version.Version)

	dbConn, st, err := initDB(cfg)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	if err := dbConn.PruneCache(7 * 24 * time.Hour); err != nil {
		slog.Warn("Cache prune failed", "error", err)
	}

	results := probe.Run(ctx, probe.Defaults(cfg))
	if err := probe.AnalyzeResults(results); err != nil {
		return fmt.Errorf("startup checks failed: %w", err)
	}

	tr := tracker.New()
	defer tr.LogSummary()

	reqClient := request.New(&cfg.Request, st, tr)

	images, err := initImageChain(cfg, tr, reqClient)
	if err != nil {
		return err
	}
	narrator, err := initTTSChain(cfg, tr, reqClient)
	if err != nil {
		return err
	}

	asm := assembly.New(cfg, images, narrator, reqClient, encoder.New(&cfg.Video))

	tourClient := tour.NewClient(&cfg.Tour, reqClient)
	poller := tour.NewPoller(&cfg.Tour, tourClient)

	if *tourID != "" {
		if err := st.EnqueueTour(ctx, &store.PendingTour{
			TourID:        *tourID,
			Destination:   *tourDest,
			ExpectedStops: *tourStops,
		}); err != nil {
			return fmt.Errorf("failed to enqueue tour %s: %w", *tourID, err)
		}
		slog.Info("Tour enqueued", "tour", *tourID, "destination", *tourDest, "stops", *tourStops)
	}

	sched := core.NewScheduler(cfg)
	sched.AddJob(core.NewTourJob(st, poller, asm))
	sched.AddJob(core.NewIntervalJob("CachePrune", 12*time.Hour, func(c context.Context) {
		if err := dbConn.PruneCache(7 * 24 * time.Hour); err != nil {
			slog.Warn("Cache prune failed", "error", err)
		}
	}))
	go sched.Start(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("Shutting down", "signal", sig.String())
	case <-ctx.Done():
		slog.Info("Context cancelled, shutting down")
	}
	cancel()
	return nil
}

func initDB(cfg *config.Config) (*db.DB, store.Store, error) {
	dbConn, err := db.Init(cfg.DB.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return dbConn, store.NewSQLiteStore(dbConn), nil
}

// initImageChain builds the image provider waterfall: Gemini when a key is
// configured, Pollinations, then stock photos as the keyless last resort.
func initImageChain(cfg *config.Config, tr *tracker.Tracker, rc *request.Client) (*imagegen.Chain, error) {
	var providers []imagegen.Provider
	var names []string

	if cfg.ImageGen.Gemini.Key != "" {
		g, err := gemini.NewProvider(cfg.ImageGen.Gemini, tr)
		if err != nil {
			slog.Warn("Gemini provider unavailable", "error", err)
		} else {
			providers = append(providers, g)
			names = append(names, "gemini")
		}
	}

	providers = append(providers, imgpolly.NewProvider(cfg.ImageGen.Pollinations, cfg.ImageGen.MinImageBytes, rc))
	names = append(names, "pollinations")

	providers = append(providers, stock.NewProvider(cfg.ImageGen.Stock, cfg.ImageGen.MinImageBytes, rc))
	names = append(names, "stock")

	return imagegen.NewChain(providers, names, tr)
}

// initTTSChain builds the narration waterfall. The configured engine leads;
// the other becomes the fallback.
func initTTSChain(cfg *config.Config, tr *tracker.Tracker, rc *request.Client) (*tts.Chain, error) {
	el := elevenlabs.NewProvider(cfg.TTS.ElevenLabs, tr)
	po := ttspolly.NewProvider(cfg.TTS.Pollinations, rc)

	switch cfg.TTS.Engine {
	case "pollinations":
		return tts.NewChain([]tts.Provider{po, el}, []string{"pollinations", "elevenlabs"}, tr)
	default:
		return tts.NewChain([]tts.Provider{el, po}, []string{"elevenlabs", "pollinations"}, tr)
	}
}

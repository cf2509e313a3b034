package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"pricewatch/config"
	"pricewatch/internal/database"
	"pricewatch/internal/monitor"
	"pricewatch/internal/notifier"
	"pricewatch/internal/scraper"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func main() {
	// .env is optional; the process environment works too
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("loading configuration failed")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("opening database failed")
	}
	defer db.Close()

	selectors := scraper.DefaultSelectors()
	if len(cfg.PriceSelectors) > 0 {
		selectors.Price = cfg.PriceSelectors
	}
	if len(cfg.NameSelectors) > 0 {
		selectors.Name = cfg.NameSelectors
	}

	var browser scraper.Fetcher
	if cfg.BrowserFallback {
		b, err := scraper.NewBrowserFetcher(cfg.BrowserBin)
		if err != nil {
			log.Warn().Err(err).Msg("headless browser unavailable, static fetch only")
		} else {
			defer b.Close()
			browser = b
		}
	}

	scr := scraper.New(
		scraper.NewStaticFetcher(cfg.FetchTimeout),
		browser,
		scraper.NewExtractor(selectors),
		log,
	)

	notif := notifier.NewTwilioNotifier(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioPhone, cfg.SendTimeout)

	mon := monitor.New(db, scr, notif, monitor.Options{
		Interval:     cfg.CheckInterval,
		Workers:      cfg.Workers,
		FetchTimeout: cfg.FetchTimeout,
		SendTimeout:  cfg.SendTimeout,
	}, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mon.Start(ctx)

	log.Info().Msg("shutting down")
}

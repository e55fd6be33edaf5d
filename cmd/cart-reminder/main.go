// Command cart-reminder runs the abandoned cart reminder job once. It reads
// the same BAMBOO_ environment as the API server.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/cristalhq/aconfig"
	"github.com/go-faster/errors"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain/reminder"
	"github.com/MabsRahman/bamboo-shop-api/internal/notify"
	"github.com/MabsRahman/bamboo-shop-api/internal/repository"
)

type config struct {
	DatabaseURL string `usage:"PostgreSQL connection URL (or DATABASE_URL env)" flag:"database-url"`
	AppURL      string `default:"http://localhost:3000" usage:"Public frontend URL used in email links" flag:"app-url"`
	SMTP        notify.SMTPConfig
}

func main() {
	var cfg config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "BAMBOO",
		SkipFiles: true,
	})
	if err := loader.Load(); err != nil {
		slog.Error("load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if cfg.SMTP.Host == "" {
		slog.Warn("SMTP host not set, reminders will only be logged")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		slog.Error("cart reminder failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config) error {
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	mailer, err := notify.NewMailer(notify.NewTransport(cfg.SMTP), cfg.AppURL)
	if err != nil {
		return errors.Wrap(err, "create mailer")
	}

	res, err := reminder.NewJob(repository.NewCartRepository(pool), mailer, nil).Run(ctx)
	if err != nil {
		return errors.Wrap(err, "run job")
	}

	slog.Info("cart reminder completed", slog.Int("users", res.Users), slog.Int("carts", res.Carts))
	return nil
}

package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
	"unistuhelper/bot"
	"unistuhelper/impl/core"
	"unistuhelper/internal/config"
	"unistuhelper/internal/database"
	"unistuhelper/internal/http-server/api"
	"unistuhelper/lib/logger"
	"unistuhelper/lib/sl"
)

func main() {
	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	log := logger.SetupLogger(conf.Env, *logPath)
	log.Info("starting unistuhelper", slog.String("config", *configPath), slog.String("env", conf.Env))

	var notifier *bot.Notifier
	if conf.Telegram.Enabled {
		var err error
		notifier, err = bot.NewNotifier(conf.Telegram.ApiKey, conf.Telegram.ChatIds, log)
		if err != nil {
			log.Error("telegram notifier", sl.Err(err))
		} else {
			log = logger.WithTelegram(log, notifier, conf.TelegramLevel())
			log.Info("telegram notifier enabled", slog.Int("chats", len(conf.Telegram.ChatIds)))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, conf.MongoTimeout())
	mongo, err := database.Connect(connectCtx, conf, log)
	if err == nil {
		err = mongo.EnsureIndexes(connectCtx)
	}
	cancel()
	if err != nil {
		log.Error("mongodb connect", sl.Err(err))
		os.Exit(1)
	}

	handler := core.New(mongo, core.Config{
		Transactions:  conf.Mongo.Transactions,
		CodeAttempts:  conf.Invites.CodeAttempts,
		InviteExpiry:  conf.InviteExpiry(),
		LatestVersion: conf.Release.LatestVersion,
		ReleaseDir:    conf.Release.Dir,
		ReleaseName:   conf.Release.Name,
		DownloadURL:   conf.Release.DownloadURL,
		BetaWarning:   conf.Release.BetaWarning,
	}, log)
	if notifier != nil {
		handler.SetNotifier(notifier)
	}

	if conf.Admin.Username != "" {
		bootCtx, cancel := context.WithTimeout(ctx, conf.MongoTimeout())
		_, err = handler.Bootstrap(bootCtx, conf.Admin.Username, conf.Admin.Password)
		cancel()
		if err != nil {
			log.Error("admin bootstrap", sl.Err(err))
		}
	}

	server, err := api.New(conf, log, handler)
	if err != nil {
		log.Error("api server", sl.Err(err))
		os.Exit(1)
	}
	errc := make(chan error, 1)
	go func() {
		errc <- server.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err = <-errc:
		if err != nil {
			log.Error("server error", sl.Err(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err = server.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", sl.Err(err))
	}
	if err = mongo.Close(shutdownCtx); err != nil {
		log.Error("mongodb disconnect", sl.Err(err))
	}
	notifier.Wait()
	log.Info("server stopped")
}

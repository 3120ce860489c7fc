package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"

	"github.com/syuvi-tf/syuvi/internal/config"
	"github.com/syuvi-tf/syuvi/internal/discord"
	"github.com/syuvi-tf/syuvi/internal/lifecycle"
	"github.com/syuvi-tf/syuvi/internal/roster"
	"github.com/syuvi-tf/syuvi/internal/server"
	"github.com/syuvi-tf/syuvi/internal/sheets"
	"github.com/syuvi-tf/syuvi/internal/store"
	"github.com/syuvi-tf/syuvi/internal/verify"
	"github.com/syuvi-tf/syuvi/pkg/logx"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./config.yaml", "path to config file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfgPath); err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}
}

func logConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func run(ctx context.Context, cfgPath string) error {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	token := os.Getenv("DISCORD_TOKEN")
	if token == "" {
		return errors.New("DISCORD_TOKEN is not set")
	}

	mgr := config.NewManager(cfgPath, logx.NewConsole("info"))
	cfg, err := mgr.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logSvc, log := logx.New(logConfig(cfg))
	defer logSvc.Close()
	log.Info("starting", logx.String("config", cfg.String()))

	st, err := store.Open(store.Config{
		Path:        cfg.Storage.Path,
		BusyTimeout: cfg.BusyTimeout(),
	}, log.With(logx.String("component", "store")))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	sheetClient, err := sheets.New(ctx, sheets.Config{
		SpreadsheetID:   cfg.Sheets.SpreadsheetID,
		CredentialsFile: cfg.Sheets.CredentialsFile,
		RatePerMin:      cfg.Sheets.RatePerMin,
	}, log.With(logx.String("component", "sheets")))
	if err != nil {
		return fmt.Errorf("sheets client: %w", err)
	}
	projector := sheets.NewProjector(sheetClient, st, log.With(logx.String("component", "sheets")))

	rosterSvc := roster.New(st, log.With(logx.String("component", "roster")))
	verifySvc := verify.New(st, projector, log.With(logx.String("component", "verify")))

	gw, err := discord.New(token, discord.Config{
		GuildID:           cfg.Discord.GuildID,
		SignupsChannelID:  cfg.Discord.SignupsChannelID,
		AnnounceChannelID: cfg.Discord.AnnounceChannelID,
		SignupsMessageID:  cfg.Discord.SignupsMessageID,
		DivisionRoles:     cfg.Discord.DivisionRoles,
	}, rosterSvc, verifySvc, st, log.With(logx.String("component", "discord")))
	if err != nil {
		return fmt.Errorf("discord gateway: %w", err)
	}

	// Roster changes push the signup list and the sheet straight away so
	// neither waits for the next periodic refresh.
	rosterSvc.OnChange(gw.RefreshSignupList)
	rosterSvc.OnChange(projector.UpdateSheetSignups)

	sched := lifecycle.New(lifecycle.Config{
		SignupRefreshEvery: cfg.SignupsEvery(),
		SheetRefreshEvery:  cfg.SheetsEvery(),
	}, st, gw, projector, clockwork.NewRealClock(), log.With(logx.String("component", "lifecycle")))

	if err := gw.Open(); err != nil {
		return fmt.Errorf("discord open: %w", err)
	}
	defer gw.Close()

	// Re-derives timers from persisted tourney bounds. Two open tourneys
	// means the database is in a state the scheduler refuses to guess at.
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	defer sched.Stop()

	srv := server.New(cfg.Server.Addr, log.With(logx.String("component", "server")))
	srv.Start()

	go func() {
		if err := mgr.Watch(ctx, func(next *config.Config) {
			logSvc.Apply(logConfig(next))
		}); err != nil {
			log.Warn("config watch stopped", logx.Err(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("server shutdown", logx.Err(err))
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/LuigiOrvizCiarbis/si-crm-sub000/internal/config"
	"github.com/LuigiOrvizCiarbis/si-crm-sub000/internal/server"
	"github.com/LuigiOrvizCiarbis/si-crm-sub000/internal/store"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version and exit")
		configPath  = flag.String("config", "config.toml", "Path to config file")
		debug       = flag.Bool("debug", false, "Enable debug logging")
		seed        = flag.Bool("seed", false, "Seed demo conversations on startup")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("sicrmd %s\n", Version)
		os.Exit(0)
	}

	initLogging(*debug)

	log.Info().Str("version", Version).Msg("Starting sicrmd")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	var st *store.Store
	if cfg.Server.DBPath != "" {
		st, err = store.Open(cfg.Server.DBPath)
	} else {
		st, err = store.New()
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize store")
	}
	defer st.Close()

	if *seed {
		if err := seedDemoData(st); err != nil {
			log.Warn().Err(err).Msg("Failed to seed demo data")
		}
	}

	srv := server.New(st, cfg.Server.Token, cfg.API.PageSize)

	httpServer := &http.Server{
		Addr:    cfg.Server.Listen,
		Handler: srv.Router(),
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		log.Info().Msg("Received shutdown signal")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("Shutdown error")
		}
	}()

	log.Info().Str("listen", cfg.Server.Listen).Msg("Listening")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server error")
	}

	log.Info().Msg("sicrmd shutdown complete")
}

func initLogging(debug bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}

// seedDemoData creates a few conversations when the store is empty, so a
// fresh install has something to open.
func seedDemoData(st *store.Store) error {
	existing, err := st.ListConversations()
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	seeds := []struct {
		contact  string
		stage    string
		priority string
		messages []struct {
			content   string
			direction store.Direction
		}
	}{
		{
			contact:  "Maya Chen",
			stage:    "negotiation",
			priority: "high",
			messages: []struct {
				content   string
				direction store.Direction
			}{
				{"Hi, I'm interested in the annual plan.", store.DirectionInbound},
				{"Great to hear! I can walk you through the pricing.", store.DirectionOutbound},
				{"What discount applies for 50 seats?", store.DirectionInbound},
			},
		},
		{
			contact:  "Jonas Weber",
			stage:    "onboarding",
			priority: "normal",
			messages: []struct {
				content   string
				direction store.Direction
			}{
				{"Our import finished, thanks for the help!", store.DirectionInbound},
			},
		},
	}

	for _, s := range seeds {
		conv, err := st.CreateConversation(s.contact, s.stage, s.priority, "")
		if err != nil {
			return err
		}
		for _, m := range s.messages {
			if _, err := st.AppendMessage(conv.ID, "", m.content, m.direction); err != nil {
				return err
			}
		}
	}

	log.Info().Int("conversations", len(seeds)).Msg("Seeded demo data")
	return nil
}

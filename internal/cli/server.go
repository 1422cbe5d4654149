package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trivia-rooms/internal/config"
	"trivia-rooms/internal/domain"
	"trivia-rooms/internal/game"
	"trivia-rooms/internal/infra/memory"
	pgloader "trivia-rooms/internal/infra/postgres"
	redisbank "trivia-rooms/internal/infra/redis"
	transport "trivia-rooms/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the trivia server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.BankLoader = memory.NewStaticBankLoader(sampleBanks())
	if pool != nil {
		loader = pgloader.NewBankLoader(pool)
	}

	bankTTL := config.TTLDuration(cfg.Bank.TTL, 10*time.Minute)
	var banks game.BankRepository
	if redisClient != nil {
		banks = redisbank.NewBankRepository(redisClient, loader, bankTTL)
	} else {
		banks = memory.NewBankRepository(loader, bankTTL)
	}

	settings := game.Settings{
		StartingScore:    cfg.Game.StartingScore,
		MinPlayers:       cfg.Game.MinPlayers,
		QuestionSeconds:  cfg.Game.QuestionSeconds,
		PreGameDelay:     config.TTLDuration(cfg.Game.PreGameDelay, 3*time.Second),
		ResultsDelay:     config.TTLDuration(cfg.Game.ResultsDelay, 10*time.Second),
		TickInterval:     config.TTLDuration(cfg.Game.Tick, time.Second),
		Elimination:      cfg.Game.Elimination,
		PrivateQuestions: cfg.Game.PrivateQuestions,
		BankID:           cfg.Bank.ID,
	}

	hub := transport.NewHub()
	engine := game.NewEngine(game.NewRegistry(), banks, hub, settings)

	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()
	go engine.Run(loopCtx)

	wsHandler := transport.NewWSHandler(engine, hub)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting trivia server on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleBanks provides a built-in bank for running without Postgres.
func sampleBanks() map[string]domain.QuestionBank {
	return map[string]domain.QuestionBank{
		"default": {
			ID: "default",
			Questions: []domain.QuestionRecord{
				{ID: 1, Prompt: "What is the capital of France?", Options: []string{"Paris", "London", "Berlin", "Madrid"}, CorrectOption: 0},
				{ID: 2, Prompt: "What is 2 + 2?", Options: []string{"3", "4", "5", "6"}, CorrectOption: 1},
				{ID: 3, Prompt: "What color is the sky?", Options: []string{"Red", "Green", "Blue", "Yellow"}, CorrectOption: 2},
				{ID: 4, Prompt: "How many days are in a week?", Options: []string{"5", "6", "7", "8"}, CorrectOption: 2},
				{ID: 5, Prompt: "What is the largest ocean?", Options: []string{"Atlantic", "Pacific", "Indian", "Arctic"}, CorrectOption: 1},
			},
		},
	}
}

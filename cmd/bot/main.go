// Package main is the entry point for the Golden Dice bot.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"golden-dice-bot/internal/bot"
	"golden-dice-bot/internal/config"
	"golden-dice-bot/internal/generator"
	"golden-dice-bot/internal/pkg/db"
	"golden-dice-bot/internal/pkg/lock"
	"golden-dice-bot/internal/repository"
	"golden-dice-bot/internal/service"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().Msg("Configuration loaded successfully")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	// Run database migrations
	if err := runMigrations(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(dbPool.Pool)
	goldenRepo := repository.NewGoldenRepository(dbPool.Pool)
	sessionRepo := repository.NewSessionRepository(dbPool.Pool)
	txRepo := repository.NewTransactionRepository(dbPool.Pool)
	settings := repository.NewSettingsStore(dbPool.Pool)

	// Initialize text generation; without an API key the daily number comes
	// from local randomness and announcements use the default copy.
	var openAIClient *generator.OpenAIClient
	if cfg.OpenAI.APIKey != "" {
		openAIClient = generator.NewOpenAIClient(&cfg.OpenAI)
	} else {
		log.Warn().Msg("OpenAI API key not set, using fallback generation only")
	}

	// Initialize the telebot instance first: the game service needs its
	// dice gateway.
	teleBot, err := bot.NewTelebot(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}
	gateway := bot.NewGateway(teleBot)

	// Initialize services
	var gen generator.NumberGenerator
	var writer generator.Copywriter
	var congrats generator.Congratulator
	if openAIClient != nil {
		gen = openAIClient
		writer = openAIClient
		congrats = openAIClient
	}

	userService := service.NewUserService(dbPool, userRepo, txRepo, settings)
	gameService := service.NewGameService(dbPool, userRepo, goldenRepo, sessionRepo, txRepo, settings, gen, gateway)
	withdrawService := service.NewWithdrawService(dbPool, userRepo, txRepo, settings)
	statsService := service.NewStatsService(userRepo, txRepo)
	announcer := service.NewAnnouncer(userRepo, goldenRepo, settings, writer, gateway)

	// Initialize user lock
	userLock := lock.NewUserLock()

	// Create bot dependencies
	deps := &bot.Dependencies{
		Config:          cfg,
		UserService:     userService,
		GameService:     gameService,
		WithdrawService: withdrawService,
		StatsService:    statsService,
		Announcer:       announcer,
		Settings:        settings,
		UserLock:        userLock,
		Congratulator:   congrats,
	}

	telegramBot := bot.New(teleBot, deps)

	// Start the daily scheduler: golden number generation plus its
	// announcement, and the quiet-hours notice.
	scheduler := service.NewScheduler(gameService, announcer, settings)
	go scheduler.Run(ctx)

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start bot in a goroutine
	go func() {
		log.Info().Msg("Bot is starting...")
		telegramBot.Start()
	}()

	// Wait for shutdown signal
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	// Graceful shutdown
	cancel()
	telegramBot.Stop()
	log.Info().Msg("Bot stopped gracefully")
}

// runMigrations executes database migrations.
func runMigrations(ctx context.Context, pool *db.Pool) error {
	log.Info().Msg("Running database migrations...")

	// Migration 1: Create users table
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			telegram_id BIGINT PRIMARY KEY,
			username VARCHAR(255) NOT NULL DEFAULT '',
			first_name VARCHAR(255) NOT NULL DEFAULT '',
			last_name VARCHAR(255) NOT NULL DEFAULT '',
			balance BIGINT NOT NULL DEFAULT 0,
			wallet_address VARCHAR(255) NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_users_balance ON users(balance ASC);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 1: users table created")

	// Migration 2: Create golden_numbers table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS golden_numbers (
			id BIGSERIAL PRIMARY KEY,
			number VARCHAR(16) NOT NULL,
			valid_date DATE NOT NULL,
			source VARCHAR(32) NOT NULL,
			announced BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_golden_numbers_date ON golden_numbers(valid_date, id DESC);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 2: golden_numbers table created")

	// Migration 3: Create game_sessions table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS game_sessions (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(telegram_id) ON DELETE CASCADE,
			golden_id BIGINT NOT NULL REFERENCES golden_numbers(id),
			rolls_count INT NOT NULL DEFAULT 0,
			throws_remaining INT NOT NULL,
			result_digits VARCHAR(16) NOT NULL DEFAULT '',
			finished BOOLEAN NOT NULL DEFAULT FALSE,
			paused BOOLEAN NOT NULL DEFAULT FALSE,
			score_awarded BIGINT NOT NULL DEFAULT 0,
			paused_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_game_sessions_user_active ON game_sessions(user_id, finished, id DESC);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 3: game_sessions table created")

	// Migration 4: Create rolls table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS rolls (
			id BIGSERIAL PRIMARY KEY,
			session_id BIGINT NOT NULL REFERENCES game_sessions(id) ON DELETE CASCADE,
			user_id BIGINT NOT NULL,
			result INT NOT NULL,
			step_index INT NOT NULL,
			cost BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_rolls_session ON rolls(session_id, step_index);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 4: rolls table created")

	// Migration 5: Create transactions table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS transactions (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(telegram_id) ON DELETE CASCADE,
			type VARCHAR(50) NOT NULL,
			amount BIGINT NOT NULL CHECK (amount >= 0),
			golden_id BIGINT,
			session_id BIGINT,
			description TEXT NOT NULL DEFAULT '',
			status VARCHAR(20) NOT NULL DEFAULT 'completed',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_transactions_user_time ON transactions(user_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_transactions_type_status ON transactions(type, status);
		CREATE INDEX IF NOT EXISTS idx_transactions_session ON transactions(session_id);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 5: transactions table created")

	// Migration 6: Create settings table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS settings (
			key VARCHAR(64) PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 6: settings table created")

	log.Info().Msg("All migrations completed successfully")
	return nil
}

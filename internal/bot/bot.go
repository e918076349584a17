package bot

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"golden-dice-bot/internal/config"
	"golden-dice-bot/internal/generator"
	"golden-dice-bot/internal/handler"
	"golden-dice-bot/internal/pkg/lock"
	"golden-dice-bot/internal/repository"
	"golden-dice-bot/internal/service"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot *tele.Bot
	cfg *config.Config

	// Handlers
	accountHandler *handler.AccountHandler
	gameHandler    *handler.GameHandler
	rankingHandler *handler.RankingHandler
	adminHandler   *handler.AdminHandler
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config          *config.Config
	UserService     *service.UserService
	GameService     *service.GameService
	WithdrawService *service.WithdrawService
	StatsService    *service.StatsService
	Announcer       *service.Announcer
	Settings        *repository.SettingsStore
	UserLock        *lock.UserLock
	// Congratulator may be nil; exact matches then get the stock line.
	Congratulator generator.Congratulator
}

// NewTelebot creates the underlying telebot instance. Split from New so the
// services that need a send gateway can be built in between.
func NewTelebot(cfg *config.Config) (*tele.Bot, error) {
	if cfg.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:  cfg.Bot.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return teleBot, nil
}

// New wires handlers and middleware onto the telebot instance.
func New(teleBot *tele.Bot, deps *Dependencies) *Bot {
	b := &Bot{
		bot: teleBot,
		cfg: deps.Config,
	}

	b.accountHandler = handler.NewAccountHandler(deps.UserService, deps.WithdrawService, deps.StatsService, deps.Settings, deps.UserLock)
	b.gameHandler = handler.NewGameHandler(deps.GameService, deps.UserService, deps.UserLock, deps.Settings, deps.Congratulator)
	b.rankingHandler = handler.NewRankingHandler(deps.StatsService)
	b.adminHandler = handler.NewAdminHandler(deps.GameService, deps.WithdrawService, deps.Announcer, deps.Settings)

	b.registerMiddleware()
	b.registerHandlers()

	return b
}

// registerMiddleware registers all middleware.
func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(LoggingMiddleware())
}

// registerHandlers registers all command handlers.
func (b *Bot) registerHandlers() {
	// Account handlers
	b.bot.Handle("/start", b.accountHandler.HandleStart)
	b.bot.Handle("/help", b.accountHandler.HandleHelp)
	b.bot.Handle("/wallet", b.accountHandler.HandleWallet)
	b.bot.Handle("/deposit", b.accountHandler.HandleDeposit)
	b.bot.Handle("/withdraw", b.accountHandler.HandleWithdraw)
	b.bot.Handle("/history", b.accountHandler.HandleHistory)
	b.bot.Handle("/stats", b.accountHandler.HandleStats)

	// Game handlers
	b.bot.Handle("/startgame", b.gameHandler.HandleStartGame)
	b.bot.Handle("/next", b.gameHandler.HandleNext)
	b.bot.Handle("/pause", b.gameHandler.HandlePause)
	b.bot.Handle("/resume", b.gameHandler.HandleResume)
	b.bot.Handle("/stopgame", b.gameHandler.HandleStopGame)
	b.bot.Handle("/status", b.gameHandler.HandleStatus)

	// Ranking handler
	b.bot.Handle("/leaderboard", b.rankingHandler.HandleLeaderboard)

	// Admin handlers (with admin middleware)
	adminGroup := b.bot.Group()
	adminGroup.Use(AdminMiddleware(b.cfg))
	adminGroup.Handle("/admin_golden", b.adminHandler.HandleAdminGolden)
	adminGroup.Handle("/admin_withdrawals", b.adminHandler.HandleAdminWithdrawals)
	adminGroup.Handle("/admin_set", b.adminHandler.HandleAdminSet)
	adminGroup.Handle("/admin_announce", b.adminHandler.HandleAdminAnnounce)
	adminGroup.Handle("/admin_announce_quiet", b.adminHandler.HandleAdminAnnounceQuiet)

	// Reply-keyboard button presses arrive as plain text
	b.bot.Handle(tele.OnText, b.handleText)
}

// handleText routes reply-keyboard button labels to their handlers.
func (b *Bot) handleText(c tele.Context) error {
	return b.gameHandler.RouteText(c, b.accountHandler, b.rankingHandler)
}

// Start starts the bot polling.
func (b *Bot) Start() {
	log.Info().Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}

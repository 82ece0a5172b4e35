// Package app is the composition root: it opens the database, builds the
// repositories, services and handlers and assembles them into a Bot.
package app

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/bot"
	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/bot/filters"
	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/common"
	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/config"
	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/db/postgres"
	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/events"
	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/features/achievements"
	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/features/admin"
	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/features/ledger"
	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/features/members"
	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/features/trivia"
	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/jobs"
	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/questions"
)

// App holds the long-lived components.
type App struct {
	Bot       *bot.Bot
	Scheduler *jobs.Scheduler
	DB        *pgxpool.Pool
	BotAPI    *tgbotapi.BotAPI
	Events    *events.Bus
}

// New builds the application. On error every resource opened so far is
// released.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. Database ===
	pool, err := postgres.NewPool(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	a, err := build(ctx, cfg, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return a, nil
}

func build(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) (*App, error) {
	if err := postgres.RunMigrations(ctx, pool, postgres.Schema); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	// === 2. Question bank ===
	catalog, err := questions.Load(cfg.QuestionsFile)
	if err != nil {
		return nil, fmt.Errorf("load question catalog: %w", err)
	}
	log.WithFields(log.Fields{
		"file":      cfg.QuestionsFile,
		"questions": catalog.Len(),
		"levels":    catalog.MaxLevel(),
	}).Info("Question catalog loaded")

	// === 3. Telegram Bot API ===
	botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("create telegram api: %w", err)
	}
	botAPI.Debug = cfg.AppEnv == "development"
	log.Infof("Authorized as @%s", botAPI.Self.UserName)

	bus := events.NewBus()
	loc := common.LoadLocation(cfg.AppTimezone)

	// === 4. Repositories ===
	memberRepo := members.NewRepository(pool)
	ledgerRepo := ledger.NewRepository(pool)
	triviaRepo := trivia.NewRepository(pool)
	achvRepo := achievements.NewRepository(pool)
	adminRepo := admin.NewRepository(pool)

	// === 5. Services ===
	memberService := members.NewService(memberRepo)
	ledgerService := ledger.NewService(ledgerRepo)
	triviaService := trivia.NewService(triviaRepo, catalog, bus, trivia.SettingsFromConfig(cfg))
	engine := achievements.NewEngine(achvRepo, ledgerService, bus)
	adminService := admin.NewService(adminRepo, memberService, ledgerService, cfg.AdminIDs, cfg.AdminPasswordHash)

	// === 6. Handlers ===
	memberHandler := members.NewHandler(memberService)
	ledgerHandler := ledger.NewHandler(ledgerService, botAPI, loc)
	triviaHandler := trivia.NewHandler(triviaService, botAPI)
	achvHandler := achievements.NewHandler(engine, botAPI)
	adminHandler := admin.NewHandler(adminService, botAPI)

	var reloader jobs.Reloader
	if cfg.FeatureAchievementsEnabled {
		if err := engine.Init(ctx); err != nil {
			return nil, fmt.Errorf("init achievements: %w", err)
		}
		achvHandler.Notify(bus)
		reloader = engine
		log.WithField("definitions", len(engine.Definitions())).Info("Achievement engine initialized")
	} else {
		log.Info("Achievements disabled")
	}

	// === 7. Filters ===
	chatFilter := filters.NewChatFilter(cfg.CommunityChatID, cfg.FeatureGuestsEnabled, memberService, botAPI)

	// === 8. Bot ===
	b := bot.New(
		botAPI, cfg,
		memberService, memberHandler,
		ledgerHandler,
		triviaHandler,
		achvHandler,
		adminHandler,
		chatFilter,
	)

	// === 9. Scheduler ===
	scheduler := jobs.NewScheduler(reloader, cfg.AchievementsReloadCron, loc)

	return &App{
		Bot:       b,
		Scheduler: scheduler,
		DB:        pool,
		BotAPI:    botAPI,
		Events:    bus,
	}, nil
}

// Package main - точка входа бота учёта воды.
//
// Один процесс: long polling Telegram, планировщик напоминаний и
// HTTP API только для чтения. Состояние пользователей живёт в памяти
// и целиком сохраняется после каждой мутации (JSON-файл или PostgreSQL).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hydromate/hydromate-bot/config"
	"github.com/hydromate/hydromate-bot/internal/application/command"
	"github.com/hydromate/hydromate-bot/internal/application/query"
	"github.com/hydromate/hydromate-bot/internal/application/roster"
	"github.com/hydromate/hydromate-bot/internal/domain/achievement"
	"github.com/hydromate/hydromate-bot/internal/domain/hydration"
	"github.com/hydromate/hydromate-bot/internal/domain/shared"
	tgclient "github.com/hydromate/hydromate-bot/internal/infrastructure/external/telegram"
	"github.com/hydromate/hydromate-bot/internal/infrastructure/metrics"
	"github.com/hydromate/hydromate-bot/internal/infrastructure/persistence/jsonfile"
	"github.com/hydromate/hydromate-bot/internal/infrastructure/persistence/postgres"
	"github.com/hydromate/hydromate-bot/internal/infrastructure/persistence/redis"
	"github.com/hydromate/hydromate-bot/internal/infrastructure/scheduler"
	"github.com/hydromate/hydromate-bot/internal/infrastructure/scheduler/jobs"
	httpserver "github.com/hydromate/hydromate-bot/internal/interface/http"
	"github.com/hydromate/hydromate-bot/internal/interface/http/handlers"
	"github.com/hydromate/hydromate-bot/internal/interface/telegram"
	"github.com/hydromate/hydromate-bot/internal/interface/telegram/handler"
	"github.com/hydromate/hydromate-bot/internal/interface/telegram/middleware"
	"github.com/hydromate/hydromate-bot/internal/interface/telegram/presenter"
	"github.com/hydromate/hydromate-bot/pkg/circuitbreaker"
	"github.com/hydromate/hydromate-bot/pkg/retry"
	"github.com/hydromate/hydromate-bot/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	// Корневой контекст отменяется сигналом завершения.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. КОНФИГУРАЦИЯ И ЛОГИРОВАНИЕ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := setupLogger(cfg)
	log.Info("starting water tracker bot",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"timezone", cfg.App.Timezone,
		"store", cfg.Store.Driver,
	)

	calendar := timeutil.NewCalendar(cfg.App.Location)
	clock := shared.SystemClock{}
	engine := hydration.NewEngine(calendar, hydration.StreakPolicy{
		StrictOncePerDay: cfg.Tracking.StrictStreak,
		ResetOnMissedDay: cfg.Tracking.ResetStreakOnMiss,
	})
	catalog := achievement.DefaultCatalog()

	health := handlers.NewCompositeHealthChecker(cfg.App.Version)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. ХРАНИЛИЩЕ
	// ─────────────────────────────────────────────────────────────────────────
	store, closeStore, err := openStore(ctx, cfg, log, health)
	if err != nil {
		return err
	}
	defer closeStore()

	// ─────────────────────────────────────────────────────────────────────────
	// 3. REDIS (опционально, кеш рейтинга)
	// ─────────────────────────────────────────────────────────────────────────
	var (
		leaderboardCache query.LeaderboardCache
		invalidator      command.LeaderboardInvalidator
	)
	if cfg.Redis.Enabled {
		cache, err := redis.NewCache(redis.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MaxRetries:   redis.DefaultConfig().MaxRetries,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			// Кеш не обязателен: рейтинг считается из памяти.
			log.Warn("failed to connect to Redis, caching disabled", "error", err)
		} else {
			defer cache.Close()
			lb := redis.NewLeaderboardCache(cache, cfg.Redis.LeaderboardTTL)
			leaderboardCache = lb
			invalidator = lb
			health.AddCheck("redis", handlers.NewPingCheck(cache))
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. МЕТРИКИ
	// ─────────────────────────────────────────────────────────────────────────
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New()
	m.MustRegister(registry)

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ROSTER И БИЗНЕС-ЛОГИКА
	// ─────────────────────────────────────────────────────────────────────────
	users := roster.New(roster.Config{
		Store:         store,
		Calendar:      calendar,
		Clock:         clock,
		DefaultGoalMl: cfg.Tracking.DefaultGoalMl,
		Logger:        log.With("component", "roster"),
	})
	if err := users.Load(ctx); err != nil {
		return fmt.Errorf("failed to load users: %w", err)
	}

	cmdDeps := command.HandlerDeps{
		Roster:      users,
		Engine:      engine,
		Catalog:     catalog,
		Clock:       clock,
		Invalidator: invalidator,
		Metrics:     m,
		Logger:      log.With("component", "command"),
	}
	logWater := command.NewLogWaterHandler(cmdDeps)
	setGoal := command.NewSetGoalHandler(cmdDeps)
	resetToday := command.NewResetTodayHandler(cmdDeps)
	registerUser := command.NewRegisterUserHandler(cmdDeps)
	markReminded := command.NewMarkRemindedHandler(cmdDeps)

	// Известные пользователи создаются до первой команды, чтобы
	// напоминания и приветствие находили их записи.
	for _, ku := range cfg.Telegram.ReminderUsers {
		if _, err := registerUser.Handle(ctx, command.RegisterUserCommand{UserID: ku.ID, DisplayName: ku.Name}); err != nil {
			if !command.IsPartial(err) {
				return fmt.Errorf("failed to register user %s: %w", ku.ID, err)
			}
			log.Warn("known user registered but not saved", "user_id", ku.ID, "error", err)
		}
	}
	m.SetUsersTracked(len(users.All()))
	log.Info("users loaded", "count", len(users.All()))

	progressQuery := query.NewGetDailyProgressHandler(users, engine, clock)
	leaderboardQuery := query.NewGetLeaderboardHandler(users, engine, clock, leaderboardCache, log.With("component", "leaderboard"))
	achievementsQuery := query.NewGetAchievementsHandler(users, catalog)

	// ─────────────────────────────────────────────────────────────────────────
	// 6. TELEGRAM
	// ─────────────────────────────────────────────────────────────────────────
	clientConfig := tgclient.DefaultClientConfig(cfg.Telegram.Token)
	clientConfig.PollTimeout = cfg.Telegram.PollingTimeout
	if clientConfig.Timeout <= clientConfig.PollTimeout {
		clientConfig.Timeout = clientConfig.PollTimeout + 10*time.Second
	}
	clientConfig.Debug = cfg.App.Debug
	clientConfig.Logger = log.With("component", "telegram_client")
	client := tgclient.NewClient(clientConfig)

	waterPresenter := presenter.NewWaterPresenter(presenter.NewContent(nil), cfg.Tracking.QuickAmounts)

	waterHandler := handler.NewWaterHandler(handler.Deps{
		LogWater:     logWater,
		SetGoal:      setGoal,
		ResetToday:   resetToday,
		Progress:     progressQuery,
		Leaderboard:  leaderboardQuery,
		Achievements: achievementsQuery,
		Presenter:    waterPresenter,
		Users:        users,
	})

	router := telegram.NewRouter(telegram.RouterConfig{
		Logger: log.With("component", "router"),
		Debug:  cfg.App.Debug,
	}, waterHandler)

	rateConfig := middleware.DefaultRateLimitConfig()
	rateConfig.RequestsPerMinute = cfg.Telegram.UserRateLimit
	rateConfig.BurstSize = cfg.Telegram.UserRateBurst
	rateLimiter := middleware.NewRateLimiter(rateConfig)

	recoveryConfig := middleware.DefaultRecoveryConfig()
	recoveryConfig.Logger = log.With("component", "recovery")
	recoveryConfig.EnableStackTrace = cfg.App.Debug || cfg.IsDevelopment()

	botConfig := telegram.DefaultBotConfig()
	botConfig.AnnounceChatID = cfg.Telegram.WaterChatID
	botConfig.GracefulShutdownTimeout = cfg.App.ShutdownTimeout
	botConfig.Debug = cfg.App.Debug
	botConfig.Logger = log.With("component", "bot")

	bot, err := telegram.NewBot(botConfig, telegram.BotDeps{
		Client:      client,
		Router:      router,
		Registrar:   registerUser,
		RateLimiter: rateLimiter,
		Recovery:    middleware.NewRecoveryMiddleware(recoveryConfig),
		Presenter:   waterPresenter,
		Metrics:     m,
	})
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ПЛАНИРОВЩИК
	// ─────────────────────────────────────────────────────────────────────────
	sched := scheduler.New(scheduler.Config{
		Logger:   log.With("component", "scheduler"),
		Timezone: cfg.App.Location,
		Observer: m,
	})

	if cfg.Telegram.WaterChatID != 0 {
		breaker := circuitbreaker.ScheduledSendBreaker(func(name string, from, to circuitbreaker.State) {
			log.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		})
		notifier := telegram.NewNotifier(client, users, waterPresenter, cfg.Telegram.WaterChatID).WithBreaker(breaker)
		userIDs := cfg.ReminderUserIDs()

		remindersConfig := jobs.DefaultWaterRemindersConfig()
		remindersConfig.UserIDs = userIDs
		remindersConfig.MinInterval = cfg.Tracking.ReminderInterval

		reminders := jobs.NewWaterRemindersJob(jobs.WaterRemindersDeps{
			Users:    users,
			Engine:   engine,
			Sender:   notifier,
			Marker:   markReminded,
			Clock:    clock,
			Recorder: m,
			Logger:   log.With("job", "water_reminders"),
		}, remindersConfig)
		if err := sched.RegisterCron(reminders, cfg.Tracking.ReminderCron); err != nil {
			return fmt.Errorf("failed to register reminders job: %w", err)
		}

		kickoff := jobs.NewDailyKickoffJob(jobs.DailyKickoffDeps{
			Sender: notifier,
			Engine: engine,
			Clock:  clock,
			Logger: log.With("job", "daily_kickoff"),
		}, userIDs)
		if err := sched.RegisterCron(kickoff, cfg.Tracking.KickoffCron); err != nil {
			return fmt.Errorf("failed to register kickoff job: %w", err)
		}
	} else {
		log.Warn("TELEGRAM_WATER_CHAT_ID not set, reminders and kickoff disabled")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	var httpServer *httpserver.Server
	httpConfig := httpserver.DefaultConfig()
	if cfg.HTTP.Enabled {
		httpConfig.Host = cfg.HTTP.Host
		httpConfig.Port = cfg.HTTP.Port
		httpConfig.EnableMetrics = cfg.Observability.MetricsEnabled

		httpServer = httpserver.NewServer(httpConfig, httpserver.Dependencies{
			Progress:     progressQuery,
			Leaderboard:  leaderboardQuery,
			Achievements: achievementsQuery,
			Days:         calendar,
			Health:       health,
			Gatherer:     registry,
			Monitor:      m.MonitorMiddleware,
			Logger:       log.With("component", "http"),
		})
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. ЗАПУСК
	// ─────────────────────────────────────────────────────────────────────────
	errCh := make(chan error, 2)

	if httpServer != nil {
		go func() {
			log.Info("starting HTTP server", "address", httpConfig.Address())
			if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("http server error: %w", err)
			}
		}()
	}

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	go func() {
		if err := bot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("telegram bot error: %w", err)
		}
	}()

	log.Info("water tracker bot is running")

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("received shutdown signal")
	case runErr = <-errCh:
		log.Error("service error", "error", runErr)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 10. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	// 1. Планировщик: новые запуски не стартуют.
	if err := sched.Stop(); err != nil {
		log.Warn("failed to stop scheduler", "error", err)
	}

	// 2. Бот: ждём обработчики, которые уже выполняются.
	if err := bot.Wait(shutdownCtx); err != nil {
		log.Error("failed to stop bot gracefully", "error", err)
	}

	// 3. HTTP сервер.
	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("failed to stop HTTP server gracefully", "error", err)
		}
	}

	// 4. Последнее сохранение, если предыдущее не удалось.
	if err := users.Flush(shutdownCtx); err != nil {
		log.Error("failed to flush users", "error", err)
	}

	log.Info("shutdown completed")
	return runErr
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// openStore открывает выбранное хранилище документа пользователей.
// Возвращаемая функция закрывает соединение.
func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger, health *handlers.CompositeHealthChecker) (hydration.DocumentStore, func(), error) {
	switch cfg.Store.Driver {
	case config.StorePostgres:
		log.Info("connecting to database...")

		opts := postgres.DefaultPoolOptions()
		if cfg.Store.MaxConns > 0 {
			opts.MaxConns = int32(cfg.Store.MaxConns)
		}

		var conn *postgres.Connection
		retrier := retry.DatabaseRetrier().With(
			retry.WithRetryIf(postgres.IsTransient),
			retry.WithLogger(log, "postgres_connect"),
		)
		err := retrier.Do(ctx, func(ctx context.Context) error {
			var err error
			conn, err = postgres.NewConnectionFromURL(ctx, cfg.Store.DatabaseURL, opts)
			return err
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		if cfg.Store.MigrateOnStart {
			if err := postgres.NewMigrator(conn).Migrate(ctx); err != nil {
				conn.Close()
				return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
			}
		}

		health.AddCheck("postgres", handlers.NewPingCheck(conn))
		log.Info("database connection established")

		return postgres.NewUserStore(conn), func() {
			log.Info("closing database connection...")
			conn.Close()
		}, nil

	default:
		log.Info("using JSON document store", "path", cfg.Store.JSONPath)
		return jsonfile.New(cfg.Store.JSONPath), func() {}, nil
	}
}

// setupLogger настраивает структурированное логирование.
func setupLogger(cfg *config.Config) *slog.Logger {
	level, _ := config.ParseLogLevel(cfg.Observability.LogLevel)
	if cfg.App.Debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if cfg.Observability.LogFormat == "text" {
		h = slog.NewTextHandler(os.Stdout, opts)
	} else {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}

	log := slog.New(h).With("app", cfg.App.Name)
	slog.SetDefault(log)
	return log
}

package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/auth"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/event"
	"live-quiz-service/internal/infra/memory"
	"live-quiz-service/internal/infra/postgres"
	redisstore "live-quiz-service/internal/infra/redis"
	"live-quiz-service/internal/metrics"
	"live-quiz-service/internal/store"
	"live-quiz-service/internal/telemetry"
	transport "live-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if portFlag != "" {
		cfg.Server.Port = portFlag
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	bus := event.NewBus()
	defer bus.Stop()
	m := metrics.New(prometheus.DefaultRegisterer, bus)

	var redisClient redis.UniversalClient
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{cfg.Redis.Addr},
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := telemetry.MonitorRedis(redisClient); err != nil {
			return fmt.Errorf("monitor redis: %w", err)
		}
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
	}

	var source memory.QuizSource = memory.NewQuizLibrary(sampleQuizzes())
	if pool != nil {
		source = postgres.NewQuizLibrary(pool)
	}

	var (
		quizzes app.QuizLibrary
		st      store.Store
	)
	if redisClient != nil {
		quizzes = redisstore.NewQuizRepository(redisClient, source, cfg.Redis.Prefix, cfg.Quiz.TTL)
		st = redisstore.NewStore(redisClient, cfg.Redis.Prefix, cfg.Redis.TTL)
	} else {
		quizzes = memory.NewQuizRepository(source, cfg.Quiz.TTL)
		st = memory.NewStore(memory.WithTTL(cfg.Redis.TTL))
	}

	svcCfg := app.Config{
		TimerMode:      cfg.Quiz.TimerMode,
		FreeTextPolicy: cfg.Quiz.FreeTextPolicy,
		OnArchiveError: m.ResultsArchiveFails.Inc,
	}
	if pool != nil {
		svcCfg.Archive = postgres.NewResultsArchive(pool)
	}
	service := app.NewService(st, quizzes, bus, auth.NewIssuer(cfg.Auth.Secret, cfg.Auth.TTL), svcCfg)

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           transport.NewRouter(transport.Config{Service: service, Metrics: m}),
		ReadHeaderTimeout: 15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", server.Addr).
			Str("timerMode", string(cfg.Quiz.TimerMode)).
			Bool("redis", redisClient != nil).
			Bool("postgres", pool != nil).
			Msg("starting quiz service")
		if err := server.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		err := server.Shutdown(shutdownCtx)
		// Let pending archive writes finish before the pool closes.
		bus.Stop()
		return err
	})
	return g.Wait()
}

// sampleQuizzes seeds the in-memory library when no database is configured.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"demo": {
			Title:     "Warm-up",
			TimeLimit: domain.DefaultTimeLimit,
			Questions: []domain.Question{
				{
					ID:      "q1",
					Type:    domain.QuestionSingle,
					Prompt:  "What is 2 + 2?",
					Options: []string{"3", "4", "5"},
					Correct: domain.IndexValue(1),
				},
				{
					ID:      "q2",
					Type:    domain.QuestionMultiple,
					Prompt:  "Which of these are primes?",
					Options: []string{"2", "4", "7", "9"},
					Correct: domain.IndicesValue(0, 2),
				},
				{
					ID:      "q3",
					Type:    domain.QuestionText,
					Prompt:  "Name the largest planet.",
					Correct: domain.TextValue("Jupiter"),
				},
			},
		},
	}
}

package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"rextro-quiz-service/internal/app"
	"rextro-quiz-service/internal/config"
	"rextro-quiz-service/internal/domain"
	"rextro-quiz-service/internal/infra/memory"
	"rextro-quiz-service/internal/infra/postgres"
	rediscache "rextro-quiz-service/internal/infra/redis"
	"rextro-quiz-service/internal/logger"
	"rextro-quiz-service/internal/metrics"
	transport "rextro-quiz-service/internal/transport/http"
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
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logger.Setup(cfg.Log.Level, cfg.Log.Format)

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
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

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
	if pool != nil {
		loader = postgres.NewQuizLoader(pool)
	}

	questionTTL := config.TTLDuration(cfg.Questions.TTL, 10*time.Minute)
	var questions app.QuestionRepository
	if redisClient != nil {
		questions = rediscache.NewQuestionCache(redisClient, loader, config.TTLDuration(cfg.Redis.TTL, questionTTL))
	} else {
		questions = memory.NewQuestionRepository(loader, questionTTL)
	}

	var (
		attempts app.AttemptStore
		users    app.UserDirectory
	)
	if pool != nil {
		attempts = postgres.NewAttemptStore(pool)
		users = postgres.NewUserDirectory(pool)
	} else {
		attempts = memory.NewAttemptStore()
		users = memory.NewUserDirectory(sampleUsers()...)
	}

	m := metrics.New()
	opts := []app.Option{app.WithRecorder(m), app.WithLogger(log)}
	attemptService := app.NewAttemptService(attempts, questions, opts...)
	leaderboardService := app.NewLeaderboardService(attempts, questions, users, opts...)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", m.Handler())
	transport.NewHandler(attemptService, leaderboardService, log).Register(mux, m.Middleware)
	mux.Handle("/ws", m.Middleware("/ws", http.HandlerFunc(
		transport.NewWSHandler(attemptService, leaderboardService, log).ServeWS,
	)))

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", finalPort).
			Bool("postgres", pool != nil).
			Bool("redis", redisClient != nil).
			Msg("starting quiz service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			log.Error().Err(err).Msg("server failed")
			return err
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuizzes backs the service when no database is configured.
func sampleQuizzes() map[int64]domain.Quiz {
	return map[int64]domain.Quiz{
		1: {
			ID: 1,
			Questions: []domain.Question{
				{ID: "q1", QuizID: 1, CorrectOption: "B"},
				{ID: "q2", QuizID: 1, CorrectOption: "A"},
				{ID: "q3", QuizID: 1, CorrectOption: "D"},
			},
		},
	}
}

func sampleUsers() []domain.User {
	return []domain.User{
		{ID: "student-1", DisplayName: "Alice", SchoolFacingID: "NH-001", School: "North High"},
		{ID: "student-2", DisplayName: "Bob", SchoolFacingID: "SH-001", School: "South High"},
	}
}

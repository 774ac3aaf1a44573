package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"livequiz-service/internal/app"
	"livequiz-service/internal/auth"
	"livequiz-service/internal/broadcast"
	"livequiz-service/internal/config"
	"livequiz-service/internal/domain"
	"livequiz-service/internal/infra/memory"
	pgloader "livequiz-service/internal/infra/postgres"
	redisinfra "livequiz-service/internal/infra/redis"
	transport "livequiz-service/internal/transport/http"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the session coordinator",
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

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
	if pool != nil {
		loader = pgloader.NewQuizLoader(pool)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = redisinfra.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	var store app.SessionStore
	var broker broadcast.Broker
	if redisClient != nil {
		store = redisinfra.NewSessionStore(redisClient)
		broker = broadcast.NewRedisBroker(redisClient)
	} else {
		store = memory.NewSessionStore()
		broker = broadcast.NewMemoryBroker()
	}

	service := app.NewSessionService(store, quizRepo, broker)
	hostAuth := auth.NewHostAuth(cfg.Auth.Secret, config.TTLDuration(cfg.Auth.TokenTTL, 12*time.Hour))

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	transport.NewHandler(service, hostAuth).Register(mux)
	mux.HandleFunc("/ws", transport.NewWSHandler(broker).ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting livequiz service on :%s", finalPort)
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

// sampleQuizzes seeds demo content when no Postgres is configured.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:                 "quiz-1",
			Title:              "Warm-up",
			SecondsPerQuestion: 30,
			Questions: []domain.Question{
				{
					Kind:    domain.QuestionKindQuiz,
					Text:    "What is 2 + 2?",
					Options: []string{"3", "4", "5"},
					Grading: &domain.Grading{CorrectOption: 1, Points: 10},
				},
				{
					Kind:    domain.QuestionKindSurvey,
					Text:    "How hard was that?",
					Options: []string{"Easy", "Fine", "Hard"},
				},
			},
		},
	}
}

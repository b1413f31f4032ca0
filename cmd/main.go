package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"cloudvault/internal/auth"
	"cloudvault/internal/config"
	"cloudvault/internal/handler"
	"cloudvault/internal/repository"
	"cloudvault/internal/service"
	"cloudvault/internal/storage"
	storages3 "cloudvault/internal/storage/s3"
)

func connectWithRetry(cfg *config.DatabaseConfig, maxAttempts int, delay time.Duration) (*sqlx.DB, error) {
	// Сначала подключаемся к системной базе postgres, она всегда существует
	pgDSN := strings.Replace(cfg.GetDSN(), "dbname="+cfg.Name, "dbname=postgres", 1)
	pgDB, err := sqlx.Connect("postgres", pgDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres database: %v", err)
	}
	defer pgDB.Close()

	var exists bool
	err = pgDB.Get(&exists, "SELECT EXISTS(SELECT datname FROM pg_catalog.pg_database WHERE datname = $1)", cfg.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to check database existence: %v", err)
	}

	if !exists {
		log.Printf("Database %s does not exist, creating...", cfg.Name)
		_, err = pgDB.Exec(fmt.Sprintf("CREATE DATABASE %s", cfg.Name))
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %v", err)
		}
	}

	var db *sqlx.DB
	for i := 0; i < maxAttempts; i++ {
		db, err = sqlx.Connect("postgres", cfg.GetDSN())
		if err == nil {
			return db, nil
		}

		log.Printf("Failed to connect to database (attempt %d/%d): %v", i+1, maxAttempts, err)
		time.Sleep(delay)
	}

	return nil, fmt.Errorf("failed to connect after %d attempts: %v", maxAttempts, err)
}

func runMigrations(cfg *config.Config) error {
	databaseURL := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)

	var m *migrate.Migrate
	var err error

	for i := 0; i < 5; i++ {
		m, err = migrate.New("file://migrations", databaseURL)
		if err == nil {
			break
		}
		log.Printf("Failed to create migrate instance (attempt %d/5): %v", i+1, err)
		time.Sleep(time.Second * 5)
	}

	if err != nil {
		return fmt.Errorf("failed to create migrate instance after retries: %w", err)
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if dirty {
		log.Printf("Found dirty database state at version %d, attempting to force version", version)
		if err := m.Force(int(version)); err != nil {
			return fmt.Errorf("failed to force version: %w", err)
		}
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func newContentStorage(cfg *config.StorageConfig) (storage.ContentStorage, error) {
	switch cfg.Driver {
	case "fs":
		return storage.NewFileSystemStorage(cfg.RootPath)
	case "s3":
		s3Config, err := storages3.NewConfig(".s3.env")
		if err != nil {
			return nil, fmt.Errorf("failed to load S3 config: %w", err)
		}
		return storages3.NewClient(s3Config)
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Driver)
	}
}

func main() {
	appConfig, err := config.NewConfig(".app.env")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := connectWithRetry(&appConfig.Database, 5, time.Second*5)
	if err != nil {
		log.Fatalf("Failed to connect to database after retries: %v", err)
	}
	defer db.Close()

	if err := runMigrations(appConfig); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	// Байтовое хранилище содержимого
	contentStorage, err := newContentStorage(&appConfig.Storage)
	if err != nil {
		log.Fatalf("Failed to create content storage: %v", err)
	}

	// Инициализация репозиториев
	userRepo := repository.NewUserRepository(db)
	fileRepo := repository.NewFileRepository(db)
	tokenRepo := repository.NewTokenRepository(db)

	// Инициализация сервисов
	jwtCodec, err := auth.NewJWTCodec(
		[]byte(appConfig.Security.JWTSecret),
		time.Duration(appConfig.Security.TokenValidHours)*time.Hour,
	)
	if err != nil {
		log.Fatalf("Failed to create JWT codec: %v", err)
	}

	tokenRegistrar := service.NewTokenRegistrar(jwtCodec, tokenRepo)
	introspector := auth.NewIntrospector(tokenRegistrar, jwtCodec)
	loginService := service.NewLoginService(userRepo, tokenRegistrar)
	fileService := service.NewFileService(userRepo, fileRepo, contentStorage)

	// Инициализация хендлеров
	loginHandler := handler.NewLoginHandler(loginService, appConfig.Server.TokenHeader)
	fileHandler := handler.NewFileHandler(fileService)

	// Настройка HTTP роутера
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Minute))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", appConfig.Server.TokenHeader},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/login", loginHandler.Login)

	r.Group(func(r chi.Router) {
		r.Use(handler.Authenticator(introspector, appConfig.Server.TokenHeader))

		r.Post("/logout", loginHandler.Logout)
		r.Get("/list", fileHandler.List)

		r.Route("/file", func(r chi.Router) {
			r.Get("/", fileHandler.Download)
			r.Post("/", fileHandler.Upload)
			r.Put("/", fileHandler.Rename)
			r.Delete("/", fileHandler.Delete)
		})
	})

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", appConfig.Server.Port),
		Handler: r,
	}

	// Канал для сигналов завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting HTTP server on port %s", appConfig.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	// Периодически выметаем токены с истекшим сроком
	cleanupTicker := time.NewTicker(1 * time.Hour)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-cleanupTicker.C:
				removed, err := tokenRepo.DeleteExpired(context.Background())
				if err != nil {
					log.Printf("Error during expired token cleanup: %v", err)
				} else if removed > 0 {
					log.Printf("Removed %d expired tokens", removed)
				}
			case <-done:
				cleanupTicker.Stop()
				return
			}
		}
	}()

	<-quit
	close(done)
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server forced to shutdown: %v", err)
	}

	if err := db.Close(); err != nil {
		log.Printf("Error closing database connection: %v", err)
	}

	log.Println("Server exited properly")
}

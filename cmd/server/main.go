package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Andrei-KV/sport-places-2025/internal/blobstore"
	"github.com/Andrei-KV/sport-places-2025/internal/category"
	"github.com/Andrei-KV/sport-places-2025/internal/community"
	"github.com/Andrei-KV/sport-places-2025/internal/config"
	"github.com/Andrei-KV/sport-places-2025/internal/domain"
	"github.com/Andrei-KV/sport-places-2025/internal/httpapi"
	"github.com/Andrei-KV/sport-places-2025/internal/intake"
	"github.com/Andrei-KV/sport-places-2025/internal/moderation"
	"github.com/Andrei-KV/sport-places-2025/internal/photos"
	"github.com/Andrei-KV/sport-places-2025/internal/storage"
	"github.com/Andrei-KV/sport-places-2025/internal/storage/inmemory"
	"github.com/Andrei-KV/sport-places-2025/internal/storage/postgres"
	"github.com/rs/cors"
)

func main() {
	storageType := flag.String("storage", "", "Storage type (in-memory or postgres), overrides STORAGE")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if *storageType != "" {
		cfg.Storage = *storageType
		if err := cfg.Validate(); err != nil {
			log.Fatal(err)
		}
	}

	var store storage.Storage
	log.Printf("Starting server with %s storage", cfg.Storage)
	if cfg.Storage == config.StoragePostgres {
		store, err = postgres.New(cfg.DatabaseURL, postgres.Options{Silent: cfg.DBLogSilent})
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
	} else {
		mem := inmemory.New()
		// Заполним данными для тестов
		fillWithMockData(mem)
		store = mem
	}

	blobs, err := blobstore.NewLocal(cfg.BlobDir, cfg.BlobBaseURL)
	if err != nil {
		log.Fatalf("failed to init blob store: %v", err)
	}

	categories := category.NewResolver()
	engine := moderation.NewEngine(store, categories, photos.NewReparenter())

	router := httpapi.NewRouter(httpapi.Deps{
		Store:            store,
		Queue:            moderation.NewQueue(store, engine),
		Intake:           intake.NewService(store, blobs),
		Community:        community.NewService(store),
		Categories:       categories,
		Purger:           photos.NewPurger(store, blobs),
		Media:            blobs,
		MediaPath:        cfg.BlobBaseURL,
		AdminToken:       cfg.AdminToken,
		SubmitRatePerMin: cfg.SubmitRatePerMin,
	})
	if cfg.AdminToken == "" {
		log.Printf("ADMIN_TOKEN is not set, admin routes are disabled")
	}

	handler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "X-User-ID", "X-Admin-Token"},
		AllowCredentials: true,
	}).Handler(router)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("listening on http://localhost:%s/", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server failed to start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Printf("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}

func fillWithMockData(s storage.Storage) {
	ctx := context.Background()
	lat, lng := 55.7558, 37.6173

	// 1. Категория и опубликованная площадка.
	football, err := s.CreateCategory(ctx, &domain.Category{Name: "Футбол", Slug: "futbol"})
	if err != nil {
		log.Fatalf("fillWithMockData: failed to create category: %v", err)
	}
	place, err := s.CreatePlace(ctx, &domain.Place{
		Name:        "Стадион у школы №5",
		Description: "Открытое поле с искусственным покрытием.",
		OwnerID:     "user-1",
		Latitude:    &lat,
		Longitude:   &lng,
		CategoryID:  &football.ID,
	})
	if err != nil {
		log.Fatalf("fillWithMockData: failed to create place: %v", err)
	}

	// 2. Заявка на новую площадку с новой категорией.
	add, err := s.CreateSubmission(ctx, &domain.PendingSubmission{
		Name:             "Скейтпарк в Парке Горького",
		Description:      "Рампы и перила, освещение до 23:00.",
		SubmitterID:      "user-2",
		Status:           domain.StatusPending,
		Action:           domain.ActionAdd,
		ProposedCategory: "Скейтпарк",
	})
	if err != nil {
		log.Fatalf("fillWithMockData: failed to create add submission: %v", err)
	}

	// 3. Заявка на изменение описания существующей площадки.
	edit, err := s.CreateSubmission(ctx, &domain.PendingSubmission{
		Name:            place.Name,
		Description:     "Поле заменили, теперь есть раздевалки.",
		Latitude:        &lat,
		Longitude:       &lng,
		SubmitterID:     "user-3",
		OriginalPlaceID: &place.ID,
		Status:          domain.StatusPending,
		Action:          domain.ActionEdit,
	})
	if err != nil {
		log.Fatalf("fillWithMockData: failed to create edit submission: %v", err)
	}

	log.Printf("Mock data filled successfully. Place ID: %s, pending submissions: %s (add), %s (edit)", place.ID, add.ID, edit.ID)
}

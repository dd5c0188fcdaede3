package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Andrei-KV/sport-places-2025/internal/domain"
	"github.com/Andrei-KV/sport-places-2025/internal/storage"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Store реализует интерфейс Storage с использованием PostgreSQL.
// Внутри транзакции тот же тип работает поверх *gorm.DB транзакции.
type Store struct {
	db *gorm.DB
}

var _ storage.Storage = (*Store)(nil)

// Options - настройки подключения.
type Options struct {
	// Silent отключает логирование SQL-запросов.
	Silent bool
}

// New создает новый экземпляр хранилища PostgreSQL.
func New(dsn string, opts Options) (*Store, error) {
	level := logger.Info // Включаем логирование для отладки
	if opts.Silent {
		level = logger.Silent
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Выполняем миграцию схемы
	if err := db.AutoMigrate(
		&domain.Category{},
		&domain.Place{},
		&domain.PendingSubmission{},
		&domain.Photo{},
		&domain.Comment{},
		&domain.Rating{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

// Transaction выполняет fn в транзакции БД. Ошибка из fn или отмена контекста - откат.
func (s *Store) Transaction(ctx context.Context, fn func(tx storage.Repository) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// wrap переводит ошибки gorm в доменные.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	return &domain.StorageError{Op: op, Err: err}
}

// === Category Methods ===

// CreateCategory при конфликте по имени возвращает уже существующую категорию.
func (s *Store) CreateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(category)
	if res.Error != nil {
		return nil, wrap("create category", res.Error)
	}
	if res.RowsAffected == 0 {
		return s.GetCategoryByName(ctx, category.Name)
	}
	return category, nil
}

func (s *Store) GetCategoryByID(ctx context.Context, id string) (*domain.Category, error) {
	var category domain.Category
	if err := s.db.WithContext(ctx).First(&category, "id = ?", id).Error; err != nil {
		return nil, wrap("get category "+id, err)
	}
	return &category, nil
}

func (s *Store) GetCategoryByName(ctx context.Context, name string) (*domain.Category, error) {
	var category domain.Category
	if err := s.db.WithContext(ctx).First(&category, "name = ?", name).Error; err != nil {
		return nil, wrap(fmt.Sprintf("get category %q", name), err)
	}
	return &category, nil
}

func (s *Store) GetCategoryBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	var category domain.Category
	if err := s.db.WithContext(ctx).First(&category, "slug = ?", slug).Error; err != nil {
		return nil, wrap(fmt.Sprintf("get category slug %q", slug), err)
	}
	return &category, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	var categories []*domain.Category
	err := s.db.WithContext(ctx).Order("name ASC").Find(&categories).Error
	return categories, wrap("list categories", err)
}

// === Place Methods ===

func (s *Store) CreatePlace(ctx context.Context, place *domain.Place) (*domain.Place, error) {
	if err := s.db.WithContext(ctx).Create(place).Error; err != nil {
		return nil, wrap("create place", err)
	}
	// GORM автоматически заполнит ID и CreatedAt после создания
	return place, nil
}

func (s *Store) GetPlaceByID(ctx context.Context, id string) (*domain.Place, error) {
	var place domain.Place
	// Удаленные (soft delete) площадки GORM отфильтрует сам
	if err := s.db.WithContext(ctx).First(&place, "id = ?", id).Error; err != nil {
		return nil, wrap("get place "+id, err)
	}
	return &place, nil
}

func (s *Store) ListPlaces(ctx context.Context) ([]*domain.Place, error) {
	var places []*domain.Place
	err := s.db.WithContext(ctx).Order("created_at ASC").Find(&places).Error
	return places, wrap("list places", err)
}

func (s *Store) UpdatePlace(ctx context.Context, place *domain.Place) (*domain.Place, error) {
	res := s.db.WithContext(ctx).Model(&domain.Place{}).
		Where("id = ?", place.ID).
		Select("name", "description", "owner_id", "latitude", "longitude", "category_id").
		Updates(place)
	if res.Error != nil {
		return nil, wrap("update place "+place.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("update place %s: %w", place.ID, domain.ErrNotFound)
	}
	return s.GetPlaceByID(ctx, place.ID)
}

func (s *Store) DeletePlace(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&domain.Place{}, "id = ?", id)
	if res.Error != nil {
		return wrap("delete place "+id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete place %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// === Dataloader Method ===

func (s *Store) GetPlacesByIDs(ctx context.Context, ids []string) (map[string]*domain.Place, error) {
	var places []*domain.Place
	// Загружаем все площадки одним запросом
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&places).Error; err != nil {
		return nil, wrap("get places by ids", err)
	}
	result := make(map[string]*domain.Place, len(places))
	for _, p := range places {
		result[p.ID] = p
	}
	return result, nil
}

// === Submission Methods ===

func (s *Store) CreateSubmission(ctx context.Context, submission *domain.PendingSubmission) (*domain.PendingSubmission, error) {
	if submission.Status == "" {
		submission.Status = domain.StatusPending
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if submission.OriginalPlaceID != nil {
			var count int64
			if err := tx.Model(&domain.Place{}).Where("id = ?", *submission.OriginalPlaceID).Count(&count).Error; err != nil {
				return wrap("check original place", err)
			}
			if count == 0 {
				return fmt.Errorf("place %s: %w", *submission.OriginalPlaceID, domain.ErrNotFound)
			}
		}
		return wrap("create submission", tx.Create(submission).Error)
	})
	if err != nil {
		return nil, err
	}
	return submission, nil
}

func (s *Store) GetSubmissionByID(ctx context.Context, id string) (*domain.PendingSubmission, error) {
	var submission domain.PendingSubmission
	if err := s.db.WithContext(ctx).First(&submission, "id = ?", id).Error; err != nil {
		return nil, wrap("get submission "+id, err)
	}
	return &submission, nil
}

// GetSubmissionForUpdate берет SELECT ... FOR UPDATE: вторая транзакция над той же
// заявкой ждет, а затем видит уже терминальный статус.
func (s *Store) GetSubmissionForUpdate(ctx context.Context, id string) (*domain.PendingSubmission, error) {
	var submission domain.PendingSubmission
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&submission, "id = ?", id).Error
	if err != nil {
		return nil, wrap("lock submission "+id, err)
	}
	return &submission, nil
}

func (s *Store) ListSubmissions(ctx context.Context, filter storage.SubmissionFilter) ([]*domain.PendingSubmission, error) {
	var submissions []*domain.PendingSubmission
	query := s.db.WithContext(ctx).Order("created_at ASC, id ASC")
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Action != nil {
		query = query.Where("action = ?", *filter.Action)
	}
	err := query.Find(&submissions).Error
	return submissions, wrap("list submissions", err)
}

func (s *Store) TransitionSubmission(ctx context.Context, id string, to domain.Status) error {
	// Условное обновление: из pending выходит только один переход
	res := s.db.WithContext(ctx).Model(&domain.PendingSubmission{}).
		Where("id = ? AND status = ?", id, domain.StatusPending).
		Update("status", to)
	if res.Error != nil {
		return wrap("transition submission "+id, res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}
	current, err := s.GetSubmissionByID(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("submission %s is %s: %w", id, current.Status, domain.ErrInvalidState)
}

// === Photo Methods ===

func (s *Store) CreatePhoto(ctx context.Context, photo *domain.Photo) (*domain.Photo, error) {
	if err := s.db.WithContext(ctx).Create(photo).Error; err != nil {
		return nil, wrap("create photo", err)
	}
	return photo, nil
}

func (s *Store) GetPhotosBySubmissionID(ctx context.Context, submissionID string) ([]*domain.Photo, error) {
	var photos []*domain.Photo
	err := s.db.WithContext(ctx).Where("submission_id = ?", submissionID).Order("created_at ASC").Find(&photos).Error
	return photos, wrap("get submission photos", err)
}

func (s *Store) GetPhotosByPlaceID(ctx context.Context, placeID string) ([]*domain.Photo, error) {
	var photos []*domain.Photo
	err := s.db.WithContext(ctx).Where("place_id = ?", placeID).Order("created_at ASC").Find(&photos).Error
	return photos, wrap("get place photos", err)
}

func (s *Store) GetPhotosBySubmissionStatus(ctx context.Context, status domain.Status) ([]*domain.Photo, error) {
	var photos []*domain.Photo
	err := s.db.WithContext(ctx).
		Joins("JOIN pending_submissions ON pending_submissions.id = photos.submission_id").
		Where("pending_submissions.status = ?", status).
		Order("photos.created_at ASC").
		Find(&photos).Error
	return photos, wrap("get photos by submission status", err)
}

func (s *Store) ReparentPhotos(ctx context.Context, submissionID, placeID string) (int, error) {
	// Одним UPDATE: оба поля меняются вместе, CHECK на таблице держит инвариант
	res := s.db.WithContext(ctx).Model(&domain.Photo{}).
		Where("submission_id = ?", submissionID).
		Updates(map[string]interface{}{
			"place_id":      placeID,
			"submission_id": nil,
		})
	if res.Error != nil {
		return 0, wrap("reparent photos", res.Error)
	}
	return int(res.RowsAffected), nil
}

func (s *Store) DeletePhotos(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Where("id IN ?", ids).Delete(&domain.Photo{})
	if res.Error != nil {
		return 0, wrap("delete photos", res.Error)
	}
	return int(res.RowsAffected), nil
}

// === Comment & Rating Methods ===

func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.Place{}).Where("id = ?", comment.PlaceID).Count(&count).Error; err != nil {
			return wrap("check place", err)
		}
		if count == 0 {
			return fmt.Errorf("place %s: %w", comment.PlaceID, domain.ErrNotFound)
		}
		return wrap("create comment", tx.Create(comment).Error)
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *Store) GetCommentsByPlaceID(ctx context.Context, placeID string) ([]*domain.Comment, error) {
	var comments []*domain.Comment
	err := s.db.WithContext(ctx).Where("place_id = ?", placeID).Order("created_at DESC").Find(&comments).Error
	return comments, wrap("get comments", err)
}

func (s *Store) UpsertRating(ctx context.Context, rating *domain.Rating) (*domain.Rating, error) {
	var result domain.Rating
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.Place{}).Where("id = ?", rating.PlaceID).Count(&count).Error; err != nil {
			return wrap("check place", err)
		}
		if count == 0 {
			return fmt.Errorf("place %s: %w", rating.PlaceID, domain.ErrNotFound)
		}
		// INSERT ... ON CONFLICT (place_id, author_id) DO UPDATE: атомарно, без гонки двух вставок
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "place_id"}, {Name: "author_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).Create(rating).Error
		if err != nil {
			return wrap("upsert rating", err)
		}
		return wrap("reload rating", tx.First(&result, "place_id = ? AND author_id = ?", rating.PlaceID, rating.AuthorID).Error)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *Store) GetRatingsByPlaceID(ctx context.Context, placeID string) ([]*domain.Rating, error) {
	var ratings []*domain.Rating
	err := s.db.WithContext(ctx).Where("place_id = ?", placeID).Find(&ratings).Error
	return ratings, wrap("get ratings", err)
}

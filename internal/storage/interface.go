package storage

import (
	"context"

	"github.com/Andrei-KV/sport-places-2025/internal/domain"
)

// SubmissionFilter - фильтры очереди модерации. nil означает "любой".
type SubmissionFilter struct {
	Status *domain.Status
	Action *domain.Action
}

// Repository определяет операции над сущностями каталога.
// Реализации возвращают domain.ErrNotFound для отсутствующих записей
// и *domain.StorageError для сбоев самого хранилища.
type Repository interface {
	CreateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error)
	GetCategoryByID(ctx context.Context, id string) (*domain.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*domain.Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*domain.Category, error)
	ListCategories(ctx context.Context) ([]*domain.Category, error)

	CreatePlace(ctx context.Context, place *domain.Place) (*domain.Place, error)
	GetPlaceByID(ctx context.Context, id string) (*domain.Place, error)
	ListPlaces(ctx context.Context) ([]*domain.Place, error)
	UpdatePlace(ctx context.Context, place *domain.Place) (*domain.Place, error)
	// DeletePlace скрывает площадку (soft delete). Фото, комментарии и оценки остаются в базе.
	DeletePlace(ctx context.Context, id string) error

	CreateSubmission(ctx context.Context, submission *domain.PendingSubmission) (*domain.PendingSubmission, error)
	GetSubmissionByID(ctx context.Context, id string) (*domain.PendingSubmission, error)
	// GetSubmissionForUpdate читает заявку с блокировкой строки до конца транзакции.
	GetSubmissionForUpdate(ctx context.Context, id string) (*domain.PendingSubmission, error)
	// ListSubmissions возвращает заявки в порядке создания.
	ListSubmissions(ctx context.Context, filter SubmissionFilter) ([]*domain.PendingSubmission, error)
	// TransitionSubmission переводит заявку из pending в to.
	// Если заявка уже не pending - domain.ErrInvalidState.
	TransitionSubmission(ctx context.Context, id string, to domain.Status) error

	CreatePhoto(ctx context.Context, photo *domain.Photo) (*domain.Photo, error)
	GetPhotosBySubmissionID(ctx context.Context, submissionID string) ([]*domain.Photo, error)
	GetPhotosByPlaceID(ctx context.Context, placeID string) ([]*domain.Photo, error)
	GetPhotosBySubmissionStatus(ctx context.Context, status domain.Status) ([]*domain.Photo, error)
	// ReparentPhotos одним обновлением переносит все фото заявки на площадку.
	ReparentPhotos(ctx context.Context, submissionID, placeID string) (int, error)
	DeletePhotos(ctx context.Context, ids []string) (int, error)

	CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error)
	// GetCommentsByPlaceID возвращает комментарии, новые первыми.
	GetCommentsByPlaceID(ctx context.Context, placeID string) ([]*domain.Comment, error)
	// UpsertRating создает оценку или обновляет значение существующей для пары (площадка, автор).
	UpsertRating(ctx context.Context, rating *domain.Rating) (*domain.Rating, error)
	GetRatingsByPlaceID(ctx context.Context, placeID string) ([]*domain.Rating, error)

	// Метод для Dataloader'а
	GetPlacesByIDs(ctx context.Context, ids []string) (map[string]*domain.Place, error)
}

// Storage определяет контракт для хранилищ.
type Storage interface {
	Repository
	// Transaction выполняет fn атомарно: либо все изменения фиксируются,
	// либо (при ошибке или отмене контекста) ни одно.
	Transaction(ctx context.Context, fn func(tx Repository) error) error
}

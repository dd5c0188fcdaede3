package community

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Andrei-KV/sport-places-2025/internal/domain"
	"github.com/Andrei-KV/sport-places-2025/internal/storage"
)

const maxCommentLen = 2000

// Service - комментарии и оценки опубликованных площадок.
type Service struct {
	store storage.Storage
}

func NewService(store storage.Storage) *Service {
	return &Service{store: store}
}

// PlaceDetail - площадка со всем, что показывается на ее странице.
type PlaceDetail struct {
	Place    *domain.Place     `json:"place"`
	Category *domain.Category  `json:"category,omitempty"`
	Photos   []*domain.Photo   `json:"photos"`
	Comments []*domain.Comment `json:"comments"`
	// AverageRating - nil, если оценок еще нет.
	AverageRating *float64 `json:"averageRating"`
	RatingsCount  int      `json:"ratingsCount"`
}

// ListPlaces - все опубликованные площадки.
func (s *Service) ListPlaces(ctx context.Context) ([]*domain.Place, error) {
	return s.store.ListPlaces(ctx)
}

// ListCategories - все категории.
func (s *Service) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	return s.store.ListCategories(ctx)
}

// GetPlaceDetail собирает страницу площадки: комментарии новыми первыми, средняя оценка.
func (s *Service) GetPlaceDetail(ctx context.Context, placeID string) (*PlaceDetail, error) {
	place, err := s.store.GetPlaceByID(ctx, placeID)
	if err != nil {
		return nil, err
	}
	detail := &PlaceDetail{Place: place}

	if place.CategoryID != nil {
		detail.Category, err = s.store.GetCategoryByID(ctx, *place.CategoryID)
		if err != nil {
			return nil, err
		}
	}
	if detail.Photos, err = s.store.GetPhotosByPlaceID(ctx, placeID); err != nil {
		return nil, err
	}
	if detail.Comments, err = s.store.GetCommentsByPlaceID(ctx, placeID); err != nil {
		return nil, err
	}

	ratings, err := s.store.GetRatingsByPlaceID(ctx, placeID)
	if err != nil {
		return nil, err
	}
	detail.RatingsCount = len(ratings)
	if len(ratings) > 0 {
		sum := 0
		for _, r := range ratings {
			sum += r.Value
		}
		avg := float64(sum) / float64(len(ratings))
		detail.AverageRating = &avg
	}
	return detail, nil
}

// AddComment добавляет комментарий авторизованного пользователя.
func (s *Service) AddComment(ctx context.Context, placeID, authorID, text string) (*domain.Comment, error) {
	text = strings.TrimSpace(text)
	if authorID == "" {
		return nil, fmt.Errorf("%w: author is required", domain.ErrValidation)
	}
	if text == "" {
		return nil, fmt.Errorf("%w: comment content cannot be empty", domain.ErrValidation)
	}
	if utf8.RuneCountInString(text) > maxCommentLen {
		return nil, fmt.Errorf("%w: comment content is too long", domain.ErrValidation)
	}
	return s.store.CreateComment(ctx, &domain.Comment{PlaceID: placeID, AuthorID: authorID, Text: text})
}

// Rate ставит или меняет оценку пользователя. Вторая оценка той же площадки
// обновляет первую, а не добавляет новую запись.
func (s *Service) Rate(ctx context.Context, placeID, authorID string, value int) (*domain.Rating, error) {
	if authorID == "" {
		return nil, fmt.Errorf("%w: author is required", domain.ErrValidation)
	}
	if value < domain.MinRating || value > domain.MaxRating {
		return nil, fmt.Errorf("%w: rating must be between %d and %d", domain.ErrValidation, domain.MinRating, domain.MaxRating)
	}
	return s.store.UpsertRating(ctx, &domain.Rating{PlaceID: placeID, AuthorID: authorID, Value: value})
}

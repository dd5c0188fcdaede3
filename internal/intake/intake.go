package intake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/Andrei-KV/sport-places-2025/internal/domain"
	"github.com/Andrei-KV/sport-places-2025/internal/storage"
)

const (
	maxNameLen     = 200
	maxCategoryLen = 100
	maxPhotos      = 10
)

var allowedPhotoExt = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

// Input - данные формы площадки.
type Input struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	CategoryID  *string  `json:"categoryId,omitempty"`
	NewCategory string   `json:"newCategory,omitempty"`
}

// Upload - загруженный файл фото.
type Upload struct {
	Filename string
	Body     io.Reader
}

// Blobs - хранилище файлов.
type Blobs interface {
	Put(ctx context.Context, filename string, r io.Reader) (string, error)
	Delete(ctx context.Context, ref string) error
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrValidation, fmt.Sprintf(format, args...))
}

// === Фаза 1: проверка и сборка заявки в памяти ===

// BuildAdd собирает заявку на добавление новой площадки.
func BuildAdd(submitterID string, in Input) (*domain.PendingSubmission, error) {
	sub := &domain.PendingSubmission{
		Name:             strings.TrimSpace(in.Name),
		Description:      strings.TrimSpace(in.Description),
		Latitude:         in.Latitude,
		Longitude:        in.Longitude,
		SubmitterID:      submitterID,
		Status:           domain.StatusPending,
		Action:           domain.ActionAdd,
		CategoryID:       in.CategoryID,
		ProposedCategory: strings.TrimSpace(in.NewCategory),
	}
	if sub.CategoryID != nil && *sub.CategoryID == "" {
		sub.CategoryID = nil
	}
	if err := validate(sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// BuildEdit собирает заявку на изменение. Пустые поля формы берутся из исходной
// площадки, как если бы форма была заполнена ее текущими данными.
// Категория при редактировании не меняется.
func BuildEdit(submitterID string, original *domain.Place, in Input) (*domain.PendingSubmission, error) {
	if original == nil {
		return nil, invalid("edit requires an original place")
	}
	sub := &domain.PendingSubmission{
		Name:            strings.TrimSpace(in.Name),
		Description:     strings.TrimSpace(in.Description),
		Latitude:        in.Latitude,
		Longitude:       in.Longitude,
		SubmitterID:     submitterID,
		OriginalPlaceID: &original.ID,
		Status:          domain.StatusPending,
		Action:          domain.ActionEdit,
	}
	if sub.Name == "" {
		sub.Name = original.Name
	}
	if sub.Latitude == nil {
		sub.Latitude = original.Latitude
	}
	if sub.Longitude == nil {
		sub.Longitude = original.Longitude
	}
	if err := validate(sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// BuildDelete собирает заявку на удаление. В описание идет причина,
// а без нее - текущее описание площадки.
func BuildDelete(submitterID string, original *domain.Place, reason string) (*domain.PendingSubmission, error) {
	if original == nil {
		return nil, invalid("delete requires an original place")
	}
	description := strings.TrimSpace(reason)
	if description == "" {
		description = original.Description
	}
	sub := &domain.PendingSubmission{
		Name:            original.Name,
		Description:     description,
		Latitude:        original.Latitude,
		Longitude:       original.Longitude,
		SubmitterID:     submitterID,
		OriginalPlaceID: &original.ID,
		Status:          domain.StatusPending,
		Action:          domain.ActionDelete,
	}
	if err := validate(sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func validate(sub *domain.PendingSubmission) error {
	if strings.TrimSpace(sub.SubmitterID) == "" {
		return invalid("submitter is required")
	}
	if sub.Name == "" {
		return invalid("name is required")
	}
	if utf8.RuneCountInString(sub.Name) > maxNameLen {
		return invalid("name is longer than %d characters", maxNameLen)
	}
	if sub.Description == "" {
		return invalid("description is required")
	}
	if sub.Latitude != nil && (*sub.Latitude < -90 || *sub.Latitude > 90) {
		return invalid("latitude %v is out of range", *sub.Latitude)
	}
	if sub.Longitude != nil && (*sub.Longitude < -180 || *sub.Longitude > 180) {
		return invalid("longitude %v is out of range", *sub.Longitude)
	}
	if utf8.RuneCountInString(sub.ProposedCategory) > maxCategoryLen {
		return invalid("category name is longer than %d characters", maxCategoryLen)
	}
	return sub.CheckTarget()
}

func validateUploads(uploads []Upload) error {
	if len(uploads) > maxPhotos {
		return invalid("at most %d photos per submission", maxPhotos)
	}
	for _, u := range uploads {
		ext := strings.ToLower(filepath.Ext(u.Filename))
		if !slices.Contains(allowedPhotoExt, ext) {
			return invalid("unsupported photo type %q", u.Filename)
		}
	}
	return nil
}

// === Фаза 2: сохранение ===

// Service принимает заявки пользователей.
type Service struct {
	store storage.Storage
	blobs Blobs
}

func NewService(store storage.Storage, blobs Blobs) *Service {
	return &Service{store: store, blobs: blobs}
}

// SubmitAdd - заявка на новую площадку.
func (s *Service) SubmitAdd(ctx context.Context, submitterID string, in Input, uploads []Upload) (*domain.PendingSubmission, error) {
	sub, err := BuildAdd(submitterID, in)
	if err != nil {
		return nil, err
	}
	return s.persist(ctx, sub, uploads)
}

// SubmitEdit - заявка на изменение существующей площадки.
func (s *Service) SubmitEdit(ctx context.Context, submitterID, placeID string, in Input, uploads []Upload) (*domain.PendingSubmission, error) {
	original, err := s.store.GetPlaceByID(ctx, placeID)
	if err != nil {
		return nil, err
	}
	sub, err := BuildEdit(submitterID, original, in)
	if err != nil {
		return nil, err
	}
	return s.persist(ctx, sub, uploads)
}

// SubmitDelete - заявка на удаление площадки.
func (s *Service) SubmitDelete(ctx context.Context, submitterID, placeID, reason string) (*domain.PendingSubmission, error) {
	original, err := s.store.GetPlaceByID(ctx, placeID)
	if err != nil {
		return nil, err
	}
	sub, err := BuildDelete(submitterID, original, reason)
	if err != nil {
		return nil, err
	}
	return s.persist(ctx, sub, nil)
}

// persist сохраняет файлы, затем в одной транзакции заявку и записи фото.
// Если транзакция не прошла, сохраненные файлы удаляются.
func (s *Service) persist(ctx context.Context, sub *domain.PendingSubmission, uploads []Upload) (*domain.PendingSubmission, error) {
	if err := validateUploads(uploads); err != nil {
		return nil, err
	}

	refs := make([]string, 0, len(uploads))
	for _, u := range uploads {
		ref, err := s.blobs.Put(ctx, u.Filename, u.Body)
		if err != nil {
			s.cleanup(refs)
			return nil, fmt.Errorf("store photo %q: %w", u.Filename, err)
		}
		refs = append(refs, ref)
	}

	var created *domain.PendingSubmission
	err := s.store.Transaction(ctx, func(tx storage.Repository) error {
		if sub.CategoryID != nil {
			if _, err := tx.GetCategoryByID(ctx, *sub.CategoryID); err != nil {
				return err
			}
		}
		var err error
		created, err = tx.CreateSubmission(ctx, sub)
		if err != nil {
			return err
		}
		for _, ref := range refs {
			if _, err := tx.CreatePhoto(ctx, &domain.Photo{ImageRef: ref, SubmissionID: &created.ID}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.cleanup(refs)
		return nil, err
	}
	log.Printf("intake: %s submission %s from %s with %d photos", created.Action, created.ID, created.SubmitterID, len(refs))
	return created, nil
}

func (s *Service) cleanup(refs []string) {
	var errs []error
	for _, ref := range refs {
		// Контекст запроса мог быть уже отменен, файлы все равно нужно убрать
		if err := s.blobs.Delete(context.Background(), ref); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		log.Printf("intake: failed to clean up uploads: %v", errors.Join(errs...))
	}
}

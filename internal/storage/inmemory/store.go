package inmemory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/Andrei-KV/sport-places-2025/internal/domain"
	"github.com/Andrei-KV/sport-places-2025/internal/storage"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Store реализует интерфейс Storage в памяти.
// Транзакции сериализуются общим мьютексом и работают на копии состояния,
// которая подменяет основное состояние только при успешном завершении.
type Store struct {
	mu sync.RWMutex
	st *state
}

var (
	_ storage.Storage    = (*Store)(nil)
	_ storage.Repository = (*repo)(nil)
)

// New создает новый экземпляр in-memory хранилища.
func New() *Store {
	return &Store{st: newState()}
}

// state хранит записи по значению, чтобы копия состояния не делила их с оригиналом.
type state struct {
	categories      map[string]domain.Category
	categoryOrder   []string
	places          map[string]domain.Place
	placeOrder      []string
	submissions     map[string]domain.PendingSubmission
	submissionOrder []string
	photos          map[string]domain.Photo
	photoOrder      []string
	comments        map[string]domain.Comment
	commentOrder    []string
	ratings         map[string]domain.Rating
	ratingOrder     []string
}

func newState() *state {
	return &state{
		categories:  make(map[string]domain.Category),
		places:      make(map[string]domain.Place),
		submissions: make(map[string]domain.PendingSubmission),
		photos:      make(map[string]domain.Photo),
		comments:    make(map[string]domain.Comment),
		ratings:     make(map[string]domain.Rating),
	}
}

func (st *state) clone() *state {
	return &state{
		categories:      maps.Clone(st.categories),
		categoryOrder:   slices.Clone(st.categoryOrder),
		places:          maps.Clone(st.places),
		placeOrder:      slices.Clone(st.placeOrder),
		submissions:     maps.Clone(st.submissions),
		submissionOrder: slices.Clone(st.submissionOrder),
		photos:          maps.Clone(st.photos),
		photoOrder:      slices.Clone(st.photoOrder),
		comments:        maps.Clone(st.comments),
		commentOrder:    slices.Clone(st.commentOrder),
		ratings:         maps.Clone(st.ratings),
		ratingOrder:     slices.Clone(st.ratingOrder),
	}
}

// Transaction выполняет fn на копии состояния под эксклюзивной блокировкой.
func (s *Store) Transaction(ctx context.Context, fn func(tx storage.Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	draft := s.st.clone()
	if err := fn(&repo{st: draft}); err != nil {
		return err
	}
	// Отмена контекста во время транзакции - полный откат
	if err := ctx.Err(); err != nil {
		return err
	}
	s.st = draft
	return nil
}

func (s *Store) read() *repo {
	return &repo{st: s.st}
}

// === Category Methods ===

func (s *Store) CreateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().CreateCategory(ctx, category)
}

func (s *Store) GetCategoryByID(ctx context.Context, id string) (*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().GetCategoryByID(ctx, id)
}

func (s *Store) GetCategoryByName(ctx context.Context, name string) (*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().GetCategoryByName(ctx, name)
}

func (s *Store) GetCategoryBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().GetCategoryBySlug(ctx, slug)
}

func (s *Store) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().ListCategories(ctx)
}

// === Place Methods ===

func (s *Store) CreatePlace(ctx context.Context, place *domain.Place) (*domain.Place, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().CreatePlace(ctx, place)
}

func (s *Store) GetPlaceByID(ctx context.Context, id string) (*domain.Place, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().GetPlaceByID(ctx, id)
}

func (s *Store) ListPlaces(ctx context.Context) ([]*domain.Place, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().ListPlaces(ctx)
}

func (s *Store) UpdatePlace(ctx context.Context, place *domain.Place) (*domain.Place, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().UpdatePlace(ctx, place)
}

func (s *Store) DeletePlace(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().DeletePlace(ctx, id)
}

func (s *Store) GetPlacesByIDs(ctx context.Context, ids []string) (map[string]*domain.Place, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().GetPlacesByIDs(ctx, ids)
}

// === Submission Methods ===

func (s *Store) CreateSubmission(ctx context.Context, submission *domain.PendingSubmission) (*domain.PendingSubmission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().CreateSubmission(ctx, submission)
}

func (s *Store) GetSubmissionByID(ctx context.Context, id string) (*domain.PendingSubmission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().GetSubmissionByID(ctx, id)
}

func (s *Store) GetSubmissionForUpdate(ctx context.Context, id string) (*domain.PendingSubmission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().GetSubmissionByID(ctx, id)
}

func (s *Store) ListSubmissions(ctx context.Context, filter storage.SubmissionFilter) ([]*domain.PendingSubmission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().ListSubmissions(ctx, filter)
}

func (s *Store) TransitionSubmission(ctx context.Context, id string, to domain.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().TransitionSubmission(ctx, id, to)
}

// === Photo Methods ===

func (s *Store) CreatePhoto(ctx context.Context, photo *domain.Photo) (*domain.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().CreatePhoto(ctx, photo)
}

func (s *Store) GetPhotosBySubmissionID(ctx context.Context, submissionID string) ([]*domain.Photo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().GetPhotosBySubmissionID(ctx, submissionID)
}

func (s *Store) GetPhotosByPlaceID(ctx context.Context, placeID string) ([]*domain.Photo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().GetPhotosByPlaceID(ctx, placeID)
}

func (s *Store) GetPhotosBySubmissionStatus(ctx context.Context, status domain.Status) ([]*domain.Photo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().GetPhotosBySubmissionStatus(ctx, status)
}

func (s *Store) ReparentPhotos(ctx context.Context, submissionID, placeID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().ReparentPhotos(ctx, submissionID, placeID)
}

func (s *Store) DeletePhotos(ctx context.Context, ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().DeletePhotos(ctx, ids)
}

// === Comment & Rating Methods ===

func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().CreateComment(ctx, comment)
}

func (s *Store) GetCommentsByPlaceID(ctx context.Context, placeID string) ([]*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().GetCommentsByPlaceID(ctx, placeID)
}

func (s *Store) UpsertRating(ctx context.Context, rating *domain.Rating) (*domain.Rating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().UpsertRating(ctx, rating)
}

func (s *Store) GetRatingsByPlaceID(ctx context.Context, placeID string) ([]*domain.Rating, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().GetRatingsByPlaceID(ctx, placeID)
}

// repo - реализация Repository поверх состояния без собственной синхронизации.
// Вызывающий отвечает за блокировку.
type repo struct {
	st *state
}

func now() time.Time { return time.Now().UTC() }

func notFound(kind, id string) error {
	return fmt.Errorf("%s with id %s: %w", kind, id, domain.ErrNotFound)
}

func (r *repo) CreateCategory(_ context.Context, category *domain.Category) (*domain.Category, error) {
	for _, c := range r.st.categories {
		// Как ON CONFLICT (name) DO NOTHING: возвращаем существующую
		if c.Name == category.Name {
			return &c, nil
		}
		if c.Slug == category.Slug {
			return nil, &domain.StorageError{Op: "create category", Err: fmt.Errorf("duplicate slug %q", category.Slug)}
		}
	}
	category.ID = uuid.NewString()
	r.st.categories[category.ID] = *category
	r.st.categoryOrder = append(r.st.categoryOrder, category.ID)
	c := *category
	return &c, nil
}

func (r *repo) GetCategoryByID(_ context.Context, id string) (*domain.Category, error) {
	c, ok := r.st.categories[id]
	if !ok {
		return nil, notFound("category", id)
	}
	return &c, nil
}

func (r *repo) GetCategoryByName(_ context.Context, name string) (*domain.Category, error) {
	for _, c := range r.st.categories {
		if c.Name == name {
			return &c, nil
		}
	}
	return nil, fmt.Errorf("category %q: %w", name, domain.ErrNotFound)
}

func (r *repo) GetCategoryBySlug(_ context.Context, slug string) (*domain.Category, error) {
	for _, c := range r.st.categories {
		if c.Slug == slug {
			return &c, nil
		}
	}
	return nil, fmt.Errorf("category slug %q: %w", slug, domain.ErrNotFound)
}

func (r *repo) ListCategories(_ context.Context) ([]*domain.Category, error) {
	result := make([]*domain.Category, 0, len(r.st.categoryOrder))
	for _, id := range r.st.categoryOrder {
		c := r.st.categories[id]
		result = append(result, &c)
	}
	return result, nil
}

func (r *repo) CreatePlace(_ context.Context, place *domain.Place) (*domain.Place, error) {
	place.ID = uuid.NewString()
	place.CreatedAt = now()
	place.DeletedAt = gorm.DeletedAt{}
	r.st.places[place.ID] = *place
	r.st.placeOrder = append(r.st.placeOrder, place.ID)
	p := *place
	return &p, nil
}

// livePlace возвращает площадку, если она существует и не удалена.
func (r *repo) livePlace(id string) (domain.Place, bool) {
	p, ok := r.st.places[id]
	if !ok || p.DeletedAt.Valid {
		return domain.Place{}, false
	}
	return p, true
}

func (r *repo) GetPlaceByID(_ context.Context, id string) (*domain.Place, error) {
	p, ok := r.livePlace(id)
	if !ok {
		return nil, notFound("place", id)
	}
	return &p, nil
}

func (r *repo) ListPlaces(_ context.Context) ([]*domain.Place, error) {
	result := make([]*domain.Place, 0, len(r.st.placeOrder))
	for _, id := range r.st.placeOrder {
		if p, ok := r.livePlace(id); ok {
			result = append(result, &p)
		}
	}
	return result, nil
}

func (r *repo) UpdatePlace(_ context.Context, place *domain.Place) (*domain.Place, error) {
	existing, ok := r.livePlace(place.ID)
	if !ok {
		return nil, notFound("place", place.ID)
	}
	updated := *place
	updated.CreatedAt = existing.CreatedAt
	updated.DeletedAt = existing.DeletedAt
	r.st.places[place.ID] = updated
	return &updated, nil
}

func (r *repo) DeletePlace(_ context.Context, id string) error {
	p, ok := r.livePlace(id)
	if !ok {
		return notFound("place", id)
	}
	p.DeletedAt = gorm.DeletedAt{Time: now(), Valid: true}
	r.st.places[id] = p
	return nil
}

func (r *repo) GetPlacesByIDs(_ context.Context, ids []string) (map[string]*domain.Place, error) {
	result := make(map[string]*domain.Place, len(ids))
	for _, id := range ids {
		if p, ok := r.livePlace(id); ok {
			result[id] = &p
		}
	}
	return result, nil
}

func (r *repo) CreateSubmission(_ context.Context, submission *domain.PendingSubmission) (*domain.PendingSubmission, error) {
	if submission.OriginalPlaceID != nil {
		if _, ok := r.livePlace(*submission.OriginalPlaceID); !ok {
			return nil, notFound("place", *submission.OriginalPlaceID)
		}
	}
	submission.ID = uuid.NewString()
	submission.CreatedAt = now()
	if submission.Status == "" {
		submission.Status = domain.StatusPending
	}
	r.st.submissions[submission.ID] = *submission
	r.st.submissionOrder = append(r.st.submissionOrder, submission.ID)
	s := *submission
	return &s, nil
}

func (r *repo) GetSubmissionByID(_ context.Context, id string) (*domain.PendingSubmission, error) {
	s, ok := r.st.submissions[id]
	if !ok {
		return nil, notFound("submission", id)
	}
	return &s, nil
}

// GetSubmissionForUpdate: транзакции и так сериализованы, отдельная блокировка не нужна.
func (r *repo) GetSubmissionForUpdate(ctx context.Context, id string) (*domain.PendingSubmission, error) {
	return r.GetSubmissionByID(ctx, id)
}

func (r *repo) ListSubmissions(_ context.Context, filter storage.SubmissionFilter) ([]*domain.PendingSubmission, error) {
	result := make([]*domain.PendingSubmission, 0, len(r.st.submissionOrder))
	for _, id := range r.st.submissionOrder {
		s := r.st.submissions[id]
		if filter.Status != nil && s.Status != *filter.Status {
			continue
		}
		if filter.Action != nil && s.Action != *filter.Action {
			continue
		}
		result = append(result, &s)
	}
	return result, nil
}

func (r *repo) TransitionSubmission(_ context.Context, id string, to domain.Status) error {
	s, ok := r.st.submissions[id]
	if !ok {
		return notFound("submission", id)
	}
	if s.Status != domain.StatusPending {
		return fmt.Errorf("submission %s is %s: %w", id, s.Status, domain.ErrInvalidState)
	}
	s.Status = to
	r.st.submissions[id] = s
	return nil
}

func (r *repo) CreatePhoto(_ context.Context, photo *domain.Photo) (*domain.Photo, error) {
	// Ровно один владелец: заявка или площадка
	if (photo.SubmissionID == nil) == (photo.PlaceID == nil) {
		return nil, &domain.StorageError{Op: "create photo", Err: fmt.Errorf("photo must have exactly one owner")}
	}
	if photo.SubmissionID != nil {
		if _, ok := r.st.submissions[*photo.SubmissionID]; !ok {
			return nil, notFound("submission", *photo.SubmissionID)
		}
	}
	if photo.PlaceID != nil {
		if _, ok := r.livePlace(*photo.PlaceID); !ok {
			return nil, notFound("place", *photo.PlaceID)
		}
	}
	photo.ID = uuid.NewString()
	photo.CreatedAt = now()
	r.st.photos[photo.ID] = *photo
	r.st.photoOrder = append(r.st.photoOrder, photo.ID)
	p := *photo
	return &p, nil
}

func (r *repo) filterPhotos(match func(p domain.Photo) bool) []*domain.Photo {
	result := make([]*domain.Photo, 0)
	for _, id := range r.st.photoOrder {
		p, ok := r.st.photos[id]
		if ok && match(p) {
			result = append(result, &p)
		}
	}
	return result
}

func (r *repo) GetPhotosBySubmissionID(_ context.Context, submissionID string) ([]*domain.Photo, error) {
	return r.filterPhotos(func(p domain.Photo) bool {
		return p.SubmissionID != nil && *p.SubmissionID == submissionID
	}), nil
}

func (r *repo) GetPhotosByPlaceID(_ context.Context, placeID string) ([]*domain.Photo, error) {
	return r.filterPhotos(func(p domain.Photo) bool {
		return p.PlaceID != nil && *p.PlaceID == placeID
	}), nil
}

func (r *repo) GetPhotosBySubmissionStatus(_ context.Context, status domain.Status) ([]*domain.Photo, error) {
	return r.filterPhotos(func(p domain.Photo) bool {
		if p.SubmissionID == nil {
			return false
		}
		s, ok := r.st.submissions[*p.SubmissionID]
		return ok && s.Status == status
	}), nil
}

func (r *repo) ReparentPhotos(_ context.Context, submissionID, placeID string) (int, error) {
	if _, ok := r.livePlace(placeID); !ok {
		return 0, notFound("place", placeID)
	}
	moved := 0
	for _, id := range r.st.photoOrder {
		p := r.st.photos[id]
		if p.SubmissionID == nil || *p.SubmissionID != submissionID {
			continue
		}
		target := placeID
		p.PlaceID = &target
		p.SubmissionID = nil
		r.st.photos[id] = p
		moved++
	}
	return moved, nil
}

func (r *repo) DeletePhotos(_ context.Context, ids []string) (int, error) {
	deleted := 0
	for _, id := range ids {
		if _, ok := r.st.photos[id]; !ok {
			continue
		}
		delete(r.st.photos, id)
		deleted++
	}
	r.st.photoOrder = slices.DeleteFunc(r.st.photoOrder, func(id string) bool {
		_, ok := r.st.photos[id]
		return !ok
	})
	return deleted, nil
}

func (r *repo) CreateComment(_ context.Context, comment *domain.Comment) (*domain.Comment, error) {
	if _, ok := r.livePlace(comment.PlaceID); !ok {
		return nil, notFound("place", comment.PlaceID)
	}
	comment.ID = uuid.NewString()
	comment.CreatedAt = now()
	r.st.comments[comment.ID] = *comment
	r.st.commentOrder = append(r.st.commentOrder, comment.ID)
	c := *comment
	return &c, nil
}

func (r *repo) GetCommentsByPlaceID(_ context.Context, placeID string) ([]*domain.Comment, error) {
	result := make([]*domain.Comment, 0)
	// Новые первыми: идем по порядку вставки с конца
	for i := len(r.st.commentOrder) - 1; i >= 0; i-- {
		c := r.st.comments[r.st.commentOrder[i]]
		if c.PlaceID == placeID {
			result = append(result, &c)
		}
	}
	return result, nil
}

func (r *repo) UpsertRating(_ context.Context, rating *domain.Rating) (*domain.Rating, error) {
	if _, ok := r.livePlace(rating.PlaceID); !ok {
		return nil, notFound("place", rating.PlaceID)
	}
	for _, id := range r.st.ratingOrder {
		existing := r.st.ratings[id]
		if existing.PlaceID == rating.PlaceID && existing.AuthorID == rating.AuthorID {
			existing.Value = rating.Value
			r.st.ratings[id] = existing
			return &existing, nil
		}
	}
	rating.ID = uuid.NewString()
	r.st.ratings[rating.ID] = *rating
	r.st.ratingOrder = append(r.st.ratingOrder, rating.ID)
	created := *rating
	return &created, nil
}

func (r *repo) GetRatingsByPlaceID(_ context.Context, placeID string) ([]*domain.Rating, error) {
	result := make([]*domain.Rating, 0)
	for _, id := range r.st.ratingOrder {
		rt := r.st.ratings[id]
		if rt.PlaceID == placeID {
			result = append(result, &rt)
		}
	}
	return result, nil
}

package moderation

import (
	"context"
	"fmt"

	"github.com/Andrei-KV/sport-places-2025/internal/category"
	"github.com/Andrei-KV/sport-places-2025/internal/domain"
	"github.com/Andrei-KV/sport-places-2025/internal/photos"
	"github.com/Andrei-KV/sport-places-2025/internal/storage"
)

// Result - итог обработки одной заявки.
type Result struct {
	SubmissionID string        `json:"submissionId"`
	Status       domain.Status `json:"status"`
	// PlaceID - созданная, измененная или удаленная площадка. Пусто при отклонении.
	PlaceID     string `json:"placeId,omitempty"`
	PhotosMoved int    `json:"photosMoved"`
}

// Engine применяет одобренные заявки к каталогу площадок.
type Engine struct {
	store      storage.Storage
	categories *category.Resolver
	photos     *photos.Reparenter
}

// NewEngine - конструктор движка слияния.
func NewEngine(store storage.Storage, categories *category.Resolver, reparenter *photos.Reparenter) *Engine {
	return &Engine{store: store, categories: categories, photos: reparenter}
}

// Approve одобряет заявку в одной транзакции: изменение площадки, категория,
// перенос фото и смена статуса фиксируются вместе или не фиксируются вовсе.
func (e *Engine) Approve(ctx context.Context, id string) (*Result, error) {
	var result *Result
	err := e.store.Transaction(ctx, func(tx storage.Repository) error {
		sub, err := tx.GetSubmissionForUpdate(ctx, id)
		if err != nil {
			return err
		}
		result, err = e.Merge(ctx, tx, sub)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Reject отклоняет заявку. Кроме статуса ничего не меняется: фото остаются у заявки.
func (e *Engine) Reject(ctx context.Context, id string) (*Result, error) {
	err := e.store.Transaction(ctx, func(tx storage.Repository) error {
		sub, err := tx.GetSubmissionForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if sub.Status != domain.StatusPending {
			return fmt.Errorf("reject submission %s: already %s: %w", sub.ID, sub.Status, domain.ErrInvalidState)
		}
		return tx.TransitionSubmission(ctx, sub.ID, domain.StatusRejected)
	})
	if err != nil {
		return nil, err
	}
	return &Result{SubmissionID: id, Status: domain.StatusRejected}, nil
}

// Merge применяет заявку через repo. Должен вызываться внутри транзакции,
// заявка должна быть прочитана с блокировкой.
func (e *Engine) Merge(ctx context.Context, repo storage.Repository, sub *domain.PendingSubmission) (*Result, error) {
	if sub.Status != domain.StatusPending {
		return nil, fmt.Errorf("approve submission %s: already %s: %w", sub.ID, sub.Status, domain.ErrInvalidState)
	}
	// Проверяем повторно: заявка могла попасть в базу в обход приема заявок
	if err := sub.CheckTarget(); err != nil {
		return nil, fmt.Errorf("approve submission %s: %w", sub.ID, err)
	}

	result := &Result{SubmissionID: sub.ID, Status: domain.StatusApproved}
	var err error
	switch sub.Action {
	case domain.ActionAdd:
		err = e.mergeAdd(ctx, repo, sub, result)
	case domain.ActionEdit:
		err = e.mergeEdit(ctx, repo, sub, result)
	case domain.ActionDelete:
		err = e.mergeDelete(ctx, repo, sub, result)
	}
	if err != nil {
		return nil, fmt.Errorf("approve submission %s (%s): %w", sub.ID, sub.Action, err)
	}

	if err := repo.TransitionSubmission(ctx, sub.ID, domain.StatusApproved); err != nil {
		return nil, err
	}
	return result, nil
}

// mergeAdd создает новую площадку из заявки и переносит на нее фото.
func (e *Engine) mergeAdd(ctx context.Context, repo storage.Repository, sub *domain.PendingSubmission, result *Result) error {
	categoryID, err := e.categories.Resolve(ctx, repo, sub.CategoryID, sub.ProposedCategory)
	if err != nil {
		return err
	}
	place, err := repo.CreatePlace(ctx, &domain.Place{
		Name:        sub.Name,
		Description: sub.Description,
		OwnerID:     sub.SubmitterID,
		Latitude:    sub.Latitude,
		Longitude:   sub.Longitude,
		CategoryID:  categoryID,
	})
	if err != nil {
		return err
	}
	result.PlaceID = place.ID

	result.PhotosMoved, err = e.photos.Reparent(ctx, repo, sub.ID, place.ID)
	return err
}

// mergeEdit переписывает описание и координаты исходной площадки.
// Название не трогаем: оно есть в заявке только чтобы не потерять данные.
func (e *Engine) mergeEdit(ctx context.Context, repo storage.Repository, sub *domain.PendingSubmission, result *Result) error {
	place, err := repo.GetPlaceByID(ctx, *sub.OriginalPlaceID)
	if err != nil {
		return err
	}
	place.Description = sub.Description
	// Координаты копируются всегда, в том числе пустые
	place.Latitude = sub.Latitude
	place.Longitude = sub.Longitude
	if _, err := repo.UpdatePlace(ctx, place); err != nil {
		return err
	}
	result.PlaceID = place.ID

	result.PhotosMoved, err = e.photos.Reparent(ctx, repo, sub.ID, place.ID)
	return err
}

// mergeDelete скрывает исходную площадку (soft delete). Фото заявки переносятся
// на нее же, чтобы у каждого фото оставался владелец.
func (e *Engine) mergeDelete(ctx context.Context, repo storage.Repository, sub *domain.PendingSubmission, result *Result) error {
	placeID := *sub.OriginalPlaceID
	if _, err := repo.GetPlaceByID(ctx, placeID); err != nil {
		return err
	}
	moved, err := e.photos.Reparent(ctx, repo, sub.ID, placeID)
	if err != nil {
		return err
	}
	if err := repo.DeletePlace(ctx, placeID); err != nil {
		return err
	}
	result.PlaceID = placeID
	result.PhotosMoved = moved
	return nil
}

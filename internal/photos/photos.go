package photos

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/Andrei-KV/sport-places-2025/internal/domain"
	"github.com/Andrei-KV/sport-places-2025/internal/storage"
)

// Reparenter переносит фото заявки на опубликованную площадку.
type Reparenter struct{}

func NewReparenter() *Reparenter {
	return &Reparenter{}
}

// Reparent переносит все фото заявки на площадку одним обновлением и возвращает их количество.
// Вызывается внутри транзакции одобрения: либо переезжают все фото, либо ни одно.
// Заявка без фото - не ошибка, результат 0.
func (r *Reparenter) Reparent(ctx context.Context, repo storage.Repository, submissionID, placeID string) (int, error) {
	if submissionID == "" || placeID == "" {
		return 0, fmt.Errorf("%w: reparent needs both submission and place", domain.ErrValidation)
	}
	moved, err := repo.ReparentPhotos(ctx, submissionID, placeID)
	if err != nil {
		return 0, fmt.Errorf("reparent photos of submission %s: %w", submissionID, err)
	}
	return moved, nil
}

// BlobRemover удаляет файл изображения по его ссылке.
type BlobRemover interface {
	Delete(ctx context.Context, ref string) error
}

// Purger чистит фото отклоненных заявок. Сам по себе не запускается,
// только по явной команде администратора.
type Purger struct {
	store storage.Storage
	blobs BlobRemover
}

func NewPurger(store storage.Storage, blobs BlobRemover) *Purger {
	return &Purger{store: store, blobs: blobs}
}

// PurgeRejected удаляет записи фото всех отклоненных заявок в одной транзакции,
// затем удаляет сами файлы. Ошибка удаления файла не возвращает запись обратно:
// она логируется, файл остается сиротой в хранилище.
func (p *Purger) PurgeRejected(ctx context.Context) (int, error) {
	var purged []*domain.Photo
	err := p.store.Transaction(ctx, func(tx storage.Repository) error {
		photos, err := tx.GetPhotosBySubmissionStatus(ctx, domain.StatusRejected)
		if err != nil {
			return err
		}
		ids := make([]string, len(photos))
		for i, ph := range photos {
			ids[i] = ph.ID
		}
		if _, err := tx.DeletePhotos(ctx, ids); err != nil {
			return err
		}
		purged = photos
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("purge rejected photos: %w", err)
	}

	var blobErrs []error
	for _, ph := range purged {
		if err := p.blobs.Delete(ctx, ph.ImageRef); err != nil {
			blobErrs = append(blobErrs, err)
		}
	}
	if len(blobErrs) > 0 {
		log.Printf("purge: %d of %d blobs were not removed: %v", len(blobErrs), len(purged), errors.Join(blobErrs...))
	}
	log.Printf("purge: removed %d photos of rejected submissions", len(purged))
	return len(purged), nil
}

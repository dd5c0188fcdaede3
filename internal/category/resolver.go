package category

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Andrei-KV/sport-places-2025/internal/domain"
	"github.com/Andrei-KV/sport-places-2025/internal/storage"
	"github.com/gosimple/slug"
)

// Категория без латинских букв и цифр в названии получает этот slug.
const fallbackSlug = "category"

// Resolver превращает выбор пользователя (существующая категория или новое имя)
// в ссылку на категорию.
type Resolver struct{}

// NewResolver - конструктор резолвера.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve возвращает ID категории:
//   - непустое newName - get-or-create по точному совпадению имени;
//   - иначе existingID как есть;
//   - иначе nil, заявка без категории.
//
// Повторный вызов с тем же именем возвращает ту же категорию.
func (r *Resolver) Resolve(ctx context.Context, repo storage.Repository, existingID *string, newName string) (*string, error) {
	name := strings.TrimSpace(newName)
	if name == "" {
		if existingID == nil || *existingID == "" {
			return nil, nil
		}
		id := *existingID
		return &id, nil
	}

	existing, err := repo.GetCategoryByName(ctx, name)
	if err == nil {
		return &existing.ID, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	s, err := r.uniqueSlug(ctx, repo, name)
	if err != nil {
		return nil, err
	}
	created, err := repo.CreateCategory(ctx, &domain.Category{Name: name, Slug: s})
	if err != nil {
		return nil, fmt.Errorf("create category %q: %w", name, err)
	}
	return &created.ID, nil
}

// uniqueSlug строит slug из имени, добавляя числовой суффикс при коллизии
// ("Skate Park" и "skate-park" дают разные имена, но одинаковый slug).
func (r *Resolver) uniqueSlug(ctx context.Context, repo storage.Repository, name string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = fallbackSlug
	}
	candidate := base
	for i := 2; ; i++ {
		_, err := repo.GetCategoryBySlug(ctx, candidate)
		if errors.Is(err, domain.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

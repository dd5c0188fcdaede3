package dataloader

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Andrei-KV/sport-places-2025/internal/domain"
	"github.com/Andrei-KV/sport-places-2025/internal/storage"
	"github.com/graph-gophers/dataloader"
)

type contextKey string

const key = contextKey("dataloaders")

var errNoLoaders = errors.New("dataloader: no loaders in context")

// Loaders содержит все дата-лоадеры приложения.
type Loaders struct {
	PlaceByID *dataloader.Loader
}

// NewLoaders создает лоадеры поверх хранилища.
func NewLoaders(store storage.Repository) *Loaders {
	// Батч-функция: все запрошенные площадки одним запросом
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		placeIDs := keys.Keys()

		placesMap, err := store.GetPlacesByIDs(ctx, placeIDs)
		if err != nil {
			// В случае ошибки, возвращаем ее для всех ключей
			results := make([]*dataloader.Result, len(keys))
			for i := range results {
				results[i] = &dataloader.Result{Error: err}
			}
			return results
		}

		// Формируем результат в том же порядке, что и ключи.
		// Удаленная площадка - это nil, а не ошибка.
		results := make([]*dataloader.Result, len(keys))
		for i, placeID := range placeIDs {
			results[i] = &dataloader.Result{Data: placesMap[placeID]}
		}
		return results
	}

	return &Loaders{
		PlaceByID: dataloader.NewBatchedLoader(batchFn, dataloader.WithWait(time.Millisecond*1)),
	}
}

// Middleware для внедрения лоадеров в контекст запроса.
func Middleware(store storage.Repository, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), key, NewLoaders(store))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// For извлекает лоадеры из контекста.
func For(ctx context.Context) *Loaders {
	loaders, _ := ctx.Value(key).(*Loaders)
	return loaders
}

// LoadPlaces загружает площадки по ID через лоадер из контекста.
// Отсутствующие площадки в результат не попадают.
func LoadPlaces(ctx context.Context, ids []string) (map[string]*domain.Place, error) {
	result := make(map[string]*domain.Place, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	loaders := For(ctx)
	if loaders == nil {
		return nil, errNoLoaders
	}

	values, errs := loaders.PlaceByID.LoadMany(ctx, dataloader.NewKeysFromStrings(ids))()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	for i, v := range values {
		if place, ok := v.(*domain.Place); ok && place != nil {
			result[ids[i]] = place
		}
	}
	return result, nil
}

package moderation

import (
	"context"
	"fmt"
	"log"

	"github.com/Andrei-KV/sport-places-2025/internal/domain"
	"github.com/Andrei-KV/sport-places-2025/internal/storage"
)

// Queue - очередь модерации: список заявок, одобрение и отклонение.
type Queue struct {
	store  storage.Storage
	engine *Engine
}

// NewQueue - конструктор очереди.
func NewQueue(store storage.Storage, engine *Engine) *Queue {
	return &Queue{store: store, engine: engine}
}

// List возвращает заявки в порядке создания.
func (q *Queue) List(ctx context.Context, filter storage.SubmissionFilter) ([]*domain.PendingSubmission, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, *filter.Status)
	}
	if filter.Action != nil && !filter.Action.Valid() {
		return nil, fmt.Errorf("%w: unknown action %q", domain.ErrValidation, *filter.Action)
	}
	return q.store.ListSubmissions(ctx, filter)
}

func (q *Queue) ApproveOne(ctx context.Context, id string) (*Result, error) {
	return q.engine.Approve(ctx, id)
}

func (q *Queue) RejectOne(ctx context.Context, id string) (*Result, error) {
	return q.engine.Reject(ctx, id)
}

// ApproveBatch одобряет каждую заявку в отдельной транзакции.
// Ошибка на одной заявке не откатывает остальные.
func (q *Queue) ApproveBatch(ctx context.Context, ids []string) *BatchResult {
	return q.batch(ctx, "approved", ids, q.engine.Approve)
}

// RejectBatch - то же для отклонения.
func (q *Queue) RejectBatch(ctx context.Context, ids []string) *BatchResult {
	return q.batch(ctx, "rejected", ids, q.engine.Reject)
}

func (q *Queue) batch(ctx context.Context, verb string, ids []string, apply func(context.Context, string) (*Result, error)) *BatchResult {
	out := &BatchResult{Verb: verb}
	for _, id := range dedupe(ids) {
		res, err := apply(ctx, id)
		out.Items = append(out.Items, ItemResult{ID: id, Result: res, Err: err})
	}
	log.Printf("moderation: %s", out.Message())
	for _, item := range out.Failed() {
		log.Printf("moderation: submission %s not %s: %v", item.ID, verb, item.Err)
	}
	return out
}

// dedupe убирает повторы, сохраняя порядок: ids - это множество.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}

// ItemResult - итог по одной заявке из пакета.
type ItemResult struct {
	ID     string
	Result *Result
	Err    error
}

// BatchResult - итог пакетной операции с результатом по каждой заявке.
type BatchResult struct {
	Verb  string
	Items []ItemResult
}

// Succeeded - число успешно обработанных заявок.
func (b *BatchResult) Succeeded() int {
	n := 0
	for _, item := range b.Items {
		if item.Err == nil {
			n++
		}
	}
	return n
}

// Failed возвращает заявки, которые обработать не удалось.
func (b *BatchResult) Failed() []ItemResult {
	var failed []ItemResult
	for _, item := range b.Items {
		if item.Err != nil {
			failed = append(failed, item)
		}
	}
	return failed
}

// Message - сводка для администратора, например "2 of 3 submissions approved".
func (b *BatchResult) Message() string {
	return fmt.Sprintf("%d of %d submissions %s", b.Succeeded(), len(b.Items), b.Verb)
}

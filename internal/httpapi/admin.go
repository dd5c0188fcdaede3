package httpapi

import (
	"net/http"

	"github.com/Andrei-KV/sport-places-2025/internal/dataloader"
	"github.com/Andrei-KV/sport-places-2025/internal/domain"
	"github.com/Andrei-KV/sport-places-2025/internal/moderation"
	"github.com/Andrei-KV/sport-places-2025/internal/storage"
	"github.com/go-chi/chi/v5"
)

// submissionView - строка очереди модерации с именем исходной площадки.
type submissionView struct {
	*domain.PendingSubmission
	OriginalPlaceName string `json:"originalPlaceName,omitempty"`
}

func (h *handler) listSubmissions(w http.ResponseWriter, r *http.Request) {
	var filter storage.SubmissionFilter
	if v := r.URL.Query().Get("status"); v != "" {
		status := domain.Status(v)
		filter.Status = &status
	}
	if v := r.URL.Query().Get("action"); v != "" {
		action := domain.Action(v)
		filter.Action = &action
	}

	subs, err := h.Queue.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var ids []string
	for _, s := range subs {
		if s.OriginalPlaceID != nil {
			ids = append(ids, *s.OriginalPlaceID)
		}
	}
	places, err := dataloader.LoadPlaces(r.Context(), ids)
	if err != nil {
		writeError(w, r, err)
		return
	}

	views := make([]submissionView, len(subs))
	for i, s := range subs {
		views[i] = submissionView{PendingSubmission: s}
		if s.OriginalPlaceID != nil {
			if p, ok := places[*s.OriginalPlaceID]; ok {
				views[i].OriginalPlaceName = p.Name
			}
		}
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *handler) approveOne(w http.ResponseWriter, r *http.Request) {
	res, err := h.Queue.ApproveOne(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) rejectOne(w http.ResponseWriter, r *http.Request) {
	res, err := h.Queue.RejectOne(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type idsRequest struct {
	IDs []string `json:"ids"`
}

type batchItemView struct {
	ID     string             `json:"id"`
	OK     bool               `json:"ok"`
	Result *moderation.Result `json:"result,omitempty"`
	Error  string             `json:"error,omitempty"`
	Code   int                `json:"code,omitempty"`
}

type batchView struct {
	Message   string          `json:"message"`
	Succeeded int             `json:"succeeded"`
	Items     []batchItemView `json:"items"`
}

func newBatchView(b *moderation.BatchResult) batchView {
	view := batchView{Message: b.Message(), Succeeded: b.Succeeded(), Items: make([]batchItemView, len(b.Items))}
	for i, item := range b.Items {
		view.Items[i] = batchItemView{ID: item.ID, OK: item.Err == nil, Result: item.Result}
		if item.Err != nil {
			view.Items[i].Error = item.Err.Error()
			view.Items[i].Code = statusFor(item.Err)
		}
	}
	return view
}

func (h *handler) readIDs(r *http.Request) ([]string, error) {
	var req idsRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, err
	}
	if len(req.IDs) == 0 {
		return nil, invalid("no submissions selected")
	}
	return req.IDs, nil
}

func (h *handler) approveBatch(w http.ResponseWriter, r *http.Request) {
	ids, err := h.readIDs(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newBatchView(h.Queue.ApproveBatch(r.Context(), ids)))
}

func (h *handler) rejectBatch(w http.ResponseWriter, r *http.Request) {
	ids, err := h.readIDs(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newBatchView(h.Queue.RejectBatch(r.Context(), ids)))
}

func (h *handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	var created *domain.Category
	err := h.Store.Transaction(r.Context(), func(tx storage.Repository) error {
		id, err := h.Categories.Resolve(r.Context(), tx, nil, req.Name)
		if err != nil {
			return err
		}
		if id == nil {
			return invalid("category name is required")
		}
		created, err = tx.GetCategoryByID(r.Context(), *id)
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) purgeRejected(w http.ResponseWriter, r *http.Request) {
	n, err := h.Purger.PurgeRejected(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"purged": n})
}

package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/Andrei-KV/sport-places-2025/internal/community"
	"github.com/Andrei-KV/sport-places-2025/internal/domain"
	"github.com/go-chi/chi/v5"
)

type photoView struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// placeDetailView - страница площадки; фото отдаются ссылками для браузера.
type placeDetailView struct {
	*community.PlaceDetail
	Photos []photoView `json:"photos"`
}

func (h *handler) photoViews(photos []*domain.Photo) []photoView {
	views := make([]photoView, len(photos))
	for i, p := range photos {
		views[i] = photoView{ID: p.ID, URL: p.ImageRef}
		if h.Media != nil {
			views[i].URL = h.Media.URL(p.ImageRef)
		}
	}
	return views
}

func (h *handler) listPlaces(w http.ResponseWriter, r *http.Request) {
	places, err := h.Community.ListPlaces(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, places)
}

func (h *handler) getPlace(w http.ResponseWriter, r *http.Request) {
	detail, err := h.Community.GetPlaceDetail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, placeDetailView{PlaceDetail: detail, Photos: h.photoViews(detail.Photos)})
}

func (h *handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Community.ListCategories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (h *handler) addComment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	comment, err := h.Community.AddComment(r.Context(), chi.URLParam(r, "id"), UserFrom(r.Context()), req.Text)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (h *handler) rate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Value int `json:"value"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	rating, err := h.Community.Rate(r.Context(), chi.URLParam(r, "id"), UserFrom(r.Context()), req.Value)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rating)
}

func (h *handler) submitAdd(w http.ResponseWriter, r *http.Request) {
	in, uploads, closeFiles, err := parsePlaceForm(r)
	defer closeFiles()
	if err != nil {
		writeError(w, r, err)
		return
	}
	sub, err := h.Intake.SubmitAdd(r.Context(), UserFrom(r.Context()), in, uploads)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (h *handler) submitEdit(w http.ResponseWriter, r *http.Request) {
	in, uploads, closeFiles, err := parsePlaceForm(r)
	defer closeFiles()
	if err != nil {
		writeError(w, r, err)
		return
	}
	sub, err := h.Intake.SubmitEdit(r.Context(), UserFrom(r.Context()), chi.URLParam(r, "id"), in, uploads)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (h *handler) submitDelete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	// Тело необязательно: причину можно не указывать
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, r, invalid("malformed request body: %v", err))
		return
	}
	sub, err := h.Intake.SubmitDelete(r.Context(), UserFrom(r.Context()), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

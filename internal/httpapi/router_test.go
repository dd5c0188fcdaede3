package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Andrei-KV/sport-places-2025/internal/blobstore"
	"github.com/Andrei-KV/sport-places-2025/internal/category"
	"github.com/Andrei-KV/sport-places-2025/internal/community"
	"github.com/Andrei-KV/sport-places-2025/internal/domain"
	"github.com/Andrei-KV/sport-places-2025/internal/intake"
	"github.com/Andrei-KV/sport-places-2025/internal/moderation"
	"github.com/Andrei-KV/sport-places-2025/internal/photos"
	"github.com/Andrei-KV/sport-places-2025/internal/storage/inmemory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "admin-secret"

func newTestRouter(t *testing.T, ratePerMin int) (http.Handler, *inmemory.Store) {
	store := inmemory.New()
	blobs, err := blobstore.NewLocal(t.TempDir(), "/media")
	require.NoError(t, err)

	categories := category.NewResolver()
	engine := moderation.NewEngine(store, categories, photos.NewReparenter())
	router := NewRouter(Deps{
		Store:            store,
		Queue:            moderation.NewQueue(store, engine),
		Intake:           intake.NewService(store, blobs),
		Community:        community.NewService(store),
		Categories:       categories,
		Purger:           photos.NewPurger(store, blobs),
		Media:            blobs,
		MediaPath:        "/media",
		AdminToken:       testToken,
		SubmitRatePerMin: ratePerMin,
	})
	return router, store
}

type formFile struct {
	name    string
	content string
}

func multipartRequest(t *testing.T, target, user string, fields map[string]string, files ...formFile) *http.Request {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		part, err := mw.CreateFormFile("photos", f.name)
		require.NoError(t, err)
		_, err = io.WriteString(part, f.content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if user != "" {
		req.Header.Set(userHeader, user)
	}
	return req
}

func adminRequest(method, target string, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(adminHeader, testToken)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestSubmitApproveAndView(t *testing.T) {
	router, _ := newTestRouter(t, 10)

	rec := serve(router, multipartRequest(t, "/submissions", "user-1",
		map[string]string{"name": "Court A", "description": "nice court", "latitude": "55.75", "longitude": "37.61"},
		formFile{"p1.jpg", "jpeg-bytes"}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sub := decode[domain.PendingSubmission](t, rec)
	assert.Equal(t, domain.StatusPending, sub.Status)

	rec = serve(router, adminRequest(http.MethodGet, "/admin/submissions?status=pending", ""))
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]map[string]any](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, sub.ID, list[0]["id"])

	rec = serve(router, adminRequest(http.MethodPost, "/admin/submissions/"+sub.ID+"/approve", ""))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[moderation.Result](t, rec)
	assert.Equal(t, 1, res.PhotosMoved)
	require.NotEmpty(t, res.PlaceID)

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/places/"+res.PlaceID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[struct {
		Place  domain.Place `json:"place"`
		Photos []photoView  `json:"photos"`
	}](t, rec)
	assert.Equal(t, "Court A", detail.Place.Name)
	require.Len(t, detail.Photos, 1)
	assert.True(t, strings.HasPrefix(detail.Photos[0].URL, "/media/place_photos/"))

	rec = serve(router, httptest.NewRequest(http.MethodGet, detail.Photos[0].URL, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "jpeg-bytes", rec.Body.String())

	rec = serve(router, adminRequest(http.MethodPost, "/admin/submissions/"+sub.ID+"/approve", ""))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAdminRoutesRequireToken(t *testing.T) {
	router, _ := newTestRouter(t, 10)

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/admin/submissions", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/admin/submissions", nil)
	req.Header.Set(adminHeader, "wrong")
	assert.Equal(t, http.StatusForbidden, serve(router, req).Code)
}

func TestSubmissionRequiresUser(t *testing.T) {
	router, _ := newTestRouter(t, 10)
	rec := serve(router, multipartRequest(t, "/submissions", "", map[string]string{"name": "A", "description": "d"}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSubmissionValidationErrors(t *testing.T) {
	router, _ := newTestRouter(t, 10)

	rec := serve(router, multipartRequest(t, "/submissions", "user-1", map[string]string{"name": "A", "description": "d", "latitude": "north"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(router, multipartRequest(t, "/submissions", "user-1", map[string]string{"name": "A", "description": "d"}, formFile{"x.exe", "x"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(router, multipartRequest(t, "/places/missing/edits", "user-1", map[string]string{"description": "d"}))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmissionRateLimit(t *testing.T) {
	router, _ := newTestRouter(t, 1)
	fields := map[string]string{"name": "A", "description": "d"}

	assert.Equal(t, http.StatusCreated, serve(router, multipartRequest(t, "/submissions", "user-1", fields)).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(router, multipartRequest(t, "/submissions", "user-1", fields)).Code)
	// Лимит считается на пользователя
	assert.Equal(t, http.StatusCreated, serve(router, multipartRequest(t, "/submissions", "user-2", fields)).Code)
}

func TestBatchApproveReportsPerItem(t *testing.T) {
	router, store := newTestRouter(t, 10)
	ctx := context.Background()

	place, err := store.CreatePlace(ctx, &domain.Place{Name: "Court A", Description: "old", OwnerID: "user-1"})
	require.NoError(t, err)
	edit, err := store.CreateSubmission(ctx, &domain.PendingSubmission{
		Name: "Court A", Description: "new", SubmitterID: "user-2",
		OriginalPlaceID: &place.ID, Status: domain.StatusPending, Action: domain.ActionEdit,
	})
	require.NoError(t, err)

	rec := serve(router, adminRequest(http.MethodGet, "/admin/submissions?action=edit", ""))
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]map[string]any](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "Court A", list[0]["originalPlaceName"])

	rec = serve(router, adminRequest(http.MethodPost, "/admin/submissions/approve", `{"ids":["`+edit.ID+`","missing"]}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	batch := decode[batchView](t, rec)
	assert.Equal(t, "1 of 2 submissions approved", batch.Message)
	require.Len(t, batch.Items, 2)
	assert.True(t, batch.Items[0].OK)
	assert.False(t, batch.Items[1].OK)
	assert.Equal(t, http.StatusNotFound, batch.Items[1].Code)

	updated, err := store.GetPlaceByID(ctx, place.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", updated.Description)

	rec = serve(router, adminRequest(http.MethodPost, "/admin/submissions/approve", `{"ids":[]}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRejectAndPurge(t *testing.T) {
	router, store := newTestRouter(t, 10)

	rec := serve(router, multipartRequest(t, "/submissions", "user-1",
		map[string]string{"name": "Court A", "description": "nice court"}, formFile{"p1.png", "png"}))
	require.Equal(t, http.StatusCreated, rec.Code)
	sub := decode[domain.PendingSubmission](t, rec)

	rec = serve(router, adminRequest(http.MethodPost, "/admin/submissions/reject", `{"ids":["`+sub.ID+`"]}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1 of 1 submissions rejected", decode[batchView](t, rec).Message)

	rec = serve(router, adminRequest(http.MethodPost, "/admin/photos/purge", ""))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]int{"purged": 1}, decode[map[string]int](t, rec))

	left, err := store.GetPhotosBySubmissionID(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestCreateCategoryIsIdempotent(t *testing.T) {
	router, _ := newTestRouter(t, 10)

	rec := serve(router, adminRequest(http.MethodPost, "/admin/categories", `{"name":"Skatepark"}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decode[domain.Category](t, rec)
	assert.Equal(t, "skatepark", first.Slug)

	rec = serve(router, adminRequest(http.MethodPost, "/admin/categories", `{"name":"Skatepark"}`))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, first.ID, decode[domain.Category](t, rec).ID)

	rec = serve(router, adminRequest(http.MethodPost, "/admin/categories", `{"name":"  "}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/categories", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Category](t, rec), 1)
}

func TestCommentsAndRatings(t *testing.T) {
	router, store := newTestRouter(t, 10)
	place, err := store.CreatePlace(context.Background(), &domain.Place{Name: "Court A", Description: "d", OwnerID: "user-1"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/places/"+place.ID+"/comments", strings.NewReader(`{"text":"Great"}`))
	req.Header.Set(userHeader, "user-2")
	assert.Equal(t, http.StatusCreated, serve(router, req).Code)

	for _, v := range []string{"2", "5"} {
		req = httptest.NewRequest(http.MethodPut, "/places/"+place.ID+"/rating", strings.NewReader(`{"value":`+v+`}`))
		req.Header.Set(userHeader, "user-2")
		require.Equal(t, http.StatusOK, serve(router, req).Code)
	}

	req = httptest.NewRequest(http.MethodPut, "/places/"+place.ID+"/rating", strings.NewReader(`{"value":6}`))
	req.Header.Set(userHeader, "user-2")
	assert.Equal(t, http.StatusBadRequest, serve(router, req).Code)

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/places/"+place.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[struct {
		AverageRating *float64          `json:"averageRating"`
		RatingsCount  int               `json:"ratingsCount"`
		Comments      []*domain.Comment `json:"comments"`
	}](t, rec)
	assert.Equal(t, 1, detail.RatingsCount)
	require.NotNil(t, detail.AverageRating)
	assert.Equal(t, 5.0, *detail.AverageRating)
	assert.Len(t, detail.Comments, 1)
}

func TestDeletionRequest(t *testing.T) {
	router, store := newTestRouter(t, 10)
	place, err := store.CreatePlace(context.Background(), &domain.Place{Name: "Court A", Description: "d", OwnerID: "user-1"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/places/"+place.ID+"/deletions", nil)
	req.Header.Set(userHeader, "user-2")
	rec := serve(router, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sub := decode[domain.PendingSubmission](t, rec)
	assert.Equal(t, domain.ActionDelete, sub.Action)

	rec = serve(router, adminRequest(http.MethodPost, "/admin/submissions/"+sub.ID+"/approve", ""))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/places/"+place.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

package httpapi

import (
	"net/http"
	"strings"

	"github.com/Andrei-KV/sport-places-2025/internal/category"
	"github.com/Andrei-KV/sport-places-2025/internal/community"
	"github.com/Andrei-KV/sport-places-2025/internal/dataloader"
	"github.com/Andrei-KV/sport-places-2025/internal/intake"
	"github.com/Andrei-KV/sport-places-2025/internal/moderation"
	"github.com/Andrei-KV/sport-places-2025/internal/photos"
	"github.com/Andrei-KV/sport-places-2025/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Media - раздача загруженных файлов.
type Media interface {
	Root() string
	URL(ref string) string
}

// Deps - все, что нужно HTTP-слою.
type Deps struct {
	Store      storage.Storage
	Queue      *moderation.Queue
	Intake     *intake.Service
	Community  *community.Service
	Categories *category.Resolver
	Purger     *photos.Purger
	Media      Media
	// MediaPath - префикс URL, под которым раздаются файлы, например "/media".
	MediaPath        string
	AdminToken       string
	SubmitRatePerMin int
}

type handler struct {
	Deps
}

// NewRouter собирает chi-роутер со всеми маршрутами.
func NewRouter(d Deps) http.Handler {
	h := &handler{Deps: d}
	limiter := NewRateLimiter(d.SubmitRatePerMin)

	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	router.Get("/places", h.listPlaces)
	router.Get("/places/{id}", h.getPlace)
	router.Get("/categories", h.listCategories)

	router.Group(func(r chi.Router) {
		r.Use(RequireUser)
		r.Post("/places/{id}/comments", h.addComment)
		r.Put("/places/{id}/rating", h.rate)

		r.Group(func(r chi.Router) {
			r.Use(limiter.Limit)
			r.Post("/submissions", h.submitAdd)
			r.Post("/places/{id}/edits", h.submitEdit)
			r.Post("/places/{id}/deletions", h.submitDelete)
		})
	})

	router.Route("/admin", func(r chi.Router) {
		r.Use(RequireAdmin(d.AdminToken))
		r.Use(func(next http.Handler) http.Handler {
			return dataloader.Middleware(d.Store, next)
		})
		r.Get("/submissions", h.listSubmissions)
		r.Post("/submissions/approve", h.approveBatch)
		r.Post("/submissions/reject", h.rejectBatch)
		r.Post("/submissions/{id}/approve", h.approveOne)
		r.Post("/submissions/{id}/reject", h.rejectOne)
		r.Post("/categories", h.createCategory)
		r.Post("/photos/purge", h.purgeRejected)
	})

	if d.Media != nil && strings.HasPrefix(d.MediaPath, "/") {
		prefix := strings.TrimRight(d.MediaPath, "/")
		fs := http.StripPrefix(prefix+"/", http.FileServer(http.Dir(d.Media.Root())))
		router.Get(prefix+"/*", fs.ServeHTTP)
	}

	return router
}

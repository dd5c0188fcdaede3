package httpapi

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/Andrei-KV/sport-places-2025/internal/domain"
	"github.com/Andrei-KV/sport-places-2025/internal/intake"
)

const maxUploadMemory = 32 << 20

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrValidation, fmt.Sprintf(format, args...))
}

// parsePlaceForm читает multipart-форму площадки и ее фото (поле "photos").
// Возвращенную функцию нужно вызвать, чтобы закрыть файлы.
func parsePlaceForm(r *http.Request) (intake.Input, []intake.Upload, func(), error) {
	noop := func() {}
	var in intake.Input

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return in, nil, noop, invalid("malformed form: %v", err)
	}

	in.Name = r.FormValue("name")
	in.Description = r.FormValue("description")
	in.NewCategory = r.FormValue("new_category")
	if id := strings.TrimSpace(r.FormValue("category_id")); id != "" {
		in.CategoryID = &id
	}

	var err error
	if in.Latitude, err = parseCoord(r.FormValue("latitude"), "latitude"); err != nil {
		return in, nil, noop, err
	}
	if in.Longitude, err = parseCoord(r.FormValue("longitude"), "longitude"); err != nil {
		return in, nil, noop, err
	}

	if r.MultipartForm == nil {
		return in, nil, noop, nil
	}
	headers := r.MultipartForm.File["photos"]
	files := make([]multipart.File, 0, len(headers))
	closeAll := func() {
		for _, f := range files {
			f.Close()
		}
	}
	uploads := make([]intake.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return in, nil, noop, invalid("read photo %q: %v", fh.Filename, err)
		}
		files = append(files, f)
		uploads = append(uploads, intake.Upload{Filename: fh.Filename, Body: f})
	}
	return in, uploads, closeAll, nil
}

func parseCoord(raw, field string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, invalid("%s must be a number", field)
	}
	return &v, nil
}

package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/erazemk/noleggio/internal/catalog"
	"github.com/erazemk/noleggio/internal/model"
	"github.com/erazemk/noleggio/internal/objects"
	"github.com/erazemk/noleggio/internal/store"
)

// CatalogHandler serves the inventory and portfolio catalogs.
type CatalogHandler struct {
	Service *catalog.Service
}

type listResponse struct {
	Items []model.CatalogItem `json:"items"`
	Total int                 `json:"total"`
}

type fetchErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type submitResponse struct {
	Item    *model.CatalogItem `json:"item"`
	Warning string             `json:"warning,omitempty"`
}

// maxFormSize bounds a catalog form including its image.
const maxFormSize = objects.MaxObjectSize + 1<<20

func pathKind(w http.ResponseWriter, r *http.Request) (model.Kind, bool) {
	kind, ok := model.ParseKind(r.PathValue("kind"))
	if !ok {
		jsonError(w, http.StatusNotFound, "unknown catalog")
	}
	return kind, ok
}

// writeListing writes a listing, or its fetch error.
func writeListing(w http.ResponseWriter, l catalog.Listing, query string) {
	if l.Err != nil {
		status, code := http.StatusInternalServerError, "fetch_failed"
		if l.Err.Code == catalog.MissingTable {
			status, code = http.StatusServiceUnavailable, "missing_table"
		}
		jsonResponse(w, status, fetchErrorResponse{Error: l.Err.Message(), Code: code})
		return
	}
	items := catalog.Filter(l.Items, query)
	jsonResponse(w, http.StatusOK, listResponse{Items: items, Total: len(l.Items)})
}

// List handles GET /api/catalog/{kind}?category=&q=.
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	kind, ok := pathKind(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	writeListing(w, h.Service.Fetch(r.Context(), kind, q.Get("category")), q.Get("q"))
}

// PublicProducts handles GET /api/public/products?category= for the
// marketing site. It needs no authentication.
func (h *CatalogHandler) PublicProducts(w http.ResponseWriter, r *http.Request) {
	writeListing(w, h.Service.Fetch(r.Context(), model.KindInventory, r.URL.Query().Get("category")), "")
}

// Get handles GET /api/catalog/{kind}/{id}.
func (h *CatalogHandler) Get(w http.ResponseWriter, r *http.Request) {
	kind, ok := pathKind(w, r)
	if !ok {
		return
	}
	item, ok := h.lookup(w, r, kind)
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Create handles POST /api/catalog/{kind}. The body is a multipart (or
// urlencoded) form with the item fields and an optional "image" file.
func (h *CatalogHandler) Create(w http.ResponseWriter, r *http.Request) {
	kind, ok := pathKind(w, r)
	if !ok {
		return
	}

	form := catalog.NewForm(kind, nil)
	if !readForm(w, r, form) {
		return
	}

	item, err := h.Service.Submit(r.Context(), form)
	if err != nil {
		writeSubmitError(w, err)
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("catalog item created", "user", claims.Username, "kind", kind, "item", item.Title)
	jsonResponse(w, http.StatusCreated, submitResponse{Item: item})
}

// Update handles PUT /api/catalog/{kind}/{id}. Fields left out of the form
// keep their stored values; without an image the current one is kept.
func (h *CatalogHandler) Update(w http.ResponseWriter, r *http.Request) {
	kind, ok := pathKind(w, r)
	if !ok {
		return
	}
	existing, ok := h.lookup(w, r, kind)
	if !ok {
		return
	}

	form := catalog.NewForm(kind, existing)
	form.BeginEdit()
	if !readForm(w, r, form) {
		return
	}

	item, err := h.Service.Submit(r.Context(), form)
	resp := submitResponse{Item: item}
	if err != nil {
		var cleanupErr *catalog.CleanupError
		if !errors.As(err, &cleanupErr) {
			writeSubmitError(w, err)
			return
		}
		resp.Warning = "item saved, old image not removed: " + err.Error()
	}

	claims := GetClaims(r.Context())
	slog.Info("catalog item updated", "user", claims.Username, "kind", kind, "item", item.Title)
	jsonResponse(w, http.StatusOK, resp)
}

// Delete handles DELETE /api/catalog/{kind}/{id}.
func (h *CatalogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	kind, ok := pathKind(w, r)
	if !ok {
		return
	}
	item, ok := h.lookup(w, r, kind)
	if !ok {
		return
	}

	err := h.Service.Delete(r.Context(), item)
	var cleanupErr *catalog.CleanupError
	switch {
	case errors.As(err, &cleanupErr):
		jsonResponse(w, http.StatusOK, map[string]string{
			"message": "item deleted",
			"warning": "image not removed: " + err.Error(),
		})
		return
	case err != nil:
		writeSubmitError(w, err)
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("catalog item deleted", "user", claims.Username, "kind", kind, "item", item.Title)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

// Categories handles GET /api/categories: the inventory grouped by category.
func (h *CatalogHandler) Categories(w http.ResponseWriter, r *http.Request) {
	l := h.Service.Fetch(r.Context(), model.KindInventory, "")
	if l.Err != nil {
		writeListing(w, l, "")
		return
	}
	jsonResponse(w, http.StatusOK, catalog.Aggregate(l.Items))
}

// Stats handles GET /api/stats.
func (h *CatalogHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.Stats(r.Context())
	if err != nil {
		slog.Error("failed to compute stats", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}
	jsonResponse(w, http.StatusOK, stats)
}

func (h *CatalogHandler) lookup(w http.ResponseWriter, r *http.Request, kind model.Kind) (*model.CatalogItem, bool) {
	item, err := h.Service.Repo.Get(r.Context(), kind, r.PathValue("id"))
	if err != nil {
		slog.Error("failed to get catalog item", "kind", kind, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get item")
		return nil, false
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return nil, false
	}
	return item, true
}

// readForm decodes the request's form values over f.Fields and stages the
// "image" file, if any. It writes the error response itself.
func readForm(w http.ResponseWriter, r *http.Request, f *catalog.Form) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)

	if err := r.ParseMultipartForm(8 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		jsonError(w, http.StatusBadRequest, "file too large or invalid form")
		return false
	}
	if err := formDecoder.Decode(&f.Fields, r.PostForm); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid form: "+err.Error())
		return false
	}

	if r.MultipartForm == nil {
		return true
	}
	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return true
	}
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid image")
		return false
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, "image/") {
		jsonError(w, http.StatusBadRequest, "file must be an image")
		return false
	}

	data, err := io.ReadAll(file)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to read image")
		return false
	}
	f.Stage(&catalog.Upload{Filename: header.Filename, ContentType: contentType, Data: data})
	return true
}

// writeSubmitError maps a catalog error to a response. Store messages are
// passed through so the operator sees why a write failed.
func writeSubmitError(w http.ResponseWriter, err error) {
	var (
		validation *catalog.ValidationError
		upload     *catalog.UploadError
		write      *catalog.WriteError
	)
	switch {
	case errors.As(err, &validation):
		jsonError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &upload):
		jsonError(w, http.StatusUnprocessableEntity, "image upload failed: "+err.Error())
	case errors.As(err, &write) && errors.Is(err, store.ErrNotFound):
		jsonError(w, http.StatusNotFound, "item not found")
	case errors.As(err, &write):
		slog.Error("catalog write failed", "op", write.Op, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to save item: "+err.Error())
	default:
		slog.Error("catalog request failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
	}
}

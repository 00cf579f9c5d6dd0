package web

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/erazemk/noleggio/internal/catalog"
	"github.com/erazemk/noleggio/internal/objects"
)

// maxFormSize bounds a catalog form including its image.
const maxFormSize = objects.MaxObjectSize + 1<<20

// ItemNew handles GET /items/new: open the form on a blank item.
func (s *Server) ItemNew(w http.ResponseWriter, r *http.Request) {
	sh := s.shell(r)
	if err := sh.OpenAdd(); err != nil {
		s.shellError(w, r, sh, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// ItemOpen handles GET /items/{id}: open the form on an item of the listing.
// Inventory items open read-only.
func (s *Server) ItemOpen(w http.ResponseWriter, r *http.Request) {
	sh := s.shell(r)
	if err := sh.OpenEdit(r.PathValue("id")); err != nil {
		s.shellError(w, r, sh, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// ItemBeginEdit handles POST /items/edit: make a read-only form editable.
func (s *Server) ItemBeginEdit(w http.ResponseWriter, r *http.Request) {
	sh := s.shell(r)
	if err := sh.Form(func(f *catalog.Form) { f.BeginEdit() }); err != nil {
		s.shellError(w, r, sh, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// ItemCancel handles POST /items/cancel.
func (s *Server) ItemCancel(w http.ResponseWriter, r *http.Request) {
	s.shell(r).Cancel()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// ItemSave handles POST /items/save: apply the posted fields and image to
// the open form and submit it. On failure the form is shown again with the
// error and the values entered.
func (s *Server) ItemSave(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	sh := s.shell(r)

	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseMultipartForm(8 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		s.render(w, r, http.StatusRequestEntityTooLarge, sh.View(), "Il file è troppo grande (massimo 10 MB).")
		return
	}
	upload, err := readUpload(r)
	if err != nil {
		s.render(w, r, http.StatusBadRequest, sh.View(), err.Error())
		return
	}

	var applyErr error
	err = sh.Form(func(f *catalog.Form) {
		if !f.Editable {
			applyErr = pageError("Premi \"Modifica\" prima di salvare.")
			return
		}
		if err := formDecoder.Decode(&f.Fields, r.PostForm); err != nil {
			applyErr = pageError("Valori non validi nel modulo.")
			return
		}
		if upload != nil {
			f.Stage(upload)
		}
	})
	if err == nil {
		err = applyErr
	}
	if err != nil {
		s.shellError(w, r, sh, err)
		return
	}

	item, err := sh.Submit(r.Context())
	var cleanupErr *catalog.CleanupError
	switch {
	case errors.As(err, &cleanupErr):
		slog.Warn("catalog item saved, old image kept", "user", claims.Username, "item", item.Title, "error", err)
	case err != nil:
		slog.Warn("catalog item not saved", "user", claims.Username, "error", err)
		s.render(w, r, http.StatusUnprocessableEntity, sh.View(), "")
		return
	default:
		slog.Info("catalog item saved", "user", claims.Username, "kind", item.Kind, "item", item.Title)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// readUpload returns the "image" file of a multipart form, or nil.
func readUpload(r *http.Request) (*catalog.Upload, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, pageError("Immagine non valida.")
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, "image/") {
		return nil, pageError("Il file deve essere un'immagine.")
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, pageError("Impossibile leggere l'immagine.")
	}
	if len(data) == 0 {
		return nil, nil
	}
	return &catalog.Upload{Filename: header.Filename, ContentType: contentType, Data: data}, nil
}

// ItemDelete handles POST /items/{id}/delete. Nothing happens unless the
// form carries confirmed=true.
func (s *Server) ItemDelete(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	sh := s.shell(r)
	id := r.PathValue("id")

	err := sh.Delete(r.Context(), id, r.FormValue("confirmed") == "true")
	var cleanupErr *catalog.CleanupError
	switch {
	case errors.As(err, &cleanupErr):
		slog.Warn("catalog item deleted, image kept", "user", claims.Username, "id", id, "error", err)
	case err != nil:
		slog.Warn("catalog item not deleted", "user", claims.Username, "id", id, "error", err)
		s.shellError(w, r, sh, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

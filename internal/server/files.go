package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"maintline/internal/engine"
	"maintline/internal/media"
)

// registerMedia serves the protected file area. Every request runs
// through the access gate; a denied request reads as 403 whether or not
// the file exists, and only an authorized request can learn that a path
// is missing.
func registerMedia(router chi.Router, e *engine.Engine) {
	gate := &media.Gate{Owners: e.Repo}
	handler := func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			respondJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
			return
		}
		rel := strings.TrimPrefix(r.URL.Path, media.URLPrefix)
		user, _ := principalFromContext(r.Context())
		allowed, err := gate.Allowed(r.Context(), user, rel)
		if err != nil {
			respondJSONError(w, http.StatusInternalServerError, "internal_error", "internal error")
			return
		}
		if !allowed {
			respondJSONError(w, http.StatusForbidden, "forbidden", "forbidden")
			return
		}
		f, err := e.Store.Open(rel)
		if err != nil {
			if os.IsNotExist(err) {
				respondJSONError(w, http.StatusNotFound, "not_found", "not found")
				return
			}
			respondJSONError(w, http.StatusInternalServerError, "internal_error", "internal error")
			return
		}
		defer f.Close()
		w.Header().Set("Content-Type", media.ContentType(rel))
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%q", path.Base(rel)))
		io.Copy(w, f)
	}
	router.HandleFunc(media.URLPrefix+"*", handler)
}

// registerJobFiles adds the quote download shortcut: resolves the job,
// applies ViewJob's visibility rule and streams the stored PDF.
func registerJobFiles(router chi.Router, basePath string, e *engine.Engine) {
	router.Get(basePath+"/jobs/{id}/quote/download", func(w http.ResponseWriter, r *http.Request) {
		user, ok := principalFromContext(r.Context())
		if !ok {
			respondJSONError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}
		job, err := e.ViewJob(r.Context(), user, chi.URLParam(r, "id"))
		if err != nil {
			respondStatusError(w, handleError(err))
			return
		}
		if job.QuotePath == "" {
			respondJSONError(w, http.StatusNotFound, "not_found", "no quote uploaded for this job")
			return
		}
		f, err := e.Store.Open(job.QuotePath)
		if err != nil {
			respondJSONError(w, http.StatusNotFound, "not_found", "not found")
			return
		}
		defer f.Close()
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%q", path.Base(job.QuotePath)))
		io.Copy(w, f)
	})
}

func respondJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": code, "message": message},
	})
}

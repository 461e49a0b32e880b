package middleware

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/collegeerp/backend/internal/services"
)

// StaticFileServer serves the admin dashboard from dir. Unknown paths fall
// back to index.html so client-side routes resolve; unknown /api paths get a
// JSON 404 instead.
func StaticFileServer(dir string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api") {
			services.SendErrorResponse(w, "API route not found", http.StatusNotFound, nil)
			return
		}

		path := filepath.Join(dir, filepath.Clean("/"+r.URL.Path))
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			w.Header().Set("Cache-Control", "public, max-age=86400")
			http.ServeFile(w, r, path)
			return
		}

		w.Header().Set("Cache-Control", "no-cache")
		http.ServeFile(w, r, filepath.Join(dir, "index.html"))
	})
}

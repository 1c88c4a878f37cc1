package api

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/yegors/routesim/pkg/logger"
)

// StaticFileHandler serves the map client from a directory. Unknown paths
// without an extension fall back to index.html so client-side routes work.
type StaticFileHandler struct {
	root   fs.FS
	files  http.Handler
	logger *logger.Logger
}

// NewStaticFileHandler creates a new static file handler
func NewStaticFileHandler(staticDir string, log *logger.Logger) *StaticFileHandler {
	root := os.DirFS(staticDir)
	return &StaticFileHandler{
		root:   root,
		files:  http.FileServer(http.FS(root)),
		logger: log.Named("static-handler"),
	}
}

// ServeHTTP serves static files without caching
func (h *StaticFileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// fs.FS rejects "..", so the cleaned name cannot leave the directory
	name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
	if name == "" {
		name = "."
	}

	info, err := fs.Stat(h.root, name)
	switch {
	case err == nil && info.IsDir():
		if _, err := fs.Stat(h.root, path.Join(name, "index.html")); err != nil {
			h.logger.Debug("Directory listing not allowed", logger.String("path", name))
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
	case errors.Is(err, fs.ErrNotExist) && path.Ext(name) == "":
		r = r.Clone(r.Context())
		r.URL.Path = "/"
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		h.logger.Error("Failed to stat file", logger.Error(err), logger.String("path", name))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")

	h.files.ServeHTTP(w, r)
}

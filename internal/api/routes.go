// Package api provides HTTP handlers for the OME-Zarr tile server.
package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/ome-tiles/server/internal/render"
	"github.com/ome-tiles/server/internal/service"
	"github.com/ome-tiles/server/internal/zarr"
)

// RouterConfig contains router configuration.
type RouterConfig struct {
	Zarr        *service.ZarrService
	Tables      *service.TableService
	Viewer      *service.ViewerService
	Renderer    *render.ThumbnailRenderer
	CORSOrigins []string
	Title       string
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// CORS: zarr clients run in the browser on other origins.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "HEAD", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Range"},
		ExposedHeaders: []string{"Content-Length", "Content-Disposition"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Get("/", indexHandler(cfg.Title, cfg.Tables))
	r.Get("/tables", tablesHandler(cfg.Tables))

	// OME-Zarr view of repository images. HTTP stores probe keys with HEAD.
	r.Route("/zarr/{image}.zarr", func(r chi.Router) {
		getHead(r, "/.zgroup", zarrGroupHandler(cfg.Zarr))
		getHead(r, "/.zattrs", zarrAttributesHandler(cfg.Zarr))
		getHead(r, "/{level}/.zarray", zarrArrayHandler(cfg.Zarr))
		getHead(r, "/{level}/{key}", zarrChunkHandler(cfg.Zarr))
	})

	r.Get("/render/{image}/{z}/{t}.png", renderHandler(cfg.Zarr, cfg.Renderer))

	// Table and Vitessce resources; the trailing slash is optional.
	getBoth(r, "/table/{file}", tableHandler(cfg.Tables))
	getBoth(r, "/table_vitessce_cells/{file}/{col1}/{col2}", cellsHandler(cfg.Tables))
	getBoth(r, "/vitessce_config/{file}/{col1}/{col2}", viewerConfigHandler(cfg.Viewer))

	return r
}

func getHead(r chi.Router, pattern string, h http.HandlerFunc) {
	r.Get(pattern, h)
	r.Head(pattern, h)
}

func getBoth(r chi.Router, pattern string, h http.HandlerFunc) {
	r.Get(pattern, h)
	r.Get(pattern+"/", h)
}

// indexHandler explains how to open a table.
func indexHandler(title string, tables *service.TableService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var b strings.Builder
		fmt.Fprintf(&b, "%s\n\n", title)
		b.WriteString("To open a table using its file ID, go to /table/ID/\n")

		if list, err := tables.List(r.Context()); err == nil && len(list) > 0 {
			b.WriteString("\nTables:\n")
			for _, t := range list {
				fmt.Fprintf(&b, "  /table/%d/  %s (%d rows)\n", t.ID, t.Name, t.Rows)
			}
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(b.String()))
	}
}

func tablesHandler(tables *service.TableService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := tables.List(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, map[string]interface{}{"tables": list})
	}
}

// --- zarr ---

func zarrGroupHandler(svc *service.ZarrService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		imageID, ok := parseID(w, r, "image")
		if !ok {
			return
		}
		// The group only exists if the image does.
		if _, err := svc.Image(r.Context(), imageID); err != nil {
			writeError(w, r, err)
			return
		}
		data, err := svc.Group()
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeRawJSON(w, data)
	}
}

func zarrAttributesHandler(svc *service.ZarrService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		imageID, ok := parseID(w, r, "image")
		if !ok {
			return
		}
		data, err := svc.Attributes(r.Context(), imageID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeRawJSON(w, data)
	}
}

func zarrArrayHandler(svc *service.ZarrService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		imageID, ok := parseID(w, r, "image")
		if !ok {
			return
		}
		level, ok := parseIndex(w, r, "level")
		if !ok {
			return
		}
		data, err := svc.ArrayMeta(r.Context(), imageID, level)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeRawJSON(w, data)
	}
}

// zarrChunkHandler serves "t.c.z.y.x" chunk keys. Group documents below an
// image do not exist: every level is an array.
func zarrChunkHandler(svc *service.ZarrService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		imageID, ok := parseID(w, r, "image")
		if !ok {
			return
		}
		level, ok := parseIndex(w, r, "level")
		if !ok {
			return
		}
		key := chi.URLParam(r, "key")
		if strings.HasPrefix(key, ".") {
			writeStatus(w, http.StatusNotFound, "no "+key+" at level "+strconv.Itoa(level))
			return
		}
		coord, err := zarr.ParseChunkKey(key)
		if err != nil {
			writeStatus(w, http.StatusBadRequest, err.Error())
			return
		}

		data, err := svc.Chunk(r.Context(), imageID, level, coord)
		if err != nil {
			writeError(w, r, err)
			return
		}

		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Header().Set("Content-Disposition", "attachment; filename="+coord.Key())
		w.Write(data)
	}
}

// --- render ---

func renderHandler(svc *service.ZarrService, renderer *render.ThumbnailRenderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		imageID, ok := parseID(w, r, "image")
		if !ok {
			return
		}
		z, ok := parseIndex(w, r, "z")
		if !ok {
			return
		}
		t, ok := parseIndex(w, r, "t")
		if !ok {
			return
		}

		img, err := svc.Image(r.Context(), imageID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		data, err := renderer.Render(r.Context(), img, z, t)
		if err != nil {
			writeError(w, r, err)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Write(data)
	}
}

// --- tables ---

func tableHandler(svc *service.TableService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tableID, ok := parseID(w, r, "file")
		if !ok {
			return
		}
		preview, err := svc.Preview(r.Context(), tableID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, preview)
	}
}

func cellsHandler(svc *service.TableService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tableID, ok := parseID(w, r, "file")
		if !ok {
			return
		}
		col1, col2, ok := parseColumns(w, r)
		if !ok {
			return
		}
		cells, err := svc.Cells(r.Context(), tableID, col1, col2)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, cells)
	}
}

func viewerConfigHandler(svc *service.ViewerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tableID, ok := parseID(w, r, "file")
		if !ok {
			return
		}
		col1, col2, ok := parseColumns(w, r)
		if !ok {
			return
		}

		var imageID *int64
		if s := strings.TrimSpace(r.URL.Query().Get("image")); s != "" {
			id, err := strconv.ParseInt(s, 10, 64)
			if err != nil || id < 0 {
				writeStatus(w, http.StatusBadRequest, "invalid image: "+s)
				return
			}
			imageID = &id
		}

		cfg, err := svc.Config(r.Context(), baseURL(r), tableID, col1, col2, imageID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, cfg)
	}
}

// --- parameters ---

func parseID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	s := chi.URLParam(r, name)
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 0 {
		writeStatus(w, http.StatusBadRequest, fmt.Sprintf("invalid %s: %q", name, s))
		return 0, false
	}
	return id, true
}

func parseIndex(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	s := chi.URLParam(r, name)
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		writeStatus(w, http.StatusBadRequest, fmt.Sprintf("invalid %s: %q", name, s))
		return 0, false
	}
	return v, true
}

func parseColumns(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	var cols [2]string
	for i, name := range []string{"col1", "col2"} {
		v, err := url.PathUnescape(chi.URLParam(r, name))
		if err != nil || v == "" {
			writeStatus(w, http.StatusBadRequest, "invalid column: "+chi.URLParam(r, name))
			return "", "", false
		}
		cols[i] = v
	}
	return cols[0], cols[1], true
}

// baseURL returns the externally visible root of the server for building
// absolute links.
func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p != "" {
		scheme = p
	}
	host := r.Host
	if h := r.Header.Get("X-Forwarded-Host"); h != "" {
		host = h
	}
	return scheme + "://" + host
}

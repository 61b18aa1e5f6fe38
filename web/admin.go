package web

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/nasermirzaei89/forum/plugins"
)

const (
	adminPluginsPrefix = "/admin/plugins"
	redirectFieldName  = "_redirect"
)

func (h *Handler) registerPluginRoutes(ctx context.Context) error {
	routes, err := h.plugins.CreateRoutes(ctx)
	if err != nil {
		return err
	}

	for _, route := range routes.Routes {
		h.mux.Handle(route.Method+" "+route.Route, route.Handler)
	}

	adminRoutes, err := h.plugins.CreateAdminRoutes(ctx)
	if err != nil {
		return err
	}

	for _, route := range adminRoutes.Routes {
		h.mux.Handle(route.Method+" "+adminPluginsPrefix+route.Route, h.AdminOnly(h.HandleAdminPluginPage(route.Render)))
	}

	staticDirs, err := h.plugins.StaticDirs()
	if err != nil {
		return err
	}

	for prefix, fsys := range staticDirs {
		h.mux.Handle("GET "+prefix, http.StripPrefix(prefix, http.FileServer(http.FS(fsys))))
	}

	return nil
}

func (h *Handler) HandleAdminPage() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		settings, err := h.settings.All(r.Context())
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to get settings", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)

			return
		}

		data := map[string]any{
			"SiteTitle": "Admin",
			"Settings":  settings,
		}

		h.renderTemplate(w, r, "admin-page.gohtml", data)
	})
}

// HandleAdminPluginPage renders the page of a plugin inside the admin layout.
func (h *Handler) HandleAdminPluginPage(render plugins.AdminRenderFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, err := render(r)
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to render plugin admin page", "path", r.URL.Path, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)

			return
		}

		data := map[string]any{
			"SiteTitle": page.Name,
			"Page":      page,
		}

		h.renderTemplate(w, r, "admin-plugin-page.gohtml", data)
	})
}

// HandleSaveSettings stores every posted field as a forum setting.
func (h *Handler) HandleSaveSettings() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := r.ParseForm()
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to parse form", "error", err)
			http.Error(w, "Bad Request", http.StatusBadRequest)

			return
		}

		values := make(map[string]string, len(r.PostForm))

		for key := range r.PostForm {
			if key == csrfFieldName || key == redirectFieldName {
				continue
			}

			values[key] = strings.TrimSpace(r.PostForm.Get(key))
		}

		err = h.settings.SetMany(r.Context(), values)
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to save settings", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)

			return
		}

		slog.InfoContext(r.Context(), "settings saved", "count", len(values))

		returnTo := sanitizeReturnToPath(r.PostForm.Get(redirectFieldName))
		if returnTo == "/" {
			returnTo = "/admin"
		}

		http.Redirect(w, r, returnTo, http.StatusSeeOther)
	})
}

// sanitizeReturnToPath keeps only local absolute paths and falls back to the
// root for anything that could leave the site.
func sanitizeReturnToPath(returnTo string) string {
	if !strings.HasPrefix(returnTo, "/") || strings.HasPrefix(returnTo, "//") || strings.HasPrefix(returnTo, "/\\") {
		return "/"
	}

	return returnTo
}

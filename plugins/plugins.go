// Package plugins defines how the forum is extended. A plugin describes
// itself with a manifest and implements one Go interface per hook it
// declares. The forum calls the hooks once at start-up to collect routes,
// admin pages and scripts, and on every render for post filters.
package plugins

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/nasermirzaei89/forum/posts"
)

const (
	HookCreateRoutes      = "filter:server.create_routes"
	HookAdminHeaderBuild  = "filter:admin.header.build"
	HookAdminCreateRoutes = "filter:admin.create_routes"
	HookScriptsGet        = "filter:scripts.get"
	HookPostProfileInfo   = "filter:posts.custom_profile_info"
)

// Plugin is implemented by every plugin.
type Plugin interface {
	Manifest() *Manifest
	// Static returns the file system the manifest's static directories are
	// resolved against.
	Static() fs.FS
}

// Route is a public HTTP route contributed by a plugin. Method and Route
// form a net/http ServeMux pattern.
type Route struct {
	Route   string
	Method  string
	Handler http.Handler
}

type Routes struct {
	Routes []Route
}

type AdminNavItem struct {
	Route string
	Icon  string
	Name  string
}

type AdminHeader struct {
	Plugins []AdminNavItem
}

// AdminPage is what an admin route hands back to the forum, which renders
// it inside the admin layout.
type AdminPage struct {
	Route   string
	Name    string
	Content template.HTML
}

type AdminRenderFunc func(r *http.Request) (*AdminPage, error)

// AdminRoute is an administrators-only route mounted below /admin/plugins.
type AdminRoute struct {
	Route  string
	Method string
	Render AdminRenderFunc
}

type AdminRoutes struct {
	Routes []AdminRoute
}

type RouteRegisterer interface {
	AddRoutes(ctx context.Context, routes *Routes) error
}

type AdminLinkRegisterer interface {
	AddAdminLink(header *AdminHeader)
}

type AdminRouteRegisterer interface {
	AddAdminRoutes(ctx context.Context, routes *AdminRoutes) error
}

type ScriptsContributor interface {
	AddScripts(scripts []string) []string
}

type ProfileFilter = posts.ProfileFilter

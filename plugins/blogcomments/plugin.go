// Package blogcomments embeds forum topics as comment threads of external
// blog articles. An article is identified by an opaque comment id that maps
// to the topic holding its comments.
package blogcomments

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/nasermirzaei89/forum/authentication"
	"github.com/nasermirzaei89/forum/plugins"
	"github.com/nasermirzaei89/forum/posts"
	"github.com/nasermirzaei89/forum/topics"
)

//go:embed plugin.yaml public
var embedded embed.FS

// Embedded returns the file system compiled into the binary.
func Embedded() fs.FS {
	return embedded
}

const (
	manifestFile         = "plugin.yaml"
	commentsTemplateFile = "public/templates/comments.tpl"
	adminTemplateFile    = "public/templates/admin.tpl"

	// objectKey is the object that maps comment ids to topic ids.
	objectKey = "blog-comments"
	// PostFieldURL is the custom post field holding the article URL.
	PostFieldURL = "blog-comments:url"

	SettingURL  = "blog-comments:url"
	SettingName = "blog-comments:name"
	SettingCID  = "blog-comments:cid"

	defaultCID = 1

	adminRoute = "/blog-comments"
	adminName  = "Blog Comments"
	adminIcon  = "fa-book"

	commentsAnchor = "#nodebb/comments"
)

type ObjectStore interface {
	GetObjectField(ctx context.Context, key, field string) (string, error)
	SetObjectField(ctx context.Context, key, field, value string) error
}

type Topics interface {
	Post(ctx context.Context, req topics.PostRequest) (*topics.PostResult, error)
	Reply(ctx context.Context, req topics.ReplyRequest) (*posts.Post, error)
	GetTopicPosts(ctx context.Context, tid int64, start, stop int, uid int64, reverse bool) ([]*posts.Summary, error)
	GetTopicField(ctx context.Context, tid int64, field string) (string, error)
}

type Posts interface {
	GetPostField(ctx context.Context, pid int64, field string) (string, error)
	SetPostField(ctx context.Context, pid int64, field, value string) error
}

type Users interface {
	GetUserData(ctx context.Context, uid int64) (*authentication.UserData, error)
	IsAdministrator(ctx context.Context, uid int64) (bool, error)
}

type Settings interface {
	Get(ctx context.Context, key string) (string, error)
	GetInt(ctx context.Context, key string, defaultValue int) (int, error)
}

// Deps are the forum services the plugin delegates to.
type Deps struct {
	Objects  ObjectStore
	Topics   Topics
	Posts    Posts
	Users    Users
	Settings Settings
}

type Plugin struct {
	deps     Deps
	fsys     fs.FS
	manifest *plugins.Manifest

	commentsTemplate string
	adminTemplate    *template.Template
}

var (
	_ plugins.Plugin               = (*Plugin)(nil)
	_ plugins.RouteRegisterer      = (*Plugin)(nil)
	_ plugins.AdminLinkRegisterer  = (*Plugin)(nil)
	_ plugins.AdminRouteRegisterer = (*Plugin)(nil)
	_ plugins.ScriptsContributor   = (*Plugin)(nil)
	_ plugins.ProfileFilter        = (*Plugin)(nil)
)

// New reads the manifest and both templates from fsys. A nil fsys selects
// the embedded files.
func New(deps Deps, fsys fs.FS) (*Plugin, error) {
	if fsys == nil {
		fsys = embedded
	}

	manifest, err := plugins.ReadManifest(fsys, manifestFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read plugin manifest: %w", err)
	}

	commentsTemplate, err := fs.ReadFile(fsys, commentsTemplateFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read comments template: %w", err)
	}

	adminTemplate, err := template.ParseFS(fsys, adminTemplateFile)
	if err != nil {
		return nil, fmt.Errorf("failed to parse admin template: %w", err)
	}

	return &Plugin{
		deps:             deps,
		fsys:             fsys,
		manifest:         manifest,
		commentsTemplate: string(commentsTemplate),
		adminTemplate:    adminTemplate,
	}, nil
}

func (p *Plugin) Manifest() *plugins.Manifest {
	return p.manifest
}

func (p *Plugin) Static() fs.FS {
	return p.fsys
}

func (p *Plugin) AddRoutes(_ context.Context, routes *plugins.Routes) error {
	routes.Routes = append(routes.Routes,
		plugins.Route{Route: "/comments/get/{id}", Method: http.MethodGet, Handler: p.HandleGetCommentData()},
		plugins.Route{Route: "/comments/get/{id}/{pagination}", Method: http.MethodGet, Handler: p.HandleGetCommentData()},
		plugins.Route{Route: "/comments/reply", Method: http.MethodPost, Handler: p.HandleReplyToComment()},
		plugins.Route{Route: "/comments/publish", Method: http.MethodPost, Handler: p.HandlePublishArticle()},
	)

	return nil
}

func (p *Plugin) AddAdminLink(header *plugins.AdminHeader) {
	header.Plugins = append(header.Plugins, plugins.AdminNavItem{
		Route: adminRoute,
		Icon:  adminIcon,
		Name:  adminName,
	})
}

func (p *Plugin) AddAdminRoutes(_ context.Context, routes *plugins.AdminRoutes) error {
	routes.Routes = append(routes.Routes, plugins.AdminRoute{
		Route:  adminRoute,
		Method: http.MethodGet,
		Render: p.RenderAdminPage,
	})

	return nil
}

func (p *Plugin) AddScripts(scripts []string) []string {
	return append(scripts, "plugins/"+p.manifest.ID+"/lib/main.js")
}

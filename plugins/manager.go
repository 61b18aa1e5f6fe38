package plugins

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sync"

	"github.com/nasermirzaei89/forum/posts"
)

// Manager keeps the registered plugins and dispatches hooks to them in
// registration order.
type Manager struct {
	mu      sync.RWMutex
	plugins []Plugin
	ids     map[string]struct{}
}

var _ posts.ProfileFilter = (*Manager)(nil)

func NewManager() *Manager {
	return &Manager{
		ids: make(map[string]struct{}),
	}
}

func (m *Manager) Register(p Plugin) error {
	manifest := p.Manifest()
	if manifest == nil || manifest.ID == "" {
		return ErrMissingPluginID
	}

	for _, hook := range manifest.Hooks {
		ok, known := implementsHook(p, hook)
		if !known {
			return &UnknownHookError{PluginID: manifest.ID, Hook: hook}
		}

		if !ok {
			return &HookNotImplementedError{PluginID: manifest.ID, Hook: hook}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.ids[manifest.ID]; exists {
		return &DuplicatePluginError{ID: manifest.ID}
	}

	m.ids[manifest.ID] = struct{}{}
	m.plugins = append(m.plugins, p)

	return nil
}

func implementsHook(p Plugin, hook string) (ok, known bool) {
	switch hook {
	case HookCreateRoutes:
		_, ok = p.(RouteRegisterer)
	case HookAdminHeaderBuild:
		_, ok = p.(AdminLinkRegisterer)
	case HookAdminCreateRoutes:
		_, ok = p.(AdminRouteRegisterer)
	case HookScriptsGet:
		_, ok = p.(ScriptsContributor)
	case HookPostProfileInfo:
		_, ok = p.(ProfileFilter)
	default:
		return false, false
	}

	return ok, true
}

// withHook returns the plugins that declared hook.
func (m *Manager) withHook(hook string) []Plugin {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []Plugin

	for _, p := range m.plugins {
		for _, declared := range p.Manifest().Hooks {
			if declared == hook {
				result = append(result, p)

				break
			}
		}
	}

	return result
}

func (m *Manager) CreateRoutes(ctx context.Context) (*Routes, error) {
	routes := &Routes{}

	for _, p := range m.withHook(HookCreateRoutes) {
		err := p.(RouteRegisterer).AddRoutes(ctx, routes)
		if err != nil {
			return nil, fmt.Errorf("failed to add routes of plugin %q: %w", p.Manifest().ID, err)
		}
	}

	return routes, nil
}

func (m *Manager) BuildAdminHeader() *AdminHeader {
	header := &AdminHeader{}

	for _, p := range m.withHook(HookAdminHeaderBuild) {
		p.(AdminLinkRegisterer).AddAdminLink(header)
	}

	return header
}

func (m *Manager) CreateAdminRoutes(ctx context.Context) (*AdminRoutes, error) {
	routes := &AdminRoutes{}

	for _, p := range m.withHook(HookAdminCreateRoutes) {
		err := p.(AdminRouteRegisterer).AddAdminRoutes(ctx, routes)
		if err != nil {
			return nil, fmt.Errorf("failed to add admin routes of plugin %q: %w", p.Manifest().ID, err)
		}
	}

	return routes, nil
}

func (m *Manager) Scripts(base []string) []string {
	scripts := append([]string(nil), base...)

	for _, p := range m.withHook(HookScriptsGet) {
		scripts = p.(ScriptsContributor).AddScripts(scripts)
	}

	return scripts
}

// FilterProfile runs every profile filter on post. A failing filter is
// logged and the remaining filters still run; the first error is returned.
func (m *Manager) FilterProfile(ctx context.Context, post *posts.Summary) error {
	var firstErr error

	for _, p := range m.withHook(HookPostProfileInfo) {
		err := p.(ProfileFilter).FilterProfile(ctx, post)
		if err != nil {
			slog.ErrorContext(ctx, "plugin profile filter failed", "plugin", p.Manifest().ID, "pid", post.PID, "error", err)

			if firstErr == nil {
				firstErr = fmt.Errorf("failed to filter profile with plugin %q: %w", p.Manifest().ID, err)
			}
		}
	}

	return firstErr
}

// StaticDirs maps URL prefixes (ending with a slash) to the file systems
// that serve them.
func (m *Manager) StaticDirs() (map[string]fs.FS, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	dirs := make(map[string]fs.FS)

	for _, p := range m.plugins {
		manifest := p.Manifest()

		for prefix, dir := range manifest.StaticDirs {
			sub, err := fs.Sub(p.Static(), dir)
			if err != nil {
				return nil, fmt.Errorf("failed to open static dir %q of plugin %q: %w", dir, manifest.ID, err)
			}

			dirs[path.Join("/plugins", manifest.ID, prefix)+"/"] = sub
		}
	}

	return dirs, nil
}

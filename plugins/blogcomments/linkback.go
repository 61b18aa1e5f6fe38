package blogcomments

import (
	"context"
	"fmt"
	"html/template"

	"github.com/nasermirzaei89/forum/posts"
)

// FilterProfile adds a link to the article to posts that were published
// from a blog.
func (p *Plugin) FilterProfile(ctx context.Context, post *posts.Summary) error {
	articleURL, err := p.deps.Posts.GetPostField(ctx, post.PID, PostFieldURL)
	if err != nil {
		return fmt.Errorf("failed to get article url: %w", err)
	}

	if articleURL == "" {
		return nil
	}

	name, err := p.deps.Settings.Get(ctx, SettingName)
	if err != nil {
		return fmt.Errorf("failed to get blog name: %w", err)
	}

	post.Profile = append(post.Profile, posts.ProfileEntry{
		Content: template.HTML(fmt.Sprintf( // nolint:gosec
			`Posted from <strong><a href="%s" target="blank">%s</a></strong>`,
			template.HTMLEscapeString(articleURL),
			template.HTMLEscapeString(name),
		)),
	})

	return nil
}

package collab

import (
	"context"
	"strings"

	"github.com/joesh-del/video-management/internal/core/model"
)

// resolveMentions turns raw mention tokens into resolved identities.
// Each token is matched against the user directory first, then the persona
// registry. Unresolved tokens are dropped; a message with zero resolved
// mentions is still valid.
func (l *Layer) resolveMentions(ctx context.Context, raw []string) ([]model.Mention, error) {
	var resolved []model.Mention
	seen := make(map[string]bool)
	for _, tok := range raw {
		name := strings.TrimPrefix(strings.TrimSpace(tok), "@")
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		if u, err := l.userByName(ctx, name); err != nil {
			return nil, err
		} else if u != nil {
			resolved = append(resolved, model.Mention{Kind: model.MentionUser, ID: u.ID, Name: u.Name})
			continue
		}

		p, err := l.personas.ResolveByName(ctx, name)
		if err != nil {
			return nil, err
		}
		if p != nil {
			resolved = append(resolved, model.Mention{Kind: model.MentionPersona, ID: p.ID, Name: p.Name})
		}
	}
	return resolved, nil
}

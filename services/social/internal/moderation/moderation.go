// Package moderation decides the status a new or edited comment starts in.
package moderation

import (
	"context"
	"strings"
	"unicode"

	"github.com/example/skin-platform/services/social/internal/store"
)

// Moderator assigns one of the store.Status* values to a piece of text.
type Moderator interface {
	Review(ctx context.Context, text string) (string, error)
}

// Blocklist rejects text containing a blocked word and holds text containing
// a watched word for review. Matching is per word and case-insensitive.
type Blocklist struct {
	blocked map[string]struct{}
	watched map[string]struct{}
}

func NewBlocklist(blocked, watched []string) *Blocklist {
	return &Blocklist{blocked: wordSet(blocked), watched: wordSet(watched)}
}

func (b *Blocklist) Review(_ context.Context, text string) (string, error) {
	status := store.StatusApproved
	for _, w := range words(text) {
		if _, ok := b.blocked[w]; ok {
			return store.StatusRejected, nil
		}
		if _, ok := b.watched[w]; ok {
			status = store.StatusNeedsReview
		}
	}
	return status, nil
}

func wordSet(list []string) map[string]struct{} {
	set := make(map[string]struct{}, len(list))
	for _, w := range list {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			set[w] = struct{}{}
		}
	}
	return set
}

func words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

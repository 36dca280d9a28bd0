package threads

import (
	"context"

	"go.uber.org/zap"
)

// ToggleLike flips the viewer's like on a comment, or on a reply when
// parentCommentID is set. The cache flips on every call; the backend call
// is debounced per target so a burst of clicks sends only the final state.
func (t *Thread) ToggleLike(ctx context.Context, targetID string, currentlyLiked bool, parentCommentID string) Outcome {
	who := t.e.identity()
	if who == nil {
		return fail(ErrSignInRequired, "Please sign in to like comments.")
	}
	want := !currentlyLiked

	var out Outcome
	flipped := t.e.store.Update(t.subject, func(list []Comment) ([]Comment, bool) {
		id, status, found := likeTarget(list, targetID, parentCommentID)
		if !found {
			out = fail(ErrNotFound, "This comment no longer exists.")
			return list, false
		}
		if o, allowed := interactive(id, status, "Likes"); !allowed {
			out = o
			return list, false
		}
		return list, setLike(list, targetID, parentCommentID, who.ID, want)
	})
	if !flipped {
		return out
	}

	backend, subject := t.e.backend, t.subject
	t.e.debouncer.Schedule(ctx, subject.Key()+"/"+targetID,
		func(ctx context.Context) error {
			if want {
				return backend.Like(ctx, subject, targetID, parentCommentID)
			}
			return backend.Unlike(ctx, subject, targetID, parentCommentID)
		},
		func(err error) {
			t.e.store.Update(subject, func(list []Comment) ([]Comment, bool) {
				return list, setLike(list, targetID, parentCommentID, who.ID, !want)
			})
			t.log.Warn("like rolled back", zap.String("target_id", targetID), zap.Bool("liked", want), zap.Error(err))
			t.setError(remoteFailure(err, "Failed to update your like.").Message)
		},
	)
	return succeed("")
}

func likeTarget(list []Comment, targetID, parentID string) (ID, ModerationStatus, bool) {
	if parentID == "" {
		if i := indexComment(list, targetID); i >= 0 {
			return list[i].ID, list[i].ModerationStatus, true
		}
		return ID{}, "", false
	}
	i := indexComment(list, parentID)
	if i < 0 {
		return ID{}, "", false
	}
	if j := indexReply(list[i].Replies, targetID); j >= 0 {
		r := list[i].Replies[j]
		return r.ID, r.ModerationStatus, true
	}
	return ID{}, "", false
}

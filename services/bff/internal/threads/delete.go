package threads

import (
	"context"

	"go.uber.org/zap"
)

// DeleteComment removes commentID and its replies. The backend cascades the
// replies; the cache drops the comment at once and puts it back where it
// stood if the call fails.
func (t *Thread) DeleteComment(ctx context.Context, commentID string) Outcome {
	if t.e.identity() == nil {
		return fail(ErrSignInRequired, "Please sign in to delete comments.")
	}

	var (
		out     = fail(ErrNotFound, "This comment no longer exists.")
		removed Comment
		at      int
	)
	ok := t.e.store.Update(t.subject, func(list []Comment) ([]Comment, bool) {
		i := indexComment(list, commentID)
		if i < 0 {
			return list, false
		}
		c := list[i]
		if o, allowed := deletable(c.ID, c.ModerationStatus, c.Capabilities); !allowed {
			out = o
			return list, false
		}
		removed, at = c.clone(), i
		return removeComment(list, commentID), true
	})
	if !ok {
		return out
	}

	if err := t.e.backend.DeleteComment(ctx, t.subject, commentID); err != nil {
		t.e.store.Update(t.subject, func(list []Comment) ([]Comment, bool) {
			return reinsertComment(list, at, removed), true
		})
		t.log.Warn("delete comment rolled back", zap.String("comment_id", commentID), zap.Error(err))
		out := remoteFailure(err, "Failed to delete the comment.")
		t.setError(out.Message)
		return out
	}

	t.mu.Lock()
	delete(t.expanded, commentID)
	if t.replyingTo == commentID {
		t.replyingTo = ""
	}
	t.lastErr = ""
	t.mu.Unlock()
	return succeed("Comment deleted.")
}

// DeleteReply removes replyID from commentID. A failure puts the reply back
// where it stood.
func (t *Thread) DeleteReply(ctx context.Context, commentID, replyID string) Outcome {
	if t.e.identity() == nil {
		return fail(ErrSignInRequired, "Please sign in to delete replies.")
	}

	var (
		out     = fail(ErrNotFound, "This reply no longer exists.")
		removed Reply
		at      int
	)
	ok := t.e.store.Update(t.subject, func(list []Comment) ([]Comment, bool) {
		i := indexComment(list, commentID)
		if i < 0 {
			return list, false
		}
		j := indexReply(list[i].Replies, replyID)
		if j < 0 {
			return list, false
		}
		r := list[i].Replies[j]
		if o, allowed := deletable(r.ID, r.ModerationStatus, r.Capabilities); !allowed {
			out = o
			return list, false
		}
		removed, at = r.clone(), j
		return removeReply(list, commentID, replyID), true
	})
	if !ok {
		return out
	}

	if err := t.e.backend.DeleteReply(ctx, t.subject, commentID, replyID); err != nil {
		t.e.store.Update(t.subject, func(list []Comment) ([]Comment, bool) {
			return reinsertReply(list, commentID, at, removed), true
		})
		t.log.Warn("delete reply rolled back", zap.String("reply_id", replyID), zap.Error(err))
		out := remoteFailure(err, "Failed to delete the reply.")
		t.setError(out.Message)
		return out
	}
	t.e.store.Update(t.subject, func(list []Comment) ([]Comment, bool) {
		i := indexComment(list, commentID)
		if i < 0 || list[i].ReplyCount <= countReplies(list[i]) {
			return list, false
		}
		list[i].ReplyCount--
		return list, true
	})
	t.setError("")
	return succeed("Reply deleted.")
}

func deletable(id ID, status ModerationStatus, caps Capabilities) (Outcome, bool) {
	if out, allowed := interactive(id, status, "Deletes"); !allowed {
		return out, false
	}
	if !caps.CanDelete {
		return fail(ErrNotInteractive, "You cannot delete this."), false
	}
	return Outcome{}, true
}

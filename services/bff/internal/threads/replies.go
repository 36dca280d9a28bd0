package threads

import "context"

// loadReplies fetches the replies of commentID and merges them into the
// cache. Concurrent loads of the same comment share one backend call, and a
// comment whose replies are already loaded and non-empty is left alone.
func (t *Thread) loadReplies(ctx context.Context, commentID string) error {
	_, err, _ := t.e.loads.Do(t.subject.Key()+"/"+commentID, func() (any, error) {
		c, found := t.e.store.Find(t.subject, commentID)
		if !found || (c.RepliesLoaded && len(c.Replies) > 0) {
			return nil, nil
		}

		fetched, err := t.e.backend.ListReplies(ctx, t.subject, commentID)
		if err != nil {
			return nil, err
		}
		for i := range fetched {
			if fetched[i].ParentCommentID == "" {
				fetched[i].ParentCommentID = commentID
			}
		}

		t.e.store.Update(t.subject, func(list []Comment) ([]Comment, bool) {
			i := indexComment(list, commentID)
			if i < 0 {
				return list, false
			}
			list[i].Replies = mergeReplies(list[i].Replies, fetched)
			list[i].RepliesLoaded = true
			list[i].ReplyCount = countReplies(list[i])
			return list, true
		})
		return nil, nil
	})
	return err
}

package threads

import "slices"

// List patches. Every function here takes a list owned by the caller and
// returns the patched list; the store runs them inside Update.

func indexComment(list []Comment, id string) int {
	for i := range list {
		if list[i].ID.Matches(id) {
			return i
		}
	}
	return -1
}

func indexAuthor(list []Comment, authorID string) int {
	for i := range list {
		if list[i].AuthorID == authorID {
			return i
		}
	}
	return -1
}

func indexReply(list []Reply, id string) int {
	for i := range list {
		if list[i].ID.Matches(id) {
			return i
		}
	}
	return -1
}

// placeComment puts a provisional comment into the list. An existing comment
// by the same author is replaced where it stands; otherwise the new one is
// prepended.
func placeComment(list []Comment, provisional Comment) []Comment {
	if i := indexAuthor(list, provisional.AuthorID); i >= 0 {
		list[i] = provisional
		return list
	}
	return append([]Comment{provisional}, list...)
}

// confirmComment swaps the provisional record tempID for the confirmed one.
// A record already carrying the confirmed id (a refresh got there first)
// is treated the same way, and any further copy is dropped. When neither is
// present the confirmed record is prepended.
func confirmComment(list []Comment, tempID ID, confirmed Comment) []Comment {
	out := make([]Comment, 0, len(list)+1)
	placed := false
	for _, c := range list {
		match := c.ID == tempID || c.ID == confirmed.ID
		if !match && c.AuthorID != confirmed.AuthorID {
			out = append(out, c)
			continue
		}
		if placed {
			continue
		}
		merged := confirmed.clone()
		if !merged.RepliesLoaded && c.RepliesLoaded {
			merged.Replies = c.Replies
			merged.RepliesLoaded = true
		}
		out = append(out, merged)
		placed = true
	}
	if !placed {
		out = append([]Comment{confirmed.clone()}, out...)
	}
	return out
}

// confirmReply is confirmComment for a reply list, without the one-per-author rule.
func confirmReply(list []Reply, tempID ID, confirmed Reply) []Reply {
	out := make([]Reply, 0, len(list)+1)
	placed := false
	for _, r := range list {
		if r.ID != tempID && r.ID != confirmed.ID {
			out = append(out, r)
			continue
		}
		if placed {
			continue
		}
		out = append(out, confirmed.clone())
		placed = true
	}
	if !placed {
		out = append(out, confirmed.clone())
	}
	return out
}

// mergeReplies combines a fresh load with what is cached: the fetched replies
// in server order, then every provisional reply not represented in the fetch,
// in local order.
func mergeReplies(local, fetched []Reply) []Reply {
	seen := make(map[ID]struct{}, len(fetched))
	out := make([]Reply, 0, len(fetched)+len(local))
	for _, r := range fetched {
		seen[r.ID] = struct{}{}
		out = append(out, r.clone())
	}
	for _, r := range local {
		if !r.ID.IsProvisional() {
			continue
		}
		if _, dup := seen[r.ID]; dup {
			continue
		}
		out = append(out, r.clone())
	}
	return out
}

// mergeList combines a fresh list load with the cache. Server order wins;
// reply subtrees already loaded for surviving comments are kept, provisional
// replies are carried over whether or not the subtree was loaded, and
// provisional comments still in flight replace their author's entry or are
// prepended.
func mergeList(local, fetched []Comment) []Comment {
	cached := make(map[ID]Comment, len(local))
	var provisional []Comment
	for _, c := range local {
		if c.ID.IsProvisional() {
			provisional = append(provisional, c)
			continue
		}
		cached[c.ID] = c
	}

	out := make([]Comment, 0, len(fetched)+len(provisional))
	for _, f := range fetched {
		f = f.clone()
		if l, ok := cached[f.ID]; ok {
			switch {
			case f.RepliesLoaded:
				f.Replies = mergeReplies(l.Replies, f.Replies)
			case l.RepliesLoaded:
				f.Replies = cloneReplies(l.Replies)
				f.RepliesLoaded = true
			default:
				if kept := mergeReplies(l.Replies, nil); len(kept) > 0 {
					f.Replies = kept
				}
			}
		}
		out = append(out, f)
	}
	for i := len(provisional) - 1; i >= 0; i-- {
		out = placeComment(out, provisional[i])
	}
	return out
}

// setLike sets userID's membership in the likedBy set of a comment, or of a
// reply when parentID is non-empty. It reports whether the target was found.
func setLike(list []Comment, targetID, parentID, userID string, liked bool) bool {
	if parentID == "" {
		i := indexComment(list, targetID)
		if i < 0 {
			return false
		}
		list[i].LikedBy = withLike(list[i].LikedBy, userID, liked)
		return true
	}
	i := indexComment(list, parentID)
	if i < 0 {
		return false
	}
	j := indexReply(list[i].Replies, targetID)
	if j < 0 {
		return false
	}
	list[i].Replies[j].LikedBy = withLike(list[i].Replies[j].LikedBy, userID, liked)
	return true
}

func removeComment(list []Comment, id string) []Comment {
	if i := indexComment(list, id); i >= 0 {
		return append(list[:i], list[i+1:]...)
	}
	return list
}

func removeReply(list []Comment, commentID, replyID string) []Comment {
	i := indexComment(list, commentID)
	if i < 0 {
		return list
	}
	if j := indexReply(list[i].Replies, replyID); j >= 0 {
		list[i].Replies = append(list[i].Replies[:j], list[i].Replies[j+1:]...)
	}
	return list
}

// revertComment undoes a failed submission. The provisional record tempID
// gives way to the author's prior record, or is dropped when there was none
// or the prior record is back already.
func revertComment(list []Comment, tempID ID, prior *Comment) []Comment {
	i := slices.IndexFunc(list, func(c Comment) bool { return c.ID == tempID })
	if i < 0 {
		return list
	}
	if prior == nil || slices.ContainsFunc(list, func(c Comment) bool { return c.ID == prior.ID }) {
		return slices.Delete(list, i, i+1)
	}
	list[i] = prior.clone()
	return list
}

// reinsertComment undoes a failed delete by putting c back at index at,
// clamped to the current list. Nothing happens when c is present again.
func reinsertComment(list []Comment, at int, c Comment) []Comment {
	if slices.ContainsFunc(list, func(x Comment) bool { return x.ID == c.ID }) {
		return list
	}
	return slices.Insert(list, min(at, len(list)), c.clone())
}

// dropReply removes the reply with exactly this id from commentID.
func dropReply(list []Comment, commentID string, id ID) []Comment {
	if i := indexComment(list, commentID); i >= 0 {
		list[i].Replies = slices.DeleteFunc(list[i].Replies, func(r Reply) bool { return r.ID == id })
	}
	return list
}

// reinsertReply is reinsertComment for the replies of commentID.
func reinsertReply(list []Comment, commentID string, at int, r Reply) []Comment {
	i := indexComment(list, commentID)
	if i < 0 || slices.ContainsFunc(list[i].Replies, func(x Reply) bool { return x.ID == r.ID }) {
		return list
	}
	list[i].Replies = slices.Insert(list[i].Replies, min(at, len(list[i].Replies)), r.clone())
	return list
}

// countReplies returns the confirmed replies held for a comment.
func countReplies(c Comment) int {
	n := 0
	for _, r := range c.Replies {
		if !r.Pending() {
			n++
		}
	}
	return n
}

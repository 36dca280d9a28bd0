package threads

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids[T Comment | Reply](list []T) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		switch x := any(v).(type) {
		case Comment:
			out = append(out, x.ID.String())
		case Reply:
			out = append(out, x.ID.String())
		}
	}
	return out
}

func TestConfirmComment_ReplacesInPlace(t *testing.T) {
	tmp := ProvisionalID("tmp-1")
	list := []Comment{
		{ID: ConfirmedID("c0"), AuthorID: "b"},
		{ID: tmp, AuthorID: "a", RepliesLoaded: true, Replies: []Reply{{ID: ConfirmedID("r0")}}},
		{ID: ConfirmedID("c2"), AuthorID: "c"},
	}
	out := confirmComment(list, tmp, Comment{ID: ConfirmedID("c1"), AuthorID: "a", Text: "ok"})

	assert.Equal(t, []string{"c0", "c1", "c2"}, ids(out))
	assert.Equal(t, "ok", out[1].Text)
	assert.True(t, out[1].RepliesLoaded)
	assert.Equal(t, []string{"r0"}, ids(out[1].Replies))
}

func TestConfirmComment_Dedupes(t *testing.T) {
	tmp := ProvisionalID("tmp-1")
	list := []Comment{
		{ID: tmp, AuthorID: "a"},
		{ID: ConfirmedID("c0"), AuthorID: "b"},
		{ID: ConfirmedID("c1"), AuthorID: "a"},
	}
	out := confirmComment(list, tmp, Comment{ID: ConfirmedID("c1"), AuthorID: "a"})
	assert.Equal(t, []string{"c1", "c0"}, ids(out))
}

func TestConfirmComment_InsertsWhenMissing(t *testing.T) {
	list := []Comment{{ID: ConfirmedID("c0"), AuthorID: "b"}}
	out := confirmComment(list, ProvisionalID("gone"), Comment{ID: ConfirmedID("c1"), AuthorID: "a"})
	assert.Equal(t, []string{"c1", "c0"}, ids(out))
}

func TestConfirmReply_NoAuthorCollapse(t *testing.T) {
	tmp := ProvisionalID("tmp-1")
	list := []Reply{
		{ID: ConfirmedID("r0"), AuthorID: "a"},
		{ID: tmp, AuthorID: "a"},
	}
	out := confirmReply(list, tmp, Reply{ID: ConfirmedID("r1"), AuthorID: "a"})
	assert.Equal(t, []string{"r0", "r1"}, ids(out))

	out = confirmReply([]Reply{{ID: ConfirmedID("r0")}}, tmp, Reply{ID: ConfirmedID("r1")})
	assert.Equal(t, []string{"r0", "r1"}, ids(out))
}

func TestMergeReplies_KeepsProvisional(t *testing.T) {
	local := []Reply{
		{ID: ConfirmedID("r0")},
		{ID: ProvisionalID("tmp-1")},
		{ID: ConfirmedID("stale")},
		{ID: ProvisionalID("tmp-2")},
	}
	fetched := []Reply{{ID: ConfirmedID("r0")}, {ID: ConfirmedID("r5")}}

	out := mergeReplies(local, fetched)
	assert.Equal(t, []string{"r0", "r5", "tmp-1", "tmp-2"}, ids(out))
	assert.True(t, out[2].Pending())
}

func TestMergeList(t *testing.T) {
	local := []Comment{
		{ID: ProvisionalID("tmp-1"), AuthorID: "a", Text: "edit in flight"},
		{ID: ConfirmedID("c0"), AuthorID: "b", RepliesLoaded: true, Replies: []Reply{{ID: ConfirmedID("r0")}, {ID: ProvisionalID("tmp-r")}}},
	}
	fetched := []Comment{
		{ID: ConfirmedID("c3"), AuthorID: "c"},
		{ID: ConfirmedID("c0"), AuthorID: "b"},
		{ID: ConfirmedID("c1"), AuthorID: "a", Text: "old"},
	}

	out := mergeList(local, fetched)
	require.Equal(t, []string{"c3", "c0", "tmp-1"}, ids(out))
	assert.Equal(t, "edit in flight", out[2].Text)
	assert.True(t, out[1].RepliesLoaded)
	assert.Equal(t, []string{"r0", "tmp-r"}, ids(out[1].Replies))

	out = mergeList([]Comment{{ID: ProvisionalID("tmp-1"), AuthorID: "a"}}, fetched[:1])
	assert.Equal(t, []string{"tmp-1", "c3"}, ids(out))
}

func TestMergeList_KeepsInFlightReplyOnUnfetchedComment(t *testing.T) {
	local := []Comment{
		{ID: ConfirmedID("c0"), Replies: []Reply{{ID: ProvisionalID("tmp-r")}}},
		{ID: ConfirmedID("c1")},
	}
	fetched := []Comment{{ID: ConfirmedID("c0"), ReplyCount: 4}, {ID: ConfirmedID("c1")}}

	out := mergeList(local, fetched)
	require.Equal(t, []string{"c0", "c1"}, ids(out))
	assert.Equal(t, []string{"tmp-r"}, ids(out[0].Replies))
	assert.False(t, out[0].RepliesLoaded)
	assert.Equal(t, 4, out[0].ReplyCount)
	assert.Nil(t, out[1].Replies)
}

func TestRevertComment(t *testing.T) {
	tmp := ProvisionalID("tmp-1")
	prior := Comment{ID: ConfirmedID("c0"), AuthorID: "a", Text: "before"}

	out := revertComment([]Comment{{ID: tmp, AuthorID: "a"}, {ID: ConfirmedID("c9")}}, tmp, &prior)
	require.Equal(t, []string{"c0", "c9"}, ids(out))
	assert.Equal(t, "before", out[0].Text)

	out = revertComment([]Comment{{ID: tmp}, {ID: ConfirmedID("c9")}}, tmp, nil)
	assert.Equal(t, []string{"c9"}, ids(out))

	// already resolved by someone else
	out = revertComment([]Comment{{ID: ConfirmedID("c1")}}, tmp, &prior)
	assert.Equal(t, []string{"c1"}, ids(out))
}

func TestReinsert(t *testing.T) {
	c0 := Comment{ID: ConfirmedID("c0")}
	out := reinsertComment([]Comment{{ID: ConfirmedID("c1")}, {ID: ConfirmedID("c2")}}, 1, c0)
	assert.Equal(t, []string{"c1", "c0", "c2"}, ids(out))
	out = reinsertComment(out, 0, c0)
	assert.Equal(t, []string{"c1", "c0", "c2"}, ids(out))
	out = reinsertComment(nil, 5, c0)
	assert.Equal(t, []string{"c0"}, ids(out))

	list := []Comment{{ID: ConfirmedID("c0"), Replies: []Reply{{ID: ConfirmedID("r1")}}}}
	list = reinsertReply(list, "c0", 3, Reply{ID: ConfirmedID("r0")})
	assert.Equal(t, []string{"r1", "r0"}, ids(list[0].Replies))
	list = dropReply(list, "c0", ConfirmedID("r1"))
	assert.Equal(t, []string{"r0"}, ids(list[0].Replies))
}

func TestSetLike_IsASet(t *testing.T) {
	list := []Comment{{ID: ConfirmedID("c0"), LikedBy: []string{"x"}, Replies: []Reply{{ID: ConfirmedID("r0")}}}}

	require.True(t, setLike(list, "c0", "", "a", true))
	require.True(t, setLike(list, "c0", "", "a", true))
	assert.Equal(t, []string{"x", "a"}, list[0].LikedBy)
	require.True(t, setLike(list, "c0", "", "a", false))
	assert.Equal(t, []string{"x"}, list[0].LikedBy)

	require.True(t, setLike(list, "r0", "c0", "a", true))
	assert.Equal(t, []string{"a"}, list[0].Replies[0].LikedBy)
	assert.False(t, setLike(list, "r9", "c0", "a", true))
	assert.False(t, setLike(list, "c9", "", "a", true))
}

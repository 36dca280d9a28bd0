package threads

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// fakeBackend is an in-memory comment API acting for a single signed-in user.
type fakeBackend struct {
	mu      sync.Mutex
	user    Identity
	clock   time.Time
	seq     int
	list    []Comment
	replies map[string][]Reply

	postErr, replyErr, likeErr, deleteErr error
	listRepliesErrs                       int
	hideAuthor                            string

	postGate, replyGate, deleteGate chan struct{}
	postStarted, deleteStarted      chan struct{}

	listCalls, listReplyCalls int
	likeCalls                 []likeCall
	deleteCalls               int
}

type likeCall struct {
	target, parent string
	liked          bool
}

var errBoom = errors.New("boom")

type publicErr struct{ msg string }

func (e publicErr) Error() string         { return "remote: " + e.msg }
func (e publicErr) PublicMessage() string { return e.msg }

func newFakeBackend(user Identity) *fakeBackend {
	return &fakeBackend{
		user:    user,
		clock:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		replies: make(map[string][]Reply),
	}
}

func (f *fakeBackend) tick() time.Time {
	f.clock = f.clock.Add(time.Minute)
	return f.clock
}

func statusFor(text string) ModerationStatus {
	switch {
	case strings.Contains(text, "spam"):
		return StatusRejected
	case strings.Contains(text, "review"):
		return StatusNeedsReview
	default:
		return StatusApproved
	}
}

func (f *fakeBackend) seed(c Comment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.LikedBy == nil {
		c.LikedBy = []string{}
	}
	f.list = append(f.list, c)
}

func (f *fakeBackend) ListComments(context.Context, Subject) ([]Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	out := make([]Comment, 0, len(f.list))
	for _, c := range f.list {
		if c.AuthorID != "" && c.AuthorID == f.hideAuthor {
			continue
		}
		c = c.clone()
		c.ReplyCount = len(f.replies[c.ID.String()])
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeBackend) GetUserComment(_ context.Context, _ Subject, authorID string) (*Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i := indexAuthor(f.list, authorID); i >= 0 {
		c := f.list[i].clone()
		c.ReplyCount = len(f.replies[c.ID.String()])
		return &c, nil
	}
	return nil, nil
}

func (f *fakeBackend) PostComment(_ context.Context, _ Subject, text string) (Comment, error) {
	f.mu.Lock()
	var out Comment
	err := f.postErr
	if err == nil {
		now := f.tick()
		if i := indexAuthor(f.list, f.user.ID); i >= 0 {
			f.list[i].Text = text
			f.list[i].UpdatedAt = now
			f.list[i].IsEdited = true
			f.list[i].ModerationStatus = statusFor(text)
			out = f.list[i].clone()
		} else {
			f.seq++
			out = Comment{
				ID:               ConfirmedID(fmt.Sprintf("c%d", f.seq)),
				AuthorID:         f.user.ID,
				Author:           Author{Username: f.user.Username},
				Text:             text,
				CreatedAt:        now,
				UpdatedAt:        now,
				ModerationStatus: statusFor(text),
				LikedBy:          []string{},
				Capabilities:     Capabilities{CanDelete: true, CanEdit: true},
			}
			f.list = append([]Comment{out}, f.list...)
		}
	}
	gate, started := f.postGate, f.postStarted
	f.mu.Unlock()

	if started != nil {
		close(started)
	}
	if gate != nil {
		<-gate
	}
	return out, err
}

func (f *fakeBackend) ListReplies(_ context.Context, _ Subject, commentID string) ([]Reply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listReplyCalls++
	if f.listRepliesErrs > 0 {
		f.listRepliesErrs--
		return nil, errBoom
	}
	return cloneReplies(f.replies[commentID]), nil
}

func (f *fakeBackend) PostReply(_ context.Context, _ Subject, commentID, text string) (Reply, error) {
	f.mu.Lock()
	gate := f.replyGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.replyErr != nil {
		return Reply{}, f.replyErr
	}
	f.seq++
	now := f.tick()
	out := Reply{
		ID:               ConfirmedID(fmt.Sprintf("r%d", f.seq)),
		ParentCommentID:  commentID,
		AuthorID:         f.user.ID,
		Author:           Author{Username: f.user.Username},
		Text:             text,
		CreatedAt:        now,
		UpdatedAt:        now,
		ModerationStatus: statusFor(text),
		LikedBy:          []string{},
		Capabilities:     Capabilities{CanDelete: true, CanEdit: true},
	}
	f.replies[commentID] = append(f.replies[commentID], out)
	return out, nil
}

func (f *fakeBackend) like(target, parent string, liked bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.likeCalls = append(f.likeCalls, likeCall{target: target, parent: parent, liked: liked})
	return f.likeErr
}

func (f *fakeBackend) Like(_ context.Context, _ Subject, targetID, parentID string) error {
	return f.like(targetID, parentID, true)
}

func (f *fakeBackend) Unlike(_ context.Context, _ Subject, targetID, parentID string) error {
	return f.like(targetID, parentID, false)
}

func (f *fakeBackend) DeleteComment(_ context.Context, _ Subject, commentID string) error {
	f.mu.Lock()
	gate, started := f.deleteGate, f.deleteStarted
	f.mu.Unlock()
	if started != nil {
		close(started)
	}
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if i := indexComment(f.list, commentID); i >= 0 {
		f.list = append(f.list[:i], f.list[i+1:]...)
	}
	delete(f.replies, commentID)
	return nil
}

func (f *fakeBackend) DeleteReply(_ context.Context, _ Subject, commentID, replyID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	if f.deleteErr != nil {
		return f.deleteErr
	}
	rs := f.replies[commentID]
	if j := indexReply(rs, replyID); j >= 0 {
		f.replies[commentID] = append(rs[:j], rs[j+1:]...)
	}
	return nil
}

func (f *fakeBackend) likes() []likeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]likeCall(nil), f.likeCalls...)
}

func (f *fakeBackend) set(fn func(f *fakeBackend)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

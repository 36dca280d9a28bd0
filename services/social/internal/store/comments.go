package store

import (
	"context"
	"errors"
	"time"
)

// Subject types comments can be attached to.
const (
	SubjectSkin = "skin"
	SubjectPost = "post"
)

// Moderation statuses.
const (
	StatusApproved    = "approved"
	StatusNeedsReview = "needsReview"
	StatusRejected    = "rejected"
)

var (
	ErrNotFound = errors.New("comment not found")
	// ErrParentNotFound is returned when a reply targets a missing top-level comment.
	ErrParentNotFound = errors.New("parent comment not found")
)

type Subject struct {
	Type string
	ID   string
}

// Comment is a top-level comment (ParentID empty) or a reply.
type Comment struct {
	ID          string
	SubjectType string
	SubjectID   string
	ParentID    string
	AuthorID    string
	Username    string
	AvatarURL   string
	Body        string
	Status      string
	Edited      bool
	LikedBy     []string
	ReplyCount  int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (c Comment) Subject() Subject { return Subject{Type: c.SubjectType, ID: c.SubjectID} }

// VisibleTo reports whether viewerID may see c. Records that are not approved
// are only shown to their author.
func (c Comment) VisibleTo(viewerID string) bool {
	return c.Status == StatusApproved || (viewerID != "" && c.AuthorID == viewerID)
}

// CommentStore defines the contract for comment persistence.
type CommentStore interface {
	// UpsertComment creates the author's top-level comment on the subject or
	// edits the existing one in place, keeping its id, likes and replies.
	UpsertComment(ctx context.Context, c Comment) (Comment, error)
	CreateReply(ctx context.Context, c Comment) (Comment, error)
	Get(ctx context.Context, subject Subject, id string) (Comment, error)
	// List returns top-level comments newest first, filtered for viewerID.
	List(ctx context.Context, subject Subject, viewerID string) ([]Comment, error)
	ByAuthor(ctx context.Context, subject Subject, authorID string) (Comment, error)
	// Replies returns the replies of parentID oldest first, filtered for viewerID.
	Replies(ctx context.Context, subject Subject, parentID, viewerID string) ([]Comment, error)
	SetLike(ctx context.Context, subject Subject, id, userID string, liked bool) error
	// Delete removes a comment or reply; deleting a top-level comment removes its replies.
	Delete(ctx context.Context, subject Subject, id string) error
}

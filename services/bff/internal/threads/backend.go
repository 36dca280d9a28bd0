package threads

import "context"

// Backend is the remote comment API. Implementations return records decoded
// from the server, so every ID they hand back is confirmed.
type Backend interface {
	ListComments(ctx context.Context, subject Subject) ([]Comment, error)
	// GetUserComment returns nil, nil when the author has no comment on subject.
	GetUserComment(ctx context.Context, subject Subject, authorID string) (*Comment, error)
	// PostComment creates the caller's comment or edits it in place.
	PostComment(ctx context.Context, subject Subject, text string) (Comment, error)
	ListReplies(ctx context.Context, subject Subject, commentID string) ([]Reply, error)
	PostReply(ctx context.Context, subject Subject, commentID, text string) (Reply, error)
	// Like and Unlike target a reply when parentCommentID is non-empty.
	Like(ctx context.Context, subject Subject, targetID, parentCommentID string) error
	Unlike(ctx context.Context, subject Subject, targetID, parentCommentID string) error
	DeleteComment(ctx context.Context, subject Subject, commentID string) error
	DeleteReply(ctx context.Context, subject Subject, commentID, replyID string) error
}

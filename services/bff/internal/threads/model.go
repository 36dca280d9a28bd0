package threads

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

type SubjectType string

const (
	SubjectSkin SubjectType = "skin"
	SubjectPost SubjectType = "post"
)

// ParseSubjectType accepts the subject types the backend serves.
func ParseSubjectType(s string) (SubjectType, error) {
	switch t := SubjectType(strings.ToLower(strings.TrimSpace(s))); t {
	case SubjectSkin, SubjectPost:
		return t, nil
	default:
		return "", fmt.Errorf("unknown subject type %q", s)
	}
}

// Subject is what a comment thread is attached to. It is only ever used as a key.
type Subject struct {
	Type SubjectType `json:"type"`
	ID   string      `json:"id"`
}

func (s Subject) Key() string { return string(s.Type) + ":" + s.ID }

func (s Subject) String() string { return s.Key() }

// ParseSubjectKey is the inverse of Subject.Key.
func ParseSubjectKey(key string) (Subject, error) {
	typ, id, ok := strings.Cut(key, ":")
	if !ok || strings.TrimSpace(id) == "" {
		return Subject{}, fmt.Errorf("malformed subject key %q", key)
	}
	t, err := ParseSubjectType(typ)
	if err != nil {
		return Subject{}, err
	}
	return Subject{Type: t, ID: id}, nil
}

type ModerationStatus string

const (
	StatusApproved    ModerationStatus = "approved"
	StatusNeedsReview ModerationStatus = "needsReview"
	StatusRejected    ModerationStatus = "rejected"
)

// Interactive reports whether like, reply and delete are allowed for a record
// in this status. needsReview and rejected records are read-only.
func (s ModerationStatus) Interactive() bool {
	return s != StatusNeedsReview && s != StatusRejected
}

type Capabilities struct {
	CanDelete bool `json:"can_delete"`
	CanEdit   bool `json:"can_edit"`
}

// Author holds display-only fields owned by the identity collaborator.
type Author struct {
	Username          string `json:"username"`
	ProfilePictureURL string `json:"profile_picture_url,omitempty"`
}

// Identity is the signed-in user. A nil *Identity means nobody is signed in.
type Identity struct {
	ID                string `json:"id"`
	Username          string `json:"username"`
	ProfilePictureURL string `json:"profile_picture_url,omitempty"`
}

// Reply is a second-level entry owned by a top-level Comment.
type Reply struct {
	ID               ID               `json:"id"`
	ParentCommentID  string           `json:"parent_comment_id"`
	AuthorID         string           `json:"author_id"`
	Author           Author           `json:"author"`
	Text             string           `json:"text"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
	ModerationStatus ModerationStatus `json:"moderation_status"`
	LikedBy          []string         `json:"liked_by"`
	IsEdited         bool             `json:"is_edited"`
	Capabilities     Capabilities     `json:"capabilities"`
}

func (r Reply) Pending() bool { return r.ID.IsProvisional() }

func (r Reply) clone() Reply {
	r.LikedBy = slices.Clone(r.LikedBy)
	return r
}

// Comment is a top-level entry attached to a Subject. Replies are loaded
// lazily: RepliesLoaded=false means they were never fetched, while
// RepliesLoaded=true with no Replies means the comment has none. ReplyCount
// is the backend's count of confirmed replies and is known either way.
type Comment struct {
	ID               ID               `json:"id"`
	AuthorID         string           `json:"author_id"`
	Author           Author           `json:"author"`
	Text             string           `json:"text"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
	ModerationStatus ModerationStatus `json:"moderation_status"`
	LikedBy          []string         `json:"liked_by"`
	IsEdited         bool             `json:"is_edited"`
	Capabilities     Capabilities     `json:"capabilities"`
	ReplyCount       int              `json:"reply_count"`
	Replies          []Reply          `json:"replies,omitempty"`
	RepliesLoaded    bool             `json:"replies_loaded"`
}

func (c Comment) Pending() bool { return c.ID.IsProvisional() }

func (c Comment) LikeCount() int { return len(c.LikedBy) }

func (c Comment) clone() Comment {
	c.LikedBy = slices.Clone(c.LikedBy)
	if c.Replies != nil {
		replies := make([]Reply, len(c.Replies))
		for i, r := range c.Replies {
			replies[i] = r.clone()
		}
		c.Replies = replies
	}
	return c
}

func cloneComments(list []Comment) []Comment {
	if list == nil {
		return nil
	}
	out := make([]Comment, len(list))
	for i, c := range list {
		out[i] = c.clone()
	}
	return out
}

func cloneReplies(list []Reply) []Reply {
	if list == nil {
		return nil
	}
	out := make([]Reply, len(list))
	for i, r := range list {
		out[i] = r.clone()
	}
	return out
}

// withLike returns likedBy with userID present or absent, never duplicated.
func withLike(likedBy []string, userID string, liked bool) []string {
	out := make([]string, 0, len(likedBy)+1)
	for _, id := range likedBy {
		if id != userID {
			out = append(out, id)
		}
	}
	if liked {
		out = append(out, userID)
	}
	return out
}

// Limits bounds the length of comment and reply text, counted in runes.
type Limits struct {
	Comment int
	Reply   int
}

// DefaultLimits is applied to every subject type unless overridden.
var DefaultLimits = Limits{Comment: 1000, Reply: 500}

package threads

import (
	"time"

	"github.com/google/uuid"
)

// Builder synthesises provisional records from the signed-in identity so the
// UI can render a submission before the backend answers.
type Builder struct {
	Now   func() time.Time
	NewID func() string
}

// NewBuilder returns a Builder using the wall clock and random UUIDs.
func NewBuilder() Builder {
	return Builder{
		Now:   func() time.Time { return time.Now().UTC() },
		NewID: func() string { return "tmp-" + uuid.NewString() },
	}
}

func (b Builder) Comment(who Identity, text string) Comment {
	now := b.Now()
	return Comment{
		ID:               ProvisionalID(b.NewID()),
		AuthorID:         who.ID,
		Author:           Author{Username: who.Username, ProfilePictureURL: who.ProfilePictureURL},
		Text:             text,
		CreatedAt:        now,
		UpdatedAt:        now,
		ModerationStatus: StatusApproved,
		LikedBy:          []string{},
		Capabilities:     Capabilities{CanDelete: true, CanEdit: true},
	}
}

// Edit turns an existing comment into a provisional edit of itself. The
// original creation time, likes and replies carry over.
func (b Builder) Edit(existing Comment, text string) Comment {
	edited := existing.clone()
	edited.ID = ProvisionalID(b.NewID())
	edited.Text = text
	edited.UpdatedAt = b.Now()
	edited.IsEdited = true
	edited.ModerationStatus = StatusApproved
	edited.Capabilities = Capabilities{CanDelete: true, CanEdit: true}
	return edited
}

func (b Builder) Reply(who Identity, parentCommentID, text string) Reply {
	now := b.Now()
	return Reply{
		ID:               ProvisionalID(b.NewID()),
		ParentCommentID:  parentCommentID,
		AuthorID:         who.ID,
		Author:           Author{Username: who.Username, ProfilePictureURL: who.ProfilePictureURL},
		Text:             text,
		CreatedAt:        now,
		UpdatedAt:        now,
		ModerationStatus: StatusApproved,
		LikedBy:          []string{},
		Capabilities:     Capabilities{CanDelete: true, CanEdit: true},
	}
}

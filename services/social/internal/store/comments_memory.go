package store

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryCommentStore is a development-only in-memory implementation.
type InMemoryCommentStore struct {
	mu       sync.RWMutex
	comments map[string]Comment // id -> comment
	now      func() time.Time
}

func NewInMemoryCommentStore() *InMemoryCommentStore {
	return &InMemoryCommentStore{
		comments: make(map[string]Comment),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *InMemoryCommentStore) UpsertComment(_ context.Context, c Comment) (Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, existing := range s.comments {
		if existing.ParentID != "" || existing.AuthorID != c.AuthorID || existing.Subject() != c.Subject() {
			continue
		}
		existing.Body = c.Body
		existing.Status = c.Status
		existing.Username = c.Username
		existing.AvatarURL = c.AvatarURL
		existing.Edited = true
		existing.UpdatedAt = now
		s.comments[id] = existing
		return s.view(existing), nil
	}

	c.ID = uuid.NewString()
	c.ParentID = ""
	c.Edited = false
	c.LikedBy = nil
	c.CreatedAt = now
	c.UpdatedAt = now
	s.comments[c.ID] = c
	return s.view(c), nil
}

func (s *InMemoryCommentStore) CreateReply(_ context.Context, c Comment) (Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	parent, ok := s.comments[c.ParentID]
	if !ok || parent.ParentID != "" || parent.Subject() != c.Subject() {
		return Comment{}, ErrParentNotFound
	}
	now := s.now()
	c.ID = uuid.NewString()
	c.Edited = false
	c.LikedBy = nil
	c.CreatedAt = now
	c.UpdatedAt = now
	s.comments[c.ID] = c
	return s.view(c), nil
}

func (s *InMemoryCommentStore) Get(_ context.Context, subject Subject, id string) (Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.comments[id]
	if !ok || c.Subject() != subject {
		return Comment{}, ErrNotFound
	}
	return s.view(c), nil
}

func (s *InMemoryCommentStore) List(_ context.Context, subject Subject, viewerID string) ([]Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Comment{}
	for _, c := range s.comments {
		if c.ParentID == "" && c.Subject() == subject && c.VisibleTo(viewerID) {
			out = append(out, s.view(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *InMemoryCommentStore) ByAuthor(_ context.Context, subject Subject, authorID string) (Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.comments {
		if c.ParentID == "" && c.AuthorID == authorID && c.Subject() == subject {
			return s.view(c), nil
		}
	}
	return Comment{}, ErrNotFound
}

func (s *InMemoryCommentStore) Replies(_ context.Context, subject Subject, parentID, viewerID string) ([]Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	parent, ok := s.comments[parentID]
	if !ok || parent.ParentID != "" || parent.Subject() != subject {
		return nil, ErrParentNotFound
	}
	out := []Comment{}
	for _, c := range s.comments {
		if c.ParentID == parentID && c.VisibleTo(viewerID) {
			out = append(out, s.view(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *InMemoryCommentStore) SetLike(_ context.Context, subject Subject, id, userID string, liked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[id]
	if !ok || c.Subject() != subject {
		return ErrNotFound
	}
	i := slices.Index(c.LikedBy, userID)
	switch {
	case liked && i < 0:
		c.LikedBy = append(slices.Clone(c.LikedBy), userID)
	case !liked && i >= 0:
		c.LikedBy = slices.Delete(slices.Clone(c.LikedBy), i, i+1)
	}
	s.comments[id] = c
	return nil
}

func (s *InMemoryCommentStore) Delete(_ context.Context, subject Subject, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[id]
	if !ok || c.Subject() != subject {
		return ErrNotFound
	}
	delete(s.comments, id)
	if c.ParentID == "" {
		for rid, r := range s.comments {
			if r.ParentID == id {
				delete(s.comments, rid)
			}
		}
	}
	return nil
}

// view copies c and fills derived fields. Callers hold the lock.
func (s *InMemoryCommentStore) view(c Comment) Comment {
	c.LikedBy = append([]string{}, c.LikedBy...)
	if c.ParentID == "" {
		n := 0
		for _, r := range s.comments {
			if r.ParentID == c.ID {
				n++
			}
		}
		c.ReplyCount = n
	}
	return c
}

package threads

import (
	"sort"
	"sync"
)

// Store is the cache of comment lists, one ordered list per Subject. It is the
// single shared mutable resource of the engine: every write replaces the
// whole list of a subject, and readers always receive deep copies, so a list
// handed out can never alias what the store holds.
type Store struct {
	mu    sync.Mutex
	lists map[string]entry
}

type entry struct {
	subject  Subject
	comments []Comment
}

func NewStore() *Store {
	return &Store{lists: make(map[string]entry)}
}

// Get returns a copy of the cached list for subject.
func (s *Store) Get(subject Subject) ([]Comment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.lists[subject.Key()]
	if !ok {
		return nil, false
	}
	return cloneComments(e.comments), true
}

// Set replaces the list for subject.
func (s *Store) Set(subject Subject, comments []Comment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set(subject, cloneComments(comments))
}

func (s *Store) set(subject Subject, comments []Comment) {
	if comments == nil {
		comments = []Comment{}
	}
	s.lists[subject.Key()] = entry{subject: subject, comments: comments}
}

// Update applies patch to the current list of subject as one atomic step.
// patch receives a private copy and may modify it in place; a missing subject
// is passed as an empty list. Nothing is written when patch reports false.
// Rollbacks are patches too: they undo their own change against whatever the
// list holds by then, never a list captured earlier.
func (s *Store) Update(subject Subject, patch func([]Comment) ([]Comment, bool)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.lists[subject.Key()]
	next, commit := patch(cloneComments(e.comments))
	if commit {
		s.set(subject, next)
	}
	return commit
}

// Find returns a copy of the top-level comment with the given id.
func (s *Store) Find(subject Subject, commentID string) (Comment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.lists[subject.Key()]
	if i := indexComment(e.comments, commentID); i >= 0 {
		return e.comments[i].clone(), true
	}
	return Comment{}, false
}

// Forget drops the cached list for subject.
func (s *Store) Forget(subject Subject) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lists, subject.Key())
}

// Subjects lists every cached subject ordered by key.
func (s *Store) Subjects() []Subject {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Subject, 0, len(s.lists))
	for _, e := range s.lists {
		out = append(out, e.subject)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

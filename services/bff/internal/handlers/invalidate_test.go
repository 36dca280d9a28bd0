package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/example/skin-platform/services/bff/internal/threads"
)

func event(t *testing.T, subject, actor string) []byte {
	t.Helper()
	b, err := json.Marshal(changeEvent{EventID: "e-1", Kind: "comment", Subject: subject, ActorID: actor})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func TestInvalidator_ReloadsOpenThreads(t *testing.T) {
	h := newHarness(t)
	tok := mintToken(t, "u-1", "alice")
	okBody(t, h.do(t, http.MethodGet, skinPath, tok, nil))
	okBody(t, h.do(t, http.MethodGet, skinPath, "", nil))

	h.social.seed("skin:ak-redline", seeded("c-7", "u-2"))

	iv := NewInvalidator(h.sessions, nil)
	if n := iv.Handle(event(t, "skin:ak-redline", "u-2")); n != 2 {
		t.Fatalf("expected 2 threads reloaded, got %d", n)
	}

	out := okBody(t, h.do(t, http.MethodGet, skinPath, tok, nil))
	if len(out.State.Comments) != 1 || out.State.Comments[0].ID != threads.ConfirmedID("c-7") {
		t.Fatalf("expected synced comment, got %+v", out.State.Comments)
	}
}

func TestInvalidator_SkipsActor(t *testing.T) {
	h := newHarness(t)
	tok := mintToken(t, "u-1", "alice")
	okBody(t, h.do(t, http.MethodGet, skinPath, tok, nil))

	iv := NewInvalidator(h.sessions, nil)
	if n := iv.Handle(event(t, "skin:ak-redline", "u-1")); n != 0 {
		t.Fatalf("actor's own session must be skipped, got %d", n)
	}
}

func TestInvalidator_IgnoresClosedAndMalformed(t *testing.T) {
	h := newHarness(t)
	iv := NewInvalidator(h.sessions, nil)

	if n := iv.Handle(event(t, "post:never-opened", "u-2")); n != 0 {
		t.Fatalf("no open thread, got %d", n)
	}
	if n := iv.Handle([]byte("{")); n != 0 {
		t.Fatalf("malformed event, got %d", n)
	}
	if n := iv.Handle(event(t, "video:1", "u-2")); n != 0 {
		t.Fatalf("unknown subject type, got %d", n)
	}
}

func TestInvalidator_SubscribeWithoutNATS(t *testing.T) {
	iv := NewInvalidator(NewSessions(SessionOptions{SocialURL: "http://social"}), nil)
	sub, err := iv.Subscribe(nil)
	if sub != nil || err != nil {
		t.Fatalf("expected no-op, got %v, %v", sub, err)
	}
}

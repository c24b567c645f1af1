package main

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjk/cynic/state"
)

func TestActionsLookup(t *testing.T) {
	a := newActions()

	known := map[state.View][]string{
		state.ViewLogin:      {"login", "login-as", "logout"},
		state.ViewRegister:   {"register", "logout"},
		state.ViewPosts:      {"react", "comment", "delete", "logout"},
		state.ViewCreatePost: {"create-post", "logout"},
		state.ViewProfile:    {"status", "logout"},
	}
	for view, names := range known {
		for _, name := range names {
			_, ok := a.Lookup(view, name)
			assert.True(t, ok, "%s/%s", view, name)
		}
	}

	_, ok := a.Lookup(state.ViewPosts, "login")
	assert.False(t, ok)
	_, ok = a.Lookup(state.ViewProfile, "")
	assert.False(t, ok)
	_, ok = a.Lookup(state.ViewPosts, " logout ")
	assert.True(t, ok)
}

func TestActionsRegisterTwicePanics(t *testing.T) {
	a := newActions()
	assert.Panics(t, func() {
		a.Register(state.ViewLogin, "login", func(*Synchronizer, *event) Step { return Step{} })
	})
}

func TestReactActionRejectsUnknownReaction(t *testing.T) {
	b, s := newTestSynchronizer(t)
	u := b.AddUser("u", "u@example.com")
	p := b.AddPost(u.ID, "t", "c")
	st := loggedInState(u)

	fn, ok := newActions().Lookup(state.ViewPosts, "react")
	require.True(t, ok)
	ev := &event{
		ctx:  context.Background(),
		st:   st,
		sess: loggedInSession(u.ID),
		form: url.Values{"post_id": {p.ID}, "reaction": {"yawn"}},
	}
	assert.Equal(t, Step{}, fn(s, ev))
	assert.Equal(t, msgReactFailed, noticeOf(t, st))
	assert.Equal(t, 0, b.Hits("POST /posts/{id}/react"))
}

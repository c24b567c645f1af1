// This code is in Public Domain. Take all the code you want, I'll just write more.
package main

import (
	"context"
	"net/url"
	"strings"

	"github.com/kjk/cynic/api"
	"github.com/kjk/cynic/state"
)

// event is a submitted form
type event struct {
	ctx  context.Context
	st   *state.State
	sess sessionSlot
	form url.Values
}

func (ev *event) value(name string) string {
	return ev.form.Get(name)
}

type actionFunc func(s *Synchronizer, ev *event) Step

type actionKey struct {
	view state.View
	name string
}

// anyView registers an action available from every view
const anyView state.View = ""

// Actions maps a view and an action name to its handler
type Actions struct {
	m map[actionKey]actionFunc
}

// Register adds an action. Registering the same action twice is a bug.
func (a *Actions) Register(view state.View, name string, fn actionFunc) {
	k := actionKey{view, name}
	_, exists := a.m[k]
	panicif(exists, "action %q already registered for view %q", name, view)
	a.m[k] = fn
}

// Lookup finds the handler of an action submitted from view
func (a *Actions) Lookup(view state.View, name string) (actionFunc, bool) {
	name = strings.TrimSpace(name)
	if fn, ok := a.m[actionKey{view, name}]; ok {
		return fn, true
	}
	fn, ok := a.m[actionKey{anyView, name}]
	return fn, ok
}

func newActions() *Actions {
	a := &Actions{m: map[actionKey]actionFunc{}}

	a.Register(state.ViewLogin, "login", func(s *Synchronizer, ev *event) Step {
		return s.LoginByID(ev.ctx, ev.st, ev.sess, ev.value("user_id"))
	})
	a.Register(state.ViewLogin, "login-as", func(s *Synchronizer, ev *event) Step {
		return s.LoginAs(ev.ctx, ev.st, ev.sess, ev.value("user_id"))
	})
	a.Register(state.ViewRegister, "register", func(s *Synchronizer, ev *event) Step {
		nu := api.NewUser{
			Username: ev.value("username"),
			Email:    ev.value("email"),
			Password: ev.value("password"),
		}
		return s.Register(ev.ctx, ev.st, ev.sess, nu)
	})
	a.Register(state.ViewPosts, "react", func(s *Synchronizer, ev *event) Step {
		rt, err := api.ParseReactionType(ev.value("reaction"))
		if err != nil {
			ev.st.Error(msgReactFailed)
			return Step{}
		}
		return s.React(ev.ctx, ev.st, ev.value("post_id"), rt)
	})
	a.Register(state.ViewPosts, "comment", func(s *Synchronizer, ev *event) Step {
		nc := api.NewComment{Content: ev.value("content")}
		return s.Comment(ev.ctx, ev.st, ev.value("post_id"), nc)
	})
	a.Register(state.ViewPosts, "delete", func(s *Synchronizer, ev *event) Step {
		return s.DeletePost(ev.ctx, ev.st, ev.value("post_id"))
	})
	a.Register(state.ViewCreatePost, "create-post", func(s *Synchronizer, ev *event) Step {
		np := api.NewPost{
			Title:   ev.value("title"),
			Content: ev.value("content"),
		}
		return s.CreatePost(ev.ctx, ev.st, np)
	})
	a.Register(state.ViewProfile, "status", func(s *Synchronizer, ev *event) Step {
		return s.UpdateStatus(ev.ctx, ev.st, api.Status(strings.TrimSpace(ev.value("status"))))
	})
	a.Register(anyView, "logout", func(s *Synchronizer, ev *event) Step {
		return s.Logout(ev.ctx, ev.st, ev.sess)
	})
	return a
}

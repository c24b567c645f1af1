// This code is in Public Domain. Take all the code you want, I'll just write more.

// Package state holds what a browser client knows about the backend:
// the logged in user, mirrors of users and posts, the active view and
// the notice waiting to be shown.
package state

import (
	"github.com/kjk/cynic/api"
)

// View is one of the five screens
type View string

// all views
const (
	ViewLogin      View = "login"
	ViewRegister   View = "register"
	ViewPosts      View = "posts"
	ViewCreatePost View = "createPost"
	ViewProfile    View = "profile"
)

// Views lists all views
var Views = []View{ViewLogin, ViewRegister, ViewPosts, ViewCreatePost, ViewProfile}

// Valid returns true for a known view
func (v View) Valid() bool {
	for _, known := range Views {
		if v == known {
			return true
		}
	}
	return false
}

// NoticeKind tells how a notice is styled
type NoticeKind string

// notice kinds
const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
)

// Notice is a message shown once by the next render
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
}

// State is the per-client application state. It's not safe for
// concurrent use; a request owns it between Load and Save.
//
// NoUsers is set when the backend reported no users at all. A post
// without an entry in Comments had its comment fetch fail.
type State struct {
	Booted      bool                     `json:"booted"`
	View        View                     `json:"view"`
	CurrentUser *api.User                `json:"current_user,omitempty"`
	Users       []api.User               `json:"users"`
	NoUsers     bool                     `json:"no_users"`
	Posts       []api.Post               `json:"posts"`
	Comments    map[string][]api.Comment `json:"comments"`
	Notice      *Notice                  `json:"notice,omitempty"`
}

// New returns the state of a client that has not booted yet
func New() *State {
	return &State{
		View:     ViewLogin,
		Comments: map[string][]api.Comment{},
	}
}

// LoggedIn returns true if there's a current user
func (s *State) LoggedIn() bool {
	return s.CurrentUser != nil
}

// Notify replaces the pending notice
func (s *State) Notify(kind NoticeKind, msg string) {
	s.Notice = &Notice{Kind: kind, Message: msg}
}

// Success sets a success notice
func (s *State) Success(msg string) {
	s.Notify(NoticeSuccess, msg)
}

// Error sets an error notice
func (s *State) Error(msg string) {
	s.Notify(NoticeError, msg)
}

// PopNotice returns the pending notice and forgets it
func (s *State) PopNotice() *Notice {
	n := s.Notice
	s.Notice = nil
	return n
}

// FindUser returns the user with a given id or nil
func (s *State) FindUser(id string) *api.User {
	for i := range s.Users {
		if s.Users[i].ID == id {
			return &s.Users[i]
		}
	}
	return nil
}

// UpsertUser replaces the user with the same id or appends u
func (s *State) UpsertUser(u api.User) {
	if !s.ReplaceUser(u) {
		s.Users = append(s.Users, u)
	}
	s.NoUsers = false
}

// ReplaceUser replaces the user with the same id. Returns false if
// there's no such user.
func (s *State) ReplaceUser(u api.User) bool {
	for i := range s.Users {
		if s.Users[i].ID == u.ID {
			s.Users[i] = u
			return true
		}
	}
	return false
}

// FindPost returns the post with a given id or nil
func (s *State) FindPost(id string) *api.Post {
	for i := range s.Posts {
		if s.Posts[i].ID == id {
			return &s.Posts[i]
		}
	}
	return nil
}

// PrependPost puts a new post at the top
func (s *State) PrependPost(p api.Post) {
	s.Posts = append([]api.Post{p}, s.Posts...)
}

// ReplacePost replaces the post with the same id. Returns false if
// there's no such post.
func (s *State) ReplacePost(p api.Post) bool {
	for i := range s.Posts {
		if s.Posts[i].ID == p.ID {
			s.Posts[i] = p
			return true
		}
	}
	return false
}

// RemovePost drops the post with a given id and its comments
func (s *State) RemovePost(id string) {
	posts := s.Posts[:0]
	for _, p := range s.Posts {
		if p.ID != id {
			posts = append(posts, p)
		}
	}
	s.Posts = posts
	delete(s.Comments, id)
}

// SetComments remembers the comments of a post
func (s *State) SetComments(postID string, comments []api.Comment) {
	if s.Comments == nil {
		s.Comments = map[string][]api.Comment{}
	}
	if comments == nil {
		comments = []api.Comment{}
	}
	s.Comments[postID] = comments
}

// CommentsOf returns comments of a post. ok is false if they were
// never loaded.
func (s *State) CommentsOf(postID string) (comments []api.Comment, ok bool) {
	comments, ok = s.Comments[postID]
	return
}

// Clone returns a deep copy, sharing nothing mutable with s
func (s *State) Clone() *State {
	c := *s
	if s.CurrentUser != nil {
		u := cloneUser(*s.CurrentUser)
		c.CurrentUser = &u
	}
	if s.Users != nil {
		c.Users = make([]api.User, len(s.Users))
		for i, u := range s.Users {
			c.Users[i] = cloneUser(u)
		}
	}
	if s.Posts != nil {
		c.Posts = make([]api.Post, len(s.Posts))
		for i, p := range s.Posts {
			p.Reactions = append([]api.Reaction(nil), p.Reactions...)
			c.Posts[i] = p
		}
	}
	c.Comments = make(map[string][]api.Comment, len(s.Comments))
	for id, list := range s.Comments {
		c.Comments[id] = append([]api.Comment{}, list...)
	}
	if s.Notice != nil {
		n := *s.Notice
		c.Notice = &n
	}
	return &c
}

func cloneUser(u api.User) api.User {
	if u.Status != nil {
		st := *u.Status
		u.Status = &st
	}
	return u
}

// This code is in Public Domain. Take all the code you want, I'll just write more.
package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kjk/cynic/api"
	"github.com/kjk/cynic/state"
)

const (
	msgAPIUnreachable  = "Warning: can't connect to the API server"
	msgConnection      = "Connection error"
	msgSessionRestored = "Welcome back! Session restored."
	msgWelcomeBack     = "Welcome back!"
	msgEnterUserID     = "Enter user ID"
	msgUserNotFound    = "User not found"
	msgValidation      = "Validation error"
	msgServerError     = "Server error. Please try again later."
	msgLoadUserFailed  = "Failed to load user"
	msgLoginRequired   = "You need to log in"
	msgRegistered      = "Registration successful! Welcome to our cynical circle."
	msgRegisterFailed  = "Registration failed"
	msgPostCreated     = "Post created!"
	msgPostFailed      = "Failed to create post"
	msgReacted         = "Reaction added!"
	msgReactFailed     = "Failed to add reaction"
	msgCommented       = "Comment added!"
	msgCommentFailed   = "Failed to add comment"
	msgPostDeleted     = "Post deleted. Just like your hopes for a better future."
	msgDeleteFailed    = "Failed to delete post"
	msgLoggedOut       = "You have logged out. Session ended."
	msgProfileFailed   = "Failed to load profile"
	msgStatusUpdated   = "Status updated!"
	msgStatusFailed    = "Failed to update status"
)

// Step tells the handler what to do after an operation. A non-empty
// Navigate is a path the browser should go to.
type Step struct {
	Navigate string
}

func navigate(path string) Step {
	return Step{Navigate: path}
}

// sessionSlot is the logged in user's id as seen by the current request
type sessionSlot interface {
	Get() (string, bool)
	Set(id string) error
	Clear()
}

// Synchronizer keeps a client's state in line with the backend. Every
// operation works on the state it's given and reports failures as a
// notice in that state.
type Synchronizer struct {
	api    *api.Client
	logger *ServerLogger
}

// NewSynchronizer creates a synchronizer talking to c
func NewSynchronizer(c *api.Client, logger *ServerLogger) *Synchronizer {
	return &Synchronizer{api: c, logger: logger}
}

func isConnectivity(err error) bool {
	var cerr *api.ConnectivityError
	return errors.As(err, &cerr)
}

// failureMessage picks the notice for a failed mutation
func failureMessage(err error, fallback string) string {
	if isConnectivity(err) {
		return msgConnection
	}
	return api.Message(err, fallback)
}

// Boot runs once for a new client: checks the backend, loads users and
// restores the session. path is the path the client asked for, or ""
// when the restore should not redirect.
func (s *Synchronizer) Boot(ctx context.Context, st *state.State, sess sessionSlot, path string) Step {
	st.Booted = true
	if err := s.api.Ping(ctx); err != nil {
		s.logger.Errorf("Boot: api %s is unreachable: %s", s.api.BaseURL(), err)
		st.Error(msgAPIUnreachable)
	}
	s.LoadUsers(ctx, st)
	return s.RestoreSession(ctx, st, sess, path)
}

// LoadUsers replaces the users mirror
func (s *Synchronizer) LoadUsers(ctx context.Context, st *state.State) {
	users, err := s.api.ListUsers(ctx)
	if err != nil {
		s.logger.Errorf("LoadUsers: %s", err)
		st.Users = []api.User{}
		st.NoUsers = false
		if isConnectivity(err) {
			st.Error(msgConnection)
		}
		return
	}
	st.Users = users
	st.NoUsers = len(users) == 0
}

// RestoreSession makes the user from the session cookie the current user
func (s *Synchronizer) RestoreSession(ctx context.Context, st *state.State, sess sessionSlot, path string) Step {
	id, ok := sess.Get()
	if !ok {
		return Step{}
	}
	u, err := s.api.GetUser(ctx, id)
	switch {
	case err == nil:
		st.CurrentUser = u
		st.UpsertUser(*u)
		st.Success(msgSessionRestored)
		if path == "/" || path == "/login" {
			return navigate("/posts")
		}
	case errors.Is(err, api.ErrNotFound):
		s.logger.Noticef("RestoreSession: user %q no longer exists", id)
		sess.Clear()
	default:
		s.logger.Errorf("RestoreSession: %s", err)
		sess.Clear()
		st.Error(msgConnection)
	}
	return Step{}
}

// Enter activates a view and refreshes the data it shows
func (s *Synchronizer) Enter(ctx context.Context, st *state.State, sess sessionSlot, v state.View) Step {
	st.View = v
	switch v {
	case state.ViewPosts:
		s.RefreshPosts(ctx, st)
	case state.ViewProfile:
		return s.ValidateProfile(ctx, st, sess)
	}
	return Step{}
}

// RefreshPosts re-fetches all posts and then the comments of every post
func (s *Synchronizer) RefreshPosts(ctx context.Context, st *state.State) {
	posts, err := s.api.ListPosts(ctx)
	switch {
	case err == nil:
		st.Posts = posts
	case errors.Is(err, api.ErrNotFound):
		st.Posts = []api.Post{}
		st.Comments = map[string][]api.Comment{}
		return
	case isConnectivity(err):
		s.logger.Errorf("RefreshPosts: %s", err)
		st.Error(msgConnection)
		return
	default:
		s.logger.Errorf("RefreshPosts: %s", err)
		return
	}
	s.loadAllComments(ctx, st)
}

type commentsResult struct {
	comments []api.Comment
	err      error
}

// maxCommentFetches limits concurrent comment requests of one refresh
const maxCommentFetches = 4

// loadAllComments fetches comments of all posts, at most
// maxCommentFetches at a time, and applies the results to st in post
// order once they're all in
func (s *Synchronizer) loadAllComments(ctx context.Context, st *state.State) {
	results := make([]commentsResult, len(st.Posts))
	var g errgroup.Group
	g.SetLimit(maxCommentFetches)
	for i := range st.Posts {
		i := i
		postID := st.Posts[i].ID
		g.Go(func() error {
			comments, err := s.api.ListComments(ctx, postID)
			results[i] = commentsResult{comments, err}
			// a failed post doesn't stop the others
			return nil
		})
	}
	g.Wait()

	st.Comments = make(map[string][]api.Comment, len(st.Posts))
	for i, p := range st.Posts {
		s.applyComments(st, p.ID, results[i].comments, results[i].err)
	}
}

func (s *Synchronizer) loadComments(ctx context.Context, st *state.State, postID string) {
	comments, err := s.api.ListComments(ctx, postID)
	s.applyComments(st, postID, comments, err)
}

// failed fetches leave the post without comments. Only connectivity
// failures are shown to the user.
func (s *Synchronizer) applyComments(st *state.State, postID string, comments []api.Comment, err error) {
	if err == nil {
		st.SetComments(postID, comments)
		return
	}
	delete(st.Comments, postID)
	s.logger.Errorf("loadComments: post %s: %s", postID, err)
	if isConnectivity(err) {
		st.Error(msgConnection)
	}
}

func (s *Synchronizer) logIn(st *state.State, sess sessionSlot, u *api.User) {
	st.CurrentUser = u
	if err := sess.Set(u.ID); err != nil {
		s.logger.Errorf("logIn: failed to set session for %s: %s", u.ID, err)
	}
	st.UpsertUser(*u)
}

// LoginByID logs in the user with a given id, as typed in the login form
func (s *Synchronizer) LoginByID(ctx context.Context, st *state.State, sess sessionSlot, id string) Step {
	id = strings.TrimSpace(id)
	if id == "" {
		st.Error(msgEnterUserID)
		return Step{}
	}
	return s.login(ctx, st, sess, id, msgWelcomeBack, msgServerError)
}

// LoginAs logs in a user picked from the users list
func (s *Synchronizer) LoginAs(ctx context.Context, st *state.State, sess sessionSlot, id string) Step {
	id = strings.TrimSpace(id)
	if id == "" {
		st.Error(msgEnterUserID)
		return Step{}
	}
	return s.login(ctx, st, sess, id, "", msgLoadUserFailed)
}

// an empty welcome greets the user by name
func (s *Synchronizer) login(ctx context.Context, st *state.State, sess sessionSlot, id, welcome, serverError string) Step {
	u, err := s.api.GetUser(ctx, id)
	var verr *api.ValidationError
	switch {
	case err == nil:
		s.logIn(st, sess, u)
		if welcome == "" {
			welcome = fmt.Sprintf("Welcome, %s!", u.Username)
		}
		st.Success(welcome)
		return navigate("/posts")
	case errors.Is(err, api.ErrNotFound):
		st.Error(msgUserNotFound)
	case errors.As(err, &verr):
		st.Error(api.Message(err, msgValidation))
	case isConnectivity(err):
		s.logger.Errorf("login: %s", err)
		st.Error(msgConnection)
	default:
		s.logger.Errorf("login: %s", err)
		st.Error(serverError)
	}
	return Step{}
}

// Register creates a user and logs them in
func (s *Synchronizer) Register(ctx context.Context, st *state.State, sess sessionSlot, nu api.NewUser) Step {
	if errs := validateUser(nu); len(errs) > 0 {
		st.Error(strings.Join(errs, ". "))
		return Step{}
	}
	u, err := s.api.CreateUser(ctx, nu)
	if err != nil {
		s.logger.Errorf("Register: %s", err)
		st.Error(failureMessage(err, msgRegisterFailed))
		return Step{}
	}
	s.logIn(st, sess, u)
	st.Success(msgRegistered)
	return navigate("/posts")
}

func requireUser(st *state.State) bool {
	if st.CurrentUser == nil {
		st.Error(msgLoginRequired)
		return false
	}
	return true
}

// CreatePost creates a post by the current user
func (s *Synchronizer) CreatePost(ctx context.Context, st *state.State, np api.NewPost) Step {
	if !requireUser(st) {
		return Step{}
	}
	if errs := validatePost(np); len(errs) > 0 {
		st.Error(strings.Join(errs, ". "))
		return Step{}
	}
	p, err := s.api.CreatePost(ctx, st.CurrentUser.ID, np)
	if err != nil {
		s.logger.Errorf("CreatePost: %s", err)
		st.Error(failureMessage(err, msgPostFailed))
		return Step{}
	}
	st.PrependPost(*p)
	st.Success(msgPostCreated)
	return navigate("/posts")
}

// React adds a reaction by the current user. The post in the mirror is
// replaced with the one the backend returns.
func (s *Synchronizer) React(ctx context.Context, st *state.State, postID string, rt api.ReactionType) Step {
	if !requireUser(st) {
		return Step{}
	}
	p, err := s.api.React(ctx, postID, st.CurrentUser.ID, rt)
	if err != nil {
		s.logger.Errorf("React: %s", err)
		st.Error(failureMessage(err, msgReactFailed))
		return Step{}
	}
	st.ReplacePost(*p)
	st.Success(msgReacted)
	return Step{}
}

// Comment adds a comment by the current user and reloads that post's
// comments
func (s *Synchronizer) Comment(ctx context.Context, st *state.State, postID string, nc api.NewComment) Step {
	if !requireUser(st) {
		return Step{}
	}
	if errs := validateComment(nc); len(errs) > 0 {
		st.Error(strings.Join(errs, ". "))
		return Step{}
	}
	nc.Content = strings.TrimSpace(nc.Content)
	if _, err := s.api.AddComment(ctx, postID, st.CurrentUser.ID, nc); err != nil {
		s.logger.Errorf("Comment: %s", err)
		st.Error(failureMessage(err, msgCommentFailed))
		return Step{}
	}
	st.Success(msgCommented)
	s.loadComments(ctx, st, postID)
	return Step{}
}

// DeletePost deletes a post and drops it from the mirror without
// reloading the list
func (s *Synchronizer) DeletePost(ctx context.Context, st *state.State, postID string) Step {
	if !requireUser(st) {
		return Step{}
	}
	if err := s.api.DeletePost(ctx, postID); err != nil {
		s.logger.Errorf("DeletePost: %s", err)
		st.Error(failureMessage(err, msgDeleteFailed))
		return Step{}
	}
	st.RemovePost(postID)
	st.Success(msgPostDeleted)
	return Step{}
}

// UpdateStatus sets the current user's status. An empty status clears it.
func (s *Synchronizer) UpdateStatus(ctx context.Context, st *state.State, status api.Status) Step {
	if !requireUser(st) {
		return Step{}
	}
	u, err := s.api.UpdateStatus(ctx, st.CurrentUser.ID, status)
	var verr *api.ValidationError
	switch {
	case err == nil:
		st.CurrentUser = u
		st.ReplaceUser(*u)
		st.Success(msgStatusUpdated)
	case errors.Is(err, api.ErrNotFound):
		st.Error(msgUserNotFound)
	case errors.As(err, &verr):
		st.Error(api.Message(err, msgValidation))
	case isConnectivity(err):
		s.logger.Errorf("UpdateStatus: %s", err)
		st.Error(msgConnection)
	default:
		s.logger.Errorf("UpdateStatus: %s", err)
		st.Error(msgStatusFailed)
	}
	return Step{}
}

// Logout forgets the current user
func (s *Synchronizer) Logout(ctx context.Context, st *state.State, sess sessionSlot) Step {
	sess.Clear()
	st.CurrentUser = nil
	st.Success(msgLoggedOut)
	return navigate("/login")
}

// ValidateProfile makes sure the current user matches the session
// before the profile is shown
func (s *Synchronizer) ValidateProfile(ctx context.Context, st *state.State, sess sessionSlot) Step {
	id, ok := sess.Get()
	if !ok {
		st.Error(msgLoginRequired)
		return navigate("/login")
	}
	if st.CurrentUser != nil && st.CurrentUser.ID == id {
		return Step{}
	}
	u, err := s.api.GetUser(ctx, id)
	switch {
	case err == nil:
		st.CurrentUser = u
	case errors.Is(err, api.ErrNotFound):
		st.Error(msgUserNotFound)
		st.CurrentUser = nil
		sess.Clear()
		return navigate("/login")
	case isConnectivity(err):
		s.logger.Errorf("ValidateProfile: %s", err)
		st.Error(msgConnection)
		// don't show someone else's profile
		st.CurrentUser = nil
	default:
		s.logger.Errorf("ValidateProfile: %s", err)
		st.Error(msgProfileFailed)
		st.CurrentUser = nil
	}
	return Step{}
}

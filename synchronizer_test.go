package main

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjk/cynic/api"
	"github.com/kjk/cynic/api/apitest"
	"github.com/kjk/cynic/state"
)

const missingUserID = "4b9e51c8-6f5f-4f0e-9d4a-5d0d6a7c3a11"

type fakeSession struct {
	id     string
	ok     bool
	clears int
}

func (f *fakeSession) Get() (string, bool) {
	return f.id, f.ok
}

func (f *fakeSession) Set(id string) error {
	f.id, f.ok = id, true
	return nil
}

func (f *fakeSession) Clear() {
	f.id, f.ok = "", false
	f.clears++
}

func loggedInSession(id string) *fakeSession {
	return &fakeSession{id: id, ok: true}
}

func newTestSynchronizer(t *testing.T) (*apitest.Backend, *Synchronizer) {
	t.Helper()
	b := apitest.NewBackend()
	t.Cleanup(b.Close)
	return b, NewSynchronizer(api.New(b.URL), NewServerLogger(16, 16, nil))
}

func noticeOf(t *testing.T, st *state.State) string {
	t.Helper()
	n := st.PopNotice()
	if n == nil {
		return ""
	}
	return n.Message
}

func TestBootWithoutSession(t *testing.T) {
	b, s := newTestSynchronizer(t)
	ctx := context.Background()
	st := state.New()

	step := s.Boot(ctx, st, &fakeSession{}, "/")
	assert.Equal(t, Step{}, step)
	assert.True(t, st.Booted)
	assert.True(t, st.NoUsers)
	assert.Empty(t, st.Users)
	assert.Nil(t, st.CurrentUser)
	assert.Equal(t, 1, b.Hits("GET /"))
	assert.Equal(t, 0, b.Hits("GET /users/{id}"))
	assert.Equal(t, "", noticeOf(t, st))
}

func TestBootRestoresSession(t *testing.T) {
	for _, path := range []string{"/", "/login"} {
		t.Run(path, func(t *testing.T) {
			b, s := newTestSynchronizer(t)
			u := b.AddUser("diogenes", "barrel@example.com")
			st := state.New()

			step := s.Boot(context.Background(), st, loggedInSession(u.ID), path)
			assert.Equal(t, "/posts", step.Navigate)
			require.NotNil(t, st.CurrentUser)
			assert.Equal(t, u.ID, st.CurrentUser.ID)
			assert.Len(t, st.Users, 1)
			assert.Equal(t, msgSessionRestored, noticeOf(t, st))
		})
	}
}

func TestBootRestoreStaysOnOtherPaths(t *testing.T) {
	b, s := newTestSynchronizer(t)
	u := b.AddUser("diogenes", "barrel@example.com")
	st := state.New()

	step := s.Boot(context.Background(), st, loggedInSession(u.ID), "/profile")
	assert.Equal(t, Step{}, step)
	assert.NotNil(t, st.CurrentUser)

	// POSTs boot with no path
	st = state.New()
	step = s.Boot(context.Background(), st, loggedInSession(u.ID), "")
	assert.Equal(t, Step{}, step)
}

func TestRestoreUnknownUserClearsSilently(t *testing.T) {
	_, s := newTestSynchronizer(t)
	st := state.New()
	sess := loggedInSession(missingUserID)

	step := s.RestoreSession(context.Background(), st, sess, "/")
	assert.Equal(t, Step{}, step)
	assert.Equal(t, 1, sess.clears)
	assert.Nil(t, st.CurrentUser)
	assert.Equal(t, state.ViewLogin, st.View)
	assert.Nil(t, st.Notice)
}

func TestRestoreFailureClearsWithNotice(t *testing.T) {
	b, s := newTestSynchronizer(t)
	u := b.AddUser("diogenes", "barrel@example.com")
	b.Fail("GET /users/{id}", http.StatusInternalServerError, `{"detail":"db is down"}`)
	st := state.New()
	sess := loggedInSession(u.ID)

	s.RestoreSession(context.Background(), st, sess, "/")
	assert.Equal(t, 1, sess.clears)
	assert.Nil(t, st.CurrentUser)
	assert.Equal(t, msgConnection, noticeOf(t, st))
}

func TestBootBackendDown(t *testing.T) {
	b, s := newTestSynchronizer(t)
	b.Close()
	st := state.New()
	s.Boot(context.Background(), st, &fakeSession{}, "/")
	assert.True(t, st.Booted)
	assert.False(t, st.NoUsers)
	// the users failure is the last notice
	assert.Equal(t, msgConnection, noticeOf(t, st))
}

func TestLoadUsersServerError(t *testing.T) {
	b, s := newTestSynchronizer(t)
	b.AddUser("a", "a@example.com")
	b.Fail("GET /users/", http.StatusInternalServerError, "")
	st := state.New()
	st.NoUsers = true
	s.LoadUsers(context.Background(), st)
	assert.Empty(t, st.Users)
	assert.False(t, st.NoUsers)
	assert.Nil(t, st.Notice)
}

func TestLoginByID(t *testing.T) {
	b, s := newTestSynchronizer(t)
	ctx := context.Background()
	u := b.AddUser("diogenes", "barrel@example.com")

	tests := []struct {
		name     string
		id       string
		fail     int
		body     string
		navigate string
		notice   string
	}{
		{"empty", "  ", 0, "", "", msgEnterUserID},
		{"ok", u.ID, 0, "", "/posts", msgWelcomeBack},
		{"not found", missingUserID, 0, "", "", msgUserNotFound},
		{"not a uuid", "nope", 0, "", "", "Input should be a valid UUID"},
		{"validation without message", u.ID, 422, `{"detail":[]}`, "", msgValidation},
		{"server error", u.ID, 500, `{"detail":"boom"}`, "", msgServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.fail != 0 {
				b.Fail("GET /users/{id}", tt.fail, tt.body)
				defer b.Recover("GET /users/{id}")
			}
			st := state.New()
			sess := &fakeSession{}
			step := s.LoginByID(ctx, st, sess, tt.id)
			assert.Equal(t, tt.navigate, step.Navigate)
			assert.Contains(t, noticeOf(t, st), tt.notice)
			if tt.navigate != "" {
				assert.Equal(t, u.ID, sess.id)
				require.NotNil(t, st.CurrentUser)
				assert.Equal(t, u.ID, st.FindUser(u.ID).ID)
			} else {
				assert.False(t, sess.ok)
				assert.Nil(t, st.CurrentUser)
			}
		})
	}
}

func TestLoginAsGreetsByName(t *testing.T) {
	b, s := newTestSynchronizer(t)
	u := b.AddUser("diogenes", "barrel@example.com")
	st := state.New()
	st.UpsertUser(u)

	step := s.LoginAs(context.Background(), st, &fakeSession{}, u.ID)
	assert.Equal(t, "/posts", step.Navigate)
	assert.Equal(t, "Welcome, diogenes!", noticeOf(t, st))
	assert.Len(t, st.Users, 1)

	b.Fail("GET /users/{id}", 503, "")
	s.LoginAs(context.Background(), st, &fakeSession{}, u.ID)
	assert.Equal(t, msgLoadUserFailed, noticeOf(t, st))
}

func TestRegister(t *testing.T) {
	_, s := newTestSynchronizer(t)
	ctx := context.Background()
	st := state.New()
	st.NoUsers = true
	sess := &fakeSession{}

	step := s.Register(ctx, st, sess, api.NewUser{Username: "ab", Email: "nope", Password: "123"})
	assert.Equal(t, Step{}, step)
	notice := noticeOf(t, st)
	assert.Contains(t, notice, "Username")
	assert.Contains(t, notice, "email")
	assert.Contains(t, notice, "Password")

	nu := api.NewUser{Username: "cynic", Email: "c@example.com", Password: "secret1"}
	step = s.Register(ctx, st, sess, nu)
	assert.Equal(t, "/posts", step.Navigate)
	assert.Equal(t, msgRegistered, noticeOf(t, st))
	require.NotNil(t, st.CurrentUser)
	assert.Equal(t, st.CurrentUser.ID, sess.id)
	assert.False(t, st.NoUsers)
	assert.Len(t, st.Users, 1)

	step = s.Register(ctx, state.New(), &fakeSession{}, nu)
	assert.Equal(t, Step{}, step)
}

func TestRegisterServerMessage(t *testing.T) {
	_, s := newTestSynchronizer(t)
	ctx := context.Background()
	nu := api.NewUser{Username: "cynic", Email: "c@example.com", Password: "secret1"}
	s.Register(ctx, state.New(), &fakeSession{}, nu)

	st := state.New()
	s.Register(ctx, st, &fakeSession{}, nu)
	assert.Equal(t, "Email already registered", noticeOf(t, st))
}

func loggedInState(u api.User) *state.State {
	st := state.New()
	st.Booted = true
	st.CurrentUser = &u
	st.UpsertUser(u)
	return st
}

func TestMutationsRequireLogin(t *testing.T) {
	b, s := newTestSynchronizer(t)
	ctx := context.Background()
	st := state.New()

	ops := map[string]func() Step{
		"create post": func() Step { return s.CreatePost(ctx, st, api.NewPost{Title: "t", Content: "c"}) },
		"react":       func() Step { return s.React(ctx, st, missingUserID, api.ReactionSeen) },
		"comment":     func() Step { return s.Comment(ctx, st, missingUserID, api.NewComment{Content: "c"}) },
		"delete":      func() Step { return s.DeletePost(ctx, st, missingUserID) },
		"status":      func() Step { return s.UpdateStatus(ctx, st, api.StatusOnTheVerge) },
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, Step{}, op())
			assert.Equal(t, msgLoginRequired, noticeOf(t, st))
		})
	}
	assert.Equal(t, 0, b.Hits("POST /posts/"))
	assert.Equal(t, 0, b.Hits("DELETE /posts/{id}"))
}

func TestCreatePost(t *testing.T) {
	b, s := newTestSynchronizer(t)
	ctx := context.Background()
	u := b.AddUser("u", "u@example.com")
	old := b.AddPost(u.ID, "old", "old")
	st := loggedInState(u)
	st.Posts = []api.Post{old}

	step := s.CreatePost(ctx, st, api.NewPost{Title: " ", Content: "c"})
	assert.Equal(t, Step{}, step)
	assert.Contains(t, noticeOf(t, st), "Title")

	step = s.CreatePost(ctx, st, api.NewPost{Title: "Monday", Content: "again"})
	assert.Equal(t, "/posts", step.Navigate)
	assert.Equal(t, msgPostCreated, noticeOf(t, st))
	require.Len(t, st.Posts, 2)
	assert.Equal(t, "Monday", st.Posts[0].Title)

	b.Fail("POST /posts/", 400, `{"detail":"Too cynical"}`)
	s.CreatePost(ctx, st, api.NewPost{Title: "t", Content: "c"})
	assert.Equal(t, "Too cynical", noticeOf(t, st))
	assert.Len(t, st.Posts, 2)
}

func TestReactUsesServerPost(t *testing.T) {
	b, s := newTestSynchronizer(t)
	ctx := context.Background()
	u := b.AddUser("u", "u@example.com")
	other := b.AddUser("o", "o@example.com")
	p := b.AddPost(u.ID, "t", "c")
	_, err := api.New(b.URL).React(ctx, p.ID, other.ID, api.ReactionSigh)
	require.NoError(t, err)

	// the mirror doesn't know about other's reaction
	st := loggedInState(u)
	st.Posts = []api.Post{p}

	step := s.React(ctx, st, p.ID, api.ReactionCringe)
	assert.Equal(t, Step{}, step)
	assert.Equal(t, msgReacted, noticeOf(t, st))
	require.Len(t, st.Posts[0].Reactions, 2)
	counts := countReactions(st.Posts[0].Reactions)
	assert.Equal(t, 1, counts[0].Count)
	assert.Equal(t, 1, counts[2].Count)

	s.React(ctx, st, missingUserID, api.ReactionSeen)
	assert.Equal(t, msgReactFailed, noticeOf(t, st))
}

func TestCommentReloadsOnlyThatPost(t *testing.T) {
	b, s := newTestSynchronizer(t)
	ctx := context.Background()
	u := b.AddUser("u", "u@example.com")
	p1 := b.AddPost(u.ID, "one", "c")
	p2 := b.AddPost(u.ID, "two", "c")
	st := loggedInState(u)
	st.Posts = []api.Post{p2, p1}

	s.Comment(ctx, st, p1.ID, api.NewComment{Content: "  "})
	assert.Contains(t, noticeOf(t, st), "Comment")
	assert.Equal(t, 0, b.Hits("POST /posts/{id}/comments/"))

	s.Comment(ctx, st, p1.ID, api.NewComment{Content: " same "})
	assert.Equal(t, msgCommented, noticeOf(t, st))
	assert.Equal(t, 1, b.Hits("GET /posts/{id}/comments/"))
	comments, ok := st.CommentsOf(p1.ID)
	require.True(t, ok)
	require.Len(t, comments, 1)
	assert.Equal(t, "same", comments[0].Content)
	_, ok = st.CommentsOf(p2.ID)
	assert.False(t, ok)
}

func TestDeletePostIsLocal(t *testing.T) {
	b, s := newTestSynchronizer(t)
	ctx := context.Background()
	u := b.AddUser("u", "u@example.com")
	p1 := b.AddPost(u.ID, "one", "c")
	p2 := b.AddPost(u.ID, "two", "c")
	st := loggedInState(u)
	st.Posts = []api.Post{p2, p1}
	b.ResetHits()

	step := s.DeletePost(ctx, st, p1.ID)
	assert.Equal(t, Step{}, step)
	assert.Equal(t, msgPostDeleted, noticeOf(t, st))
	require.Len(t, st.Posts, 1)
	assert.Equal(t, p2.ID, st.Posts[0].ID)
	assert.Equal(t, 0, b.Hits("GET /posts/"))

	s.DeletePost(ctx, st, p1.ID)
	assert.Equal(t, msgDeleteFailed, noticeOf(t, st))
}

func TestUpdateStatus(t *testing.T) {
	b, s := newTestSynchronizer(t)
	ctx := context.Background()
	u := b.AddUser("u", "u@example.com")
	st := loggedInState(u)

	s.UpdateStatus(ctx, st, api.StatusRunningOnCaffeine)
	assert.Equal(t, msgStatusUpdated, noticeOf(t, st))
	assert.Equal(t, api.StatusRunningOnCaffeine, st.CurrentUser.StatusValue())
	assert.Equal(t, api.StatusRunningOnCaffeine, st.FindUser(u.ID).StatusValue())

	s.UpdateStatus(ctx, st, "")
	assert.Equal(t, api.Status(""), st.CurrentUser.StatusValue())

	s.UpdateStatus(ctx, st, "dancing")
	assert.Contains(t, noticeOf(t, st), "Input should be")

	b.Fail("PUT /users/{id}/status", 404, `{"detail":"User not found"}`)
	s.UpdateStatus(ctx, st, api.StatusOnTheVerge)
	assert.Equal(t, msgUserNotFound, noticeOf(t, st))

	b.Fail("PUT /users/{id}/status", 500, "")
	s.UpdateStatus(ctx, st, api.StatusOnTheVerge)
	assert.Equal(t, msgStatusFailed, noticeOf(t, st))
}

func TestSynchronizerLogout(t *testing.T) {
	_, s := newTestSynchronizer(t)
	st := loggedInState(api.User{ID: "1", Username: "u"})
	sess := loggedInSession("1")

	step := s.Logout(context.Background(), st, sess)
	assert.Equal(t, "/login", step.Navigate)
	assert.Nil(t, st.CurrentUser)
	assert.False(t, sess.ok)
	assert.Equal(t, msgLoggedOut, noticeOf(t, st))
	// users list is kept
	assert.Len(t, st.Users, 1)
}

func TestValidateProfile(t *testing.T) {
	b, s := newTestSynchronizer(t)
	ctx := context.Background()
	u := b.AddUser("u", "u@example.com")

	st := state.New()
	step := s.ValidateProfile(ctx, st, &fakeSession{})
	assert.Equal(t, "/login", step.Navigate)
	assert.Equal(t, msgLoginRequired, noticeOf(t, st))

	// up to date user, no fetch
	st = loggedInState(u)
	step = s.ValidateProfile(ctx, st, loggedInSession(u.ID))
	assert.Equal(t, Step{}, step)
	assert.Equal(t, 0, b.Hits("GET /users/{id}"))

	// session changed under us
	other := b.AddUser("o", "o@example.com")
	step = s.ValidateProfile(ctx, st, loggedInSession(other.ID))
	assert.Equal(t, Step{}, step)
	assert.Equal(t, other.ID, st.CurrentUser.ID)

	sess := loggedInSession(missingUserID)
	step = s.ValidateProfile(ctx, st, sess)
	assert.Equal(t, "/login", step.Navigate)
	assert.Equal(t, msgUserNotFound, noticeOf(t, st))
	assert.False(t, sess.ok)

	// a failed fetch doesn't leave another user's record in place
	st = loggedInState(other)
	b.Fail("GET /users/{id}", 500, "")
	step = s.ValidateProfile(ctx, st, loggedInSession(u.ID))
	assert.Equal(t, Step{}, step)
	assert.Equal(t, msgProfileFailed, noticeOf(t, st))
	assert.Nil(t, st.CurrentUser)

	st = loggedInState(other)
	b.Close()
	s.ValidateProfile(ctx, st, loggedInSession(u.ID))
	assert.Equal(t, msgConnection, noticeOf(t, st))
	assert.Nil(t, st.CurrentUser)
}

func TestRefreshPosts(t *testing.T) {
	b, s := newTestSynchronizer(t)
	ctx := context.Background()
	st := state.New()

	// no posts at all is a 404
	s.RefreshPosts(ctx, st)
	assert.NotNil(t, st.Posts)
	assert.Empty(t, st.Posts)
	assert.Nil(t, st.Notice)

	u := b.AddUser("u", "u@example.com")
	p1 := b.AddPost(u.ID, "one", "c")
	p2 := b.AddPost(u.ID, "two", "c")
	b.AddComment(p1.ID, u.ID, "first")
	b.ResetHits()

	s.RefreshPosts(ctx, st)
	assert.Equal(t, 1, b.Hits("GET /posts/"))
	assert.Equal(t, 2, b.Hits("GET /posts/{id}/comments/"))
	require.Len(t, st.Posts, 2)
	assert.Equal(t, p2.ID, st.Posts[0].ID)
	c1, ok := st.CommentsOf(p1.ID)
	assert.True(t, ok)
	assert.Len(t, c1, 1)
	c2, ok := st.CommentsOf(p2.ID)
	assert.True(t, ok)
	assert.Empty(t, c2)

	// comment failures with a status are silent
	b.Fail("GET /posts/{id}/comments/", 500, "")
	s.RefreshPosts(ctx, st)
	_, ok = st.CommentsOf(p1.ID)
	assert.False(t, ok)
	assert.Nil(t, st.Notice)

	// posts failure with a status keeps the list
	b.Fail("GET /posts/", 500, "")
	s.RefreshPosts(ctx, st)
	assert.Len(t, st.Posts, 2)
	assert.Nil(t, st.Notice)
}

func TestRefreshPostsBackendDown(t *testing.T) {
	b, s := newTestSynchronizer(t)
	u := b.AddUser("u", "u@example.com")
	st := state.New()
	st.Posts = []api.Post{b.AddPost(u.ID, "t", "c")}
	b.Close()

	s.RefreshPosts(context.Background(), st)
	assert.Len(t, st.Posts, 1)
	assert.Equal(t, msgConnection, noticeOf(t, st))
}

func TestEnter(t *testing.T) {
	b, s := newTestSynchronizer(t)
	ctx := context.Background()
	st := state.New()

	for _, v := range []state.View{state.ViewRegister, state.ViewCreatePost, state.ViewLogin} {
		step := s.Enter(ctx, st, &fakeSession{}, v)
		assert.Equal(t, Step{}, step)
		assert.Equal(t, v, st.View)
	}
	assert.Equal(t, 0, b.Hits("GET /posts/"))

	s.Enter(ctx, st, &fakeSession{}, state.ViewPosts)
	assert.Equal(t, state.ViewPosts, st.View)
	assert.Equal(t, 1, b.Hits("GET /posts/"))

	step := s.Enter(ctx, st, &fakeSession{}, state.ViewProfile)
	assert.Equal(t, "/login", step.Navigate)
}

func TestRefreshPostsLimitsCommentFetches(t *testing.T) {
	b, s := newTestSynchronizer(t)
	u := b.AddUser("u", "u@example.com")
	var ids []string
	for i := 0; i < 12; i++ {
		p := b.AddPost(u.ID, fmt.Sprintf("post %d", i), "c")
		b.AddComment(p.ID, u.ID, "comment on "+p.Title)
		ids = append([]string{p.ID}, ids...)
	}
	b.SetDelay(20 * time.Millisecond)
	st := state.New()

	s.RefreshPosts(context.Background(), st)
	assert.Equal(t, 12, b.Hits("GET /posts/{id}/comments/"))
	assert.LessOrEqual(t, b.MaxInFlight("GET /posts/{id}/comments/"), maxCommentFetches)
	require.Len(t, st.Posts, 12)
	for i, p := range st.Posts {
		assert.Equal(t, ids[i], p.ID)
		comments, ok := st.CommentsOf(p.ID)
		require.True(t, ok)
		require.Len(t, comments, 1)
		assert.Equal(t, "comment on "+p.Title, comments[0].Content)
	}
}

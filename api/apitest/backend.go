// This code is in Public Domain. Take all the code you want, I'll just write more.

// Package apitest runs an in-process imitation of the REST backend for tests.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/kjk/cynic/api"
)

// Backend is a fake backend with the same REST surface as the real one.
// The zero-value lists mean "no records", which the real backend
// reports as 404 for users and posts.
type Backend struct {
	*httptest.Server

	mu       sync.Mutex
	users    []api.User
	posts    []api.Post
	comments map[string][]api.Comment
	hits     map[string]int
	failures map[string]failure
	now      time.Time

	delay       time.Duration
	inFlight    map[string]int
	maxInFlight map[string]int
}

type failure struct {
	status int
	body   string
}

// NewBackend starts a fake backend. Call Close when done.
func NewBackend() *Backend {
	b := &Backend{
		comments:    make(map[string][]api.Comment),
		hits:        make(map[string]int),
		failures:    make(map[string]failure),
		inFlight:    make(map[string]int),
		maxInFlight: make(map[string]int),
		now:         time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	b.Server = httptest.NewServer(b.router())
	return b
}

func (b *Backend) router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", b.counted("GET /", b.handleRoot)).Methods("GET")
	r.HandleFunc("/users/", b.counted("GET /users/", b.handleListUsers)).Methods("GET")
	r.HandleFunc("/users/", b.counted("POST /users/", b.handleCreateUser)).Methods("POST")
	r.HandleFunc("/users/{id}", b.counted("GET /users/{id}", b.handleGetUser)).Methods("GET")
	r.HandleFunc("/users/{id}/status", b.counted("PUT /users/{id}/status", b.handleStatus)).Methods("PUT")
	r.HandleFunc("/posts/", b.counted("GET /posts/", b.handleListPosts)).Methods("GET")
	r.HandleFunc("/posts/", b.counted("POST /posts/", b.handleCreatePost)).Methods("POST")
	r.HandleFunc("/posts/{id}", b.counted("GET /posts/{id}", b.handleGetPost)).Methods("GET")
	r.HandleFunc("/posts/{id}", b.counted("DELETE /posts/{id}", b.handleDeletePost)).Methods("DELETE")
	r.HandleFunc("/posts/{id}/react", b.counted("POST /posts/{id}/react", b.handleReact)).Methods("POST")
	r.HandleFunc("/posts/{id}/comments/", b.counted("GET /posts/{id}/comments/", b.handleListComments)).Methods("GET")
	r.HandleFunc("/posts/{id}/comments/", b.counted("POST /posts/{id}/comments/", b.handleAddComment)).Methods("POST")
	return r
}

// counted records a hit for route and serves a forced failure if one is set
func (b *Backend) counted(route string, fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.hits[route]++
		f, failing := b.failures[route]
		delay := b.delay
		b.inFlight[route]++
		if b.inFlight[route] > b.maxInFlight[route] {
			b.maxInFlight[route] = b.inFlight[route]
		}
		b.mu.Unlock()
		defer func() {
			b.mu.Lock()
			b.inFlight[route]--
			b.mu.Unlock()
		}()
		if delay > 0 {
			time.Sleep(delay)
		}
		if failing {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.status)
			w.Write([]byte(f.body))
			return
		}
		fn(w, r)
	}
}

// Hits returns how many times route (e.g. "GET /posts/") was requested
func (b *Backend) Hits(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[route]
}

// ResetHits zeroes all counters
func (b *Backend) ResetHits() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hits = make(map[string]int)
	b.maxInFlight = make(map[string]int)
}

// MaxInFlight returns the most requests to route that were served at
// the same time
func (b *Backend) MaxInFlight(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.maxInFlight[route]
}

// SetDelay makes every request wait d before it's answered
func (b *Backend) SetDelay(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.delay = d
}

// Fail makes route answer with status and a raw JSON body until Recover is called
func (b *Backend) Fail(route string, status int, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[route] = failure{status: status, body: body}
}

// Recover removes a forced failure
func (b *Backend) Recover(route string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.failures, route)
}

func (b *Backend) tick() api.Time {
	b.now = b.now.Add(time.Minute)
	return api.Time{Time: b.now}
}

// AddUser inserts a user and returns it
func (b *Backend) AddUser(username, email string) api.User {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addUserLocked(username, email)
}

func (b *Backend) addUserLocked(username, email string) api.User {
	t := b.tick()
	u := api.User{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     email,
		IsActive:  true,
		CreatedAt: t,
		UpdatedAt: t,
	}
	b.users = append(b.users, u)
	return u
}

// AddPost inserts a post and returns it
func (b *Backend) AddPost(ownerID, title, content string) api.Post {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addPostLocked(ownerID, title, content)
}

func (b *Backend) addPostLocked(ownerID, title, content string) api.Post {
	t := b.tick()
	p := api.Post{
		ID:        uuid.NewString(),
		Title:     title,
		Content:   content,
		OwnerID:   ownerID,
		CreatedAt: t,
		UpdatedAt: t,
		Reactions: []api.Reaction{},
	}
	// newest first, like the backend's ORDER BY created_at DESC
	b.posts = append([]api.Post{p}, b.posts...)
	return p
}

// AddComment inserts a comment and returns it
func (b *Backend) AddComment(postID, ownerID, content string) api.Comment {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addCommentLocked(postID, ownerID, content)
}

func (b *Backend) addCommentLocked(postID, ownerID, content string) api.Comment {
	t := b.tick()
	c := api.Comment{
		ID:        uuid.NewString(),
		Content:   content,
		PostID:    postID,
		OwnerID:   ownerID,
		CreatedAt: t,
		UpdatedAt: t,
	}
	if u := b.findUser(ownerID); u != nil {
		c.OwnerUsername = u.Username
	}
	b.comments[postID] = append(b.comments[postID], c)
	return c
}

// DeletePostDirectly removes a post without going through HTTP,
// simulating another client
func (b *Backend) DeletePostDirectly(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removePost(id)
}

// Posts returns a copy of the stored posts
func (b *Backend) Posts() []api.Post {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]api.Post(nil), b.posts...)
}

func (b *Backend) findUser(id string) *api.User {
	for i := range b.users {
		if b.users[i].ID == id {
			return &b.users[i]
		}
	}
	return nil
}

func (b *Backend) findPost(id string) *api.Post {
	for i := range b.posts {
		if b.posts[i].ID == id {
			return &b.posts[i]
		}
	}
	return nil
}

func (b *Backend) removePost(id string) bool {
	for i := range b.posts {
		if b.posts[i].ID == id {
			b.posts = append(b.posts[:i], b.posts[i+1:]...)
			delete(b.comments, id)
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// writeFieldError imitates FastAPI's request validation error
func writeFieldError(w http.ResponseWriter, loc, msg string) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
		"detail": []map[string]interface{}{
			{"loc": []string{"path", loc}, "msg": msg, "type": "value_error"},
		},
	})
}

// validID imitates the backend's uuid path parameter validation
func validID(w http.ResponseWriter, loc, id string) bool {
	if _, err := uuid.Parse(id); err != nil {
		writeFieldError(w, loc, fmt.Sprintf("Input should be a valid UUID, got %q", id))
		return false
	}
	return true
}

func (b *Backend) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Cynical Circle API"})
}

func (b *Backend) handleListUsers(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.users) == 0 {
		writeDetail(w, http.StatusNotFound, "No users found")
		return
	}
	writeJSON(w, http.StatusOK, b.users)
}

func (b *Backend) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !validID(w, "user_id", id) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	u := b.findUser(id)
	if u == nil {
		writeDetail(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (b *Backend) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var nu api.NewUser
	if err := json.NewDecoder(r.Body).Decode(&nu); err != nil {
		writeFieldError(w, "body", "Invalid JSON")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, u := range b.users {
		if u.Email == nu.Email {
			writeDetail(w, http.StatusBadRequest, "Email already registered")
			return
		}
	}
	u := b.addUserLocked(nu.Username, nu.Email)
	writeJSON(w, http.StatusCreated, u)
}

func (b *Backend) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !validID(w, "user_id", id) {
		return
	}
	status := api.Status(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		writeFieldError(w, "status", "Input should be 'contemplating_the_void', 'pretending_to_work', 'on_the_verge' or 'running_on_caffeine'")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	u := b.findUser(id)
	if u == nil {
		writeDetail(w, http.StatusNotFound, "User not found")
		return
	}
	if status == "" {
		u.Status = nil
	} else {
		u.Status = &status
	}
	u.UpdatedAt = b.tick()
	writeJSON(w, http.StatusOK, u)
}

func (b *Backend) handleListPosts(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.posts) == 0 {
		writeDetail(w, http.StatusNotFound, "No posts found")
		return
	}
	writeJSON(w, http.StatusOK, b.posts)
}

func (b *Backend) handleGetPost(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !validID(w, "post_id", id) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p := b.findPost(id)
	if p == nil {
		writeDetail(w, http.StatusNotFound, "Post not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (b *Backend) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if !validID(w, "user_id", userID) {
		return
	}
	var np api.NewPost
	if err := json.NewDecoder(r.Body).Decode(&np); err != nil {
		writeFieldError(w, "body", "Invalid JSON")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.findUser(userID) == nil {
		writeDetail(w, http.StatusNotFound, "User not found")
		return
	}
	p := b.addPostLocked(userID, np.Title, np.Content)
	writeJSON(w, http.StatusCreated, p)
}

func (b *Backend) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !validID(w, "post_id", id) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.removePost(id) {
		writeDetail(w, http.StatusNotFound, "Post not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleReact keeps one reaction per user and post, replacing the type
// if the user already reacted
func (b *Backend) handleReact(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	q := r.URL.Query()
	userID := q.Get("user_id")
	rt := api.ReactionType(q.Get("reaction_type"))
	if !validID(w, "post_id", id) || !validID(w, "user_id", userID) {
		return
	}
	if !rt.Valid() {
		writeFieldError(w, "reaction_type", "Input should be 'sigh', 'facepalm', 'cringe' or 'seen'")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p := b.findPost(id)
	if p == nil {
		writeDetail(w, http.StatusNotFound, "Post not found")
		return
	}
	replaced := false
	for i := range p.Reactions {
		if p.Reactions[i].UserID == userID {
			p.Reactions[i].Type = rt
			replaced = true
		}
	}
	if !replaced {
		p.Reactions = append(p.Reactions, api.Reaction{Type: rt, UserID: userID})
	}
	writeJSON(w, http.StatusOK, p)
}

func (b *Backend) handleListComments(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !validID(w, "post_id", id) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.findPost(id) == nil {
		writeDetail(w, http.StatusNotFound, "Post not found")
		return
	}
	comments := b.comments[id]
	if comments == nil {
		comments = []api.Comment{}
	}
	writeJSON(w, http.StatusOK, comments)
}

func (b *Backend) handleAddComment(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	userID := r.URL.Query().Get("user_id")
	if !validID(w, "post_id", id) || !validID(w, "user_id", userID) {
		return
	}
	var nc api.NewComment
	if err := json.NewDecoder(r.Body).Decode(&nc); err != nil {
		writeFieldError(w, "body", "Invalid JSON")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.findPost(id) == nil {
		writeDetail(w, http.StatusNotFound, "Post not found")
		return
	}
	c := b.addCommentLocked(id, userID, nc.Content)
	writeJSON(w, http.StatusCreated, c)
}

// This code is in Public Domain. Take all the code you want, I'll just write more.

// Package session keeps the logged in user's id in a cookie and hands out
// client ids that tie a browser to its view state.
package session

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
)

const (
	// UserCookieName holds the logged in user's id
	UserCookieName = "cynical_user_id"
	// ClientCookieName holds the browser's client id, for as long as the browser runs
	ClientCookieName = "cynical_client"
	// TTL is how long a login is remembered, counted from login
	TTL = 7 * 24 * time.Hour
)

// Store reads and writes session cookies
type Store struct {
	codec       *securecookie.SecureCookie
	clientCodec *securecookie.SecureCookie
	ttl         time.Duration
	now         func() time.Time
}

// NewStore creates a store. hashKey is required, blockKey may be nil
// to skip encryption.
func NewStore(hashKey, blockKey []byte) *Store {
	return NewStoreWithTTL(hashKey, blockKey, TTL)
}

// NewStoreWithTTL is like NewStore with a custom expiry
func NewStoreWithTTL(hashKey, blockKey []byte, ttl time.Duration) *Store {
	codec := securecookie.New(hashKey, blockKey)
	// expiry is absolute: the timestamp is only written by Set
	codec.MaxAge(int(ttl.Seconds()))
	// client ids never expire on our side
	clientCodec := securecookie.New(hashKey, blockKey)
	clientCodec.MaxAge(0)
	return &Store{
		codec:       codec,
		clientCodec: clientCodec,
		ttl:         ttl,
		now:         time.Now,
	}
}

// Get returns the user id or false if there's no valid session
func (s *Store) Get(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(UserCookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	var id string
	if err = s.codec.Decode(UserCookieName, cookie.Value, &id); err != nil {
		// most likely expired
		return "", false
	}
	if id == "" {
		return "", false
	}
	return id, true
}

// Set remembers id for TTL
func (s *Store) Set(w http.ResponseWriter, id string) error {
	encoded, err := s.codec.Encode(UserCookieName, id)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     UserCookieName,
		Value:    encoded,
		Path:     "/",
		Expires:  s.now().Add(s.ttl),
		MaxAge:   int(s.ttl.Seconds()),
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear forgets the session
func (s *Store) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:    UserCookieName,
		Value:   "",
		Path:    "/",
		Expires: time.Unix(0, 0),
		MaxAge:  -1,
	})
}

// ClientID returns the browser's client id, minting a new one if the
// browser doesn't have one. isNew is true for a fresh id.
func (s *Store) ClientID(w http.ResponseWriter, r *http.Request) (id string, isNew bool) {
	if cookie, err := r.Cookie(ClientCookieName); err == nil {
		if err = s.clientCodec.Decode(ClientCookieName, cookie.Value, &id); err == nil && id != "" {
			return id, false
		}
	}
	id = uuid.NewString()
	encoded, err := s.clientCodec.Encode(ClientCookieName, id)
	if err != nil {
		return id, true
	}
	// no Expires: gone when the browser closes
	http.SetCookie(w, &http.Cookie{
		Name:     ClientCookieName,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id, true
}

// Session is the per-request view of the stored user id. Set and Clear
// are visible to later Get calls within the same request.
type Session struct {
	store *Store
	w     http.ResponseWriter
	id    string
	ok    bool
}

// Bind reads the session of r; changes are written to w
func (s *Store) Bind(w http.ResponseWriter, r *http.Request) *Session {
	id, ok := s.Get(r)
	return &Session{
		store: s,
		w:     w,
		id:    id,
		ok:    ok,
	}
}

// Get returns the user id or false
func (s *Session) Get() (string, bool) {
	return s.id, s.ok
}

// Set remembers id
func (s *Session) Set(id string) error {
	if err := s.store.Set(s.w, id); err != nil {
		return err
	}
	s.id, s.ok = id, true
	return nil
}

// Clear forgets the user id
func (s *Session) Clear() {
	s.store.Clear(s.w)
	s.id, s.ok = "", false
}

// This code is in Public Domain. Take all the code you want, I'll just write more.
package api

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status is a user's mood label
type Status string

// the four statuses the backend accepts
const (
	StatusContemplatingTheVoid Status = "contemplating_the_void"
	StatusPretendingToWork     Status = "pretending_to_work"
	StatusOnTheVerge           Status = "on_the_verge"
	StatusRunningOnCaffeine    Status = "running_on_caffeine"
)

// Statuses lists all statuses in display order
var Statuses = []Status{
	StatusContemplatingTheVoid,
	StatusPretendingToWork,
	StatusOnTheVerge,
	StatusRunningOnCaffeine,
}

// Valid returns true if s is one of the known statuses
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// ReactionType is a canned response attached to a post
type ReactionType string

// the four reaction types
const (
	ReactionSigh     ReactionType = "sigh"
	ReactionFacepalm ReactionType = "facepalm"
	ReactionCringe   ReactionType = "cringe"
	ReactionSeen     ReactionType = "seen"
)

// ReactionTypes lists all reaction types in display order
var ReactionTypes = []ReactionType{
	ReactionSigh,
	ReactionFacepalm,
	ReactionCringe,
	ReactionSeen,
}

// Valid returns true if t is one of the known reaction types
func (t ReactionType) Valid() bool {
	for _, known := range ReactionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ParseReactionType converts form input to a ReactionType
func ParseReactionType(s string) (ReactionType, error) {
	t := ReactionType(strings.TrimSpace(s))
	if !t.Valid() {
		return "", fmt.Errorf("unknown reaction type %q", s)
	}
	return t, nil
}

// backend sends timestamps without a zone, e.g. 2024-05-01T10:11:12.123456
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// Time is a timestamp that accepts the backend's formats
type Time struct {
	time.Time
}

// UnmarshalJSON parses RFC 3339 and zone-less ISO timestamps
func (t *Time) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", s)
}

// MarshalJSON writes the timestamp as RFC 3339
func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.Format(time.RFC3339Nano) + `"`), nil
}

// User describes a registered user
type User struct {
	ID        string  `json:"id"`
	Username  string  `json:"username"`
	Email     string  `json:"email"`
	IsActive  bool    `json:"is_active"`
	Status    *Status `json:"status"`
	CreatedAt Time    `json:"created_at"`
	UpdatedAt Time    `json:"updated_at"`
}

// Validate checks a user decoded from the backend
func (u *User) Validate() error {
	if u.ID == "" {
		return errors.New("user without id")
	}
	if u.Status != nil && !u.Status.Valid() {
		return fmt.Errorf("user %s has unknown status %q", u.ID, *u.Status)
	}
	return nil
}

// StatusValue returns the status or "" if not set
func (u *User) StatusValue() Status {
	if u.Status == nil {
		return ""
	}
	return *u.Status
}

// Reaction is a single reaction embedded in a post
type Reaction struct {
	Type   ReactionType `json:"type"`
	UserID string       `json:"user_id,omitempty"`
}

// Post describes a post with its reactions
type Post struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	OwnerID   string     `json:"owner_id"`
	CreatedAt Time       `json:"created_at"`
	UpdatedAt Time       `json:"updated_at"`
	Reactions []Reaction `json:"reactions"`
}

// Validate checks a post decoded from the backend
func (p *Post) Validate() error {
	if p.ID == "" {
		return errors.New("post without id")
	}
	for _, r := range p.Reactions {
		if !r.Type.Valid() {
			return fmt.Errorf("post %s has unknown reaction type %q", p.ID, r.Type)
		}
	}
	return nil
}

// Comment describes a comment on a post
type Comment struct {
	ID            string `json:"id"`
	Content       string `json:"content"`
	PostID        string `json:"post_id"`
	OwnerID       string `json:"owner_id"`
	OwnerUsername string `json:"owner_username,omitempty"`
	CreatedAt     Time   `json:"created_at"`
	UpdatedAt     Time   `json:"updated_at"`
}

// Validate checks a comment decoded from the backend
func (c *Comment) Validate() error {
	if c.ID == "" {
		return errors.New("comment without id")
	}
	return nil
}

// NewUser is the registration payload
type NewUser struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// NewPost is the create post payload
type NewPost struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// NewComment is the add comment payload
type NewComment struct {
	Content string `json:"content"`
}

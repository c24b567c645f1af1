// This code is in Public Domain. Take all the code you want, I'll just write more.
package main

import (
	"github.com/kjk/cynic/api"
	"github.com/kjk/cynic/state"
)

const (
	unknownAuthor = "Unknown author"
	noStatus      = "No status"
	timeFormat    = "02.01.2006, 15:04:05"
)

var reactionEmojis = map[api.ReactionType]string{
	api.ReactionSigh:     "😮‍💨",
	api.ReactionFacepalm: "🤦",
	api.ReactionCringe:   "😬",
	api.ReactionSeen:     "👁️",
}

var reactionLabels = map[api.ReactionType]string{
	api.ReactionSigh:     "Sigh",
	api.ReactionFacepalm: "Facepalm",
	api.ReactionCringe:   "Cringe",
	api.ReactionSeen:     "Seen",
}

var statusTexts = map[api.Status]string{
	api.StatusContemplatingTheVoid: "Contemplating the void",
	api.StatusPretendingToWork:     "Pretending to work",
	api.StatusOnTheVerge:           "On the verge",
	api.StatusRunningOnCaffeine:    "Running on caffeine",
}

func reactionEmoji(rt api.ReactionType) string {
	if s, ok := reactionEmojis[rt]; ok {
		return s
	}
	return "❓"
}

func reactionLabel(rt api.ReactionType) string {
	if s, ok := reactionLabels[rt]; ok {
		return s
	}
	return string(rt)
}

func statusText(s api.Status) string {
	if s == "" {
		return noStatus
	}
	if txt, ok := statusTexts[s]; ok {
		return txt
	}
	return string(s)
}

func formatTime(t api.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timeFormat)
}

// ReactionCount is one reaction button
type ReactionCount struct {
	Type  api.ReactionType
	Emoji string
	Label string
	Count int
}

// countReactions groups reactions by type. All types are present, in
// display order, even with zero count.
func countReactions(reactions []api.Reaction) []ReactionCount {
	counts := map[api.ReactionType]int{}
	for _, r := range reactions {
		counts[r.Type]++
	}
	res := make([]ReactionCount, len(api.ReactionTypes))
	for i, rt := range api.ReactionTypes {
		res[i] = ReactionCount{
			Type:  rt,
			Emoji: reactionEmoji(rt),
			Label: reactionLabel(rt),
			Count: counts[rt],
		}
	}
	return res
}

// UserRow is a user in the users list
type UserRow struct {
	ID         string
	Username   string
	Email      string
	Status     api.Status
	StatusText string
}

// CommentView is a rendered comment
type CommentView struct {
	Content string
	Author  string
	Created string
}

// PostView is a rendered post
type PostView struct {
	ID             string
	Title          string
	Content        string
	Author         string
	Created        string
	CanDelete      bool
	Reactions      []ReactionCount
	Comments       []CommentView
	CommentsLoaded bool
}

// StatusOption is an option of the status select
type StatusOption struct {
	Value    api.Status
	Text     string
	Selected bool
}

// ProfileView is the current user's profile
type ProfileView struct {
	ID         string
	Username   string
	Email      string
	Active     string
	Status     api.Status
	StatusText string
	Options    []StatusOption
}

// PageModel is everything page.html needs
type PageModel struct {
	View           state.View
	Breadcrumb     string
	ShowBreadcrumb bool
	LoggedIn       bool
	Username       string
	Notice         *state.Notice
	AnalyticsCode  string

	Users   []UserRow
	NoUsers bool
	Posts   []PostView
	Profile *ProfileView
}

func authorName(st *state.State, ownerID, fallback string) string {
	if u := st.FindUser(ownerID); u != nil {
		return u.Username
	}
	if fallback != "" {
		return fallback
	}
	return unknownAuthor
}

func buildPostView(st *state.State, p *api.Post) PostView {
	pv := PostView{
		ID:        p.ID,
		Title:     p.Title,
		Content:   p.Content,
		Author:    authorName(st, p.OwnerID, ""),
		Created:   formatTime(p.CreatedAt),
		CanDelete: st.CurrentUser != nil && st.CurrentUser.ID == p.OwnerID,
		Reactions: countReactions(p.Reactions),
	}
	comments, ok := st.CommentsOf(p.ID)
	pv.CommentsLoaded = ok
	for _, c := range comments {
		pv.Comments = append(pv.Comments, CommentView{
			Content: c.Content,
			Author:  authorName(st, c.OwnerID, c.OwnerUsername),
			Created: formatTime(c.CreatedAt),
		})
	}
	return pv
}

func buildProfileView(u *api.User) *ProfileView {
	status := u.StatusValue()
	pv := &ProfileView{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		Active:     "No",
		Status:     status,
		StatusText: statusText(status),
	}
	if u.IsActive {
		pv.Active = "Yes"
	}
	pv.Options = append(pv.Options, StatusOption{"", noStatus, status == ""})
	for _, s := range api.Statuses {
		pv.Options = append(pv.Options, StatusOption{s, statusText(s), s == status})
	}
	return pv
}

// buildPageModel builds the model of the active view. It takes the
// pending notice out of st.
func buildPageModel(st *state.State, analyticsCode string) *PageModel {
	m := &PageModel{
		View:          st.View,
		LoggedIn:      st.LoggedIn(),
		Notice:        st.PopNotice(),
		AnalyticsCode: analyticsCode,
	}
	m.Breadcrumb, m.ShowBreadcrumb = breadcrumb(st.View)
	if st.CurrentUser != nil {
		m.Username = st.CurrentUser.Username
	}

	switch st.View {
	case state.ViewLogin:
		m.NoUsers = st.NoUsers
		for _, u := range st.Users {
			status := u.StatusValue()
			row := UserRow{ID: u.ID, Username: u.Username, Email: u.Email, Status: status}
			if status != "" {
				row.StatusText = statusText(status)
			}
			m.Users = append(m.Users, row)
		}
	case state.ViewPosts:
		for i := range st.Posts {
			m.Posts = append(m.Posts, buildPostView(st, &st.Posts[i]))
		}
	case state.ViewProfile:
		if st.CurrentUser != nil {
			m.Profile = buildProfileView(st.CurrentUser)
		}
	}
	return m
}

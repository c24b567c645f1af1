// This code is in Public Domain. Take all the code you want, I'll just write more.
package main

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	atom "github.com/kjk/atomgenerator"

	"github.com/kjk/cynic/api"
)

const feedMaxPosts = 25

func buildPostURL(r *http.Request, p *api.Post) string {
	return fmt.Sprintf("%s/posts#post-%s", baseURL(r), p.ID)
}

func buildPostID(r *http.Request, p *api.Post) string {
	pubDateStr := p.CreatedAt.Format("2006-01-02")
	return fmt.Sprintf("tag:%s,%s:/posts/%s", r.Host, pubDateStr, p.ID)
}

// postContentHTML is the entry body: escaped content and the author
func postContentHTML(p *api.Post, author string) string {
	return fmt.Sprintf("<p>%s</p><p>by %s</p>",
		template.HTMLEscapeString(p.Content), template.HTMLEscapeString(author))
}

// url: /feed.xml
// The feed is the same for everyone, so it's built straight from the
// backend and not from the client's state.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	posts, err := s.api.ListPosts(ctx)
	if err != nil && !errors.Is(err, api.ErrNotFound) {
		s.logger.Errorf("handleFeed: %s", err)
		http.Error(w, "Failed to load posts", http.StatusBadGateway)
		return
	}
	if len(posts) > feedMaxPosts {
		posts = posts[:feedMaxPosts]
	}
	usernames := map[string]string{}
	if len(posts) > 0 {
		// without users the feed is still useful
		users, err := s.api.ListUsers(ctx)
		if err != nil {
			s.logger.Errorf("handleFeed: %s", err)
		}
		for _, u := range users {
			usernames[u.ID] = u.Username
		}
	}

	pubTime := time.Now()
	if len(posts) > 0 && !posts[0].CreatedAt.IsZero() {
		pubTime = posts[0].CreatedAt.Time
	}
	feed := &atom.Feed{
		Title:   s.config.FeedTitle,
		Link:    baseURL(r) + "/posts",
		PubDate: pubTime,
	}
	for i := range posts {
		p := &posts[i]
		author, ok := usernames[p.OwnerID]
		if !ok {
			author = unknownAuthor
		}
		e := &atom.Entry{
			Id:      buildPostID(r, p),
			Title:   p.Title,
			PubDate: p.CreatedAt.Time,
			Link:    buildPostURL(r, p),
			Content: postContentHTML(p, author),
		}
		feed.AddEntry(e)
	}

	d, err := feed.GenXml()
	if err != nil {
		s.logger.Errorf("handleFeed: GenXml() failed with %s", err)
		http.Error(w, "Failed to generate XML feed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/atom+xml; charset=utf-8")
	w.Write(d)
}

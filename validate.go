// This code is in Public Domain. Take all the code you want, I'll just write more.
package main

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/kjk/cynic/api"
)

var reEmail = regexp.MustCompile(`\S+@\S+\.\S+`)

// validateUser returns problems with registration input, in form order
func validateUser(nu api.NewUser) []string {
	var errs []string
	if utf8.RuneCountInString(strings.TrimSpace(nu.Username)) < 3 {
		errs = append(errs, "Username must be at least 3 characters long")
	}
	if !reEmail.MatchString(nu.Email) {
		errs = append(errs, "Enter a valid email")
	}
	if utf8.RuneCountInString(nu.Password) < 6 {
		errs = append(errs, "Password must be at least 6 characters long")
	}
	return errs
}

func validatePost(np api.NewPost) []string {
	var errs []string
	if strings.TrimSpace(np.Title) == "" {
		errs = append(errs, "Title can't be empty")
	}
	if strings.TrimSpace(np.Content) == "" {
		errs = append(errs, "Content can't be empty")
	}
	return errs
}

func validateComment(nc api.NewComment) []string {
	if strings.TrimSpace(nc.Content) == "" {
		return []string{"Comment can't be empty"}
	}
	return nil
}

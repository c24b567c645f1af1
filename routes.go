// This code is in Public Domain. Take all the code you want, I'll just write more.
package main

import (
	"github.com/kjk/cynic/state"
)

// a path the browser can navigate to
type viewRoute struct {
	Path string
	View state.View
}

var viewRoutes = []viewRoute{
	{"/", state.ViewLogin},
	{"/login", state.ViewLogin},
	{"/register", state.ViewRegister},
	{"/posts", state.ViewPosts},
	{"/create-post", state.ViewCreatePost},
	{"/profile", state.ViewProfile},
}

// breadcrumb labels. login has none, which hides breadcrumbs.
var breadcrumbs = map[state.View]string{
	state.ViewRegister:   "Registration",
	state.ViewPosts:      "Posts",
	state.ViewCreatePost: "New post",
	state.ViewProfile:    "Profile",
}

// resolveView returns the view for an exact path match
func resolveView(path string) (state.View, bool) {
	for _, vr := range viewRoutes {
		if vr.Path == path {
			return vr.View, true
		}
	}
	return "", false
}

// viewPath returns the canonical path of a view
func viewPath(v state.View) string {
	switch v {
	case state.ViewRegister:
		return "/register"
	case state.ViewPosts:
		return "/posts"
	case state.ViewCreatePost:
		return "/create-post"
	case state.ViewProfile:
		return "/profile"
	}
	return "/login"
}

func breadcrumb(v state.View) (label string, show bool) {
	label, show = breadcrumbs[v]
	return
}

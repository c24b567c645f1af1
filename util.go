// This code is under BSD license. See license-bsd.txt
package main

import (
	"fmt"
	"net/http"
	"strings"
)

func panicif(shouldPanic bool, format string, args ...interface{}) {
	if shouldPanic {
		s := format
		if len(args) > 0 {
			s = fmt.Sprintf(format, args...)
		}
		panic(s)
	}
}

func httpErrorf(w http.ResponseWriter, format string, args ...interface{}) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	http.Error(w, msg, http.StatusBadRequest)
}

func getReferer(r *http.Request) string {
	return r.Header.Get("Referer")
}

// requestURL returns path with query, for logging
func requestURL(r *http.Request) string {
	url := r.URL.Path
	if len(r.URL.RawQuery) > 0 {
		url = fmt.Sprintf("%s?%s", url, r.URL.RawQuery)
	}
	return url
}

// baseURL returns scheme and host the request was made to
func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

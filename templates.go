// This code is in Public Domain. Take all the code you want, I'll just write more.
package main

import (
	"bytes"
	"html/template"
	"net/http"
	"path/filepath"
	"sync"
)

var (
	tmplPage      = "page.html"
	tmplLogs      = "logs.html"
	templateNames = [...]string{tmplPage, tmplLogs, "header.html", "footer.html",
		"notice.html", "login.html", "register.html", "posts.html",
		"createpost.html", "profile.html", "analytics.html"}
)

// Templates loads html templates from a directory, optionally re-reading
// them on every use so that edits show up without a restart
type Templates struct {
	dir    string
	reload bool

	mu        sync.Mutex
	templates *template.Template
}

// NewTemplates creates a loader for templates in dir
func NewTemplates(dir string, reload bool) *Templates {
	return &Templates{dir: dir, reload: reload}
}

// Get returns parsed templates, panicking on a parse error
func (t *Templates) Get() *template.Template {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.reload || t.templates == nil {
		var paths []string
		for _, name := range templateNames {
			paths = append(paths, filepath.Join(t.dir, name))
		}
		t.templates = template.Must(template.ParseFiles(paths...))
	}
	return t.templates
}

// renderTemplate executes a template into memory
func (s *Server) renderTemplate(templateName string, model interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.templates.Get().ExecuteTemplate(&buf, templateName, model); err != nil {
		s.logger.Errorf("Failed to execute template %q, error: %s", templateName, err)
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeHTML(w http.ResponseWriter, d []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	// at this point we ignore error
	w.Write(d)
}

// execTemplate renders into a buffer first so that a failing template
// results in a clean 500
func (s *Server) execTemplate(w http.ResponseWriter, templateName string, model interface{}) bool {
	d, err := s.renderTemplate(templateName, model)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return false
	}
	writeHTML(w, d)
	return true
}

// This code is in Public Domain. Take all the code you want, I'll just write more.
package main

import (
	"context"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/kjk/u"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kjk/cynic/api"
	"github.com/kjk/cynic/session"
	"github.com/kjk/cynic/state"
)

// Server is the web frontend
type Server struct {
	config    *Config
	api       *api.Client
	sync      *Synchronizer
	actions   *Actions
	sessions  *session.Store
	states    state.Store
	templates *Templates
	logger    *ServerLogger
	staticDir string

	// log slow requests over 0.1 sec instead of over 1 sec
	alwaysLogTime bool
}

// NewServer wires a server. In production templates are parsed once
// and only really slow requests are logged.
func NewServer(cfg *Config, sessions *session.Store, states state.Store, logger *ServerLogger, production bool) *Server {
	observer := func(op, outcome string, dur time.Duration) {
		observeAPICall(op, outcome, dur)
		logger.Call(op, outcome, dur)
	}
	client := api.New(cfg.APIBaseURL, api.WithObserver(observer))
	return &Server{
		config:        cfg,
		api:           client,
		sync:          NewSynchronizer(client, logger),
		actions:       newActions(),
		sessions:      sessions,
		states:        states,
		templates:     NewTemplates("tmpl", !production),
		logger:        logger,
		staticDir:     "static",
		alwaysLogTime: !production,
	}
}

func (s *Server) makeTimingHandler(fn func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()
		fn(w, r)
		duration := time.Since(startTime)
		// log urls that take long time to generate i.e. over 1 sec in production
		// or over 0.1 sec in dev
		shouldLog := duration.Seconds() > 1.0
		if s.alwaysLogTime && duration.Seconds() > 0.1 {
			shouldLog = true
		}
		if shouldLog {
			s.logger.Noticef("%q took %f seconds to serve", requestURL(r), duration.Seconds())
		}
	}
}

// client is the state of the browser making a request
type client struct {
	id     string
	st     *state.State
	sess   *session.Session
	booted bool
}

// loadClient loads the state of the browser, booting it if it's new
// or its state is gone. bootPath is passed to Boot.
func (s *Server) loadClient(w http.ResponseWriter, r *http.Request, bootPath string) (*client, Step) {
	ctx := r.Context()
	id, isNew := s.sessions.ClientID(w, r)
	var st *state.State
	if !isNew {
		var err error
		st, err = s.states.Load(ctx, id)
		if err != nil {
			StateStoreErrors.WithLabelValues("load").Inc()
			s.logger.Errorf("loadClient: %s", err)
		}
	}
	if st == nil {
		st = state.New()
	}
	c := &client{
		id:   id,
		st:   st,
		sess: s.sessions.Bind(w, r),
	}
	var step Step
	if !st.Booted {
		step = s.sync.Boot(ctx, st, c.sess, bootPath)
		c.booted = true
	}
	return c, step
}

func (s *Server) saveClient(ctx context.Context, c *client) {
	if err := s.states.Save(ctx, c.id, c.st); err != nil {
		StateStoreErrors.WithLabelValues("save").Inc()
		s.logger.Errorf("saveClient: %s", err)
	}
}

func (s *Server) redirect(w http.ResponseWriter, r *http.Request, c *client, path string) {
	s.saveClient(r.Context(), c)
	http.Redirect(w, r, path, http.StatusFound)
}

// render shows the active view. The notice is shown once, so state is
// saved after it's taken out, unless the page failed to render.
func (s *Server) render(w http.ResponseWriter, r *http.Request, c *client) {
	notice := c.st.Notice
	model := buildPageModel(c.st, s.config.AnalyticsCode)
	d, err := s.renderTemplate(tmplPage, model)
	if err != nil {
		c.st.Notice = notice
		s.saveClient(r.Context(), c)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.saveClient(r.Context(), c)
	writeHTML(w, d)
}

// url: /, /login, /register, /posts, /create-post, /profile
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	view, ok := resolveView(r.URL.Path)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	if r.Method == http.MethodPost {
		s.handleEvent(w, r, view)
		return
	}

	c, step := s.loadClient(w, r, r.URL.Path)
	if step.Navigate == "" {
		step = s.sync.Enter(r.Context(), c.st, c.sess, view)
	}
	if step.Navigate != "" {
		s.redirect(w, r, c, step.Navigate)
		return
	}
	s.render(w, r, c)
}

// handleEvent dispatches a form submitted from view
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request, view state.View) {
	if err := r.ParseForm(); err != nil {
		httpErrorf(w, "invalid form: %s", err)
		return
	}
	action := strings.TrimSpace(r.PostForm.Get("action"))
	fn, ok := s.actions.Lookup(view, action)
	if !ok {
		s.logger.Noticef("handleEvent: unknown action %q for view %q, referer: %q", action, view, getReferer(r))
		httpErrorf(w, "unknown action %q", action)
		return
	}

	c, step := s.loadClient(w, r, "")
	if c.booted {
		// the form was on the page the browser shows
		c.st.View = view
	}
	if step.Navigate != "" {
		s.redirect(w, r, c, step.Navigate)
		return
	}

	Events.WithLabelValues(string(view), action).Inc()
	ev := &event{
		ctx:  r.Context(),
		st:   c.st,
		sess: c.sess,
		form: r.PostForm,
	}
	step = fn(s.sync, ev)
	if step.Navigate != "" {
		s.redirect(w, r, c, step.Navigate)
		return
	}
	if c.st.View != view {
		s.redirect(w, r, c, viewPath(c.st.View))
		return
	}
	s.render(w, r, c)
}

// any path that isn't a view goes to login
func (s *Server) handleUnknownPath(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (s *Server) serveFileFromDir(w http.ResponseWriter, r *http.Request, dir, fileName string) {
	filePath := filepath.Join(dir, filepath.FromSlash(fileName))
	if !u.PathExists(filePath) {
		s.logger.Noticef("serveFileFromDir() file %q doesn't exist, referer: %q", fileName, getReferer(r))
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, filePath)
}

// url: /s/*
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	file := strings.TrimPrefix(r.URL.Path, "/s/")
	if file == "" || strings.Contains(file, "..") {
		http.NotFound(w, r)
		return
	}
	s.serveFileFromDir(w, r, s.staticDir, file)
}

// url: /robots.txt
func (s *Server) handleRobotsTxt(w http.ResponseWriter, r *http.Request) {
	s.serveFileFromDir(w, r, s.staticDir, "robots.txt")
}

// Handler returns the router of all urls
func (s *Server) Handler() http.Handler {
	// paths like //posts or /x/../profile aren't views and go to /login
	r := mux.NewRouter().SkipClean(true)
	for _, vr := range viewRoutes {
		r.HandleFunc(vr.Path, s.makeTimingHandler(s.handleView)).Methods(http.MethodGet, http.MethodHead, http.MethodPost)
	}
	r.HandleFunc("/feed.xml", s.makeTimingHandler(s.handleFeed)).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/logs", s.handleLogs)
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/favicon.ico", http.NotFound)
	r.HandleFunc("/robots.txt", s.handleRobotsTxt)
	r.PathPrefix("/s/").HandlerFunc(s.makeTimingHandler(s.handleStatic))
	r.NotFoundHandler = http.HandlerFunc(s.handleUnknownPath)
	return r
}

// This code is in Public Domain. Take all the code you want, I'll just write more.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/kjk/u"
)

// TimestampedMsg is a messsage with a timestamp
type TimestampedMsg struct {
	Time time.Time
	Msg  string
}

// TimeStr formats a log timestamp
func (m *TimestampedMsg) TimeStr() string {
	return m.Time.Format("2006-01-02 15:04:05")
}

// TimeSinceStr returns formatted time since log timestamp
func (m *TimestampedMsg) TimeSinceStr() string {
	return u.TimeSinceNowAsString(m.Time)
}

// CircularMessagesBuf keeps the last N messages
type CircularMessagesBuf struct {
	mu   sync.Mutex
	msgs []TimestampedMsg
	pos  int
	full bool
}

// NewCircularMessagesBuf creates a buffer for n messages
func NewCircularMessagesBuf(n int) *CircularMessagesBuf {
	if n < 1 {
		n = 1
	}
	return &CircularMessagesBuf{
		msgs: make([]TimestampedMsg, n),
	}
}

// Add adds a message, overwriting the oldest one if the buffer is full
func (b *CircularMessagesBuf) Add(s string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pos == len(b.msgs) {
		b.pos = 0
		b.full = true
	}
	b.msgs[b.pos] = TimestampedMsg{time.Now(), s}
	b.pos++
}

// GetOrdered returns messages, newest first
func (b *CircularMessagesBuf) GetOrdered() []*TimestampedMsg {
	b.mu.Lock()
	defer b.mu.Unlock()
	size := b.pos
	if b.full {
		size = len(b.msgs)
	}
	res := make([]*TimestampedMsg, size)
	for i := 0; i < size; i++ {
		p := b.pos - 1 - i
		if p < 0 {
			p += len(b.msgs)
		}
		msg := b.msgs[p]
		res[i] = &msg
	}
	return res
}

// ServerLogger remembers recent errors and notices for /logs and
// writes everything through slog
type ServerLogger struct {
	Errors  *CircularMessagesBuf
	Notices *CircularMessagesBuf
	log     *slog.Logger
}

// NewServerLogger creates a logger that writes text lines to w.
// w can be nil to only keep messages in memory.
func NewServerLogger(errorsMax, noticesMax int, w io.Writer) *ServerLogger {
	if w == nil {
		w = io.Discard
	}
	return &ServerLogger{
		Errors:  NewCircularMessagesBuf(errorsMax),
		Notices: NewCircularMessagesBuf(noticesMax),
		log:     slog.New(slog.NewTextHandler(w, nil)),
	}
}

// Errorf logs an error
func (l *ServerLogger) Errorf(format string, v ...interface{}) {
	s := fmt.Sprintf(format, v...)
	l.Errors.Add(s)
	l.log.Error(s)
}

// Noticef logs a notice
func (l *ServerLogger) Noticef(format string, v ...interface{}) {
	s := fmt.Sprintf(format, v...)
	l.Notices.Add(s)
	l.log.Info(s)
}

// Call logs a finished backend call. Failures go to errors.
func (l *ServerLogger) Call(op, outcome string, dur time.Duration) {
	if outcome == "ok" || outcome == "not_found" {
		l.log.Debug("api call", "op", op, "outcome", outcome, "dur", dur)
		return
	}
	l.Errors.Add(fmt.Sprintf("api %s failed: %s (%s)", op, outcome, dur))
	l.log.Warn("api call failed", "op", op, "outcome", outcome, "dur", dur)
}

// GetErrors returns error messages, newest first
func (l *ServerLogger) GetErrors() []*TimestampedMsg {
	return l.Errors.GetOrdered()
}

// GetNotices returns notice messages, newest first
func (l *ServerLogger) GetNotices() []*TimestampedMsg {
	return l.Notices.GetOrdered()
}

// url: /logs
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	userID, _ := s.sessions.Get(r)
	model := struct {
		UserIsAdmin bool
		Errors      []*TimestampedMsg
		Notices     []*TimestampedMsg
		Header      *http.Header
	}{
		UserIsAdmin: s.config.IsAdmin(userID),
	}
	if model.UserIsAdmin {
		model.Errors = s.logger.GetErrors()
		model.Notices = s.logger.GetNotices()
		if r.FormValue("show") != "" {
			model.Header = &r.Header
		}
	}
	s.execTemplate(w, tmplLogs, model)
}

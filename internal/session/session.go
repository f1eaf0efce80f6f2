// Package session keeps per-browser dashboard state: the redirect guards and
// a one-shot flash message.
package session

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

const CookieName = "linkly_session"

// Session is the state of one dashboard browser session. It is safe for
// concurrent use.
type Session struct {
	mu        sync.Mutex
	id        string
	redirects map[string]struct{}
	flash     string
}

func newSession(id string) *Session {
	return &Session{
		id:        id,
		redirects: make(map[string]struct{}),
	}
}

func (s *Session) ID() string {
	return s.id
}

// BeginRedirect marks code as being navigated to. It reports false when a
// navigation for code is already in progress.
func (s *Session) BeginRedirect(code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.redirects[code]; ok {
		return false
	}
	s.redirects[code] = struct{}{}

	return true
}

func (s *Session) EndRedirect(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.redirects, code)
}

// ClearRedirects drops every guard, re-enabling redirects for all codes.
func (s *Session) ClearRedirects() {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.redirects)
}

func (s *Session) Redirecting(code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.redirects[code]
	return ok
}

func (s *Session) SetFlash(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.flash = msg
}

// PopFlash returns the flash message and clears it.
func (s *Session) PopFlash() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := s.flash
	s.flash = ""
	return msg
}

// Store keeps sessions in memory. Each Load extends the session's lifetime
// by ttl.
type Store struct {
	mu     sync.Mutex
	cache  *gocache.Cache
	ttl    time.Duration
	secure bool
}

type Option func(*Store)

// WithSecureCookie marks the session cookie Secure.
func WithSecureCookie() Option {
	return func(s *Store) {
		s.secure = true
	}
}

func NewStore(ttl time.Duration, opts ...Option) *Store {
	s := &Store{
		cache: gocache.New(ttl, ttl/2),
		ttl:   ttl,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Load returns the caller's session, creating one and setting the cookie on
// w when the request carries none or an expired one.
func (s *Store) Load(w http.ResponseWriter, r *http.Request) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, err := r.Cookie(CookieName); err == nil {
		if v, found := s.cache.Get(c.Value); found {
			if sess, ok := v.(*Session); ok {
				s.cache.SetDefault(sess.id, sess)
				return sess
			}
		}
	}

	sess := newSession(uuid.NewString())
	s.cache.SetDefault(sess.id, sess)

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sess.id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})

	return sess
}

func (s *Store) Len() int {
	return s.cache.ItemCount()
}

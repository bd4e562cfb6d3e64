package core

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

const SessionCookieName = "session"

// Session holds per-client state between requests.
type Session struct {
	ID string

	mu       sync.Mutex
	values   map[string]any
	lastSeen time.Time

	// persist runs once, on the first write to a session that is not yet
	// in a store.
	persist func(*Session)
}

func newSession(id string) *Session {
	return &Session{
		ID:       id,
		values:   make(map[string]any),
		lastSeen: time.Now(),
	}
}

func (s *Session) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *Session) Set(key string, value any) {
	s.mu.Lock()
	s.values[key] = value
	persist := s.takePersist()
	s.mu.Unlock()

	if persist != nil {
		persist(s)
	}
}

func (s *Session) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

// Pop returns the value under key and removes it.
func (s *Session) Pop(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	if ok {
		delete(s.values, key)
	}
	return v, ok
}

// Update runs fn with the session's values under its lock.
func (s *Session) Update(fn func(values map[string]any)) {
	s.mu.Lock()
	fn(s.values)
	persist := s.takePersist()
	s.mu.Unlock()

	if persist != nil {
		persist(s)
	}
}

// takePersist must be called with s.mu held.
func (s *Session) takePersist() func(*Session) {
	persist := s.persist
	s.persist = nil
	return persist
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// Store keeps sessions by id. Implementations must be safe for concurrent use.
type Store interface {
	Get(id string) (*Session, bool)
	Save(sess *Session)
	Delete(id string)
	Close() error
}

type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	done     chan struct{}
	once     sync.Once
}

func NewMemoryStore(ttl, cleanupInterval time.Duration) *MemoryStore {
	store := &MemoryStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		done:     make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go store.cleanupLoop(cleanupInterval)
	}
	return store
}

func (m *MemoryStore) Get(id string) (*Session, bool) {
	m.mu.RLock()
	sess, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}

	now := time.Now()
	if m.ttl > 0 && sess.idleSince(now) > m.ttl {
		m.Delete(id)
		return nil, false
	}
	sess.touch(now)
	return sess, true
}

// New creates a session and saves it right away.
func (m *MemoryStore) New() *Session {
	sess := newSession(uuid.NewString())
	m.Save(sess)
	return sess
}

func (m *MemoryStore) Save(sess *Session) {
	sess.touch(time.Now())

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()
}

func (m *MemoryStore) Delete(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *MemoryStore) Close() error {
	m.once.Do(func() { close(m.done) })
	return nil
}

func (m *MemoryStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.evictExpired(time.Now())
		}
	}
}

func (m *MemoryStore) evictExpired(now time.Time) {
	if m.ttl <= 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, sess := range m.sessions {
		if sess.idleSince(now) > m.ttl {
			delete(m.sessions, id)
		}
	}
}

// CookieSigner signs session ids with a keyed BLAKE2b MAC.
type CookieSigner struct {
	key []byte
}

func NewCookieSigner(secret string) *CookieSigner {
	// blake2b keys are capped at 64 bytes.
	sum := blake2b.Sum512([]byte(secret))
	return &CookieSigner{key: sum[:]}
}

func (c *CookieSigner) mac(id string) []byte {
	h, err := blake2b.New256(c.key)
	if err != nil {
		panic(err)
	}
	h.Write([]byte(id))
	return h.Sum(nil)
}

func (c *CookieSigner) Sign(id string) string {
	return id + "." + base64.RawURLEncoding.EncodeToString(c.mac(id))
}

func (c *CookieSigner) Verify(value string) (string, error) {
	i := strings.LastIndexByte(value, '.')
	if i <= 0 || i == len(value)-1 {
		return "", ErrInvalidCookie
	}

	id := value[:i]
	got, err := base64.RawURLEncoding.DecodeString(value[i+1:])
	if err != nil {
		return "", ErrInvalidCookie
	}
	if subtle.ConstantTimeCompare(got, c.mac(id)) != 1 {
		return "", ErrInvalidCookie
	}
	return id, nil
}

type sessionKey struct{}

func WithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

func SessionFrom(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionKey{}).(*Session)
	return sess
}

// Sessions attaches a session to every request. A request without a
// valid cookie gets a fresh session that is only saved, and only sent a
// signed cookie, once something writes to it. Writes must happen before
// the response headers are sent.
func Sessions(store Store, signer *CookieSigner, maxAge int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var sess *Session

			if cookie, err := r.Cookie(SessionCookieName); err == nil {
				if id, err := signer.Verify(cookie.Value); err == nil {
					sess, _ = store.Get(id)
				}
			}

			if sess == nil {
				sess = newSession(uuid.NewString())
				sess.persist = func(s *Session) {
					store.Save(s)
					http.SetCookie(w, &http.Cookie{
						Name:     SessionCookieName,
						Value:    signer.Sign(s.ID),
						Path:     "/",
						MaxAge:   maxAge,
						HttpOnly: true,
						SameSite: http.SameSiteLaxMode,
					})
				}
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

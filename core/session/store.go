package session

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/answercheck/core"
	"github.com/trezcool/answercheck/storage/state"
)

// persisted entries
const (
	keyToken = "token"
	keyUser  = "user"
	keyRole  = "role"
)

// Store owns the single active session. It is the only writer of both the
// in-memory state and the persisted entries; consumers read via Current or
// subscribe via Watch.
type Store struct {
	mu       sync.Mutex
	svc      CredentialService
	storage  state.Store
	identity *Identity
	role     string
	loading  bool
	bootOnce sync.Once
	watchers []chan Session
}

func NewStore(svc CredentialService, storage state.Store) *Store {
	return &Store{svc: svc, storage: storage, loading: true}
}

// Bootstrap restores the session from the persisted token and identity.
// It resolves the loading state exactly once, whatever the outcome; no other
// path touches it.
func (s *Store) Bootstrap() {
	s.bootOnce.Do(func() {
		s.mu.Lock()
		token, hasToken := s.storage.Get(keyToken)
		rawIdent, hasIdent := s.storage.Get(keyUser)
		if hasToken && token != "" && hasIdent {
			var ident Identity
			if err := json.Unmarshal([]byte(rawIdent), &ident); err == nil {
				s.identity = &ident
				s.role = ident.Role
			}
		}
		s.loading = false
		s.mu.Unlock()
		s.notify()
	})
}

// Login exchanges credentials for a token and establishes the session.
// A response carrying an error message or lacking a token fails with
// core.AuthError.
func (s *Store) Login(ctx context.Context, email, password string) (Identity, error) {
	email = core.CleanString(email, true /* lower */)
	creds, err := s.svc.Login(ctx, email, password)
	if err != nil {
		return Identity{}, errors.Wrap(err, "calling credential service")
	}
	ident, err := s.establish(creds, usernameFromEmail(email), email)
	return ident, errors.Wrap(err, "establishing session")
}

// Signup registers a new account; same session contract as Login but the
// username is caller-supplied instead of derived from the email.
func (s *Store) Signup(ctx context.Context, username, email, password string) (Identity, error) {
	username = core.CleanString(username)
	email = core.CleanString(email, true /* lower */)
	creds, err := s.svc.Signup(ctx, email, password)
	if err != nil {
		return Identity{}, errors.Wrap(err, "calling credential service")
	}
	ident, err := s.establish(creds, username, email)
	return ident, errors.Wrap(err, "establishing session")
}

func (s *Store) establish(creds Credentials, username, email string) (Identity, error) {
	if creds.Error != "" {
		return Identity{}, core.NewAuthError(errors.New(creds.Error))
	}
	if creds.Token == "" {
		return Identity{}, core.NewAuthError(errors.New("no token received"))
	}

	ident := Identity{
		ID:       creds.UserID,
		Username: username,
		Email:    email,
		Role:     creds.Role,
	}
	if ident.ID == "" {
		ident.ID = uuid.New().String()
	}
	if ident.Role == "" {
		ident.Role = RoleUser
	}

	rawIdent, err := json.Marshal(ident)
	if err != nil {
		return Identity{}, errors.Wrap(err, "serializing identity")
	}
	if err := s.storage.Set(keyToken, creds.Token); err != nil {
		return Identity{}, err
	}
	if err := s.storage.Set(keyUser, string(rawIdent)); err != nil {
		return Identity{}, err
	}
	if err := s.storage.Set(keyRole, ident.Role); err != nil {
		return Identity{}, err
	}

	s.mu.Lock()
	s.identity = &ident
	s.role = ident.Role
	s.mu.Unlock()
	s.notify()
	return ident, nil
}

// Logout clears the session and every persisted entry. Calling it while
// already logged out is a no-op.
func (s *Store) Logout() error {
	s.mu.Lock()
	wasAuthed := s.identity != nil
	s.identity = nil
	s.role = ""
	s.mu.Unlock()

	if err := s.storage.Delete(keyToken, keyUser, keyRole); err != nil {
		return errors.Wrap(err, "clearing persisted session")
	}
	if wasAuthed {
		s.notify()
	}
	return nil
}

// Current returns a snapshot of the session state.
func (s *Store) Current() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := Session{Role: s.role, Loading: s.loading}
	if s.identity != nil {
		ident := *s.identity
		sess.Identity = &ident
	}
	return sess
}

// Token returns the persisted credential token, if any.
func (s *Store) Token() string {
	token, _ := s.storage.Get(keyToken)
	return token
}

// Watch subscribes to session changes. The channel holds the latest snapshot;
// a slow consumer only ever misses intermediate states, never the current one.
func (s *Store) Watch() <-chan Session {
	ch := make(chan Session, 1)
	s.mu.Lock()
	s.watchers = append(s.watchers, ch)
	s.mu.Unlock()
	return ch
}

func (s *Store) notify() {
	cur := s.Current()
	s.mu.Lock()
	watchers := append([]chan Session(nil), s.watchers...)
	s.mu.Unlock()
	for _, ch := range watchers {
		select {
		case <-ch: // drop a stale, unread snapshot
		default:
		}
		ch <- cur
	}
}

func usernameFromEmail(email string) string {
	return strings.SplitN(email, "@", 2)[0]
}

// Package session keeps the signed-in state of the storefront: one Store
// for the customer and one for the admin, persisted under separate keys so
// both can be signed in at once.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/pkg/apiclient"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

var (
	ErrEmptyToken        = errors.New("session: empty token")
	ErrMissingCustomerID = errors.New("session: sign-in answer carries no customer id")
	ErrNotAuthenticated  = errors.New("session: not signed in")
)

// RoleKey is shared by both stores; the last login wins.
const RoleKey = "role"

type Keys struct {
	Token      string
	CustomerID string
	Name       string
	Email      string
}

var (
	CustomerKeys = Keys{Token: "customer_token", CustomerID: "customerId", Name: "customer_name", Email: "customer_email"}
	AdminKeys    = Keys{Token: "token", Name: "admin_name"}
)

func (k Keys) all() []string {
	out := make([]string, 0, 4)
	for _, v := range []string{k.Token, k.CustomerID, k.Name, k.Email} {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

type Identity struct {
	CustomerID *int
	Name       string
	Email      string
}

type (
	signInFunc  func(ctx context.Context, login, password string) (string, Identity, error)
	signOutFunc func(ctx context.Context, token string) error
)

const defaultSignOutTimeout = 3 * time.Second

type Store struct {
	role    models.Role
	keys    Keys
	storage Storage
	bus     *events.Bus

	signIn         signInFunc
	signOut        signOutFunc
	signOutTimeout time.Duration

	mu  sync.RWMutex
	cur models.Session
}

func NewCustomerStore(storage Storage, client *apiclient.Client, bus *events.Bus) *Store {
	s := newStore(models.RoleCustomer, CustomerKeys, storage, bus)
	s.signIn = func(ctx context.Context, email, password string) (string, Identity, error) {
		res, err := client.CustomerSignIn(ctx, email, password)
		if err != nil {
			return "", Identity{}, err
		}
		id, ok := res.Customer()
		if !ok {
			return "", Identity{}, ErrMissingCustomerID
		}
		return res.Token, Identity{CustomerID: &id, Name: res.Name, Email: res.Email}, nil
	}
	s.signOut = client.CustomerSignOut
	return s
}

func NewAdminStore(storage Storage, client *apiclient.Client, bus *events.Bus) *Store {
	s := newStore(models.RoleAdmin, AdminKeys, storage, bus)
	s.signIn = func(ctx context.Context, username, password string) (string, Identity, error) {
		res, err := client.AdminSignIn(ctx, username, password)
		if err != nil {
			return "", Identity{}, err
		}
		return res.Token, Identity{Name: username}, nil
	}
	s.signOut = client.AdminSignOut
	return s
}

func newStore(role models.Role, keys Keys, storage Storage, bus *events.Bus) *Store {
	return &Store{
		role:           role,
		keys:           keys,
		storage:        storage,
		bus:            bus,
		signOutTimeout: defaultSignOutTimeout,
		cur:            models.Session{Role: role},
	}
}

func (s *Store) Role() models.Role {
	return s.role
}

// SignIn drops any previous session of this role, asks the backend for a
// token and stores it.
func (s *Store) SignIn(ctx context.Context, login, password string) error {
	if err := s.clear(ctx, false); err != nil {
		return err
	}
	token, id, err := s.signIn(ctx, login, password)
	if err != nil {
		return err
	}
	return s.Login(ctx, token, id)
}

// Login persists token and identity and marks the session authenticated.
func (s *Store) Login(ctx context.Context, token string, id Identity) error {
	if token == "" {
		return ErrEmptyToken
	}
	if s.role == models.RoleCustomer && id.CustomerID == nil {
		return ErrMissingCustomerID
	}

	sess := models.Session{Token: token, Role: s.role, CustomerID: id.CustomerID, Name: id.Name, Email: id.Email}
	if err := s.persist(ctx, sess); err != nil {
		return err
	}

	s.mu.Lock()
	s.cur = sess
	s.mu.Unlock()

	logging.FromContext(ctx).Info("session_login", "role", string(s.role))
	s.publish(ctx)
	return nil
}

func (s *Store) persist(ctx context.Context, sess models.Session) error {
	writes := [][2]string{{s.keys.Token, sess.Token}, {RoleKey, string(s.role)}}
	if s.keys.CustomerID != "" && sess.CustomerID != nil {
		writes = append(writes, [2]string{s.keys.CustomerID, strconv.Itoa(*sess.CustomerID)})
	}
	if s.keys.Name != "" && sess.Name != "" {
		writes = append(writes, [2]string{s.keys.Name, sess.Name})
	}
	if s.keys.Email != "" && sess.Email != "" {
		writes = append(writes, [2]string{s.keys.Email, sess.Email})
	}
	for _, w := range writes {
		if err := s.storage.Set(ctx, w[0], w[1]); err != nil {
			return fmt.Errorf("persist session: %w", err)
		}
	}
	return nil
}

// Logout tells the backend best effort and then clears local state no
// matter what the backend answered.
func (s *Store) Logout(ctx context.Context) error {
	cur := s.Current()
	if cur.Token != "" && s.signOut != nil {
		sctx, cancel := context.WithTimeout(ctx, s.signOutTimeout)
		err := s.signOut(sctx, cur.Token)
		cancel()
		if err != nil {
			logging.FromContext(ctx).Warn("session_signout_error", "role", string(s.role), "error", err)
		}
	}
	return s.clear(ctx, true)
}

// Invalidate clears local state without calling the backend. Used when the
// backend rejects the token.
func (s *Store) Invalidate(ctx context.Context) error {
	logging.FromContext(ctx).Info("session_invalidated", "role", string(s.role))
	return s.clear(ctx, true)
}

// CheckUnauthorized invalidates the session when err is a 401/403 answer and
// reports whether it did.
func (s *Store) CheckUnauthorized(ctx context.Context, err error) bool {
	if !apiclient.IsUnauthorized(err) {
		return false
	}
	if ierr := s.Invalidate(ctx); ierr != nil {
		logging.FromContext(ctx).Error("session_invalidate_error", "role", string(s.role), "error", ierr)
	}
	return true
}

func (s *Store) clear(ctx context.Context, notify bool) error {
	s.mu.Lock()
	was := s.cur.Token != ""
	s.cur = models.Session{Role: s.role}
	s.mu.Unlock()

	err := s.storage.Delete(ctx, s.keys.all()...)
	if role, ok, rerr := s.storage.Get(ctx, RoleKey); rerr == nil && ok && role == string(s.role) {
		err = errors.Join(err, s.handOverRole(ctx))
	}
	if err != nil {
		err = fmt.Errorf("clear session: %w", err)
	}
	if notify && was {
		s.publish(ctx)
	}
	return err
}

// handOverRole gives the shared role key to the other role when that role
// is still signed in, and deletes it otherwise.
func (s *Store) handOverRole(ctx context.Context) error {
	other, keys := models.RoleCustomer, CustomerKeys
	if s.role == models.RoleCustomer {
		other, keys = models.RoleAdmin, AdminKeys
	}
	if tok, ok, err := s.storage.Get(ctx, keys.Token); err == nil && ok && tok != "" {
		return s.storage.Set(ctx, RoleKey, string(other))
	}
	return s.storage.Delete(ctx, RoleKey)
}

func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.Token != ""
}

// Current returns a copy of the session.
func (s *Store) Current() models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.cur
	if s.cur.CustomerID != nil {
		id := *s.cur.CustomerID
		out.CustomerID = &id
	}
	return out
}

func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.Token
}

func (s *Store) CustomerID() (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cur.CustomerID == nil {
		return 0, false
	}
	return *s.cur.CustomerID, true
}

// Restore loads the session persisted by an earlier run. Expired tokens and
// customer tokens without an id are dropped.
func (s *Store) Restore(ctx context.Context) error {
	l := logging.FromContext(ctx).With("role", string(s.role))

	token, ok, err := s.storage.Get(ctx, s.keys.Token)
	if err != nil {
		if errors.Is(err, ErrSealed) {
			l.Warn("session_restore_unreadable", "error", err)
			return s.clear(ctx, false)
		}
		return fmt.Errorf("restore session: %w", err)
	}
	if !ok || token == "" {
		return nil
	}

	if exp, ok := ExpiresAt(token); ok && !exp.After(time.Now()) {
		l.Info("session_expired", "expired_at", exp)
		return s.clear(ctx, false)
	}

	sess := models.Session{Token: token, Role: s.role}
	if s.keys.CustomerID != "" {
		raw, _, err := s.storage.Get(ctx, s.keys.CustomerID)
		if err != nil {
			return fmt.Errorf("restore session: %w", err)
		}
		id, perr := strconv.Atoi(raw)
		if perr != nil {
			if s.role == models.RoleCustomer {
				l.Warn("session_restore_missing_customer_id", "value", raw)
				return s.clear(ctx, false)
			}
		} else {
			sess.CustomerID = &id
		}
	}
	if s.keys.Name != "" {
		sess.Name, _, _ = s.storage.Get(ctx, s.keys.Name)
	}
	if s.keys.Email != "" {
		sess.Email, _, _ = s.storage.Get(ctx, s.keys.Email)
	}

	s.mu.Lock()
	s.cur = sess
	s.mu.Unlock()

	l.Info("session_restored")
	return nil
}

// StoredRole reads the shared role key.
func StoredRole(ctx context.Context, storage Storage) (models.Role, error) {
	v, ok, err := storage.Get(ctx, RoleKey)
	if err != nil || !ok {
		return "", err
	}
	return models.Role(v), nil
}

// ExpiresAt reads the exp claim of a JWT without verifying its signature.
// ok is false for opaque tokens and tokens without exp.
func ExpiresAt(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

func (s *Store) publish(ctx context.Context) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, events.Event{Topic: events.SessionChanged, CustomerID: s.Current().CustomerID, Payload: string(s.role)})
}

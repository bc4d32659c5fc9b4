package todo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"
	"unicode/utf8"

	uuid "github.com/nu7hatch/gouuid"
	"github.com/philippgille/gokv"
	"golang.org/x/crypto/bcrypt"
)

// Authentication providers, recorded in User.Provider.
const (
	ProviderAnonymous = "anon-user"
	ProviderUserPass  = "local-userpass"
)

const (
	emailKey   = "email"
	sessionKey = "session"

	minPasswordLength = 4
	maxPasswordLength = 10
)

var (
	// ErrLoggedIn is returned when trying to log in while a user is already logged in.
	ErrLoggedIn = errors.New("must be logged out first")

	// ErrNotLoggedIn is returned by List operations that need a logged-in user.
	ErrNotLoggedIn = errors.New("must be logged in")

	// ErrInvalidCredentials is returned by Login when the email is unknown or the password doesn't match.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserExists is returned by Register when the email is taken.
	ErrUserExists = errors.New("user already exists")

	ErrInvalidEmail    = errors.New("enter a valid email address")
	ErrInvalidPassword = fmt.Errorf("password must be between %d and %d characters", minPasswordLength, maxPasswordLength)
)

// Same shape as the address pattern Android uses to validate login forms.
var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9+._%\-]{1,256}@[a-zA-Z0-9][a-zA-Z0-9\-]{0,64}(\.[a-zA-Z0-9][a-zA-Z0-9\-]{0,25})+$`)

// ValidateCredentials checks the email and password entered in a login or sign-up form, before any remote call.
func ValidateCredentials(email, password string) error {
	if email == "" || !emailPattern.MatchString(email) {
		return ErrInvalidEmail
	}
	if n := utf8.RuneCountInString(password); n < minPasswordLength || n > maxPasswordLength {
		return ErrInvalidPassword
	}
	return nil
}

// User is an account in the users collection. Anonymous users have neither email nor password.
type User struct {
	ID           string    `bson:"_id" json:"id"`
	Provider     string    `bson:"provider" json:"provider"`
	Email        string    `bson:"email,omitempty" json:"email,omitempty"`
	PasswordHash string    `bson:"password_hash,omitempty" json:"-"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
}

func (u *User) String() string {
	if u.Email != "" {
		return u.Email
	}
	return u.Provider + ":" + u.ID
}

// UserStore persists user accounts. Backend.Users returns the MongoDB implementation.
type UserStore interface {
	// InsertUser returns an error wrapping ErrUserExists if the email is taken.
	InsertUser(ctx context.Context, user *User) error

	// UserByEmail returns an error wrapping ErrNotFound if there is no such user.
	UserByEmail(ctx context.Context, email string) (*User, error)
}

// session is what the Authenticator keeps in its gokv store.
type session struct {
	User       *User     `json:"user"`
	LoggedInAt time.Time `json:"logged_in_at"`
}

type authOption func(*Authenticator)

// WithPasswordCost sets the bcrypt cost used by Register. Tests use bcrypt.MinCost to keep things fast.
func WithPasswordCost(cost int) authOption {
	return func(a *Authenticator) {
		a.cost = cost
	}
}

// Authenticator logs users in and out. At most one user is logged in at a time. The current user is saved in a
// gokv store, so a new Authenticator over the same store starts with the same user logged in.
type Authenticator struct {
	users    UserStore
	sessions gokv.Store
	cost     int

	// Serializes the operations that log someone in. Held across remote calls, unlike mu, so that IsLoggedIn
	// and User don't wait on the network.
	loginMu sync.Mutex

	mu   sync.Mutex
	user *User
}

// NewAuthenticator creates an authenticator, restoring the session found in the sessions store, if any.
func NewAuthenticator(users UserStore, sessions gokv.Store, opts ...authOption) (*Authenticator, error) {
	a := &Authenticator{
		users:    users,
		sessions: sessions,
		cost:     bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(a)
	}
	var s session
	found, err := sessions.Get(sessionKey, &s)
	if err != nil {
		return nil, fmt.Errorf("restore session: %w", err)
	}
	if found {
		a.user = s.User
	}
	return a, nil
}

func (a *Authenticator) IsLoggedIn() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.user != nil
}

// User returns a copy of the logged-in user, or nil.
func (a *Authenticator) User() *User {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.user == nil {
		return nil
	}
	u := *a.user
	return &u
}

// LoginAnonymously creates a new anonymous user and logs it in.
func (a *Authenticator) LoginAnonymously(ctx context.Context) error {
	a.loginMu.Lock()
	defer a.loginMu.Unlock()
	if a.IsLoggedIn() {
		return ErrLoggedIn
	}
	id, err := newUserID()
	if err != nil {
		return fmt.Errorf("login anonymously: %w", err)
	}
	user := &User{
		ID:        id,
		Provider:  ProviderAnonymous,
		CreatedAt: now(),
	}
	if err := a.users.InsertUser(ctx, user); err != nil {
		return fmt.Errorf("login anonymously: %w", err)
	}
	return a.setUser(user)
}

// Login logs in the user with the given email, if the password matches.
func (a *Authenticator) Login(ctx context.Context, email, password string) error {
	a.loginMu.Lock()
	defer a.loginMu.Unlock()
	if a.IsLoggedIn() {
		return ErrLoggedIn
	}
	if err := ValidateCredentials(email, password); err != nil {
		return err
	}
	user, err := a.users.UserByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return ErrInvalidCredentials
	}
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if user.Provider != ProviderUserPass {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return a.setUser(user)
}

// Register creates an email/password account. It does not log the new user in.
func (a *Authenticator) Register(ctx context.Context, email, password string) error {
	_, err := a.register(ctx, email, password)
	return err
}

// RegisterAndLogin creates an email/password account and logs it in. It fails with ErrLoggedIn, without creating
// the account, if someone is logged in.
func (a *Authenticator) RegisterAndLogin(ctx context.Context, email, password string) error {
	a.loginMu.Lock()
	defer a.loginMu.Unlock()
	if a.IsLoggedIn() {
		return ErrLoggedIn
	}
	user, err := a.register(ctx, email, password)
	if err != nil {
		return err
	}
	return a.setUser(user)
}

func (a *Authenticator) register(ctx context.Context, email, password string) (*User, error) {
	if err := ValidateCredentials(email, password); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	id, err := newUserID()
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	user := &User{
		ID:           id,
		Provider:     ProviderUserPass,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now(),
	}
	if err := a.users.InsertUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Logout forgets the current user. Logging out when nobody is logged in is not an error.
func (a *Authenticator) Logout(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.user = nil
	if err := a.sessions.Delete(sessionKey); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// setUser must be called with a.loginMu held, which keeps anybody else from logging in meanwhile.
func (a *Authenticator) setUser(user *User) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.sessions.Set(sessionKey, session{User: user, LoggedInAt: now()}); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	a.user = user
	return nil
}

func newUserID() (string, error) {
	u, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

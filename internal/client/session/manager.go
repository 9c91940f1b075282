package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/nutrikeeper/internal/client/kvstore"
	"github.com/dmitrijs2005/nutrikeeper/internal/client/models"
	"github.com/dmitrijs2005/nutrikeeper/internal/common"
	"github.com/dmitrijs2005/nutrikeeper/internal/cryptox"
	"github.com/dmitrijs2005/nutrikeeper/internal/logging"
	"github.com/google/uuid"
)

const (
	credentialPrefix = "credentials:"
	sessionKey       = "session"

	saltSize  = 32
	tokenSize = 32
)

// Manager owns registration, login and the active session of the device.
type Manager struct {
	store  kvstore.Store
	admins map[string]struct{}
	now    func() time.Time
	log    logging.Logger

	// serialises read-modify-write of credentials and the session
	mu sync.Mutex
}

// NewManager builds a Manager over store. admins is the allow-list of
// administrator emails, compared case-insensitively.
func NewManager(store kvstore.Store, admins []string, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		admins: make(map[string]struct{}, len(admins)),
		now:    time.Now,
		log:    logging.NopLogger{},
	}
	for _, a := range admins {
		if a = normalizeEmail(a); a != "" {
			m.admins[a] = struct{}{}
		}
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register creates a credential for email and immediately signs it in.
func (m *Manager) Register(ctx context.Context, email, password, displayName string) (*models.Session, error) {
	email = normalizeEmail(email)
	if !validEmail(email) {
		return nil, fmt.Errorf("%w: invalid email", common.ErrValidation)
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password is required", common.ErrValidation)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, err := m.loadCredential(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, common.ErrDuplicateAccount
	}

	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = email[:strings.IndexByte(email, '@')]
	}

	role := models.RoleUser
	if m.isAdminEmail(email) {
		role = models.RoleAdmin
	}

	salt := common.MakeRandToken(saltSize)
	cred := &models.Credential{
		UserID:       uuid.NewString(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: cryptox.HashPassword([]byte(password), salt),
		Salt:         salt,
		Role:         role,
		CreatedAt:    m.now().UTC(),
	}

	if err := m.saveCredential(ctx, cred); err != nil {
		return nil, err
	}

	m.log.Info(ctx, "account registered", "user_id", cred.UserID, "role", cred.Role)

	return m.issue(ctx, cred)
}

// Login verifies email and password and replaces the active session.
func (m *Manager) Login(ctx context.Context, email, password string) (*models.Session, error) {
	email = normalizeEmail(email)

	m.mu.Lock()
	defer m.mu.Unlock()

	cred, err := m.loadCredential(ctx, email)
	if err != nil {
		return nil, err
	}

	if cred == nil {
		// burn the same KDF cost as a real check
		_ = cryptox.HashPassword([]byte(password), common.MakeRandToken(saltSize))
		m.log.Debug(ctx, "login rejected")
		return nil, common.ErrInvalidCredentials
	}

	if !cryptox.VerifyPassword([]byte(password), cred.Salt, cred.PasswordHash) {
		m.log.Debug(ctx, "login rejected")
		return nil, common.ErrInvalidCredentials
	}

	now := m.now().UTC()
	cred.LastLoginAt = &now
	if err := m.saveCredential(ctx, cred); err != nil {
		return nil, err
	}

	return m.issue(ctx, cred)
}

// CurrentSession returns the active session, or nil when there is none.
// An expired session is deleted before nil is returned.
func (m *Manager) CurrentSession(ctx context.Context) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	raw, err := m.store.Get(ctx, sessionKey)
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	if raw == nil {
		return nil, nil
	}

	var s models.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}

	if s.Expired(m.now()) {
		if err := m.store.Delete(ctx, sessionKey); err != nil {
			return nil, fmt.Errorf("purge expired session: %w", err)
		}
		m.log.Info(ctx, "session expired", "user_id", s.UserID)
		return nil, nil
	}

	return &s, nil
}

// Logout drops the active session. It is safe to call without one.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Delete(ctx, sessionKey); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// IsAdmin reports whether the session's email is on the admin allow-list.
func (m *Manager) IsAdmin(s *models.Session) bool {
	if s == nil {
		return false
	}
	return m.isAdminEmail(s.Email)
}

// RequireSession returns the live session or common.ErrUnauthenticated.
func (m *Manager) RequireSession(ctx context.Context) (*models.Session, error) {
	s, err := m.CurrentSession(ctx)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, common.ErrUnauthenticated
	}
	return s, nil
}

// RequireAdmin is RequireSession plus the admin check.
func (m *Manager) RequireAdmin(ctx context.Context) (*models.Session, error) {
	s, err := m.RequireSession(ctx)
	if err != nil {
		return nil, err
	}
	if !m.IsAdmin(s) {
		return nil, common.ErrPermissionDenied
	}
	return s, nil
}

// Credential returns the stored credential for email, or nil.
func (m *Manager) Credential(ctx context.Context, email string) (*models.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadCredential(ctx, normalizeEmail(email))
}

func (m *Manager) issue(ctx context.Context, cred *models.Credential) (*models.Session, error) {
	now := m.now().UTC()
	s := &models.Session{
		UserID:    cred.UserID,
		Email:     cred.Email,
		Token:     common.MakeRandToken(tokenSize),
		CreatedAt: now,
		ExpiresAt: now.Add(models.SessionTTL),
	}

	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	if err := m.store.Set(ctx, sessionKey, raw); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	return s, nil
}

func (m *Manager) loadCredential(ctx context.Context, email string) (*models.Credential, error) {
	raw, err := m.store.Get(ctx, credentialPrefix+email)
	if err != nil {
		return nil, fmt.Errorf("read credential: %w", err)
	}
	if raw == nil {
		return nil, nil
	}

	var c models.Credential
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode credential: %w", err)
	}
	return &c, nil
}

func (m *Manager) saveCredential(ctx context.Context, c *models.Credential) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}
	if err := m.store.Set(ctx, credentialPrefix+c.Email, raw); err != nil {
		return fmt.Errorf("store credential: %w", err)
	}
	return nil
}

func (m *Manager) isAdminEmail(email string) bool {
	_, ok := m.admins[normalizeEmail(email)]
	return ok
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validEmail accepts a bare addr-spec with a dotted domain, such as a@x.com.
func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	if addr.Address != email || addr.Name != "" {
		return false
	}
	domain := email[strings.LastIndexByte(email, '@')+1:]
	return strings.Contains(domain, ".") && !strings.HasSuffix(domain, ".")
}

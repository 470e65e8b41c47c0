package impl

import (
	"context"
	"errors"
	"sync"
	"time"

	"modreview/internal/domain"
	"modreview/internal/dto"
	"modreview/internal/store"

	"github.com/google/uuid"
)

// memoryStore is an in-memory stand-in for the gorm stores. It satisfies
// every narrow store interface used by this package.
type memoryStore struct {
	mu     sync.Mutex
	nextID domain.UserID
	users  map[domain.UserID]*domain.User
	tokens map[string]*domain.AuthToken
	otps   map[string]*domain.OneTimePassword

	statusWrites int
	failStatus   int // number of UpdateStatus calls that fail before succeeding
	lostCommits  int // number of UpdateStatus calls that commit but report an error
	listErr      error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:  map[domain.UserID]*domain.User{},
		tokens: map[string]*domain.AuthToken{},
		otps:   map[string]*domain.OneTimePassword{},
	}
}

func (m *memoryStore) addUser(name string, status domain.Status, created time.Time, caps ...domain.Capability) *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	u := &domain.User{
		ID:          m.nextID,
		Username:    name,
		Permissions: domain.NewCapabilities(caps...),
		Status:      status,
		Created:     created,
	}
	m.users[u.ID] = u
	return cloneUser(u)
}

func (m *memoryStore) setPassword(id domain.UserID, hash string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id].Password = hash
}

func (m *memoryStore) user(id domain.UserID) *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneUser(m.users[id])
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	cp := *u
	cp.Permissions = domain.Capabilities{}
	for k, v := range u.Permissions {
		cp.Permissions[k] = v
	}
	return &cp
}

func (m *memoryStore) GetByID(_ context.Context, id domain.UserID) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrRecordNotFound
	}
	return cloneUser(u), nil
}

func (m *memoryStore) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}
	return nil, store.ErrRecordNotFound
}

// ListByStatus deliberately returns users in map order; callers must sort.
func (m *memoryStore) ListByStatus(_ context.Context, status domain.Status) ([]*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*domain.User
	for _, u := range m.users {
		if u.Status == status {
			out = append(out, cloneUser(u))
		}
	}
	return out, nil
}

func (m *memoryStore) UpdateStatus(ctx context.Context, id domain.UserID, from, to domain.Status, reviewer string, at time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failStatus > 0 {
		m.failStatus--
		return false, errors.New("database unavailable")
	}
	u, ok := m.users[id]
	if !ok || u.Status != from {
		return false, nil
	}
	m.statusWrites++
	u.Status = to
	u.Reviewer = reviewer
	u.StatusChanged = &at
	if m.lostCommits > 0 {
		m.lostCommits--
		return false, errors.New("connection reset")
	}
	return true, nil
}

func (m *memoryStore) ModifyProperties(_ context.Context, username string, fn func(*domain.Properties) error) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username != username {
			continue
		}
		props := u.Properties
		if err := fn(&props); err != nil {
			return nil, err
		}
		u.Properties = props
		return cloneUser(u), nil
	}
	return nil, store.ErrRecordNotFound
}

func (m *memoryStore) writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusWrites
}

type memoryTokens struct{ *memoryStore }

func (m memoryTokens) Create(_ context.Context, tok *domain.AuthToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.tokens[tok.Token]; dup {
		return store.ErrDuplicate
	}
	if tok.ID == uuid.Nil {
		tok.ID = uuid.New()
	}
	cp := *tok
	m.tokens[tok.Token] = &cp
	return nil
}

func (m memoryTokens) GetByToken(_ context.Context, token string) (*domain.AuthToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[token]
	if !ok {
		return nil, store.ErrRecordNotFound
	}
	cp := *t
	return &cp, nil
}

func (m memoryTokens) Delete(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tokens[token]; !ok {
		return store.ErrRecordNotFound
	}
	delete(m.tokens, token)
	return nil
}

type memoryOTPs struct{ *memoryStore }

func (m memoryOTPs) Create(_ context.Context, otp *domain.OneTimePassword) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.otps[otp.Password]; dup {
		return store.ErrDuplicate
	}
	if otp.ID == uuid.Nil {
		otp.ID = uuid.New()
	}
	cp := *otp
	m.otps[otp.Password] = &cp
	return nil
}

func (m memoryOTPs) Consume(_ context.Context, code string) (*domain.OneTimePassword, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.otps[code]
	if !ok {
		return nil, store.ErrRecordNotFound
	}
	delete(m.otps, code)
	return o, nil
}

func (m memoryOTPs) DeleteByID(_ context.Context, id domain.OTPID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for code, o := range m.otps {
		if o.ID == id {
			delete(m.otps, code)
		}
	}
	return nil
}

func (m memoryOTPs) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for code, o := range m.otps {
		if o.Expired(now) {
			delete(m.otps, code)
			n++
		}
	}
	return n, nil
}

func (m memoryOTPs) codes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.otps))
	for c := range m.otps {
		out = append(out, c)
	}
	return out
}

// stubIdentity records calls and fails on demand.
type stubIdentity struct {
	mu         sync.Mutex
	profileErr error
	approveErr error
	sendErr    error
	approved   []string
	messages   map[string][]string

	approveHook func()
}

func (s *stubIdentity) Profile(_ context.Context, username string) (*dto.ExternalProfile, error) {
	if s.profileErr != nil {
		return nil, s.profileErr
	}
	return &dto.ExternalProfile{Name: username, TotalKarma: 10}, nil
}

func (s *stubIdentity) Approve(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.approved = append(s.approved, username)
	if s.approveHook != nil {
		s.approveHook()
	}
	return s.approveErr
}

func (s *stubIdentity) SendMessage(_ context.Context, username, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	if s.messages == nil {
		s.messages = map[string][]string{}
	}
	s.messages[username] = append(s.messages[username], text)
	return nil
}

func (s *stubIdentity) approvals() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.approved...)
}

// plainPasswords compares without hashing so tests stay fast.
type plainPasswords struct {
	mu       sync.Mutex
	verifies int
}

func (p *plainPasswords) Hash(password string) (string, error) { return "h:" + password, nil }

func (p *plainPasswords) Verify(password, hash string) bool {
	p.mu.Lock()
	p.verifies++
	p.mu.Unlock()
	return hash != "" && hash == "h:"+password
}

type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fixedClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newModerator(id domain.UserID, caps ...domain.Capability) *domain.User {
	return &domain.User{ID: id, Username: "mod", Permissions: domain.NewCapabilities(caps...), Status: domain.StatusApproved}
}

package impl

import (
	"context"
	"errors"
	"testing"
	"time"

	"modreview/internal/domain"
	"modreview/internal/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type credentialFixture struct {
	store     *memoryStore
	otps      memoryOTPs
	identity  *stubIdentity
	passwords *plainPasswords
	clock     *fixedClock
	svc       *CredentialServiceImpl
}

func newCredentialFixture(t *testing.T) *credentialFixture {
	t.Helper()
	st := newMemoryStore()
	f := &credentialFixture{
		store:     st,
		otps:      memoryOTPs{st},
		identity:  &stubIdentity{},
		passwords: &plainPasswords{},
		clock:     &fixedClock{t: t0},
	}
	f.svc = &CredentialServiceImpl{
		Users:     st,
		Tokens:    memoryTokens{st},
		OTPs:      f.otps,
		Passwords: f.passwords,
		Identity:  f.identity,
		cfg:       withCredentialDefaults(CredentialConfig{OTPTTL: 5 * time.Minute}),
		now:       f.clock.now,
	}
	return f
}

func (f *credentialFixture) addLoginUser(name, password string) *domain.User {
	u := f.store.addUser(name, domain.StatusApproved, t0, domain.CapLogin)
	f.store.setPassword(u.ID, "h:"+password)
	return f.store.user(u.ID)
}

func TestIssueTokenIsRandomAndResolvable(t *testing.T) {
	f := newCredentialFixture(t)
	u := f.addLoginUser("alice", "pw")

	a, err := f.svc.IssueToken(context.Background(), u)
	require.NoError(t, err)
	b, err := f.svc.IssueToken(context.Background(), u)
	require.NoError(t, err)

	assert.NotEqual(t, a.Token, b.Token)
	assert.Len(t, a.Token, 43)

	got, err := f.svc.Authenticate(context.Background(), a.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestAuthenticateRejectsUnknownAndRevoked(t *testing.T) {
	f := newCredentialFixture(t)
	u := f.addLoginUser("alice", "pw")

	_, err := f.svc.Authenticate(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = f.svc.Authenticate(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	tok, err := f.svc.IssueToken(context.Background(), u)
	require.NoError(t, err)
	require.NoError(t, f.svc.Revoke(context.Background(), tok.Token))
	_, err = f.svc.Authenticate(context.Background(), tok.Token)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestLoginSuccess(t *testing.T) {
	f := newCredentialFixture(t)
	u := f.addLoginUser("alice", "correct horse")

	tok, err := f.svc.Login(context.Background(), dto.LoginRequest{Username: "alice", Password: "correct horse"}, "127.0.0.1", "test")
	require.NoError(t, err)
	assert.Equal(t, u.ID, tok.UserID)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	f := newCredentialFixture(t)
	f.addLoginUser("alice", "pw")

	denied := f.store.addUser("denied", domain.StatusDenied, t0, domain.CapLogin)
	f.store.setPassword(denied.ID, "h:pw")
	nologin := f.store.addUser("nologin", domain.StatusApproved, t0, domain.CapModerator)
	f.store.setPassword(nologin.ID, "h:pw")

	cases := map[string]dto.LoginRequest{
		"wrong password": {Username: "alice", Password: "bad"},
		"unknown user":   {Username: "ghost", Password: "pw"},
		"not approved":   {Username: "denied", Password: "pw"},
		"no login cap":   {Username: "nologin", Password: "pw"},
		"empty password": {Username: "alice", Password: ""},
		"empty all":      {},
	}
	var first error
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			before := f.passwords.verifies
			tok, err := f.svc.Login(context.Background(), req, "", "")
			assert.Nil(t, tok)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrUnauthorized))
			assert.Equal(t, domain.ErrUnauthorized.Error(), err.Error())
			assert.Equal(t, before+1, f.passwords.verifies, "password must be compared on every attempt")
			if first == nil {
				first = err
			}
			assert.Equal(t, first, err)
		})
	}
}

func TestCreateOTPRequiresApprovedLoginUser(t *testing.T) {
	f := newCredentialFixture(t)
	f.store.addUser("pending", domain.StatusFound, t0, domain.CapLogin)
	f.store.addUser("nologin", domain.StatusApproved, t0)

	for _, name := range []string{"pending", "nologin", "ghost"} {
		err := f.svc.CreateOTP(context.Background(), name)
		assert.ErrorIs(t, err, domain.ErrUnauthorized, name)
	}
	assert.Empty(t, f.otps.codes())
	assert.Empty(t, f.identity.messages)
}

func TestCreateOTPDeliversAndStoresWithExpiry(t *testing.T) {
	f := newCredentialFixture(t)
	f.addLoginUser("alice", "pw")

	require.NoError(t, f.svc.CreateOTP(context.Background(), "alice"))

	codes := f.otps.codes()
	require.Len(t, codes, 1)
	assert.Len(t, codes[0], 8)
	require.Len(t, f.identity.messages["alice"], 1)
	assert.Contains(t, f.identity.messages["alice"][0], codes[0])

	otp := f.store.otps[codes[0]]
	assert.True(t, t0.Add(5*time.Minute).Equal(otp.Expiration))
}

func TestCreateOTPDeliveryFailureDiscardsCode(t *testing.T) {
	f := newCredentialFixture(t)
	f.addLoginUser("alice", "pw")
	f.identity.sendErr = errors.New("rate limited")

	err := f.svc.CreateOTP(context.Background(), "alice")
	assert.ErrorIs(t, err, domain.ErrExternalService)
	assert.Empty(t, f.otps.codes())
}

func TestRedeemOTPExactlyOnce(t *testing.T) {
	f := newCredentialFixture(t)
	u := f.addLoginUser("alice", "pw")
	require.NoError(t, f.svc.CreateOTP(context.Background(), "alice"))
	code := f.otps.codes()[0]

	tok, err := f.svc.RedeemOTP(context.Background(), code)
	require.NoError(t, err)
	assert.Equal(t, u.ID, tok.UserID)

	_, err = f.svc.RedeemOTP(context.Background(), code)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRedeemOneOfTwoCodesLeavesTheOther(t *testing.T) {
	f := newCredentialFixture(t)
	f.addLoginUser("alice", "pw")
	require.NoError(t, f.svc.CreateOTP(context.Background(), "alice"))
	require.NoError(t, f.svc.CreateOTP(context.Background(), "alice"))
	msgs := f.identity.messages["alice"]
	require.Len(t, msgs, 2)

	codes := f.otps.codes()
	require.Len(t, codes, 2)

	_, err := f.svc.RedeemOTP(context.Background(), codes[0])
	require.NoError(t, err)
	assert.Equal(t, []string{codes[1]}, f.otps.codes())

	_, err = f.svc.RedeemOTP(context.Background(), codes[1])
	require.NoError(t, err)
	assert.Empty(t, f.otps.codes())
}

func TestRedeemExpiredOTPIsNotFound(t *testing.T) {
	f := newCredentialFixture(t)
	f.addLoginUser("alice", "pw")
	require.NoError(t, f.svc.CreateOTP(context.Background(), "alice"))
	code := f.otps.codes()[0]

	f.clock.advance(5 * time.Minute)

	_, err := f.svc.RedeemOTP(context.Background(), code)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, f.otps.codes(), "expired code is deleted on redemption attempt")
}

func TestRedeemOTPRechecksUser(t *testing.T) {
	f := newCredentialFixture(t)
	u := f.addLoginUser("alice", "pw")
	require.NoError(t, f.svc.CreateOTP(context.Background(), "alice"))
	code := f.otps.codes()[0]

	f.store.mu.Lock()
	f.store.users[u.ID].Permissions = domain.Capabilities{}
	f.store.mu.Unlock()

	_, err := f.svc.RedeemOTP(context.Background(), code)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestSweepExpiredOTPs(t *testing.T) {
	f := newCredentialFixture(t)
	f.addLoginUser("alice", "pw")
	require.NoError(t, f.svc.CreateOTP(context.Background(), "alice"))
	f.clock.advance(time.Minute)
	require.NoError(t, f.svc.CreateOTP(context.Background(), "alice"))

	f.clock.advance(4*time.Minute + time.Second)
	n, err := f.svc.SweepExpiredOTPs(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Len(t, f.otps.codes(), 1)
}

func TestRandomCodeUsesAlphabet(t *testing.T) {
	code, err := randomCode(32)
	require.NoError(t, err)
	assert.Len(t, code, 32)
	for _, r := range code {
		assert.Contains(t, otpAlphabet, string(r))
	}
}

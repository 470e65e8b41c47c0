package impl

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"modreview/internal/domain"
	"modreview/internal/dto"
	"modreview/internal/netutil"
	"modreview/internal/observability/metrics"
	"modreview/internal/service"
	"modreview/internal/store"
)

var _ service.CredentialService = (*CredentialServiceImpl)(nil)

const (
	tokenBytes       = 32
	maxCreateRetries = 5
	otpAlphabet      = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

type CredentialConfig struct {
	OTPTTL    time.Duration
	OTPLength int
}

type CredentialServiceImpl struct {
	Users     userStore
	Tokens    tokenStore
	OTPs      otpStore
	Passwords service.PasswordService
	Identity  service.IdentityProvider

	cfg CredentialConfig
	now func() time.Time
}

func NewCredentialServiceImpl(
	st *store.Store,
	cfg CredentialConfig,
	passwords service.PasswordService,
	identity service.IdentityProvider,
) *CredentialServiceImpl {
	return &CredentialServiceImpl{
		Users:     st.Users(),
		Tokens:    st.Tokens(),
		OTPs:      st.OTPs(),
		Passwords: passwords,
		Identity:  identity,
		cfg:       withCredentialDefaults(cfg),
		now:       utcNow,
	}
}

func withCredentialDefaults(cfg CredentialConfig) CredentialConfig {
	if cfg.OTPTTL <= 0 {
		cfg.OTPTTL = 10 * time.Minute
	}
	if cfg.OTPLength <= 0 {
		cfg.OTPLength = 8
	}
	return cfg
}

func (c *CredentialServiceImpl) IssueToken(ctx context.Context, user *domain.User) (*domain.AuthToken, error) {
	return c.issue(ctx, user, "direct")
}

func (c *CredentialServiceImpl) issue(ctx context.Context, user *domain.User, flow string) (*domain.AuthToken, error) {
	result := "success"
	defer func() {
		metrics.TokensIssuedTotal.WithLabelValues(flow, result).Inc()
	}()

	var tok *domain.AuthToken
	for attempt := 0; attempt < maxCreateRetries; attempt++ {
		raw, err := randomToken()
		if err != nil {
			result = "failure"
			return nil, fmt.Errorf("%w: %v", domain.ErrInternal, err)
		}
		tok = &domain.AuthToken{UserID: user.ID, Token: raw, Created: c.now()}
		err = c.Tokens.Create(ctx, tok)
		if err == nil {
			break
		}
		tok = nil
		if !errors.Is(err, store.ErrDuplicate) {
			result = "failure"
			return nil, fmt.Errorf("%w: %v", domain.ErrInternal, err)
		}
	}
	if tok == nil {
		result = "failure"
		return nil, fmt.Errorf("%w: %v", domain.ErrInternal, ErrTokenSpace)
	}

	slog.Info("issued auth token", append([]any{"user_id", user.ID, "flow", flow}, requestAttrs(ctx)...)...)
	return tok, nil
}

func (c *CredentialServiceImpl) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrUnauthorized
	}
	tok, err := c.Tokens.GetByToken(ctx, token)
	if err != nil {
		return nil, lookupErr(err, domain.ErrUnauthorized)
	}
	user, err := c.Users.GetByID(ctx, tok.UserID)
	if err != nil {
		return nil, lookupErr(err, domain.ErrUnauthorized)
	}
	return user, nil
}

func (c *CredentialServiceImpl) Revoke(ctx context.Context, token string) error {
	if err := c.Tokens.Delete(ctx, token); err != nil {
		return lookupErr(err, domain.ErrUnauthorized)
	}
	slog.Info("revoked auth token", requestAttrs(ctx)...)
	return nil
}

// Login answers every rejected attempt with the same ErrUnauthorized. The
// password is compared even when the user does not exist so response time
// does not reveal which usernames are taken.
func (c *CredentialServiceImpl) Login(ctx context.Context, r dto.LoginRequest, ip, ua string) (*domain.AuthToken, error) {
	result := "success"
	defer func() {
		metrics.LoginsTotal.WithLabelValues("password", result).Inc()
	}()

	user, err := c.Users.GetByUsername(ctx, r.Username)
	if err != nil && !errors.Is(err, store.ErrRecordNotFound) {
		result = "error"
		return nil, fmt.Errorf("%w: %v", domain.ErrInternal, err)
	}

	hash := ""
	if user != nil {
		hash = user.Password
	}
	match := c.Passwords.Verify(r.Password, hash)

	if user == nil || !match || !user.CanLogin() {
		result = "failure"
		slog.Info("login rejected", append([]any{
			"username", r.Username,
			"ip", ip,
			"user_agent", netutil.TruncateUserAgent(ua),
		}, requestAttrs(ctx)...)...)
		return nil, domain.ErrUnauthorized
	}

	tok, err := c.issue(ctx, user, "password")
	if err != nil {
		result = "error"
		return nil, err
	}
	return tok, nil
}

func (c *CredentialServiceImpl) CreateOTP(ctx context.Context, username string) error {
	result := "success"
	defer func() {
		metrics.OTPsTotal.WithLabelValues("create", result).Inc()
	}()

	user, err := c.Users.GetByUsername(ctx, username)
	if err != nil {
		result = "failure"
		return lookupErr(err, domain.ErrUnauthorized)
	}
	if !user.CanLogin() {
		result = "failure"
		return domain.ErrUnauthorized
	}

	now := c.now()
	var otp *domain.OneTimePassword
	for attempt := 0; attempt < maxCreateRetries && otp == nil; attempt++ {
		code, err := randomCode(c.cfg.OTPLength)
		if err != nil {
			result = "error"
			return fmt.Errorf("%w: %v", domain.ErrInternal, err)
		}
		candidate := &domain.OneTimePassword{
			UserID:     user.ID,
			Password:   code,
			Expiration: now.Add(c.cfg.OTPTTL),
			Created:    now,
		}
		switch err := c.OTPs.Create(ctx, candidate); {
		case err == nil:
			otp = candidate
		case !errors.Is(err, store.ErrDuplicate):
			result = "error"
			return fmt.Errorf("%w: %v", domain.ErrInternal, err)
		}
	}
	if otp == nil {
		result = "error"
		return fmt.Errorf("%w: %v", domain.ErrInternal, ErrTokenSpace)
	}

	text := fmt.Sprintf("Your one-time login code is %s. It expires in %s.", otp.Password, c.cfg.OTPTTL)
	if err := c.Identity.SendMessage(ctx, user.Username, text); err != nil {
		result = "delivery_failure"
		// An undelivered code must not stay redeemable.
		if derr := c.OTPs.DeleteByID(context.WithoutCancel(ctx), otp.ID); derr != nil {
			slog.Error("failed to delete undelivered otp", append([]any{"otp_id", otp.ID, "error", derr}, requestAttrs(ctx)...)...)
		}
		slog.Warn("otp delivery failed", append([]any{"user_id", user.ID, "error", err}, requestAttrs(ctx)...)...)
		return fmt.Errorf("%w: %v", domain.ErrExternalService, err)
	}

	slog.Info("created otp", append([]any{"user_id", user.ID, "expires_at", otp.Expiration}, requestAttrs(ctx)...)...)
	return nil
}

// RedeemOTP consumes code and issues a token. Missing and expired codes are
// both reported as ErrNotFound.
func (c *CredentialServiceImpl) RedeemOTP(ctx context.Context, code string) (*domain.AuthToken, error) {
	result := "success"
	defer func() {
		metrics.OTPsTotal.WithLabelValues("redeem", result).Inc()
	}()

	code = strings.TrimSpace(code)
	if code == "" {
		result = "failure"
		return nil, domain.ErrNotFound
	}
	otp, err := c.OTPs.Consume(ctx, code)
	if err != nil {
		result = "failure"
		return nil, lookupErr(err, domain.ErrNotFound)
	}
	if otp.Expired(c.now()) {
		result = "expired"
		return nil, domain.ErrNotFound
	}

	user, err := c.Users.GetByID(ctx, otp.UserID)
	if err != nil {
		result = "failure"
		return nil, lookupErr(err, domain.ErrUnauthorized)
	}
	if !user.CanLogin() {
		result = "failure"
		return nil, domain.ErrUnauthorized
	}

	tok, err := c.issue(ctx, user, "otp")
	if err != nil {
		result = "error"
		return nil, err
	}
	slog.Info("redeemed otp", append([]any{"user_id", user.ID}, requestAttrs(ctx)...)...)
	return tok, nil
}

// SweepExpiredOTPs deletes every OTP past its expiry.
func (c *CredentialServiceImpl) SweepExpiredOTPs(ctx context.Context) (int64, error) {
	n, err := c.OTPs.DeleteExpired(ctx, c.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		slog.Debug("swept expired otps", "count", n)
	}
	return n, nil
}

func randomToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func randomCode(n int) (string, error) {
	limit := big.NewInt(int64(len(otpAlphabet)))
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b.WriteByte(otpAlphabet[idx.Int64()])
	}
	return b.String(), nil
}

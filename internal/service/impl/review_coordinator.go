package impl

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"modreview/internal/domain"
	"modreview/internal/observability/metrics"
)

type claim struct {
	owner domain.UserID
	at    time.Time
}

// ReviewCoordinator hands out Found users to moderators so that no two
// moderators hold the same user at once. Claims live in memory only and are
// lost on restart.
type ReviewCoordinator struct {
	users candidateStore
	ttl   time.Duration
	now   func() time.Time

	mu     sync.Mutex
	claims map[domain.UserID]claim
}

// NewReviewCoordinator builds a coordinator over users. A ttl of zero keeps
// claims until they are released.
func NewReviewCoordinator(users candidateStore, ttl time.Duration) *ReviewCoordinator {
	return &ReviewCoordinator{
		users:  users,
		ttl:    ttl,
		now:    utcNow,
		claims: make(map[domain.UserID]claim),
	}
}

// Next claims the oldest Found user nobody holds. It returns
// domain.ErrNoCandidates once every Found user is claimed.
func (c *ReviewCoordinator) Next(ctx context.Context, moderator *domain.User) (*domain.User, error) {
	users, err := c.users.ListByStatus(ctx, domain.StatusFound)
	if err != nil {
		return nil, lookupErr(err, domain.ErrNotFound)
	}
	sort.SliceStable(users, func(i, j int) bool {
		if !users[i].Created.Equal(users[j].Created) {
			return users[i].Created.Before(users[j].Created)
		}
		return users[i].ID < users[j].ID
	})

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.expireLocked(now)
	for _, u := range users {
		if _, taken := c.claims[u.ID]; taken {
			continue
		}
		c.claims[u.ID] = claim{owner: moderator.ID, at: now}
		c.publishLocked()
		slog.Info("review claimed", append([]any{"user_id", u.ID, "moderator_id", moderator.ID, "mode", "next"}, requestAttrs(ctx)...)...)
		return u, nil
	}
	return nil, domain.ErrNoCandidates
}

// Claim looks up username and claims it for moderator. Claiming a user the
// moderator already holds succeeds. A user held by someone else, or no longer
// Found, is returned without changing any claim. fresh reports whether this
// call created the claim.
func (c *ReviewCoordinator) Claim(ctx context.Context, username string, moderator *domain.User) (u *domain.User, fresh bool, err error) {
	u, err = c.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, false, lookupErr(err, domain.ErrNotFound)
	}
	if u.Status != domain.StatusFound {
		return u, false, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.expireLocked(now)
	existing, held := c.claims[u.ID]
	switch {
	case !held:
		c.claims[u.ID] = claim{owner: moderator.ID, at: now}
		c.publishLocked()
		fresh = true
		slog.Info("review claimed", append([]any{"user_id", u.ID, "moderator_id", moderator.ID, "mode", "named"}, requestAttrs(ctx)...)...)
	case existing.owner == moderator.ID:
		c.claims[u.ID] = claim{owner: moderator.ID, at: now}
	}
	return u, fresh, nil
}

// Release drops any claim on id.
func (c *ReviewCoordinator) Release(id domain.UserID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.claims[id]; ok {
		delete(c.claims, id)
		c.publishLocked()
	}
}

// ReleaseOwned drops the claim on id only if owner holds it.
func (c *ReviewCoordinator) ReleaseOwned(id, owner domain.UserID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	cl, ok := c.claims[id]
	if !ok || cl.owner != owner {
		return false
	}
	delete(c.claims, id)
	c.publishLocked()
	return true
}

// Holder returns the moderator holding id, if any.
func (c *ReviewCoordinator) Holder(id domain.UserID) (domain.UserID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expireLocked(c.now())
	cl, ok := c.claims[id]
	return cl.owner, ok
}

func (c *ReviewCoordinator) expireLocked(now time.Time) {
	if c.ttl <= 0 {
		return
	}
	expired := false
	for id, cl := range c.claims {
		if now.Sub(cl.at) >= c.ttl {
			delete(c.claims, id)
			expired = true
		}
	}
	if expired {
		c.publishLocked()
	}
}

func (c *ReviewCoordinator) publishLocked() {
	metrics.ActiveClaims.Set(float64(len(c.claims)))
}

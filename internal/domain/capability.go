package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
)

// Capability is a named permission checked on its own, independent of any
// other capability the user holds.
type Capability string

const (
	CapModerator   Capability = "moderator"
	CapApproveUser Capability = "approve_user"
	CapLogin       Capability = "login"
)

var knownCapabilities = map[Capability]struct{}{
	CapModerator:   {},
	CapApproveUser: {},
	CapLogin:       {},
}

func ParseCapability(s string) (Capability, error) {
	c := Capability(s)
	if _, ok := knownCapabilities[c]; !ok {
		return "", fmt.Errorf("%w: unknown capability %q", ErrBadRequest, s)
	}
	return c, nil
}

// Capabilities is a set of named flags. It is stored as a JSON object of
// booleans so that rows written by older tooling
// ({"moderator":true,"approve_user":false,"login":true}) read back unchanged.
type Capabilities map[Capability]bool

func NewCapabilities(caps ...Capability) Capabilities {
	out := make(Capabilities, len(caps))
	for _, c := range caps {
		out[c] = true
	}
	return out
}

func (c Capabilities) Has(capability Capability) bool {
	return c[capability]
}

// Grant returns c with capability set, allocating when c is nil.
func (c Capabilities) Grant(capability Capability) Capabilities {
	if c == nil {
		c = Capabilities{}
	}
	c[capability] = true
	return c
}

func (c Capabilities) Revoke(capability Capability) Capabilities {
	if c == nil {
		return Capabilities{}
	}
	c[capability] = false
	return c
}

// List returns the held capabilities in sorted order.
func (c Capabilities) List() []Capability {
	out := make([]Capability, 0, len(c))
	for k, v := range c {
		if v {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Value implements driver.Valuer.
func (c Capabilities) Value() (driver.Value, error) {
	if c == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[Capability]bool(c))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (c *Capabilities) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*c = Capabilities{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("domain.Capabilities: unsupported type %T", value)
	}
	out := Capabilities{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return fmt.Errorf("domain.Capabilities: %w", err)
		}
	}
	*c = out
	return nil
}

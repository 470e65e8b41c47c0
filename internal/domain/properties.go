package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Properties holds the free-form profile fields moderators may edit.
type Properties struct {
	Avatar      *string `json:"avatar,omitempty"`
	Description *string `json:"description,omitempty"`
}

// PropertyKey names a Properties field editable through the moderator API.
type PropertyKey string

const (
	PropertyAvatar      PropertyKey = "avatar"
	PropertyDescription PropertyKey = "description"
)

func ParsePropertyKey(s string) (PropertyKey, error) {
	switch k := PropertyKey(s); k {
	case PropertyAvatar, PropertyDescription:
		return k, nil
	}
	return "", fmt.Errorf("%w: unknown property %q", ErrBadRequest, s)
}

// Set assigns value to the field named by key.
func (p *Properties) Set(key PropertyKey, value string) error {
	switch key {
	case PropertyAvatar:
		p.Avatar = &value
	case PropertyDescription:
		p.Description = &value
	default:
		_, err := ParsePropertyKey(string(key))
		return err
	}
	return nil
}

// Value implements driver.Valuer.
func (p Properties) Value() (driver.Value, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (p *Properties) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*p = Properties{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("domain.Properties: unsupported type %T", value)
	}
	var out Properties
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return fmt.Errorf("domain.Properties: %w", err)
		}
	}
	*p = out
	return nil
}

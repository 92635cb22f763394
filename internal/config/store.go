package config

import (
	"fmt"
	"net/url"

	"github.com/zasterix/zasterix/internal/domain"
)

// Tier is the privilege level of the store connection.
type Tier string

const (
	// TierServiceRole connects with full read/write privileges.
	TierServiceRole Tier = "service_role"
	// TierAnon connects read-only.
	TierAnon Tier = "anon"
)

// Configured reports whether Resolve would succeed.
func (s Store) Configured() bool {
	_, _, err := s.Resolve()
	return err == nil
}

// Resolve returns the connection string and privilege tier. The service-role
// key wins over the anonymous key; a key is set as the password of the URL.
// A URL that already carries a password counts as service role. Missing
// credentials yield domain.ErrNotConfigured.
func (s Store) Resolve() (string, Tier, error) {
	if s.URL == "" {
		return "", "", fmt.Errorf("store url missing: %w", domain.ErrNotConfigured)
	}
	u, err := url.Parse(s.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", "", fmt.Errorf("store url invalid: %w", domain.ErrNotConfigured)
	}

	var key string
	tier := TierServiceRole
	switch {
	case s.ServiceRoleKey != "":
		key = s.ServiceRoleKey
	case s.AnonKey != "":
		key, tier = s.AnonKey, TierAnon
	}

	if key == "" {
		if _, hasPassword := u.User.Password(); !hasPassword {
			return "", "", fmt.Errorf("store key missing: %w", domain.ErrNotConfigured)
		}
		return u.String(), tier, nil
	}

	user := "postgres"
	if u.User != nil && u.User.Username() != "" {
		user = u.User.Username()
	}
	u.User = url.UserPassword(user, key)
	return u.String(), tier, nil
}

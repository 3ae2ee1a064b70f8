package main

import (
	"context"
	"fmt"
	"strings"
)

type seedUser struct {
	login    string
	password string
	role     string
}

type seedList []seedUser

func (s *seedList) String() string {
	if s == nil {
		return ""
	}
	logins := make([]string, 0, len(*s))
	for _, u := range *s {
		logins = append(logins, u.login)
	}
	return strings.Join(logins, ",")
}

func (s *seedList) Set(v string) error {
	first, last := strings.Index(v, ":"), strings.LastIndex(v, ":")
	if first <= 0 || last == first || last == len(v)-1 || last == first+1 {
		return fmt.Errorf("seed %q: want login:password:role", v)
	}
	*s = append(*s, seedUser{login: v[:first], password: v[first+1 : last], role: v[last+1:]})
	return nil
}

type passwordHasher interface {
	HashPassword(plaintext string) (string, error)
}

type userCreator interface {
	create(ctx context.Context, login, passwordHash, role string) (string, error)
}

// seedUsers creates every seed user with a pending password change, the same
// state a freshly provisioned account starts in.
func seedUsers(ctx context.Context, hasher passwordHasher, store userCreator, seeds seedList) ([]string, error) {
	ids := make([]string, 0, len(seeds))
	for _, u := range seeds {
		hash, err := hasher.HashPassword(u.password)
		if err != nil {
			return nil, fmt.Errorf("seed %s: %w", u.login, err)
		}
		id, err := store.create(ctx, u.login, hash, u.role)
		if err != nil {
			return nil, fmt.Errorf("seed %s: %w", u.login, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

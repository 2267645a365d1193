// Package admin derives an admin tier from an account email using the
// configured tier lists.
package admin

import (
	"fmt"

	"github.com/dmitrijs2005/lootshop/internal/authz"
	"github.com/dmitrijs2005/lootshop/internal/common"
)

// Tiers are the configured admin email lists.
type Tiers struct {
	Super   []string
	Manager []string
	Basic   []string
}

// Authorizer is immutable after construction and safe for concurrent use.
type Authorizer struct {
	levels map[string]authz.Level
}

// NewAuthorizer normalizes the lists and rejects an email configured in
// more than one tier.
func NewAuthorizer(t Tiers) (*Authorizer, error) {
	a := &Authorizer{levels: make(map[string]authz.Level)}

	for _, tier := range []struct {
		level  authz.Level
		emails []string
	}{
		{authz.LevelSuper, t.Super},
		{authz.LevelManager, t.Manager},
		{authz.LevelBasic, t.Basic},
	} {
		for _, raw := range tier.emails {
			email := common.NormalizeEmail(raw)
			if email == "" {
				continue
			}
			if prev, ok := a.levels[email]; ok && prev != tier.level {
				return nil, fmt.Errorf("admin tiers overlap: an email is listed as both %s and %s", prev, tier.level)
			}
			a.levels[email] = tier.level
		}
	}

	return a, nil
}

// Authorize returns the authorization for email; unknown emails get level 0
// with every permission false.
func (a *Authorizer) Authorize(email string) authz.Authorization {
	return authz.For(a.levels[common.NormalizeEmail(email)])
}

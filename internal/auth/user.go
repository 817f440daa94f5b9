package auth

import (
	"context"
	"strings"
)

// CurrentUser resolves the display name of whoever is making a change.
type CurrentUser interface {
	DisplayName() (string, bool)
}

// StaticUser is a fixed identity, used by command line tools.
type StaticUser string

func (u StaticUser) DisplayName() (string, bool) {
	name := strings.TrimSpace(string(u))
	return name, name != ""
}

// ContextUser reads the identity from the claims stored by AuthMiddleware.
type ContextUser struct {
	Ctx context.Context
}

func (u ContextUser) DisplayName() (string, bool) {
	if u.Ctx == nil {
		return "", false
	}
	claims := ClaimsFromContext(u.Ctx)
	if claims == nil {
		return "", false
	}
	name := strings.TrimSpace(claims.Name)
	return name, name != ""
}

// Actor returns the user's display name or fallback when nobody is signed in.
func Actor(u CurrentUser, fallback string) string {
	if u != nil {
		if name, ok := u.DisplayName(); ok {
			return name
		}
	}
	return fallback
}

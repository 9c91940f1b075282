package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/nutrikeeper/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for an email, a display name and a password and creates
// a local account. The new account is signed in right away.
func (a *App) Register(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	name, err := getSimpleText(a.reader, "Enter display name (optional)", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	s, err := a.sessions.Register(ctx, email, string(password), name)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Registered and signed in as %s\n", s.Email)
	return nil
}

// Login prompts for credentials and opens a session. Any failure is
// reported with the same message.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	s, err := a.sessions.Login(ctx, email, string(password))
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Signed in as %s\n", s.Email)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.sessions.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Signed out")
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	s, err := a.sessions.RequireSession(ctx)
	if err != nil {
		return err
	}

	cred, err := a.sessions.Credential(ctx, s.Email)
	if err != nil {
		return err
	}

	role := "user"
	if a.sessions.IsAdmin(s) {
		role = "admin"
	}
	name := s.Email
	if cred != nil && cred.DisplayName != "" {
		name = cred.DisplayName
	}
	fmt.Fprintf(a.out, "%s <%s>, %s, session expires %s\n", name, s.Email, role, s.ExpiresAt.Format("2006-01-02 15:04"))
	return nil
}

// describe turns an error into the message shown to the user.
func describe(err error) string {
	switch {
	case errors.Is(err, common.ErrInvalidCredentials):
		return "invalid email or password"
	case errors.Is(err, common.ErrUnauthenticated):
		return "please log in first"
	case errors.Is(err, common.ErrPermissionDenied):
		return "permission denied: " + err.Error()
	case errors.Is(err, common.ErrQuotaExceeded):
		return "local storage is full, delete some records and try again"
	}
	return err.Error()
}

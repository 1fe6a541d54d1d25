// Package session makes sure the operator is logged in to the command line
// tools before anything is created remotely.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/rumor-ml/commons.systems/fbprovision/internal/output"
)

// ErrNotAuthenticated is wrapped when no account is active after login.
var ErrNotAuthenticated = errors.New("not authenticated")

// Provider is an identity provider with an interactive login.
type Provider interface {
	// Name is used in progress messages, e.g. "gcloud".
	Name() string
	// ActiveAccount returns the current account, or "" when none is active.
	ActiveAccount(ctx context.Context) (string, error)
	// Login runs the interactive login flow and blocks until it finishes.
	Login(ctx context.Context) error
}

// Ensure returns the active account of p, logging in first when there is
// none. Login failure is fatal.
func Ensure(ctx context.Context, p Provider, out *output.Printer) (string, error) {
	account, err := p.ActiveAccount(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to query %s accounts: %w", p.Name(), err)
	}

	if account == "" {
		out.Info(fmt.Sprintf("Not authenticated with %s. Opening browser for authentication...", p.Name()))
		if err := p.Login(ctx); err != nil {
			return "", fmt.Errorf("%s login failed: %w: %v", p.Name(), ErrNotAuthenticated, err)
		}

		account, err = p.ActiveAccount(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to get active %s account: %w", p.Name(), err)
		}
		if account == "" {
			return "", fmt.Errorf("%s: %w after login", p.Name(), ErrNotAuthenticated)
		}
	}

	out.Success(fmt.Sprintf("%s authenticated as: %s", p.Name(), account))
	return account, nil
}

// Package cloudapi talks to Cloud Resource Manager and the Firebase
// Management API over REST instead of shelling out to the CLIs.
package cloudapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	crm "google.golang.org/api/cloudresourcemanager/v1"
	fb "google.golang.org/api/firebase/v1beta1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// DefaultPollInterval is the delay between long-running operation polls.
const DefaultPollInterval = 2 * time.Second

// gcloud access tokens are valid for an hour; refresh a little earlier.
const tokenLifetime = 50 * time.Minute

// TokenFunc returns a fresh OAuth access token, e.g. from
// "gcloud auth print-access-token".
type TokenFunc func(ctx context.Context) (string, error)

type tokenSource struct {
	ctx   context.Context
	fetch TokenFunc
}

func (s *tokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.fetch(s.ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain access token: %w", err)
	}
	return &oauth2.Token{AccessToken: tok, TokenType: "Bearer", Expiry: time.Now().Add(tokenLifetime)}, nil
}

// TokenSource adapts fetch to a caching oauth2.TokenSource.
func TokenSource(ctx context.Context, fetch TokenFunc) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(nil, &tokenSource{ctx: ctx, fetch: fetch})
}

// Client holds the REST services. Projects implements gcp.Projects and
// Firebase implements firebase.Service.
type Client struct {
	opts     []option.ClientOption
	projects *crm.Service

	mu       sync.Mutex
	firebase map[string]*fb.Service // keyed by quota project

	// PollInterval is the delay between operation polls.
	PollInterval time.Duration
}

// New creates REST clients authenticated by ts. Extra options are applied
// to every service.
func New(ctx context.Context, ts oauth2.TokenSource, opts ...option.ClientOption) (*Client, error) {
	all := append([]option.ClientOption{option.WithTokenSource(ts)}, opts...)

	projects, err := crm.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource manager client: %w", err)
	}

	return &Client{
		opts:         all,
		projects:     projects,
		firebase:     make(map[string]*fb.Service),
		PollInterval: DefaultPollInterval,
	}, nil
}

// Projects returns the cloud project API.
func (c *Client) Projects() *Projects {
	return &Projects{c: c}
}

// Firebase returns the Firebase management API.
func (c *Client) Firebase() *Firebase {
	return &Firebase{c: c}
}

// firebaseService returns a Firebase client billing quota to projectID,
// which user credentials require.
func (c *Client) firebaseService(ctx context.Context, projectID string) (*fb.Service, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if svc, ok := c.firebase[projectID]; ok {
		return svc, nil
	}
	opts := append(append([]option.ClientOption(nil), c.opts...), option.WithQuotaProject(projectID))
	svc, err := fb.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firebase client: %w", err)
	}
	c.firebase[projectID] = svc
	return svc, nil
}

// waitFor polls op with refresh until done reports true.
func waitFor[T any](ctx context.Context, interval time.Duration, op T, done func(T) bool, refresh func(T) (T, error)) (T, error) {
	for !done(op) {
		if err := ctx.Err(); err != nil {
			return op, err
		}
		select {
		case <-ctx.Done():
			return op, ctx.Err()
		case <-time.After(interval):
		}
		next, err := refresh(op)
		if err != nil {
			return op, err
		}
		op = next
	}
	return op, nil
}

func hasStatus(err error, codes ...int) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return false
	}
	for _, code := range codes {
		if gerr.Code == code {
			return true
		}
	}
	return false
}

// notFound covers 403 as well: the APIs answer permission denied for ids
// that do not exist.
func notFound(err error) bool {
	return hasStatus(err, http.StatusNotFound, http.StatusForbidden)
}

package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/storefront-admin/internal/errors"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
)

const requestIDHeader = "X-Request-ID"

// Collaborator is the set of storefront auth endpoints a session depends on.
type Collaborator interface {
	Login(ctx context.Context, credentials Credentials) (*LoginResponse, error)
	AdminLogin(ctx context.Context, credentials Credentials) (*LoginResponse, error)
	Profile(ctx context.Context, accessToken *oauth2.Token) (*ProfileResponse, error)
}

var _ Collaborator = (*Client)(nil)

// Client talks to the storefront REST API.
type Client struct {
	http *resty.Client
}

type ClientOption func(*resty.Client)

// WithTransport routes requests through rt
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(c *resty.Client) {
		c.SetTransport(rt)
	}
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *resty.Client) {
		c.SetTimeout(timeout)
	}
}

func NewClient(baseURL string, options ...ClientOption) *Client {
	rc := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal)

	for _, opt := range options {
		opt(rc)
	}
	return &Client{http: rc}
}

func (c *Client) Login(ctx context.Context, credentials Credentials) (*LoginResponse, error) {
	return c.login(ctx, "Login", RouteLogin, credentials)
}

func (c *Client) AdminLogin(ctx context.Context, credentials Credentials) (*LoginResponse, error) {
	return c.login(ctx, "AdminLogin", RouteAdminLogin, credentials)
}

func (c *Client) Profile(ctx context.Context, accessToken *oauth2.Token) (*ProfileResponse, error) {
	if accessToken == nil || accessToken.AccessToken == "" {
		return nil, &Error{Op: "Profile", Err: apperrors.ErrInvalidToken}
	}

	resp, err := c.request(ctx).
		SetAuthScheme(accessToken.Type()).
		SetAuthToken(accessToken.AccessToken).
		Get(RouteProfile)
	return decode[ProfileData]("Profile", resp, err)
}

func (c *Client) login(ctx context.Context, op, route string, credentials Credentials) (*LoginResponse, error) {
	resp, err := c.request(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(credentials).
		Post(route)
	return decode[LoginData](op, resp, err)
}

func (c *Client) request(ctx context.Context) *resty.Request {
	requestID := uuid.New().String()
	log.Debug().Str("request_id", requestID).Msg("storefront api request")
	return c.http.R().
		SetContext(ctx).
		SetHeader(requestIDHeader, requestID)
}

// decode turns a resty result into an envelope. A body carrying a boolean success
// field is a well-formed reply whatever the status code; anything else is an *Error.
func decode[T any](op string, resp *resty.Response, err error) (*Envelope[T], error) {
	if err != nil {
		apiErr := &Error{Op: op, Err: fmt.Errorf("%w: %w", apperrors.ErrTransport, err)}
		if resp != nil {
			apiErr.StatusCode = resp.StatusCode()
			apiErr.Body = resp.Body()
		}
		return nil, apiErr
	}

	body := resp.Body()
	if success := gjson.GetBytes(body, "success"); !success.IsBool() {
		return nil, &Error{
			Op:         op,
			StatusCode: resp.StatusCode(),
			Body:       body,
			Err:        fmt.Errorf("%w: unexpected %s response", apperrors.ErrMalformedResponse, resp.Status()),
		}
	}

	var envelope Envelope[T]
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &Error{
			Op:         op,
			StatusCode: resp.StatusCode(),
			Body:       body,
			Err:        fmt.Errorf("%w: %v", apperrors.ErrMalformedResponse, err),
		}
	}
	return &envelope, nil
}

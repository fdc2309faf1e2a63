package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/FeS1111/TSP/internal/logger"
	"github.com/FeS1111/TSP/internal/tokenstore"
)

const maxBodyBytes = 4 << 20

const (
	tokenLoginPath = "/api/auth/login/"

	// pageLoginPath is the browser sign-in form. It takes a form post and
	// keeps the issued token in a server-side session.
	pageLoginPath = "/login/"
)

// HTTPClient makes REST calls to the events backend. The bearer token is
// read from the store on every call, so a login or logout in one place is
// seen by all callers.
type HTTPClient struct {
	baseURL   string
	loginPath string
	store     tokenstore.Store
	transport *loggedTransport
	client    *http.Client
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) { c.client.Timeout = d }
}

// WithLogger sets the request logger.
func WithLogger(l logger.AppLogger) Option {
	return func(c *HTTPClient) { c.transport.log = l }
}

// WithLoginPath selects the login endpoint. "/login/" is posted as a form;
// any other path gets a JSON body.
func WithLoginPath(p string) Option {
	return func(c *HTTPClient) {
		if p != "" {
			c.loginPath = p
		}
	}
}

// WithTransport replaces the underlying round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *HTTPClient) { c.transport.base = rt }
}

// NewHTTPClient creates a client targeting baseURL (e.g. "http://127.0.0.1:8000").
func NewHTTPClient(baseURL string, store tokenstore.Store, opts ...Option) *HTTPClient {
	t := &loggedTransport{base: http.DefaultTransport, log: logger.Discard()}
	c := &HTTPClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		loginPath: tokenLoginPath,
		store:     store,
		transport: t,
		client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: t,
			// Redirects are answers, not something to chase: /logout/ replies
			// with one.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetObserver registers fn to receive every request record. Call it before
// the client is shared between goroutines.
func (c *HTTPClient) SetObserver(fn Observer) {
	c.transport.observer = fn
}

// BaseURL returns the backend base URL.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// Session returns the stored session, if any.
func (c *HTTPClient) Session() (tokenstore.Session, bool) {
	return c.store.Get()
}

// CurrentUser returns the logged-in user's profile. When the profile was not
// cached at login, the id is taken from the access token.
func (c *HTTPClient) CurrentUser() (tokenstore.Profile, bool) {
	s, ok := c.store.Get()
	if !ok {
		return tokenstore.Profile{}, false
	}
	if s.User != nil {
		return *s.User, true
	}
	id, err := userIDFromToken(s.Access)
	if err != nil {
		return tokenstore.Profile{}, false
	}
	return tokenstore.Profile{ID: id}, true
}

// Login exchanges credentials for a token pair and stores it.
func (c *HTTPClient) Login(ctx context.Context, username, password string) (tokenstore.Session, error) {
	const op = "client.Login"
	page := c.loginPath == pageLoginPath
	var body interface{} = credentials{Username: username, Password: password}
	if page {
		body = url.Values{"username": {username}, "password": {password}}
	}

	var out loginResponse
	if err := c.do(ctx, op, http.MethodPost, c.loginPath, body, false, &out); err != nil {
		return tokenstore.Session{}, loginError(err, page)
	}
	if out.Access == "" {
		return tokenstore.Session{}, &Error{Kind: KindAuth, Op: op, Message: "login response carried no access token"}
	}

	s := tokenstore.Session{Access: out.Access, Refresh: out.Refresh}
	if out.UserID != 0 {
		s.User = &tokenstore.Profile{ID: out.UserID, Username: out.Username, Email: out.Email}
	} else if id, err := userIDFromToken(out.Access); err == nil {
		s.User = &tokenstore.Profile{ID: id, Username: username}
	}
	if err := c.store.Set(s); err != nil {
		return tokenstore.Session{}, fmt.Errorf("store session: %w", err)
	}
	return s, nil
}

// loginError turns a rejected login into an AuthError. The token endpoint
// answers bad credentials with 400 or 401. The page form re-renders itself on
// failure and redirects on success, neither of which carries a token.
func loginError(err error, page bool) error {
	var ae *Error
	if !errors.As(err, &ae) || ae.Kind == KindNetwork {
		return err
	}
	switch {
	case ae.Kind == KindValidation:
		ae.Kind = KindAuth
	case page && ae.Status >= 300 && ae.Status < 400:
		ae.Kind = KindAuth
		ae.Message = "the login page keeps its token server-side; set api.login_path to " + tokenLoginPath
	case page && ae.Status >= 200 && ae.Status < 300:
		ae.Kind = KindAuth
		ae.Message = "invalid credentials"
	}
	return ae
}

// Register creates an account. It returns the server's confirmation text.
func (c *HTTPClient) Register(ctx context.Context, username, email, password string) (string, error) {
	var out messageResponse
	body := registration{Username: username, Email: email, Password: password}
	if err := c.do(ctx, "client.Register", http.MethodPost, "/api/auth/register/", body, false, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// ListEvents fetches /api/events/.
func (c *HTTPClient) ListEvents(ctx context.Context) ([]Event, error) {
	var out []Event
	if err := c.getList(ctx, "client.ListEvents", "/api/events/", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListReactions fetches the current user's reactions.
func (c *HTTPClient) ListReactions(ctx context.Context) ([]Reaction, error) {
	var out []Reaction
	if err := c.getList(ctx, "client.ListReactions", "/api/reactions/", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListCategories fetches /api/categories/.
func (c *HTTPClient) ListCategories(ctx context.Context) ([]Category, error) {
	var out []Category
	if err := c.getList(ctx, "client.ListCategories", "/api/categories/", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateEvent sends POST /api/events/.
func (c *HTTPClient) CreateEvent(ctx context.Context, d EventDraft) (Event, error) {
	var out Event
	if err := c.do(ctx, "client.CreateEvent", http.MethodPost, "/api/events/", d, true, &out); err != nil {
		return Event{}, err
	}
	return out, nil
}

// DeleteEvent sends DELETE /api/events/{id}/.
func (c *HTTPClient) DeleteEvent(ctx context.Context, id int64) error {
	return c.do(ctx, "client.DeleteEvent", http.MethodDelete, fmt.Sprintf("/api/events/%d/", id), nil, true, nil)
}

// SetReaction sends POST /api/reactions/. A duplicate reaction comes back as
// a ValidationError.
func (c *HTTPClient) SetReaction(ctx context.Context, eventID int64, t ReactionType) (Reaction, error) {
	const op = "client.SetReaction"
	if !t.Valid() {
		return Reaction{}, &Error{Kind: KindValidation, Op: op, Message: fmt.Sprintf("unknown reaction %q", t)}
	}
	var out Reaction
	if err := c.do(ctx, op, http.MethodPost, "/api/reactions/", reactionRequest{Event: eventID, Type: t}, true, &out); err != nil {
		return Reaction{}, err
	}
	return out, nil
}

// DeleteReaction sends DELETE /api/reactions/{id}/.
func (c *HTTPClient) DeleteReaction(ctx context.Context, reactionID int64) error {
	return c.do(ctx, "client.DeleteReaction", http.MethodDelete, fmt.Sprintf("/api/reactions/%d/", reactionID), nil, true, nil)
}

// Logout tells the backend to drop the session and clears the local one.
// The local session is cleared whatever happens on the network; the returned
// error only reports the server call.
func (c *HTTPClient) Logout(ctx context.Context) error {
	const op = "client.Logout"
	s, ok := c.store.Get()
	if !ok {
		return nil
	}

	err := c.logout(ctx, op, s)
	if clearErr := c.store.Clear(); clearErr != nil {
		return fmt.Errorf("clear session: %w", clearErr)
	}
	return err
}

func (c *HTTPClient) logout(ctx context.Context, op string, s tokenstore.Session) error {
	data, err := json.Marshal(logoutRequest{RefreshToken: s.Refresh})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/logout/", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.Access)
	resp, err := c.client.Do(req)
	if err != nil {
		return networkError(op, err)
	}
	defer resp.Body.Close()
	// /logout/ answers with a redirect to the login page.
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		return classify(op, resp.StatusCode, body)
	}
	return nil
}

// getList decodes either a bare JSON array or a paginated {"results": [...]}.
func (c *HTTPClient) getList(ctx context.Context, op, path string, out interface{}) error {
	var raw json.RawMessage
	if err := c.do(ctx, op, http.MethodGet, path, nil, true, &raw); err != nil {
		return err
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var page struct {
			Results json.RawMessage `json:"results"`
		}
		if err := json.Unmarshal(trimmed, &page); err != nil || page.Results == nil {
			return &Error{Kind: KindServer, Op: op, Message: "malformed list response", Err: err}
		}
		trimmed = page.Results
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return &Error{Kind: KindServer, Op: op, Message: "malformed list response", Err: err}
	}
	return nil
}

func (c *HTTPClient) do(ctx context.Context, op, method, path string, body interface{}, auth bool, out interface{}) error {
	var token string
	if auth {
		s, ok := c.store.Get()
		if !ok {
			return &Error{Kind: KindAuth, Op: op, Message: "not logged in", Err: ErrNoSession}
		}
		token = s.Access
	}

	var reader io.Reader
	var contentType string
	switch b := body.(type) {
	case nil:
	case url.Values:
		reader = strings.NewReader(b.Encode())
		contentType = "application/x-www-form-urlencoded"
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
		contentType = "application/json"
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return networkError(op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return networkError(op, err)
	}

	if resp.StatusCode >= 300 {
		c.transport.log.Debug("request rejected", op, "status", resp.StatusCode, "body", snippet(respBody))
		if resp.StatusCode == http.StatusUnauthorized && auth {
			// The token is known bad; keeping it would only skip the login view.
			if err := c.store.Clear(); err != nil {
				c.transport.log.Error(err, op, "step", "clear rejected session")
			}
		}
		return classify(op, resp.StatusCode, respBody)
	}

	if out != nil && len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return &Error{Kind: KindServer, Op: op, Status: resp.StatusCode, Message: "malformed response", Err: err}
		}
	}
	return nil
}

func snippet(b []byte) string {
	const limit = 200
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/FeS1111/TSP/internal/logger"
	"github.com/FeS1111/TSP/internal/tokenstore"
)

func loggedInStore() *tokenstore.MemoryStore {
	s := tokenstore.NewMemoryStore()
	s.Set(tokenstore.Session{Access: "acc", Refresh: "ref"})
	return s
}

func TestLoginStoresSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/auth/login/" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		var body credentials
		json.NewDecoder(r.Body).Decode(&body)
		if body.Username != "ann" || body.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail":"No active account found with the given credentials"}`))
			return
		}
		w.Write([]byte(`{"access":"a1","refresh":"r1","user_id":7,"username":"ann","email":"ann@example.com"}`))
	}))
	defer srv.Close()

	store := tokenstore.NewMemoryStore()
	c := NewHTTPClient(srv.URL, store)

	s, err := c.Login(context.Background(), "ann", "secret")
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if s.Access != "a1" || s.User == nil || s.User.ID != 7 {
		t.Errorf("session = %+v", s)
	}
	if got, ok := store.Get(); !ok || got.Refresh != "r1" {
		t.Errorf("stored session = %+v, %v", got, ok)
	}

	user, ok := c.CurrentUser()
	if !ok || user.Username != "ann" {
		t.Errorf("CurrentUser() = %+v, %v", user, ok)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{
			name:    "token endpoint 401",
			status:  http.StatusUnauthorized,
			body:    `{"detail":"No active account found with the given credentials"}`,
			message: "No active account found with the given credentials",
		},
		{
			name:    "token endpoint 400",
			status:  http.StatusBadRequest,
			body:    `{"non_field_errors":["Unable to log in with provided credentials."]}`,
			message: "Unable to log in with provided credentials.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			store := tokenstore.NewMemoryStore()
			_, err := NewHTTPClient(srv.URL, store).Login(context.Background(), "ann", "wrong")
			if !IsKind(err, KindAuth) {
				t.Fatalf("expected AuthError, got %v", err)
			}
			if MessageOf(err) != tt.message {
				t.Errorf("message = %q", MessageOf(err))
			}
			if _, ok := store.Get(); ok {
				t.Error("failed login must not store a session")
			}
		})
	}
}

func TestLoginPagePostsForm(t *testing.T) {
	var path, contentType, user string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		contentType = r.Header.Get("Content-Type")
		user = r.FormValue("username")
		w.Write([]byte(`{"access":"a","refresh":"r"}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, tokenstore.NewMemoryStore(), WithLoginPath("/login/"))
	if _, err := c.Login(context.Background(), "u", "p"); err != nil {
		t.Fatal(err)
	}
	if path != "/login/" {
		t.Errorf("login path = %q, want /login/", path)
	}
	if contentType != "application/x-www-form-urlencoded" || user != "u" {
		t.Errorf("Content-Type = %q, username = %q", contentType, user)
	}
}

func TestLoginPageWithoutToken(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		message string
	}{
		{
			name: "redirect after sign-in",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Location", "/api/map/")
				w.WriteHeader(http.StatusFound)
			},
			message: "the login page keeps its token server-side; set api.login_path to /api/auth/login/",
		},
		{
			name: "form rendered again",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.Write([]byte(`<html><body><p class="error">Invalid</p></body></html>`))
			},
			message: "invalid credentials",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			store := tokenstore.NewMemoryStore()
			c := NewHTTPClient(srv.URL, store, WithLoginPath("/login/"))
			_, err := c.Login(context.Background(), "ann", "secret")
			if !IsKind(err, KindAuth) {
				t.Fatalf("expected AuthError, got %v", err)
			}
			if MessageOf(err) != tt.message {
				t.Errorf("message = %q", MessageOf(err))
			}
			if _, ok := store.Get(); ok {
				t.Error("no session should be stored")
			}
		})
	}
}

func TestRegisterValidationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"username":["A user with that username already exists."]}`))
	}))
	defer srv.Close()

	_, err := NewHTTPClient(srv.URL, tokenstore.NewMemoryStore()).
		Register(context.Background(), "ann", "ann@example.com", "password1")
	if !IsKind(err, KindValidation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	var ae *Error
	errors.As(err, &ae)
	if len(ae.Fields["username"]) != 1 {
		t.Errorf("Fields = %v", ae.Fields)
	}
}

func TestRegisterSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"message":"registered"}`))
	}))
	defer srv.Close()

	msg, err := NewHTTPClient(srv.URL, tokenstore.NewMemoryStore()).
		Register(context.Background(), "ann", "ann@example.com", "password1")
	if err != nil || msg != "registered" {
		t.Fatalf("Register() = %q, %v", msg, err)
	}
}

func TestListEventsDecodesDecimalCoords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer acc" {
			t.Errorf("Authorization = %q", got)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("missing X-Request-ID")
		}
		w.Write([]byte(`[
			{"event_id":1,"title":"Concert","description":null,"latitude":"55.75157400","longitude":"37.57385600",
			 "datetime":"2025-06-01T19:00:00Z","category":2,"creator":7,"going_users":[{"username":"bob","avatar":null}]},
			{"event_id":2,"title":"Nowhere","latitude":null,"longitude":"10.0","datetime":"2025-06-02T19:00:00+03:00","category":null,"creator":8,"going_users":[]}
		]`))
	}))
	defer srv.Close()

	events, err := NewHTTPClient(srv.URL, loggedInStore()).ListEvents(context.Background())
	if err != nil {
		t.Fatalf("ListEvents() error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events", len(events))
	}
	e := events[0]
	if !e.HasCoords() || e.Latitude.Value != 55.751574 || e.Longitude.Value != 37.573856 {
		t.Errorf("coords = %+v %+v", e.Latitude, e.Longitude)
	}
	if e.GoingTotal() != 1 || !e.IsGoing("bob") {
		t.Errorf("going = %v", e.GoingUsers)
	}
	if *e.Category != 2 {
		t.Errorf("category = %v", *e.Category)
	}
	if events[1].HasCoords() {
		t.Error("event with null latitude must not report coords")
	}
	if events[1].Category != nil {
		t.Error("null category should decode to nil")
	}
}

func TestListEventsPaginated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"count":1,"next":null,"results":[{"event_id":5,"title":"Paged","latitude":1,"longitude":2}]}`))
	}))
	defer srv.Close()

	events, err := NewHTTPClient(srv.URL, loggedInStore()).ListEvents(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].ID != 5 {
		t.Errorf("events = %+v", events)
	}
}

func TestListEventsUnauthorizedClearsSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Given token not valid for any token type","code":"token_not_valid"}`))
	}))
	defer srv.Close()

	store := loggedInStore()
	_, err := NewHTTPClient(srv.URL, store).ListEvents(context.Background())
	if !IsKind(err, KindAuth) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if _, ok := store.Get(); ok {
		t.Error("401 should clear the stored session")
	}
}

func TestListEventsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	store := loggedInStore()
	_, err := NewHTTPClient(srv.URL, store).ListEvents(context.Background())
	if !IsKind(err, KindServer) {
		t.Fatalf("expected ServerError, got %v", err)
	}
	if _, ok := store.Get(); !ok {
		t.Error("5xx must not clear the session")
	}
}

func TestNoSessionShortCircuits(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, tokenstore.NewMemoryStore())
	ctx := context.Background()

	calls := map[string]func() error{
		"ListEvents": func() error { _, err := c.ListEvents(ctx); return err },
		"CreateEvent": func() error {
			_, err := c.CreateEvent(ctx, EventDraft{Title: "x", Latitude: At(1), Longitude: At(2)})
			return err
		},
		"DeleteEvent": func() error { return c.DeleteEvent(ctx, 1) },
		"SetReaction": func() error { _, err := c.SetReaction(ctx, 1, ReactionGoing); return err },
	}
	for name, call := range calls {
		err := call()
		if !IsKind(err, KindAuth) || !errors.Is(err, ErrNoSession) {
			t.Errorf("%s: expected AuthError wrapping ErrNoSession, got %v", name, err)
		}
	}
	if n := atomic.LoadInt32(&hits); n != 0 {
		t.Errorf("no request should reach the server without a token, got %d", n)
	}
}

func TestCreateEventBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]interface{}
		json.NewDecoder(r.Body).Decode(&raw)
		if raw["latitude"] != "55.75157400" {
			t.Errorf("latitude sent as %v", raw["latitude"])
		}
		if raw["title"] != "Picnic" {
			t.Errorf("title sent as %v", raw["title"])
		}
		if _, ok := raw["category"]; ok {
			t.Error("nil category should be omitted")
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"event_id":42,"title":"Picnic","latitude":"55.75157400","longitude":"37.57385600","creator":7}`))
	}))
	defer srv.Close()

	ev, err := NewHTTPClient(srv.URL, loggedInStore()).CreateEvent(context.Background(), EventDraft{
		Title:     "Picnic",
		Datetime:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Latitude:  At(55.751574),
		Longitude: At(37.573856),
	})
	if err != nil {
		t.Fatal(err)
	}
	if ev.ID != 42 {
		t.Errorf("created id = %d", ev.ID)
	}
}

func TestDeleteEventForbidden(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/api/events/3/" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"detail":"You do not have permission to perform this action."}`))
	}))
	defer srv.Close()

	err := NewHTTPClient(srv.URL, loggedInStore()).DeleteEvent(context.Background(), 3)
	if !IsKind(err, KindPermission) {
		t.Fatalf("expected PermissionError, got %v", err)
	}
}

func TestDeleteEventNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	err := NewHTTPClient(srv.URL, loggedInStore()).DeleteEvent(context.Background(), 3)
	if !IsKind(err, KindNotFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestDeleteEventNoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	if err := NewHTTPClient(srv.URL, loggedInStore()).DeleteEvent(context.Background(), 3); err != nil {
		t.Fatalf("DeleteEvent() error: %v", err)
	}
}

func TestSetReactionDuplicate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body reactionRequest
		json.NewDecoder(r.Body).Decode(&body)
		if body.Event != 9 || body.Type != ReactionGoing {
			t.Errorf("body = %+v", body)
		}
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"non_field_errors":["The fields user, event must make a unique set."]}`))
	}))
	defer srv.Close()

	_, err := NewHTTPClient(srv.URL, loggedInStore()).SetReaction(context.Background(), 9, ReactionGoing)
	if !IsKind(err, KindValidation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !strings.Contains(MessageOf(err), "unique set") {
		t.Errorf("message = %q", MessageOf(err))
	}
}

func TestSetReactionRejectsUnknownType(t *testing.T) {
	c := NewHTTPClient("http://unused.invalid", loggedInStore())
	_, err := c.SetReaction(context.Background(), 1, ReactionType("maybe"))
	if !IsKind(err, KindValidation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestLogoutClearsSessionOnNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	store := loggedInStore()
	c := NewHTTPClient(srv.URL, store, WithTimeout(20*time.Millisecond))

	err := c.Logout(context.Background())
	if !IsKind(err, KindNetwork) {
		t.Errorf("expected NetworkError from timed-out logout, got %v", err)
	}
	if _, ok := store.Get(); ok {
		t.Fatal("logout must clear the session even when the request fails")
	}
}

func TestLogoutSendsRefreshToken(t *testing.T) {
	var got logoutRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/logout/" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		http.Redirect(w, r, "/login/", http.StatusFound)
	}))
	defer srv.Close()

	store := loggedInStore()
	if err := NewHTTPClient(srv.URL, store).Logout(context.Background()); err != nil {
		t.Fatalf("Logout() error: %v", err)
	}
	if got.RefreshToken != "ref" {
		t.Errorf("refresh_token = %q", got.RefreshToken)
	}
	if _, ok := store.Get(); ok {
		t.Error("session should be cleared")
	}
}

func TestObserverSeesRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	var seen []RequestLog
	c := NewHTTPClient(srv.URL, loggedInStore())
	c.SetObserver(func(l RequestLog) { seen = append(seen, l) })

	if _, err := c.ListCategories(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(seen) != 1 {
		t.Fatalf("observer saw %d requests", len(seen))
	}
	if seen[0].Path != "/api/categories/" || seen[0].Status != 200 || seen[0].ID == "" {
		t.Errorf("log = %+v", seen[0])
	}
}

func TestMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>oops</html>`))
	}))
	defer srv.Close()

	_, err := NewHTTPClient(srv.URL, loggedInStore()).ListEvents(context.Background())
	if !IsKind(err, KindServer) {
		t.Fatalf("expected ServerError for non-JSON body, got %v", err)
	}
}

type stuckStore struct {
	*tokenstore.MemoryStore
}

func (stuckStore) Clear() error {
	return errors.New("session file is read-only")
}

func TestUnauthorizedClearFailureIsLogged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Given token not valid for any token type"}`))
	}))
	defer srv.Close()

	var buf bytes.Buffer
	c := NewHTTPClient(srv.URL, stuckStore{loggedInStore()}, WithLogger(logger.New(&buf, logger.LevelDebug)))
	_, err := c.ListEvents(context.Background())
	if !IsKind(err, KindAuth) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if !strings.Contains(buf.String(), "session file is read-only") {
		t.Errorf("clear failure missing from log:\n%s", buf.String())
	}
}

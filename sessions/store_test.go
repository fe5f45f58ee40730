package sessions_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/storefront-admin/api"
	"github.com/jrsteele09/storefront-admin/api/apifake"
	"github.com/jrsteele09/storefront-admin/internal/metrics"
	"github.com/jrsteele09/storefront-admin/sessions"
	"github.com/jrsteele09/storefront-admin/token"
	"github.com/jrsteele09/storefront-admin/token/storage"
	"github.com/jrsteele09/storefront-admin/users"
	fakeuserrepo "github.com/jrsteele09/storefront-admin/users/repofake"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "Admin1234"
	userEmail     = "a@b.com"
	userPassword  = "x"

	issuerSecret = "test-secret"
	issuerName   = "storefront-test"
)

type testFixture struct {
	fake    *apifake.Server
	server  *httptest.Server
	client  *api.Client
	issuer  *token.Issuer
	repo    *storage.InMemoryRepo
	admin   *users.Account
	shopper *users.Account
	metrics *metrics.AppMetrics
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	issuer := token.NewIssuer(issuerSecret, issuerName)
	fake := apifake.New(fakeuserrepo.NewFakeUserRepo(), issuer)
	admin, err := fake.Seed(users.Profile{Email: adminEmail, FirstName: "Ada", Role: users.RoleAdmin}, adminPassword)
	require.NoError(t, err)
	shopper, err := fake.Seed(users.Profile{Email: userEmail, FirstName: "Sam", Role: users.RoleUser}, userPassword)
	require.NoError(t, err)

	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	return &testFixture{
		fake:    fake,
		server:  server,
		client:  api.NewClient(server.URL, api.WithTimeout(5*time.Second)),
		issuer:  issuer,
		repo:    storage.NewInMemoryRepo(),
		admin:   admin,
		shopper: shopper,
		metrics: metrics.New(),
	}
}

func (f *testFixture) newStore(t *testing.T, collab api.Collaborator) *sessions.Store {
	t.Helper()
	if collab == nil {
		collab = f.client
	}
	store := sessions.New(collab, f.repo, sessions.WithMetrics(f.metrics))
	t.Cleanup(store.Close)
	return store
}

func (f *testFixture) persist(t *testing.T, accessToken, refreshToken string) {
	t.Helper()
	require.NoError(t, f.repo.Save(context.Background(), storage.Record{AuthToken: accessToken, RefreshToken: refreshToken}))
}

// stubCollaborator lets a test script the collaborator's responses
type stubCollaborator struct {
	login   func(context.Context, api.Credentials) (*api.LoginResponse, error)
	profile func(context.Context, *oauth2.Token) (*api.ProfileResponse, error)
}

func (s *stubCollaborator) Login(ctx context.Context, c api.Credentials) (*api.LoginResponse, error) {
	return s.login(ctx, c)
}

func (s *stubCollaborator) AdminLogin(ctx context.Context, c api.Credentials) (*api.LoginResponse, error) {
	return s.login(ctx, c)
}

func (s *stubCollaborator) Profile(ctx context.Context, tok *oauth2.Token) (*api.ProfileResponse, error) {
	return s.profile(ctx, tok)
}

func TestStore_InitialState(t *testing.T) {
	f := setupTestFixture(t)
	store := f.newStore(t, nil)

	require.Equal(t, sessions.StatusLoading, store.Status())
	_, ok := store.User()
	require.False(t, ok)
}

func TestStore_Rehydrate(t *testing.T) {
	ctx := context.Background()

	t.Run("no persisted token", func(t *testing.T) {
		f := setupTestFixture(t)
		store := f.newStore(t, nil)

		store.Rehydrate(ctx)

		require.Equal(t, sessions.StatusUnauthenticated, store.Status())
		require.Equal(t, 0, f.fake.Hits(api.RouteProfile))
	})

	t.Run("valid token", func(t *testing.T) {
		f := setupTestFixture(t)
		access, refresh, err := f.issuer.Issue(f.admin.Profile)
		require.NoError(t, err)
		f.persist(t, access, refresh)
		store := f.newStore(t, nil)

		store.Rehydrate(ctx)

		state, ok := store.State().(sessions.Authenticated)
		require.True(t, ok)
		require.Equal(t, adminEmail, state.User.Email)
		require.Equal(t, access, state.Tokens.AccessToken())
		require.Equal(t, refresh, state.Tokens.RefreshToken())
		require.Equal(t, 1, f.fake.Hits(api.RouteProfile))
		require.Equal(t, float64(1), testutil.ToFloat64(f.metrics.RehydrateTotal.WithLabelValues(metrics.OutcomeSuccess)))
	})

	t.Run("rejected token purges storage", func(t *testing.T) {
		f := setupTestFixture(t)
		f.persist(t, "expired-or-garbage", "r1")
		store := f.newStore(t, nil)

		store.Rehydrate(ctx)

		require.Equal(t, sessions.StatusUnauthenticated, store.Status())
		require.Empty(t, f.repo.Keys())
		require.Equal(t, 1, f.fake.Hits(api.RouteProfile))
	})

	t.Run("locally expired token skips the profile call", func(t *testing.T) {
		f := setupTestFixture(t)
		past := token.NewIssuer(issuerSecret, issuerName, token.WithNowFunc(func() time.Time {
			return time.Now().Add(-2 * time.Hour)
		}))
		access, refresh, err := past.Issue(f.admin.Profile)
		require.NoError(t, err)
		f.persist(t, access, refresh)
		store := f.newStore(t, nil)

		store.Rehydrate(ctx)

		require.Equal(t, sessions.StatusUnauthenticated, store.Status())
		require.Empty(t, f.repo.Keys())
		require.Equal(t, 0, f.fake.Hits(api.RouteProfile))
	})

	t.Run("unreachable server purges storage", func(t *testing.T) {
		f := setupTestFixture(t)
		access, refresh, err := f.issuer.Issue(f.admin.Profile)
		require.NoError(t, err)
		f.persist(t, access, refresh)
		f.server.Close()
		store := f.newStore(t, nil)

		store.Rehydrate(ctx)

		require.Equal(t, sessions.StatusUnauthenticated, store.Status())
		require.Empty(t, f.repo.Keys())
	})

	t.Run("half written file record is purged", func(t *testing.T) {
		f := setupTestFixture(t)
		path := filepath.Join(t.TempDir(), "session.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"authToken":"T"}`), 0o600))
		repo, err := storage.NewFileRepo(path)
		require.NoError(t, err)
		store := sessions.New(f.client, repo)
		t.Cleanup(store.Close)

		store.Rehydrate(ctx)

		require.Equal(t, sessions.StatusUnauthenticated, store.Status())
		require.NoFileExists(t, path)
		require.Equal(t, 0, f.fake.Hits(api.RouteProfile))
	})

	t.Run("runs once", func(t *testing.T) {
		f := setupTestFixture(t)
		access, refresh, err := f.issuer.Issue(f.admin.Profile)
		require.NoError(t, err)
		f.persist(t, access, refresh)
		store := f.newStore(t, nil)

		var wg sync.WaitGroup
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				store.Rehydrate(ctx)
			}()
		}
		wg.Wait()
		store.Rehydrate(ctx)

		require.Equal(t, sessions.StatusAuthenticated, store.Status())
		require.Equal(t, 1, f.fake.Hits(api.RouteProfile))
	})
}

func TestStore_AdminLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		f := setupTestFixture(t)
		store := f.newStore(t, nil)
		store.Rehydrate(ctx)

		result := store.AdminLogin(ctx, api.Credentials{Email: adminEmail, Password: adminPassword})

		require.Equal(t, sessions.Result{Success: true, Message: apifake.MessageLoginSuccess}, result)
		user, ok := store.User()
		require.True(t, ok)
		require.True(t, user.IsAdmin())
		require.Len(t, f.repo.Keys(), 2)
		require.Contains(t, f.repo.Keys(), storage.KeyAuthToken)
		require.Contains(t, f.repo.Keys(), storage.KeyRefreshToken)
		require.Equal(t, float64(1), testutil.ToFloat64(f.metrics.LoginTotal.WithLabelValues("admin", metrics.OutcomeSuccess)))
	})

	t.Run("non admin is refused", func(t *testing.T) {
		f := setupTestFixture(t)
		store := f.newStore(t, nil)
		store.Rehydrate(ctx)

		result := store.AdminLogin(ctx, api.Credentials{Email: userEmail, Password: userPassword})

		require.Equal(t, sessions.Result{Success: false, Message: apifake.MessageAdminRequired}, result)
		require.Equal(t, sessions.StatusUnauthenticated, store.Status())
		require.Empty(t, f.repo.Keys())
	})

	t.Run("wrong password keeps existing session", func(t *testing.T) {
		f := setupTestFixture(t)
		store := f.newStore(t, nil)
		store.Rehydrate(ctx)
		require.True(t, store.AdminLogin(ctx, api.Credentials{Email: adminEmail, Password: adminPassword}).Success)
		before := store.State()

		result := store.AdminLogin(ctx, api.Credentials{Email: adminEmail, Password: "nope"})

		require.Equal(t, sessions.Result{Success: false, Message: apifake.MessageInvalidCreds}, result)
		require.Equal(t, before, store.State())
	})
}

func TestStore_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("standard login accepts any role", func(t *testing.T) {
		f := setupTestFixture(t)
		store := f.newStore(t, nil)
		store.Rehydrate(ctx)

		result := store.Login(ctx, api.Credentials{Email: userEmail, Password: userPassword})

		require.True(t, result.Success)
		user, ok := store.User()
		require.True(t, ok)
		require.False(t, user.IsAdmin())
	})

	t.Run("unreachable server", func(t *testing.T) {
		f := setupTestFixture(t)
		store := f.newStore(t, nil)
		store.Rehydrate(ctx)
		f.server.Close()

		result := store.Login(ctx, api.Credentials{Email: userEmail, Password: userPassword})

		require.Equal(t, sessions.Result{Success: false, Message: sessions.MessageLoginFailed}, result)
		require.Equal(t, sessions.StatusUnauthenticated, store.Status())
	})

	t.Run("nested transport error message", func(t *testing.T) {
		f := setupTestFixture(t)
		gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"error":{"message":"Upstream unavailable"}}`))
		}))
		t.Cleanup(gateway.Close)
		store := f.newStore(t, api.NewClient(gateway.URL))

		result := store.Login(ctx, api.Credentials{Email: userEmail, Password: userPassword})

		require.Equal(t, sessions.Result{Success: false, Message: "Upstream unavailable"}, result)
	})

	t.Run("success body that does not decode is invalid", func(t *testing.T) {
		f := setupTestFixture(t)
		storefront := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"success":true,"message":"Login successful","data":{"token":"t","refreshToken":"r","user":{"id":"u-1","email":"admin@example.com","role":"admin"}}}`))
		}))
		t.Cleanup(storefront.Close)
		store := f.newStore(t, api.NewClient(storefront.URL))
		store.Rehydrate(ctx)

		result := store.AdminLogin(ctx, api.Credentials{Email: adminEmail, Password: adminPassword})

		require.Equal(t, sessions.Result{Success: false, Message: sessions.MessageInvalidResponse}, result)
		require.Equal(t, sessions.StatusUnauthenticated, store.Status())
		require.Empty(t, f.repo.Keys())
	})

	t.Run("success without tokens is invalid", func(t *testing.T) {
		f := setupTestFixture(t)
		collab := &stubCollaborator{
			login: func(context.Context, api.Credentials) (*api.LoginResponse, error) {
				return &api.LoginResponse{Success: true, Message: "ok", Data: &api.LoginData{User: &f.shopper.Profile}}, nil
			},
		}
		store := f.newStore(t, collab)

		result := store.Login(ctx, api.Credentials{Email: userEmail, Password: userPassword})

		require.Equal(t, sessions.Result{Success: false, Message: sessions.MessageInvalidResponse}, result)
		require.Empty(t, f.repo.Keys())
	})

	t.Run("status is loading while in flight", func(t *testing.T) {
		f := setupTestFixture(t)
		entered := make(chan struct{})
		release := make(chan struct{})
		collab := &stubCollaborator{
			login: func(context.Context, api.Credentials) (*api.LoginResponse, error) {
				close(entered)
				<-release
				return &api.LoginResponse{Success: false, Message: "Invalid credentials"}, nil
			},
		}
		store := f.newStore(t, collab)

		done := make(chan sessions.Result)
		go func() {
			done <- store.Login(ctx, api.Credentials{Email: userEmail, Password: "bad"})
		}()

		<-entered
		require.Equal(t, sessions.StatusLoading, store.Status())
		close(release)
		require.False(t, (<-done).Success)
	})
}

func TestStore_Logout(t *testing.T) {
	ctx := context.Background()

	t.Run("clears session and storage", func(t *testing.T) {
		f := setupTestFixture(t)
		store := f.newStore(t, nil)
		store.Rehydrate(ctx)
		require.True(t, store.AdminLogin(ctx, api.Credentials{Email: adminEmail, Password: adminPassword}).Success)

		store.Logout(ctx)

		require.Equal(t, sessions.StatusUnauthenticated, store.Status())
		require.Empty(t, f.repo.Keys())
	})

	t.Run("login completing after logout is discarded", func(t *testing.T) {
		f := setupTestFixture(t)
		entered := make(chan struct{})
		release := make(chan struct{})
		access, refresh, err := f.issuer.Issue(f.admin.Profile)
		require.NoError(t, err)
		collab := &stubCollaborator{
			login: func(context.Context, api.Credentials) (*api.LoginResponse, error) {
				close(entered)
				<-release
				return &api.LoginResponse{
					Success: true,
					Message: apifake.MessageLoginSuccess,
					Data:    &api.LoginData{Token: access, RefreshToken: refresh, User: &f.admin.Profile},
				}, nil
			},
		}
		store := f.newStore(t, collab)

		done := make(chan sessions.Result)
		go func() {
			done <- store.AdminLogin(ctx, api.Credentials{Email: adminEmail, Password: adminPassword})
		}()

		<-entered
		store.Logout(ctx)
		close(release)

		require.Equal(t, sessions.Result{Success: false, Message: sessions.MessageSessionEnded}, <-done)
		require.Equal(t, sessions.StatusUnauthenticated, store.Status())
		require.Empty(t, f.repo.Keys())
	})

	t.Run("cancels in flight request", func(t *testing.T) {
		f := setupTestFixture(t)
		entered := make(chan struct{})
		collab := &stubCollaborator{
			login: func(ctx context.Context, _ api.Credentials) (*api.LoginResponse, error) {
				close(entered)
				<-ctx.Done()
				return nil, ctx.Err()
			},
		}
		store := f.newStore(t, collab)

		done := make(chan sessions.Result)
		go func() {
			done <- store.Login(ctx, api.Credentials{Email: userEmail, Password: userPassword})
		}()

		<-entered
		store.Logout(ctx)

		select {
		case result := <-done:
			require.Equal(t, sessions.MessageSessionEnded, result.Message)
		case <-time.After(2 * time.Second):
			t.Fatal("login was not cancelled by logout")
		}
		require.Equal(t, sessions.StatusUnauthenticated, store.Status())
	})

	t.Run("rehydrate superseded by logout does not authenticate", func(t *testing.T) {
		f := setupTestFixture(t)
		f.persist(t, "a1", "r1")
		entered := make(chan struct{})
		release := make(chan struct{})
		collab := &stubCollaborator{
			profile: func(context.Context, *oauth2.Token) (*api.ProfileResponse, error) {
				close(entered)
				<-release
				return &api.ProfileResponse{Success: true, Data: &api.ProfileData{User: &f.admin.Profile}}, nil
			},
		}
		store := f.newStore(t, collab)

		done := make(chan struct{})
		go func() {
			defer close(done)
			store.Rehydrate(ctx)
		}()

		<-entered
		store.Logout(ctx)
		close(release)
		<-done

		require.Equal(t, sessions.StatusUnauthenticated, store.Status())
		require.Equal(t, float64(1), testutil.ToFloat64(f.metrics.RehydrateTotal.WithLabelValues(metrics.OutcomeDiscarded)))
	})
}

func TestStore_Subscribe(t *testing.T) {
	f := setupTestFixture(t)
	store := f.newStore(t, nil)
	ctx := context.Background()

	var (
		mu       sync.Mutex
		statuses []sessions.Status
	)
	unsubscribe := store.Subscribe(func(state sessions.State) {
		mu.Lock()
		defer mu.Unlock()
		statuses = append(statuses, state.Status())
	})

	store.Rehydrate(ctx)
	require.True(t, store.AdminLogin(ctx, api.Credentials{Email: adminEmail, Password: adminPassword}).Success)
	unsubscribe()
	store.Logout(ctx)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []sessions.Status{
		sessions.StatusLoading,
		sessions.StatusUnauthenticated,
		sessions.StatusLoading,
		sessions.StatusAuthenticated,
	}, statuses)
}

func TestStore_SubscribeRacingLogout(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	access, refresh, err := f.issuer.Issue(f.admin.Profile)
	require.NoError(t, err)
	collab := &stubCollaborator{
		login: func(context.Context, api.Credentials) (*api.LoginResponse, error) {
			return &api.LoginResponse{
				Success: true,
				Data:    &api.LoginData{Token: access, RefreshToken: refresh, User: &f.admin.Profile},
			}, nil
		},
	}

	for i := 0; i < 50; i++ {
		repo := storage.NewInMemoryRepo()
		store := sessions.New(collab, repo)

		var (
			mu   sync.Mutex
			last sessions.State
		)
		store.Subscribe(func(state sessions.State) {
			mu.Lock()
			defer mu.Unlock()
			last = state
		})

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			store.AdminLogin(ctx, api.Credentials{Email: adminEmail, Password: adminPassword})
		}()
		go func() {
			defer wg.Done()
			store.Logout(ctx)
		}()
		wg.Wait()

		mu.Lock()
		require.Equal(t, store.Status(), last.Status())
		mu.Unlock()
		if store.Status() == sessions.StatusUnauthenticated {
			require.Empty(t, repo.Keys())
		} else {
			require.Len(t, repo.Keys(), 2)
		}
		store.Close()
	}
}

func TestStore_Close(t *testing.T) {
	f := setupTestFixture(t)
	store := sessions.New(f.client, f.repo)
	store.Close()

	result := store.Login(context.Background(), api.Credentials{Email: userEmail, Password: userPassword})
	require.False(t, result.Success)

	store.Rehydrate(context.Background())
	require.Equal(t, sessions.StatusUnauthenticated, store.Status())
	require.Equal(t, 0, f.fake.Hits(api.RouteLogin))
}

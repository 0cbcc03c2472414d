package fakebackend_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jrsteele09/go-space-rental/apiclient"
	"github.com/jrsteele09/go-space-rental/apimodel"
	"github.com/jrsteele09/go-space-rental/fakebackend"
	"github.com/jrsteele09/go-space-rental/internal/config"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type testFixture struct {
	backend *fakebackend.Backend
	server  *httptest.Server
	client  *apiclient.Client
	store   *apiclient.MemoryStore
}

func newFixture(t *testing.T) *testFixture {
	t.Helper()
	b := fakebackend.New(config.New())
	srv := httptest.NewServer(b.Handler())
	t.Cleanup(srv.Close)

	store := apiclient.NewMemoryStore(nil)
	c, err := apiclient.New(srv.URL+"/api", store)
	require.NoError(t, err)
	return &testFixture{backend: b, server: srv, client: c, store: store}
}

var testUser = apimodel.RegisterRequest{
	Email:            "test@example.com",
	Password:         "password123",
	FullName:         "Test User",
	OrganizationName: "Test Org",
	OrganizationSlug: "test-org",
}

// login registers testUser (if needed) and stores the issued pair.
func (f *testFixture) login(t *testing.T, req apimodel.RegisterRequest) {
	t.Helper()
	ctx := context.Background()
	resp, err := f.client.Auth().Register(ctx, req)
	require.NoError(t, err)
	require.NoError(t, f.store.SetToken(ctx, resp.Token()))
}

func TestAuth(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("register issues a pair", func(t *testing.T) {
		resp, err := f.client.Auth().Register(ctx, testUser)
		require.NoError(t, err)
		require.NotEmpty(t, resp.AccessToken)
		require.Len(t, resp.RefreshToken, 64)
		require.Equal(t, "bearer", resp.TokenType)
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := f.client.Auth().Register(ctx, testUser)
		require.Equal(t, http.StatusBadRequest, apiclient.StatusCode(err))
		require.Equal(t, "Email already registered", apiclient.DetailOr(err, ""))
	})

	t.Run("duplicate slug", func(t *testing.T) {
		other := testUser
		other.Email = "other@example.com"
		_, err := f.client.Auth().Register(ctx, other)
		require.Equal(t, "Organization slug already taken", apiclient.DetailOr(err, ""))
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := f.client.Auth().Login(ctx, apimodel.LoginRequest{Email: testUser.Email, Password: "wrong"})
		require.Equal(t, http.StatusUnauthorized, apiclient.StatusCode(err))
		require.Equal(t, "Incorrect email or password", apiclient.DetailOr(err, ""))
	})

	t.Run("login then me", func(t *testing.T) {
		resp, err := f.client.Auth().Login(ctx, apimodel.LoginRequest{Email: testUser.Email, Password: testUser.Password})
		require.NoError(t, err)
		require.NoError(t, f.store.SetToken(ctx, resp.Token()))

		me, err := f.client.Auth().Me(ctx)
		require.NoError(t, err)
		require.Equal(t, testUser.Email, me.Email)
		require.Equal(t, "Test User", me.DisplayName())
	})

	t.Run("me without token", func(t *testing.T) {
		_, err := f.client.WithStore(apiclient.NewMemoryStore(nil)).Auth().Me(ctx)
		require.ErrorIs(t, err, apiclient.ErrSessionEnded)
		require.Equal(t, "Not authenticated", apiclient.DetailOr(err, ""))
	})
}

func TestRefreshRotation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.login(t, testUser)

	before, err := f.store.Token(ctx)
	require.NoError(t, err)

	f.backend.ExpireAccessTokens()
	_, err = f.client.Spaces().List(ctx, 0, 0)
	require.NoError(t, err)

	require.Equal(t, 1, f.backend.Calls(http.MethodPost, "/api/auth/refresh"))
	require.Equal(t, 2, f.backend.Calls(http.MethodGet, "/api/spaces"))

	after, err := f.store.Token(ctx)
	require.NoError(t, err)
	require.NotEqual(t, before.AccessToken, after.AccessToken)
	require.NotEqual(t, before.RefreshToken, after.RefreshToken)

	_, err = f.client.Auth().Refresh(ctx, before.RefreshToken)
	require.Equal(t, "Invalid refresh token", apiclient.DetailOr(err, ""))
}

func TestRefreshTokenExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.login(t, testUser)

	now := time.Now()
	fakebackend.NowTimeFunc = func() time.Time { return now.Add(8 * 24 * time.Hour) }
	t.Cleanup(func() { fakebackend.NowTimeFunc = time.Now })

	_, err := f.client.Spaces().List(ctx, 0, 0)
	require.ErrorIs(t, err, apiclient.ErrSessionEnded)
	require.Equal(t, "Refresh token expired", apiclient.DetailOr(err, ""))

	tok, err := f.store.Token(ctx)
	require.NoError(t, err)
	require.Nil(t, tok)
}

func TestSpaces(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.login(t, testUser)

	spaces, err := f.client.Spaces().List(ctx, 0, 0)
	require.NoError(t, err)
	require.Empty(t, spaces)

	created, err := f.client.Spaces().Create(ctx, apimodel.CreateSpaceRequest{Name: "Conference Room A", Capacity: 10, PricePerHour: 50})
	require.NoError(t, err)
	require.True(t, created.IsActive)
	require.NotZero(t, created.OrganizationID)

	got, err := f.client.Spaces().Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "Conference Room A", got.Name)

	name := "Board Room"
	updated, err := f.client.Spaces().Update(ctx, created.ID, apimodel.UpdateSpaceRequest{Name: &name})
	require.NoError(t, err)
	require.Equal(t, "Board Room", updated.Name)
	require.Equal(t, 10, updated.Capacity)

	_, err = f.client.Spaces().Create(ctx, apimodel.CreateSpaceRequest{Name: "Desk", Capacity: 1, PricePerHour: 5})
	require.NoError(t, err)
	spaces, err = f.client.Spaces().List(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, spaces, 1)
	require.Equal(t, "Desk", spaces[0].Name)

	require.NoError(t, f.client.Spaces().Delete(ctx, created.ID))
	_, err = f.client.Spaces().Get(ctx, created.ID)
	require.Equal(t, http.StatusNotFound, apiclient.StatusCode(err))
	require.Equal(t, "Space not found", apiclient.DetailOr(err, ""))
}

func TestSpaces_TenantIsolation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.login(t, testUser)

	sp, err := f.client.Spaces().Create(ctx, apimodel.CreateSpaceRequest{Name: "Private", Capacity: 2})
	require.NoError(t, err)

	other := apiclient.NewMemoryStore(nil)
	otherClient := f.client.WithStore(other)
	resp, err := otherClient.Auth().Register(ctx, apimodel.RegisterRequest{
		Email: "other@example.com", Password: "pw", OrganizationName: "Other", OrganizationSlug: "other",
	})
	require.NoError(t, err)
	require.NoError(t, other.SetToken(ctx, resp.Token()))

	spaces, err := otherClient.Spaces().List(ctx, 0, 0)
	require.NoError(t, err)
	require.Empty(t, spaces)
	_, err = otherClient.Spaces().Get(ctx, sp.ID)
	require.Equal(t, http.StatusNotFound, apiclient.StatusCode(err))
}

func TestReservations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.login(t, testUser)

	sp, err := f.client.Spaces().Create(ctx, apimodel.CreateSpaceRequest{Name: "Room", Capacity: 4, PricePerHour: 12.5})
	require.NoError(t, err)

	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	r, err := f.client.Reservations().Create(ctx, apimodel.CreateReservationRequest{
		SpaceID: sp.ID, StartTime: start, EndTime: start.Add(2 * time.Hour),
	})
	require.NoError(t, err)
	require.Equal(t, 25.0, r.TotalPrice)
	require.Equal(t, apimodel.ReservationPending, r.Status)

	_, err = f.client.Reservations().Create(ctx, apimodel.CreateReservationRequest{SpaceID: sp.ID, StartTime: start, EndTime: start})
	require.Equal(t, http.StatusUnprocessableEntity, apiclient.StatusCode(err))
	require.Equal(t, "end_time must be after start_time", apiclient.DetailOr(err, ""))

	_, err = f.client.Reservations().Create(ctx, apimodel.CreateReservationRequest{SpaceID: 999, StartTime: start, EndTime: start.Add(time.Hour)})
	require.Equal(t, "Space not found", apiclient.DetailOr(err, ""))

	confirmed := apimodel.ReservationConfirmed
	updated, err := f.client.Reservations().Update(ctx, r.ID, apimodel.UpdateReservationRequest{Status: &confirmed})
	require.NoError(t, err)
	require.Equal(t, apimodel.ReservationConfirmed, updated.Status)

	require.NoError(t, f.client.Reservations().Cancel(ctx, r.ID))
	got, err := f.client.Reservations().Get(ctx, r.ID)
	require.NoError(t, err)
	require.Equal(t, apimodel.ReservationCancelled, got.Status)

	list, err := f.client.Reservations().List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestOrgs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.login(t, testUser)

	memberships, err := f.client.Orgs().List(ctx)
	require.NoError(t, err)
	require.Len(t, memberships, 1)
	require.Equal(t, apimodel.RoleOwner, memberships[0].Role)
	require.Equal(t, "test-org", memberships[0].Organization.Slug)

	created, err := f.client.Orgs().Create(ctx, apimodel.CreateOrganizationRequest{Name: "Second", Slug: "second"})
	require.NoError(t, err)
	require.Equal(t, "second", created.Organization.Slug)

	org, err := f.client.Orgs().GetBySlug(ctx, "second")
	require.NoError(t, err)
	require.Equal(t, created.Organization.ID, org.ID)

	_, err = f.client.Orgs().GetBySlug(ctx, "missing")
	require.Equal(t, "Organization not found", apiclient.DetailOr(err, ""))

	inv, err := f.client.Orgs().Invite(ctx, org.ID, apimodel.InviteRequest{Email: "nobody@example.com"})
	require.NoError(t, err)
	require.Equal(t, "Invitation sent (simulated)", inv.Message)

	_, err = f.backend.SeedUser(apimodel.RegisterRequest{Email: "member@example.com", Password: "pw", OrganizationName: "M", OrganizationSlug: "m"})
	require.NoError(t, err)
	inv, err = f.client.Orgs().Invite(ctx, org.ID, apimodel.InviteRequest{Email: "member@example.com", Role: apimodel.RoleMember})
	require.NoError(t, err)
	require.Equal(t, "User added to organization", inv.Message)

	_, err = f.client.Orgs().Invite(ctx, org.ID, apimodel.InviteRequest{Email: "member@example.com"})
	require.Equal(t, "User is already a member", apiclient.DetailOr(err, ""))
}

func TestFaultsAndCalls(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.login(t, testUser)

	f.backend.Fail(http.MethodGet, "/api/spaces", http.StatusInternalServerError, "boom")
	_, err := f.client.Spaces().List(ctx, 0, 0)
	require.Equal(t, http.StatusInternalServerError, apiclient.StatusCode(err))
	require.Equal(t, "boom", apiclient.DetailOr(err, ""))
	require.Equal(t, 1, f.backend.Calls(http.MethodGet, "/api/spaces"))

	f.backend.ClearFaults()
	_, err = f.client.Spaces().List(ctx, 0, 0)
	require.NoError(t, err)
	require.Equal(t, 2, f.backend.Calls(http.MethodGet, "/api/spaces"))

	f.backend.ResetCalls()
	require.Zero(t, f.backend.Calls(http.MethodGet, "/api/spaces"))
}

func TestSeedSpace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.login(t, testUser)

	_, err := f.backend.SeedSpace(testUser.Email, apimodel.CreateSpaceRequest{Name: "Seeded", Capacity: 3, PricePerHour: 1})
	require.NoError(t, err)
	_, err = f.backend.SeedSpace("nobody@example.com", apimodel.CreateSpaceRequest{Name: "x"})
	require.Error(t, err)

	spaces, err := f.client.Spaces().List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, spaces, 1)
	require.Equal(t, "Seeded", spaces[0].Name)
}

func TestCORS(t *testing.T) {
	t.Setenv("CORS_ORIGINS", "http://localhost:8080")
	f := newFixture(t)

	req, err := http.NewRequest(http.MethodOptions, f.server.URL+"/api/spaces", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:8080")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "http://localhost:8080", resp.Header.Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
	require.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "Authorization")

	req.Header.Set("Origin", "http://evil.example.com")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

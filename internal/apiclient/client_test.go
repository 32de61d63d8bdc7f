package apiclient_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/utils/ptr"

	"github.com/fleetcore-io/fleetcore/internal/apiclient"
	"github.com/fleetcore-io/fleetcore/internal/apiclient/apitest"
	"github.com/fleetcore-io/fleetcore/internal/model"
	"github.com/fleetcore-io/fleetcore/pkg/options"
)

// mutableToken lets a test swap the session token between calls.
type mutableToken struct {
	mu    sync.Mutex
	value string
}

func (m *mutableToken) Token() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.value, nil
}

func (m *mutableToken) set(v string) {
	m.mu.Lock()
	m.value = v
	m.mu.Unlock()
}

func newClient(t *testing.T, server string, tokens apiclient.TokenSource) *apiclient.Client {
	t.Helper()
	opts := options.NewAPIOptions()
	opts.Server = server
	c, err := apiclient.New(opts, tokens)
	require.NoError(t, err)
	return c
}

func TestBearerTokenIsReadOnEveryCall(t *testing.T) {
	backend := apitest.NewBackend()
	defer backend.Close()

	tokens := &mutableToken{}
	c := newClient(t, backend.URL, tokens)
	ctx := context.Background()

	_, err := c.ListVehicles(ctx)
	require.Error(t, err)
	assert.True(t, apiclient.IsUnauthorized(err))

	tokens.set(backend.Token("admin", model.RoleAdmin))
	_, err = c.ListVehicles(ctx)
	require.NoError(t, err)

	tokens.set("")
	_, err = c.ListVehicles(ctx)
	assert.True(t, apiclient.IsUnauthorized(err))

	reqs := backend.Requests()
	require.Len(t, reqs, 3)
	assert.Empty(t, reqs[0].Authorization)
	assert.True(t, strings.HasPrefix(reqs[1].Authorization, "Bearer ey"), reqs[1].Authorization)
	assert.Empty(t, reqs[2].Authorization)
	assert.Equal(t, "/api/vehicles", reqs[0].Path)
}

func TestLoginFailureCarriesServerMessage(t *testing.T) {
	backend := apitest.NewBackend()
	defer backend.Close()

	c := newClient(t, backend.URL, nil)
	_, err := c.Login(context.Background(), model.Credentials{Username: "admin", Password: "wrong"})

	var re *apiclient.RequestError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, http.StatusUnauthorized, re.StatusCode)
	assert.Equal(t, "Invalid credentials", re.Message)
	assert.Equal(t, "Invalid credentials", apiclient.Message(err))

	res, err := c.Login(context.Background(), model.Credentials{Username: "admin", Password: "admin"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, res.Role)
	assert.NotEmpty(t, res.Token)
}

func TestErrorMessageFallbacks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/message":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"message":"plate_no already exists"}`))
		case "/api/html":
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`<html>bad gateway</html>`))
		default:
			w.WriteHeader(599)
		}
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, apiclient.StaticToken("t"))
	ctx := context.Background()

	err := c.Do(ctx, http.MethodGet, "/message", nil, nil)
	assert.Equal(t, "plate_no already exists", apiclient.Message(err))

	err = c.Do(ctx, http.MethodGet, "/html", nil, nil)
	assert.Equal(t, "Bad Gateway", apiclient.Message(err))
	assert.Equal(t, http.StatusBadGateway, apiclient.StatusCode(err))

	err = c.Do(ctx, http.MethodGet, "/other", nil, nil)
	assert.Equal(t, "request failed", apiclient.Message(err))
}

func TestNetworkErrorHasNoStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := newClient(t, url, nil)
	_, err := c.ListCommands(context.Background())

	var re *apiclient.RequestError
	require.ErrorAs(t, err, &re)
	assert.Zero(t, re.StatusCode)
	assert.Equal(t, "request failed", re.Message)
	assert.NotNil(t, errors.Unwrap(err))
}

func TestVehicleAndCommandOperations(t *testing.T) {
	backend := apitest.NewBackend()
	defer backend.Close()
	backend.AddUser("alice", "pw", model.RoleUser)

	admin := newClient(t, backend.URL, apiclient.StaticToken(backend.Token("admin", model.RoleAdmin)))
	alice := newClient(t, backend.URL, apiclient.StaticToken(backend.Token("alice", model.RoleUser)))
	ctx := context.Background()

	require.NoError(t, admin.CreateVehicle(ctx, model.VehicleInput{PlateNo: "AB-1", Model: "Van", Status: model.VehicleStatusActive, FuelLevel: ptr.To(50.0)}))
	vs, err := admin.ListVehicles(ctx)
	require.NoError(t, err)
	require.Len(t, vs, 1)

	in := vs[0].Input()
	in.Status = model.VehicleStatusMaintenance
	require.NoError(t, admin.UpdateVehicle(ctx, vs[0].ID, in))
	assert.Equal(t, model.VehicleStatusMaintenance, backend.Vehicles()[0].Status)

	err = alice.DeleteVehicle(ctx, vs[0].ID)
	assert.Equal(t, http.StatusForbidden, apiclient.StatusCode(err))
	require.NoError(t, admin.DeleteVehicle(ctx, vs[0].ID))
	assert.Empty(t, backend.Vehicles())

	require.NoError(t, alice.CreateCommand(ctx, model.CommandInput{Message: "need fuel card"}))
	require.NoError(t, admin.CreateCommand(ctx, model.CommandInput{RequesterName: "bob", Message: "tyres"}))
	cs, err := alice.ListCommands(ctx)
	require.NoError(t, err)
	require.Len(t, cs, 2)
	assert.Equal(t, "alice", cs[0].RequesterName)
	assert.Equal(t, "bob", cs[1].RequesterName)

	require.NoError(t, admin.ReplyCommand(ctx, cs[0].ID, model.ReplyInput{Response: "approved"}))
	assert.Equal(t, "approved", backend.Commands()[0].ResponseText())

	require.NoError(t, alice.UpdateSettings(ctx, model.SettingsUpdate{Password: "new"}))
	require.NoError(t, admin.Register(ctx, model.Registration{Username: "carol", Email: "c@example.com", Password: "pw"}))
}

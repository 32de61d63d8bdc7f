// Package apitest runs an in-memory fleet backend for tests.
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"

	"github.com/fleetcore-io/fleetcore/internal/model"
)

var signingKey = []byte("apitest-secret")

type user struct {
	password string
	email    string
	role     model.Role
}

// Request is a recorded call.
type Request struct {
	Method        string
	Path          string
	Authorization string
}

// Backend implements the fleet REST contract over in-memory data.
type Backend struct {
	*httptest.Server

	mu       sync.Mutex
	notify   func(event string)
	users    map[string]*user
	vehicles []model.Vehicle
	commands []model.Command
	nextID   int
	requests []Request
	failures map[string]int
	now      func() time.Time
}

// NewBackend starts a backend with an admin user ("admin"/"admin").
func NewBackend() *Backend {
	b := &Backend{
		users:    map[string]*user{"admin": {password: "admin", role: model.RoleAdmin}},
		failures: map[string]int{},
		now:      time.Now,
	}

	r := mux.NewRouter()
	r.Use(b.record)
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth/login", b.login).Methods(http.MethodPost)
	api.HandleFunc("/auth/register", b.register).Methods(http.MethodPost)
	api.HandleFunc("/auth/settings", b.authed(b.settings)).Methods(http.MethodPut)
	api.HandleFunc("/vehicles", b.authed(b.listVehicles)).Methods(http.MethodGet)
	api.HandleFunc("/vehicles", b.admin(b.createVehicle)).Methods(http.MethodPost)
	api.HandleFunc("/vehicles/{id}", b.admin(b.updateVehicle)).Methods(http.MethodPut)
	api.HandleFunc("/vehicles/{id}", b.admin(b.deleteVehicle)).Methods(http.MethodDelete)
	api.HandleFunc("/commands", b.authed(b.listCommands)).Methods(http.MethodGet)
	api.HandleFunc("/commands", b.authed(b.createCommand)).Methods(http.MethodPost)
	api.HandleFunc("/commands/{id}/reply", b.admin(b.replyCommand)).Methods(http.MethodPut)

	b.Server = httptest.NewServer(r)
	return b
}

// AddUser registers a user directly.
func (b *Backend) AddUser(name, password string, role model.Role) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[name] = &user{password: password, role: role}
}

// Token mints a valid token for name without going through login.
func (b *Backend) Token(name string, role model.Role) string {
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": name,
		"role":     string(role),
		"exp":      time.Now().Add(time.Hour).Unix(),
	}).SignedString(signingKey)
	return token
}

// SeedVehicles replaces the vehicle table, assigning ids.
func (b *Backend) SeedVehicles(vs ...model.Vehicle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.vehicles = nil
	for _, v := range vs {
		v.ID = b.id()
		b.vehicles = append(b.vehicles, v)
	}
}

// SeedCommands replaces the command table, assigning ids.
func (b *Backend) SeedCommands(cs ...model.Command) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.commands = nil
	for _, c := range cs {
		c.ID = b.id()
		if c.CreatedAt.IsZero() {
			c.CreatedAt = model.Timestamp{Time: b.now().UTC()}
		}
		b.commands = append(b.commands, c)
	}
}

func (b *Backend) Vehicles() []model.Vehicle {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.Vehicle(nil), b.vehicles...)
}

func (b *Backend) Commands() []model.Command {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.Command(nil), b.commands...)
}

// Requests returns every recorded call.
func (b *Backend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Request(nil), b.requests...)
}

// Fail makes "METHOD /api/path" answer with status until cleared with 0.
func (b *Backend) Fail(method, path string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if status == 0 {
		delete(b.failures, method+" "+path)
		return
	}
	b.failures[method+" "+path] = status
}

func (b *Backend) id() model.ID {
	b.nextID++
	return model.ID(strconv.Itoa(b.nextID))
}

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.requests = append(b.requests, Request{Method: r.Method, Path: r.URL.Path, Authorization: r.Header.Get("Authorization")})
		status := b.failures[r.Method+" "+r.URL.Path]
		b.mu.Unlock()

		if status != 0 {
			writeError(w, status, "injected failure")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

func (b *Backend) caller(r *http.Request) (*claims, bool) {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return nil, false
	}
	c := &claims{}
	_, err := jwt.ParseWithClaims(raw, c, func(*jwt.Token) (any, error) { return signingKey, nil })
	return c, err == nil
}

type handler func(w http.ResponseWriter, r *http.Request, c *claims)

func (b *Backend) authed(h handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := b.caller(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		h(w, r, c)
	}
}

func (b *Backend) admin(h handler) http.HandlerFunc {
	return b.authed(func(w http.ResponseWriter, r *http.Request, c *claims) {
		if c.Role != string(model.RoleAdmin) {
			writeError(w, http.StatusForbidden, "Admin only")
			return
		}
		h(w, r, c)
	})
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var in model.Credentials
	if !decode(w, r, &in) {
		return
	}

	b.mu.Lock()
	u, ok := b.users[in.Username]
	b.mu.Unlock()
	if !ok || u.password != in.Password {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, model.LoginResult{Token: b.Token(in.Username, u.role), Role: u.role})
}

func (b *Backend) register(w http.ResponseWriter, r *http.Request) {
	var in model.Registration
	if !decode(w, r, &in) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.users[in.Username]; exists {
		writeError(w, http.StatusConflict, "Username already taken")
		return
	}
	b.users[in.Username] = &user{password: in.Password, email: in.Email, role: model.RoleUser}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "registered"})
}

func (b *Backend) settings(w http.ResponseWriter, r *http.Request, c *claims) {
	var in model.SettingsUpdate
	if !decode(w, r, &in) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	u := b.users[c.Username]
	if u == nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if in.Password != "" {
		u.password = in.Password
	}
	if in.Username != "" && in.Username != c.Username {
		b.users[in.Username] = u
		delete(b.users, c.Username)
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "updated"})
}

func (b *Backend) listVehicles(w http.ResponseWriter, _ *http.Request, _ *claims) {
	writeJSON(w, http.StatusOK, b.Vehicles())
}

func (b *Backend) createVehicle(w http.ResponseWriter, r *http.Request, _ *claims) {
	var in model.VehicleInput
	if !decode(w, r, &in) {
		return
	}

	b.mu.Lock()
	v := model.Vehicle{ID: b.id(), PlateNo: in.PlateNo, Model: in.Model, Status: in.Status, FuelLevel: in.FuelLevel, Odometer: in.Odometer}
	b.vehicles = append(b.vehicles, v)
	b.mu.Unlock()

	writeJSON(w, http.StatusCreated, v)
	b.emit("vehicle:created")
}

func (b *Backend) updateVehicle(w http.ResponseWriter, r *http.Request, _ *claims) {
	var in model.VehicleInput
	if !decode(w, r, &in) {
		return
	}
	id := model.ID(mux.Vars(r)["id"])

	b.mu.Lock()
	found := false
	for i := range b.vehicles {
		if b.vehicles[i].ID == id {
			b.vehicles[i] = model.Vehicle{ID: id, PlateNo: in.PlateNo, Model: in.Model, Status: in.Status, FuelLevel: in.FuelLevel, Odometer: in.Odometer}
			found = true
		}
	}
	b.mu.Unlock()

	if !found {
		writeError(w, http.StatusNotFound, "Vehicle not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "updated"})
	b.emit("vehicle:updated")
}

func (b *Backend) deleteVehicle(w http.ResponseWriter, r *http.Request, _ *claims) {
	id := model.ID(mux.Vars(r)["id"])

	b.mu.Lock()
	before := len(b.vehicles)
	kept := b.vehicles[:0]
	for _, v := range b.vehicles {
		if v.ID != id {
			kept = append(kept, v)
		}
	}
	b.vehicles = kept
	removed := len(kept) != before
	b.mu.Unlock()

	if !removed {
		writeError(w, http.StatusNotFound, "Vehicle not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
	b.emit("vehicle:deleted")
}

func (b *Backend) listCommands(w http.ResponseWriter, _ *http.Request, _ *claims) {
	writeJSON(w, http.StatusOK, b.Commands())
}

func (b *Backend) createCommand(w http.ResponseWriter, r *http.Request, c *claims) {
	var in model.CommandInput
	if !decode(w, r, &in) {
		return
	}
	requester := c.Username
	if c.Role == string(model.RoleAdmin) && in.RequesterName != "" {
		requester = in.RequesterName
	}
	if in.Message == "" {
		writeError(w, http.StatusBadRequest, "Message required")
		return
	}

	b.mu.Lock()
	cmd := model.Command{
		ID:            b.id(),
		RequesterName: requester,
		Message:       in.Message,
		Status:        model.CommandStatusQueued,
		CreatedAt:     model.Timestamp{Time: b.now().UTC()},
	}
	b.commands = append(b.commands, cmd)
	b.mu.Unlock()

	writeJSON(w, http.StatusCreated, cmd)
	b.emit("command:received")
}

func (b *Backend) replyCommand(w http.ResponseWriter, r *http.Request, _ *claims) {
	var in model.ReplyInput
	if !decode(w, r, &in) {
		return
	}
	id := model.ID(mux.Vars(r)["id"])

	b.mu.Lock()
	found := false
	for i := range b.commands {
		if b.commands[i].ID == id {
			resp := in.Response
			b.commands[i].Response = &resp
			b.commands[i].Status = model.CommandStatusAnswered
			found = true
		}
	}
	b.mu.Unlock()

	if !found {
		writeError(w, http.StatusNotFound, "Command not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "replied"})
	b.emit("command:updated")
}

// OnMutation registers fn to be called with the event name the real
// backend would push after each successful mutation.
func (b *Backend) OnMutation(fn func(event string)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notify = fn
}

func (b *Backend) emit(event string) {
	b.mu.Lock()
	fn := b.notify
	b.mu.Unlock()
	if fn != nil {
		fn(event)
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/fleetcore-io/fleetcore/internal/model"
)

func (c *Client) Login(ctx context.Context, creds model.Credentials) (*model.LoginResult, error) {
	var res model.LoginResult
	if err := c.Do(ctx, http.MethodPost, "/auth/login", creds, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Register(ctx context.Context, reg model.Registration) error {
	return c.Do(ctx, http.MethodPost, "/auth/register", reg, nil)
}

func (c *Client) UpdateSettings(ctx context.Context, upd model.SettingsUpdate) error {
	return c.Do(ctx, http.MethodPut, "/auth/settings", upd, nil)
}

func (c *Client) ListVehicles(ctx context.Context) ([]model.Vehicle, error) {
	var vs []model.Vehicle
	if err := c.Do(ctx, http.MethodGet, "/vehicles", nil, &vs); err != nil {
		return nil, err
	}
	return vs, nil
}

func (c *Client) CreateVehicle(ctx context.Context, in model.VehicleInput) error {
	return c.Do(ctx, http.MethodPost, "/vehicles", in, nil)
}

func (c *Client) UpdateVehicle(ctx context.Context, id model.ID, in model.VehicleInput) error {
	return c.Do(ctx, http.MethodPut, "/vehicles/"+url.PathEscape(id.String()), in, nil)
}

func (c *Client) DeleteVehicle(ctx context.Context, id model.ID) error {
	return c.Do(ctx, http.MethodDelete, "/vehicles/"+url.PathEscape(id.String()), nil, nil)
}

func (c *Client) ListCommands(ctx context.Context) ([]model.Command, error) {
	var cs []model.Command
	if err := c.Do(ctx, http.MethodGet, "/commands", nil, &cs); err != nil {
		return nil, err
	}
	return cs, nil
}

func (c *Client) CreateCommand(ctx context.Context, in model.CommandInput) error {
	return c.Do(ctx, http.MethodPost, "/commands", in, nil)
}

func (c *Client) ReplyCommand(ctx context.Context, id model.ID, in model.ReplyInput) error {
	return c.Do(ctx, http.MethodPut, "/commands/"+url.PathEscape(id.String())+"/reply", in, nil)
}

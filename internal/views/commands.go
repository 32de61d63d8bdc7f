package views

import (
	"context"
	"strings"

	"github.com/go-logr/logr"

	"github.com/fleetcore-io/fleetcore/internal/model"
	"github.com/fleetcore-io/fleetcore/internal/projection"
	"github.com/fleetcore-io/fleetcore/internal/session"
	"github.com/fleetcore-io/fleetcore/pkg/events"
)

// CommandsView is the command queue. Admins see every command with its
// requester and may reply; other users see only the commands they filed.
// The scoping is presentation only, the backend decides what is served.
type CommandsView struct {
	*List[model.Command]

	api     API
	session *session.Session
}

func NewCommandsView(api API, sess *session.Session, log logr.Logger) *CommandsView {
	cfg := listConfig[model.Command]{
		name:     "commands",
		desc:     projection.Commands,
		fetch:    api.ListCommands,
		triggers: events.CommandEvents,
		log:      log.WithName("commands"),
	}
	if !sess.IsAdmin() {
		cfg.scope = projection.OwnCommands(sess.Username)
		for _, c := range projection.Commands.Columns {
			if c.Header != "Requester" {
				cfg.columns = append(cfg.columns, c)
			}
		}
	}
	return &CommandsView{List: newList(cfg), api: api, session: sess}
}

// CanReply reports whether the reply action is offered for c.
func (v *CommandsView) CanReply(c model.Command) bool {
	return v.session.IsAdmin() && c.Queued()
}

// CanSendOnBehalf reports whether the requester field is offered.
func (v *CommandsView) CanSendOnBehalf() bool { return v.session.IsAdmin() }

// Command looks up a command in the current snapshot.
func (v *CommandsView) Command(id model.ID) (model.Command, bool) {
	return v.find(func(c model.Command) bool { return c.ID == id })
}

// Send files a command as the current user.
func (v *CommandsView) Send(ctx context.Context, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return invalid("message", "Command required")
	}
	return v.create(ctx, model.CommandInput{Message: message})
}

// SendOnBehalf files a command for requester. Admin only.
func (v *CommandsView) SendOnBehalf(ctx context.Context, requester, message string) error {
	if !v.CanSendOnBehalf() {
		return ErrAdminOnly
	}
	requester, message = strings.TrimSpace(requester), strings.TrimSpace(message)
	if requester == "" || message == "" {
		return &ValidationError{Message: "Requester and Command required"}
	}
	return v.create(ctx, model.CommandInput{RequesterName: requester, Message: message})
}

func (v *CommandsView) create(ctx context.Context, in model.CommandInput) error {
	if err := v.api.CreateCommand(ctx, in); err != nil {
		return err
	}
	v.Refresh()
	return nil
}

// Reply answers a queued command. Admin only.
func (v *CommandsView) Reply(ctx context.Context, id model.ID, response string) error {
	if !v.session.IsAdmin() {
		return ErrAdminOnly
	}
	response = strings.TrimSpace(response)
	if response == "" {
		return invalid("response", "Reply required")
	}
	c, ok := v.Command(id)
	if !ok {
		return invalid("id", "Command not found")
	}
	if !c.Queued() {
		return invalid("id", "Command already answered")
	}

	if err := v.api.ReplyCommand(ctx, id, model.ReplyInput{Response: response}); err != nil {
		return err
	}
	v.Refresh()
	return nil
}

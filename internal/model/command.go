package model

// CommandStatus is the lifecycle state of an operator command.
type CommandStatus string

const (
	// CommandStatusQueued commands are waiting for an admin reply.
	CommandStatusQueued   CommandStatus = "queued"
	CommandStatusAnswered CommandStatus = "answered"
)

// Command is a text request from an operator to the fleet administrators.
type Command struct {
	ID            ID            `json:"id"`
	RequesterName string        `json:"requester_name"`
	Message       string        `json:"message"`
	Status        CommandStatus `json:"status"`
	Response      *string       `json:"response,omitempty"`
	CreatedAt     Timestamp     `json:"created_at"`
}

// Queued reports whether the command still awaits a reply.
func (c Command) Queued() bool {
	return c.Status == CommandStatusQueued
}

// ResponseText returns the reply or "" when there is none.
func (c Command) ResponseText() string {
	if c.Response == nil {
		return ""
	}
	return *c.Response
}

// CommandInput is the body of POST /commands. RequesterName is only sent by
// admins filing a command on behalf of someone else.
type CommandInput struct {
	RequesterName string `json:"requester_name,omitempty"`
	Message       string `json:"message"`
}

// ReplyInput is the body of PUT /commands/:id/reply.
type ReplyInput struct {
	Response string `json:"response"`
}

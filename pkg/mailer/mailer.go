package mailer

import (
	"context"

	"github.com/cmoscoso25/flujosdigitales-api/pkg/enums"
)

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Mailer dispatches messages. Implementations must be safe for concurrent
// use; retries are the caller's job.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
	Channel() enums.DeliveryChannel
}

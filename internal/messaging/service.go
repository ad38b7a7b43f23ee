// Package messaging delivers outbound WhatsApp replies through a
// pluggable provider. Delivery is fire-and-forget from the webhook's
// point of view: failures are logged and never change the turn result.
package messaging

import "context"

// Sender is the message delivery abstraction. Z-API is the default
// provider; Twilio is available as an alternative.
type Sender interface {
	// SendMessage sends body to the given phone number.
	SendMessage(ctx context.Context, phone string, body string) error
}

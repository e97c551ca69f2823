// Package notify delivers account lifecycle mail. Delivery is best effort:
// callers log failures and never fail the request because of them.
package notify

import (
	"context"
	"fmt"
)

// Message is a single plain-text mail to one recipient.
type Message struct {
	ToEmail string
	ToName  string
	Subject string
	Body    string
}

// Notifier sends messages to users.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// Welcome is sent after a successful registration.
func Welcome(email, name string) Message {
	return Message{
		ToEmail: email,
		ToName:  name,
		Subject: "Welcome to the Task Manager",
		Body:    fmt.Sprintf("Thanks for registering, %s. Let us know what you think of the app.", name),
	}
}

// Goodbye is sent after an account was deleted.
func Goodbye(email, name string) Message {
	return Message{
		ToEmail: email,
		ToName:  name,
		Subject: "Sorry to see you go",
		Body:    fmt.Sprintf("Your account is gone, %s. Please tell us how we could have done better.", name),
	}
}

package domain

import "time"

// Port is what the rest of the shell uses to talk to the user
type Port interface {
	Push(sev Severity, msg string) Notification
	PushFor(sev Severity, msg string, ttl time.Duration) Notification
	Active() []Notification
	Dismiss(id string) bool
	SetStatus(msg string)
	Status() string
	Observe(fn func(Event)) (cancel func())
}

// Package queue defines message payloads exchanged over the message broker
// and the background consumer that drains them.
package queue

// LoginEvent is published after every successful login. It carries enough
// information for downstream consumers to log or feed analytics without
// querying the primary database.
type LoginEvent struct {
	UserID   uint64 `json:"user_id"`
	Login    string `json:"login"`
	IPAddr   string `json:"ip_addr"`
	Platform string `json:"platform"`
	Device   string `json:"device"`
	LoginAt  string `json:"login_at"`
}

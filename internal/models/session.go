package models

import "time"

// Session is one authenticated login of the user, as listed by the server.
type Session struct {
	ID           string    `json:"_id"`
	Token        string    `json:"token"`
	Device       string    `json:"device"`
	Browser      string    `json:"browser"`
	LastActivity time.Time `json:"lastActivity"`
	Location     string    `json:"location"`
}

// IsCurrent reports whether the session belongs to the locally held token.
// An empty local token never matches.
func (s Session) IsCurrent(localToken string) bool {
	return localToken != "" && s.Token == localToken
}

// SessionCloseResult describes what a close action did locally. ServerErr holds the gateway failure of a
// self-termination that still logged out locally.
type SessionCloseResult struct {
	Message      string    `json:"message"`
	LoggedOut    bool      `json:"logged_out"`
	ServerClosed bool      `json:"server_closed"`
	Remaining    []Session `json:"remaining"`
	ServerErr    error     `json:"-"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the error payload of the gateway.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

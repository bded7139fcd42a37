package model

import "time"

// Platform classifies the device a login came from, derived from the
// User-Agent header.
type Platform string

const (
	PlatformPC     Platform = "pc"
	PlatformMobile Platform = "mobile"
	PlatformTablet Platform = "tablet"
)

// AuthHistory is an append-only audit record created once per successful
// login.  Rows are never mutated; retention is handled by out-of-band bulk
// jobs.
//
// Fields:
//
//	ID        – primary key identifier.
//	UserID    – owner of the record.
//	UserAgent – raw User-Agent header of the login request.
//	IPAddr    – client IP address.
//	Device    – device label derived from the user agent.
//	Platform  – pc/mobile/tablet classification.
//	CreatedAt – when the login happened.
type AuthHistory struct {
	ID        uint64    // auth_history.id
	UserID    uint64    // auth_history.user_id
	UserAgent string    // auth_history.user_agent
	IPAddr    string    // auth_history.ip_addr
	Device    string    // auth_history.device
	Platform  Platform  // auth_history.platform
	CreatedAt time.Time // auth_history.created_at
}

package domain

import "time"

type SyncStatus string

const (
	SyncActive       SyncStatus = "active"
	SyncError        SyncStatus = "error"
	SyncDisconnected SyncStatus = "disconnected"
)

// Credential is the OAuth token pair for one tenant's external calendar.
// It is loaded from the sync record and passed by value into every gateway
// call; nothing holds it in process-wide state.
type Credential struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenExpiry  time.Time `json:"token_expiry"`
}

// Expired reports whether the access token needs a refresh before use.
// A small margin covers clock skew and request latency.
func (c Credential) Expired(now time.Time) bool {
	return !c.TokenExpiry.After(now.Add(30 * time.Second))
}

type CalendarSync struct {
	ClientID     string     `json:"client_id"`
	CalendarID   string     `json:"calendar_id"`
	SyncEnabled  bool       `json:"sync_enabled"`
	SyncStatus   SyncStatus `json:"sync_status"`
	LastSyncTime *time.Time `json:"last_sync_time,omitempty"`
	Credential   Credential `json:"-"`
	LastError    string     `json:"last_error,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Active reports whether reservations should be mirrored for this tenant.
func (s *CalendarSync) Active() bool {
	return s != nil && s.SyncEnabled && s.SyncStatus == SyncActive
}

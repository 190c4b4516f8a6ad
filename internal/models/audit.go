package models

import "time"

// AuditLogEntry records every admin lifecycle call and every ignored
// non-admin mini-game command, so the (out of scope) admin dashboard has
// something durable to read (SPEC_FULL.md §3.1).
type AuditLogEntry struct {
	ID          int64     `json:"id"`
	ActorUserID int64     `json:"actorUserId"`
	Action      string    `json:"action"`
	TargetKind  string    `json:"targetKind"`
	TargetID    string    `json:"targetId,omitempty"`
	Detail      string    `json:"detail,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Session is the durable record of a connect/disconnect pair on the
// broadcast bus, feeding the out-of-scope "online-presence history"
// collaborator (SPEC_FULL.md §3.1). The bus's own in-memory registry is
// the source of truth for who's connected right now.
type Session struct {
	ID           string     `json:"id"`
	UserID       int64      `json:"userId"`
	Role         Role       `json:"role"`
	ConnectedAt  time.Time  `json:"connectedAt"`
	DisconnectedAt *time.Time `json:"disconnectedAt,omitempty"`
}

package cadastre

// RecordInput carries the mutable record fields for register and modify.
type RecordInput struct {
	Name       string   `json:"name"`
	Volume     int64    `json:"volume"`
	Summary    string   `json:"summary"`
	Categories []string `json:"categories"`
}

// RecordView is the read representation of a record, including its
// attestation when one exists.
type RecordView struct {
	ID           uint64           `json:"id"`
	Name         string           `json:"name"`
	Holder       string           `json:"holder"`
	Volume       int64            `json:"volume"`
	RegisteredAt int64            `json:"registeredAt"`
	Summary      string           `json:"summary"`
	Categories   []string         `json:"categories"`
	Attestation  *AttestationView `json:"attestation,omitempty"`
}

// AttestationView is the read representation of an attestation. Stale is
// true when the record payload changed after the attestation was recorded.
type AttestationView struct {
	Authenticated bool   `json:"authenticated"`
	Attestor      string `json:"attestor"`
	AttestedAt    int64  `json:"attestedAt"`
	Notes         string `json:"notes"`
	Stale         bool   `json:"stale"`
}

type RegisterResponse struct {
	ID uint64 `json:"id"`
}

type ReassignRequest struct {
	NewHolder string `json:"newHolder"`
}

type GrantRequest struct {
	Accessor string `json:"accessor"`
}

type AttestRequest struct {
	Notes string `json:"notes"`
}

type AuthenticatorStatus struct {
	Identity string `json:"identity"`
	Present  bool   `json:"present"`
}

type Stats struct {
	RecordCount  uint64 `json:"recordCount"`
	CurrentClock int64  `json:"currentClock"`
}

// WellKnownCadastre describes the node for discovery.
type WellKnownCadastre struct {
	Version   string              `json:"version"`
	Domain    string              `json:"domain"`
	Admin     string              `json:"admin"`
	Endpoints map[string]Endpoint `json:"endpoints"`
}

type Endpoint struct {
	Template string    `json:"template"`
	Method   string    `json:"method"`
	Query    *[]string `json:"query,omitempty"`
}

// Event is broadcast on the realtime channel after every committed
// mutating operation.
type Event struct {
	Kind     string `json:"kind"`
	RecordID uint64 `json:"recordId,omitempty"`
	Actor    string `json:"actor"`
	Clock    int64  `json:"clock"`
}

const (
	EventRegister               = "record.register"
	EventModify                 = "record.modify"
	EventReassign               = "record.reassign"
	EventDelete                 = "record.delete"
	EventGrant                  = "access.grant"
	EventRevoke                 = "access.revoke"
	EventAttest                 = "record.attest"
	EventAuthenticatorAuthorize = "authenticator.authorize"
	EventAuthenticatorRevoke    = "authenticator.revoke"
)

package domain

// Record is a registered property entry. ID and RegisteredAt are immutable
// after creation; the remaining fields change only through the holder.
type Record struct {
	ID           uint64   `json:"id"`
	Name         string   `json:"name"`
	Holder       string   `json:"holder"`
	Volume       int64    `json:"volume"`
	RegisteredAt int64    `json:"registeredAt"`
	Summary      string   `json:"summary"`
	Categories   []string `json:"categories"`
}

// AccessGrant is an explicit read permission on a record, keyed by
// (record id, accessor). Absence of a row means no explicit access.
type AccessGrant struct {
	RecordID  uint64 `json:"recordId"`
	Accessor  string `json:"accessor"`
	CanAccess bool   `json:"canAccess"`
}

// Attestation is a third-party legitimacy check on a record, keyed by
// record id. Fingerprint captures the payload at attestation time.
type Attestation struct {
	RecordID      uint64 `json:"recordId"`
	Authenticated bool   `json:"authenticated"`
	Attestor      string `json:"attestor"`
	AttestedAt    int64  `json:"attestedAt"`
	Notes         string `json:"notes"`
	Fingerprint   string `json:"fingerprint"`
}

// Authenticator is an identity the administrator delegated attestation
// power to.
type Authenticator struct {
	Identity   string `json:"identity"`
	Authorized bool   `json:"authorized"`
}

// Stats is a read-only snapshot of the record counter and logical clock.
type Stats struct {
	RecordCount  uint64 `json:"recordCount"`
	CurrentClock int64  `json:"currentClock"`
}

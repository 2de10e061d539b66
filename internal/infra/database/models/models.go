package models

import (
	"time"
)

type Record struct {
	ID           uint64    `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Name         string    `json:"name" gorm:"type:text;not null"`
	Holder       string    `json:"holder" gorm:"type:text;index;not null"`
	Volume       int64     `json:"volume" gorm:"not null"`
	RegisteredAt int64     `json:"registeredAt" gorm:"not null"`
	Summary      string    `json:"summary" gorm:"type:text;not null"`
	Categories   string    `json:"categories" gorm:"type:text;not null"` // json-encoded label list
	CDate        time.Time `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}

type AccessGrant struct {
	RecordID  uint64    `json:"recordId" gorm:"primaryKey;autoIncrement:false"`
	Record    Record    `json:"-" gorm:"constraint:OnDelete:CASCADE;"`
	Accessor  string    `json:"accessor" gorm:"type:text;index;primaryKey"`
	CanAccess bool      `json:"canAccess" gorm:"not null;default:false"`
	CDate     time.Time `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}

type Attestation struct {
	RecordID      uint64    `json:"recordId" gorm:"primaryKey;autoIncrement:false"`
	Record        Record    `json:"-" gorm:"constraint:OnDelete:CASCADE;"`
	Authenticated bool      `json:"authenticated" gorm:"not null;default:false"`
	Attestor      string    `json:"attestor" gorm:"type:text;index"`
	AttestedAt    int64     `json:"attestedAt" gorm:"not null"`
	Notes         string    `json:"notes" gorm:"type:text"`
	Fingerprint   string    `json:"fingerprint" gorm:"type:text"`
	CDate         time.Time `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}

type Authenticator struct {
	Identity   string    `json:"identity" gorm:"primaryKey;type:text"`
	Authorized bool      `json:"authorized" gorm:"not null;default:false"`
	CDate      time.Time `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}

// Counter is the single-row record id counter. Row id 1 always exists.
type Counter struct {
	ID    uint32 `json:"id" gorm:"primaryKey"`
	Value uint64 `json:"value" gorm:"not null;default:0"`
}

package usecase

import (
	"context"

	"github.com/opencadastre/cadastre"
	"github.com/opencadastre/cadastre/internal/domain"
)

// RecordRepository defines storage for records. Create assigns the next
// record id from the counter and writes the record together with the
// holder's implicit access grant in one transaction; ids are never reused.
type RecordRepository interface {
	Create(ctx context.Context, record domain.Record) (uint64, error)
	Get(ctx context.Context, id uint64) (domain.Record, error)
	Update(ctx context.Context, record domain.Record) error
	Delete(ctx context.Context, id uint64) error
}

// GrantRepository defines storage for per-(record, accessor) access grants.
// Put upserts, Delete of a missing row is not an error.
type GrantRepository interface {
	Put(ctx context.Context, grant domain.AccessGrant) error
	Get(ctx context.Context, recordID uint64, accessor string) (domain.AccessGrant, error)
	Delete(ctx context.Context, recordID uint64, accessor string) error
}

// AttestationRepository defines storage for per-record attestations.
type AttestationRepository interface {
	Put(ctx context.Context, attestation domain.Attestation) error
	Get(ctx context.Context, recordID uint64) (domain.Attestation, error)
}

// AuthenticatorRepository defines storage for the authenticator registry.
type AuthenticatorRepository interface {
	Put(ctx context.Context, authenticator domain.Authenticator) error
	Get(ctx context.Context, identity string) (domain.Authenticator, error)
	Delete(ctx context.Context, identity string) error
}

// CounterRepository exposes the record counter for stats snapshots. The
// counter itself advances inside RecordRepository.Create.
type CounterRepository interface {
	Current(ctx context.Context) (uint64, error)
}

// Clock is the environment's logical block counter.
type Clock interface {
	Now(ctx context.Context) (int64, error)
	Advance(ctx context.Context) (int64, error)
}

// EventPublisher fans committed registry events out to subscribers.
type EventPublisher interface {
	Publish(ctx context.Context, event cadastre.Event) error
}

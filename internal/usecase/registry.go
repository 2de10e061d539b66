package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/opencadastre/cadastre"
	"github.com/opencadastre/cadastre/internal/domain"
)

// RegistryUsecase is the registry's state machine. Every operation is a
// single serialized transaction: guards run first, and a failed guard
// aborts with no state change. The mutex gives each top-level call the
// exclusive-access discipline the stores rely on, notably the counter
// read-then-write in Register.
type RegistryUsecase struct {
	mu sync.RWMutex

	admin          string
	records        RecordRepository
	grants         GrantRepository
	attestations   AttestationRepository
	authenticators AuthenticatorRepository
	counter        CounterRepository
	clock          Clock
	signal         EventPublisher
}

func NewRegistryUsecase(
	config domain.Config,
	records RecordRepository,
	grants GrantRepository,
	attestations AttestationRepository,
	authenticators AuthenticatorRepository,
	counter CounterRepository,
	clock Clock,
	signal EventPublisher,
) *RegistryUsecase {
	return &RegistryUsecase{
		admin:          config.Admin,
		records:        records,
		grants:         grants,
		attestations:   attestations,
		authenticators: authenticators,
		counter:        counter,
		clock:          clock,
		signal:         signal,
	}
}

// ReadResult bundles a record with its attestation, if any.
type ReadResult struct {
	Record      domain.Record
	Attestation *domain.Attestation
}

// Register validates the input, assigns the next record id and stores the
// record with caller as holder. The caller also receives an explicit
// access grant row alongside the implicit holder access.
func (u *RegistryUsecase) Register(ctx context.Context, caller string, input cadastre.RecordInput) (uint64, error) {
	if caller == "" {
		return 0, domain.ErrUnauthorized
	}
	if err := ValidateRecordInput(input); err != nil {
		return 0, err
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	ts, err := u.clock.Advance(ctx)
	if err != nil {
		return 0, err
	}

	record := domain.Record{
		Name:         input.Name,
		Holder:       caller,
		Volume:       input.Volume,
		RegisteredAt: ts,
		Summary:      input.Summary,
		Categories:   input.Categories,
	}

	id, err := u.records.Create(ctx, record)
	if err != nil {
		return 0, err
	}

	u.publish(ctx, cadastre.Event{Kind: cadastre.EventRegister, RecordID: id, Actor: caller, Clock: ts})
	return id, nil
}

// Modify replaces all mutable fields at once. Only the current holder may
// modify; id, holder and registration time are preserved.
func (u *RegistryUsecase) Modify(ctx context.Context, caller string, id uint64, input cadastre.RecordInput) error {
	if err := ValidateRecordInput(input); err != nil {
		return err
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	record, err := u.records.Get(ctx, id)
	if err != nil {
		return err
	}
	if record.Holder != caller {
		return domain.ErrUnauthorized
	}

	record.Name = input.Name
	record.Volume = input.Volume
	record.Summary = input.Summary
	record.Categories = input.Categories

	ts, err := u.clock.Advance(ctx)
	if err != nil {
		return err
	}

	if err := u.records.Update(ctx, record); err != nil {
		return err
	}

	u.publish(ctx, cadastre.Event{Kind: cadastre.EventModify, RecordID: id, Actor: caller, Clock: ts})
	return nil
}

// ReassignHolder hands the record to newHolder. Grant and attestation
// relations are left untouched: the old holder's implicit access lapses,
// explicit grants keep working because they key on the record id.
func (u *RegistryUsecase) ReassignHolder(ctx context.Context, caller string, id uint64, newHolder string) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	record, err := u.records.Get(ctx, id)
	if err != nil {
		return err
	}
	if record.Holder != caller {
		return domain.ErrUnauthorized
	}

	record.Holder = newHolder
	ts, err := u.clock.Advance(ctx)
	if err != nil {
		return err
	}

	if err := u.records.Update(ctx, record); err != nil {
		return err
	}

	u.publish(ctx, cadastre.Event{Kind: cadastre.EventReassign, RecordID: id, Actor: caller, Clock: ts})
	return nil
}

// Delete removes the record and, by cascade, its grant and attestation
// rows. Removal is final; the id is never reissued.
func (u *RegistryUsecase) Delete(ctx context.Context, caller string, id uint64) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	record, err := u.records.Get(ctx, id)
	if err != nil {
		return err
	}
	if record.Holder != caller {
		return domain.ErrUnauthorized
	}

	ts, err := u.clock.Advance(ctx)
	if err != nil {
		return err
	}

	if err := u.records.Delete(ctx, id); err != nil {
		return err
	}

	u.publish(ctx, cadastre.Event{Kind: cadastre.EventDelete, RecordID: id, Actor: caller, Clock: ts})
	return nil
}

// GrantAccess gives accessor explicit read access. Granting an already
// granted accessor is a no-op success.
func (u *RegistryUsecase) GrantAccess(ctx context.Context, caller string, id uint64, accessor string) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	record, err := u.records.Get(ctx, id)
	if err != nil {
		return err
	}
	if record.Holder != caller {
		return domain.ErrUnauthorized
	}

	grant := domain.AccessGrant{RecordID: id, Accessor: accessor, CanAccess: true}
	ts, err := u.clock.Advance(ctx)
	if err != nil {
		return err
	}

	if err := u.grants.Put(ctx, grant); err != nil {
		return err
	}

	u.publish(ctx, cadastre.Event{Kind: cadastre.EventGrant, RecordID: id, Actor: caller, Clock: ts})
	return nil
}

// RevokeAccess removes accessor's grant row if present. The holder cannot
// revoke their own implicit access through this path.
func (u *RegistryUsecase) RevokeAccess(ctx context.Context, caller string, id uint64, accessor string) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	record, err := u.records.Get(ctx, id)
	if err != nil {
		return err
	}
	if record.Holder != caller {
		return domain.ErrUnauthorized
	}
	if accessor == caller {
		return domain.ErrForbidden
	}

	ts, err := u.clock.Advance(ctx)
	if err != nil {
		return err
	}

	if err := u.grants.Delete(ctx, id, accessor); err != nil {
		return err
	}

	u.publish(ctx, cadastre.Event{Kind: cadastre.EventRevoke, RecordID: id, Actor: caller, Clock: ts})
	return nil
}

// Read returns the record when caller is the holder or holds a grant row
// with can-access set. A grant row with the flag cleared does not admit.
func (u *RegistryUsecase) Read(ctx context.Context, caller string, id uint64) (ReadResult, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	record, err := u.records.Get(ctx, id)
	if err != nil {
		return ReadResult{}, err
	}

	if record.Holder != caller {
		grant, err := u.grants.Get(ctx, id, caller)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return ReadResult{}, domain.ErrReadForbidden
			}
			return ReadResult{}, err
		}
		if !grant.CanAccess {
			return ReadResult{}, domain.ErrReadForbidden
		}
	}

	result := ReadResult{Record: record}

	attestation, err := u.attestations.Get(ctx, id)
	if err == nil {
		result.Attestation = &attestation
	} else if !errors.Is(err, domain.ErrNotFound) {
		return ReadResult{}, err
	}

	return result, nil
}

// Attest records, or overwrites, a legitimacy check on the record. Only an
// authenticator with its authorized flag set may attest; the administrator
// has no standing unless separately authorized.
func (u *RegistryUsecase) Attest(ctx context.Context, caller string, id uint64, notes string) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	record, err := u.records.Get(ctx, id)
	if err != nil {
		return err
	}

	authenticator, err := u.authenticators.Get(ctx, caller)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrUnauthorized
		}
		return err
	}
	if !authenticator.Authorized {
		return domain.ErrUnauthorized
	}

	ts, err := u.clock.Advance(ctx)
	if err != nil {
		return err
	}

	attestation := domain.Attestation{
		RecordID:      id,
		Authenticated: true,
		Attestor:      caller,
		AttestedAt:    ts,
		Notes:         notes,
		Fingerprint:   cadastre.FingerprintRecord(record.Name, record.Volume, record.Summary, record.Categories),
	}
	if err := u.attestations.Put(ctx, attestation); err != nil {
		return err
	}

	u.publish(ctx, cadastre.Event{Kind: cadastre.EventAttest, RecordID: id, Actor: caller, Clock: ts})
	return nil
}

// CheckAuthenticatorStatus reports whether a registry row exists for the
// identity. The authorized flag is deliberately not inspected here.
func (u *RegistryUsecase) CheckAuthenticatorStatus(ctx context.Context, identity string) (bool, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	_, err := u.authenticators.Get(ctx, identity)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// AuthorizeAuthenticator installs identity into the authenticator registry.
// Administrator only.
func (u *RegistryUsecase) AuthorizeAuthenticator(ctx context.Context, caller string, identity string) error {
	if caller != u.admin {
		return domain.ErrAdminRestricted
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	ts, err := u.clock.Advance(ctx)
	if err != nil {
		return err
	}

	if err := u.authenticators.Put(ctx, domain.Authenticator{Identity: identity, Authorized: true}); err != nil {
		return err
	}

	u.publish(ctx, cadastre.Event{Kind: cadastre.EventAuthenticatorAuthorize, Actor: caller, Clock: ts})
	return nil
}

// RevokeAuthenticator removes identity from the authenticator registry.
// Administrator only; removing an absent identity succeeds.
func (u *RegistryUsecase) RevokeAuthenticator(ctx context.Context, caller string, identity string) error {
	if caller != u.admin {
		return domain.ErrAdminRestricted
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	ts, err := u.clock.Advance(ctx)
	if err != nil {
		return err
	}

	if err := u.authenticators.Delete(ctx, identity); err != nil {
		return err
	}

	u.publish(ctx, cadastre.Event{Kind: cadastre.EventAuthenticatorRevoke, Actor: caller, Clock: ts})
	return nil
}

// Stats snapshots the record counter and the logical clock.
func (u *RegistryUsecase) Stats(ctx context.Context) (domain.Stats, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	count, err := u.counter.Current(ctx)
	if err != nil {
		return domain.Stats{}, err
	}
	clock, err := u.clock.Now(ctx)
	if err != nil {
		return domain.Stats{}, err
	}
	return domain.Stats{RecordCount: count, CurrentClock: clock}, nil
}

func (u *RegistryUsecase) publish(ctx context.Context, event cadastre.Event) {
	if u.signal == nil {
		return
	}
	if err := u.signal.Publish(ctx, event); err != nil {
		slog.WarnContext(ctx, "failed to publish registry event",
			slog.String("kind", event.Kind),
			slog.String("error", err.Error()),
			slog.String("module", "registry"),
		)
	}
}

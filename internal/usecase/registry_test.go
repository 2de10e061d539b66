package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/opencadastre/cadastre"
	"github.com/opencadastre/cadastre/internal/domain"
)

// --- mocks ---

type grantKey struct {
	id       uint64
	accessor string
}

type memState struct {
	records        map[uint64]domain.Record
	counter        uint64
	grants         map[grantKey]domain.AccessGrant
	attestations   map[uint64]domain.Attestation
	authenticators map[string]domain.Authenticator
	clock          int64
	events         []cadastre.Event
}

func newMemState() *memState {
	return &memState{
		records:        map[uint64]domain.Record{},
		grants:         map[grantKey]domain.AccessGrant{},
		attestations:   map[uint64]domain.Attestation{},
		authenticators: map[string]domain.Authenticator{},
	}
}

type memRecords struct{ s *memState }

func (m *memRecords) Create(ctx context.Context, record domain.Record) (uint64, error) {
	m.s.counter++
	record.ID = m.s.counter
	m.s.records[record.ID] = record
	m.s.grants[grantKey{record.ID, record.Holder}] = domain.AccessGrant{
		RecordID: record.ID, Accessor: record.Holder, CanAccess: true,
	}
	return record.ID, nil
}

func (m *memRecords) Get(ctx context.Context, id uint64) (domain.Record, error) {
	record, ok := m.s.records[id]
	if !ok {
		return domain.Record{}, domain.Error{Kind: domain.KindNotFound, Resource: "record"}
	}
	return record, nil
}

func (m *memRecords) Update(ctx context.Context, record domain.Record) error {
	if _, ok := m.s.records[record.ID]; !ok {
		return domain.Error{Kind: domain.KindNotFound, Resource: "record"}
	}
	m.s.records[record.ID] = record
	return nil
}

func (m *memRecords) Delete(ctx context.Context, id uint64) error {
	if _, ok := m.s.records[id]; !ok {
		return domain.Error{Kind: domain.KindNotFound, Resource: "record"}
	}
	delete(m.s.records, id)
	for key := range m.s.grants {
		if key.id == id {
			delete(m.s.grants, key)
		}
	}
	delete(m.s.attestations, id)
	return nil
}

type memGrants struct{ s *memState }

func (m *memGrants) Put(ctx context.Context, grant domain.AccessGrant) error {
	m.s.grants[grantKey{grant.RecordID, grant.Accessor}] = grant
	return nil
}

func (m *memGrants) Get(ctx context.Context, recordID uint64, accessor string) (domain.AccessGrant, error) {
	grant, ok := m.s.grants[grantKey{recordID, accessor}]
	if !ok {
		return domain.AccessGrant{}, domain.Error{Kind: domain.KindNotFound, Resource: "grant"}
	}
	return grant, nil
}

func (m *memGrants) Delete(ctx context.Context, recordID uint64, accessor string) error {
	delete(m.s.grants, grantKey{recordID, accessor})
	return nil
}

type memAttestations struct{ s *memState }

func (m *memAttestations) Put(ctx context.Context, attestation domain.Attestation) error {
	m.s.attestations[attestation.RecordID] = attestation
	return nil
}

func (m *memAttestations) Get(ctx context.Context, recordID uint64) (domain.Attestation, error) {
	attestation, ok := m.s.attestations[recordID]
	if !ok {
		return domain.Attestation{}, domain.Error{Kind: domain.KindNotFound, Resource: "attestation"}
	}
	return attestation, nil
}

type memAuthenticators struct{ s *memState }

func (m *memAuthenticators) Put(ctx context.Context, authenticator domain.Authenticator) error {
	m.s.authenticators[authenticator.Identity] = authenticator
	return nil
}

func (m *memAuthenticators) Get(ctx context.Context, identity string) (domain.Authenticator, error) {
	authenticator, ok := m.s.authenticators[identity]
	if !ok {
		return domain.Authenticator{}, domain.Error{Kind: domain.KindNotFound, Resource: "authenticator"}
	}
	return authenticator, nil
}

func (m *memAuthenticators) Delete(ctx context.Context, identity string) error {
	delete(m.s.authenticators, identity)
	return nil
}

type memCounter struct{ s *memState }

func (m *memCounter) Current(ctx context.Context) (uint64, error) { return m.s.counter, nil }

type memClock struct{ s *memState }

func (m *memClock) Now(ctx context.Context) (int64, error) { return m.s.clock, nil }
func (m *memClock) Advance(ctx context.Context) (int64, error) {
	m.s.clock++
	return m.s.clock, nil
}

type memSignal struct{ s *memState }

func (m *memSignal) Publish(ctx context.Context, event cadastre.Event) error {
	m.s.events = append(m.s.events, event)
	return nil
}

const (
	admin = "0xadmin"
	alice = "0xalice"
	bob   = "0xbob"
	carol = "0xcarol"
	dave  = "0xdave"
	eve   = "0xeve"
)

func newRegistry(t *testing.T) (*RegistryUsecase, *memState) {
	t.Helper()
	s := newMemState()
	u := NewRegistryUsecase(
		domain.Config{Admin: admin},
		&memRecords{s},
		&memGrants{s},
		&memAttestations{s},
		&memAuthenticators{s},
		&memCounter{s},
		&memClock{s},
		&memSignal{s},
	)
	return u, s
}

func validInput() cadastre.RecordInput {
	return cadastre.RecordInput{
		Name:       "Parcel 12 North",
		Volume:     500,
		Summary:    "twelve acres of farmland",
		Categories: []string{"farmland", "north"},
	}
}

// --- tests ---

func TestRegisterAssignsSequentialIDs(t *testing.T) {
	u, s := newRegistry(t)
	ctx := context.Background()

	for want := uint64(1); want <= 3; want++ {
		id, err := u.Register(ctx, alice, validInput())
		if err != nil {
			t.Fatalf("register failed: %v", err)
		}
		if id != want {
			t.Fatalf("expected id %d, got %d", want, id)
		}
		if s.counter != want {
			t.Fatalf("expected counter %d after register, got %d", want, s.counter)
		}
	}
}

func TestRegisterRequiresIdentity(t *testing.T) {
	u, _ := newRegistry(t)

	_, err := u.Register(context.Background(), "", validInput())
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestRegisterInvalidInputWritesNothing(t *testing.T) {
	u, s := newRegistry(t)

	input := validInput()
	input.Volume = 0
	_, err := u.Register(context.Background(), alice, input)
	if !errors.Is(err, domain.ErrInvalidVolume) {
		t.Fatalf("expected invalid volume, got %v", err)
	}
	if s.counter != 0 || len(s.records) != 0 || len(s.grants) != 0 {
		t.Fatalf("failed register must not write state")
	}
	if s.clock != 0 {
		t.Fatalf("failed register must not advance the clock")
	}
}

func TestDeletedIDsAreNeverReused(t *testing.T) {
	u, _ := newRegistry(t)
	ctx := context.Background()

	id, err := u.Register(ctx, alice, validInput())
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := u.Delete(ctx, alice, id); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	next, err := u.Register(ctx, alice, validInput())
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if next == id {
		t.Fatalf("record id %d was reissued after delete", id)
	}
}

func TestOnlyHolderMayMutate(t *testing.T) {
	u, _ := newRegistry(t)
	ctx := context.Background()

	id, err := u.Register(ctx, alice, validInput())
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if err := u.Modify(ctx, bob, id, validInput()); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("modify by non-holder: expected unauthorized, got %v", err)
	}
	if err := u.ReassignHolder(ctx, bob, id, carol); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("reassign by non-holder: expected unauthorized, got %v", err)
	}
	if err := u.Delete(ctx, bob, id); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("delete by non-holder: expected unauthorized, got %v", err)
	}
	if err := u.GrantAccess(ctx, bob, id, carol); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("grant by non-holder: expected unauthorized, got %v", err)
	}
	if err := u.RevokeAccess(ctx, bob, id, carol); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("revoke by non-holder: expected unauthorized, got %v", err)
	}
}

func TestMutateMissingRecord(t *testing.T) {
	u, _ := newRegistry(t)
	ctx := context.Background()

	if err := u.Modify(ctx, alice, 99, validInput()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := u.Read(ctx, alice, 99); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestReadAuthorization(t *testing.T) {
	u, _ := newRegistry(t)
	ctx := context.Background()

	id, err := u.Register(ctx, alice, validInput())
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if _, err := u.Read(ctx, alice, id); err != nil {
		t.Fatalf("holder read failed: %v", err)
	}

	if _, err := u.Read(ctx, bob, id); !errors.Is(err, domain.ErrReadForbidden) {
		t.Fatalf("ungranted read: expected read forbidden, got %v", err)
	}

	if err := u.GrantAccess(ctx, alice, id, bob); err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	result, err := u.Read(ctx, bob, id)
	if err != nil {
		t.Fatalf("granted read failed: %v", err)
	}
	if result.Record.Holder != alice {
		t.Fatalf("expected holder %s, got %s", alice, result.Record.Holder)
	}

	if err := u.RevokeAccess(ctx, alice, id, bob); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if _, err := u.Read(ctx, bob, id); !errors.Is(err, domain.ErrReadForbidden) {
		t.Fatalf("revoked read: expected read forbidden, got %v", err)
	}
}

func TestReadDeniedWhenGrantFlagFalse(t *testing.T) {
	u, s := newRegistry(t)
	ctx := context.Background()

	id, err := u.Register(ctx, alice, validInput())
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	// a grant row that exists but is disabled must not admit
	s.grants[grantKey{id, bob}] = domain.AccessGrant{RecordID: id, Accessor: bob, CanAccess: false}

	if _, err := u.Read(ctx, bob, id); !errors.Is(err, domain.ErrReadForbidden) {
		t.Fatalf("disabled grant: expected read forbidden, got %v", err)
	}
}

func TestGrantAccessIsIdempotent(t *testing.T) {
	u, s := newRegistry(t)
	ctx := context.Background()

	id, err := u.Register(ctx, alice, validInput())
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if err := u.GrantAccess(ctx, alice, id, bob); err != nil {
		t.Fatalf("first grant failed: %v", err)
	}
	if err := u.GrantAccess(ctx, alice, id, bob); err != nil {
		t.Fatalf("second grant failed: %v", err)
	}

	count := 0
	for key := range s.grants {
		if key.id == id && key.accessor == bob {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one grant row for %s, got %d", bob, count)
	}
}

func TestRevokeOwnAccessForbidden(t *testing.T) {
	u, _ := newRegistry(t)
	ctx := context.Background()

	id, err := u.Register(ctx, alice, validInput())
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if err := u.RevokeAccess(ctx, alice, id, alice); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("self revoke: expected forbidden, got %v", err)
	}
}

func TestRevokeAbsentGrantSucceeds(t *testing.T) {
	u, _ := newRegistry(t)
	ctx := context.Background()

	id, err := u.Register(ctx, alice, validInput())
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := u.RevokeAccess(ctx, alice, id, bob); err != nil {
		t.Fatalf("revoking an absent grant must succeed, got %v", err)
	}
}

func TestReassignHolderScenario(t *testing.T) {
	u, s := newRegistry(t)
	ctx := context.Background()

	input := validInput()
	input.Volume = 500
	id, err := u.Register(ctx, alice, input)
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if id != 1 {
		t.Fatalf("expected id 1, got %d", id)
	}

	if err := u.GrantAccess(ctx, alice, id, bob); err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	if _, err := u.Read(ctx, bob, id); err != nil {
		t.Fatalf("granted read failed: %v", err)
	}

	if err := u.ReassignHolder(ctx, alice, id, carol); err != nil {
		t.Fatalf("reassign failed: %v", err)
	}

	// bob's explicit grant survives reassignment
	if _, ok := s.grants[grantKey{id, bob}]; !ok {
		t.Fatalf("grant row for %s should survive reassignment", bob)
	}
	if _, err := u.Read(ctx, bob, id); err != nil {
		t.Fatalf("granted read after reassign failed: %v", err)
	}

	if err := u.Modify(ctx, carol, id, validInput()); err != nil {
		t.Fatalf("new holder modify failed: %v", err)
	}
	if err := u.Modify(ctx, alice, id, validInput()); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("old holder modify: expected unauthorized, got %v", err)
	}
}

func TestModifyPreservesImmutableFields(t *testing.T) {
	u, s := newRegistry(t)
	ctx := context.Background()

	id, err := u.Register(ctx, alice, validInput())
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	registeredAt := s.records[id].RegisteredAt

	input := validInput()
	input.Name = "Parcel 12 North, resurveyed"
	input.Volume = 400
	if err := u.Modify(ctx, alice, id, input); err != nil {
		t.Fatalf("modify failed: %v", err)
	}

	record := s.records[id]
	if record.ID != id || record.Holder != alice || record.RegisteredAt != registeredAt {
		t.Fatalf("modify must preserve id, holder and registration time")
	}
	if record.Name != input.Name || record.Volume != 400 {
		t.Fatalf("modify must replace mutable fields")
	}
}

func TestAttestRequiresAuthorizedAuthenticator(t *testing.T) {
	u, _ := newRegistry(t)
	ctx := context.Background()

	id, err := u.Register(ctx, alice, validInput())
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if err := u.Attest(ctx, eve, id, "looks fine"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("unknown attestor: expected unauthorized, got %v", err)
	}

	// the administrator has no standing unless separately authorized
	if err := u.Attest(ctx, admin, id, "admin says so"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("admin attest: expected unauthorized, got %v", err)
	}

	if err := u.AuthorizeAuthenticator(ctx, admin, dave); err != nil {
		t.Fatalf("authorize failed: %v", err)
	}
	if err := u.Attest(ctx, dave, id, "verified"); err != nil {
		t.Fatalf("authorized attest failed: %v", err)
	}

	result, err := u.Read(ctx, alice, id)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if result.Attestation == nil || !result.Attestation.Authenticated {
		t.Fatalf("expected an authenticated attestation")
	}
	if result.Attestation.Attestor != dave {
		t.Fatalf("expected attestor %s, got %s", dave, result.Attestation.Attestor)
	}
	if result.Attestation.Notes != "verified" {
		t.Fatalf("expected notes %q, got %q", "verified", result.Attestation.Notes)
	}
}

func TestAttestFingerprintTracksPayload(t *testing.T) {
	u, s := newRegistry(t)
	ctx := context.Background()

	id, err := u.Register(ctx, alice, validInput())
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := u.AuthorizeAuthenticator(ctx, admin, dave); err != nil {
		t.Fatalf("authorize failed: %v", err)
	}
	if err := u.Attest(ctx, dave, id, "verified"); err != nil {
		t.Fatalf("attest failed: %v", err)
	}

	record := s.records[id]
	want := cadastre.FingerprintRecord(record.Name, record.Volume, record.Summary, record.Categories)
	if s.attestations[id].Fingerprint != want {
		t.Fatalf("attestation fingerprint must match the payload at attestation time")
	}

	input := validInput()
	input.Summary = "resurveyed after the flood"
	if err := u.Modify(ctx, alice, id, input); err != nil {
		t.Fatalf("modify failed: %v", err)
	}
	record = s.records[id]
	now := cadastre.FingerprintRecord(record.Name, record.Volume, record.Summary, record.Categories)
	if s.attestations[id].Fingerprint == now {
		t.Fatalf("fingerprint must diverge after the payload changes")
	}
}

func TestAuthenticatorStatusIgnoresFlag(t *testing.T) {
	u, s := newRegistry(t)
	ctx := context.Background()

	present, err := u.CheckAuthenticatorStatus(ctx, dave)
	if err != nil || present {
		t.Fatalf("expected absent authenticator, got %v %v", present, err)
	}

	// status reports row existence, not the authorized flag
	s.authenticators[dave] = domain.Authenticator{Identity: dave, Authorized: false}
	present, err = u.CheckAuthenticatorStatus(ctx, dave)
	if err != nil || !present {
		t.Fatalf("expected present authenticator, got %v %v", present, err)
	}
}

func TestAuthenticatorManagementIsAdminOnly(t *testing.T) {
	u, s := newRegistry(t)
	ctx := context.Background()

	if err := u.AuthorizeAuthenticator(ctx, alice, dave); !errors.Is(err, domain.ErrAdminRestricted) {
		t.Fatalf("expected admin restricted, got %v", err)
	}
	if err := u.RevokeAuthenticator(ctx, alice, dave); !errors.Is(err, domain.ErrAdminRestricted) {
		t.Fatalf("expected admin restricted, got %v", err)
	}

	if err := u.AuthorizeAuthenticator(ctx, admin, dave); err != nil {
		t.Fatalf("authorize failed: %v", err)
	}
	if !s.authenticators[dave].Authorized {
		t.Fatalf("expected authorized authenticator row")
	}

	if err := u.RevokeAuthenticator(ctx, admin, dave); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if _, ok := s.authenticators[dave]; ok {
		t.Fatalf("expected authenticator row removed")
	}
}

func TestDeleteCascadesSatelliteRelations(t *testing.T) {
	u, s := newRegistry(t)
	ctx := context.Background()

	id, err := u.Register(ctx, alice, validInput())
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := u.GrantAccess(ctx, alice, id, bob); err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	if err := u.AuthorizeAuthenticator(ctx, admin, dave); err != nil {
		t.Fatalf("authorize failed: %v", err)
	}
	if err := u.Attest(ctx, dave, id, "verified"); err != nil {
		t.Fatalf("attest failed: %v", err)
	}

	if err := u.Delete(ctx, alice, id); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	for key := range s.grants {
		if key.id == id {
			t.Fatalf("grant rows must be removed with the record")
		}
	}
	if _, ok := s.attestations[id]; ok {
		t.Fatalf("attestation must be removed with the record")
	}
}

func TestStatsSnapshot(t *testing.T) {
	u, s := newRegistry(t)
	ctx := context.Background()

	if _, err := u.Register(ctx, alice, validInput()); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := u.Register(ctx, bob, validInput()); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	stats, err := u.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.RecordCount != 2 {
		t.Fatalf("expected record count 2, got %d", stats.RecordCount)
	}
	if stats.CurrentClock != s.clock {
		t.Fatalf("expected clock %d, got %d", s.clock, stats.CurrentClock)
	}
}

func TestEventsPublishedOnCommit(t *testing.T) {
	u, s := newRegistry(t)
	ctx := context.Background()

	id, err := u.Register(ctx, alice, validInput())
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := u.GrantAccess(ctx, alice, id, bob); err != nil {
		t.Fatalf("grant failed: %v", err)
	}

	if len(s.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(s.events))
	}
	if s.events[0].Kind != cadastre.EventRegister || s.events[0].RecordID != id {
		t.Fatalf("unexpected first event: %+v", s.events[0])
	}
	if s.events[1].Kind != cadastre.EventGrant {
		t.Fatalf("unexpected second event: %+v", s.events[1])
	}

	// a failed guard publishes nothing
	if err := u.Delete(ctx, bob, id); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if len(s.events) != 2 {
		t.Fatalf("aborted operation must not publish an event")
	}
}

// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mock

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gradoffice/examining-committee-service/internal/domain/model"
	"github.com/gradoffice/examining-committee-service/internal/domain/port"
	"github.com/gradoffice/examining-committee-service/pkg/constants"
	"github.com/gradoffice/examining-committee-service/pkg/errors"
)

// Global mock repository instance to share data between all adapters
var (
	globalMockRepo     *MockRepository
	globalMockRepoOnce = &sync.Once{}
)

// MockRepository provides an in-memory implementation of the committee
// repository and person directory for tests and local runs
type MockRepository struct {
	committees  map[string]*model.Committee // UID -> committee
	revisions   map[string]uint64           // UID -> revision
	constraints map[string]string           // lookup key -> committee UID
	people      map[string]*model.Person    // "affiliation:id" -> person

	// error simulation
	globalError      error
	operationErrors  map[string]error
	committeeErrors  map[string]error
	examinerFailures map[string]error

	mu sync.RWMutex
}

// Ensure MockRepository implements the storage and directory ports
var (
	_ port.CommitteeRepository = (*MockRepository)(nil)
	_ port.PersonDirectory     = (*MockRepository)(nil)
)

// NewMockRepository returns the shared mock repository, seeded with sample data
func NewMockRepository() *MockRepository {
	globalMockRepoOnce.Do(func() {
		mock := newEmptyRepository()
		mock.seed(time.Now().UTC())
		globalMockRepo = mock
	})

	return globalMockRepo
}

func newEmptyRepository() *MockRepository {
	return &MockRepository{
		committees:       make(map[string]*model.Committee),
		revisions:        make(map[string]uint64),
		constraints:      make(map[string]string),
		people:           make(map[string]*model.Person),
		operationErrors:  make(map[string]error),
		committeeErrors:  make(map[string]error),
		examinerFailures: make(map[string]error),
	}
}

// seed adds a few examiners and one scheduled defense
func (m *MockRepository) seed(now time.Time) {
	samplePeople := []*model.Person{
		{ID: "prof-ana", Name: "Ana Beatriz Souza", Institution: "Graduate Program in Computer Science", Email: "ana.souza@example.edu", Affiliation: model.AffiliationInternal},
		{ID: "prof-bruno", Name: "Bruno Lima", Institution: "Graduate Program in Computer Science", Email: "bruno.lima@example.edu", Affiliation: model.AffiliationInternal},
		{ID: "prof-carla", Name: "Carla Mendes", Institution: "Graduate Program in Computer Science", Affiliation: model.AffiliationInternal},
		{ID: "prof-diego", Name: "Diego Rocha", Institution: "Graduate Program in Computer Science", Affiliation: model.AffiliationInternal},
		{ID: "ext-elena", Name: "Elena Ferraz", Institution: "Federal University of Minas Gerais", Affiliation: model.AffiliationExternal},
		{ID: "ext-fabio", Name: "Fabio Nunes", Institution: "University of Porto", Affiliation: model.AffiliationExternal},
	}
	for _, p := range samplePeople {
		m.people[string(p.Affiliation)+":"+p.ID] = p
	}

	order := func(n int) *int { return &n }
	sample := &model.Committee{
		UID:          "committee-1",
		CandidateUID: "candidate-1",
		ProgramUID:   "program-cs",
		Title:        "Scheduling Examining Committees with Constraint Solvers",
		Type:         model.TypeDefenseMasters,
		Iteration:    1,
		ScheduledAt:  now.Add(30 * 24 * time.Hour).Truncate(time.Hour),
		Location:     "Room 204",
		Mode:         model.ModeInPerson,
		Status:       model.StatusScheduled,
		Members: []model.CommitteeMember{
			{UID: "member-1", Examiner: model.InternalExaminer("prof-ana"), Kind: model.MemberKindTitular, Role: model.RolePresident, PresentationOrder: order(1)},
			{UID: "member-2", Examiner: model.InternalExaminer("prof-bruno"), Kind: model.MemberKindTitular, Role: model.RoleInternalMember, PresentationOrder: order(2)},
			{UID: "member-3", Examiner: model.ExternalExaminer("ext-elena"), Kind: model.MemberKindTitular, Role: model.RoleExternalMember, PresentationOrder: order(3)},
			{UID: "member-4", Examiner: model.InternalExaminer("prof-carla"), Kind: model.MemberKindAlternate, Role: model.RoleInternalMember},
		},
		History: []model.StatusChange{
			{To: model.StatusScheduled, Event: model.EventCreate, At: now.Add(-24 * time.Hour)},
		},
		CreatedAt: now.Add(-24 * time.Hour),
		UpdatedAt: now.Add(-24 * time.Hour),
	}
	for i := range sample.Members {
		sample.Members[i].CommitteeUID = sample.UID
		sample.Members[i].InvitationStatus = model.InvitationPending
		sample.Members[i].CreatedAt = sample.CreatedAt
		sample.Members[i].UpdatedAt = sample.CreatedAt
	}

	m.committees[sample.UID] = sample
	m.revisions[sample.UID] = 1
	m.constraints[lookupKey(context.Background(), sample)] = sample.UID
}

func lookupKey(ctx context.Context, committee *model.Committee) string {
	return fmt.Sprintf(constants.KVLookupCommitteePrefix, committee.BuildIndexKey(ctx))
}

// ================== error simulation ==================

// SetGlobalError makes every operation fail with err
func (m *MockRepository) SetGlobalError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.globalError = err
}

// SetErrorForOperation makes the named operation (e.g. "UpdateCommittee") fail with err
func (m *MockRepository) SetErrorForOperation(operation string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.operationErrors[operation] = err
}

// SetErrorForCommittee makes every operation on the given committee fail with err
func (m *MockRepository) SetErrorForCommittee(uid string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.committeeErrors[uid] = err
}

// SetErrorForExaminer makes directory lookups of the examiner fail with err
func (m *MockRepository) SetErrorForExaminer(examiner model.Examiner, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.examinerFailures[examiner.String()] = err
}

// ClearErrorSimulation removes every configured error
func (m *MockRepository) ClearErrorSimulation() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.globalError = nil
	m.operationErrors = make(map[string]error)
	m.committeeErrors = make(map[string]error)
	m.examinerFailures = make(map[string]error)
}

// simulatedError returns the configured error for an operation, if any.
// Global errors win over operation errors, which win over committee errors.
// Callers must hold the lock.
func (m *MockRepository) simulatedError(operation, uid string) error {
	if m.globalError != nil {
		return m.globalError
	}
	if err, ok := m.operationErrors[operation]; ok {
		return err
	}
	if uid != "" {
		if err, ok := m.committeeErrors[uid]; ok {
			return err
		}
	}
	return nil
}

// ================== reader ==================

// GetCommittee retrieves a deep copy of the committee and its revision
func (m *MockRepository) GetCommittee(ctx context.Context, uid string) (*model.Committee, uint64, error) {
	slog.DebugContext(ctx, "mock repository: getting committee", "committee_uid", uid)

	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.simulatedError("GetCommittee", uid); err != nil {
		return nil, 0, err
	}

	committee, exists := m.committees[uid]
	if !exists {
		return nil, 0, errors.NewNotFound(fmt.Sprintf("committee with UID %s not found", uid))
	}

	return committee.Clone(), m.revisions[uid], nil
}

// GetRevision retrieves only the revision for a given UID
func (m *MockRepository) GetRevision(ctx context.Context, uid string) (uint64, error) {
	slog.DebugContext(ctx, "mock repository: getting committee revision", "committee_uid", uid)

	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.simulatedError("GetRevision", uid); err != nil {
		return 0, err
	}

	if rev, exists := m.revisions[uid]; exists {
		return rev, nil
	}
	return 0, errors.NewNotFound("committee not found")
}

// ListCommitteesByCandidate returns the candidate's committees ordered by date
func (m *MockRepository) ListCommitteesByCandidate(ctx context.Context, candidateUID string) ([]*model.Committee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.simulatedError("ListCommitteesByCandidate", ""); err != nil {
		return nil, err
	}

	var result []*model.Committee
	for _, c := range m.committees {
		if strings.EqualFold(c.CandidateUID, candidateUID) {
			result = append(result, c.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].ScheduledAt.Equal(result[j].ScheduledAt) {
			return result[i].ScheduledAt.Before(result[j].ScheduledAt)
		}
		return result[i].UID < result[j].UID
	})
	return result, nil
}

// ================== writer ==================

// CreateCommittee stores a new committee at revision 1
func (m *MockRepository) CreateCommittee(ctx context.Context, committee *model.Committee) (*model.Committee, uint64, error) {
	slog.DebugContext(ctx, "mock repository: creating committee", "committee_uid", committee.UID)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.simulatedError("CreateCommittee", committee.UID); err != nil {
		return nil, 0, err
	}

	if _, exists := m.committees[committee.UID]; exists {
		return nil, 0, errors.NewConflict(fmt.Sprintf("committee with UID %s already exists", committee.UID))
	}

	m.committees[committee.UID] = committee.Clone()
	m.revisions[committee.UID] = 1

	return committee.Clone(), 1, nil
}

// UpdateCommittee replaces the stored aggregate when the revision matches
func (m *MockRepository) UpdateCommittee(ctx context.Context, uid string, committee *model.Committee, expectedRevision uint64) (*model.Committee, uint64, error) {
	slog.DebugContext(ctx, "mock repository: updating committee", "committee_uid", uid, "expected_revision", expectedRevision)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.simulatedError("UpdateCommittee", uid); err != nil {
		return nil, 0, err
	}

	if _, exists := m.committees[uid]; !exists {
		return nil, 0, errors.NewNotFound(fmt.Sprintf("committee with UID %s not found", uid))
	}

	currentRevision := m.revisions[uid]
	if currentRevision != expectedRevision {
		return nil, 0, errors.NewConflict(fmt.Sprintf("revision mismatch: expected %d, got %d", expectedRevision, currentRevision))
	}

	stored := committee.Clone()
	stored.UID = uid
	m.committees[uid] = stored
	newRevision := currentRevision + 1
	m.revisions[uid] = newRevision

	return stored.Clone(), newRevision, nil
}

// DeleteCommittee removes the committee when the revision matches
func (m *MockRepository) DeleteCommittee(ctx context.Context, uid string, expectedRevision uint64, committee *model.Committee) error {
	slog.DebugContext(ctx, "mock repository: deleting committee", "committee_uid", uid, "expected_revision", expectedRevision)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.simulatedError("DeleteCommittee", uid); err != nil {
		return err
	}

	return m.deleteCommitteeLocked(uid, expectedRevision)
}

func (m *MockRepository) deleteCommitteeLocked(uid string, expectedRevision uint64) error {
	if _, exists := m.committees[uid]; !exists {
		return errors.NewNotFound(fmt.Sprintf("committee with UID %s not found", uid))
	}

	currentRevision := m.revisions[uid]
	if currentRevision != expectedRevision {
		return errors.NewConflict(fmt.Sprintf("revision mismatch: expected %d, got %d", expectedRevision, currentRevision))
	}

	delete(m.committees, uid)
	delete(m.revisions, uid)
	return nil
}

// UniqueCommittee reserves the (candidate, type, iteration) constraint
func (m *MockRepository) UniqueCommittee(ctx context.Context, committee *model.Committee) (string, error) {
	key := lookupKey(ctx, committee)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.simulatedError("UniqueCommittee", committee.UID); err != nil {
		return "", err
	}

	if owner, exists := m.constraints[key]; exists && owner != committee.UID {
		return key, errors.NewConflict(fmt.Sprintf(
			"a committee of type %s, iteration %d, already exists for candidate %s",
			committee.Type, committee.Iteration, committee.CandidateUID,
		))
	}

	m.constraints[key] = committee.UID
	return key, nil
}

// GetKeyRevision retrieves the revision of a constraint key or committee UID
func (m *MockRepository) GetKeyRevision(ctx context.Context, key string) (uint64, error) {
	slog.DebugContext(ctx, "mock get key revision", "key", key)

	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, exists := m.constraints[key]; exists {
		return 1, nil
	}
	if rev, exists := m.revisions[key]; exists {
		return rev, nil
	}
	return 0, errors.NewNotFound(fmt.Sprintf("key %s not found", key))
}

// Delete removes a constraint key or a committee (used for cleanup and rollback)
func (m *MockRepository) Delete(ctx context.Context, key string, revision uint64) error {
	slog.DebugContext(ctx, "mock delete key", "key", key, "revision", revision)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.simulatedError("Delete", ""); err != nil {
		return err
	}

	if strings.HasPrefix(key, constants.CommitteeLookupKeyPrefix) {
		delete(m.constraints, key)
		return nil
	}
	if _, exists := m.committees[key]; exists {
		return m.deleteCommitteeLocked(key, revision)
	}
	return nil
}

// IsReady checks if the repository is ready
func (m *MockRepository) IsReady(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.simulatedError("IsReady", "")
}

// ================== person directory ==================

// ResolveExaminer looks the examiner up in the in-memory directory
func (m *MockRepository) ResolveExaminer(ctx context.Context, examiner model.Examiner) (*model.Person, error) {
	slog.DebugContext(ctx, "mock directory: resolving examiner", "examiner", examiner.String())

	m.mu.RLock()
	defer m.mu.RUnlock()

	if err, ok := m.examinerFailures[examiner.String()]; ok {
		return nil, err
	}

	person, exists := m.people[examiner.String()]
	if !exists {
		return nil, errors.NewNotFound(fmt.Sprintf("examiner %s not found", examiner))
	}
	personCopy := *person
	return &personCopy, nil
}

// ================== test helpers ==================

// AddCommittee stores a committee directly, bypassing validation
func (m *MockRepository) AddCommittee(committee *model.Committee) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.committees[committee.UID] = committee.Clone()
	m.revisions[committee.UID] = 1
	m.constraints[lookupKey(context.Background(), committee)] = committee.UID
}

// AddPerson registers a person in the directory
func (m *MockRepository) AddPerson(person *model.Person) {
	m.mu.Lock()
	defer m.mu.Unlock()

	personCopy := *person
	m.people[string(person.Affiliation)+":"+person.ID] = &personCopy
}

// HasConstraint reports whether the lookup key is reserved
func (m *MockRepository) HasConstraint(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.constraints[key]
	return exists
}

// ConstraintCount returns the number of reserved lookup keys
func (m *MockRepository) ConstraintCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.constraints)
}

// GetCommitteeCount returns the number of stored committees
func (m *MockRepository) GetCommitteeCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.committees)
}

// ClearAll clears all mock data and error simulation (useful for testing)
func (m *MockRepository) ClearAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.committees = make(map[string]*model.Committee)
	m.revisions = make(map[string]uint64)
	m.constraints = make(map[string]string)
	m.people = make(map[string]*model.Person)
	m.globalError = nil
	m.operationErrors = make(map[string]error)
	m.committeeErrors = make(map[string]error)
	m.examinerFailures = make(map[string]error)
}

// NewMockCommitteeRepository returns the shared repository behind the storage port
func NewMockCommitteeRepository(mock *MockRepository) port.CommitteeRepository {
	return mock
}

// NewMockPersonDirectory returns the shared repository behind the directory port
func NewMockPersonDirectory(mock *MockRepository) port.PersonDirectory {
	return mock
}

// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gradoffice/examining-committee-service/internal/domain/model"
	"github.com/gradoffice/examining-committee-service/internal/domain/port"
	"github.com/gradoffice/examining-committee-service/pkg/constants"
	errs "github.com/gradoffice/examining-committee-service/pkg/errors"
	"github.com/gradoffice/examining-committee-service/pkg/utils"
)

var (
	_ port.CommitteeRepository = (*Store)(nil)
	_ port.PersonDirectory     = (*Store)(nil)
)

const committeeColumns = `uid, candidate_uid, program_uid, title, type, iteration, scheduled_at,
    location, mode, status, result, minutes_document_ref, cancellation_reason,
    reschedule_count, version, created_at, updated_at`

// queryer is satisfied by both *sql.DB and *sql.Tx
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func candidateKey(candidateUID string) string {
	return strings.ToLower(strings.TrimSpace(candidateUID))
}

// GetCommittee loads a committee with its members and history
func (s *Store) GetCommittee(ctx context.Context, uid string) (*model.Committee, uint64, error) {
	slog.DebugContext(ctx, "sqlite storage: getting committee", "committee_uid", uid)
	return s.loadCommittee(ctx, s.db, uid)
}

func (s *Store) loadCommittee(ctx context.Context, q queryer, uid string) (*model.Committee, uint64, error) {
	row := q.QueryRowContext(ctx, `SELECT `+committeeColumns+` FROM committees WHERE uid = ?`, uid)

	var (
		c                                   model.Committee
		scheduledAt, createdAt, updatedAt   string
		committeeType, mode, status, result string
		version                             uint64
	)
	err := row.Scan(&c.UID, &c.CandidateUID, &c.ProgramUID, &c.Title, &committeeType, &c.Iteration, &scheduledAt,
		&c.Location, &mode, &status, &result, &c.MinutesDocumentRef, &c.CancellationReason,
		&c.RescheduleCount, &version, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, errs.NewNotFound(fmt.Sprintf("committee with UID %s not found", uid))
		}
		return nil, 0, errs.NewServiceUnavailable("failed to get committee", err)
	}
	c.Type = model.CommitteeType(committeeType)
	c.Mode = model.CommitteeMode(mode)
	c.Status = model.CommitteeStatus(status)
	c.Result = model.CommitteeResult(result)

	if err := parseTimes(
		timeColumn{scheduledAt, &c.ScheduledAt},
		timeColumn{createdAt, &c.CreatedAt},
		timeColumn{updatedAt, &c.UpdatedAt},
	); err != nil {
		return nil, 0, errs.NewUnexpected("corrupt committee timestamp", err)
	}

	if c.Members, err = s.loadMembers(ctx, q, uid); err != nil {
		return nil, 0, err
	}
	if c.History, err = s.loadHistory(ctx, q, uid); err != nil {
		return nil, 0, err
	}
	return &c, version, nil
}

func (s *Store) loadMembers(ctx context.Context, q queryer, uid string) ([]model.CommitteeMember, error) {
	rows, err := q.QueryContext(ctx, `SELECT uid, internal_examiner_id, external_examiner_id, kind, role,
    invitation_status, invitation_sent_at, responded_at, presentation_order, notes,
    replaces_uid, replaced_by_uid, created_at, updated_at
FROM committee_members WHERE committee_uid = ? ORDER BY position`, uid)
	if err != nil {
		return nil, errs.NewServiceUnavailable("failed to get committee members", err)
	}
	defer rows.Close()

	members := []model.CommitteeMember{}
	for rows.Next() {
		var (
			m                      model.CommitteeMember
			internalID, externalID sql.NullString
			kind, role, invitation string
			sentAt, respondedAt    sql.NullString
			order                  sql.NullInt64
			createdAt, updatedAt   string
		)
		if err := rows.Scan(&m.UID, &internalID, &externalID, &kind, &role,
			&invitation, &sentAt, &respondedAt, &order, &m.Notes,
			&m.ReplacesUID, &m.ReplacedByUID, &createdAt, &updatedAt); err != nil {
			return nil, errs.NewServiceUnavailable("failed to scan committee member", err)
		}

		m.CommitteeUID = uid
		m.Examiner, err = model.NewExaminer(internalID.String, externalID.String)
		if err != nil {
			return nil, errs.NewUnexpected(fmt.Sprintf("corrupt examiner for member %s", m.UID), err)
		}
		m.Kind = model.MemberKind(kind)
		m.Role = model.MemberRole(role)
		m.InvitationStatus = model.InvitationStatus(invitation)
		if order.Valid {
			m.PresentationOrder = utils.NullableToIntPtr(&order.Int64)
		}
		if m.InvitationSentAt, err = nullableTime(sentAt); err != nil {
			return nil, errs.NewUnexpected("corrupt invitation timestamp", err)
		}
		if m.RespondedAt, err = nullableTime(respondedAt); err != nil {
			return nil, errs.NewUnexpected("corrupt reply timestamp", err)
		}
		if err := parseTimes(
			timeColumn{createdAt, &m.CreatedAt},
			timeColumn{updatedAt, &m.UpdatedAt},
		); err != nil {
			return nil, errs.NewUnexpected("corrupt member timestamp", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.NewServiceUnavailable("failed to read committee members", err)
	}
	return members, nil
}

func (s *Store) loadHistory(ctx context.Context, q queryer, uid string) ([]model.StatusChange, error) {
	rows, err := q.QueryContext(ctx, `SELECT from_status, to_status, event, reason, at
FROM committee_history WHERE committee_uid = ? ORDER BY seq`, uid)
	if err != nil {
		return nil, errs.NewServiceUnavailable("failed to get committee history", err)
	}
	defer rows.Close()

	var history []model.StatusChange
	for rows.Next() {
		var (
			h        model.StatusChange
			from, to string
			at       string
		)
		if err := rows.Scan(&from, &to, &h.Event, &h.Reason, &at); err != nil {
			return nil, errs.NewServiceUnavailable("failed to scan committee history", err)
		}
		h.From = model.CommitteeStatus(from)
		h.To = model.CommitteeStatus(to)
		if h.At, err = utils.ParseTime(at); err != nil {
			return nil, errs.NewUnexpected("corrupt history timestamp", err)
		}
		history = append(history, h)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.NewServiceUnavailable("failed to read committee history", err)
	}
	return history, nil
}

// GetRevision returns the committee version
func (s *Store) GetRevision(ctx context.Context, uid string) (uint64, error) {
	var version uint64
	err := s.db.QueryRowContext(ctx, `SELECT version FROM committees WHERE uid = ?`, uid).Scan(&version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, errs.NewNotFound(fmt.Sprintf("committee with UID %s not found", uid))
		}
		return 0, errs.NewServiceUnavailable("failed to get committee revision", err)
	}
	return version, nil
}

// ListCommitteesByCandidate returns the candidate's committees ordered by date
func (s *Store) ListCommitteesByCandidate(ctx context.Context, candidateUID string) ([]*model.Committee, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT uid FROM committees WHERE candidate_key = ? ORDER BY scheduled_at, uid`,
		candidateKey(candidateUID))
	if err != nil {
		return nil, errs.NewServiceUnavailable("failed to list committees", err)
	}
	var uids []string
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			rows.Close()
			return nil, errs.NewServiceUnavailable("failed to scan committee uid", err)
		}
		uids = append(uids, uid)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, errs.NewServiceUnavailable("failed to list committees", err)
	}

	committees := make([]*model.Committee, 0, len(uids))
	for _, uid := range uids {
		c, _, err := s.loadCommittee(ctx, s.db, uid)
		if err != nil {
			return nil, err
		}
		committees = append(committees, c)
	}
	return committees, nil
}

// CreateCommittee inserts the committee, its members and history at version 1
func (s *Store) CreateCommittee(ctx context.Context, committee *model.Committee) (*model.Committee, uint64, error) {
	slog.DebugContext(ctx, "sqlite storage: creating committee",
		"committee_uid", committee.UID,
		"type", committee.Type)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, errs.NewServiceUnavailable("failed to begin transaction", err)
	}
	defer rollback(ctx, tx)

	_, err = tx.ExecContext(ctx, `INSERT INTO committees (`+committeeColumns+`, candidate_key)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?, ?)`,
		committee.UID, committee.CandidateUID, committee.ProgramUID, committee.Title, string(committee.Type),
		committee.Iteration, utils.StorageTime(committee.ScheduledAt), committee.Location, string(committee.Mode),
		string(committee.Status), string(committee.Result), committee.MinutesDocumentRef, committee.CancellationReason,
		committee.RescheduleCount, utils.StorageTime(committee.CreatedAt), utils.StorageTime(committee.UpdatedAt),
		candidateKey(committee.CandidateUID),
	)
	if err != nil {
		if isConstraintError(err) {
			return nil, 0, errs.NewConflict(fmt.Sprintf("a %s committee for candidate %s, iteration %d already exists",
				committee.Type, committee.CandidateUID, committee.Iteration), err)
		}
		return nil, 0, errs.NewServiceUnavailable("failed to create committee", err)
	}

	if err := writeChildren(ctx, tx, committee); err != nil {
		return nil, 0, err
	}
	if err := tx.Commit(); err != nil {
		return nil, 0, errs.NewServiceUnavailable("failed to commit committee", err)
	}

	return committee, 1, nil
}

// UpdateCommittee rewrites the committee when its version still equals expectedRevision
func (s *Store) UpdateCommittee(ctx context.Context, uid string, committee *model.Committee, expectedRevision uint64) (*model.Committee, uint64, error) {
	slog.DebugContext(ctx, "sqlite storage: updating committee",
		"committee_uid", uid,
		"expected_revision", expectedRevision)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, errs.NewServiceUnavailable("failed to begin transaction", err)
	}
	defer rollback(ctx, tx)

	result, err := tx.ExecContext(ctx, `UPDATE committees SET
    program_uid = ?, title = ?, type = ?, iteration = ?, scheduled_at = ?, location = ?, mode = ?,
    status = ?, result = ?, minutes_document_ref = ?, cancellation_reason = ?, reschedule_count = ?,
    updated_at = ?, version = version + 1
WHERE uid = ? AND version = ?`,
		committee.ProgramUID, committee.Title, string(committee.Type), committee.Iteration,
		utils.StorageTime(committee.ScheduledAt), committee.Location, string(committee.Mode),
		string(committee.Status), string(committee.Result), committee.MinutesDocumentRef, committee.CancellationReason,
		committee.RescheduleCount, utils.StorageTime(committee.UpdatedAt),
		uid, expectedRevision,
	)
	if err != nil {
		if isConstraintError(err) {
			return nil, 0, errs.NewConflict(fmt.Sprintf("a %s committee for candidate %s, iteration %d already exists",
				committee.Type, committee.CandidateUID, committee.Iteration), err)
		}
		return nil, 0, errs.NewServiceUnavailable("failed to update committee", err)
	}
	if err := s.checkAffected(ctx, tx, result, uid, expectedRevision); err != nil {
		return nil, 0, err
	}

	for _, table := range []string{"committee_members", "committee_history"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE committee_uid = ?`, uid); err != nil {
			return nil, 0, errs.NewServiceUnavailable("failed to clear committee children", err)
		}
	}
	if err := writeChildren(ctx, tx, committee); err != nil {
		return nil, 0, err
	}
	if err := tx.Commit(); err != nil {
		return nil, 0, errs.NewServiceUnavailable("failed to commit committee", err)
	}

	return committee, expectedRevision + 1, nil
}

// DeleteCommittee deletes a committee; members and history cascade
func (s *Store) DeleteCommittee(ctx context.Context, uid string, expectedRevision uint64, _ *model.Committee) error {
	return s.deleteCommittee(ctx, uid, expectedRevision)
}

func (s *Store) deleteCommittee(ctx context.Context, uid string, expectedRevision uint64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.NewServiceUnavailable("failed to begin transaction", err)
	}
	defer rollback(ctx, tx)

	result, err := tx.ExecContext(ctx, `DELETE FROM committees WHERE uid = ? AND version = ?`, uid, expectedRevision)
	if err != nil {
		return errs.NewServiceUnavailable("failed to delete committee", err)
	}
	if err := s.checkAffected(ctx, tx, result, uid, expectedRevision); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return errs.NewServiceUnavailable("failed to commit committee deletion", err)
	}
	return nil
}

// checkAffected turns a zero-row write into NotFound or Conflict
func (s *Store) checkAffected(ctx context.Context, q queryer, result sql.Result, uid string, expectedRevision uint64) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return errs.NewServiceUnavailable("failed to read affected rows", err)
	}
	if affected > 0 {
		return nil
	}

	var current uint64
	err = q.QueryRowContext(ctx, `SELECT version FROM committees WHERE uid = ?`, uid).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return errs.NewNotFound(fmt.Sprintf("committee with UID %s not found", uid))
	}
	slog.WarnContext(ctx, "revision mismatch",
		"committee_uid", uid,
		"expected_revision", expectedRevision,
		"current_revision", current,
	)
	return errs.NewConflict(fmt.Sprintf("revision mismatch: expected %d, current %d", expectedRevision, current))
}

func writeChildren(ctx context.Context, tx *sql.Tx, committee *model.Committee) error {
	for i, m := range committee.Members {
		var internalID, externalID any
		if m.Examiner.IsInternal() {
			internalID = m.Examiner.ID()
		} else {
			externalID = m.Examiner.ID()
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO committee_members (
    committee_uid, uid, position, internal_examiner_id, external_examiner_id, kind, role,
    invitation_status, invitation_sent_at, responded_at, presentation_order, notes,
    replaces_uid, replaced_by_uid, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			committee.UID, m.UID, i, internalID, externalID, string(m.Kind), string(m.Role),
			string(m.InvitationStatus), stringOrNil(utils.StorageTimePtr(m.InvitationSentAt)),
			stringOrNil(utils.StorageTimePtr(m.RespondedAt)), utils.IntPtrToNullable(m.PresentationOrder), m.Notes,
			m.ReplacesUID, m.ReplacedByUID, utils.StorageTime(m.CreatedAt), utils.StorageTime(m.UpdatedAt),
		)
		if err != nil {
			if isConstraintError(err) {
				return errs.NewValidation(fmt.Sprintf("duplicate member uid %s", m.UID), err)
			}
			return errs.NewServiceUnavailable("failed to store committee member", err)
		}
	}

	for i, h := range committee.History {
		_, err := tx.ExecContext(ctx, `INSERT INTO committee_history (committee_uid, seq, from_status, to_status, event, reason, at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
			committee.UID, i, string(h.From), string(h.To), h.Event, h.Reason, utils.StorageTime(h.At),
		)
		if err != nil {
			return errs.NewServiceUnavailable("failed to store committee history", err)
		}
	}
	return nil
}

// UniqueCommittee checks the (candidate, type, iteration) triple. The UNIQUE
// index enforces it on write; the returned key only names the reservation.
func (s *Store) UniqueCommittee(ctx context.Context, committee *model.Committee) (string, error) {
	key := fmt.Sprintf(constants.KVLookupCommitteePrefix, committee.BuildIndexKey(ctx))

	var owner string
	err := s.db.QueryRowContext(ctx,
		`SELECT uid FROM committees WHERE candidate_key = ? AND type = ? AND iteration = ?`,
		candidateKey(committee.CandidateUID), string(committee.Type), committee.Iteration,
	).Scan(&owner)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return key, nil
	case err != nil:
		return key, errs.NewServiceUnavailable("failed to check committee uniqueness", err)
	case owner == committee.UID:
		return key, nil
	}
	return key, errs.NewConflict(fmt.Sprintf("a %s committee for candidate %s, iteration %d already exists",
		committee.Type, committee.CandidateUID, committee.Iteration))
}

// GetKeyRevision returns a committee version. Lookup keys have nothing stored
// and report revision 0.
func (s *Store) GetKeyRevision(ctx context.Context, key string) (uint64, error) {
	if strings.HasPrefix(key, constants.CommitteeLookupKeyPrefix) {
		return 0, nil
	}
	return s.GetRevision(ctx, key)
}

// Delete removes a committee by UID; lookup keys are ignored
func (s *Store) Delete(ctx context.Context, key string, revision uint64) error {
	if strings.HasPrefix(key, constants.CommitteeLookupKeyPrefix) {
		return nil
	}
	err := s.deleteCommittee(ctx, key, revision)
	if errs.IsNotFound(err) {
		slog.WarnContext(ctx, "key not found during deletion", "key", key, "revision", revision)
		return nil
	}
	return err
}

// timeColumn pairs a stored timestamp with its destination field
type timeColumn struct {
	value string
	dst   *time.Time
}

func parseTimes(columns ...timeColumn) error {
	for _, col := range columns {
		t, err := utils.ParseTime(col.value)
		if err != nil {
			return err
		}
		*col.dst = t
	}
	return nil
}

func nullableTime(value sql.NullString) (*time.Time, error) {
	if !value.Valid {
		return nil, nil
	}
	return utils.ParseTimePtr(&value.String)
}

func stringOrNil(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}

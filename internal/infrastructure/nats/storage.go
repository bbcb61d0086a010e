// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package nats

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/gradoffice/examining-committee-service/internal/domain/model"
	"github.com/gradoffice/examining-committee-service/internal/domain/port"
	"github.com/gradoffice/examining-committee-service/pkg/constants"
	errs "github.com/gradoffice/examining-committee-service/pkg/errors"

	"github.com/nats-io/nats.go/jetstream"
)

type storage struct {
	client *NATSClient
}

// GetCommittee retrieves a single committee by UID and returns its revision
func (s *storage) GetCommittee(ctx context.Context, uid string) (*model.Committee, uint64, error) {
	slog.DebugContext(ctx, "nats storage: getting committee",
		"committee_uid", uid)

	committee := &model.Committee{}
	rev, err := s.get(ctx, uid, committee, false)
	if err != nil {
		return nil, 0, s.readError(ctx, err, uid, "failed to get committee")
	}

	slog.DebugContext(ctx, "nats storage: committee retrieved",
		"committee_uid", uid,
		"status", committee.Status,
		"revision", rev)

	return committee, rev, nil
}

// GetRevision retrieves only the revision for a given UID
func (s *storage) GetRevision(ctx context.Context, uid string) (uint64, error) {
	rev, err := s.get(ctx, uid, nil, true)
	if err != nil {
		return 0, s.readError(ctx, err, uid, "failed to get committee revision")
	}
	return rev, nil
}

func (s *storage) readError(ctx context.Context, err error, uid, message string) error {
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		slog.DebugContext(ctx, "committee not found", "committee_uid", uid, "error", err)
		return errs.NewNotFound("committee not found")
	}
	var validation errs.Validation
	if errors.As(err, &validation) {
		return validation
	}
	slog.ErrorContext(ctx, message, "error", err, "committee_uid", uid)
	return errs.NewServiceUnavailable(message, err)
}

// get retrieves a committee from the KV bucket, unmarshals it into target
// unless onlyRevision is set, and returns the revision.
func (s *storage) get(ctx context.Context, uid string, target any, onlyRevision bool) (uint64, error) {
	if uid == "" {
		return 0, errs.NewValidation("UID cannot be empty")
	}

	kv, err := s.client.bucket(constants.KVBucketNameCommittees)
	if err != nil {
		return 0, err
	}

	entry, errGet := kv.Get(ctx, uid)
	if errGet != nil {
		return 0, errGet
	}

	if !onlyRevision {
		if errUnmarshal := json.Unmarshal(entry.Value(), target); errUnmarshal != nil {
			return 0, errUnmarshal
		}
	}

	return entry.Revision(), nil
}

// ListCommitteesByCandidate scans the candidate index and loads every committee it points to
func (s *storage) ListCommitteesByCandidate(ctx context.Context, candidateUID string) ([]*model.Committee, error) {
	kv, err := s.client.bucket(constants.KVBucketNameCommittees)
	if err != nil {
		return nil, err
	}

	prefix := candidateIndexPrefix(candidateUID)
	lister, err := kv.ListKeys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return []*model.Committee{}, nil
		}
		slog.ErrorContext(ctx, "failed to list committee keys", "error", err, "candidate_uid", candidateUID)
		return nil, errs.NewServiceUnavailable("failed to list committees", err)
	}
	defer func() {
		if errStop := lister.Stop(); errStop != nil {
			slog.DebugContext(ctx, "failed to stop key lister", "error", errStop)
		}
	}()

	var uids []string
	for key := range lister.Keys() {
		if strings.HasPrefix(key, prefix) {
			uids = append(uids, strings.TrimPrefix(key, prefix))
		}
	}

	committees := make([]*model.Committee, 0, len(uids))
	for _, uid := range uids {
		committee, _, errGet := s.GetCommittee(ctx, uid)
		if errGet != nil {
			if errs.IsNotFound(errGet) {
				slog.WarnContext(ctx, "candidate index points to a missing committee",
					"candidate_uid", candidateUID,
					"committee_uid", uid,
				)
				continue
			}
			return nil, errGet
		}
		committees = append(committees, committee)
	}

	sort.Slice(committees, func(i, j int) bool {
		if !committees[i].ScheduledAt.Equal(committees[j].ScheduledAt) {
			return committees[i].ScheduledAt.Before(committees[j].ScheduledAt)
		}
		return committees[i].UID < committees[j].UID
	})

	slog.DebugContext(ctx, "nats storage: committees listed by candidate",
		"candidate_uid", candidateUID,
		"count", len(committees))

	return committees, nil
}

// candidateIndexPrefix hashes the normalized candidate reference: KV keys only
// take [-/_=.a-zA-Z0-9] and a raw "/" would nest under another candidate
func candidateIndexPrefix(candidateUID string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(candidateUID))))
	return fmt.Sprintf(constants.KVLookupCandidatePrefix, hex.EncodeToString(sum[:]))
}

// CreateCommittee stores a new committee and its candidate index entry
func (s *storage) CreateCommittee(ctx context.Context, committee *model.Committee) (*model.Committee, uint64, error) {
	slog.DebugContext(ctx, "nats storage: creating committee",
		"committee_uid", committee.UID,
		"type", committee.Type)

	kv, err := s.client.bucket(constants.KVBucketNameCommittees)
	if err != nil {
		return nil, 0, err
	}
	if committee.UID == "" {
		return nil, 0, errs.NewValidation("UID cannot be empty")
	}

	data, err := json.Marshal(committee)
	if err != nil {
		return nil, 0, errs.NewUnexpected("failed to marshal committee", err)
	}

	rev, err := kv.Create(ctx, committee.UID, data)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyExists) {
			return nil, 0, errs.NewConflict(fmt.Sprintf("committee %s already exists", committee.UID))
		}
		slog.ErrorContext(ctx, "failed to create committee", "error", err, "committee_uid", committee.UID)
		return nil, 0, errs.NewServiceUnavailable("failed to create committee", err)
	}

	indexKey := candidateIndexPrefix(committee.CandidateUID) + committee.UID
	if _, err := kv.Create(ctx, indexKey, []byte(committee.UID)); err != nil && !errors.Is(err, jetstream.ErrKeyExists) {
		slog.ErrorContext(ctx, "failed to create candidate index, removing committee",
			"error", err,
			"key", indexKey,
		)
		if errDelete := kv.Delete(ctx, committee.UID, jetstream.LastRevision(rev)); errDelete != nil {
			slog.ErrorContext(ctx, "failed to remove committee after index failure",
				"error", errDelete,
				"committee_uid", committee.UID,
			)
		}
		return nil, 0, errs.NewServiceUnavailable("failed to create candidate index", err)
	}

	slog.DebugContext(ctx, "nats storage: committee created",
		"committee_uid", committee.UID,
		"revision", rev)

	return committee, rev, nil
}

// UpdateCommittee replaces a committee if the stored revision still matches
func (s *storage) UpdateCommittee(ctx context.Context, uid string, committee *model.Committee, expectedRevision uint64) (*model.Committee, uint64, error) {
	slog.DebugContext(ctx, "nats storage: updating committee",
		"committee_uid", uid,
		"expected_revision", expectedRevision)

	kv, err := s.client.bucket(constants.KVBucketNameCommittees)
	if err != nil {
		return nil, 0, err
	}
	if uid == "" {
		return nil, 0, errs.NewValidation("UID cannot be empty")
	}

	data, err := json.Marshal(committee)
	if err != nil {
		return nil, 0, errs.NewUnexpected("failed to marshal committee", err)
	}

	rev, err := kv.Update(ctx, uid, data, expectedRevision)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyExists) {
			if _, errGet := kv.Get(ctx, uid); errors.Is(errGet, jetstream.ErrKeyNotFound) {
				return nil, 0, errs.NewNotFound("committee not found")
			}
			slog.WarnContext(ctx, "revision mismatch on committee update",
				"committee_uid", uid,
				"expected_revision", expectedRevision,
			)
			return nil, 0, errs.NewConflict("committee has been modified by another process")
		}
		slog.ErrorContext(ctx, "failed to update committee", "error", err, "committee_uid", uid)
		return nil, 0, errs.NewServiceUnavailable("failed to update committee", err)
	}

	slog.DebugContext(ctx, "nats storage: committee updated",
		"committee_uid", uid,
		"revision", rev)

	return committee, rev, nil
}

// DeleteCommittee deletes a committee with revision checking, then its candidate index entry
func (s *storage) DeleteCommittee(ctx context.Context, uid string, expectedRevision uint64, committee *model.Committee) error {
	slog.DebugContext(ctx, "nats storage: deleting committee",
		"committee_uid", uid,
		"expected_revision", expectedRevision)

	kv, err := s.client.bucket(constants.KVBucketNameCommittees)
	if err != nil {
		return err
	}

	if err := kv.Delete(ctx, uid, jetstream.LastRevision(expectedRevision)); err != nil {
		if errors.Is(err, jetstream.ErrKeyExists) {
			return errs.NewConflict("committee has been modified by another process")
		}
		slog.ErrorContext(ctx, "failed to delete committee", "error", err, "committee_uid", uid)
		return errs.NewServiceUnavailable("failed to delete committee", err)
	}

	if committee != nil {
		indexKey := candidateIndexPrefix(committee.CandidateUID) + uid
		if err := kv.Delete(ctx, indexKey); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
			// a stale index entry is skipped on read
			slog.WarnContext(ctx, "failed to delete candidate index", "error", err, "key", indexKey)
		}
	}

	slog.DebugContext(ctx, "nats storage: committee deleted", "committee_uid", uid)
	return nil
}

// UniqueCommittee reserves the (candidate, type, iteration) key for the committee.
// Reserving a key the same committee already holds succeeds.
func (s *storage) UniqueCommittee(ctx context.Context, committee *model.Committee) (string, error) {
	uniqueKey := fmt.Sprintf(constants.KVLookupCommitteePrefix, committee.BuildIndexKey(ctx))

	slog.DebugContext(ctx, "validating unique committee constraint",
		"candidate_uid", committee.CandidateUID,
		"type", committee.Type,
		"iteration", committee.Iteration,
		"constraint_key", uniqueKey,
	)

	kv, err := s.client.bucket(constants.KVBucketNameCommittees)
	if err != nil {
		return uniqueKey, err
	}

	_, err = kv.Create(ctx, uniqueKey, []byte(committee.UID))
	if err == nil {
		return uniqueKey, nil
	}
	if !errors.Is(err, jetstream.ErrKeyExists) {
		slog.ErrorContext(ctx, "failed to create unique constraint",
			"error", err,
			"constraint_key", uniqueKey,
			"committee_uid", committee.UID,
		)
		return uniqueKey, errs.NewUnexpected("failed to create unique constraint", err)
	}

	if entry, errGet := kv.Get(ctx, uniqueKey); errGet == nil && string(entry.Value()) == committee.UID {
		return uniqueKey, nil
	}

	slog.WarnContext(ctx, "constraint violation - key already exists",
		"constraint_key", uniqueKey,
		"committee_uid", committee.UID,
	)
	return uniqueKey, errs.NewConflict(fmt.Sprintf("a %s committee for candidate %s, iteration %d already exists",
		committee.Type, committee.CandidateUID, committee.Iteration))
}

// GetKeyRevision retrieves the revision for a given key (used for cleanup operations)
func (s *storage) GetKeyRevision(ctx context.Context, key string) (uint64, error) {
	if key == "" {
		return 0, errs.NewValidation("key cannot be empty")
	}

	kv, err := s.client.bucket(constants.KVBucketNameCommittees)
	if err != nil {
		return 0, err
	}

	entry, err := kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return 0, errs.NewNotFound("key not found")
		}
		return 0, errs.NewServiceUnavailable("failed to get key revision", err)
	}

	return entry.Revision(), nil
}

// Delete removes a key with the given revision (used for cleanup and rollback)
func (s *storage) Delete(ctx context.Context, key string, revision uint64) error {
	if key == "" {
		return errs.NewValidation("key cannot be empty")
	}

	kv, err := s.client.bucket(constants.KVBucketNameCommittees)
	if err != nil {
		return err
	}

	err = kv.Delete(ctx, key, jetstream.LastRevision(revision))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			// Key not found, consider it a success for idempotency
			slog.WarnContext(ctx, "key not found during deletion", "key", key, "revision", revision)
			return nil
		}
		slog.ErrorContext(ctx, "failed to delete key", "error", err, "key", key, "revision", revision)
		return errs.NewServiceUnavailable("failed to delete key", err)
	}

	slog.DebugContext(ctx, "key deleted successfully", "key", key, "revision", revision)
	return nil
}

// IsReady checks if the storage is ready by verifying the client connection
func (s *storage) IsReady(ctx context.Context) error {
	return s.client.IsReady(ctx)
}

// NewStorage creates a committee repository backed by the NATS KV bucket
func NewStorage(client *NATSClient) port.CommitteeRepository {
	return &storage{
		client: client,
	}
}

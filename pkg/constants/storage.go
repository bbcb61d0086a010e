// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package constants

const (
	// KVBucketNameCommittees is the name of the KV bucket holding committee aggregates.
	KVBucketNameCommittees = "examining-committees"

	// KVLookupCommitteePrefix is the key pattern for the (candidate, type, iteration) constraint
	KVLookupCommitteePrefix = "lookup/committees/%s"

	// CommitteeLookupKeyPrefix is the common prefix of every committee lookup key
	CommitteeLookupKeyPrefix = "lookup/committees/"

	// KVLookupCandidatePrefix is the key pattern of the candidate secondary index,
	// filled with the hashed candidate; the committee UID is appended to it
	KVLookupCandidatePrefix = "lookup/candidates/%s/"
)

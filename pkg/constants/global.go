// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package constants defines global constants used throughout the examining committee service.
package constants

// Service constants
const (
	// ServiceName is the name of this service
	ServiceName = "examining-committee"

	// CommitteeAPIQueue is the NATS queue group for committee service subscriptions
	CommitteeAPIQueue = "examining-committee-api"
)

// Person directory subjects (request/reply)
const (
	// DirectoryGetInternalExaminerSubject resolves a faculty member of the home program
	DirectoryGetInternalExaminerSubject = "banca.directory.get_internal_examiner"
	// DirectoryGetExternalExaminerSubject resolves an examiner from outside the program
	DirectoryGetExternalExaminerSubject = "banca.directory.get_external_examiner"
)

// Repository and directory sources
const (
	SourceNATS   = "nats"
	SourceSQLite = "sqlite"
	SourceMock   = "mock"
)

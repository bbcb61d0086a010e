// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package model

// Person is an examiner as known by the person directory
type Person struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Institution string      `json:"institution"` // home institution
	Email       string      `json:"email,omitempty"`
	Affiliation Affiliation `json:"affiliation"`
}

// RosterEntry joins a committee member with the directory data of its examiner.
// Person is nil when the directory could not resolve the examiner.
type RosterEntry struct {
	Member CommitteeMember `json:"member"`
	Person *Person         `json:"person,omitempty"`
}

// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// The committeectl command validates committee proposals offline and manages
// committees and examiners kept in a local SQLite file.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

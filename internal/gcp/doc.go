// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

// Package gcp contains Google Cloud helpers and adapters used by backends
// that interact with Cloud Storage.
package gcp

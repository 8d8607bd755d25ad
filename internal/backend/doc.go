// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

// Package backend implements the state store integrations a configuration
// document can designate (gcs, s3, and local) and exposes common behaviors
// for querying state, state versions, and workspaces.
package backend

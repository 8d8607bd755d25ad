// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

// Package state loads Terraform state from backends and supports optional
// decryption for encrypted OpenTofu state files.
package state

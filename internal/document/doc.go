// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

// Package document parses the configuration contract of a Terraform/OpenTofu
// workspace: the backend designation, provider requirements, provider
// configurations and variable declarations. It deliberately models only the
// contract surface; resources, data sources and modules are tolerated but
// not decoded.
package document

// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

// Package output provides the filtering, sorting and rendering pipeline that
// query commands use to present result sets as tables, JSON or YAML.
package output

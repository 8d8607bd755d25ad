// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package svutil

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/hashicorp/go-tfe"
)

// Resolve matches each spec against the given state versions. The versions
// are expected most recent first, which makes CSV~0 the current one. A spec
// can be:
//   - empty or CSV~N: relative index back from the current version
//   - a positive number: the state serial to find
//   - zero or a negative number: a relative index, like CSV~N
//   - an existing file path: read the document from disk
//   - anything else: a version ID prefix (generation, object version id,
//     or filename depending on the backend)
func Resolve(versions []*tfe.StateVersion, specs ...string) ([]*tfe.StateVersion, error) {
	// No spec means the current state version.
	if len(specs) == 0 {
		specs = []string{"CSV~0"}
	}

	result := make([]*tfe.StateVersion, 0, len(specs))
	for _, spec := range specs {
		sv, err := resolve(spec, versions)
		if err != nil {
			return nil, err
		}
		result = append(result, sv)
	}

	return result, nil
}

func resolve(spec string, versions []*tfe.StateVersion) (*tfe.StateVersion, error) {
	if spec == "" {
		spec = "CSV~0"
	}

	if strings.HasPrefix(strings.ToUpper(spec), "CSV~") {
		index, err := strconv.Atoi(spec[len("CSV~"):])
		if err != nil {
			return nil, fmt.Errorf("invalid CSV index: %s", spec)
		}
		return byIndex(index, versions)
	}

	if n, err := strconv.Atoi(spec); err == nil {
		if n <= 0 {
			return byIndex(-n, versions)
		}
		return bySerial(int64(n), versions)
	}

	if stat, err := os.Stat(spec); err == nil && !stat.IsDir() {
		// A file on disk stands in for a fetched state version. Callers use
		// JSONDownloadURL as the path to read.
		return &tfe.StateVersion{ID: spec, JSONDownloadURL: spec}, nil
	}

	return byIDPrefix(spec, versions)
}

func byIndex(index int, versions []*tfe.StateVersion) (*tfe.StateVersion, error) {
	if index < 0 || index >= len(versions) {
		return nil, fmt.Errorf("index %d out of range for versions of length %d", index, len(versions))
	}
	return versions[index], nil
}

func bySerial(serial int64, versions []*tfe.StateVersion) (*tfe.StateVersion, error) {
	for _, v := range versions {
		if v.Serial == serial {
			return v, nil
		}
	}
	return nil, fmt.Errorf("failed to find state version with serial %d", serial)
}

func byIDPrefix(prefix string, versions []*tfe.StateVersion) (*tfe.StateVersion, error) {
	for _, v := range versions {
		if strings.HasPrefix(v.ID, prefix) {
			return v, nil
		}
	}
	return nil, fmt.Errorf("failed to find state version with ID prefix: %s", prefix)
}

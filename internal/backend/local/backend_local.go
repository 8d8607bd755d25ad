// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package local

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/apex/log"
	tfe "github.com/hashicorp/go-tfe"
	"github.com/urfave/cli/v3"

	"github.com/tfcheck/tfcheck/internal/differ"
	"github.com/tfcheck/tfcheck/internal/svutil"
)

// BackendLocal represents a local backend designation: state lives at a path
// in the workspace, with non-default workspaces under terraform.tfstate.d/.
type BackendLocal struct {
	Ctx         context.Context
	Cmd         *cli.Command
	RootDir     string `json:"-" validate:"dir"`
	EnvOverride string
	Version     int `json:"version" validate:"gte=3"`
	Backend     struct {
		Type   string `json:"type" validate:"eq=local"`
		Config struct {
			Path         string `json:"path"`
			WorkspaceDir string `json:"workspace_dir"`
		} `json:"config"`
		Hash int `json:"hash"`
	} `json:"backend"`
}

func (be *BackendLocal) DiffStates(ctx context.Context, cmd *cli.Command) ([][]byte, error) {
	svSpecs := []string{"CSV~1", "CSV~0"}

	diffArgs := differ.ParseDiffArgs(ctx, cmd)

	switch len(diffArgs) {
	case 0:
		// No args, so use the last two states.
	case 1:
		if strings.HasPrefix(diffArgs[0], "+") {
			stateVersionList, err := be.StateVersions()
			if err != nil {
				return nil, fmt.Errorf("failed to get state version list: %v", err)
			}

			selectedVersions := differ.SelectStateVersions(stateVersionList)

			log.Debugf("selectedVersions: %d", len(selectedVersions))

			if len(selectedVersions) == 0 {
				return nil, nil
			} else if len(selectedVersions) == 2 {
				svSpecs[0] = selectedVersions[1].ID
				svSpecs[1] = selectedVersions[0].ID
			}
		} else {
			svSpecs[0] = diffArgs[0]
		}
	case 2:
		svSpecs = diffArgs
	}

	states, err := be.States(svSpecs[0], svSpecs[1])
	if err != nil {
		return nil, fmt.Errorf("failed to get states to diff: %w", err)
	}

	return states, nil
}

func (be *BackendLocal) State() ([]byte, error) {
	sv := be.Cmd.String("sv")
	states, err := be.States(sv)
	if err != nil {
		return nil, err
	}
	return states[0], nil
}

// StateVersions implements backend.Backend. It scans the workspace directory
// for state and backup files and builds minimal tfe.StateVersion values: ID
// is the filename, CreatedAt the file timestamp, and Serial comes from the
// document. Filesystem access is cheap enough that nothing is cached.
func (be *BackendLocal) StateVersions() ([]*tfe.StateVersion, error) {
	var versions []*tfe.StateVersion

	envPath := ""
	if env := be.workspace(); env != "default" {
		envPath = filepath.Join("terraform.tfstate.d", env)
	}

	files, err := filepath.Glob(filepath.Join(be.RootDir, envPath, "terraform.tfstate*"))
	if err != nil {
		return nil, err
	}

	type fileInfo struct {
		path string
		mod  int64
	}
	var infos []fileInfo
	for _, f := range files {
		stat, err := os.Stat(f)
		if err != nil || stat.IsDir() {
			continue
		}
		infos = append(infos, fileInfo{f, stat.ModTime().UnixNano()})
	}
	// Sort by mod time, descending
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].mod > infos[j].mod
	})

	for _, info := range infos {
		f, err := os.Open(info.path)
		if err != nil {
			continue
		}

		stat, err := f.Stat()
		if err != nil {
			f.Close()
			continue
		}

		// We care about just grabbing serial out of the doc.
		var doc struct {
			Serial int64 `json:"serial"`
		}
		dec := json.NewDecoder(f)
		if err := dec.Decode(&doc); err != nil {
			f.Close()
			continue
		}
		f.Close()

		versions = append(versions, &tfe.StateVersion{
			ID:        filepath.Base(info.path),
			CreatedAt: stat.ModTime(),
			Serial:    doc.Serial,
			// We're stealing this attribute and using it as the full path to state.
			JSONDownloadURL: info.path,
		})
	}

	return versions, nil
}

func (be *BackendLocal) States(specs ...string) ([][]byte, error) {
	var results [][]byte

	candidates, _ := be.StateVersions()
	versions, err := svutil.Resolve(candidates, specs...)
	if err != nil {
		return nil, err
	}
	log.Debugf("versions: %v", versions)

	for _, v := range versions {
		body, err := os.ReadFile(v.JSONDownloadURL)
		if err != nil {
			return nil, fmt.Errorf("failed to read state file: %w", err)
		}
		results = append(results, body)
	}

	return results, nil
}

// Workspaces lists the default workspace plus the directories under
// terraform.tfstate.d/.
func (be *BackendLocal) Workspaces() ([]string, error) {
	workspaces := []string{"default"}

	entries, err := os.ReadDir(filepath.Join(be.RootDir, "terraform.tfstate.d"))
	if err != nil {
		if os.IsNotExist(err) {
			return workspaces, nil
		}
		return nil, err
	}

	for _, entry := range entries {
		if entry.IsDir() && entry.Name() != "default" {
			workspaces = append(workspaces, entry.Name())
		}
	}

	sort.Strings(workspaces[1:])

	return workspaces, nil
}

func (be *BackendLocal) String() string {
	if be.Backend.Config.Path == "" {
		return "terraform.tfstate"
	}
	return be.Backend.Config.Path
}

func (be *BackendLocal) Type() string {
	return be.Backend.Type
}

// workspace resolves the active workspace name: the rootDir::env override
// wins, then .terraform/environment, then default.
func (be *BackendLocal) workspace() string {
	if be.EnvOverride != "" {
		return be.EnvOverride
	}

	envData, err := os.ReadFile(filepath.Join(be.RootDir, ".terraform/environment"))
	if err == nil {
		if env := string(bytes.TrimSpace(envData)); env != "" {
			return env
		}
	}

	return "default"
}

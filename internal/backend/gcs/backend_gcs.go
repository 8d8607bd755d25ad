// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package gcs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/apex/log"
	tfe "github.com/hashicorp/go-tfe"
	"github.com/urfave/cli/v3"
	"google.golang.org/api/iterator"

	"github.com/tfcheck/tfcheck/internal/differ"
	"github.com/tfcheck/tfcheck/internal/gcp"
	"github.com/tfcheck/tfcheck/internal/svutil"
)

const (
	stateFileSuffix = ".tfstate"
	lockFileSuffix  = ".tflock"
	defaultState    = "default"
)

// BackendGCS represents a Cloud Storage backend designation. State objects
// live at <prefix>/<workspace>.tfstate and versions are the bucket's object
// generations.
type BackendGCS struct {
	Ctx         context.Context
	Cmd         *cli.Command
	RootDir     string `json:"-" validate:"dir"`
	EnvOverride string
	SvOverride  string
	Version     int `json:"version" validate:"gte=3"`
	Backend     struct {
		Type   string `json:"type" validate:"eq=gcs"`
		Config struct {
			Bucket      string `json:"bucket"`
			Prefix      string `json:"prefix"`
			Credentials string `json:"credentials"`
			AccessToken string `json:"access_token"`
			Endpoint    string `json:"storage_custom_endpoint"`
		} `json:"config"`
		Hash int `json:"hash"`
	} `json:"backend"`

	storageClient *storage.Client
}

func (be *BackendGCS) DiffStates(ctx context.Context, cmd *cli.Command) ([][]byte, error) {
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

func (be *BackendGCS) State() ([]byte, error) {
	sv := be.Cmd.String("sv")
	states, err := be.States(sv)
	if err != nil {
		return nil, err
	}
	return states[0], nil
}

// StateBody returns one state document body, by generation. An empty svID
// means the live object.
func (be *BackendGCS) StateBody(svID string) ([]byte, error) {
	if err := PurgeCache(); err != nil {
		log.WithError(err).Warn("failed to purge cache")
	}

	if entry, ok := CacheReader(be, svID); ok {
		return entry.Data, nil
	}

	client, err := be.client()
	if err != nil {
		return nil, err
	}

	obj := client.Bucket(be.Backend.Config.Bucket).Object(be.stateFile())
	if svID != "" {
		gen, err := strconv.ParseInt(svID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid generation %q: %w", svID, err)
		}
		obj = obj.Generation(gen)
	}

	reader, err := obj.NewReader(be.Ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get storage object: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read storage object body: %w", err)
	}

	if err := CacheWriter(be, svID, data); err != nil {
		log.WithError(err).Error("error writing to cache")
	}

	return data, nil
}

// StateVersions implements backend.Backend. It lists the generations of the
// workspace's state object and builds minimal tfe.StateVersion values: ID is
// the generation, CreatedAt the generation timestamp, and Serial comes from
// the document body.
func (be *BackendGCS) StateVersions() ([]*tfe.StateVersion, error) {
	client, err := be.client()
	if err != nil {
		return nil, err
	}

	stateFile := be.stateFile()
	bucket := client.Bucket(be.Backend.Config.Bucket)
	objs := bucket.Objects(be.Ctx, &storage.Query{
		Prefix:   stateFile,
		Versions: true,
	})

	versions := []*tfe.StateVersion{}
	for {
		attrs, err := objs.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list object generations: %w", err)
		}

		// The prefix is literally a prefix, so lock files and neighboring
		// workspaces' state can come back too.
		if attrs.Name != stateFile {
			log.Debugf("Throwing away %s", attrs.Name)
			continue
		}

		svID := strconv.FormatInt(attrs.Generation, 10)

		var body []byte
		if entry, ok := CacheReader(be, svID); ok {
			body = entry.Data
		} else {
			reader, err := bucket.Object(stateFile).Generation(attrs.Generation).NewReader(be.Ctx)
			if err != nil {
				log.WithError(err).Error("storage get object failed")
				continue
			}
			body, err = io.ReadAll(reader)
			reader.Close()
			if err != nil {
				continue
			}

			if err := CacheWriter(be, svID, body); err != nil {
				log.WithError(err).Error("error writing to cache")
			}
		}

		versions = append(versions, &tfe.StateVersion{
			ID:        svID,
			CreatedAt: attrs.Created,
			Serial:    stateSerial(body),
		})
	}

	sort.Slice(versions, func(i, j int) bool {
		return versions[i].CreatedAt.After(versions[j].CreatedAt)
	})

	limit := be.Cmd.Int("limit")
	if limit > 0 && len(versions) > limit {
		versions = versions[:limit]
	}

	return versions, nil
}

func (be *BackendGCS) States(specs ...string) ([][]byte, error) {
	var results [][]byte

	candidates, _ := be.StateVersions()
	versions, err := svutil.Resolve(candidates, specs...)
	if err != nil {
		return nil, err
	}
	log.Debugf("versions: %v", versions)

	for _, v := range versions {
		body, err := be.StateBody(v.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get state: %w", err)
		}
		results = append(results, body)
	}

	return results, nil
}

// Workspaces lists the workspace names found under the prefix. The default
// workspace is always first; lock files are ignored.
func (be *BackendGCS) Workspaces() ([]string, error) {
	client, err := be.client()
	if err != nil {
		return nil, err
	}

	prefix := be.Backend.Config.Prefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	bucket := client.Bucket(be.Backend.Config.Bucket)
	objs := bucket.Objects(be.Ctx, &storage.Query{
		Delimiter: "/",
		Prefix:    prefix,
	})

	workspaces := []string{defaultState}
	for {
		attrs, err := objs.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list workspaces: %w", err)
		}

		name := path.Base(attrs.Name)
		if !strings.HasSuffix(name, stateFileSuffix) {
			continue
		}
		ws := strings.TrimSuffix(name, stateFileSuffix)

		if ws != defaultState {
			workspaces = append(workspaces, ws)
		}
	}

	sort.Strings(workspaces[1:])

	return workspaces, nil
}

func (be *BackendGCS) String() string {
	return fmt.Sprintf("gcs://%s/%s", be.Backend.Config.Bucket, be.Backend.Config.Prefix)
}

func (be *BackendGCS) Type() string {
	return be.Backend.Type
}

// workspace resolves the active workspace name: the rootDir::env override
// wins, then .terraform/environment, then default.
func (be *BackendGCS) workspace() string {
	if be.EnvOverride != "" {
		return be.EnvOverride
	}

	envData, err := os.ReadFile(filepath.Join(be.RootDir, ".terraform/environment"))
	if err == nil {
		if env := string(bytes.TrimSpace(envData)); env != "" {
			return env
		}
	}

	return defaultState
}

// stateFile is the object holding the active workspace's state.
func (be *BackendGCS) stateFile() string {
	return path.Join(be.Backend.Config.Prefix, be.workspace()+stateFileSuffix)
}

// client returns the injected storage client or builds one from the backend
// config.
func (be *BackendGCS) client() (*storage.Client, error) {
	if be.storageClient != nil {
		return be.storageClient, nil
	}

	var opts []gcp.Option
	if be.Backend.Config.Credentials != "" {
		opts = append(opts, gcp.WithCredentials(be.Backend.Config.Credentials))
	}
	if be.Backend.Config.AccessToken != "" {
		opts = append(opts, gcp.WithAccessToken(be.Backend.Config.AccessToken))
	}
	if be.Backend.Config.Endpoint != "" {
		opts = append(opts, gcp.WithEndpoint(be.Backend.Config.Endpoint))
	}

	client, err := gcp.NewStorage(be.Ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build storage client: %w", err)
	}
	be.storageClient = client

	return client, nil
}

// stateSerial grabs just the serial out of a state document body.
func stateSerial(body []byte) int64 {
	var doc struct {
		Serial int64 `json:"serial"`
	}
	_ = json.Unmarshal(body, &doc)
	return doc.Serial
}

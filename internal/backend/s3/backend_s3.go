// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package s3

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
	"strings"
	"time"

	"github.com/apex/log"
	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	s3v2 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hashicorp/go-tfe"
	"github.com/urfave/cli/v3"

	awsx "github.com/tfcheck/tfcheck/internal/aws"
	"github.com/tfcheck/tfcheck/internal/differ"
	"github.com/tfcheck/tfcheck/internal/svutil"
)

// BackendS3 represents an S3 backend designation: bucket + key, with
// non-default workspaces living under <workspace_key_prefix>/<workspace>/.
type BackendS3 struct {
	Ctx         context.Context
	Cmd         *cli.Command
	RootDir     string `json:"-" validate:"dir"`
	EnvOverride string
	SvOverride  string
	Version     int `json:"version" validate:"gte=3"`
	Backend     struct {
		Type   string `json:"type" validate:"eq=s3"`
		Config struct {
			Bucket   string `json:"bucket"`
			Key      string `json:"key"`
			Prefix   string `json:"workspace_key_prefix"`
			Region   string `json:"region"`
			Encrypt  bool   `json:"encrypt"`
			KmsKeyID string `json:"kms_key_id"`
		} `json:"config"`
		Hash int `json:"hash"`
	} `json:"backend"`

	s3Client *s3v2.Client
}

func (be *BackendS3) DiffStates(ctx context.Context, cmd *cli.Command) ([][]byte, error) {
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

func (be *BackendS3) State() ([]byte, error) {
	sv := be.Cmd.String("sv")
	states, err := be.States(sv)
	if err != nil {
		return nil, err
	}
	return states[0], nil
}

// StateBody returns one state document body, by object version id.
func (be *BackendS3) StateBody(svID string) ([]byte, error) {
	if err := PurgeCache(); err != nil {
		log.WithError(err).Warn("failed to purge cache")
	}

	if entry, ok := CacheReader(be, svID); ok {
		return entry.Data, nil
	}

	svc, err := be.client()
	if err != nil {
		return nil, err
	}

	input := &s3v2.GetObjectInput{
		Bucket: awsv2.String(be.Backend.Config.Bucket),
		Key:    awsv2.String(be.stateKey()),
	}
	if svID != "" {
		input.VersionId = awsv2.String(svID)
	}

	result, err := svc.GetObject(be.Ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to get S3 object: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read S3 object body: %w", err)
	}

	if err := CacheWriter(be, svID, data); err != nil {
		log.WithError(err).Error("error writing to cache")
	}

	return data, nil
}

// StateVersions implements backend.Backend. It lists the object versions of
// the workspace's state key and builds minimal tfe.StateVersion values: ID is
// the object version id, CreatedAt the version timestamp, and Serial comes
// from the document body.
func (be *BackendS3) StateVersions() ([]*tfe.StateVersion, error) {
	stateKey := be.stateKey()

	svc, err := be.client()
	if err != nil {
		return nil, err
	}

	paginator := s3v2.NewListObjectVersionsPaginator(svc, &s3v2.ListObjectVersionsInput{
		Bucket: awsv2.String(be.Backend.Config.Bucket),
		Prefix: awsv2.String(stateKey),
	})

	var allDeleteMarkers []types.DeleteMarkerEntry
	var allVersions []types.ObjectVersion
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(be.Ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list object versions: %w", err)
		}
		allDeleteMarkers = append(allDeleteMarkers, page.DeleteMarkers...)
		allVersions = append(allVersions, page.Versions...)
	}

	var mostRecentDelete time.Time
	for _, d := range allDeleteMarkers {
		// The prefix is literally a prefix so lock files come back too.
		if d.Key == nil || *d.Key != stateKey {
			if d.Key != nil {
				log.Debugf("Throwing away delete marker %s", *d.Key)
			}
			continue
		}
		if d.LastModified != nil && d.LastModified.After(mostRecentDelete) {
			mostRecentDelete = *d.LastModified
		}
	}

	versions := []*tfe.StateVersion{}
	for _, v := range allVersions {
		if v.Key == nil || *v.Key != stateKey {
			if v.Key != nil {
				log.Debugf("Throwing away %s", *v.Key)
			}
			continue
		}
		if v.VersionId == nil || v.LastModified == nil {
			continue
		}
		if v.LastModified.Before(mostRecentDelete) {
			continue
		}

		var body []byte
		if entry, ok := CacheReader(be, *v.VersionId); ok {
			body = entry.Data
		} else {
			obj, err := svc.GetObject(be.Ctx, &s3v2.GetObjectInput{
				Bucket:    awsv2.String(be.Backend.Config.Bucket),
				Key:       awsv2.String(stateKey),
				VersionId: v.VersionId,
			})
			if err != nil {
				log.WithError(err).Error("s3 get object failed")
				continue
			}
			body, err = io.ReadAll(obj.Body)
			obj.Body.Close()
			if err != nil {
				continue
			}

			if err := CacheWriter(be, *v.VersionId, body); err != nil {
				log.WithError(err).Error("error writing to cache")
			}
		}

		versions = append(versions, &tfe.StateVersion{
			ID:        *v.VersionId,
			CreatedAt: *v.LastModified,
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

func (be *BackendS3) States(specs ...string) ([][]byte, error) {
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

// Workspaces lists workspace names from the common prefixes under the
// workspace key prefix. The default workspace is always first.
func (be *BackendS3) Workspaces() ([]string, error) {
	svc, err := be.client()
	if err != nil {
		return nil, err
	}

	prefix := be.Backend.Config.Prefix
	if prefix == "" {
		prefix = "env:"
	}
	prefix += "/"

	workspaces := []string{"default"}
	paginator := s3v2.NewListObjectsV2Paginator(svc, &s3v2.ListObjectsV2Input{
		Bucket:    awsv2.String(be.Backend.Config.Bucket),
		Prefix:    awsv2.String(prefix),
		Delimiter: awsv2.String("/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(be.Ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list workspaces: %w", err)
		}
		for _, cp := range page.CommonPrefixes {
			if cp.Prefix == nil {
				continue
			}
			ws := strings.TrimSuffix(strings.TrimPrefix(*cp.Prefix, prefix), "/")
			if ws != "" && ws != "default" {
				workspaces = append(workspaces, ws)
			}
		}
	}

	sort.Strings(workspaces[1:])

	return workspaces, nil
}

func (be *BackendS3) String() string {
	return fmt.Sprintf("s3://%s/%s", be.Backend.Config.Bucket, be.stateKey())
}

func (be *BackendS3) Type() string {
	return be.Backend.Type
}

// workspace resolves the active workspace name: the rootDir::env override
// wins, then .terraform/environment, then default.
func (be *BackendS3) workspace() string {
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

// stateKey is the object key holding the active workspace's state. The
// default workspace lives at the bare key; others under the workspace key
// prefix.
func (be *BackendS3) stateKey() string {
	ws := be.workspace()
	if ws == "default" {
		return be.Backend.Config.Key
	}

	prefix := be.Backend.Config.Prefix
	if prefix == "" {
		prefix = "env:"
	}

	return path.Join(prefix, ws, be.Backend.Config.Key)
}

// client returns the injected S3 client or builds one from the backend
// config.
func (be *BackendS3) client() (*s3v2.Client, error) {
	if be.s3Client != nil {
		return be.s3Client, nil
	}

	var cfgOpts []awsx.Option
	if be.Backend.Config.Region != "" {
		cfgOpts = append(cfgOpts, awsx.WithRegion(be.Backend.Config.Region))
	}
	cfg, err := awsx.LoadConfig(be.Ctx, cfgOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	be.s3Client = awsx.NewS3(cfg)

	return be.s3Client, nil
}

// stateSerial grabs just the serial out of a state document body.
func stateSerial(body []byte) int64 {
	var doc struct {
		Serial int64 `json:"serial"`
	}
	_ = json.Unmarshal(body, &doc)
	return doc.Serial
}

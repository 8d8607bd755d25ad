// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package contract evaluates a workspace's configuration contract: the
// document parses, the backend designation is well-formed, every referenced
// variable is declared, provider requirements are resolvable, and no two
// environments share a state location.
package contract

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	goversion "github.com/hashicorp/go-version"

	"github.com/tfcheck/tfcheck/internal/document"
	"github.com/tfcheck/tfcheck/internal/log"
)

// Status is the outcome of a single check.
type Status string

const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
	StatusSkip Status = "skip"
)

// Result is one check outcome for one root directory.
type Result struct {
	RootDir string `json:"rootDir"`
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Detail  string `json:"detail,omitempty"`
}

// VersionResolver answers whether a provider version constraint is
// satisfiable by a published release. Implemented by the registry client.
type VersionResolver interface {
	Satisfiable(ctx context.Context, source string, constraint string) (bool, string, error)
}

// supportedBackends are the backend kinds tfcheck can reason about.
var supportedBackends = map[string]bool{
	"gcs":   true,
	"s3":    true,
	"local": true,
}

// bucketRE covers the naming rules common to GCS and S3 buckets: lowercase
// alphanumerics, dots, dashes and underscores, 3-63 chars, alnum at the ends.
var bucketRE = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{1,61}[a-z0-9]$`)

// Run evaluates every check against the given documents. The isolation check
// only runs when more than one root directory is supplied. A nil resolver
// skips the registry half of the providers check.
func Run(ctx context.Context, docs []*document.Document, resolver VersionResolver) []Result {
	var results []Result

	for _, doc := range docs {
		results = append(results,
			CheckParse(doc),
			CheckBackend(doc),
			CheckVars(doc),
			CheckProviders(ctx, doc, resolver),
		)
	}

	if len(docs) > 1 {
		results = append(results, CheckIsolation(docs))
	}

	return results
}

// Failed reports whether any result in the set failed.
func Failed(results []Result) bool {
	for _, r := range results {
		if r.Status == StatusFail {
			return true
		}
	}
	return false
}

// CheckParse verifies the document parsed cleanly under the HCL grammar.
func CheckParse(doc *document.Document) Result {
	r := Result{RootDir: doc.RootDir, Name: "parse", Status: StatusPass}

	if doc.Diagnostics.HasErrors() {
		var details []string
		for _, diag := range doc.Diagnostics.Errs() {
			details = append(details, diag.Error())
		}
		r.Status = StatusFail
		r.Detail = strings.Join(details, "; ")
	}

	return r
}

// CheckBackend verifies the backend designation: present, a supported kind,
// and with a well-formed bucket and prefix for the object-store kinds.
func CheckBackend(doc *document.Document) Result {
	r := Result{RootDir: doc.RootDir, Name: "backend", Status: StatusPass}

	be := doc.Backend
	if be == nil {
		r.Status = StatusFail
		r.Detail = "no backend block declared"
		return r
	}

	if !supportedBackends[be.Type] {
		r.Status = StatusFail
		r.Detail = fmt.Sprintf("backend type %q is not supported", be.Type)
		return r
	}

	var problems []string
	switch be.Type {
	case "gcs", "s3":
		if be.Bucket == "" {
			problems = append(problems, "bucket is required")
		} else if !bucketRE.MatchString(be.Bucket) {
			problems = append(problems, fmt.Sprintf("bucket %q is not a valid bucket name", be.Bucket))
		}
		if p := prefixProblem(be.Prefix); p != "" {
			problems = append(problems, p)
		}
		if be.Type == "s3" && be.Key == "" {
			problems = append(problems, "key is required")
		}
	}

	if len(problems) > 0 {
		r.Status = StatusFail
		r.Detail = strings.Join(problems, "; ")
	}

	return r
}

// prefixProblem validates a state key prefix: relative, no empty segments,
// no parent-directory escapes. An empty prefix is fine.
func prefixProblem(prefix string) string {
	if prefix == "" {
		return ""
	}
	if strings.HasPrefix(prefix, "/") {
		return fmt.Sprintf("prefix %q must not start with '/'", prefix)
	}
	if strings.Contains(prefix, "//") {
		return fmt.Sprintf("prefix %q must not contain empty segments", prefix)
	}
	for _, seg := range strings.Split(prefix, "/") {
		if seg == ".." {
			return fmt.Sprintf("prefix %q must not contain '..'", prefix)
		}
	}
	return ""
}

// CheckVars verifies every var.* reference has a matching declaration.
func CheckVars(doc *document.Document) Result {
	r := Result{RootDir: doc.RootDir, Name: "vars", Status: StatusPass}

	undeclared := doc.UndeclaredRefs()
	if len(undeclared) == 0 {
		return r
	}

	var details []string
	for _, ref := range undeclared {
		details = append(details, fmt.Sprintf("var.%s referenced at %s but never declared",
			ref.Name, ref.Range.String()))
	}
	r.Status = StatusFail
	r.Detail = strings.Join(details, "; ")

	return r
}

// CheckProviders verifies each required provider has a plausible source
// address and a parseable version constraint, and (given a resolver) that the
// constraint is satisfiable by a published release. With no requirements the
// check is skipped rather than passed.
func CheckProviders(ctx context.Context, doc *document.Document, resolver VersionResolver) Result {
	r := Result{RootDir: doc.RootDir, Name: "providers", Status: StatusPass}

	if len(doc.RequiredProviders) == 0 {
		r.Status = StatusSkip
		r.Detail = "no required_providers declared"
		return r
	}

	var problems []string
	for _, req := range doc.RequiredProviders {
		if p := sourceProblem(req); p != "" {
			problems = append(problems, p)
			continue
		}

		if req.Constraint != "" {
			if _, err := goversion.NewConstraint(req.Constraint); err != nil {
				problems = append(problems, fmt.Sprintf(
					"provider %s: constraint %q does not parse: %v", req.LocalName, req.Constraint, err))
				continue
			}
		}

		if resolver == nil {
			continue
		}

		source := req.Source
		if source == "" {
			source = req.LocalName
		}
		ok, latest, err := resolver.Satisfiable(ctx, source, req.Constraint)
		if err != nil {
			log.Debugf("registry lookup for %s failed: %v", source, err)
			problems = append(problems, fmt.Sprintf(
				"provider %s: registry lookup failed: %v", req.LocalName, err))
			continue
		}
		if !ok {
			problems = append(problems, fmt.Sprintf(
				"provider %s: no published release satisfies %q (latest is %s)",
				req.LocalName, req.Constraint, latest))
		}
	}

	if len(problems) > 0 {
		r.Status = StatusFail
		r.Detail = strings.Join(problems, "; ")
	}

	return r
}

// sourceProblem validates a provider source address: up to three non-empty
// slash-separated parts ([host/]namespace/type, or a bare type name).
func sourceProblem(req document.ProviderRequirement) string {
	source := req.Source
	if source == "" {
		// Legacy form. The local name stands in for the type.
		source = req.LocalName
	}

	parts := strings.Split(source, "/")
	if len(parts) > 3 {
		return fmt.Sprintf("provider %s: source %q has too many segments", req.LocalName, source)
	}
	for _, part := range parts {
		if part == "" {
			return fmt.Sprintf("provider %s: source %q has an empty segment", req.LocalName, source)
		}
	}

	return ""
}

// StateLocation renders the state location a document designates, which is
// the key the isolation check compares. Local state is root-dir-relative: a
// bare `backend "local" {}` in two environments names two different
// terraform.tfstate files, so relative paths resolve against RootDir.
func StateLocation(doc *document.Document) string {
	be := doc.Backend
	switch be.Type {
	case "gcs":
		return fmt.Sprintf("gcs://%s/%s", be.Bucket, be.Prefix)
	case "s3":
		return fmt.Sprintf("s3://%s/%s/%s", be.Bucket, be.Prefix, be.Key)
	case "local":
		p := be.Path
		if p == "" {
			p = "terraform.tfstate"
		}
		if !filepath.IsAbs(p) {
			p = filepath.Join(doc.RootDir, p)
		}
		return "local://" + p
	}
	return be.Type
}

// CheckIsolation verifies no two documents designate the same state location.
// Object-store backends compare bucket+prefix; local backends compare the
// resolved path.
func CheckIsolation(docs []*document.Document) Result {
	r := Result{Name: "isolation", Status: StatusPass}

	seen := map[string]string{} // location -> first rootDir
	var problems []string

	for _, doc := range docs {
		be := doc.Backend
		if be == nil || !supportedBackends[be.Type] {
			continue
		}

		location := StateLocation(doc)

		if first, dup := seen[location]; dup {
			problems = append(problems, fmt.Sprintf(
				"%s and %s share state location %s", first, doc.RootDir, location))
			continue
		}
		seen[location] = doc.RootDir
	}

	if len(problems) > 0 {
		r.Status = StatusFail
		r.Detail = strings.Join(problems, "; ")
	}

	return r
}

// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tfcheck/tfcheck/internal/contract"
	"github.com/tfcheck/tfcheck/internal/document"
)

// Row is one flat result record. Keys are addressed in attrs and filter specs
// with a leading '.'.
type Row = map[string]interface{}

// documentRows flattens every contract-relevant declaration in the document
// into kind/name/detail rows, in declaration-group order: backend, required
// providers, provider configurations, variables.
func documentRows(doc *document.Document) []Row {
	var rows []Row

	if be := doc.Backend; be != nil {
		rows = append(rows, Row{
			"kind":   "backend",
			"name":   be.Type,
			"detail": contract.StateLocation(doc),
		})
	}

	for _, req := range doc.RequiredProviders {
		rows = append(rows, Row{
			"kind":   "required_provider",
			"name":   req.LocalName,
			"detail": fmt.Sprintf("%s %s", req.Source, req.Constraint),
		})
	}

	for _, pc := range doc.ProviderConfigs {
		name := pc.LocalName
		if pc.Alias != "" {
			name = name + "." + pc.Alias
		}
		var parts []string
		for _, attr := range pc.Attributes {
			parts = append(parts, fmt.Sprintf("%s=%s", attr.Name, attr.Value))
		}
		rows = append(rows, Row{
			"kind":   "provider",
			"name":   name,
			"detail": strings.Join(parts, ", "),
		})
	}

	for _, name := range sortedVariableNames(doc) {
		v := doc.Variables[name]
		detail := v.Description
		if v.Sensitive {
			detail = strings.TrimSpace(detail + " (sensitive)")
		}
		rows = append(rows, Row{
			"kind":   "variable",
			"name":   v.Name,
			"detail": detail,
		})
	}

	return rows
}

// variableRows lists each declared variable with its default and how many
// times it is referenced, followed by one row per undeclared reference.
func variableRows(doc *document.Document) []Row {
	refCounts := map[string]int{}
	for _, ref := range doc.VariableRefs() {
		refCounts[ref.Name]++
	}

	var rows []Row
	for _, name := range sortedVariableNames(doc) {
		v := doc.Variables[name]
		row := Row{
			"name":        v.Name,
			"declared":    true,
			"sensitive":   v.Sensitive,
			"refs":        refCounts[v.Name],
			"description": v.Description,
		}
		if v.HasDefault {
			row["default"] = v.Default
		} else {
			row["default"] = ""
		}
		rows = append(rows, row)
	}

	for _, ref := range doc.UndeclaredRefs() {
		rows = append(rows, Row{
			"name":        ref.Name,
			"declared":    false,
			"sensitive":   false,
			"refs":        refCounts[ref.Name],
			"default":     "",
			"description": fmt.Sprintf("referenced at %s", ref.Range.String()),
		})
	}

	return rows
}

// providerRows lists each required provider. With a resolver the latest
// published version and whether the constraint is satisfiable are included.
func providerRows(doc *document.Document, rs resolverFn) []Row {
	var rows []Row
	for _, req := range doc.RequiredProviders {
		row := Row{
			"name":       req.LocalName,
			"source":     req.Source,
			"constraint": req.Constraint,
		}
		if rs != nil {
			ok, latest, err := rs(req)
			switch {
			case err != nil:
				row["latest"] = ""
				row["satisfiable"] = fmt.Sprintf("error: %v", err)
			default:
				row["latest"] = latest
				row["satisfiable"] = fmt.Sprintf("%t", ok)
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// resolverFn resolves one provider requirement against the registry.
type resolverFn func(document.ProviderRequirement) (bool, string, error)

// backendRows renders the backend designation as a single row.
func backendRows(doc *document.Document) []Row {
	be := doc.Backend
	if be == nil {
		return nil
	}
	return []Row{{
		"type":     be.Type,
		"bucket":   be.Bucket,
		"prefix":   be.Prefix,
		"key":      be.Key,
		"region":   be.Region,
		"path":     be.Path,
		"location": contract.StateLocation(doc),
	}}
}

// checkRows flattens contract results into rootdir/check/status/detail rows.
func checkRows(results []contract.Result) []Row {
	var rows []Row
	for _, r := range results {
		rows = append(rows, Row{
			"rootdir": r.RootDir,
			"check":   r.Name,
			"status":  string(r.Status),
			"detail":  r.Detail,
		})
	}
	return rows
}

// sortedVariableNames imposes a stable order on the Variables map.
func sortedVariableNames(doc *document.Document) []string {
	names := make([]string, 0, len(doc.Variables))
	for name := range doc.Variables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

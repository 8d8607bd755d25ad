// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package document

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/tfcheck/tfcheck/internal/log"
)

// Backend is the remote state designation from the terraform settings block.
// Bucket and Prefix are populated for object-store backends (gcs, s3); other
// backend kinds keep their settings in Attributes only.
type Backend struct {
	Type       string
	Bucket     string
	Prefix     string
	Key        string
	Region     string
	Path       string
	Attributes []Attribute
	DeclRange  hcl.Range
}

// ProviderRequirement is one entry of a required_providers block.
type ProviderRequirement struct {
	LocalName  string
	Source     string
	Constraint string
	DeclRange  hcl.Range
}

// ProviderConfig is a provider configuration block, e.g. the block that
// passes project and region to the google provider.
type ProviderConfig struct {
	LocalName  string
	Alias      string
	Attributes []Attribute
	DeclRange  hcl.Range
}

// Variable is a declared variable block.
type Variable struct {
	Name        string
	Description string
	Sensitive   bool
	HasDefault  bool
	Default     interface{}
	DeclRange   hcl.Range
}

// Attribute is a single HCL attribute with its statically-known rendering and
// the variable names its expression references.
type Attribute struct {
	Name    string
	Value   string
	VarRefs []string
	Range   hcl.Range
}

// VarRef is a variable reference found in the document with its source
// location, used to report undeclared references precisely.
type VarRef struct {
	Name  string
	Range hcl.Range
}

// Document is the parsed configuration contract for one root directory:
// the backend designation, provider requirements and configurations, and
// declared variables, plus any diagnostics accumulated while parsing.
type Document struct {
	RootDir           string
	RequiredVersion   string
	Backend           *Backend
	RequiredProviders []ProviderRequirement
	ProviderConfigs   []ProviderConfig
	Variables         map[string]Variable
	Diagnostics       hcl.Diagnostics

	refs []VarRef
}

// Load parses every .tf file in rootDir into a Document. Parse and content
// errors are accumulated in Diagnostics rather than aborting, so a partially
// broken workspace can still be reported on. An error is returned only when
// the directory itself cannot be read or contains no .tf files.
func Load(rootDir string) (*Document, error) {
	files, err := listTFFiles(rootDir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .tf files found in %s", rootDir)
	}

	doc := &Document{
		RootDir:   rootDir,
		Variables: map[string]Variable{},
	}

	parser := hclparse.NewParser()
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			doc.Diagnostics = append(doc.Diagnostics, diags...)
			continue
		}

		content, contentDiags := hclFile.Body.Content(configFileSchema)
		if contentDiags.HasErrors() {
			doc.Diagnostics = append(doc.Diagnostics, contentDiags...)
			continue
		}

		for _, block := range content.Blocks {
			switch block.Type {
			case "terraform":
				doc.decodeTerraformBlock(block)
			case "provider":
				doc.decodeProviderBlock(block)
			case "variable":
				doc.decodeVariableBlock(block)
			}
		}
	}

	sort.Slice(doc.RequiredProviders, func(i, j int) bool {
		return doc.RequiredProviders[i].LocalName < doc.RequiredProviders[j].LocalName
	})

	log.Debugf("document loaded: rootDir=%s, backend=%v, providers=%d, variables=%d",
		rootDir, doc.Backend != nil, len(doc.RequiredProviders), len(doc.Variables))

	return doc, nil
}

// VariableRefs returns every var.* reference found in provider configurations
// and the backend block, in document order.
func (d *Document) VariableRefs() []VarRef {
	return d.refs
}

// UndeclaredRefs returns the variable references that have no matching
// variable declaration, deduplicated by name.
func (d *Document) UndeclaredRefs() []VarRef {
	var undeclared []VarRef
	seen := map[string]bool{}
	for _, ref := range d.refs {
		if _, ok := d.Variables[ref.Name]; ok {
			continue
		}
		if seen[ref.Name] {
			continue
		}
		seen[ref.Name] = true
		undeclared = append(undeclared, ref)
	}
	return undeclared
}

// decodeTerraformBlock extracts required_version, the backend declaration,
// and provider requirements from a terraform settings block.
func (d *Document) decodeTerraformBlock(block *hcl.Block) {
	content, diags := block.Body.Content(terraformBlockSchema)
	if diags.HasErrors() {
		d.Diagnostics = append(d.Diagnostics, diags...)
		return
	}

	if attr, exists := content.Attributes["required_version"]; exists {
		if val, err := attr.Expr.Value(nil); err == nil && val.Type() == cty.String {
			d.RequiredVersion = val.AsString()
		}
	}

	for _, inner := range content.Blocks {
		switch inner.Type {
		case "backend":
			d.decodeBackendBlock(inner)
		case "cloud":
			// A cloud block is an implicit remote backend. We record the type
			// so checks can report it as unsupported rather than missing.
			d.Backend = &Backend{Type: "cloud", DeclRange: inner.DefRange}
		case "required_providers":
			d.decodeRequiredProviders(inner)
		}
	}
}

// decodeBackendBlock captures the backend type label and all attributes,
// promoting the well-known object-store keys to struct fields.
func (d *Document) decodeBackendBlock(block *hcl.Block) {
	be := &Backend{
		Type:      block.Labels[0],
		DeclRange: block.DefRange,
	}

	attrs, diags := block.Body.JustAttributes()
	if diags.HasErrors() {
		d.Diagnostics = append(d.Diagnostics, diags...)
	}

	for _, attr := range sortedAttributes(attrs) {
		a := d.newAttribute(attr)
		be.Attributes = append(be.Attributes, a)

		switch a.Name {
		case "bucket":
			be.Bucket = a.Value
		case "prefix":
			be.Prefix = a.Value
		case "key":
			be.Key = a.Value
		case "region":
			be.Region = a.Value
		case "path":
			be.Path = a.Value
		case "workspace_key_prefix":
			be.Prefix = a.Value
		}
	}

	d.Backend = be
}

// decodeRequiredProviders handles both the object form
// ({source = ..., version = ...}) and the legacy bare constraint string.
func (d *Document) decodeRequiredProviders(block *hcl.Block) {
	attrs, diags := block.Body.JustAttributes()
	if diags.HasErrors() {
		d.Diagnostics = append(d.Diagnostics, diags...)
		return
	}

	for _, attr := range sortedAttributes(attrs) {
		req := ProviderRequirement{
			LocalName: attr.Name,
			DeclRange: attr.Range,
		}

		val, err := attr.Expr.Value(nil)
		if err != nil {
			d.Diagnostics = append(d.Diagnostics, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid provider requirement",
				Detail:   fmt.Sprintf("The requirement for provider %q must be a constant value.", attr.Name),
				Subject:  attr.Range.Ptr(),
			})
			continue
		}

		switch {
		case val.Type() == cty.String:
			req.Constraint = val.AsString()
		case val.Type().IsObjectType():
			if val.Type().HasAttribute("source") {
				if source := val.GetAttr("source"); source.Type() == cty.String && !source.IsNull() {
					req.Source = source.AsString()
				}
			}
			if val.Type().HasAttribute("version") {
				if ver := val.GetAttr("version"); ver.Type() == cty.String && !ver.IsNull() {
					req.Constraint = ver.AsString()
				}
			}
		default:
			d.Diagnostics = append(d.Diagnostics, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid provider requirement",
				Detail:   fmt.Sprintf("The requirement for provider %q must be a string or an object with source and version.", attr.Name),
				Subject:  attr.Range.Ptr(),
			})
			continue
		}

		d.RequiredProviders = append(d.RequiredProviders, req)
	}
}

// decodeProviderBlock captures a provider configuration and its variable
// references (e.g. project = var.gcp_project_id).
func (d *Document) decodeProviderBlock(block *hcl.Block) {
	pc := ProviderConfig{
		LocalName: block.Labels[0],
		DeclRange: block.DefRange,
	}

	attrs, diags := block.Body.JustAttributes()
	if diags.HasErrors() {
		d.Diagnostics = append(d.Diagnostics, diags...)
	}

	for _, attr := range sortedAttributes(attrs) {
		a := d.newAttribute(attr)
		if a.Name == "alias" {
			pc.Alias = a.Value
			continue
		}
		pc.Attributes = append(pc.Attributes, a)
	}

	d.ProviderConfigs = append(d.ProviderConfigs, pc)
}

// decodeVariableBlock extracts the declaration attributes we report on.
func (d *Document) decodeVariableBlock(block *hcl.Block) {
	content, _ := block.Body.Content(variableBlockSchema)

	v := Variable{
		Name:      block.Labels[0],
		DeclRange: block.DefRange,
	}

	if attr, exists := content.Attributes["description"]; exists {
		if val, err := attr.Expr.Value(nil); err == nil && val.Type() == cty.String {
			v.Description = val.AsString()
		}
	}
	if attr, exists := content.Attributes["sensitive"]; exists {
		if val, err := attr.Expr.Value(nil); err == nil && val.Type() == cty.Bool {
			v.Sensitive = val.True()
		}
	}
	if attr, exists := content.Attributes["default"]; exists {
		if val, err := attr.Expr.Value(nil); err == nil {
			v.HasDefault = true
			v.Default = ctyToGo(val)
		}
	}

	d.Variables[v.Name] = v
}

// newAttribute renders an attribute's statically-known value and records any
// var.* traversals in the expression, both on the returned Attribute and in
// the document-wide reference list.
func (d *Document) newAttribute(attr *hcl.Attribute) Attribute {
	a := Attribute{
		Name:  attr.Name,
		Range: attr.Range,
	}

	for _, traversal := range attr.Expr.Variables() {
		if traversal.RootName() != "var" || len(traversal) < 2 {
			continue
		}
		if step, ok := traversal[1].(hcl.TraverseAttr); ok {
			a.VarRefs = append(a.VarRefs, step.Name)
			d.refs = append(d.refs, VarRef{Name: step.Name, Range: traversal.SourceRange()})
		}
	}

	if val, err := attr.Expr.Value(nil); err == nil && val.IsKnown() && !val.IsNull() {
		switch val.Type() {
		case cty.String:
			a.Value = val.AsString()
		case cty.Bool:
			a.Value = fmt.Sprintf("%t", val.True())
		case cty.Number:
			a.Value = val.AsBigFloat().String()
		}
	} else if len(a.VarRefs) == 1 {
		// Not statically known, but a plain variable reference displays well.
		a.Value = "var." + a.VarRefs[0]
	}

	return a
}

// ctyToGo converts constant cty values to plain Go values for reporting.
func ctyToGo(val cty.Value) interface{} {
	if val.IsNull() || !val.IsKnown() {
		return nil
	}

	switch {
	case val.Type() == cty.String:
		return val.AsString()
	case val.Type() == cty.Bool:
		return val.True()
	case val.Type() == cty.Number:
		bf := val.AsBigFloat()
		if bf.IsInt() {
			i, _ := bf.Int64()
			return i
		}
		f, _ := bf.Float64()
		return f
	case val.Type().IsTupleType() || val.Type().IsListType() || val.Type().IsSetType():
		var result []interface{}
		for it := val.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			result = append(result, ctyToGo(elem))
		}
		return result
	case val.Type().IsObjectType() || val.Type().IsMapType():
		result := map[string]interface{}{}
		for it := val.ElementIterator(); it.Next(); {
			key, elem := it.Element()
			result[key.AsString()] = ctyToGo(elem)
		}
		return result
	default:
		return val.GoString()
	}
}

// listTFFiles returns the .tf files in dir, sorted, skipping the override and
// hidden files the provisioning tool itself would skip.
func listTFFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".tf") {
			continue
		}
		if strings.HasPrefix(name, ".") {
			continue
		}
		if name == "override.tf" || strings.HasSuffix(name, "_override.tf") {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	sort.Strings(files)

	return files, nil
}

// sortedAttributes orders a JustAttributes map by source position so output
// follows the document.
func sortedAttributes(attrs hcl.Attributes) []*hcl.Attribute {
	result := make([]*hcl.Attribute, 0, len(attrs))
	for _, attr := range attrs {
		result = append(result, attr)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Range.Filename == result[j].Range.Filename {
			return result[i].Range.Start.Byte < result[j].Range.Start.Byte
		}
		return result[i].Range.Filename < result[j].Range.Filename
	})
	return result
}

// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package si

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/ext/tryfunc"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// addressRE matches resource addresses embedded in an expression, e.g.
// module.services.google_storage_bucket.state[0].name or
// data.google_project.current.number, so they can be substituted with their
// state values before HCL sees the expression.
var addressRE = regexp.MustCompile(`\b(module\.[a-zA-Z0-9_.-]+\.[a-zA-Z0-9_.-]+(?:\[[^\]]+\])?\.[a-zA-Z0-9_.-]+|[a-zA-Z0-9_]+\.[a-zA-Z0-9_.-]+(?:\[[^\]]+\])?\.[a-zA-Z0-9_.-]+|data\.[a-zA-Z0-9_.-]+\.[a-zA-Z0-9_.-]+(?:\[[^\]]+\])?\.[a-zA-Z0-9_.-]+)\b`)

// evaluateFunction evaluates an HCL expression against the state, with the
// cty stdlib available and resource addresses resolved to their values.
func evaluateFunction(expression string, stateData map[string]interface{}) string {
	processedExpression := substituteAddresses(expression, stateData)

	ctx := &hcl.EvalContext{
		Variables: buildVariableMap(stateData),
		Functions: buildFunctionMap(),
	}

	expr, diags := hclsyntax.ParseExpression([]byte(processedExpression), "", hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return fmt.Sprintf("Error parsing expression: %s", diags.Error())
	}

	result, diags := expr.Value(ctx)
	if diags.HasErrors() {
		return fmt.Sprintf("Error evaluating expression: %s", diags.Error())
	}

	return formatCtyValue(result)
}

// substituteAddresses replaces each resolvable resource address in the
// expression with the JSON rendering of its state value. Addresses that do
// not resolve are left alone so HCL can report them.
func substituteAddresses(expression string, stateData map[string]interface{}) string {
	return addressRE.ReplaceAllStringFunc(expression, func(address string) string {
		parsed, err := ParseQuery(address)
		if err != nil {
			return address
		}

		matches := FindMatchingResources(stateData, parsed)
		if len(matches) == 0 {
			return address
		}

		attrValue := ExtractAttribute(matches[0], parsed)
		if attrValue == nil {
			return address
		}

		jsonBytes, err := json.Marshal(attrValue)
		if err != nil {
			return address
		}

		return string(jsonBytes)
	})
}

// buildFunctionMap exposes the cty stdlib plus the HCL try/can extensions
// under their Terraform names.
func buildFunctionMap() map[string]function.Function {
	funcs := map[string]function.Function{
		// Arithmetic
		"abs":    stdlib.AbsoluteFunc,
		"ceil":   stdlib.CeilFunc,
		"floor":  stdlib.FloorFunc,
		"log":    stdlib.LogFunc,
		"max":    stdlib.MaxFunc,
		"min":    stdlib.MinFunc,
		"pow":    stdlib.PowFunc,
		"signum": stdlib.SignumFunc,

		// Strings
		"chomp":      stdlib.ChompFunc,
		"format":     stdlib.FormatFunc,
		"indent":     stdlib.IndentFunc,
		"join":       stdlib.JoinFunc,
		"lower":      stdlib.LowerFunc,
		"replace":    stdlib.ReplaceFunc,
		"split":      stdlib.SplitFunc,
		"substr":     stdlib.SubstrFunc,
		"title":      stdlib.TitleFunc,
		"trim":       stdlib.TrimFunc,
		"trimprefix": stdlib.TrimPrefixFunc,
		"trimspace":  stdlib.TrimSpaceFunc,
		"trimsuffix": stdlib.TrimSuffixFunc,
		"upper":      stdlib.UpperFunc,

		// Collections
		"chunklist":       stdlib.ChunklistFunc,
		"coalesce":        stdlib.CoalesceFunc,
		"coalescelist":    stdlib.CoalesceListFunc,
		"compact":         stdlib.CompactFunc,
		"concat":          stdlib.ConcatFunc,
		"contains":        stdlib.ContainsFunc,
		"distinct":        stdlib.DistinctFunc,
		"element":         stdlib.ElementFunc,
		"flatten":         stdlib.FlattenFunc,
		"index":           stdlib.IndexFunc,
		"keys":            stdlib.KeysFunc,
		"length":          stdlib.LengthFunc,
		"lookup":          stdlib.LookupFunc,
		"merge":           stdlib.MergeFunc,
		"reverse":         stdlib.ReverseFunc,
		"reverselist":     stdlib.ReverseListFunc,
		"setintersection": stdlib.SetIntersectionFunc,
		"setproduct":      stdlib.SetProductFunc,
		"setsubtract":     stdlib.SetSubtractFunc,
		"setunion":        stdlib.SetUnionFunc,
		"slice":           stdlib.SliceFunc,
		"sort":            stdlib.SortFunc,
		"values":          stdlib.ValuesFunc,
		"zipmap":          stdlib.ZipmapFunc,

		// Data
		"csvdecode":  stdlib.CSVDecodeFunc,
		"jsondecode": stdlib.JSONDecodeFunc,
		"jsonencode": stdlib.JSONEncodeFunc,
		"formatdate": stdlib.FormatDateFunc,
		"formatlist": stdlib.FormatListFunc,
		"parseint":   stdlib.ParseIntFunc,
		"range":      stdlib.RangeFunc,
		"timeadd":    stdlib.TimeAddFunc,

		// Patterns
		"regex":    stdlib.RegexFunc,
		"regexall": stdlib.RegexAllFunc,
	}

	funcs["try"] = tryfunc.TryFunc
	funcs["can"] = tryfunc.CanFunc

	return funcs
}

// buildVariableMap exposes the state document to HCL: the whole thing under
// "state", plus every top-level key directly.
func buildVariableMap(stateData map[string]interface{}) map[string]cty.Value {
	vars := make(map[string]cty.Value)

	if stateData != nil {
		vars["state"] = convertToCtyValue(stateData)

		for key, value := range stateData {
			vars[key] = convertToCtyValue(value)
		}
	}

	return vars
}

// convertToCtyValue maps decoded JSON values onto cty values.
func convertToCtyValue(val interface{}) cty.Value {
	switch v := val.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType)
	case bool:
		return cty.BoolVal(v)
	case int:
		return cty.NumberIntVal(int64(v))
	case int64:
		return cty.NumberIntVal(v)
	case float64:
		return cty.NumberFloatVal(v)
	case string:
		return cty.StringVal(v)
	case []interface{}:
		vals := make([]cty.Value, len(v))
		for i, item := range v {
			vals[i] = convertToCtyValue(item)
		}
		return cty.TupleVal(vals)
	case map[string]interface{}:
		vals := make(map[string]cty.Value)
		for key, item := range v {
			vals[key] = convertToCtyValue(item)
		}
		return cty.ObjectVal(vals)
	default:
		return cty.StringVal(fmt.Sprintf("%v", v))
	}
}

// formatCtyValue renders a cty value for display: primitives bare, complex
// types as JSON.
func formatCtyValue(val cty.Value) string {
	if val.IsNull() {
		return "null"
	}

	switch val.Type() {
	case cty.Bool:
		return fmt.Sprintf("%t", val.True())
	case cty.Number:
		bf := val.AsBigFloat()
		if bf.IsInt() {
			i, _ := bf.Int64()
			return fmt.Sprintf("%d", i)
		}
		f, _ := bf.Float64()
		return fmt.Sprintf("%g", f)
	case cty.String:
		return val.AsString()
	default:
		goVal := ctyValueToGo(val)
		if jsonBytes, err := json.Marshal(goVal); err == nil {
			return string(jsonBytes)
		}
		return fmt.Sprintf("%#v", goVal)
	}
}

// ctyValueToGo converts a cty value back to plain Go values for JSON output.
func ctyValueToGo(val cty.Value) interface{} {
	if val.IsNull() {
		return nil
	}

	switch {
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
	case val.Type() == cty.String:
		return val.AsString()
	case val.Type().IsTupleType():
		var result []interface{}
		for it := val.ElementIterator(); it.Next(); {
			_, elemVal := it.Element()
			result = append(result, ctyValueToGo(elemVal))
		}
		return result
	case val.Type().IsObjectType():
		result := make(map[string]interface{})
		for it := val.ElementIterator(); it.Next(); {
			keyVal, elemVal := it.Element()
			result[keyVal.AsString()] = ctyValueToGo(elemVal)
		}
		return result
	default:
		return fmt.Sprintf("%#v", val)
	}
}

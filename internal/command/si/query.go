// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package si evaluates interactive state-inspector queries: resource address
// lookups, attribute extraction, and HCL function expressions against a
// loaded state document.
package si

import (
	"fmt"
	"strconv"
	"strings"
)

// ParsedQuery is a resource address query broken into its components.
type ParsedQuery struct {
	Module    []string    // module path components, e.g. ["services"]
	Mode      string      // "managed" or "data"
	Type      string      // resource type, e.g. "google_storage_bucket"
	Name      string      // resource name, e.g. "state"
	Index     interface{} // instance index (int, string, or nil for all)
	Attribute string      // attribute name, e.g. "id"
}

// ProcessQuery routes a query to the right handler based on its syntax:
// a leading '/' or balanced parentheses select function evaluation, a
// leading '.' selects JSON output, anything else lists matching addresses.
func ProcessQuery(stateData map[string]interface{}, query string) {
	if strings.HasPrefix(query, "/") {
		expression := strings.TrimPrefix(query, "/")
		fmt.Println(evaluateFunction(expression, stateData))
		return
	}

	if hasBalancedParens(query) {
		fmt.Println(evaluateFunction(query, stateData))
		return
	}

	jsonMode := strings.HasPrefix(query, ".")
	if jsonMode {
		query = strings.TrimPrefix(query, ".")
	}

	if result := handleSpecialQueries(stateData, query); result != nil {
		if jsonMode {
			printJSON(result)
		} else {
			fmt.Println(result)
		}
		return
	}

	parsed, err := ParseQuery(query)
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		return
	}

	matches := FindMatchingResources(stateData, parsed)

	if parsed.Attribute != "" {
		for _, match := range matches {
			attrValue := ExtractAttribute(match, parsed)
			if attrValue == nil {
				continue
			}
			if jsonMode {
				printJSON(attrValue)
			} else {
				fmt.Println(formatAttributeValue(attrValue))
			}
		}
		return
	}

	if jsonMode {
		for _, match := range matches {
			printJSON(match)
		}
		return
	}

	for _, addr := range generateResourceAddresses(matches) {
		fmt.Println(addr)
	}
}

// hasBalancedParens reports whether s holds at least one balanced pair of
// parentheses, the heuristic for bare function expressions.
func hasBalancedParens(s string) bool {
	openCount := 0
	closeCount := 0

	for _, char := range s {
		switch char {
		case '(':
			openCount++
		case ')':
			closeCount++
		}
	}

	return openCount > 0 && openCount == closeCount
}

// handleSpecialQueries answers the built-in queries that address state
// metadata rather than resources.
func handleSpecialQueries(stateData map[string]interface{}, query string) interface{} {
	switch query {
	case "terraform_version":
		if val, ok := stateData["terraform_version"]; ok {
			return val
		}
		return "not found"
	case "version":
		if val, ok := stateData["version"]; ok {
			return val
		}
		return "not found"
	}

	// outputs.NAME reaches into the outputs map.
	if strings.HasPrefix(query, "outputs.") {
		outputName := strings.TrimPrefix(query, "outputs.")
		if outputs, ok := stateData["outputs"].(map[string]interface{}); ok {
			if output, ok := outputs[outputName].(map[string]interface{}); ok {
				return output["value"]
			}
		}
		return fmt.Sprintf("output '%s' not found", outputName)
	}

	return nil
}

// ParseQuery splits a resource address query into structured components.
// The grammar is [module.NAME...][data.]TYPE[.NAME][INDEX][.ATTRIBUTE],
// with INDEX as [N] or ["key"].
func ParseQuery(query string) (*ParsedQuery, error) {
	parsed := &ParsedQuery{
		Mode: "managed",
	}

	parts := smartSplit(query, ".")
	pos := 0

	// Module path: every "module.NAME" pair.
	for pos < len(parts) && parts[pos] == "module" {
		if pos+1 >= len(parts) {
			return nil, fmt.Errorf("invalid module syntax: 'module' must be followed by module name")
		}
		pos++
		parsed.Module = append(parsed.Module, parts[pos])
		pos++
	}

	if pos < len(parts) && parts[pos] == "data" {
		parsed.Mode = "data"
		pos++
	}

	if pos < len(parts) {
		typeAndIndex := parts[pos]
		if idx := strings.Index(typeAndIndex, "["); idx != -1 {
			parsed.Type = typeAndIndex[:idx]
			parsed.Index = parseIndex(typeAndIndex[idx+1 : len(typeAndIndex)-1])
		} else {
			parsed.Type = typeAndIndex
		}
		pos++
	}

	if pos < len(parts) {
		nameAndIndex := parts[pos]
		if idx := strings.Index(nameAndIndex, "["); idx != -1 {
			parsed.Name = nameAndIndex[:idx]
			parsed.Index = parseIndex(nameAndIndex[idx+1 : len(nameAndIndex)-1])
		} else {
			parsed.Name = nameAndIndex
		}
		pos++
	}

	if pos < len(parts) {
		parsed.Attribute = parts[pos]
		pos++
	}

	if pos < len(parts) {
		return nil, fmt.Errorf("unexpected extra parts in query: %v", parts[pos:])
	}

	return parsed, nil
}

// smartSplit splits on delimiter but never inside double quotes, so keyed
// indices like ["a.b"] survive intact.
func smartSplit(s, delimiter string) []string {
	var parts []string
	var current strings.Builder
	inQuotes := false
	i := 0

	for i < len(s) {
		switch {
		case s[i] == '"':
			inQuotes = !inQuotes
			current.WriteByte(s[i])
			i++
		case !inQuotes && i+len(delimiter) <= len(s) && s[i:i+len(delimiter)] == delimiter:
			parts = append(parts, current.String())
			current.Reset()
			i += len(delimiter)
		default:
			current.WriteByte(s[i])
			i++
		}
	}

	if current.Len() > 0 {
		parts = append(parts, current.String())
	}

	return parts
}

// parseIndex interprets an index expression as an int, a quoted string, or a
// bare string, in that order.
func parseIndex(indexStr string) interface{} {
	if i, err := strconv.Atoi(indexStr); err == nil {
		return i
	}

	if strings.HasPrefix(indexStr, `"`) && strings.HasSuffix(indexStr, `"`) {
		return indexStr[1 : len(indexStr)-1]
	}

	return indexStr
}

// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package si

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FindMatchingResources returns one flattened resource+instance record for
// every instance in the state that matches the parsed query.
func FindMatchingResources(stateData map[string]interface{}, query *ParsedQuery) []map[string]interface{} {
	resources, ok := stateData["resources"].([]interface{})
	if !ok {
		return nil
	}

	var matches []map[string]interface{}

	for _, resource := range resources {
		res, ok := resource.(map[string]interface{})
		if !ok {
			continue
		}

		mode := "managed"
		if resMode, ok := res["mode"].(string); ok {
			mode = resMode
		}
		if query.Mode != mode {
			continue
		}

		if !matchesModule(res, query.Module) {
			continue
		}

		if query.Type != "" {
			if resType, ok := res["type"].(string); !ok || resType != query.Type {
				continue
			}
		}

		if query.Name != "" {
			if resName, ok := res["name"].(string); !ok || resName != query.Name {
				continue
			}
		}

		instances, ok := res["instances"].([]interface{})
		if !ok {
			continue
		}
		for _, instance := range instances {
			inst, ok := instance.(map[string]interface{})
			if !ok {
				continue
			}
			if query.Index != nil && !matchesIndex(inst, query.Index) {
				continue
			}
			matches = append(matches, createResourceMatch(res, inst))
		}
	}

	return matches
}

// matchesModule reports whether a resource belongs to the queried module
// path. An empty query matches only root-module resources.
func matchesModule(resource map[string]interface{}, moduleQuery []string) bool {
	if len(moduleQuery) == 0 {
		return resource["module"] == nil
	}

	moduleStr, ok := resource["module"].(string)
	if !ok {
		return false
	}

	expected := "module." + strings.Join(moduleQuery, ".")
	return moduleStr == expected
}

// matchesIndex reports whether an instance's index_key matches the query
// index. An instance without an index_key counts as index 0.
func matchesIndex(instance map[string]interface{}, queryIndex interface{}) bool {
	indexKey, ok := instance["index_key"]
	if !ok {
		return queryIndex == 0 || queryIndex == "0"
	}

	return indexMatchesValue(indexKey, queryIndex)
}

// createResourceMatch merges resource-level and instance-level fields into
// one flat record, dropping the instances array.
func createResourceMatch(resource map[string]interface{}, instance map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{})

	for k, v := range resource {
		if k != "instances" {
			result[k] = v
		}
	}

	for k, v := range instance {
		result[k] = v
	}

	return result
}

// generateResourceAddresses renders one address per matched record.
func generateResourceAddresses(matches []map[string]interface{}) []string {
	var addresses []string

	for _, match := range matches {
		addresses = append(addresses, buildResourceAddress(match))
	}

	return addresses
}

// buildResourceAddress renders [module.]...[data.]type.name[index] from a
// flattened record.
func buildResourceAddress(resource map[string]interface{}) string {
	var parts []string

	if module, ok := resource["module"].(string); ok && module != "" {
		parts = append(parts, module)
	}

	if mode, ok := resource["mode"].(string); ok && mode == "data" {
		parts = append(parts, "data")
	}

	if resourceType, ok := resource["type"].(string); ok {
		parts = append(parts, resourceType)
	}

	if name, ok := resource["name"].(string); ok {
		namePart := name

		if indexKey, ok := resource["index_key"]; ok {
			switch v := indexKey.(type) {
			case float64:
				namePart += fmt.Sprintf("[%d]", int(v))
			case int:
				namePart += fmt.Sprintf("[%d]", v)
			case string:
				namePart += fmt.Sprintf("[%q]", v)
			}
		}

		parts = append(parts, namePart)
	}

	return strings.Join(parts, ".")
}

// ExtractAttribute pulls the queried attribute out of a matched record.
// Flattened records carry attributes directly; unflattened resources fall
// back to walking the instances array, honoring the query index.
func ExtractAttribute(resource map[string]interface{}, parsed *ParsedQuery) interface{} {
	if attributes, ok := resource["attributes"].(map[string]interface{}); ok {
		if attrValue, exists := attributes[parsed.Attribute]; exists {
			return attrValue
		}
		return nil
	}

	instances, ok := resource["instances"].([]interface{})
	if !ok || len(instances) == 0 {
		return nil
	}

	if parsed.Index == nil {
		var results []interface{}
		for _, instance := range instances {
			if instanceMap, ok := instance.(map[string]interface{}); ok {
				if attributes, ok := instanceMap["attributes"].(map[string]interface{}); ok {
					if attrValue, exists := attributes[parsed.Attribute]; exists {
						results = append(results, attrValue)
					}
				}
			}
		}
		if len(results) == 1 {
			return results[0]
		}
		return results
	}

	for _, instance := range instances {
		instanceMap, ok := instance.(map[string]interface{})
		if !ok {
			continue
		}

		indexKey, exists := instanceMap["index_key"]
		if exists && !indexMatchesValue(indexKey, parsed.Index) {
			continue
		}
		if !exists && parsed.Index != 0 && parsed.Index != "0" {
			continue
		}

		if attributes, ok := instanceMap["attributes"].(map[string]interface{}); ok {
			if attrValue, exists := attributes[parsed.Attribute]; exists {
				return attrValue
			}
		}
	}

	return nil
}

// formatAttributeValue renders an attribute value for list output: strings
// bare, null as "null", everything else as JSON.
func formatAttributeValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return "null"
	default:
		if jsonBytes, err := json.Marshal(v); err == nil {
			return string(jsonBytes)
		}
		return fmt.Sprintf("%v", v)
	}
}

// indexMatchesValue compares an instance index_key against a query index,
// tolerating the int/float64/string mismatches JSON decoding introduces.
func indexMatchesValue(indexKey interface{}, queryIndex interface{}) bool {
	switch qv := queryIndex.(type) {
	case int:
		if idx, ok := indexKey.(float64); ok {
			return int(idx) == qv
		}
		if idx, ok := indexKey.(int); ok {
			return idx == qv
		}
		if idx, ok := indexKey.(string); ok {
			return idx == strconv.Itoa(qv)
		}
	case string:
		if idx, ok := indexKey.(string); ok {
			return idx == qv
		}
		if idx, ok := indexKey.(float64); ok {
			return strconv.Itoa(int(idx)) == qv
		}
		if idx, ok := indexKey.(int); ok {
			return strconv.Itoa(idx) == qv
		}
	}
	return false
}

// printJSON writes data as indented JSON.
func printJSON(data interface{}) {
	jsonBytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		fmt.Printf("Error formatting JSON: %s\n", err)
		return
	}
	fmt.Println(string(jsonBytes))
}

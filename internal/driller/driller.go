// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package driller

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

var segmentRE = regexp.MustCompile(`^([a-zA-Z0-9_-]+)(\[(\d|\*)?\])?$`)

// Drill navigates a JSON document using a dot path where each segment may
// carry an array suffix: resources[2], instances[], attributes. A bare []
// unwraps single-element arrays and leaves longer ones whole.
func Drill(jsonData string, path string) gjson.Result {
	current := gjson.Parse(jsonData)

	for _, segment := range strings.Split(path, ".") {
		matches := segmentRE.FindStringSubmatch(segment)
		if len(matches) == 0 {
			return gjson.Result{} // Invalid path segment
		}

		val := current.Get(matches[1])
		if val.IsArray() {
			val = element(val, matches[3])
			if !val.Exists() && matches[3] != "" {
				return gjson.Result{}
			}
		}

		current = val
	}

	return current
}

// element picks from an array per the index suffix: a number indexes, empty
// or * unwraps only when the array has exactly one element.
func element(val gjson.Result, index string) gjson.Result {
	arr := val.Array()

	if index == "" || index == "*" {
		if len(arr) == 1 {
			return arr[0]
		}
		return val
	}

	i, err := strconv.Atoi(index)
	if err != nil || i < 0 || i >= len(arr) {
		return gjson.Result{}
	}
	return arr[i]
}

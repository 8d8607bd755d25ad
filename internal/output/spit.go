// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/color"
	"io"
	"os"
	"reflect"
	"regexp"
	"strconv"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/lipgloss/v2/table"
	"github.com/tidwall/gjson"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v2"

	"github.com/tfcheck/tfcheck/internal/attrs"
	"github.com/tfcheck/tfcheck/internal/config"
	"github.com/tfcheck/tfcheck/internal/filters"
	"github.com/tfcheck/tfcheck/internal/log"
)

// InterfaceToString converts supported primitive or composite values to a
// string. A custom empty value may be provided.
func InterfaceToString(value interface{}, emptyValue ...string) string {
	if len(emptyValue) == 0 {
		emptyValue = []string{""}
	}

	if value == nil || reflect.ValueOf(value).IsZero() {
		return emptyValue[0]
	}

	// The int and bool cases are unlikely to be reached because JSON parsing
	// yields float64 and string.
	switch value := value.(type) {
	case string:
		return value
	case int:
		return strconv.Itoa(value)
	case float64:
		// No current use case needs an actual float, so render an integer.
		return fmt.Sprintf("%.0f", value)
	case bool:
		return strconv.FormatBool(value)
	default:
		jsonBytes, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprintf("%v", value)
		}
		return string(jsonBytes)
	}
}

// SliceDiceSpit orchestrates filtering, transforming, sorting and rendering
// of a dataset according to command flags and attribute specifications. The
// optional postProcess callback lets commands apply their own transformations
// to the filtered dataset before rendering.
func SliceDiceSpit(raw bytes.Buffer,
	attrs attrs.AttrList,
	cmd *cli.Command,
	parent string,
	w io.Writer,
	postProcess func([]map[string]interface{}) error) {

	// Default to stdout.
	if w == nil {
		w = os.Stdout
	}

	// If raw, just dump it and go home.
	output := cmd.String("output")
	if output == "raw" {
		_, _ = w.Write(raw.Bytes())
		return
	}

	// State documents carry resources nested under instances. Flatten them
	// into one row per instance so the same pipeline can process state rows
	// and every other command's payloads.
	if resources := gjson.Parse(raw.String()).Get("resources"); resources.Exists() {
		raw = flattenState(resources, !cmd.Bool("short"))
	}

	// Commands whose payload nests the row array under a key pass it as
	// parent; everything else processes the document root.
	var fullDataset gjson.Result
	if parent != "" {
		fullDataset = gjson.Parse(raw.String()).Get(parent)
	} else {
		fullDataset = gjson.Parse(raw.String())
	}

	// Filter out unwanted rows first so the following passes work on a
	// smaller dataset.
	filter := cmd.String("filter")
	filteredDataset := filters.FilterDataset(fullDataset, attrs, filter)

	// THINK Force a time transformation for all attributes even though many
	// will not be timestamps. An alternative would be to inspect the first
	// row and only add the transformation to attrs that look like timestamps.
	if cmd.Bool("local") {
		for a := range attrs {
			attrs[a].TransformSpec += "t"
		}
	}

	// Transform each value in each row.
	for _, row := range filteredDataset {
		for _, attr := range attrs {
			if attr.TransformSpec != "" {
				row[attr.OutputKey] = attr.Transform(row[attr.OutputKey])
			}
		}
	}

	spec := cmd.String("sort")
	SortDataset(filteredDataset, spec)

	switch output {
	case "json":
		// TODO Figure out how to maintain key order in the JSON document.
		jsonOutput, err := json.Marshal(filteredDataset)
		if err != nil {
			log.Errorf("SliceDiceSpit json marshal: %v", err)
		}
		fmt.Fprintln(w, string(jsonOutput))
	case "yaml":
		yamlOutput, err := yaml.Marshal(filteredDataset)
		if err != nil {
			log.Errorf("SliceDiceSpit yaml marshal: %v", err)
		}
		_, _ = w.Write(yamlOutput)
	default:
		if postProcess != nil {
			if err := postProcess(filteredDataset); err != nil {
				log.Errorf("PostProcess: %v", err)
			}
		}

		TableWriter(filteredDataset, attrs, cmd, w)
	}
}

// TableWriter renders the result set in tabular form honoring color, titles
// and padding options. Output is written to w, or os.Stdout when w is nil.
func TableWriter(
	resultSet []map[string]interface{},
	attrs attrs.AttrList,
	cmd *cli.Command,
	w io.Writer) {

	if w == nil {
		w = os.Stdout
	}

	if len(resultSet) == 0 {
		return
	}

	var (
		headerStyle  = lipgloss.NewStyle().Align(lipgloss.Left).Bold(true)
		cellStyle    = lipgloss.NewStyle().Padding(0, 0).Align(lipgloss.Left)
		evenRowStyle = cellStyle
		oddRowStyle  = cellStyle
	)

	if cmd.Bool("color") {
		headerColor, evenColor, oddColor := getColors("colors")

		headerStyle = headerStyle.Foreground(headerColor)
		evenRowStyle = evenRowStyle.Foreground(evenColor)
		oddRowStyle = oddRowStyle.Foreground(oddColor)
	}

	var rows [][]string
	for _, result := range resultSet {
		row := make([]string, 0, len(result))
		for _, attr := range attrs {
			if !attr.Include {
				continue
			}
			row = append(row, InterfaceToString(result[attr.OutputKey], "-"))
		}
		rows = append(rows, row)
	}

	if cmd.Metadata["header"] != nil {
		fmt.Fprintln(w, headerStyle.Render(cmd.Metadata["header"].(string)))
	}

	pad := cmd.Int("padding")
	t := table.New().
		BorderBottom(false).
		BorderTop(false).
		BorderLeft(false).
		BorderRight(false).
		Border(lipgloss.HiddenBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			var style lipgloss.Style
			switch {
			case row == table.HeaderRow:
				style = headerStyle
			case row%2 == 0:
				style = evenRowStyle
			default:
				style = oddRowStyle
			}

			if col > 0 {
				style = style.PaddingLeft(pad)
			}

			return style
		}).
		Headers().
		Rows(rows...)

	if cmd.Bool("titles") {
		var headers []string
		for _, attr := range attrs {
			if attr.Include {
				headers = append(headers, attr.OutputKey)
			}
		}

		// https://github.com/charmbracelet/lipgloss/issues/261
		t = t.Headers(headers...).BorderHeader(false)
	}
	fmt.Fprintln(w, t)

	if cmd.Metadata["footer"] != nil {
		fmt.Fprintln(w, headerStyle.Render(cmd.Metadata["footer"].(string)))
	}
}

// flattenState folds each resource's instances into standalone rows carrying
// the resource's common fields plus a synthesized "resource" address. This
// gives state rows the same flat shape as other command payloads.
func flattenState(resources gjson.Result, short bool) bytes.Buffer {
	var flatResources []map[string]interface{}

	for _, resource := range resources.Array() {
		common := getCommonFields(resource)

		instances := resource.Get("instances")
		for _, instance := range instances.Array() {
			flatResource := make(map[string]interface{})
			for key, value := range common {
				flatResource[key] = value
			}

			for key, value := range instance.Map() {
				flatResource[key] = value.Value()
			}

			module := ""
			if flatResource["module"] != nil {
				module = InterfaceToString(flatResource["module"]) + "."
			}

			mode := ""
			if flatResource["mode"] != "managed" {
				mode = InterfaceToString(flatResource["mode"]) + "."
			}

			indexKey := ""
			if flatResource["index_key"] != nil {
				switch v := flatResource["index_key"].(type) {
				case int, int64, float64:
					indexKey = fmt.Sprintf("[%v]", v)
				default:
					indexKey = fmt.Sprintf("[\"%v\"]", v)
				}
			}

			resourceID := fmt.Sprintf("%s%s%s.%s%s", module, mode, flatResource["type"], flatResource["name"], indexKey)
			if !short {
				re := regexp.MustCompile(`(^module.)|(.module.)`)
				resourceID = re.ReplaceAllString(resourceID, "+")
			}
			flatResource["resource"] = resourceID

			flatResources = append(flatResources, flatResource)
		}
	}

	jsonBytes, err := json.Marshal(flatResources)
	if err != nil {
		log.Errorf("flattenState marshal: %v", err)
		return *bytes.NewBuffer([]byte{})
	}

	raw := *bytes.NewBuffer(jsonBytes)
	return raw
}

// getColors returns configured color values for table rendering. Each color
// is selected based on terminal background so that output stays visible for
// all(?) terminal themes.
func getColors(key string) (header, even, odd color.Color) {
	isDark := lipgloss.HasDarkBackground(os.Stdin, os.Stdout)

	// Use the explicit color if found in the config and leave it up to the
	// user to choose appropriate colors for their theme. Otherwise pick a
	// reasonable default based on terminal background.
	resolveColor := func(key string, light string, dark string) color.Color {
		colorCfg, err := config.GetString(key)
		if err == nil {
			return lipgloss.Color(colorCfg)
		}

		if isDark {
			return lipgloss.Color(dark)
		}
		return lipgloss.Color(light)
	}

	header = resolveColor(key+".title", "#b08800", "#f6be00")
	even = resolveColor(key+".even", "#333333", "#ffffff")
	odd = resolveColor(key+".odd", "#0088a0", "#00c8f0")

	return
}

// getCommonFields extracts common fields from a resource, excluding instances.
func getCommonFields(resource gjson.Result) map[string]interface{} {
	var common = make(map[string]interface{})
	for key, value := range resource.Map() {
		if key != "instances" {
			common[key] = value.Value()
		}
	}
	return common
}

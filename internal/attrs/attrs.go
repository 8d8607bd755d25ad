// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package attrs

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/tfcheck/tfcheck/internal/log"
)

// Attr describes one key of a result row: where it comes from in the JSON
// payload, what it is called in the output and which transformations to
// apply to its value.
type Attr struct {
	// The JSON key to extract from the result row.
	Key string `yaml:"key" json:"Key"`
	// Whether the attribute appears in output or exists only for
	// filtering and sorting.
	Include bool `yaml:"include" json:"Include"`
	// The key used in output. Doubles as the column title when output=text.
	OutputKey string `yaml:"outputKey" json:"OutputKey"`
	// Transformation spec applied to the output value.
	TransformSpec string `yaml:"transformSpec" json:"TransformSpec"`
}

// Transform applies the attribute's transform spec to a value. Only string
// values are transformed; anything else passes through untouched.
func (a *Attr) Transform(value interface{}) interface{} {
	result, ok := value.(string)
	if !ok {
		log.Tracef("non-string value: value=%v", value)
		return value
	}

	// t renders a UTC timestamp in the local zone, T as relative time.
	if strings.ContainsAny(a.TransformSpec, "tT") {
		result = a.transformTime(result)
	}

	// The last case directive in the spec wins. A global case transform is
	// prepended to each attr's spec, so the attr's own directive overrides
	// it. IOW... --attrs '*::U,name::l' leaves name lower case.
	lastL := strings.LastIndexAny(a.TransformSpec, "lL")
	lastU := strings.LastIndexAny(a.TransformSpec, "uU")

	if lastL > lastU {
		result = strings.ToLower(result)
		log.Tracef("case lower: result=%s", result)
	} else if lastU > lastL {
		result = strings.ToUpper(result)
		log.Tracef("case upper: result=%s", result)
	}

	// A signed integer in the spec is a length directive. Positive truncates
	// on the right, negative collapses the middle. As with case, the last
	// directive found overrides any global one.
	if a.TransformSpec != "" {
		re := regexp.MustCompile(`-?\d+`)
		match := re.FindAllString(a.TransformSpec, -1)
		if len(match) != 0 {
			l, _ := strconv.Atoi(match[len(match)-1])
			abs := int(math.Abs(float64(l)))
			if len(result) > abs {
				if l < 0 {
					lr := abs/2 - 1
					result = result[0:lr] + ".." + result[len(result)-lr:]
					log.Tracef("length middle: result=%s", result)
				} else {
					result = result[:l]
					log.Tracef("length trunc: result=%s", result)
				}
			}
		}
	}

	return result
}

// transformTime converts an RFC3339 timestamp per the t/T directive. Values
// that don't parse as timestamps are returned unchanged.
func (a *Attr) transformTime(value string) string {
	tz, _ := time.Now().In(time.Local).Zone()
	if tz == "" {
		return value
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return value
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return value
	}

	local := t.In(loc)
	if strings.Contains(a.TransformSpec, "T") {
		return humanize.Time(local)
	}
	return local.Format("2006-01-02T15:04:05MST")
}

// AttrList is a collection of Attr used to shape output fields.
type AttrList []Attr

// Set parses each spec from --attrs and adds it to the AttrList.
func (a *AttrList) Set(value string) error {
	if value == "" || value == "*" {
		log.Debugf("early return: value=%s", value)
		return nil
	}

	const (
		jsonIdx = iota
		outputIdx
		transformIdx
	)

	// Each spec carries up to three : delimited fields. The first is the
	// key to extract from the JSON row, the second the key to use in the
	// output and the third the transformation spec. The latter two are
	// optional; the output key defaults to the last segment of the JSON key.
	specs := strings.Split(value, ",")
	log.Debugf("specs split: specs=%v", specs)
specloop:
	for _, spec := range specs {

		// Default to including the attribute, assuming it is a child of the
		// .attributes key of the JSON row.
		attr := Attr{
			Include: true,
		}

		fields := strings.Split(spec, ":")

		// A leading ! excludes the key from output while keeping it
		// available for filtering and sorting.
		attr.Key = strings.TrimSpace(fields[jsonIdx])
		if strings.HasPrefix(attr.Key, "!") {
			attr.Include = false
			attr.Key = attr.Key[1:]
		}

		if attr.Key == "*" {
			attr.Include = false
		}
		log.Tracef("key parsed: key=%s, include=%v", attr.Key, attr.Include)

		if len(fields) == 1 {
			segments := strings.Split(attr.Key, ".")
			attr.OutputKey = segments[len(segments)-1]
		} else {
			if fields[outputIdx] != "" {
				attr.OutputKey = strings.TrimSpace(fields[outputIdx])
			} else {
				attr.OutputKey = attr.Key
			}
		}
		log.Tracef("output set: outputKey=%s", attr.OutputKey)

		attr.TransformSpec = ""
		if len(fields) > transformIdx {
			attr.TransformSpec = strings.TrimSpace(fields[transformIdx])
		}
		log.Tracef("transform set: spec=%s", attr.TransformSpec)

		// If the attr is already in the list (a command default, or the user
		// double-entered it), fold this spec into the existing entry.
		for i := range *a {
			if (*a)[i].Key == attr.Key || (*a)[i].OutputKey == attr.Key {
				(*a)[i].Include = attr.Include
				(*a)[i].OutputKey = attr.OutputKey
				(*a)[i].TransformSpec = attr.TransformSpec
				log.Tracef("existing updated: i=%d", i)
				continue specloop
			}
		}

		// A key with a leading '.' addresses the root of the JSON row.
		// Otherwise it addresses a child of the .attributes key.
		if strings.HasPrefix(attr.Key, ".") {
			attr.Key = attr.Key[1:]
		} else if attr.Key != "*" {
			attr.Key = "attributes." + attr.Key
		}
		log.Tracef("key fixed: key=%s", attr.Key)

		*a = append(*a, attr)
		log.Tracef("attr appended: len=%d", len(*a))

	}

	return nil
}

// SetGlobalTransformSpec prepends the global ('*') transform spec, if any,
// onto every attr in the list.
func (a *AttrList) SetGlobalTransformSpec() error {
	spec := ""

	for attr := range *a {
		if (*a)[attr].Key == "*" {
			spec = (*a)[attr].TransformSpec
			break
		}
	}
	log.Debugf("global spec: spec=%s", spec)

	if spec == "" {
		log.Debugf("no global spec")
		return nil
	}

	for attr := range *a {
		(*a)[attr].TransformSpec = spec + "," + (*a)[attr].TransformSpec
	}
	log.Debugf("specs prepended")

	return nil
}

// String renders the AttrList in the same format as the --attrs flag.
func (a *AttrList) String() string {
	result := make([]string, 0, len(*a))
	for _, attr := range *a {
		result = append(result, fmt.Sprintf("%s:%s:%s", attr.Key, attr.OutputKey, attr.TransformSpec))
	}

	resultStr := strings.Join(result, ",")
	log.Debugf("string built: result=%s", resultStr)
	return resultStr
}

// Type returns the flag type for use with the flag.Value interface.
func (a *AttrList) Type() string { return "list" }

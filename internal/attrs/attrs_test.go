// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package attrs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSet(t *testing.T) {
	tests := []struct {
		name string
		spec string
		want AttrList
	}{
		{
			name: "empty_spec_is_noop",
			spec: "",
			want: nil,
		},
		{
			name: "bare_star_is_noop",
			spec: "*",
			want: nil,
		},
		{
			name: "single_key",
			spec: "bucket",
			want: AttrList{
				{Key: "attributes.bucket", Include: true, OutputKey: "bucket"},
			},
		},
		{
			name: "root_key",
			spec: ".serial",
			want: AttrList{
				{Key: "serial", Include: true, OutputKey: "serial"},
			},
		},
		{
			name: "output_key_and_transform",
			spec: "prefix:pfx:U",
			want: AttrList{
				{Key: "attributes.prefix", Include: true, OutputKey: "pfx", TransformSpec: "U"},
			},
		},
		{
			name: "excluded_key",
			spec: "!region",
			want: AttrList{
				{Key: "attributes.region", Include: false, OutputKey: "region"},
			},
		},
		{
			name: "global_transform_entry",
			spec: "*::u",
			want: AttrList{
				{Key: "*", Include: false, OutputKey: "*", TransformSpec: "u"},
			},
		},
		{
			name: "nested_key_output_defaults_to_last_segment",
			spec: ".checks.backend",
			want: AttrList{
				{Key: "checks.backend", Include: true, OutputKey: "backend"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a AttrList
			assert.NoError(t, a.Set(tt.spec))
			assert.Equal(t, tt.want, a)
		})
	}
}

func TestSetUpdatesExisting(t *testing.T) {
	a := AttrList{
		{Key: "attributes.bucket", Include: true, OutputKey: "bucket"},
	}

	// Re-specifying an existing key updates it in place rather than
	// appending a duplicate.
	assert.NoError(t, a.Set("bucket:store:U"))
	assert.Len(t, a, 1)
	assert.Equal(t, "store", a[0].OutputKey)
	assert.Equal(t, "U", a[0].TransformSpec)

	// Excluding by output key works too.
	assert.NoError(t, a.Set("!store"))
	assert.Len(t, a, 1)
	assert.False(t, a[0].Include)
}

func TestSetGlobalTransformSpec(t *testing.T) {
	var a AttrList
	assert.NoError(t, a.Set("*::u,bucket,prefix::l"))
	assert.NoError(t, a.SetGlobalTransformSpec())

	for _, attr := range a {
		assert.True(t, len(attr.TransformSpec) >= 1)
		assert.Equal(t, "u", attr.TransformSpec[:1])
	}
}

func TestTransformCase(t *testing.T) {
	tests := []struct {
		name string
		spec string
		in   string
		want string
	}{
		{name: "upper", spec: "U", in: "postspot", want: "POSTSPOT"},
		{name: "lower", spec: "l", in: "PostSpot", want: "postspot"},
		{name: "attr_overrides_global", spec: "U,l", in: "PostSpot", want: "postspot"},
		{name: "no_spec", spec: "", in: "PostSpot", want: "PostSpot"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attr := Attr{TransformSpec: tt.spec}
			assert.Equal(t, tt.want, attr.Transform(tt.in))
		})
	}
}

func TestTransformLength(t *testing.T) {
	attr := Attr{TransformSpec: "8"}
	assert.Equal(t, "postspot", attr.Transform("postspot-terraform-state"))

	// A negative length keeps both ends and elides the middle.
	attr = Attr{TransformSpec: "-10"}
	assert.Equal(t, "post..tate", attr.Transform("postspot-terraform-state"))

	// Values already within the limit pass through.
	attr = Attr{TransformSpec: "80"}
	assert.Equal(t, "postspot", attr.Transform("postspot"))
}

func TestTransformNonString(t *testing.T) {
	attr := Attr{TransformSpec: "U"}
	assert.Equal(t, 42, attr.Transform(42))
	assert.Nil(t, attr.Transform(nil))
}

func TestTransformTimeLocal(t *testing.T) {
	attr := Attr{TransformSpec: "t"}
	in := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC).Format(time.RFC3339)

	got, ok := attr.Transform(in).(string)
	assert.True(t, ok)
	// The exact rendering depends on the local zone, so just verify the
	// value was reformatted out of RFC3339.
	assert.NotEqual(t, in, got)
	assert.Contains(t, got, "2026-08-01T")

	// Non-timestamps are left alone.
	assert.Equal(t, "not-a-time", attr.Transform("not-a-time"))
}

func TestString(t *testing.T) {
	var a AttrList
	assert.NoError(t, a.Set("bucket,.serial:ser:U"))
	assert.Equal(t, "attributes.bucket:bucket:,serial:ser:U", a.String())
	assert.Equal(t, "list", a.Type())
}

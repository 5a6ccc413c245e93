package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", IRString("hello"), `"hello"`},
		{"empty string", IRString(""), `""`},
		{"int", IRInt(42), "42"},
		{"negative int", IRInt(-100), "-100"},
		{"max int64", IRInt(9223372036854775807), "9223372036854775807"},
		{"bool true", IRBool(true), "true"},
		{"bool false", IRBool(false), "false"},
		{"empty array", IRArray{}, "[]"},
		{"empty object", IRObject{}, "{}"},
		{"array of ints", IRArray{IRInt(1), IRInt(2), IRInt(3)}, "[1,2,3]"},
		{"go map", map[string]any{"b": 1, "a": "x"}, `{"a":"x","b":1}`},
		{"go slice", []any{true, int64(2)}, "[true,2]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalNestedSortedKeys(t *testing.T) {
	obj := IRObject{
		"z": IRObject{"b": IRInt(1), "a": IRInt(2)},
		"a": IRInt(3),
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"a":3,"z":{"a":2,"b":1}}`, string(result))
}

func TestMarshalCanonicalNoHTMLEscape(t *testing.T) {
	result, err := MarshalCanonical(IRString("<a & b>"))
	require.NoError(t, err)
	assert.Equal(t, `"<a & b>"`, string(result))
}

func TestMarshalCanonicalRejectsFloatsAndNull(t *testing.T) {
	for name, input := range map[string]any{
		"float64": 1.5,
		"nil":     nil,
		"IRNull":  IRNull{},
		"nested":  IRArray{IRInt(1), IRNull{}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := MarshalCanonical(input)
			assert.Error(t, err)
		})
	}
}

func TestMarshalCanonicalNFCNormalization(t *testing.T) {
	// e + combining acute accent normalizes to the precomposed form.
	decomposed := IRString("e\u0301")
	composed := IRString("\u00e9")

	a, err := MarshalCanonical(decomposed)
	require.NoError(t, err)
	b, err := MarshalCanonical(composed)
	require.NoError(t, err)
	assert.Equal(t, string(b), string(a))
}

func TestMarshalCanonicalLineSeparators(t *testing.T) {
	result, err := MarshalCanonical(IRString("a\u2028b\u2029c"))
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\u2029c\"", string(result))

	// A literal backslash followed by "u2028" text stays escaped.
	result, err = MarshalCanonical(IRString(`\u2028`))
	require.NoError(t, err)
	assert.Equal(t, `"\\u2028"`, string(result))
}

func TestMarshalCanonicalIdempotency(t *testing.T) {
	obj := IRObject{
		"payloads": IRArray{IRObject{"n": IRInt(1)}, IRObject{"n": IRInt(2)}},
		"name":     IRString("foo"),
	}

	first, err := MarshalCanonical(obj)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := MarshalCanonical(obj)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestNormalize(t *testing.T) {
	got, err := Normalize(IRObject{
		"cafe\u0301": IRArray{IRString("e\u0301"), IRInt(1)},
		"plain":      IRBool(true),
	})
	require.NoError(t, err)
	assert.Equal(t, IRObject{
		"caf\u00e9": IRArray{IRString("\u00e9"), IRInt(1)},
		"plain":     IRBool(true),
	}, got)

	// The normalized value is exactly what the wire carries.
	data, err := MarshalCanonical(got)
	require.NoError(t, err)
	back, err := UnmarshalIRValue(data)
	require.NoError(t, err)
	assert.True(t, Equal(got, back))

	_, err = Normalize(IRArray{IRString("bad\xff")})
	assert.ErrorContains(t, err, "invalid UTF-8")

	_, err = Normalize(IRObject{"\u00e9": IRInt(1), "e\u0301": IRInt(2)})
	assert.ErrorContains(t, err, "duplicate after NFC normalization")
}

package descriptor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeTypePrimitives(t *testing.T) {
	cases := map[string]string{
		"V": "void",
		"Z": "boolean",
		"B": "byte",
		"C": "char",
		"S": "short",
		"I": "int",
		"J": "long",
		"F": "float",
		"D": "double",
	}
	for desc, want := range cases {
		got, ok := DecodeType(desc)
		assert.True(t, ok, desc)
		assert.Equal(t, want, got, desc)
	}
}

func TestDecodeTypeObjects(t *testing.T) {
	got, ok := DecodeType("Lcom/example/Widget;")
	require.True(t, ok)
	assert.Equal(t, "Widget", got)

	// Default-package classes keep their bare name.
	got, ok = DecodeType("La;")
	require.True(t, ok)
	assert.Equal(t, "a", got)

	got, ok = DecodeQualifiedType("Lcom/example/Widget;")
	require.True(t, ok)
	assert.Equal(t, "com.example.Widget", got)
}

func TestDecodeTypeArrays(t *testing.T) {
	got, ok := DecodeType("[I")
	require.True(t, ok)
	assert.Equal(t, "int[]", got)

	got, ok = DecodeType("[[Ljava/lang/String;")
	require.True(t, ok)
	assert.Equal(t, "String[][]", got)
}

func TestDecodeTypeMalformed(t *testing.T) {
	got, ok := DecodeType("Q")
	assert.False(t, ok)
	assert.Contains(t, got, "<invalid:")

	got, ok = DecodeType("Lcom/example/Widget")
	assert.False(t, ok)
	assert.Contains(t, got, "<invalid:")

	got, ok = DecodeType("[X")
	assert.False(t, ok)
	assert.Contains(t, got, "<invalid_array:")
}

func TestDecodeMethodDescriptor(t *testing.T) {
	params, ret, ok := DecodeMethodDescriptor("(ILjava/lang/String;[J)V")
	require.True(t, ok)
	assert.Equal(t, []string{"int", "String", "long[]"}, params)
	assert.Equal(t, "void", ret)

	params, ret, ok = DecodeMethodDescriptor("()Lcom/example/Widget;")
	require.True(t, ok)
	assert.Empty(t, params)
	assert.Equal(t, "Widget", ret)
}

func TestDecodeMethodDescriptorMalformed(t *testing.T) {
	_, _, ok := DecodeMethodDescriptor("IZ)V")
	assert.False(t, ok)

	_, _, ok = DecodeMethodDescriptor("(Lcom/example")
	assert.False(t, ok)

	params, _, ok := DecodeMethodDescriptor("(Ljava/lang/String)V")
	assert.False(t, ok)
	require.Len(t, params, 1)
	assert.Contains(t, params[0], "<truncated:")

	params, ret, ok := DecodeMethodDescriptor("(X)V")
	assert.False(t, ok)
	assert.Equal(t, []string{"<invalid_char:X>"}, params)
	assert.Equal(t, "void", ret)
}

func TestParamCount(t *testing.T) {
	assert.Equal(t, 0, ParamCount("()V"))
	assert.Equal(t, 2, ParamCount("(II)V"))
	assert.Equal(t, 3, ParamCount("(Ljava/lang/String;[IZ)I"))
	assert.Equal(t, -1, ParamCount("broken"))
}

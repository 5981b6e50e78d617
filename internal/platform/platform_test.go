package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchSmaliSpelling(t *testing.T) {
	m := NewMatcher()

	iface, method, ok := m.Match([]string{"Landroid/view/View$OnClickListener;"}, "(Landroid/view/View;)V")
	require.True(t, ok)
	assert.Equal(t, "android.view.View$OnClickListener", iface)
	assert.Equal(t, "onClick", method)
}

func TestMatchDottedSpelling(t *testing.T) {
	m := NewMatcher()

	_, method, ok := m.Match([]string{"java.lang.Runnable"}, "()V")
	require.True(t, ok)
	assert.Equal(t, "run", method)
}

func TestMatchRequiresDeclaredInterface(t *testing.T) {
	m := NewMatcher()

	// The descriptor exists in the table but the class does not declare the
	// owning interface.
	_, _, ok := m.Match([]string{"a.b.Custom"}, "(Landroid/view/View;)V")
	assert.False(t, ok)

	_, _, ok = m.Match(nil, "(Landroid/view/View;)V")
	assert.False(t, ok)
}

func TestMarkerInterfacesNeverMatch(t *testing.T) {
	m := NewMatcher()

	_, _, ok := m.Match([]string{"java.io.Serializable"}, "()V")
	assert.False(t, ok)
	assert.True(t, m.Known([]string{"java.io.Serializable"}))
}

func TestDescriptorMustBeExact(t *testing.T) {
	m := NewMatcher()

	_, _, ok := m.Match([]string{"java.util.Comparator"}, "(Ljava/lang/Object;)I")
	assert.False(t, ok)

	_, method, ok := m.Match([]string{"java.util.Comparator"}, "(Ljava/lang/Object;Ljava/lang/Object;)I")
	require.True(t, ok)
	assert.Equal(t, "compare", method)
}

func TestTableShape(t *testing.T) {
	m := NewMatcher()
	assert.Greater(t, m.InterfaceCount(), 30)
	assert.Greater(t, m.MethodCount(), 40)
}

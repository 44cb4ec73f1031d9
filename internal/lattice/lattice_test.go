package lattice

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fulmenhq/convguard/internal/lang"
)

var allKinds = []Kind{Unknown, String, Number, Boolean, Object, Null, Tainted}

func TestJoinTaintIsSticky(t *testing.T) {
	for _, l := range []lang.Language{lang.JavaScript, lang.PHP} {
		for _, k := range allKinds {
			assert.Equal(t, Tainted, Join(l, Tainted, k), "%s: join(tainted, %s)", l, k)
			assert.Equal(t, Tainted, Join(l, k, Tainted), "%s: join(%s, tainted)", l, k)
		}
	}
}

func TestJoinIdentityAndUnknown(t *testing.T) {
	for _, l := range []lang.Language{lang.JavaScript, lang.PHP} {
		for _, k := range allKinds {
			assert.Equal(t, k, Join(l, k, k))
			if k != Tainted {
				assert.Equal(t, Unknown, Join(l, Unknown, k))
			}
		}
	}
}

func TestJoinLanguageCoercion(t *testing.T) {
	assert.Equal(t, String, Join(lang.JavaScript, String, Number))
	assert.Equal(t, String, Join(lang.JavaScript, Number, Object))
	assert.Equal(t, Number, Join(lang.JavaScript, Boolean, Null))

	assert.Equal(t, Number, Join(lang.PHP, String, Number))
	assert.Equal(t, Number, Join(lang.PHP, Boolean, String))
	assert.Equal(t, Unknown, Join(lang.PHP, Object, Number))
}

func TestJoinIsCommutative(t *testing.T) {
	for _, l := range []lang.Language{lang.JavaScript, lang.PHP} {
		for _, a := range allKinds {
			for _, b := range allKinds {
				assert.Equal(t, Join(l, a, b), Join(l, b, a), "%s %s %s", l, a, b)
			}
		}
	}
}

func TestMerge(t *testing.T) {
	assert.Equal(t, Tainted, Merge(Number, Tainted))
	assert.Equal(t, Tainted, Merge(Tainted, Unknown))
	assert.Equal(t, String, Merge(String, String))
	assert.Equal(t, Unknown, Merge(String, Number))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "tainted-external", Tainted.String())
	assert.Equal(t, "unknown", Kind(42).String())
	assert.False(t, Unknown.Known())
	assert.True(t, Null.Known())
}

package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetDiff(t *testing.T) {
	tests := []struct {
		name     string
		declared Set
		observed Set
		creates  []string
		deletes  []string
	}{
		{
			name:     "disjoint",
			declared: NewSet("a", "b"),
			observed: NewSet("c"),
			creates:  []string{"a", "b"},
			deletes:  []string{"c"},
		},
		{
			name:     "overlapping",
			declared: NewSet("a", "b", "c"),
			observed: NewSet("b", "c", "d"),
			creates:  []string{"a"},
			deletes:  []string{"d"},
		},
		{
			name:     "identical yields nothing",
			declared: NewSet("a", "b"),
			observed: NewSet("a", "b"),
			creates:  []string{},
			deletes:  []string{},
		},
		{
			name:     "both empty",
			declared: NewSet(),
			observed: NewSet(),
			creates:  []string{},
			deletes:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ElementsMatch(t, tt.creates, tt.declared.Diff(tt.observed).Sorted())
			assert.ElementsMatch(t, tt.deletes, tt.observed.Diff(tt.declared).Sorted())
		})
	}
}

func TestSetUnion(t *testing.T) {
	got := NewSet("a", "b").Union(NewSet("b", "c"))
	assert.Equal(t, []string{"a", "b", "c"}, got.Sorted())
}

func TestSortedIsDeterministic(t *testing.T) {
	s := NewSet("z", "m", "a")
	assert.Equal(t, []string{"a", "m", "z"}, s.Sorted())
	assert.Equal(t, s.Sorted(), s.Sorted())
}

func TestCompositeKeyRoundTrip(t *testing.T) {
	key := CompositeKey("svc-a", "lkc-1")
	assert.Equal(t, "svc-a~lkc-1", key)

	saName, clusterID, err := SplitKey(key)
	assert.NoError(t, err)
	assert.Equal(t, "svc-a", saName)
	assert.Equal(t, "lkc-1", clusterID)
}

func TestSplitKeyMalformed(t *testing.T) {
	for _, malformed := range []string{"", "no-separator", "~lkc-1", "svc-a~"} {
		_, _, err := SplitKey(malformed)
		assert.Error(t, err, malformed)
	}
}

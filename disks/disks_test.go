package disks_test

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floppydump/floppydump/disks"
)

func TestGet__KnownSlug(t *testing.T) {
	geometry, err := disks.Get("525dd")
	require.NoError(t, err)
	assert.Equal(t, "5.25\" double density", geometry.Name)
	assert.Equal(t, 40, geometry.Cylinders)
	assert.Equal(t, 2, geometry.Heads)
}

func TestGet__UnknownSlug(t *testing.T) {
	_, err := disks.Get("hard-disk")
	assert.ErrorContains(t, err, "hard-disk")
}

// The embedded catalog has bare inch marks inside unquoted fields; the
// decoder has to keep them intact rather than choke on them at init.
func TestGet__InchMarksSurviveDecoding(t *testing.T) {
	expected := map[string]string{
		"35dd":  "3.5\" double density",
		"35hd":  "3.5\" high density",
		"525hd": "5.25\" high density",
		"8in":   "8\" standard",
	}
	for slug, name := range expected {
		geometry, err := disks.Get(slug)
		require.NoError(t, err)
		assert.Equal(t, name, geometry.Name)
	}
}

func TestList__OrderedBySlug(t *testing.T) {
	all := disks.List()
	require.NotEmpty(t, all)

	assert.True(t, sort.SliceIsSorted(all, func(i, j int) bool {
		return all[i].Slug < all[j].Slug
	}))

	slugs := make(map[string]bool, len(all))
	for _, geometry := range all {
		assert.NotZero(t, geometry.Cylinders, "geometry %q", geometry.Slug)
		assert.NotZero(t, geometry.Heads, "geometry %q", geometry.Slug)
		slugs[geometry.Slug] = true
	}
	assert.True(t, slugs["35hd"])
	assert.True(t, slugs["8in"])
}

package news

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestList_NewestFirst(t *testing.T) {
	all := List("")
	require.Len(t, all, 6)
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i].Published.After(all[i-1].Published))
	}
	assert.Equal(t, 1, all[0].ID)
}

func TestList_Category(t *testing.T) {
	got := List("eólica")
	require.Len(t, got, 1)
	assert.Equal(t, "Energía Eólica en Norte de Santander: Proyecto Piloto", got[0].Title)

	assert.Empty(t, List("nuclear"))
}

func TestGet(t *testing.T) {
	a, ok := Get(6)
	require.True(t, ok)
	assert.Equal(t, "Hidráulica", a.Category)

	_, ok = Get(0)
	assert.False(t, ok)
}

func TestCategories(t *testing.T) {
	assert.Equal(t,
		[]string{"Solar", "Eólica", "Eficiencia", "Biomasa", "Tecnología", "Hidráulica"},
		Categories())
}

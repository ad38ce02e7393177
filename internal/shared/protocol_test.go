package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRestaurantPatchApply(t *testing.T) {
	base := Restaurant{ID: "r1", Name: "Taco Hut", Cuisine: "mexican", HasTakeout: false}

	takeout := true
	got := RestaurantPatch{HasTakeout: &takeout}.Apply(base)
	assert.Equal(t, Restaurant{ID: "r1", Name: "Taco Hut", Cuisine: "mexican", HasTakeout: true}, got)

	name, cuisine := "Taco Palace", "tex-mex"
	got = RestaurantPatch{Name: &name, Cuisine: &cuisine}.Apply(base)
	assert.Equal(t, Restaurant{ID: "r1", Name: "Taco Palace", Cuisine: "tex-mex", HasTakeout: false}, got)

	assert.Equal(t, base, RestaurantPatch{}.Apply(base))
	assert.True(t, RestaurantPatch{}.Empty())
	assert.False(t, RestaurantPatch{Name: &name}.Empty())
}

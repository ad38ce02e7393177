package shared

type Restaurant struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	Cuisine    string `json:"cuisine" yaml:"cuisine"`
	HasTakeout bool   `json:"hasTakeout" yaml:"hasTakeout"`
}

// RestaurantPatch is a partial update. Nil fields are left untouched.
type RestaurantPatch struct {
	Name       *string `json:"name,omitempty"`
	Cuisine    *string `json:"cuisine,omitempty"`
	HasTakeout *bool   `json:"hasTakeout,omitempty"`
}

// Apply returns r with the fields present in p overwritten.
func (p RestaurantPatch) Apply(r Restaurant) Restaurant {
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.Cuisine != nil {
		r.Cuisine = *p.Cuisine
	}
	if p.HasTakeout != nil {
		r.HasTakeout = *p.HasTakeout
	}
	return r
}

func (p RestaurantPatch) Empty() bool {
	return p.Name == nil && p.Cuisine == nil && p.HasTakeout == nil
}

type ErrorResponse struct {
	Message string `json:"message"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

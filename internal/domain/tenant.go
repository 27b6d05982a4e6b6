package domain

import "time"

// Tenant is the academy organization. It is created exactly once, by the
// owner-setup transition, and is thereafter owned by the identity that
// created it.
type Tenant struct {
	ID        string
	Name      string
	Timezone  string
	Settings  map[string]string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewTenant creates an academy. An empty timezone defaults to UTC.
func NewTenant(id, name, timezone string, settings map[string]string) Tenant {
	if timezone == "" {
		timezone = "UTC"
	}
	now := time.Now().UTC()
	return Tenant{
		ID:        id,
		Name:      name,
		Timezone:  timezone,
		Settings:  settings,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

package model

// All lists every table migrated by init-db.
func All() []any {
	return []any{
		&Incident{},
		&IncidentFile{},
		&IncidentEvent{},
		&SystemParameter{},
		&CacheEntry{},
	}
}

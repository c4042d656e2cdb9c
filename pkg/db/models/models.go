package models

// All returns every persisted model, in dependency order, for AutoMigrate callers.
func All() []any {
	return []any{
		&Tenant{},
		&Subscription{},
		&User{},
	}
}

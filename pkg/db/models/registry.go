package models

// All returns every persisted model in dependency order, for AutoMigrate in
// sqlite-backed environments.
func All() []any {
	return []any{
		&User{},
		&Product{},
		&ProductVariant{},
		&Order{},
		&ReturnRequest{},
		&ReturnPolicy{},
		&OutboxEvent{},
		&OutboxDLQ{},
		&Notification{},
	}
}

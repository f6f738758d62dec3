package models

// All lists every persisted model, in dependency order, for AutoMigrate.
func All() []any {
	return []any{
		&Property{},
		&BillingPeriod{},
		&Fee{},
		&Payment{},
		&StatementImport{},
		&UnmatchedPayment{},
		&MatchAuditLog{},
	}
}

package types

func text(name string, nullable bool) ColumnDefinition {
	return ColumnDefinition{Name: name, Type: ColumnTypeText, Nullable: nullable, MaxLength: 150}
}

func number(name string, scale int32, def any) ColumnDefinition {
	return ColumnDefinition{Name: name, Type: ColumnTypeNumber, Scale: scale, Default: def}
}

func flag(name string) ColumnDefinition {
	return ColumnDefinition{Name: name, Type: ColumnTypeBoolean, Default: false}
}

func date(name string, nullable bool) ColumnDefinition {
	return ColumnDefinition{Name: name, Type: ColumnTypeDate, Nullable: nullable}
}

// plannedFlow is the column layout shared by debts, income and expenses.
func plannedFlow(dateColumn, settledColumn, linkedColumn string) []ColumnDefinition {
	return []ColumnDefinition{
		text("name", false),
		flag("recurring"),
		number("amount", 2, nil),
		{Name: "currency", Type: ColumnTypeText, MaxLength: 10, Default: "TRY"},
		number("installments_left", 0, 1),
		date(dateColumn, false),
		flag("accrues_interest"),
		flag(settledColumn),
		flag("standing_order"),
		text(linkedColumn, true),
	}
}

var schemas = map[RecordType]Schema{
	RecordTypeAsset: {
		Type: RecordTypeAsset,
		Columns: []ColumnDefinition{
			text("name", false),
			{Name: "kind", Type: ColumnTypeText, MaxLength: 150, Default: ""},
			{Name: "location", Type: ColumnTypeText, MaxLength: 150, Default: ""},
			date("purchased_at", false),
			number("purchase_price", 8, 0),
			number("quantity", 8, 0),
			number("current_price_usd", 8, 0),
			number("profit_loss", 8, 0),
			number("profit_loss_pct", 8, 0),
			number("min_sell_price_usd", 8, 0),
		},
	},
	RecordTypeDebt: {
		Type:    RecordTypeDebt,
		Columns: plannedFlow("due_date", "paid", "linked_income"),
	},
	RecordTypeIncome: {
		Type:    RecordTypeIncome,
		Columns: plannedFlow("collection_date", "received", "linked_expense"),
	},
	RecordTypeExpense: {
		Type:    RecordTypeExpense,
		Columns: plannedFlow("due_date", "paid", "linked_income"),
	},
}

// SchemaFor returns the declared schema of a record type.
func SchemaFor(rt RecordType) (Schema, bool) {
	s, ok := schemas[rt]
	return s, ok
}

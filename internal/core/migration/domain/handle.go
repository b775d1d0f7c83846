package domain

// TableHandle identifies a table in the database.
type TableHandle struct {
	TableName string
	Schema    string
}

// Qualified returns schema.table, or just the table name in the default schema.
func (h TableHandle) Qualified() string {
	if h.Schema == "" {
		return h.TableName
	}
	return h.Schema + "." + h.TableName
}

// ColumnHandle identifies a column in the database.
type ColumnHandle struct {
	Table      TableHandle
	ColumnName string
}

// String returns table.column.
func (h ColumnHandle) String() string {
	return h.Table.Qualified() + "." + h.ColumnName
}

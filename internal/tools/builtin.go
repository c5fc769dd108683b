package tools

import (
	"context"

	"kvdoc/internal/records"
)

func dbPath() Param {
	return Param{Name: "db_path", Type: String, Required: true, Help: "path of the store"}
}

func key(help string) Param {
	return Param{Name: "key", Type: String, Required: true, Help: help}
}

func column(help string) Param {
	return Param{Name: "column", Type: String, Required: true, Help: help}
}

// RegisterRecords registers one tool per record operation, backed by repo.
func (r *Registry) RegisterRecords(repo *records.Repository) {
	r.Register(Tool{
		Name: "search",
		Help: "search entries where a JSON field matches a value (10 per page)",
		Params: []Param{
			dbPath(),
			{Name: "field", Type: String, Required: true, Help: "JSON key to match"},
			{Name: "value", Type: Any, Required: true, Help: "desired value for the key"},
			{Name: "page", Type: Integer, Help: "1-indexed page number"},
		},
		Handler: func(ctx context.Context, a Args) (any, error) {
			return repo.Search(ctx, a.String("db_path"), a.String("field"), a.Raw("value"), a.Int("page", 1))
		},
	})

	r.Register(Tool{
		Name:   "get_row",
		Help:   "retrieve the JSON value for an exact key",
		Params: []Param{dbPath(), key("row identifier to fetch")},
		Handler: func(ctx context.Context, a Args) (any, error) {
			return repo.GetRow(ctx, a.String("db_path"), a.String("key"))
		},
	})

	r.Register(Tool{
		Name: "list_keys",
		Help: "list keys in order (200 per page)",
		Params: []Param{
			dbPath(),
			{Name: "page", Type: Integer, Help: "1-indexed page number"},
		},
		Handler: func(ctx context.Context, a Args) (any, error) {
			return repo.ListKeys(ctx, a.String("db_path"), a.Int("page", 1))
		},
	})

	r.Register(Tool{
		Name: "count",
		Help: "count records with a key prefix and a JSON column match",
		Params: []Param{
			dbPath(),
			{Name: "prefix", Type: String, Required: true, Help: "key prefix to scan"},
			column("JSON key to inspect"),
			{Name: "value", Type: Any, Required: true, Help: "desired value for the column"},
		},
		Handler: func(ctx context.Context, a Args) (any, error) {
			return repo.Count(ctx, a.String("db_path"), a.String("prefix"), a.String("column"), a.Raw("value"))
		},
	})

	r.Register(Tool{
		Name: "create_record",
		Help: "create a record unless the key exists",
		Params: []Param{
			dbPath(),
			key("key for the new record"),
			{Name: "value", Type: Object, Required: true, Help: "JSON object to store"},
		},
		Handler: func(ctx context.Context, a Args) (any, error) {
			return repo.CreateRecord(ctx, a.String("db_path"), a.String("key"), a.Raw("value"))
		},
	})

	r.Register(Tool{
		Name: "set_value",
		Help: "set a JSON column to a value",
		Params: []Param{
			dbPath(),
			key("row identifier to update"),
			column("JSON key to modify"),
			{Name: "value", Type: Any, Required: true, Help: "new value for the column"},
		},
		Handler: func(ctx context.Context, a Args) (any, error) {
			return repo.SetValue(ctx, a.String("db_path"), a.String("key"), a.String("column"), a.Raw("value"))
		},
	})

	r.Register(Tool{
		Name: "set_columns",
		Help: "update several JSON columns of a record",
		Params: []Param{
			dbPath(),
			key("row identifier to update"),
			{Name: "updates", Type: Object, Required: true, Help: "mapping of columns to new values"},
		},
		Handler: func(ctx context.Context, a Args) (any, error) {
			return repo.SetColumns(ctx, a.String("db_path"), a.String("key"), a.Raw("updates"))
		},
	})

	r.Register(Tool{
		Name: "next_pending",
		Help: "return the next row whose column equals 1",
		Params: []Param{
			dbPath(),
			column("JSON key to check for the value 1"),
			{Name: "after_key", Type: String, Help: "start scanning after this key"},
		},
		Handler: func(ctx context.Context, a Args) (any, error) {
			return repo.NextPending(ctx, a.String("db_path"), a.String("column"), a.String("after_key"))
		},
	})

	r.Register(Tool{
		Name:   "delete_record",
		Help:   "delete a record",
		Params: []Param{dbPath(), key("row identifier to delete")},
		Handler: func(ctx context.Context, a Args) (any, error) {
			return repo.DeleteRecord(ctx, a.String("db_path"), a.String("key"))
		},
	})

	r.Register(Tool{
		Name: "bulk_insert",
		Help: "insert many records, skipping keys that exist",
		Params: []Param{
			dbPath(),
			{Name: "records", Type: Object, Required: true, Help: "mapping of keys to JSON objects"},
		},
		Handler: func(ctx context.Context, a Args) (any, error) {
			recs, err := a.Members("records")
			if err != nil {
				return nil, err
			}
			return repo.BulkInsert(ctx, a.String("db_path"), recs)
		},
	})

	r.Register(Tool{
		Name: "increment_field",
		Help: "add to a numeric column, starting from 0 when absent",
		Params: []Param{
			dbPath(),
			key("row identifier to update"),
			column("JSON key to increment"),
			{Name: "amount", Type: Number, Help: "amount to add (default 1)"},
		},
		Handler: func(ctx context.Context, a Args) (any, error) {
			return repo.IncrementField(ctx, a.String("db_path"), a.String("key"), a.String("column"), a.Number("amount"))
		},
	})

	r.Register(Tool{
		Name: "scan_range",
		Help: "list keys between two keys, inclusive",
		Params: []Param{
			dbPath(),
			{Name: "start_key", Type: String, Required: true, Help: "first key of the range"},
			{Name: "end_key", Type: String, Required: true, Help: "last key of the range"},
			{Name: "include_values", Type: Boolean, Help: "return decoded documents with the keys"},
		},
		Handler: func(ctx context.Context, a Args) (any, error) {
			return repo.ScanRange(ctx, a.String("db_path"), a.String("start_key"), a.String("end_key"), a.Bool("include_values", false))
		},
	})

	r.Register(Tool{
		Name: "backup_database",
		Help: "copy every record into another store",
		Params: []Param{
			dbPath(),
			{Name: "backup_path", Type: String, Required: true, Help: "path of the destination store"},
		},
		Handler: func(ctx context.Context, a Args) (any, error) {
			return repo.Backup(ctx, a.String("db_path"), a.String("backup_path"))
		},
	})
}

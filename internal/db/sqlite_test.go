package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tordrt/dbmlsqlite/internal/ddl"
	"github.com/tordrt/dbmlsqlite/internal/schema"
)

func shopSchema() *schema.Schema {
	s := &schema.Schema{
		Enums: []schema.Enum{{Name: "order_status", Items: []schema.EnumItem{{Name: "new"}, {Name: "it's shipped"}}}},
	}
	s.Tables = []schema.Table{
		{
			Name: "users",
			Columns: []schema.Column{
				{Name: "id", Type: schema.Primitive("integer"), PrimaryKey: true},
				{Name: "email", Type: schema.Primitive("varchar(255)"), NotNull: true, Unique: true},
			},
			Indexes: []schema.Index{{Name: "users_email", Columns: []string{"email"}}},
		},
		{
			Name: "orders",
			Columns: []schema.Column{
				{Name: "id", Type: schema.Primitive("integer"), PrimaryKey: true},
				{Name: "user_id", Type: schema.Primitive("integer")},
				{Name: "status", Type: schema.EnumRef(&s.Enums[0])},
			},
			References: []schema.Reference{
				{SourceColumns: []string{"user_id"}, TargetTable: "users", TargetColumns: []string{"id"}, OnDelete: "cascade"},
			},
			Indexes: []schema.Index{{Columns: []string{"user_id", "status"}}},
		},
		{
			Name: "order_items",
			Columns: []schema.Column{
				{Name: "order_id", Type: schema.Primitive("integer")},
				{Name: "line", Type: schema.Primitive("int")},
				{Name: "qty", Type: schema.Primitive("int"), NotNull: true, Default: ptr("1")},
			},
			PrimaryKey: []string{"order_id", "line"},
		},
	}
	return s
}

func ptr(s string) *string { return &s }

func openTestDB(t *testing.T) *SQLiteClient {
	t.Helper()

	client, err := NewSQLiteClient(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open SQLite: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestExecScriptFullRoundTrip(t *testing.T) {
	ctx := context.Background()
	client := openTestDB(t)

	opts := ddl.Options{TableIfNotExists: true, IndexIfNotExists: true, Namer: ddl.NewSequenceNamer("ix")}
	script, err := ddl.Compile(shopSchema(), opts)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	// guarded output can be applied twice
	for i := 0; i < 2; i++ {
		if err := client.ExecScript(ctx, script); err != nil {
			t.Fatalf("ExecScript() run %d error = %v\n%s", i+1, err, script)
		}
	}

	var rows int
	if err := client.GetDB().QueryRowContext(ctx, "SELECT count(*) FROM order_status").Scan(&rows); err != nil {
		t.Fatalf("Failed to count enum rows: %v", err)
	}
	if rows != 2 {
		t.Errorf("order_status has %d rows, want 2", rows)
	}

	s, err := NewSQLiteExtractor(client).ExtractSchema(ctx, nil)
	if err != nil {
		t.Fatalf("ExtractSchema() error = %v", err)
	}

	if diff := cmp.Diff([]string{"users", "orders", "order_items"}, s.TableNames()); diff != "" {
		t.Errorf("table names mismatch (-want +got):\n%s", diff)
	}
	if len(s.Enums) != 1 || s.Enums[0].Name != "order_status" {
		t.Fatalf("enums = %+v, want order_status", s.Enums)
	}
	if diff := cmp.Diff([]string{"new", "it's shipped"}, s.Enums[0].ItemNames()); diff != "" {
		t.Errorf("enum items mismatch (-want +got):\n%s", diff)
	}

	status := s.Table("orders").Column("status")
	if status.Type.Kind != schema.TypeEnum {
		t.Errorf("orders.status type = %+v, want enum", status.Type)
	}
	if !s.Table("users").Column("email").Unique {
		t.Error("users.email should be unique")
	}
	if diff := cmp.Diff([]string{"order_id", "line"}, s.Table("order_items").PrimaryKey); diff != "" {
		t.Errorf("composite key mismatch (-want +got):\n%s", diff)
	}

	// compiling what was read back reproduces the script
	again, err := ddl.Compile(s, opts)
	if err != nil {
		t.Fatalf("Compile() of extracted schema error = %v", err)
	}
	if diff := cmp.Diff(script, again); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestExecScriptHalfEmulation(t *testing.T) {
	ctx := context.Background()
	client := openTestDB(t)

	script, err := ddl.Compile(shopSchema(), ddl.Options{Emulation: ddl.EmulationHalf})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if err := client.ExecScript(ctx, script); err != nil {
		t.Fatalf("ExecScript() error = %v\n%s", err, script)
	}

	s, err := NewSQLiteExtractor(client).ExtractSchema(ctx, nil)
	if err != nil {
		t.Fatalf("ExtractSchema() error = %v", err)
	}
	if diff := cmp.Diff([]string{"users", "orders", "order_items"}, s.TableNames()); diff != "" {
		t.Errorf("table names mismatch (-want +got):\n%s", diff)
	}
	if len(s.Enums) != 0 {
		t.Errorf("half emulation should not create lookup tables, got %+v", s.Enums)
	}

	if _, err := client.GetDB().ExecContext(ctx, "INSERT INTO users (id, email) VALUES (1, 'a@example.com')"); err != nil {
		t.Fatalf("Failed to insert user: %v", err)
	}
	_, err = client.GetDB().ExecContext(ctx, "INSERT INTO orders (id, user_id, status) VALUES (1, 1, 'lost')")
	if err == nil {
		t.Error("CHECK constraint accepted a value outside the enum")
	}
	if _, err := client.GetDB().ExecContext(ctx, "INSERT INTO orders (id, user_id, status) VALUES (2, 1, 'new')"); err != nil {
		t.Errorf("insert of an enum value failed: %v", err)
	}
}

func TestExecScriptRollsBack(t *testing.T) {
	ctx := context.Background()
	client := openTestDB(t)

	script := "CREATE TABLE a (x INTEGER);\nCREATE TABLE a (x INTEGER);\n"
	if err := client.ExecScript(ctx, script); err == nil {
		t.Fatal("ExecScript() succeeded on a duplicate table")
	}

	s, err := NewSQLiteExtractor(client).ExtractSchema(ctx, nil)
	if err != nil {
		t.Fatalf("ExtractSchema() error = %v", err)
	}
	if len(s.Tables) != 0 {
		t.Errorf("failed script left tables behind: %v", s.TableNames())
	}
}

func TestSQLiteExtractRequestedTables(t *testing.T) {
	ctx := context.Background()
	client := openTestDB(t)

	script, err := ddl.Compile(shopSchema(), ddl.Options{Namer: ddl.NewSequenceNamer("ix")})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if err := client.ExecScript(ctx, script); err != nil {
		t.Fatalf("ExecScript() error = %v", err)
	}

	s, err := NewSQLiteExtractor(client).ExtractSchema(ctx, []string{"orders"})
	if err != nil {
		t.Fatalf("ExtractSchema() error = %v", err)
	}
	if diff := cmp.Diff([]string{"orders"}, s.TableNames()); diff != "" {
		t.Errorf("table names mismatch (-want +got):\n%s", diff)
	}
	// the lookup table is found through the reference even when not requested
	if len(s.Enums) != 1 {
		t.Errorf("enums = %+v, want order_status", s.Enums)
	}

	want := []schema.Reference{
		{SourceColumns: []string{"user_id"}, TargetTable: "users", TargetColumns: []string{"id"}, OnDelete: "CASCADE"},
	}
	if diff := cmp.Diff(want, s.Table("orders").References); diff != "" {
		t.Errorf("references mismatch (-want +got):\n%s", diff)
	}

	if _, err := NewSQLiteExtractor(client).ExtractSchema(ctx, []string{"missing"}); err == nil {
		t.Error("ExtractSchema() of a missing table should fail")
	}
}

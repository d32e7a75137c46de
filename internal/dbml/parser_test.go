package dbml

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tordrt/dbmlsqlite/internal/schema"
)

const shopDBML = `
Project shop {
  database_type: 'SQLite'
  Note: 'demo'
}

// order lifecycle
Enum order_status {
  new
  "in transit" [note: 'on the road']
  delivered
}

Table users as U {
  id integer [pk, increment]
  email varchar(255) [not null, unique, note: 'login']
  balance decimal(10,2) [default: 0.5]
  nickname text [default: 'it\'s', null]
  created_at timestamp [default: ` + "`now()`" + `]
  Note: 'registered users'
}

Table orders {
  id integer [primary key]
  user_id integer [ref: > U.id]
  status order_status [not null]
  total real [default: -1]

  indexes {
    user_id
    (user_id, status) [unique, name: 'orders_user_status']
    ` + "`lower(status)`" + ` [type: btree]
  }
}

Table order_items {
  order_id integer
  line integer
  sku varchar(32)

  indexes {
    (order_id, line) [pk]
  }
}

Ref fk_items: order_items.order_id > orders.id [delete: cascade, update: no action]

Ref {
  orders.id < order_items.order_id
}

TableGroup commerce {
  users
  orders
}
`

func TestParseShop(t *testing.T) {
	s, err := Parse("shop.dbml", []byte(shopDBML))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if s.Name != "shop.dbml" {
		t.Errorf("Name = %q, want shop.dbml", s.Name)
	}
	if diff := cmp.Diff([]string{"users", "orders", "order_items"}, s.TableNames()); diff != "" {
		t.Errorf("table names mismatch (-want +got):\n%s", diff)
	}

	if len(s.Enums) != 1 {
		t.Fatalf("got %d enums, want 1", len(s.Enums))
	}
	if diff := cmp.Diff([]string{"new", "in transit", "delivered"}, s.Enums[0].ItemNames()); diff != "" {
		t.Errorf("enum items mismatch (-want +got):\n%s", diff)
	}
	if got := s.Enums[0].Items[1].Note; got != "on the road" {
		t.Errorf("enum item note = %q", got)
	}

	users := s.Table("users")
	if users.Note != "registered users" {
		t.Errorf("users note = %q", users.Note)
	}
	id := users.Column("id")
	if !id.PrimaryKey || !id.Increment || id.Type.Name != "integer" {
		t.Errorf("users.id = %+v", id)
	}
	email := users.Column("email")
	if !email.NotNull || !email.Unique || email.Type.Name != "varchar(255)" || email.Note != "login" {
		t.Errorf("users.email = %+v", email)
	}
	if got := users.Column("balance").Type.Name; got != "decimal(10,2)" {
		t.Errorf("balance type = %q", got)
	}

	defaults := map[string]string{"balance": "0.5", "nickname": "it's", "created_at": "now()"}
	for col, want := range defaults {
		d := users.Column(col).Default
		if d == nil || *d != want {
			t.Errorf("default of %s = %v, want %q", col, d, want)
		}
	}
	if users.Column("nickname").NotNull {
		t.Error("nickname should be nullable")
	}

	orders := s.Table("orders")
	if !orders.Column("id").PrimaryKey {
		t.Error("orders.id should be a primary key")
	}
	status := orders.Column("status")
	if status.Type.Kind != schema.TypeEnum || status.Type.Enum != &s.Enums[0] {
		t.Errorf("orders.status type = %+v, want enum order_status", status.Type)
	}
	if d := orders.Column("total").Default; d == nil || *d != "-1" {
		t.Errorf("orders.total default = %v", d)
	}

	wantIndexes := []schema.Index{
		{Columns: []string{"user_id"}},
		{Name: "orders_user_status", Columns: []string{"user_id", "status"}, Unique: true},
		{Columns: []string{"`lower(status)`"}, Type: "btree"},
	}
	if diff := cmp.Diff(wantIndexes, orders.Indexes); diff != "" {
		t.Errorf("orders indexes mismatch (-want +got):\n%s", diff)
	}
	wantOrderRefs := []schema.Reference{
		{SourceColumns: []string{"user_id"}, TargetTable: "users", TargetColumns: []string{"id"}},
	}
	if diff := cmp.Diff(wantOrderRefs, orders.References); diff != "" {
		t.Errorf("orders references mismatch (-want +got):\n%s", diff)
	}

	items := s.Table("order_items")
	if diff := cmp.Diff([]string{"order_id", "line"}, items.PrimaryKey); diff != "" {
		t.Errorf("composite key mismatch (-want +got):\n%s", diff)
	}
	if len(items.Indexes) != 0 {
		t.Errorf("pk index should not be kept as an index: %+v", items.Indexes)
	}
	wantItemRefs := []schema.Reference{
		{
			Name:          "fk_items",
			SourceColumns: []string{"order_id"},
			TargetTable:   "orders",
			TargetColumns: []string{"id"},
			OnUpdate:      "no action",
			OnDelete:      "cascade",
		},
		{SourceColumns: []string{"order_id"}, TargetTable: "orders", TargetColumns: []string{"id"}},
	}
	if diff := cmp.Diff(wantItemRefs, items.References); diff != "" {
		t.Errorf("order_items references mismatch (-want +got):\n%s", diff)
	}
}

func TestParseSingleColumnPkIndex(t *testing.T) {
	src := `Table t {
  code text
  indexes {
    code [pk]
  }
}`
	s, err := Parse("t.dbml", []byte(src))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	tbl := s.Table("t")
	if !tbl.Column("code").PrimaryKey {
		t.Error("code should be marked primary key")
	}
	if tbl.PrimaryKey != nil || len(tbl.Indexes) != 0 {
		t.Errorf("unexpected table key/indexes: %+v / %+v", tbl.PrimaryKey, tbl.Indexes)
	}
}

func TestParseReferenceForms(t *testing.T) {
	src := `
Table a {
  id int
  x int
  y int
}
Table b {
  id int
  ax int
  ay int
}
Ref: public.b.(ax, ay) > public.a.(x, y)
Ref: a.id - b.id
Ref: a.id <> b.id
`
	s, err := Parse("refs.dbml", []byte(src))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	want := []schema.Reference{
		{SourceColumns: []string{"ax", "ay"}, TargetTable: "a", TargetColumns: []string{"x", "y"}},
	}
	if diff := cmp.Diff(want, s.Table("b").References); diff != "" {
		t.Errorf("b references mismatch (-want +got):\n%s", diff)
	}

	want = []schema.Reference{
		{SourceColumns: []string{"id"}, TargetTable: "b", TargetColumns: []string{"id"}},
	}
	if diff := cmp.Diff(want, s.Table("a").References); diff != "" {
		t.Errorf("a references mismatch (-want +got):\n%s", diff)
	}
}

func TestParseKeywordsCaseInsensitive(t *testing.T) {
	src := `TABLE T { ID INT [PK, NOT NULL] }
enum E { A }`
	s, err := Parse("upper.dbml", []byte(src))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	col := s.Table("T").Column("ID")
	if !col.PrimaryKey || !col.NotNull {
		t.Errorf("ID = %+v", col)
	}
	if s.Enum("E") == nil {
		t.Error("enum E missing")
	}
}

func TestParseSchemaQualifiedNames(t *testing.T) {
	src := `Enum core.kind { a b }
Table core.things {
  k core.kind
  "weird name" "character varying"
  tags text[]
}`
	s, err := Parse("q.dbml", []byte(src))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	tbl := s.Table("things")
	if tbl == nil {
		t.Fatal("table things missing")
	}
	if tbl.Column("k").Type.Kind != schema.TypeEnum {
		t.Errorf("k should resolve to enum, got %+v", tbl.Column("k").Type)
	}
	if got := tbl.Column("weird name").Type.Name; got != "character varying" {
		t.Errorf("weird name type = %q", got)
	}
	if got := tbl.Column("tags").Type.Name; got != "text[]" {
		t.Errorf("tags type = %q", got)
	}
}

func TestParseEmpty(t *testing.T) {
	s, err := Parse("empty.dbml", []byte("  // nothing here\n/* at all */\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(s.Tables) != 0 || len(s.Enums) != 0 {
		t.Errorf("expected empty schema, got %+v", s)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantMsg string
	}{
		{"unknown keyword", "View v { }", "unexpected identifier \"View\""},
		{"unterminated table", "Table t { id int", "unterminated table t"},
		{"unterminated string", "Table t { id int [note: 'oops] }", "unterminated ' literal"},
		{"unterminated comment", "/* forever", "unterminated block comment"},
		{"bad ref operator", "Table t { id int }\nRef: t.id = t.id", "expected relationship operator"},
		{"ref from unknown table", "Table t { id int }\nRef: ghost.id > t.id", "undefined table ghost"},
		{"duplicate table", "Table t { id int }\nTable t { id int }", "already defined"},
		{"endpoint without column", "Table t { id int }\nRef: t > t.id", "needs table.column"},
		{"column and index primary key", "Table t {\n  a int [pk]\n  b int\n  indexes {\n    (a, b) [pk]\n  }\n}", "more than one primary key"},
		{"two index primary keys", "Table t {\n  a int\n  b int\n  indexes {\n    (a, b) [pk]\n    a [pk]\n  }\n}", "more than one primary key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("bad.dbml", []byte(tt.src))
			if !errors.Is(err, ErrSyntax) {
				t.Fatalf("Parse() error = %v, want ErrSyntax", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Parse() error = %q, want it to contain %q", err, tt.wantMsg)
			}
			if !strings.Contains(err.Error(), "bad.dbml:") {
				t.Errorf("Parse() error = %q, missing source position", err)
			}
		})
	}
}

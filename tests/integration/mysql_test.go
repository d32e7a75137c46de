//go:build integration
// +build integration

package integration

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/tordrt/dbmlsqlite"
	"github.com/tordrt/dbmlsqlite/internal/db"
)

var mysqlFixture = []string{
	"DROP TABLE IF EXISTS order_items, orders, products, users",
	`CREATE TABLE users (
		id INT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		username VARCHAR(50) NOT NULL UNIQUE,
		email VARCHAR(255) NOT NULL,
		status ENUM('active', 'inactive', 'banned') NOT NULL DEFAULT 'active',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE products (
		id INT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		category VARCHAR(40),
		price DECIMAL(10, 2) NOT NULL,
		INDEX idx_category (category)
	)`,
	`CREATE TABLE orders (
		id INT AUTO_INCREMENT PRIMARY KEY,
		user_id INT UNSIGNED NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE order_items (
		order_id INT,
		product_id INT,
		quantity INT NOT NULL DEFAULT 1,
		PRIMARY KEY (order_id, product_id),
		FOREIGN KEY (order_id) REFERENCES orders(id),
		FOREIGN KEY (product_id) REFERENCES products(id)
	)`,
}

// mysqlURL returns the test DSN and loads the fixture into it
func mysqlURL(ctx context.Context, t *testing.T) string {
	t.Helper()

	connString := os.Getenv("MYSQL_TEST_URL")
	if connString == "" {
		t.Skip("MYSQL_TEST_URL not set")
	}

	client, err := db.NewMySQLClient(ctx, connString)
	if err != nil {
		t.Fatalf("Failed to connect to MySQL: %v", err)
	}
	defer client.Close()

	for _, stmt := range mysqlFixture {
		if _, err := client.GetDB().ExecContext(ctx, stmt); err != nil {
			t.Fatalf("Failed to load fixture: %v\n%s", err, stmt)
		}
	}
	return "mysql://" + connString
}

func TestMySQLImport(t *testing.T) {
	ctx := context.Background()
	url := mysqlURL(ctx, t)

	s, err := dbmlsqlite.ImportSchema(ctx, url, nil)
	if err != nil {
		t.Fatalf("Failed to extract schema: %v", err)
	}

	verifyTablesExist(t, s, []string{"users", "products", "orders", "order_items"})

	users := findTable(t, s, "users")
	verifyPrimaryKey(t, users, []string{"id"})
	verifyColumns(t, users, []string{"id", "username", "email", "status", "created_at"})
	verifyUniqueConstraint(t, s, "users", "username")
	verifyEnumValues(t, s, "users", "status", []string{"active", "inactive", "banned"})

	verifyPrimaryKey(t, findTable(t, s, "order_items"), []string{"order_id", "product_id"})
	verifyIndex(t, s, "products", "idx_category", []string{"category"})
	if ref := verifyForeignKey(t, s, "orders", "user_id", "users"); ref != nil && ref.OnDelete != "CASCADE" {
		t.Errorf("Expected ON DELETE CASCADE, got %q", ref.OnDelete)
	}

	script, back := compileIntoSQLite(t, s, nil)
	if !strings.Contains(script, "CREATE TABLE users_status (") {
		t.Errorf("Expected a lookup table for users.status:\n%s", script)
	}
	verifyTablesExist(t, back, []string{"users", "products", "orders", "order_items"})
	verifyEnumValues(t, back, "users", "status", []string{"active", "inactive", "banned"})
}

func TestMySQLImportSpecificTables(t *testing.T) {
	ctx := context.Background()
	url := mysqlURL(ctx, t)

	s, err := dbmlsqlite.ImportSchema(ctx, url, &dbmlsqlite.ImportOptions{Tables: []string{"users", "products"}})
	if err != nil {
		t.Fatalf("Failed to extract schema: %v", err)
	}
	verifyTablesExist(t, s, []string{"users", "products"})
}

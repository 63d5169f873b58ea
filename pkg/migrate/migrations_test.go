package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/regpay-backend/pkg/migrate"
)

func TestPaymentTransactionsMigrationContainsSchema(t *testing.T) {
	content := readMigration(t, "*_create_payment_transactions.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS payment_transactions",
		"order_id TEXT PRIMARY KEY",
		"CHECK (amount > 0)",
		"collection_name TEXT NOT NULL DEFAULT 'registrations'",
		"gateway_response JSONB",
		"DROP TABLE IF EXISTS payment_transactions",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestRegistrationCollectionsMigrationCoversEveryCollection(t *testing.T) {
	content := readMigration(t, "*_create_registration_collections.sql")

	for _, table := range []string{"registrations", "reregistrations", "updatecertificates", "printcertificates", "cancelregistrations"} {
		if !strings.Contains(content, "CREATE TABLE IF NOT EXISTS "+table+" (") {
			t.Errorf("missing create for %s", table)
		}
		if !strings.Contains(content, "DROP TABLE IF EXISTS "+table+";") {
			t.Errorf("missing drop for %s", table)
		}
	}
	if !strings.Contains(content, "webhook_confirmed BOOLEAN NOT NULL DEFAULT false") {
		t.Errorf("missing webhook_confirmed column")
	}
}

func TestMigrationsDirValidates(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("expected migrations to validate: %v", err)
	}
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Refund Columns!")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_refund_columns.sql") {
		t.Fatalf("unexpected migration path %s", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("created migration should validate: %v", err)
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration file found for %s", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

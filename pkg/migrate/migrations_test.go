package migrate_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/returns-engine/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no %s migration file found", suffix)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestMigrationsDirIsValid(t *testing.T) {
	require.NoError(t, migrate.ValidateDir("migrations"))
}

func TestOrdersMigrationTracksReturnBackReference(t *testing.T) {
	content := readMigration(t, "create_orders")
	checks := []string{
		"CREATE TABLE IF NOT EXISTS orders",
		"canceled_by_return_request_id uuid",
		"return_status text NOT NULL DEFAULT 'NONE'",
		"CONSTRAINT orders_payment_intent_id_key UNIQUE (payment_intent_id)",
		"DROP TABLE IF EXISTS orders",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestReturnRequestsMigrationConstraints(t *testing.T) {
	content := readMigration(t, "create_return_requests")
	checks := []string{
		"CREATE TABLE IF NOT EXISTS return_requests",
		"CHECK (status IN ('PENDING', 'APPROVED', 'REJECTED', 'COMPLETED'))",
		"CHECK (type <> 'EXCHANGE' OR exchange_to_product_id IS NOT NULL)",
		"FOREIGN KEY (canceled_by_return_request_id) REFERENCES return_requests(id)",
		"DROP TABLE IF EXISTS return_requests",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestProductsMigrationGuardsStock(t *testing.T) {
	content := readMigration(t, "create_products")
	for _, sub := range []string{
		"FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE",
		"CHECK (stock >= 0)",
		"CHECK (in_stock >= 0)",
	} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "  Add Return Notes! ")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "_add_return_notes.sql"), path)
	require.NoError(t, migrate.ValidateDir(dir), "scaffold must lint clean")

	_, err = migrate.CreateSQLMigration(dir, "!!!")
	assert.Error(t, err)
}

func TestEmbeddedSetMatchesDisk(t *testing.T) {
	embedded, err := fs.Glob(migrate.Embedded(), "*.sql")
	require.NoError(t, err)
	onDisk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	require.NoError(t, err)
	for i := range onDisk {
		onDisk[i] = filepath.Base(onDisk[i])
	}
	assert.ElementsMatch(t, onDisk, embedded)
}

func TestValidateRejectsBrokenFiles(t *testing.T) {
	good := "-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose StatementEnd\n-- +goose Down\nSELECT 1;\n"
	cases := map[string]fstest.MapFS{
		"no files":       {},
		"bad name":       {"20260101000000_Bad-Name.sql": {Data: []byte(good)}},
		"not a time":     {"20261399000000_x.sql": {Data: []byte(good)}},
		"missing down":   {"20260101000000_x.sql": {Data: []byte("-- +goose Up\nSELECT 1;\n")}},
		"down before up": {"20260101000000_x.sql": {Data: []byte("-- +goose Down\n-- +goose Up\n")}},
		"unterminated":   {"20260101000000_x.sql": {Data: []byte("-- +goose Up\n-- +goose StatementBegin\n-- +goose Down\n")}},
		"stray end":      {"20260101000000_x.sql": {Data: []byte("-- +goose Up\n-- +goose StatementEnd\n-- +goose Down\n")}},
		"duplicate version": {
			"20260101000000_a.sql": {Data: []byte(good)},
			"20260101000000_b.sql": {Data: []byte(good)},
		},
	}
	for name, source := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, migrate.Validate(source))
		})
	}

	assert.NoError(t, migrate.Validate(fstest.MapFS{"20260101000000_ok.sql": {Data: []byte(good)}}))
}

func TestSourcePrefersEmbeddedCopy(t *testing.T) {
	source, err := migrate.Source(migrate.DefaultDir)
	require.NoError(t, err)
	assert.NoError(t, migrate.Validate(source))

	_, err = migrate.Source(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

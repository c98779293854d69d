package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/velmora/retail-admin-backend/pkg/migrate"
)

func TestMigrationDirValidates(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}

func TestUnitPriceMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_price_tables.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS unit_prices",
		"FOREIGN KEY (product_unit_id) REFERENCES product_units(id) ON DELETE CASCADE",
		"FOREIGN KEY (price_header_id) REFERENCES price_headers(id) ON DELETE CASCADE",
		"CHECK (price_cents > 0)",
		"idx_unit_prices_unit_start",
		"DROP TABLE IF EXISTS unit_prices",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestPromotionMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_promotion_tables.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS promotion_lines",
		"CHECK (target_type IN ('product', 'category'))",
		"CHECK (type IN ('discount_percent', 'discount_amount', 'buy_x_get_y'))",
		"promotion_line_id UUID NOT NULL UNIQUE",
		"idx_promotion_lines_target_start",
		"DROP TABLE IF EXISTS promotion_details",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %q found", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

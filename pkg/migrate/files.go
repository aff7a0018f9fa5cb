package migrate

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

const versionLayout = "20060102150405"

var (
	fileNameRe  = regexp.MustCompile(`^(\d{14})_([a-z0-9]+(?:_[a-z0-9]+)*)\.sql$`)
	slugCleanRe = regexp.MustCompile(`[^a-z0-9]+`)

	now = time.Now
)

const scaffold = `-- +goose Up
-- +goose StatementBegin
-- %[1]s
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- undo %[1]s
-- +goose StatementEnd
`

// CreateSQLMigration writes <dir>/<UTC timestamp>_<slug>.sql with empty Up
// and Down sections and returns its path.
func CreateSQLMigration(dir, name string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("dir is required")
	}
	slug := strings.Trim(slugCleanRe.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if slug == "" {
		return "", fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %q: %w", dir, err)
	}

	path := filepath.Join(dir, now().UTC().Format(versionLayout)+"_"+slug+".sql")
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %q: %w", path, err)
	}
	if _, err := fmt.Fprintf(file, scaffold, slug); err != nil {
		_ = file.Close()
		return "", fmt.Errorf("write %q: %w", path, err)
	}
	return path, file.Close()
}

// ValidateDir lints the migrations in a directory on disk.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	return Validate(os.DirFS(dir))
}

// Validate checks every .sql file at the root of source: the name must be
// <14 digit version>_<snake_case>.sql, versions must be unique, and the body
// needs Up and Down sections with balanced StatementBegin/End markers.
func Validate(source fs.FS) error {
	names, err := fs.Glob(source, "*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	if len(names) == 0 {
		return fmt.Errorf("no migrations found")
	}
	sort.Strings(names)

	versions := make(map[string]string, len(names))
	for _, name := range names {
		m := fileNameRe.FindStringSubmatch(name)
		if m == nil {
			return fmt.Errorf("invalid migration filename %q (expected %s_name.sql)", name, versionLayout)
		}
		if _, err := time.Parse(versionLayout, m[1]); err != nil {
			return fmt.Errorf("migration %q: version is not a timestamp", name)
		}
		if prev, dup := versions[m[1]]; dup {
			return fmt.Errorf("duplicate migration version %s in %q and %q", m[1], prev, name)
		}
		versions[m[1]] = name

		body, err := fs.ReadFile(source, name)
		if err != nil {
			return fmt.Errorf("read %q: %w", name, err)
		}
		if err := lintBody(string(body)); err != nil {
			return fmt.Errorf("migration %q: %w", name, err)
		}
	}
	return nil
}

func lintBody(body string) error {
	up := strings.Index(body, "-- +goose Up")
	down := strings.Index(body, "-- +goose Down")
	switch {
	case up < 0:
		return fmt.Errorf(`missing "-- +goose Up"`)
	case down < 0:
		return fmt.Errorf(`missing "-- +goose Down"`)
	case down < up:
		return fmt.Errorf("down section precedes up section")
	}

	depth := 0
	for i, line := range strings.Split(body, "\n") {
		switch strings.TrimSpace(line) {
		case "-- +goose StatementBegin":
			depth++
			if depth > 1 {
				return fmt.Errorf("line %d: nested StatementBegin", i+1)
			}
		case "-- +goose StatementEnd":
			depth--
			if depth < 0 {
				return fmt.Errorf("line %d: StatementEnd without StatementBegin", i+1)
			}
		}
	}
	if depth != 0 {
		return fmt.Errorf("unterminated StatementBegin")
	}
	return nil
}

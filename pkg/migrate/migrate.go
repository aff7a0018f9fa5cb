package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/pressly/goose/v3"
)

// DefaultDir is where `returnsctl migrate create` writes new files. Running
// binaries read the copy embedded below.
const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Embedded returns the migrations compiled into the binary.
func Embedded() fs.FS {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Source resolves the migration set: the embedded copy for "" or DefaultDir,
// otherwise the directory on disk.
func Source(dir string) (fs.FS, error) {
	if dir == "" || dir == DefaultDir {
		return Embedded(), nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("migrations dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("migrations dir %q is not a directory", dir)
	}
	return os.DirFS(dir), nil
}

// Runner applies goose SQL migrations against Postgres.
type Runner struct {
	provider *goose.Provider
}

func NewRunner(db *sql.DB, source fs.FS) (*Runner, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	if source == nil {
		source = Embedded()
	}
	if err := Validate(source); err != nil {
		return nil, err
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, source)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return &Runner{provider: provider}, nil
}

// Applied is one migration the runner executed.
type Applied struct {
	Version   int64
	File      string
	Direction string
	Millis    int64
}

func (r *Runner) Up(ctx context.Context) ([]Applied, error) {
	results, err := r.provider.Up(ctx)
	return applied(results), wrap("up", err)
}

func (r *Runner) Down(ctx context.Context) ([]Applied, error) {
	result, err := r.provider.Down(ctx)
	if result == nil {
		return nil, wrap("down", err)
	}
	return applied([]*goose.MigrationResult{result}), wrap("down", err)
}

// To migrates up or down until the schema sits at version exactly.
func (r *Runner) To(ctx context.Context, version string) ([]Applied, error) {
	target, err := strconv.ParseInt(version, 10, 64)
	if err != nil || len(version) != len(versionLayout) {
		return nil, fmt.Errorf("invalid version %q (expected %s)", version, versionLayout)
	}
	current, err := r.provider.GetDBVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("read db version: %w", err)
	}
	switch {
	case current == target:
		return nil, nil
	case current < target:
		results, err := r.provider.UpTo(ctx, target)
		return applied(results), wrap("up-to", err)
	default:
		results, err := r.provider.DownTo(ctx, target)
		return applied(results), wrap("down-to", err)
	}
}

// Status lists every known migration with whether it has been applied.
func (r *Runner) Status(ctx context.Context) ([]*goose.MigrationStatus, error) {
	status, err := r.provider.Status(ctx)
	return status, wrap("status", err)
}

func (r *Runner) Close() error {
	return r.provider.Close()
}

func applied(results []*goose.MigrationResult) []Applied {
	out := make([]Applied, 0, len(results))
	for _, res := range results {
		if res == nil || res.Source == nil {
			continue
		}
		out = append(out, Applied{
			Version:   res.Source.Version,
			File:      res.Source.Path,
			Direction: res.Direction,
			Millis:    res.Duration.Milliseconds(),
		})
	}
	return out
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("goose %s: %w", op, err)
}

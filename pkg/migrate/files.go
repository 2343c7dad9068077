package migrate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

var (
	migrationFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)
	unsafeNameRe    = regexp.MustCompile(`[^a-z0-9]+`)
)

// dialectDirs lists the postgres root and the sqlite twin under base.
func dialectDirs(base string) []string {
	return []string{DirFor(base, "postgres"), DirFor(base, "sqlite")}
}

// CreateSQLMigration writes an empty goose migration with the same version
// into every dialect directory under base and returns the created paths.
func CreateSQLMigration(base, name string) ([]string, error) {
	if strings.TrimSpace(base) == "" {
		return nil, errors.New("migrations dir is required")
	}
	slug := strings.Trim(unsafeNameRe.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if slug == "" {
		return nil, fmt.Errorf("migration name %q has no usable characters", name)
	}
	filename := fmt.Sprintf("%s_%s.sql", time.Now().UTC().Format("20060102150405"), slug)

	var created []string
	for _, dir := range dialectDirs(base) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return created, fmt.Errorf("mkdir %s: %w", dir, err)
		}
		path := filepath.Join(dir, filename)
		body := fmt.Sprintf("-- +goose Up\n-- %s\n\n-- +goose Down\n-- revert %s\n", slug, slug)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil {
			return created, fmt.Errorf("create %s: %w", path, err)
		}
		_, werr := f.WriteString(body)
		if cerr := f.Close(); werr == nil {
			werr = cerr
		}
		if werr != nil {
			return created, fmt.Errorf("write %s: %w", path, werr)
		}
		created = append(created, path)
	}
	return created, nil
}

// ValidateDir checks every dialect directory under base: file names, unique
// versions, goose Up/Down sections, and that both dialects ship the same set.
func ValidateDir(base string) error {
	if strings.TrimSpace(base) == "" {
		return errors.New("migrations dir is required")
	}
	var reference []string
	for i, dir := range dialectDirs(base) {
		names, err := validateDialectDir(dir)
		if err != nil {
			return err
		}
		if i == 0 {
			reference = names
			continue
		}
		if missing := diff(reference, names); len(missing) > 0 {
			return fmt.Errorf("%s is missing twins for %s", dir, strings.Join(missing, ", "))
		}
		if extra := diff(names, reference); len(extra) > 0 {
			return fmt.Errorf("%s has migrations without a postgres twin: %s", dir, strings.Join(extra, ", "))
		}
	}
	return nil
}

func validateDialectDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}
	versions := map[string]string{}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		name := e.Name()
		m := migrationFileRe.FindStringSubmatch(name)
		if m == nil {
			return nil, fmt.Errorf("%s: invalid migration filename %q (want YYYYMMDDHHMMSS_name.sql)", dir, name)
		}
		if prev, ok := versions[m[1]]; ok {
			return nil, fmt.Errorf("%s: version %s used by %q and %q", dir, m[1], prev, name)
		}
		versions[m[1]] = name

		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		for _, marker := range []string{"-- +goose Up", "-- +goose Down"} {
			if !strings.Contains(string(raw), marker) {
				return nil, fmt.Errorf("%s: %q missing %q", dir, name, marker)
			}
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func diff(want, have []string) []string {
	seen := make(map[string]struct{}, len(have))
	for _, n := range have {
		seen[n] = struct{}{}
	}
	var out []string
	for _, n := range want {
		if _, ok := seen[n]; !ok {
			out = append(out, n)
		}
	}
	return out
}

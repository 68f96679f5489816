// Package db embeds the Postgres schema.
package db

import (
	"embed"
	"io/fs"
	"sort"
	"strings"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrations returns every migration script in filename order.
func Migrations() ([]string, error) {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, n := range names {
		b, err := migrations.ReadFile(n)
		if err != nil {
			return nil, err
		}
		out = append(out, string(b))
	}
	return out, nil
}

// Script returns all migrations joined into one script.
func Script() (string, error) {
	parts, err := Migrations()
	if err != nil {
		return "", err
	}
	return strings.Join(parts, "\n"), nil
}

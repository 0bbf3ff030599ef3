package postgres

import (
	"io"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog"

	"github.com/iho/tradeledger/migrations"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		t.Fatalf("open embedded migrations: %v", err)
	}
	defer src.Close()

	version, err := src.First()
	if err != nil {
		t.Fatalf("first migration: %v", err)
	}

	for {
		up, _, err := src.ReadUp(version)
		if err != nil {
			t.Fatalf("version %d has no up migration: %v", version, err)
		}
		body, _ := io.ReadAll(up)
		up.Close()
		if len(strings.TrimSpace(string(body))) == 0 {
			t.Errorf("version %d up migration is empty", version)
		}

		down, _, err := src.ReadDown(version)
		if err != nil {
			t.Fatalf("version %d has no down migration: %v", version, err)
		}
		down.Close()

		next, err := src.Next(version)
		if err != nil {
			break
		}
		version = next
	}
}

func TestMigratorUnreachableDatabase(t *testing.T) {
	m := NewMigrator("postgres://invalid:5432/db?connect_timeout=1", "", zerolog.Nop())
	if err := m.Up(); err == nil {
		t.Fatalf("expected error for unreachable database")
	}
}

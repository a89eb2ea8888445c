package persistence

import (
	"strings"
	"testing"

	"github.com/IliaW/listing-alert-worker/config"
	"github.com/go-sql-driver/mysql"
)

func TestDSN(t *testing.T) {
	got := dsn(&config.DatabaseConfig{Host: "db.local", Port: "3307", User: "worker", Password: "s3cr3t", Name: "listings"})

	parsed, err := mysql.ParseDSN(got)
	if err != nil {
		t.Fatalf("dsn %q does not parse: %v", got, err)
	}
	if parsed.Addr != "db.local:3307" || parsed.User != "worker" || parsed.Passwd != "s3cr3t" ||
		parsed.DBName != "listings" || !parsed.ParseTime {
		t.Fatalf("unexpected config from %q: %+v", got, parsed)
	}
	if !strings.HasPrefix(got, "worker:s3cr3t@tcp(") {
		t.Fatalf("unexpected dsn %q", got)
	}
}

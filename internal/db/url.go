package db

import (
	"fmt"
	"strings"
)

// Catalog kinds returned by ParseCatalogURL
const (
	KindPostgres = "postgres"
	KindMySQL    = "mysql"
	KindSQLite   = "sqlite"
	KindFile     = "file"
)

// ParseCatalogURL detects the catalog type and returns its connection string
func ParseCatalogURL(url string) (kind, connectionStr string, err error) {
	if url == "" {
		return "", "", fmt.Errorf("catalog URL is required")
	}

	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		return KindPostgres, url, nil
	}

	if strings.HasPrefix(url, "mysql://") {
		// the driver takes a bare DSN
		return KindMySQL, strings.TrimPrefix(url, "mysql://"), nil
	}

	if strings.HasPrefix(url, "sqlite://") {
		return KindSQLite, strings.TrimPrefix(url, "sqlite://"), nil
	}

	if strings.HasPrefix(url, "file://") {
		return KindFile, strings.TrimPrefix(url, "file://"), nil
	}

	return "", "", fmt.Errorf("invalid catalog URL scheme (must start with postgres://, mysql://, sqlite:// or file://)")
}

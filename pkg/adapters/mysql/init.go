// Package mysql provides a MySQL/MariaDB database adapter for tablekit.
//
// This file registers the adapter as "mysql", with "mariadb" as an alias.
// Import this package with a blank identifier to register the adapter:
//
//	import _ "github.com/leapstack-labs/tablekit/pkg/adapters/mysql"
package mysql

import (
	"log/slog"

	"github.com/leapstack-labs/tablekit/pkg/adapter"
)

func init() {
	adapter.Register("mysql", func(logger *slog.Logger) adapter.Adapter { return New(logger) }, "mariadb")
}

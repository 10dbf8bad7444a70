// Package all wires every built-in storage backend into the storage factory.
//
// Importing it for side effects makes the "sqlite", "postgres", "mssql" and
// "mysql" kinds available to storage.New.
package all

import (
	_ "csvformatter/internal/storage/mssql"
	_ "csvformatter/internal/storage/mysql"
	_ "csvformatter/internal/storage/postgres"
	_ "csvformatter/internal/storage/sqlite"
)

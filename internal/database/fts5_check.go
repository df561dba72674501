//go:build !sqlite_fts5

package database

// The words_fts virtual table needs the fts5 extension, which
// mattn/go-sqlite3 only compiles in under the sqlite_fts5 build tag.
// Failing the build here keeps a missing tag from surfacing as a
// runtime "no such module: fts5" on first startup.
//
// Build and test with:
//
//	go build -tags sqlite_fts5 ./...
//	go test -tags sqlite_fts5 ./...
var _ = buildRequiresTagSqliteFts5

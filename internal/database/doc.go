// Package database owns the SQLite connection, schema migration and the
// full-text index that backs word search.
//
// The store is the single holder of the words_fts FTS5 table: write-side
// triggers installed here keep it coherent with the words table no
// matter which repository performs the write. Rebuilding the index
// (OptimizeSearchIndex, RebuildSearchIndex) is maintenance, not a
// correctness requirement.
//
// Repositories for individual entities live in subpackages
// (wordbooks, words, study, imports, settings) and share the
// per-wordbook write lock exposed by Database.
package database

// Package repokit is the contract between modules and their repos. Repos are
// written against Queryer, bound per call through a Binder, and scoped to a
// transaction by the TxRunner the module was handed at wire time.
package repokit

import (
	"lakefill/internal/platform/store"
)

// Queryer is the sql surface repos run on, pool or open transaction
type Queryer = store.RowQuerier

// TxRunner runs a function inside a transaction
type TxRunner = store.TxRunner

type (
	// Rows is a query's result cursor
	Rows = store.Rows

	// Row is a single row
	Row = store.Row

	// CommandTag reports what a write did
	CommandTag = store.CommandTag
)

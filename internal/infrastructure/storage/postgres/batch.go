package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// BatchInserter bulk-inserts rows with the COPY protocol. Ledger lines and
// stock movements are written this way since every write replaces a full set.
type BatchInserter struct {
	txManager *TxManager
}

// NewBatchInserter creates a new batch inserter.
func NewBatchInserter(txManager *TxManager) *BatchInserter {
	return &BatchInserter{txManager: txManager}
}

// CopyRows inserts rows (each matching columns) into table.
// It must run inside a transaction so a failed copy leaves no partial set.
func (b *BatchInserter) CopyRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	tx := b.txManager.GetTx(ctx)
	if tx == nil {
		return 0, fmt.Errorf("copy into %s requires transaction context", table)
	}

	n, err := tx.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return n, fmt.Errorf("copy into %s: %w", table, MapError(err))
	}
	return n, nil
}

// StructRows projects values into rows over columns using their "db" tags.
// extra supplies values for columns the structs do not carry.
func StructRows[T any](values []T, columns []string, extra map[string]any) [][]any {
	rows := make([][]any, 0, len(values))
	for _, v := range values {
		data := StructToMap(v)
		row := make([]any, len(columns))
		for i, col := range columns {
			if val, ok := data[col]; ok {
				row[i] = val
			} else {
				row[i] = extra[col]
			}
		}
		rows = append(rows, row)
	}
	return rows
}

package realtime

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ownerColumns maps each collection to the column naming the owning
// principal. Collections without an entry have no owner scoping.
var ownerColumns = map[Collection]string{
	CollectionTransactions:  "owner_id",
	CollectionNotifications: "user_id",
	CollectionLeaveRequests: "user_id",
	CollectionExpenses:      "user_id",
	CollectionITTickets:     "user_id",
	CollectionGoals:         "user_id",
}

// PGFetcher loads full collection snapshots for bridge resyncs. The table
// name is the collection name; Collection is a closed set, so the query is
// assembled from known identifiers only.
type PGFetcher struct {
	pool *pgxpool.Pool
}

func NewPGFetcher(pool *pgxpool.Pool) *PGFetcher {
	return &PGFetcher{pool: pool}
}

func (f *PGFetcher) FetchAll(ctx context.Context, collection Collection) ([]Record, error) {
	if !collection.Valid() {
		return nil, fmt.Errorf("fetch: unknown collection %q", collection)
	}
	ownerExpr := "NULL::uuid"
	if col, ok := ownerColumns[collection]; ok {
		ownerExpr = "t." + col
	}
	query := fmt.Sprintf(
		`SELECT t.id, %s, t.created_at, t.updated_at, row_to_json(t) FROM %s t`,
		ownerExpr, collection)

	rows, err := f.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", collection, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var owner *uuid.UUID
		if err := rows.Scan(&rec.ID, &owner, &rec.CreatedAt, &rec.UpdatedAt, &rec.Data); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		if owner != nil {
			rec.OwnerID = *owner
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

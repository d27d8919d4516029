package orders

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	logx "github.com/orderdesk-ai/server/pkg/logger"
)

// Date layouts seen in the cleaned orders export.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate parses a dataset date in any of the supported layouts.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// IngestCSV loads the cleaned orders CSV into the store, replacing rows
// with matching order ids. Rows with an unparsable purchase date keep a
// NULL date rather than failing the load.
func (s *Store) IngestCSV(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open orders csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return 0, fmt.Errorf("read csv header: %w", err)
	}
	col := map[string]int{}
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"order_id", "customer_email", "order_status"} {
		if _, ok := col[required]; !ok {
			return 0, fmt.Errorf("orders csv missing column %q", required)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin ingest tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO orders (
			order_id, customer_email, first_name, last_name, order_status,
			purchase_date, delivery_time_days, total_payment, payment_type,
			installments, num_items, review_score
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare ingest: %w", err)
	}
	defer stmt.Close()

	field := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	n := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return n, fmt.Errorf("read csv row: %w", err)
		}

		var purchase any
		if raw := field(rec, "purchase_date"); raw != "" {
			if t, err := ParseDate(raw); err == nil {
				purchase = t.Format(time.RFC3339)
			} else {
				logx.Warn().Str("order_id", field(rec, "order_id")).Str("purchase_date", raw).
					Msg("unparsable purchase date, keeping NULL")
			}
		}

		_, err = stmt.ExecContext(ctx,
			field(rec, "order_id"),
			field(rec, "customer_email"),
			field(rec, "first_name"),
			field(rec, "last_name"),
			strings.ToLower(field(rec, "order_status")),
			purchase,
			nullInt(field(rec, "delivery_time_days")),
			nullFloat(field(rec, "total_payment")),
			field(rec, "payment_type"),
			nullInt(field(rec, "installments")),
			nullInt(field(rec, "num_items")),
			nullInt(field(rec, "review_score")),
		)
		if err != nil {
			return n, fmt.Errorf("insert order row: %w", err)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return n, fmt.Errorf("commit ingest: %w", err)
	}
	return n, nil
}

func nullInt(s string) any {
	if s == "" {
		return nil
	}
	// the export renders some integer columns as floats ("3.0")
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f)
	}
	return nil
}

func nullFloat(s string) any {
	if s == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return nil
}

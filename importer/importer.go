// Package importer 读取 CSV/JSON 文件并写入活动、宾客和座位数据
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"guest_tracker/db"
	"guest_tracker/models"
)

// Store *db.Repo 实现
type Store interface {
	FindEventByID(ctx context.Context, id uint) (*models.Event, error)
	GetOrCreateGuest(ctx context.Context, in models.Guest) (*models.Guest, bool, error)
	GetOrCreateInvitation(ctx context.Context, eventID, guestID uint) (*models.Invitation, bool, error)
	UpsertTable(ctx context.Context, eventID uint, in db.TableInput) (*models.Table, bool, error)
	GenerateSeats(ctx context.Context, eventID uint, preview bool) (*db.GenerateSeatsResult, error)
	AssignSeats(ctx context.Context, eventID uint, rows []db.SeatAssignment) (*db.AssignResult, error)
	ApplySeatingArrangement(ctx context.Context, eventID uint, arr models.SeatingArrangement, hasAssigned *bool, opts db.ArrangementOptions) (*db.ArrangementResult, error)
}

var ErrMissingColumns = errors.New("missing required columns")

// table 按表头名取值的 CSV
type table struct {
	cols  map[string]int
	rows  [][]string
	lines []int // 每行在文件中的行号
}

func readCSV(r io.Reader, required ...string) (*table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	recs, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrMissingColumns)
	}
	t := &table{cols: map[string]int{}}
	for i, h := range recs[0] {
		h = strings.TrimPrefix(h, "\ufeff")
		t.cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	var missing []string
	for _, c := range required {
		if _, ok := t.cols[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	for i, rec := range recs[1:] {
		if blank(rec) {
			continue
		}
		t.rows = append(t.rows, rec)
		t.lines = append(t.lines, i+2)
	}
	return t, nil
}

func (t *table) get(row []string, col string) string {
	i, ok := t.cols[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func (t *table) rowError(i int, format string, args ...any) string {
	return fmt.Sprintf("row %d: ", t.lines[i]) + fmt.Sprintf(format, args...)
}

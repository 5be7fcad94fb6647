package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"guest_tracker/db"
	"guest_tracker/models"
)

type TablesReport struct {
	Preview      bool            `json:"preview"`
	Tables       []db.TableInput `json:"tables"`
	Created      int             `json:"created"`
	Updated      int             `json:"updated"`
	SeatsCreated int             `json:"seatsCreated"`
	Errors       []string        `json:"errors,omitempty"`
}

// ImportTables columns: number,capacity[,section]；createSeats 时顺带生成座位行
func ImportTables(ctx context.Context, s Store, eventID uint, r io.Reader, preview, createSeats bool) (*TablesReport, error) {
	t, err := readCSV(r, "number", "capacity")
	if err != nil {
		return nil, err
	}
	if _, err := s.FindEventByID(ctx, eventID); err != nil {
		return nil, err
	}
	rep := &TablesReport{Preview: preview}
	for i, row := range t.rows {
		in := db.TableInput{Number: t.get(row, "number"), Section: t.get(row, "section")}
		if in.Number == "" {
			rep.Errors = append(rep.Errors, t.rowError(i, "table number is required"))
			continue
		}
		capacity, err := strconv.Atoi(t.get(row, "capacity"))
		if err != nil || capacity < 0 {
			rep.Errors = append(rep.Errors, t.rowError(i, "invalid capacity %q", t.get(row, "capacity")))
			continue
		}
		in.Capacity = capacity
		rep.Tables = append(rep.Tables, in)
	}
	if preview {
		return rep, nil
	}
	for _, in := range rep.Tables {
		_, created, err := s.UpsertTable(ctx, eventID, in)
		if err != nil {
			return rep, fmt.Errorf("table %s: %w", in.Number, err)
		}
		if created {
			rep.Created++
		} else {
			rep.Updated++
		}
	}
	if createSeats {
		res, err := s.GenerateSeats(ctx, eventID, false)
		if err != nil {
			return rep, err
		}
		rep.SeatsCreated = res.Created
	}
	return rep, nil
}

type SeatingReport struct {
	Preview  bool                `json:"preview"`
	Rows     []db.SeatAssignment `json:"rows"`
	Assigned int                 `json:"assigned"`
	Errors   []string            `json:"errors,omitempty"`
}

// ImportSeating columns: table,seat,guest；guest 可以是邮箱、条码或邀请码
func ImportSeating(ctx context.Context, s Store, eventID uint, r io.Reader, preview bool) (*SeatingReport, error) {
	t, err := readCSV(r, "table", "seat", "guest")
	if err != nil {
		return nil, err
	}
	if _, err := s.FindEventByID(ctx, eventID); err != nil {
		return nil, err
	}
	rep := &SeatingReport{Preview: preview}
	for i, row := range t.rows {
		a := db.SeatAssignment{Table: t.get(row, "table"), Seat: t.get(row, "seat"), Guest: t.get(row, "guest")}
		if a.Table == "" || a.Seat == "" || a.Guest == "" {
			rep.Errors = append(rep.Errors, t.rowError(i, "table, seat and guest are required"))
			continue
		}
		rep.Rows = append(rep.Rows, a)
	}
	if preview || len(rep.Rows) == 0 {
		return rep, nil
	}
	res, err := s.AssignSeats(ctx, eventID, rep.Rows)
	if err != nil {
		return rep, err
	}
	rep.Assigned = res.Assigned
	rep.Errors = append(rep.Errors, res.Errors...)
	return rep, nil
}

// EventConfig 活动配置文件；seating_arrangement 也可以是 JSON 字符串
type EventConfig struct {
	SeatingArrangement models.SeatingArrangement
	HasAssignedSeating *bool
}

func ParseEventConfig(r io.Reader) (*EventConfig, error) {
	var raw struct {
		SeatingArrangement json.RawMessage `json:"seating_arrangement"`
		HasAssignedSeating *bool           `json:"has_assigned_seating"`
		Tables             json.RawMessage `json:"tables"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode event config: %w", err)
	}
	cfg := &EventConfig{HasAssignedSeating: raw.HasAssignedSeating}
	body := raw.SeatingArrangement
	if len(body) > 0 && body[0] == '"' {
		var s string
		if err := json.Unmarshal(body, &s); err != nil {
			return nil, err
		}
		body = json.RawMessage(s)
	}
	switch {
	case len(body) > 0 && string(body) != "null":
		if err := json.Unmarshal(body, &cfg.SeatingArrangement); err != nil {
			return nil, fmt.Errorf("seating_arrangement: %w", err)
		}
	case len(raw.Tables) > 0:
		if err := json.Unmarshal(raw.Tables, &cfg.SeatingArrangement.Tables); err != nil {
			return nil, fmt.Errorf("tables: %w", err)
		}
	default:
		return nil, fmt.Errorf("event config has no seating_arrangement")
	}
	for i, t := range cfg.SeatingArrangement.Tables {
		if t.Number == "" {
			return nil, fmt.Errorf("table %d: number is required", i+1)
		}
		if t.Capacity < 0 {
			return nil, fmt.Errorf("table %s: negative capacity", t.Number)
		}
	}
	return cfg, nil
}

func ImportEventConfig(ctx context.Context, s Store, eventID uint, r io.Reader, opts db.ArrangementOptions) (*db.ArrangementResult, error) {
	cfg, err := ParseEventConfig(r)
	if err != nil {
		return nil, err
	}
	return s.ApplySeatingArrangement(ctx, eventID, cfg.SeatingArrangement, cfg.HasAssignedSeating, opts)
}

// Package db keeps an in-memory SQLite copy of the most recently loaded
// accident dataset so it can be inspected with SQL from the admin routes.
// Nothing is written to disk; the snapshot is rebuilt on every fresh load.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/tailscale/tailsql/server/tailsql"
	_ "modernc.org/sqlite"
	"tailscale.com/tsweb"

	"github.com/banshee-data/accident.report/internal/accidents"
	"github.com/banshee-data/accident.report/internal/httputil"
	"github.com/banshee-data/accident.report/internal/monitoring"
	"github.com/banshee-data/accident.report/internal/timeutil"
)

// ErrNoSnapshot is returned before any dataset has been recorded.
var ErrNoSnapshot = errors.New("no dataset snapshot loaded")

// ErrUnsupportedField is returned by CountBy for fields without a text column.
var ErrUnsupportedField = errors.New("field cannot be grouped")

type column struct {
	field accidents.Field
	name  string
}

// columns maps dataset fields onto the accidents table, in insert order.
var columns = []column{
	{accidents.Weather, "weather"},
	{accidents.RoadType, "road_type"},
	{accidents.TimeOfDay, "time_of_day"},
	{accidents.VehicleType, "vehicle_type"},
	{accidents.RoadCondition, "road_condition"},
	{accidents.RoadLightCondition, "road_light_condition"},
	{accidents.AccidentSeverity, "accident_severity"},
	{accidents.DriverAge, "driver_age"},
	{accidents.SpeedLimit, "speed_limit"},
	{accidents.Accident, "accident"},
	{accidents.DriverAlcohol, "driver_alcohol"},
	{accidents.TrafficDensity, "traffic_density"},
	{accidents.NumberOfVehicles, "number_of_vehicles"},
	{accidents.DriverExperience, "driver_experience"},
}

func columnFor(f accidents.Field) (column, bool) {
	for _, c := range columns {
		if c.field == f {
			return c, true
		}
	}
	return column{}, false
}

type DB struct {
	*sql.DB

	clock timeutil.Clock
	// mu serialises snapshot replacement.
	mu sync.Mutex
}

// Open creates an empty in-memory database and applies the embedded
// migrations. The pool is limited to one connection: every connection to
// ":memory:" would otherwise see its own empty database.
func Open() (*DB, error) {
	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	db := &DB{DB: sqlDB, clock: timeutil.RealClock{}}
	if err := db.MigrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// Snapshot describes the dataset currently held in the database.
type Snapshot struct {
	Source   string    `json:"source"`
	Columns  []string  `json:"columns"`
	Records  int       `json:"records"`
	ModTime  time.Time `json:"mod_time"`
	LoadedAt time.Time `json:"loaded_at"`
}

// ReplaceSnapshot swaps the stored rows for the records of ds in a single
// transaction. modTime is the source file's modification time.
func (db *DB) ReplaceSnapshot(ctx context.Context, ds *accidents.Dataset, modTime time.Time) error {
	if ds == nil {
		return errors.New("nil dataset")
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM accidents`); err != nil {
		return fmt.Errorf("clear accidents: %w", err)
	}

	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.name
	}
	insert := fmt.Sprintf(`INSERT INTO accidents (%s) VALUES (%s)`,
		strings.Join(names, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", "))
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	args := make([]interface{}, len(columns))
	for i := range ds.Records {
		rec := &ds.Records[i]
		for j, c := range columns {
			args[j] = cellValue(ds, rec, c.field)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert record %d: %w", i, err)
		}
	}

	cols := make([]string, len(ds.Columns))
	for i, f := range ds.Columns {
		cols[i] = string(f)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshots (snapshot_id, source, columns, record_count, mod_time_ns, loaded_ns)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(snapshot_id) DO UPDATE SET
			source = excluded.source,
			columns = excluded.columns,
			record_count = excluded.record_count,
			mod_time_ns = excluded.mod_time_ns,
			loaded_ns = excluded.loaded_ns`,
		ds.Source, strings.Join(cols, ","), ds.Len(), modTime.UnixNano(), db.clock.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("record snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

// cellValue returns the column value for f, or nil for absent columns and
// non-numeric values in numeric columns.
func cellValue(ds *accidents.Dataset, rec *accidents.Record, f accidents.Field) interface{} {
	if !ds.Has(f) {
		return nil
	}
	if f.Kind() == accidents.Categorical {
		return rec.Text(f)
	}
	if v, ok := rec.Number(f); ok {
		return v
	}
	return nil
}

// OnLoad records ds as the current snapshot, logging failures. It matches
// accidents.Loader.OnLoad.
func (db *DB) OnLoad(ds *accidents.Dataset, modTime time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.ReplaceSnapshot(ctx, ds, modTime); err != nil {
		monitoring.Logf("snapshot of %s failed: %v", ds.Source, err)
		return
	}
	monitoring.Debugf("snapshot of %s holds %d records", ds.Source, ds.Len())
}

// LatestSnapshot returns the metadata of the stored dataset.
func (db *DB) LatestSnapshot(ctx context.Context) (*Snapshot, error) {
	var (
		s             Snapshot
		cols          string
		modNs, loadNs int64
	)
	err := db.QueryRowContext(ctx, `
		SELECT source, columns, record_count, mod_time_ns, loaded_ns
		FROM snapshots WHERE snapshot_id = 1`).Scan(&s.Source, &cols, &s.Records, &modNs, &loadNs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}
	if cols != "" {
		s.Columns = strings.Split(cols, ",")
	}
	s.ModTime = time.Unix(0, modNs).UTC()
	s.LoadedAt = time.Unix(0, loadNs).UTC()
	return &s, nil
}

// CountBy groups the stored records by a categorical field, most frequent
// first with ties in first-seen order.
func (db *DB) CountBy(ctx context.Context, f accidents.Field) ([]accidents.Count, error) {
	c, ok := columnFor(f)
	if !ok || f.Kind() != accidents.Categorical {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedField, f)
	}
	// c.name comes from the fixed columns table, never from input.
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %[1]s, COUNT(*) FROM accidents
		WHERE %[1]s IS NOT NULL
		GROUP BY %[1]s
		ORDER BY COUNT(*) DESC, MIN(row_id)`, c.name))
	if err != nil {
		return nil, fmt.Errorf("count by %s: %w", f, err)
	}
	defer rows.Close()

	var out []accidents.Count
	for rows.Next() {
		var cnt accidents.Count
		if err := rows.Scan(&cnt.Label, &cnt.N); err != nil {
			return nil, err
		}
		out = append(out, cnt)
	}
	return out, rows.Err()
}

// AttachAdminRoutes mounts the tsweb debug index on mux with a tailsql
// console over the snapshot and a JSON view of its metadata.
func (db *DB) AttachAdminRoutes(mux *http.ServeMux) error {
	debug := tsweb.Debugger(mux)
	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://accidents", db.DB, &tailsql.DBOptions{
		Label: "Accident snapshot",
	})
	debug.Handle("tailsql/", "SQL over the loaded dataset", tsql.NewMux())

	debug.Handle("snapshot", "Loaded dataset snapshot", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := db.LatestSnapshot(r.Context())
		if errors.Is(err, ErrNoSnapshot) {
			httputil.NotFound(w, err.Error())
			return
		}
		if err != nil {
			httputil.InternalServerError(w, err.Error())
			return
		}
		httputil.WriteJSONOK(w, s)
	}))
	return nil
}

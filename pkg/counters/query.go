package counters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"regexp"
	"sort"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/containifyci/smartchecker/pkg/config"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// fixedColumns lead every row of the statistics tables.
var fixedColumns = []string{"NE_NAME", "STAT_DATE", "STAT_TIME", "STAT_TYPE"}

// Report is the JSON document written for a query.
type Report struct {
	ColumnDesc []string   `json:"columndesc"`
	Columns    [][]string `json:"columns"`
}

// Writer stores the report; report.FileWriter satisfies it.
type Writer interface {
	Write(dir, filename string, content []byte) (string, error)
}

// Querier runs counter queries against the configured databases.
type Querier struct {
	Config config.CountersConfig
	// Open connects to a database. Defaults to Open.
	Open func(driver, dsn string) (*gorm.DB, error)
}

func NewQuerier(cfg config.CountersConfig) *Querier {
	return &Querier{Config: cfg, Open: Open}
}

// Open connects to a counter database with gorm.
func Open(driver, dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}
	switch driver {
	case config.DriverMySQL:
		return gorm.Open(mysql.Open(dsn), cfg)
	case config.DriverSQLite:
		return gorm.Open(sqlite.Open(dsn), cfg)
	}
	return nil, fmt.Errorf("unsupported database driver %q", driver)
}

// LoadEnv loads the .env file DSNs may reference. A missing file is ignored.
func LoadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Query fetches the requested counters. opts must have been completed.
func (q *Querier) Query(ctx context.Context, opts *Options) (*Report, error) {
	start, stop, err := opts.Window()
	if err != nil {
		return nil, err
	}

	dbName, err := q.databaseName(opts.Element)
	if err != nil {
		return nil, err
	}
	dbCfg, ok := q.Config.Databases[dbName]
	if !ok {
		return nil, fmt.Errorf("can't get the database config according to the database name(%s)", dbName)
	}
	table, columns, err := q.table(opts.Counters)
	if err != nil {
		return nil, err
	}
	slog.Debug("Counter query", "database", dbName, "table", table, "columns", columns)

	open := q.Open
	if open == nil {
		open = Open
	}
	db, err := open(dbCfg.Driver, os.ExpandEnv(dbCfg.DSN))
	if err != nil {
		return nil, fmt.Errorf("database connect: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	tx := db.WithContext(ctx).
		Table(table).
		Select(append(append([]string(nil), fixedColumns...), columns...)).
		Where("PERIOD = ? AND UNIT_TYPE = ?", opts.Period, opts.UnitType).
		Where("PERIOD_START >= ? AND PERIOD_START <= ?", stampKey(start), stampKey(stop)).
		Order("PERIOD_START").
		Order("NE_NAME")
	if opts.Element != AllElements {
		tx = tx.Where("NE_NAME = ?", opts.Element)
	}

	rows, err := tx.Rows()
	if err != nil {
		return nil, fmt.Errorf("database query: %w", err)
	}
	defer rows.Close()

	report := &Report{
		ColumnDesc: append([]string{"NE_NAME", "Date", "Time", "StatType"}, columns...),
		Columns:    [][]string{},
	}
	width := len(fixedColumns) + len(columns)
	for rows.Next() {
		values := make([]any, width)
		ptrs := make([]any, width)
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("database query: %w", err)
		}
		row := make([]string, width)
		for i, v := range values {
			row[i] = format(v)
		}
		report.Columns = append(report.Columns, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database query: %w", err)
	}
	return report, nil
}

// databaseName finds the database of an element. ALL uses the database of
// the first configured element.
func (q *Querier) databaseName(element string) (string, error) {
	if element == AllElements {
		names := make([]string, 0, len(q.Config.Elements))
		for name := range q.Config.Elements {
			names = append(names, name)
		}
		sort.Strings(names)
		if len(names) > 0 {
			return q.Config.Elements[names[0]], nil
		}
	} else if db, ok := q.Config.Elements[element]; ok {
		return db, nil
	}
	return "", fmt.Errorf("can't get the database name according to the element name(%s)", element)
}

// table picks the first table, by name, holding any requested counter and
// returns the requested counters it holds in table order.
func (q *Querier) table(counters []string) (string, []string, error) {
	want := make(map[string]bool, len(counters))
	for _, c := range counters {
		want[c] = true
	}

	names := make([]string, 0, len(q.Config.Tables))
	for name := range q.Config.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		var columns []string
		for _, c := range q.Config.Tables[name] {
			if want[c] {
				columns = append(columns, c)
			}
		}
		if len(columns) == 0 {
			continue
		}
		for _, id := range append([]string{name}, columns...) {
			if !identifier.MatchString(id) {
				return "", nil, fmt.Errorf("invalid identifier %q in counter tables", id)
			}
		}
		return name, columns, nil
	}
	return "", nil, fmt.Errorf("no configured table holds counters %v", counters)
}

func format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}

// Save writes the report as JSON into dir.
func Save(w Writer, dir, filename string, r *Report) (string, error) {
	data, err := json.MarshalIndent(r, "", "\t")
	if err != nil {
		return "", err
	}
	return w.Write(dir, filename, append(data, '\n'))
}

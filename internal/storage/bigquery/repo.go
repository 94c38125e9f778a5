// Package bigquery implements storage.Repository on Google BigQuery.
//
// Tables are addressed as "table", "dataset.table" or "project.dataset.table";
// shorter forms resolve against the project and dataset named in the DSN
// (bigquery://project/dataset[?location=EU]). Overwrites are load or query
// jobs with WRITE_TRUNCATE, which BigQuery applies atomically.
package bigquery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"fhvclean/internal/ddl"
	"fhvclean/internal/frame"
	"fhvclean/internal/sqlplan"
	"fhvclean/internal/storage"
)

// Config holds BigQuery repository configuration.
type Config struct {
	DSN       string
	BatchSize int
	// ClientOptions are passed to bigquery.NewClient (credentials, endpoint).
	ClientOptions []option.ClientOption
}

// target is the parsed form of a bigquery:// DSN.
type target struct {
	Project  string
	Dataset  string
	Location string
}

func parseDSN(dsn string) (target, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return target{}, fmt.Errorf("bigquery: parse DSN: %w", err)
	}
	if u.Scheme != "bigquery" {
		return target{}, fmt.Errorf("bigquery: DSN scheme %q, want bigquery://project/dataset", u.Scheme)
	}
	t := target{
		Project:  u.Host,
		Dataset:  strings.Trim(u.Path, "/"),
		Location: u.Query().Get("location"),
	}
	if t.Project == "" || t.Dataset == "" || strings.Contains(t.Dataset, "/") {
		return target{}, fmt.Errorf("bigquery: DSN %q must be bigquery://project/dataset", dsn)
	}
	return t, nil
}

// Repository is a BigQuery-backed implementation of storage.Repository.
type Repository struct {
	client *bigquery.Client
	dst    target
	cfg    Config
	log    *zap.Logger
}

// NewRepository creates a BigQuery client and returns a Repository plus a
// Close function.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	dst, err := parseDSN(cfg.DSN)
	if err != nil {
		return nil, nil, err
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = storage.DefaultBatchSize
	}
	client, err := bigquery.NewClient(ctx, dst.Project, cfg.ClientOptions...)
	if err != nil {
		return nil, nil, fmt.Errorf("bigquery: new client: %w", err)
	}
	client.Location = dst.Location

	r := &Repository{client: client, dst: dst, cfg: cfg, log: zap.L().Named("bigquery")}
	return r, func() { _ = client.Close() }, nil
}

// table resolves a possibly qualified table name.
func (r *Repository) table(name string) (*bigquery.Table, error) {
	parts := strings.Split(strings.TrimSpace(name), ".")
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("bigquery: invalid table name %q", name)
		}
	}
	switch len(parts) {
	case 1:
		return r.client.DatasetInProject(r.dst.Project, r.dst.Dataset).Table(parts[0]), nil
	case 2:
		return r.client.DatasetInProject(r.dst.Project, parts[0]).Table(parts[1]), nil
	case 3:
		return r.client.DatasetInProject(parts[0], parts[1]).Table(parts[2]), nil
	default:
		return nil, fmt.Errorf("bigquery: invalid table name %q", name)
	}
}

// ReadTable implements storage.Repository.
func (r *Repository) ReadTable(ctx context.Context, name string) (*frame.Frame, error) {
	t, err := r.table(name)
	if err != nil {
		return nil, err
	}
	md, err := t.Metadata(ctx)
	if err != nil {
		return nil, mapErr(name, err)
	}

	f := frame.New(columnsOf(md.Schema))
	it := t.Read(ctx)
	for {
		var row []bigquery.Value
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, mapErr(name, err)
		}
		vals := make([]any, len(row))
		for i, v := range row {
			vals[i] = fromBigQuery(v)
		}
		f.Rows = append(f.Rows, vals)
	}
	r.log.Debug("table read", zap.String("table", name), zap.Int("rows", f.Len()))
	return f, nil
}

// Columns implements storage.Pushdowner.
func (r *Repository) Columns(ctx context.Context, name string) ([]frame.Column, error) {
	t, err := r.table(name)
	if err != nil {
		return nil, err
	}
	md, err := t.Metadata(ctx)
	if err != nil {
		return nil, mapErr(name, err)
	}
	return columnsOf(md.Schema), nil
}

// Dialect implements storage.Pushdowner.
func (r *Repository) Dialect() sqlplan.Dialect { return sqlplan.BigQuery }

// OverwriteTable implements storage.Repository with a newline-delimited JSON
// load job.
func (r *Repository) OverwriteTable(ctx context.Context, name string, f *frame.Frame) (int64, error) {
	t, err := r.table(name)
	if err != nil {
		return 0, err
	}

	var buf bytes.Buffer
	layouts := civilLayouts(f.Columns)
	n, err := storage.StreamRows(ctx, f, r.cfg.BatchSize, func(_ context.Context, columns []string, rows [][]any) (int64, error) {
		return writeNDJSON(&buf, columns, layouts, frame.CoerceRows(f.Columns, rows))
	})
	if err != nil {
		return 0, fmt.Errorf("bigquery: overwrite %s: encode: %w", name, err)
	}

	src := bigquery.NewReaderSource(&buf)
	src.SourceFormat = bigquery.JSON
	src.Schema = schemaOf(f.Columns)

	loader := t.LoaderFrom(src)
	loader.WriteDisposition = bigquery.WriteTruncate
	loader.CreateDisposition = bigquery.CreateIfNeeded

	status, err := r.runJob(ctx, loader)
	if err != nil {
		return 0, fmt.Errorf("bigquery: overwrite %s: %w", name, err)
	}
	if status.Statistics == nil {
		return n, nil
	}
	if ls, ok := status.Statistics.Details.(*bigquery.LoadStatistics); ok && ls.OutputRows != n {
		r.log.Warn("load row count differs from encoded rows",
			zap.String("table", name), zap.Int64("encoded", n), zap.Int64("loaded", ls.OutputRows))
		n = ls.OutputRows
	}
	return n, nil
}

// OverwriteFromQuery implements storage.Pushdowner with a query job whose
// destination is the table.
func (r *Repository) OverwriteFromQuery(ctx context.Context, name string, _ []frame.Column, query string) (int64, error) {
	t, err := r.table(name)
	if err != nil {
		return 0, err
	}
	q := r.query(query)
	q.Dst = t
	q.WriteDisposition = bigquery.WriteTruncate
	q.CreateDisposition = bigquery.CreateIfNeeded

	if _, err := r.runJob(ctx, q); err != nil {
		return 0, fmt.Errorf("bigquery: overwrite %s from query: %w", name, err)
	}
	return r.CountRows(ctx, name)
}

// CountRows implements storage.Repository.
func (r *Repository) CountRows(ctx context.Context, name string) (int64, error) {
	it, err := r.query("SELECT COUNT(*) FROM " + sqlplan.BigQuery.QuoteTable(name)).Read(ctx)
	if err != nil {
		return 0, mapErr(name, err)
	}
	var row []bigquery.Value
	if err := it.Next(&row); err != nil {
		return 0, mapErr(name, err)
	}
	n, ok := row[0].(int64)
	if !ok {
		return 0, fmt.Errorf("bigquery: count %s: unexpected value %T", name, row[0])
	}
	return n, nil
}

// Exec runs sql as a query job and waits for it.
func (r *Repository) Exec(ctx context.Context, sql string) error {
	if strings.TrimSpace(sql) == "" {
		return nil
	}
	_, err := r.runJob(ctx, r.query(sql))
	return err
}

func (r *Repository) query(sql string) *bigquery.Query {
	q := r.client.Query(sql)
	q.DefaultProjectID = r.dst.Project
	q.DefaultDatasetID = r.dst.Dataset
	return q
}

type runner interface {
	Run(ctx context.Context) (*bigquery.Job, error)
}

func (r *Repository) runJob(ctx context.Context, j runner) (*bigquery.JobStatus, error) {
	job, err := j.Run(ctx)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	status, err := job.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("wait for job %s: %w", job.ID(), err)
	}
	if err := status.Err(); err != nil {
		return nil, fmt.Errorf("job %s: %w", job.ID(), err)
	}
	r.log.Debug("job done", zap.String("job_id", job.ID()), zap.Duration("elapsed", time.Since(start)))
	return status, nil
}

// mapErr maps BigQuery's 404 responses and notFound job errors onto
// storage.ErrTableNotFound.
func mapErr(table string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
		return storage.NotFound(table, err)
	}
	var berr *bigquery.Error
	if errors.As(err, &berr) && berr.Reason == "notFound" {
		return storage.NotFound(table, err)
	}
	return fmt.Errorf("bigquery: %s: %w", table, err)
}

func kindOf(t bigquery.FieldType) frame.Kind {
	switch t {
	case bigquery.IntegerFieldType:
		return frame.Int
	case bigquery.FloatFieldType, bigquery.NumericFieldType, bigquery.BigNumericFieldType:
		return frame.Float
	case bigquery.BooleanFieldType:
		return frame.Bool
	case bigquery.TimestampFieldType, bigquery.DateTimeFieldType, bigquery.DateFieldType:
		return frame.Timestamp
	case bigquery.BytesFieldType:
		return frame.Bytes
	default:
		return frame.String
	}
}

func columnsOf(s bigquery.Schema) []frame.Column {
	cols := make([]frame.Column, len(s))
	for i, fs := range s {
		cols[i] = frame.Column{Name: fs.Name, Kind: kindOf(fs.Type), DBType: string(fs.Type)}
	}
	return cols
}

// fieldTypeOf maps a column onto a BigQuery type. Timestamps reported as
// DATE or DATETIME by their source keep that type.
func fieldTypeOf(c frame.Column) bigquery.FieldType {
	switch c.Kind {
	case frame.Int:
		return bigquery.IntegerFieldType
	case frame.Float:
		return bigquery.FloatFieldType
	case frame.Bool:
		return bigquery.BooleanFieldType
	case frame.Timestamp:
		switch ddl.LogicalType(c) {
		case "date":
			return bigquery.DateFieldType
		case "datetime":
			return bigquery.DateTimeFieldType
		}
		return bigquery.TimestampFieldType
	case frame.Bytes:
		return bigquery.BytesFieldType
	default:
		return bigquery.StringFieldType
	}
}

func schemaOf(cols []frame.Column) bigquery.Schema {
	s := make(bigquery.Schema, len(cols))
	for i, c := range cols {
		s[i] = &bigquery.FieldSchema{Name: c.Name, Type: fieldTypeOf(c)}
	}
	return s
}

// Load-file layouts for civil types; TIMESTAMP values keep RFC 3339.
const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05.999999"
)

// civilLayouts returns the layout each column's time values are written with
// in a load file, or "" to leave the value to the JSON encoder.
func civilLayouts(cols []frame.Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		switch fieldTypeOf(c) {
		case bigquery.DateFieldType:
			out[i] = dateLayout
		case bigquery.DateTimeFieldType:
			out[i] = dateTimeLayout
		}
	}
	return out
}

// zoneless is satisfied by civil.Date and civil.DateTime.
type zoneless interface {
	In(loc *time.Location) time.Time
}

// fromBigQuery normalizes values the client decodes into civil or big types.
func fromBigQuery(v bigquery.Value) any {
	switch x := v.(type) {
	case *big.Rat:
		f, _ := x.Float64()
		return f
	case zoneless:
		return x.In(time.UTC)
	default:
		return v
	}
}

// writeNDJSON encodes one JSON object per row. A non-empty layouts[i]
// formats time values of column i as UTC civil text.
func writeNDJSON(w io.Writer, columns, layouts []string, rows [][]any) (int64, error) {
	enc := json.NewEncoder(w)
	obj := make(map[string]any, len(columns))
	var n int64
	for _, row := range rows {
		if len(row) != len(columns) {
			return n, fmt.Errorf("row length %d != columns length %d", len(row), len(columns))
		}
		for i, c := range columns {
			obj[c] = row[i]
			if i < len(layouts) && layouts[i] != "" {
				if ts, ok := row[i].(time.Time); ok {
					obj[c] = ts.UTC().Format(layouts[i])
				}
			}
		}
		if err := enc.Encode(obj); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

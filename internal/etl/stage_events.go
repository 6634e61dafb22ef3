package etl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	gluetypes "github.com/aws/aws-sdk-go-v2/service/glue/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
	"go.uber.org/zap"

	"github.com/guiwebcoder/shopify-order-timestamp-webhook/internal/db"
)

// StageEventRow matches the Glue table columns. dt is the partition column
// and lives in the object key only.
type StageEventRow struct {
	OrderID    string `parquet:"name=order_id, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	OrderName  string `parquet:"name=order_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	StageKey   string `parquet:"name=stage_key, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	StageName  string `parquet:"name=stage_name, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	StampedAt  string `parquet:"name=stamped_at, type=BYTE_ARRAY, convertedtype=UTF8"`
	Staff      string `parquet:"name=staff, type=BYTE_ARRAY, convertedtype=UTF8"`
	RecordedAt string `parquet:"name=recorded_at, type=BYTE_ARRAY, convertedtype=UTF8"`
}

type DynamoScanner interface {
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

type S3Putter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type GluePartitioner interface {
	GetTable(ctx context.Context, params *glue.GetTableInput, optFns ...func(*glue.Options)) (*glue.GetTableOutput, error)
	CreatePartition(ctx context.Context, params *glue.CreatePartitionInput, optFns ...func(*glue.Options)) (*glue.CreatePartitionOutput, error)
}

type ExportConfig struct {
	Table        string
	Bucket       string
	Prefix       string
	Timezone     string
	DaysBack     int
	GlueDatabase string
	GlueTable    string
}

type StageEventsETL struct {
	ddb  DynamoScanner
	s3   S3Putter
	glue GluePartitioner
	cfg  ExportConfig
	log  *zap.Logger
	now  func() time.Time
}

// NewStageEventsETL builds the exporter. glue may be nil, in which case
// partitions are left for repair-partitions to discover.
func NewStageEventsETL(ddb DynamoScanner, s3c S3Putter, gc GluePartitioner, cfg ExportConfig, log *zap.Logger) *StageEventsETL {
	if cfg.DaysBack < 1 {
		cfg.DaysBack = 1
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "UTC"
	}
	return &StageEventsETL{ddb: ddb, s3: s3c, glue: gc, cfg: cfg, log: log, now: time.Now}
}

// Handle is triggered by an EventBridge schedule. For each completed day in
// the window (yesterday back DaysBack days, in Timezone) it writes the day's
// journal rows to
//
//	<prefix>dt=YYYY-MM-DD/part-0000.parquet
//
// and registers the dt partition in Glue when a Glue table is configured.
// The key is fixed per day, so a rerun replaces the day instead of adding
// a second copy of its rows.
func (h *StageEventsETL) Handle(ctx context.Context, _ events.CloudWatchEvent) (map[string]any, error) {
	loc, err := time.LoadLocation(h.cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %s: %w", h.cfg.Timezone, err)
	}

	now := h.now().In(loc)
	prefix := ensureTrailingSlash(h.cfg.Prefix)
	written, rows := 0, 0

	for i := 1; i <= h.cfg.DaysBack; i++ {
		dt := now.AddDate(0, 0, -i).Format("2006-01-02")

		items, err := h.scanDay(ctx, dt)
		if err != nil {
			return nil, fmt.Errorf("scan dt=%s: %w", dt, err)
		}
		if len(items) == 0 {
			h.log.Info("no stage events for day", zap.String("dt", dt))
			continue
		}

		key := partitionKey(prefix, dt)
		if err := h.writeParquetToS3(ctx, key, toRows(items)); err != nil {
			return nil, fmt.Errorf("write parquet dt=%s: %w", dt, err)
		}
		if err := h.addPartition(ctx, prefix, dt); err != nil {
			return nil, fmt.Errorf("glue partition dt=%s: %w", dt, err)
		}

		h.log.Info("exported stage events",
			zap.String("dt", dt),
			zap.Int("rows", len(items)),
			zap.String("key", key),
		)
		written++
		rows += len(items)
	}

	return map[string]any{
		"ok":        true,
		"days_back": h.cfg.DaysBack,
		"written":   written,
		"rows":      rows,
		"bucket":    h.cfg.Bucket,
		"prefix":    prefix,
	}, nil
}

func (h *StageEventsETL) scanDay(ctx context.Context, dt string) ([]db.StageEventItem, error) {
	var out []db.StageEventItem
	var startKey map[string]ddbtypes.AttributeValue
	for {
		page, err := h.ddb.Scan(ctx, &dynamodb.ScanInput{
			TableName:                aws.String(h.cfg.Table),
			ExclusiveStartKey:        startKey,
			FilterExpression:         aws.String("#day = :day"),
			ExpressionAttributeNames: map[string]string{"#day": "Day"},
			ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
				":day": &ddbtypes.AttributeValueMemberS{Value: dt},
			},
		})
		if err != nil {
			return nil, fmt.Errorf("dynamodb scan %s: %w", h.cfg.Table, err)
		}

		var items []db.StageEventItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("unmarshal stage events: %w", err)
		}
		out = append(out, items...)

		if len(page.LastEvaluatedKey) == 0 {
			return out, nil
		}
		startKey = page.LastEvaluatedKey
	}
}

func toRows(items []db.StageEventItem) []StageEventRow {
	rows := make([]StageEventRow, 0, len(items))
	for _, it := range items {
		rows = append(rows, StageEventRow{
			OrderID:    it.OrderID,
			OrderName:  it.OrderName,
			StageKey:   it.StageKey,
			StageName:  it.StageName,
			StampedAt:  it.Timestamp,
			Staff:      it.Staff,
			RecordedAt: it.RecordedAt,
		})
	}
	return rows
}

func (h *StageEventsETL) writeParquetToS3(ctx context.Context, key string, rows []StageEventRow) error {
	localPath := filepath.Join(os.TempDir(), "stage_events_"+uuid.NewString()+".parquet")
	defer func() { _ = os.Remove(localPath) }()

	fw, err := local.NewLocalFileWriter(localPath)
	if err != nil {
		return fmt.Errorf("parquet file writer: %w", err)
	}

	pw, err := writer.NewParquetWriter(fw, new(StageEventRow), 1)
	if err != nil {
		_ = fw.Close()
		return fmt.Errorf("parquet writer: %w", err)
	}
	pw.RowGroupSize = 128 * 1024 * 1024
	pw.PageSize = 8 * 1024
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, row := range rows {
		if err := pw.Write(row); err != nil {
			_ = pw.WriteStop()
			_ = fw.Close()
			return fmt.Errorf("parquet write row: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		_ = fw.Close()
		return fmt.Errorf("parquet write stop: %w", err)
	}
	if err := fw.Close(); err != nil {
		return fmt.Errorf("parquet close: %w", err)
	}

	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("read parquet tmp: %w", err)
	}

	_, err = h.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(h.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
		ACL:         s3types.ObjectCannedACLPrivate,
	})
	if err != nil {
		return fmt.Errorf("s3 putobject: %w", err)
	}
	return nil
}

// addPartition copies the table's storage descriptor onto the dt location.
func (h *StageEventsETL) addPartition(ctx context.Context, prefix, dt string) error {
	if h.glue == nil || h.cfg.GlueDatabase == "" || h.cfg.GlueTable == "" {
		return nil
	}

	tbl, err := h.glue.GetTable(ctx, &glue.GetTableInput{
		DatabaseName: aws.String(h.cfg.GlueDatabase),
		Name:         aws.String(h.cfg.GlueTable),
	})
	if err != nil {
		return fmt.Errorf("get table: %w", err)
	}
	if tbl.Table == nil || tbl.Table.StorageDescriptor == nil {
		return fmt.Errorf("table %s.%s has no storage descriptor", h.cfg.GlueDatabase, h.cfg.GlueTable)
	}

	sd := *tbl.Table.StorageDescriptor
	sd.Location = aws.String(fmt.Sprintf("s3://%s/%sdt=%s/", h.cfg.Bucket, prefix, dt))

	_, err = h.glue.CreatePartition(ctx, &glue.CreatePartitionInput{
		DatabaseName: aws.String(h.cfg.GlueDatabase),
		TableName:    aws.String(h.cfg.GlueTable),
		PartitionInput: &gluetypes.PartitionInput{
			Values:            []string{dt},
			StorageDescriptor: &sd,
		},
	})
	var exists *gluetypes.AlreadyExistsException
	if errors.As(err, &exists) {
		return nil
	}
	return err
}

func partitionKey(prefix, dt string) string {
	return fmt.Sprintf("%sdt=%s/part-0000.parquet", prefix, dt)
}

func ensureTrailingSlash(s string) string {
	if s == "" || strings.HasSuffix(s, "/") {
		return s
	}
	return s + "/"
}

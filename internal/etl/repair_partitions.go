package etl

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	athenatypes "github.com/aws/aws-sdk-go-v2/service/athena/types"
	"go.uber.org/zap"
)

type Resp struct {
	Ok        bool   `json:"ok"`
	QueryID   string `json:"query_id,omitempty"`
	State     string `json:"state,omitempty"`
	Database  string `json:"database,omitempty"`
	Table     string `json:"table,omitempty"`
	Workgroup string `json:"workgroup,omitempty"`
	Output    string `json:"output,omitempty"`
}

type AthenaQuerier interface {
	StartQueryExecution(ctx context.Context, params *athena.StartQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.StartQueryExecutionOutput, error)
	GetQueryExecution(ctx context.Context, params *athena.GetQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.GetQueryExecutionOutput, error)
}

type RepairConfig struct {
	Database  string
	Table     string
	Workgroup string
	Output    string // s3://bucket/prefix/
}

var tableName = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

type PartitionRepairer struct {
	ath  AthenaQuerier
	cfg  RepairConfig
	log  *zap.Logger
	poll time.Duration
	wait time.Duration
}

func NewPartitionRepairer(ath AthenaQuerier, cfg RepairConfig, log *zap.Logger) *PartitionRepairer {
	if cfg.Workgroup == "" {
		cfg.Workgroup = "primary"
	}
	return &PartitionRepairer{ath: ath, cfg: cfg, log: log, poll: 2 * time.Second, wait: 60 * time.Second}
}

// Handle runs MSCK REPAIR TABLE and polls until Athena reports a final state.
func (r *PartitionRepairer) Handle(ctx context.Context) (Resp, error) {
	cfg := r.cfg
	if !strings.HasPrefix(cfg.Output, "s3://") {
		return Resp{}, fmt.Errorf("ATHENA_OUTPUT must start with s3://")
	}
	if !tableName.MatchString(cfg.Table) {
		return Resp{}, fmt.Errorf("invalid athena table name %q", cfg.Table)
	}

	startOut, err := r.ath.StartQueryExecution(ctx, &athena.StartQueryExecutionInput{
		QueryString: aws.String(fmt.Sprintf("MSCK REPAIR TABLE %s;", cfg.Table)),
		QueryExecutionContext: &athenatypes.QueryExecutionContext{
			Database: aws.String(cfg.Database),
		},
		WorkGroup: aws.String(cfg.Workgroup),
		ResultConfiguration: &athenatypes.ResultConfiguration{
			OutputLocation: aws.String(cfg.Output),
		},
	})
	if err != nil {
		return Resp{}, fmt.Errorf("StartQueryExecution: %w", err)
	}

	qid := aws.ToString(startOut.QueryExecutionId)
	log := r.log.With(zap.String("query_id", qid), zap.String("table", cfg.Table))
	log.Info("repair started", zap.String("database", cfg.Database), zap.String("workgroup", cfg.Workgroup))

	deadline := time.Now().Add(r.wait)
	for time.Now().Before(deadline) {
		st, err := r.ath.GetQueryExecution(ctx, &athena.GetQueryExecutionInput{
			QueryExecutionId: aws.String(qid),
		})
		if err != nil {
			return Resp{QueryID: qid}, fmt.Errorf("GetQueryExecution: %w", err)
		}

		var state athenatypes.QueryExecutionState
		var reason string
		if st.QueryExecution != nil && st.QueryExecution.Status != nil {
			state = st.QueryExecution.Status.State
			reason = aws.ToString(st.QueryExecution.Status.StateChangeReason)
		}

		switch state {
		case athenatypes.QueryExecutionStateSucceeded:
			log.Info("repair succeeded")
			return Resp{
				Ok:        true,
				QueryID:   qid,
				State:     string(state),
				Database:  cfg.Database,
				Table:     cfg.Table,
				Workgroup: cfg.Workgroup,
				Output:    cfg.Output,
			}, nil
		case athenatypes.QueryExecutionStateFailed, athenatypes.QueryExecutionStateCancelled:
			log.Error("repair failed", zap.String("state", string(state)), zap.String("reason", reason))
			return Resp{QueryID: qid, State: string(state)}, fmt.Errorf("repair %s: %s", state, reason)
		}

		select {
		case <-ctx.Done():
			return Resp{QueryID: qid}, ctx.Err()
		case <-time.After(r.poll):
		}
	}

	return Resp{QueryID: qid, State: "TIMEOUT"}, fmt.Errorf("repair timed out waiting for qid=%s", qid)
}

package notify

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/guiwebcoder/shopify-order-timestamp-webhook/internal/db"
	"github.com/guiwebcoder/shopify-order-timestamp-webhook/internal/stages"
)

type DynamoPutter interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// JournalSink records every event in DynamoDB for the analytics export.
// The first write for an (order, stage) wins, like the metafield itself.
type JournalSink struct {
	ddb   DynamoPutter
	table string
	now   func() time.Time
}

func NewJournalSink(ddb DynamoPutter, table string) *JournalSink {
	return &JournalSink{ddb: ddb, table: table, now: time.Now}
}

func (s *JournalSink) Name() string { return "journal" }

func (s *JournalSink) Send(ctx context.Context, ev stages.Event) error {
	item, err := attributevalue.MarshalMap(db.NewStageEventItem(ev, s.now()))
	if err != nil {
		return err
	}

	_, err = s.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			return nil
		}
		return err
	}
	return nil
}

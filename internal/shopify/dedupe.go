package shopify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/redis/go-redis/v9"
)

const DefaultDedupeTTL = 7 * 24 * time.Hour

// Deduper claims webhook ids so Shopify redeliveries are processed once.
// Claim reports duplicate=true when the id was already claimed.
type Deduper interface {
	Claim(ctx context.Context, webhookID, shopDomain, topic string) (duplicate bool, err error)
	Release(ctx context.Context, webhookID string) error
}

// NopDeduper never reports duplicates.
type NopDeduper struct{}

func (NopDeduper) Claim(context.Context, string, string, string) (bool, error) { return false, nil }
func (NopDeduper) Release(context.Context, string) error { return nil }

type DynamoPutDeleter interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// DynamoDeduper stores WH#<id> items with an ExpiresAt TTL attribute.
type DynamoDeduper struct {
	ddb   DynamoPutDeleter
	table string
	ttl   time.Duration
	now   func() time.Time
}

func NewDynamoDeduper(ddb DynamoPutDeleter, table string, ttl time.Duration) *DynamoDeduper {
	if ttl <= 0 {
		ttl = DefaultDedupeTTL
	}
	return &DynamoDeduper{ddb: ddb, table: table, ttl: ttl, now: time.Now}
}

func (d *DynamoDeduper) Claim(ctx context.Context, webhookID, shopDomain, topic string) (bool, error) {
	webhookID = strings.TrimSpace(webhookID)
	if webhookID == "" || d.table == "" {
		return false, nil
	}

	now := d.now().UTC()
	_, err := d.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.table),
		Item: map[string]types.AttributeValue{
			"PK":        &types.AttributeValueMemberS{Value: "WH#" + webhookID},
			"Shop":      &types.AttributeValueMemberS{Value: shopDomain},
			"Topic":     &types.AttributeValueMemberS{Value: topic},
			"CreatedAt": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
			"ExpiresAt": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", now.Add(d.ttl).Unix())},
		},
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			return true, nil
		}
		return false, err
	}
	return false, nil
}

func (d *DynamoDeduper) Release(ctx context.Context, webhookID string) error {
	webhookID = strings.TrimSpace(webhookID)
	if webhookID == "" || d.table == "" {
		return nil
	}
	_, err := d.ddb.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(d.table),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: "WH#" + webhookID},
		},
	})
	return err
}

type RedisSetNXDeleter interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisDeduper claims ids with SET NX EX under shopify:webhook:<id>.
type RedisDeduper struct {
	rdb RedisSetNXDeleter
	ttl time.Duration
}

func NewRedisDeduper(rdb RedisSetNXDeleter, ttl time.Duration) *RedisDeduper {
	if ttl <= 0 {
		ttl = DefaultDedupeTTL
	}
	return &RedisDeduper{rdb: rdb, ttl: ttl}
}

func (d *RedisDeduper) Claim(ctx context.Context, webhookID, shopDomain, topic string) (bool, error) {
	webhookID = strings.TrimSpace(webhookID)
	if webhookID == "" {
		return false, nil
	}
	ok, err := d.rdb.SetNX(ctx, redisDedupeKey(webhookID), shopDomain+" "+topic, d.ttl).Result()
	if err != nil {
		return false, err
	}
	return !ok, nil
}

func (d *RedisDeduper) Release(ctx context.Context, webhookID string) error {
	webhookID = strings.TrimSpace(webhookID)
	if webhookID == "" {
		return nil
	}
	return d.rdb.Del(ctx, redisDedupeKey(webhookID)).Err()
}

func redisDedupeKey(webhookID string) string {
	return "shopify:webhook:" + webhookID
}

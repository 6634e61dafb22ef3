package shopify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDynamo struct {
	items   map[string]map[string]types.AttributeValue
	putErr  error
	deleted []string
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	pk := in.Item["PK"].(*types.AttributeValueMemberS).Value
	if _, ok := f.items[pk]; ok && in.ConditionExpression != nil {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("exists")}
	}
	f.items[pk] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	pk := in.Key["PK"].(*types.AttributeValueMemberS).Value
	delete(f.items, pk)
	f.deleted = append(f.deleted, pk)
	return &dynamodb.DeleteItemOutput{}, nil
}

func TestDynamoDeduperClaim(t *testing.T) {
	f := &fakeDynamo{items: map[string]map[string]types.AttributeValue{}}
	d := NewDynamoDeduper(f, "dedupe", 0)
	d.now = func() time.Time { return time.Unix(1700000000, 0) }
	ctx := context.Background()

	dup, err := d.Claim(ctx, "wh-1", "demo.myshopify.com", "orders/updated")
	require.NoError(t, err)
	assert.False(t, dup)

	item := f.items["WH#wh-1"]
	require.NotNil(t, item)
	assert.Equal(t, "1700604800", item["ExpiresAt"].(*types.AttributeValueMemberN).Value)
	assert.Equal(t, "orders/updated", item["Topic"].(*types.AttributeValueMemberS).Value)

	dup, err = d.Claim(ctx, "wh-1", "demo.myshopify.com", "orders/updated")
	require.NoError(t, err)
	assert.True(t, dup)

	require.NoError(t, d.Release(ctx, "wh-1"))
	assert.Equal(t, []string{"WH#wh-1"}, f.deleted)

	dup, err = d.Claim(ctx, "wh-1", "demo.myshopify.com", "orders/updated")
	require.NoError(t, err)
	assert.False(t, dup)
}

func TestDynamoDeduperSkipsWithoutIDOrTable(t *testing.T) {
	f := &fakeDynamo{items: map[string]map[string]types.AttributeValue{}, putErr: errors.New("should not be called")}

	dup, err := NewDynamoDeduper(f, "dedupe", time.Hour).Claim(context.Background(), " ", "s", "t")
	require.NoError(t, err)
	assert.False(t, dup)

	dup, err = NewDynamoDeduper(f, "", time.Hour).Claim(context.Background(), "wh", "s", "t")
	require.NoError(t, err)
	assert.False(t, dup)
}

func TestDynamoDeduperError(t *testing.T) {
	f := &fakeDynamo{items: map[string]map[string]types.AttributeValue{}, putErr: errors.New("throttled")}
	_, err := NewDynamoDeduper(f, "dedupe", time.Hour).Claim(context.Background(), "wh", "s", "t")
	require.EqualError(t, err, "throttled")
}

type fakeRedis struct {
	keys map[string]time.Duration
}

func (f *fakeRedis) SetNX(_ context.Context, key string, _ interface{}, exp time.Duration) *redis.BoolCmd {
	if _, ok := f.keys[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.keys[key] = exp
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, k := range keys {
		delete(f.keys, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func TestRedisDeduper(t *testing.T) {
	f := &fakeRedis{keys: map[string]time.Duration{}}
	d := NewRedisDeduper(f, time.Hour)
	ctx := context.Background()

	dup, err := d.Claim(ctx, "wh-9", "shop", "orders/updated")
	require.NoError(t, err)
	assert.False(t, dup)
	assert.Equal(t, time.Hour, f.keys["shopify:webhook:wh-9"])

	dup, err = d.Claim(ctx, "wh-9", "shop", "orders/updated")
	require.NoError(t, err)
	assert.True(t, dup)

	require.NoError(t, d.Release(ctx, "wh-9"))
	assert.Empty(t, f.keys)

	dup, err = d.Claim(ctx, "", "shop", "orders/updated")
	require.NoError(t, err)
	assert.False(t, dup)
}

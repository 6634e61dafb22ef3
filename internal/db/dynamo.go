package db

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// AWS loads the default credential chain once (the Lambda execution role
// when deployed) and hands out service clients built from it.
type AWS struct {
	once sync.Once
	cfg  aws.Config
	err  error
}

func (a *AWS) Config(ctx context.Context) (aws.Config, error) {
	a.once.Do(func() {
		a.cfg, a.err = config.LoadDefaultConfig(ctx)
	})
	return a.cfg, a.err
}

func (a *AWS) Dynamo(ctx context.Context) (*dynamodb.Client, error) {
	cfg, err := a.Config(ctx)
	if err != nil {
		return nil, err
	}
	return dynamodb.NewFromConfig(cfg), nil
}

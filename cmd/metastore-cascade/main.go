// Command metastore-cascade is a Lambda function that deletes the attribute
// documents of owners removed from their DynamoDB tables.
//
// Configuration comes from the environment:
//
//	METASTORE_TABLE             documents table (default attribute_documents)
//	METASTORE_CASCADE_BINDINGS  owner tables, e.g. "users=user,posts=post:post_id"
//	METASTORE_VERBOSE           log at debug level
package main

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/spf13/viper"

	"github.com/roach88/metastore/internal/cascade"
	"github.com/roach88/metastore/internal/store/dynamo"
)

func main() {
	vip := viper.New()
	vip.SetEnvPrefix("METASTORE")
	vip.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	vip.AutomaticEnv()

	logLevel := slog.LevelInfo
	if vip.GetBool("verbose") {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	bindings, err := cascade.ParseBindings(vip.GetString("cascade-bindings"))
	if err != nil {
		logger.Error("invalid cascade bindings", "error", err)
		os.Exit(1)
	}

	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	st := dynamo.New(dynamodb.NewFromConfig(cfg), dynamo.Config{
		Table: vip.GetString("table"),
	})
	h := cascade.NewHandler(st, bindings, logger)

	lambda.Start(h.HandleOwnerRemoval)
}

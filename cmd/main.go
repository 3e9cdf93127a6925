package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awssns "github.com/aws/aws-sdk-go-v2/service/sns"

	"chatbank-agent/internal/app"
	"chatbank-agent/internal/config"
	"chatbank-agent/internal/integrations/notify"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	if cfg.Notify.TopicARN == "" {
		slog.Error("NOTIFY_TOPIC_ARN is required")
		os.Exit(1)
	}

	// ---- AWS SDK config ----
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Follow-up delivery ----
	publisher, err := notify.NewPublisher(awssns.NewFromConfig(awsCfg), cfg.Notify.TopicARN)
	if err != nil {
		slog.Error("failed to create SNS publisher", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	a, err := app.New(ctx, cfg, app.Deps{AWS: awsCfg, Deliver: publisher.Deliver})
	if err != nil {
		slog.Error("failed to build app", "err", err)
		os.Exit(1)
	}

	// The execution environment freezes once the handler returns, so the
	// second phase of every reply is published before the invocation ends.
	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		resp, err := a.Handler.Handle(ctx, req)
		a.FollowUps.Wait()
		return resp, err
	})
}

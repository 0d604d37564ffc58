package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"tasting-log/handler"
	"tasting-log/internal/config"
	"tasting-log/internal/integrations/line"
	"tasting-log/internal/integrations/paramstore"
	"tasting-log/internal/integrations/recordstore"
	"tasting-log/internal/repository"
	"tasting-log/internal/usecase"
)

func main() {
	ctx := context.Background()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	// ---- Configuration (read only here) ----
	cfg, err := config.Load()
	if err != nil {
		fatal("failed to load configuration", err)
	}

	// ---- AWS SDK config ----
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		fatal("failed to load AWS config", err)
	}

	// ---- Clients ----
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		fatal("failed to create SSM client", err)
	}

	lineClient, err := line.NewClient(ssmClient, cfg.ParamPrefix, line.WithBaseURL(cfg.LineAPIBaseURL))
	if err != nil {
		fatal("failed to create LINE client", err)
	}
	verifier, err := line.NewVerifier(ssmClient, cfg.ParamPrefix)
	if err != nil {
		fatal("failed to create signature verifier", err)
	}

	store, err := recordstore.NewClient(cfg.ForwardURL, recordstore.WithTimeout(cfg.ForwardTimeout))
	if err != nil {
		fatal("failed to create record store client", err)
	}

	// ---- Pipeline ----
	logService, err := usecase.NewLogService(store, lineClient, cfg.CommandPrefix)
	if err != nil {
		fatal("failed to create log service", err)
	}

	var eventHandler usecase.EventHandler = logService
	if cfg.LedgerEnabled() {
		ledger, err := repository.New(awsdynamodb.NewFromConfig(awsCfg), cfg.LedgerTable, cfg.LedgerTTL)
		if err != nil {
			fatal("failed to create event ledger", err)
		}
		eventHandler, err = usecase.NewDedupHandler(ledger, logService)
		if err != nil {
			fatal("failed to create dedup handler", err)
		}
	}

	dispatcher, err := usecase.NewDispatcher(eventHandler, cfg.MaxConcurrentEvents)
	if err != nil {
		fatal("failed to create dispatcher", err)
	}
	webhookService, err := usecase.NewWebhookService(verifier, dispatcher)
	if err != nil {
		fatal("failed to create webhook service", err)
	}

	// ---- Handler ----
	h, err := handler.NewHandler(webhookService)
	if err != nil {
		fatal("failed to create handler", err)
	}

	slog.Info("tasting-log ready",
		"command_prefix", cfg.CommandPrefix,
		"forward_timeout", cfg.ForwardTimeout.String(),
		"ledger_enabled", cfg.LedgerEnabled(),
	)
	lambda.Start(h.Handle)
}

func fatal(msg string, err error) {
	slog.Error(msg, "err", err)
	os.Exit(1)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"diagram2code/app/config"
	"diagram2code/app/usecase"
	"diagram2code/internal/domain/repository"
	"diagram2code/internal/infrastructure/encoder"
	"diagram2code/internal/infrastructure/llm"
	"diagram2code/internal/infrastructure/metrics"
	"diagram2code/internal/infrastructure/provisioner"
	"diagram2code/internal/infrastructure/store/filesystem"
	"diagram2code/internal/infrastructure/store/inmemory"
	mongorepo "diagram2code/internal/infrastructure/store/mongodb"
	"diagram2code/internal/infrastructure/transport"
	"diagram2code/internal/infrastructure/validator"
)

func main() {
	// load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// AWS clients; every call is attempted once
	awsCfg, err := loadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("aws config failed", "err", err)
		log.Fatalf("aws config: %v", err)
	}
	bedrockClient := bedrockruntime.NewFromConfig(awsCfg, func(o *bedrockruntime.Options) {
		o.Region = cfg.BedrockRegion()
		o.Retryer = aws.NopRetryer{}
	})
	cfnClient := cloudformation.NewFromConfig(awsCfg, func(o *cloudformation.Options) {
		o.Retryer = aws.NopRetryer{}
	})
	logger.Info("aws clients ready",
		"region", cfg.AWS.Region,
		"bedrock_region", cfg.BedrockRegion(),
		"model", cfg.Bedrock.ModelID,
		"static_credentials", cfg.HasStaticCredentials(),
	)

	// Repositories
	var (
		conversionRepo repository.ConversionRepository
		deploymentRepo repository.DeploymentRepository
		mongoClient    *mongo.Client
	)
	if cfg.Mongo.URI != "" {
		mongoCtx, mongoCancel := context.WithTimeout(ctx, 30*time.Second)
		mongoClient, err = mongo.Connect(mongoCtx, options.Client().ApplyURI(cfg.Mongo.URI))
		if err != nil {
			mongoCancel()
			logger.Error("mongo connect failed", "err", err)
			log.Fatalf("mongo connect: %v", err)
		}
		if err := mongoClient.Ping(mongoCtx, nil); err != nil {
			mongoCancel()
			logger.Error("mongo ping failed", "err", err)
			log.Fatalf("mongo ping: %v", err)
		}
		db := mongoClient.Database(cfg.Mongo.Database)
		conversionRepo = mongorepo.NewMongoConversionRepo(mongoCtx, db)
		deploymentRepo = mongorepo.NewMongoDeploymentRepo(mongoCtx, db)
		mongoCancel()
		logger.Info("connected to mongo", "database", cfg.Mongo.Database)
	} else {
		conversionRepo = inmemory.NewConversionRepository()
		deploymentRepo = inmemory.NewDeploymentRepository()
		logger.Info("mongo uri not set, keeping records in memory")
	}

	artifacts, err := filesystem.NewFileRepository(cfg.FileRepo.Dir)
	if err != nil {
		logger.Error("file repo init failed", "dir", cfg.FileRepo.Dir, "err", err)
		log.Fatalf("file repo: %v", err)
	}

	// Usecases / services
	hub := transport.NewEventHub(logger)

	conversionSvc := usecase.NewConversionService(
		encoder.NewImageEncoder(cfg.Upload.MaxImageBytes),
		llm.NewBedrockInterpreter(bedrockClient, llm.BedrockOptions{
			ModelID:          cfg.Bedrock.ModelID,
			AnthropicVersion: cfg.Bedrock.AnthropicVersion,
			MaxTokens:        cfg.Bedrock.MaxTokens,
			Language:         cfg.Bedrock.Language,
		}),
		validator.NewTemplateAnalyzer(),
		conversionRepo,
		deploymentRepo,
		artifacts,
		hub,
		logger,
		usecase.ConversionOptions{
			Parallel: cfg.Inference.Parallel,
			Timeout:  cfg.Inference.Timeout,
		},
	)

	deploymentSvc := usecase.NewDeploymentService(
		provisioner.NewCloudFormationProvisioner(cfnClient),
		conversionRepo,
		deploymentRepo,
		usecase.NewStackNamer(cfg.CloudFormation.StackPrefix, cfg.CloudFormation.ModelTag),
		hub,
		logger,
		cfg.CloudFormation.Timeout,
	)

	// Transport (HTTP handlers)
	handler := transport.NewConversionHandler(
		conversionSvc,
		deploymentSvc,
		hub,
		logger,
		cfg.Upload.MaxImageBytes,
		cfg.RequestTimeout(),
	)

	// Router and server
	r := mux.NewRouter()
	handler.RegisterRoutes(r)
	corsHandler := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)(r)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      corsHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if cfg.Metrics.Addr != "" {
		go func() {
			logger.Info("starting metrics server", "addr", cfg.Metrics.Addr)
			if err := metrics.StartMetricsServer(cfg.Metrics.Addr); err != nil {
				logger.Error("metrics server failed", "err", err)
			}
		}()
	}

	// Start HTTP server
	go func() {
		logger.Info("starting HTTP server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "err", err)
			cancel()
		}
	}()

	// OS signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutdown signal received")
	case <-ctx.Done():
		logger.Info("context cancelled")
	}

	// Shutdown sequence
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Info("closing event stream")
	hub.Close()

	logger.Info("shutting down http server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}

	if mongoClient != nil {
		logger.Info("disconnecting mongo")
		if err := mongoClient.Disconnect(shutdownCtx); err != nil {
			logger.Error("mongo disconnect error", "err", err)
		}
	}

	logger.Info("service stopped")
}

func loadAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWS.Region),
	}
	if cfg.HasStaticCredentials() {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWS.AccessKeyID, cfg.AWS.SecretAccessKey, cfg.AWS.SessionToken),
		))
	}
	return awsconfig.LoadDefaultConfig(ctx, opts...)
}

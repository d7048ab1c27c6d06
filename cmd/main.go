package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	awsbedrock "github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/joho/godotenv"

	"room-designer/handler"
	"room-designer/internal/integrations/bedrock"
	"room-designer/internal/integrations/openai"
	"room-designer/internal/integrations/paramstore"
	"room-designer/internal/integrations/s3store"
	"room-designer/internal/prompt"
	"room-designer/internal/repository"
	"room-designer/internal/usecase"
)

func main() {
	ctx := context.Background()

	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env", "err", err)
	}
	setupLogging(envString("LOG_LEVEL", "info"))

	// ---- Configuration (read only here) ----
	bucket := mustEnv("BLOB_BUCKET")
	sessionTTL := envDuration("SESSION_TTL", repository.DefaultRetention)
	accessURLTTL := envDuration("ACCESS_URL_TTL", time.Hour)
	maxUploadBytes := int64(envInt("MAX_UPLOAD_BYTES", int(handler.DefaultMaxUploadBytes)))
	allowedOrigins := envList("CORS_ORIGINS", handler.DefaultAllowedOrigins)

	// ---- AWS SDK config ----
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	// Originals must be readable back in full, so the read limit follows the upload cap.
	blobs, err := s3store.NewFromS3(awss3.NewFromConfig(cfg), bucket,
		s3store.WithMaxObjectBytes(max(maxUploadBytes, s3store.DefaultMaxObjectBytes)))
	if err != nil {
		slog.Error("failed to create blob store", "err", err)
		os.Exit(1)
	}

	checkpoints, err := newCheckpointStore(ctx, cfg, sessionTTL)
	if err != nil {
		slog.Error("failed to create checkpoint store", "err", err)
		os.Exit(1)
	}

	bedrockRegion := envString("BEDROCK_REGION", "")
	bedrockClient := awsbedrock.NewFromConfig(cfg, func(o *awsbedrock.Options) {
		if bedrockRegion != "" {
			o.Region = bedrockRegion
		}
	})

	generator, err := bedrock.NewImageClient(bedrockClient,
		bedrock.WithImageModel(envString("IMAGE_MODEL_ID", "")),
		bedrock.WithStrength(envFloat("IMAGE_STRENGTH", bedrock.DefaultImageStrength)),
	)
	if err != nil {
		slog.Error("failed to create image generator", "err", err)
		os.Exit(1)
	}

	suggester, err := newSuggester(cfg, bedrockClient)
	if err != nil {
		slog.Error("failed to create suggester", "err", err)
		os.Exit(1)
	}

	composer, err := newComposer(envString("PROMPT_VOCABULARY_FILE", ""))
	if err != nil {
		slog.Error("failed to load prompt vocabulary", "err", err)
		os.Exit(1)
	}

	// ---- Pipeline ----
	suggestStage, err := usecase.NewSuggestionStage(suggester)
	if err != nil {
		slog.Error("failed to create suggestion stage", "err", err)
		os.Exit(1)
	}
	renderStage, err := usecase.NewRenderStage(generator, blobs, accessURLTTL)
	if err != nil {
		slog.Error("failed to create render stage", "err", err)
		os.Exit(1)
	}
	pipeline, err := usecase.NewPipeline(ctx, composer, suggestStage, renderStage)
	if err != nil {
		slog.Error("failed to compile pipeline", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	sessions, err := usecase.NewSessionService(blobs, checkpoints, pipeline, blobs, accessURLTTL)
	if err != nil {
		slog.Error("failed to create session service", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewHandler(sessions, handler.Options{
		MaxUploadBytes: maxUploadBytes,
		AllowedOrigins: allowedOrigins,
	})
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		lambda.Start(h.Handle)
		return
	}
	if err := serve(envString("HTTP_ADDR", ":8000"), h); err != nil {
		slog.Error("http server failed", "err", err)
		os.Exit(1)
	}
}

func newCheckpointStore(ctx context.Context, cfg aws.Config, retention time.Duration) (usecase.CheckpointStore, error) {
	switch backend := envString("CHECKPOINT_BACKEND", "dynamodb"); backend {
	case "dynamodb":
		return repository.NewDynamoStore(awsdynamodb.NewFromConfig(cfg), mustEnv("STATE_TABLE"), retention)
	case "redis":
		client, err := repository.DialRedis(ctx, mustEnv("REDIS_URL"))
		if err != nil {
			return nil, err
		}
		return repository.NewRedisStore(client, retention)
	default:
		return nil, fmt.Errorf("unknown CHECKPOINT_BACKEND %q", backend)
	}
}

func newSuggester(cfg aws.Config, bedrockClient *awsbedrock.Client) (usecase.Suggester, error) {
	switch backend := envString("SUGGESTION_BACKEND", "bedrock"); backend {
	case "bedrock":
		return bedrock.NewSuggestClient(bedrockClient, bedrock.WithSuggestModel(envString("SUGGESTION_MODEL_ID", "")))
	case "openai":
		params, err := paramstore.New(awsssm.NewFromConfig(cfg), paramstore.WithPrefix(mustEnv("PARAM_PREFIX")))
		if err != nil {
			return nil, err
		}
		return openai.NewClient(params, openai.WithModel(envString("OPENAI_MODEL", "")))
	default:
		return nil, fmt.Errorf("unknown SUGGESTION_BACKEND %q", backend)
	}
}

func newComposer(vocabularyFile string) (*prompt.Composer, error) {
	if vocabularyFile == "" {
		return prompt.NewComposer()
	}
	return prompt.LoadComposer(vocabularyFile)
}

// serve runs a plain HTTP server until SIGINT or SIGTERM.
func serve(addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func setupLogging(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})))
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		slog.Warn("invalid duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

func envList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

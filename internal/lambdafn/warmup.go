package lambdafn

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"golang.org/x/sync/errgroup"

	"github.com/MeKo-Tech/lotra/internal/route"
)

const (
	// WarmupSource identifies scheduled warmup events.
	WarmupSource = "warmup"

	// WarmupDelay keeps warmed instances alive long enough to overlap.
	WarmupDelay = 75 * time.Millisecond
)

// WarmupEvent is the scheduled keep-warm payload.
type WarmupEvent struct {
	Source      string `json:"source"`
	Concurrency int    `json:"concurrency"`
}

// WarmupResponse reports how many instances were warmed.
type WarmupResponse struct {
	Status          string `json:"status"`
	InstancesWarmed int    `json:"instancesWarmed"`
}

type invoker interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// Warmer handles warmup events, optionally fanning out asynchronous
// self-invocations to keep several instances hot.
type Warmer struct {
	// Client is used for self-invocation. When nil, one is created from the
	// default AWS configuration on first use.
	Client invoker
	// FunctionName defaults to AWS_LAMBDA_FUNCTION_NAME.
	FunctionName string
	// Delay overrides WarmupDelay when positive.
	Delay time.Duration
}

// IsWarmupEvent reports whether event is a warmup event.
func IsWarmupEvent(event json.RawMessage) (*WarmupEvent, bool) {
	var ev struct {
		Source      *string  `json:"source"`
		Concurrency *float64 `json:"concurrency"`
	}
	if err := json.Unmarshal(event, &ev); err != nil {
		return nil, false
	}
	if ev.Source == nil || *ev.Source != WarmupSource {
		return nil, false
	}

	warmup := &WarmupEvent{Source: WarmupSource}
	if ev.Concurrency != nil && *ev.Concurrency > 0 {
		warmup.Concurrency = int(*ev.Concurrency)
	}
	return warmup, true
}

// Handle warms the model in this instance and self-invokes Concurrency times.
func (w *Warmer) Handle(ctx context.Context, router *route.Router, warmup *WarmupEvent) WarmupResponse {
	if err := router.Warmup(ctx); err != nil {
		slog.Warn("Model warmup failed", "error", err)
	}

	warmed := 1
	if warmup.Concurrency > 0 {
		if err := w.selfInvoke(ctx, warmup.Concurrency); err != nil {
			slog.Warn("Self-invocation failed", "error", err, "count", warmup.Concurrency)
		} else {
			warmed += warmup.Concurrency
		}
	}

	delay := w.Delay
	if delay <= 0 {
		delay = WarmupDelay
	}
	select {
	case <-time.After(delay):
	case <-ctx.Done():
	}

	return WarmupResponse{Status: "warm", InstancesWarmed: warmed}
}

func (w *Warmer) selfInvoke(ctx context.Context, count int) error {
	client := w.Client
	if client == nil {
		cfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return err
		}
		client = lambda.NewFromConfig(cfg)
	}

	name := w.FunctionName
	if name == "" {
		name = os.Getenv("AWS_LAMBDA_FUNCTION_NAME")
	}

	// Children get concurrency 0 so they do not fan out again.
	payload, err := json.Marshal(WarmupEvent{Source: WarmupSource})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for range count {
		g.Go(func() error {
			_, err := client.Invoke(gctx, &lambda.InvokeInput{
				FunctionName:   aws.String(name),
				InvocationType: types.InvocationTypeEvent,
				Payload:        payload,
			})
			return err
		})
	}
	return g.Wait()
}

// Package remote implements a translation backend that delegates to a
// deployed lotra Lambda function.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/tidwall/gjson"

	"github.com/MeKo-Tech/lotra/internal/lang"
)

// DefaultTimeout bounds a single invocation when Config.Timeout is zero.
const DefaultTimeout = 60 * time.Second

// ErrNoFunction is returned when no function name is configured.
var ErrNoFunction = errors.New("lambda function name is required")

// Config configures a LambdaBackend.
type Config struct {
	FunctionName string
	Region       string
	Timeout      time.Duration
}

// invoker is the subset of *lambda.Client the backend uses.
type invoker interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// LambdaBackend translates by invoking a Lambda function synchronously.
type LambdaBackend struct {
	client  invoker
	name    string
	timeout time.Duration
}

type invokeRequest struct {
	Text       string `json:"text"`
	SrcLang    string `json:"src_lang"`
	TgtLang    string `json:"tgt_lang"`
	AutoDetect bool   `json:"auto_detect"`
}

// NewLambdaBackend loads the default AWS configuration and creates a backend.
func NewLambdaBackend(ctx context.Context, cfg Config) (*LambdaBackend, error) {
	if cfg.FunctionName == "" {
		return nil, ErrNoFunction
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return newLambdaBackend(lambda.NewFromConfig(awsCfg), cfg), nil
}

func newLambdaBackend(client invoker, cfg Config) *LambdaBackend {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &LambdaBackend{client: client, name: cfg.FunctionName, timeout: timeout}
}

// Translate sends one explicit-direction request to the function.
func (b *LambdaBackend) Translate(ctx context.Context, text string, src, tgt lang.Code) (string, error) {
	payload, err := json.Marshal(invokeRequest{
		Text:    text,
		SrcLang: string(src),
		TgtLang: string(tgt),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	start := time.Now()
	result, err := b.client.Invoke(ctx, &lambda.InvokeInput{
		FunctionName: aws.String(b.name),
		Payload:      payload,
	})
	if err != nil {
		return "", fmt.Errorf("failed to invoke %s: %w", b.name, err)
	}
	slog.Debug("Lambda invoked", "function", b.name, "duration", time.Since(start))

	if result.FunctionError != nil {
		msg := gjson.GetBytes(result.Payload, "errorMessage").String()
		if msg == "" {
			msg = *result.FunctionError
		}
		return "", fmt.Errorf("lambda error: %s", msg)
	}

	return parseResponse(result.Payload)
}

func parseResponse(payload []byte) (string, error) {
	if !gjson.ValidBytes(payload) {
		return "", errors.New("failed to parse response: invalid JSON")
	}
	resp := gjson.ParseBytes(payload)
	if errMsg := resp.Get("error").String(); errMsg != "" {
		return "", fmt.Errorf("translator error: %s", errMsg)
	}
	if s := resp.Get("success"); s.Exists() && !s.Bool() {
		return "", errors.New("translator error: request failed")
	}
	tr := resp.Get("translation")
	if !tr.Exists() {
		return "", errors.New("failed to parse response: missing translation")
	}
	return tr.String(), nil
}

// Close is a no-op; the AWS client holds no resources that need releasing.
func (b *LambdaBackend) Close() error {
	return nil
}

// Name identifies the backend kind.
func (b *LambdaBackend) Name() string {
	return "lambda"
}

// FunctionName returns the configured function.
func (b *LambdaBackend) FunctionName() string {
	return b.name
}

package route

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/MeKo-Tech/lotra/internal/detect"
	"github.com/MeKo-Tech/lotra/internal/lang"
)

// Backend is a translation engine. Implementations must be safe for
// concurrent use.
type Backend interface {
	Translate(ctx context.Context, text string, src, tgt lang.Code) (string, error)
	Close() error
}

// Warmer is implemented by backends that can preload their model.
type Warmer interface {
	Warmup(ctx context.Context) error
}

// Result is the outcome of a routed translation.
type Result struct {
	Text        string    `json:"text"`
	Translation string    `json:"translation"`
	Source      lang.Code `json:"src_lang"`
	Target      lang.Code `json:"tgt_lang"`
	Detected    lang.Code `json:"detected_lang,omitempty"`
}

// Observer is called after every routed request, successful or not.
type Observer func(dir Direction, elapsed time.Duration, err error)

// Router resolves the direction of each request and dispatches it to a
// backend.
type Router struct {
	backend  Backend
	logger   *slog.Logger
	observer Observer
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the logger used for request logging.
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithObserver registers a callback invoked after each request.
func WithObserver(o Observer) Option {
	return func(r *Router) {
		r.observer = o
	}
}

// NewRouter creates a Router over backend.
func NewRouter(backend Backend, opts ...Option) *Router {
	r := &Router{
		backend: backend,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Backend returns the backend the router dispatches to.
func (r *Router) Backend() Backend {
	return r.backend
}

// RouteAndTranslate resolves the direction of text under p and translates it.
// Direction failures are returned as *InvalidDirectionError without calling the
// backend; backend failures are returned as *ModelError. Surrounding
// whitespace is stripped before translation. The backend's output is returned
// unmodified.
func (r *Router) RouteAndTranslate(ctx context.Context, text string, p Policy) (*Result, error) {
	start := time.Now()

	text = strings.TrimSpace(text)
	if text == "" {
		err := &InvalidDirectionError{Reason: ReasonEmptyText}
		r.observe(Direction{}, start, err)
		return nil, err
	}

	if r.logger.Enabled(ctx, slog.LevelDebug) && p.AutoDetect {
		prof := detect.Scan(text)
		r.logger.Debug("Detecting language",
			"hangul", prof.Hangul, "kana", prof.Kana, "han", prof.Han, "latin", prof.Latin)
	}

	dir, err := Resolve(text, p)
	if err != nil {
		r.logger.Debug("Direction rejected", "error", err, "auto_detect", p.AutoDetect,
			"source", p.Source, "target", p.Target)
		r.observe(dir, start, err)
		return nil, err
	}

	req := Request{Text: text, Source: dir.Source, Target: dir.Target}
	out, err := r.backend.Translate(ctx, req.Text, req.Source, req.Target)
	if err != nil {
		var me *ModelError
		if !errors.As(err, &me) {
			me = &ModelError{Source: req.Source, Target: req.Target, Err: err}
		}
		r.logger.Error("Translation failed", "source", req.Source, "target", req.Target, "error", err)
		r.observe(dir, start, me)
		return nil, me
	}

	r.logger.Info("Translated text",
		"source", req.Source,
		"target", req.Target,
		"detected", dir.Detected,
		"chars", len([]rune(text)),
		"duration", time.Since(start))
	r.observe(dir, start, nil)

	return &Result{
		Text:        text,
		Translation: out,
		Source:      dir.Source,
		Target:      dir.Target,
		Detected:    dir.Detected,
	}, nil
}

// Translate is RouteAndTranslate returning only the translated string.
func (r *Router) Translate(ctx context.Context, text string, p Policy) (string, error) {
	res, err := r.RouteAndTranslate(ctx, text, p)
	if err != nil {
		return "", err
	}
	return res.Translation, nil
}

// Warmup preloads the backend model when the backend supports it.
func (r *Router) Warmup(ctx context.Context) error {
	if w, ok := r.backend.(Warmer); ok {
		return w.Warmup(ctx)
	}
	return nil
}

func (r *Router) observe(dir Direction, start time.Time, err error) {
	if r.observer != nil {
		r.observer(dir, time.Since(start), err)
	}
}

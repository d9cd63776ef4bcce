package nats

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/compliance-decoder/internal/core/domain"
	"github.com/kirillkom/compliance-decoder/internal/infrastructure/resilience"
)

const workerQueueGroup = "analyzers"

// Queue publishes analysis jobs, consumes them on the worker side and
// publishes finished results on a separate subject.
type Queue struct {
	conn           *nats.Conn
	analyzeSubject string
	resultSubject  string
	processTimeout time.Duration
	executor       *resilience.Executor
	logger         *slog.Logger
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	// ProcessTimeout bounds one handler invocation. Zero means no bound.
	ProcessTimeout     time.Duration
	ResilienceExecutor *resilience.Executor
	Logger             *slog.Logger
}

func New(url, analyzeSubject, resultSubject string) (*Queue, error) {
	return NewWithOptions(url, analyzeSubject, resultSubject, Options{})
}

func NewWithOptions(url, analyzeSubject, resultSubject string, options Options) (*Queue, error) {
	if strings.TrimSpace(analyzeSubject) == "" || strings.TrimSpace(resultSubject) == "" {
		return nil, fmt.Errorf("nats subjects must not be empty")
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(url, options.connectOptions(logger)...)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:           conn,
		analyzeSubject: analyzeSubject,
		resultSubject:  resultSubject,
		processTimeout: options.ProcessTimeout,
		executor:       options.ResilienceExecutor,
		logger:         logger,
	}, nil
}

func (o Options) connectOptions(logger *slog.Logger) []nats.Option {
	retry := true
	if o.RetryOnFailedConnect != nil {
		retry = *o.RetryOnFailedConnect
	}
	return []nats.Option{
		nats.Name("compliance-decoder"),
		nats.Timeout(durationOr(o.ConnectTimeout, 2*time.Second)),
		nats.ReconnectWait(durationOr(o.ReconnectWait, 2*time.Second)),
		nats.MaxReconnects(cmp.Or(max(o.MaxReconnects, 0), 60)),
		nats.RetryOnFailedConnect(retry),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	}
}

func durationOr(value, fallback time.Duration) time.Duration {
	if value > 0 {
		return value
	}
	return fallback
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishAnalysisRequested(ctx context.Context, uploadID string) error {
	return q.publish(ctx, q.analyzeSubject, []byte(uploadID))
}

func (q *Queue) PublishAnalysisCompleted(ctx context.Context, event domain.AnalysisEvent) error {
	payload, err := encodeEvent(event)
	if err != nil {
		return err
	}
	return q.publish(ctx, q.resultSubject, payload)
}

func (q *Queue) publish(ctx context.Context, subject string, payload []byte) error {
	send := func(context.Context) error {
		if err := q.conn.Publish(subject, payload); err != nil {
			return fmt.Errorf("nats publish %s: %w", subject, err)
		}
		return nil
	}
	if q.executor == nil {
		return wrapTemporaryIfNeeded(send(ctx))
	}
	return wrapTemporaryIfNeeded(q.executor.Execute(ctx, "nats.publish", send, classifyNATSError))
}

// SubscribeAnalysisRequested blocks until ctx is done, then drains the
// subscription so in-flight analyses finish.
func (q *Queue) SubscribeAnalysisRequested(ctx context.Context, handler func(context.Context, string) error) error {
	sub, err := q.conn.QueueSubscribe(q.analyzeSubject, workerQueueGroup, func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}
		uploadID := strings.TrimSpace(string(msg.Data))
		if uploadID == "" {
			q.logger.Warn("analysis_request_empty", "subject", msg.Subject)
			return
		}

		handlerCtx, cancel := q.handlerContext(ctx)
		defer cancel()
		if err := handler(handlerCtx, uploadID); err != nil {
			q.logger.Error("analysis_request_failed", "upload_id", uploadID, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func (q *Queue) handlerContext(parent context.Context) (context.Context, context.CancelFunc) {
	if q.processTimeout > 0 {
		return context.WithTimeout(parent, q.processTimeout)
	}
	return context.WithCancel(parent)
}

func encodeEvent(event domain.AnalysisEvent) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal analysis event: %w", err)
	}
	return payload, nil
}

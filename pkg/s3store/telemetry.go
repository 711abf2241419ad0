package s3store

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"s3snap/pkg/object"
)

const instrumentationName = "s3snap/pkg/s3store"

var (
	tracer = otel.Tracer(instrumentationName)

	errorCount    metric.Int64Counter
	downloadCount metric.Int64Counter
	downloadBytes metric.Int64Counter
	uploadCount   metric.Int64Counter
	uploadBytes   metric.Int64Counter
)

func init() {
	meter := otel.Meter(instrumentationName)

	var err error
	errorCount, err = meter.Int64Counter(
		"s3snap.s3.errors",
		metric.WithDescription("Number of failed S3 calls"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create errors counter: %w", err))
	}

	downloadCount, err = meter.Int64Counter(
		"s3snap.s3.download.count",
		metric.WithDescription("Number of S3 downloads"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create download.count counter: %w", err))
	}

	downloadBytes, err = meter.Int64Counter(
		"s3snap.s3.download.bytes",
		metric.WithDescription("Bytes downloaded from S3"),
		metric.WithUnit("By"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create download.bytes counter: %w", err))
	}

	uploadCount, err = meter.Int64Counter(
		"s3snap.s3.upload.count",
		metric.WithDescription("Number of S3 uploads"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create upload.count counter: %w", err))
	}

	uploadBytes, err = meter.Int64Counter(
		"s3snap.s3.upload.bytes",
		metric.WithDescription("Bytes uploaded to S3"),
		metric.WithUnit("By"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create upload.bytes counter: %w", err))
	}
}

func startSpan(ctx context.Context, name, bucket, key string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("bucket", bucket),
			attribute.String("key", key),
		),
	)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, object.KindOf(err).String())
	}
	span.End()
}

func recordError(ctx context.Context, op, bucket string, err error) {
	errorCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("bucket", bucket),
		attribute.String("kind", object.KindOf(err).String()),
	))
}

func recordTransfer(ctx context.Context, count, bytes metric.Int64Counter, bucket string, size int64) {
	attrs := metric.WithAttributes(attribute.String("bucket", bucket))
	count.Add(ctx, 1, attrs)
	bytes.Add(ctx, size, attrs)
}

package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "tutortrainer"

// StartRunSpan starts a span for an assistant run.
func StartRunSpan(ctx context.Context, runID, threadRef, mode string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "assistant.run",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("thread.ref", threadRef),
			attribute.String("conversation.mode", mode),
		),
	)
}

// StartEvaluationSpan starts a span for a staff evaluation request.
func StartEvaluationSpan(ctx context.Context, userID int, conversationName string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "evaluation",
		trace.WithAttributes(
			attribute.Int("user.id", userID),
			attribute.String("conversation.name", conversationName),
		),
	)
}

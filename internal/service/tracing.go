package service

import (
	"prompt-runner/internal/telemetry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// 全局 provider 未安装时 otel 返回 noop tracer
var tracer = otel.Tracer(telemetry.TracerName)

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

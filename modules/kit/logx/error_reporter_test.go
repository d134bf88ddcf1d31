package logx

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"Underworld/modules/kit/errx"
	"Underworld/modules/kit/tracex"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestBuildErrorLog_能提取语义与栈(t *testing.T) {
	cause := errors.New("disk full")
	e := errx.ErrPersistence.
		WithData("store", "file").
		WithCause(cause)

	meta := BuildErrorLog(fmt.Errorf("flush world: %w", e))
	if meta.Error == "" || meta.Code != string(errx.CodePersistence) {
		t.Fatalf("code 提取失败: %+v", meta)
	}
	if meta.Kind != "persistence" {
		t.Fatalf("kind=%q", meta.Kind)
	}
	if meta.Data["store"] != "file" {
		t.Fatalf("期望 meta.Data 包含 store=file, got=%v", meta.Data)
	}
	if len(meta.CauseChain) < 2 {
		t.Fatalf("期望 cause 链至少两层, got=%v", meta.CauseChain)
	}
	if meta.Origin == "" || meta.Stack == "" {
		t.Fatalf("期望有发生处栈 origin=%q stack=%q", meta.Origin, meta.Stack)
	}
}

func newObserved() (Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewZapLogger(zap.New(core)), logs
}

func TestReportAccess_按biz_code分级(t *testing.T) {
	l, logs := newObserved()
	ctx := tracex.WithTraceID(context.Background(), "t-9")

	ReportAccess(ctx, l, "claim", 0)
	ReportAccess(ctx, l, "claim", 10)
	ReportAccess(ctx, l, "claim", 500)

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("期望 3 条日志, got=%d", len(entries))
	}
	want := []zapcore.Level{zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel}
	for i, e := range entries {
		if e.Level != want[i] {
			t.Fatalf("第 %d 条 level=%v want=%v", i, e.Level, want[i])
		}
		if e.ContextMap()["trace_id"] != "t-9" {
			t.Fatalf("trace_id 未透传: %v", e.ContextMap())
		}
	}
}

func TestReportError_按错误大类分流(t *testing.T) {
	l, logs := newObserved()

	ReportError(context.Background(), l, "claim", errx.NewValidation("ALREADY_CLAIMED", "已被占领"))
	ReportError(context.Background(), l, "save", errx.ErrPersistence.WithCause(errors.New("io")))

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("期望 2 条日志, got=%d", len(entries))
	}
	if entries[0].Level != zapcore.InfoLevel || entries[0].ContextMap()["err_type"] != "biz" {
		t.Fatalf("校验错误应为 INFO/biz: %v", entries[0].ContextMap())
	}
	if entries[1].Level != zapcore.ErrorLevel || entries[1].ContextMap()["err_type"] != "sys" {
		t.Fatalf("持久化错误应为 ERROR/sys: %v", entries[1].ContextMap())
	}
}

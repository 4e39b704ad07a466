package vecadd

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/gogpu/vecadd/backend/backendtest"
)

func TestLoggerSilentByDefault(t *testing.T) {
	l := Logger()
	if l == nil {
		t.Fatal("Logger() = nil")
	}
	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		if l.Enabled(context.Background(), level) {
			t.Errorf("default logger enabled for %v", level)
		}
	}
}

func TestSetLoggerRoundTrip(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	var buf bytes.Buffer
	custom := slog.New(slog.NewTextHandler(&buf, nil))
	SetLogger(custom)
	if Logger() != custom {
		t.Fatal("Logger() did not return the logger passed to SetLogger")
	}
	Logger().Info("hello from vecadd")
	if !strings.Contains(buf.String(), "hello from vecadd") {
		t.Errorf("output = %q", buf.String())
	}

	SetLogger(nil)
	if Logger().Enabled(context.Background(), slog.LevelError) {
		t.Error("SetLogger(nil) left an enabled logger")
	}
}

// loggingPlatform records the logger handed to it by the pipeline.
type loggingPlatform struct {
	*backendtest.Platform
	logger *slog.Logger
}

func (p *loggingPlatform) SetLogger(l *slog.Logger) { p.logger = l }

func TestRunPropagatesLogger(t *testing.T) {
	var buf bytes.Buffer
	custom := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	lp := &loggingPlatform{Platform: backendtest.NewPlatform("fake")}
	_, err := Run([]float32{1}, []float32{2}, WithPlatforms(lp), WithLogger(custom), WithTimer(nopTimer{}))
	if err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if lp.logger != custom {
		t.Error("pipeline logger was not handed to the platform")
	}
	for _, want := range []string{"input length", "execution context ready", "launching kernel"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("log output missing %q:\n%s", want, buf.String())
		}
	}
}

func TestRunUsesPackageLoggerWithoutOption(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	_, err := Run([]float32{1, 2}, []float32{3, 4},
		WithPlatforms(backendtest.NewPlatform("fake")), WithTimer(nopTimer{}))
	if err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if !strings.Contains(buf.String(), "input length") {
		t.Errorf("package logger saw no run output:\n%s", buf.String())
	}
}

func TestDefaultTimerUsesPipelineLogger(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	var pkgBuf, pipeBuf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&pkgBuf, nil)))
	custom := slog.New(slog.NewTextHandler(&pipeBuf, nil))

	_, err := Run([]float32{1}, []float32{2},
		WithPlatforms(backendtest.NewPlatform("fake")), WithLogger(custom))
	if err != nil {
		t.Fatalf("Run() = %v", err)
	}
	for _, msg := range []string{msgUpload, msgCompute, msgCopy, msgFree} {
		if !strings.Contains(pipeBuf.String(), msg) {
			t.Errorf("pipeline log missing timing %q:\n%s", msg, pipeBuf.String())
		}
	}
	if strings.Contains(pkgBuf.String(), "vecadd: timing") {
		t.Errorf("timings leaked to the package logger:\n%s", pkgBuf.String())
	}
}

func TestSetLoggerConcurrent(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	var wg sync.WaitGroup
	for i := range 64 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				SetLogger(slog.Default())
				SetLogger(nil)
				return
			}
			Logger().Debug("concurrent")
		}()
	}
	wg.Wait()
}

func BenchmarkSilentLogger(b *testing.B) {
	l := silent
	b.ReportAllocs()
	for b.Loop() {
		l.Debug("vecadd: launching kernel", "global", 1024, "local", 256)
	}
}

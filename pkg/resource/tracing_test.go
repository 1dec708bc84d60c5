package resource

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type recordingTracer struct {
	noop.Tracer

	mu    sync.Mutex
	spans []*recordingSpan
}

func (t *recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	cfg := trace.NewSpanStartConfig(opts...)
	s := &recordingSpan{name: name, attrs: make(map[attribute.Key]attribute.Value)}
	s.SetAttributes(cfg.Attributes()...)

	t.mu.Lock()
	t.spans = append(t.spans, s)
	t.mu.Unlock()
	return ctx, s
}

func (t *recordingTracer) recorded() []*recordingSpan {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*recordingSpan(nil), t.spans...)
}

type recordingSpan struct {
	noop.Span

	mu     sync.Mutex
	name   string
	attrs  map[attribute.Key]attribute.Value
	status codes.Code
	desc   string
	errs   []error
	ended  bool
}

func (s *recordingSpan) SetAttributes(kv ...attribute.KeyValue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range kv {
		s.attrs[a.Key] = a.Value
	}
}

func (s *recordingSpan) SetStatus(code codes.Code, desc string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status, s.desc = code, desc
}

func (s *recordingSpan) RecordError(err error, _ ...trace.EventOption) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

func (s *recordingSpan) End(...trace.SpanEndOption) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ended = true
}

func (s *recordingSpan) attr(key string) attribute.Value {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attrs[attribute.Key(key)]
}

func TestTracingSpanPerExecute(t *testing.T) {
	tracer := &recordingTracer{}
	results := []CallResult[int]{OK(1), Fail[int]("bad input")}
	var n int

	r := New(func(ctx context.Context, _ Params) (CallResult[int], error) {
		res := results[n]
		n++
		return res, nil
	}, WithImmediate(false), WithName("counter"), WithTracer(tracer), quiet)

	r.Execute(context.Background(), nil)
	r.Execute(context.Background(), nil)

	spans := tracer.recorded()
	require.Len(t, spans, 2)

	ok := spans[0]
	assert.Equal(t, "resource.execute", ok.name)
	assert.Equal(t, "counter", ok.attr("resource.name").AsString())
	assert.Equal(t, int64(1), ok.attr("resource.generation").AsInt64())
	assert.Equal(t, "success", ok.attr("resource.outcome").AsString())
	assert.Equal(t, codes.Unset, ok.status)
	assert.True(t, ok.ended)

	failed := spans[1]
	assert.Equal(t, "failure", failed.attr("resource.outcome").AsString())
	assert.Equal(t, codes.Error, failed.status)
	assert.Equal(t, "bad input", failed.desc)
	assert.Empty(t, failed.errs)
}

func TestTracingRecordsTransportError(t *testing.T) {
	tracer := &recordingTracer{}
	boom := errors.New("boom")

	r := New(func(ctx context.Context, _ Params) (CallResult[int], error) {
		return CallResult[int]{}, boom
	}, WithImmediate(false), WithTracer(tracer), quiet)
	r.Execute(context.Background(), nil)

	spans := tracer.recorded()
	require.Len(t, spans, 1)
	assert.Equal(t, "error", spans[0].attr("resource.outcome").AsString())
	assert.Equal(t, []error{boom}, spans[0].errs)
	assert.Equal(t, codes.Error, spans[0].status)
}

func TestTracingMarksStaleResult(t *testing.T) {
	tracer := &recordingTracer{}
	g := newGatedCall("v")

	r := New(g.call, WithImmediate(false), WithTracer(tracer), quiet)

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Execute(context.Background(), nil)
	}()
	g.awaitStart(t)

	r.Reset()
	close(g.release)
	<-done

	spans := tracer.recorded()
	require.Len(t, spans, 1)
	assert.True(t, spans[0].attr("resource.stale").AsBool())
}

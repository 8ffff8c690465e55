package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/covid-district-dashboard/internal/domain"
	"github.com/couchcryptid/covid-district-dashboard/internal/observability"
	"github.com/couchcryptid/covid-district-dashboard/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockBatchExtractor struct {
	batches [][]domain.RawMessage
	errs    []error
	index   atomic.Int64
}

func (m *mockBatchExtractor) ExtractBatch(ctx context.Context, _ int) ([]domain.RawMessage, error) {
	i := int(m.index.Add(1) - 1)
	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	if i >= len(m.batches) {
		// block until context cancelled to simulate waiting for messages
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.batches[i], nil
}

type mockTransformer struct {
	err error
}

func (m *mockTransformer) Transform(_ context.Context, raw domain.RawMessage) (domain.ReportMessage, error) {
	if m.err != nil {
		return domain.ReportMessage{}, m.err
	}
	if string(raw.Value) == "poison" {
		return domain.ReportMessage{}, errors.New("bad request")
	}
	return domain.ReportMessage{RequestID: string(raw.Key)}, nil
}

type mockBatchLoader struct {
	mu       sync.Mutex
	loaded   []domain.ReportMessage
	failures int
}

func (m *mockBatchLoader) LoadBatch(_ context.Context, reports []domain.ReportMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures > 0 {
		m.failures--
		return errors.New("broker unavailable")
	}
	m.loaded = append(m.loaded, reports...)
	return nil
}

func (m *mockBatchLoader) requestIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, len(m.loaded))
	for i, r := range m.loaded {
		ids[i] = r.RequestID
	}
	return ids
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func rawMessage(key, value string, committed *atomic.Int64) domain.RawMessage {
	raw := domain.RawMessage{Key: []byte(key), Value: []byte(value), Topic: "dashboard-report-requests"}
	if committed != nil {
		raw.Commit = func(_ context.Context) error {
			committed.Add(1)
			return nil
		}
	}
	return raw
}

func runFor(t *testing.T, p *pipeline.Pipeline, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	require.NoError(t, p.Run(ctx))
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	var committed atomic.Int64
	ext := &mockBatchExtractor{batches: [][]domain.RawMessage{{
		rawMessage("req-1", "{}", &committed),
		rawMessage("req-2", "{}", &committed),
	}}}
	ldr := &mockBatchLoader{}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), metrics, 10)
	runFor(t, p, 300*time.Millisecond)

	assert.Equal(t, []string{"req-1", "req-2"}, ldr.requestIDs())
	assert.Equal(t, int64(2), committed.Load())
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.MessagesConsumed), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.MessagesProduced), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.PipelineRunning), 0)
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ldr := &mockBatchLoader{}
	p := pipeline.New(&mockBatchExtractor{}, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Run(ctx))
	assert.Empty(t, ldr.requestIDs())
}

func TestPipeline_Run_TransformErrorSkipsAndCommits(t *testing.T) {
	var committed atomic.Int64
	ext := &mockBatchExtractor{batches: [][]domain.RawMessage{{
		rawMessage("bad", "poison", &committed),
		rawMessage("good", "{}", &committed),
	}}}
	ldr := &mockBatchLoader{}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), metrics, 10)
	runFor(t, p, 300*time.Millisecond)

	assert.Equal(t, []string{"good"}, ldr.requestIDs())
	assert.Equal(t, int64(2), committed.Load())
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.TransformErrors), 0)
}

func TestPipeline_Run_LoadFailureDoesNotCommit(t *testing.T) {
	var committed atomic.Int64
	ext := &mockBatchExtractor{batches: [][]domain.RawMessage{{
		rawMessage("req-1", "{}", &committed),
	}}}
	ldr := &mockBatchLoader{failures: 1}

	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)
	runFor(t, p, 500*time.Millisecond)

	assert.Empty(t, ldr.requestIDs())
	assert.Equal(t, int64(0), committed.Load())
}

func TestPipeline_Run_ExtractErrorBacksOff(t *testing.T) {
	ext := &mockBatchExtractor{
		errs:    []error{errors.New("broker down")},
		batches: [][]domain.RawMessage{nil, {rawMessage("req-1", "{}", nil)}},
	}
	ldr := &mockBatchLoader{}

	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)
	runFor(t, p, time.Second)

	assert.Equal(t, []string{"req-1"}, ldr.requestIDs())
}

func TestPipeline_CheckReadiness(t *testing.T) {
	p := pipeline.New(&mockBatchExtractor{}, &mockTransformer{}, &mockBatchLoader{}, discardLogger(), observability.NewMetricsForTesting(), 10)
	assert.Error(t, p.CheckReadiness(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = p.Run(ctx)
	}()

	assert.Eventually(t, func() bool { return p.CheckReadiness(context.Background()) == nil }, time.Second, 10*time.Millisecond)
	cancel()
	<-done
	assert.Error(t, p.CheckReadiness(context.Background()))
}

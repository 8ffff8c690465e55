//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/couchcryptid/covid-district-dashboard/internal/adapter/kafka"
	"github.com/couchcryptid/covid-district-dashboard/internal/config"
	"github.com/couchcryptid/covid-district-dashboard/internal/domain"
	"github.com/couchcryptid/covid-district-dashboard/internal/observability"
	"github.com/couchcryptid/covid-district-dashboard/internal/pipeline"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSourceTopic = "test-report-requests"
	testSinkTopic   = "test-reports"
)

// publishedReport holds a deserialized message read from the sink topic.
type publishedReport struct {
	Report  domain.Report
	Key     string
	Headers map[string]string
}

func readReport(ctx context.Context, t *testing.T, consumer *kafkago.Reader) publishedReport {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from sink topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var report domain.Report
	require.NoError(t, json.Unmarshal(msg.Value, &report), "unmarshal sink message")
	return publishedReport{Report: report, Key: string(msg.Key), Headers: headers}
}

func testConfig(broker, group string) *config.Config {
	return &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaSourceTopic:   testSourceTopic,
		KafkaSinkTopic:     testSinkTopic,
		KafkaGroupID:       fmt.Sprintf("%s-%d", group, time.Now().UnixNano()),
		BatchFlushInterval: 2 * time.Second,
	}
}

func request(t *testing.T, id string, sel domain.FilterSelection) kafkago.Message {
	t.Helper()
	payload, err := json.Marshal(domain.ReportRequest{ID: id, Selection: sel})
	require.NoError(t, err)
	return kafkago.Message{Key: []byte(id), Value: payload}
}

func sinkConsumer(t *testing.T, broker string) *kafkago.Reader {
	t.Helper()
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-sink-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })
	return consumer
}

// TestKafkaReaderWriter verifies that kafka.Reader and kafka.Writer round-trip
// a request and its report through Kafka.
func TestKafkaReaderWriter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)
	cfg := testConfig(broker, "test-reader")

	producer := &kafkago.Writer{Addr: kafkago.TCP(broker), Topic: testSourceTopic}
	t.Cleanup(func() { _ = producer.Close() })
	msg := request(t, "req-colombo", domain.FilterSelection{Districts: []string{"Colombo"}})
	require.NoError(t, producer.WriteMessages(ctx, msg))

	// Retry because the consumer group may need time to rebalance before
	// partitions are assigned.
	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	var batch []domain.RawMessage
	for len(batch) == 0 {
		var err error
		batch, err = reader.ExtractBatch(ctx, 1)
		require.NoError(t, err)
		if ctx.Err() != nil {
			t.Fatal("timed out waiting for request")
		}
	}
	require.Len(t, batch, 1)
	raw := batch[0]
	assert.Equal(t, []byte("req-colombo"), raw.Key)
	assert.Equal(t, msg.Value, raw.Value)
	assert.Equal(t, testSourceTopic, raw.Topic)
	require.NotNil(t, raw.Commit)
	require.NoError(t, raw.Commit(ctx))

	out, err := pipeline.NewTransformer(loadService(t), discardLogger()).Transform(ctx, raw)
	require.NoError(t, err)

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })
	require.NoError(t, writer.LoadBatch(ctx, []domain.ReportMessage{out}))

	got := readReport(ctx, t, sinkConsumer(t, broker))
	assert.Equal(t, "req-colombo", got.Key)
	assert.Equal(t, out.Report.ID, got.Headers[kafka.HeaderSelectionID])
	_, err = time.Parse(time.RFC3339, got.Headers[kafka.HeaderGeneratedAt])
	assert.NoError(t, err, "generated_at should be RFC3339")
	require.NotNil(t, got.Report.Summary)
	assert.Equal(t, int64(150), got.Report.Summary.TotalCases)
}

// TestPipelineEndToEnd wires Reader, ReportTransformer and Writer against a
// real broker. The malformed request is skipped and does not block the rest.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)
	cfg := testConfig(broker, "test-pipeline")

	producer := &kafkago.Writer{Addr: kafkago.TCP(broker), Topic: testSourceTopic}
	t.Cleanup(func() { _ = producer.Close() })
	require.NoError(t, producer.WriteMessages(ctx,
		request(t, "req-all", domain.FilterSelection{}),
		kafkago.Message{Key: []byte("bad"), Value: []byte("not-json{{{")},
		request(t, "req-feb", domain.FilterSelection{Months: []string{"Feb-21"}}),
		request(t, "req-none", domain.FilterSelection{Districts: []string{"Jaffna"}}),
	))

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(reader, pipeline.NewTransformer(loadService(t), discardLogger()), writer, discardLogger(), metrics, 50)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	consumer := sinkConsumer(t, broker)
	reports := map[string]domain.Report{}
	for len(reports) < 3 {
		got := readReport(ctx, t, consumer)
		reports[got.Key] = got.Report
	}

	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err := consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "expected no report for the malformed request")

	pipelineCancel()
	require.NoError(t, <-errCh)

	require.NotNil(t, reports["req-all"].Summary)
	assert.Equal(t, int64(1396), reports["req-all"].Summary.TotalCases)
	assert.Equal(t, "Kandy", reports["req-all"].Summary.TopDistrict.District)

	require.NotNil(t, reports["req-feb"].Summary)
	assert.Equal(t, int64(1216), reports["req-feb"].Summary.TotalCases)

	assert.True(t, reports["req-none"].IsEmpty())
	assert.Nil(t, reports["req-none"].Summary)

	for _, r := range reports {
		codes := make([]string, 0, len(r.Notices))
		for _, n := range r.Notices {
			codes = append(codes, n.Code)
		}
		assert.Contains(t, codes, domain.NoticeSkippedRows)
	}
}

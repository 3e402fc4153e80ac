package stream

import (
	"context"
	"errors"
	"io"
	"iter"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"testing/iotest"
	"time"

	"golang-stock-ai/internal/dto"
	"golang-stock-ai/pkg/httpclient"
	"golang-stock-ai/pkg/logger"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type trackingBody struct {
	io.Reader
	closed  atomic.Bool
	onClose func()
}

func (b *trackingBody) Close() error {
	b.closed.Store(true)
	if b.onClose != nil {
		b.onClose()
	}
	return nil
}

type fakeTransport struct {
	resp     *httpclient.StreamResponse
	complete *httpclient.BaseResponse
	err      error
	got      openai.ChatCompletionRequest
	ctx      context.Context
}

func (f *fakeTransport) OpenStream(ctx context.Context, req openai.ChatCompletionRequest) (*httpclient.StreamResponse, error) {
	f.got, f.ctx = req, ctx
	return f.resp, f.err
}

func (f *fakeTransport) Complete(ctx context.Context, req openai.ChatCompletionRequest) (*httpclient.BaseResponse, error) {
	f.got, f.ctx = req, ctx
	return f.complete, f.err
}

// httpTransport posts through the streaming resty client, the same way the AI repository does.
type httpTransport struct {
	client httpclient.HTTPClient
}

func (h *httpTransport) OpenStream(ctx context.Context, req openai.ChatCompletionRequest) (*httpclient.StreamResponse, error) {
	return h.client.PostStream(ctx, "/chat/completions", req, nil)
}

func (h *httpTransport) Complete(ctx context.Context, req openai.ChatCompletionRequest) (*httpclient.BaseResponse, error) {
	return h.client.Post(ctx, "/chat/completions", req, nil, nil)
}

func okStream(r io.Reader) (*fakeTransport, *trackingBody) {
	body := &trackingBody{Reader: r}
	return &fakeTransport{resp: &httpclient.StreamResponse{StatusCode: http.StatusOK, Body: body}}, body
}

func newTestPump(t Transport, pullTimeout time.Duration) *Pump {
	p := NewPump(t, PumpConfig{PullTimeout: pullTimeout, ChunkSize: 64}, logger.NewNop())
	p.now = func() time.Time { return time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC) }
	return p
}

func newTestSession() *Session {
	return NewSession(logger.NewNop(),
		dto.StockInfo{Code: "600519", Name: "Kweichow Moutai", Market: dto.MarketA},
		dto.TechnicalSummary{Trend: dto.TrendUpward, Volatility: "1.20%", VolumeTrend: dto.VolumeIncreasing, RSILevel: 25},
		&dto.BasicIndicators{RSI: 25, Price: 1700, MATrend: dto.MATrendUp},
	)
}

func collect(seq iter.Seq[dto.StreamEvent]) []dto.StreamEvent {
	var events []dto.StreamEvent
	for ev := range seq {
		events = append(events, ev)
	}
	return events
}

func kinds(events []dto.StreamEvent) []dto.StreamEventKind {
	out := make([]dto.StreamEventKind, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Kind)
	}
	return out
}

func deltaLine(content string) string {
	return `data: {"choices":[{"index":0,"delta":{"content":"` + content + `"},"finish_reason":null}]}` + "\n\n"
}

func TestPump_Run_DeltaStream(t *testing.T) {
	transport, body := okStream(strings.NewReader(
		": keep-alive\n\n" + deltaLine("Strong ") + deltaLine("buy") + "data: [DONE]\n\n",
	))
	p := newTestPump(transport, time.Second)

	events := collect(p.Run(context.Background(), newTestSession(), openai.ChatCompletionRequest{Model: "m"}))

	require.Equal(t, []dto.StreamEventKind{dto.EventProgress, dto.EventFragment, dto.EventFragment, dto.EventDone}, kinds(events))
	assert.Equal(t, dto.StatusAnalyzing, events[0].Status)
	assert.Equal(t, "Strong ", events[1].Fragment)
	assert.Equal(t, "buy", events[2].Fragment)

	result := events[3].Result
	assert.Equal(t, dto.StatusCompleted, result.Status)
	assert.Equal(t, "Strong buy", result.AIAnalysis)
	assert.Equal(t, dto.EndReasonTerminal, result.EndReason)
	assert.Equal(t, 100, result.Score)
	assert.Equal(t, dto.RecommendationWatch, result.Recommendation)
	assert.Equal(t, "2024-05-06", result.AnalysisDate)
	assert.Equal(t, 1700.0, result.BasicIndicators.Price)

	assert.True(t, transport.got.Stream)
	assert.True(t, body.closed.Load())
}

func TestPump_Run_ReassemblesOneByteReads(t *testing.T) {
	raw := deltaLine("买入") + `data: {"candidates":[{"content":{"parts":[{"text":"，看涨"}]}}]}` + "\n" + `{"text":"!"}`
	transport, _ := okStream(iotest.OneByteReader(strings.NewReader(raw)))
	p := newTestPump(transport, time.Second)
	s := newTestSession()

	events := collect(p.Run(context.Background(), s, openai.ChatCompletionRequest{}))

	require.NotEmpty(t, events)
	done := events[len(events)-1]
	require.Equal(t, dto.EventDone, done.Kind)
	assert.Equal(t, "买入，看涨!", done.Result.AIAnalysis)
	assert.Equal(t, dto.EndReasonEOF, done.Result.EndReason)
	assert.Equal(t, 3, s.Stats().Fragments)
	assert.Zero(t, s.Stats().Malformed)
}

func TestPump_Run_FinishStopEndsStream(t *testing.T) {
	transport, body := okStream(strings.NewReader(
		deltaLine("X") +
			`data: {"choices":[{"delta":{},"finish_reason":"stop"}]}` + "\n\n" +
			deltaLine("ignored"),
	))
	p := newTestPump(transport, time.Second)

	events := collect(p.Run(context.Background(), newTestSession(), openai.ChatCompletionRequest{}))

	require.Equal(t, []dto.StreamEventKind{dto.EventProgress, dto.EventFragment, dto.EventDone}, kinds(events))
	assert.Equal(t, "X", events[2].Result.AIAnalysis)
	assert.Equal(t, dto.EndReasonTerminal, events[2].Result.EndReason)
	assert.True(t, body.closed.Load())
}

func TestPump_Run_FinishStopDropsTrailingText(t *testing.T) {
	transport, _ := okStream(strings.NewReader(
		deltaLine("A") +
			`data: {"choices":[{"delta":{"content":" strong buy"},"finish_reason":"stop"}]}` + "\n\n",
	))
	p := newTestPump(transport, time.Second)

	events := collect(p.Run(context.Background(), newTestSession(), openai.ChatCompletionRequest{}))

	require.Equal(t, []dto.StreamEventKind{dto.EventProgress, dto.EventFragment, dto.EventDone}, kinds(events))
	result := events[2].Result
	assert.Equal(t, "A", result.AIAnalysis)
	assert.Equal(t, 80, result.Score)
	assert.Equal(t, dto.EndReasonTerminal, result.EndReason)
}

func TestPump_Run_ChunkProcessingFailed(t *testing.T) {
	transport, body := okStream(strings.NewReader(deltaLine("A") + deltaLine("B")))
	p := newTestPump(transport, time.Second)
	p.feed = func(lb *lineBuffer, data []byte) []string {
		var lines []string
		return lines[:len(data)]
	}

	events := collect(p.Run(context.Background(), newTestSession(), openai.ChatCompletionRequest{}))

	require.Equal(t, []dto.StreamEventKind{dto.EventProgress, dto.EventError}, kinds(events))
	assert.Equal(t, dto.ErrChunkProcessingFailed, events[1].Err.Kind)
	assert.Equal(t, "chunk processing failed: runtime_error", events[1].Err.Message)
	assert.True(t, body.closed.Load())
}

func TestPump_Process_RecoversPanic(t *testing.T) {
	p := newTestPump(&fakeTransport{}, time.Second)
	s := newTestSession()
	var got []dto.StreamEvent
	em := &emitter{yield: func(ev dto.StreamEvent) bool {
		got = append(got, ev)
		return true
	}}

	terminal, detail := p.process(s, NewExtractor(s.Logger()), em, func() []string {
		panic(errors.New("boom: secret detail"))
	})

	assert.False(t, terminal)
	require.NotNil(t, detail)
	assert.Equal(t, dto.ErrChunkProcessingFailed, detail.Kind)
	assert.Equal(t, "chunk processing failed: *errors.errorString", detail.Message)
	assert.NotContains(t, detail.Message, "secret")
	assert.Empty(t, got)
}

func TestPump_Run_TransportContextCarriesSessionLogger(t *testing.T) {
	transport, _ := okStream(strings.NewReader(deltaLine("A")))
	p := newTestPump(transport, time.Second)
	s := newTestSession()

	collect(p.Run(context.Background(), s, openai.ChatCompletionRequest{}))

	require.NotNil(t, transport.ctx)
	assert.Same(t, s.Logger(), logger.NewNop().FromContext(transport.ctx))
}

func TestPump_Run_TimeoutAfterTwoFragments(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	go func() {
		_, _ = pw.Write([]byte(deltaLine("A")))
		_, _ = pw.Write([]byte(deltaLine("B")))
	}()

	body := &trackingBody{Reader: pr, onClose: func() { pr.Close() }}
	transport := &fakeTransport{resp: &httpclient.StreamResponse{StatusCode: http.StatusOK, Body: body}}
	p := newTestPump(transport, 100*time.Millisecond)

	events := collect(p.Run(context.Background(), newTestSession(), openai.ChatCompletionRequest{}))

	require.Equal(t, []dto.StreamEventKind{dto.EventProgress, dto.EventFragment, dto.EventFragment, dto.EventDone}, kinds(events))
	result := events[3].Result
	assert.Equal(t, dto.StatusCompleted, result.Status)
	assert.Equal(t, "AB", result.AIAnalysis)
	assert.Equal(t, dto.EndReasonTimeout, result.EndReason)
	assert.True(t, body.closed.Load())
}

func TestPump_Run_HTTP500(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(strings.Repeat("x", 2000)))
	}))
	defer srv.Close()

	transport := &httpTransport{client: httpclient.NewStreaming(logger.NewNop(), srv.URL, time.Second, "sk-test")}
	p := newTestPump(transport, time.Second)

	events := collect(p.Run(context.Background(), newTestSession(), openai.ChatCompletionRequest{Model: "m"}))

	require.Len(t, events, 1)
	require.Equal(t, dto.EventError, events[0].Kind)
	assert.Equal(t, dto.ErrRequestFailed, events[0].Err.Kind)
	assert.Equal(t, http.StatusInternalServerError, events[0].Err.StatusCode)
	assert.LessOrEqual(t, len(events[0].Err.Body), 503)
}

func TestPump_Run_TransportErrorHidesMessage(t *testing.T) {
	transport := &fakeTransport{err: errors.New("dial tcp: api key sk-secret rejected")}
	p := newTestPump(transport, time.Second)

	events := collect(p.Run(context.Background(), newTestSession(), openai.ChatCompletionRequest{}))

	require.Len(t, events, 1)
	assert.Equal(t, dto.ErrRequestFailed, events[0].Err.Kind)
	assert.NotContains(t, events[0].Err.Message, "sk-secret")
}

func TestPump_Run_MissingBody(t *testing.T) {
	for name, resp := range map[string]*httpclient.StreamResponse{
		"nil response": nil,
		"nil body":     {StatusCode: http.StatusOK},
	} {
		t.Run(name, func(t *testing.T) {
			p := newTestPump(&fakeTransport{resp: resp}, time.Second)

			events := collect(p.Run(context.Background(), newTestSession(), openai.ChatCompletionRequest{}))

			require.Len(t, events, 1)
			assert.Equal(t, dto.ErrIteratorUnavailable, events[0].Err.Kind)
		})
	}
}

func TestPump_Run_ErrorStatusWithoutBody(t *testing.T) {
	p := newTestPump(&fakeTransport{resp: &httpclient.StreamResponse{StatusCode: http.StatusBadGateway}}, time.Second)

	events := collect(p.Run(context.Background(), newTestSession(), openai.ChatCompletionRequest{}))

	require.Len(t, events, 1)
	assert.Equal(t, dto.ErrRequestFailed, events[0].Err.Kind)
	assert.Equal(t, http.StatusBadGateway, events[0].Err.StatusCode)
}

func TestPump_Run_ReadError(t *testing.T) {
	r := io.MultiReader(strings.NewReader(deltaLine("A")), iotest.ErrReader(errors.New("connection reset")))
	transport, body := okStream(r)
	p := newTestPump(transport, time.Second)

	events := collect(p.Run(context.Background(), newTestSession(), openai.ChatCompletionRequest{}))

	require.Equal(t, []dto.StreamEventKind{dto.EventProgress, dto.EventFragment, dto.EventError}, kinds(events))
	assert.Equal(t, dto.ErrStreamReadFailed, events[2].Err.Kind)
	assert.NotContains(t, events[2].Err.Message, "connection reset")
	assert.True(t, body.closed.Load())
}

func TestPump_Run_ContextCancelled(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	go func() { _, _ = pw.Write([]byte(deltaLine("A"))) }()

	body := &trackingBody{Reader: pr, onClose: func() { pr.Close() }}
	transport := &fakeTransport{resp: &httpclient.StreamResponse{StatusCode: http.StatusOK, Body: body}}
	p := newTestPump(transport, 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var events []dto.StreamEvent
	for ev := range p.Run(ctx, newTestSession(), openai.ChatCompletionRequest{}) {
		events = append(events, ev)
		if ev.Kind == dto.EventFragment {
			cancel()
		}
	}

	require.Equal(t, []dto.StreamEventKind{dto.EventProgress, dto.EventFragment, dto.EventError}, kinds(events))
	assert.Equal(t, dto.ErrCancelled, events[2].Err.Kind)
	assert.True(t, body.closed.Load())
}

func TestPump_Run_ConsumerStopsEarly(t *testing.T) {
	transport, body := okStream(strings.NewReader(deltaLine("A") + deltaLine("B") + "data: [DONE]\n"))
	p := newTestPump(transport, time.Second)

	var got []string
	for ev := range p.Run(context.Background(), newTestSession(), openai.ChatCompletionRequest{}) {
		if ev.Kind == dto.EventFragment {
			got = append(got, ev.Fragment)
			break
		}
	}

	assert.Equal(t, []string{"A"}, got)
	assert.True(t, body.closed.Load())
}

func TestPump_Run_ConsumerPanicPropagates(t *testing.T) {
	transport, body := okStream(strings.NewReader(deltaLine("A") + "data: [DONE]\n"))
	p := newTestPump(transport, time.Second)

	assert.PanicsWithValue(t, "consumer bug", func() {
		for ev := range p.Run(context.Background(), newTestSession(), openai.ChatCompletionRequest{}) {
			if ev.Kind == dto.EventFragment {
				panic("consumer bug")
			}
		}
	})
	assert.True(t, body.closed.Load())
}

func TestPump_Run_BackstopHidesPanicMessage(t *testing.T) {
	transport, _ := okStream(strings.NewReader(deltaLine("A")))
	p := newTestPump(transport, time.Second)
	p.derive = func(string, dto.TechnicalSummary) (int, dto.Recommendation) {
		panic(errors.New("secret detail"))
	}

	events := collect(p.Run(context.Background(), newTestSession(), openai.ChatCompletionRequest{}))

	require.Equal(t, []dto.StreamEventKind{dto.EventProgress, dto.EventFragment, dto.EventError}, kinds(events))
	assert.Equal(t, dto.ErrAnalysisFailed, events[2].Err.Kind)
	assert.NotContains(t, events[2].Err.Message, "secret detail")
}

func TestPump_Run_MalformedLinesAreSkipped(t *testing.T) {
	transport, _ := okStream(strings.NewReader(
		"data: {\"choices\":[{\"delta\":\n" +
			"data: 42\n" +
			"data: {\"usage\":{}}\n" +
			deltaLine("ok"),
	))
	p := newTestPump(transport, time.Second)
	s := newTestSession()

	events := collect(p.Run(context.Background(), s, openai.ChatCompletionRequest{}))

	require.Equal(t, []dto.StreamEventKind{dto.EventProgress, dto.EventFragment, dto.EventDone}, kinds(events))
	assert.Equal(t, "ok", events[2].Result.AIAnalysis)
	assert.Equal(t, Stats{Fragments: 1, Malformed: 1, NotObject: 1, Unrecognized: 1}, s.Stats())
}

func TestPump_Complete(t *testing.T) {
	transport := &fakeTransport{complete: &httpclient.BaseResponse{
		StatusCode: http.StatusOK,
		Body:       []byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"Bullish.\n## Investment Advice\nBuy"},"finish_reason":"stop"}]}`),
	}}
	p := newTestPump(transport, time.Second)

	events := collect(p.Complete(context.Background(), newTestSession(), openai.ChatCompletionRequest{Stream: true}))

	require.Equal(t, []dto.StreamEventKind{dto.EventProgress, dto.EventFragment, dto.EventDone}, kinds(events))
	assert.False(t, transport.got.Stream)
	assert.Equal(t, "Bullish.\n## Investment Advice\nBuy", events[2].Result.AIAnalysis)
	assert.Equal(t, dto.RecommendationBuy, events[2].Result.Recommendation)
}

func TestPump_Complete_RawBodyFallback(t *testing.T) {
	transport := &fakeTransport{complete: &httpclient.BaseResponse{StatusCode: http.StatusOK, Body: []byte("plain answer")}}
	p := newTestPump(transport, time.Second)

	events := collect(p.Complete(context.Background(), newTestSession(), openai.ChatCompletionRequest{}))

	require.Equal(t, dto.EventDone, events[len(events)-1].Kind)
	assert.Equal(t, "plain answer", events[len(events)-1].Result.AIAnalysis)
}

func TestPump_Complete_ErrorStatus(t *testing.T) {
	transport := &fakeTransport{complete: &httpclient.BaseResponse{StatusCode: http.StatusServiceUnavailable, Body: []byte("overloaded")}}
	p := newTestPump(transport, time.Second)

	events := collect(p.Complete(context.Background(), newTestSession(), openai.ChatCompletionRequest{}))

	require.Len(t, events, 1)
	assert.Equal(t, dto.ErrRequestFailed, events[0].Err.Kind)
	assert.Equal(t, http.StatusServiceUnavailable, events[0].Err.StatusCode)
	assert.Equal(t, "overloaded", events[0].Err.Body)
}

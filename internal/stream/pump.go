package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
	"time"

	"golang-stock-ai/internal/dto"
	"golang-stock-ai/internal/scoring"
	"golang-stock-ai/pkg/common"
	"golang-stock-ai/pkg/httpclient"
	"golang-stock-ai/pkg/logger"
	"golang-stock-ai/pkg/utils"

	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultPullTimeout = 30 * time.Second
	defaultChunkSize   = 4096
	defaultMaxPending  = 1 << 20
)

// Transport opens model requests. repository.AIRepository is the production implementation.
type Transport interface {
	OpenStream(ctx context.Context, req openai.ChatCompletionRequest) (*httpclient.StreamResponse, error)
	Complete(ctx context.Context, req openai.ChatCompletionRequest) (*httpclient.BaseResponse, error)
}

type PumpConfig struct {
	PullTimeout     time.Duration
	ChunkSize       int
	MaxPendingBytes int
	Location        *time.Location
}

type Pump struct {
	transport Transport
	cfg       PumpConfig
	log       *logger.Logger
	derive    func(text string, summary dto.TechnicalSummary) (int, dto.Recommendation)
	now       func() time.Time
	feed      func(lb *lineBuffer, data []byte) []string
}

func NewPump(transport Transport, cfg PumpConfig, log *logger.Logger) *Pump {
	if cfg.PullTimeout <= 0 {
		cfg.PullTimeout = defaultPullTimeout
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = defaultChunkSize
	}
	if cfg.MaxPendingBytes <= 0 {
		cfg.MaxPendingBytes = defaultMaxPending
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Pump{
		transport: transport,
		cfg:       cfg,
		log:       log,
		derive:    scoring.Derive,
		now:       time.Now,
		feed:      (*lineBuffer).Feed,
	}
}

// emitter guards yield: nothing is sent after the consumer stops, and a panic raised by the
// consumer can be told apart from one raised by the pump.
type emitter struct {
	yield   func(dto.StreamEvent) bool
	stopped bool
	inYield bool
}

func (e *emitter) emit(ev dto.StreamEvent) bool {
	if e.stopped {
		return false
	}
	e.inYield = true
	ok := e.yield(ev)
	e.inYield = false
	if !ok {
		e.stopped = true
	}
	return ok
}

func (e *emitter) fail(detail *dto.ErrorDetail) {
	e.emit(dto.ErrorEvent(detail))
}

// Run streams the model answer for one session. The sequence is single-use: ranging over it a
// second time sends a second request.
func (p *Pump) Run(ctx context.Context, s *Session, req openai.ChatCompletionRequest) iter.Seq[dto.StreamEvent] {
	return func(yield func(dto.StreamEvent) bool) {
		em := &emitter{yield: yield}
		defer p.backstop(s, em)

		req.Stream = true
		p.stream(ctx, s, req, em)
	}
}

// Complete asks for the whole answer in one response and reports it as a single fragment.
func (p *Pump) Complete(ctx context.Context, s *Session, req openai.ChatCompletionRequest) iter.Seq[dto.StreamEvent] {
	return func(yield func(dto.StreamEvent) bool) {
		em := &emitter{yield: yield}
		defer p.backstop(s, em)

		req.Stream = false
		p.complete(ctx, s, req, em)
	}
}

func (p *Pump) backstop(s *Session, em *emitter) {
	r := recover()
	if r == nil {
		return
	}
	if em.inYield {
		panic(r)
	}
	category := utils.ErrorCategory(r)
	s.log.Error("analysis failed", logger.StringField("category", category))
	em.fail(&dto.ErrorDetail{Kind: dto.ErrAnalysisFailed, Message: "analysis failed: " + category})
}

func (p *Pump) stream(ctx context.Context, s *Session, req openai.ChatCompletionRequest, em *emitter) {
	resp, err := p.transport.OpenStream(logger.NewContext(ctx, s.log), req)
	if err != nil {
		em.fail(p.openError(ctx, s, err))
		return
	}
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if resp != nil && !resp.IsSuccess() {
		body := ""
		if resp.Body != nil {
			body = readLimited(resp.Body)
		}
		em.fail(p.statusError(s, resp.StatusCode, body))
		return
	}
	if resp == nil || resp.Body == nil {
		s.log.Error("model endpoint returned no body")
		em.fail(&dto.ErrorDetail{Kind: dto.ErrIteratorUnavailable, Message: "stream response has no body"})
		return
	}

	if !em.emit(dto.ProgressEvent(dto.StatusAnalyzing)) {
		return
	}

	reader := newChunkReader(resp.Body, p.cfg.ChunkSize)
	go reader.run()
	defer reader.stop()

	ex := NewExtractor(s.log)
	lines := newLineBuffer(p.cfg.MaxPendingBytes)
	timer := time.NewTimer(p.cfg.PullTimeout)
	defer timer.Stop()

	end := dto.EndReasonEOF
pull:
	for {
		if ctx.Err() != nil {
			em.fail(cancelled(s, ctx.Err()))
			return
		}
		timer.Reset(p.cfg.PullTimeout)

		select {
		case <-ctx.Done():
			em.fail(cancelled(s, ctx.Err()))
			return

		case <-timer.C:
			s.log.Warn("stream pull timed out",
				logger.Field("pull_timeout", p.cfg.PullTimeout),
				logger.IntField("fragments", s.stats.Fragments),
			)
			end = dto.EndReasonTimeout
			break pull

		case c := <-reader.chunks:
			if c.err != nil {
				if errors.Is(c.err, io.EOF) {
					break pull
				}
				if ctx.Err() != nil {
					em.fail(cancelled(s, ctx.Err()))
					return
				}
				category := utils.ErrorCategory(c.err)
				s.log.Error("failed to read stream", logger.StringField("category", category))
				em.fail(&dto.ErrorDetail{Kind: dto.ErrStreamReadFailed, Message: "stream read failed: " + category})
				return
			}

			terminal, detail := p.process(s, ex, em, func() []string { return p.feed(lines, c.data) })
			if detail != nil {
				em.fail(detail)
				return
			}
			if em.stopped {
				s.log.Debug("consumer stopped reading the stream")
				return
			}
			if terminal {
				end = dto.EndReasonTerminal
				break pull
			}
		}
	}

	if end != dto.EndReasonTerminal && lines.Pending() > 0 {
		terminal, detail := p.process(s, ex, em, func() []string { return []string{lines.Flush()} })
		if detail != nil {
			em.fail(detail)
			return
		}
		if em.stopped {
			return
		}
		if terminal {
			end = dto.EndReasonTerminal
		}
	}

	p.finish(s, end, em)
}

// process runs the lines of one chunk. A panic in here ends the session, unless it came from the
// consumer, in which case it keeps unwinding.
func (p *Pump) process(s *Session, ex *Extractor, em *emitter, next func() []string) (terminal bool, detail *dto.ErrorDetail) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if em.inYield {
			panic(r)
		}
		category := utils.ErrorCategory(r)
		s.log.Error("failed to process stream chunk", logger.StringField("category", category))
		terminal = false
		detail = &dto.ErrorDetail{Kind: dto.ErrChunkProcessingFailed, Message: "chunk processing failed: " + category}
	}()

	for _, raw := range next() {
		if p.handleLine(s, ex, em, raw) {
			return true, nil
		}
		if em.stopped {
			return false, nil
		}
	}
	return false, nil
}

func (p *Pump) handleLine(s *Session, ex *Extractor, em *emitter, raw string) bool {
	line := Classify(raw)
	switch line.Kind {
	case LineIgnore:
		return false
	case LineTerminal:
		return true
	}

	x := ex.Extract(line.Text)
	switch x.Outcome {
	case OutcomeContent:
		deliver(s, em, x.Content)
	case OutcomeFinished:
		return true
	case OutcomeUnrecognized:
		s.record(x.Outcome)
		s.log.Debug("no content in stream line", logger.StringField("sample", utils.Truncate(line.Text, common.MaxLoggedBodyBytes)))
	default:
		s.record(x.Outcome)
	}
	return false
}

func deliver(s *Session, em *emitter, fragment string) {
	s.append(fragment)
	em.emit(dto.FragmentEvent(fragment))
}

func (p *Pump) complete(ctx context.Context, s *Session, req openai.ChatCompletionRequest, em *emitter) {
	resp, err := p.transport.Complete(logger.NewContext(ctx, s.log), req)
	if err != nil {
		em.fail(p.openError(ctx, s, err))
		return
	}
	if resp == nil {
		s.log.Error("model endpoint returned no response")
		em.fail(&dto.ErrorDetail{Kind: dto.ErrIteratorUnavailable, Message: "no response from model endpoint"})
		return
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		em.fail(p.statusError(s, resp.StatusCode, utils.Truncate(string(resp.Body), common.MaxLoggedBodyBytes)))
		return
	}

	if !em.emit(dto.ProgressEvent(dto.StatusAnalyzing)) {
		return
	}

	body := strings.TrimSpace(utils.CleanToValidUTF8(string(resp.Body)))
	text := completionText(body)
	if text == "" {
		x := NewExtractor(s.log).Extract(body)
		text = x.Content
		if text == "" {
			s.record(x.Outcome)
			text = body
		}
	}
	if text != "" {
		deliver(s, em, text)
		if em.stopped {
			return
		}
	}

	p.finish(s, dto.EndReasonEOF, em)
}

// completionText reads choices[0].message of a non-streamed completion.
func completionText(body string) string {
	var resp openai.ChatCompletionResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil || len(resp.Choices) == 0 {
		return ""
	}
	return messageText(&resp.Choices[0].Message)
}

func (p *Pump) finish(s *Session, end dto.EndReason, em *emitter) {
	text := s.Text()
	score, recommendation := p.derive(text, s.Summary())
	stats := s.Stats()

	s.log.Info("analysis completed",
		logger.StringField("end_reason", string(end)),
		logger.IntField("fragments", stats.Fragments),
		logger.IntField("malformed", stats.Malformed),
		logger.IntField("unrecognized", stats.Unrecognized),
		logger.IntField("score", score),
		logger.Field("elapsed", time.Since(s.StartedAt)),
	)

	em.emit(dto.DoneEvent(&dto.AnalysisResult{
		BasicIndicators: s.BasicIndicators(),
		Score:           score,
		Recommendation:  recommendation,
		Status:          dto.StatusCompleted,
		AIAnalysis:      text,
		EndReason:       end,
		AnalysisDate:    p.now().In(p.cfg.Location).Format(utils.DateLayout),
	}))
}

func (p *Pump) openError(ctx context.Context, s *Session, err error) *dto.ErrorDetail {
	if ctx.Err() != nil {
		return cancelled(s, ctx.Err())
	}
	category := utils.ErrorCategory(err)
	s.log.Error("failed to open model request", logger.StringField("category", category))
	return &dto.ErrorDetail{Kind: dto.ErrRequestFailed, Message: "request failed: " + category}
}

func (p *Pump) statusError(s *Session, status int, body string) *dto.ErrorDetail {
	s.log.Error("model endpoint returned an error status",
		logger.IntField("status_code", status),
		logger.StringField("body", body),
	)
	return &dto.ErrorDetail{
		Kind:       dto.ErrRequestFailed,
		Message:    fmt.Sprintf("model endpoint returned status %d", status),
		StatusCode: status,
		Body:       body,
	}
}

func cancelled(s *Session, err error) *dto.ErrorDetail {
	s.log.Warn("analysis cancelled", logger.ErrorField(err))
	return &dto.ErrorDetail{Kind: dto.ErrCancelled, Message: err.Error()}
}

func readLimited(body io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(body, common.MaxLoggedBodyBytes+1))
	return utils.Truncate(utils.CleanToValidUTF8(string(raw)), common.MaxLoggedBodyBytes)
}

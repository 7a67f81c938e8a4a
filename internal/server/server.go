// Package server exposes the decoder engine over HTTP: POST /recognize
// accepts a multipart WAV upload and returns the N-best result as JSON,
// GET /healthz reports liveness. Adapted from the teacher's
// internal/server/server.go — same functional-options handler
// construction and graceful-shutdown Server wrapper, built on net/http
// only.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/example/gojulius/internal/audiosrc"
	"github.com/example/gojulius/internal/config"
	"github.com/example/gojulius/internal/engine"
)

// ParseLogLevel converts a case-insensitive level string to slog.Level.
// An empty string returns slog.LevelInfo. Unknown strings return an error.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (want debug|info|warn|error)", s)
	}
}

// Recognizer decodes one utterance read from an audio source. Satisfied by
// *engine.Engine; a narrow interface so the handler can be tested without
// loading real model assets.
type Recognizer interface {
	Recognize(ctx context.Context, src audiosrc.Source) (engine.Result, error)
}

// ---------------------------------------------------------------------------
// Functional options
// ---------------------------------------------------------------------------

type options struct {
	maxAudioBytes  int64
	workers        int
	requestTimeout time.Duration
	logger         *slog.Logger
}

func defaultOptions() options {
	return options{
		maxAudioBytes:  64 << 20,
		workers:        2,
		requestTimeout: 60 * time.Second,
		logger:         slog.Default(),
	}
}

// Option configures the HTTP handler.
type Option func(*options)

// WithMaxAudioBytes sets the maximum accepted request body size for
// POST /recognize.
func WithMaxAudioBytes(n int64) Option {
	return func(o *options) { o.maxAudioBytes = n }
}

// WithWorkers sets the maximum number of concurrent recognition calls.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithRequestTimeout sets the per-request recognition deadline.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) { o.requestTimeout = d }
}

// WithLogger sets the slog.Logger used for request logging.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// ---------------------------------------------------------------------------
// handler
// ---------------------------------------------------------------------------

// handler holds the dependencies needed to serve HTTP requests.
type handler struct {
	rec  Recognizer
	opts options
	sem  chan struct{} // semaphore for worker pool
	log  *slog.Logger
}

// NewHandler returns an http.Handler that serves GET /healthz and
// POST /recognize.
func NewHandler(rec Recognizer, optFns ...Option) http.Handler {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	h := &handler{
		rec:  rec,
		opts: opts,
		log:  opts.logger,
	}
	if opts.workers > 0 {
		h.sem = make(chan struct{}, opts.workers)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.HandleFunc("/recognize", h.handleRecognize)

	return mux
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func (h *handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildVersion(),
	})
}

// recognizeResponse is the JSON shape returned by POST /recognize,
// mirroring engine.Result with lower_snake_case field names.
type recognizeResponse struct {
	Status    string             `json:"status"`
	Frames    int                `json:"frames"`
	Sentences []sentenceResponse `json:"sentences"`
}

type sentenceResponse struct {
	Score float64        `json:"score"`
	Words []wordResponse `json:"words"`
}

type wordResponse struct {
	Name       string  `json:"name"`
	WordID     int     `json:"word_id"`
	EndFrame   int     `json:"end_frame"`
	Confidence float64 `json:"confidence"`
}

func toRecognizeResponse(res engine.Result) recognizeResponse {
	resp := recognizeResponse{
		Status:    string(res.Status),
		Frames:    res.Frames,
		Sentences: make([]sentenceResponse, 0, len(res.Sentences)),
	}
	for _, s := range res.Sentences {
		sr := sentenceResponse{Score: s.Score, Words: make([]wordResponse, 0, len(s.Words))}
		for _, w := range s.Words {
			sr.Words = append(sr.Words, wordResponse{
				Name:       w.Name,
				WordID:     w.WordID,
				EndFrame:   w.EndFrame,
				Confidence: w.Confidence,
			})
		}
		resp.Sentences = append(resp.Sentences, sr)
	}
	return resp
}

func (h *handler) handleRecognize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if r.Body == nil {
		writeError(w, http.StatusBadRequest, "request body is required")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.maxAudioBytes)

	src, err := h.readAudioSource(r)
	if err != nil {
		if errors.As(err, new(*http.MaxBytesError)) {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("audio exceeds maximum size of %d bytes", h.opts.maxAudioBytes))
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !h.acquireWorker(r.Context(), w) {
		return
	}
	if h.sem != nil {
		defer func() { <-h.sem }()
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.requestTimeout)
	defer cancel()

	start := time.Now()
	result, err := h.rec.Recognize(ctx, src)
	durationMS := time.Since(start).Milliseconds()

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			h.log.WarnContext(r.Context(), "recognition timed out",
				slog.Int64("duration_ms", durationMS),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusGatewayTimeout, "recognition timed out")
			return
		}

		h.log.ErrorContext(r.Context(), "recognition failed",
			slog.Int64("duration_ms", durationMS),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.log.InfoContext(r.Context(), "recognition complete",
		slog.String("status", string(result.Status)),
		slog.Int("frames", result.Frames),
		slog.Int("sentences", len(result.Sentences)),
		slog.Int64("duration_ms", durationMS),
	)

	writeJSON(w, http.StatusOK, toRecognizeResponse(result))
}

// readAudioSource extracts the uploaded WAV payload from r, accepting
// either a "audio" multipart field or a raw audio/wav request body.
func (h *handler) readAudioSource(r *http.Request) (audiosrc.Source, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/") {
		file, _, err := r.FormFile("audio")
		if err != nil {
			return nil, fmt.Errorf("missing \"audio\" form file: %w", err)
		}
		defer func() { _ = file.Close() }()

		return decodeWAV(file)
	}

	return decodeWAV(r.Body)
}

func decodeWAV(r io.Reader) (audiosrc.Source, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read audio body: %w", err)
	}
	src, err := audiosrc.NewWAVFileSourceFromReader(strings.NewReader(string(data)))
	if err != nil {
		return nil, fmt.Errorf("decode WAV: %w", err)
	}
	return src, nil
}

// acquireWorker tries to acquire a worker slot from the semaphore.
// Returns true on success. On failure (context cancelled) it writes an HTTP
// error and returns false. When sem is nil (no throttling) it returns true
// immediately.
func (h *handler) acquireWorker(ctx context.Context, w http.ResponseWriter) bool {
	if h.sem == nil {
		return true
	}

	select {
	case h.sem <- struct{}{}:
		return true
	default:
		h.log.Info("request queued for worker slot")

		select {
		case h.sem <- struct{}{}:
			return true
		case <-ctx.Done():
			writeError(w, http.StatusServiceUnavailable, "request cancelled while waiting for worker")
			return false
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// ---------------------------------------------------------------------------
// Server — wires handler into net/http.Server with graceful shutdown
// ---------------------------------------------------------------------------

// Server wires the HTTP handler into a net/http.Server with graceful shutdown.
type Server struct {
	cfg             config.Config
	eng             *engine.Engine
	shutdownTimeout time.Duration
}

// New builds a Server for eng, configured from cfg.Server.
func New(cfg config.Config, eng *engine.Engine) *Server {
	return &Server{
		cfg:             cfg,
		eng:             eng,
		shutdownTimeout: 30 * time.Second,
	}
}

// WithShutdownTimeout overrides the graceful-shutdown drain period.
func (s *Server) WithShutdownTimeout(d time.Duration) *Server {
	s.shutdownTimeout = d
	return s
}

func (s *Server) Start(ctx context.Context) error {
	workers := s.cfg.Server.Workers
	if workers <= 0 {
		workers = 2
	}

	h := NewHandler(s.eng,
		WithWorkers(workers),
		WithMaxAudioBytes(int64(s.cfg.Server.MaxAudioBytes)),
		WithRequestTimeout(time.Duration(s.cfg.Server.RequestTimeout)*time.Second),
	)

	httpServer := &http.Server{
		Addr:              s.cfg.Server.ListenAddr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http listen: %w", err)
	}
}

// ProbeHTTP reports an error unless addr answers GET /healthz with 200 OK.
func ProbeHTTP(addr string) error {
	resp, err := http.Get("http://" + addr + "/healthz") //nolint:noctx
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected health status: %s", resp.Status)
	}
	return nil
}

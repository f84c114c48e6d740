// Command server exposes the timing-leak measurement pipeline over HTTP.
// POST /run executes a measurement with request-supplied parameters and
// returns the run artifact as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/baditaflorin/l"
	"github.com/valyala/fasthttp"

	timingleak "github.com/baditaflorin/go_timing_leak"
	"github.com/baditaflorin/go_timing_leak/pkg/export"
)

// Default configuration
const (
	DefaultPort         = 8080
	DefaultReadTimeout  = 30 * time.Second
	DefaultWriteTimeout = 5 * time.Minute // a large run takes a while
	DefaultRunTimeout   = 4 * time.Minute
)

var logger l.Logger

// RunRequest carries the measurement parameters. Zero values fall back to
// the library defaults.
type RunRequest struct {
	SecretLength     int     `json:"secret_length,omitempty"`
	Alphabet         string  `json:"alphabet,omitempty"`
	Iterations       int     `json:"iterations,omitempty"`
	WarmupIterations int     `json:"warmup_iterations,omitempty"`
	HighThreshold    float64 `json:"high_threshold,omitempty"`
	LowThreshold     float64 `json:"low_threshold,omitempty"`
	Seed             uint64  `json:"seed,omitempty"`
	IncludeRaw       bool    `json:"include_raw,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

func main() {
	port := flag.Int("port", DefaultPort, "HTTP server port")
	readTimeout := flag.Duration("read-timeout", DefaultReadTimeout, "HTTP read timeout")
	writeTimeout := flag.Duration("write-timeout", DefaultWriteTimeout, "HTTP write timeout")
	runTimeout := flag.Duration("run-timeout", DefaultRunTimeout, "Maximum duration of one measurement run")
	logFile := flag.String("log-file", "", "Log file path (empty = stdout)")
	flag.Parse()

	var err error
	logger, err = createLogger(*logFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	logger.Info("Starting timing leak server",
		"port", *port,
		"read_timeout", *readTimeout,
		"write_timeout", *writeTimeout,
		"run_timeout", *runTimeout,
	)

	server := &fasthttp.Server{
		Handler:      makeRequestHandler(*runTimeout),
		ReadTimeout:  *readTimeout,
		WriteTimeout: *writeTimeout,
		// Measurements need an uncontended process; one run at a time.
		Concurrency: 1,
	}

	// Set up graceful shutdown
	idleConnsClosed := make(chan struct{})
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		logger.Info("Shutting down server...")
		if err := server.Shutdown(); err != nil {
			logger.Error("Error during server shutdown", "error", err)
		}
		close(idleConnsClosed)
	}()

	logger.Info("Server listening", "address", fmt.Sprintf(":%d", *port))
	if err := server.ListenAndServe(fmt.Sprintf(":%d", *port)); err != nil {
		logger.Error("Server error", "error", err)
	}

	<-idleConnsClosed
	logger.Info("Server stopped")
}

// createLogger builds the process logger, writing to a file when configured.
func createLogger(logFile string) (l.Logger, error) {
	output := os.Stdout
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, err
		}
		output = f
	}

	return l.NewStandardFactory().CreateLogger(l.Config{
		Output:      output,
		JsonFormat:  logFile != "",
		AsyncWrite:  true,
		BufferSize:  1024 * 1024,
		MaxFileSize: 10 * 1024 * 1024,
		MaxBackups:  5,
	})
}

// makeRequestHandler builds the main fasthttp request handler.
func makeRequestHandler(runTimeout time.Duration) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		startTime := time.Now()

		ctx.Response.Header.Set("Content-Type", "application/json")
		ctx.Response.Header.Set("Server", "TimingLeakServer")

		switch string(ctx.Path()) {
		case "/health":
			handleHealthCheck(ctx)
		case "/run":
			handleRun(ctx, runTimeout)
		default:
			ctx.SetStatusCode(fasthttp.StatusNotFound)
			writeJSONError(ctx, "Not found")
		}

		logger.Info("Request processed",
			"method", string(ctx.Method()),
			"path", string(ctx.Path()),
			"status", ctx.Response.StatusCode(),
			"ip", ctx.RemoteIP().String(),
			"duration", time.Since(startTime),
		)
	}
}

// handleHealthCheck responds to health check requests
func handleHealthCheck(ctx *fasthttp.RequestCtx) {
	ctx.SetStatusCode(fasthttp.StatusOK)
	writeJSONResponse(ctx, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleRun executes one measurement run with the requested parameters.
func handleRun(ctx *fasthttp.RequestCtx, runTimeout time.Duration) {
	if !ctx.IsPost() {
		ctx.SetStatusCode(fasthttp.StatusMethodNotAllowed)
		writeJSONError(ctx, "Method not allowed, use POST")
		return
	}

	var req RunRequest
	if len(ctx.PostBody()) > 0 {
		if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
			ctx.SetStatusCode(fasthttp.StatusBadRequest)
			writeJSONError(ctx, fmt.Sprintf("Invalid request body: %v", err))
			return
		}
	}

	opts := []timingleak.Option{
		timingleak.WithLogger(timingleak.NewLoggerFrom(logger)),
	}
	if req.SecretLength > 0 {
		opts = append(opts, timingleak.WithSecretLength(req.SecretLength))
	}
	if req.Alphabet != "" {
		opts = append(opts, timingleak.WithAlphabet(req.Alphabet))
	}
	if req.Iterations > 0 {
		opts = append(opts, timingleak.WithIterations(req.Iterations))
	}
	if req.WarmupIterations > 0 {
		opts = append(opts, timingleak.WithWarmup(req.WarmupIterations))
	}
	if req.HighThreshold > 0 || req.LowThreshold > 0 {
		opts = append(opts, timingleak.WithThresholds(req.HighThreshold, req.LowThreshold))
	}
	if req.Seed != 0 {
		opts = append(opts, timingleak.WithSeed(req.Seed))
	}

	exp, err := timingleak.New(opts...)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		writeJSONError(ctx, err.Error())
		return
	}

	runCtx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	result, err := exp.Run(runCtx)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		writeJSONError(ctx, err.Error())
		return
	}

	ctx.SetStatusCode(fasthttp.StatusOK)
	writeJSONResponse(ctx, export.NewDocument(result, export.Options{IncludeRaw: req.IncludeRaw}))
}

// writeJSONResponse writes a JSON response body
func writeJSONResponse(ctx *fasthttp.RequestCtx, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		writeJSONError(ctx, "Failed to encode response")
		return
	}
	ctx.SetBody(body)
}

// writeJSONError writes a JSON error body
func writeJSONError(ctx *fasthttp.RequestCtx, msg string) {
	body, _ := json.Marshal(ErrorResponse{Error: msg})
	ctx.SetBody(body)
}

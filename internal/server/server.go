package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/goosewin/kotoba/internal/core"
	"github.com/goosewin/kotoba/internal/lang"
)

const (
	defaultHost         = "127.0.0.1"
	defaultPort         = 8750
	defaultMaxBodyBytes = 64 * 1024
	requestIDHeader     = "X-Request-ID"
)

// Options configures the local translation API. RateLimit caps /translate
// requests per second; zero disables it.
type Options struct {
	Host         string
	Port         int
	Token        string
	Open         bool
	MaxBodyBytes int64
	RateLimit    float64
	RateBurst    int
	Translator   *core.Translator
	Logger       *zap.Logger
}

// StartServer serves the API until ctx is canceled.
func StartServer(ctx context.Context, opts Options) error {
	if opts.Translator == nil {
		return errors.New("translator is required")
	}
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = defaultHost
	}
	port := opts.Port
	if port == 0 {
		port = defaultPort
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("invalid port number: %d", port)
	}
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", host, port),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       30 * time.Second,
		Handler: NewHandler(HandlerOptions{
			Host:       host,
			Token:      opts.Token,
			Open:       opts.Open,
			MaxBody:    maxBody,
			RateLimit:  opts.RateLimit,
			RateBurst:  opts.RateBurst,
			Translator: opts.Translator,
			Logger:     logger,
		}),
	}

	shutdownErr := make(chan error, 1)
	go func() {
		<-ctx.Done()
		ctxTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		shutdownErr <- srv.Shutdown(ctxTimeout)
	}()

	logger.Info("translation server listening", zap.String("addr", srv.Addr))
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		select {
		case err := <-shutdownErr:
			return err
		default:
			return nil
		}
	}
	return err
}

// HandlerOptions configures NewHandler.
type HandlerOptions struct {
	Host       string
	Token      string
	Open       bool
	MaxBody    int64
	RateLimit  float64
	RateBurst  int
	Translator *core.Translator
	Logger     *zap.Logger
}

type api struct {
	opts       HandlerOptions
	translator *core.Translator
	pair       lang.Pair
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewHandler builds the router. Every route except OPTIONS preflight goes
// through the bearer token check.
func NewHandler(opts HandlerOptions) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &api{
		opts:       opts,
		translator: opts.Translator,
		pair:       opts.Translator.Adapter().Pair(),
		logger:     logger,
	}
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst < 1 {
			burst = 1
		}
		a.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	router := mux.NewRouter()
	router.Use(a.withRequestID, a.withAuth)
	router.HandleFunc("/", a.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/status", a.handleStatus).Methods(http.MethodGet)
	router.HandleFunc("/load", a.handleLoad).Methods(http.MethodPost)
	router.HandleFunc("/unload", a.handleUnload).Methods(http.MethodPost)
	router.Handle("/translate", a.withRateLimit(http.HandlerFunc(a.handleTranslate))).Methods(http.MethodPost)
	router.HandleFunc("/detect", a.handleDetect).Methods(http.MethodPost)
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusNotFound, "Unknown endpoint")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return withCORS(router, opts)
}

func withCORS(next http.Handler, opts HandlerOptions) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		corsOrigin := resolveCORSOrigin(r.Header.Get("Origin"), opts.Host, opts.Open)
		if corsOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", corsOrigin)
			if corsOrigin != "*" {
				w.Header().Set("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, "+requestIDHeader)
			w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Type, "+requestIDHeader)
			w.Header().Set("Access-Control-Max-Age", "86400")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if opts.MaxBody > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, opts.MaxBody)
		}
		next.ServeHTTP(w, r)
	})
}

func (a *api) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func (a *api) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !authorizeRequest(w, r, a.opts.Token) {
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withRateLimit rejects requests beyond the limiter's budget instead of
// queueing them behind running llama-cli processes.
func (a *api) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.limiter != nil && !a.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeJSONError(w, http.StatusTooManyRequests, "Too many translation requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func authorizeRequest(w http.ResponseWriter, r *http.Request, token string) bool {
	if token == "" {
		return true
	}
	fields := strings.Fields(strings.TrimSpace(r.Header.Get("Authorization")))
	if len(fields) != 2 || !strings.EqualFold(fields[0], "Bearer") || fields[1] != token {
		writeJSONError(w, http.StatusUnauthorized, "Invalid or missing Bearer token")
		return false
	}
	return true
}

func resolveCORSOrigin(origin, host string, open bool) string {
	origin = strings.TrimSpace(origin)
	if origin == "" {
		return ""
	}
	if open {
		return "*"
	}

	switch origin {
	case "http://localhost", "http://127.0.0.1", "http://[::1]":
		return origin
	}

	host = strings.TrimSpace(host)
	if host != "" && host != "0.0.0.0" && host != "::" && origin == "http://"+host {
		return origin
	}
	return ""
}

func (a *api) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "kotoba"})
}

type statusResponse struct {
	Ready      bool   `json:"ready"`
	Kind       string `json:"kind"`
	Weights    string `json:"weights"`
	Executable string `json:"executable,omitempty"`
	Local      string `json:"local"`
	Foreign    string `json:"foreign"`
}

func (a *api) status() statusResponse {
	return statusResponse{
		Ready:      a.translator.Ready(),
		Kind:       a.translator.Adapter().Kind().String(),
		Weights:    a.translator.Weights(),
		Executable: a.translator.Executable(),
		Local:      a.pair.Local.Code,
		Foreign:    a.pair.Foreign.Code,
	}
}

func (a *api) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.status())
}

func (a *api) handleLoad(w http.ResponseWriter, r *http.Request) {
	if err := a.translator.LoadModel(); err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a.status())
}

func (a *api) handleUnload(w http.ResponseWriter, r *http.Request) {
	a.translator.UnloadModel()
	writeJSON(w, http.StatusOK, a.status())
}

type translateRequest struct {
	Text   string `json:"text"`
	Source string `json:"source,omitempty"`
	Target string `json:"target,omitempty"`
}

type translateResponse struct {
	TranslatedText  string  `json:"translated_text"`
	Source          string  `json:"source"`
	Target          string  `json:"target"`
	DetectedSource  string  `json:"detected_source,omitempty"`
	DurationSeconds float64 `json:"duration_seconds"`
	TokenCount      *int    `json:"token_count,omitempty"`
}

func (a *api) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var source *lang.Language
	if strings.TrimSpace(req.Source) != "" {
		parsed, err := a.pair.Parse(req.Source)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		source = &parsed
	}

	var target lang.Language
	if strings.TrimSpace(req.Target) != "" {
		parsed, err := a.pair.Parse(req.Target)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		target = parsed
	} else if source != nil {
		target = source.Other()
	} else {
		target = lang.Detect(req.Text).Other()
	}

	result, err := a.translator.Translate(r.Context(), req.Text, source, target)
	if err != nil {
		a.writeError(w, err)
		return
	}

	resolved := target.Other()
	if source != nil {
		resolved = *source
	} else if result.DetectedSource != nil {
		resolved = *result.DetectedSource
	}
	response := translateResponse{
		TranslatedText:  result.TranslatedText,
		Source:          a.pair.Locale(resolved).Code,
		Target:          a.pair.Locale(target).Code,
		DurationSeconds: result.DurationSeconds(),
		TokenCount:      result.TokenCount,
	}
	if result.DetectedSource != nil {
		response.DetectedSource = a.pair.Locale(*result.DetectedSource).Code
	}
	writeJSON(w, http.StatusOK, response)
}

type detectRequest struct {
	Text string `json:"text"`
}

func (a *api) handleDetect(w http.ResponseWriter, r *http.Request) {
	var req detectRequest
	if !decodeBody(w, r, &req) {
		return
	}
	detected := lang.Detect(req.Text)
	writeJSON(w, http.StatusOK, map[string]string{
		"language": a.pair.Locale(detected).Code,
		"name":     a.pair.Name(detected),
		"side":     detected.String(),
	})
}

// decodeBody reads a JSON request body, answering 413 when it exceeds the
// size limit and 400 when it does not parse.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeJSONError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit))
		return false
	}
	writeJSONError(w, http.StatusBadRequest, "Invalid JSON body")
	return false
}

func (a *api) writeError(w http.ResponseWriter, err error) {
	switch {
	case core.IsValidation(err):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case core.IsConfiguration(err):
		writeJSONError(w, http.StatusServiceUnavailable, err.Error())
	case core.IsInference(err):
		a.logger.Warn("translation request failed", zap.Error(err))
		writeJSONError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeJSONError(w, http.StatusGatewayTimeout, err.Error())
	default:
		a.logger.Error("unexpected translation error", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "Translation failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "Failed to encode response")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

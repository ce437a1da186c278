package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Riboost-Studio/kiosk-print-agent/internal/model"
)

const (
	TokenHeader = "X-App-Token"
	tokenPath   = "/api/get_app_token"
	statusPath  = "/api/printer/status"
)

// tokenStore guards the app token shared by the worker and Authenticate.
type tokenStore struct {
	mu    sync.RWMutex
	token model.AuthToken
}

func (s *tokenStore) Get() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token.Value
}

func (s *tokenStore) Set(value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = model.AuthToken{Value: value, AcquiredAt: time.Now()}
}

type ReporterOptions struct {
	BaseURL   string
	AppSecret string
	QueueSize int
	Timeout   time.Duration

	// DrainTimeout bounds how long Close waits for queued reports.
	DrainTimeout time.Duration
}

// Reporter posts printer health to the backend from a single background
// worker. Report never blocks; when the queue is full the report is dropped.
type Reporter struct {
	baseURL      string
	appSecret    string
	drainTimeout time.Duration
	client       *http.Client
	logger       logrus.FieldLogger
	token        tokenStore

	mu      sync.RWMutex
	closed  bool
	started bool
	cancel  context.CancelFunc
	queue   chan model.StatusReport
	done    chan struct{}
}

func NewReporter(opts ReporterOptions, logger logrus.FieldLogger) *Reporter {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 32
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.DrainTimeout <= 0 {
		opts.DrainTimeout = 5 * time.Second
	}
	return &Reporter{
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		appSecret:    opts.AppSecret,
		drainTimeout: opts.DrainTimeout,
		client:       &http.Client{Timeout: opts.Timeout},
		logger:       logger.WithField("component", "reporter"),
		queue:        make(chan model.StatusReport, opts.QueueSize),
		done:         make(chan struct{}),
	}
}

// Start launches the delivery worker. Subsequent calls are no-ops.
func (r *Reporter) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started || r.closed {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	r.started = true
	r.cancel = cancel
	go r.run(ctx)
}

// Close stops accepting reports and waits for queued ones to be delivered.
// Reports still pending after the drain timeout are abandoned.
func (r *Reporter) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	started, cancel := r.started, r.cancel
	r.mu.Unlock()

	if !started {
		return
	}
	defer cancel()

	timer := time.NewTimer(r.drainTimeout)
	defer timer.Stop()
	select {
	case <-r.done:
	case <-timer.C:
		r.logger.WithField("timeout", r.drainTimeout).Warn("Status queue not drained in time, dropping pending reports")
		cancel()
		<-r.done
	}
}

func (r *Reporter) Report(isError bool, message string) {
	report := model.StatusReport{Error: isError, Message: message}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.logger.WithField("message", message).Debug("Reporter closed, dropping status report")
		return
	}
	select {
	case r.queue <- report:
	default:
		r.logger.WithField("message", message).Warn("Status queue full, dropping report")
	}
}

func (r *Reporter) run(ctx context.Context) {
	defer close(r.done)
	for {
		select {
		case report, ok := <-r.queue:
			if !ok {
				return
			}
			r.deliver(ctx, report)
		case <-ctx.Done():
			return
		}
	}
}

// deliver posts one report. A 401 triggers one token refresh and one retry.
func (r *Reporter) deliver(ctx context.Context, report model.StatusReport) {
	log := r.logger.WithFields(logrus.Fields{"error": report.Error, "message": report.Message})

	status, err := r.postStatus(ctx, report)
	if err != nil {
		log.WithError(err).Warn("Status report failed")
		return
	}

	if status == http.StatusUnauthorized {
		log.Info("App token rejected, refreshing")
		if err := r.Authenticate(ctx); err != nil {
			log.WithError(err).Warn("Token refresh failed, dropping status report")
			return
		}
		status, err = r.postStatus(ctx, report)
		if err != nil {
			log.WithError(err).Warn("Status report retry failed")
			return
		}
	}

	if status >= 300 {
		log.WithField("status", status).Warn("Status endpoint refused report")
		return
	}
	log.Debug("Status report delivered")
}

func (r *Reporter) postStatus(ctx context.Context, report model.StatusReport) (int, error) {
	body, err := json.Marshal(report)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+statusPath, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(TokenHeader, r.token.Get())

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}

// Authenticate exchanges the app secret for a fresh token.
func (r *Reporter) Authenticate(ctx context.Context) error {
	form := url.Values{"app_secret": {r.appSecret}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+tokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		statusErr := &model.StatusError{StatusCode: resp.StatusCode, Body: string(body)}
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return fmt.Errorf("%w: %w", model.ErrAuthRejected, statusErr)
		}
		return statusErr
	}

	var tr model.TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return fmt.Errorf("invalid token response: %w", err)
	}
	if tr.Token == "" {
		return fmt.Errorf("no token found in response")
	}

	r.token.Set(tr.Token)
	r.logger.Debug("App token acquired")
	return nil
}

// Token returns the current app token.
func (r *Reporter) Token() string {
	return r.token.Get()
}

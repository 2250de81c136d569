package client

import (
	"bufio"
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"board-sync/domain"
)

const sseLineMaxSize = 1 << 20

// EventHandler receives each realtime event parsed off the stream. Handlers
// must tolerate duplicate and out-of-order delivery.
type EventHandler interface {
	HandleEvent(ev domain.Event)
}

// Subscriber consumes the backend's SSE stream for one project and forwards
// each event to the handler. The connection is re-established with a fixed
// backoff until the context is cancelled; parse errors skip the frame.
type Subscriber struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	logger  *log.Logger

	// retryDelay between reconnect attempts, overridable in tests.
	retryDelay time.Duration
}

// NewSubscriber creates a subscriber for the backend's stream endpoint.
func NewSubscriber(baseURL string, tokens TokenSource, logger *log.Logger) *Subscriber {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Subscriber{
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       &http.Client{},
		tokens:     tokens,
		logger:     logger,
		retryDelay: time.Second,
	}
}

// Run streams events for the given project until the context is cancelled.
func (s *Subscriber) Run(ctx context.Context, projectID string, handler EventHandler) {
	for {
		if err := s.streamOnce(ctx, projectID, handler); err != nil && ctx.Err() == nil {
			s.logger.WithFields(log.Fields{"project": projectID, "error": err.Error()}).Error("stream disconnected, reconnecting")
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.retryDelay):
		}
	}
}

func (s *Subscriber) streamOnce(ctx context.Context, projectID string, handler EventHandler) error {
	endpoint := s.baseURL + "/stream?project=" + url.QueryEscape(projectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	token, err := s.tokens.Token(ctx)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return &StatusError{Code: resp.StatusCode}
	}

	s.logger.WithField("project", projectID).Info("stream connected")

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 4096), sseLineMaxSize)
	var data []byte
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if len(data) > 0 {
				s.dispatch(data, handler)
				data = nil
			}
		case strings.HasPrefix(line, "data:"):
			payload := strings.TrimPrefix(line, "data:")
			payload = strings.TrimPrefix(payload, " ")
			data = append(data, payload...)
		case strings.HasPrefix(line, ":"):
			// Comment/keepalive frame.
		}
	}
	return scanner.Err()
}

func (s *Subscriber) dispatch(data []byte, handler EventHandler) {
	var ev domain.Event
	if err := sonic.Unmarshal(data, &ev); err != nil {
		s.logger.WithField("error", err.Error()).Error("unable to parse stream event")
		return
	}
	handler.HandleEvent(ev)
}

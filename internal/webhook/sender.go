package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"presstrack/internal/db"
)

type Event string

const (
	EventProgressRecorded Event = "progress_recorded"
	EventJobFinished      Event = "job_finished"
	EventStatusChanged    Event = "status_changed"
	EventCartonsReceived  Event = "cartons_received"
)

// ValidEvent reports whether a subscription event name is known.
func ValidEvent(event string) bool {
	switch Event(event) {
	case EventProgressRecorded, EventJobFinished, EventStatusChanged, EventCartonsReceived:
		return true
	}
	return false
}

type Payload struct {
	Event     string      `json:"event"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
	Signature string      `json:"signature,omitempty"`
}

type ProgressData struct {
	RecordID string `json:"record_id"`
	Qty      int64  `json:"qty"`
	NewLeft  int64  `json:"new_left"`
	Machine  string `json:"machine,omitempty"`
}

type StatusData struct {
	RecordID string `json:"record_id"`
	Status   string `json:"status,omitempty"`
}

type CartonData struct {
	RecordID string `json:"record_id"`
	Cartons  int64  `json:"cartons"`
}

type Config struct {
	RetryCount  int
	RetryDelay  time.Duration
	Timeout     time.Duration
	WorkerCount int
	QueueSize   int
}

type task struct {
	webhookID int64
	event     Event
	payload   *Payload
	attempt   int
}

// Sender fans job lifecycle events out to registered webhook endpoints from a
// background worker pool, with exponential backoff on server-side failures
// and HMAC-SHA256 payload signing when the subscription has a secret.
type Sender struct {
	httpClient  *http.Client
	log         *zap.Logger
	retryCount  int
	retryDelay  time.Duration
	workerCount int
	queue       chan *task
	stopCh      chan struct{}
	wg          sync.WaitGroup
}

func NewSender(config Config, logger *zap.Logger) *Sender {
	if config.RetryCount <= 0 {
		config.RetryCount = 3
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = 5 * time.Second
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = 3
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Sender{
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		log:         logger,
		retryCount:  config.RetryCount,
		retryDelay:  config.RetryDelay,
		workerCount: config.WorkerCount,
		queue:       make(chan *task, config.QueueSize),
		stopCh:      make(chan struct{}),
	}
}

func (s *Sender) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
}

func (s *Sender) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

// ProgressRecorded, JobFinished, StatusChanged, and CartonsReceived implement
// the job service's event sink.

func (s *Sender) ProgressRecorded(recordID string, qty, newLeft int64, machine string) {
	s.enqueue(EventProgressRecorded, &ProgressData{
		RecordID: recordID,
		Qty:      qty,
		NewLeft:  newLeft,
		Machine:  machine,
	})
}

func (s *Sender) JobFinished(recordID string) {
	s.enqueue(EventJobFinished, &StatusData{RecordID: recordID})
}

func (s *Sender) StatusChanged(recordID, status string) {
	s.enqueue(EventStatusChanged, &StatusData{RecordID: recordID, Status: status})
}

func (s *Sender) CartonsReceived(recordID string, count int64) {
	s.enqueue(EventCartonsReceived, &CartonData{RecordID: recordID, Cartons: count})
}

func (s *Sender) enqueue(event Event, data interface{}) {
	webhooks, err := db.Webhooks.ListActiveWebhooksForEvent(context.Background(), string(event))
	if err != nil {
		s.log.Error("failed to load webhooks for event",
			zap.String("event", string(event)), zap.Error(err))
		return
	}

	for _, webhook := range webhooks {
		t := &task{
			webhookID: webhook.ID,
			event:     event,
			payload: &Payload{
				Event:     string(event),
				Timestamp: time.Now(),
				Data:      data,
			},
		}

		select {
		case s.queue <- t:
		default:
			s.log.Warn("webhook queue full, dropping event",
				zap.Int64("webhook_id", webhook.ID),
				zap.String("event", string(event)))
		}
	}
}

func (s *Sender) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopCh:
			return
		case t := <-s.queue:
			if err := s.sendWithRetry(t); err != nil {
				s.log.Error("webhook delivery failed",
					zap.Int("worker", id),
					zap.Int64("webhook_id", t.webhookID),
					zap.String("event", string(t.event)),
					zap.Int("attempts", t.attempt),
					zap.Error(err))
			}
		}
	}
}

func (s *Sender) sendWithRetry(t *task) error {
	webhook, err := db.Webhooks.GetWebhookByID(context.Background(), t.webhookID)
	if err != nil {
		return fmt.Errorf("get webhook: %w", err)
	}

	var lastErr error
	for t.attempt < s.retryCount {
		t.attempt++

		statusCode, err := s.sendRequest(webhook, t.payload)
		s.recordDelivery(webhook.ID, t.event, statusCode, err)
		if err == nil {
			return nil
		}

		lastErr = err

		if isClientError(err) {
			s.log.Warn("webhook rejected delivery, not retrying",
				zap.Int64("webhook_id", webhook.ID), zap.Error(err))
			return err
		}

		if t.attempt < s.retryCount {
			backoff := s.retryDelay * time.Duration(1<<(t.attempt-1))
			select {
			case <-s.stopCh:
				return fmt.Errorf("shutdown requested")
			case <-time.After(backoff):
			}
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (s *Sender) recordDelivery(webhookID int64, event Event, statusCode int, sendErr error) {
	d := &db.WebhookDelivery{
		WebhookID:  webhookID,
		Event:      string(event),
		Success:    sendErr == nil,
		StatusCode: statusCode,
	}
	if sendErr != nil {
		d.Error = sendErr.Error()
	}
	if err := db.Webhooks.RecordDelivery(context.Background(), d); err != nil {
		s.log.Warn("failed to record webhook delivery", zap.Error(err))
	}
}

func (s *Sender) sendRequest(webhook *db.Webhook, payload *Payload) (int, error) {
	dataBytes, err := json.Marshal(payload.Data)
	if err != nil {
		return 0, fmt.Errorf("marshal data: %w", err)
	}

	if webhook.Secret != "" {
		payload.Signature = SignPayload(dataBytes, webhook.Secret)
	}

	fullPayload, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequest("POST", webhook.URL, bytes.NewReader(fullPayload))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Signature", payload.Signature)
	req.Header.Set("X-Webhook-Event", payload.Event)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return resp.StatusCode, fmt.Errorf("http error: %d", resp.StatusCode)
	}

	return resp.StatusCode, nil
}

// SignPayload computes the hex HMAC-SHA256 signature receivers verify.
func SignPayload(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

func isClientError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "http error: 4")
}

package db

import (
	"context"
	"database/sql"
	"fmt"
)

type WebhookOperations struct{}

func (o *WebhookOperations) CreateWebhook(ctx context.Context, w *Webhook) error {
	result, err := GetDB().ExecContext(ctx, InsertWebhook,
		w.Name, w.URL, w.Secret, w.EventsJSON, boolToInt(w.Enabled))
	if err != nil {
		return fmt.Errorf("failed to create webhook: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get webhook id: %w", err)
	}
	w.ID = id
	return nil
}

func (o *WebhookOperations) GetWebhookByID(ctx context.Context, id int64) (*Webhook, error) {
	w := &Webhook{}
	var enabled int
	err := GetDB().QueryRowContext(ctx, GetWebhookByID, id).Scan(
		&w.ID, &w.Name, &w.URL, &w.Secret, &w.EventsJSON, &enabled, &w.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get webhook: %w", err)
	}
	w.Enabled = enabled == 1
	return w, nil
}

func (o *WebhookOperations) ListWebhooks(ctx context.Context) ([]*Webhook, error) {
	rows, err := GetDB().QueryContext(ctx, ListWebhooks)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhooks: %w", err)
	}
	defer rows.Close()
	return scanWebhooks(rows)
}

func (o *WebhookOperations) ListActiveWebhooksForEvent(ctx context.Context, event string) ([]*Webhook, error) {
	pattern := fmt.Sprintf("%%\"%s\"%%", event)
	rows, err := GetDB().QueryContext(ctx, ListWebhooksForEvent, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhooks for event: %w", err)
	}
	defer rows.Close()
	return scanWebhooks(rows)
}

func (o *WebhookOperations) UpdateWebhook(ctx context.Context, w *Webhook) error {
	_, err := GetDB().ExecContext(ctx, UpdateWebhook,
		w.Name, w.URL, w.Secret, w.EventsJSON, boolToInt(w.Enabled), w.ID)
	if err != nil {
		return fmt.Errorf("failed to update webhook: %w", err)
	}
	return nil
}

func (o *WebhookOperations) DeleteWebhook(ctx context.Context, id int64) error {
	_, err := GetDB().ExecContext(ctx, DeleteWebhook, id)
	if err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}
	return nil
}

func (o *WebhookOperations) RecordDelivery(ctx context.Context, d *WebhookDelivery) error {
	_, err := GetDB().ExecContext(ctx, InsertDelivery,
		d.WebhookID, d.Event, boolToInt(d.Success), d.StatusCode, d.Error)
	if err != nil {
		return fmt.Errorf("failed to record delivery: %w", err)
	}
	return nil
}

func (o *WebhookOperations) ListDeliveries(ctx context.Context, webhookID int64, limit, offset int) ([]*WebhookDelivery, error) {
	rows, err := GetDB().QueryContext(ctx, ListDeliveriesForWebhook, webhookID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list deliveries: %w", err)
	}
	defer rows.Close()

	var deliveries []*WebhookDelivery
	for rows.Next() {
		d := &WebhookDelivery{}
		var success int
		var statusCode sql.NullInt64
		var errMsg sql.NullString
		if err := rows.Scan(&d.ID, &d.WebhookID, &d.Event, &success, &statusCode, &errMsg, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan delivery: %w", err)
		}
		d.Success = success == 1
		d.StatusCode = int(statusCode.Int64)
		d.Error = errMsg.String
		deliveries = append(deliveries, d)
	}
	return deliveries, rows.Err()
}

func scanWebhooks(rows *sql.Rows) ([]*Webhook, error) {
	var webhooks []*Webhook
	for rows.Next() {
		w := &Webhook{}
		var enabled int
		if err := rows.Scan(&w.ID, &w.Name, &w.URL, &w.Secret, &w.EventsJSON, &enabled, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan webhook: %w", err)
		}
		w.Enabled = enabled == 1
		webhooks = append(webhooks, w)
	}
	return webhooks, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var Webhooks = &WebhookOperations{}

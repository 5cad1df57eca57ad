package db

const (
	InsertWebhook = `
		INSERT INTO webhooks (name, url, secret, events_json, enabled)
		VALUES (?, ?, ?, ?, ?)
	`

	GetWebhookByID = `
		SELECT id, name, url, secret, events_json, enabled, created_at
		FROM webhooks WHERE id = ?
	`

	ListWebhooks = `
		SELECT id, name, url, secret, events_json, enabled, created_at
		FROM webhooks ORDER BY name ASC
	`

	ListWebhooksForEvent = `
		SELECT id, name, url, secret, events_json, enabled, created_at
		FROM webhooks WHERE enabled = 1 AND events_json LIKE ?
	`

	UpdateWebhook = `
		UPDATE webhooks SET name = ?, url = ?, secret = ?, events_json = ?, enabled = ? WHERE id = ?
	`

	DeleteWebhook = `DELETE FROM webhooks WHERE id = ?`
)

const (
	InsertDelivery = `
		INSERT INTO webhook_deliveries (webhook_id, event, success, status_code, error)
		VALUES (?, ?, ?, ?, ?)
	`

	ListDeliveriesForWebhook = `
		SELECT id, webhook_id, event, success, status_code, error, created_at
		FROM webhook_deliveries WHERE webhook_id = ?
		ORDER BY created_at DESC LIMIT ? OFFSET ?
	`
)

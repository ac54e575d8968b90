package observability

const (
	MUsecaseRequests     MetricKey = "usecase_requests_total"
	MUsecaseDuration     MetricKey = "usecase_duration_seconds"
	MHTTPRequests        MetricKey = "http_requests_total"
	MHTTPRequestDuration MetricKey = "http_request_duration_seconds"
	MEventsPublished     MetricKey = "events_published_total"
	MBroadcastDeliveries MetricKey = "broadcast_deliveries_total"
	MObserversConnected  MetricKey = "observers_connected"
)

package observability

const (
	MSettlementRequests      MetricKey = "settlement_requests_total"
	MSettlementDuration      MetricKey = "settlement_duration_seconds"
	MHTTPRequests            MetricKey = "http_requests_total"
	MHTTPRequestDuration     MetricKey = "http_request_duration_seconds"
	MExternalRequests        MetricKey = "external_requests_total"
	MExternalRequestDuration MetricKey = "external_request_duration_seconds"
	MGatewayCallbacks        MetricKey = "gateway_callbacks_total"
	MSalesRecorded           MetricKey = "sales_recorded_total"
)

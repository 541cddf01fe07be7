package observability

const (
	MUsecaseRequests         MetricKey = "usecase_requests_total"
	MUsecaseDuration         MetricKey = "usecase_duration_seconds"
	MHTTPRequests            MetricKey = "http_requests_total"
	MHTTPRequestDuration     MetricKey = "http_request_duration_seconds"
	MExternalRequests        MetricKey = "external_requests_total"
	MExternalRequestDuration MetricKey = "external_request_duration_seconds"
	MPaymentAttempts         MetricKey = "payment_attempts_total"
	MPostPaymentFailures     MetricKey = "order_post_payment_failures_total"
	MAuditDropped            MetricKey = "audit_records_dropped_total"
)

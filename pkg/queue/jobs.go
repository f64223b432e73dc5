package queue

// Topics for background jobs. One topic per worker pool, mirroring the
// email / analytics / notification split the rest of the platform expects.
const (
	TopicEmail        = "jobs.email"
	TopicAnalytics    = "jobs.analytics"
	TopicNotification = "jobs.notification"
)

// Job types per topic.
const (
	JobWelcomeEmail      = "welcome-email"
	JobOrderConfirmation = "order-confirmation"
	JobOrderStatusEmail  = "order-status-update"

	JobOrderCompleted = "order-completed"
	JobProductView    = "product-view"

	JobOrderStatusNotify = "order-status-update"
	JobLowStockAlert     = "low-stock-alert"
)

// Job is the envelope every queued message carries. Data is opaque to the
// request path; only the workers interpret it.
type Job struct {
	Type string            `json:"type"`
	Data map[string]string `json:"data"`
}

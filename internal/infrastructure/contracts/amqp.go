package contracts

// AmqpMessage is the message structure for AMQP.
type AmqpMessage struct {
	BatchID string `json:"batchId"`
	Data    []byte `json:"data"`
}

// Routing keys - using consistent event/command patterns
const (
	EventCallsScraped       = "calls.scraped"
	EventAdjustmentsScraped = "adjustments.scraped"
	EventSyncCompleted      = "sync.completed"
	EventSyncFailed         = "sync.failed"
)

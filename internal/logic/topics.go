package logic

// PaymentEventTopic is the exchange payment lifecycle events are published to.
type PaymentEventTopic string

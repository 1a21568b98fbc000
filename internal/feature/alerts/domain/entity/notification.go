package entity

// Message is one notification: a single critical alert or a daily digest.
type Message struct {
	Subject  string   `json:"subject"`
	Body     string   `json:"body"`
	Severity Severity `json:"severity"`
	Alerts   []Alert  `json:"alerts"`
}

// Delivery is the outcome of sending a Message on one channel.
type Delivery struct {
	Channel string
	Err     error
}

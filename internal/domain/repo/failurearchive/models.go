package failurearchive

import "time"

type ProcessingError struct {
	ProcessingContext ProcessingContext
	Sources           Sources
	Reason            Reason
}

type ProcessingContext struct {
	Component Component
	Time      time.Time
	Host      string
}

type Component struct {
	Branch   string
	Revision string
}

type Sources struct {
	Main       Source
	Additional []KeyValue
}

type Source struct {
	Subscription string
	MessageID    string
	PublishTime  time.Time
	Payload      []byte
}

type KeyValue struct {
	Key   string
	Value []byte
}

type Reason struct {
	Category string
	Error    string
}

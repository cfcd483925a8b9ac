package driver

import "time"

// Status captures the state of one directory during a sync.
type Status string

const (
	// StatusPending indicates the directory has not been visited yet.
	StatusPending Status = "pending"
	// StatusWorking indicates the directory's files are being classified.
	StatusWorking Status = "working"
	// StatusPlanned indicates the export set was computed.
	StatusPlanned Status = "planned"
	// StatusWritten indicates the aggregator was (re)written.
	StatusWritten Status = "written"
	// StatusSkipped indicates the directory needs no aggregator.
	StatusSkipped Status = "skipped"
	// StatusError indicates the directory failed.
	StatusError Status = "error"
)

// Event reports progress for a directory.
type Event struct {
	Dir     string
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

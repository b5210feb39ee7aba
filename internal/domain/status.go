package domain

type StatusKind int

const (
	StatusNone StatusKind = iota
	StatusCheckingForUpdate
	StatusDownloading
	StatusFailed
)

func (k StatusKind) String() string {
	switch k {
	case StatusCheckingForUpdate:
		return "checking-for-update"
	case StatusDownloading:
		return "downloading"
	case StatusFailed:
		return "failed"
	default:
		return "none"
	}
}

// Status is what the editor's installation indicator displays.
type Status struct {
	Kind    StatusKind
	Message string
}

func Failed(msg string) Status {
	return Status{Kind: StatusFailed, Message: msg}
}

// NopSink discards status updates.
type NopSink struct{}

func (NopSink) SetStatus(Status) {}

// StatusFunc adapts a function to StatusSink.
type StatusFunc func(Status)

func (f StatusFunc) SetStatus(s Status) { f(s) }

package board

// EventKind identifies the change an Event carries.
type EventKind string

const (
	EventStarted  EventKind = "started"
	EventChunk    EventKind = "chunk"
	EventAsset    EventKind = "asset"
	EventFailed   EventKind = "failed"
	EventFinished EventKind = "finished"
)

// Event is a row-scoped update emitted by a running operation.
type Event struct {
	RowID  int
	Kind   EventKind
	Status Status
	// Text is the chunk text, the asset payload or the failure message.
	Text string
	// Prompt is the exact input used for an asset.
	Prompt string
	Err    error
}

func Started(rowID int, status Status) Event {
	return Event{RowID: rowID, Kind: EventStarted, Status: status}
}

func Chunk(rowID int, text string) Event {
	return Event{RowID: rowID, Kind: EventChunk, Text: text}
}

func AssetProduced(rowID int, payload, prompt string) Event {
	return Event{RowID: rowID, Kind: EventAsset, Text: payload, Prompt: prompt}
}

func Failed(rowID int, err error) Event {
	msg := "operation failed"
	if err != nil {
		msg = err.Error()
	}
	return Event{RowID: rowID, Kind: EventFailed, Text: msg, Err: err}
}

func Finished(rowID int) Event {
	return Event{RowID: rowID, Kind: EventFinished}
}

// Apply folds ev into a copy of r. Events for other rows return r unchanged.
func (r *Row) Apply(ev Event) *Row {
	if ev.RowID != r.ID {
		return r
	}
	switch ev.Kind {
	case EventStarted:
		out := r.Clone()
		out.Status = ev.Status
		out.LastError = ""
		if ev.Status == StatusGeneratingPrompt {
			out.VideoPrompt = ""
		}
		return out
	case EventChunk:
		if ev.Text == "" {
			return r
		}
		out := r.Clone()
		out.VideoPrompt += ev.Text
		return out
	case EventAsset:
		return r.WithAsset(ev.Text, ev.Prompt)
	case EventFailed:
		out := r.Clone()
		out.LastError = ev.Text
		out.Status = StatusIdle
		return out
	case EventFinished:
		if r.Status == StatusIdle {
			return r
		}
		out := r.Clone()
		out.Status = StatusIdle
		return out
	default:
		return r
	}
}

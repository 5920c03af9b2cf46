package tabula

// Event is a sealed interface representing progress within a turn.
// Events are purely informational; failures are reported through the
// turn's messages, not through events.
// The unexported marker method prevents external implementations.
type Event interface {
	event()
}

// EventCodeGenerated carries the analysis code produced for the request.
// Failed is set when generation failed and Code is a diagnostic.
type EventCodeGenerated struct {
	Code   string
	Failed bool
}

func (EventCodeGenerated) event() {}

// EventExecuted carries the captured execution outcome.
type EventExecuted struct {
	Result ExecutionResult
}

func (EventExecuted) event() {}

// EventReplied carries the assistant reply text.
type EventReplied struct {
	Text string
}

func (EventReplied) event() {}

// Interface compliance checks.
var (
	_ Event = EventCodeGenerated{}
	_ Event = EventExecuted{}
	_ Event = EventReplied{}
)

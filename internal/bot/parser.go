package bot

import (
	"strings"
)

type Event uint8

const (
	EventOther Event = iota + 1
	EventReady
	EventStarted
	EventStopped
	EventRejected
)

func (e Event) String() string {
	switch e {
	case EventReady:
		return "ready"
	case EventStarted:
		return "started"
	case EventStopped:
		return "stopped"
	case EventRejected:
		return "rejected"
	default:
		return "other"
	}
}

const (
	promptSentinel  = "> "
	startedMarker   = "started successfully"
	stoppedMarker   = "stopped successfully"
	rejectedCommand = "> That command doesn't exist"
)

// Line is one classified piece of process output. The prompt carries no text.
type Line struct {
	Text  string
	Event Event
}

// Parser splits a process output stream into classified lines. The prompt is
// not newline terminated, so a pending partial line ending in the sentinel is
// reported as EventReady.
type Parser struct {
	pending string
}

func (p *Parser) Feed(data []byte) []Line {
	p.pending += string(data)

	var lines []Line
	for {
		idx := strings.IndexByte(p.pending, '\n')
		if idx < 0 {
			break
		}

		text := strings.TrimRight(p.pending[:idx], "\r")
		p.pending = p.pending[idx+1:]
		if strings.TrimSpace(text) == "" {
			continue
		}
		lines = append(lines, Line{Text: text, Event: classify(text)})
	}

	if strings.HasSuffix(p.pending, promptSentinel) {
		// output written right before the prompt still counts
		if text := strings.TrimSuffix(p.pending, promptSentinel); strings.TrimSpace(text) != "" {
			lines = append(lines, Line{Text: text, Event: classify(text)})
		}
		lines = append(lines, Line{Event: EventReady})
		p.pending = ""
	}

	return lines
}

func classify(text string) Event {
	switch {
	case strings.Contains(text, rejectedCommand):
		return EventRejected
	case strings.Contains(text, startedMarker):
		return EventStarted
	case strings.Contains(text, stoppedMarker):
		return EventStopped
	default:
		return EventOther
	}
}

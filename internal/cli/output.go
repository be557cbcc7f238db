package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"
)

// Output handles formatting output based on the configured format.
// It is safe for concurrent use.
type Output struct {
	format string
	w      io.Writer
	errW   io.Writer
	mu     sync.Mutex
}

// NewOutput creates a new Output formatter
func NewOutput(format string, w, errW io.Writer) *Output {
	return &Output{format: format, w: w, errW: errW}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		_, _ = fmt.Fprintln(o.errW, string(data))
	} else {
		_, _ = fmt.Fprintf(o.errW, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		_, _ = fmt.Fprintln(o.w, string(data))
	} else {
		_, _ = fmt.Fprintln(o.w, msg)
	}
}

// PrintFrame outputs a server frame: the raw frame in json mode, the
// rendered line otherwise
func (o *Output) PrintFrame(frame []byte, text string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.format == "json" {
		_, _ = fmt.Fprintln(o.w, string(frame))
	} else {
		_, _ = fmt.Fprintln(o.w, text)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case StatusResult:
		_, _ = fmt.Fprintln(o.w, v.Text)
	case HealthResult:
		_, _ = fmt.Fprintf(o.w, "Status: %s\n", v.Status)
	case PlayersResult:
		o.printPlayers(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// StatusResult is the plain text acknowledgement of the status endpoint
type StatusResult struct {
	Text string `json:"text"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

// Player response type (matches API)
type Player struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	InGame   bool      `json:"in_game"`
	JoinedAt time.Time `json:"joined_at"`
}

// PlayersResult response type
type PlayersResult struct {
	Players []Player `json:"players"`
	Count   int      `json:"count"`
}

func (o *Output) printPlayers(r PlayersResult) {
	_, _ = fmt.Fprintf(o.w, "Players (%d):\n", r.Count)
	for _, p := range r.Players {
		state := ""
		if p.InGame {
			state = " [in game]"
		}
		_, _ = fmt.Fprintf(o.w, "  - %s (%s) since %s%s\n", p.Name, p.ID, p.JoinedAt.Format(time.RFC3339), state)
	}
}

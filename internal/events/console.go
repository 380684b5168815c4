package events

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// ConsoleSink prints one line per event, suitable for watching a run live.
// Lines look like:
//
//	14:02:33.120 [robot    ] robot.move from=rack slide=3 to=liquid_handler
type ConsoleSink struct {
	mu     sync.Mutex
	writer io.Writer
}

func NewConsoleSink(w io.Writer) *ConsoleSink {
	return &ConsoleSink{writer: w}
}

func (c *ConsoleSink) Record(_ context.Context, name string, payload Payload) error {
	var b strings.Builder
	b.WriteString(time.Now().Format("15:04:05.000"))
	b.WriteString(" [")
	fmt.Fprintf(&b, "%-9s", eventSource(name))
	b.WriteString("] ")
	b.WriteString(name)

	keys := make([]string, 0, len(payload))
	for key := range payload {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(&b, " %s=%v", key, payload[key])
	}
	b.WriteByte('\n')

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := io.WriteString(c.writer, b.String())
	return err
}

func eventSource(name string) string {
	if idx := strings.IndexByte(name, '.'); idx > 0 {
		return name[:idx]
	}
	return name
}

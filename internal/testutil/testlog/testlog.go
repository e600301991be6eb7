package testlog

import (
	"bytes"
	"sync"
	"testing"

	logs "github.com/danmuck/groupctl/internal/logging"
	"github.com/rs/zerolog"
)

func Start(t *testing.T) {
	t.Helper()
	logs.ConfigureTests()
	logs.Infof("test=%s", t.Name())
}

// Buffer collects JSON log lines written during a test.
type Buffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Capture routes the process logger into a Buffer as JSON lines until the
// test ends.
func Capture(t *testing.T) *Buffer {
	t.Helper()
	Start(t)
	b := &Buffer{}
	prev := logs.Replace(zerolog.New(b).Level(zerolog.DebugLevel))
	t.Cleanup(func() { logs.Replace(prev) })
	return b
}

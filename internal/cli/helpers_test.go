package cli

import (
	"bytes"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/cobra"
)

var (
	catalogDir   = filepath.Join("..", "..", "testdata", "catalog")
	invalidDir   = filepath.Join("..", "..", "testdata", "invalid")
	runConfigDir = filepath.Join("..", "..", "testdata", "runconfig")
)

func runConfig(name string) string {
	return filepath.Join(runConfigDir, name)
}

// execute runs cmd with args and returns what it wrote to stdout.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// syncBuffer is a bytes.Buffer safe for one writer and one reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerbosityFiltersLevels(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetVerbosity(int(Info))
	})

	SetVerbosity(int(Info))
	Infof("visible %d", 1)
	Debugf("hidden %d", 2)
	Warnf("warned")

	out := buf.String()
	assert.Contains(t, out, "visible 1")
	assert.Contains(t, out, "warned")
	assert.NotContains(t, out, "hidden 2")
	assert.Equal(t, Info, Verbosity())

	buf.Reset()
	SetVerbosity(int(Trace))
	Tracef("deep")
	assert.Contains(t, buf.String(), "deep")
	assert.Equal(t, Trace, Verbosity())

	buf.Reset()
	SetVerbosity(-4)
	Infof("quiet")
	Errorf("loud")
	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "loud")
	assert.Equal(t, Error, Verbosity())
}

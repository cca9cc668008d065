package cmd

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"funee/internal/report"
)

func TestUsageErrorClassification(t *testing.T) {
	assert.True(t, isUsageError(errors.New("unknown flag: --bogus")))
	assert.False(t, isUsageError(report.New(report.NOT_FOUND, "/x.ts", nil, "module not found")))

	wrapped := report.Wrap(errors.New("boom"), report.NETWORK_ERROR, "http://x", "network error")
	assert.False(t, isUsageError(wrapped))
}

func TestVersionTemplate(t *testing.T) {
	out := new(stringWriter)
	rootCmd.SetOut(out)
	rootCmd.SetArgs([]string{"--version"})
	err := rootCmd.Execute()
	assert.NoError(t, err)
	assert.Equal(t, "funee "+Version+"\n", out.s)
}

type stringWriter struct{ s string }

func (w *stringWriter) Write(p []byte) (int, error) {
	w.s += string(p)
	return len(p), nil
}

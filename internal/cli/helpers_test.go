package cli

import (
	"io"
	"testing"

	"task-tracker-api/internal/config"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func mustConfig(t *testing.T) *config.Config {
	t.Helper()
	c, err := config.Load("")
	require.NoError(t, err)
	return c
}

func silentLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

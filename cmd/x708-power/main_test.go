package main

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandRegistersLogLevelFlag(t *testing.T) {
	cmd := newCommand()

	flag := cmd.Flags().Lookup("log-level")
	require.NotNil(t, flag, "--log-level must be registered")
	assert.Equal(t, "info", flag.DefValue)
}

func TestSetupLoggerAppliesLevel(t *testing.T) {
	defer func(old string) { logLevel = old }(logLevel)
	defer logrus.SetLevel(logrus.GetLevel())

	logLevel = "debug"
	require.NoError(t, setupLogger())
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
}

func TestSetupLoggerRejectsUnknownLevel(t *testing.T) {
	defer func(old string) { logLevel = old }(logLevel)

	logLevel = "verbose"
	err := setupLogger()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse log level")
}

package main

import (
	"net"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmdFailsWhenPortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--host", "127.0.0.1", "--port", strconv.Itoa(port), "--metrics=false", "--log-level", "error"})
	err = cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address already in use")
}

func TestRootCmdRejectsInvalidConfig(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--store", "postgres"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store")
}

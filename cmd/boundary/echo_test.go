package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEcho(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	reply, err := echoTCP(ctx, "ping over tcp")
	require.NoError(t, err)
	assert.Equal(t, "ping over tcp", reply)

	reply, err = echoUDP(ctx, "ping over udp")
	require.NoError(t, err)
	assert.Equal(t, "ping over udp", reply)
}

func TestEchoCommand(t *testing.T) {
	cmd := configureCLI()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"echo", "hi"})

	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Equal(t, "tcp: \"hi\"\nudp: \"hi\"\n", out.String())
}

func TestSelftest_AllPass(t *testing.T) {
	for _, row := range runSelftest() {
		assert.Equal(t, "ok", row.Status, "%s %s via %s", row.Type, row.Value, row.Path)
	}
}

package contract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type heartbeat struct{}

func (heartbeat) Run(context.Context) error { return nil }

func TestGetWorkerName(t *testing.T) {
	req := require.New(t)
	req.Equal("heartbeat", GetWorkerName(heartbeat{}))
	req.Equal("heartbeat", GetWorkerName(&heartbeat{}))
	req.Equal("NilWorker", GetWorkerName(nil))
}

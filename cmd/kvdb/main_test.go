package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/sdesai/raft"
	"github.com/sdesai/raft/examples/kvapp"
	"github.com/sdesai/raft/simulator"
	"github.com/sdesai/raft/storage/memory"
)

// pump is the one goroutine this command spawns outside the deterministic
// core (§5); TestPumpExitsOnContextCancellation checks it actually stops
// instead of leaking once its context is canceled.
func TestPumpExitsOnContextCancellation(t *testing.T) {
	defer goleak.VerifyNone(t)

	cluster := raft.NewCluster(raft.PeerId(1))
	simulation, err := simulator.New[kvapp.Command, kvapp.CommandResult, kvapp.Query, kvapp.QueryResult, *kvapp.Store](
		cluster,
		kvapp.NoOp(),
		raft.Eventual,
		func(id raft.PeerId) raft.Storage[kvapp.Command, *kvapp.Store] {
			return memory.NewWithSnapshot[kvapp.Command](raft.NewSnapshot(raft.LogIndex(0), raft.Term(0), kvapp.NewStore()))
		},
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		pump(ctx, simulation, cluster, time.Hour, time.Hour)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pump did not exit after its context was canceled")
	}
}

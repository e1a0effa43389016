// Command kvdb runs a single-process key/value cluster: every peer lives in
// this process, driven by a background pump loop instead of wall-clock
// goroutines inside the core (the core itself stays synchronous per §5);
// one peer is additionally exposed over grpcraft so an external raft.Client
// can submit commands and queries against it.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"github.com/sdesai/raft"
	"github.com/sdesai/raft/examples/kvapp"
	"github.com/sdesai/raft/internal/logger"
	"github.com/sdesai/raft/simulator"
	"github.com/sdesai/raft/storage/file"
	"github.com/sdesai/raft/transport/grpcraft"
	"github.com/sdesai/raft/transport/grpcraft/wire"
)

type sim = simulator.Simulator[kvapp.Command, kvapp.CommandResult, kvapp.Query, kvapp.QueryResult, *kvapp.Store]

func main() {
	peerCount := flag.Int("peers", 3, "peers in the cluster")
	dataDir := flag.String("data-dir", "./kvdb-data", "base directory for each peer's file storage")
	listenAddr := flag.String("listen", ":7417", "address to expose peer 1's gRPC stream on")
	heartbeat := flag.Duration("heartbeat", 100*time.Millisecond, "wall-clock interval between heartbeat timeouts, driven from outside the core")
	electionTimeout := flag.Duration("election-timeout", 750*time.Millisecond, "wall-clock interval after which a quiet cluster is nudged into an election")
	flag.Parse()

	log, err := logger.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, "kvdb:", err)
		os.Exit(1)
	}

	if err := run(*peerCount, *dataDir, *listenAddr, *heartbeat, *electionTimeout, log); err != nil {
		log.Errorf("kvdb: %v", err)
		os.Exit(1)
	}
}

func run(peerCount int, dataDir, listenAddr string, heartbeat, electionTimeout time.Duration, log logger.Logger) error {
	members := make([]raft.PeerId, peerCount)
	for i := range members {
		members[i] = raft.PeerId(i + 1)
	}
	cluster := raft.NewCluster(members...)

	simulation, err := simulator.New[kvapp.Command, kvapp.CommandResult, kvapp.Query, kvapp.QueryResult, *kvapp.Store](
		cluster,
		kvapp.NoOp(),
		raft.Eventual,
		func(id raft.PeerId) raft.Storage[kvapp.Command, *kvapp.Store] {
			storage, err := file.Open[kvapp.Command, *kvapp.Store](fmt.Sprintf("%s/peer-%d", dataDir, id))
			if err != nil {
				panic(err)
			}
			if storage.Snapshot().Machine == nil {
				_ = storage.InstallSnapshot(raft.NewSnapshot(raft.LogIndex(0), raft.Term(0), kvapp.NewStore()))
			}
			return storage
		},
		raft.WithLogger(log),
	)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go pump(ctx, simulation, cluster, heartbeat, electionTimeout)

	peer1, _ := simulation.Peer(raft.PeerId(1))
	grpcServer, err := grpcraft.NewServer[kvapp.Command, kvapp.CommandResult, kvapp.Query, kvapp.QueryResult, *kvapp.Store](
		peer1,
		grpcraft.WithLogger(log),
	)
	if err != nil {
		return err
	}

	lis, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}
	server := grpc.NewServer(grpc.ForceServerCodec(wire.Codec{}))
	server.RegisterService(&grpcraft.ServiceDesc, grpcServer)

	go func() {
		log.Infof("kvdb: serving peer 1 on %s", listenAddr)
		if err := server.Serve(lis); err != nil {
			log.Errorf("kvdb: grpc server stopped: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	server.GracefulStop()
	return nil
}

// pump is the outside-the-core driver that keeps a co-located cluster
// moving: it auto-delivers every queued peer transmit immediately (no
// network latency since every peer lives in this process), applies
// committed entries, and fires heartbeat/election timeouts on a
// wall-clock ticker. None of this lives inside the deterministic core
// itself; the Simulator remains a pure step-function, stepped here instead
// of from a test harness.
func pump(ctx context.Context, simulation *sim, cluster raft.Cluster, heartbeat, electionTimeout time.Duration) {
	heartbeatTicker := time.NewTicker(heartbeat)
	defer heartbeatTicker.Stop()
	electionTicker := time.NewTicker(electionTimeout)
	defer electionTicker.Stop()
	drainTicker := time.NewTicker(5 * time.Millisecond)
	defer drainTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeatTicker.C:
			for _, id := range cluster.Members() {
				if peer, ok := simulation.Peer(id); ok {
					peer.TriggerHeartbeatTimeout()
				}
			}
		case <-electionTicker.C:
			for _, id := range cluster.Members() {
				if peer, ok := simulation.Peer(id); ok && peer.RoleState().Kind != raft.RoleLeader {
					peer.TriggerElectionTimeout()
				}
			}
		case <-drainTicker.C:
			drainAllTransmits(simulation, cluster)
			for _, id := range cluster.Members() {
				if peer, ok := simulation.Peer(id); ok {
					peer.ApplyCommitted()
				}
			}
		}
	}
}

func drainAllTransmits(simulation *sim, cluster raft.Cluster) {
	for _, id := range cluster.Members() {
		owner, ok := simulation.Peer(id)
		if !ok {
			continue
		}
		for {
			t, ok := owner.TakeBufferedPeerTransmit(func(raft.PeerTransmit[kvapp.Command]) bool { return true })
			if !ok {
				break
			}
			target, ok := simulation.Peer(t.PeerId)
			if !ok {
				continue
			}
			target.ReceivePeerMessage(id, t.RequestId, t.Message)
		}
	}
}

// Command raftctl is a scripted, non-interactive stand-in for the
// interactive debugger named in SPEC_FULL.md §6 ("utilities/debugger" in
// original_source/): no terminal-UI library appears anywhere in the
// retrieved example pack, so instead of a TUI event loop raftctl reads a
// line-oriented action log and drives simulator.Simulator.Perform directly,
// printing a line per action and the outcome of any Check.
//
// Action log grammar, one action per line, whitespace-separated:
//
//	timeout-election <peer>
//	timeout-heartbeat <peer>
//	transmit-request <peer> <request-id>
//	drop-request <peer> <request-id>
//	transmit-reply <peer> <replied-peer> <request-id>
//	drop-reply <peer> <replied-peer> <request-id>
//	apply-committed [<peer>]
//	send-command <client> insert <key> <value>
//	send-command <client> upsert <key> <value>
//	send-command <client> clear <key>
//	send-query <client> length
//	send-query <client> entry <key>
//	transmit-client-request <client> <request-id>
//	transmit-client-reply <peer> <client> <request-id>
//	drop-client-reply <peer> <client> <request-id>
//	check
//
// Blank lines and lines starting with # are ignored.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sdesai/raft"
	"github.com/sdesai/raft/examples/kvapp"
	"github.com/sdesai/raft/simulator"
	"github.com/sdesai/raft/storage/memory"
)

func main() {
	peerCount := flag.Int("peers", 3, "number of peers in the simulated cluster")
	scriptPath := flag.String("script", "", "path to an action log (defaults to stdin)")
	flag.Parse()

	if err := run(*peerCount, *scriptPath); err != nil {
		fmt.Fprintln(os.Stderr, "raftctl:", err)
		os.Exit(1)
	}
}

func run(peerCount int, scriptPath string) error {
	members := make([]raft.PeerId, peerCount)
	for i := range members {
		members[i] = raft.PeerId(i + 1)
	}
	cluster := raft.NewCluster(members...)

	sim, err := simulator.New[kvapp.Command, kvapp.CommandResult, kvapp.Query, kvapp.QueryResult, *kvapp.Store](
		cluster,
		kvapp.NoOp(),
		raft.Eventual,
		func(id raft.PeerId) raft.Storage[kvapp.Command, *kvapp.Store] {
			return memory.NewWithSnapshot[kvapp.Command](raft.NewSnapshot(raft.LogIndex(0), raft.Term(0), kvapp.NewStore()))
		},
	)
	if err != nil {
		return err
	}
	if err := sim.EnableChecks(func(id raft.PeerId) raft.Storage[kvapp.Command, *kvapp.Store] {
		return memory.NewWithSnapshot[kvapp.Command](raft.NewSnapshot(raft.LogIndex(0), raft.Term(0), kvapp.NewStore()))
	}); err != nil {
		return err
	}

	input := os.Stdin
	if scriptPath != "" {
		f, err := os.Open(scriptPath)
		if err != nil {
			return err
		}
		defer f.Close()
		input = f
	}

	scanner := bufio.NewScanner(input)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		action, err := parseAction(line)
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNumber, err)
		}
		fmt.Printf("[%d] %s\n", lineNumber, line)
		if err := sim.Perform(action); err != nil {
			fmt.Printf("    error: %v\n", err)
		}
	}
	return scanner.Err()
}

type simAction = simulator.Action[kvapp.Command, kvapp.Query, *kvapp.Store]

func parseAction(line string) (simAction, error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "timeout-election":
		peer, err := parsePeer(fields, 1)
		return simulator.TimeoutElection[kvapp.Command, kvapp.Query, *kvapp.Store](peer), err
	case "timeout-heartbeat":
		peer, err := parsePeer(fields, 1)
		return simulator.TimeoutHeartbeat[kvapp.Command, kvapp.Query, *kvapp.Store](peer), err
	case "transmit-request":
		peer, reqID, err := parsePeerAndRequest(fields)
		return simulator.TransmitPeerRequest[kvapp.Command, kvapp.Query, *kvapp.Store](peer, reqID), err
	case "drop-request":
		peer, reqID, err := parsePeerAndRequest(fields)
		return simulator.DropPeerRequest[kvapp.Command, kvapp.Query, *kvapp.Store](peer, reqID), err
	case "transmit-reply":
		peer, repliedPeer, reqID, err := parseReplyFields(fields)
		return simulator.TransmitPeerReply[kvapp.Command, kvapp.Query, *kvapp.Store](peer, repliedPeer, reqID), err
	case "drop-reply":
		peer, repliedPeer, reqID, err := parseReplyFields(fields)
		return simulator.DropPeerReply[kvapp.Command, kvapp.Query, *kvapp.Store](peer, repliedPeer, reqID), err
	case "apply-committed":
		if len(fields) == 1 {
			return simulator.ApplyCommitted[kvapp.Command, kvapp.Query, *kvapp.Store](nil), nil
		}
		peer, err := parsePeer(fields, 1)
		return simulator.ApplyCommitted[kvapp.Command, kvapp.Query, *kvapp.Store](&peer), err
	case "send-command":
		return parseSendCommand(fields)
	case "send-query":
		return parseSendQuery(fields)
	case "transmit-client-request":
		client, reqID, err := parseClientAndRequest(fields)
		return simulator.TransmitClientRequest[kvapp.Command, kvapp.Query, *kvapp.Store](client, reqID), err
	case "transmit-client-reply":
		peer, client, reqID, err := parseClientReplyFields(fields)
		return simulator.TransmitClientReply[kvapp.Command, kvapp.Query, *kvapp.Store](peer, client, reqID), err
	case "drop-client-reply":
		peer, client, reqID, err := parseClientReplyFields(fields)
		return simulator.DropClientReply[kvapp.Command, kvapp.Query, *kvapp.Store](peer, client, reqID), err
	case "check":
		return simulator.Check[kvapp.Command, kvapp.Query, *kvapp.Store](), nil
	default:
		return simAction{}, fmt.Errorf("unrecognized action %q", fields[0])
	}
}

func parsePeer(fields []string, idx int) (raft.PeerId, error) {
	if len(fields) <= idx {
		return 0, fmt.Errorf("%s: missing peer argument", fields[0])
	}
	n, err := strconv.ParseUint(fields[idx], 10, 64)
	return raft.PeerId(n), err
}

func parsePeerAndRequest(fields []string) (raft.PeerId, raft.RequestId, error) {
	if len(fields) < 3 {
		return 0, 0, fmt.Errorf("%s: expected peer and request-id", fields[0])
	}
	peer, err := parsePeer(fields, 1)
	if err != nil {
		return 0, 0, err
	}
	reqID, err := strconv.ParseUint(fields[2], 10, 64)
	return peer, raft.RequestId(reqID), err
}

func parseReplyFields(fields []string) (raft.PeerId, raft.PeerId, raft.RequestId, error) {
	if len(fields) < 4 {
		return 0, 0, 0, fmt.Errorf("%s: expected peer, replied-peer, request-id", fields[0])
	}
	peer, err := parsePeer(fields, 1)
	if err != nil {
		return 0, 0, 0, err
	}
	repliedPeer, err := parsePeer(fields, 2)
	if err != nil {
		return 0, 0, 0, err
	}
	reqID, err := strconv.ParseUint(fields[3], 10, 64)
	return peer, repliedPeer, raft.RequestId(reqID), err
}

func parseClientAndRequest(fields []string) (raft.ClientId, raft.RequestId, error) {
	if len(fields) < 3 {
		return 0, 0, fmt.Errorf("%s: expected client and request-id", fields[0])
	}
	client, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return 0, 0, err
	}
	reqID, err := strconv.ParseUint(fields[2], 10, 64)
	return raft.ClientId(client), raft.RequestId(reqID), err
}

func parseClientReplyFields(fields []string) (raft.PeerId, raft.ClientId, raft.RequestId, error) {
	if len(fields) < 4 {
		return 0, 0, 0, fmt.Errorf("%s: expected peer, client, request-id", fields[0])
	}
	peer, err := parsePeer(fields, 1)
	if err != nil {
		return 0, 0, 0, err
	}
	client, err := strconv.ParseUint(fields[2], 10, 64)
	if err != nil {
		return 0, 0, 0, err
	}
	reqID, err := strconv.ParseUint(fields[3], 10, 64)
	return peer, raft.ClientId(client), raft.RequestId(reqID), err
}

func parseSendCommand(fields []string) (simAction, error) {
	if len(fields) < 3 {
		return simAction{}, fmt.Errorf("send-command: expected client and operation")
	}
	client, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return simAction{}, err
	}
	var cmd kvapp.Command
	switch fields[2] {
	case "insert":
		if len(fields) < 5 {
			return simAction{}, fmt.Errorf("send-command insert: expected key and value")
		}
		cmd = kvapp.Insert(fields[3], fields[4])
	case "upsert":
		if len(fields) < 5 {
			return simAction{}, fmt.Errorf("send-command upsert: expected key and value")
		}
		cmd = kvapp.Upsert(fields[3], fields[4])
	case "clear":
		if len(fields) < 4 {
			return simAction{}, fmt.Errorf("send-command clear: expected key")
		}
		cmd = kvapp.Clear(fields[3])
	default:
		return simAction{}, fmt.Errorf("send-command: unrecognized operation %q", fields[2])
	}
	return simulator.SendCommand[kvapp.Command, kvapp.Query, *kvapp.Store](raft.ClientId(client), nil, cmd), nil
}

func parseSendQuery(fields []string) (simAction, error) {
	if len(fields) < 3 {
		return simAction{}, fmt.Errorf("send-query: expected client and operation")
	}
	client, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return simAction{}, err
	}
	var q kvapp.Query
	switch fields[2] {
	case "length":
		q = kvapp.Length()
	case "entry":
		if len(fields) < 4 {
			return simAction{}, fmt.Errorf("send-query entry: expected key")
		}
		q = kvapp.Entry(fields[3])
	default:
		return simAction{}, fmt.Errorf("send-query: unrecognized operation %q", fields[2])
	}
	return simulator.SendQuery[kvapp.Command, kvapp.Query, *kvapp.Store](raft.ClientId(client), nil, q), nil
}

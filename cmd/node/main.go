// Copyright 2025 Certen Protocol
//
// Daemon entry point: the CLI surface spec §6 names (--daemon,
// --data_path, --network, --config, --version, --help) plus the
// construction wiring for every CONSENSUS CORE component. Grounded on the
// teacher's flag-driven bootstrap in pkg/attestation/strategy's
// constructor chain, generalized to the full component graph of spec §2's
// data-flow diagram.

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/big"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/consensuscore/node/pkg/block"
	"github.com/consensuscore/node/pkg/config"
	"github.com/consensuscore/node/pkg/confheight"
	"github.com/consensuscore/node/pkg/election"
	"github.com/consensuscore/node/pkg/ledger"
	"github.com/consensuscore/node/pkg/network"
	"github.com/consensuscore/node/pkg/numeric"
	"github.com/consensuscore/node/pkg/sigcheck"
	"github.com/consensuscore/node/pkg/stats"
	"github.com/consensuscore/node/pkg/store"
	"github.com/consensuscore/node/pkg/vote"
	"github.com/consensuscore/node/pkg/votegen"
	"github.com/consensuscore/node/pkg/workpool"
	"github.com/prometheus/client_golang/prometheus"
)

// version is set at build time; "dev" covers local, un-released builds.
var version = "dev"

// stringList implements flag.Value, accumulating repeated --config
// key=value occurrences (spec §6 "(repeatable)").
type stringList []string

func (s *stringList) String() string { return fmt.Sprint([]string(*s)) }
func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("node", flag.ContinueOnError)
	daemon := fs.Bool("daemon", false, "run the node")
	dataPath := fs.String("data_path", "", "data directory")
	netKind := fs.String("network", "", "network kind: live, beta, or test")
	configFile := fs.String("config_file", "", "path to the TOML config file")
	showVersion := fs.Bool("version", false, "print version and exit")
	var overrides stringList
	fs.Var(&overrides, "config", "config override key=value (repeatable)")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *showVersion {
		fmt.Println("consensuscore node", version)
		return 0
	}
	if !*daemon {
		fs.Usage()
		return 0
	}

	cfg, err := config.Load(*configFile, overrides)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		return 1
	}
	if *dataPath != "" {
		cfg.Node.DataPath = *dataPath
	}
	if *netKind != "" {
		cfg.Node.Network = config.NetworkKind(*netKind)
	}
	switch cfg.Node.Network {
	case config.NetworkLive, config.NetworkBeta, config.NetworkTest:
	default:
		fmt.Fprintf(os.Stderr, "invalid network %q\n", cfg.Node.Network)
		return 1
	}

	n, err := newNode(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "initialization failed:", err)
		return 1
	}
	defer n.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	n.Run(ctx)
	return 0
}

// node aggregates every CONSENSUS CORE component for one running daemon.
// Per spec §9 ("Global mutable state"), cfg and params are fixed here and
// shared by reference for the rest of the process's life.
type node struct {
	cfg    *config.Config
	logger *log.Logger
	stats  *stats.Registry

	store     *store.Store
	ledger    *ledger.Ledger
	work      *workpool.Pool
	sigcheck  *sigcheck.Verifier
	votes     *vote.Processor
	voteCache *vote.Cache
	active    *election.ActiveTransactions
	confht    *confheight.Processor
	votegen   *votegen.Generator
	peers     *network.PeerTable
	flooder   *network.Flooder
	limiter   *network.Limiter
}

func newNode(cfg *config.Config) (*node, error) {
	logger := log.New(os.Stderr, "[node] ", log.LstdFlags)

	if err := os.MkdirAll(cfg.Node.DataPath, 0o755); err != nil {
		return nil, fmt.Errorf("create data_path: %w", err)
	}
	backendKind := store.BackendBTree
	if cfg.Node.Backend == "goleveldb" || config.UseRocksDB() {
		backendKind = store.BackendLSM
	}
	backend, err := store.Open(backendKind, "consensuscore", filepath.Clean(cfg.Node.DataPath))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	st := store.New(backend)
	if err := st.EnsureVersion(); err != nil {
		backend.Close()
		return nil, fmt.Errorf("store version check: %w", err)
	}

	reg := stats.New(prometheus.NewRegistry())

	params := networkParams(cfg.Node.Network)
	lg := ledger.New(st, params,
		ledger.WithLogger(log.New(os.Stderr, "[ledger] ", log.LstdFlags)),
		ledger.WithRolledBackCounter(reg.RolledBackBlocks),
	)

	workThreads := cfg.Node.WorkThreads
	if workThreads <= 0 {
		workThreads = runtime.NumCPU()
	}
	workPool, err := workpool.New(workThreads,
		workpool.WithLogger(log.New(os.Stderr, "[work] ", log.LstdFlags)),
		workpool.WithEcoPow(cfg.EcoPowSleep()),
		workpool.WithCancelCounter(reg.WorkQueueOverflow),
	)
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("start work pool: %w", err)
	}
	workPool.Start()

	sigVerifier := sigcheck.New(sigcheck.WithThreads(cfg.Node.SignatureCheckerThreads))

	voteCache := vote.NewCache(0, 0)

	confhtProc := confheight.New(st,
		confheight.WithLogger(log.New(os.Stderr, "[confirmation_height_processing] ", log.LstdFlags)),
		confheight.WithConfirmedCounter(reg.ConfirmedBlocks),
	)

	active := election.New(st, lg.Weights(), confhtProc,
		election.WithLogger(log.New(os.Stderr, "[active_transactions] ", log.LstdFlags)),
		election.WithCapacity(cfg.Node.ActiveElectionsSize),
		election.WithQuorumPercent(cfg.Node.OnlineWeightQuorumPercent),
		election.WithVoteCache(voteCache),
	)

	votesProc := vote.NewProcessor(9*1024, active, voteCache,
		vote.WithLogger(log.New(os.Stderr, "[vote_processing] ", log.LstdFlags)),
		vote.WithOverflowCounter(reg.VoteQueueOverflow),
	)

	peers := network.NewPeerTable(1)
	var limiter *network.Limiter
	if cfg.Node.BandwidthLimitBytesPerSec > 0 {
		limiter = network.NewLimiter(cfg.Node.BandwidthLimitBytesPerSec, cfg.Node.BandwidthLimitBurstBytes)
	}
	flooder := network.NewFlooder(peers)
	flooder.DropCounter = func(policy network.DropPolicy) {
		reg.SocketWriteDropped.WithLabelValues(policy.String()).Inc()
	}

	gen := votegen.New(st, &genesisFlooder{flooder: flooder},
		votegen.WithDelay(cfg.VoteGeneratorDelay()),
		votegen.WithThreshold(cfg.Node.VoteGeneratorThreshold),
		votegen.WithLogger(log.New(os.Stderr, "[voting] ", log.LstdFlags)),
	)

	return &node{
		cfg:       cfg,
		logger:    logger,
		stats:     reg,
		store:     st,
		ledger:    lg,
		work:      workPool,
		sigcheck:  sigVerifier,
		votes:     votesProc,
		voteCache: voteCache,
		active:    active,
		confht:    confhtProc,
		votegen:   gen,
		peers:     peers,
		flooder:   flooder,
		limiter:   limiter,
	}, nil
}

// genesisFlooder adapts network.Flooder to votegen.Flooder; block
// serialization for the vote's wire framing is out of CONSENSUS CORE's
// scope (spec §1), so the payload here is only the voting account's bytes;
// the vote's hashes, sequence and signature are not sent.
type genesisFlooder struct {
	flooder *network.Flooder
}

func (g *genesisFlooder) FloodVote(v *vote.Vote) {
	g.flooder.Send(network.Message{Type: 0, Payload: v.Account[:]}, network.DropLimiter)
}

// Run blocks until ctx is cancelled (SIGINT/SIGTERM), ticking the
// components that need periodic work.
func (n *node) Run(ctx context.Context) {
	n.logger.Printf("consensuscore node starting: network=%s data_path=%s", n.cfg.Node.Network, n.cfg.Node.DataPath)
	n.votes.Start()
	defer n.votes.Stop()
	<-ctx.Done()
	n.logger.Printf("shutting down")
	n.votegen.Flush()
}

// Close releases every owned resource.
func (n *node) Close() {
	_ = n.work.Stop()
	_ = n.store.Close()
}

// networkParams returns the ledger.Params for kind; live carries the real
// genesis account/amount, beta and test use smaller throwaway values so
// test suites never share state with a live chain (spec §9 "a single
// network-parameters value is fixed at startup").
func networkParams(kind config.NetworkKind) *ledger.Params {
	switch kind {
	case config.NetworkTest:
		return testParams()
	case config.NetworkBeta:
		return betaParams()
	default:
		return liveParams()
	}
}

// maxUint128Hex is 2^128-1, the live network's total genesis supply (every
// unit of raw that will ever exist, as with the original nano ledger).
const maxUint128Hex = "ffffffffffffffffffffffffffffffff"

func liveParams() *ledger.Params {
	genesisAccount, _ := numeric.ParseAccount(
		"nano_3t6k35gi95xu6tergt6p69ck76ogmitsa8mnijtpxm9fkcm736xtoncuohr3",
	)
	genesisAmount, err := numeric.Uint128FromHex(maxUint128Hex)
	if err != nil {
		panic("networkParams: malformed genesis amount constant: " + err.Error())
	}
	return &ledger.Params{
		GenesisAccount: genesisAccount,
		GenesisAmount:  genesisAmount,
		EpochSigners:   map[block.Epoch]numeric.Account{},
		Thresholds:     map[block.Epoch]ledger.Thresholds{},
	}
}

func betaParams() *ledger.Params {
	p := liveParams()
	amount, err := numeric.Uint128FromBig(big.NewInt(1_000_000_000))
	if err != nil {
		panic("networkParams: malformed beta genesis amount: " + err.Error())
	}
	p.GenesisAmount = amount
	return p
}

func testParams() *ledger.Params {
	acc, _, err := numeric.GenerateKeypair()
	if err != nil {
		panic("networkParams: test keypair generation failed: " + err.Error())
	}
	amount, err := numeric.Uint128FromBig(big.NewInt(1_000_000_000_000))
	if err != nil {
		panic("networkParams: malformed test genesis amount: " + err.Error())
	}
	return &ledger.Params{
		GenesisAccount: acc,
		GenesisAmount:  amount,
		EpochSigners:   map[block.Epoch]numeric.Account{},
		Thresholds:     map[block.Epoch]ledger.Thresholds{},
	}
}

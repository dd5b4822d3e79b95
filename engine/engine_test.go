package engine

import (
	"context"
	"testing"
	"time"

	"github.com/whiskylabs/whisky-protocol-core/errors"
	"github.com/whiskylabs/whisky-protocol-core/game"
	"github.com/whiskylabs/whisky-protocol-core/logging"
	"github.com/whiskylabs/whisky-protocol-core/pkg/custody"
	"github.com/whiskylabs/whisky-protocol-core/pkg/derive"
	"github.com/whiskylabs/whisky-protocol-core/store"
)

const (
	testAuthority = "authority-1"
	testOracle    = "oracle-1"
	testAsset     = "USDQ"
	testLP        = "lp-1"
	testUser      = "user-1"
	testCreator   = "creator-1"
)

type captureSink struct {
	poolChanges []*game.PoolChange
	settled     []*game.GameSettled
}

func (s *captureSink) PoolChanged(_ context.Context, c *game.PoolChange) { s.poolChanges = append(s.poolChanges, c) }
func (s *captureSink) GameSettled(_ context.Context, g *game.GameSettled) { s.settled = append(s.settled, g) }

type fixture struct {
	engine *Engine
	bank   *custody.MemoryBank
	sink   *captureSink
	pool   string
	now    *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	bank := custody.NewMemoryBank()
	sink := &captureSink{}
	e := New(store.NewMemory(), bank, sink, logging.NewDefault(), Options{
		PendingTimeout:  5 * time.Minute,
		VerifySeedChain: true,
	})
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return now }

	if _, err := e.InitProtocol(ctx, testAuthority); err != nil {
		t.Fatalf("InitProtocol: %v", err)
	}
	cfg, err := e.GetProtocolConfig(ctx)
	if err != nil {
		t.Fatalf("GetProtocolConfig: %v", err)
	}
	cfg.OracleAddress = testOracle
	cfg.MaxHouseEdgeBps = 5_000
	if err := e.SetProtocolConfig(ctx, testAuthority, cfg); err != nil {
		t.Fatalf("SetProtocolConfig: %v", err)
	}

	pool, err := e.CreatePool(ctx, testAuthority, testAsset)
	if err != nil {
		t.Fatalf("CreatePool: %v", err)
	}

	f := &fixture{engine: e, bank: bank, sink: sink, pool: pool.ID, now: &now}

	if err := bank.Mint(ctx, testLP, testAsset, 2_000_000); err != nil {
		t.Fatalf("mint lp: %v", err)
	}
	if err := bank.Mint(ctx, testUser, testAsset, 50_000); err != nil {
		t.Fatalf("mint user: %v", err)
	}
	if _, err := e.Deposit(ctx, testLP, pool.ID, 1_000_000); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	return f
}

func (f *fixture) balance(t *testing.T, account string) uint64 {
	t.Helper()
	bal, err := f.bank.Balance(context.Background(), account, testAsset)
	if err != nil {
		t.Fatalf("Balance(%s): %v", account, err)
	}
	return bal
}

func wantCode(t *testing.T, err error, code int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error code %d, got nil", code)
	}
	if got := errors.GetCode(err); got != code {
		t.Fatalf("expected error code %d, got %d (%v)", code, got, err)
	}
}

func TestInitProtocolTwice(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.InitProtocol(context.Background(), "someone-else")
	wantCode(t, err, errors.ErrConflict)
}

func TestSetProtocolConfigAuthority(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cfg, _ := f.engine.GetProtocolConfig(ctx)
	err := f.engine.SetProtocolConfig(ctx, "impostor", cfg)
	wantCode(t, err, errors.ErrOwnerUnauthorized)

	cfg.ProtocolFeeBps = 20_000
	err = f.engine.SetProtocolConfig(ctx, testAuthority, cfg)
	wantCode(t, err, errors.ErrConfigOutOfBounds)
}

func TestCreatePoolTwice(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.CreatePool(context.Background(), testAuthority, testAsset)
	wantCode(t, err, errors.ErrPoolExists)
}

func TestDepositBootstrapsOneToOne(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// The fixture already made the bootstrap deposit.
	snap, err := f.engine.GetPool(ctx, f.pool)
	if err != nil {
		t.Fatalf("GetPool: %v", err)
	}
	if snap.Pool.ShareSupply != 1_000_000 {
		t.Fatalf("bootstrap share supply = %d, want 1000000", snap.Pool.ShareSupply)
	}
	if snap.Liquidity != 1_000_000 {
		t.Fatalf("liquidity = %d, want 1000000", snap.Liquidity)
	}

	// A second deposit at unchanged liquidity mints at the same ratio.
	shares, err := f.engine.Deposit(ctx, testLP, f.pool, 250_000)
	if err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if shares != 250_000 {
		t.Fatalf("second deposit shares = %d, want 250000", shares)
	}
}

func TestWithdrawTakesFee(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out, err := f.engine.Withdraw(ctx, testLP, f.pool, 500_000)
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	// 500000 gross minus the 1% withdraw fee.
	if out != 495_000 {
		t.Fatalf("withdraw amount = %d, want 495000", out)
	}
	snap, _ := f.engine.GetPool(ctx, f.pool)
	if snap.Pool.ShareSupply != 500_000 {
		t.Fatalf("share supply = %d, want 500000", snap.Pool.ShareSupply)
	}
	if snap.Liquidity != 505_000 {
		t.Fatalf("liquidity = %d, want 505000", snap.Liquidity)
	}
}

func TestDepositWhitelist(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.SetPoolParams(ctx, testAuthority, f.pool, PoolParams{
		MinWager:          game.DefaultPoolMinWager,
		WhitelistRequired: true,
		DepositWhitelist:  []string{testLP},
	})
	if err != nil {
		t.Fatalf("SetPoolParams: %v", err)
	}

	_, err = f.engine.Deposit(ctx, testUser, f.pool, 10_000)
	wantCode(t, err, errors.ErrNotWhitelisted)

	if _, err := f.engine.Deposit(ctx, testLP, f.pool, 10_000); err != nil {
		t.Fatalf("whitelisted deposit: %v", err)
	}
}

func lowerMinWager(t *testing.T, f *fixture) {
	t.Helper()
	_, err := f.engine.SetPoolParams(context.Background(), testAuthority, f.pool, PoolParams{
		MinWager: game.MinWager,
	})
	if err != nil {
		t.Fatalf("SetPoolParams: %v", err)
	}
}

func play(t *testing.T, f *fixture) *game.Game {
	t.Helper()
	g, err := f.engine.PlayGame(context.Background(), PlayRequest{
		User:       testUser,
		Pool:       f.pool,
		Creator:    testCreator,
		Bet:        []uint32{1, 1},
		Wager:      10_000,
		ClientSeed: "client-seed",
	})
	if err != nil {
		t.Fatalf("PlayGame: %v", err)
	}
	return g
}

func TestPlaySettleClaim(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lowerMinWager(t, f)

	g := play(t, f)
	if g.Status != game.StatusAwaitingResult {
		t.Fatalf("status = %s, want awaiting_result", g.Status)
	}
	if g.Nonce != 0 {
		t.Fatalf("first nonce = %d, want 0", g.Nonce)
	}
	if got := f.balance(t, derive.Escrow(testUser)); got != 10_000 {
		t.Fatalf("escrow after play = %d, want 10000", got)
	}
	if got := f.balance(t, testUser); got != 40_000 {
		t.Fatalf("user after play = %d, want 40000", got)
	}

	settled, err := f.engine.Settle(ctx, testOracle, SettleRequest{
		User:         testUser,
		Nonce:        0,
		RngSeed:      "oracle-seed-0",
		NextSeedHash: game.HashSeed("oracle-seed-1"),
	})
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}

	// A [1,1] bet pays 2x on either outcome.
	if settled.MultiplierBps != 20_000 {
		t.Fatalf("multiplier = %d, want 20000", settled.MultiplierBps)
	}
	if settled.Payout != 20_000 {
		t.Fatalf("payout = %d, want 20000", settled.Payout)
	}
	wantIndex := game.ResultIndex(game.Hash("oracle-seed-0", "client-seed", 0), []uint32{1, 1})
	if settled.Result != wantIndex {
		t.Fatalf("result = %d, want %d", settled.Result, wantIndex)
	}
	if settled.Status != game.StatusReady {
		t.Fatalf("status = %s, want ready", settled.Status)
	}

	// Wager split: 2% protocol fee to the fee vault, the rest to the pool,
	// then the payout funds the escrow.
	if got := f.balance(t, derive.FeeVault()); got != 200 {
		t.Fatalf("fee vault = %d, want 200", got)
	}
	if got := f.balance(t, derive.PoolVault(f.pool)); got != 989_800 {
		t.Fatalf("pool vault = %d, want 989800", got)
	}
	if got := f.balance(t, derive.Escrow(testUser)); got != 20_000 {
		t.Fatalf("escrow after settle = %d, want 20000", got)
	}

	amount, err := f.engine.Claim(ctx, testUser, 0)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if amount != 20_000 {
		t.Fatalf("claimed = %d, want 20000", amount)
	}
	if got := f.balance(t, testUser); got != 60_000 {
		t.Fatalf("user after claim = %d, want 60000", got)
	}

	// Claiming again is a no-op.
	amount, err = f.engine.Claim(ctx, testUser, 0)
	if err != nil || amount != 0 {
		t.Fatalf("second claim = (%d, %v), want (0, nil)", amount, err)
	}

	if len(f.sink.settled) != 1 {
		t.Fatalf("settled events = %d, want 1", len(f.sink.settled))
	}
	if f.sink.settled[0].PoolLiquidity != 989_800 {
		t.Fatalf("event liquidity = %d, want 989800", f.sink.settled[0].PoolLiquidity)
	}
}

func TestSettleStateErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lowerMinWager(t, f)

	req := SettleRequest{
		User:         testUser,
		Nonce:        0,
		RngSeed:      "oracle-seed-0",
		NextSeedHash: game.HashSeed("oracle-seed-1"),
	}

	_, err := f.engine.Settle(ctx, testOracle, req)
	wantCode(t, err, errors.ErrGameNotFound)

	play(t, f)

	_, err = f.engine.Settle(ctx, "impostor", req)
	wantCode(t, err, errors.ErrOracleUnauthorized)

	_, err = f.engine.Claim(ctx, testUser, 0)
	wantCode(t, err, errors.ErrNotReadyToClaim)

	if _, err := f.engine.Settle(ctx, testOracle, req); err != nil {
		t.Fatalf("Settle: %v", err)
	}
	_, err = f.engine.Settle(ctx, testOracle, req)
	wantCode(t, err, errors.ErrResultNotRequested)
}

func TestOnlyOneGameInFlight(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lowerMinWager(t, f)

	play(t, f)
	_, err := f.engine.PlayGame(ctx, PlayRequest{
		User:       testUser,
		Pool:       f.pool,
		Creator:    testCreator,
		Bet:        []uint32{1, 1},
		Wager:      10_000,
		ClientSeed: "client-seed",
	})
	wantCode(t, err, errors.ErrGameInProgress)
}

func TestNonceAdvancesAndSweepsEscrow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lowerMinWager(t, f)

	play(t, f)
	if _, err := f.engine.Settle(ctx, testOracle, SettleRequest{
		User: testUser, Nonce: 0,
		RngSeed:      "oracle-seed-0",
		NextSeedHash: game.HashSeed("oracle-seed-1"),
	}); err != nil {
		t.Fatalf("Settle: %v", err)
	}

	// Play again without claiming: the 20000 payout sweeps to the user and
	// only the new wager sits in escrow.
	g := play(t, f)
	if g.Nonce != 1 {
		t.Fatalf("second nonce = %d, want 1", g.Nonce)
	}
	if got := f.balance(t, derive.Escrow(testUser)); got != 10_000 {
		t.Fatalf("escrow = %d, want 10000", got)
	}
	if got := f.balance(t, testUser); got != 50_000 {
		t.Fatalf("user = %d, want 50000", got)
	}
}

func TestSeedChainVerification(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lowerMinWager(t, f)

	err := f.engine.ProvideNextSeedHash(ctx, "impostor", testUser, game.HashSeed("oracle-seed-0"))
	wantCode(t, err, errors.ErrOracleUnauthorized)

	if err := f.engine.ProvideNextSeedHash(ctx, testOracle, testUser, game.HashSeed("oracle-seed-0")); err != nil {
		t.Fatalf("ProvideNextSeedHash: %v", err)
	}

	g := play(t, f)
	if g.CommittedSeedHash != game.HashSeed("oracle-seed-0") {
		t.Fatalf("committed hash not copied from player record")
	}

	_, err = f.engine.Settle(ctx, testOracle, SettleRequest{
		User: testUser, Nonce: 0,
		RngSeed:      "wrong-seed",
		NextSeedHash: game.HashSeed("oracle-seed-1"),
	})
	wantCode(t, err, errors.ErrSeedHashMismatch)

	if _, err := f.engine.Settle(ctx, testOracle, SettleRequest{
		User: testUser, Nonce: 0,
		RngSeed:      "oracle-seed-0",
		NextSeedHash: game.HashSeed("oracle-seed-1"),
	}); err != nil {
		t.Fatalf("Settle with matching seed: %v", err)
	}

	// The next round inherits the commitment revealed at settlement.
	g2 := play(t, f)
	if g2.CommittedSeedHash != game.HashSeed("oracle-seed-1") {
		t.Fatalf("seed chain did not roll forward")
	}
}

func TestFirstGameAfterSeedCommitUsesSlotZero(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lowerMinWager(t, f)

	// The oracle commitment creates the player record before any round.
	// The first game must still land at nonce 0.
	if err := f.engine.ProvideNextSeedHash(ctx, testOracle, testUser, game.HashSeed("oracle-seed-0")); err != nil {
		t.Fatalf("ProvideNextSeedHash: %v", err)
	}

	g := play(t, f)
	if g.Nonce != 0 {
		t.Fatalf("first game nonce = %d, want 0", g.Nonce)
	}

	if _, err := f.engine.Settle(ctx, testOracle, SettleRequest{
		User: testUser, Nonce: 0,
		RngSeed:      "oracle-seed-0",
		NextSeedHash: game.HashSeed("oracle-seed-1"),
	}); err != nil {
		t.Fatalf("Settle at nonce 0: %v", err)
	}

	g2 := play(t, f)
	if g2.Nonce != 1 {
		t.Fatalf("second game nonce = %d, want 1", g2.Nonce)
	}
}

func TestExpire(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lowerMinWager(t, f)

	play(t, f)

	_, err := f.engine.Expire(ctx, testUser, 0)
	wantCode(t, err, errors.ErrGameNotExpired)

	*f.now = f.now.Add(6 * time.Minute)
	g, err := f.engine.Expire(ctx, testUser, 0)
	if err != nil {
		t.Fatalf("Expire: %v", err)
	}
	if g.Status != game.StatusReady || !g.Expired || g.Payout != 0 {
		t.Fatalf("expired game = %+v", g)
	}

	// The wager is refundable through the normal claim path.
	amount, err := f.engine.Claim(ctx, testUser, 0)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if amount != 10_000 {
		t.Fatalf("refund = %d, want 10000", amount)
	}
}

func TestClose(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lowerMinWager(t, f)

	play(t, f)
	err := f.engine.Close(ctx, testUser, 0)
	wantCode(t, err, errors.ErrGameInProgress)

	if _, err := f.engine.Settle(ctx, testOracle, SettleRequest{
		User: testUser, Nonce: 0,
		RngSeed:      "oracle-seed-0",
		NextSeedHash: game.HashSeed("oracle-seed-1"),
	}); err != nil {
		t.Fatalf("Settle: %v", err)
	}

	err = f.engine.Close(ctx, testUser, 0)
	wantCode(t, err, errors.ErrNotReadyToClaim)

	if _, err := f.engine.Claim(ctx, testUser, 0); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if err := f.engine.Close(ctx, testUser, 0); err != nil {
		t.Fatalf("Close: %v", err)
	}
	g, err := f.engine.GetGame(ctx, testUser, 0)
	if err != nil || g != nil {
		t.Fatalf("game after close = (%v, %v), want (nil, nil)", g, err)
	}
}

func TestPlayValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lowerMinWager(t, f)

	base := PlayRequest{
		User:       testUser,
		Pool:       f.pool,
		Creator:    testCreator,
		Bet:        []uint32{1, 1},
		Wager:      10_000,
		ClientSeed: "client-seed",
	}

	tests := []struct {
		name string
		mod  func(r *PlayRequest)
		code int
	}{
		{"wager below floor", func(r *PlayRequest) { r.Wager = 500 }, errors.ErrWagerTooLow},
		{"single outcome", func(r *PlayRequest) { r.Bet = []uint32{50} }, errors.ErrInvalidBetShape},
		{"zero weights", func(r *PlayRequest) { r.Bet = []uint32{0, 0} }, errors.ErrInvalidBetWeights},
		{"creator fee too high", func(r *PlayRequest) { r.CreatorFeeBps = 9_000 }, errors.ErrCreatorFeeTooHigh},
		{"house edge too high", func(r *PlayRequest) { r.Bet = []uint32{99, 1} }, errors.ErrHouseEdgeTooHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base
			tt.mod(&req)
			_, err := f.engine.PlayGame(ctx, req)
			wantCode(t, err, tt.code)
		})
	}
}

func TestPlayDisabled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lowerMinWager(t, f)

	cfg, _ := f.engine.GetProtocolConfig(ctx)
	cfg.PlayingAllowed = false
	if err := f.engine.SetProtocolConfig(ctx, testAuthority, cfg); err != nil {
		t.Fatalf("SetProtocolConfig: %v", err)
	}
	_, err := f.engine.PlayGame(ctx, PlayRequest{
		User: testUser, Pool: f.pool, Creator: testCreator,
		Bet: []uint32{1, 1}, Wager: 10_000, ClientSeed: "client-seed",
	})
	wantCode(t, err, errors.ErrPlaysNotAllowed)
}

func TestJackpotSplit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lowerMinWager(t, f)

	// Force a guaranteed jackpot draw so the split is observable.
	cfg, _ := f.engine.GetProtocolConfig(ctx)
	cfg.JackpotBaseUbps = game.MaxJackpotProbabilityUbps
	if err := f.engine.SetProtocolConfig(ctx, testAuthority, cfg); err != nil {
		t.Fatalf("SetProtocolConfig: %v", err)
	}

	g, err := f.engine.PlayGame(ctx, PlayRequest{
		User:          testUser,
		Pool:          f.pool,
		Creator:       testCreator,
		Bet:           []uint32{1, 1},
		Wager:         10_000,
		ClientSeed:    "client-seed",
		JackpotFeeBps: 100,
	})
	if err != nil {
		t.Fatalf("PlayGame: %v", err)
	}
	if g.JackpotFee != 100 {
		t.Fatalf("jackpot fee = %d, want 100", g.JackpotFee)
	}
	if g.JackpotProbabilityUbps != game.MaxJackpotProbabilityUbps {
		t.Fatalf("probability = %d, want max", g.JackpotProbabilityUbps)
	}

	settled, err := f.engine.Settle(ctx, testOracle, SettleRequest{
		User: testUser, Nonce: 0,
		RngSeed:      "oracle-seed-0",
		NextSeedHash: game.HashSeed("oracle-seed-1"),
	})
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if !settled.JackpotWon {
		t.Fatal("jackpot not won at probability 1")
	}
	// Vault held exactly the 100 jackpot fee: 70% to the player, 10% each
	// to creator, pool and protocol.
	if settled.JackpotPayout != 70 {
		t.Fatalf("jackpot payout = %d, want 70", settled.JackpotPayout)
	}
	if got := f.balance(t, derive.JackpotVault(f.pool)); got != 0 {
		t.Fatalf("jackpot vault after split = %d, want 0", got)
	}
	if got := f.balance(t, testCreator); got != 10 {
		t.Fatalf("creator jackpot cut = %d, want 10", got)
	}
}

func TestDistributeFees(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lowerMinWager(t, f)

	play(t, f)
	if _, err := f.engine.Settle(ctx, testOracle, SettleRequest{
		User: testUser, Nonce: 0,
		RngSeed:      "oracle-seed-0",
		NextSeedHash: game.HashSeed("oracle-seed-1"),
	}); err != nil {
		t.Fatalf("Settle: %v", err)
	}

	_, err := f.engine.DistributeFees(ctx, "impostor", testAsset)
	wantCode(t, err, errors.ErrOwnerUnauthorized)

	amount, err := f.engine.DistributeFees(ctx, testAuthority, testAsset)
	if err != nil {
		t.Fatalf("DistributeFees: %v", err)
	}
	if amount != 200 {
		t.Fatalf("distributed = %d, want 200", amount)
	}
	if got := f.balance(t, testAuthority); got != 200 {
		t.Fatalf("recipient balance = %d, want 200", got)
	}
}

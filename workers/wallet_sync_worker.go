// workers/wallet_sync_worker.go
package workers

import (
	"context"
	"fmt"

	"agent-grid-rewards/chain"
	"agent-grid-rewards/logging"
	"agent-grid-rewards/services"
)

// TokenMirrorWorker mirrors each wallet holder's on-chain token balance.
// It never writes the ledger.
type TokenMirrorWorker struct {
	users  *services.UserService
	oracle chain.BalanceOracle
	log    logging.Logger
}

func NewTokenMirrorWorker(users *services.UserService, oracle chain.BalanceOracle, log logging.Logger) *TokenMirrorWorker {
	return &TokenMirrorWorker{users: users, oracle: oracle, log: log}
}

func (w *TokenMirrorWorker) Name() string { return "token_mirror" }

func (w *TokenMirrorWorker) Run(ctx context.Context) error {
	holders, err := w.users.WalletHolders(ctx)
	if err != nil {
		return err
	}

	var failed int
	for _, u := range holders {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		addr := *u.WalletAddress
		bal, err := w.oracle.BalanceOf(ctx, addr)
		if err != nil {
			failed++
			w.log.Warn("balance read failed", "fid", u.FID, "address", addr, "error", err)
			continue
		}
		if err := w.users.RecordTokenBalance(ctx, u.FID, addr, bal); err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d balance reads failed", failed, len(holders))
	}
	w.log.Debug("token balances mirrored", "holders", len(holders))
	return nil
}

package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"storyweave/internal/chain"
	"storyweave/internal/common/poll"
	"storyweave/internal/gateway/config"
	tlsvc "storyweave/internal/gateway/service/timeline"

	"github.com/ethereum/go-ethereum/ethclient"
)

// initChain connects to the RPC node and returns a Dialer binding universes
// to timeline contracts. Without a signer the contracts are read-only.
func initChain(ctx context.Context, cfg config.ChainConfig) (*ethclient.Client, tlsvc.Dialer, error) {
	client, err := chain.Dial(ctx, cfg.RPCURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to dial chain rpc: %w", err)
	}
	signer, err := chain.NewSigner(cfg.SignerKey, cfg.ChainID)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	if signer == nil {
		log.Printf("chain: rpc=%s read-only", cfg.RPCURL)
	} else {
		log.Printf("chain: rpc=%s signer=%s", cfg.RPCURL, signer.Address().Hex())
	}
	receipts := poll.Policy{Interval: 2 * time.Second, Timeout: 3 * time.Minute, MaxErrors: 5}
	dial := func(address string) (tlsvc.Contract, error) {
		t, err := chain.NewTimeline(client, address, signer, receipts)
		if err != nil {
			return nil, err
		}
		return t, nil
	}
	return client, dial, nil
}

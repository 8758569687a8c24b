// Package chain reads and extends the narrative graph stored in the
// timeline contract.
package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"storyweave/internal/common/poll"
	"storyweave/internal/timeline"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

var (
	ErrReadOnly       = errors.New("chain: no signer configured")
	ErrReverted       = errors.New("chain: transaction reverted")
	ErrBadAddress     = errors.New("chain: invalid contract address")
	ErrUnexpectedType = errors.New("chain: unexpected return type")
)

// Backend is the subset of *ethclient.Client the contract client needs.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingCallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

var _ Backend = (*ethclient.Client)(nil)

func Dial(ctx context.Context, rpcURL string) (*ethclient.Client, error) {
	c, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rpcURL, err)
	}
	return c, nil
}

// Signer holds the key used for createNode transactions. A zero ChainID is
// resolved from the backend on first use.
type Signer struct {
	Key     *ecdsa.PrivateKey
	ChainID *big.Int
}

func NewSigner(hexKey string, chainID int64) (*Signer, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if hexKey == "" {
		return nil, nil
	}
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("signer key: %w", err)
	}
	s := &Signer{Key: key}
	if chainID > 0 {
		s.ChainID = big.NewInt(chainID)
	}
	return s, nil
}

func (s *Signer) Address() common.Address {
	if s == nil || s.Key == nil {
		return common.Address{}
	}
	return crypto.PubkeyToAddress(s.Key.PublicKey)
}

var parsedABI = func() abi.ABI {
	a, err := abi.JSON(strings.NewReader(timelineABI))
	if err != nil {
		panic(err)
	}
	return a
}()

// Timeline is a client for one deployed timeline contract.
type Timeline struct {
	backend Backend
	address common.Address
	signer  *Signer
	receipt poll.Policy

	// writes share one nonce sequence
	writeMu sync.Mutex
}

func ParseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrBadAddress, s)
	}
	return common.HexToAddress(s), nil
}

// NewTimeline binds to the contract at address. signer may be nil for a
// read-only client.
func NewTimeline(backend Backend, address string, signer *Signer, receipt poll.Policy) (*Timeline, error) {
	addr, err := ParseAddress(address)
	if err != nil {
		return nil, err
	}
	return &Timeline{backend: backend, address: addr, signer: signer, receipt: receipt}, nil
}

func (t *Timeline) Address() string { return t.address.Hex() }

// Creator is the address recorded for nodes this client creates.
func (t *Timeline) Creator() string {
	if t.signer == nil {
		return ""
	}
	return t.signer.Address().Hex()
}

func (t *Timeline) call(ctx context.Context, method string, args ...any) ([]any, error) {
	return t.simulate(ctx, false, method, args...)
}

// simulate runs method as an eth_call, against the pending block when pending
// is set and the latest block otherwise.
func (t *Timeline) simulate(ctx context.Context, pending bool, method string, args ...any) ([]any, error) {
	data, err := parsedABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &t.address, Data: data}
	if t.signer != nil {
		msg.From = t.signer.Address()
	}
	var out []byte
	if pending {
		out, err = t.backend.PendingCallContract(ctx, msg)
	} else {
		out, err = t.backend.CallContract(ctx, msg, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	vals, err := parsedABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return vals, nil
}

// GetFullGraph reads the whole graph. Entries that cannot be decoded are
// reported as issues on the snapshot and skipped.
func (t *Timeline) GetFullGraph(ctx context.Context) (timeline.Snapshot, error) {
	vals, err := t.call(ctx, "getFullGraph")
	if err != nil {
		return timeline.Snapshot{}, err
	}
	if len(vals) != 6 {
		return timeline.Snapshot{}, fmt.Errorf("%w: getFullGraph returned %d values", ErrUnexpectedType, len(vals))
	}
	ids, ok1 := vals[0].([]*big.Int)
	links, ok2 := vals[1].([]string)
	plots, ok3 := vals[2].([]string)
	prev, ok4 := vals[3].([]*big.Int)
	next, ok5 := vals[4].([][]*big.Int)
	canon, ok6 := vals[5].([]bool)
	if !(ok1 && ok2 && ok3 && ok4 && ok5 && ok6) {
		return timeline.Snapshot{}, fmt.Errorf("%w: getFullGraph", ErrUnexpectedType)
	}
	return snapshotFromArrays(ids, links, plots, prev, next, canon), nil
}

func snapshotFromArrays(ids []*big.Int, links, plots []string, prev []*big.Int, next [][]*big.Int, canon []bool) timeline.Snapshot {
	var s timeline.Snapshot
	n := len(ids)
	for _, l := range []int{len(links), len(plots), len(prev), len(canon)} {
		if l != len(ids) {
			s.Issues = append(s.Issues, timeline.Issue{
				Kind:   timeline.IssueMalformedEntry,
				Index:  -1,
				Detail: fmt.Sprintf("ragged arrays: ids=%d links=%d plots=%d previousIds=%d canon=%d", len(ids), len(links), len(plots), len(prev), len(canon)),
			})
			break
		}
	}
	n = min(n, len(links), len(plots), len(prev), len(canon))
	for i := 0; i < n; i++ {
		id, ok := toUint64(ids[i])
		if !ok || id == 0 {
			s.Issues = append(s.Issues, timeline.Issue{Kind: timeline.IssueMalformedEntry, Index: i, Detail: fmt.Sprintf("id %v", ids[i])})
			continue
		}
		parent, ok := toUint64(prev[i])
		if !ok {
			s.Issues = append(s.Issues, timeline.Issue{Kind: timeline.IssueMalformedEntry, NodeID: id, Index: i, Detail: fmt.Sprintf("previousId %v", prev[i])})
			continue
		}
		node := timeline.Node{ID: id, Link: links[i], Plot: plots[i], PreviousID: parent, Canon: canon[i]}
		if i < len(next) {
			node.NextIDs = make([]uint64, 0, len(next[i]))
			for _, c := range next[i] {
				if v, ok := toUint64(c); ok {
					node.NextIDs = append(node.NextIDs, v)
				}
			}
		}
		s.Nodes = append(s.Nodes, node)
	}
	return s
}

func toUint64(v *big.Int) (uint64, bool) {
	if v == nil || v.Sign() < 0 || !v.IsUint64() {
		return 0, false
	}
	return v.Uint64(), true
}

func (t *Timeline) GetLeaves(ctx context.Context) ([]uint64, error) {
	vals, err := t.call(ctx, "getLeaves")
	if err != nil {
		return nil, err
	}
	if len(vals) != 1 {
		return nil, fmt.Errorf("%w: getLeaves returned %d values", ErrUnexpectedType, len(vals))
	}
	raw, ok := vals[0].([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: getLeaves", ErrUnexpectedType)
	}
	out := make([]uint64, 0, len(raw))
	for _, v := range raw {
		if id, ok := toUint64(v); ok {
			out = append(out, id)
		}
	}
	return out, nil
}

// CreateNode appends a node under previousID (0 for a new root). The id is
// taken from a simulated call against the pending block; the transaction is
// then signed, sent and awaited. Writes from this process are serialized, but
// a transaction from another account that lands first shifts the contract's
// counter, so the returned id can be stale in that case.
func (t *Timeline) CreateNode(ctx context.Context, link, plot string, previousID uint64) (uint64, error) {
	if t.signer == nil || t.signer.Key == nil {
		return 0, ErrReadOnly
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	prev := new(big.Int).SetUint64(previousID)
	vals, err := t.simulate(ctx, true, "createNode", link, plot, prev)
	if err != nil {
		return 0, err
	}
	newID, ok := vals[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("%w: createNode", ErrUnexpectedType)
	}
	id, ok := toUint64(newID)
	if !ok {
		return 0, fmt.Errorf("%w: node id %v", ErrUnexpectedType, newID)
	}

	data, err := parsedABI.Pack("createNode", link, plot, prev)
	if err != nil {
		return 0, err
	}
	tx, err := t.sign(ctx, data)
	if err != nil {
		return 0, err
	}
	if err := t.backend.SendTransaction(ctx, tx); err != nil {
		return 0, fmt.Errorf("send createNode: %w", err)
	}
	receipt, err := poll.Until(ctx, t.receipt, func(ctx context.Context) (*types.Receipt, bool, error) {
		r, err := t.backend.TransactionReceipt(ctx, tx.Hash())
		if errors.Is(err, ethereum.NotFound) {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, err
		}
		return r, true, nil
	}, nil)
	if err != nil {
		return 0, fmt.Errorf("await %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return 0, fmt.Errorf("%w: %s", ErrReverted, tx.Hash().Hex())
	}
	return id, nil
}

func (t *Timeline) sign(ctx context.Context, data []byte) (*types.Transaction, error) {
	from := t.signer.Address()
	chainID := t.signer.ChainID
	if chainID == nil {
		id, err := t.backend.ChainID(ctx)
		if err != nil {
			return nil, fmt.Errorf("chain id: %w", err)
		}
		chainID = id
	}
	nonce, err := t.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	gasPrice, err := t.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("gas price: %w", err)
	}
	gas, err := t.backend.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &t.address, Data: data})
	if err != nil {
		return nil, fmt.Errorf("estimate gas: %w", err)
	}
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       &t.address,
		Value:    big.NewInt(0),
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), t.signer.Key)
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	return signed, nil
}

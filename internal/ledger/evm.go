package ledger

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"watch-registration/internal/common/config"
	commonhttp "watch-registration/internal/common/http"
	"watch-registration/internal/common/logger"
	"watch-registration/internal/common/metrics"
	"watch-registration/internal/models"
)

const forwarderABI = `[{"type":"function","name":"report","stateMutability":"nonpayable","inputs":[
	{"name":"receiver","type":"address"},
	{"name":"rawReport","type":"bytes"},
	{"name":"reportContext","type":"bytes"},
	{"name":"signatures","type":"bytes[]"}],"outputs":[]}]`

var parsedForwarderABI = mustParseABI(forwarderABI)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}

// Backend is the subset of ethclient.Client used by EVMWriter.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// EVMWriter submits reports through the forwarder contract, which verifies
// the signatures and calls the receiver.
type EVMWriter struct {
	backend        Backend
	network        Network
	forwarder      common.Address
	key            *ecdsa.PrivateKey
	from           common.Address
	pollInterval   time.Duration
	receiptTimeout time.Duration
	logger         logger.Logger

	// serializes nonce allocation and broadcast
	sendMu sync.Mutex
}

// WriterOptions configures an EVMWriter.
type WriterOptions struct {
	Network        Network
	Forwarder      common.Address
	TransmitterKey string
	PollInterval   time.Duration
	ReceiptTimeout time.Duration
	Logger         logger.Logger
}

func NewEVMWriter(backend Backend, opts WriterOptions) (*EVMWriter, error) {
	if opts.Forwarder == (common.Address{}) {
		return nil, fmt.Errorf("forwarder address is required")
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(opts.TransmitterKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid transmitter key: %w", err)
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.ReceiptTimeout <= 0 {
		opts.ReceiptTimeout = 90 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNoOpLogger()
	}

	return &EVMWriter{
		backend:        backend,
		network:        opts.Network,
		forwarder:      opts.Forwarder,
		key:            key,
		from:           crypto.PubkeyToAddress(key.PublicKey),
		pollInterval:   opts.PollInterval,
		receiptTimeout: opts.ReceiptTimeout,
		logger: opts.Logger.WithFields(map[string]interface{}{
			"component": "ledger",
			"chain":     opts.Network.Name,
		}),
	}, nil
}

// Dial connects to the JSON-RPC endpoint of the primary chain and builds a
// writer for it.
func Dial(ctx context.Context, evm config.EVMConfig, network Network, log logger.Logger) (*EVMWriter, *ethclient.Client, error) {
	if evm.RPCURL == "" {
		return nil, nil, fmt.Errorf("rpc_url is required for chain %s", network.Name)
	}

	httpClient := commonhttp.NewClient(config.GetDuration(evm.RPCTimeout), "watch-registration")
	rpcClient, err := rpc.DialOptions(ctx, evm.RPCURL, rpc.WithHTTPClient(httpClient.HTTPClient()))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to dial %s: %w", network.Name, err)
	}
	client := ethclient.NewClient(rpcClient)

	writer, err := NewEVMWriter(client, WriterOptions{
		Network:        network,
		Forwarder:      common.HexToAddress(evm.ForwarderAddress),
		TransmitterKey: evm.TransmitterKey,
		PollInterval:   config.GetDuration(evm.PollInterval),
		ReceiptTimeout: config.GetDuration(evm.ReceiptTimeout),
		Logger:         log,
	})
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return writer, client, nil
}

// Transmitter returns the account paying for submissions.
func (w *EVMWriter) Transmitter() common.Address {
	return w.from
}

func (w *EVMWriter) Submit(ctx context.Context, rec *models.AttestedRecord, dest models.Destination, gas models.GasConfig) (*models.LedgerReply, error) {
	data, err := parsedForwarderABI.Pack("report", dest.Receiver, []byte(rec.Payload), rec.Context, rec.Signatures)
	if err != nil {
		return nil, fmt.Errorf("failed to pack forwarder call: %w", err)
	}

	chainID, err := w.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read chain id: %w", err)
	}
	if w.network.ChainID != 0 && chainID.Int64() != w.network.ChainID {
		return nil, fmt.Errorf("rpc endpoint serves chain %s, expected %d for %s", chainID, w.network.ChainID, w.network.Name)
	}

	tx, err := w.send(ctx, chainID, data, gas.GasLimit)
	if err != nil {
		w.logger.Error("Report broadcast failed", map[string]interface{}{
			"receiver": dest.Receiver.Hex(),
			"error":    err.Error(),
		})
		return w.reply(models.TxStatusFatal, nil, err.Error()), nil
	}

	w.logger.Info("Report broadcast", map[string]interface{}{
		"txHash":   tx.Hash().Hex(),
		"receiver": dest.Receiver.Hex(),
		"gasLimit": gas.GasLimit,
	})

	receipt, err := w.waitReceipt(ctx, tx.Hash())
	if err != nil {
		return w.reply(models.TxStatusFatal, tx.Hash().Bytes(), err.Error()), nil
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return w.reply(models.TxStatusReverted, tx.Hash().Bytes(), fmt.Sprintf("transaction reverted in block %s", receipt.BlockNumber)), nil
	}
	return w.reply(models.TxStatusSuccess, tx.Hash().Bytes(), ""), nil
}

func (w *EVMWriter) send(ctx context.Context, chainID *big.Int, data []byte, gasLimit uint64) (*types.Transaction, error) {
	w.sendMu.Lock()
	defer w.sendMu.Unlock()

	nonce, err := w.backend.PendingNonceAt(ctx, w.from)
	if err != nil {
		return nil, fmt.Errorf("failed to read nonce: %w", err)
	}
	gasPrice, err := w.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to suggest gas price: %w", err)
	}

	forwarder := w.forwarder
	tx, err := types.SignTx(types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gasLimit,
		To:       &forwarder,
		Value:    big.NewInt(0),
		Data:     data,
	}), types.LatestSignerForChainID(chainID), w.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := w.backend.SendTransaction(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

func (w *EVMWriter) waitReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, w.receiptTimeout)
	defer cancel()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := w.backend.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			w.logger.Warn("Receipt lookup failed", map[string]interface{}{
				"txHash": hash.Hex(),
				"error":  err.Error(),
			})
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("receipt for %s not available: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

func (w *EVMWriter) reply(status models.TxStatus, hash []byte, msg string) *models.LedgerReply {
	metrics.LedgerSubmissions.WithLabelValues(w.network.Name, string(status)).Inc()
	return &models.LedgerReply{Status: status, TxHash: hash, ErrorMessage: msg}
}

package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/blues/ess/internal/config"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// 金库合约ABI定义（简化版）
const vaultABI = `[
	{
		"name": "pull",
		"type": "function",
		"inputs": [
			{"name": "from", "type": "address"},
			{"name": "to", "type": "address"},
			{"name": "amount", "type": "uint256"}
		],
		"outputs": []
	},
	{
		"name": "push",
		"type": "function",
		"inputs": [
			{"name": "to", "type": "address"},
			{"name": "amount", "type": "uint256"}
		],
		"outputs": []
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "from", "type": "address"},
			{"indexed": true, "name": "to", "type": "address"},
			{"indexed": false, "name": "amount", "type": "uint256"}
		],
		"name": "FundsPulled",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "to", "type": "address"},
			{"indexed": false, "name": "amount", "type": "uint256"}
		],
		"name": "FundsPushed",
		"type": "event"
	}
]`

// Client 金库合约客户端，实现托管引擎的 TransferPort
// Pull/Push 同步等待交易回执，回执状态非成功即报告失败，
// 由引擎负责回滚托管侧状态
type Client struct {
	client     *ethclient.Client
	privateKey *ecdsa.PrivateKey
	chainId    *big.Int
	VaultAddr  common.Address
	vault      *bind.BoundContract
	timeout    time.Duration
}

func Init(cfg config.ChainConfig) (*Client, error) {
	// 连接以太坊客户端
	client, err := ethclient.Dial(cfg.RpcUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ethereum client: %w", err)
	}

	// 解析私钥
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	// 解析ABI
	parsedABI, err := abi.JSON(strings.NewReader(vaultABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse vault ABI: %w", err)
	}

	vaultAddr := common.HexToAddress(cfg.VaultAddress)

	return &Client{
		client:     client,
		privateKey: privateKey,
		chainId:    big.NewInt(cfg.ChainId),
		VaultAddr:  vaultAddr,
		vault:      bind.NewBoundContract(vaultAddr, parsedABI, client, client, client),
		timeout:    time.Duration(cfg.Timeout) * time.Second,
	}, nil
}

// Pull 把金额从 from 的外部余额划入托收账户
func (c *Client) Pull(from, to string, amount int64) error {
	return c.transact("pull", common.HexToAddress(from), common.HexToAddress(to), big.NewInt(amount))
}

// Push 把金额从托收账户划给 to
func (c *Client) Push(to string, amount int64) error {
	return c.transact("push", common.HexToAddress(to), big.NewInt(amount))
}

// transact 发送金库合约调用并等待回执
func (c *Client) transact(method string, args ...interface{}) error {
	auth, err := c.transactOpts()
	if err != nil {
		return err
	}

	tx, err := c.vault.Transact(auth, method, args...)
	if err != nil {
		return fmt.Errorf("vault %s failed: %w", method, err)
	}

	return c.waitMined(tx)
}

// transactOpts 获取交易授权
func (c *Client) transactOpts() (*bind.TransactOpts, error) {
	auth, err := bind.NewKeyedTransactorWithChainID(c.privateKey, c.chainId)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}
	return auth, nil
}

// waitMined 等待交易上链并校验执行状态
func (c *Client) waitMined(tx *types.Transaction) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	receipt, err := bind.WaitMined(ctx, c.client, tx)
	if err != nil {
		return fmt.Errorf("failed to wait for tx %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("tx %s reverted", tx.Hash().Hex())
	}
	return nil
}

// GetLatestBlock 获取最新区块号
func (c *Client) GetLatestBlock() (uint64, error) {
	header, err := c.client.HeaderByNumber(context.Background(), nil)
	if err != nil {
		return 0, err
	}
	return header.Number.Uint64(), nil
}

// GetAccountAddress 获取运营方账户地址
func (c *Client) GetAccountAddress() common.Address {
	return crypto.PubkeyToAddress(c.privateKey.PublicKey)
}

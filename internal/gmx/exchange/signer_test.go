package exchange

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

func TestNewSignerDerivesAddress(t *testing.T) {
	signer, err := NewSigner(testKey, 42161)
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	if signer.Address() != testAddress {
		t.Fatalf("unexpected address %s", signer.Address().Hex())
	}
	if signer.ChainID().Int64() != 42161 {
		t.Fatalf("unexpected chain id %s", signer.ChainID())
	}
}

func TestNewSignerRejectsBadInput(t *testing.T) {
	if _, err := NewSigner("", 1); err == nil {
		t.Fatalf("expected error for empty key")
	}
	if _, err := NewSigner("0xzz", 1); err == nil {
		t.Fatalf("expected error for invalid key")
	}
	if _, err := NewSigner(testKey, 0); err == nil {
		t.Fatalf("expected error for zero chain id")
	}
}

func TestCheckWallet(t *testing.T) {
	signer, _ := NewSigner(testKey, 42161)
	if err := signer.CheckWallet(testAddress.Hex()); err != nil {
		t.Fatalf("expected matching wallet to pass: %v", err)
	}
	if err := signer.CheckWallet(""); err != nil {
		t.Fatalf("expected empty wallet to be skipped: %v", err)
	}
	if err := signer.CheckWallet("0x0000000000000000000000000000000000000001"); err == nil {
		t.Fatalf("expected mismatch error")
	}
	if err := signer.CheckWallet("nope"); err == nil {
		t.Fatalf("expected invalid address error")
	}
}

func TestSignTxRecoversSender(t *testing.T) {
	signer, _ := NewSigner(testKey, 42161)
	to := common.HexToAddress("0x0000000000000000000000000000000000000002")
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   big.NewInt(42161),
		Nonce:     1,
		GasTipCap: big.NewInt(1),
		GasFeeCap: big.NewInt(2),
		Gas:       21000,
		To:        &to,
		Value:     big.NewInt(0),
	})
	signed, err := signer.SignTx(tx)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	sender, err := types.Sender(types.LatestSignerForChainID(big.NewInt(42161)), signed)
	if err != nil || sender != testAddress {
		t.Fatalf("unexpected sender %s (%v)", sender.Hex(), err)
	}
}

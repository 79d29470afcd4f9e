package account

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	acc "github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/blake2b"
)

type (
	// Keys are the wallet keys, accounts are derived from the master key.
	Keys struct {
		Mnemonic  string
		MasterKey *hdkeychain.ExtendedKey
	}

	AccountKey struct {
		Account        uint32 `json:"account"`
		PubKey         []byte `json:"pubKey"` // compressed secp256k1 key 33 bytes
		PrivKey        []byte `json:"privKey"`
		DerivationPath string `json:"derivationPath"`
	}
)

const mnemonicEntropyBitSize = 128

// NewKeys creates wallet keys from given mnemonic, or generates mnemonic
// first if empty string is provided.
func NewKeys(mnemonic string) (*Keys, error) {
	if mnemonic == "" {
		var err error
		if mnemonic, err = generateMnemonic(); err != nil {
			return nil, err
		}
	}
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, errors.New("invalid mnemonic")
	}
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, "")
	if err != nil {
		return nil, err
	}
	// only HDPrivateKeyID of the params is used, as the version of the extended key
	masterKey, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, err
	}
	return &Keys{Mnemonic: mnemonic, MasterKey: masterKey}, nil
}

// AccountKey derives the key of the account.
func (k *Keys) AccountKey(account uint32) (*AccountKey, error) {
	derivationPath := NewDerivationPath(account)
	path, err := acc.ParseDerivationPath(derivationPath)
	if err != nil {
		return nil, err
	}
	privateKey, err := derivePrivateKey(path, k.MasterKey)
	if err != nil {
		return nil, fmt.Errorf("deriving key of account %d: %w", account, err)
	}
	return &AccountKey{
		Account:        account,
		PubKey:         crypto.CompressPubkey(&privateKey.PublicKey),
		PrivKey:        crypto.FromECDSA(privateKey),
		DerivationPath: derivationPath,
	}, nil
}

// AddressByIndex derives the payment address of the index.
func (k *Keys) AddressByIndex(index AddressIndex) (Address, error) {
	key, err := k.AccountKey(index.Account)
	if err != nil {
		return Address{}, err
	}
	return key.Address(index.Randomizer)
}

// Address returns the address of the account with given randomizer. The
// diversifier is a keyed hash of the index so addresses of the same account
// are unlinkable without the key.
func (k *AccountKey) Address(randomizer [RandomizerLength]byte) (Address, error) {
	h, err := blake2b.New(DiversifierLength, k.PrivKey)
	if err != nil {
		return Address{}, err
	}
	h.Write(AddressIndex{Account: k.Account, Randomizer: randomizer}.Bytes())

	var addr Address
	copy(addr.Diversifier[:], h.Sum(nil))
	copy(addr.TransmissionKey[:], k.PubKey)
	return addr, nil
}

// NewDerivationPath returns derivation path for given account index
func NewDerivationPath(account uint32) string {
	// m / purpose' / coin_type' / account' / change / address_index
	// 6532' - coin type of the shielded pool
	// change and address_index are always 0, addresses are derived from
	// the account key with randomizers instead
	return fmt.Sprintf("m/44'/6532'/%d'/0/0", account)
}

func generateMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(mnemonicEntropyBitSize)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

// derivePrivateKey walks the BIP-32 path from the master key.
func derivePrivateKey(path acc.DerivationPath, key *hdkeychain.ExtendedKey) (*ecdsa.PrivateKey, error) {
	for i, n := range path {
		child, err := key.Derive(n)
		if err != nil {
			return nil, fmt.Errorf("deriving path element %d: %w", i, err)
		}
		key = child
	}
	pk, err := key.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("extracting private key: %w", err)
	}
	return pk.ToECDSA(), nil
}

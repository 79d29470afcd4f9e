package cmd

import (
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alphabill-org/txplanner/account"
	"github.com/alphabill-org/txplanner/action"
	"github.com/alphabill-org/txplanner/asset"
	"github.com/alphabill-org/txplanner/fee"
	"github.com/alphabill-org/txplanner/note"
	"github.com/alphabill-org/txplanner/view"
	"github.com/alphabill-org/txplanner/view/backend"
	"github.com/alphabill-org/txplanner/view/boltstore"
	"github.com/spf13/cobra"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

const (
	serverAddrCmdName = "server-addr"
	dbFileCmdName     = "db"
	fileCmdName       = "file"
	mnemonicCmdName   = "mnemonic"
	accountCmdName    = "account"

	defaultServerAddr = "localhost:9654"
)

type (
	// importFile is the YAML document loaded by "view import".
	importFile struct {
		ChainID    string         `yaml:"chainId"`
		GasPrices  *gasPricesYAML `yaml:"gasPrices"`
		FMD        *fmdYAML       `yaml:"fmd"`
		Height     uint64         `yaml:"height"`
		Accounts   []uint32       `yaml:"accounts"`
		Validators []string       `yaml:"validators"`
		Notes      []noteYAML     `yaml:"notes"`
	}

	gasPricesYAML struct {
		BlockSpace        uint64 `yaml:"blockSpace"`
		CompactBlockSpace uint64 `yaml:"compactBlockSpace"`
		Verification      uint64 `yaml:"verification"`
		Execution         uint64 `yaml:"execution"`
	}

	fmdYAML struct {
		PrecisionBits   uint8  `yaml:"precisionBits"`
		AsOfBlockHeight uint64 `yaml:"asOfBlockHeight"`
	}

	noteYAML struct {
		// Asset is denom or 0x prefixed asset id.
		Asset         string `yaml:"asset"`
		Amount        string `yaml:"amount"`
		Account       uint32 `yaml:"account"`
		Position      uint64 `yaml:"position"`
		HeightCreated uint64 `yaml:"heightCreated"`
		HeightSpent   uint64 `yaml:"heightSpent"`
		Source        string `yaml:"source"`
	}
)

func newViewCmd(config *baseConfiguration) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view",
		Short: "manages the local view of notes",
	}
	cmd.AddCommand(newViewServeCmd(config))
	cmd.AddCommand(newViewImportCmd(config))
	cmd.AddCommand(newViewBalanceCmd(config))
	return cmd
}

func newViewServeCmd(config *baseConfiguration) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "serves the local view over REST",
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := cmd.Flags().GetString(serverAddrCmdName)
			if err != nil {
				return err
			}
			dbFile, err := getDbFile(cmd, config)
			if err != nil {
				return err
			}
			return backend.Run(cmd.Context(), &backend.Config{
				ServerAddr: addr,
				DbFile:     dbFile,
				Logger:     config.Logger,
			})
		},
	}
	cmd.Flags().String(serverAddrCmdName, defaultServerAddr, "server address")
	addDbFileFlag(cmd)
	return cmd
}

func newViewImportCmd(config *baseConfiguration) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "imports notes and chain parameters from YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execViewImportCmd(cmd, config)
		},
	}
	cmd.Flags().StringP(fileCmdName, "f", "", "YAML file to import")
	cmd.Flags().String(mnemonicCmdName, "", "mnemonic of the wallet the notes belong to, prompted when not set")
	addDbFileFlag(cmd)
	_ = cmd.MarkFlagRequired(fileCmdName)
	return cmd
}

func execViewImportCmd(cmd *cobra.Command, config *baseConfiguration) error {
	fileName, err := cmd.Flags().GetString(fileCmdName)
	if err != nil {
		return err
	}
	data, err := readImportFile(fileName)
	if err != nil {
		return err
	}

	accounts := make(map[uint32]*account.AccountKey)
	for _, acc := range data.Accounts {
		accounts[acc] = nil
	}
	for _, n := range data.Notes {
		accounts[n.Account] = nil
	}
	if len(accounts) > 0 {
		mnemonic, err := getMnemonic(cmd)
		if err != nil {
			return err
		}
		keys, err := account.NewKeys(mnemonic)
		if err != nil {
			return fmt.Errorf("failed to create keys from mnemonic: %w", err)
		}
		for acc := range accounts {
			if accounts[acc], err = keys.AccountKey(acc); err != nil {
				return err
			}
		}
	}

	dbFile, err := getDbFile(cmd, config)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dbFile), 0700); err != nil {
		return fmt.Errorf("creating database directory: %w", err)
	}
	store, err := boltstore.New(dbFile)
	if err != nil {
		return err
	}
	defer store.Close()

	err = store.WithTransaction(func(txc *boltstore.StoreTx) error {
		if data.ChainID != "" || data.GasPrices != nil {
			prices := fee.GasPrices{AssetID: asset.StakingTokenID}
			if gp := data.GasPrices; gp != nil {
				prices = fee.NewGasPrices(gp.BlockSpace, gp.CompactBlockSpace, gp.Verification, gp.Execution)
			}
			if err := txc.SetAppParameters(&view.AppParameters{ChainID: data.ChainID, GasPrices: prices}); err != nil {
				return err
			}
		}
		if data.FMD != nil {
			if err := txc.SetFMDParameters(&view.FMDParameters{PrecisionBits: data.FMD.PrecisionBits, AsOfBlockHeight: data.FMD.AsOfBlockHeight}); err != nil {
				return err
			}
		}
		if data.Height > 0 {
			if err := txc.SetHeight(data.Height); err != nil {
				return err
			}
		}
		for _, acc := range sortedAccounts(accounts) {
			if err := txc.SetAccountKey(accounts[acc]); err != nil {
				return err
			}
		}
		for _, s := range data.Validators {
			ik, err := action.ParseIdentityKey(s)
			if err != nil {
				return fmt.Errorf("invalid validator identity %q: %w", s, err)
			}
			if err := txc.AddValidator(ik); err != nil {
				return err
			}
		}
		for i, n := range data.Notes {
			rec, err := n.toRecord(accounts[n.Account])
			if err != nil {
				return fmt.Errorf("invalid note %d: %w", i, err)
			}
			if err := txc.PutNote(rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to import %s: %w", fileName, err)
	}
	config.Logger.Debug().Str("db", dbFile).Msg("import finished")
	consoleWriter.Println(fmt.Sprintf("Imported %d notes, %d accounts and %d validators", len(data.Notes), len(accounts), len(data.Validators)))
	return nil
}

func newViewBalanceCmd(config *baseConfiguration) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "prints the unspent balance of the account per asset",
		RunE: func(cmd *cobra.Command, args []string) error {
			acc, err := cmd.Flags().GetUint32(accountCmdName)
			if err != nil {
				return err
			}
			dbFile, err := getDbFile(cmd, config)
			if err != nil {
				return err
			}
			store, err := boltstore.New(dbFile)
			if err != nil {
				return err
			}
			defer store.Close()

			idx := account.NewAddressIndex(acc)
			balance, err := store.Balances(cmd.Context(), &idx)
			if err != nil {
				return err
			}
			values := balance.Provided()
			if len(values) == 0 {
				consoleWriter.Println("No notes")
				return nil
			}
			for _, v := range values {
				consoleWriter.Println(fmt.Sprintf("%s %s", v.AssetID, v.Amount))
			}
			return nil
		},
	}
	cmd.Flags().Uint32(accountCmdName, 0, "account number")
	addDbFileFlag(cmd)
	return cmd
}

func readImportFile(fileName string) (*importFile, error) {
	f, err := os.Open(filepath.Clean(fileName))
	if err != nil {
		return nil, fmt.Errorf("opening import file: %w", err)
	}
	defer f.Close()

	data := &importFile{}
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(data); err != nil {
		return nil, fmt.Errorf("decoding import file (%s): %w", fileName, err)
	}
	return data, nil
}

func (n noteYAML) toRecord(key *account.AccountKey) (*note.SpendableNoteRecord, error) {
	id, err := parseAssetID(n.Asset)
	if err != nil {
		return nil, err
	}
	amount, err := asset.ParseAmount(n.Amount)
	if err != nil {
		return nil, err
	}
	addr, err := key.Address([account.RandomizerLength]byte{})
	if err != nil {
		return nil, err
	}
	var rseed note.Rseed
	if _, err := rand.Read(rseed[:]); err != nil {
		return nil, err
	}

	nt := note.NewNote(asset.NewValue(id, amount), addr, rseed)
	c := nt.Commitment()
	source := note.Source(n.Source)
	if source == "" {
		source = note.SourceGenesis
	}
	return &note.SpendableNoteRecord{
		NoteCommitment: c,
		Note:           nt,
		AddressIndex:   account.NewAddressIndex(n.Account),
		Nullifier:      note.DeriveNullifier(key.PrivKey, n.Position, c),
		HeightCreated:  n.HeightCreated,
		HeightSpent:    n.HeightSpent,
		Position:       n.Position,
		Source:         source,
	}, nil
}

// parseAssetID accepts 0x prefixed asset id or denom.
func parseAssetID(s string) (asset.ID, error) {
	if s == "" {
		return asset.ID{}, errors.New("asset is empty")
	}
	if strings.HasPrefix(s, "0x") {
		return asset.ParseID(s)
	}
	return asset.Denom(s).ID(), nil
}

func getDbFile(cmd *cobra.Command, config *baseConfiguration) (string, error) {
	dbFile, err := cmd.Flags().GetString(dbFileCmdName)
	if err != nil {
		return "", err
	}
	if dbFile == "" {
		return config.defaultDbFile(), nil
	}
	return dbFile, nil
}

func addDbFileFlag(cmd *cobra.Command) {
	cmd.Flags().String(dbFileCmdName, "", "view database file (default is $TP_HOME/view.db)")
}

func getMnemonic(cmd *cobra.Command) (string, error) {
	mnemonic, err := cmd.Flags().GetString(mnemonicCmdName)
	if err != nil {
		return "", err
	}
	if mnemonic != "" {
		return mnemonic, nil
	}
	return readPassword("Enter mnemonic: ")
}

func readPassword(promptMessage string) (string, error) {
	consoleWriter.Print(promptMessage)
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	consoleWriter.Println("") // line break after reading password
	return strings.TrimSpace(string(passwordBytes)), nil
}

func sortedAccounts(m map[uint32]*account.AccountKey) []uint32 {
	keys := maps.Keys(m)
	slices.Sort(keys)
	return keys
}

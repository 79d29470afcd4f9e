package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alphabill-org/txplanner/account"
	"github.com/alphabill-org/txplanner/action"
	"github.com/alphabill-org/txplanner/asset"
	testfile "github.com/alphabill-org/txplanner/internal/testutils/file"
	testnet "github.com/alphabill-org/txplanner/internal/testutils/net"
	"github.com/alphabill-org/txplanner/planner"
	"github.com/alphabill-org/txplanner/txplan"
	"github.com/alphabill-org/txplanner/view/client"
	"github.com/stretchr/testify/require"
)

const testMnemonic = "dinosaur simple verify deliver bless ridge monkey design venue six problem lucky"

const testImportFile = `chainId: test-chain
gasPrices:
  verification: 1
fmd:
  precisionBits: 2
height: 10
accounts: [0, 1]
validators:
  - "0x0102030000000000000000000000000000000000000000000000000000000000"
notes:
  - asset: ustake
    amount: "60"
    account: 0
    position: 1
    heightCreated: 1
  - asset: ustake
    amount: "70"
    account: 0
    position: 2
    heightCreated: 2
  - asset: gm
    amount: "5"
    account: 1
    position: 3
    heightCreated: 3
`

type testConsoleWriter struct {
	lines []string
}

func (w *testConsoleWriter) Println(a ...any) {
	s := fmt.Sprintln(a...)
	w.lines = append(w.lines, s[:len(s)-1]) // remove newline
}

func (w *testConsoleWriter) Print(a ...any) {
	w.Println(a...)
}

func execCommand(homeDir, command string) (*testConsoleWriter, error) {
	outputWriter := &testConsoleWriter{}
	consoleWriter = outputWriter

	cmd := New()
	args := "--home " + homeDir + " " + command
	cmd.baseCmd.SetArgs(strings.Split(args, " "))

	return outputWriter, cmd.addAndExecuteCommand(context.Background())
}

// importTestView creates home directory with imported view database.
func importTestView(t *testing.T) string {
	t.Setenv("TP_MNEMONIC", testMnemonic)
	homeDir := t.TempDir()
	file := testfile.CreateTempFileWithContent(t, "view.yaml", testImportFile)
	out, err := execCommand(homeDir, "view import -f "+file)
	require.NoError(t, err)
	require.Equal(t, []string{"Imported 3 notes, 2 accounts and 1 validators"}, out.lines)
	return homeDir
}

func testAddress(t *testing.T, acc uint32) account.Address {
	keys, err := account.NewKeys(testMnemonic)
	require.NoError(t, err)
	addr, err := keys.AddressByIndex(account.NewAddressIndex(acc))
	require.NoError(t, err)
	return addr
}

func TestViewImportAndBalance(t *testing.T) {
	homeDir := importTestView(t)
	require.FileExists(t, filepath.Join(homeDir, "view.db"))

	out, err := execCommand(homeDir, "view balance --account 0")
	require.NoError(t, err)
	require.Equal(t, []string{fmt.Sprintf("%s 130", asset.StakingTokenID)}, out.lines)

	out, err = execCommand(homeDir, "view balance --account 1")
	require.NoError(t, err)
	require.Equal(t, []string{fmt.Sprintf("%s 5", asset.Denom("gm").ID())}, out.lines)

	out, err = execCommand(homeDir, "view balance --account 2")
	require.NoError(t, err)
	require.Equal(t, []string{"No notes"}, out.lines)
}

func TestViewImport_InvalidFile(t *testing.T) {
	t.Setenv("TP_MNEMONIC", testMnemonic)
	homeDir := t.TempDir()

	file := testfile.CreateTempFileWithContent(t, "view.yaml", "bogus: 1\n")
	_, err := execCommand(homeDir, "view import -f "+file)
	require.ErrorContains(t, err, "field bogus not found")

	file = testfile.CreateTempFileWithContent(t, "notes.yaml", "notes:\n  - asset: ustake\n    amount: lots\n")
	_, err = execCommand(homeDir, "view import -f "+file)
	require.ErrorContains(t, err, "invalid note 0")

	_, err = execCommand(homeDir, "view import")
	require.ErrorContains(t, err, `required flag(s) "file" not set`)
}

func TestPlanSend_Out(t *testing.T) {
	homeDir := importTestView(t)
	recipient := testAddress(t, 1)
	outFile := filepath.Join(t.TempDir(), "plan.cbor")

	out, err := execCommand(homeDir, fmt.Sprintf("plan send --address %s --amount 100 --memo hello --out %s", recipient, outFile))
	require.NoError(t, err)
	require.Len(t, out.lines, 1)
	require.True(t, strings.HasPrefix(out.lines[0], "Plan written to "+outFile), out.lines[0])

	b, err := os.ReadFile(outFile)
	require.NoError(t, err)
	plan, err := txplan.Decode(b)
	require.NoError(t, err)

	require.Equal(t, "test-chain", plan.Params.ChainID)
	require.Len(t, plan.SpendPlans(), 2)
	require.True(t, plan.Balance().Sub(plan.Params.Fee.Value).IsZero())
	require.Equal(t, "hello", plan.Memo.Plaintext.Text)
	require.Equal(t, testAddress(t, 0), plan.Memo.Plaintext.ReturnAddress)
	require.Len(t, plan.DetectionData.CluePlans, len(plan.OutputPlans()))

	var sent bool
	for _, o := range plan.OutputPlans() {
		if o.DestAddress == recipient {
			require.Equal(t, asset.NewValue(asset.StakingTokenID, asset.NewAmount(100)), o.Value)
			sent = true
		}
	}
	require.True(t, sent, "output to recipient not found")
}

func TestViewServe(t *testing.T) {
	homeDir := importTestView(t)
	addr := testnet.ServerAddr(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		app := New()
		app.baseCmd.SetArgs(strings.Split(fmt.Sprintf("--home %s view serve --server-addr %s", homeDir, addr), " "))
		done <- app.Execute(ctx)
	}()
	defer func() {
		cancel()
		select {
		case <-done:
		case <-time.After(10 * time.Second):
			t.Error("view backend did not stop")
		}
	}()

	c, err := client.New(addr)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		info, err := c.GetInfo(ctx)
		return err == nil && info.ChainID == "test-chain"
	}, 5*time.Second, 50*time.Millisecond)

	out, err := execCommand(homeDir, fmt.Sprintf("plan --view-url %s send --address %s --amount 100", addr, testAddress(t, 1)))
	require.NoError(t, err)
	var plan txplan.TransactionPlan
	require.NoError(t, json.Unmarshal([]byte(strings.Join(out.lines, "\n")), &plan))
	require.Len(t, plan.SpendPlans(), 2)
	require.True(t, plan.Balance().Sub(plan.Params.Fee.Value).IsZero())
}

func TestPlanSend_JSON(t *testing.T) {
	homeDir := importTestView(t)
	out, err := execCommand(homeDir, fmt.Sprintf("plan --fee-tier high send --address %s --amount 10", testAddress(t, 1)))
	require.NoError(t, err)

	var plan txplan.TransactionPlan
	require.NoError(t, json.Unmarshal([]byte(strings.Join(out.lines, "\n")), &plan))
	require.Len(t, plan.SpendPlans(), 1)
	require.True(t, plan.Balance().Sub(plan.Params.Fee.Value).IsZero())
}

func TestPlanDelegate(t *testing.T) {
	homeDir := importTestView(t)
	validator := action.IdentityKey{1, 2, 3}
	out, err := execCommand(homeDir, fmt.Sprintf("plan delegate --amount 10 --validator %s --epoch 4", validator))
	require.NoError(t, err)

	var plan txplan.TransactionPlan
	require.NoError(t, json.Unmarshal([]byte(strings.Join(out.lines, "\n")), &plan))
	require.Equal(t, 1, plan.CountByKind()[action.KindDelegate])
	require.True(t, plan.Balance().Sub(plan.Params.Fee.Value).IsZero())
}

func TestPlanErrors(t *testing.T) {
	homeDir := importTestView(t)
	recipient := testAddress(t, 1)

	tests := []struct {
		name    string
		command string
		wantErr string
	}{
		{
			name:    "invalid address",
			command: "plan send --address 0x01 --amount 1",
			wantErr: "invalid address parameter",
		},
		{
			name:    "invalid amount",
			command: fmt.Sprintf("plan send --address %s --amount -1", recipient),
			wantErr: "invalid amount parameter",
		},
		{
			name:    "unknown account",
			command: fmt.Sprintf("plan --account 7 send --address %s --amount 1", recipient),
			wantErr: "failed to get address of account 7",
		},
		{
			name:    "invalid fee tier",
			command: fmt.Sprintf("plan --fee-tier huge send --address %s --amount 1", recipient),
			wantErr: `invalid argument "huge" for "--fee-tier" flag`,
		},
		{
			name:    "invalid position",
			command: "plan position-close --position 0x00",
			wantErr: "invalid position parameter",
		},
		{
			name:    "missing validator",
			command: "plan undelegate --amount 1",
			wantErr: `required flag(s) "validator" not set`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execCommand(homeDir, tt.command)
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestPlan_InsufficientFunds(t *testing.T) {
	homeDir := importTestView(t)
	_, err := execCommand(homeDir, fmt.Sprintf("plan send --address %s --amount 1000", testAddress(t, 1)))
	require.ErrorIs(t, err, planner.ErrInsufficientFunds)
}

func TestLoggerConfig(t *testing.T) {
	homeDir := t.TempDir()
	_, err := execCommand(homeDir, "--logger-config /does/not/exist.yaml view balance")
	require.ErrorContains(t, err, "opening logger configuration file")

	_, err = execCommand(homeDir, "--log-level DEBUG --log-format json --log-file discard view balance")
	require.NoError(t, err)
}

func TestConfigFileAndEnv(t *testing.T) {
	homeDir := importTestView(t)
	recipient := testAddress(t, 1)
	require.NoError(t, os.WriteFile(filepath.Join(homeDir, defaultConfigFile), []byte("account = 7\n"), 0600))

	_, err := execCommand(homeDir, fmt.Sprintf("plan send --address %s --amount 1", recipient))
	require.ErrorContains(t, err, "failed to get address of account 7")

	// command line flag wins over config file
	_, err = execCommand(homeDir, fmt.Sprintf("plan --account 0 send --address %s --amount 1", recipient))
	require.NoError(t, err)

	t.Setenv("TP_FEE_TIER", "huge")
	_, err = execCommand(homeDir, fmt.Sprintf("plan --account 0 send --address %s --amount 1", recipient))
	require.ErrorContains(t, err, `setting flag "fee-tier" from configuration`)
}

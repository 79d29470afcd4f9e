package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/alphabill-org/txplanner/account"
	"github.com/alphabill-org/txplanner/action"
	"github.com/alphabill-org/txplanner/asset"
	"github.com/alphabill-org/txplanner/fee"
	"github.com/alphabill-org/txplanner/planner"
	"github.com/alphabill-org/txplanner/txplan"
	"github.com/alphabill-org/txplanner/view"
	"github.com/alphabill-org/txplanner/view/boltstore"
	"github.com/alphabill-org/txplanner/view/client"
	"github.com/spf13/cobra"
)

const (
	viewURLCmdName      = "view-url"
	feeTierCmdName      = "fee-tier"
	expiryHeightCmdName = "expiry-height"
	memoCmdName         = "memo"
	outCmdName          = "out"
	addressCmdName      = "address"
	amountCmdName       = "amount"
	assetCmdName        = "asset"
	intoCmdName         = "into"
	claimFeeCmdName     = "claim-fee"
	validatorCmdName    = "validator"
	rateCmdName         = "rate"
	epochCmdName        = "epoch"
	epochStartCmdName   = "epoch-start-height"
	positionCmdName     = "position"
)

type (
	planConfig struct {
		Base *baseConfiguration

		ViewURL      string
		DbFile       string
		Account      uint32
		FeeTier      fee.FeeTier
		ExpiryHeight uint64
		Memo         string
		Out          string
	}

	// addActionsFunc adds the actions of the command to the planner.
	addActionsFunc func(ctx context.Context, cmd *cobra.Command, p *planner.Planner, changeAddr account.Address) error
)

func newPlanCmd(config *baseConfiguration) *cobra.Command {
	pc := &planConfig{Base: config}
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "plans balanced transactions",
	}
	cmd.PersistentFlags().StringVar(&pc.ViewURL, viewURLCmdName, "", "view backend URL, local view database is used when not set")
	cmd.PersistentFlags().StringVar(&pc.DbFile, dbFileCmdName, "", "view database file (default is $TP_HOME/view.db)")
	cmd.PersistentFlags().Uint32Var(&pc.Account, accountCmdName, 0, "account the notes are spent from and change is returned to")
	cmd.PersistentFlags().Var(&pc.FeeTier, feeTierCmdName, "fee tier, one of: low, medium, high")
	cmd.PersistentFlags().Uint64Var(&pc.ExpiryHeight, expiryHeightCmdName, 0, "height after which the transaction is invalid, 0 means never")
	cmd.PersistentFlags().StringVar(&pc.Memo, memoCmdName, "", "memo text")
	cmd.PersistentFlags().StringVarP(&pc.Out, outCmdName, "o", "", "write CBOR encoded plan to file instead of printing it as JSON")

	cmd.AddCommand(newPlanSendCmd(pc))
	cmd.AddCommand(newPlanSwapCmd(pc))
	cmd.AddCommand(newPlanDelegateCmd(pc))
	cmd.AddCommand(newPlanUndelegateCmd(pc))
	cmd.AddCommand(newPlanCommunityPoolDepositCmd(pc))
	cmd.AddCommand(newPlanPositionCloseCmd(pc))
	return cmd
}

func newPlanSendCmd(pc *planConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send",
		Short: "plans sending value to an address",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execPlanCmd(cmd, pc, func(ctx context.Context, cmd *cobra.Command, p *planner.Planner, _ account.Address) error {
				value, err := getValue(cmd, amountCmdName, assetCmdName)
				if err != nil {
					return err
				}
				s, err := cmd.Flags().GetString(addressCmdName)
				if err != nil {
					return err
				}
				addr, err := account.ParseAddress(s)
				if err != nil {
					return fmt.Errorf("invalid %s parameter: %w", addressCmdName, err)
				}
				p.Output(value, addr)
				return nil
			})
		},
	}
	cmd.Flags().String(addressCmdName, "", "receiver address")
	addValueFlags(cmd)
	_ = cmd.MarkFlagRequired(addressCmdName)
	return cmd
}

func newPlanSwapCmd(pc *planConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "swap",
		Short: "plans swapping value into another asset",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execPlanCmd(cmd, pc, func(ctx context.Context, cmd *cobra.Command, p *planner.Planner, changeAddr account.Address) error {
				input, err := getValue(cmd, amountCmdName, assetCmdName)
				if err != nil {
					return err
				}
				s, err := cmd.Flags().GetString(intoCmdName)
				if err != nil {
					return err
				}
				into, err := parseAssetID(s)
				if err != nil {
					return fmt.Errorf("invalid %s parameter: %w", intoCmdName, err)
				}
				s, err = cmd.Flags().GetString(claimFeeCmdName)
				if err != nil {
					return err
				}
				claimFee, err := asset.ParseAmount(s)
				if err != nil {
					return fmt.Errorf("invalid %s parameter: %w", claimFeeCmdName, err)
				}
				_, err = p.Swap(input, into, fee.FromStakingTokenAmount(claimFee), changeAddr)
				return err
			})
		},
	}
	addValueFlags(cmd)
	cmd.Flags().String(intoCmdName, "", "asset to swap into, denom or 0x prefixed asset id")
	cmd.Flags().String(claimFeeCmdName, "0", "fee pre-paid for claiming the swap output")
	_ = cmd.MarkFlagRequired(intoCmdName)
	return cmd
}

func newPlanDelegateCmd(pc *planConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delegate",
		Short: "plans delegating stake to a validator",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execPlanCmd(cmd, pc, func(ctx context.Context, cmd *cobra.Command, p *planner.Planner, _ account.Address) error {
				amount, epoch, rate, err := getStakeParams(cmd)
				if err != nil {
					return err
				}
				p.Delegate(epoch, amount, rate)
				return nil
			})
		},
	}
	cmd.Flags().String(amountCmdName, "", "amount of staking token to delegate")
	addStakeFlags(cmd)
	return cmd
}

func newPlanUndelegateCmd(pc *planConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "undelegate",
		Short: "plans undelegating stake from a validator",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execPlanCmd(cmd, pc, func(ctx context.Context, cmd *cobra.Command, p *planner.Planner, _ account.Address) error {
				amount, epoch, rate, err := getStakeParams(cmd)
				if err != nil {
					return err
				}
				p.Undelegate(epoch, amount, rate)
				return nil
			})
		},
	}
	cmd.Flags().String(amountCmdName, "", "amount of delegation token to undelegate")
	addStakeFlags(cmd)
	return cmd
}

func newPlanCommunityPoolDepositCmd(pc *planConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "community-pool-deposit",
		Short: "plans depositing value into the community pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execPlanCmd(cmd, pc, func(ctx context.Context, cmd *cobra.Command, p *planner.Planner, _ account.Address) error {
				value, err := getValue(cmd, amountCmdName, assetCmdName)
				if err != nil {
					return err
				}
				p.CommunityPoolDeposit(value)
				return nil
			})
		},
	}
	addValueFlags(cmd)
	return cmd
}

func newPlanPositionCloseCmd(pc *planConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "position-close",
		Short: "plans closing a liquidity position",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execPlanCmd(cmd, pc, func(ctx context.Context, cmd *cobra.Command, p *planner.Planner, _ account.Address) error {
				s, err := cmd.Flags().GetString(positionCmdName)
				if err != nil {
					return err
				}
				id, err := action.ParsePositionID(s)
				if err != nil {
					return fmt.Errorf("invalid %s parameter: %w", positionCmdName, err)
				}
				p.PositionClose(id)
				return nil
			})
		},
	}
	cmd.Flags().String(positionCmdName, "", "0x prefixed position id")
	_ = cmd.MarkFlagRequired(positionCmdName)
	return cmd
}

// execPlanCmd builds the plan against the configured view service and
// outputs it.
func execPlanCmd(cmd *cobra.Command, pc *planConfig, addActions addActionsFunc) error {
	ctx := cmd.Context()
	v, closeView, err := pc.openView()
	if err != nil {
		return err
	}
	defer closeView()

	source := account.NewAddressIndex(pc.Account)
	changeAddr, err := v.AddressByIndex(ctx, source)
	if err != nil {
		return fmt.Errorf("failed to get address of account %d: %w", pc.Account, err)
	}

	p := planner.New(nil, planner.WithLogger(pc.Base.Logger)).
		SetFeeTier(pc.FeeTier).
		ExpiryHeight(pc.ExpiryHeight)
	if pc.Memo != "" {
		memo, err := txplan.NewMemoPlaintext(changeAddr, pc.Memo)
		if err != nil {
			return err
		}
		_, _ = p.Memo(memo)
	}
	if err := addActions(ctx, cmd, p, changeAddr); err != nil {
		return err
	}
	plan, err := p.Plan(ctx, v, source)
	if err != nil {
		return fmt.Errorf("failed to plan transaction: %w", err)
	}
	return pc.writePlan(plan)
}

func (pc *planConfig) openView() (view.Client, func(), error) {
	if pc.ViewURL != "" {
		c, err := client.New(pc.ViewURL)
		if err != nil {
			return nil, nil, err
		}
		return c, func() {}, nil
	}
	dbFile := pc.DbFile
	if dbFile == "" {
		dbFile = pc.Base.defaultDbFile()
	}
	store, err := boltstore.New(dbFile)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}

func (pc *planConfig) writePlan(plan *txplan.TransactionPlan) error {
	if pc.Out == "" {
		b, err := json.MarshalIndent(plan, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode plan: %w", err)
		}
		consoleWriter.Println(string(b))
		return nil
	}
	b, err := txplan.Encode(plan)
	if err != nil {
		return fmt.Errorf("failed to encode plan: %w", err)
	}
	if err := os.WriteFile(pc.Out, b, 0600); err != nil {
		return fmt.Errorf("failed to write plan: %w", err)
	}
	eh, err := plan.EffectHash()
	if err != nil {
		return err
	}
	consoleWriter.Println(fmt.Sprintf("Plan written to %s, effect hash %s", pc.Out, eh))
	return nil
}

func addValueFlags(cmd *cobra.Command) {
	cmd.Flags().String(amountCmdName, "", "amount in base units")
	cmd.Flags().String(assetCmdName, asset.StakingTokenDenom.String(), "denom or 0x prefixed asset id")
	_ = cmd.MarkFlagRequired(amountCmdName)
}

func getValue(cmd *cobra.Command, amountFlag, assetFlag string) (asset.Value, error) {
	s, err := cmd.Flags().GetString(amountFlag)
	if err != nil {
		return asset.Value{}, err
	}
	amount, err := asset.ParseAmount(s)
	if err != nil {
		return asset.Value{}, fmt.Errorf("invalid %s parameter: %w", amountFlag, err)
	}
	if s, err = cmd.Flags().GetString(assetFlag); err != nil {
		return asset.Value{}, err
	}
	id, err := parseAssetID(s)
	if err != nil {
		return asset.Value{}, fmt.Errorf("invalid %s parameter: %w", assetFlag, err)
	}
	return asset.NewValue(id, amount), nil
}

func addStakeFlags(cmd *cobra.Command) {
	cmd.Flags().String(validatorCmdName, "", "0x prefixed identity key of the validator")
	cmd.Flags().Uint64(rateCmdName, action.RateScale, "validator exchange rate scaled by 10^8")
	cmd.Flags().Uint64(epochCmdName, 0, "index of the current epoch")
	cmd.Flags().Uint64(epochStartCmdName, 0, "start height of the current epoch")
	_ = cmd.MarkFlagRequired(amountCmdName)
	_ = cmd.MarkFlagRequired(validatorCmdName)
}

func getStakeParams(cmd *cobra.Command) (asset.Amount, action.Epoch, action.RateData, error) {
	var epoch action.Epoch
	var rate action.RateData
	s, err := cmd.Flags().GetString(amountCmdName)
	if err != nil {
		return asset.Amount{}, epoch, rate, err
	}
	amount, err := asset.ParseAmount(s)
	if err != nil {
		return asset.Amount{}, epoch, rate, fmt.Errorf("invalid %s parameter: %w", amountCmdName, err)
	}
	if s, err = cmd.Flags().GetString(validatorCmdName); err != nil {
		return asset.Amount{}, epoch, rate, err
	}
	if rate.IdentityKey, err = action.ParseIdentityKey(s); err != nil {
		return asset.Amount{}, epoch, rate, fmt.Errorf("invalid %s parameter: %w", validatorCmdName, err)
	}
	if rate.ValidatorExchangeRate, err = cmd.Flags().GetUint64(rateCmdName); err != nil {
		return asset.Amount{}, epoch, rate, err
	}
	if epoch.Index, err = cmd.Flags().GetUint64(epochCmdName); err != nil {
		return asset.Amount{}, epoch, rate, err
	}
	if epoch.StartHeight, err = cmd.Flags().GetUint64(epochStartCmdName); err != nil {
		return asset.Amount{}, epoch, rate, err
	}
	rate.EpochIndex = epoch.Index
	return amount, epoch, rate, nil
}

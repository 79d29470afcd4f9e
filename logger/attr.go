package logger

/*
Log field key values shared by multiple packages. Package specific keys
should be defined in the package.
*/
const (
	ModuleKey    = "module"
	ErrorKey     = "err"
	AssetIDKey   = "asset_id"
	AmountKey    = "amount"
	FeeKey       = "fee"
	AccountKey   = "account"
	PositionKey  = "position"
	IterationKey = "iteration"
	DataKey      = "data"
)

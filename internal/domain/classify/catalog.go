package classify

import "sort"

// Protocol groups variants by the on-chain program that emits them.
type Protocol string

const (
	ProtocolPumpFun       Protocol = "pumpfun"
	ProtocolPumpSwap      Protocol = "pumpswap"
	ProtocolBonk          Protocol = "bonk"
	ProtocolRaydiumCpmm   Protocol = "raydium_cpmm"
	ProtocolRaydiumClmm   Protocol = "raydium_clmm"
	ProtocolRaydiumAmmV4  Protocol = "raydium_amm_v4"
	ProtocolOrcaWhirlpool Protocol = "orca_whirlpool"
	ProtocolMeteoraPools  Protocol = "meteora_pools"
	ProtocolMeteoraDammV2 Protocol = "meteora_damm_v2"
	ProtocolAccount       Protocol = "account"
	ProtocolBlock         Protocol = "block"
	ProtocolUnknown       Protocol = "unknown"
)

type variant struct {
	protocol Protocol
	label    string
}

var catalog = map[string]variant{ //nolint:gochecknoglobals // read-only table
	"BlockMeta": {ProtocolBlock, "Block Meta"},

	"BonkTrade":      {ProtocolBonk, "Bonk Trade"},
	"BonkPoolCreate": {ProtocolBonk, "Bonk Pool Create"},
	"BonkMigrateAmm": {ProtocolBonk, "Bonk Migrate AMM"},

	"PumpFunTrade":    {ProtocolPumpFun, "PumpFun Trade"},
	"PumpFunCreate":   {ProtocolPumpFun, "PumpFun Create"},
	"PumpFunComplete": {ProtocolPumpFun, "PumpFun Complete"},
	"PumpFunMigrate":  {ProtocolPumpFun, "PumpFun Migrate"},

	"PumpSwapBuy":              {ProtocolPumpSwap, "PumpSwap Buy"},
	"PumpSwapSell":             {ProtocolPumpSwap, "PumpSwap Sell"},
	"PumpSwapCreatePool":       {ProtocolPumpSwap, "PumpSwap Create Pool"},
	"PumpSwapPoolCreated":      {ProtocolPumpSwap, "PumpSwap Pool Created"},
	"PumpSwapTrade":            {ProtocolPumpSwap, "PumpSwap Trade"},
	"PumpSwapLiquidityAdded":   {ProtocolPumpSwap, "PumpSwap Liquidity Added"},
	"PumpSwapLiquidityRemoved": {ProtocolPumpSwap, "PumpSwap Liquidity Removed"},
	"PumpSwapPoolUpdated":      {ProtocolPumpSwap, "PumpSwap Pool Updated"},
	"PumpSwapFeesClaimed":      {ProtocolPumpSwap, "PumpSwap Fees Claimed"},

	"RaydiumCpmmSwap":       {ProtocolRaydiumCpmm, "Raydium CPMM Swap"},
	"RaydiumCpmmDeposit":    {ProtocolRaydiumCpmm, "Raydium CPMM Deposit"},
	"RaydiumCpmmWithdraw":   {ProtocolRaydiumCpmm, "Raydium CPMM Withdraw"},
	"RaydiumCpmmInitialize": {ProtocolRaydiumCpmm, "Raydium CPMM Initialize"},

	"RaydiumClmmSwap":                        {ProtocolRaydiumClmm, "Raydium CLMM Swap"},
	"RaydiumClmmCreatePool":                  {ProtocolRaydiumClmm, "Raydium CLMM Create Pool"},
	"RaydiumClmmOpenPosition":                {ProtocolRaydiumClmm, "Raydium CLMM Open Position"},
	"RaydiumClmmClosePosition":               {ProtocolRaydiumClmm, "Raydium CLMM Close Position"},
	"RaydiumClmmIncreaseLiquidity":           {ProtocolRaydiumClmm, "Raydium CLMM Increase Liquidity"},
	"RaydiumClmmDecreaseLiquidity":           {ProtocolRaydiumClmm, "Raydium CLMM Decrease Liquidity"},
	"RaydiumClmmOpenPositionWithTokenExtNft": {ProtocolRaydiumClmm, "Raydium CLMM Open Position (Token-2022 NFT)"},
	"RaydiumClmmCollectFee":                  {ProtocolRaydiumClmm, "Raydium CLMM Collect Fee"},

	"RaydiumAmmV4Swap":        {ProtocolRaydiumAmmV4, "Raydium AMM v4 Swap"},
	"RaydiumAmmV4Deposit":     {ProtocolRaydiumAmmV4, "Raydium AMM v4 Deposit"},
	"RaydiumAmmV4Withdraw":    {ProtocolRaydiumAmmV4, "Raydium AMM v4 Withdraw"},
	"RaydiumAmmV4Initialize2": {ProtocolRaydiumAmmV4, "Raydium AMM v4 Initialize"},
	"RaydiumAmmV4WithdrawPnl": {ProtocolRaydiumAmmV4, "Raydium AMM v4 Withdraw PnL"},

	"OrcaWhirlpoolSwap":               {ProtocolOrcaWhirlpool, "Orca Whirlpool Swap"},
	"OrcaWhirlpoolLiquidityIncreased": {ProtocolOrcaWhirlpool, "Orca Whirlpool Liquidity Increased"},
	"OrcaWhirlpoolLiquidityDecreased": {ProtocolOrcaWhirlpool, "Orca Whirlpool Liquidity Decreased"},
	"OrcaWhirlpoolPoolInitialized":    {ProtocolOrcaWhirlpool, "Orca Whirlpool Pool Initialized"},

	"MeteoraPoolsSwap":               {ProtocolMeteoraPools, "Meteora Pools Swap"},
	"MeteoraPoolsAddLiquidity":       {ProtocolMeteoraPools, "Meteora Pools Add Liquidity"},
	"MeteoraPoolsRemoveLiquidity":    {ProtocolMeteoraPools, "Meteora Pools Remove Liquidity"},
	"MeteoraPoolsBootstrapLiquidity": {ProtocolMeteoraPools, "Meteora Pools Bootstrap Liquidity"},
	"MeteoraPoolsPoolCreated":        {ProtocolMeteoraPools, "Meteora Pools Pool Created"},
	"MeteoraPoolsSetPoolFees":        {ProtocolMeteoraPools, "Meteora Pools Set Pool Fees"},

	"MeteoraDammV2Swap":             {ProtocolMeteoraDammV2, "Meteora DAMM v2 Swap"},
	"MeteoraDammV2AddLiquidity":     {ProtocolMeteoraDammV2, "Meteora DAMM v2 Add Liquidity"},
	"MeteoraDammV2RemoveLiquidity":  {ProtocolMeteoraDammV2, "Meteora DAMM v2 Remove Liquidity"},
	"MeteoraDammV2InitializePool":   {ProtocolMeteoraDammV2, "Meteora DAMM v2 Initialize Pool"},
	"MeteoraDammV2CreatePosition":   {ProtocolMeteoraDammV2, "Meteora DAMM v2 Create Position"},
	"MeteoraDammV2ClosePosition":    {ProtocolMeteoraDammV2, "Meteora DAMM v2 Close Position"},
	"MeteoraDammV2ClaimPositionFee": {ProtocolMeteoraDammV2, "Meteora DAMM v2 Claim Position Fee"},
	"MeteoraDammV2InitializeReward": {ProtocolMeteoraDammV2, "Meteora DAMM v2 Initialize Reward"},
	"MeteoraDammV2FundReward":       {ProtocolMeteoraDammV2, "Meteora DAMM v2 Fund Reward"},
	"MeteoraDammV2ClaimReward":      {ProtocolMeteoraDammV2, "Meteora DAMM v2 Claim Reward"},

	"TokenAccount": {ProtocolAccount, "Token Account"},
	"NonceAccount": {ProtocolAccount, "Nonce Account"},
	"TokenInfo":    {ProtocolAccount, "Token Info"},
}

// Known reports whether tag is a catalogued variant.
func Known(tag string) bool {
	_, ok := catalog[tag]
	return ok
}

// Label returns a human-readable name for tag, or tag itself when unknown.
func Label(tag string) string {
	if v, ok := catalog[tag]; ok {
		return v.label
	}
	return tag
}

// ProtocolOf returns the protocol that emits tag.
func ProtocolOf(tag string) Protocol {
	if v, ok := catalog[tag]; ok {
		return v.protocol
	}
	return ProtocolUnknown
}

// Tags lists every catalogued variant in lexical order.
func Tags() []string {
	out := make([]string, 0, len(catalog))
	for tag := range catalog {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

package domain

type ChainID string
type ChainType string

const (
	ChainIDEthereum ChainID = "ethereum"
	ChainIDArbitrum ChainID = "arbitrum"
	ChainIDPolygon  ChainID = "polygon"
	ChainIDBitcoin  ChainID = "bitcoin"

	ChainTypeEVM     ChainType = "evm"
	ChainTypeBitcoin ChainType = "bitcoin"
)

// Decimal scales in the chain's smallest unit.
const (
	DecimalsEVM     = 18
	DecimalsBitcoin = 8
)

// ChainIDToType maps well-known chain identifiers to their adapter family.
var ChainIDToType = map[ChainID]ChainType{
	ChainIDEthereum: ChainTypeEVM,
	ChainIDArbitrum: ChainTypeEVM,
	ChainIDPolygon:  ChainTypeEVM,
	ChainIDBitcoin:  ChainTypeBitcoin,
}

// DefaultDecimals returns the decimal scale for a chain family.
func DefaultDecimals(t ChainType) int {
	if t == ChainTypeBitcoin {
		return DecimalsBitcoin
	}
	return DecimalsEVM
}

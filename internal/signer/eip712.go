package signer

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/hlgate/hlgate/internal/model"
)

// Constants for EIP-712
const (
	AgentDomainName    = "Exchange"
	AgentDomainVersion = "1"
	AgentChainID       = 1337

	WithdrawDomainName    = "HyperliquidSignTransaction"
	WithdrawDomainVersion = "1"
	WithdrawPrimaryType   = "HyperliquidTransaction:Withdraw"

	zeroAddress = "0x0000000000000000000000000000000000000000"
)

var (
	// EIP712DomainTypeHash is the keccak256 hash of the EIP712Domain type definition
	EIP712DomainTypeHash = crypto.Keccak256Hash([]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"))

	// AgentTypeHash is the keccak256 hash of "Agent(string source,bytes32 connectionId)"
	AgentTypeHash = crypto.Keccak256Hash([]byte("Agent(string source,bytes32 connectionId)"))

	agentDomainSeparator = domainSeparator(AgentDomainName, AgentDomainVersion, big.NewInt(AgentChainID), common.Address{})
)

var domainTypes = []apitypes.Type{
	{Name: "name", Type: "string"},
	{Name: "version", Type: "string"},
	{Name: "chainId", Type: "uint256"},
	{Name: "verifyingContract", Type: "address"},
}

// domainSeparator encodes the domain by hand. The agent domain never changes,
// so it is computed once.
func domainSeparator(name, version string, chainID *big.Int, verifying common.Address) common.Hash {
	data := make([]byte, 32*5)
	copy(data[0:32], EIP712DomainTypeHash.Bytes())
	copy(data[32:64], crypto.Keccak256([]byte(name)))
	copy(data[64:96], crypto.Keccak256([]byte(version)))
	copy(data[96:128], math.U256Bytes(new(big.Int).Set(chainID)))
	copy(data[128+12:160], verifying.Bytes())
	return crypto.Keccak256Hash(data)
}

// agentDigest is keccak256("\x19\x01" || domainSeparator || hashStruct(agent)).
func agentDigest(agent PhantomAgent) []byte {
	data := make([]byte, 32*3)
	copy(data[0:32], AgentTypeHash.Bytes())
	copy(data[32:64], crypto.Keccak256([]byte(agent.Source)))
	copy(data[64:96], agent.ConnectionID.Bytes())
	hashStruct := crypto.Keccak256(data)

	return crypto.Keccak256([]byte{0x19, 0x01}, agentDomainSeparator.Bytes(), hashStruct)
}

func agentTypedData(agent PhantomAgent) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": domainTypes,
			"Agent": {
				{Name: "source", Type: "string"},
				{Name: "connectionId", Type: "bytes32"},
			},
		},
		PrimaryType: "Agent",
		Domain: apitypes.TypedDataDomain{
			Name:              AgentDomainName,
			Version:           AgentDomainVersion,
			ChainId:           (*math.HexOrDecimal256)(big.NewInt(AgentChainID)),
			VerifyingContract: zeroAddress,
		},
		Message: apitypes.TypedDataMessage{
			"source":       agent.Source,
			"connectionId": agent.ConnectionID.Bytes(),
		},
	}
}

func withdrawTypedData(action *model.WithdrawAction) (apitypes.TypedData, error) {
	if action == nil {
		return apitypes.TypedData{}, fmt.Errorf("withdraw action is required")
	}
	chainID, err := hexutil.DecodeBig(action.SignatureChainID)
	if err != nil {
		return apitypes.TypedData{}, fmt.Errorf("invalid signatureChainId %q: %w", action.SignatureChainID, err)
	}
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": domainTypes,
			WithdrawPrimaryType: {
				{Name: "hyperliquidChain", Type: "string"},
				{Name: "destination", Type: "string"},
				{Name: "amount", Type: "string"},
				{Name: "time", Type: "uint64"},
			},
		},
		PrimaryType: WithdrawPrimaryType,
		Domain: apitypes.TypedDataDomain{
			Name:              WithdrawDomainName,
			Version:           WithdrawDomainVersion,
			ChainId:           (*math.HexOrDecimal256)(chainID),
			VerifyingContract: zeroAddress,
		},
		Message: apitypes.TypedDataMessage{
			"hyperliquidChain": action.HyperliquidChain,
			"destination":      action.Destination,
			"amount":           action.Amount,
			"time":             (*math.HexOrDecimal256)(new(big.Int).SetUint64(action.Time)),
		},
	}, nil
}

func typedDataHash(td apitypes.TypedData) ([]byte, error) {
	hash, _, err := apitypes.TypedDataAndHash(td)
	if err != nil {
		return nil, err
	}
	return hash, nil
}

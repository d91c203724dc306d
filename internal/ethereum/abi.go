package ethereum

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

//go:embed campaign.abi.json
var campaignABIJSON []byte

// LoadABI parses the campaign contract ABI. An empty path selects the bundled
// ABI; otherwise the file may hold a raw ABI array or compiler output with an
// "abi" key.
func LoadABI(path string) (abi.ABI, error) {
	data := campaignABIJSON
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return abi.ABI{}, fmt.Errorf("read ABI %s: %w", path, err)
		}
		data = raw
	}
	return parseABI(data)
}

func parseABI(data []byte) (abi.ABI, error) {
	var compiled struct {
		ABI json.RawMessage `json:"abi"`
	}
	if err := json.Unmarshal(data, &compiled); err == nil && compiled.ABI != nil {
		data = compiled.ABI
	}

	parsed, err := abi.JSON(bytes.NewReader(data))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("parse ABI: %w", err)
	}

	for _, m := range []string{MethodFund, MethodWithdraw, MethodClose, MethodRefund} {
		if _, ok := parsed.Methods[m]; !ok {
			return abi.ABI{}, fmt.Errorf("ABI is missing method %s", m)
		}
	}
	return parsed, nil
}

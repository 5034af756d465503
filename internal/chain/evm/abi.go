package evm

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Contract method names.
const (
	methodReports      = "reports"
	methodReportCount  = "reportCount"
	methodOwner        = "owner"
	methodVerifyReport = "verifyReport"
)

// Output names of the reports method mapped to ReportRecord fields.
var reportFields = []string{"reporter", "description", "location", "evidenceLink", "verified", "reward"}

// DefaultABI describes the incident reports contract: public reports array
// getter, report counter, owner accessor and payable verification.
const DefaultABI = `[
  {"type":"function","name":"owner","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"address"}]},
  {"type":"function","name":"reportCount","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"reports","stateMutability":"view",
   "inputs":[{"name":"","type":"uint256"}],
   "outputs":[
     {"name":"reporter","type":"address"},
     {"name":"description","type":"string"},
     {"name":"location","type":"string"},
     {"name":"evidenceLink","type":"string"},
     {"name":"verified","type":"bool"},
     {"name":"reward","type":"uint256"}]},
  {"type":"function","name":"submitReport","stateMutability":"nonpayable",
   "inputs":[
     {"name":"_description","type":"string"},
     {"name":"_location","type":"string"},
     {"name":"_evidenceLink","type":"string"}],
   "outputs":[]},
  {"type":"function","name":"verifyReport","stateMutability":"payable",
   "inputs":[{"name":"_reportId","type":"uint256"},{"name":"_reward","type":"uint256"}],
   "outputs":[]}
]`

// LoadABI parses contract ABI from the given JSON file or DefaultABI if path
// is empty. The result is checked to contain the methods needed for reading.
func LoadABI(path string) (abi.ABI, error) {
	data := []byte(DefaultABI)

	if path != "" {
		var err error

		data, err = os.ReadFile(path)
		if err != nil {
			return abi.ABI{}, fmt.Errorf("read ABI file: %w", err)
		}
	}

	parsed, err := abi.JSON(bytes.NewReader(data))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("parse ABI: %w", err)
	}

	return parsed, checkABI(parsed)
}

func checkABI(parsed abi.ABI) error {
	if _, ok := parsed.Methods[methodOwner]; !ok {
		return fmt.Errorf("ABI lacks %s method", methodOwner)
	}

	m, ok := parsed.Methods[methodReports]
	if !ok {
		return fmt.Errorf("ABI lacks %s method", methodReports)
	}

	var missing []string

	for _, name := range reportFields {
		if outputIndex(m, name) < 0 {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("ABI method %s lacks outputs: %s", methodReports, strings.Join(missing, ", "))
	}

	return nil
}

func outputIndex(m abi.Method, name string) int {
	for i := range m.Outputs {
		if m.Outputs[i].Name == name {
			return i
		}
	}

	return -1
}

func hasCounter(parsed abi.ABI) bool {
	_, ok := parsed.Methods[methodReportCount]
	return ok
}

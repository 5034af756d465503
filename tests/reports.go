package tests

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/neotest"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
)

// ReportsPath returns absolute path to the Reports contract sources.
func ReportsPath() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "contracts", "reports")
}

// DeployReports compiles and deploys the Reports contract owned by the given
// account. Zero owner makes the deploying committee an owner.
func DeployReports(t testing.TB, e *neotest.Executor, owner util.Uint160) util.Uint160 {
	p := ReportsPath()
	c := neotest.CompileFile(t, e.CommitteeHash, p, filepath.Join(p, "config.yml"))

	var data any
	if !owner.Equals(util.Uint160{}) {
		data = owner
	}

	e.DeployContract(t, c, data)
	return c.Hash
}

// NewExecutor creates an executor with a single-node chain.
func NewExecutor(t testing.TB) *neotest.Executor {
	return newExecutor(t)
}

// Invoker performs test invocations against the current state of a neotest
// chain. It implements Invoker interface of the RPC wrappers so they can be
// exercised without RPC server.
type Invoker struct {
	t       testing.TB
	e       *neotest.Executor
	signers []neotest.Signer
}

// NewInvoker returns Invoker making calls with the given signers, committee
// by default.
func NewInvoker(t testing.TB, e *neotest.Executor, signers ...neotest.Signer) *Invoker {
	if len(signers) == 0 {
		signers = []neotest.Signer{e.Committee}
	}
	return &Invoker{t: t, e: e, signers: signers}
}

// Call implements Invoker interface. Faults are reported in the result the
// same way RPC node reports them, the error is always nil.
func (x *Invoker) Call(contract util.Uint160, operation string, params ...any) (*result.Invoke, error) {
	stack, err := x.e.NewInvoker(contract, x.signers...).TestInvoke(x.t, operation, params...)
	if err != nil {
		return &result.Invoke{
			State:          vmstate.Fault.String(),
			FaultException: err.Error(),
		}, nil
	}

	return &result.Invoke{
		State: vmstate.Halt.String(),
		Stack: stack.ToArray(),
	}, nil
}

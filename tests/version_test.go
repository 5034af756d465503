package tests

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/civicwatch/incident-reports/common"
	"github.com/civicwatch/incident-reports/rpc/reports"
	"github.com/nspcc-dev/neo-go/pkg/neotest"
	"github.com/stretchr/testify/require"
)

func releaseVersion(t *testing.T) int {
	data, err := os.ReadFile("../VERSION")
	require.NoError(t, err)

	parts := strings.Split(strings.TrimPrefix(strings.TrimSpace(string(data)), "v"), ".")
	require.Len(t, parts, 3)

	var v int
	for i := range parts {
		n, err := strconv.Atoi(parts[i])
		require.NoError(t, err)
		v = v*1_000 + n
	}

	return v
}

func TestVersion(t *testing.T) {
	require.Equal(t, releaseVersion(t), common.Version,
		"contract version differs from the VERSION file")

	e := newExecutor(t)
	h := DeployReports(t, e, e.CommitteeHash)

	v, err := reports.NewReader(NewInvoker(t, e), h).Version()
	require.NoError(t, err)
	require.EqualValues(t, common.Version, v.Int64())
}

func TestReports_UpdateSameVersion(t *testing.T) {
	e := newExecutor(t)

	p := ReportsPath()
	ctr := neotest.CompileFile(t, e.CommitteeHash, p, filepath.Join(p, "config.yml"))
	e.DeployContract(t, ctr, nil)

	rawNEF, err := ctr.NEF.Bytes()
	require.NoError(t, err)

	rawManifest, err := json.Marshal(ctr.Manifest)
	require.NoError(t, err)

	e.CommitteeInvoker(ctr.Hash).InvokeFail(t, common.ErrAlreadyUpdated, "update",
		rawNEF, rawManifest, nil)
}

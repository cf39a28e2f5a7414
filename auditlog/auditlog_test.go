package auditlog

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/purku/types"
)

var testScope = types.Scope{AccountID: "111111111111", Region: "us-east-1"}

func TestLog_TransitionsAndEvents(t *testing.T) {
	dir := t.TempDir()

	l, err := Open(dir, "20260830-120000")
	require.NoError(t, err)

	l.Event("run_start", "-", "domain=vpc scopes=2")
	res := types.Resource{Type: "ec2_instance", ID: "i-1", Name: "worker"}
	l.Transition(testScope, res, types.StatusAttempting, "")
	l.Transition(testScope, res, types.StatusDeleted, "")
	l.Event("run_finished", "-", "deleted=1 failed=0 skipped=0 protected=0")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(l.Path())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 4)

	// Sequence numbers are strictly increasing and zero-padded.
	for i, line := range lines {
		assert.Contains(t, line, fmt.Sprintf("#%06d", i+1))
	}

	assert.Contains(t, lines[0], "run_start")
	assert.Contains(t, lines[1], "attempting")
	assert.Contains(t, lines[1], "scope=111111111111/us-east-1")
	assert.Contains(t, lines[1], "type=ec2_instance")
	assert.Contains(t, lines[1], "id=i-1")
	assert.Contains(t, lines[2], "deleted")
	assert.Contains(t, lines[3], "detail=deleted=1 failed=0 skipped=0 protected=0")
}

func TestLog_DetailOmittedWhenEmpty(t *testing.T) {
	dir := t.TempDir()
	l, err := Open(dir, "run")
	require.NoError(t, err)

	l.Transition(testScope, types.Resource{Type: "vpc", ID: "vpc-1"}, types.StatusDeleted, "")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(l.Path())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "detail=")
}

func TestLog_ConcurrentAppendsKeepWholeLines(t *testing.T) {
	dir := t.TempDir()
	l, err := Open(dir, "concurrent")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res := types.Resource{Type: "ebs_volume", ID: fmt.Sprintf("vol-%d", i)}
			l.Transition(testScope, res, types.StatusDeleted, "")
		}(i)
	}
	wg.Wait()
	require.NoError(t, l.Close())

	data, err := os.ReadFile(l.Path())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 20)

	seen := make(map[string]bool)
	for _, line := range lines {
		fields := strings.Fields(line)
		require.GreaterOrEqual(t, len(fields), 6, "torn line: %q", line)
		seen[fields[1]] = true
	}
	// All 20 sequence numbers present exactly once.
	assert.Len(t, seen, 20)
}

func TestLog_FileNamedByRunID(t *testing.T) {
	dir := t.TempDir()
	l, err := Open(dir, "20260830-130000")
	require.NoError(t, err)
	defer l.Close()

	assert.True(t, strings.HasSuffix(l.Path(), "purku-20260830-130000.log"))
}

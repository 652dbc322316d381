package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "rules.yaml", "rules:\n  - rule_name: first\n")

	var reloads atomic.Int32
	w, err := NewRuleWatcher(path,
		WithDebounceDelay(10*time.Millisecond),
		WithRuleSetCallback(func(*RuleSet) { reloads.Add(1) }),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"first"}, w.Rules().Names())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer func() { _ = w.Stop() }()

	require.NoError(t, os.WriteFile(path, []byte("rules:\n  - rule_name: second\n"), 0o600))

	assert.Eventually(t, func() bool {
		names := w.Rules().Names()
		return len(names) == 1 && names[0] == "second"
	}, 2*time.Second, 20*time.Millisecond)
	assert.GreaterOrEqual(t, reloads.Load(), int32(1))
}

func TestRuleWatcher_KeepsPreviousOnInvalidReload(t *testing.T) {
	path := writeFile(t, t.TempDir(), "rules.yaml", "rules:\n  - rule_name: keep\n")

	var failures atomic.Int32
	w, err := NewRuleWatcher(path, WithErrorCallback(func(error) { failures.Add(1) }))
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("rules:\n  - rule_name: dup\n  - rule_name: dup\n"), 0o600))
	assert.Error(t, w.Reload())
	assert.Equal(t, []string{"keep"}, w.Rules().Names())

	w.reload()
	assert.Equal(t, int32(1), failures.Load())
}

func TestNewRuleWatcher_MissingFile(t *testing.T) {
	_, err := NewRuleWatcher(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

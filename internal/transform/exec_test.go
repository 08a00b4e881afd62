package transform

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireBinary(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s binary not found in PATH, skipping", name)
	}
}

func TestBinaryMissing(t *testing.T) {
	_, err := Binary{Name: "sitepipe-no-such-tool"}.Run(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBinaryNotFound)
}

func TestBinaryPipesStdin(t *testing.T) {
	requireBinary(t, "cat")
	out, err := Binary{Name: "cat"}.Run(context.Background(), []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(out))
}

func TestBinaryFailureIncludesStderr(t *testing.T) {
	requireBinary(t, "sh")
	_, err := Binary{Name: "sh"}.Run(context.Background(), nil, "-c", "echo oops >&2; exit 3")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExecutionFailed)
	assert.Contains(t, err.Error(), "oops")
}

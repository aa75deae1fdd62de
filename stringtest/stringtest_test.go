package stringtest_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"go.jacobcolvin.com/helmschema/stringtest"
)

func TestJoinLF(t *testing.T) {
	t.Parallel()

	assert.Empty(t, stringtest.JoinLF())
	assert.Equal(t, "one", stringtest.JoinLF("one"))
	assert.Equal(t, "a\nb\nc", stringtest.JoinLF("a", "b", "c"))

	// A trailing empty element yields a trailing newline.
	assert.Equal(t, "a: 1\n", stringtest.JoinLF("a: 1", ""))
}

func TestJoinCRLF(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a\r\nb", stringtest.JoinCRLF("a", "b"))
}

package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jogardn/storefront/internal/auth"
	"github.com/jogardn/storefront/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		configPath = ""
	})
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestHashPasswordFromStdin(t *testing.T) {
	out, err := execute(t, "s3cret\n", "hash-password")
	require.NoError(t, err)

	hash := strings.TrimSpace(out)
	assert.True(t, auth.CheckPassword("s3cret", hash))
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	_, err := execute(t, "\n", "hash-password")
	assert.Error(t, err)
}

func TestMigrateAndListOrders(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_DSN", filepath.Join(t.TempDir(), "cli.db"))
	t.Setenv("LOG_LEVEL", "error")

	_, err := execute(t, "", "migrate")
	require.NoError(t, err)

	out, err := execute(t, "", "orders", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "(no orders)")
}

func TestPrintOrders(t *testing.T) {
	var buf bytes.Buffer
	err := printOrders(&buf, []*models.Order{{
		ID:            3,
		CustomerName:  "Anna",
		CustomerPhone: "123",
		ProductType:   "T-shirt",
		Status:        "New",
		CreatedAt:     time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC),
	}}, time.UTC)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], "17.10.2026 09:30")
	assert.Contains(t, lines[1], "Anna")
}

func TestTruncateText(t *testing.T) {
	assert.Equal(t, "short", truncateText("short", 10))
	assert.Equal(t, "abcd…", truncateText("abcdefgh", 5))
}

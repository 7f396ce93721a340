package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgAuth "github.com/biblioteka/backend/internal/pkg/auth"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-test-secret")
	missing := filepath.Join(t.TempDir(), "absent.yaml")

	out, err := runCLI(t, "token", "--config", missing, "--pretty=false", "--user-id", "7", "--username", "petrova", "--role", "librarian")
	require.NoError(t, err)

	jwtService := pkgAuth.NewJWTService(pkgAuth.JWTConfig{SecretKey: "cli-test-secret", TokenIssuer: "biblioteka.auth"})
	claims, err := jwtService.ValidateToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, "petrova", claims.Username)
	assert.Equal(t, pkgAuth.RoleLibrarian, claims.Role)
}

func TestTokenCommand_RejectsUnknownRole(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-test-secret")
	missing := filepath.Join(t.TempDir(), "absent.yaml")

	_, err := runCLI(t, "token", "--config", missing, "--pretty=false", "--user-id", "1", "--role", "superuser")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown role")
}

func TestTokenCommand_RequiresUserID(t *testing.T) {
	_, err := runCLI(t, "token")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user-id")
}

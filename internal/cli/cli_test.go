package cli_test

import (
	"bytes"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jrsteele09/go-dash-session/internal/cli"
	"github.com/jrsteele09/go-dash-session/internal/config"
	"github.com/jrsteele09/go-dash-session/mockapi"
	fakeuserrepo "github.com/jrsteele09/go-dash-session/users/repofake"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testFixture struct {
	srv *httptest.Server
	dir string
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	users := fakeuserrepo.NewFakeUserRepo()
	require.NoError(t, mockapi.SeedUsers(users, []string{"a@b.com:x:Ada"}, bcrypt.MinCost))

	s, err := mockapi.New(config.New(), users, mockapi.WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)

	f := &testFixture{srv: srv, dir: t.TempDir()}
	t.Setenv("DASHSESSION_CONFIG", filepath.Join(f.dir, "missing.yaml"))
	t.Setenv("API_BASE_URL", srv.URL)
	t.Setenv("STORAGE_DRIVER", config.StorageDriverFile)
	t.Setenv("STORAGE_PATH", filepath.Join(f.dir, "credential.json"))
	t.Setenv("RETRY_BASE_DELAY", "1ms")
	return f
}

// run executes the CLI with args and returns stdout.
func (f *testFixture) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := cli.NewRootCmd("test")
	var out, errOut bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.Execute()
	return out.String(), err
}

func TestCLI_LoginStatusGetLogout(t *testing.T) {
	f := setupTestFixture(t)

	out, err := f.run(t, "x\n", "login", "--email", "a@b.com", "--password-stdin")
	require.NoError(t, err)
	require.Contains(t, out, "Signed in as Ada <a@b.com>")

	out, err = f.run(t, "", "status")
	require.NoError(t, err)
	require.Contains(t, out, "authenticated")
	require.Contains(t, out, "a@b.com")

	out, err = f.run(t, "", "get", "/me")
	require.NoError(t, err)
	require.Contains(t, out, `"email": "a@b.com"`)

	out, err = f.run(t, "", "get", "/recommendations", "--raw")
	require.NoError(t, err)
	require.Contains(t, out, `"items":`)

	out, err = f.run(t, "", "logout")
	require.NoError(t, err)
	require.Contains(t, out, "Signed out")

	out, err = f.run(t, "", "status")
	require.NoError(t, err)
	require.Contains(t, out, "anonymous")
}

func TestCLI_LoginPromptsForEmail(t *testing.T) {
	f := setupTestFixture(t)

	out, err := f.run(t, "a@b.com\nx\n", "login")
	require.NoError(t, err)
	require.Contains(t, out, "Email: ")
	require.Contains(t, out, "Signed in as Ada")
}

func TestCLI_LoginWrongPassword(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.run(t, "nope\n", "login", "--email", "a@b.com")
	require.EqualError(t, err, "Sign in failed: wrong email or password.")

	out, err := f.run(t, "", "status")
	require.NoError(t, err)
	require.Contains(t, out, "anonymous")
}

func TestCLI_GetWithoutSession(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.run(t, "", "get", "/me")
	require.Error(t, err)
	require.Contains(t, err.Error(), "dashsession login")
}

func TestCLI_Refresh(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.run(t, "x\n", "login", "--email", "a@b.com")
	require.NoError(t, err)

	out, err := f.run(t, "", "refresh")
	require.NoError(t, err)
	require.Contains(t, out, "Session refreshed")

	_, err = f.run(t, "", "get", "/me")
	require.NoError(t, err)
}

func TestCLI_SQLiteStorage(t *testing.T) {
	f := setupTestFixture(t)
	t.Setenv("STORAGE_DRIVER", config.StorageDriverSQLite)
	t.Setenv("STORAGE_PATH", filepath.Join(f.dir, "state", "session.db"))

	_, err := f.run(t, "x\n", "login", "--email", "a@b.com")
	require.NoError(t, err)

	out, err := f.run(t, "", "status")
	require.NoError(t, err)
	require.Contains(t, out, "authenticated")
}

func TestCLI_UnreadableStoreStillRuns(t *testing.T) {
	f := setupTestFixture(t)
	t.Setenv("STORAGE_PATH", f.dir)

	out, err := f.run(t, "", "status")
	require.NoError(t, err)
	require.Contains(t, out, "anonymous")

	out, err = f.run(t, "", "logout")
	require.NoError(t, err)
	require.Contains(t, out, "Signed out")
}

func TestCLI_Version(t *testing.T) {
	f := setupTestFixture(t)

	out, err := f.run(t, "", "version", "--short")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "dashsession test ("), out)
}

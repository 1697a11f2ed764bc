package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "metastore", cmd.Use)
	assert.Contains(t, cmd.Long, "type:id")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"get", "create", "set", "forget", "delete", "search", "sync", "serve"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	tests := []struct {
		flag string
		def  string
	}{
		{"format", "text"},
		{"config", ""},
		{"backend", "sqlite"},
		{"db", ""},
		{"table", ""},
		{"identity-key", ""},
		{"no-identity", "false"},
		{"id-format", "ulid"},
		{"timezone", "UTC"},
	}
	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			f := cmd.PersistentFlags().Lookup(tt.flag)
			require.NotNil(t, f)
			assert.Equal(t, tt.def, f.DefValue)
		})
	}
}

func TestServeCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	serveCmd, _, err := cmd.Find([]string{"serve"})
	require.NoError(t, err)

	addrFlag := serveCmd.Flags().Lookup("addr")
	require.NotNil(t, addrFlag)
	assert.Equal(t, ":8080", addrFlag.DefValue)
}

func TestDocFlags(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"get", "set", "forget", "delete"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.NotNil(t, sub.Flags().Lookup("doc"))
		})
	}
}

func TestInvalidFormat(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.run("--format", "xml", "get", "user:1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}

func TestInvalidBackend(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.run("--backend", "postgres", "get", "user:1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid backend "postgres"`)
}

func TestDocAndAllAreExclusive(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.run("get", "--doc", "x", "--all", "user:1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "none of the others can be")
}

func TestEnvironmentConfiguration(t *testing.T) {
	db := filepath.Join(t.TempDir(), "env.db")
	t.Setenv("METASTORE_DB", db)
	t.Setenv("METASTORE_FORMAT", "json")

	cmd := newRootCommand(&RootOptions{})
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"set", "user:1", "theme", "dark"})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, `{"status":"ok","data":{"theme":"dark"}}`+"\n", out.String())
	assert.FileExists(t, db)
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("METASTORE_FORMAT", "json")

	env := newCLIEnv(t)
	out, err := env.run("--format", "text", "set", "user:1", "theme", "dark")
	require.NoError(t, err)
	assert.Equal(t, `{"theme":"dark"}`+"\n", out)
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "file.db")
	cfg := filepath.Join(dir, "metastore.yaml")
	content := "db: " + db + "\nformat: json\nidentity-key: uid\n"
	require.NoError(t, os.WriteFile(cfg, []byte(content), 0644))

	opts := &RootOptions{}
	cmd := newRootCommand(opts)
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", cfg, "search", "user:1", "x"})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, db, opts.Database)
	assert.Equal(t, "json", opts.Format)
	assert.Equal(t, "uid", opts.IdentityKey)
	assert.Equal(t, `{"status":"ok","data":[]}`+"\n", out.String())
}

func TestConfigFileMissing(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.run("--config", filepath.Join(t.TempDir(), "absent.yaml"), "get", "user:1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load configuration")
}

func TestParseOwner(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
		typ, id string
	}{
		{in: "user:42", typ: "user", id: "42"},
		{in: "post:a:b", typ: "post", id: "a:b"},
		{in: "user", wantErr: true},
		{in: ":42", wantErr: true},
		{in: "user:", wantErr: true},
		{in: " :42", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			owner, err := parseOwner(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.typ, owner.Type)
			assert.Equal(t, tt.id, owner.ID)
		})
	}
}

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	game    string
	bin     string
	project string
	config  string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	root := t.TempDir()

	f := fixture{
		game:    filepath.Join(root, "steamapps", "common", "SpaceEngineers"),
		project: filepath.Join(root, "mod", "Plugin", "Plugin.csproj"),
		config:  filepath.Join(root, "mod", ".resolverefs"),
	}
	f.bin = filepath.Join(f.game, "Bin64")
	require.NoError(t, os.MkdirAll(f.bin, 0755))
	testAssembly{name: "Sandbox.Game", version: [4]uint16{1, 0, 0, 0}}.write(t, f.bin, "Sandbox.Game.dll")

	touch(t, filepath.Join(root, "mod", "Mod.sln"))
	require.NoError(t, os.WriteFile(f.project, []byte(projectXML), 0644))

	t.Chdir(filepath.Dir(f.project))
	return f
}

func (f fixture) execute(t *testing.T, reg KeyReader, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCommand(reg, &stdout, &stderr)
	cmd.SetArgs(append([]string{"--config", f.config, "--user-config", f.config + "-user"}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestCommand(t *testing.T) {
	f := newFixture(t)
	reg := &fakeRegistry{values: map[string]string{wow64Key: f.game + string(filepath.Separator)}}

	stdout, _, err := f.execute(t, reg, "--REMOVEHINTPATH", "--unknownFlag", "extra")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Creating")
	assert.Contains(t, stdout, "Scanned game assemblies")

	user := readDoc(t, f.project+".user")
	refPath := user.FindElement("//ReferencePath")
	require.NotNil(t, refPath)
	assert.Equal(t, f.bin, refPath.Text())

	proj := readDoc(t, f.project)
	refs := proj.FindElements("//Reference")
	require.Len(t, refs, 3)
	assert.Empty(t, refs[0].SelectElements("HintPath"))
	assert.Len(t, refs[2].SelectElements("HintPath"), 1)
	assert.Empty(t, refs[0].SelectElements("Private"))
}

func TestCommandWithoutFlagsLeavesProject(t *testing.T) {
	f := newFixture(t)
	reg := &fakeRegistry{values: map[string]string{primaryKey: f.bin}}

	stdout, _, err := f.execute(t, reg)
	require.NoError(t, err)
	assert.NotContains(t, stdout, "Scanned game assemblies")

	data, err := os.ReadFile(f.project)
	require.NoError(t, err)
	assert.Equal(t, projectXML, string(data))
}

func TestCommandRegistryMissing(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.execute(t, &fakeRegistry{})
	assert.ErrorIs(t, err, ErrInstallNotFound)
	assert.NoFileExists(t, f.project+".user")
}

func TestCommandInvalidInstallPath(t *testing.T) {
	f := newFixture(t)
	reg := &fakeRegistry{values: map[string]string{primaryKey: filepath.Dir(f.game)}}

	_, _, err := f.execute(t, reg)
	assert.ErrorIs(t, err, ErrInvalidInstallPath)
	assert.NoFileExists(t, f.project+".user")
}

func TestCommandConfiguredInstallPath(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(f.config+"-user", []byte("[resolverefs-user]\ninstall_path = "+f.game+"\n"), 0644))

	_, _, err := f.execute(t, systemRegistryStub{}, "--disablecopylocal")
	require.NoError(t, err)

	proj := readDoc(t, f.project)
	refs := proj.FindElements("//Reference")
	require.Len(t, refs, 3)
	require.NotNil(t, refs[0].SelectElement("Private"))
	assert.Equal(t, "False", refs[0].SelectElement("Private").Text())
}

func TestRunLogsFailure(t *testing.T) {
	f := newFixture(t)
	var stdout, stderr bytes.Buffer

	code := run(&fakeRegistry{}, []string{"--config", f.config, "--user-config", f.config + "-user"}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "resolverefs")
	assert.Contains(t, stderr.String(), "failed to get path to SpaceEngineers from registry")
	assert.NotContains(t, stdout.String(), "failed to get path")
}

func TestRunSuccess(t *testing.T) {
	f := newFixture(t)
	reg := &fakeRegistry{values: map[string]string{primaryKey: f.bin}}
	var stdout, stderr bytes.Buffer

	code := run(reg, []string{"--config", f.config, "--user-config", f.config + "-user"}, &stdout, &stderr)
	assert.Equal(t, 0, code)
	assert.Empty(t, stderr.String())
	assert.FileExists(t, f.project+".user")
}

package main

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, nil, 0644))
}

func TestAncestors(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	seq, err := Ancestors(dir + string(filepath.Separator))
	require.NoError(t, err)

	got := slices.Collect(seq)
	require.NotEmpty(t, got)
	assert.Equal(t, dir, got[0])
	assert.Equal(t, filepath.Dir(dir), got[1])

	last := got[len(got)-1]
	assert.Equal(t, filepath.Dir(last), filepath.Dir(filepath.Dir(last)), "stops one level below the root")
	assert.NotContains(t, got, filepath.Dir(last))
}

func TestAncestorsRelative(t *testing.T) {
	_, err := Ancestors(filepath.Join("some", "dir"))
	assert.ErrorIs(t, err, ErrPathNotAbsolute)
}

func TestFindSolution(t *testing.T) {
	root := t.TempDir()
	outer := filepath.Join(root, "Outer.sln")
	inner := filepath.Join(root, "repo", "Scripts.sln")
	touch(t, outer)
	touch(t, inner)
	work := filepath.Join(root, "repo", "src", "Plugin")
	require.NoError(t, os.MkdirAll(work, 0755))

	t.Run("nearest wins", func(t *testing.T) {
		got, err := FindSolution(work, ".sln")
		require.NoError(t, err)
		assert.Equal(t, inner, got)
	})

	t.Run("directory named like a solution is ignored", func(t *testing.T) {
		require.NoError(t, os.MkdirAll(filepath.Join(work, "Fake.sln"), 0755))
		got, err := FindSolution(work, ".sln")
		require.NoError(t, err)
		assert.Equal(t, inner, got)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := FindSolution(work, ".nosuchext")
		assert.ErrorIs(t, err, ErrSolutionNotFound)
	})
}

func TestFindProjects(t *testing.T) {
	root := t.TempDir()
	want := []string{
		filepath.Join(root, "Root.csproj"),
		filepath.Join(root, "src", "Plugin", "Plugin.csproj"),
		filepath.Join(root, "tests", "deep", "er", "Tests.csproj"),
	}
	for _, p := range want {
		touch(t, p)
	}
	touch(t, filepath.Join(root, "src", "Plugin", "Plugin.csproj.user"))
	touch(t, filepath.Join(root, "src", "Plugin", "Plugin.cs"))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "odd.csproj"), 0755))

	got, err := FindProjects(root, ".csproj")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

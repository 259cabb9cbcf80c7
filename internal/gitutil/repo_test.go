package gitutil

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// initRepo creates a repository with one commit containing main.go.
func initRepo(t *testing.T) (string, *git.Repository) {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	writeFile(t, dir, "main.go", "package main\n\nfunc main() {}\n")
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("main.go")
	require.NoError(t, err)
	_, err = wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com"},
	})
	require.NoError(t, err)
	return dir, repo
}

func TestClient_StagedFiles(t *testing.T) {
	dir, repo := initRepo(t)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	writeFile(t, dir, "main.go", "package main\n\nfunc main() { println(1) }\n")
	writeFile(t, dir, "pkg/util.go", "package pkg\n")
	writeFile(t, dir, "notes.txt", "untracked\n")
	_, err = wt.Add("main.go")
	require.NoError(t, err)
	_, err = wt.Add("pkg/util.go")
	require.NoError(t, err)

	client := NewClient(nil)
	files, err := client.StagedFiles(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"main.go", "pkg/util.go"}, files)
}

func TestClient_StagedFiles_Clean(t *testing.T) {
	dir, _ := initRepo(t)
	files, err := NewClient(nil).StagedFiles(context.Background(), dir)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestClient_Open_NotRepository(t *testing.T) {
	_, err := NewClient(nil).Open(t.TempDir())
	assert.ErrorIs(t, err, ErrNotRepository)
}

func TestClient_Root(t *testing.T) {
	dir, _ := initRepo(t)
	sub := filepath.Join(dir, "nested", "deeper")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	root, err := NewClient(nil).Root(sub)
	require.NoError(t, err)

	want, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestClient_GetHeadSHA(t *testing.T) {
	dir, repo := initRepo(t)
	head, err := repo.Head()
	require.NoError(t, err)

	sha, err := NewClient(nil).GetHeadSHA(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, head.Hash().String(), sha)
}

func TestClient_StagedDiff(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
	dir, repo := initRepo(t)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	writeFile(t, dir, "main.go", "package main\n\nfunc main() { println(1) }\n")
	_, err = wt.Add("main.go")
	require.NoError(t, err)

	diff, err := NewClient(nil).StagedDiff(context.Background(), dir, "main.go")
	require.NoError(t, err)
	assert.Contains(t, diff, "--- a/main.go")
	assert.Contains(t, diff, "+++ b/main.go")
	assert.Contains(t, diff, "@@ -1,3 +1,3 @@")
	assert.Contains(t, diff, "+func main() { println(1) }")
}

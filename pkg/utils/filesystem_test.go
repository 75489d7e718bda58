package utils_test

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"

	"github.com/poltergeist/phasebuild/pkg/utils"
)

func TestFindUp(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/work/build.json", []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := fs.MkdirAll("/work/app/src", 0755); err != nil {
		t.Fatal(err)
	}

	fsu := utils.NewFileSystemUtils(fs)

	path, ok := fsu.FindUp("build.json", "/work/app/src")
	if !ok {
		t.Fatal("expected build.json to be found")
	}
	if path != filepath.Join("/work", "build.json") {
		t.Errorf("unexpected path %s", path)
	}

	if _, ok := fsu.FindUp("missing.json", "/work/app/src"); ok {
		t.Error("did not expect missing.json to be found")
	}
}

func TestListFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	for _, name := range []string{"/tasks/b.task.yaml", "/tasks/a.task.yaml", "/tasks/readme.md"} {
		if err := afero.WriteFile(fs, name, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := fs.MkdirAll("/tasks/nested.task.yaml", 0755); err != nil {
		t.Fatal(err)
	}

	files, err := utils.NewFileSystemUtils(fs).ListFiles("/tasks", ".task.yaml")
	if err != nil {
		t.Fatal(err)
	}

	want := []string{filepath.Join("/tasks", "a.task.yaml"), filepath.Join("/tasks", "b.task.yaml")}
	if len(files) != len(want) || files[0] != want[0] || files[1] != want[1] {
		t.Errorf("expected %v, got %v", want, files)
	}
}

func TestWriteFileCreatesDirectories(t *testing.T) {
	fsu := utils.NewFileSystemUtils(afero.NewMemMapFs())

	if err := fsu.WriteFile("/out/dist/all.js", []byte("code")); err != nil {
		t.Fatal(err)
	}
	if !fsu.IsFile("/out/dist/all.js") {
		t.Error("expected file to exist")
	}
	if !fsu.IsDirectory("/out/dist") {
		t.Error("expected directory to exist")
	}
	if fsu.Exists("/out/dist/all.js.tmp") {
		t.Error("temporary file should have been renamed")
	}

	data, err := fsu.ReadFile("/out/dist/all.js")
	if err != nil || string(data) != "code" {
		t.Errorf("unexpected content %q (%v)", data, err)
	}
}

func TestIsWithin(t *testing.T) {
	tests := []struct {
		root, path string
		want       bool
	}{
		{"/a/b", "/a/b", true},
		{"/a/b", "/a/b/c", true},
		{"/a/b", "/a/b/../b/c", true},
		{"/a/b", "/a/bc", false},
		{"/a/b", "/a", false},
		{"/a/b", "/outside", false},
		{"/a/b", "/a/b/..c", true},
	}

	for _, tt := range tests {
		if got := utils.IsWithin(tt.root, tt.path); got != tt.want {
			t.Errorf("IsWithin(%q, %q) = %v, want %v", tt.root, tt.path, got, tt.want)
		}
	}
}

func TestResolvePath(t *testing.T) {
	if got := utils.ResolvePath("/base", "rel/dir"); got != filepath.Join("/base", "rel/dir") {
		t.Errorf("unexpected relative resolution %s", got)
	}
	if got := utils.ResolvePath("/base", "/abs/../dir"); got != "/dir" {
		t.Errorf("unexpected absolute resolution %s", got)
	}
}

func TestFormatBytes(t *testing.T) {
	if got := utils.FormatBytes(512); got != "512 B" {
		t.Errorf("unexpected %s", got)
	}
	if got := utils.FormatBytes(1536); got != "1.5 KB" {
		t.Errorf("unexpected %s", got)
	}
}

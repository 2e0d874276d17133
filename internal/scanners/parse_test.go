package scanners

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorozuya-cybersecurity/catchit/internal/search"
)

var (
	linux   = search.ForOS("linux")
	windows = search.ForOS("windows")
)

func TestParseContentHit(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		platform search.Platform
		want     RawHit
		wantErr  error
	}{
		{
			name:     "plain",
			line:     "/src/app.py:12:password = \"x\"",
			platform: linux,
			want:     RawHit{Path: "/src/app.py", Line: 12, Match: `password = "x"`},
		},
		{
			name:     "match keeps its colons",
			line:     "/src/a.yaml:3:url: redis://u:p@host:6379",
			platform: linux,
			want:     RawHit{Path: "/src/a.yaml", Line: 3, Match: "url: redis://u:p@host:6379"},
		},
		{
			name:     "relative path",
			line:     "sub/a.txt:1:AKIA",
			platform: linux,
			want:     RawHit{Path: "sub/a.txt", Line: 1, Match: "AKIA"},
		},
		{
			name:     "two fields has empty match",
			line:     "/src/a.txt:7",
			platform: linux,
			want:     RawHit{Path: "/src/a.txt", Line: 7, Match: ""},
		},
		{
			name:     "drive letter rejoined on windows",
			line:     `C:\repo\app.py:4:token: abc`,
			platform: windows,
			want:     RawHit{Path: `C:\repo\app.py`, Line: 4, Match: "token: abc"},
		},
		{
			name:     "lowercase drive letter",
			line:     `d:\x.txt:2:k`,
			platform: windows,
			want:     RawHit{Path: `d:\x.txt`, Line: 2, Match: "k"},
		},
		{
			name:     "relative path on windows is not a drive",
			line:     `repo\app.py:4:secret`,
			platform: windows,
			want:     RawHit{Path: `repo\app.py`, Line: 4, Match: "secret"},
		},
		{
			name:     "colon in file name",
			line:     "/scan/a:b.txt:3:secret",
			platform: linux,
			want:     RawHit{Path: "/scan/a:b.txt", Line: 3, Match: "secret"},
		},
		{
			name:     "colons in file name and match",
			line:     "/scan/x:y:z.env:12:token: a:b",
			platform: linux,
			want:     RawHit{Path: "/scan/x:y:z.env", Line: 12, Match: "token: a:b"},
		},
		{
			name:     "drive-like prefix is part of a posix name",
			line:     `C:\repo\app.py:4:x`,
			platform: linux,
			want:     RawHit{Path: `C:\repo\app.py`, Line: 4, Match: "x"},
		},
		{
			name:     "drive letter named with digits on windows",
			line:     `C:\2024:7:k`,
			platform: windows,
			want:     RawHit{Path: `C:\2024`, Line: 7, Match: "k"},
		},
		{name: "blank line ends output", line: "", platform: linux, wantErr: ErrEndOfOutput},
		{name: "whitespace line ends output", line: "  \r", platform: linux, wantErr: ErrEndOfOutput},
		{name: "single field", line: "grep: warning", platform: linux, wantErr: ErrMalformedHit},
		{name: "no colon", line: "Binary file matches", platform: linux, wantErr: ErrMalformedHit},
		{name: "non numeric line", line: "/a:b:c", platform: linux, wantErr: ErrMalformedHit},
		{name: "zero line", line: "/a:0:c", platform: linux, wantErr: ErrMalformedHit},
		{name: "signed line", line: "/a:+3:c", platform: linux, wantErr: ErrMalformedHit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseContentHit(tt.line, tt.platform)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePathHit(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		platform search.Platform
		want     string
		wantErr  error
	}{
		{name: "plain", line: "/src/keys/a.pem", platform: linux, want: "/src/keys/a.pem"},
		{name: "drive letter", line: `C:\keys\a.pem`, platform: windows, want: `C:\keys\a.pem`},
		{name: "many colons kept whole", line: "/src/a:b:c.key", platform: linux, want: "/src/a:b:c.key"},
		{name: "empty line ends output", line: "", platform: linux, wantErr: ErrEndOfOutput},
		{name: "empty first field ends output", line: ":rest", platform: linux, wantErr: ErrEndOfOutput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePathHit(tt.line, tt.platform)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve(t *testing.T) {
	root := t.TempDir()

	rel, err := Resolve(root, filepath.Join(root, "a", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("a", "b.txt"), rel)

	rel, err = Resolve(root, root)
	require.NoError(t, err)
	assert.Equal(t, ".", rel)

	rel, err = Resolve(root, filepath.Join(root, "..a", "x"))
	require.NoError(t, err, "a sibling-looking name inside the root is fine")
	assert.Equal(t, filepath.Join("..a", "x"), rel)

	_, err = Resolve(root, filepath.Join(filepath.Dir(root), "elsewhere.txt"))
	assert.ErrorIs(t, err, ErrOutsideRoot)

	_, err = Resolve(root, filepath.Dir(root))
	assert.ErrorIs(t, err, ErrOutsideRoot)
}

func TestResolveRelativeToWorkingDir(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)

	rel, err := Resolve("testdata", filepath.Join("testdata", "x.txt"))
	require.NoError(t, err)
	assert.Equal(t, "x.txt", rel)

	rel, err = Resolve(filepath.Join(wd, "testdata"), filepath.Join("testdata", "x.txt"))
	require.NoError(t, err)
	assert.Equal(t, "x.txt", rel)
}

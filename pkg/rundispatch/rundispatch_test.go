package rundispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandFor_KnownExtensions(t *testing.T) {
	cases := map[string]string{
		"main.js":      "node main.js",
		"script.py":    "python script.py",
		"Main.java":    "javac Main.java && java Main",
		"prog.cpp":     "g++ prog.cpp -o prog && ./prog",
		"prog.c":       "gcc prog.c -o prog && ./prog",
		"main.go":      "go run main.go",
		"prog.rs":      "rustc prog.rs && ./prog",
		"index.php":    "php index.php",
		"script.rb":    "ruby script.rb",
		"deploy.sh":    "bash deploy.sh",
		"install.ps1":  "powershell install.ps1",
	}
	for path, want := range cases {
		got, err := CommandFor(path)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestCommandFor_UnknownExtension(t *testing.T) {
	_, err := CommandFor("notes.rs2")
	assert.ErrorIs(t, err, ErrUnknownExtension)
}

func TestCommandFor_NestedPath(t *testing.T) {
	got, err := CommandFor("src/Main.java")
	require.NoError(t, err)
	assert.Equal(t, "javac src/Main.java && java Main", got)
}

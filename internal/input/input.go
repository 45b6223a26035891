// Package input expands command arguments that name their content indirectly:
// "-" reads stdin and "@path" reads a file.
package input

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// IsIndirect reports whether arg uses the - or @file syntax.
func IsIndirect(arg string) bool {
	return arg == "-" || (strings.HasPrefix(arg, "@") && len(arg) > 1)
}

// ExpandText joins args into entry text. A single "-" reads all of stdin and
// a single "@path" reads the named file; anything else is joined with spaces.
func ExpandText(args []string, stdin io.Reader) (string, error) {
	if len(args) != 1 || !IsIndirect(args[0]) {
		return strings.Join(args, " "), nil
	}
	if args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	path := strings.TrimPrefix(args[0], "@")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

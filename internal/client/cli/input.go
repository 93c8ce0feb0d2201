package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Terminal access, replaceable in tests.
var (
	isTerminal   = term.IsTerminal
	readPassword = term.ReadPassword
)

// promptPassword reads a password without echo when in is a terminal, and a single
// line otherwise.
func promptPassword(in io.Reader, out io.Writer) (string, error) {
	if _, err := fmt.Fprint(out, "Password: "); err != nil {
		return "", err
	}

	if file, ok := in.(*os.File); ok && isTerminal(int(file.Fd())) {
		password, err := readPassword(int(file.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("in internal/client/cli/input.go/promptPassword(): error while `readPassword()` calling: %w", err)
		}

		return string(password), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("in internal/client/cli/input.go/promptPassword(): error while reading the password: %w", err)
	}

	return strings.TrimRight(line, "\r\n"), nil
}

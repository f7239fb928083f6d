package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"savekeep/internal/app"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// PassphraseEnv supplies the seal passphrase without a prompt.
const PassphraseEnv = "SAVEKEEP_PASSPHRASE"

var errNotInteractive = errors.New("stdin is not a terminal; pass --yes to skip confirmation")

// stdinTerminal returns the file descriptor of the command's input when it is
// an interactive terminal.
func stdinTerminal(cmd *cobra.Command) (int, bool) {
	f, ok := cmd.InOrStdin().(*os.File)
	if !ok {
		return 0, false
	}
	fd := int(f.Fd())
	return fd, term.IsTerminal(fd)
}

// confirm asks a yes/no question on the command's input. Input that is
// os.Stdin must be a terminal; any other reader is read as typed answers.
func confirm(cmd *cobra.Command, question string) (bool, error) {
	in := cmd.InOrStdin()
	if _, ok := in.(*os.File); ok {
		if _, tty := stdinTerminal(cmd); !tty {
			return false, errNotInteractive
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N] ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("reading answer: %w", err)
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

// readPassphrase reads one passphrase without echo.
func readPassphrase(cmd *cobra.Command, prompt string) (string, error) {
	if pass := os.Getenv(PassphraseEnv); pass != "" {
		return pass, nil
	}

	fd, tty := stdinTerminal(cmd)
	if !tty {
		return "", fmt.Errorf("no terminal to read the passphrase from; set %s", PassphraseEnv)
	}

	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	pass, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(pass), nil
}

// passphrasePrompt returns the unlock callback for sealed restores. It is
// only called when the backup is sealed.
func passphrasePrompt(cmd *cobra.Command) app.PassphraseFunc {
	return func() (string, error) {
		return readPassphrase(cmd, "Seal passphrase: ")
	}
}

// newPassphrase asks for a new passphrase twice.
func newPassphrase(cmd *cobra.Command) (string, error) {
	if pass := os.Getenv(PassphraseEnv); pass != "" {
		return pass, nil
	}

	pass, err := readPassphrase(cmd, "New seal passphrase: ")
	if err != nil {
		return "", err
	}
	again, err := readPassphrase(cmd, "Repeat passphrase: ")
	if err != nil {
		return "", err
	}
	if pass != again {
		return "", errors.New("passphrases do not match")
	}
	return pass, nil
}

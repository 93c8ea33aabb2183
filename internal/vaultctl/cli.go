// Package vaultctl implements the local command-line companion: password
// generation and scoring without a running server, and key material
// generation for deployment.
package vaultctl

import (
	"encoding/base64"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/dmitrijs2005/passvault/internal/cryptox"
	"github.com/dmitrijs2005/passvault/internal/passgen"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = func() ([]byte, error) {
	return term.ReadPassword(int(os.Stdin.Fd()))
}

// App runs one subcommand and writes results to Out.
type App struct {
	Out io.Writer
}

func NewApp() *App {
	return &App{Out: os.Stdout}
}

// Run dispatches the subcommand. args is os.Args[1:].
func (a *App) Run(args []string) error {
	if len(args) == 0 {
		a.usage()
		return fmt.Errorf("missing command")
	}

	switch args[0] {
	case "generate":
		return a.runGenerate(args[1:])
	case "score":
		return a.runScore()
	case "newkey":
		return a.runNewKey()
	default:
		a.usage()
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func (a *App) usage() {
	fmt.Fprintln(a.Out, "usage: vaultctl <command>")
	fmt.Fprintln(a.Out, "")
	fmt.Fprintln(a.Out, "commands:")
	fmt.Fprintln(a.Out, "  generate   generate a random password and print its strength")
	fmt.Fprintln(a.Out, "  score      read a password from the terminal and print its strength")
	fmt.Fprintln(a.Out, "  newkey     generate a base64 encryption key for the server config")
}

func (a *App) runGenerate(args []string) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	opts := passgen.DefaultOptions()

	fs.IntVar(&opts.Length, "n", opts.Length, "password length")
	noUpper := fs.Bool("no-upper", false, "exclude uppercase letters")
	noLower := fs.Bool("no-lower", false, "exclude lowercase letters")
	noDigits := fs.Bool("no-digits", false, "exclude digits")
	noSymbols := fs.Bool("no-symbols", false, "exclude symbols")
	fs.BoolVar(&opts.ExcludeAmbiguous, "x", false, "exclude ambiguous characters (O0l1I|)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	opts.Upper = !*noUpper
	opts.Lower = !*noLower
	opts.Digits = !*noDigits
	opts.Symbols = !*noSymbols

	password, err := passgen.Generate(opts)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.Out, password)
	a.printStrength(passgen.Score(password))
	return nil
}

func (a *App) runScore() error {
	fmt.Fprint(a.Out, "Enter password: ")
	pw, err := readPassword()
	fmt.Fprintln(a.Out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	a.printStrength(passgen.Score(string(pw)))
	return nil
}

// runNewKey prints fresh key material for a server deployment: the
// base64 AES key for encryption_key and a hex secret for secret_key.
func (a *App) runNewKey() error {
	key := common.GenerateRandByteArray(cryptox.VaultKeySize)
	defer common.WipeByteArray(key)

	signing, err := common.MakeRandHexString(32)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.Out, "encryption_key: %s\n", base64.StdEncoding.EncodeToString(key))
	fmt.Fprintf(a.Out, "secret_key: %s\n", signing)
	return nil
}

func (a *App) printStrength(strength passgen.Strength) {
	verdict := "weak"
	if strength.IsStrong {
		verdict = "strong"
	}
	fmt.Fprintf(a.Out, "score: %d/100 (%s)\n", strength.Score, verdict)
	if len(strength.Suggestions) > 0 {
		fmt.Fprintf(a.Out, "suggestions:\n  - %s\n", strings.Join(strength.Suggestions, "\n  - "))
	}
}

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/obentoo/aptaudit/internal/common/credentials"
	"github.com/obentoo/aptaudit/internal/common/logger"
	"github.com/obentoo/aptaudit/internal/common/output"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage backend credentials in the OS keyring",
	Long: `Store, inspect and remove API keys in the OS keyring.

A key given on the command line or in the environment always wins over the
keyring. Accepted names: ` + strings.Join(credentials.Providers(), ", ") + `.`,
}

var authSetCmd = &cobra.Command{
	Use:       "set <provider>",
	Short:     "Store a secret for a provider",
	Long:      `Read a secret from the terminal (without echo) or from standard input and store it in the keyring.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: credentials.Providers(),
	Run:       runAuthSet,
}

var authDeleteCmd = &cobra.Command{
	Use:       "delete <provider>",
	Short:     "Remove the stored secret for a provider",
	Args:      cobra.ExactArgs(1),
	ValidArgs: credentials.Providers(),
	Run:       runAuthDelete,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show where each secret would be read from",
	Args:  cobra.NoArgs,
	Run:   runAuthStatus,
}

func init() {
	authCmd.AddCommand(authSetCmd, authDeleteCmd, authStatusCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthSet(cmd *cobra.Command, args []string) {
	provider := args[0]

	secret, err := readSecret(os.Stdin, fmt.Sprintf("%s secret: ", provider))
	if err != nil {
		logger.Error("reading secret: %v", err)
		os.Exit(1)
	}

	if err := credentials.Set(provider, secret); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}

	output.PrintSuccess("Stored %s secret in the keyring", provider)
}

func runAuthDelete(cmd *cobra.Command, args []string) {
	if err := credentials.Delete(args[0]); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
	output.PrintSuccess("Removed %s secret from the keyring", args[0])
}

func runAuthStatus(cmd *cobra.Command, args []string) {
	for _, provider := range credentials.Providers() {
		_, source := credentials.Resolve(provider, "", "")
		if source == credentials.SourceNone {
			fmt.Printf("%-8s %s\n", provider, output.Sprint(output.Dim, "not set"))
			continue
		}
		fmt.Printf("%-8s %s\n", provider, output.Sprint(output.Success, string(source)))
	}
}

// readSecret prompts without echo on a terminal and reads one line otherwise
func readSecret(in *os.File, prompt string) (string, error) {
	fd := int(in.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, prompt)
		data, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(data)), nil
	}
	return readLine(in)
}

// readLine returns the first line of r without its line ending
func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

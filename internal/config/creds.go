package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// PromptMissingCredentials interactively fills in any credential not
// supplied via flags. The password is read with echo disabled when stdin
// is a terminal.
func PromptMissingCredentials(cfg *Config) error {
	if cfg.Username == "" {
		fmt.Print("Enter your username: ")
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("read username: %w", err)
		}
		cfg.Username = strings.TrimSpace(line)
	}

	if cfg.Password == "" {
		fmt.Print("Enter your password: ")
		fd := int(os.Stdin.Fd())
		if term.IsTerminal(fd) {
			raw, err := term.ReadPassword(fd)
			fmt.Println()
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			cfg.Password = strings.TrimSpace(string(raw))
		} else {
			reader := bufio.NewReader(os.Stdin)
			line, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			cfg.Password = strings.TrimSpace(line)
		}
	}

	if cfg.Username == "" || cfg.Password == "" {
		return fmt.Errorf("username and password are required")
	}
	return nil
}

package main

import (
	"bufio"
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"imagestream/internal/database"

	"golang.org/x/term"
)

const (
	// Default timeout for database operations
	defaultTimeout = 30 * time.Second
	// Default database directory path
	defaultDatabaseDir = "/database"
	// Random bytes in a generated key, hex encoded on output
	generatedKeyBytes = 24
)

// keyStore is the part of the database the commands use.
type keyStore interface {
	HasAPIKey(ctx context.Context) bool
	SetAPIKey(ctx context.Context, key string) error
	ClearAPIKey(ctx context.Context) error
}

// secretReader prompts for a secret and returns it without the line ending.
type secretReader func(prompt string) ([]byte, error)

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(1)
	}

	command := os.Args[1]

	// Create a context that cancels on interrupt signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, shutting down...")
		cancel()
	}()

	dbPath := databasePath(os.Getenv("DATABASE_DIR"))

	db, err := database.New(ctx, dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to connect to database: %v\n", err)
		fmt.Fprintf(os.Stderr, "Make sure DATABASE_DIR is set correctly (current: %s)\n", filepath.Dir(dbPath))
		os.Exit(1)
	}

	ok := true
	switch command {
	case "set":
		ok = setKey(ctx, db, stdinSecretReader(os.Stdin, os.Stdout), os.Stdout, os.Stderr)
	case "generate":
		ok = generateKey(ctx, db, os.Stdout, os.Stderr)
	case "status":
		showStatus(ctx, db, os.Stdout)
	case "clear":
		ok = clearKey(ctx, db, os.Stdout, os.Stderr)
	default:
		sanitized := sanitizeCommand(command)
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", sanitized) //nolint:gosec // G705 - only [a-zA-Z0-9_-] characters pass sanitizeCommand
		printUsage(os.Stdout)
		ok = false
	}

	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
	}
	if !ok {
		os.Exit(1)
	}
}

func databasePath(dir string) string {
	if dir == "" {
		dir = defaultDatabaseDir
	}
	return filepath.Join(dir, "imagestream.db")
}

// sanitizeCommand returns a safe representation of a command string for display.
// Any character that is not alphanumeric, a hyphen, or an underscore becomes '_'.
func sanitizeCommand(cmd string) string {
	var b strings.Builder
	b.Grow(len(cmd))
	for _, r := range cmd {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "imagestream API Key Management")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage: apikey <command>")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  set       - Set the API key (prompted, or read from stdin)")
	fmt.Fprintln(w, "  generate  - Generate a random API key and print it once")
	fmt.Fprintln(w, "  status    - Check if an API key is configured")
	fmt.Fprintln(w, "  clear     - Remove the API key and disable authentication")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintf(w, "  DATABASE_DIR - Path to database directory (default: %s)\n", defaultDatabaseDir)
}

// stdinSecretReader reads without echo from a terminal, and line by line
// when input is piped.
func stdinSecretReader(in *os.File, prompts io.Writer) secretReader {
	fd := int(in.Fd()) //nolint:gosec // file descriptors fit in int
	if term.IsTerminal(fd) {
		return func(prompt string) ([]byte, error) {
			fmt.Fprint(prompts, prompt)
			secret, err := term.ReadPassword(fd)
			fmt.Fprintln(prompts)
			return secret, err
		}
	}
	return lineSecretReader(in)
}

func lineSecretReader(r io.Reader) secretReader {
	br := bufio.NewReader(r)
	return func(string) ([]byte, error) {
		line, err := br.ReadBytes('\n')
		if err != nil && (!errors.Is(err, io.EOF) || len(line) == 0) {
			return nil, err
		}
		return bytes.TrimRight(line, "\r\n"), nil
	}
}

func setKey(ctx context.Context, db keyStore, read secretReader, out, errOut io.Writer) bool {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	key, err := read("New API Key: ")
	if err != nil {
		fmt.Fprintf(errOut, "Error reading API key: %v\n", err)
		return false
	}

	confirm, err := read("Confirm API Key: ")
	if err != nil {
		fmt.Fprintf(errOut, "Error reading API key: %v\n", err)
		return false
	}

	if !bytes.Equal(key, confirm) {
		fmt.Fprintln(errOut, "Error: API keys do not match")
		return false
	}

	if len(key) < database.MinAPIKeyLength {
		fmt.Fprintf(errOut, "Error: API key must be at least %d characters\n", database.MinAPIKeyLength)
		return false
	}

	replacing := db.HasAPIKey(ctx)
	if err := db.SetAPIKey(ctx, string(key)); err != nil {
		fmt.Fprintf(errOut, "Error: Failed to store API key: %v\n", err)
		return false
	}

	if replacing {
		fmt.Fprintln(out, "API key replaced. Restart the server so it stops accepting the previous key.")
	} else {
		fmt.Fprintln(out, "API key set. Authentication is now required.")
	}
	return true
}

func generateKey(ctx context.Context, db keyStore, out, errOut io.Writer) bool {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	buf := make([]byte, generatedKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		fmt.Fprintf(errOut, "Error: Failed to generate API key: %v\n", err)
		return false
	}
	key := hex.EncodeToString(buf)

	if err := db.SetAPIKey(ctx, key); err != nil {
		fmt.Fprintf(errOut, "Error: Failed to store API key: %v\n", err)
		return false
	}

	fmt.Fprintln(out, key)
	return true
}

func showStatus(ctx context.Context, db keyStore, out io.Writer) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if db.HasAPIKey(ctx) {
		fmt.Fprintln(out, "Status: API key is configured (authentication required)")
	} else {
		fmt.Fprintln(out, "Status: No API key configured (authentication disabled)")
	}
}

func clearKey(ctx context.Context, db keyStore, out, errOut io.Writer) bool {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if !db.HasAPIKey(ctx) {
		fmt.Fprintln(out, "No API key configured. Nothing to clear.")
		return true
	}

	if err := db.ClearAPIKey(ctx); err != nil {
		fmt.Fprintf(errOut, "Error: Failed to clear API key: %v\n", err)
		return false
	}

	fmt.Fprintln(out, "API key cleared. Authentication is now disabled.")
	return true
}

package main

import (
	"bufio"
	"chat-desk/auth"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Prints an argon2id hash usable as OPERATOR_SECRET.
// The secret is read from the first argument, or from the first line of stdin.
func main() {
	secret, err := readSecret()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Read secret: %v\n", err)
		os.Exit(2)
	}
	if secret == "" {
		fmt.Fprintln(os.Stderr, "Usage: hashsecret <secret> (or pipe it on stdin)")
		os.Exit(2)
	}
	hash, err := auth.HashSecret(secret)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Hash secret: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(hash)
}

func readSecret() (string, error) {
	if len(os.Args) > 1 {
		return os.Args[1], nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rendis/credgate/internal/envelope"
)

// runKeygen creates the master key file. It refuses to overwrite an existing
// key: rotation invalidates every envelope sealed so far, so it has to be an
// explicit manual step.
func runKeygen(args []string) {
	fs := flag.NewFlagSet("keygen", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	path := keyPath()
	if _, err := envelope.GenerateKey(path); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Master key written to %s\n", path)
}

// runEncrypt seals a value into an envelope. The value comes from the first
// argument or, when omitted, from stdin so it never lands in shell history.
func runEncrypt(args []string) {
	fs := flag.NewFlagSet("encrypt", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	value, err := argOrStdin(fs.Args(), "value")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	env, err := envelope.NewKeychain(keyPath()).Seal(value)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(env)
}

// runDecrypt opens an envelope. Local use only; the MCP surface deliberately
// has no decrypt tool.
func runDecrypt(args []string) {
	fs := flag.NewFlagSet("decrypt", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	env, err := argOrStdin(fs.Args(), "envelope")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	value, err := envelope.NewKeychain(keyPath()).Open(env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(value)
}

// argOrStdin returns the first positional argument, or one line from stdin
// when no argument was given.
func argOrStdin(args []string, what string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("cannot read %s from stdin: %w", what, err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", fmt.Errorf("no %s given", what)
	}
	return line, nil
}

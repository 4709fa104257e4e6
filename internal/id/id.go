// Package id generates short unique identifiers for export batches.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// batchAlphabet keeps batch IDs lowercase so they read well inside filenames.
const batchAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// Generate creates a prefixed unique ID using NanoID
// (e.g. "batch-k8rz04x1mq").
func Generate(prefix string) (string, error) {
	id, err := gonanoid.Generate(batchAlphabet, 10)
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics if ID generation fails. Only for
// use at startup, where missing entropy should crash the program.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}

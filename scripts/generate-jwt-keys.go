package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"strings"
)

// Generates the ECDSA P-256 keypair the API signs session JWTs with.
// The blind-signing and envelope keypairs are not handled here: the
// server generates those itself on first boot and keeps them in the
// service_keys table.
func main() {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to generate key: %v\n", err)
		os.Exit(1)
	}

	privateKeyBytes, err := x509.MarshalECPrivateKey(privateKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to marshal private key: %v\n", err)
		os.Exit(1)
	}
	privateKeyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "EC PRIVATE KEY",
		Bytes: privateKeyBytes,
	})

	if err := os.WriteFile("jwt-private-key.pem", privateKeyPEM, 0o600); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write private key file: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Generated ECDSA P-256 key pair for JWT signing.")
	fmt.Println("Private key saved to: jwt-private-key.pem")
	fmt.Println()
	fmt.Println("Set it in .env either as a single line:")
	fmt.Printf("JWT_SECRET=%s\n", strings.ReplaceAll(string(privateKeyPEM), "\n", "\\n"))
	fmt.Println()
	fmt.Println("or from the file:")
	fmt.Println("JWT_SECRET=$(cat jwt-private-key.pem)")
}

package main

import (
	"encoding/base64"
	"fmt"
	"log"

	"nullchat/crypto/dh25519"
	"nullchat/crypto/key_ed25519"
)

// Prints a fresh identity key pair and a fresh session key pair, base64
// encoded the way they are stored and shared.
func main() {
	identity, err := key_ed25519.NewPair()
	if err != nil {
		log.Fatalf("Failed to generate identity key: %v", err)
	}
	session, err := dh25519.NewPair()
	if err != nil {
		log.Fatalf("Failed to generate session key: %v", err)
	}
	defer session.Wipe()

	fmt.Printf("IDENTITY PRIVATE: %s\n", base64.StdEncoding.EncodeToString(identity.Priv))
	fmt.Printf("IDENTITY PUBLIC:  %s\n", base64.StdEncoding.EncodeToString(identity.Pub))
	fmt.Printf("SESSION PRIVATE:  %s\n", base64.StdEncoding.EncodeToString(session.Priv[:]))
	fmt.Printf("SESSION PUBLIC:   %s\n", session.Pub)
}

// Package commands implements the nullchat command line: pairing by QR code
// (share, scan), fingerprint confirmation, the chat window and identity
// management.
package commands

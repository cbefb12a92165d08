package identity

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

var (
	adjectives = []string{
		"Quiet", "Amber", "Null", "Swift", "Bright", "Silent", "Blue", "Red", "Green", "Dark",
		"Light", "Misty", "Neon", "Solar", "Lunar", "Cosmic", "Vivid", "Pale", "Hidden", "Lost",
		"Wild", "Calm", "Brave", "Wise", "Cool", "Warm", "Icy", "Fiery", "Rapid", "Slow",
	}
	nouns = []string{
		"River", "Fox", "Echo", "Hawk", "Wolf", "Bear", "Sky", "Moon", "Sun", "Star",
		"Nebula", "Comet", "Orbit", "Signal", "Wave", "Pulse", "Shadow", "Spark", "Cloud", "Storm",
		"Mountain", "Valley", "Ocean", "Forest", "Desert", "Glacier", "Canyon", "Reef", "Island", "Peak",
	}
)

const maxNameNumber = 1000

// NewDisplayName returns a cosmetic Adjective+Noun-n name, n in [0, 999].
func NewDisplayName() (string, error) {
	adj, err := randIndex(len(adjectives))
	if err != nil {
		return "", err
	}
	noun, err := randIndex(len(nouns))
	if err != nil {
		return "", err
	}
	n, err := randIndex(maxNameNumber)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%s-%d", adjectives[adj], nouns[noun], n), nil
}

func randIndex(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}

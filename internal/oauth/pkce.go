package oauth

import "golang.org/x/oauth2"

// pkcePair is a per-request PKCE verifier and its S256 challenge.
type pkcePair struct {
	Verifier  string
	Challenge string
}

func newPKCE() pkcePair {
	v := oauth2.GenerateVerifier()
	return pkcePair{Verifier: v, Challenge: oauth2.S256ChallengeFromVerifier(v)}
}

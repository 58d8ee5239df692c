//go:build insecurewebhook

package server

// verifySignature accepts every payload. Compiled in only under the
// insecurewebhook build tag for local development against replayed
// payloads; release builds always verify.
func verifySignature(appSecret string, body []byte, header string) bool {
	return true
}

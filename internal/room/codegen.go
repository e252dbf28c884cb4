package room

import "math/rand"

// codeAlphabet is the fixed alphabet room codes are drawn from.
const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// DefaultCodeLength is the number of characters in a generated room code.
const DefaultCodeLength = 4

// maxCodeAttempts bounds the collision-retry loop in Create. With four
// letters over a small room table collisions are rare; hitting this budget
// means the keyspace is close to saturated.
const maxCodeAttempts = 100

// CodeSource produces a candidate room code of the given length. The store
// retries the source until the candidate does not collide with a live room.
type CodeSource func(length int) string

// randomCode draws length characters independently and uniformly from the
// uppercase alphabet. Codes are not secrets, so math/rand is enough.
func randomCode(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
	}
	return string(b)
}

package expediente

// jades.go performs a structural pre-check on a step's detached signature
// before it is sent to the validation oracle. No key verification happens
// here - the point is to distinguish "not signed" and "not even a signature"
// from "cryptographically invalid" (which only the oracle can decide), and
// to surface the signing key id for logging.

import (
	"encoding/base64"

	"github.com/lestrrat-go/jwx/v3/jws"
)

// SignatureInfo describes the structure of a detached JAdES token.
type SignatureInfo struct {

	// KeyID is the kid protected header of the first signature, if present.
	KeyID string

	// Algorithm is the alg protected header of the first signature.
	Algorithm string

	// SignatureCount is the number of signatures in the token.
	SignatureCount int
}

// InspectSignature base64-decodes and parses a tramite's firma as a JWS
// token. A parse failure means the value is not a usable signature at all.
func InspectSignature(firmaB64 string) (*SignatureInfo, error) {
	if firmaB64 == "" {
		return nil, NewSignatureError("signature is empty")
	}

	token, err := base64.StdEncoding.DecodeString(firmaB64)
	if err != nil {
		return nil, WrapSignatureError(err, "signature is not valid base64")
	}

	msg, err := jws.Parse(token)
	if err != nil {
		return nil, WrapSignatureError(err, "signature is not a parsable JWS token")
	}

	sigs := msg.Signatures()
	if len(sigs) == 0 {
		return nil, NewSignatureError("signature token contains no signatures")
	}

	info := &SignatureInfo{SignatureCount: len(sigs)}
	if kid, ok := sigs[0].ProtectedHeaders().KeyID(); ok {
		info.KeyID = kid
	}
	if alg, ok := sigs[0].ProtectedHeaders().Algorithm(); ok {
		info.Algorithm = alg.String()
	}
	return info, nil
}

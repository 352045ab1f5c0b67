package ir

// Delimiters wrapped around a digest before it is signed. A signature over the
// wrapped form can never double as a signature over raw extrinsic bytes on
// either ledger.
const (
	BindingOpen  = "<Bytes>"
	BindingClose = "</Bytes>"
)

// SigningPayload returns BindingOpen || d || BindingClose.
//
// The delimiters have fixed length and d is fixed-size, so distinct digests
// always produce distinct payloads.
func SigningPayload(d Digest) []byte {
	out := make([]byte, 0, len(BindingOpen)+DigestSize+len(BindingClose))
	out = append(out, BindingOpen...)
	out = append(out, d[:]...)
	out = append(out, BindingClose...)
	return out
}

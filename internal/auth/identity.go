package auth

import "strings"

// Identity is the verified caller extracted from a bearer token.
//
// Token carries the original signed string because calls to the permission
// and validator services are authenticated by forwarding the caller's own
// token — those services apply their own policy to the same subject.
type Identity struct {
	Subject string
	Token   string
}

// StorageKey canonicalizes an external subject into a storage-safe key.
//
// Federated subjects contain a provider separator ("auth0|64f1ab..."), and the
// asset store's default test double rejects keys containing '|'. Every place
// that turns an identity into a blob key or job payload must go through this
// function rather than stripping characters ad hoc.
func StorageKey(subject string) string {
	return strings.ReplaceAll(subject, "|", "")
}

// Package protect flags repository paths whose changes should never be
// decided autonomously. A protected path forces a decision up to the
// human-gated tier regardless of how the decision text classifies.
package protect

// DefaultPatterns are glob patterns for protected areas.
var DefaultPatterns = []string{
	"**/auth/**",
	"**/security/**",
	"**/migrations/**",
	"**/infra/**",
	"**/secrets/**",
	"**/credentials/**",
	"**/certs/**",
	"**/keys/**",
	"**/.ssh/**",
	"**/terraform/**",
	"**/helm/**",
	"**/k8s/**",
	"**/kubernetes/**",
}

// DefaultKeywords are path substrings that indicate protected files.
var DefaultKeywords = []string{
	"auth",
	"login",
	"password",
	"token",
	"secret",
	"credential",
	"cert",
	"encrypt",
	"decrypt",
	"oauth",
	"jwt",
	"permission",
	"rbac",
	"migration",
}

// DefaultFileTypes are file extensions that are always protected.
var DefaultFileTypes = []string{
	".sql",
	".tf",
	".pem",
	".key",
	".env",
	".p12",
	".pfx",
	".jks",
	".keystore",
	".crt",
	".cer",
}

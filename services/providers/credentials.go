package providers

import "fmt"

// Credential names the secret a provider family needs.
type Credential string

const (
	CredentialHuggingFace Credential = "huggingface"
	CredentialAnthropic   Credential = "anthropic"
	CredentialCohere      Credential = "cohere"
	CredentialGemini      Credential = "gemini"
)

// AllCredentials lists every credential class in display order.
var AllCredentials = []Credential{
	CredentialHuggingFace,
	CredentialAnthropic,
	CredentialCohere,
	CredentialGemini,
}

// Label is the vendor name used in user-facing messages.
func (c Credential) Label() string {
	switch c {
	case CredentialHuggingFace:
		return "Hugging Face"
	case CredentialAnthropic:
		return "Anthropic"
	case CredentialCohere:
		return "Cohere"
	case CredentialGemini:
		return "Gemini"
	default:
		return string(c)
	}
}

// NotConfiguredMessage is returned by an adapter invoked without its key.
func (c Credential) NotConfiguredMessage() string {
	return fmt.Sprintf("Error: %s API key is not configured. Please set up your API key in the .env file.", c.Label())
}

// RequiresMessage is the aggregator's precondition error for a skipped provider.
func (c Credential) RequiresMessage(provider string) string {
	return fmt.Sprintf("%s requires %s API key", provider, c.Label())
}

// Credentials maps each class to its configured secret.
type Credentials map[Credential]string

// Has reports whether the credential is configured.
func (c Credentials) Has(cred Credential) bool {
	return c[cred] != ""
}

// KeyStatus describes one credential without exposing it.
type KeyStatus struct {
	Present       bool    `json:"present"`
	KeyStartsWith *string `json:"key_starts_with"`
}

// Status reports presence and a short prefix for every known credential.
func (c Credentials) Status() map[Credential]KeyStatus {
	out := make(map[Credential]KeyStatus, len(AllCredentials))
	for _, cred := range AllCredentials {
		key := c[cred]
		status := KeyStatus{Present: key != ""}
		if key != "" {
			prefix := key
			if len(prefix) > 4 {
				prefix = prefix[:4]
			}
			prefix += "..."
			status.KeyStartsWith = &prefix
		}
		out[cred] = status
	}
	return out
}

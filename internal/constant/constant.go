// Package constant defines provider name constants used throughout the jaaz
// client core. These constants identify the configured model providers and
// the login flows, ensuring consistent naming across the application.
package constant

const (
	// Jaaz represents the hosted jaaz provider identifier. Its credential is
	// synchronized with the logged-in user's token.
	Jaaz = "jaaz"

	// OpenAI represents the OpenAI provider identifier.
	OpenAI = "openai"

	// Ollama represents the local Ollama provider identifier.
	Ollama = "ollama"

	// ComfyUI represents the local ComfyUI provider identifier.
	ComfyUI = "comfyui"

	// ProviderPrimary identifies sessions created by the jaaz username/password login.
	ProviderPrimary = "jaaz"

	// ProviderND99U identifies sessions created through the 99u SSO exchange.
	ProviderND99U = "99u"
)

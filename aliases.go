package chorus

import (
	"sort"
	"strings"
)

// Canonical provider identifiers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderXAI       = "xai"
)

// providerAliases maps every accepted spelling to its canonical provider.
// Lookup is case-insensitive; canonical names map to themselves.
var providerAliases = map[string]string{
	"chatgpt":   ProviderOpenAI,
	"gpt4":      ProviderOpenAI,
	"openai":    ProviderOpenAI,
	"claude":    ProviderAnthropic,
	"anthropic": ProviderAnthropic,
	"gemini":    ProviderGemini,
	"google":    ProviderGemini,
	"grok":      ProviderXAI,
	"xai":       ProviderXAI,
}

// CanonicalProvider resolves a user-supplied provider name to its canonical
// identifier. Matching is case-insensitive and tolerates surrounding
// whitespace. Names of registered connectors resolve to themselves, so custom
// providers work without an alias table entry. Unrecognized names return an
// *UnknownProviderError wrapping ErrUnknownProvider.
func CanonicalProvider(name string) (string, error) {
	lower := strings.ToLower(strings.TrimSpace(name))
	if lower == "" {
		return "", &UnknownProviderError{Name: name, Known: KnownProviders()}
	}
	if IsProviderRegistered(lower) {
		return lower, nil
	}
	if canonical, ok := providerAliases[lower]; ok {
		return canonical, nil
	}
	return "", &UnknownProviderError{Name: name, Known: KnownProviders()}
}

// KnownProviders returns the sorted set of canonical provider names the
// alias table and the registry currently recognize.
func KnownProviders() []string {
	seen := make(map[string]bool)
	for _, canonical := range providerAliases {
		seen[canonical] = true
	}
	for _, name := range RegisteredProviders() {
		seen[name] = true
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Aliases returns a copy of every accepted provider spelling mapped to its
// canonical name, including runtime aliases defined on the client.
func (c *Client) Aliases() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string]string, len(providerAliases)+len(c.aliases))
	for alias, canonical := range providerAliases {
		result[alias] = canonical
	}
	for alias, canonical := range c.aliases {
		result[alias] = canonical
	}
	return result
}

// SetAlias adds or updates a provider alias at runtime.
// Aliases let callers use their own short names for providers:
//
//	client.SetAlias("fast", "gemini")
//	reply, _ := client.Ask(ctx, "fast", "Hello")
func (c *Client) SetAlias(alias, provider string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aliases[strings.ToLower(alias)] = provider
}

// GetAlias returns the provider name for a runtime alias.
// Returns the provider and true if found, empty string and false otherwise.
func (c *Client) GetAlias(alias string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	provider, ok := c.aliases[strings.ToLower(alias)]
	return provider, ok
}

// RemoveAlias removes a runtime alias.
func (c *Client) RemoveAlias(alias string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.aliases, strings.ToLower(alias))
}

// resolveProvider maps a user-supplied name through runtime aliases and the
// canonical alias table. Caller must not hold c.mu.
func (c *Client) resolveProvider(name string) (string, error) {
	c.mu.RLock()
	if target, ok := c.aliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		name = target
	}
	c.mu.RUnlock()
	return CanonicalProvider(name)
}

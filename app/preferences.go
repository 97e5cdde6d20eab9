package app

import (
	"sync"

	"github.com/talkwire/talkhttp/config"
	"github.com/talkwire/talkhttp/proxy"
)

// PreferencesProvider supplies the user's proxy preference.
type PreferencesProvider interface {
	ProxyServer() (proxy.Preference, error)
}

var _ PreferencesProvider = (*config.Config)(nil)

// StaticPreferences holds a preference in memory. Set replaces it; callers
// then Rebuild the Transport to apply the change.
type StaticPreferences struct {
	mu   sync.RWMutex
	pref proxy.Preference
}

// NewStaticPreferences creates a provider returning pref.
func NewStaticPreferences(pref proxy.Preference) *StaticPreferences {
	return &StaticPreferences{pref: pref}
}

// ProxyServer implements PreferencesProvider.
func (p *StaticPreferences) ProxyServer() (proxy.Preference, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.pref, nil
}

// Set replaces the stored preference.
func (p *StaticPreferences) Set(pref proxy.Preference) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pref = pref
}

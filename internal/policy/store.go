package policy

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/berkan-cetinkaya/recaptcha/internal/config"
)

// Policy is the resolved per-action configuration: which site key the
// widget renders with, and which config key holds the siteverify secret.
type Policy struct {
	SiteKey    string
	SecretKey  string
	Theme      string
	Appearance string
}

type rawPolicy struct {
	SiteKey    string `json:"site_key,omitempty"`
	SecretKey  string `json:"secret_key,omitempty"`
	Theme      string `json:"theme,omitempty"`
	Appearance string `json:"appearance,omitempty"`
}

type rawPolicyConfig struct {
	Global  rawPolicy            `json:"global"`
	Actions map[string]rawPolicy `json:"actions"`
}

type Store struct {
	global  Policy
	actions map[string]Policy
	mu      sync.RWMutex
}

var (
	policies      *Store
	policyPath    string
	policyModTime time.Time
	policyMu      sync.Mutex
)

// Current returns the latest policy store, reloading from disk when the file changes.
func Current() (*Store, error) {
	path, err := resolvePolicyPath()
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("could not stat captcha policy config: %w", err)
	}

	policyMu.Lock()
	defer policyMu.Unlock()

	if policies != nil && path == policyPath && info.ModTime().Equal(policyModTime) {
		return policies, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not open captcha policy config: %w", err)
	}

	store, err := parseAndBuild(data)
	if err != nil {
		return nil, err
	}

	policies = store
	policyPath = path
	policyModTime = info.ModTime()
	return policies, nil
}

func parseAndBuild(data []byte) (*Store, error) {
	var cfg rawPolicyConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("could not parse captcha policy config: %w", err)
	}
	if len(cfg.Actions) == 0 {
		return nil, fmt.Errorf("captcha policy requires at least one action")
	}

	base := Policy{
		SiteKey:    strings.TrimSpace(cfg.Global.SiteKey),
		SecretKey:  strings.TrimSpace(cfg.Global.SecretKey),
		Theme:      strings.TrimSpace(cfg.Global.Theme),
		Appearance: strings.TrimSpace(cfg.Global.Appearance),
	}
	actions := make(map[string]Policy, len(cfg.Actions))
	missingSiteKey := base.SiteKey == ""
	missingSecretKey := base.SecretKey == ""
	for name, raw := range cfg.Actions {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("captcha policy action name cannot be empty")
		}
		p := base
		if s := strings.TrimSpace(raw.SiteKey); s != "" {
			p.SiteKey = s
		} else if p.SiteKey == "" {
			missingSiteKey = true
		}
		if s := strings.TrimSpace(raw.SecretKey); s != "" {
			p.SecretKey = s
		} else if p.SecretKey == "" {
			missingSecretKey = true
		}
		if s := strings.TrimSpace(raw.Theme); s != "" {
			p.Theme = s
		}
		if s := strings.TrimSpace(raw.Appearance); s != "" {
			p.Appearance = s
		}
		actions[name] = p
	}
	if missingSiteKey {
		return nil, fmt.Errorf("captcha policy requires a site_key in global or for every action")
	}
	if missingSecretKey {
		return nil, fmt.Errorf("captcha policy requires a secret_key in global or for every action")
	}

	return &Store{
		global:  base,
		actions: actions,
	}, nil
}

func (ps *Store) PolicyFor(action string) (Policy, bool) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	if policy, ok := ps.actions[action]; ok {
		return policy, true
	}
	return ps.global, false
}

func resolvePolicyPath() (string, error) {
	val, err := config.Get("CAPTCHA_CONFIG")
	if err != nil {
		return "", fmt.Errorf("CAPTCHA_CONFIG must be set")
	}

	env := strings.TrimSpace(val)
	if env == "" {
		return "", fmt.Errorf("CAPTCHA_CONFIG must be set")
	}
	if _, err := os.Stat(env); err != nil {
		return "", fmt.Errorf("could not stat captcha policy config (%s): %w", env, err)
	}
	return env, nil
}

package recaptcha

import (
	"context"
	"fmt"
	"log"

	"github.com/berkan-cetinkaya/recaptcha/internal/policy"

	cfg "github.com/berkan-cetinkaya/recaptcha/internal/config"
)

// ActionMetadata represents the frontend-facing configuration for a policy action.
type ActionMetadata struct {
	Action     string
	SiteKey    string
	Theme      string
	Appearance string
}

type VerificationResult struct {
	Success    bool     `json:"success"`
	Status     string   `json:"status"`
	Message    string   `json:"message"`
	ErrorCodes []string `json:"error_codes,omitempty"`
}

type CaptchaService interface {
	Verify(ctx context.Context, token, ip, action string) VerificationResult
}

type captchaService struct {
	clientOpts []Option
}

// NewCaptchaService wires the policy store to siteverify clients. Extra
// options are applied to every client it builds, which lets tests point
// verification at a local server.
func NewCaptchaService(opts ...Option) CaptchaService {
	if _, err := policy.Current(); err != nil {
		panic(fmt.Sprintf("failed to load CAPTCHA config: %v", err))
	}
	return &captchaService{clientOpts: opts}
}

func (s *captchaService) Verify(ctx context.Context, token, ip, action string) VerificationResult {
	store, err := policy.Current()
	if err != nil {
		return VerificationResult{
			Success: false,
			Status:  "policy_error",
			Message: fmt.Sprintf("failed to load policy: %v", err),
		}
	}
	policyValue, ok := store.PolicyFor(action)
	if !ok {
		log.Printf("[captcha] no policy override for '%s' — using global policy\n", action)
	}

	client, err := s.clientFor(policyValue)
	if err != nil {
		return VerificationResult{
			Success: false,
			Status:  "config_error",
			Message: fmt.Sprintf("captcha secret error: %v", err),
		}
	}

	res, err := client.Verify(ctx, ip, token)
	if err != nil {
		return VerificationResult{
			Success: false,
			Status:  "verify_error",
			Message: fmt.Sprintf("verify error: %v", err),
		}
	}
	if !res.Success {
		if hasCode(res.ErrorCodes, CodeMissingInput) {
			return VerificationResult{
				Success:    false,
				Status:     "token_missing",
				Message:    "missing captcha token",
				ErrorCodes: res.ErrorCodes,
			}
		}
		return VerificationResult{
			Success:    false,
			Status:     "success_failed",
			Message:    "captcha provider marked challenge as failed",
			ErrorCodes: res.ErrorCodes,
		}
	}

	return VerificationResult{
		Success: true,
		Status:  "verified",
		Message: "captcha verification passed",
	}
}

func (s *captchaService) clientFor(p policy.Policy) (*Client, error) {
	secret, err := cfg.Get(p.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load secret '%s': %w", p.SecretKey, err)
	}
	return New(secret, s.clientOpts...)
}

func hasCode(codes []string, want string) bool {
	for _, code := range codes {
		if code == want {
			return true
		}
	}
	return false
}

// Metadata returns action metadata using a shared policy store without
// requiring a CaptchaService instance.
func Metadata(action string) (ActionMetadata, error) {
	store, err := policy.Current()
	if err != nil {
		return ActionMetadata{}, err
	}
	policyValue, _ := store.PolicyFor(action)
	return ActionMetadata{
		Action:     action,
		SiteKey:    policyValue.SiteKey,
		Theme:      policyValue.Theme,
		Appearance: policyValue.Appearance,
	}, nil
}

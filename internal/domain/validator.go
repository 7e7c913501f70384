package domain

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

type ConfigValidator struct{}

func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{}
}

// Normalize resolves every default of req and returns one RunOptions per target.
func (v *ConfigValidator) Normalize(req Request) ([]RunOptions, error) {
	if len(req.Targets) == 0 {
		return nil, errors.New("at least one target is required")
	}

	base, err := v.normalizeOptions(req)
	if err != nil {
		return nil, err
	}

	opts := make([]RunOptions, 0, len(req.Targets))
	for _, target := range req.Targets {
		target = strings.TrimSpace(target)
		if target == "" {
			return nil, errors.New("target cannot be empty")
		}
		o := base
		o.Target = target
		opts = append(opts, o)
	}
	return opts, nil
}

func (v *ConfigValidator) normalizeOptions(req Request) (RunOptions, error) {
	o := RunOptions{
		Count:          req.Count,
		Timeout:        req.Timeout,
		ResolveName:    req.ResolveName,
		Announce:       req.Announce,
		SoundPolicy:    req.SoundPolicy,
		SoundThreshold: DefaultSoundThreshold,
	}

	switch {
	case req.Continuous:
		o.Count = Unbounded
		o.Announce = true
	case o.Count == 0:
		o.Count = 1
	case o.Count < 0:
		return o, fmt.Errorf("count must be at least 1, got %d", req.Count)
	}

	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}

	if req.Delay != nil {
		o.Delay = *req.Delay
	} else if req.Continuous {
		o.Delay = DefaultContinuousDelay
	}

	if o.SoundPolicy == "" {
		o.SoundPolicy = SoundSilent
	}
	if req.SoundThreshold != nil {
		o.SoundThreshold = *req.SoundThreshold
	}

	return o, v.validateSettings(o)
}

func (v *ConfigValidator) Validate(o RunOptions) error {
	if strings.TrimSpace(o.Target) == "" {
		return errors.New("target cannot be empty")
	}
	return v.validateSettings(o)
}

func (v *ConfigValidator) validateSettings(o RunOptions) error {
	if o.Count < 1 && o.Count != Unbounded {
		return fmt.Errorf("count must be at least 1, got %d", o.Count)
	}

	if o.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", o.Timeout)
	}

	if o.Delay < 0 {
		return fmt.Errorf("wait must not be negative, got %s", o.Delay)
	}

	if !slices.Contains(SoundPolicies, o.SoundPolicy) {
		return fmt.Errorf("unknown sound policy %q", o.SoundPolicy)
	}

	return nil
}

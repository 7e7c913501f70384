package app

import (
	"testing"

	"github.com/FriedrichWeinmann/sendping/internal/domain"
)

func TestNotifierPolicies(t *testing.T) {
	// outcomes: fail, fail, ok, fail, ok
	outcomes := []bool{false, false, true, false, true}

	cases := []struct {
		policy    domain.SoundPolicy
		threshold int
		want      []bool
	}{
		{domain.SoundSilent, 5, []bool{false, false, false, false, false}},
		{domain.SoundUntilFirstSuccess, 5, []bool{true, true, true, false, false}},
		{domain.SoundUntilFirstFailure, 5, []bool{true, false, false, false, false}},
		{domain.SoundAfterEverySuccessAfterThreshold, 1, []bool{false, false, true, false, false}},
		{domain.SoundAfterEveryFailureAfterThreshold, 2, []bool{true, true, false, false, false}},
		{domain.SoundAfterEveryFailureAfterThreshold, -1, []bool{true, true, false, true, false}},
		{domain.SoundAfterEveryFailureAfterThreshold, 0, []bool{false, false, false, false, false}},
		{domain.SoundAlwaysOnSuccess, 5, []bool{false, false, true, false, true}},
		{domain.SoundAlwaysOnFailure, 5, []bool{true, true, false, true, false}},
		{domain.SoundAlways, 5, []bool{true, true, true, true, true}},
	}

	for _, tc := range cases {
		t.Run(string(tc.policy), func(t *testing.T) {
			n := NewNotifier(tc.policy, tc.threshold)
			for i, ok := range outcomes {
				if got := n.Observe(ok); got != tc.want[i] {
					t.Fatalf("attempt %d: expected notify=%v got %v", i+1, tc.want[i], got)
				}
			}
		})
	}
}

func TestNotifierFailureThresholdStopsAfterBudget(t *testing.T) {
	n := NewNotifier(domain.SoundAfterEveryFailureAfterThreshold, 2)
	fired := 0
	for i := 0; i < 5; i++ {
		if n.Observe(false) {
			fired++
			if i >= 2 {
				t.Fatalf("attempt %d should be silent", i+1)
			}
		}
	}
	if fired != 2 {
		t.Fatalf("expected 2 notifications, got %d", fired)
	}
}

func TestNotifierUnlimitedThreshold(t *testing.T) {
	n := NewNotifier(domain.SoundAfterEverySuccessAfterThreshold, -1)
	for i := 0; i < 1000; i++ {
		if !n.Observe(true) {
			t.Fatalf("attempt %d: unlimited threshold stopped notifying", i+1)
		}
	}
}

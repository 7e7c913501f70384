package app

import (
	"io"

	"github.com/FriedrichWeinmann/sendping/internal/domain"
)

type Sounder interface {
	Beep() error
}

// TerminalBell rings the terminal bell by writing BEL to w.
type TerminalBell struct {
	w io.Writer
}

func NewTerminalBell(w io.Writer) *TerminalBell {
	return &TerminalBell{w: w}
}

func (b *TerminalBell) Beep() error {
	_, err := io.WriteString(b.w, "\a")
	return err
}

type silentSounder struct{}

func (silentSounder) Beep() error { return nil }

// Notifier decides per attempt whether a sound notification fires.
type Notifier struct {
	policy        domain.SoundPolicy
	remaining     int
	succeededOnce bool
	failedOnce    bool
}

func NewNotifier(policy domain.SoundPolicy, threshold int) *Notifier {
	return &Notifier{policy: policy, remaining: threshold}
}

// Observe records one attempt outcome and reports whether to notify for it.
func (n *Notifier) Observe(succeeded bool) bool {
	notify := n.decide(succeeded)
	if succeeded {
		n.succeededOnce = true
	} else {
		n.failedOnce = true
	}
	return notify
}

func (n *Notifier) decide(succeeded bool) bool {
	switch n.policy {
	case domain.SoundUntilFirstSuccess:
		// the first success itself still notifies
		return !n.succeededOnce
	case domain.SoundUntilFirstFailure:
		return !n.failedOnce
	case domain.SoundAfterEverySuccessAfterThreshold:
		return succeeded && n.take()
	case domain.SoundAfterEveryFailureAfterThreshold:
		return !succeeded && n.take()
	case domain.SoundAlwaysOnSuccess:
		return succeeded
	case domain.SoundAlwaysOnFailure:
		return !succeeded
	case domain.SoundAlways:
		return true
	default:
		return false
	}
}

// take consumes one threshold notification. A negative budget is unlimited.
func (n *Notifier) take() bool {
	if n.remaining == 0 {
		return false
	}
	if n.remaining > 0 {
		n.remaining--
	}
	return true
}

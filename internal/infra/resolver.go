package infra

import (
	"context"
	"fmt"
	"net"
	"strings"
)

type ReverseResolver struct {
	lookupAddr func(ctx context.Context, addr string) ([]string, error)
}

func NewReverseResolver() *ReverseResolver {
	return &ReverseResolver{lookupAddr: net.DefaultResolver.LookupAddr}
}

// LookupName returns the first PTR name for ip without the trailing dot.
func (r *ReverseResolver) LookupName(ctx context.Context, ip net.IP) (string, error) {
	if ip == nil {
		return "", fmt.Errorf("reverse lookup: no address")
	}
	names, err := r.lookupAddr(ctx, ip.String())
	if err != nil {
		return "", fmt.Errorf("reverse lookup %s: %w", ip, err)
	}
	if len(names) == 0 {
		return "", fmt.Errorf("reverse lookup %s: no names", ip)
	}
	return strings.TrimSuffix(names[0], "."), nil
}

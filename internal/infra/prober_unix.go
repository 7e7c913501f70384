//go:build !windows

package infra

// Unprivileged ICMP uses datagram sockets on linux and darwin, see
// net.ipv4.ping_group_range for linux.
const defaultPrivileged = false

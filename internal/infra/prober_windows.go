//go:build windows

package infra

// pro-bing only supports raw sockets on windows.
const defaultPrivileged = true

package interceptor

import (
	"net"
	"strings"
)

// interfaceAddrs is swapped in tests.
var interfaceAddrs = net.InterfaceAddrs

// IsLocalAddress reports whether remoteAddr is a loopback address or one of
// this machine's interface addresses. Any failure to determine this counts
// as remote.
func IsLocalAddress(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	if i := strings.IndexByte(host, '%'); i >= 0 {
		host = host[:i]
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	if ip.IsLoopback() {
		return true
	}

	addrs, err := interfaceAddrs()
	if err != nil {
		return false
	}
	for _, addr := range addrs {
		var local net.IP
		switch a := addr.(type) {
		case *net.IPNet:
			local = a.IP
		case *net.IPAddr:
			local = a.IP
		}
		if local != nil && local.Equal(ip) {
			return true
		}
	}
	return false
}

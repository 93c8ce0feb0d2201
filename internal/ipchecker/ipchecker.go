// Package ipchecker restricts internal endpoints to clients inside a trusted subnet.
package ipchecker

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/patric-chuzhbe/contactkeeper/internal/logger"
)

// IPChecker decides whether a request comes from the trusted subnet. With no subnet
// configured every request is refused.
type IPChecker struct {
	trustedSubnet *net.IPNet
}

// New parses trustedSubnet in CIDR notation (e.g. "10.0.0.0/8"). An empty string
// yields a checker that trusts nobody.
func New(trustedSubnet string) (*IPChecker, error) {
	if trustedSubnet == "" {
		return &IPChecker{}, nil
	}

	_, allowedNet, err := net.ParseCIDR(trustedSubnet)
	if err != nil {
		return nil, fmt.Errorf("in internal/ipchecker/ipchecker.go/New(): error while `net.ParseCIDR()` calling: %w", err)
	}

	return &IPChecker{trustedSubnet: allowedNet}, nil
}

func (checker *IPChecker) Check(clientIP net.IP) bool {
	return checker.trustedSubnet != nil && clientIP != nil && checker.trustedSubnet.Contains(clientIP)
}

// ClientIP takes the address from X-Real-IP, then the first X-Forwarded-For hop,
// then RemoteAddr.
func ClientIP(request *http.Request) (net.IP, error) {
	if ip := net.ParseIP(strings.TrimSpace(request.Header.Get("X-Real-IP"))); ip != nil {
		return ip, nil
	}

	if forwarded := request.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip, nil
		}
	}

	host, _, err := net.SplitHostPort(request.RemoteAddr)
	if err != nil {
		return nil, fmt.Errorf("in internal/ipchecker/ipchecker.go/ClientIP(): error while `net.SplitHostPort()` calling: %w", err)
	}

	return net.ParseIP(host), nil
}

// TrustedOnly answers 403 to every client outside the trusted subnet.
func (checker *IPChecker) TrustedOnly(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		clientIP, err := ClientIP(request)
		if err != nil || !checker.Check(clientIP) {
			logger.Log.Debugw("untrusted client refused", "uri", request.RequestURI, "client_ip", clientIP.String())
			response.WriteHeader(http.StatusForbidden)
			return
		}

		h.ServeHTTP(response, request)
	}

	return http.HandlerFunc(middleware)
}

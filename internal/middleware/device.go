package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strings"
)

// DeviceCookieName is the cookie carrying the opaque device identifier.
const DeviceCookieName = "voting_device_id"

const deviceCookieMaxAge = 60 * 60 * 24 * 365 // 1 year

type contextKey string

const deviceIDKey contextKey = "device_id"

// DeviceID resolves the opaque device identifier for the request and puts it
// into the context. An existing cookie wins; otherwise an id is derived from
// the client IP (stable across browsers and incognito on the same network)
// and set as the cookie so later requests stay sticky. The voting core only
// ever sees the resolved string.
func DeviceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deviceID := ""
		if cookie, err := r.Cookie(DeviceCookieName); err == nil {
			deviceID = strings.TrimSpace(cookie.Value)
		}

		if deviceID == "" {
			deviceID = deriveIPDeviceID(r)
			http.SetCookie(w, &http.Cookie{
				Name:     DeviceCookieName,
				Value:    deviceID,
				Path:     "/",
				MaxAge:   deviceCookieMaxAge,
				HttpOnly: true,
			})
		}

		ctx := context.WithValue(r.Context(), deviceIDKey, deviceID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetDeviceID extracts the resolved device id from the context.
func GetDeviceID(ctx context.Context) string {
	deviceID, ok := ctx.Value(deviceIDKey).(string)
	if !ok {
		return ""
	}
	return deviceID
}

// deriveIPDeviceID hashes the client IP into an opaque device id.
func deriveIPDeviceID(r *http.Request) string {
	ip := ClientIP(r)
	if ip == "" {
		ip = "unknown"
	}
	sum := sha256.Sum256([]byte(ip))
	return "ip-" + hex.EncodeToString(sum[:16])
}

// ClientIP returns the client address, preferring proxy headers over the
// raw remote address.
func ClientIP(r *http.Request) string {
	for _, header := range []string{"X-Forwarded-For", "X-Real-IP"} {
		ip := r.Header.Get(header)
		if ip == "" || strings.EqualFold(ip, "unknown") {
			continue
		}
		if idx := strings.IndexByte(ip, ','); idx >= 0 {
			ip = ip[:idx]
		}
		return strings.TrimSpace(ip)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

package log

import (
	"context"
	"log/slog"
	"regexp"
	"slices"
	"strings"
)

// MaskValue is the string used to replace sensitive values.
const MaskValue = "***REDACTED***"

// credentialKeys are attribute keys that always carry a credential when a
// crawler logs them: request headers it sends or receives, and the names
// under which API keys and session identifiers travel.
var credentialKeys = []string{
	"authorization", "proxy-authorization",
	"cookie", "set-cookie",
	"x-api-key", "x-auth-token", "api_key", "apikey", "api-key",
	"session_id", "sessionid", "jsessionid", "sid",
	"secret_key", "secretkey", "private_key", "privatekey",
	"token", "credentials",
}

// credentialFragments mark a key as sensitive wherever they occur in it,
// as in "site_cookie" or "db_password". "key" and "token" are not
// fragments: they would hide "keywords" and "max_tokens".
var credentialFragments = []string{
	"password", "passwd", "secret", "auth", "credential", "private", "cookie",
}

// credentialPatterns match values that look like credentials whatever key
// they are logged under.
var credentialPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^sk-[A-Za-z0-9_-]{16,}$`),                                // OpenAI-style API keys
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`), // JWT
	regexp.MustCompile(`(?i)^(bearer|basic)\s+\S+`),                              // Authorization header values
	regexp.MustCompile(`^AKIA[0-9A-Z]{16}$`),                                     // AWS access key IDs
	regexp.MustCompile(`^[A-Za-z0-9]{32,}$`),                                     // opaque hex or base62 tokens
	regexp.MustCompile(`(?i)-----BEGIN.*(PRIVATE|SECRET).*KEY-----`),
}

// SecureHandler is a slog.Handler middleware that keeps credentials out of
// the log. Attributes are masked when their key names a credential or their
// value looks like one, and every literal secret registered with
// WithSecrets is cut out of messages, strings and error texts.
//
// Design decision: The scraper logs fetch errors verbatim, and those quote
// request URLs and headers. Masking at the handler covers every call site,
// including the ones in libraries that only see a *slog.Logger.
type SecureHandler struct {
	next    slog.Handler
	secrets []string
}

// SecureOption configures a SecureHandler.
type SecureOption func(*SecureHandler)

// WithSecrets registers literal values that must never reach the log,
// such as the configured API key or per-site cookie values.
// Values shorter than four bytes are ignored; masking them would garble
// ordinary text.
func WithSecrets(values ...string) SecureOption {
	return func(h *SecureHandler) {
		for _, v := range values {
			if len(v) >= 4 && !slices.Contains(h.secrets, v) {
				h.secrets = append(h.secrets, v)
			}
		}
	}
}

// NewSecureHandler wraps next. A nil next wraps slog.Default().Handler().
func NewSecureHandler(next slog.Handler, opts ...SecureOption) *SecureHandler {
	if next == nil {
		next = slog.Default().Handler()
	}
	h := &SecureHandler{next: next}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Enabled implements slog.Handler.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, h.cut(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.mask(a))
		return true
	})
	return h.next.Handle(ctx, out)
}

// WithAttrs implements slog.Handler. The attributes are masked once, here.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, 0, len(attrs))
	for _, a := range attrs {
		masked = append(masked, h.mask(a))
	}
	return &SecureHandler{next: h.next.WithAttrs(masked), secrets: h.secrets}
}

// WithGroup implements slog.Handler.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{next: h.next.WithGroup(name), secrets: h.secrets}
}

// mask returns a with any credential replaced. Groups are walked recursively.
func (h *SecureHandler) mask(a slog.Attr) slog.Attr {
	v := a.Value.Resolve()

	switch {
	case v.Kind() == slog.KindGroup:
		members := v.Group()
		masked := make([]slog.Attr, 0, len(members))
		for _, m := range members {
			masked = append(masked, h.mask(m))
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(masked...)}
	case isSensitiveKey(a.Key):
		return slog.String(a.Key, MaskValue)
	case v.Kind() == slog.KindString:
		s := v.String()
		if isSensitiveValue(s) {
			return slog.String(a.Key, MaskValue)
		}
		if cut := h.cut(s); cut != s {
			return slog.String(a.Key, cut)
		}
	case v.Kind() == slog.KindAny:
		// Fetch errors quote the request URL, which may carry a cookie.
		if err, ok := v.Any().(error); ok && err != nil {
			msg := err.Error()
			if cut := h.cut(msg); cut != msg {
				return slog.String(a.Key, cut)
			}
		}
	}
	return a
}

// cut replaces every registered secret in s with MaskValue.
func (h *SecureHandler) cut(s string) string {
	for _, secret := range h.secrets {
		s = strings.ReplaceAll(s, secret, MaskValue)
	}
	return s
}

// isSensitiveKey reports whether an attribute key names a credential.
func isSensitiveKey(key string) bool {
	key = strings.ToLower(key)
	if slices.Contains(credentialKeys, key) {
		return true
	}
	for _, fragment := range credentialFragments {
		if strings.Contains(key, fragment) {
			return true
		}
	}
	return strings.HasSuffix(key, "_token") || strings.HasSuffix(key, "-token")
}

// isSensitiveValue reports whether value looks like a credential.
func isSensitiveValue(value string) bool {
	for _, p := range credentialPatterns {
		if p.MatchString(value) {
			return true
		}
	}
	return false
}

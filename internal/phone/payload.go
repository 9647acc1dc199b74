package phone

import (
	"encoding/json"
	"regexp"
	"strings"
)

// PayloadKind tags the result of parsing a scanned QR payload.
type PayloadKind int

const (
	StructuredCoupon PayloadKind = iota // JSON coupon payload with a phone field
	RawPhoneMatch                       // A phone-looking pattern found in free text
	Unrecognized                        // Neither of the above
)

// Payload is the parsed form of a scanned input, resolved once up front
// instead of nested parse-and-retry control flow.
type Payload struct {
	Kind  PayloadKind
	Phone string // Extracted phone, not yet normalized
}

// couponPayload is the JSON shape encoded into coupon QR codes.
type couponPayload struct {
	Type  string `json:"type"`  // Recognized tag: "coupon"
	Phone string `json:"phone"` // Owner phone
}

// phonePattern matches a phone-looking run of digits, allowing the
// separators scanners commonly emit.
var phonePattern = regexp.MustCompile(`\+?\d[\d\s\-]{7,13}\d`)

// ParsePayload classifies a scanned string. Structured coupon payloads win,
// then a pattern match over the raw text; everything else is Unrecognized.
func ParsePayload(raw string) Payload {
	trimmed := strings.TrimSpace(raw)
	// Structured coupon payload: valid JSON with the coupon tag and a phone
	if strings.HasPrefix(trimmed, "{") {
		var cp couponPayload
		if err := json.Unmarshal([]byte(trimmed), &cp); err == nil && cp.Type == "coupon" && cp.Phone != "" {
			return Payload{Kind: StructuredCoupon, Phone: cp.Phone}
		}
	}
	// Free text: take the first phone-looking run
	if m := phonePattern.FindString(trimmed); m != "" {
		return Payload{Kind: RawPhoneMatch, Phone: m}
	}
	return Payload{Kind: Unrecognized}
}
